// Package waters imports Waters MassLynx acquisitions into raw data files.
//
// An import runs as a Task: one worker per acquisition, reporting status and
// progress to the caller and checking for cancellation between functions and
// between batches of materialised scans.
package waters

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ChrisMcGann/RawKey/internal/log"
	"github.com/ChrisMcGann/RawKey/pkg/core"
	"github.com/ChrisMcGann/RawKey/pkg/masslynx"
)

// Status is the lifecycle state of an import task.
type Status int

const (
	StatusIdle Status = iota
	StatusProcessing
	StatusFinished
	StatusError
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusProcessing:
		return "processing"
	case StatusFinished:
		return "finished"
	case StatusError:
		return "error"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Final reports whether no further transitions can happen.
func (s Status) Final() bool {
	return s == StatusFinished || s == StatusError || s == StatusCancelled
}

// Registry receives finished raw data files. Ownership of the file passes to
// the registry; it must be safe for concurrent use when tasks run in
// parallel.
type Registry interface {
	AddRawDataFile(f *core.RawDataFile) error
}

// ErrorReporter surfaces vendor messages to the user.
type ErrorReporter interface {
	ReportError(path, message string)
}

// ErrCancelled is returned by Run when the task was cancelled.
var ErrCancelled = errors.New("import cancelled")

// Options tune an import task. Zero values select the defaults.
type Options struct {
	// CancelCheckInterval is the number of materialised scans between
	// cancellation checks. Default 256.
	CancelCheckInterval int
	// ProgressStep is the minimum progress delta between two reports.
	// Default 0.10.
	ProgressStep float64
	// Progress, if set, is called with the rate-limited progress reports.
	Progress func(path string, percent float64)
	// Reporter, if set, receives vendor messages of SDK faults.
	Reporter ErrorReporter
	// Open opens the acquisition. Default masslynx.Open.
	Open func(path string) (masslynx.RawReader, error)
}

func (o Options) withDefaults() Options {
	if o.CancelCheckInterval <= 0 {
		o.CancelCheckInterval = 256
	}
	if o.ProgressStep <= 0 {
		o.ProgressStep = 0.10
	}
	if o.Open == nil {
		o.Open = masslynx.Open
	}
	return o
}

// Task imports one acquisition directory.
type Task struct {
	path     string
	registry Registry
	opts     Options

	cancelled atomic.Bool

	mu           sync.Mutex
	status       Status
	description  string
	percent      float64
	lastReported float64
	errMessage   string
	err          error
	file         *core.RawDataFile
}

// NewTask creates an idle import task for path. registry may be nil, in which
// case the finished file is only available through File.
func NewTask(path string, registry Registry, opts Options) *Task {
	return &Task{
		path:        path,
		registry:    registry,
		opts:        opts.withDefaults(),
		description: "Importing " + path,
	}
}

// Path returns the acquisition directory.
func (t *Task) Path() string { return t.path }

// Status returns the current lifecycle state.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// FinishedPercentage returns progress in [0, 1]. It never decreases.
func (t *Task) FinishedPercentage() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percent
}

// Description returns a human-readable description of the current phase.
func (t *Task) Description() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.description
}

// ErrorMessage returns the message of a failed import.
func (t *Task) ErrorMessage() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errMessage
}

// Err returns the error that ended the task, if any.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// File returns the imported file once the task has finished.
func (t *Task) File() *core.RawDataFile {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusFinished {
		return nil
	}
	return t.file
}

// Cancel requests cooperative cancellation. The status flips to cancelled at
// the next checkpoint; a task that already ended is not affected.
func (t *Task) Cancel() {
	t.cancelled.Store(true)
}

func (t *Task) setDescription(description string) {
	t.mu.Lock()
	t.description = description
	t.mu.Unlock()
}

// setFinishedPercentage records progress and reports it once it moved by at
// least ProgressStep since the last report. Completion is visible through
// Status and FinishedPercentage, not through an extra report.
func (t *Task) setFinishedPercentage(p float64) {
	t.mu.Lock()
	if p <= t.percent {
		t.mu.Unlock()
		return
	}
	t.percent = p
	report := p-t.lastReported >= t.opts.ProgressStep
	if report {
		t.lastReported = p
	}
	description := t.description
	t.mu.Unlock()

	if report {
		log.Debugf("%s - %d%%", description, int(p*100))
		if t.opts.Progress != nil {
			t.opts.Progress(t.path, p)
		}
	}
}

// checkpoint returns ErrCancelled once cancellation has been requested.
func (t *Task) checkpoint(ctx context.Context) error {
	if t.cancelled.Load() {
		return ErrCancelled
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
	return nil
}

// Run executes the import. It may be called once; the returned error is also
// available through Err.
func (t *Task) Run(ctx context.Context) error {
	t.mu.Lock()
	if t.status != StatusIdle {
		t.mu.Unlock()
		return fmt.Errorf("%w: task for %s already ran", core.ErrInternalInvariant, t.path)
	}
	t.status = StatusProcessing
	t.mu.Unlock()

	file, err := t.load(ctx)
	if err == nil {
		file.Seal()
		if t.registry != nil {
			if regErr := t.registry.AddRawDataFile(file); regErr != nil {
				err = fmt.Errorf("failed to register %s: %w", file.Name(), regErr)
			}
		}
	}

	if err != nil {
		t.fail(err)
		return err
	}

	t.setFinishedPercentage(1)
	t.mu.Lock()
	t.file = file
	t.status = StatusFinished
	t.mu.Unlock()
	log.Infow("import finished", "path", t.path, "scans", file.ScanCount(), "frames", file.FrameCount())
	return nil
}

func (t *Task) fail(err error) {
	status := StatusError
	if errors.Is(err, ErrCancelled) {
		status = StatusCancelled
	}

	message := err.Error()
	var sdkErr *masslynx.Error
	if errors.As(err, &sdkErr) {
		message = "MassLynx error: " + sdkErr.Message
	}

	t.mu.Lock()
	t.status = status
	t.err = err
	if status == StatusError {
		t.errMessage = message
	}
	t.mu.Unlock()

	if status == StatusCancelled {
		log.Infow("import cancelled", "path", t.path)
		return
	}

	log.Errorw("import failed", "path", t.path, "error", err)
	if sdkErr != nil && t.opts.Reporter != nil {
		t.opts.Reporter.ReportError(t.path, sdkErr.Message)
	}
}
