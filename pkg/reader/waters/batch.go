package waters

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/RawKey/pkg/core"
)

// Result is the outcome of importing one acquisition in a batch.
type Result struct {
	Path   string
	Status Status
	File   *core.RawDataFile
	Err    error
}

// ImportAll imports every path with up to workers tasks in parallel. Files
// are independent: one failure neither stops nor affects its siblings.
// Results are returned in input order. onStart, if set, receives each task
// before it runs so the caller can poll or cancel it.
func ImportAll(ctx context.Context, paths []string, registry Registry, workers int,
	opts Options, onStart func(*Task)) []Result {

	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(paths))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			task := NewTask(path, registry, opts)
			if onStart != nil {
				onStart(task)
			}
			err := task.Run(ctx)
			results[i] = Result{
				Path:   path,
				Status: task.Status(),
				File:   task.File(),
				Err:    err,
			}
			// Failures are reported per file.
			return nil
		})
	}

	_ = g.Wait()
	return results
}
