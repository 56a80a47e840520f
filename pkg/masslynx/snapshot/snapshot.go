// Package snapshot provides a MassLynx driver for acquisitions exported to a
// msgpack snapshot. The snapshot file lives inside the .raw directory, so a
// snapshot acquisition is opened by the same path as the vendor data.
//
// Import the package for its side effect to register the driver:
//
//	import _ "github.com/ChrisMcGann/RawKey/pkg/masslynx/snapshot"
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ChrisMcGann/RawKey/pkg/masslynx"
)

// FileName is the snapshot file inside an acquisition directory.
const FileName = "_acquisition.msgpack"

// Acquisition is the serialised form of one instrument run.
type Acquisition struct {
	Functions []Function `msgpack:"functions"`
}

// Function is one acquisition channel.
type Function struct {
	Type       masslynx.FunctionType `msgpack:"type"`
	IonMode    masslynx.IonMode      `msgpack:"ion_mode"`
	Continuum  bool                  `msgpack:"continuum"`
	MassStart  float32               `msgpack:"mass_start"`
	MassEnd    float32               `msgpack:"mass_end"`
	DriftScans uint16                `msgpack:"drift_scans,omitempty"` // 0 = no drift dimension
	Scans      []Scan                `msgpack:"scans"`
}

// Scan is one retention time point of a function. Ion-mobility functions
// store their data in Drift, one spectrum per drift bin.
type Scan struct {
	RT        float32    `msgpack:"rt"`
	MZ        []float32  `msgpack:"mz"`
	Intensity []float32  `msgpack:"intensity"`
	Drift     []Spectrum `msgpack:"drift,omitempty"`
}

// Spectrum is a pair of parallel arrays.
type Spectrum struct {
	MZ        []float32 `msgpack:"mz"`
	Intensity []float32 `msgpack:"intensity"`
}

func init() {
	masslynx.Register("snapshot", Driver{})
}

// Driver opens snapshot acquisitions.
type Driver struct{}

// Detect reports whether dir contains a snapshot file.
func (Driver) Detect(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil && info.Mode().IsRegular()
}

// Open decodes the snapshot in dir.
func (Driver) Open(dir string) (masslynx.RawReader, error) {
	r, err := Open(dir)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Write creates dir if needed and stores acq as its snapshot.
func Write(dir string, acq *Acquisition) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create acquisition directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, FileName))
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	if err := msgpack.NewEncoder(f).Encode(acq); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return f.Close()
}

// Reader serves a decoded snapshot through the masslynx reader interfaces.
type Reader struct {
	path string
	acq  *Acquisition
}

// Open decodes the snapshot stored in dir.
func Open(dir string) (*Reader, error) {
	f, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		return nil, masslynx.NewError("open", -1, -1, "%v", err)
	}
	defer f.Close()

	var acq Acquisition
	if err := msgpack.NewDecoder(f).Decode(&acq); err != nil {
		return nil, masslynx.NewError("open", -1, -1, "corrupt snapshot %s: %v", dir, err)
	}
	return &Reader{path: dir, acq: &acq}, nil
}

// NewReader serves an in-memory acquisition.
func NewReader(acq *Acquisition) *Reader {
	return &Reader{acq: acq}
}

func (r *Reader) function(op string, function int) (*Function, error) {
	if r.acq == nil {
		return nil, masslynx.NewError(op, function, -1, "reader is closed")
	}
	if function < 0 || function >= len(r.acq.Functions) {
		return nil, masslynx.NewError(op, function, -1, "function index out of range")
	}
	return &r.acq.Functions[function], nil
}

func (r *Reader) scan(op string, function, scan int) (*Scan, error) {
	fn, err := r.function(op, function)
	if err != nil {
		return nil, err
	}
	if scan < 0 || scan >= len(fn.Scans) {
		return nil, masslynx.NewError(op, function, scan, "scan index out of range")
	}
	return &fn.Scans[scan], nil
}

func (r *Reader) FunctionCount() (int, error) {
	if r.acq == nil {
		return 0, masslynx.NewError("FunctionCount", -1, -1, "reader is closed")
	}
	return len(r.acq.Functions), nil
}

func (r *Reader) ScansInFunction(function int) (int, error) {
	fn, err := r.function("ScansInFunction", function)
	if err != nil {
		return 0, err
	}
	return len(fn.Scans), nil
}

func (r *Reader) FunctionType(function int) (masslynx.FunctionType, error) {
	fn, err := r.function("FunctionType", function)
	if err != nil {
		return masslynx.FunctionOther, err
	}
	return fn.Type, nil
}

func (r *Reader) AcquisitionMassRange(function int) (masslynx.MassRange, error) {
	fn, err := r.function("AcquisitionMassRange", function)
	if err != nil {
		return masslynx.MassRange{}, err
	}
	return masslynx.MassRange{Start: fn.MassStart, End: fn.MassEnd}, nil
}

func (r *Reader) IonMode(function int) (masslynx.IonMode, error) {
	fn, err := r.function("IonMode", function)
	if err != nil {
		return masslynx.IonModeUninitialised, err
	}
	return fn.IonMode, nil
}

func (r *Reader) IsContinuum(function int) (bool, error) {
	fn, err := r.function("IsContinuum", function)
	if err != nil {
		return false, err
	}
	return fn.Continuum, nil
}

func (r *Reader) RetentionTime(function, scan int) (float32, error) {
	s, err := r.scan("RetentionTime", function, scan)
	if err != nil {
		return 0, err
	}
	return s.RT, nil
}

func (r *Reader) DriftScanCount(function int) (uint16, bool) {
	fn, err := r.function("DriftScanCount", function)
	if err != nil || fn.DriftScans == 0 {
		return 0, false
	}
	return fn.DriftScans, true
}

func (r *Reader) ReadScan(function, scan int) ([]float32, []float32, error) {
	s, err := r.scan("ReadScan", function, scan)
	if err != nil {
		return nil, nil, err
	}
	return s.MZ, s.Intensity, nil
}

func (r *Reader) ReadDriftScan(function, scan, drift int) ([]float32, []float32, error) {
	s, err := r.scan("ReadDriftScan", function, scan)
	if err != nil {
		return nil, nil, err
	}
	if drift < 0 || drift >= len(s.Drift) {
		return nil, nil, masslynx.NewError("ReadDriftScan", function, scan, "drift index %d out of range", drift)
	}
	return s.Drift[drift].MZ, s.Drift[drift].Intensity, nil
}

// Close releases the decoded acquisition.
func (r *Reader) Close() error {
	r.acq = nil
	return nil
}
