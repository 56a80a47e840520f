package waters

import (
	"sync"

	"github.com/ChrisMcGann/RawKey/pkg/core"
	"github.com/ChrisMcGann/RawKey/pkg/masslynx"
)

// fakeFunction describes one function of a fake acquisition.
type fakeFunction struct {
	ftype masslynx.FunctionType
	mode  masslynx.IonMode
	rts   []float32
	drift uint16 // 0 = probe fails
}

// fakeReader is an in-memory MassLynx reader. Scan data encode their origin:
// a single point at m/z 100+function with intensity scan (or drift).
type fakeReader struct {
	functions []fakeFunction

	failReadAt   int // fail the n-th ReadScan/ReadDriftScan call (1-based), 0 = never
	failIonMode  int // function whose IonMode fails, -1 = none
	onRead       func(call int)
	reads        int
	closed       bool
	functionHook func(function int)
}

func (f *fakeReader) FunctionCount() (int, error) { return len(f.functions), nil }

func (f *fakeReader) ScansInFunction(function int) (int, error) {
	if f.functionHook != nil {
		f.functionHook(function)
	}
	return len(f.functions[function].rts), nil
}

func (f *fakeReader) FunctionType(function int) (masslynx.FunctionType, error) {
	return f.functions[function].ftype, nil
}

func (f *fakeReader) AcquisitionMassRange(function int) (masslynx.MassRange, error) {
	return masslynx.MassRange{Start: 50, End: 1200}, nil
}

func (f *fakeReader) IonMode(function int) (masslynx.IonMode, error) {
	if function == f.failIonMode {
		return masslynx.IonModeUninitialised, masslynx.NewError("IonMode", function, -1, "ion mode unavailable")
	}
	return f.functions[function].mode, nil
}

func (f *fakeReader) IsContinuum(function int) (bool, error) { return false, nil }

func (f *fakeReader) RetentionTime(function, scan int) (float32, error) {
	return f.functions[function].rts[scan], nil
}

func (f *fakeReader) DriftScanCount(function int) (uint16, bool) {
	d := f.functions[function].drift
	return d, d > 0
}

func (f *fakeReader) read(function, scan int, value int) ([]float32, []float32, error) {
	f.reads++
	if f.onRead != nil {
		f.onRead(f.reads)
	}
	if f.failReadAt > 0 && f.reads == f.failReadAt {
		return nil, nil, masslynx.NewError("ReadScan", function, scan, "raw file truncated")
	}
	return []float32{float32(100 + function)}, []float32{float32(value)}, nil
}

func (f *fakeReader) ReadScan(function, scan int) ([]float32, []float32, error) {
	return f.read(function, scan, scan)
}

func (f *fakeReader) ReadDriftScan(function, scan, drift int) ([]float32, []float32, error) {
	return f.read(function, scan, drift)
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func openFake(r *fakeReader) func(string) (masslynx.RawReader, error) {
	return func(path string) (masslynx.RawReader, error) {
		if err := masslynx.ValidatePath(path); err != nil {
			return nil, err
		}
		return r, nil
	}
}

type memoryRegistry struct {
	mu    sync.Mutex
	files []*core.RawDataFile
}

func (m *memoryRegistry) AddRawDataFile(f *core.RawDataFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = append(m.files, f)
	return nil
}

type recordingReporter struct {
	messages []string
}

func (r *recordingReporter) ReportError(path, message string) {
	r.messages = append(r.messages, message)
}
