package waters

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ChrisMcGann/RawKey/internal/log"
	"github.com/ChrisMcGann/RawKey/pkg/core"
	"github.com/ChrisMcGann/RawKey/pkg/masslynx"
)

func runFake(t *testing.T, r *fakeReader, opts Options) (*Task, *memoryRegistry, error) {
	t.Helper()
	reg := &memoryRegistry{}
	opts.Open = openFake(r)
	task := NewTask(t.TempDir(), reg, opts)
	err := task.Run(context.Background())
	return task, reg, err
}

func assertDenseAndOrdered(t *testing.T, f *core.RawDataFile) {
	t.Helper()
	for i := 0; i < f.ScanCount(); i++ {
		s := f.Scan(i)
		assert.Equal(t, uint32(i), s.ScanNumber(), "scan numbers must be dense")
		if i == 0 {
			continue
		}
		prev := f.Scan(i - 1)
		require.LessOrEqual(t, prev.RetentionTime(), s.RetentionTime(), "scan %d out of rt order", i)
		if prev.RetentionTime() == s.RetentionTime() && !f.IsMobility() {
			assert.LessOrEqual(t, prev.FunctionIndex(), s.FunctionIndex(), "equal rt must order by function")
		}
	}
}

func TestImportInterleavedFunctions(t *testing.T) {
	r := &fakeReader{
		failIonMode: -1,
		functions: []fakeFunction{
			{ftype: masslynx.FunctionMS, mode: masslynx.IonModeESPos, rts: []float32{0.10, 0.30}},
			{ftype: masslynx.FunctionMS2, mode: masslynx.IonModeESPos, rts: []float32{0.20, 0.40}},
		},
	}

	task, reg, err := runFake(t, r, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, task.Status())
	require.Len(t, reg.files, 1)

	f := task.File()
	require.Same(t, reg.files[0], f)
	assert.True(t, f.Sealed())
	require.Equal(t, 4, f.ScanCount())
	assertDenseAndOrdered(t, f)

	want := []struct {
		function uint16
		rt       float32
		msLevel  uint8
	}{
		{0, 0.10, 1}, {1, 0.20, 2}, {0, 0.30, 1}, {1, 0.40, 2},
	}
	for i, w := range want {
		s := f.Scan(i)
		assert.Equal(t, w.function, s.FunctionIndex(), "scan %d function", i)
		assert.Equal(t, w.rt, s.RetentionTime(), "scan %d rt", i)
		assert.Equal(t, w.msLevel, s.MSLevel(), "scan %d ms level", i)
		assert.Equal(t, core.PolarityPositive, s.Polarity())
	}

	// Data arrays come from the scan's own function and index
	assert.Equal(t, []float64{101}, f.Scan(1).MZValues())
	assert.Equal(t, []float64{1}, f.Scan(2).IntensityValues())

	assert.False(t, f.IsMobility())
	assert.Equal(t, []core.Polarity{core.PolarityPositive}, f.PolaritySet())
	assert.True(t, r.closed, "reader must be closed after import")
}

func TestImportEqualRetentionTimes(t *testing.T) {
	r := &fakeReader{
		failIonMode: -1,
		functions: []fakeFunction{
			{ftype: masslynx.FunctionMS, mode: masslynx.IonModeESNeg, rts: []float32{0.25}},
			{ftype: masslynx.FunctionOther, mode: masslynx.IonModeESNeg, rts: []float32{0.25}},
		},
	}

	task, _, err := runFake(t, r, Options{})
	require.NoError(t, err)

	f := task.File()
	require.Equal(t, 2, f.ScanCount())
	assert.Equal(t, uint16(0), f.Scan(0).FunctionIndex())
	assert.Equal(t, uint16(1), f.Scan(1).FunctionIndex())
	assert.Equal(t, uint8(0), f.Scan(1).MSLevel(), "unknown function types have ms level 0")
	assert.Equal(t, core.PolarityNegative, f.Scan(0).Polarity())
}

func TestImportIonMobility(t *testing.T) {
	r := &fakeReader{
		failIonMode: -1,
		functions: []fakeFunction{
			{ftype: masslynx.FunctionTOFM, mode: masslynx.IonModeESPos, rts: []float32{0.5, 1.0}, drift: 3},
		},
	}

	task, _, err := runFake(t, r, Options{})
	require.NoError(t, err)

	f := task.File()
	require.True(t, f.IsMobility())
	assert.Equal(t, core.MobilityTravelingWave, f.MobilityType())
	require.Equal(t, 6, f.ScanCount())
	require.Equal(t, 2, f.FrameCount())
	assertDenseAndOrdered(t, f)

	for i := 0; i < 6; i++ {
		s := f.Scan(i)
		wantRT := float32(0.5)
		if i >= 3 {
			wantRT = 1.0
		}
		assert.Equal(t, wantRT, s.RetentionTime(), "scan %d rt", i)

		d, ok := s.DriftIndex()
		require.True(t, ok)
		assert.Equal(t, uint16(i%3), d)
	}

	for i := 0; i < f.FrameCount(); i++ {
		fr := f.Frame(i)
		assert.Equal(t, uint32(3*i), fr.FirstScan)
		assert.Equal(t, 3, fr.ScanCount())
	}
}

func TestImportPartialMobilityProbe(t *testing.T) {
	r := &fakeReader{
		failIonMode: -1,
		functions: []fakeFunction{
			{ftype: masslynx.FunctionMS, mode: masslynx.IonModeESPos, rts: []float32{0.1, 0.2}, drift: 4},
			{ftype: masslynx.FunctionMS, mode: masslynx.IonModeESPos, rts: []float32{0.15}},
		},
	}

	observed, logs := observer.New(zap.WarnLevel)
	log.SetLogger(zap.New(observed))
	t.Cleanup(func() { log.SetLogger(zap.NewNop()) })

	task, _, err := runFake(t, r, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterField(zap.Int("function", 1)).Len(), "probe failure is logged as a warning")

	f := task.File()
	assert.False(t, f.IsMobility())
	assert.Equal(t, 0, f.FrameCount())
	assert.Equal(t, 3, f.ScanCount(), "no partial frames may enter the stream")
	for i := 0; i < f.ScanCount(); i++ {
		_, ok := f.Scan(i).DriftIndex()
		assert.False(t, ok)
	}
}

func TestImportSDKAbort(t *testing.T) {
	r := &fakeReader{
		failIonMode: -1,
		failReadAt:  3,
		functions: []fakeFunction{
			{ftype: masslynx.FunctionMS, mode: masslynx.IonModeESPos, rts: []float32{0.1, 0.2, 0.3, 0.4}},
		},
	}
	reporter := &recordingReporter{}

	task, reg, err := runFake(t, r, Options{Reporter: reporter})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSDK))

	assert.Equal(t, StatusError, task.Status())
	assert.Nil(t, task.File(), "failed imports expose no scans")
	assert.Empty(t, reg.files)
	assert.Equal(t, 3, r.reads, "no reads after the failing scan")
	assert.Equal(t, []string{"raw file truncated"}, reporter.messages)
	assert.Contains(t, task.ErrorMessage(), "raw file truncated")
}

func TestImportMetadataFailure(t *testing.T) {
	r := &fakeReader{
		failIonMode: 1,
		functions: []fakeFunction{
			{ftype: masslynx.FunctionMS, mode: masslynx.IonModeESPos, rts: []float32{0.1}},
			{ftype: masslynx.FunctionMS, mode: masslynx.IonModeESPos, rts: []float32{0.2}},
		},
	}

	task, reg, err := runFake(t, r, Options{})
	assert.True(t, errors.Is(err, core.ErrSDK))
	assert.Equal(t, StatusError, task.Status())
	assert.Empty(t, reg.files)
	assert.Zero(t, r.reads, "scan bodies must not be read after a metadata fault")
}

func TestImportInvalidPath(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"missing", filepath.Join(t.TempDir(), "missing.raw")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewTask(tt.path, nil, Options{Open: openFake(&fakeReader{})})
			err := task.Run(context.Background())
			assert.True(t, errors.Is(err, core.ErrInvalidPath))
			assert.Equal(t, StatusError, task.Status())
		})
	}
}

func TestImportCancelAtFunctionBoundary(t *testing.T) {
	r := &fakeReader{
		failIonMode: -1,
		functions: []fakeFunction{
			{ftype: masslynx.FunctionMS, mode: masslynx.IonModeESPos, rts: []float32{0.1}},
			{ftype: masslynx.FunctionMS, mode: masslynx.IonModeESPos, rts: []float32{0.2}},
			{ftype: masslynx.FunctionMS, mode: masslynx.IonModeESPos, rts: []float32{0.3}},
		},
	}

	reg := &memoryRegistry{}
	task := NewTask(t.TempDir(), reg, Options{Open: openFake(r)})
	r.functionHook = func(function int) {
		if function == 1 {
			task.Cancel()
		}
	}

	err := task.Run(context.Background())
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.Equal(t, StatusCancelled, task.Status())
	assert.Empty(t, reg.files)
	assert.Empty(t, task.ErrorMessage())
	assert.Zero(t, r.reads)
}

func TestImportCancelDuringMaterialization(t *testing.T) {
	rts := make([]float32, 10)
	for i := range rts {
		rts[i] = float32(i) / 10
	}
	r := &fakeReader{
		failIonMode: -1,
		functions:   []fakeFunction{{ftype: masslynx.FunctionMS, mode: masslynx.IonModeESPos, rts: rts}},
	}

	task := NewTask(t.TempDir(), nil, Options{Open: openFake(r), CancelCheckInterval: 2})
	r.onRead = func(call int) {
		if call == 3 {
			task.Cancel()
		}
	}

	err := task.Run(context.Background())
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.Equal(t, StatusCancelled, task.Status())
	assert.Nil(t, task.File())
	assert.Equal(t, 4, r.reads, "cancellation is observed at the next checkpoint")

	task.Cancel()
	assert.Equal(t, StatusCancelled, task.Status(), "final status never changes")
}

func TestImportContextCancelled(t *testing.T) {
	r := &fakeReader{
		failIonMode: -1,
		functions:   []fakeFunction{{ftype: masslynx.FunctionMS, rts: []float32{0.1}}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := NewTask(t.TempDir(), nil, Options{Open: openFake(r)})
	err := task.Run(ctx)
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.Equal(t, StatusCancelled, task.Status())
}

func TestImportProgress(t *testing.T) {
	var functions []fakeFunction
	for f := 0; f < 4; f++ {
		rts := make([]float32, 10)
		for i := range rts {
			rts[i] = float32(f) + float32(i)/10
		}
		functions = append(functions, fakeFunction{ftype: masslynx.FunctionMS, mode: masslynx.IonModeESPos, rts: rts})
	}
	r := &fakeReader{failIonMode: -1, functions: functions}

	var reports []float64
	task, _, err := runFake(t, r, Options{Progress: func(path string, p float64) {
		reports = append(reports, p)
	}})
	require.NoError(t, err)

	assert.Equal(t, 1.0, task.FinishedPercentage())
	require.NotEmpty(t, reports)
	assert.LessOrEqual(t, len(reports), 10)
	assert.LessOrEqual(t, reports[len(reports)-1], 1.0)

	prev := 0.0
	for i, p := range reports {
		assert.GreaterOrEqual(t, p-prev, 0.1-1e-9, "report %d came too soon", i)
		prev = p
	}
}

func TestProgressReportsRespectStep(t *testing.T) {
	var reports []float64
	task := NewTask("run.raw", nil, Options{Progress: func(path string, p float64) {
		reports = append(reports, p)
	}})

	for _, p := range []float64{0.05, 0.12, 0.15, 0.93, 0.97, 1.0, 0.5} {
		task.setFinishedPercentage(p)
	}

	assert.Equal(t, []float64{0.12, 0.93}, reports, "1.0 is within 0.1 of the last report")
	assert.Equal(t, 1.0, task.FinishedPercentage(), "progress never decreases")
}

func TestTaskRunsOnce(t *testing.T) {
	r := &fakeReader{failIonMode: -1}
	task := NewTask(t.TempDir(), nil, Options{Open: openFake(r)})

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, StatusFinished, task.Status())
	assert.Equal(t, 0, task.File().ScanCount())

	err := task.Run(context.Background())
	assert.True(t, errors.Is(err, core.ErrInternalInvariant))
	assert.Equal(t, StatusFinished, task.Status())
}

func TestImportAllIndependentFiles(t *testing.T) {
	good := t.TempDir()
	bad := t.TempDir()
	missing := filepath.Join(t.TempDir(), "missing.raw")

	readers := map[string]*fakeReader{
		good: {failIonMode: -1, functions: []fakeFunction{{ftype: masslynx.FunctionMS, rts: []float32{0.1, 0.2}}}},
		bad:  {failIonMode: -1, failReadAt: 1, functions: []fakeFunction{{ftype: masslynx.FunctionMS, rts: []float32{0.1}}}},
	}
	opts := Options{Open: func(path string) (masslynx.RawReader, error) {
		if err := masslynx.ValidatePath(path); err != nil {
			return nil, err
		}
		return readers[path], nil
	}}

	reg := &memoryRegistry{}
	var started atomic.Int32
	results := ImportAll(context.Background(), []string{good, bad, missing}, reg, 2, opts, func(*Task) {
		started.Add(1)
	})
	assert.Equal(t, int32(3), started.Load())

	require.Len(t, results, 3)
	assert.Equal(t, good, results[0].Path)
	assert.Equal(t, StatusFinished, results[0].Status)
	require.NotNil(t, results[0].File)
	assert.Equal(t, 2, results[0].File.ScanCount())

	assert.Equal(t, StatusError, results[1].Status)
	assert.True(t, errors.Is(results[1].Err, core.ErrSDK))

	assert.Equal(t, StatusError, results[2].Status)
	assert.True(t, errors.Is(results[2].Err, core.ErrInvalidPath))

	assert.Len(t, reg.files, 1)
}

func TestImportAllParallelWorkers(t *testing.T) {
	var paths []string
	readers := make(map[string]*fakeReader)
	for i := 0; i < 8; i++ {
		dir := t.TempDir()
		paths = append(paths, dir)

		// Odd files have a second function without drift scans
		functions := []fakeFunction{{ftype: masslynx.FunctionMS, mode: masslynx.IonModeESPos, rts: []float32{0.2, 0.1}, drift: 3}}
		if i%2 == 1 {
			functions = append(functions, fakeFunction{ftype: masslynx.FunctionMS2, mode: masslynx.IonModeESPos, rts: []float32{0.15}})
		}
		readers[dir] = &fakeReader{failIonMode: -1, functions: functions}
	}
	opts := Options{Open: func(path string) (masslynx.RawReader, error) {
		return readers[path], nil
	}}

	reg := &memoryRegistry{}
	results := ImportAll(context.Background(), paths, reg, 4, opts, nil)

	require.Len(t, results, len(paths))
	for i, r := range results {
		require.Equal(t, StatusFinished, r.Status, "file %d: %v", i, r.Err)
		assertDenseAndOrdered(t, r.File)
		if i%2 == 1 {
			assert.False(t, r.File.IsMobility(), "file %d", i)
			assert.Equal(t, 3, r.File.ScanCount(), "file %d", i)
		} else {
			assert.Equal(t, 2, r.File.FrameCount(), "file %d", i)
			assert.Equal(t, 6, r.File.ScanCount(), "file %d", i)
		}
	}
	assert.Len(t, reg.files, len(paths))
}
