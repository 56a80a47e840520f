package waters

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"github.com/ChrisMcGann/RawKey/internal/log"
	"github.com/ChrisMcGann/RawKey/pkg/core"
	"github.com/ChrisMcGann/RawKey/pkg/masslynx"
)

// Progress split between reading metadata and materialising scans.
const metadataShare = 0.5

// Import runs a task for path to completion and returns the imported file.
func Import(ctx context.Context, path string, registry Registry, opts Options) (*core.RawDataFile, error) {
	t := NewTask(path, registry, opts)
	if err := t.Run(ctx); err != nil {
		return nil, err
	}
	return t.File(), nil
}

// load reads the acquisition into a new, unsealed raw data file. Nothing is
// returned on failure; partial files are dropped.
func (t *Task) load(ctx context.Context) (*core.RawDataFile, error) {
	reader, err := t.opts.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", t.path, err)
	}
	defer reader.Close()

	name := filepath.Base(t.path)
	t.setDescription("Reading metadata from " + name)

	functionCount, err := reader.FunctionCount()
	if err != nil {
		return nil, err
	}
	if functionCount < 0 {
		return nil, fmt.Errorf("%w: negative function count %d", core.ErrInternalInvariant, functionCount)
	}

	driftCounts, mobility := probeMobility(reader, functionCount)
	source := scanSource{reader: reader}

	var pending []core.Deferred
	for function := 0; function < functionCount; function++ {
		if err := t.checkpoint(ctx); err != nil {
			return nil, err
		}

		scans, err := t.readFunction(reader, source, function, mobility, driftCounts)
		if err != nil {
			return nil, err
		}
		pending = append(pending, scans...)
		t.setFinishedPercentage(metadataShare * float64(function+1) / float64(functionCount))
	}

	core.SortIntermediate(pending)

	file := core.NewRawDataFile(name, t.path)
	if mobility {
		if err := file.SetMobilityType(core.MobilityTravelingWave); err != nil {
			return nil, err
		}
	}

	t.setDescription("Reading scans from " + name)
	if err := t.materialize(ctx, file, pending); err != nil {
		return nil, err
	}
	return file, nil
}

// readFunction builds the deferred scans of one function. Every metadata
// read must succeed; nothing is substituted for missing values.
func (t *Task) readFunction(reader masslynx.RawReader, source scanSource, function int,
	mobility bool, driftCounts []uint16) ([]core.Deferred, error) {

	scanCount, err := reader.ScansInFunction(function)
	if err != nil {
		return nil, err
	}
	if scanCount < 0 {
		return nil, fmt.Errorf("%w: function %d has negative scan count %d",
			core.ErrInternalInvariant, function, scanCount)
	}
	if function > math.MaxUint16 {
		return nil, fmt.Errorf("%w: function index %d exceeds %d", core.ErrInternalInvariant, function, math.MaxUint16)
	}

	functionType, err := reader.FunctionType(function)
	if err != nil {
		return nil, err
	}
	massRange, err := reader.AcquisitionMassRange(function)
	if err != nil {
		return nil, err
	}
	ionMode, err := reader.IonMode(function)
	if err != nil {
		return nil, err
	}
	continuum, err := reader.IsContinuum(function)
	if err != nil {
		return nil, err
	}

	header := core.ScanHeader{
		FunctionIndex: uint16(function),
		MSLevel:       functionType.MSLevel(),
		Polarity:      ionMode.Polarity(),
		Continuum:     continuum,
		MZRange:       massRange.Range(),
		HasMZRange:    true,
	}
	log.Debugw("function metadata", "path", t.path, "function", function, "type", functionType,
		"scans", scanCount, "msLevel", header.MSLevel, "polarity", header.Polarity, "mzRange", header.MZRange)

	scans := make([]core.Deferred, 0, scanCount)
	for scan := 0; scan < scanCount; scan++ {
		rt, err := reader.RetentionTime(function, scan)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(float64(rt)) || math.IsInf(float64(rt), 0) {
			return nil, fmt.Errorf("%w: function %d scan %d has no valid retention time",
				core.ErrInternalInvariant, function, scan)
		}

		h := header
		h.ScanIndex = uint32(scan)
		h.RetentionTime = rt
		if mobility {
			scans = append(scans, core.NewIntermediateFrame(source, h, driftCounts[function]))
		} else {
			scans = append(scans, core.NewIntermediateScan(source, h))
		}
	}
	return scans, nil
}

// materialize reads the sorted deferred scans and appends them to file with
// dense scan numbers.
func (t *Task) materialize(ctx context.Context, file *core.RawDataFile, pending []core.Deferred) error {
	var next uint32
	sinceCheck := 0

	for i, d := range pending {
		if sinceCheck >= t.opts.CancelCheckInterval {
			if err := t.checkpoint(ctx); err != nil {
				return err
			}
			sinceCheck = 0
		}

		scans, err := d.Materialize(next)
		if err != nil {
			return err
		}

		if d.DriftScanCount() > 0 {
			err = file.AddFrame(scans)
		} else {
			for _, s := range scans {
				if err = file.AddScan(s); err != nil {
					break
				}
			}
		}
		if err != nil {
			return err
		}

		next += uint32(len(scans))
		sinceCheck += len(scans)
		t.setFinishedPercentage(metadataShare + (1-metadataShare)*float64(i+1)/float64(len(pending)))
	}

	return t.checkpoint(ctx)
}

// probeMobility asks every function for its drift scan count. The file is
// ion-mobility only if all functions answer; otherwise no frames are built.
func probeMobility(reader masslynx.RawReader, functionCount int) ([]uint16, bool) {
	if functionCount == 0 {
		return nil, false
	}

	counts := make([]uint16, functionCount)
	for function := 0; function < functionCount; function++ {
		n, ok := reader.DriftScanCount(function)
		if !ok || n == 0 {
			log.Warnw("no drift dimension, importing without ion mobility", "function", function)
			return nil, false
		}
		counts[function] = n
	}
	return counts, true
}

// scanSource adapts the SDK reader to the core materialisation interfaces.
type scanSource struct {
	reader masslynx.RawReader
}

func (s scanSource) ReadScan(function, scan int) ([]float64, []float64, error) {
	mz, intensity, err := s.reader.ReadScan(function, scan)
	if err != nil {
		return nil, nil, err
	}
	return widen(mz), widen(intensity), nil
}

func (s scanSource) ReadDriftScan(function, scan, drift int) ([]float64, []float64, error) {
	dr, ok := s.reader.(masslynx.DriftScanReader)
	if !ok {
		return nil, nil, masslynx.NewError("ReadDriftScan", function, scan, "reader does not support drift scans")
	}
	mz, intensity, err := dr.ReadDriftScan(function, scan, drift)
	if err != nil {
		return nil, nil, err
	}
	return widen(mz), widen(intensity), nil
}

func widen(values []float32) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
