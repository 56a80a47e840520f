package core

import (
	"fmt"
	"sort"
)

// ScanSource reads the data arrays of a scan from the vendor acquisition
// that produced it.
type ScanSource interface {
	ReadScan(function, scan int) (mz, intensity []float64, err error)
}

// DriftScanSource is implemented by sources that can read the drift
// sub-scans of an ion-mobility frame.
type DriftScanSource interface {
	ReadDriftScan(function, scan, drift int) (mz, intensity []float64, err error)
}

// Deferred is a scan whose data arrays have not been read yet. Both
// IntermediateScan and IntermediateFrame implement it.
type Deferred interface {
	// Base returns the shared metadata used for ordering.
	Base() *IntermediateScan
	// DriftScanCount is 0 for plain scans.
	DriftScanCount() uint16
	// Materialize reads the arrays and returns the resulting scans, numbered
	// consecutively from first. It may only be called once.
	Materialize(first uint32) ([]*Scan, error)
}

// IntermediateScan carries scan metadata and a reference to its source until
// the data arrays are materialised.
type IntermediateScan struct {
	header       ScanHeader
	source       ScanSource
	materialized bool
}

// NewIntermediateScan creates a deferred scan. The header's ScanNumber and
// DriftIndex are assigned at materialisation.
func NewIntermediateScan(source ScanSource, header ScanHeader) *IntermediateScan {
	header.ScanNumber = 0
	header.DriftIndex = NoDriftIndex
	return &IntermediateScan{header: header, source: source}
}

func (s *IntermediateScan) Base() *IntermediateScan { return s }
func (s *IntermediateScan) DriftScanCount() uint16  { return 0 }

// Header returns a copy of the pending metadata.
func (s *IntermediateScan) Header() ScanHeader { return s.header }

func (s *IntermediateScan) FunctionIndex() uint16  { return s.header.FunctionIndex }
func (s *IntermediateScan) ScanIndex() uint32      { return s.header.ScanIndex }
func (s *IntermediateScan) RetentionTime() float32 { return s.header.RetentionTime }

// Materialized reports whether the scan has already been read.
func (s *IntermediateScan) Materialized() bool { return s.materialized }

func (s *IntermediateScan) claim() error {
	if s.materialized {
		return fmt.Errorf("%w: function %d scan %d already materialised",
			ErrInternalInvariant, s.header.FunctionIndex, s.header.ScanIndex)
	}
	s.materialized = true
	return nil
}

// Materialize reads the scan arrays and returns a single Scan numbered first.
func (s *IntermediateScan) Materialize(first uint32) ([]*Scan, error) {
	if err := s.claim(); err != nil {
		return nil, err
	}

	mz, intensity, err := s.source.ReadScan(int(s.header.FunctionIndex), int(s.header.ScanIndex))
	if err != nil {
		return nil, err
	}

	header := s.header
	header.ScanNumber = first
	scan, err := newSortedScan(header, mz, intensity)
	if err != nil {
		return nil, err
	}
	return []*Scan{scan}, nil
}

// IntermediateFrame is a deferred ion-mobility frame: one retention time
// point spanning driftScanCount drift sub-scans.
type IntermediateFrame struct {
	IntermediateScan
	driftScanCount uint16
}

// NewIntermediateFrame creates a deferred frame.
func NewIntermediateFrame(source ScanSource, header ScanHeader, driftScanCount uint16) *IntermediateFrame {
	return &IntermediateFrame{
		IntermediateScan: *NewIntermediateScan(source, header),
		driftScanCount:   driftScanCount,
	}
}

func (f *IntermediateFrame) DriftScanCount() uint16 { return f.driftScanCount }

// Materialize reads every drift sub-scan in drift order. All scans share the
// frame's retention time and receive the numbers first..first+count-1.
func (f *IntermediateFrame) Materialize(first uint32) ([]*Scan, error) {
	if err := f.claim(); err != nil {
		return nil, err
	}

	drifts, ok := f.source.(DriftScanSource)
	if !ok {
		return nil, fmt.Errorf("%w: source cannot read drift scans of function %d",
			ErrSDK, f.header.FunctionIndex)
	}

	scans := make([]*Scan, 0, f.driftScanCount)
	for d := 0; d < int(f.driftScanCount); d++ {
		mz, intensity, err := drifts.ReadDriftScan(int(f.header.FunctionIndex), int(f.header.ScanIndex), d)
		if err != nil {
			return nil, err
		}

		header := f.header
		header.ScanNumber = first + uint32(d)
		header.DriftIndex = d
		scan, err := newSortedScan(header, mz, intensity)
		if err != nil {
			return nil, err
		}
		scans = append(scans, scan)
	}
	return scans, nil
}

// newSortedScan orders the arrays by m/z when the vendor did not.
func newSortedScan(header ScanHeader, mz, intensity []float64) (*Scan, error) {
	if len(mz) == len(intensity) && !sort.Float64sAreSorted(mz) {
		SortDataPoints(mz, intensity)
	}
	return NewScan(header, mz, intensity)
}

// SortDataPoints sorts parallel m/z and intensity arrays by m/z in place.
func SortDataPoints(mz, intensity []float64) {
	sort.Stable(dataPointSorter{mz: mz, intensity: intensity})
}

type dataPointSorter struct {
	mz, intensity []float64
}

func (d dataPointSorter) Len() int           { return len(d.mz) }
func (d dataPointSorter) Less(i, j int) bool { return d.mz[i] < d.mz[j] }
func (d dataPointSorter) Swap(i, j int) {
	d.mz[i], d.mz[j] = d.mz[j], d.mz[i]
	d.intensity[i], d.intensity[j] = d.intensity[j], d.intensity[i]
}
