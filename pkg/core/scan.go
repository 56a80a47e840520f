// Package core provides the scan model, raw data file handle and validation
// logic shared by the RawKey importers, stores and utilities.
package core

import (
	"fmt"
	"math"
	"strings"
)

// Polarity is the ion polarity of a scan.
type Polarity int8

const (
	PolarityUnknown Polarity = iota
	PolarityPositive
	PolarityNegative
)

func (p Polarity) String() string {
	switch p {
	case PolarityPositive:
		return "+"
	case PolarityNegative:
		return "-"
	default:
		return "?"
	}
}

// ParsePolarity is the inverse of Polarity.String.
func ParsePolarity(s string) Polarity {
	switch s {
	case "+":
		return PolarityPositive
	case "-":
		return PolarityNegative
	default:
		return PolarityUnknown
	}
}

// MobilityType identifies the ion-mobility separation technique.
type MobilityType int8

const (
	MobilityNone MobilityType = iota
	MobilityDriftTube
	MobilityTravelingWave
	MobilityTIMS
	MobilityFAIMS
)

func (m MobilityType) String() string {
	switch m {
	case MobilityDriftTube:
		return "drift tube"
	case MobilityTravelingWave:
		return "travelling wave"
	case MobilityTIMS:
		return "tims"
	case MobilityFAIMS:
		return "faims"
	default:
		return "none"
	}
}

// NoDriftIndex marks a scan that is not part of an ion-mobility frame.
const NoDriftIndex = -1

// ScanHeader holds the metadata of a scan.
type ScanHeader struct {
	ScanNumber    uint32   // Project-global, 0-based
	FunctionIndex uint16   // Acquisition function the scan came from
	ScanIndex     uint32   // Position of the scan within its function
	MSLevel       uint8    // 0 if unknown
	Polarity      Polarity // Ion polarity
	Continuum     bool     // Profile (true) or centroid (false)
	RetentionTime float32  // Minutes
	MZRange       Range    // Acquisition m/z range
	HasMZRange    bool
	DriftIndex    int // NoDriftIndex unless the scan belongs to a frame
}

// DataPoint is a single m/z, intensity pair.
type DataPoint struct {
	MZ        float64
	Intensity float64
}

// Scan is an immutable spectrum: a header plus parallel m/z and intensity
// arrays. The arrays returned by MZValues and IntensityValues are views and
// must not be modified.
type Scan struct {
	header    ScanHeader
	mz        []float64
	intensity []float64
	basePeak  int
	tic       float64
}

// NewScan validates the arrays against the header and builds a Scan. The
// slices are retained, not copied.
func NewScan(header ScanHeader, mz, intensity []float64) (*Scan, error) {
	var errs []string

	if len(mz) != len(intensity) {
		errs = append(errs, fmt.Sprintf("m/z count %d differs from intensity count %d", len(mz), len(intensity)))
	}
	if header.DriftIndex < NoDriftIndex || header.DriftIndex > math.MaxUint16 {
		errs = append(errs, fmt.Sprintf("drift index %d out of range", header.DriftIndex))
	}

	s := &Scan{header: header, mz: mz, intensity: intensity, basePeak: -1}
	if len(errs) == 0 {
		for i := range mz {
			if math.IsNaN(mz[i]) || math.IsInf(mz[i], 0) {
				errs = append(errs, fmt.Sprintf("point %d has invalid m/z", i))
				break
			}
			if i > 0 && mz[i] < mz[i-1] {
				errs = append(errs, fmt.Sprintf("m/z decreases at point %d", i))
				break
			}
			if header.HasMZRange && !header.MZRange.Contains(mz[i]) {
				errs = append(errs, fmt.Sprintf("point %d m/z %.4f outside %s", i, mz[i], header.MZRange))
				break
			}
			in := intensity[i]
			if math.IsNaN(in) || in < 0 {
				errs = append(errs, fmt.Sprintf("point %d intensity must be non-negative", i))
				break
			}
			s.tic += in
			if s.basePeak < 0 || in > intensity[s.basePeak] {
				s.basePeak = i
			}
		}
	}

	if len(errs) > 0 {
		return nil, &ValidationError{
			Field:   fmt.Sprintf("Scan %d", header.ScanNumber),
			Message: strings.Join(errs, "; "),
		}
	}

	return s, nil
}

// Header returns a copy of the scan metadata.
func (s *Scan) Header() ScanHeader { return s.header }

func (s *Scan) ScanNumber() uint32     { return s.header.ScanNumber }
func (s *Scan) FunctionIndex() uint16  { return s.header.FunctionIndex }
func (s *Scan) MSLevel() uint8         { return s.header.MSLevel }
func (s *Scan) Polarity() Polarity     { return s.header.Polarity }
func (s *Scan) IsContinuum() bool      { return s.header.Continuum }
func (s *Scan) RetentionTime() float32 { return s.header.RetentionTime }

// MZRange returns the acquisition m/z range, if the vendor reported one.
func (s *Scan) MZRange() (Range, bool) {
	return s.header.MZRange, s.header.HasMZRange
}

// DriftIndex returns the position of the scan within its frame.
func (s *Scan) DriftIndex() (uint16, bool) {
	if s.header.DriftIndex == NoDriftIndex {
		return 0, false
	}
	return uint16(s.header.DriftIndex), true
}

// MZValues returns the m/z array in non-decreasing order.
func (s *Scan) MZValues() []float64 { return s.mz }

// IntensityValues returns the intensity array, parallel to MZValues.
func (s *Scan) IntensityValues() []float64 { return s.intensity }

// NumberOfDataPoints returns the length of the data arrays.
func (s *Scan) NumberOfDataPoints() int { return len(s.mz) }

// DataPoint returns the i-th m/z, intensity pair.
func (s *Scan) DataPoint(i int) DataPoint {
	return DataPoint{MZ: s.mz[i], Intensity: s.intensity[i]}
}

// BasePeak returns the most intense data point. The first one wins on ties.
func (s *Scan) BasePeak() (DataPoint, bool) {
	if s.basePeak < 0 {
		return DataPoint{}, false
	}
	return s.DataPoint(s.basePeak), true
}

// TotalIonCurrent returns the sum of all intensities.
func (s *Scan) TotalIonCurrent() float64 { return s.tic }

// Name returns a short label in format "#number f<function> @<rt>".
func (s *Scan) Name() string {
	name := fmt.Sprintf("#%d f%d @%.3f", s.header.ScanNumber, s.header.FunctionIndex, s.header.RetentionTime)
	if d, ok := s.DriftIndex(); ok {
		name = fmt.Sprintf("%s d%d", name, d)
	}
	return name
}
