// Package mobilogram provides m/z-constrained intensity traces over the
// ion-mobility dimension.
package mobilogram

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ChrisMcGann/RawKey/pkg/core"
)

// MobilityDataPoint is one point of a mobilogram.
type MobilityDataPoint struct {
	ScanNum   uint32
	MZ        float64
	Mobility  float64
	Intensity float64
}

// Mobilogram keeps at most one data point per scan number, ordered by scan
// number. Medians are valid only after Finalize.
type Mobilogram struct {
	mobilityType   core.MobilityType
	points         []MobilityDataPoint // sorted by ScanNum
	medianMZ       float64
	medianMobility float64
	mzRange        core.Range
	mobilityRange  core.Range
	finalized      bool
}

// New creates an empty mobilogram.
func New(mt core.MobilityType) *Mobilogram {
	return &Mobilogram{mobilityType: mt, medianMZ: -1, medianMobility: -1}
}

// AddDataPoint inserts p by scan number, replacing any point of the same
// scan, and extends the m/z and mobility ranges.
func (m *Mobilogram) AddDataPoint(p MobilityDataPoint) {
	i := sort.Search(len(m.points), func(i int) bool { return m.points[i].ScanNum >= p.ScanNum })
	switch {
	case i < len(m.points) && m.points[i].ScanNum == p.ScanNum:
		m.points[i] = p
	default:
		m.points = append(m.points, MobilityDataPoint{})
		copy(m.points[i+1:], m.points[i:])
		m.points[i] = p
	}

	if len(m.points) == 1 {
		m.mzRange = core.Singleton(p.MZ)
		m.mobilityRange = core.Singleton(p.Mobility)
	} else {
		m.mzRange = m.mzRange.Extend(p.MZ)
		m.mobilityRange = m.mobilityRange.Extend(p.Mobility)
	}
	m.finalized = false
}

// Finalize computes the median m/z and median mobility. For even counts the
// lower of the two central values is used. Calling it again without new
// points yields the same result.
func (m *Mobilogram) Finalize() {
	if len(m.points) == 0 {
		m.medianMZ, m.medianMobility = -1, -1
		m.finalized = true
		return
	}

	mz := make([]float64, len(m.points))
	mobility := make([]float64, len(m.points))
	for i, p := range m.points {
		mz[i] = p.MZ
		mobility[i] = p.Mobility
	}

	m.medianMZ = lowerMedian(mz)
	m.medianMobility = lowerMedian(mobility)
	m.finalized = true
}

// lowerMedian sorts values in place. The empirical quantile at 0.5 is the
// lower central value for even counts.
func lowerMedian(values []float64) float64 {
	sort.Float64s(values)
	return stat.Quantile(0.5, stat.Empirical, values, nil)
}

// Finalized reports whether the medians reflect all inserted points.
func (m *Mobilogram) Finalized() bool { return m.finalized }

// MobilityType returns the separation technique of the source data.
func (m *Mobilogram) MobilityType() core.MobilityType { return m.mobilityType }

// MZ returns the median m/z. Make sure Finalize has been called.
func (m *Mobilogram) MZ() float64 { return m.medianMZ }

// Mobility returns the median mobility. Make sure Finalize has been called.
func (m *Mobilogram) Mobility() float64 { return m.medianMobility }

// MZRange returns the span of inserted m/z values; false if empty.
func (m *Mobilogram) MZRange() (core.Range, bool) {
	return m.mzRange, len(m.points) > 0
}

// MobilityRange returns the span of inserted mobilities; false if empty.
func (m *Mobilogram) MobilityRange() (core.Range, bool) {
	return m.mobilityRange, len(m.points) > 0
}

// DataPoints returns a copy of the points in scan number order.
func (m *Mobilogram) DataPoints() []MobilityDataPoint {
	out := make([]MobilityDataPoint, len(m.points))
	copy(out, m.points)
	return out
}

// ScanNumbers returns the scan numbers in ascending order.
func (m *Mobilogram) ScanNumbers() []uint32 {
	out := make([]uint32, len(m.points))
	for i, p := range m.points {
		out[i] = p.ScanNum
	}
	return out
}

// ContainsScan reports whether a point for scanNum exists.
func (m *Mobilogram) ContainsScan(scanNum uint32) bool {
	i := sort.Search(len(m.points), func(i int) bool { return m.points[i].ScanNum >= scanNum })
	return i < len(m.points) && m.points[i].ScanNum == scanNum
}

// ValueCount returns the number of points.
func (m *Mobilogram) ValueCount() int { return len(m.points) }

// DomainValue returns the mobility of the i-th point in scan number order.
func (m *Mobilogram) DomainValue(i int) float64 { return m.points[i].Mobility }

// RangeValue returns the intensity of the i-th point in scan number order.
func (m *Mobilogram) RangeValue(i int) float64 { return m.points[i].Intensity }

func (m *Mobilogram) String() string {
	if len(m.points) == 0 {
		return "mobilogram (empty)"
	}
	return fmt.Sprintf("mobilogram m/z %s, %d points", m.mzRange, len(m.points))
}
