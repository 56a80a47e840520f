package mobilogram

import "github.com/ChrisMcGann/RawKey/pkg/core"

// MobilityFunc converts a drift index into a mobility value.
type MobilityFunc func(driftIndex uint16) float64

// DriftIndexMobility uses the drift bin itself as the mobility value.
func DriftIndexMobility(driftIndex uint16) float64 { return float64(driftIndex) }

// FromFrame builds a finalized mobilogram for the m/z window across the
// drift scans of frame. Each drift scan contributes its most intense point
// inside the window; scans without such a point are skipped.
func FromFrame(frame *core.Frame, window core.Range, mobilityOf MobilityFunc, mt core.MobilityType) *Mobilogram {
	if mobilityOf == nil {
		mobilityOf = DriftIndexMobility
	}

	m := New(mt)
	for _, s := range frame.Scans {
		d, ok := s.DriftIndex()
		if !ok {
			continue
		}

		best := -1
		mz := s.MZValues()
		intensity := s.IntensityValues()
		for i := range mz {
			if mz[i] < window.Min {
				continue
			}
			if mz[i] > window.Max {
				break
			}
			if best < 0 || intensity[i] > intensity[best] {
				best = i
			}
		}
		if best < 0 {
			continue
		}

		m.AddDataPoint(MobilityDataPoint{
			ScanNum:   s.ScanNumber(),
			MZ:        mz[best],
			Mobility:  mobilityOf(d),
			Intensity: intensity[best],
		})
	}

	m.Finalize()
	return m
}
