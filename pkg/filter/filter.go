// Package filter provides peak filtering for scans before persistence
package filter

import (
	"sort"

	"github.com/ChrisMcGann/RawKey/pkg/core"
)

// Config holds filtering configuration
type Config struct {
	TopN                int     // Keep only top N most intense peaks (0 = no limit)
	IntensityCutoff     float64 // Keep only peaks at or above this % of base peak (0 = no cutoff)
	RemoveZeroIntensity bool    // Drop peaks with zero intensity
}

// Enabled reports whether any filter is configured
func (c *Config) Enabled() bool {
	return c != nil && (c.TopN > 0 || c.IntensityCutoff > 0 || c.RemoveZeroIntensity)
}

// Apply applies all configured filters to a scan and returns the filtered scan.
// The header is kept unchanged; the input scan is never modified.
func (c *Config) Apply(scan *core.Scan) (*core.Scan, error) {
	if !c.Enabled() {
		return scan, nil
	}

	peaks := make([]core.DataPoint, scan.NumberOfDataPoints())
	for i := range peaks {
		peaks[i] = scan.DataPoint(i)
	}

	if c.RemoveZeroIntensity {
		peaks = removeZeroIntensity(peaks)
	}

	// Apply intensity filters
	if c.IntensityCutoff > 0 {
		peaks = filterByIntensity(peaks, c.IntensityCutoff)
	}

	// Apply top-N filter
	if c.TopN > 0 {
		peaks = filterTopN(peaks, c.TopN)
	}

	mz := make([]float64, len(peaks))
	intensity := make([]float64, len(peaks))
	for i, p := range peaks {
		mz[i] = p.MZ
		intensity[i] = p.Intensity
	}
	return core.NewScan(scan.Header(), mz, intensity)
}

// removeZeroIntensity removes peaks with zero or negative intensity
func removeZeroIntensity(peaks []core.DataPoint) []core.DataPoint {
	filtered := peaks[:0]
	for _, peak := range peaks {
		if peak.Intensity > 0 {
			filtered = append(filtered, peak)
		}
	}
	return filtered
}

// filterByIntensity removes peaks below the intensity cutoff percentage
func filterByIntensity(peaks []core.DataPoint, cutoff float64) []core.DataPoint {
	if len(peaks) == 0 {
		return peaks
	}

	// Find maximum intensity
	maxIntensity := 0.0
	for _, peak := range peaks {
		if peak.Intensity > maxIntensity {
			maxIntensity = peak.Intensity
		}
	}

	threshold := (cutoff / 100.0) * maxIntensity

	filtered := peaks[:0]
	for _, peak := range peaks {
		if peak.Intensity >= threshold {
			filtered = append(filtered, peak)
		}
	}
	return filtered
}

// filterTopN keeps only the N most intense peaks, returned in m/z order
func filterTopN(peaks []core.DataPoint, n int) []core.DataPoint {
	if len(peaks) <= n {
		return peaks
	}

	// Sort by intensity descending; ties keep m/z order
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Intensity > peaks[j].Intensity
	})

	peaks = peaks[:n]
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].MZ < peaks[j].MZ
	})
	return peaks
}
