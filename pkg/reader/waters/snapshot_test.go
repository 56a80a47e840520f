package waters

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/RawKey/pkg/core"
	"github.com/ChrisMcGann/RawKey/pkg/masslynx"
	"github.com/ChrisMcGann/RawKey/pkg/masslynx/snapshot"
)

func TestImportSnapshotWithDefaultDriver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ims.raw")
	acq := &snapshot.Acquisition{
		Functions: []snapshot.Function{{
			Type:       masslynx.FunctionMS,
			IonMode:    masslynx.IonModeESPos,
			MassStart:  50,
			MassEnd:    1000,
			DriftScans: 2,
			Scans: []snapshot.Scan{
				{RT: 0.2, Drift: []snapshot.Spectrum{
					{MZ: []float32{300, 200}, Intensity: []float32{1, 2}},
					{MZ: []float32{150}, Intensity: []float32{5}},
				}},
				{RT: 0.1, Drift: []snapshot.Spectrum{
					{MZ: []float32{400}, Intensity: []float32{7}},
					{MZ: []float32{500, 600}, Intensity: []float32{8, 9}},
				}},
			},
		}},
	}
	require.NoError(t, snapshot.Write(dir, acq))

	reg := &memoryRegistry{}
	f, err := Import(context.Background(), dir, reg, Options{})
	require.NoError(t, err)
	require.Len(t, reg.files, 1)
	assert.Same(t, f, reg.files[0])

	assert.Equal(t, "ims.raw", f.Name())
	assert.Equal(t, core.MobilityTravelingWave, f.MobilityType())
	require.Equal(t, 4, f.ScanCount())
	require.Equal(t, 2, f.FrameCount())
	assertDenseAndOrdered(t, f)

	wantRT := []float32{0.1, 0.1, 0.2, 0.2}
	wantMZ := [][]float64{{400}, {500, 600}, {200, 300}, {150}}
	for i := 0; i < f.ScanCount(); i++ {
		s := f.Scan(i)
		assert.Equal(t, wantRT[i], s.RetentionTime(), "scan %d", i)
		assert.Equal(t, wantMZ[i], s.MZValues(), "scan %d", i)
		d, ok := s.DriftIndex()
		require.True(t, ok)
		assert.Equal(t, uint16(i%2), d)
		assert.Equal(t, core.PolarityPositive, s.Polarity())
	}
	assert.Equal(t, []float64{2, 1}, f.Scan(2).IntensityValues(), "intensities follow their sorted m/z")
}
