package core

import (
	"errors"
	"math"
	"testing"
)

func TestNewScanValidation(t *testing.T) {
	header := ScanHeader{
		ScanNumber:    3,
		MSLevel:       1,
		Polarity:      PolarityPositive,
		RetentionTime: 1.5,
		MZRange:       NewRange(50, 1000),
		HasMZRange:    true,
		DriftIndex:    NoDriftIndex,
	}

	tests := []struct {
		name      string
		mz        []float64
		intensity []float64
		wantErr   bool
	}{
		{
			name:      "valid scan",
			mz:        []float64{100.0, 200.0, 200.0},
			intensity: []float64{1000.0, 0, 2000.0},
			wantErr:   false,
		},
		{
			name:      "empty scan",
			mz:        []float64{},
			intensity: []float64{},
			wantErr:   false,
		},
		{
			name:      "length mismatch",
			mz:        []float64{100.0, 200.0},
			intensity: []float64{1000.0},
			wantErr:   true,
		},
		{
			name:      "unsorted m/z",
			mz:        []float64{200.0, 100.0},
			intensity: []float64{2000.0, 1000.0},
			wantErr:   true,
		},
		{
			name:      "negative intensity",
			mz:        []float64{100.0},
			intensity: []float64{-1},
			wantErr:   true,
		},
		{
			name:      "NaN m/z",
			mz:        []float64{math.NaN()},
			intensity: []float64{1000.0},
			wantErr:   true,
		},
		{
			name:      "outside acquisition range",
			mz:        []float64{100.0, 1000.5},
			intensity: []float64{1.0, 1.0},
			wantErr:   true,
		},
		{
			name:      "range bounds are closed",
			mz:        []float64{50.0, 1000.0},
			intensity: []float64{1.0, 1.0},
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScan(header, tt.mz, tt.intensity)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewScan() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInternalInvariant) {
				t.Errorf("Expected error to match ErrInternalInvariant, got %v", err)
			}
		})
	}
}

func TestScanSummaries(t *testing.T) {
	mz := []float64{100.0, 150.0, 200.0}
	intensity := []float64{10.0, 30.0, 30.0}
	scan, err := NewScan(ScanHeader{DriftIndex: NoDriftIndex}, mz, intensity)
	if err != nil {
		t.Fatalf("NewScan() error = %v", err)
	}

	if scan.TotalIonCurrent() != 70.0 {
		t.Errorf("Expected TIC 70, got %.1f", scan.TotalIonCurrent())
	}

	bp, ok := scan.BasePeak()
	if !ok || bp.MZ != 150.0 {
		t.Errorf("Expected base peak at 150.0, got %.1f (ok=%t)", bp.MZ, ok)
	}

	if _, ok := scan.DriftIndex(); ok {
		t.Error("Expected no drift index")
	}

	// Arrays are views onto the constructor's slices
	if &scan.MZValues()[0] != &mz[0] {
		t.Error("Expected MZValues to share the backing array")
	}
}

func TestSortDataPoints(t *testing.T) {
	mz := []float64{300.0, 100.0, 200.0}
	intensity := []float64{3.0, 1.0, 2.0}

	SortDataPoints(mz, intensity)

	expected := []float64{100.0, 200.0, 300.0}
	for i := range mz {
		if mz[i] != expected[i] {
			t.Errorf("Point %d: expected m/z %.1f, got %.1f", i, expected[i], mz[i])
		}
		if intensity[i] != expected[i]/100.0 {
			t.Errorf("Point %d: intensity did not follow its m/z, got %.1f", i, intensity[i])
		}
	}
}

func TestScanName(t *testing.T) {
	scan, err := NewScan(ScanHeader{ScanNumber: 7, FunctionIndex: 1, RetentionTime: 0.25, DriftIndex: 2}, nil, nil)
	if err != nil {
		t.Fatalf("NewScan() error = %v", err)
	}

	expected := "#7 f1 @0.250 d2"
	if scan.Name() != expected {
		t.Errorf("Expected name %s, got %s", expected, scan.Name())
	}
}

func TestPolarityRoundTrip(t *testing.T) {
	for _, p := range []Polarity{PolarityUnknown, PolarityPositive, PolarityNegative} {
		if got := ParsePolarity(p.String()); got != p {
			t.Errorf("ParsePolarity(%q) = %v, want %v", p.String(), got, p)
		}
	}
}
