package core

import (
	"math"
	"testing"
)

func TestParseFormula(t *testing.T) {
	tests := []struct {
		name       string
		formula    string
		wantCharge int
		wantC      int
		wantErr    bool
	}{
		{name: "neutral glucose", formula: "C6H12O6", wantCharge: 0, wantC: 6},
		{name: "protonated", formula: "C6H13O6+", wantCharge: 1, wantC: 6},
		{name: "nitrogen containing", formula: "C10H18N2O2+", wantCharge: 1, wantC: 10},
		{name: "explicit double charge", formula: "C10H18N2O2 2+", wantCharge: 2, wantC: 10},
		{name: "deprotonated", formula: "C2H3O2-", wantCharge: -1, wantC: 2},
		{name: "bracketed", formula: "[C6H13O6]+", wantCharge: 1, wantC: 6},
		{name: "two letter element", formula: "NaCl", wantCharge: 0, wantC: 0},
		{name: "unknown element", formula: "Xx2", wantErr: true},
		{name: "empty", formula: "", wantErr: true},
		{name: "bad character", formula: "C6H12O6*", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFormula(tt.formula)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormula() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if f.Charge != tt.wantCharge {
				t.Errorf("Expected charge %d, got %d", tt.wantCharge, f.Charge)
			}
			if f.Elements["C"] != tt.wantC {
				t.Errorf("Expected %d carbons, got %d", tt.wantC, f.Elements["C"])
			}
		})
	}
}

func TestIonMZ(t *testing.T) {
	tests := []struct {
		name      string
		formula   string
		wantMZ    float64
		tolerance float64
	}{
		{name: "glucose neutral", formula: "C6H12O6", wantMZ: 180.0634, tolerance: 0.001},
		{name: "glucose protonated", formula: "C6H13O6+", wantMZ: 181.0707, tolerance: 0.001},
		{name: "acetate", formula: "C2H3O2-", wantMZ: 59.0139, tolerance: 0.001},
		{name: "doubly charged", formula: "C6H14O6 2+", wantMZ: 91.0390, tolerance: 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IonMZ(tt.formula)
			if err != nil {
				t.Fatalf("IonMZ() error = %v", err)
			}
			if math.Abs(got-tt.wantMZ) > tt.tolerance {
				t.Errorf("IonMZ() = %.4f, want %.4f (within %.4f)", got, tt.wantMZ, tt.tolerance)
			}
		})
	}
}

func TestRoundFloat(t *testing.T) {
	tests := []struct {
		val       float64
		precision int
		want      float64
	}{
		{123.456789, 2, 123.46},
		{123.456789, 4, 123.4568},
		{123.456789, 0, 123.0},
	}

	for _, tt := range tests {
		got := RoundFloat(tt.val, tt.precision)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("RoundFloat(%.6f, %d) = %.6f, want %.6f", tt.val, tt.precision, got, tt.want)
		}
	}
}
