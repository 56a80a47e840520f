package core

import (
	"fmt"
	"math"
	"strconv"
	"unicode"
)

// ElementMasses maps element symbols to monoisotopic masses of the most
// abundant isotope.
var ElementMasses = map[string]float64{
	"H":  1.0078250321,
	"C":  12.0000000000,
	"N":  14.0030740052,
	"O":  15.9949146221,
	"S":  31.9720706900,
	"P":  30.9737615100,
	"F":  18.9984032200,
	"Cl": 34.9688527100,
	"Br": 78.9183376000,
	"I":  126.9044680000,
	"Na": 22.9897696700,
	"K":  38.9637069000,
	"Si": 27.9769265300,
	"Fe": 55.9349421000,
}

// ElectronMass is subtracted once per positive charge.
const ElectronMass = 0.00054857990946

// Formula is a parsed ion formula.
type Formula struct {
	Elements map[string]int
	Charge   int
}

// ParseFormula parses formulas like "C6H12O6", "C6H13O6+" or "C2H3O2-".
// A trailing charge may be written as "+", "-", "2+" or "2-".
func ParseFormula(s string) (*Formula, error) {
	f := &Formula{Elements: make(map[string]int)}
	runes := []rune(s)
	i := 0

	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsUpper(r):
			sym := string(r)
			i++
			if i < len(runes) && unicode.IsLower(runes[i]) {
				sym += string(runes[i])
				i++
			}
			if _, ok := ElementMasses[sym]; !ok {
				return nil, fmt.Errorf("unknown element '%s' in formula '%s'", sym, s)
			}
			start := i
			for i < len(runes) && unicode.IsDigit(runes[i]) {
				i++
			}
			count := 1
			if i > start {
				n, err := strconv.Atoi(string(runes[start:i]))
				if err != nil {
					return nil, fmt.Errorf("invalid count in formula '%s': %w", s, err)
				}
				count = n
			}
			f.Elements[sym] += count

		case unicode.IsDigit(r) || r == '+' || r == '-':
			charge, err := parseCharge(string(runes[i:]))
			if err != nil {
				return nil, fmt.Errorf("invalid charge in formula '%s': %w", s, err)
			}
			f.Charge = charge
			i = len(runes)

		case unicode.IsSpace(r) || r == '[' || r == ']':
			i++

		default:
			return nil, fmt.Errorf("unexpected character %q in formula '%s'", r, s)
		}
	}

	if len(f.Elements) == 0 {
		return nil, fmt.Errorf("formula '%s' has no elements", s)
	}
	return f, nil
}

func parseCharge(s string) (int, error) {
	sign := s[len(s)-1]
	if sign != '+' && sign != '-' {
		return 0, fmt.Errorf("charge '%s' must end with + or -", s)
	}
	n := 1
	if len(s) > 1 {
		v, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, err
		}
		n = v
	}
	if sign == '-' {
		n = -n
	}
	return n, nil
}

// MonoisotopicMass returns the neutral monoisotopic mass of the elements.
func (f *Formula) MonoisotopicMass() float64 {
	mass := 0.0
	for sym, n := range f.Elements {
		mass += float64(n) * ElementMasses[sym]
	}
	return mass
}

// MZ returns the m/z of the ion. Uncharged formulas report their neutral mass.
func (f *Formula) MZ() float64 {
	mass := f.MonoisotopicMass()
	if f.Charge == 0 {
		return mass
	}
	mass -= float64(f.Charge) * ElectronMass
	return mass / math.Abs(float64(f.Charge))
}

// IonMZ parses an ion formula and returns its m/z.
func IonMZ(formula string) (float64, error) {
	f, err := ParseFormula(formula)
	if err != nil {
		return 0, err
	}
	return f.MZ(), nil
}

// RoundFloat rounds a float to n decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
