package core

import "fmt"

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64
	Max float64
}

// NewRange returns the closed interval spanning a and b in either order.
func NewRange(a, b float64) Range {
	if a > b {
		a, b = b, a
	}
	return Range{Min: a, Max: b}
}

// Singleton returns the degenerate interval [v, v].
func Singleton(v float64) Range {
	return Range{Min: v, Max: v}
}

// Contains reports whether v lies within the closed interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Extend returns the smallest range containing r and v.
func (r Range) Extend(v float64) Range {
	if v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
	return r
}

// Span returns the smallest range containing both r and o.
func (r Range) Span(o Range) Range {
	return r.Extend(o.Min).Extend(o.Max)
}

// Length returns Max - Min.
func (r Range) Length() float64 {
	return r.Max - r.Min
}

func (r Range) String() string {
	return fmt.Sprintf("[%.4f..%.4f]", r.Min, r.Max)
}
