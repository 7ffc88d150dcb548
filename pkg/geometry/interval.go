package geometry

import (
	"fmt"
	"math"
)

// Relation is the outcome of relating a cell to a query shape.
type Relation int

const (
	Disjoint Relation = iota
	Overlaps
	// Contains means the cell lies wholly inside the shape.
	Contains
)

func (r Relation) String() string {
	switch r {
	case Disjoint:
		return "disjoint"
	case Overlaps:
		return "overlaps"
	case Contains:
		return "contains"
	}
	return fmt.Sprintf("Relation(%d)", int(r))
}

// combine folds the relation of one more axis into r.
func (r Relation) combine(o Relation) Relation {
	if r == Disjoint || o == Disjoint {
		return Disjoint
	}
	if r == Contains && o == Contains {
		return Contains
	}
	return Overlaps
}

// Interval is an inclusive range of integer values on one axis.
type Interval struct {
	Min uint64
	Max uint64
}

func Closed(min, max uint64) Interval { return Interval{Min: min, Max: max} }

// Instant is the single value t.
func Instant(t uint64) Interval { return Interval{Min: t, Max: t} }

// From has no upper bound.
func From(min uint64) Interval { return Interval{Min: min, Max: math.MaxUint64} }

func (iv Interval) Open() bool { return iv.Max == math.MaxUint64 }

func (iv Interval) IsInstant() bool { return iv.Min == iv.Max }

func (iv Interval) Contains(v uint64) bool { return v >= iv.Min && v <= iv.Max }

// relate compares the half-open cell axis [lo, hi) with the interval.
func (iv Interval) relate(lo, hi uint64) Relation {
	last := hi - 1
	if last < iv.Min || lo > iv.Max {
		return Disjoint
	}
	if iv.Min <= lo && last <= iv.Max {
		return Contains
	}
	return Overlaps
}

// length is the number of values in the interval that are below bound.
func (iv Interval) length(bound uint64) float64 {
	if bound == 0 || iv.Min >= bound {
		return 0
	}
	max := iv.Max
	if max >= bound {
		max = bound - 1
	}
	return float64(max-iv.Min) + 1
}

func (iv Interval) String() string {
	if iv.Open() {
		return fmt.Sprintf("[%d, +inf)", iv.Min)
	}
	return fmt.Sprintf("[%d, %d]", iv.Min, iv.Max)
}
