package ztree

import (
	"math"

	"github.com/pkg/errors"

	"zrange/pkg/geometry"
)

// Rounding picks how a fractional auto depth becomes a level.
type Rounding int

const (
	Ceil Rounding = iota
	Floor
	Nearest
)

func ParseRounding(s string) (Rounding, error) {
	switch s {
	case "", "ceil":
		return Ceil, nil
	case "floor":
		return Floor, nil
	case "nearest", "round":
		return Nearest, nil
	}
	return Ceil, errors.Errorf("unknown rounding %q", s)
}

func (r Rounding) apply(v float64) float64 {
	switch r {
	case Floor:
		return math.Floor(v)
	case Nearest:
		return math.Round(v)
	}
	return math.Ceil(v)
}

// DepthPolicy tunes the auto depth. Continuous queries use
// round(log_ContinuousBase(keyspace volume / shape volume)) over every axis,
// instant queries use round(log_DiscreteBase(keyspace area / shape area))
// over the spatial axes only. A zero base means the tree fanout for
// continuous queries and 2^spatialDims for discrete ones.
type DepthPolicy struct {
	ContinuousBase  float64
	ContinuousRound Rounding
	DiscreteBase    float64
	DiscreteRound   Rounding
}

// DefaultDepthPolicy rounds continuous depths up and discrete depths down.
func DefaultDepthPolicy() DepthPolicy {
	return DepthPolicy{ContinuousRound: Ceil, DiscreteRound: Floor}
}

// TargetDepth returns the level at which overlapping cells stop being
// refined. An explicit depth is used as given; the auto depth has the
// coarsening subtracted and is clamped to [0, bits].
func (t *Tree) TargetDepth(s geometry.Shape, opts QueryOptions) (uint, error) {
	bits := t.domain.bits
	if opts.TargetDepth != nil {
		if *opts.TargetDepth > bits {
			return 0, errors.Wrapf(ErrInvalidDepth, "depth %d > %d bits", *opts.TargetDepth, bits)
		}
		return *opts.TargetDepth, nil
	}

	axes := t.domain.Dims()
	base, round := t.policy.ContinuousBase, t.policy.ContinuousRound
	if !opts.Continuous {
		axes = t.domain.layout.SpatialDims()
		base, round = t.policy.DiscreteBase, t.policy.DiscreteRound
	}
	if base <= 1 {
		base = float64(int(1) << axes)
	}

	// log(2^(bits*axes) / v) / log(base), kept in log space since the key
	// space volume overflows a float64 mantissa.
	v := geometry.Measure(s, t.domain.bounds, axes)
	ratio := float64(bits)*float64(axes)*math.Ln2 - math.Log(v)
	levels := math.Round(ratio/math.Log(base)*1e9) / 1e9
	depth := round.apply(levels) - float64(opts.Coarsening)

	switch {
	case depth < 0 || math.IsNaN(depth):
		return 0, nil
	case depth > float64(bits):
		return bits, nil
	}
	return uint(depth), nil
}
