package geometry

import (
	"github.com/pkg/errors"
)

// Relate classifies cell c against shape s.
//
// Extra axes combine with the planar result by the usual rule: any disjoint
// axis makes the cell disjoint, and the cell is contained only when every
// axis is contained.
func Relate(c Cell, s Shape) (Relation, error) {
	if d := Dims(s); d != c.Dims {
		return Disjoint, errors.Wrapf(ErrShapeMismatch, "%T with %d axes against a %d-axis cell", s, d, c.Dims)
	}
	switch v := s.(type) {
	case Box:
		return relateBox(c, v), nil
	case Sphere:
		return relateSphere(c, v), nil
	case Polygon:
		return relatePolygon(c, v.Poly), nil
	case PolygonWithHeight:
		r := v.Height.relate(c.Lo[2], c.Hi(2))
		if r == Disjoint {
			return Disjoint, nil
		}
		return r.combine(relatePolygon(c, v.Poly)), nil
	case PolygonWithTime:
		r := v.Time.relate(c.Lo[2], c.Hi(2))
		if r == Disjoint {
			return Disjoint, nil
		}
		return r.combine(relatePolygon(c, v.Poly)), nil
	case PolygonWithHeightAndTime:
		r := v.Height.relate(c.Lo[2], c.Hi(2)).combine(v.Time.relate(c.Lo[3], c.Hi(3)))
		if r == Disjoint {
			return Disjoint, nil
		}
		return r.combine(relatePolygon(c, v.Poly)), nil
	}
	return Disjoint, errors.Wrapf(ErrShapeMismatch, "unsupported shape %T", s)
}

func relateBox(c Cell, b Box) Relation {
	r := Contains
	for d := 0; d < c.Dims; d++ {
		r = r.combine(Interval{Min: b.Min[d], Max: b.Max[d]}.relate(c.Lo[d], c.Hi(d)))
		if r == Disjoint {
			return Disjoint
		}
	}
	return r
}

// relateSphere uses the hull [lo, hi-1] of the integer points in the cell.
// The nearest point of the hull decides disjointness (Arvo) and the farthest
// corner decides containment.
func relateSphere(c Cell, s Sphere) Relation {
	var near, far float64
	for d := 0; d < c.Dims; d++ {
		lo := float64(c.Lo[d])
		hi := float64(c.Hi(d) - 1)
		x := s.Center[d]
		switch {
		case x < lo:
			near += (x - lo) * (x - lo)
		case x > hi:
			near += (x - hi) * (x - hi)
		}
		dl, dh := (x-lo)*(x-lo), (x-hi)*(x-hi)
		if dl > dh {
			far += dl
		} else {
			far += dh
		}
	}
	r2 := s.Radius * s.Radius
	if near > r2 {
		return Disjoint
	}
	if far <= r2 {
		return Contains
	}
	return Overlaps
}
