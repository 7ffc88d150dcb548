package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// relatePolygon relates the planar rectangle of a cell, the closed square
// [lo, lo+side] on x and y, to the polygon. Touching only along boundaries
// counts as disjoint.
//
// If no polygon edge passes through the open interior of the rectangle, the
// interior lies entirely on one side of the polygon boundary and testing its
// center is enough.
func relatePolygon(c Cell, poly orb.Polygon) Relation {
	rect := orb.Bound{
		Min: orb.Point{float64(c.Lo[0]), float64(c.Lo[1])},
		Max: orb.Point{float64(c.Hi(0)), float64(c.Hi(1))},
	}
	if !poly.Bound().Intersects(rect) {
		return Disjoint
	}
	for _, ring := range poly {
		for i := 0; i < len(ring); i++ {
			j := i + 1
			if j == len(ring) {
				j = 0
			}
			if segmentCrossesInterior(ring[i], ring[j], rect) {
				return Overlaps
			}
		}
	}
	if planar.PolygonContains(poly, rect.Center()) {
		return Contains
	}
	return Disjoint
}

// segmentCrossesInterior reports whether segment ab has a point strictly
// inside r. It is Liang-Barsky clipping against the open rectangle.
func segmentCrossesInterior(a, b orb.Point, r orb.Bound) bool {
	t0, t1 := 0.0, 1.0
	for axis := 0; axis < 2; axis++ {
		p, delta := a[axis], b[axis]-a[axis]
		lo, hi := r.Min[axis], r.Max[axis]
		if delta == 0 {
			if p <= lo || p >= hi {
				return false
			}
			continue
		}
		tl, th := (lo-p)/delta, (hi-p)/delta
		if tl > th {
			tl, th = th, tl
		}
		if tl > t0 {
			t0 = tl
		}
		if th < t1 {
			t1 = th
		}
		if t0 >= t1 {
			return false
		}
	}
	return true
}

// planarArea is the area of the polygon less its holes.
func planarArea(p orb.Polygon) float64 {
	if len(p) == 0 {
		return 0
	}
	a := ringArea(p[0])
	for _, hole := range p[1:] {
		a -= ringArea(hole)
	}
	if a < 0 {
		return 0
	}
	return a
}

func ringArea(r orb.Ring) float64 {
	if len(r) > 0 && !r.Closed() {
		r = append(r[:len(r):len(r)], r[0])
	}
	a := planar.Area(r)
	if a < 0 {
		return -a
	}
	return a
}
