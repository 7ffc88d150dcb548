package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ContainsPoint reports whether the integer record p belongs to s. Polygons
// are closed, so points on an edge belong to them.
func ContainsPoint(s Shape, p []uint64) bool {
	if len(p) < Dims(s) {
		return false
	}
	switch v := s.(type) {
	case Box:
		for d := range v.Min {
			if p[d] < v.Min[d] || p[d] > v.Max[d] {
				return false
			}
		}
		return true
	case Sphere:
		var dist float64
		for d, c := range v.Center {
			diff := float64(p[d]) - c
			dist += diff * diff
		}
		return dist <= v.Radius*v.Radius
	case Polygon:
		return inPolygon(v.Poly, p)
	case PolygonWithHeight:
		return v.Height.Contains(p[2]) && inPolygon(v.Poly, p)
	case PolygonWithTime:
		return v.Time.Contains(p[2]) && inPolygon(v.Poly, p)
	case PolygonWithHeightAndTime:
		return v.Height.Contains(p[2]) && v.Time.Contains(p[3]) && inPolygon(v.Poly, p)
	}
	return false
}

func inPolygon(poly orb.Polygon, p []uint64) bool {
	pt := orb.Point{float64(p[0]), float64(p[1])}
	if planar.PolygonContains(poly, pt) {
		return true
	}
	// PolygonContains leaves hole edges out.
	for _, hole := range poly[1:] {
		if onRing(hole, pt) {
			return true
		}
	}
	return false
}

// OnBoundary reports whether pt lies on an edge of any ring of poly.
func OnBoundary(poly orb.Polygon, pt orb.Point) bool {
	for _, ring := range poly {
		if onRing(ring, pt) {
			return true
		}
	}
	return false
}

func onRing(r orb.Ring, pt orb.Point) bool {
	for i := range r {
		a, b := r[i], r[(i+1)%len(r)]
		cross := (b[0]-a[0])*(pt[1]-a[1]) - (b[1]-a[1])*(pt[0]-a[0])
		if cross != 0 {
			continue
		}
		if pt[0] >= min(a[0], b[0]) && pt[0] <= max(a[0], b[0]) &&
			pt[1] >= min(a[1], b[1]) && pt[1] <= max(a[1], b[1]) {
			return true
		}
	}
	return false
}
