package geometry

import (
	"math"
)

// Measure returns the volume of s over its first axes axes, with integer
// axes clipped to the domain box [0, bounds[d]). Boxes and intervals count
// whole cells, polygons and spheres use their continuous measure. The result
// is at least 1 so that it can be used as a divisor in log space.
func Measure(s Shape, bounds []uint64, axes int) float64 {
	v := 1.0
	switch sh := s.(type) {
	case Box:
		for d := 0; d < axes && d < len(sh.Min); d++ {
			v *= Interval{Min: sh.Min[d], Max: sh.Max[d]}.length(bounds[d])
		}
	case Sphere:
		v = ballVolume(axes, sh.Radius)
	case Polygon:
		v = planarArea(sh.Poly)
	case PolygonWithHeight:
		v = planarArea(sh.Poly)
		if axes > 2 {
			v *= sh.Height.length(bounds[2])
		}
	case PolygonWithTime:
		v = planarArea(sh.Poly)
		if axes > 2 {
			v *= sh.Time.length(bounds[2])
		}
	case PolygonWithHeightAndTime:
		v = planarArea(sh.Poly)
		if axes > 2 {
			v *= sh.Height.length(bounds[2])
		}
		if axes > 3 {
			v *= sh.Time.length(bounds[3])
		}
	}
	if v < 1 || math.IsNaN(v) {
		return 1
	}
	return v
}

func ballVolume(n int, r float64) float64 {
	switch n {
	case 2:
		return math.Pi * r * r
	case 3:
		return 4.0 / 3.0 * math.Pi * r * r * r
	case 4:
		return math.Pi * math.Pi / 2 * r * r * r * r
	}
	return 0
}
