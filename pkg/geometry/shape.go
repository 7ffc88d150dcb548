// Package geometry holds the query shapes and the relate predicate that the
// Z-order tree uses to prune, refine or emit cells.
//
// All coordinates are already scaled to integer domain cells. Boxes and
// intervals are inclusive integer bounds; polygons and spheres are continuous
// and are matched against the integer records they cover.
package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

var (
	// ErrShapeMismatch reports a shape used with a cell or layout it cannot
	// describe. It is a caller bug, not bad input data.
	ErrShapeMismatch = errors.New("geometry: shape does not match layout")
	ErrInvalidShape  = errors.New("geometry: invalid shape")
)

// Shape is one of Box, Sphere, Polygon, PolygonWithHeight, PolygonWithTime
// or PolygonWithHeightAndTime.
type Shape interface {
	isShape()
}

// Box is an axis-aligned box with inclusive bounds. Its dimension count,
// 2, 3 or 4, is len(Min).
type Box struct {
	Min []uint64
	Max []uint64
}

// Sphere is the closed ball around Center.
type Sphere struct {
	Center []float64
	Radius float64
}

// Polygon is a planar polygon over the x and y axes. Rings after the first
// are holes.
type Polygon struct {
	Poly orb.Polygon
}

type PolygonWithHeight struct {
	Poly   orb.Polygon
	Height Interval
}

type PolygonWithTime struct {
	Poly orb.Polygon
	Time Interval
}

type PolygonWithHeightAndTime struct {
	Poly   orb.Polygon
	Height Interval
	Time   Interval
}

func (Box) isShape()                      {}
func (Sphere) isShape()                   {}
func (Polygon) isShape()                  {}
func (PolygonWithHeight) isShape()        {}
func (PolygonWithTime) isShape()          {}
func (PolygonWithHeightAndTime) isShape() {}

func NewBox(min, max []uint64) (Box, error) {
	b := Box{Min: min, Max: max}
	return b, Validate(b)
}

func NewSphere(center []float64, radius float64) (Sphere, error) {
	s := Sphere{Center: center, Radius: radius}
	return s, Validate(s)
}

func NewPolygon(poly orb.Polygon) (Polygon, error) {
	p := Polygon{Poly: poly}
	return p, Validate(p)
}

// Validate checks that the shape is well formed on its own. Whether it fits
// a given layout is Compatible's job.
func Validate(s Shape) error {
	switch v := s.(type) {
	case Box:
		if len(v.Min) != len(v.Max) {
			return errors.Wrapf(ErrInvalidShape, "box corners have %d and %d axes", len(v.Min), len(v.Max))
		}
		if len(v.Min) < 2 || len(v.Min) > MaxDims {
			return errors.Wrapf(ErrInvalidShape, "box has %d axes", len(v.Min))
		}
		for d := range v.Min {
			if v.Min[d] > v.Max[d] {
				return errors.Wrapf(ErrInvalidShape, "box axis %d: min %d > max %d", d, v.Min[d], v.Max[d])
			}
		}
		return nil
	case Sphere:
		if len(v.Center) < 2 || len(v.Center) > MaxDims {
			return errors.Wrapf(ErrInvalidShape, "sphere has %d axes", len(v.Center))
		}
		if v.Radius < 0 || math.IsNaN(v.Radius) || math.IsInf(v.Radius, 0) {
			return errors.Wrapf(ErrInvalidShape, "sphere radius %v", v.Radius)
		}
		return nil
	case Polygon:
		return validatePolygon(v.Poly)
	case PolygonWithHeight:
		if err := validatePolygon(v.Poly); err != nil {
			return err
		}
		return validateInterval("height", v.Height)
	case PolygonWithTime:
		if err := validatePolygon(v.Poly); err != nil {
			return err
		}
		return validateInterval("time", v.Time)
	case PolygonWithHeightAndTime:
		if err := validatePolygon(v.Poly); err != nil {
			return err
		}
		if err := validateInterval("height", v.Height); err != nil {
			return err
		}
		return validateInterval("time", v.Time)
	case nil:
		return errors.Wrap(ErrInvalidShape, "nil shape")
	}
	return errors.Wrapf(ErrShapeMismatch, "unsupported shape %T", s)
}

func validatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return errors.Wrap(ErrInvalidShape, "polygon has no rings")
	}
	for i, ring := range p {
		n := len(ring)
		if n > 0 && ring.Closed() {
			n--
		}
		if n < 3 {
			return errors.Wrapf(ErrInvalidShape, "ring %d has %d distinct vertices", i, n)
		}
		for _, pt := range ring {
			if math.IsNaN(pt[0]) || math.IsNaN(pt[1]) || math.IsInf(pt[0], 0) || math.IsInf(pt[1], 0) {
				return errors.Wrapf(ErrInvalidShape, "ring %d has a non-finite vertex", i)
			}
		}
	}
	return nil
}

func validateInterval(name string, iv Interval) error {
	if iv.Min > iv.Max {
		return errors.Wrapf(ErrInvalidShape, "%s interval %d > %d", name, iv.Min, iv.Max)
	}
	return nil
}

// Dims is the number of axes the shape constrains.
func Dims(s Shape) int {
	switch v := s.(type) {
	case Box:
		return len(v.Min)
	case Sphere:
		return len(v.Center)
	case Polygon:
		return 2
	case PolygonWithHeight, PolygonWithTime:
		return 3
	case PolygonWithHeightAndTime:
		return 4
	}
	return 0
}

// Compatible reports ErrShapeMismatch when the shape cannot be asked of a
// domain with the given layout, such as a height interval on a layout with
// no z axis.
func Compatible(s Shape, l Layout) error {
	ok := false
	switch s.(type) {
	case Box, Sphere:
		ok = Dims(s) == l.Dims()
	case Polygon:
		ok = l == XY
	case PolygonWithHeight:
		ok = l == XYZ
	case PolygonWithTime:
		ok = l == XYT
	case PolygonWithHeightAndTime:
		ok = l == XYZT
	}
	if !ok {
		return errors.Wrapf(ErrShapeMismatch, "%T with %d axes on layout %s", s, Dims(s), l)
	}
	return nil
}

// WithTime returns a copy of s with its time interval replaced. Shapes
// without a time interval are returned unchanged.
func WithTime(s Shape, t Interval) Shape {
	switch v := s.(type) {
	case PolygonWithTime:
		v.Time = t
		return v
	case PolygonWithHeightAndTime:
		v.Time = t
		return v
	}
	return s
}

// TimeOf returns the time interval of s, if it has one.
func TimeOf(s Shape) (Interval, bool) {
	switch v := s.(type) {
	case PolygonWithTime:
		return v.Time, true
	case PolygonWithHeightAndTime:
		return v.Time, true
	}
	return Interval{}, false
}
