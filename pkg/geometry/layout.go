package geometry

import (
	"strings"

	"github.com/pkg/errors"
)

// Layout fixes the meaning and order of the axes of a domain. Spatial axes
// always come first (x, y, then z), followed by time.
type Layout int

const (
	XY Layout = iota
	XYZ
	XYT
	XYZT
)

var layoutNames = map[Layout]string{
	XY:   "xy",
	XYZ:  "xyz",
	XYT:  "xyt",
	XYZT: "xyzt",
}

func ParseLayout(s string) (Layout, error) {
	for l, name := range layoutNames {
		if strings.EqualFold(s, name) {
			return l, nil
		}
	}
	return XY, errors.Errorf("unknown layout %q", s)
}

func (l Layout) String() string {
	if name, ok := layoutNames[l]; ok {
		return name
	}
	return "invalid"
}

func (l Layout) Valid() bool {
	_, ok := layoutNames[l]
	return ok
}

func (l Layout) Dims() int {
	switch l {
	case XY:
		return 2
	case XYZ, XYT:
		return 3
	case XYZT:
		return 4
	}
	return 0
}

// SpatialDims counts the x, y and z axes.
func (l Layout) SpatialDims() int {
	if l == XYZ || l == XYZT {
		return 3
	}
	return 2
}

// HeightAxis is the index of the z axis, or -1.
func (l Layout) HeightAxis() int {
	if l == XYZ || l == XYZT {
		return 2
	}
	return -1
}

// TimeAxis is the index of the t axis, or -1.
func (l Layout) TimeAxis() int {
	switch l {
	case XYT:
		return 2
	case XYZT:
		return 3
	}
	return -1
}
