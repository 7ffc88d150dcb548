package ztree

import (
	"fmt"

	"github.com/pkg/errors"

	"zrange/pkg/geometry"
	"zrange/pkg/morton"
)

var (
	ErrInvalidDomain = errors.New("ztree: invalid domain")
	ErrInvalidDepth  = errors.New("ztree: target depth out of range")
)

// Domain is the integer box [0, bounds[d]) on every axis of a layout, with
// bits bits per coordinate. It is immutable.
type Domain struct {
	layout geometry.Layout
	bounds []uint64
	bits   uint
}

// NewDomain validates the box. Bounds are signed so that negative values
// coming from configuration are reported rather than wrapped; each must lie
// in [1, 2^bits].
func NewDomain(layout geometry.Layout, bounds []int64, bits uint) (*Domain, error) {
	if !layout.Valid() {
		return nil, errors.Wrapf(ErrInvalidDomain, "layout %d", int(layout))
	}
	if len(bounds) != layout.Dims() {
		return nil, errors.Wrapf(ErrInvalidDomain, "layout %s needs %d bounds, got %d", layout, layout.Dims(), len(bounds))
	}
	if bits == 0 || bits > morton.MaxBits || uint(layout.Dims())*bits > morton.MaxKeyBits {
		return nil, errors.Wrapf(ErrInvalidDomain, "%d bits per axis on %d axes", bits, layout.Dims())
	}
	limit := int64(1) << bits
	d := &Domain{layout: layout, bits: bits, bounds: make([]uint64, len(bounds))}
	for i, b := range bounds {
		if b < 1 || b > limit {
			return nil, errors.Wrapf(ErrInvalidDomain, "axis %d bound %d outside [1, %d]", i, b, limit)
		}
		d.bounds[i] = uint64(b)
	}
	return d, nil
}

// FullDomain covers the whole key space of the layout.
func FullDomain(layout geometry.Layout, bits uint) (*Domain, error) {
	bounds := make([]int64, layout.Dims())
	for i := range bounds {
		bounds[i] = int64(1) << bits
	}
	return NewDomain(layout, bounds, bits)
}

func (d *Domain) Layout() geometry.Layout { return d.layout }

func (d *Domain) Dims() int { return d.layout.Dims() }

func (d *Domain) Bits() uint { return d.bits }

func (d *Domain) Bounds() []uint64 {
	out := make([]uint64, len(d.bounds))
	copy(out, d.bounds)
	return out
}

// Box is the domain as an inclusive box shape.
func (d *Domain) Box() geometry.Box {
	b := geometry.Box{Min: make([]uint64, len(d.bounds)), Max: make([]uint64, len(d.bounds))}
	for i, v := range d.bounds {
		b.Max[i] = v - 1
	}
	return b
}

func (d *Domain) String() string {
	return fmt.Sprintf("%s%v@%d", d.layout, d.bounds, d.bits)
}
