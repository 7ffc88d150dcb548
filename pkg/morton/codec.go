// Package morton interleaves the bits of 2, 3 or 4 unsigned coordinates into
// a single Z-order key and back.
//
// Coordinate d of a point lands on key bits d, d+N, d+2N, ... so the most
// significant key bits hold the most significant bit of every coordinate, in
// axis order. Keys are up to 128 bits wide.
package morton

import (
	"github.com/pkg/errors"

	"zrange/pkg/common"
)

const (
	MinDims = 2
	MaxDims = 4

	// MaxKeyBits is the widest key a codec will produce.
	MaxKeyBits = 128
	// MaxBits is the widest coordinate; 2^MaxBits must fit an int64 so that
	// domain bounds can be validated as signed values.
	MaxBits = 62
)

var (
	ErrInvalidCoordinate = errors.New("morton: invalid coordinate")
	ErrInvalidCodec      = errors.New("morton: invalid codec parameters")
)

// Codec encodes and decodes keys for a fixed dimension count and coordinate
// width. A Codec is immutable and safe for concurrent use.
type Codec struct {
	dims int
	bits uint
}

func NewCodec(dims int, bits uint) (*Codec, error) {
	if dims < MinDims || dims > MaxDims {
		return nil, errors.Wrapf(ErrInvalidCodec, "dims=%d, want %d..%d", dims, MinDims, MaxDims)
	}
	if bits == 0 || bits > MaxBits || uint(dims)*bits > MaxKeyBits {
		return nil, errors.Wrapf(ErrInvalidCodec, "bits=%d for %d dims (key limit %d bits)", bits, dims, MaxKeyBits)
	}
	return &Codec{dims: dims, bits: bits}, nil
}

func (c *Codec) Dims() int { return c.dims }

func (c *Codec) Bits() uint { return c.bits }

// KeyBits is the width of the keys produced by the codec.
func (c *Codec) KeyBits() uint { return uint(c.dims) * c.bits }

// MaxCoord is the largest legal coordinate value.
func (c *Codec) MaxCoord() uint64 { return 1<<c.bits - 1 }

// Encode interleaves coords into a key. Every coordinate must be below
// 2^bits; out of range input is rejected rather than wrapped, since a wrapped
// key would sort into the wrong place.
func (c *Codec) Encode(coords []uint64) (common.Key, error) {
	var k common.Key
	if len(coords) != c.dims {
		return k, errors.Wrapf(ErrInvalidCoordinate, "got %d coordinates, want %d", len(coords), c.dims)
	}
	limit := c.MaxCoord()
	for d, v := range coords {
		if v > limit {
			return k, errors.Wrapf(ErrInvalidCoordinate, "axis %d: %d exceeds %d", d, v, limit)
		}
	}
	for d, v := range coords {
		dilate(&k, v, c.bits, c.dims, d)
	}
	return k, nil
}

// MustEncode is Encode for coordinates already known to be in range.
func (c *Codec) MustEncode(coords ...uint64) common.Key {
	k, err := c.Encode(coords)
	if err != nil {
		panic(err)
	}
	return k
}

// Decode splits a key back into its coordinates. Bits above KeyBits are
// ignored.
func (c *Codec) Decode(k common.Key) []uint64 {
	coords := make([]uint64, c.dims)
	c.DecodeInto(k, coords)
	return coords
}

// DecodeInto is Decode without the allocation; coords must hold Dims values.
func (c *Codec) DecodeInto(k common.Key, coords []uint64) {
	for d := 0; d < c.dims; d++ {
		coords[d] = contract(&k, c.bits, c.dims, d)
	}
}

// dilate spreads the low bits of v over every stride-th bit of k, starting
// at bit offset.
func dilate(k *common.Key, v uint64, bits uint, stride, offset int) {
	for i := uint(0); v != 0 && i < bits; i++ {
		if v&1 == 1 {
			pos := int(i)*stride + offset
			k[pos>>6] |= 1 << uint(pos&63)
		}
		v >>= 1
	}
}

// contract is the inverse of dilate.
func contract(k *common.Key, bits uint, stride, offset int) uint64 {
	var v uint64
	for i := uint(0); i < bits; i++ {
		pos := int(i)*stride + offset
		v |= (k[pos>>6] >> uint(pos&63) & 1) << i
	}
	return v
}
