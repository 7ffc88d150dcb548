package morton

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zrange/pkg/common"
)

func TestNewCodecValidation(t *testing.T) {
	tests := []struct {
		name string
		dims int
		bits uint
		ok   bool
	}{
		{"2D 10 bits", 2, 10, true},
		{"2D 62 bits", 2, 62, true},
		{"3D 21 bits", 3, 21, true},
		{"3D 31 bits", 3, 31, true},
		{"4D 31 bits", 4, 31, true},
		{"4D 32 bits", 4, 32, true},
		{"1D", 1, 10, false},
		{"5D", 5, 10, false},
		{"zero bits", 2, 0, false},
		{"too wide coordinate", 2, 63, false},
		{"too wide key", 3, 43, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCodec(tt.dims, tt.bits)
			if !tt.ok {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidCodec))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint(tt.dims)*tt.bits, c.KeyBits())
		})
	}
}

func TestEncodeKnownValues(t *testing.T) {
	c, err := NewCodec(2, 10)
	require.NoError(t, err)
	u64 := func(k common.Key) uint64 { return k.Uint64() }

	// x occupies the even bits, y the odd bits.
	assert.Equal(t, uint64(0b01), u64(c.MustEncode(1, 0)))
	assert.Equal(t, uint64(0b10), u64(c.MustEncode(0, 1)))
	assert.Equal(t, uint64(0b11), u64(c.MustEncode(1, 1)))
	assert.Equal(t, uint64(0b1100), u64(c.MustEncode(2, 2)))
	assert.Equal(t, uint64(1<<20-1), u64(c.MustEncode(1023, 1023)))

	c3, err := NewCodec(3, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b100), u64(c3.MustEncode(0, 0, 1)))
	assert.Equal(t, uint64(0b100_000), u64(c3.MustEncode(0, 0, 2)))
}

func TestRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cases := []struct {
		dims int
		bits uint
	}{
		{2, 10}, {2, 32}, {2, 62}, {3, 21}, {3, 31}, {4, 16}, {4, 31},
	}
	for _, cs := range cases {
		c, err := NewCodec(cs.dims, cs.bits)
		require.NoError(t, err)
		for i := 0; i < 500; i++ {
			coords := make([]uint64, cs.dims)
			for d := range coords {
				coords[d] = rng.Uint64() & c.MaxCoord()
			}
			k, err := c.Encode(coords)
			require.NoError(t, err)
			assert.LessOrEqual(t, k.BitLen(), int(c.KeyBits()))
			assert.Equal(t, coords, c.Decode(k))
		}
	}
}

func TestRoundTripWidest4D(t *testing.T) {
	c, err := NewCodec(4, 31)
	require.NoError(t, err)
	const top = uint64(1)<<31 - 1

	for mask := 0; mask < 16; mask++ {
		coords := make([]uint64, 4)
		for d := range coords {
			if mask&(1<<d) != 0 {
				coords[d] = top
			}
		}
		k, err := c.Encode(coords)
		require.NoError(t, err)
		assert.Equal(t, coords, c.Decode(k))
	}

	k := c.MustEncode(top, top, top, top)
	assert.Equal(t, 124, k.BitLen())
	assert.False(t, k.IsUint64())
}

func TestEncodeRejectsOutOfRange(t *testing.T) {
	c, err := NewCodec(4, 31)
	require.NoError(t, err)

	_, err = c.Encode([]uint64{0, 1 << 31, 0, 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCoordinate))

	_, err = c.Encode([]uint64{1, 2, 3})
	assert.True(t, errors.Is(err, ErrInvalidCoordinate))
}

func TestEncodePreservesCellOrder(t *testing.T) {
	c, err := NewCodec(2, 3)
	require.NoError(t, err)

	// Every point of the lower-left quadrant sorts before every point of the
	// lower-right one.
	var maxLL, minLR common.Key
	for x := uint64(0); x < 4; x++ {
		for y := uint64(0); y < 4; y++ {
			k := c.MustEncode(x, y)
			if k.Gt(&maxLL) {
				maxLL = k
			}
		}
	}
	minLR = c.MustEncode(4, 0)
	assert.True(t, maxLL.Lt(&minLR))
}

func TestCellRange(t *testing.T) {
	c, err := NewCodec(2, 10)
	require.NoError(t, err)

	root := c.CellRange(common.Key{}, 0)
	assert.Equal(t, uint64(0), root.Min.Uint64())
	assert.Equal(t, uint64(1<<20-1), root.Max.Uint64())

	leaf := c.CellRange(c.MustEncode(5, 7), 10)
	assert.Equal(t, leaf.Min, leaf.Max)

	// Children partition the parent in ascending order.
	parent := common.KeyOf(3)
	pr := c.CellRange(parent, 1)
	var prevMax common.Key
	for i := 0; i < c.Fanout(); i++ {
		cr := c.CellRange(c.Child(parent, i), 2)
		if i == 0 {
			assert.Equal(t, pr.Min, cr.Min)
		} else {
			var next common.Key
			next.AddUint64(&prevMax, 1)
			assert.Equal(t, next, cr.Min)
		}
		prevMax = cr.Max
	}
	assert.Equal(t, pr.Max, prevMax)
}

func TestCellOrigin(t *testing.T) {
	c, err := NewCodec(3, 8)
	require.NoError(t, err)

	code := c.MustEncode(1, 0, 1)
	// The same three bits viewed as a level-1 cell sit in the upper x and z
	// halves.
	origin, side := c.CellOrigin(code, 1)
	assert.Equal(t, []uint64{128, 0, 128}, origin)
	assert.Equal(t, uint64(128), side)
}
