package morton

import (
	"zrange/pkg/common"
)

// Fanout is the number of children of every tree cell, 2^dims.
func (c *Codec) Fanout() int { return 1 << c.dims }

// CellShift is the number of key bits below a cell at level.
func (c *Codec) CellShift(level uint) uint {
	return uint(c.dims) * (c.bits - level)
}

// CellRange maps a tree cell to the inclusive key range it covers.
//
//	min = code << shift
//	max = ((code+1) << shift) - 1
//
// with shift = dims*(bits-level). level must not exceed Bits.
func (c *Codec) CellRange(code common.Key, level uint) common.ZRange {
	shift := c.CellShift(level)
	var lo, hi common.Key
	lo.Lsh(&code, shift)
	hi.AddUint64(&code, 1)
	hi.Lsh(&hi, shift)
	hi.SubUint64(&hi, 1)
	return common.ZRange{Min: lo, Max: hi}
}

// Child returns the code of child i of the cell code. Bit d of i selects the
// upper half of axis d.
func (c *Codec) Child(code common.Key, i int) common.Key {
	var child common.Key
	child.Lsh(&code, uint(c.dims))
	child[0] |= uint64(i)
	return child
}

// CellOrigin decodes the lowest corner of a cell together with its side
// length, which is 2^(bits-level) on every axis.
func (c *Codec) CellOrigin(code common.Key, level uint) ([]uint64, uint64) {
	r := c.CellRange(code, level)
	return c.Decode(r.Min), uint64(1) << (c.bits - level)
}
