package geometry

// MaxDims is the largest number of axes a cell can have.
const MaxDims = 4

// Cell is an axis-aligned hypercube [Lo[d], Lo[d]+Side) on each of its Dims
// axes. Tree nodes, and the keys under them, map one-to-one onto cells.
type Cell struct {
	Lo   [MaxDims]uint64
	Side uint64
	Dims int
}

// RootCell is the cube [0, 2^bits) on dims axes.
func RootCell(dims int, bits uint) Cell {
	return Cell{Side: uint64(1) << bits, Dims: dims}
}

// Hi returns the exclusive upper end of axis d.
func (c Cell) Hi(d int) uint64 { return c.Lo[d] + c.Side }

// Child returns sub-cell i. Bit d of i selects the upper half of axis d,
// which matches the bit order of Morton keys. The side must be at least 2.
func (c Cell) Child(i int) Cell {
	half := c.Side >> 1
	child := Cell{Lo: c.Lo, Side: half, Dims: c.Dims}
	for d := 0; d < c.Dims; d++ {
		if i&(1<<d) != 0 {
			child.Lo[d] += half
		}
	}
	return child
}

// ContainsPoint reports whether p lies in the cell.
func (c Cell) ContainsPoint(p []uint64) bool {
	for d := 0; d < c.Dims; d++ {
		if p[d] < c.Lo[d] || p[d] >= c.Hi(d) {
			return false
		}
	}
	return true
}
