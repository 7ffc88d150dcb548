package common

import "fmt"

// ZRange is an inclusive range [Min, Max] of Morton keys.
//
// Inside is set when every key of the range belongs to a cell that lies
// wholly inside the query shape, so records scanned from it need no further
// geometric check.
type ZRange struct {
	Min    Key
	Max    Key
	Inside bool
}

// NewZRange builds a range from two uint64 bounds.
func NewZRange(min, max uint64, inside bool) ZRange {
	return ZRange{Min: KeyOf(min), Max: KeyOf(max), Inside: inside}
}

// Contains reports whether k lies in the range.
func (r ZRange) Contains(k Key) bool {
	return !k.Lt(&r.Min) && !k.Gt(&r.Max)
}

// Size returns the number of keys covered by the range.
func (r ZRange) Size() Key {
	var n Key
	n.Sub(&r.Max, &r.Min)
	n.AddUint64(&n, 1)
	return n
}

func (r ZRange) String() string {
	flag := "boundary"
	if r.Inside {
		flag = "inside"
	}
	return fmt.Sprintf("[%s, %s] %s", r.Min.Dec(), r.Max.Dec(), flag)
}
