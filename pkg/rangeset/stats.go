package rangeset

import (
	"zrange/pkg/common"
)

// Stats summarises a sorted, disjoint range list.
type Stats struct {
	Count       int
	InsideCount int
	// Keys is the number of keys a scan of every range touches.
	Keys common.Key
	// InsideKeys is the part of Keys that needs no refinement.
	InsideKeys common.Key
	LargestGap common.Key
}

func Summarize(ranges []common.ZRange) Stats {
	var s Stats
	s.Count = len(ranges)
	for i := range ranges {
		size := ranges[i].Size()
		s.Keys.Add(&s.Keys, &size)
		if ranges[i].Inside {
			s.InsideCount++
			s.InsideKeys.Add(&s.InsideKeys, &size)
		}
		if i > 0 {
			g := gap(&ranges[i-1], &ranges[i])
			if g.Gt(&s.LargestGap) {
				s.LargestGap = g
			}
		}
	}
	return s
}
