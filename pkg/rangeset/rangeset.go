// Package rangeset post-processes key range lists: fusing adjacent ranges
// and capping the list to a budget by merging across the smallest gaps.
package rangeset

import (
	"sort"

	"github.com/pkg/errors"

	"zrange/pkg/common"
)

var ErrInvalidMaxRanges = errors.New("rangeset: max ranges must be at least 1")

func sortByMin(ranges []common.ZRange) {
	sort.Slice(ranges, func(i, j int) bool {
		return ranges[i].Min.Lt(&ranges[j].Min)
	})
}

// MergeConsecutive sorts a copy of ranges by Min and fuses every pair that
// touches or overlaps. A fused range is inside only if both parts were.
// Applying it twice gives the same result as applying it once.
func MergeConsecutive(ranges []common.ZRange) []common.ZRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]common.ZRange, len(ranges))
	copy(sorted, ranges)
	sortByMin(sorted)

	merged := make([]common.ZRange, 0, len(sorted))
	curr := sorted[0]
	for _, next := range sorted[1:] {
		var end common.Key
		end.AddUint64(&curr.Max, 1)
		// 相邻或重叠 (next.Min <= curr.Max + 1)
		if !next.Min.Gt(&end) {
			if next.Max.Gt(&curr.Max) {
				curr.Max = next.Max
			}
			curr.Inside = curr.Inside && next.Inside
			continue
		}
		merged = append(merged, curr)
		curr = next
	}
	return append(merged, curr)
}

// gap is the distance from the end of a to the start of b, zero when they
// touch or overlap.
func gap(a, b *common.ZRange) common.Key {
	var g common.Key
	if b.Min.Gt(&a.Max) {
		g.Sub(&b.Min, &a.Max)
	}
	return g
}

// Cap limits ranges to at most maxRanges entries. Lists already within the
// budget come back unchanged. Otherwise, with k = len(ranges) - maxRanges
// merges needed and g the k-th smallest gap between neighbours, every gap
// below g is closed, then gaps equal to g are closed left to right until
// exactly maxRanges ranges remain. A range that absorbs a gap is no
// longer inside.
//
// ranges should be sorted and disjoint, as MergeConsecutive returns them.
func Cap(ranges []common.ZRange, maxRanges int) ([]common.ZRange, error) {
	if maxRanges < 1 {
		return nil, errors.Wrapf(ErrInvalidMaxRanges, "got %d", maxRanges)
	}
	if len(ranges) <= maxRanges {
		return ranges, nil
	}

	gaps := make([]common.Key, len(ranges)-1)
	for i := range gaps {
		gaps[i] = gap(&ranges[i], &ranges[i+1])
	}
	sorted := make([]common.Key, len(gaps))
	copy(sorted, gaps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Lt(&sorted[j]) })

	k := len(ranges) - maxRanges
	threshold := sorted[k-1]
	less := 0
	for _, g := range gaps {
		if g.Lt(&threshold) {
			less++
		}
	}
	ties := k - less

	out := make([]common.ZRange, 0, maxRanges)
	curr := ranges[0]
	for i, g := range gaps {
		merge := g.Lt(&threshold)
		if !merge && ties > 0 && g.Eq(&threshold) {
			merge = true
			ties--
		}
		next := ranges[i+1]
		if merge {
			if next.Max.Gt(&curr.Max) {
				curr.Max = next.Max
			}
			// 跨越空隙后不再是 inside
			curr.Inside = curr.Inside && next.Inside && !g.GtUint64(1)
			continue
		}
		out = append(out, curr)
		curr = next
	}
	return append(out, curr), nil
}
