package ztree

import (
	"github.com/pkg/errors"

	"zrange/pkg/common"
	"zrange/pkg/geometry"
	"zrange/pkg/rangeset"
)

// QueryInstants answers shape at the two instants t0 and t1 only. Each
// instant is queried as a discrete query with half of the range budget, the
// two results are merged and the whole budget is applied once more. shape
// must carry a time interval; its value is replaced.
func (t *Tree) QueryInstants(shape geometry.Shape, t0, t1 uint64, opts QueryOptions) (*QueryResult, error) {
	if _, ok := geometry.TimeOf(shape); !ok {
		return nil, errors.Wrapf(geometry.ErrShapeMismatch, "%T has no time interval", shape)
	}
	if opts.MaxRanges < 0 {
		return nil, errors.Wrapf(rangeset.ErrInvalidMaxRanges, "got %d", opts.MaxRanges)
	}

	single := opts
	single.Continuous = false
	if opts.MaxRanges > 0 {
		single.MaxRanges = max(opts.MaxRanges/2, 1)
	}

	a, err := t.Query(geometry.WithTime(shape, geometry.Instant(t0)), single)
	if err != nil {
		return nil, err
	}
	if t0 == t1 {
		return a, nil
	}
	b, err := t.Query(geometry.WithTime(shape, geometry.Instant(t1)), single)
	if err != nil {
		return nil, err
	}

	inner, boundary, err := fit(mergeLists(a.Inner, b.Inner), mergeLists(a.Boundary, b.Boundary), opts)
	if err != nil {
		return nil, err
	}
	return &QueryResult{
		Inner:        inner,
		Boundary:     boundary,
		CellsVisited: a.CellsVisited + b.CellsVisited,
		Depth:        max(a.Depth, b.Depth),
	}, nil
}

func mergeLists(a, b []common.ZRange) []common.ZRange {
	all := make([]common.ZRange, 0, len(a)+len(b))
	all = append(all, a...)
	return rangeset.MergeConsecutive(append(all, b...))
}
