package ztree

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"zrange/pkg/common"
	"zrange/pkg/geometry"
	"zrange/pkg/rangeset"
)

// QueryOptions tune a single query.
type QueryOptions struct {
	// Coarsening is subtracted from the auto depth; larger values give fewer,
	// wider ranges.
	Coarsening int
	// Continuous selects the volume based auto depth over every axis. When
	// false the query is treated as an instant and only the spatial axes
	// count.
	Continuous bool
	// TargetDepth overrides the auto depth when set. It must not exceed the
	// domain bits.
	TargetDepth *uint
	// MaxRanges caps the number of ranges returned; 0 means no cap.
	MaxRanges int
	// Distinct keeps inside and boundary ranges in separate lists.
	Distinct bool
}

// Depth is a helper for QueryOptions.TargetDepth.
func Depth(d uint) *uint { return &d }

// QueryResult holds the merged ranges of a query.
//
// With Distinct set, Inner holds the ranges of cells wholly inside the shape
// and Boundary the rest. Otherwise Inner is empty and Boundary holds every
// range, each keeping its own Inside flag. When MaxRanges is smaller than
// the inner list, the two lists are merged and capped together into
// Boundary.
type QueryResult struct {
	Inner        []common.ZRange
	Boundary     []common.ZRange
	CellsVisited int
	Depth        uint
}

// Ranges returns every range of the result sorted by Min.
func (r *QueryResult) Ranges() []common.ZRange {
	all := make([]common.ZRange, 0, len(r.Inner)+len(r.Boundary))
	all = append(all, r.Inner...)
	all = append(all, r.Boundary...)
	sort.Slice(all, func(i, j int) bool { return all[i].Min.Lt(&all[j].Min) })
	return all
}

func (r *QueryResult) Len() int { return len(r.Inner) + len(r.Boundary) }

// query is the working state of one Query call.
type query struct {
	t       *Tree
	shape   geometry.Shape
	domain  geometry.Box
	depth   uint
	ranges  []common.ZRange
	visited int
}

// Query computes the key ranges covering shape. Every record inside shape
// falls in a returned range, and a range flagged Inside holds only records
// inside shape.
func (t *Tree) Query(shape geometry.Shape, opts QueryOptions) (*QueryResult, error) {
	if err := geometry.Validate(shape); err != nil {
		return nil, err
	}
	if err := geometry.Compatible(shape, t.domain.layout); err != nil {
		return nil, err
	}
	if opts.MaxRanges < 0 {
		return nil, errors.Wrapf(rangeset.ErrInvalidMaxRanges, "got %d", opts.MaxRanges)
	}
	depth, err := t.TargetDepth(shape, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	q := &query{t: t, shape: shape, domain: t.domain.Box(), depth: depth}
	if err := q.run(); err != nil {
		return nil, err
	}
	res, err := q.result(opts)
	if err != nil {
		return nil, err
	}

	t.logger.Debug("query done",
		zap.Uint("depth", depth),
		zap.Int("cells", res.CellsVisited),
		zap.Int("raw_ranges", len(q.ranges)),
		zap.Int("inner", len(res.Inner)),
		zap.Int("boundary", len(res.Boundary)),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

func (q *query) run() error {
	t := q.t
	rel, err := q.relate(t.rootCell)
	if err != nil {
		return err
	}
	switch {
	case rel == geometry.Disjoint:
		return nil
	case rel == geometry.Contains:
		q.emit(t.rootCode, t.rootLevel, true)
		return nil
	case q.depth <= t.rootLevel || t.rootLevel == t.domain.bits:
		q.emit(t.rootCode, t.rootLevel, false)
		return nil
	}
	_, _, err = q.visit(t.rootCode, t.rootLevel, t.rootCell)
	return err
}

// visit walks the children of an overlapping cell. It reports whether the
// cell collapsed into a single range, and whether that range is inside.
func (q *query) visit(code common.Key, level uint, cell geometry.Cell) (bool, bool, error) {
	t := q.t
	fanout := t.codec.Fanout()
	first := len(q.ranges)
	singles := 0
	allInside := true

	for i := 0; i < fanout; i++ {
		child := cell.Child(i)
		rel, err := q.relate(child)
		if err != nil {
			return false, false, err
		}
		childCode := t.codec.Child(code, i)
		childLevel := level + 1

		switch rel {
		case geometry.Disjoint:
			allInside = false
			continue
		case geometry.Contains:
			q.emit(childCode, childLevel, true)
			singles++
		case geometry.Overlaps:
			if childLevel < q.depth && childLevel < t.domain.bits {
				single, inside, err := q.visit(childCode, childLevel, child)
				if err != nil {
					return false, false, err
				}
				if single {
					singles++
					allInside = allInside && inside
				}
				continue
			}
			q.emit(childCode, childLevel, false)
			singles++
			allInside = false
		}
	}

	// 所有子节点都各自输出一个区间时, 用父节点代替
	if singles == fanout {
		q.ranges = q.ranges[:first]
		q.emit(code, level, allInside)
		return true, allInside, nil
	}
	return false, false, nil
}

// relate prunes cells outside the domain box before asking the shape.
func (q *query) relate(c geometry.Cell) (geometry.Relation, error) {
	q.visited++
	if r, err := geometry.Relate(c, q.domain); err != nil || r == geometry.Disjoint {
		return geometry.Disjoint, err
	}
	return geometry.Relate(c, q.shape)
}

func (q *query) emit(code common.Key, level uint, inside bool) {
	r := q.t.codec.CellRange(code, level)
	r.Inside = inside
	q.ranges = append(q.ranges, r)
}

func (q *query) result(opts QueryOptions) (*QueryResult, error) {
	res := &QueryResult{CellsVisited: q.visited, Depth: q.depth}

	if !opts.Distinct {
		all, err := capped(rangeset.MergeConsecutive(q.ranges), opts.MaxRanges)
		if err != nil {
			return nil, err
		}
		res.Boundary = all
		return res, nil
	}

	var inner, boundary []common.ZRange
	for _, r := range q.ranges {
		if r.Inside {
			inner = append(inner, r)
		} else {
			boundary = append(boundary, r)
		}
	}
	var err error
	res.Inner, res.Boundary, err = fit(rangeset.MergeConsecutive(inner), rangeset.MergeConsecutive(boundary), opts)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// fit applies the range budget of opts to merged inner and boundary lists.
// Inner ranges keep priority; when they alone use up the budget both lists
// are merged and capped together into boundary.
func fit(inner, boundary []common.ZRange, opts QueryOptions) ([]common.ZRange, []common.ZRange, error) {
	if opts.MaxRanges <= 0 {
		return inner, boundary, nil
	}
	room := opts.MaxRanges - len(inner)
	if !opts.Distinct || room < 0 || room == 0 && len(boundary) > 0 {
		all, err := capped(mergeLists(inner, boundary), opts.MaxRanges)
		return nil, all, err
	}
	boundary, err := capped(boundary, room)
	return inner, boundary, err
}

func capped(ranges []common.ZRange, maxRanges int) ([]common.ZRange, error) {
	if maxRanges <= 0 {
		return ranges, nil
	}
	return rangeset.Cap(ranges, maxRanges)
}
