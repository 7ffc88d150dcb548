package ztree

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"zrange/pkg/common"
	"zrange/pkg/geometry"
	"zrange/pkg/rangeset"
)

func newTree(t *testing.T, layout geometry.Layout, bits uint, bounds ...int64) *Tree {
	t.Helper()
	if len(bounds) == 0 {
		for i := 0; i < layout.Dims(); i++ {
			bounds = append(bounds, int64(1)<<bits)
		}
	}
	d, err := NewDomain(layout, bounds, bits)
	require.NoError(t, err)
	tree, err := New(d, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return tree
}

func covers(ranges []common.ZRange, k common.Key) bool {
	for _, r := range ranges {
		if r.Contains(k) {
			return true
		}
	}
	return false
}

func square(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{orb.Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

func polygonOf(s geometry.Shape) orb.Polygon {
	switch v := s.(type) {
	case geometry.Polygon:
		return v.Poly
	case geometry.PolygonWithHeight:
		return v.Poly
	case geometry.PolygonWithTime:
		return v.Poly
	case geometry.PolygonWithHeightAndTime:
		return v.Poly
	}
	return nil
}

// nearEdge reports points within eps of a polygon edge, where float
// rounding makes membership ambiguous.
func nearEdge(poly orb.Polygon, x, y float64) bool {
	const eps = 1e-6
	for _, ring := range poly {
		for i := range ring {
			a, b := ring[i], ring[(i+1)%len(ring)]
			dx, dy := b[0]-a[0], b[1]-a[1]
			l2 := dx*dx + dy*dy
			u := 0.0
			if l2 > 0 {
				u = math.Max(0, math.Min(1, ((x-a[0])*dx+(y-a[1])*dy)/l2))
			}
			px, py := a[0]+u*dx, a[1]+u*dy
			if math.Hypot(x-px, y-py) < eps {
				return true
			}
		}
	}
	return false
}

// checkRanges verifies by brute force over the whole domain that every
// record in the shape is covered, and every record of an inside range is in
// the shape.
func checkRanges(t *testing.T, tree *Tree, s geometry.Shape, res *QueryResult) {
	t.Helper()
	codec := tree.Codec()
	bounds := tree.Domain().Bounds()
	all := res.Ranges()
	poly := polygonOf(s)

	ambiguous := func(p []uint64) bool {
		return poly != nil && nearEdge(poly, float64(p[0]), float64(p[1]))
	}

	p := make([]uint64, len(bounds))
	var walk func(d int)
	walk = func(d int) {
		if d == len(bounds) {
			if ambiguous(p) || !geometry.ContainsPoint(s, p) {
				return
			}
			k := codec.MustEncode(p...)
			require.True(t, covers(all, k), "record %v not covered", p)
			return
		}
		for v := uint64(0); v < bounds[d]; v++ {
			p[d] = v
			walk(d + 1)
		}
	}
	walk(0)

	for _, r := range all {
		if !r.Inside {
			continue
		}
		for k := r.Min.Uint64(); k <= r.Max.Uint64(); k++ {
			q := codec.Decode(common.KeyOf(k))
			if ambiguous(q) {
				continue
			}
			require.True(t, geometry.ContainsPoint(s, q), "record %v of inside range %s is outside", q, r)
		}
	}
}

func TestQueryScenarioBox2D(t *testing.T) {
	tree := newTree(t, geometry.XY, 10)
	box, err := geometry.NewBox([]uint64{100, 100}, []uint64{200, 200})
	require.NoError(t, err)

	res, err := tree.Query(box, QueryOptions{Continuous: true, Distinct: true})
	require.NoError(t, err)
	require.NotZero(t, res.Len())
	assert.Equal(t, uint(4), res.Depth)

	limit := common.KeyOf(1 << 20)
	for _, r := range res.Ranges() {
		assert.True(t, r.Max.Lt(&limit), "range %s beyond the key space", r)
		assert.False(t, r.Max.Lt(&r.Min))
	}
	for _, r := range res.Inner {
		require.True(t, r.Inside)
		for _, k := range []common.Key{r.Min, r.Max} {
			c := tree.Codec().Decode(k)
			assert.True(t, c[0] >= 100 && c[0] <= 200 && c[1] >= 100 && c[1] <= 200, "corner %v", c)
		}
	}
	for _, r := range res.Boundary {
		assert.False(t, r.Inside)
	}

	// Records of the box are all covered.
	for x := uint64(100); x <= 200; x++ {
		for y := uint64(100); y <= 200; y++ {
			require.True(t, covers(res.Ranges(), tree.Codec().MustEncode(x, y)))
		}
	}
	for _, r := range res.Inner {
		for k := r.Min.Uint64(); k <= r.Max.Uint64(); k++ {
			c := tree.Codec().Decode(common.KeyOf(k))
			require.True(t, c[0] >= 100 && c[0] <= 200 && c[1] >= 100 && c[1] <= 200)
		}
	}
}

func TestQueryOutsideDomain(t *testing.T) {
	tree := newTree(t, geometry.XY, 10, 1000, 1000)

	beyondDomain := geometry.Box{Min: []uint64{1010, 1010}, Max: []uint64{1020, 1020}}
	beyondKeys := geometry.Box{Min: []uint64{2000, 2000}, Max: []uint64{3000, 3000}}
	poly := geometry.Polygon{Poly: square(-500, -500, -10, -10)}

	for _, s := range []geometry.Shape{beyondDomain, beyondKeys, poly} {
		for _, distinct := range []bool{true, false} {
			res, err := tree.Query(s, QueryOptions{Continuous: true, Distinct: distinct})
			require.NoError(t, err)
			assert.Empty(t, res.Inner)
			assert.Empty(t, res.Boundary)
		}
	}
}

func TestQueryWholeDomainIsOneRange(t *testing.T) {
	tree := newTree(t, geometry.XY, 4)
	box := geometry.Box{Min: []uint64{0, 0}, Max: []uint64{15, 15}}

	res, err := tree.Query(box, QueryOptions{Continuous: true, Distinct: true})
	require.NoError(t, err)
	assert.Equal(t, []common.ZRange{common.NewZRange(0, 255, true)}, res.Inner)
	assert.Empty(t, res.Boundary)
	assert.Equal(t, 1, res.CellsVisited)
}

func TestQueryCollapse(t *testing.T) {
	tree := newTree(t, geometry.XY, 4)
	box := geometry.Box{Min: []uint64{1, 1}, Max: []uint64{14, 14}}

	// All four level-1 children overlap and stop at depth 1, so they fold
	// back into the root.
	res, err := tree.Query(box, QueryOptions{TargetDepth: Depth(1)})
	require.NoError(t, err)
	assert.Equal(t, []common.ZRange{common.NewZRange(0, 255, false)}, res.Boundary)
	assert.Equal(t, 5, res.CellsVisited)

	half := geometry.Box{Min: []uint64{0, 0}, Max: []uint64{15, 7}}
	res, err = tree.Query(half, QueryOptions{TargetDepth: Depth(4), Distinct: true})
	require.NoError(t, err)
	assert.Equal(t, []common.ZRange{common.NewZRange(0, 127, true)}, res.Inner)
	assert.Empty(t, res.Boundary)
}

func TestQueryDepthZeroEmitsRoot(t *testing.T) {
	tree := newTree(t, geometry.XY, 10, 100, 100)
	box := geometry.Box{Min: []uint64{10, 10}, Max: []uint64{20, 20}}

	code, level := tree.Root()
	res, err := tree.Query(box, QueryOptions{Continuous: true, Coarsening: 100})
	require.NoError(t, err)
	require.Len(t, res.Boundary, 1)
	want := tree.Codec().CellRange(code, level)
	assert.Equal(t, want.Min, res.Boundary[0].Min)
	assert.Equal(t, want.Max, res.Boundary[0].Max)
	assert.Equal(t, uint(0), res.Depth)
}

func TestQueryCoarseningReducesRanges(t *testing.T) {
	tree := newTree(t, geometry.XY, 10)
	poly := geometry.Polygon{Poly: orb.Polygon{orb.Ring{
		{120.5, 80.25}, {610.75, 140.5}, {700.25, 600.5}, {300.5, 720.75}, {90.25, 400.5},
	}}}

	prev := -1
	for c := 4; c >= -2; c-- {
		res, err := tree.Query(poly, QueryOptions{Continuous: true, Coarsening: c})
		require.NoError(t, err)
		if prev >= 0 {
			assert.GreaterOrEqual(t, res.Len(), prev, "coarsening %d", c)
		}
		prev = res.Len()
	}
}

func TestQueryCoverageAndExactness(t *testing.T) {
	triangle := orb.Polygon{orb.Ring{{2.5, 3.5}, {28.5, 6.5}, {12.5, 29.5}}}
	holed := append(square(1.5, 1.5, 30.5, 30.5), orb.Ring{{8.25, 9.75}, {22.75, 9.75}, {15.5, 24.25}})
	squareInt := square(3, 5, 21, 17)

	cases := []struct {
		name   string
		layout geometry.Layout
		bits   uint
		bounds []int64
		shape  geometry.Shape
	}{
		{"box 2D", geometry.XY, 5, nil, geometry.Box{Min: []uint64{3, 7}, Max: []uint64{19, 28}}},
		{"box 2D partial domain", geometry.XY, 5, []int64{23, 29}, geometry.Box{Min: []uint64{3, 7}, Max: []uint64{30, 31}}},
		{"triangle", geometry.XY, 5, nil, geometry.Polygon{Poly: triangle}},
		{"polygon with hole", geometry.XY, 5, nil, geometry.Polygon{Poly: holed}},
		{"integer square", geometry.XY, 5, nil, geometry.Polygon{Poly: squareInt}},
		{"circle", geometry.XY, 5, nil, geometry.Sphere{Center: []float64{14.3, 17.8}, Radius: 9.4}},
		{"sphere", geometry.XYZ, 4, nil, geometry.Sphere{Center: []float64{7.3, 8.1, 6.6}, Radius: 5.2}},
		{"cube", geometry.XYZ, 4, nil, geometry.Box{Min: []uint64{1, 2, 3}, Max: []uint64{12, 9, 15}}},
		{"prism", geometry.XYZ, 4, nil, geometry.PolygonWithHeight{Poly: square(2.5, 1.5, 12.5, 13.5), Height: geometry.Closed(3, 9)}},
		{"moving polygon", geometry.XYT, 4, nil, geometry.PolygonWithTime{Poly: square(2.5, 1.5, 12.5, 13.5), Time: geometry.Closed(5, 11)}},
		{"open time", geometry.XYT, 4, nil, geometry.PolygonWithTime{Poly: square(2.5, 1.5, 12.5, 13.5), Time: geometry.From(6)}},
		{"instant", geometry.XYT, 4, nil, geometry.PolygonWithTime{Poly: square(2.5, 1.5, 12.5, 13.5), Time: geometry.Instant(9)}},
		{"tesseract", geometry.XYZT, 3, nil, geometry.Box{Min: []uint64{1, 0, 2, 3}, Max: []uint64{6, 4, 7, 5}}},
		{"prism in time", geometry.XYZT, 3, nil, geometry.PolygonWithHeightAndTime{
			Poly: square(0.5, 1.5, 6.5, 5.5), Height: geometry.Closed(1, 4), Time: geometry.From(2)}},
	}

	variants := []QueryOptions{
		{Continuous: true},
		{Continuous: true, Distinct: true},
		{Continuous: false, Distinct: true},
		{Continuous: true, Coarsening: 2},
		{Continuous: true, Coarsening: -3},
		{Continuous: true, MaxRanges: 3},
		{Continuous: true, MaxRanges: 4, Distinct: true},
		{TargetDepth: Depth(0)},
		{TargetDepth: Depth(2), Distinct: true},
	}

	for _, tc := range cases {
		tree := newTree(t, tc.layout, tc.bits, tc.bounds...)
		for i, opts := range variants {
			t.Run(fmt.Sprintf("%s/%d", tc.name, i), func(t *testing.T) {
				res, err := tree.Query(tc.shape, opts)
				require.NoError(t, err)
				if opts.MaxRanges > 0 {
					assert.LessOrEqual(t, res.Len(), opts.MaxRanges)
				}
				if !opts.Distinct {
					assert.Empty(t, res.Inner)
				}
				checkRanges(t, tree, tc.shape, res)
			})
		}
	}
}

func TestQueryInsideRangesOnlyInDistinctInner(t *testing.T) {
	tree := newTree(t, geometry.XY, 6)
	box := geometry.Box{Min: []uint64{5, 5}, Max: []uint64{50, 40}}

	res, err := tree.Query(box, QueryOptions{Continuous: true, Distinct: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.Inner)
	for _, r := range res.Inner {
		assert.True(t, r.Inside)
	}
	assert.Equal(t, res.Inner, rangeset.MergeConsecutive(res.Inner))
	assert.Equal(t, res.Boundary, rangeset.MergeConsecutive(res.Boundary))
}

func TestQueryMaxRanges(t *testing.T) {
	tree := newTree(t, geometry.XY, 10)
	box := geometry.Box{Min: []uint64{100, 100}, Max: []uint64{200, 200}}

	full, err := tree.Query(box, QueryOptions{TargetDepth: Depth(7), Distinct: true})
	require.NoError(t, err)
	require.Greater(t, full.Len(), 5)

	for _, distinct := range []bool{true, false} {
		res, err := tree.Query(box, QueryOptions{TargetDepth: Depth(7), MaxRanges: 5, Distinct: distinct})
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Len(), 5)
		for x := uint64(100); x <= 200; x += 5 {
			for y := uint64(100); y <= 200; y += 5 {
				require.True(t, covers(res.Ranges(), tree.Codec().MustEncode(x, y)))
			}
		}
	}

	res, err := tree.Query(box, QueryOptions{Continuous: true, MaxRanges: 1})
	require.NoError(t, err)
	require.Len(t, res.Boundary, 1)
}

func TestTargetDepth(t *testing.T) {
	tree := newTree(t, geometry.XY, 10)
	box := geometry.Box{Min: []uint64{100, 100}, Max: []uint64{200, 200}}

	d, err := tree.TargetDepth(box, QueryOptions{Continuous: true})
	require.NoError(t, err)
	assert.Equal(t, uint(4), d)

	d, err = tree.TargetDepth(box, QueryOptions{Continuous: true, Coarsening: 10})
	require.NoError(t, err)
	assert.Equal(t, uint(0), d)

	d, err = tree.TargetDepth(box, QueryOptions{Continuous: true, Coarsening: -20})
	require.NoError(t, err)
	assert.Equal(t, uint(10), d)

	d, err = tree.TargetDepth(box, QueryOptions{TargetDepth: Depth(7), Coarsening: 3})
	require.NoError(t, err)
	assert.Equal(t, uint(7), d, "explicit depths ignore coarsening")

	_, err = tree.TargetDepth(box, QueryOptions{TargetDepth: Depth(11)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDepth))

	_, err = tree.Query(box, QueryOptions{TargetDepth: Depth(11)})
	assert.True(t, errors.Is(err, ErrInvalidDepth))
}

func TestTargetDepthDiscreteAndPolicy(t *testing.T) {
	d, err := NewDomain(geometry.XYT, []int64{1024, 1024, 1024}, 10)
	require.NoError(t, err)
	tree, err := New(d)
	require.NoError(t, err)

	s := geometry.PolygonWithTime{Poly: square(0, 0, 32, 32), Time: geometry.From(0)}

	depth, err := tree.TargetDepth(s, QueryOptions{Continuous: false})
	require.NoError(t, err)
	assert.Equal(t, uint(5), depth)

	depth, err = tree.TargetDepth(s, QueryOptions{Continuous: true})
	require.NoError(t, err)
	assert.Equal(t, uint(4), depth)

	xy, err := NewDomain(geometry.XY, []int64{1024, 1024}, 10)
	require.NoError(t, err)
	binary, err := New(xy, WithDepthPolicy(DepthPolicy{ContinuousBase: 2, ContinuousRound: Floor}))
	require.NoError(t, err)
	box := geometry.Box{Min: []uint64{100, 100}, Max: []uint64{200, 200}}
	depth, err = binary.TargetDepth(box, QueryOptions{Continuous: true})
	require.NoError(t, err)
	assert.Equal(t, uint(6), depth)
}

func TestQueryErrors(t *testing.T) {
	tree := newTree(t, geometry.XY, 8)

	_, err := tree.Query(geometry.PolygonWithTime{Poly: square(0, 0, 4, 4), Time: geometry.Instant(1)}, QueryOptions{})
	assert.True(t, errors.Is(err, geometry.ErrShapeMismatch))

	_, err = tree.Query(geometry.Box{Min: []uint64{4, 4}, Max: []uint64{1, 1}}, QueryOptions{})
	assert.True(t, errors.Is(err, geometry.ErrInvalidShape))

	_, err = tree.Query(geometry.Box{Min: []uint64{1, 1}, Max: []uint64{4, 4}}, QueryOptions{MaxRanges: -1})
	assert.True(t, errors.Is(err, rangeset.ErrInvalidMaxRanges))
}

func TestQueryInstants(t *testing.T) {
	tree := newTree(t, geometry.XYT, 5)
	s := geometry.PolygonWithTime{Poly: square(4.5, 4.5, 20.5, 20.5), Time: geometry.From(0)}

	res, err := tree.QueryInstants(s, 3, 9, QueryOptions{Distinct: true, Coarsening: -4})
	require.NoError(t, err)
	require.NotZero(t, res.Len())

	codec := tree.Codec()
	for x := uint64(5); x <= 20; x++ {
		for y := uint64(5); y <= 20; y++ {
			for _, ts := range []uint64{3, 9} {
				require.True(t, covers(res.Ranges(), codec.MustEncode(x, y, ts)), "(%d,%d,%d)", x, y, ts)
			}
		}
	}
	for _, r := range res.Inner {
		for k := r.Min.Uint64(); k <= r.Max.Uint64(); k++ {
			c := codec.Decode(common.KeyOf(k))
			require.Contains(t, []uint64{3, 9}, c[2])
		}
	}

	capped, err := tree.QueryInstants(s, 3, 9, QueryOptions{MaxRanges: 6})
	require.NoError(t, err)
	assert.LessOrEqual(t, capped.Len(), 6)

	tri := geometry.PolygonWithTime{
		Poly: orb.Polygon{{{1.5, 1.5}, {29.5, 3.5}, {12.5, 27.5}, {1.5, 1.5}}},
		Time: geometry.From(0),
	}
	for _, distinct := range []bool{false, true} {
		for _, m := range []int{1, 2, 3, 5} {
			res, err := tree.QueryInstants(tri, 3, 20, QueryOptions{MaxRanges: m, Coarsening: -2, Distinct: distinct})
			require.NoError(t, err)
			assert.LessOrEqual(t, res.Len(), m, "distinct=%v max=%d", distinct, m)
			assert.NotZero(t, res.Len())
			for _, ts := range []uint64{3, 20} {
				require.True(t, covers(res.Ranges(), codec.MustEncode(10, 8, ts)), "max=%d t=%d", m, ts)
			}
		}
	}

	_, err = tree.QueryInstants(geometry.Polygon{Poly: square(0, 0, 1, 1)}, 1, 2, QueryOptions{})
	assert.True(t, errors.Is(err, geometry.ErrShapeMismatch))
}

func TestQueryConcurrent(t *testing.T) {
	tree := newTree(t, geometry.XYZ, 8)
	s := geometry.Sphere{Center: []float64{100, 120, 90}, Radius: 40}

	want, err := tree.Query(s, QueryOptions{Continuous: true, Distinct: true})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*QueryResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = tree.Query(s, QueryOptions{Continuous: true, Distinct: true})
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}
