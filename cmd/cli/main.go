package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"zrange/pkg/api"
	"zrange/pkg/common"
	"zrange/pkg/config"
	"zrange/pkg/rangeset"
	"zrange/pkg/sqlrange"
	"zrange/pkg/ztree"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml config")
	boxArg := flag.String("box", "", "box as min0,min1,...,max0,max1,...")
	sphereArg := flag.String("sphere", "", "sphere as c0,c1,...,radius")
	wktArg := flag.String("wkt", "", "WKT polygon over x and y")
	zmin := flag.Int64("zmin", -1, "height interval min (polygon only)")
	zmax := flag.Int64("zmax", -1, "height interval max, -1 for open")
	tmin := flag.Int64("tmin", -1, "time interval min (polygon only)")
	tmax := flag.Int64("tmax", -1, "time interval max, -1 for open")
	instants := flag.String("instants", "", "query the polygon at two instants t0,t1 only")
	coarsening := flag.Int("coarsening", 0, "levels subtracted from the auto depth")
	maxRanges := flag.Int("max-ranges", -1, "range budget, 0 for no cap, -1 for the config value")
	distinct := flag.Bool("distinct", false, "keep inside and boundary ranges apart")
	discrete := flag.Bool("discrete", false, "use the discrete (instant) auto depth")
	depth := flag.Int("depth", -1, "explicit target depth, -1 for auto")
	column := flag.String("sql", "", "also print a WHERE predicate on this column")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail("load config: %v", err)
	}
	tree, err := cfg.BuildTree(zap.NewNop())
	if err != nil {
		fail("build tree: %v", err)
	}

	req := api.ShapeRequest{WKT: *wktArg}
	if *boxArg != "" {
		vals, err := parseUints(*boxArg)
		if err != nil || len(vals)%2 != 0 {
			fail("bad -box %q", *boxArg)
		}
		req.Box = &api.BoxRequest{Min: vals[:len(vals)/2], Max: vals[len(vals)/2:]}
	}
	if *sphereArg != "" {
		vals, err := parseFloats(*sphereArg)
		if err != nil || len(vals) < 3 {
			fail("bad -sphere %q", *sphereArg)
		}
		req.Sphere = &api.SphereRequest{Center: vals[:len(vals)-1], Radius: vals[len(vals)-1]}
	}
	req.Height = interval(*zmin, *zmax)
	req.Time = interval(*tmin, *tmax)

	shape, err := req.Shape()
	if err != nil {
		fail("%v", err)
	}

	opts := cfg.QueryOptions()
	opts.Coarsening = *coarsening
	opts.Continuous = !*discrete
	opts.Distinct = *distinct
	if *maxRanges >= 0 {
		opts.MaxRanges = *maxRanges
	}
	if *depth >= 0 {
		opts.TargetDepth = ztree.Depth(uint(*depth))
	}

	start := time.Now()
	var res *ztree.QueryResult
	if *instants != "" {
		ts, err := parseUints(*instants)
		if err != nil || len(ts) != 2 {
			fail("bad -instants %q", *instants)
		}
		res, err = tree.QueryInstants(shape, ts[0], ts[1], opts)
		if err != nil {
			fail("%v", err)
		}
	} else {
		res, err = tree.Query(shape, opts)
		if err != nil {
			fail("%v", err)
		}
	}
	took := time.Since(start)

	fmt.Printf("domain %s, depth %d, %d cells visited (%v)\n", tree.Domain(), res.Depth, res.CellsVisited, took)
	if *distinct {
		printRanges("inner", res.Inner)
		printRanges("boundary", res.Boundary)
	} else {
		printRanges("ranges", res.Boundary)
	}

	stats := rangeset.Summarize(res.Ranges())
	fmt.Printf("%d ranges (%d inside), %s keys (%s inside), largest gap %s\n",
		stats.Count, stats.InsideCount, stats.Keys.Dec(), stats.InsideKeys.Dec(), stats.LargestGap.Dec())

	if *column != "" {
		where, args := sqlrange.Where(*column, res.Ranges())
		fmt.Printf("WHERE %s -- %d args\n", where, len(args))
	}
}

func printRanges(title string, ranges []common.ZRange) {
	fmt.Printf("%s:\n", title)
	for _, r := range ranges {
		fmt.Printf("  %s\n", r)
	}
}

func interval(min, max int64) *api.IntervalRequest {
	if min < 0 {
		return nil
	}
	iv := &api.IntervalRequest{Min: uint64(min)}
	if max >= 0 {
		m := uint64(max)
		iv.Max = &m
	}
	return iv
}

func parseUints(s string) ([]uint64, error) {
	var out []uint64
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
