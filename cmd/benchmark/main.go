package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/paulmach/orb/encoding/wkt"
	"go.uber.org/zap"

	"zrange/pkg/common"
	"zrange/pkg/geometry"
	"zrange/pkg/rangeset"
	"zrange/pkg/sqlrange"
	"zrange/pkg/store"
	"zrange/pkg/ztree"
)

const defaultPolygon = "POLYGON((120 80, 860 140, 900 700, 480 930, 90 620, 120 80), (400 400, 600 400, 600 600, 400 600, 400 400))"

func main() {
	nPoints := flag.Int("n", 200000, "number of random records")
	bits := flag.Uint("bits", 10, "bits per axis")
	polyWKT := flag.String("wkt", defaultPolygon, "query polygon")
	zmin := flag.Uint64("zmin", 100, "height min")
	zmax := flag.Uint64("zmax", 700, "height max")
	from := flag.Int("from", -4, "first coarsening level")
	to := flag.Int("to", 6, "last coarsening level")
	maxRanges := flag.Int("max-ranges", 0, "range budget, 0 for no cap")
	withSQL := flag.Bool("sqlite", false, "also run each range list as a SQLite predicate")
	flag.Parse()

	poly, err := wkt.UnmarshalPolygon(*polyWKT)
	if err != nil {
		log.Fatalf("parse wkt: %v", err)
	}
	shape := geometry.PolygonWithHeight{Poly: poly, Height: geometry.Closed(*zmin, *zmax)}

	domain, err := ztree.FullDomain(geometry.XYZ, *bits)
	if err != nil {
		log.Fatalf("domain: %v", err)
	}
	tree, err := ztree.New(domain)
	if err != nil {
		log.Fatalf("tree: %v", err)
	}

	fmt.Printf("zrange coarsening sweep (N=%d, domain %s)\n", *nPoints, domain)
	fmt.Println("---------------------------------------------------")

	idx := store.NewIndex(tree.Codec(), 32)
	rng := rand.New(rand.NewSource(1))
	side := int64(1) << *bits
	points := make([][]uint64, 0, *nPoints)
	for i := 0; i < *nPoints; i++ {
		p := []uint64{uint64(rng.Int63n(side)), uint64(rng.Int63n(side)), uint64(rng.Int63n(side))}
		if _, err := idx.Put(p, nil); err != nil {
			log.Fatalf("put: %v", err)
		}
		points = append(points, p)
	}

	var validator *sqlrange.Validator
	if *withSQL {
		validator, err = sqlrange.NewValidator(":memory:", tree.Codec(), zap.NewNop())
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		defer validator.Close()
		if err := validator.LoadPoints(points); err != nil {
			log.Fatalf("load: %v", err)
		}
	}

	expected := 0
	idx.Iterator(func(key common.Key, _ []byte) bool {
		if geometry.ContainsPoint(shape, idx.Coords(key)) {
			expected++
		}
		return true
	})
	fmt.Printf("%d distinct records, %d in the shape\n\n", idx.Len(), expected)
	fmt.Printf("%6s %6s %8s %8s %10s %10s %8s %12s\n", "coarse", "depth", "ranges", "cells", "candidates", "inside", "fp%", "time")

	for c := *from; c <= *to; c++ {
		opts := ztree.QueryOptions{Coarsening: c, Continuous: true, MaxRanges: *maxRanges}
		start := time.Now()
		res, err := tree.Query(shape, opts)
		if err != nil {
			log.Fatalf("query: %v", err)
		}
		took := time.Since(start)

		ranges := res.Ranges()
		cands := idx.ScanRanges(ranges)
		inside, falsePos := 0, 0
		for _, cand := range cands {
			if cand.Inside {
				inside++
				continue
			}
			if !geometry.ContainsPoint(shape, idx.Coords(cand.Key)) {
				falsePos++
			}
		}
		fp := 0.0
		if len(cands) > 0 {
			fp = 100 * float64(falsePos) / float64(len(cands))
		}
		fmt.Printf("%6d %6d %8d %8d %10d %10d %7.2f%% %12v\n",
			c, res.Depth, len(ranges), res.CellsVisited, len(cands), inside, fp, took)

		if validator != nil {
			rep, err := validator.Validate(shape, ranges)
			if err != nil {
				log.Fatalf("validate: %v", err)
			}
			// records on a polygon edge may be missed; inside ranges never hold misses
			fmt.Printf("%6s sqlite: %d candidates, %d matches, %d missed, %d inside misses\n",
				"", rep.Candidates, rep.Matches, rep.Missed(), rep.InsideMisses)
		}
	}

	fmt.Println("---------------------------------------------------")
	res, err := tree.Query(shape, ztree.QueryOptions{Continuous: true})
	if err != nil {
		log.Fatalf("query: %v", err)
	}
	stats := rangeset.Summarize(res.Ranges())
	fmt.Printf("auto depth %d: %d ranges cover %s keys, largest gap %s\n",
		res.Depth, stats.Count, stats.Keys.Dec(), stats.LargestGap.Dec())
}
