package monitor

import (
	"sync/atomic"
)

// QueryStats counts the work done by range queries. Safe for concurrent use.
type QueryStats struct {
	QueryCount  uint64
	ErrorCount  uint64
	RangeCount  uint64
	InsideCount uint64
	CellCount   uint64
}

func NewQueryStats() *QueryStats {
	return &QueryStats{}
}

func (qs *QueryStats) RecordQuery(ranges, inside, cells int) {
	atomic.AddUint64(&qs.QueryCount, 1)
	atomic.AddUint64(&qs.RangeCount, uint64(ranges))
	atomic.AddUint64(&qs.InsideCount, uint64(inside))
	atomic.AddUint64(&qs.CellCount, uint64(cells))
}

func (qs *QueryStats) RecordError() {
	atomic.AddUint64(&qs.ErrorCount, 1)
}

// Snapshot is a point-in-time copy of QueryStats.
type Snapshot struct {
	Queries      uint64  `json:"queries"`
	Errors       uint64  `json:"errors"`
	Ranges       uint64  `json:"ranges"`
	InsideRanges uint64  `json:"inside_ranges"`
	CellsVisited uint64  `json:"cells_visited"`
	AvgRanges    float64 `json:"avg_ranges"`
	InsideRatio  float64 `json:"inside_ratio"`
}

func (qs *QueryStats) Snapshot() Snapshot {
	s := Snapshot{
		Queries:      atomic.LoadUint64(&qs.QueryCount),
		Errors:       atomic.LoadUint64(&qs.ErrorCount),
		Ranges:       atomic.LoadUint64(&qs.RangeCount),
		InsideRanges: atomic.LoadUint64(&qs.InsideCount),
		CellsVisited: atomic.LoadUint64(&qs.CellCount),
	}
	if s.Queries > 0 {
		s.AvgRanges = float64(s.Ranges) / float64(s.Queries)
	}
	if s.Ranges > 0 {
		s.InsideRatio = float64(s.InsideRanges) / float64(s.Ranges)
	}
	return s
}
