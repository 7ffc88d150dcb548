package monitor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryStatsSnapshot(t *testing.T) {
	qs := NewQueryStats()
	assert.Equal(t, Snapshot{}, qs.Snapshot())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			qs.RecordQuery(10, 4, 100)
		}()
	}
	wg.Wait()
	qs.RecordError()

	s := qs.Snapshot()
	assert.Equal(t, uint64(8), s.Queries)
	assert.Equal(t, uint64(1), s.Errors)
	assert.Equal(t, uint64(80), s.Ranges)
	assert.Equal(t, uint64(800), s.CellsVisited)
	assert.InDelta(t, 10.0, s.AvgRanges, 1e-9)
	assert.InDelta(t, 0.4, s.InsideRatio, 1e-9)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveQuery("continuous", 12, 300, 9, 0.002)
	m.ObserveQuery("instants", 3, 40, 5, 0.001)
	m.ObserveError("shape_mismatch")

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	got := map[string]int{}
	for _, mf := range families {
		got[mf.GetName()] = len(mf.GetMetric())
	}
	assert.Equal(t, 2, got["zrange_queries_total"])
	assert.Equal(t, 1, got["zrange_query_errors_total"])
	assert.Equal(t, 1, got["zrange_query_ranges"])
	assert.Equal(t, 1, got["zrange_query_duration_seconds"])

	// a second registry must not clash with the first
	assert.NotPanics(t, func() { NewMetrics() })
}
