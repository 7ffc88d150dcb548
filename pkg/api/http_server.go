package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"zrange/pkg/geometry"
	"zrange/pkg/monitor"
	"zrange/pkg/rangeset"
	"zrange/pkg/ztree"
)

// maxBodyBytes bounds a request body; WKT polygons are otherwise unbounded.
const maxBodyBytes = 1 << 20

type Server struct {
	tree     *ztree.Tree
	defaults ztree.QueryOptions
	stats    *monitor.QueryStats
	metrics  *monitor.Metrics
	logger   *zap.Logger
}

func NewServer(tree *ztree.Tree, defaults ztree.QueryOptions, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		tree:     tree,
		defaults: defaults,
		stats:    monitor.NewQueryStats(),
		metrics:  monitor.NewMetrics(),
		logger:   logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ranges", s.handleRanges)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/metrics", s.handleMetrics)
	return mux
}

func (s *Server) Start(addr string) error {
	s.logger.Info("server listening",
		zap.String("addr", addr),
		zap.Stringer("domain", s.tree.Domain()))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleRanges(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RangesRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	logger := s.logger.With(zap.String("query_id", id))

	start := time.Now()
	res, mode, err := s.query(&req)
	duration := time.Since(start)
	if err != nil {
		s.stats.RecordError()
		s.metrics.ObserveError(errorType(err))
		logger.Warn("query failed", zap.Error(err))
		http.Error(w, err.Error(), statusOf(err))
		return
	}

	inside := 0
	for _, rg := range res.Ranges() {
		if rg.Inside {
			inside++
		}
	}
	s.stats.RecordQuery(res.Len(), inside, res.CellsVisited)
	s.metrics.ObserveQuery(mode, res.Len(), res.CellsVisited, res.Depth, duration.Seconds())
	logger.Debug("query served",
		zap.String("mode", mode),
		zap.Int("ranges", res.Len()),
		zap.Int("cells_visited", res.CellsVisited),
		zap.Duration("latency", duration))

	resp := RangesResponse{
		ID:           id,
		Depth:        res.Depth,
		CellsVisited: res.CellsVisited,
		Inner:        toResponse(res.Inner),
		Boundary:     toResponse(res.Boundary),
		LatencyNs:    duration.Nanoseconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) query(req *RangesRequest) (*ztree.QueryResult, string, error) {
	shape, err := req.Shape()
	if err != nil {
		return nil, "", err
	}
	opts := req.options(s.defaults)
	if req.Instants != nil {
		res, err := s.tree.QueryInstants(shape, req.Instants.T0, req.Instants.T1, opts)
		return res, "instants", err
	}
	mode := "continuous"
	if !opts.Continuous {
		mode = "discrete"
	}
	res, err := s.tree.Query(shape, opts)
	return res, mode, err
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")

	resp := map[string]interface{}{
		"domain":  s.tree.Domain().String(),
		"queries": s.stats.Snapshot(),
	}
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, geometry.ErrInvalidShape),
		errors.Is(err, geometry.ErrShapeMismatch),
		errors.Is(err, ztree.ErrInvalidDepth),
		errors.Is(err, rangeset.ErrInvalidMaxRanges):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorType(err error) string {
	switch {
	case errors.Is(err, geometry.ErrInvalidShape):
		return "invalid_shape"
	case errors.Is(err, geometry.ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, ztree.ErrInvalidDepth):
		return "invalid_depth"
	case errors.Is(err, rangeset.ErrInvalidMaxRanges):
		return "invalid_max_ranges"
	}
	return "internal"
}
