package api

import (
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"

	"zrange/pkg/common"
	"zrange/pkg/geometry"
	"zrange/pkg/ztree"
)

type BoxRequest struct {
	Min []uint64 `json:"min"`
	Max []uint64 `json:"max"`
}

type SphereRequest struct {
	Center []float64 `json:"center"`
	Radius float64   `json:"radius"`
}

// IntervalRequest is an inclusive interval; a missing max leaves it open.
type IntervalRequest struct {
	Min uint64  `json:"min"`
	Max *uint64 `json:"max,omitempty"`
}

func (iv *IntervalRequest) interval() geometry.Interval {
	if iv.Max == nil {
		return geometry.From(iv.Min)
	}
	return geometry.Closed(iv.Min, *iv.Max)
}

// InstantsRequest asks for the shape at two instants only.
type InstantsRequest struct {
	T0 uint64 `json:"t0"`
	T1 uint64 `json:"t1"`
}

// ShapeRequest describes one query shape. Exactly one of Box, Sphere and
// WKT is set; Height and Time only apply to a WKT polygon.
type ShapeRequest struct {
	Box    *BoxRequest      `json:"box,omitempty"`
	Sphere *SphereRequest   `json:"sphere,omitempty"`
	WKT    string           `json:"wkt,omitempty"`
	Height *IntervalRequest `json:"height,omitempty"`
	Time   *IntervalRequest `json:"time,omitempty"`
}

func (r *ShapeRequest) Shape() (geometry.Shape, error) {
	set := 0
	if r.Box != nil {
		set++
	}
	if r.Sphere != nil {
		set++
	}
	if r.WKT != "" {
		set++
	}
	if set != 1 {
		return nil, errors.Wrap(geometry.ErrInvalidShape, "need exactly one of box, sphere or wkt")
	}

	var s geometry.Shape
	switch {
	case r.Box != nil:
		s = geometry.Box{Min: r.Box.Min, Max: r.Box.Max}
	case r.Sphere != nil:
		s = geometry.Sphere{Center: r.Sphere.Center, Radius: r.Sphere.Radius}
	default:
		poly, err := wkt.UnmarshalPolygon(r.WKT)
		if err != nil {
			return nil, errors.Wrapf(geometry.ErrInvalidShape, "wkt: %v", err)
		}
		switch {
		case r.Height != nil && r.Time != nil:
			s = geometry.PolygonWithHeightAndTime{Poly: poly, Height: r.Height.interval(), Time: r.Time.interval()}
		case r.Height != nil:
			s = geometry.PolygonWithHeight{Poly: poly, Height: r.Height.interval()}
		case r.Time != nil:
			s = geometry.PolygonWithTime{Poly: poly, Time: r.Time.interval()}
		default:
			s = geometry.Polygon{Poly: poly}
		}
	}
	if r.WKT == "" && (r.Height != nil || r.Time != nil) {
		return nil, errors.Wrap(geometry.ErrInvalidShape, "height and time need a wkt polygon")
	}
	return s, geometry.Validate(s)
}

// RangesRequest is the body of POST /api/ranges.
type RangesRequest struct {
	ShapeRequest
	Instants   *InstantsRequest `json:"instants,omitempty"`
	Discrete   bool             `json:"discrete,omitempty"`
	Coarsening *int             `json:"coarsening,omitempty"`
	MaxRanges  *int             `json:"max_ranges,omitempty"`
	Distinct   *bool            `json:"distinct,omitempty"`
	Depth      *uint            `json:"depth,omitempty"`
}

// options overlays the request on the server defaults.
func (r *RangesRequest) options(defaults ztree.QueryOptions) ztree.QueryOptions {
	opts := defaults
	opts.Continuous = !r.Discrete
	if r.Coarsening != nil {
		opts.Coarsening = *r.Coarsening
	}
	if r.MaxRanges != nil {
		opts.MaxRanges = *r.MaxRanges
	}
	if r.Distinct != nil {
		opts.Distinct = *r.Distinct
	}
	if r.Depth != nil {
		opts.TargetDepth = ztree.Depth(*r.Depth)
	}
	return opts
}

type RangeResponse struct {
	Min    string `json:"min"`
	Max    string `json:"max"`
	Inside bool   `json:"inside"`
}

type RangesResponse struct {
	ID           string          `json:"id"`
	Depth        uint            `json:"depth"`
	CellsVisited int             `json:"cells_visited"`
	Inner        []RangeResponse `json:"inner"`
	Boundary     []RangeResponse `json:"boundary"`
	LatencyNs    int64           `json:"latency_ns"`
}

func toResponse(ranges []common.ZRange) []RangeResponse {
	out := make([]RangeResponse, len(ranges))
	for i, r := range ranges {
		out[i] = RangeResponse{Min: r.Min.Dec(), Max: r.Max.Dec(), Inside: r.Inside}
	}
	return out
}
