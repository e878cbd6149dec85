package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/hazyhaar/constats/pkg/category"
	"github.com/hazyhaar/constats/pkg/constat"
	"github.com/hazyhaar/constats/pkg/gazetteer"
	"github.com/hazyhaar/constats/pkg/kit"
	"github.com/hazyhaar/constats/pkg/match"
)

// Shared request/response types used by both HTTP and MCP transports.

type matchReq struct {
	Name string
}

type batchReq struct {
	Names []string
}

type batchResponse struct {
	Results []match.Result `json:"results"`
	Matched int            `json:"matched"`
}

type normalizeReq struct {
	Species       string `json:"elevage"`
	Conclusion    string `json:"conclusion"`
	Indemnisation string `json:"indemnisation,omitempty"`
	Date          string `json:"date,omitempty"`
}

type normalizeResponse struct {
	Species  string `json:"species"`
	CTechNew string `json:"c_tech_new"`
	Color    string `json:"color"`
	Shape    string `json:"shape"`
	MonthKey string `json:"month_key,omitempty"`
	DateErr  string `json:"date_error,omitempty"`
}

type communeReq struct {
	Code     string
	Geometry bool
}

type communeResponse struct {
	Code       string            `json:"code"`
	Name       string            `json:"name"`
	Department string            `json:"department,omitempty"`
	Geometry   *geojson.Geometry `json:"geometry,omitempty"`
	Gazetteer  string            `json:"gazetteer,omitempty"`
}

type infoResponse struct {
	Gazetteer gazetteer.Info `json:"gazetteer"`
}

// endpoints holds the instrumented kit.Endpoints shared by HTTP and MCP.
type endpoints struct {
	match     kit.Endpoint
	batch     kit.Endpoint
	normalize kit.Endpoint
	commune   kit.Endpoint
	info      kit.Endpoint
}

func newEndpoints(svc *Service, m *Metrics, opts Options) *endpoints {
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(
			kit.RequestID(),
			kit.Logging(opts.logger(), name),
			kit.Observe(m.observe, name),
		)(ep)
	}
	return &endpoints{
		match:     wrap("match", matchEndpoint(svc, m)),
		batch:     wrap("match_batch", batchEndpoint(svc, m)),
		normalize: wrap("normalize", normalizeEndpoint()),
		commune:   wrap("commune", communeEndpoint(svc)),
		info:      wrap("info", infoEndpoint(svc)),
	}
}

func matchEndpoint(svc *Service, metrics *Metrics) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*matchReq)
		if strings.TrimSpace(req.Name) == "" {
			return nil, fmt.Errorf("%w: missing name", ErrInvalidRequest)
		}
		m, err := svc.Matcher()
		if err != nil {
			return nil, err
		}
		res := m.Match(req.Name)
		metrics.recordMatch(res)
		return res, nil
	}
}

func batchEndpoint(svc *Service, metrics *Metrics) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*batchReq)
		if len(req.Names) == 0 {
			return nil, fmt.Errorf("%w: names array is empty", ErrInvalidRequest)
		}
		if len(req.Names) > MaxBatch {
			return nil, fmt.Errorf("%w: too many names (max %d, got %d)", ErrInvalidRequest, MaxBatch, len(req.Names))
		}
		m, err := svc.Matcher()
		if err != nil {
			return nil, err
		}
		resp := batchResponse{Results: make([]match.Result, len(req.Names))}
		for i, name := range req.Names {
			res := m.Match(name)
			metrics.recordMatch(res)
			if res.Matched() {
				resp.Matched++
			}
			resp.Results[i] = res
		}
		return resp, nil
	}
}

func normalizeEndpoint() kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*normalizeReq)
		n := constat.Normalize(constat.Record{
			Species:       req.Species,
			Conclusion:    req.Conclusion,
			Indemnisation: req.Indemnisation,
			Date:          strings.TrimSpace(req.Date),
		})
		style := category.StyleFor(n.CTechNew, n.Category)
		resp := normalizeResponse{
			Species:  n.Category,
			CTechNew: n.CTechNew,
			Color:    style.Color,
			Shape:    style.Shape,
		}
		switch {
		case n.Dated:
			resp.MonthKey = n.Period.String()
		case req.Date != "":
			resp.DateErr = n.DateErr.Error()
		}
		return resp, nil
	}
}

func communeEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*communeReq)
		idx, err := svc.Index()
		if err != nil {
			return nil, err
		}
		e, ok := idx.Lookup(strings.TrimSpace(req.Code))
		if !ok {
			return nil, fmt.Errorf("%w: commune %q", ErrNotFound, req.Code)
		}
		resp := communeResponse{
			Code:       e.Code,
			Name:       e.Name,
			Department: e.Department,
			Gazetteer:  idx.Info().ID,
		}
		if req.Geometry && e.Boundary != nil {
			resp.Geometry = geojson.NewGeometry(e.Boundary)
		}
		return resp, nil
	}
}

func infoEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		idx, err := svc.Index()
		if err != nil {
			return nil, err
		}
		return infoResponse{Gazetteer: idx.Info()}, nil
	}
}
