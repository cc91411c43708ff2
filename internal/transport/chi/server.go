// Package chi is the JSON HTTP layer of the API, routed with go-chi.
package chi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	gochi "github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinemuse/internal/domain"
	dommedia "github.com/kailas-cloud/cinemuse/internal/domain/media"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/request"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/cinemuse/internal/usecase/health"
	"github.com/kailas-cloud/cinemuse/internal/validation"
)

const maxBodyBytes = 1 << 20

// SearchService runs memory and similar-items searches.
type SearchService interface {
	MemorySearch(ctx context.Context, req *request.Memory) ([]result.Result, error)
	Similar(ctx context.Context, req *request.Similar) ([]result.Result, error)
}

// MediaService creates and reads corpus items.
type MediaService interface {
	Create(ctx context.Context, d dommedia.Draft) (*dommedia.Item, error)
	Get(ctx context.Context, id string) (*dommedia.Item, error)
	Search(ctx context.Context, query string, typ dommedia.Type, limit, offset int) (dommedia.Page, error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	search        SearchService
	media         MediaService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search SearchService, media MediaService, health HealthService, logger *zap.Logger) *Server {
	return &Server{
		search:        search,
		media:         media,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r gochi.Router) {
		r.Post("/search/memory", s.MemorySearch)
		r.Post("/media", s.CreateMedia)
		r.Get("/media/search", s.SearchMedia)
		r.Get("/media/{id}", s.GetMedia)
		r.Get("/media/{id}/similar", s.SimilarMedia)
	})
}

// MemorySearch handles POST /api/v1/search/memory.
func (s *Server) MemorySearch(w http.ResponseWriter, r *http.Request) {
	var body MemorySearchRequest
	if !s.decode(w, r, &body) {
		return
	}

	req, err := request.NewMemory(body.Query, dommedia.Type(body.Type), orDefault(body.Limit))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	results, err := s.search.MemorySearch(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MemorySearchResponse{
		Query:   req.Query(),
		Results: resultsToV1(results),
		Count:   len(results),
	})
}

// SimilarMedia handles GET /api/v1/media/{id}/similar.
func (s *Server) SimilarMedia(w http.ResponseWriter, r *http.Request) {
	params, err := parseSimilarParams(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	req, err := request.NewSimilar(gochi.URLParam(r, "id"), orDefault(params.Limit), params.CrossMedia)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	results, err := s.search.Similar(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SimilarResponse{Similar: resultsToV1(results)})
}

// CreateMedia handles POST /api/v1/media.
func (s *Server) CreateMedia(w http.ResponseWriter, r *http.Request) {
	var body CreateMediaRequest
	if !s.decode(w, r, &body) {
		return
	}

	item, err := s.media.Create(r.Context(), body.toDraft())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/media/"+item.ID())
	writeJSON(w, http.StatusCreated, mediaToV1(item))
}

// GetMedia handles GET /api/v1/media/{id}.
func (s *Server) GetMedia(w http.ResponseWriter, r *http.Request) {
	item, err := s.media.Get(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mediaToV1(item))
}

// SearchMedia handles GET /api/v1/media/search.
func (s *Server) SearchMedia(w http.ResponseWriter, r *http.Request) {
	params, err := parseMediaSearchParams(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	limit := orDefault(params.Limit)
	page, err := s.media.Search(r.Context(), params.Query, dommedia.Type(params.Type), limit, params.Offset)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]MediaV1, len(page.Items))
	for i := range page.Items {
		items[i] = mediaToV1(&page.Items[i])
	}
	if limit == 0 {
		limit = len(items)
	}
	writeJSON(w, http.StatusOK, MediaPageResponse{
		Items:  items,
		Total:  page.Total,
		Limit:  limit,
		Offset: params.Offset,
	})
}

// HealthCheck handles GET /health. Degraded still answers 200; search keeps working on fallbacks.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

// decode reads and validates a JSON body. It writes the error response itself.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := validation.Struct(v); err != nil {
		s.handleDomainError(w, r, err)
		return false
	}
	return true
}

func parseSimilarParams(r *http.Request) (SimilarParams, error) {
	q := r.URL.Query()
	p := SimilarParams{CrossMedia: true}

	var err error
	if p.Limit, err = optionalIntParam(q.Get("limit"), "limit"); err != nil {
		return SimilarParams{}, err
	}
	if v := q.Get("crossMedia"); v != "" {
		if p.CrossMedia, err = strconv.ParseBool(v); err != nil {
			return SimilarParams{}, fmt.Errorf("%w: crossMedia must be a boolean", domain.ErrInput)
		}
	}
	if err := validation.Struct(&p); err != nil {
		return SimilarParams{}, err
	}
	return p, nil
}

func parseMediaSearchParams(r *http.Request) (MediaSearchParams, error) {
	q := r.URL.Query()
	p := MediaSearchParams{Query: q.Get("q"), Type: q.Get("type")}

	var err error
	if p.Limit, err = optionalIntParam(q.Get("limit"), "limit"); err != nil {
		return MediaSearchParams{}, err
	}
	if p.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return MediaSearchParams{}, err
	}
	if err := validation.Struct(&p); err != nil {
		return MediaSearchParams{}, err
	}
	return p, nil
}

// intParam parses an optional integer query parameter; empty means 0.
func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInput, name)
	}
	return n, nil
}

// optionalIntParam is intParam that keeps "absent" apart from an explicit 0.
func optionalIntParam(v, name string) (*int, error) {
	if v == "" {
		return nil, nil //nolint:nilnil // absent parameter
	}
	n, err := intParam(v, name)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
