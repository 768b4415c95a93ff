// Package chi implements the HTTP API: the search endpoint plus health and
// metrics. Routes are registered on a chi router; middleware is assembled by
// the composition root.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	chiv5 "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hireloop/candex/internal/domain"
	"github.com/hireloop/candex/internal/domain/candidate"
	"github.com/hireloop/candex/internal/domain/query"
	healthuc "github.com/hireloop/candex/internal/usecase/health"
	searchuc "github.com/hireloop/candex/internal/usecase/search"
)

// CacheHeader carries the cache outcome (HIT / MISS / STALE_INVALID).
const CacheHeader = "X-Cache"

// SearchService runs the candidate search pipeline.
type SearchService interface {
	Search(ctx context.Context, q query.Query) (domain.SearchResult, searchuc.CacheStatus, error)
}

// HealthService reports dependency health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server implements the HTTP handlers.
type Server struct {
	search        SearchService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search SearchService, health HealthService, logger *zap.Logger) *Server {
	s := &Server{
		search: search,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUpstreamUnavailable,
			http.StatusServiceUnavailable, "an upstream service is temporarily unavailable, retry later"),
		sentinelHandler(domain.ErrPipelineTimeout,
			http.StatusGatewayTimeout, "search timed out"),
	}
	return s
}

// Routes registers the API endpoints on r.
func (s *Server) Routes(r chiv5.Router) {
	r.Post("/search", s.SearchCandidates)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type searchRequest struct {
	Query   string          `json:"query"`
	Weights *weightsPayload `json:"weights,omitempty"`
}

type weightsPayload struct {
	Skill      float64 `json:"w_skill"`
	Experience float64 `json:"w_experience"`
	Culture    float64 `json:"w_culture"`
}

type searchResponse struct {
	Candidates  []candidate.Scored  `json:"candidates"`
	ParsedQuery *domain.ParsedQuery `json:"parsedQuery,omitempty"`
	Message     string              `json:"message,omitempty"`
}

// SearchCandidates handles POST /search.
func (s *Server) SearchCandidates(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error(), nil)
		return
	}

	var weights *query.Weights
	if req.Weights != nil {
		weights = &query.Weights{
			Skill:      req.Weights.Skill,
			Experience: req.Weights.Experience,
			Culture:    req.Weights.Culture,
		}
	}

	q, err := query.New(req.Query, weights)
	if err != nil {
		var verr *query.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, "invalid search request", verr.Issues())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid search request", nil)
		return
	}

	result, cacheStatus, err := s.search.Search(r.Context(), q)
	if cacheStatus != "" {
		w.Header().Set(CacheHeader, string(cacheStatus))
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Candidates:  result.Candidates,
		ParsedQuery: result.Parsed,
		Message:     result.Message,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error  string   `json:"error"`
	Issues []string `json:"issues,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string, issues []string) {
	writeJSON(w, status, errorResponse{Error: message, Issues: issues})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, message string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, message, nil)
		return true
	}
}

// handleDomainError maps a pipeline failure to its HTTP shape. Only breaker
// opens and the pipeline deadline are user-distinguishable; every other
// internal fault is absorbed into a generic 500 and logged with context.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			s.logger.Warn("search failed", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error", nil)
}
