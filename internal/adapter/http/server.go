// Package http exposes the lab over HTTP: operational endpoints, a JSON API
// for the board and its history, rendered plot and report downloads, and a
// Server-Sent Events stream of evaluations.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weir-rating-lab/internal/board"
	"github.com/couchcryptid/weir-rating-lab/internal/config"
	"github.com/couchcryptid/weir-rating-lab/internal/domain"
	"github.com/couchcryptid/weir-rating-lab/internal/observability"
	"github.com/couchcryptid/weir-rating-lab/internal/render"
	"github.com/couchcryptid/weir-rating-lab/internal/store"
)

// Board is the reactive core the API drives.
type Board interface {
	Apply(ctx context.Context, patch domain.Patch) (board.ApplyResult, error)
	Current() domain.Evaluation
	Params() domain.Params
	Bounds() domain.Bounds
	Sampling() domain.Sampling
	Subscribe(buffer int) (<-chan domain.Evaluation, func())
	CheckReadiness(ctx context.Context) error
}

// History is the persistence surface the API reads and writes.
type History interface {
	RecentEvaluations(ctx context.Context, limit int) ([]store.EvaluationRecord, error)
	SavePreset(ctx context.Context, name string, params domain.Params, now time.Time) error
	GetPreset(ctx context.Context, name string) (store.Preset, error)
	ListPresets(ctx context.Context) ([]store.Preset, error)
	DeletePreset(ctx context.Context, name string) error
}

// Server exposes the lab API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	board      Board
	history    History
	cache      *render.Cache
	limiter    *ipRateLimiter
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer wires all routes. The render cache is sized for a classroom's
// worth of distinct parameter sets per artifact format.
func NewServer(cfg *config.Config, b Board, history History, logger *slog.Logger, metrics *observability.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           mux,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
			// No WriteTimeout: /api/v1/stream holds its connection open.
		},
		board:   b,
		history: history,
		cache:   render.NewCache(64),
		limiter: newIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		logger:  logger,
		metrics: metrics,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(b))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/params", s.api(s.handleGetParams))
	mux.HandleFunc("PUT /api/v1/params", s.api(s.handleApplyParams))
	mux.HandleFunc("PATCH /api/v1/params", s.api(s.handleApplyParams))
	mux.HandleFunc("GET /api/v1/bounds", s.api(s.handleBounds))
	mux.HandleFunc("GET /api/v1/curve", s.api(s.handleCurve))
	mux.HandleFunc("GET /api/v1/curve.csv", s.api(s.handleCurveCSV))
	mux.HandleFunc("GET /api/v1/curve.xlsx", s.api(s.handleCurveXLSX))
	mux.HandleFunc("GET /api/v1/plot.png", s.api(s.handlePlotPNG))
	mux.HandleFunc("GET /api/v1/plot.svg", s.api(s.handlePlotSVG))
	mux.HandleFunc("GET /api/v1/report.pdf", s.api(s.handleReportPDF))
	mux.HandleFunc("GET /api/v1/stream", s.api(s.handleStream))
	mux.HandleFunc("GET /api/v1/history", s.api(s.handleHistory))
	mux.HandleFunc("GET /api/v1/presets", s.api(s.handleListPresets))
	mux.HandleFunc("POST /api/v1/presets", s.api(s.handleSavePreset))
	mux.HandleFunc("POST /api/v1/presets/{name}/apply", s.api(s.handleApplyPreset))
	mux.HandleFunc("DELETE /api/v1/presets/{name}", s.api(s.handleDeletePreset))
	mux.HandleFunc("OPTIONS /api/v1/", s.handlePreflight)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// api wraps an API handler with CORS headers and the per-IP rate limiter.
func (s *Server) api(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		if !s.limiter.allow(r) {
			s.metrics.RateLimited.Inc()
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	setCORS(w)
	w.WriteHeader(http.StatusNoContent)
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// evaluationSummary is the API shape of an evaluation with the curve omitted;
// clients fetch samples from /api/v1/curve or the stream.
type evaluationSummary struct {
	ID            string          `json:"id"`
	Params        domain.Params   `json:"params"`
	Sampling      domain.Sampling `json:"sampling"`
	PeakDischarge float64         `json:"peak_discharge"`
	EvaluatedAt   time.Time       `json:"evaluated_at"`
}

func summarize(eval domain.Evaluation) evaluationSummary {
	return evaluationSummary{
		ID:            eval.ID,
		Params:        eval.Params,
		Sampling:      eval.Sampling,
		PeakDischarge: eval.Peak.Discharge,
		EvaluatedAt:   eval.EvaluatedAt,
	}
}

func (s *Server) handleGetParams(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.board.Params())
}

type applyResponse struct {
	Evaluation evaluationSummary `json:"evaluation"`
	Clamped    []string          `json:"clamped,omitempty"`
	Changed    bool              `json:"changed"`
}

func (s *Server) handleApplyParams(w http.ResponseWriter, r *http.Request) {
	var patch domain.Patch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed patch: " + err.Error()})
		return
	}

	res, err := s.board.Apply(r.Context(), patch)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidParameter) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		s.logger.Error("apply params failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "apply failed"})
		return
	}

	writeJSON(w, http.StatusOK, applyResponse{
		Evaluation: summarize(res.Evaluation),
		Clamped:    res.Clamped,
		Changed:    res.Changed,
	})
}

type boundsResponse struct {
	Bounds   domain.Bounds   `json:"bounds"`
	Sampling domain.Sampling `json:"sampling"`
	Defaults domain.Params   `json:"defaults"`
}

func (s *Server) handleBounds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, boundsResponse{
		Bounds:   s.board.Bounds(),
		Sampling: s.board.Sampling(),
		Defaults: domain.DefaultParams(),
	})
}

func (s *Server) handleCurve(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.board.Current())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, 500)
	}

	records, err := s.history.RecentEvaluations(r.Context(), limit)
	if err != nil {
		s.logger.Error("query history failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	if records == nil {
		records = []store.EvaluationRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
