package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/newsdesk/internal/analysis"
	"github.com/kalambet/newsdesk/internal/insights"
)

// DefaultTimeout bounds a single request. An analysis may try three models.
const DefaultTimeout = 5 * time.Minute

const maxQueryLen = 2000

// Analyzer answers market questions.
type Analyzer interface {
	Analyze(ctx context.Context, query, sector string) analysis.Analysis
	SectorAnalysis(ctx context.Context, sector string) analysis.Analysis
	MultiSectorAnalysis(ctx context.Context) analysis.MultiSector
}

// Insights serves the read-only snapshots.
type Insights interface {
	Summary(ctx context.Context) insights.Summary
	Documents(ctx context.Context, limit, offset int) []insights.DocumentView
	History(ctx context.Context, limit, days int) []insights.HistoryEntry
	Insights(ctx context.Context, days int) insights.Insights
	Performance(ctx context.Context) insights.Performance
}

// Ingester runs one ingestion cycle on demand.
type Ingester interface {
	RunCycle(ctx context.Context) (int, error)
}

// Deps holds dependencies for the HTTP API.
type Deps struct {
	Analyzer Analyzer
	Insights Insights
	Ingester Ingester // optional; if nil, POST /api/rag/ingest returns 503
	// Ping reports whether storage is reachable. Optional.
	Ping    func() error
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewRouter builds the HTTP handler for the newsdesk API.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(deps.Timeout))
	r.Use(requestLogger(deps.Logger))

	r.Get("/health", handleHealth(deps))

	r.Route("/api/rag", func(r chi.Router) {
		r.Get("/summary", handleSummary(deps))
		r.Get("/documents", handleDocuments(deps))
		r.Get("/analysis", handleAnalysis(deps))
		r.Get("/analysis/sectors", handleMultiSector(deps))
		r.Get("/analysis/sector/{sector}", handleSectorAnalysis(deps))
		r.Get("/history", handleHistory(deps))
		r.Get("/insights", handleInsights(deps))
		r.Get("/performance", handlePerformance(deps))
		r.Post("/ingest", handleIngest(deps))
	})

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// parseIntParam reads a non-negative integer query parameter. Missing or
// malformed values yield defaultVal; values above maxVal are clamped.
func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
