package api

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
)

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Ping != nil {
			if err := deps.Ping(); err != nil {
				deps.Logger.Warn("health check: storage unreachable", "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				writeJSON(w, map[string]string{"status": "unhealthy", "storage": err.Error()})
				return
			}
		}
		writeJSON(w, map[string]string{"status": "healthy"})
	}
}

func handleSummary(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, deps.Insights.Summary(r.Context()))
	}
}

func handleDocuments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)
		writeJSON(w, deps.Insights.Documents(r.Context(), limit, offset))
	}
}

func handleAnalysis(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("query"))
		if utf8.RuneCountInString(query) > maxQueryLen {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query exceeds %d characters", maxQueryLen)
			return
		}
		sector := r.URL.Query().Get("sector")
		writeJSON(w, deps.Analyzer.Analyze(r.Context(), query, sector))
	}
}

func handleSectorAnalysis(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sector := strings.TrimSpace(chi.URLParam(r, "sector"))
		if sector == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "sector is required")
			return
		}
		writeJSON(w, deps.Analyzer.SectorAnalysis(r.Context(), sector))
	}
}

func handleMultiSector(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, deps.Analyzer.MultiSectorAnalysis(r.Context()))
	}
}

func handleHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 200)
		days := parseIntParam(r, "days", 7, 365)
		writeJSON(w, deps.Insights.History(r.Context(), limit, days))
	}
}

func handleInsights(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := parseIntParam(r, "days", 30, 365)
		writeJSON(w, deps.Insights.Insights(r.Context(), days))
	}
}

func handlePerformance(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, deps.Insights.Performance(r.Context()))
	}
}

func handleIngest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Ingester == nil {
			httpError(w, http.StatusServiceUnavailable, "unavailable_error", "ingestion is not configured")
			return
		}
		n, err := deps.Ingester.RunCycle(r.Context())
		if err != nil {
			deps.Logger.Error("on-demand ingest failed", "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "ingest failed: %v", err)
			return
		}
		writeJSON(w, map[string]any{"status": "ok", "stored": n})
	}
}
