// Package insights builds read-only views over stored documents, analyses
// and performance metrics. Every view degrades to an empty value instead of
// failing.
package insights

import (
	"context"
	"log/slog"
	"time"

	"github.com/kalambet/newsdesk/internal/storage"
)

// Store is the read side of storage.Store used by the views.
type Store interface {
	DocumentStats(ctx context.Context, since time.Time) (storage.DocumentStats, error)
	ListDocuments(ctx context.Context, limit, offset int) ([]storage.Document, error)
	ListAnalyses(ctx context.Context, since time.Time, limit int) ([]storage.AnalysisRecord, error)
	AnalysisStats(ctx context.Context, since time.Time) (storage.AnalysisStats, error)
	QueryPatterns(ctx context.Context, since time.Time, limit int) ([]storage.QueryPattern, error)
	ConfidenceTrends(ctx context.Context, since time.Time) ([]storage.DailyTrend, error)
	MetricSummaries(ctx context.Context, since time.Time) ([]storage.MetricStats, error)
	MetricAverage(ctx context.Context, name string, since time.Time) (float64, bool, error)
	RecentMetrics(ctx context.Context, since time.Time) ([]storage.Metric, error)
}

const (
	day = 24 * time.Hour

	// DefaultRAGAccuracy is reported when no rag_accuracy metric was recorded.
	DefaultRAGAccuracy = 0.85

	topQueries   = 10
	previewChars = 500
)

// Service answers the insight, summary, history, document and performance
// queries.
type Service struct {
	store Store
	// LLMEnabled reports whether generation is available. Nil means it is.
	LLMEnabled func(ctx context.Context) bool
	now        func() time.Time
	logger     *slog.Logger
}

func New(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, now: storage.Now, logger: logger}
}

type ConfidenceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type AnalysisStatistics struct {
	TotalAnalyses   int             `json:"total_analyses"`
	AvgConfidence   float64         `json:"avg_confidence"`
	AvgResponseTime float64         `json:"avg_response_time"`
	ConfidenceRange ConfidenceRange `json:"confidence_range"`
	ActiveDays      int             `json:"active_days"`
}

type QueryPattern struct {
	Query         string  `json:"query"`
	Frequency     int     `json:"frequency"`
	AvgConfidence float64 `json:"avg_confidence"`
}

type ConfidenceTrend struct {
	Date          string  `json:"date"`
	AvgConfidence float64 `json:"avg_confidence"`
	AnalysisCount int     `json:"analysis_count"`
}

type MetricSummary struct {
	AvgValue float64 `json:"avg_value"`
	MaxValue float64 `json:"max_value"`
	MinValue float64 `json:"min_value"`
}

// Insights aggregates analyses and metrics over a window of days.
type Insights struct {
	AnalysisStatistics  AnalysisStatistics       `json:"analysis_statistics"`
	QueryPatterns       []QueryPattern           `json:"query_patterns"`
	ConfidenceTrends    []ConfidenceTrend        `json:"confidence_trends"`
	PerformanceMetrics  map[string]MetricSummary `json:"performance_metrics"`
	InsightsGeneratedAt string                   `json:"insights_generated_at"`
}

func (s *Service) emptyInsights() Insights {
	return Insights{
		QueryPatterns:       []QueryPattern{},
		ConfidenceTrends:    []ConfidenceTrend{},
		PerformanceMetrics:  map[string]MetricSummary{},
		InsightsGeneratedAt: s.now().Format(storage.ISOLayout),
	}
}

// Insights returns the aggregate view of the last days days. Any storage
// error yields an empty snapshot.
func (s *Service) Insights(ctx context.Context, days int) Insights {
	if days <= 0 {
		days = 30
	}
	since := s.now().Add(-time.Duration(days) * day)

	st, err := s.store.AnalysisStats(ctx, since)
	if err != nil {
		return degrade(s.logger, "insights", err, s.emptyInsights())
	}
	patterns, err := s.store.QueryPatterns(ctx, since, topQueries)
	if err != nil {
		return degrade(s.logger, "insights", err, s.emptyInsights())
	}
	trends, err := s.store.ConfidenceTrends(ctx, since)
	if err != nil {
		return degrade(s.logger, "insights", err, s.emptyInsights())
	}
	metrics, err := s.store.MetricSummaries(ctx, since)
	if err != nil {
		return degrade(s.logger, "insights", err, s.emptyInsights())
	}

	out := s.emptyInsights()
	out.AnalysisStatistics = AnalysisStatistics{
		TotalAnalyses:   st.Total,
		AvgConfidence:   st.AvgConfidence,
		AvgResponseTime: st.AvgResponseMs,
		ConfidenceRange: ConfidenceRange{Min: st.MinConfidence, Max: st.MaxConfidence},
		ActiveDays:      st.ActiveDays,
	}
	for _, p := range patterns {
		out.QueryPatterns = append(out.QueryPatterns, QueryPattern{Query: p.Query, Frequency: p.Frequency, AvgConfidence: p.AvgConfidence})
	}
	for _, t := range trends {
		out.ConfidenceTrends = append(out.ConfidenceTrends, ConfidenceTrend{Date: t.Date, AvgConfidence: t.AvgConfidence, AnalysisCount: t.Count})
	}
	for _, m := range metrics {
		out.PerformanceMetrics[m.Name] = MetricSummary{AvgValue: m.Avg, MaxValue: m.Max, MinValue: m.Min}
	}
	return out
}

// Summary is the dashboard headline view.
type Summary struct {
	TotalDocuments  int     `json:"total_documents"`
	VectorDBSize    int     `json:"vector_db_size"`
	LastNewsUpdate  string  `json:"last_news_update"`
	RAGAccuracy     float64 `json:"rag_accuracy"`
	LLMEnabled      bool    `json:"llm_enabled"`
	ActiveSources   int     `json:"active_sources"`
	TotalQueries    int     `json:"total_queries"`
	AvgResponseTime float64 `json:"avg_response_time"`
	AvgConfidence   float64 `json:"avg_confidence"`
	LastUpdated     string  `json:"last_updated"`
	Status          string  `json:"status,omitempty"`
}

// StatusUnavailable marks a Summary built without storage.
const StatusUnavailable = "service unavailable"

func (s *Service) fallbackSummary() Summary {
	now := s.now().Format(storage.ISOLayout)
	return Summary{LastNewsUpdate: now, LastUpdated: now, Status: StatusUnavailable}
}

// Summary covers documents published in the last 7 days and analyses of the
// last 24 hours.
func (s *Service) Summary(ctx context.Context) Summary {
	now := s.now()
	docs, err := s.store.DocumentStats(ctx, now.Add(-7*day))
	if err != nil {
		return degrade(s.logger, "summary", err, s.fallbackSummary())
	}
	st, err := s.store.AnalysisStats(ctx, now.Add(-day))
	if err != nil {
		return degrade(s.logger, "summary", err, s.fallbackSummary())
	}
	accuracy, ok, err := s.store.MetricAverage(ctx, "rag_accuracy", now.Add(-day))
	if err != nil {
		return degrade(s.logger, "summary", err, s.fallbackSummary())
	}
	if !ok || accuracy == 0 {
		accuracy = DefaultRAGAccuracy
	}

	lastNews := now
	if !docs.LatestPublish.IsZero() {
		lastNews = docs.LatestPublish
	}
	llm := true
	if s.LLMEnabled != nil {
		llm = s.LLMEnabled(ctx)
	}
	return Summary{
		TotalDocuments:  docs.Total,
		VectorDBSize:    docs.Total,
		LastNewsUpdate:  lastNews.Format(storage.ISOLayout),
		RAGAccuracy:     accuracy,
		LLMEnabled:      llm,
		ActiveSources:   docs.ActiveSources,
		TotalQueries:    st.Total,
		AvgResponseTime: st.AvgResponseMs,
		AvgConfidence:   st.AvgConfidence,
		LastUpdated:     now.Format(storage.ISOLayout),
	}
}

func degrade[T any](logger *slog.Logger, view string, err error, fallback T) T {
	logger.Error("building view failed", "view", view, "error", err)
	return fallback
}
