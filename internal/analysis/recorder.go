package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/kalambet/newsdesk/internal/retrieval"
	"github.com/kalambet/newsdesk/internal/storage"
)

// UnknownID is returned by Record when the analysis could not be persisted.
const UnknownID = "unknown"

// Store persists an analysis together with its metrics.
type Store interface {
	SaveAnalysis(ctx context.Context, a storage.AnalysisRecord, metricsFor func(storage.AnalysisRecord) []storage.Metric) (storage.AnalysisRecord, error)
}

// Recorder writes analyses and their six performance metrics.
type Recorder struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, now: storage.Now, logger: logger}
}

// Record persists one analysis and returns its identity, or UnknownID when
// the write failed. The response is stored as given.
func (r *Recorder) Record(ctx context.Context, query, sector, response string, confidence float64, candidates []retrieval.Candidate, latencyMs int64) string {
	rec, err := r.save(ctx, query, sector, response, confidence, candidates, latencyMs)
	if err != nil {
		return UnknownID
	}
	return rec.ID()
}

func (r *Recorder) save(ctx context.Context, query, sector, response string, confidence float64, candidates []retrieval.Candidate, latencyMs int64) (storage.AnalysisRecord, error) {
	docIDs := make([]string, len(candidates))
	for i, c := range candidates {
		docIDs[i] = c.Document.DocID
	}
	sources := distinctSources(candidates)
	avgSim := meanSimilarity(candidates)

	rec := storage.AnalysisRecord{
		Query:          query,
		Sector:         sector,
		Response:       response,
		Confidence:     confidence,
		Reasoning:      Reasoning(len(candidates), sources),
		AnalysisType:   AnalysisType(sector),
		DocIDs:         docIDs,
		ResponseTimeMs: latencyMs,
		CreatedAt:      r.now(),
	}

	saved, err := r.store.SaveAnalysis(ctx, rec, func(a storage.AnalysisRecord) []storage.Metric {
		id := a.ID()
		return []storage.Metric{
			{Name: "analysis_confidence", Value: confidence, Unit: "percentage", Notes: "Confidence score for analysis " + id},
			{Name: "response_time_ms", Value: float64(latencyMs), Unit: "milliseconds", Notes: "Response time for analysis " + id},
			{Name: "sources_count", Value: float64(sources), Unit: "count", Notes: "Number of sources used in analysis " + id},
			{Name: "documents_count", Value: float64(len(candidates)), Unit: "count", Notes: "Number of documents used in analysis " + id},
			{Name: "avg_similarity_score", Value: avgSim, Unit: "score", Notes: "Average document similarity for analysis " + id},
			{Name: "llm_response_length", Value: float64(utf8.RuneCountInString(response)), Unit: "characters", Notes: "Length of LLM response for analysis " + id},
		}
	})
	if err != nil {
		r.logger.Error("saving analysis failed", "query", query, "error", err)
		return storage.AnalysisRecord{}, fmt.Errorf("saving analysis: %w", err)
	}
	r.logger.Info("analysis saved", "id", saved.ID(), "documents", len(candidates), "sources", sources)
	return saved, nil
}

// Reasoning describes the evidence behind an analysis.
func Reasoning(docs, sources int) string {
	return fmt.Sprintf("Analysis based on %d documents from %d sources using Ollama LLM", docs, sources)
}

// AnalysisType is "<sector>_impact", or "market_impact" without a sector.
func AnalysisType(sector string) string {
	if sector == "" {
		return "market_impact"
	}
	return sector + "_impact"
}
