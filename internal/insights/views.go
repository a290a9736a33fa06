package insights

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/kalambet/newsdesk/internal/storage"
)

type DocumentView struct {
	DocID      string   `json:"doc_id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Source     string   `json:"source"`
	URL        string   `json:"url"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Timestamp  string   `json:"timestamp"`
	IngestedAt string   `json:"ingested_at"`
}

// Documents pages through stored documents, most recently published first,
// with content shortened to 500 characters.
func (s *Service) Documents(ctx context.Context, limit, offset int) []DocumentView {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	docs, err := s.store.ListDocuments(ctx, limit, offset)
	if err != nil {
		return degrade(s.logger, "documents", err, []DocumentView{})
	}
	out := make([]DocumentView, len(docs))
	for i, d := range docs {
		tags := d.Tags
		if tags == nil {
			tags = []string{}
		}
		out[i] = DocumentView{
			DocID:      d.DocID,
			Title:      d.Title,
			Content:    shorten(d.Content, previewChars),
			Source:     d.Source,
			URL:        d.URL,
			Category:   d.Category,
			Tags:       tags,
			Timestamp:  d.PublishedAt.Format(storage.ISOLayout),
			IngestedAt: d.IngestedAt.Format(storage.ISOLayout),
		}
	}
	return out
}

type HistoryEntry struct {
	AnalysisID     string   `json:"analysis_id"`
	Query          string   `json:"query"`
	Response       string   `json:"llm_response"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	AnalysisType   string   `json:"analysis_type"`
	RelevantDocIDs []string `json:"relevant_doc_ids"`
	ResponseTimeMs int64    `json:"response_time_ms"`
	CreatedAt      string   `json:"created_at"`
}

// History lists up to limit analyses from the last days days, newest first.
func (s *Service) History(ctx context.Context, limit, days int) []HistoryEntry {
	if limit <= 0 {
		limit = 20
	}
	if days <= 0 {
		days = 7
	}
	records, err := s.store.ListAnalyses(ctx, s.now().Add(-time.Duration(days)*day), limit)
	if err != nil {
		return degrade(s.logger, "history", err, []HistoryEntry{})
	}
	out := make([]HistoryEntry, len(records))
	for i, r := range records {
		ids := r.DocIDs
		if ids == nil {
			ids = []string{}
		}
		out[i] = HistoryEntry{
			AnalysisID:     r.ID(),
			Query:          r.Query,
			Response:       shorten(r.Response, previewChars),
			Confidence:     r.Confidence,
			Reasoning:      r.Reasoning,
			AnalysisType:   r.AnalysisType,
			RelevantDocIDs: ids,
			ResponseTimeMs: r.ResponseTimeMs,
			CreatedAt:      r.CreatedAt.Format(storage.ISOLayout),
		}
	}
	return out
}

type MetricValue struct {
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Timestamp string  `json:"timestamp"`
}

type Performance struct {
	Metrics     map[string]MetricValue `json:"metrics"`
	LastUpdated string                 `json:"last_updated"`
}

// Performance reports the most recent value of every metric measured in the
// last 24 hours.
func (s *Service) Performance(ctx context.Context) Performance {
	now := s.now()
	out := Performance{Metrics: map[string]MetricValue{}, LastUpdated: now.Format(storage.ISOLayout)}

	metrics, err := s.store.RecentMetrics(ctx, now.Add(-day))
	if err != nil {
		return degrade(s.logger, "performance", err, out)
	}
	// newest first, so the first sample of each name wins
	for _, m := range metrics {
		if _, ok := out.Metrics[m.Name]; ok {
			continue
		}
		out.Metrics[m.Name] = MetricValue{Value: m.Value, Unit: m.Unit, Timestamp: m.MeasuredAt.Format(storage.ISOLayout)}
	}
	return out
}

// shorten cuts s to n characters and marks the cut with "...".
func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
