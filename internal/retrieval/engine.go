// Package retrieval ranks stored news documents against a query by embedding
// similarity.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/newsdesk/internal/storage"
)

const (
	// PoolSize is how many recent documents are considered per query.
	PoolSize = 50
	// Threshold is the exclusive lower bound on similarity for a match.
	Threshold = 0.3

	embedContentChars = 500
	previewChars      = 200
)

// sectorCategories maps a sector hint to the document categories it may draw from.
var sectorCategories = map[string][]string{
	"technology": {"technology", "earnings"},
	"finance":    {"finance", "earnings", "monetary_policy"},
	"healthcare": {"healthcare", "earnings"},
	"retail":     {"retail", "earnings"},
}

// Categories returns the document categories a sector hint allows, or nil
// when the hint is empty or unknown.
func Categories(sector string) []string {
	return sectorCategories[strings.ToLower(strings.TrimSpace(sector))]
}

// DocumentSource supplies the candidate pool.
type DocumentSource interface {
	CandidatePool(ctx context.Context, categories []string, limit int) ([]storage.Document, error)
}

// Embedder turns texts into vectors, one per input. It must not fail.
type Embedder interface {
	Embed(ctx context.Context, texts []string) [][]float32
}

// Candidate is one retrieved document.
type Candidate struct {
	Document   storage.Document
	Similarity float64
	Preview    string
}

// Engine retrieves the documents most similar to a query.
type Engine struct {
	docs     DocumentSource
	embedder Embedder
	logger   *slog.Logger
}

func NewEngine(docs DocumentSource, embedder Embedder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{docs: docs, embedder: embedder, logger: logger}
}

// Retrieve returns at most topK candidates with similarity above Threshold,
// most similar first. Only a storage failure is returned as an error.
func (e *Engine) Retrieve(ctx context.Context, query, sector string, topK int) ([]Candidate, error) {
	pool, err := e.docs.CandidatePool(ctx, Categories(sector), PoolSize)
	if err != nil {
		return nil, fmt.Errorf("loading candidate pool: %w", err)
	}
	if len(pool) == 0 || topK <= 0 {
		return []Candidate{}, nil
	}

	texts := make([]string, 0, len(pool)+1)
	texts = append(texts, query)
	for _, d := range pool {
		texts = append(texts, d.Title+" "+truncate(d.Content, embedContentChars))
	}
	vecs := e.embedder.Embed(ctx, texts)
	if len(vecs) != len(texts) {
		e.logger.Warn("embedder returned wrong vector count", "want", len(texts), "got", len(vecs))
		return []Candidate{}, nil
	}

	out := make([]Candidate, 0, topK)
	for _, s := range Rank(vecs[0], vecs[1:]) {
		if s.Score <= Threshold || len(out) == topK {
			break
		}
		d := pool[s.Index]
		out = append(out, Candidate{Document: d, Similarity: s.Score, Preview: Preview(d.Content)})
	}
	e.logger.Debug("retrieval complete", "sector", sector, "pool", len(pool), "matches", len(out))
	return out, nil
}

// Preview returns the first 200 characters of content, with "..." appended
// when content was longer.
func Preview(content string) string {
	r := []rune(content)
	if len(r) <= previewChars {
		return content
	}
	return string(r[:previewChars]) + "..."
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
