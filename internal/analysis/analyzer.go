// Package analysis runs the retrieve, generate, score and record flow that
// answers a market question.
package analysis

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/newsdesk/internal/llm"
	"github.com/kalambet/newsdesk/internal/retrieval"
	"github.com/kalambet/newsdesk/internal/storage"
)

// Sectors are the sectors covered by MultiSectorAnalysis, in order.
var Sectors = []string{"technology", "finance", "healthcare", "retail"}

var defaultQueries = map[string]string{
	"technology": "What are the current trends and opportunities in technology stocks, including AI, semiconductors, and software companies?",
	"finance":    "What are the latest developments in financial services, banking, and fintech that could impact financial stocks?",
	"healthcare": "What are the current trends in healthcare, pharmaceuticals, and biotech that could affect healthcare stocks?",
	"retail":     "What are the latest trends in retail, e-commerce, and consumer spending that could impact retail stocks?",
}

const generalQuery = "What are the current market trends and their potential impact on stocks across all sectors?"

var sectorQueries = map[string]string{
	"technology": "Analyze current trends in technology sector including AI, semiconductors, cloud computing, and software companies. What are the key opportunities and risks?",
	"finance":    "Analyze current trends in financial services sector including banking, fintech, payment systems, and investment services. What are the key opportunities and risks?",
	"healthcare": "Analyze current trends in healthcare sector including pharmaceuticals, biotech, medical devices, and healthcare services. What are the key opportunities and risks?",
	"retail":     "Analyze current trends in retail sector including e-commerce, consumer spending, supply chain, and retail innovation. What are the key opportunities and risks?",
}

// DefaultQuery is used when a request names a sector but no question.
func DefaultQuery(sector string) string {
	if q, ok := defaultQueries[sector]; ok {
		return q
	}
	return generalQuery
}

// SectorQuery is the fixed question asked by SectorAnalysis. Unknown sectors
// get the technology question.
func SectorQuery(sector string) string {
	if q, ok := sectorQueries[normalizeSector(sector)]; ok {
		return q
	}
	return sectorQueries["technology"]
}

type Retriever interface {
	Retrieve(ctx context.Context, query, sector string, topK int) ([]retrieval.Candidate, error)
}

type Prompter interface {
	Compose(query, sector string, candidates []retrieval.Candidate) string
}

type Generator interface {
	Generate(ctx context.Context, prompt, preferredModel string) string
}

// DocumentView is a retrieved document as returned to callers.
type DocumentView struct {
	DocID      string   `json:"doc_id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Source     string   `json:"source"`
	URL        string   `json:"url"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Similarity float64  `json:"similarity"`
}

// Analysis is the result of one Analyze call.
type Analysis struct {
	ID             string         `json:"analysis_id,omitempty"`
	Query          string         `json:"query"`
	Sector         string         `json:"sector"`
	RelevantDocs   []DocumentView `json:"relevant_docs"`
	Response       string         `json:"llm_response"`
	Confidence     float64        `json:"confidence"`
	Reasoning      string         `json:"reasoning"`
	AnalysisType   string         `json:"analysis_type"`
	ResponseTimeMs int64          `json:"response_time_ms"`
	CreatedAt      string         `json:"created_at"`
	Degraded       bool           `json:"degraded,omitempty"`
}

// Degraded is returned when the document store cannot be read.
func Degraded() Analysis {
	return Analysis{
		Query:        "Market analysis unavailable",
		Sector:       "general",
		RelevantDocs: []DocumentView{},
		Response:     "RAG analysis service temporarily unavailable",
		Confidence:   0,
		Reasoning:    "Service unavailable",
		AnalysisType: "market_impact",
		CreatedAt:    storage.Now().Format(storage.ISOLayout),
		Degraded:     true,
	}
}

const (
	DefaultTopK = 10
	// viewDocs caps how many retrieved documents an Analysis carries.
	viewDocs = 5
)

// Analyzer wires retrieval, prompting, generation, scoring and recording.
type Analyzer struct {
	retriever Retriever
	prompter  Prompter
	generator Generator
	recorder  *Recorder
	Model     string
	TopK      int
	logger    *slog.Logger
}

func NewAnalyzer(r Retriever, p Prompter, g Generator, rec *Recorder, model string, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		retriever: r,
		prompter:  p,
		generator: g,
		recorder:  rec,
		Model:     model,
		TopK:      DefaultTopK,
		logger:    logger,
	}
}

// Analyze answers query, optionally scoped to a sector. It never fails: a
// storage outage yields Degraded(), and a failed save leaves ID as UnknownID.
func (a *Analyzer) Analyze(ctx context.Context, query, sector string) Analysis {
	sector = normalizeSector(sector)
	if strings.TrimSpace(query) == "" {
		query = DefaultQuery(sector)
	}
	start := time.Now()

	candidates, err := a.retriever.Retrieve(ctx, query, sector, a.TopK)
	if err != nil {
		a.logger.Error("retrieval failed, returning degraded analysis", "query", query, "sector", sector, "error", err)
		return Degraded()
	}

	prompt := a.prompter.Compose(query, sector, candidates)
	response := llm.Clean(a.generator.Generate(ctx, prompt, a.Model))
	confidence := Score(candidates, response)
	latency := time.Since(start).Milliseconds()

	out := Analysis{
		ID:             UnknownID,
		Query:          query,
		Sector:         sectorOrGeneral(sector),
		RelevantDocs:   views(candidates, viewDocs),
		Response:       response,
		Confidence:     confidence,
		Reasoning:      Reasoning(len(candidates), distinctSources(candidates)),
		AnalysisType:   AnalysisType(sector),
		ResponseTimeMs: latency,
		CreatedAt:      storage.Now().Format(storage.ISOLayout),
	}

	rec, err := a.recorder.save(ctx, query, sector, response, confidence, candidates, latency)
	if err == nil {
		out.ID = rec.ID()
		out.CreatedAt = rec.CreatedAt.Format(storage.ISOLayout)
	}
	return out
}

// SectorAnalysis asks the fixed question for sector.
func (a *Analyzer) SectorAnalysis(ctx context.Context, sector string) Analysis {
	return a.Analyze(ctx, SectorQuery(sector), sector)
}

// MultiSector holds one analysis per covered sector.
type MultiSector struct {
	SectorAnalyses map[string]Analysis `json:"sector_analyses"`
	GeneratedAt    string              `json:"generated_at"`
	TotalSectors   int                 `json:"total_sectors"`
}

// MultiSectorAnalysis runs SectorAnalysis for every sector in Sectors, one
// after another.
func (a *Analyzer) MultiSectorAnalysis(ctx context.Context) MultiSector {
	out := MultiSector{SectorAnalyses: make(map[string]Analysis, len(Sectors)), TotalSectors: len(Sectors)}
	for _, s := range Sectors {
		out.SectorAnalyses[s] = a.SectorAnalysis(ctx, s)
	}
	out.GeneratedAt = storage.Now().Format(storage.ISOLayout)
	return out
}

func normalizeSector(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func sectorOrGeneral(s string) string {
	if s == "" {
		return "general"
	}
	return s
}

func views(candidates []retrieval.Candidate, limit int) []DocumentView {
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]DocumentView, len(candidates))
	for i, c := range candidates {
		tags := c.Document.Tags
		if tags == nil {
			tags = []string{}
		}
		out[i] = DocumentView{
			DocID:      c.Document.DocID,
			Title:      c.Document.Title,
			Content:    c.Preview,
			Source:     c.Document.Source,
			URL:        c.Document.URL,
			Category:   c.Document.Category,
			Tags:       tags,
			Similarity: c.Similarity,
		}
	}
	return out
}
