package analysis_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kalambet/newsdesk/internal/analysis"
	"github.com/kalambet/newsdesk/internal/composer"
	"github.com/kalambet/newsdesk/internal/embedding"
	"github.com/kalambet/newsdesk/internal/feeds"
	"github.com/kalambet/newsdesk/internal/ingest"
	"github.com/kalambet/newsdesk/internal/llm"
	"github.com/kalambet/newsdesk/internal/ollama"
	"github.com/kalambet/newsdesk/internal/retrieval"
	"github.com/kalambet/newsdesk/internal/storage"
)

const feedURL = "https://feeds.reuters.com/markets"

type staticFeed string

func (f staticFeed) Fetch(context.Context, string) ([]byte, error) { return []byte(f), nil }

func (staticFeed) FillFromEnclosures(context.Context, []feeds.Item) int { return 0 }

type scriptedOllama struct {
	prompts []string
}

func (s *scriptedOllama) Generate(_ context.Context, model, prompt string, _ ollama.Options) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return "Rate cut expectations support equities while oil adds inflation risk. " + strings.Repeat("Detail. ", 20), nil
}

func feed(now time.Time) string {
	items := []struct {
		title string
		age   time.Duration
	}{
		{"Nvidia unveils AI chip as demand surges", 3 * time.Hour},
		{"Fed signals rate cut as inflation cools", 30 * time.Hour},
		{"Bank stocks slump in March", 40 * 24 * time.Hour},
		{"Microsoft cloud growth slows", 20 * 24 * time.Hour},
		{"Oil jumps on supply fears", 16 * 24 * time.Hour},
	}
	var sb strings.Builder
	sb.WriteString(`<rss version="2.0"><channel>`)
	for i, it := range items {
		fmt.Fprintf(&sb, "<item><title>%s</title><description>Story about %s.</description><link>https://reuters.com/%d</link><pubDate>%s</pubDate></item>",
			it.title, strings.ToLower(it.title), i, now.Add(-it.age).Format(time.RFC1123Z))
	}
	sb.WriteString(`</channel></rss>`)
	return sb.String()
}

func TestEndToEnd_IngestRetrieveAnalyzeRecord(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	catalog := feeds.DefaultCatalog()
	catalog.Providers = []feeds.Provider{{Name: "Reuters", URLs: []string{feedURL}}}
	pipeline := ingest.NewPipeline(staticFeed(feed(storage.Now())), catalog, store, nil, ingest.Options{}, nil)

	n, err := pipeline.RunCycle(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n, "only the two recent articles survive the recency filter")

	embedder := embedding.New(embedding.DefaultDimensions, embedding.WithRand(rand.New(rand.NewPCG(7, 11))))
	require.Equal(t, embedding.ModeFallback, embedder.Mode())
	engine := retrieval.NewEngine(store, embedder, nil)

	pool, err := store.CandidatePool(ctx, retrieval.Categories("technology"), retrieval.PoolSize)
	require.NoError(t, err)
	require.Len(t, pool, 1)

	tech, err := engine.Retrieve(ctx, "AI chip demand", "technology", 5)
	require.NoError(t, err)
	require.LessOrEqual(t, len(tech), min(len(pool), 5))
	for _, c := range tech {
		require.GreaterOrEqual(t, c.Similarity, -1.0)
		require.LessOrEqual(t, c.Similarity, 1.0)
		require.Equal(t, "technology", c.Document.Category)
	}

	gen := &scriptedOllama{}
	analyzer := analysis.NewAnalyzer(engine, composer.New(0), llm.NewOrchestrator(gen, nil),
		analysis.NewRecorder(store, nil), "llama3.1:8b", nil)

	got := analyzer.Analyze(ctx, "How will the Fed decision move markets?", "")

	require.False(t, got.Degraded)
	require.NotEqual(t, analysis.UnknownID, got.ID)
	require.Len(t, got.RelevantDocs, 2)
	for _, d := range got.RelevantDocs {
		require.Greater(t, d.Similarity, retrieval.Threshold)
	}
	require.GreaterOrEqual(t, got.Confidence, 0.0)
	require.LessOrEqual(t, got.Confidence, 0.95)
	require.Equal(t, "Analysis based on 2 documents from 1 sources using Ollama LLM", got.Reasoning)
	require.Len(t, gen.prompts, 1)
	require.Contains(t, gen.prompts[0], "How will the Fed decision move markets?")

	metrics, err := store.MetricsForAnalysis(ctx, got.ID)
	require.NoError(t, err)
	require.Len(t, metrics, 6)

	chip := analyzer.Analyze(ctx, "AI chip demand", "technology")
	require.NotEqual(t, analysis.UnknownID, chip.ID)
	require.LessOrEqual(t, len(chip.RelevantDocs), 1)
	require.GreaterOrEqual(t, chip.Confidence, 0.0)
	require.LessOrEqual(t, chip.Confidence, 0.95)
	metrics, err = store.MetricsForAnalysis(ctx, chip.ID)
	require.NoError(t, err)
	require.Len(t, metrics, 6)

	history, err := store.ListAnalyses(ctx, storage.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	ids := []string{history[0].ID(), history[1].ID()}
	require.ElementsMatch(t, []string{got.ID, chip.ID}, ids)
}
