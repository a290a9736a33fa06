package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/kalambet/newsdesk/internal/analysis"
	"github.com/kalambet/newsdesk/internal/config"
	"github.com/kalambet/newsdesk/internal/llm"
)

// newTestApp wires a real app over in-memory storage with an Ollama that
// fails every request.
func newTestApp(t *testing.T) *app {
	t.Helper()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(down.Close)

	t.Setenv("NEWSDESK_EMBEDDING_PROVIDER", "")
	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Storage.DataDir = ":memory:"
	cfg.Ollama.BaseURL = down.URL
	cfg.Embedding.Provider = config.ProviderFallback

	a, err := buildApp(ctx, cfg)
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestBuildApp_SeedSummaryAnalyze(t *testing.T) {
	a := newTestApp(t)

	n, err := a.pipeline.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if n != 5 {
		t.Fatalf("Seed stored %d, want 5", n)
	}

	s := a.insights.Summary(ctx)
	if s.TotalDocuments != 5 {
		t.Errorf("TotalDocuments = %d, want 5", s.TotalDocuments)
	}
	if s.LLMEnabled {
		t.Error("LLMEnabled = true with Ollama down")
	}

	res := a.analyzer.Analyze(ctx, "What is the Fed doing?", "finance")
	if res.Degraded {
		t.Fatal("analysis degraded with a healthy store")
	}
	if res.ID == analysis.UnknownID {
		t.Error("analysis was not recorded")
	}
	if !llm.IsFailure(res.Response) {
		t.Errorf("Response = %q, want the generation failure text", res.Response)
	}
}

func TestBuildApp_OptionalSinksOff(t *testing.T) {
	a := newTestApp(t)
	if len(a.sinks) != 0 {
		t.Errorf("sinks = %d, want 0", len(a.sinks))
	}
	if deps := a.mcpDeps(); deps.Search != nil {
		t.Error("Search set without an elasticsearch address")
	}
	if deps := a.apiDeps(); deps.Ping == nil || deps.Ping() != nil {
		t.Error("Ping missing or failing on a fresh store")
	}
}

func TestBuildApp_GenAIRequiresKeyAtLoad(t *testing.T) {
	t.Setenv("NEWSDESK_EMBEDDING_PROVIDER", config.ProviderGenAI)
	t.Setenv("NEWSDESK_GENAI_API_KEY", "")
	if _, err := config.Load(filepath.Join(t.TempDir(), "config.yaml")); err == nil {
		t.Fatal("expected config error for genai without key")
	}
}
