package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kalambet/newsdesk/internal/analysis"
	"github.com/kalambet/newsdesk/internal/api"
	"github.com/kalambet/newsdesk/internal/composer"
	"github.com/kalambet/newsdesk/internal/config"
	"github.com/kalambet/newsdesk/internal/embedding"
	"github.com/kalambet/newsdesk/internal/feeds"
	"github.com/kalambet/newsdesk/internal/ingest"
	"github.com/kalambet/newsdesk/internal/insights"
	"github.com/kalambet/newsdesk/internal/llm"
	"github.com/kalambet/newsdesk/internal/ollama"
	"github.com/kalambet/newsdesk/internal/retrieval"
	"github.com/kalambet/newsdesk/internal/sink"
	"github.com/kalambet/newsdesk/internal/storage"
)

// app is the fully wired service shared by serve and the local commands.
type app struct {
	cfg      config.Config
	store    *storage.Store
	ollama   *ollama.Client
	embedder *embedding.Provider
	engine   *retrieval.Engine
	analyzer *analysis.Analyzer
	insights *insights.Service
	pipeline *ingest.Pipeline
	sinks    sink.Multi
	search   *sink.Elasticsearch // nil unless sink.elasticsearch_addr is set
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	a := &app{cfg: cfg, store: store, ollama: ollama.New(cfg.Ollama.BaseURL)}

	a.embedder, err = newEmbedder(ctx, cfg, a.ollama)
	if err != nil {
		store.Close()
		return nil, err
	}
	if err := a.openSinks(); err != nil {
		store.Close()
		return nil, err
	}

	a.engine = retrieval.NewEngine(store, a.embedder, nil)

	orch := llm.NewOrchestrator(a.ollama, nil)
	orch.Timeout = cfg.Ollama.GenerateTimeout
	a.analyzer = analysis.NewAnalyzer(a.engine, composer.New(0), orch, analysis.NewRecorder(store, nil), cfg.Ollama.Model, nil)
	a.analyzer.TopK = cfg.Retrieval.TopK

	a.insights = insights.New(store, nil)
	a.insights.LLMEnabled = a.ollama.IsRunning

	var pub ingest.Sink
	if len(a.sinks) > 0 {
		pub = a.sinks
	}
	a.pipeline = ingest.NewPipeline(feeds.NewFetcher(cfg.Ingest.FetchTimeout), cfg.Feeds, store, pub, ingest.Options{
		Concurrency:  cfg.Ingest.Concurrency,
		MaxAgeDays:   cfg.Ingest.MaxAgeDays,
		MaxDocuments: cfg.Ingest.MaxDocuments,
		SeedOnEmpty:  cfg.Ingest.SeedOnEmpty,
	}, nil)

	return a, nil
}

func newEmbedder(ctx context.Context, cfg config.Config, oc *ollama.Client) (*embedding.Provider, error) {
	opts := []embedding.Option{embedding.WithCache(cfg.Embedding.CacheSize)}
	switch cfg.Embedding.Provider {
	case config.ProviderOllama:
		opts = append(opts, embedding.WithEncoder(embedding.NewOllamaEncoder(oc, cfg.Ollama.EmbedModel)))
	case config.ProviderGenAI:
		enc, err := embedding.NewGenAIEncoder(ctx, cfg.GenAI.APIKey, cfg.GenAI.Model, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("creating genai encoder: %w", err)
		}
		opts = append(opts, embedding.WithEncoder(enc))
	}
	p := embedding.New(cfg.Embedding.Dimensions, opts...)
	slog.Info("embedding provider ready", "provider", cfg.Embedding.Provider, "mode", p.Mode(), "dimensions", p.Dimensions())
	return p, nil
}

func (a *app) openSinks() error {
	if brokers := a.cfg.Sink.Brokers(); len(brokers) > 0 {
		a.sinks = append(a.sinks, sink.NewKafka(brokers, a.cfg.Sink.KafkaTopic))
		slog.Info("kafka sink enabled", "brokers", brokers, "topic", a.cfg.Sink.KafkaTopic)
	}
	if addr := a.cfg.Sink.ElasticsearchAddr; addr != "" {
		es, err := sink.NewElasticsearch(addr, a.cfg.Sink.ElasticsearchIndex)
		if err != nil {
			return fmt.Errorf("creating elasticsearch sink: %w", err)
		}
		a.sinks = append(a.sinks, es)
		a.search = es
		slog.Info("elasticsearch sink enabled", "addr", addr, "index", a.cfg.Sink.ElasticsearchIndex)
	}
	return nil
}

func (a *app) apiDeps() api.Deps {
	return api.Deps{
		Analyzer: a.analyzer,
		Insights: a.insights,
		Ingester: a.pipeline,
		Ping:     a.store.Ping,
	}
}

func (a *app) mcpDeps() api.MCPDeps {
	deps := api.MCPDeps{
		Analyzer:  a.analyzer,
		Insights:  a.insights,
		Retriever: a.engine,
	}
	if a.search != nil {
		deps.Search = a.search
	}
	return deps
}

func (a *app) Close() error {
	return errors.Join(a.sinks.Close(), a.store.Close())
}
