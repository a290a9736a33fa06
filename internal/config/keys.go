package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "NEWSDESK_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_stdio", typ: kBool, env: "NEWSDESK_SERVER_MCP_STDIO",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPStdio = v.(bool) },
		extract: func(cfg Config) any { return cfg.Server.MCPStdio },
	},
	{
		key: "ollama.base_url", typ: kString, env: "NEWSDESK_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "NEWSDESK_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "ollama.embed_model", typ: kString, env: "NEWSDESK_OLLAMA_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.EmbedModel },
	},
	{
		key: "ollama.generate_timeout", typ: kDuration, env: "NEWSDESK_OLLAMA_GENERATE_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Ollama.GenerateTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Ollama.GenerateTimeout },
	},
	{
		key: "embedding.provider", typ: kString, env: "NEWSDESK_EMBEDDING_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Embedding.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Embedding.Provider },
	},
	{
		key: "embedding.dimensions", typ: kInt, env: "NEWSDESK_EMBEDDING_DIMENSIONS",
		apply:   func(cfg *Config, v any) { cfg.Embedding.Dimensions = v.(int) },
		extract: func(cfg Config) any { return cfg.Embedding.Dimensions },
	},
	{
		key: "embedding.cache_size", typ: kInt, env: "NEWSDESK_EMBEDDING_CACHE_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Embedding.CacheSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Embedding.CacheSize },
	},
	{
		key: "genai.api_key", typ: kString, env: "NEWSDESK_GENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.GenAI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.GenAI.APIKey },
	},
	{
		key: "genai.model", typ: kString, env: "NEWSDESK_GENAI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.GenAI.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.GenAI.Model },
	},
	{
		key: "storage.data_dir", typ: kString, env: "NEWSDESK_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "ingest.interval", typ: kDuration, env: "NEWSDESK_INGEST_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Ingest.Interval = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Ingest.Interval },
	},
	{
		key: "ingest.fetch_timeout", typ: kDuration, env: "NEWSDESK_INGEST_FETCH_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Ingest.FetchTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Ingest.FetchTimeout },
	},
	{
		key: "ingest.concurrency", typ: kInt, env: "NEWSDESK_INGEST_CONCURRENCY",
		apply:   func(cfg *Config, v any) { cfg.Ingest.Concurrency = v.(int) },
		extract: func(cfg Config) any { return cfg.Ingest.Concurrency },
	},
	{
		key: "ingest.max_age_days", typ: kInt, env: "NEWSDESK_INGEST_MAX_AGE_DAYS",
		apply:   func(cfg *Config, v any) { cfg.Ingest.MaxAgeDays = v.(int) },
		extract: func(cfg Config) any { return cfg.Ingest.MaxAgeDays },
	},
	{
		key: "ingest.max_documents", typ: kInt, env: "NEWSDESK_INGEST_MAX_DOCUMENTS",
		apply:   func(cfg *Config, v any) { cfg.Ingest.MaxDocuments = v.(int) },
		extract: func(cfg Config) any { return cfg.Ingest.MaxDocuments },
	},
	{
		key: "ingest.seed_on_empty", typ: kBool, env: "NEWSDESK_INGEST_SEED_ON_EMPTY",
		apply:   func(cfg *Config, v any) { cfg.Ingest.SeedOnEmpty = v.(bool) },
		extract: func(cfg Config) any { return cfg.Ingest.SeedOnEmpty },
	},
	{
		key: "retrieval.top_k", typ: kInt, env: "NEWSDESK_RETRIEVAL_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.TopK = v.(int) },
		extract: func(cfg Config) any { return cfg.Retrieval.TopK },
	},
	{
		key: "sink.kafka_brokers", typ: kString, env: "NEWSDESK_SINK_KAFKA_BROKERS",
		apply:   func(cfg *Config, v any) { cfg.Sink.KafkaBrokers = v.(string) },
		extract: func(cfg Config) any { return cfg.Sink.KafkaBrokers },
	},
	{
		key: "sink.kafka_topic", typ: kString, env: "NEWSDESK_SINK_KAFKA_TOPIC",
		apply:   func(cfg *Config, v any) { cfg.Sink.KafkaTopic = v.(string) },
		extract: func(cfg Config) any { return cfg.Sink.KafkaTopic },
	},
	{
		key: "sink.elasticsearch_addr", typ: kString, env: "NEWSDESK_SINK_ELASTICSEARCH_ADDR",
		apply:   func(cfg *Config, v any) { cfg.Sink.ElasticsearchAddr = v.(string) },
		extract: func(cfg Config) any { return cfg.Sink.ElasticsearchAddr },
	},
	{
		key: "sink.elasticsearch_index", typ: kString, env: "NEWSDESK_SINK_ELASTICSEARCH_INDEX",
		apply:   func(cfg *Config, v any) { cfg.Sink.ElasticsearchIndex = v.(string) },
		extract: func(cfg Config) any { return cfg.Sink.ElasticsearchIndex },
	},
	{
		key: "log.level", typ: kString, env: "NEWSDESK_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

// parse converts raw text to the key's type.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kDuration:
		return time.ParseDuration(raw)
	default:
		return raw, nil
	}
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse config key %s=%q: %v. Using default value.\n", s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
