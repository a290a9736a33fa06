// Package config loads newsdesk settings from defaults, an optional YAML
// file, and NEWSDESK_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kalambet/newsdesk/internal/feeds"
)

type Config struct {
	Server    ServerConfig
	Ollama    OllamaConfig
	Embedding EmbeddingConfig
	GenAI     GenAIConfig
	Storage   StorageConfig
	Ingest    IngestConfig
	Retrieval RetrievalConfig
	Sink      SinkConfig
	Log       LogConfig
	Feeds     feeds.Catalog
}

type ServerConfig struct {
	Port     int
	MCPStdio bool
}

type OllamaConfig struct {
	BaseURL         string
	Model           string
	EmbedModel      string
	GenerateTimeout time.Duration
}

// Embedding providers.
const (
	ProviderFallback = "fallback"
	ProviderOllama   = "ollama"
	ProviderGenAI    = "genai"
)

type EmbeddingConfig struct {
	Provider   string
	Dimensions int
	CacheSize  int
}

type GenAIConfig struct {
	APIKey string
	Model  string
}

type StorageConfig struct {
	DataDir string
}

type IngestConfig struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	Concurrency  int
	MaxAgeDays   int
	MaxDocuments int
	SeedOnEmpty  bool
}

type RetrievalConfig struct {
	TopK int
}

// SinkConfig enables the optional downstream publishers. Empty addresses
// disable them.
type SinkConfig struct {
	KafkaBrokers       string
	KafkaTopic         string
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Brokers splits KafkaBrokers on commas.
func (s SinkConfig) Brokers() []string {
	var out []string
	for _, b := range strings.Split(s.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8001,
		},
		Ollama: OllamaConfig{
			BaseURL:         "http://localhost:11434",
			Model:           "llama3.1:8b",
			EmbedModel:      "all-minilm",
			GenerateTimeout: 60 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider:   ProviderFallback,
			Dimensions: 384,
			CacheSize:  2048,
		},
		GenAI: GenAIConfig{
			Model: "gemini-embedding-001",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Ingest: IngestConfig{
			Interval:     30 * time.Minute,
			FetchTimeout: 15 * time.Second,
			Concurrency:  4,
			MaxAgeDays:   14,
			MaxDocuments: 100,
			SeedOnEmpty:  true,
		},
		Retrieval: RetrievalConfig{
			TopK: 10,
		},
		Sink: SinkConfig{
			KafkaTopic:         "news_documents",
			ElasticsearchIndex: "news_documents",
		},
		Log: LogConfig{
			Level: "info",
		},
		Feeds: feeds.DefaultCatalog(),
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "newsdesk-data"
		}
	}
	return filepath.Join(dir, "newsdesk")
}

// DefaultPath is $XDG_CONFIG_HOME/newsdesk/config.yaml.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "newsdesk", "config.yaml")
}

// Load reads the YAML file at path (DefaultPath when empty), then applies
// NEWSDESK_* environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	b, err := openFileBackend(path)
	if err != nil {
		return Config{}, err
	}
	return loadWith(b)
}

func loadWith(b *fileBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	if err := b.decodeSection("feeds", &cfg.Feeds); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Embedding.Provider {
	case ProviderFallback, ProviderOllama:
	case ProviderGenAI:
		if c.GenAI.APIKey == "" {
			return fmt.Errorf("missing required config: embedding.provider is %q but no API key is set. "+
				"Set it via environment variable NEWSDESK_GENAI_API_KEY", ProviderGenAI)
		}
	default:
		return fmt.Errorf("invalid embedding.provider %q: want %s, %s or %s",
			c.Embedding.Provider, ProviderFallback, ProviderOllama, ProviderGenAI)
	}
	if len(c.Feeds.URLs()) == 0 {
		return fmt.Errorf("feeds: no feed URLs configured")
	}
	return nil
}
