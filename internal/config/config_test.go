package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestDefaults verifies all default values are applied when no file exists.
func TestDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8001 {
		t.Errorf("Server.Port = %d, want 8001", cfg.Server.Port)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q, want %q", cfg.Ollama.BaseURL, "http://localhost:11434")
	}
	if cfg.Ollama.Model != "llama3.1:8b" {
		t.Errorf("Ollama.Model = %q, want %q", cfg.Ollama.Model, "llama3.1:8b")
	}
	if cfg.Ollama.GenerateTimeout != 60*time.Second {
		t.Errorf("Ollama.GenerateTimeout = %v, want 60s", cfg.Ollama.GenerateTimeout)
	}
	if cfg.Embedding.Provider != ProviderFallback {
		t.Errorf("Embedding.Provider = %q, want %q", cfg.Embedding.Provider, ProviderFallback)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("Embedding.Dimensions = %d, want 384", cfg.Embedding.Dimensions)
	}
	if cfg.Ingest.Interval != 30*time.Minute {
		t.Errorf("Ingest.Interval = %v, want 30m", cfg.Ingest.Interval)
	}
	if cfg.Ingest.MaxAgeDays != 14 || cfg.Ingest.MaxDocuments != 100 {
		t.Errorf("Ingest limits = %d/%d, want 14/100", cfg.Ingest.MaxAgeDays, cfg.Ingest.MaxDocuments)
	}
	if !cfg.Ingest.SeedOnEmpty {
		t.Error("Ingest.SeedOnEmpty = false, want true")
	}
	if cfg.Retrieval.TopK != 10 {
		t.Errorf("Retrieval.TopK = %d, want 10", cfg.Retrieval.TopK)
	}
	if len(cfg.Feeds.URLs()) == 0 {
		t.Error("default feed catalog is empty")
	}
}

// TestYAMLParsing verifies that fields are correctly read from a YAML file.
func TestYAMLParsing(t *testing.T) {
	content := `
server:
  port: 9000
  mcp_stdio: true
ollama:
  base_url: http://custom:11434
  model: mistral
  generate_timeout: 90s
embedding:
  provider: ollama
  dimensions: 768
storage:
  data_dir: /tmp/newsdesk-test
ingest:
  interval: 5m
  seed_on_empty: false
sink:
  kafka_brokers: [kafka-1:9092, kafka-2:9092]
  elasticsearch_addr: http://es:9200
feeds:
  providers:
    - name: Test Wire
      urls:
        - https://wire.example/rss
  sources:
    - match: wire.example
      name: Test Wire
  default_source: Elsewhere
`
	t.Setenv("NEWSDESK_SERVER_PORT", "")
	cfg, err := Load(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if !cfg.Server.MCPStdio {
		t.Error("Server.MCPStdio = false, want true")
	}
	if cfg.Ollama.BaseURL != "http://custom:11434" {
		t.Errorf("Ollama.BaseURL = %q", cfg.Ollama.BaseURL)
	}
	if cfg.Ollama.Model != "mistral" {
		t.Errorf("Ollama.Model = %q", cfg.Ollama.Model)
	}
	if cfg.Ollama.GenerateTimeout != 90*time.Second {
		t.Errorf("Ollama.GenerateTimeout = %v", cfg.Ollama.GenerateTimeout)
	}
	if cfg.Embedding.Provider != ProviderOllama || cfg.Embedding.Dimensions != 768 {
		t.Errorf("Embedding = %+v", cfg.Embedding)
	}
	if cfg.Storage.DataDir != "/tmp/newsdesk-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Ingest.Interval != 5*time.Minute {
		t.Errorf("Ingest.Interval = %v", cfg.Ingest.Interval)
	}
	if cfg.Ingest.SeedOnEmpty {
		t.Error("Ingest.SeedOnEmpty = true, want false")
	}
	if got := cfg.Sink.Brokers(); len(got) != 2 || got[1] != "kafka-2:9092" {
		t.Errorf("Sink.Brokers() = %v", got)
	}
	if cfg.Sink.KafkaTopic != "news_documents" {
		t.Errorf("Sink.KafkaTopic = %q, want default", cfg.Sink.KafkaTopic)
	}
	if urls := cfg.Feeds.URLs(); len(urls) != 1 || urls[0] != "https://wire.example/rss" {
		t.Errorf("Feeds.URLs() = %v", urls)
	}
	if got := cfg.Feeds.SourceName("https://wire.example/rss"); got != "Test Wire" {
		t.Errorf("SourceName = %q", got)
	}
	if got := cfg.Feeds.SourceName("https://other.example/rss"); got != "Elsewhere" {
		t.Errorf("SourceName fallback = %q", got)
	}
}

// TestEnvOverride verifies that environment variables override file values.
func TestEnvOverride(t *testing.T) {
	path := writeTempConfig(t, "server:\n  port: 9000\n")

	t.Setenv("NEWSDESK_SERVER_PORT", "9100")
	t.Setenv("NEWSDESK_INGEST_INTERVAL", "1h")
	t.Setenv("NEWSDESK_INGEST_SEED_ON_EMPTY", "false")
	t.Setenv("NEWSDESK_RETRIEVAL_TOP_K", "not-a-number")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Ingest.Interval != time.Hour {
		t.Errorf("Ingest.Interval = %v, want 1h", cfg.Ingest.Interval)
	}
	if cfg.Ingest.SeedOnEmpty {
		t.Error("Ingest.SeedOnEmpty = true, want false")
	}
	if cfg.Retrieval.TopK != 10 {
		t.Errorf("Retrieval.TopK = %d, want default 10 after bad env value", cfg.Retrieval.TopK)
	}
}

// TestGenAIRequiresKey verifies a clear error when the genai provider has no key.
func TestGenAIRequiresKey(t *testing.T) {
	path := writeTempConfig(t, "embedding:\n  provider: genai\n")
	t.Setenv("NEWSDESK_GENAI_API_KEY", "")

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for missing API key, got nil")
	}
	if !strings.Contains(err.Error(), "missing required config") {
		t.Errorf("error = %q", err)
	}

	t.Setenv("NEWSDESK_GENAI_API_KEY", "secret")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GenAI.APIKey != "secret" {
		t.Errorf("GenAI.APIKey = %q", cfg.GenAI.APIKey)
	}
}

func TestInvalidProvider(t *testing.T) {
	path := writeTempConfig(t, "embedding:\n  provider: onnx\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestMalformedFile(t *testing.T) {
	path := writeTempConfig(t, "server: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSetKeyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := SetKey(path, "server.port", "8100"); err != nil {
		t.Fatalf("SetKey port: %v", err)
	}
	if err := SetKey(path, "ingest.interval", "45m"); err != nil {
		t.Fatalf("SetKey interval: %v", err)
	}
	if err := SetKey(path, "server.port", "eighty"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := SetKey(path, "genai.api_key", "x"); err == nil {
		t.Error("expected error when setting a secret")
	}
	if err := SetKey(path, "no.such_key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8100 {
		t.Errorf("Server.Port = %d, want 8100", cfg.Server.Port)
	}
	if cfg.Ingest.Interval != 45*time.Minute {
		t.Errorf("Ingest.Interval = %v, want 45m", cfg.Ingest.Interval)
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.GenAI.APIKey = "super-secret"

	found := false
	for _, k := range ShowAll(cfg) {
		if strings.Contains(k.Value, "super-secret") {
			t.Errorf("secret leaked in %s", k.Key)
		}
		if k.Key == "genai.api_key" {
			found = true
			if k.Value != "(set)" {
				t.Errorf("genai.api_key = %q, want (set)", k.Value)
			}
		}
	}
	if !found {
		t.Error("genai.api_key missing from ShowAll")
	}
	for _, k := range ValidKeys() {
		if k == "genai.api_key" {
			t.Error("ValidKeys lists a secret")
		}
	}
}
