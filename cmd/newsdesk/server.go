package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/newsdesk/internal/api"
	"github.com/kalambet/newsdesk/internal/config"
	"github.com/kalambet/newsdesk/internal/ingest"
	"github.com/kalambet/newsdesk/internal/insights"
	"github.com/kalambet/newsdesk/internal/ollama"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the ingest scheduler and optionally the MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		pull, _ := cmd.Flags().GetBool("pull")
		return runServer(pull)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show newsdesk system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Bool("pull", true, "pull missing Ollama models on startup")
}

func runServer(pull bool) error {
	fmt.Fprintf(os.Stderr, "newsdesk version %s\n", version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get("http://" + addr + "/health"); err == nil {
		resp.Body.Close()
		printWarning("newsdesk is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing resources: %v\n", err)
		}
	}()

	// Generation failures degrade to the failure marker, so a missing
	// Ollama is a warning rather than a startup error.
	if a.ollama.IsRunning(ctx) {
		if pull {
			if err := ollama.EnsureReady(ctx, a.ollama, requiredModels(cfg), os.Stderr); err != nil {
				slog.Warn("ollama models not ready", "error", err)
			}
		}
	} else {
		printWarning("Ollama is not reachable at %s; analyses will report generation failures", cfg.Ollama.BaseURL)
	}
	if a.search != nil {
		if err := a.search.Ping(ctx); err != nil {
			slog.Warn("elasticsearch not reachable", "addr", cfg.Sink.ElasticsearchAddr, "error", err)
		}
	}

	// Deferred after a.Close, so the scheduler is stopped before the store closes.
	stopScheduler := ingest.NewScheduler(a.pipeline, cfg.Ingest.Interval).Start(ctx)
	defer stopScheduler()

	if cfg.Server.MCPStdio {
		stdioSrv := server.NewStdioServer(api.NewMCPServer(a.mcpDeps()))
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewRouter(a.apiDeps()),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "newsdesk listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requiredModels(cfg config.Config) []string {
	models := []string{cfg.Ollama.Model}
	if cfg.Embedding.Provider == config.ProviderOllama {
		models = append(models, cfg.Ollama.EmbedModel)
	}
	return models
}

func showStatus(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	st := ollama.CheckStatus(ctx, ollama.New(cfg.Ollama.BaseURL))
	if st.Running {
		printStatus("Ollama", "running at %s (%d models)", st.BaseURL, len(st.Models))
	} else {
		printStatus("Ollama", "not running")
	}

	printStatus("Model", "%s", cfg.Ollama.Model)
	printStatus("Embeddings", "%s", cfg.Embedding.Provider)

	if running {
		if summary, err := fetchSummary(client, serverURL); err == nil {
			printStatus("Documents", "%d (%d sources, last %s)", summary.TotalDocuments, summary.ActiveSources, summary.LastNewsUpdate)
			printStatus("Queries (24h)", "%d, avg confidence %.2f", summary.TotalQueries, summary.AvgConfidence)
		}
	}

	printStatus("Feeds", "%d", len(cfg.Feeds.URLs()))
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func fetchSummary(client *http.Client, serverURL string) (insights.Summary, error) {
	var s insights.Summary
	resp, err := client.Get(serverURL + "/api/rag/summary")
	if err != nil {
		return s, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return s, fmt.Errorf("summary returned %d", resp.StatusCode)
	}
	return s, json.NewDecoder(resp.Body).Decode(&s)
}
