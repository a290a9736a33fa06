package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/newsdesk/internal/analysis"
	"github.com/kalambet/newsdesk/internal/config"
	"github.com/kalambet/newsdesk/internal/insights"
)

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one feed ingestion cycle",
	Long: `Run one feed ingestion cycle.

By default the running server performs the cycle. With --local the cycle
runs in this process against the configured data directory.

Examples:
  newsdesk ingest
  newsdesk ingest --local`,
	RunE: func(cmd *cobra.Command, args []string) error {
		local, _ := cmd.Flags().GetBool("local")
		if local {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg.Log.Level)
			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			printStep("Fetching %d feeds...", len(cfg.Feeds.URLs()))
			n, err := a.pipeline.RunCycle(cmd.Context())
			if err != nil {
				return err
			}
			printSuccess("Stored %d documents", n)
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/api/rag/ingest", nil)
		if err != nil {
			return err
		}
		var result struct {
			Stored int `json:"stored"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Stored %d documents", result.Stored)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Store the built-in sample documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)
		a, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.pipeline.Seed(cmd.Context())
		if err != nil {
			return err
		}
		printSuccess("Stored %d sample documents", n)
		return nil
	},
}

func init() {
	ingestCmd.Flags().Bool("local", false, "run the cycle in this process instead of the server")
}

// --- analysis ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [question]",
	Short: "Ask a market question",
	Long: `Ask a market question answered from recent news.

Examples:
  newsdesk analyze "How are chip makers reacting to export limits?"
  newsdesk analyze --sector finance`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sector, _ := cmd.Flags().GetString("sector")
		asJSON, _ := cmd.Flags().GetBool("json")

		q := url.Values{}
		if query := strings.Join(args, " "); query != "" {
			q.Set("query", query)
		}
		if sector != "" {
			q.Set("sector", sector)
		}
		path := "/api/rag/analysis"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}
		var a analysis.Analysis
		if err := decodeJSON(resp, &a); err != nil {
			return err
		}
		if asJSON {
			return writeJSON(os.Stdout, a)
		}
		renderAnalysis(os.Stdout, a)
		return nil
	},
}

var sectorCmd = &cobra.Command{
	Use:   "sector <name|all>",
	Short: "Run the standard analysis for a sector",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if strings.EqualFold(args[0], "all") {
			resp, err := client.get(cmd.Context(), "/api/rag/analysis/sectors")
			if err != nil {
				return err
			}
			var ms analysis.MultiSector
			if err := decodeJSON(resp, &ms); err != nil {
				return err
			}
			if asJSON {
				return writeJSON(os.Stdout, ms)
			}
			for _, s := range analysis.Sectors {
				if a, ok := ms.SectorAnalyses[s]; ok {
					fmt.Fprintln(os.Stdout, colorize(colorBold, "== "+s+" =="))
					renderAnalysis(os.Stdout, a)
					fmt.Fprintln(os.Stdout)
				}
			}
			return nil
		}

		resp, err := client.get(cmd.Context(), "/api/rag/analysis/sector/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var a analysis.Analysis
		if err := decodeJSON(resp, &a); err != nil {
			return err
		}
		if asJSON {
			return writeJSON(os.Stdout, a)
		}
		renderAnalysis(os.Stdout, a)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("sector", "", "restrict retrieval to a sector (technology, finance, healthcare, retail)")
	analyzeCmd.Flags().Bool("json", false, "print the raw JSON response")
	sectorCmd.Flags().Bool("json", false, "print the raw JSON response")
}

func renderAnalysis(w io.Writer, a analysis.Analysis) {
	if a.Degraded {
		fmt.Fprintln(w, colorize(colorYellow, "Analysis unavailable: "+a.Response))
		return
	}
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Query:"), a.Query)
	fmt.Fprintf(w, "%s %s  %s %.2f  %s %dms\n",
		colorize(colorBold, "Sector:"), a.Sector,
		colorize(colorBold, "Confidence:"), a.Confidence,
		colorize(colorBold, "Time:"), a.ResponseTimeMs)
	fmt.Fprintf(w, "%s %s\n\n", colorize(colorBold, "Basis:"), a.Reasoning)
	fmt.Fprintln(w, strings.TrimSpace(a.Response))

	if len(a.RelevantDocs) == 0 {
		return
	}
	fmt.Fprintln(w)
	rows := make([][]string, len(a.RelevantDocs))
	for i, d := range a.RelevantDocs {
		rows[i] = []string{strconv.FormatFloat(d.Similarity, 'f', 3, 64), d.Source, clip(d.Title, 70)}
	}
	writeTable(w, []string{"SIM", "SOURCE", "TITLE"}, rows)
}

// --- insights ---

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show analysis statistics and trends",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		summary, _ := cmd.Flags().GetBool("summary")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if summary {
			resp, err := client.get(cmd.Context(), "/api/rag/summary")
			if err != nil {
				return err
			}
			var s insights.Summary
			if err := decodeJSON(resp, &s); err != nil {
				return err
			}
			return writeJSON(os.Stdout, s)
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/api/rag/insights?days=%d", days))
		if err != nil {
			return err
		}
		var ins insights.Insights
		if err := decodeJSON(resp, &ins); err != nil {
			return err
		}
		return writeJSON(os.Stdout, ins)
	},
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List stored news documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), fmt.Sprintf("/api/rag/documents?limit=%d&offset=%d", limit, offset))
		if err != nil {
			return err
		}
		var docs []insights.DocumentView
		if err := decodeJSON(resp, &docs); err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Fprintln(os.Stdout, "No documents.")
			return nil
		}
		renderDocuments(os.Stdout, docs)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		days, _ := cmd.Flags().GetInt("days")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), fmt.Sprintf("/api/rag/history?limit=%d&days=%d", limit, days))
		if err != nil {
			return err
		}
		var entries []insights.HistoryEntry
		if err := decodeJSON(resp, &entries); err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stdout, "No analyses recorded.")
			return nil
		}
		renderHistory(os.Stdout, entries)
		return nil
	},
}

func init() {
	insightsCmd.Flags().Int("days", 30, "window in days")
	insightsCmd.Flags().Bool("summary", false, "show the dashboard summary instead")
	docsCmd.Flags().Int("limit", 20, "maximum number of documents to list")
	docsCmd.Flags().Int("offset", 0, "number of documents to skip")
	historyCmd.Flags().Int("limit", 20, "maximum number of analyses to list")
	historyCmd.Flags().Int("days", 7, "window in days")
}

func renderDocuments(w io.Writer, docs []insights.DocumentView) {
	rows := make([][]string, len(docs))
	for i, d := range docs {
		rows[i] = []string{d.Timestamp, d.Source, d.Category, clip(d.Title, 70)}
	}
	writeTable(w, []string{"PUBLISHED", "SOURCE", "CATEGORY", "TITLE"}, rows)
}

func renderHistory(w io.Writer, entries []insights.HistoryEntry) {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.CreatedAt, e.AnalysisType, strconv.FormatFloat(e.Confidence, 'f', 2, 64), clip(e.Query, 60)}
	}
	writeTable(w, []string{"CREATED", "TYPE", "CONF", "QUERY"}, rows)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		renderConfig(os.Stdout, config.ShowAll(cfg))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value in the config file.\n\nValid keys:\n  " + strings.Join(config.ValidKeys(), "\n  "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(configPath, key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func renderConfig(w io.Writer, keys []config.KeyInfo) {
	for _, k := range keys {
		fmt.Fprintf(w, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
	}
}
