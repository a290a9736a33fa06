package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/newsdesk/internal/retrieval"
	"github.com/kalambet/newsdesk/internal/sink"
)

// MCPRetriever abstracts semantic search over stored documents.
type MCPRetriever interface {
	Retrieve(ctx context.Context, query, sector string, topK int) ([]retrieval.Candidate, error)
}

// Searcher is a full-text search backend, such as the Elasticsearch mirror.
type Searcher interface {
	Search(ctx context.Context, query string, size int) ([]sink.Event, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Analyzer  Analyzer
	Insights  Insights
	Retriever MCPRetriever
	Search    Searcher // optional; search_news uses Retriever when nil or failing
	Logger    *slog.Logger
}

const recentDocuments = 10

// NewMCPServer creates an MCP server with all newsdesk tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := server.NewMCPServer(
		"newsdesk",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("newsdesk: market news retrieval and LLM analysis over recent financial headlines."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("analyze_market",
			mcp.WithDescription("Answer a market question from recent news, optionally scoped to a sector."),
			mcp.WithString("query", mcp.Description("Question to answer; a default question is used when empty")),
			mcp.WithString("sector", mcp.Description("Optional sector: technology, finance, healthcare or retail")),
		),
		mcpAnalyzeMarket(deps),
	)

	s.AddTool(
		mcp.NewTool("analyze_sector",
			mcp.WithDescription("Run the standard analysis for one sector, or for every sector when sector is \"all\"."),
			mcp.WithString("sector", mcp.Description("Sector name or \"all\""), mcp.Required()),
		),
		mcpAnalyzeSector(deps),
	)

	s.AddTool(
		mcp.NewTool("search_news",
			mcp.WithDescription("Search stored news documents and return the best matches."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
		),
		mcpSearchNews(deps),
	)

	s.AddTool(
		mcp.NewTool("get_insights",
			mcp.WithDescription("Aggregate statistics over recorded analyses and metrics."),
			mcp.WithNumber("days", mcp.Description("Window in days (default 30)")),
		),
		mcpGetInsights(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"news://recent",
			"Recent News",
			mcp.WithResourceDescription("Most recently published news documents"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpAnalyzeMarket(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if len([]rune(query)) > maxQueryLen {
			return mcpError(fmt.Sprintf("query exceeds %d characters", maxQueryLen)), nil
		}
		return mcpJSON(deps.Analyzer.Analyze(ctx, query, req.GetString("sector", "")))
	}
}

func mcpAnalyzeSector(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sector, err := req.RequireString("sector")
		if err != nil || strings.TrimSpace(sector) == "" {
			return mcpError("sector is required"), nil
		}
		if strings.EqualFold(strings.TrimSpace(sector), "all") {
			return mcpJSON(deps.Analyzer.MultiSectorAnalysis(ctx))
		}
		return mcpJSON(deps.Analyzer.SectorAnalysis(ctx, sector))
	}
}

type searchResult struct {
	DocID      string   `json:"doc_id"`
	Title      string   `json:"title"`
	Source     string   `json:"source"`
	URL        string   `json:"url"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Similarity float64  `json:"similarity,omitempty"`
	Preview    string   `json:"preview,omitempty"`
}

func mcpSearchNews(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > 50 {
			limit = 50
		}

		if deps.Search != nil {
			events, err := deps.Search.Search(ctx, query, limit)
			if err == nil {
				results := make([]searchResult, len(events))
				for i, e := range events {
					results[i] = searchResult{
						DocID:    e.DocID,
						Title:    e.Title,
						Source:   e.Source,
						URL:      e.URL,
						Category: e.Category,
						Tags:     e.Tags,
						Preview:  retrieval.Preview(e.Content),
					}
				}
				return mcpJSON(results)
			}
			logger := deps.Logger
			if logger == nil {
				logger = slog.Default()
			}
			logger.Warn("search backend failed, using embedding retrieval", "error", err)
		}

		if deps.Retriever == nil {
			return mcpError("search is not configured"), nil
		}
		candidates, err := deps.Retriever.Retrieve(ctx, query, "", limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		results := make([]searchResult, len(candidates))
		for i, c := range candidates {
			results[i] = searchResult{
				DocID:      c.Document.DocID,
				Title:      c.Document.Title,
				Source:     c.Document.Source,
				URL:        c.Document.URL,
				Category:   c.Document.Category,
				Tags:       c.Document.Tags,
				Similarity: c.Similarity,
				Preview:    c.Preview,
			}
		}
		return mcpJSON(results)
	}
}

func mcpGetInsights(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		days := req.GetInt("days", 30)
		if days <= 0 {
			days = 30
		}
		return mcpJSON(deps.Insights.Insights(ctx, days))
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		docs := deps.Insights.Documents(ctx, recentDocuments, 0)
		b, err := json.Marshal(docs)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal documents: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
