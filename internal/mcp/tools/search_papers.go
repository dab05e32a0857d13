package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/arxiv-mcp/internal/search"
	"github.com/Laisky/arxiv-mcp/library/arxiv"
)

// PaperSearcher runs one search request through the widening cascade.
type PaperSearcher interface {
	Search(ctx context.Context, req search.Request) (*search.Resolution, error)
}

// SearchPapersTool implements the search_papers MCP tool.
type SearchPapersTool struct {
	searcher PaperSearcher
	logger   logSDK.Logger
}

// NewSearchPapersTool constructs a SearchPapersTool with the provided dependencies.
func NewSearchPapersTool(searcher PaperSearcher, logger logSDK.Logger) (*SearchPapersTool, error) {
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &SearchPapersTool{searcher: searcher, logger: logger}, nil
}

// searchResponse is the search_papers payload. Resolver-backed answers
// carry the resolution fields; the early-out shapes (empty query, bad
// date) stay minimal.
type searchResponse struct {
	SearchStatus      search.Status         `json:"search_status,omitempty"`
	FinalQuery        string                `json:"final_query,omitempty"`
	StrategiesApplied []search.StrategyName `json:"strategies_applied,omitempty"`
	WideningInfo      *search.WideningInfo  `json:"widening_info,omitempty"`
	TotalResults      int                   `json:"total_results"`
	Papers            []paperSummary        `json:"papers"`
	Query             string                `json:"query,omitempty"`
	Suggestions       []string              `json:"suggestions,omitempty"`
	Message           string                `json:"message,omitempty"`
	Error             string                `json:"error,omitempty"`
}

// Definition returns the MCP metadata describing the tool.
func (t *SearchPapersTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"search_papers",
		mcp.WithDescription("Search for papers on arXiv with advanced filtering. Zero-result queries are widened step by step and the response reports which strategies were applied."),
		mcp.WithString(
			"query",
			mcp.Required(),
			mcp.Description("Plain text or arXiv field-prefixed search query."),
		),
		mcp.WithNumber("max_results", mcp.Description("Maximum papers to return; capped server-side.")),
		mcp.WithString("date_from", mcp.Description("Only papers published on or after this date (YYYY-MM-DD). Disables widening.")),
		mcp.WithString("date_to", mcp.Description("Only papers published on or before this date (YYYY-MM-DD). Disables widening.")),
		mcp.WithArray("categories", mcp.Description("arXiv category codes restricting the search, e.g. cs.AI.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// Handle executes the search_papers tool logic using the configured dependencies.
func (t *SearchPapersTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return jsonResult(t.logger, searchResponse{
			Papers:  []paperSummary{},
			Message: "Empty query provided",
		})
	}

	dateFrom, err := parseDateArg(req, "date_from")
	if err != nil {
		return jsonResult(t.logger, searchResponse{
			Error:  fmt.Sprintf("Invalid date format: %v", err),
			Papers: []paperSummary{},
		})
	}
	dateTo, err := parseDateArg(req, "date_to")
	if err != nil {
		return jsonResult(t.logger, searchResponse{
			Error:  fmt.Sprintf("Invalid date format: %v", err),
			Papers: []paperSummary{},
		})
	}

	start := time.Now().UTC()
	t.logger.Debug("search_papers started", zap.Int("query_len", len(query)))

	resolution, err := t.searcher.Search(ctx, search.Request{
		Query:      query,
		MaxResults: readIntArgWithDefault(req, "max_results", 0),
		Categories: readStringSliceArg(req, "categories"),
		DateFrom:   dateFrom,
		DateTo:     dateTo,
	})
	if err != nil {
		t.logger.Error("search_papers failed", zap.Error(err), zap.Int("query_len", len(query)))
		return jsonResult(t.logger, searchResponse{
			Error:  fmt.Sprintf("Search error: %v", err),
			Papers: []paperSummary{},
		})
	}

	papers, _ := resolution.Result.Items.([]arxiv.Paper)
	summaries, err := summarizePapers(papers)
	if err != nil {
		t.logger.Error("summarize papers", zap.Error(err))
		return mcp.NewToolResultError("failed to encode search result"), nil
	}

	response := searchResponse{
		SearchStatus:      resolution.Status,
		FinalQuery:        resolution.FinalQuery,
		StrategiesApplied: resolution.StrategiesApplied,
		WideningInfo:      resolution.Widening,
		TotalResults:      len(summaries),
		Papers:            summaries,
		Query:             query,
		Suggestions:       resolution.Suggestions,
	}
	if resolution.Status == search.StatusServiceUnavailable {
		response.Error = "Search error: arXiv index unavailable"
	}

	t.logger.Debug("search_papers completed",
		zap.String("status", string(resolution.Status)),
		zap.Int("results_count", len(summaries)),
		zap.Duration("duration", time.Since(start)),
	)

	return jsonResult(t.logger, response)
}
