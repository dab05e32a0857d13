package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/arxiv-mcp/internal/semantic"
	"github.com/Laisky/arxiv-mcp/internal/storage"
)

// contentPreviewChars bounds the chunk text echoed per result so a
// broad query does not flood the model context.
const contentPreviewChars = 200

// SemanticSearcher finds stored chunks ranked by embedding similarity.
type SemanticSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]semantic.Match, error)
}

// PaperGetter fetches one stored paper record.
type PaperGetter interface {
	Get(ctx context.Context, paperID string) (*storage.PaperRecord, error)
}

// SemanticSearchTool answers natural-language queries against the
// locally indexed paper chunks.
type SemanticSearchTool struct {
	index  SemanticSearcher
	papers PaperGetter
	logger logSDK.Logger
}

// NewSemanticSearchTool creates a semantic_search_papers tool instance.
func NewSemanticSearchTool(index SemanticSearcher, papers PaperGetter, logger logSDK.Logger) (*SemanticSearchTool, error) {
	if index == nil {
		return nil, errors.New("semantic index is required")
	}
	if papers == nil {
		return nil, errors.New("paper index is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &SemanticSearchTool{index: index, papers: papers, logger: logger}, nil
}

// semanticHit is one ranked chunk in the tool response.
type semanticHit struct {
	Rank           int     `json:"rank"`
	PaperID        string  `json:"paper_id"`
	PaperTitle     string  `json:"paper_title,omitempty"`
	Seq            int     `json:"seq"`
	Score          float64 `json:"score"`
	ContentPreview string  `json:"content_preview"`
}

// Definition returns the MCP tool definition for semantic_search_papers.
func (t *SemanticSearchTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"semantic_search_papers",
		mcp.WithDescription("Search downloaded papers with a natural language query. Results are text chunks ranked by embedding similarity, so this finds passages that share meaning with the query even without keyword overlap."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language search query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of chunks to return (default 10)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the semantic_search_papers tool.
func (t *SemanticSearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	limit := readIntArgWithDefault(req, "limit", 10)

	t.logger.Debug("semantic_search started", zap.Int("query_len", len(query)))
	startAt := time.Now()

	matches, err := t.index.Search(ctx, query, limit)
	if err != nil {
		t.logger.Error("semantic search", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Search error: %v", err)), nil
	}

	// Titles come from the paper index; a chunk whose paper record is
	// gone still returns, just untitled.
	titles := make(map[string]string, len(matches))
	hits := make([]semanticHit, 0, len(matches))
	for i, match := range matches {
		title, ok := titles[match.PaperID]
		if !ok {
			if record, err := t.papers.Get(ctx, match.PaperID); err == nil {
				title = record.Title
			}
			titles[match.PaperID] = title
		}

		preview := match.Text
		if len(preview) > contentPreviewChars {
			preview = preview[:contentPreviewChars] + "..."
		}

		hits = append(hits, semanticHit{
			Rank:           i + 1,
			PaperID:        match.PaperID,
			PaperTitle:     title,
			Seq:            match.Seq,
			Score:          match.Score,
			ContentPreview: preview,
		})
	}

	t.logger.Debug("semantic_search completed",
		zap.Int("results_count", len(hits)),
		zap.Duration("duration", time.Since(startAt)))
	return jsonResult(t.logger, map[string]any{
		"query":         query,
		"search_type":   "semantic",
		"total_results": len(hits),
		"results":       hits,
	})
}
