package tools

import (
	"context"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/arxiv-mcp/internal/storage"
)

// PaperLister reads the local paper index.
type PaperLister interface {
	List(ctx context.Context) ([]storage.PaperRecord, error)
}

// ListPapersTool implements the list_papers MCP tool.
type ListPapersTool struct {
	papers PaperLister
	logger logSDK.Logger
}

// NewListPapersTool constructs a ListPapersTool with the provided dependencies.
func NewListPapersTool(papers PaperLister, logger logSDK.Logger) (*ListPapersTool, error) {
	if papers == nil {
		return nil, errors.New("paper index is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &ListPapersTool{papers: papers, logger: logger}, nil
}

// Definition returns the MCP metadata describing the tool.
func (t *ListPapersTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"list_papers",
		mcp.WithDescription("List all papers downloaded to local storage."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the list_papers tool logic using the configured dependencies.
func (t *ListPapersTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := t.papers.List(ctx)
	if err != nil {
		t.logger.Error("list_papers failed", zap.Error(err))
		return mcp.NewToolResultError("failed to list stored papers"), nil
	}
	if records == nil {
		records = []storage.PaperRecord{}
	}

	return jsonResult(t.logger, map[string]any{
		"total_papers": len(records),
		"papers":       records,
	})
}
