package tools

import (
	"context"
	"fmt"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/arxiv-mcp/internal/storage"
)

// MarkdownReader reads stored paper markdown.
type MarkdownReader interface {
	ReadMarkdown(paperID string) (string, error)
}

// ReadPaperTool implements the read_paper MCP tool.
type ReadPaperTool struct {
	files  MarkdownReader
	logger logSDK.Logger
}

// NewReadPaperTool constructs a ReadPaperTool with the provided dependencies.
func NewReadPaperTool(files MarkdownReader, logger logSDK.Logger) (*ReadPaperTool, error) {
	if files == nil {
		return nil, errors.New("file store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &ReadPaperTool{files: files, logger: logger}, nil
}

// Definition returns the MCP metadata describing the tool.
func (t *ReadPaperTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"read_paper",
		mcp.WithDescription("Read the converted content of a downloaded paper."),
		mcp.WithString(
			"paper_id",
			mcp.Required(),
			mcp.Description("arXiv paper id, e.g. 2401.12345."),
		),
		mcp.WithString("format", mcp.Description("Output format: markdown (default) or html.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the read_paper tool logic using the configured dependencies.
func (t *ReadPaperTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paperID, err := req.RequireString("paper_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	format := readStringArg(req, "format")
	if format == "" {
		format = "markdown"
	}
	if format != "markdown" && format != "html" {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported format %q, use markdown or html", format)), nil
	}

	content, err := t.files.ReadMarkdown(paperID)
	if err != nil {
		if storage.IsCode(err, storage.ErrCodeNotFound) {
			return mcp.NewToolResultError(
				fmt.Sprintf("Error: Paper %s not found. Please download it first.", paperID)), nil
		}
		if typed, ok := storage.AsError(err); ok {
			return mcp.NewToolResultError(typed.Message), nil
		}

		t.logger.Error("read_paper failed", zap.Error(err), zap.String("paper_id", paperID))
		return mcp.NewToolResultError("failed to read stored paper"), nil
	}

	if format == "html" {
		renderer := html.NewRenderer(html.RendererOptions{
			Flags: html.CommonFlags | html.HrefTargetBlank,
		})
		content = string(markdown.ToHTML([]byte(content), nil, renderer))
	}

	return jsonResult(t.logger, map[string]any{
		"paper_id": paperID,
		"format":   format,
		"content":  content,
	})
}
