package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/arxiv-mcp/internal/storage"
)

// ExtractSectionsTool pulls named sections out of a converted paper so
// a model can read the methods without paging through the whole text.
type ExtractSectionsTool struct {
	files  MarkdownReader
	logger logSDK.Logger
}

// NewExtractSectionsTool creates an extract_sections tool instance.
func NewExtractSectionsTool(files MarkdownReader, logger logSDK.Logger) (*ExtractSectionsTool, error) {
	if files == nil {
		return nil, errors.New("file store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &ExtractSectionsTool{files: files, logger: logger}, nil
}

// Definition returns the MCP tool definition for extract_sections.
func (t *ExtractSectionsTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"extract_sections",
		mcp.WithDescription("Extract specific sections from a downloaded paper, such as abstract, introduction, methods, results, discussion, conclusion or references. Common aliases are recognized, so 'methods' also matches 'Methodology'."),
		mcp.WithString("paper_id",
			mcp.Required(),
			mcp.Description("arXiv paper identifier, e.g. '2401.12345'"),
		),
		mcp.WithArray("sections",
			mcp.Required(),
			mcp.Description("Section names to extract, e.g. ['abstract', 'methods']"),
		),
		mcp.WithBoolean("include_subsections",
			mcp.Description("Include subsections under each matched heading (default true)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the extract_sections tool.
func (t *ExtractSectionsTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paperID, err := req.RequireString("paper_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sections := readStringSliceArg(req, "sections")
	if len(sections) == 0 {
		return mcp.NewToolResultError("sections is required"), nil
	}

	includeSubsections := readBoolArgWithDefault(req, "include_subsections", true)

	t.logger.Debug("extract_sections started",
		zap.String("paper_id", paperID),
		zap.Int("sections", len(sections)))

	content, err := t.files.ReadMarkdown(paperID)
	if err != nil {
		if storage.IsCode(err, storage.ErrCodeNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Error: Paper %s not found. Please download it first.", paperID)), nil
		}
		if typed, ok := storage.AsError(err); ok {
			return mcp.NewToolResultError(typed.Message), nil
		}

		t.logger.Error("read stored paper", zap.String("paper_id", paperID), zap.Error(err))
		return mcp.NewToolResultError("failed to read stored paper"), nil
	}

	var extracted []string
	var notFound []string
	for _, section := range sections {
		if text, ok := extractSection(content, section, includeSubsections); ok {
			extracted = append(extracted, text)
		} else {
			notFound = append(notFound, section)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Extracted sections from %s:\n\n", paperID)
	b.WriteString(strings.Join(extracted, "\n\n---\n\n"))
	if len(notFound) > 0 {
		fmt.Fprintf(&b, "\n\n---\n\nSections not found: %s", strings.Join(notFound, ", "))
		if headings := availableSections(content); len(headings) > 0 {
			b.WriteString("\n\nAvailable sections in this paper:\n")
			fmt.Fprintf(&b, "\u2022 %s", strings.Join(headings, "\n\u2022 "))
		}
	}

	t.logger.Debug("extract_sections completed",
		zap.String("paper_id", paperID),
		zap.Int("found", len(extracted)),
		zap.Int("missing", len(notFound)))
	return mcp.NewToolResultText(b.String()), nil
}
