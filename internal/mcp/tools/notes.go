package tools

import (
	"context"
	"fmt"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/arxiv-mcp/internal/storage"
)

// NoteStore persists and searches paper annotations.
type NoteStore interface {
	AddNote(ctx context.Context, paperID, note string, tags []string, sectionRef string) (*storage.Note, error)
	SearchNotes(ctx context.Context, filter storage.NoteFilter) ([]storage.Note, error)
}

// MarkdownChecker reports whether a paper's converted text is on disk.
type MarkdownChecker interface {
	HasMarkdown(paperID string) bool
}

// AddPaperNoteTool attaches a research note to a downloaded paper.
type AddPaperNoteTool struct {
	notes  NoteStore
	files  MarkdownChecker
	logger logSDK.Logger
}

// NewAddPaperNoteTool creates an add_paper_note tool instance.
func NewAddPaperNoteTool(notes NoteStore, files MarkdownChecker, logger logSDK.Logger) (*AddPaperNoteTool, error) {
	if notes == nil {
		return nil, errors.New("note store is required")
	}
	if files == nil {
		return nil, errors.New("file store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &AddPaperNoteTool{notes: notes, files: files, logger: logger}, nil
}

// Definition returns the MCP tool definition for add_paper_note.
func (t *AddPaperNoteTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"add_paper_note",
		mcp.WithDescription("Attach a note to a downloaded paper, optionally tagged and anchored to a section. Notes persist across sessions and are searchable with list_paper_notes."),
		mcp.WithString("paper_id",
			mcp.Required(),
			mcp.Description("arXiv paper identifier, e.g. '2401.12345'"),
		),
		mcp.WithString("note",
			mcp.Required(),
			mcp.Description("Note text to store"),
		),
		mcp.WithArray("tags",
			mcp.Description("Tags for grouping notes, e.g. ['methodology', 'important']"),
		),
		mcp.WithString("section_ref",
			mcp.Description("Section the note refers to, e.g. 'methods'"),
		),
		mcp.WithIdempotentHintAnnotation(false),
	)
}

// Handle executes the add_paper_note tool.
func (t *AddPaperNoteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paperID, err := req.RequireString("paper_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := req.RequireString("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tags := readStringSliceArg(req, "tags")
	sectionRef := readStringArg(req, "section_ref")

	if !t.files.HasMarkdown(paperID) {
		return mcp.NewToolResultError(fmt.Sprintf("Error: Paper %s not found. Please download it first.", paperID)), nil
	}

	stored, err := t.notes.AddNote(ctx, paperID, note, tags, sectionRef)
	if err != nil {
		if typed, ok := storage.AsError(err); ok {
			return mcp.NewToolResultError(typed.Message), nil
		}

		t.logger.Error("add paper note", zap.String("paper_id", paperID), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to store note: %v", err)), nil
	}

	t.logger.Info("note added",
		zap.String("paper_id", paperID),
		zap.Int64("note_id", stored.ID),
		zap.Strings("tags", tags))
	return jsonResult(t.logger, map[string]any{
		"status": "success",
		"note":   stored,
	})
}

// ListPaperNotesTool searches stored notes by paper, tag or text.
type ListPaperNotesTool struct {
	notes  NoteStore
	logger logSDK.Logger
}

// NewListPaperNotesTool creates a list_paper_notes tool instance.
func NewListPaperNotesTool(notes NoteStore, logger logSDK.Logger) (*ListPaperNotesTool, error) {
	if notes == nil {
		return nil, errors.New("note store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &ListPaperNotesTool{notes: notes, logger: logger}, nil
}

// Definition returns the MCP tool definition for list_paper_notes.
func (t *ListPaperNotesTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"list_paper_notes",
		mcp.WithDescription("List stored research notes, optionally filtered by paper, tags or a text search. Tag filtering matches notes carrying any of the given tags."),
		mcp.WithString("paper_id",
			mcp.Description("Restrict to notes on one paper"),
		),
		mcp.WithArray("tags",
			mcp.Description("Return notes carrying at least one of these tags"),
		),
		mcp.WithString("search_text",
			mcp.Description("Case-insensitive substring to look for in note text"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the list_paper_notes tool.
func (t *ListPaperNotesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := storage.NoteFilter{
		PaperID: readStringArg(req, "paper_id"),
		Tags:    readStringSliceArg(req, "tags"),
		Text:    readStringArg(req, "search_text"),
	}

	notes, err := t.notes.SearchNotes(ctx, filter)
	if err != nil {
		t.logger.Error("search paper notes", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to search notes: %v", err)), nil
	}
	if notes == nil {
		notes = []storage.Note{}
	}

	t.logger.Debug("list_paper_notes completed",
		zap.String("paper_id", filter.PaperID),
		zap.Int("total", len(notes)))
	return jsonResult(t.logger, map[string]any{
		"total_notes": len(notes),
		"notes":       notes,
	})
}
