package tools

import (
	"context"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/arxiv-mcp/internal/storage"
	"github.com/Laisky/arxiv-mcp/library/log"
)

type stubNoteStore struct {
	stored    *storage.Note
	notes     []storage.Note
	addErr    error
	searchErr error

	gotPaperID    string
	gotNote       string
	gotTags       []string
	gotSectionRef string
	gotFilter     storage.NoteFilter
}

func (s *stubNoteStore) AddNote(_ context.Context, paperID, note string, tags []string, sectionRef string) (*storage.Note, error) {
	s.gotPaperID = paperID
	s.gotNote = note
	s.gotTags = tags
	s.gotSectionRef = sectionRef
	if s.addErr != nil {
		return nil, s.addErr
	}
	return s.stored, nil
}

func (s *stubNoteStore) SearchNotes(_ context.Context, filter storage.NoteFilter) ([]storage.Note, error) {
	s.gotFilter = filter
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.notes, nil
}

type stubChecker struct {
	has bool
}

func (s *stubChecker) HasMarkdown(string) bool { return s.has }

func mustAddPaperNoteTool(t *testing.T, notes NoteStore, files MarkdownChecker) *AddPaperNoteTool {
	t.Helper()

	tool, err := NewAddPaperNoteTool(notes, files, log.Logger.Named("test_add_paper_note"))
	require.NoError(t, err)
	return tool
}

func mustListPaperNotesTool(t *testing.T, notes NoteStore) *ListPaperNotesTool {
	t.Helper()

	tool, err := NewListPaperNotesTool(notes, log.Logger.Named("test_list_paper_notes"))
	require.NoError(t, err)
	return tool
}

func TestAddPaperNoteSuccess(t *testing.T) {
	createdAt := time.Date(2024, time.April, 2, 9, 0, 0, 0, time.UTC)
	store := &stubNoteStore{
		stored: &storage.Note{
			ID:         7,
			PaperID:    "2401.12345",
			Note:       "Clever ablation setup.",
			Tags:       []string{"methodology"},
			SectionRef: "methods",
			CreatedAt:  createdAt,
		},
	}
	tool := mustAddPaperNoteTool(t, store, &stubChecker{has: true})

	result := callTool(t, tool, map[string]any{
		"paper_id":    "2401.12345",
		"note":        "Clever ablation setup.",
		"tags":        []string{"methodology"},
		"section_ref": "methods",
	})
	require.False(t, result.IsError)
	require.Equal(t, "2401.12345", store.gotPaperID)
	require.Equal(t, "Clever ablation setup.", store.gotNote)
	require.Equal(t, []string{"methodology"}, store.gotTags)
	require.Equal(t, "methods", store.gotSectionRef)

	var payload struct {
		Status string       `json:"status"`
		Note   storage.Note `json:"note"`
	}
	decodeResult(t, result, &payload)
	require.Equal(t, "success", payload.Status)
	require.Equal(t, int64(7), payload.Note.ID)
	require.Equal(t, "Clever ablation setup.", payload.Note.Note)
	require.True(t, payload.Note.CreatedAt.Equal(createdAt))
}

func TestAddPaperNotePaperMissing(t *testing.T) {
	store := &stubNoteStore{}
	tool := mustAddPaperNoteTool(t, store, &stubChecker{has: false})

	result := callTool(t, tool, map[string]any{
		"paper_id": "2401.12345",
		"note":     "text",
	})
	require.True(t, result.IsError)
	require.Equal(t, "Error: Paper 2401.12345 not found. Please download it first.", resultText(t, result))
	require.Empty(t, store.gotPaperID)
}

func TestAddPaperNoteStoreError(t *testing.T) {
	store := &stubNoteStore{addErr: errors.New("db locked")}
	tool := mustAddPaperNoteTool(t, store, &stubChecker{has: true})

	result := callTool(t, tool, map[string]any{
		"paper_id": "2401.12345",
		"note":     "text",
	})
	require.True(t, result.IsError)
	require.Contains(t, resultText(t, result), "failed to store note")
}

func TestAddPaperNoteInvalidID(t *testing.T) {
	store := &stubNoteStore{
		addErr: storage.NewError(storage.ErrCodeInvalidID, "paper id \"../etc\" is not a valid arxiv id", false),
	}
	tool := mustAddPaperNoteTool(t, store, &stubChecker{has: true})

	result := callTool(t, tool, map[string]any{
		"paper_id": "../etc",
		"note":     "text",
	})
	require.True(t, result.IsError)
	require.Contains(t, resultText(t, result), "not a valid arxiv id")
}

func TestListPaperNotesFilters(t *testing.T) {
	store := &stubNoteStore{
		notes: []storage.Note{
			{ID: 1, PaperID: "2401.12345", Note: "First note", Tags: []string{"important"}},
			{ID: 2, PaperID: "2401.12345", Note: "Second note"},
		},
	}
	tool := mustListPaperNotesTool(t, store)

	result := callTool(t, tool, map[string]any{
		"paper_id":    "2401.12345",
		"tags":        []string{"important"},
		"search_text": "note",
	})
	require.False(t, result.IsError)
	require.Equal(t, storage.NoteFilter{
		PaperID: "2401.12345",
		Tags:    []string{"important"},
		Text:    "note",
	}, store.gotFilter)

	var payload struct {
		TotalNotes int            `json:"total_notes"`
		Notes      []storage.Note `json:"notes"`
	}
	decodeResult(t, result, &payload)
	require.Equal(t, 2, payload.TotalNotes)
	require.Len(t, payload.Notes, 2)
	require.Equal(t, "First note", payload.Notes[0].Note)
}

func TestListPaperNotesEmpty(t *testing.T) {
	tool := mustListPaperNotesTool(t, &stubNoteStore{})

	result := callTool(t, tool, nil)
	require.False(t, result.IsError)

	var payload struct {
		TotalNotes int            `json:"total_notes"`
		Notes      []storage.Note `json:"notes"`
	}
	decodeResult(t, result, &payload)
	require.Zero(t, payload.TotalNotes)
	require.NotNil(t, payload.Notes)
	require.Empty(t, payload.Notes)
}

func TestListPaperNotesStoreError(t *testing.T) {
	tool := mustListPaperNotesTool(t, &stubNoteStore{searchErr: errors.New("db locked")})

	result := callTool(t, tool, nil)
	require.True(t, result.IsError)
	require.Contains(t, resultText(t, result), "failed to search notes")
}
