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

type stubLister struct {
	records []storage.PaperRecord
	err     error
}

func (s *stubLister) List(context.Context) ([]storage.PaperRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func mustListPapersTool(t *testing.T, lister PaperLister) *ListPapersTool {
	t.Helper()

	tool, err := NewListPapersTool(lister, log.Logger.Named("test_list_papers"))
	require.NoError(t, err)
	return tool
}

func TestListPapersSuccess(t *testing.T) {
	lister := &stubLister{
		records: []storage.PaperRecord{
			{
				ID:           "2401.12345",
				Title:        "Quantum Computing Advances",
				Authors:      []string{"Alice Chen"},
				Categories:   []string{"quant-ph"},
				DownloadedAt: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
			},
		},
	}
	tool := mustListPapersTool(t, lister)

	result := callTool(t, tool, nil)
	require.False(t, result.IsError)

	var payload struct {
		TotalPapers int                   `json:"total_papers"`
		Papers      []storage.PaperRecord `json:"papers"`
	}
	decodeResult(t, result, &payload)
	require.Equal(t, 1, payload.TotalPapers)
	require.Len(t, payload.Papers, 1)
	require.Equal(t, "2401.12345", payload.Papers[0].ID)
	require.Equal(t, "Quantum Computing Advances", payload.Papers[0].Title)
}

func TestListPapersEmptyStore(t *testing.T) {
	tool := mustListPapersTool(t, &stubLister{})

	result := callTool(t, tool, nil)
	require.False(t, result.IsError)

	var payload struct {
		TotalPapers int                   `json:"total_papers"`
		Papers      []storage.PaperRecord `json:"papers"`
	}
	decodeResult(t, result, &payload)
	require.Zero(t, payload.TotalPapers)
	require.NotNil(t, payload.Papers)
	require.Empty(t, payload.Papers)
}

func TestListPapersStoreError(t *testing.T) {
	tool := mustListPapersTool(t, &stubLister{err: errors.New("db locked")})

	result := callTool(t, tool, nil)
	require.True(t, result.IsError)
	require.Contains(t, resultText(t, result), "failed to list stored papers")
}
