package tools

import (
	"context"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/arxiv-mcp/internal/storage"
	"github.com/Laisky/arxiv-mcp/library/log"
)

type stubPinger struct{ err error }

func (s *stubPinger) Ping(context.Context) error { return s.err }

type stubStorageInfo struct {
	root          string
	pdf, markdown storage.Usage
	err           error
}

func (s *stubStorageInfo) Root() string { return s.root }

func (s *stubStorageInfo) DiskUsage() (storage.Usage, storage.Usage, error) {
	return s.pdf, s.markdown, s.err
}

type stubPaperCount struct {
	n   int
	err error
}

func (s *stubPaperCount) Count(context.Context) (int, error) { return s.n, s.err }

type stubNoteCount struct {
	n   int
	err error
}

func (s *stubNoteCount) CountNotes(context.Context) (int, error) { return s.n, s.err }

type stubJobCount struct{ n int }

func (s *stubJobCount) ActiveJobs() int { return s.n }

type stubChunkCount struct {
	n   int64
	err error
}

func (s *stubChunkCount) ChunkCount(context.Context) (int64, error) { return s.n, s.err }

type stubLimit struct{ n int }

func (s *stubLimit) ResultsLimit() int { return s.n }

func mustSystemStatsTool(t *testing.T, arxiv Pinger, index ChunkCounter) *SystemStatsTool {
	t.Helper()

	tool, err := NewSystemStatsTool("1.0.0",
		arxiv,
		&stubStorageInfo{
			root:     "/papers",
			pdf:      storage.Usage{Files: 2, Bytes: 1024},
			markdown: storage.Usage{Files: 2, Bytes: 512},
		},
		&stubPaperCount{n: 2},
		&stubNoteCount{n: 5},
		&stubJobCount{n: 1},
		index,
		&stubLimit{n: 50},
		log.Logger.Named("test_system_stats"),
	)
	require.NoError(t, err)
	return tool
}

func TestSystemStatsHealthy(t *testing.T) {
	tool := mustSystemStatsTool(t, &stubPinger{}, &stubChunkCount{n: 42})

	result := callTool(t, tool, nil)
	require.False(t, result.IsError)

	var payload systemStatsResponse
	decodeResult(t, result, &payload)
	require.Equal(t, "arxiv-mcp", payload.Server.Name)
	require.Equal(t, "1.0.0", payload.Server.Version)
	require.NotEmpty(t, payload.Server.GoVersion)
	require.Equal(t, "/papers", payload.Storage.Path)
	require.Equal(t, 2, payload.Storage.PapersStored)
	require.Equal(t, 5, payload.Storage.Notes)
	require.Equal(t, 2, payload.Storage.PDF.Files)
	require.Equal(t, int64(1024), payload.Storage.PDF.Bytes)
	require.Equal(t, 1, payload.Downloads.ActiveJobs)
	require.True(t, payload.Semantic.Enabled)
	require.Equal(t, int64(42), payload.Semantic.ChunksIndexed)
	require.Equal(t, 50, payload.Search.MaxResultsLimit)
	require.Equal(t, "connected", payload.ArxivAPI.Status)
	require.Empty(t, payload.ArxivAPI.Error)
	require.NotEmpty(t, payload.Environment.OS)
	require.Positive(t, payload.Environment.NumCPU)
}

func TestSystemStatsArxivDown(t *testing.T) {
	tool := mustSystemStatsTool(t, &stubPinger{err: errors.New("503 slow down")}, nil)

	result := callTool(t, tool, nil)
	require.False(t, result.IsError)

	var payload systemStatsResponse
	decodeResult(t, result, &payload)
	require.Equal(t, "error", payload.ArxivAPI.Status)
	require.Contains(t, payload.ArxivAPI.Error, "503 slow down")
}

func TestSystemStatsSemanticDisabled(t *testing.T) {
	tool := mustSystemStatsTool(t, &stubPinger{}, nil)

	result := callTool(t, tool, nil)
	require.False(t, result.IsError)

	var payload systemStatsResponse
	decodeResult(t, result, &payload)
	require.False(t, payload.Semantic.Enabled)
	require.Zero(t, payload.Semantic.ChunksIndexed)
}
