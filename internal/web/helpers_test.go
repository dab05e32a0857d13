package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Laisky/arxiv-mcp/internal/download"
	"github.com/Laisky/arxiv-mcp/internal/mcp"
	"github.com/Laisky/arxiv-mcp/internal/search"
	"github.com/Laisky/arxiv-mcp/internal/storage"
	"github.com/Laisky/arxiv-mcp/library/arxiv"
	"github.com/Laisky/arxiv-mcp/library/db/sqlite"
	"github.com/Laisky/arxiv-mcp/library/log"
)

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<feed xmlns="http://www.w3.org/2005/Atom">` +
	`<opensearch:totalResults xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/">0</opensearch:totalResults>` +
	`</feed>`

// newTestMCPServer wires a fully functional MCP server against an
// httptest arXiv upstream and throwaway storage.
func newTestMCPServer(t *testing.T) *mcp.Server {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(emptyFeed))
	}))
	t.Cleanup(upstream.Close)

	client := arxiv.NewClient(
		arxiv.WithEndpoint(upstream.URL),
		arxiv.WithHTTPClient(upstream.Client()),
		arxiv.WithRequestDelay(time.Millisecond),
	)

	searcher, err := search.NewService(client)
	require.NoError(t, err)

	db, err := sqlite.NewDB(context.Background(),
		filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	papers, err := storage.NewPapers(db.DB)
	require.NoError(t, err)
	notes, err := storage.NewAnnotations(db.DB)
	require.NoError(t, err)
	files, err := storage.NewFiles(t.TempDir())
	require.NoError(t, err)

	downloads, err := download.NewService(client, files, papers)
	require.NoError(t, err)

	settings := mcp.ToolsSettings{
		SearchPapersEnabled:    true,
		DownloadPaperEnabled:   true,
		BatchDownloadEnabled:   true,
		ListPapersEnabled:      true,
		ReadPaperEnabled:       true,
		ExtractSectionsEnabled: true,
		AddPaperNoteEnabled:    true,
		ListPaperNotesEnabled:  true,
		SemanticSearchEnabled:  true,
		SystemStatsEnabled:     true,
	}

	srv, err := mcp.NewServer(client, searcher, downloads, files, papers, notes,
		nil, settings, "", log.Logger.Named("test_web"))
	require.NoError(t, err)

	return srv
}
