package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Laisky/arxiv-mcp/internal/download"
	"github.com/Laisky/arxiv-mcp/internal/search"
	"github.com/Laisky/arxiv-mcp/internal/storage"
	"github.com/Laisky/arxiv-mcp/library/arxiv"
	"github.com/Laisky/arxiv-mcp/library/db/sqlite"
	"github.com/Laisky/arxiv-mcp/library/log"
)

type serverDeps struct {
	client    *arxiv.Client
	searcher  *search.Service
	downloads *download.Service
	files     *storage.Files
	papers    *storage.Papers
	notes     *storage.Annotations
}

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<feed xmlns="http://www.w3.org/2005/Atom">` +
	`<opensearch:totalResults xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/">0</opensearch:totalResults>` +
	`</feed>`

func newServerDeps(t *testing.T) serverDeps {
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
	require.NoError(t, err, "build search service")

	db, err := sqlite.NewDB(context.Background(),
		filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err, "open index db")
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
	require.NoError(t, err, "build download service")

	return serverDeps{
		client:    client,
		searcher:  searcher,
		downloads: downloads,
		files:     files,
		papers:    papers,
		notes:     notes,
	}
}

func allToolsEnabled() ToolsSettings {
	return ToolsSettings{
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
}

func TestNewServerRequiresDependencies(t *testing.T) {
	t.Parallel()

	deps := newServerDeps(t)
	logger := log.Logger.Named("test_mcp_server")

	cases := []struct {
		name    string
		mutate  func(*serverDeps)
		wantErr string
	}{
		{"nil client", func(d *serverDeps) { d.client = nil }, "arxiv client is required"},
		{"nil searcher", func(d *serverDeps) { d.searcher = nil }, "search service is required"},
		{"nil downloads", func(d *serverDeps) { d.downloads = nil }, "download service is required"},
		{"nil files", func(d *serverDeps) { d.files = nil }, "file store is required"},
		{"nil papers", func(d *serverDeps) { d.papers = nil }, "paper index is required"},
		{"nil notes", func(d *serverDeps) { d.notes = nil }, "note store is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			broken := deps
			tc.mutate(&broken)

			srv, err := NewServer(broken.client, broken.searcher, broken.downloads,
				broken.files, broken.papers, broken.notes,
				nil, allToolsEnabled(), "", logger)
			require.Nil(t, srv)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	t.Parallel()

	deps := newServerDeps(t)
	logger := log.Logger.Named("test_mcp_server")

	srv, err := NewServer(deps.client, deps.searcher, deps.downloads,
		deps.files, deps.papers, deps.notes,
		nil, allToolsEnabled(), "", logger)
	require.NoError(t, err)
	require.NotNil(t, srv)
	require.NotNil(t, srv.Handler())

	names := srv.ToolNames()
	require.ElementsMatch(t, []string{
		"search_papers",
		"download_paper",
		"batch_download",
		"list_papers",
		"read_paper",
		"extract_sections",
		"add_paper_note",
		"list_paper_notes",
		"system_stats",
	}, names, "semantic tool stays unregistered without an index")
}

func TestNewServerHonorsDisabledTools(t *testing.T) {
	t.Parallel()

	deps := newServerDeps(t)
	logger := log.Logger.Named("test_mcp_server")

	settings := allToolsEnabled()
	settings.DownloadPaperEnabled = false
	settings.SystemStatsEnabled = false

	srv, err := NewServer(deps.client, deps.searcher, deps.downloads,
		deps.files, deps.papers, deps.notes,
		nil, settings, "", logger)
	require.NoError(t, err)

	names := srv.ToolNames()
	require.NotContains(t, names, "download_paper")
	require.NotContains(t, names, "system_stats")
	require.Contains(t, names, "search_papers")
	require.Contains(t, names, "read_paper")
}

func TestWithStaticTokenAuth(t *testing.T) {
	t.Parallel()

	logger := log.Logger.Named("test_mcp_auth")
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("empty token leaves endpoint open", func(t *testing.T) {
		handler := withStaticTokenAuth(inner, "", logger)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing token rejected", func(t *testing.T) {
		handler := withStaticTokenAuth(inner, "sekret", logger)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		handler := withStaticTokenAuth(inner, "sekret", logger)
		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bearer token accepted", func(t *testing.T) {
		handler := withStaticTokenAuth(inner, "sekret", logger)
		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		req.Header.Set("Authorization", "Bearer sekret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("raw token accepted", func(t *testing.T) {
		handler := withStaticTokenAuth(inner, "sekret", logger)
		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		req.Header.Set("Authorization", "sekret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestWithAuthorizationHeaderNormalization(t *testing.T) {
	t.Parallel()

	logger := log.Logger.Named("test_mcp_auth")

	t.Run("query api key promoted to header", func(t *testing.T) {
		var seen string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusNoContent)
		})

		handler := withAuthorizationHeaderNormalization(inner, logger)
		req := httptest.NewRequest(http.MethodPost, "/mcp?apikey=sekret", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, "Bearer sekret", seen)
	})

	t.Run("existing header wins", func(t *testing.T) {
		var seen string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusNoContent)
		})

		handler := withAuthorizationHeaderNormalization(inner, logger)
		req := httptest.NewRequest(http.MethodPost, "/mcp?apikey=other", nil)
		req.Header.Set("Authorization", "Bearer sekret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, "Bearer sekret", seen)
	})
}

func TestResolveRequestAuthorizationHeader(t *testing.T) {
	t.Parallel()

	t.Run("header source", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
		req.Header.Set("Authorization", "Bearer tok")

		header, source := resolveRequestAuthorizationHeader(req)
		require.Equal(t, "Bearer tok", header)
		require.Equal(t, "header", source)
	})

	t.Run("query source", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/mcp?api_key=tok", nil)

		header, source := resolveRequestAuthorizationHeader(req)
		require.Equal(t, "Bearer tok", header)
		require.Equal(t, "query_apikey", source)
	})

	t.Run("none", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/mcp", nil)

		header, source := resolveRequestAuthorizationHeader(req)
		require.Empty(t, header)
		require.Equal(t, "none", source)
	})
}
