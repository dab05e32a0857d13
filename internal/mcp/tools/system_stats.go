package tools

import (
	"context"
	"runtime"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/arxiv-mcp/internal/storage"
)

// pingTimeout bounds the upstream probe so a stalled arXiv endpoint
// cannot hang the stats call.
const pingTimeout = 15 * time.Second

// Pinger probes the upstream arXiv API.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PaperCounter counts stored paper records.
type PaperCounter interface {
	Count(ctx context.Context) (int, error)
}

// NoteCounter counts stored annotations.
type NoteCounter interface {
	CountNotes(ctx context.Context) (int, error)
}

// StorageInfo reports where papers live on disk and how much they use.
type StorageInfo interface {
	Root() string
	DiskUsage() (pdf, markdown storage.Usage, err error)
}

// JobCounter reports in-flight download jobs.
type JobCounter interface {
	ActiveJobs() int
}

// ChunkCounter counts chunks held by the semantic index.
type ChunkCounter interface {
	ChunkCount(ctx context.Context) (int64, error)
}

// LimitReporter exposes the search result cap.
type LimitReporter interface {
	ResultsLimit() int
}

// SystemStatsTool reports server, storage and upstream health in one
// call for troubleshooting.
type SystemStatsTool struct {
	version   string
	arxiv     Pinger
	files     StorageInfo
	papers    PaperCounter
	notes     NoteCounter
	downloads JobCounter
	index     ChunkCounter
	limits    LimitReporter
	logger    logSDK.Logger
}

// NewSystemStatsTool creates a system_stats tool instance. A nil index
// marks semantic search as disabled in the report.
func NewSystemStatsTool(version string,
	arxiv Pinger,
	files StorageInfo,
	papers PaperCounter,
	notes NoteCounter,
	downloads JobCounter,
	index ChunkCounter,
	limits LimitReporter,
	logger logSDK.Logger,
) (*SystemStatsTool, error) {
	if version == "" {
		return nil, errors.New("version is required")
	}
	if arxiv == nil {
		return nil, errors.New("arxiv client is required")
	}
	if files == nil {
		return nil, errors.New("file store is required")
	}
	if papers == nil {
		return nil, errors.New("paper index is required")
	}
	if notes == nil {
		return nil, errors.New("note store is required")
	}
	if downloads == nil {
		return nil, errors.New("download service is required")
	}
	if limits == nil {
		return nil, errors.New("search service is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &SystemStatsTool{
		version:   version,
		arxiv:     arxiv,
		files:     files,
		papers:    papers,
		notes:     notes,
		downloads: downloads,
		index:     index,
		limits:    limits,
		logger:    logger,
	}, nil
}

type systemStatsResponse struct {
	Server      serverStats      `json:"server"`
	Storage     storageStats     `json:"storage"`
	Downloads   downloadStats    `json:"downloads"`
	Semantic    semanticStats    `json:"semantic"`
	Search      searchStats      `json:"search"`
	ArxivAPI    arxivAPIStats    `json:"arxiv_api"`
	Environment environmentStats `json:"environment"`
}

type serverStats struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
}

type storageStats struct {
	Path         string        `json:"path"`
	PapersStored int           `json:"papers_stored"`
	Notes        int           `json:"notes"`
	PDF          storage.Usage `json:"pdf"`
	Markdown     storage.Usage `json:"markdown"`
}

type downloadStats struct {
	ActiveJobs int `json:"active_jobs"`
}

type semanticStats struct {
	Enabled       bool  `json:"enabled"`
	ChunksIndexed int64 `json:"chunks_indexed"`
}

type searchStats struct {
	MaxResultsLimit int `json:"max_results_limit"`
}

type arxivAPIStats struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type environmentStats struct {
	OS     string `json:"os"`
	Arch   string `json:"arch"`
	NumCPU int    `json:"num_cpu"`
}

// Definition returns the MCP tool definition for system_stats.
func (t *SystemStatsTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"system_stats",
		mcp.WithDescription("Report server health: stored paper counts, disk usage, active downloads, semantic index size and whether the arXiv API currently answers."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// Handle executes the system_stats tool. Broken subsystems degrade to
// zero values in the report instead of failing the whole call.
func (t *SystemStatsTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.logger.Debug("system_stats started")

	response := systemStatsResponse{
		Server: serverStats{
			Name:      "arxiv-mcp",
			Version:   t.version,
			GoVersion: runtime.Version(),
		},
		Storage: storageStats{
			Path: t.files.Root(),
		},
		Downloads: downloadStats{
			ActiveJobs: t.downloads.ActiveJobs(),
		},
		Search: searchStats{
			MaxResultsLimit: t.limits.ResultsLimit(),
		},
		Environment: environmentStats{
			OS:     runtime.GOOS,
			Arch:   runtime.GOARCH,
			NumCPU: runtime.NumCPU(),
		},
	}

	if count, err := t.papers.Count(ctx); err != nil {
		t.logger.Warn("count stored papers", zap.Error(err))
	} else {
		response.Storage.PapersStored = count
	}

	if count, err := t.notes.CountNotes(ctx); err != nil {
		t.logger.Warn("count notes", zap.Error(err))
	} else {
		response.Storage.Notes = count
	}

	pdf, markdown, err := t.files.DiskUsage()
	if err != nil {
		t.logger.Warn("measure disk usage", zap.Error(err))
	} else {
		response.Storage.PDF = pdf
		response.Storage.Markdown = markdown
	}

	if t.index != nil {
		response.Semantic.Enabled = true
		if chunks, err := t.index.ChunkCount(ctx); err != nil {
			t.logger.Warn("count indexed chunks", zap.Error(err))
		} else {
			response.Semantic.ChunksIndexed = chunks
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := t.arxiv.Ping(probeCtx); err != nil {
		response.ArxivAPI = arxivAPIStats{Status: "error", Error: err.Error()}
		t.logger.Warn("arxiv api probe failed", zap.Error(err))
	} else {
		response.ArxivAPI = arxivAPIStats{Status: "connected"}
	}

	return jsonResult(t.logger, response)
}
