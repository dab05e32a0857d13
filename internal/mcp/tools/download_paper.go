package tools

import (
	"context"
	"fmt"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/arxiv-mcp/internal/download"
	"github.com/Laisky/arxiv-mcp/library/arxiv"
)

// DownloadService drives download jobs for the download_paper tool.
type DownloadService interface {
	Start(ctx context.Context, paperID string) (download.Job, bool, error)
	Status(paperID string) download.StatusReport
}

// DownloadPaperTool implements the download_paper MCP tool.
type DownloadPaperTool struct {
	downloads DownloadService
	logger    logSDK.Logger
}

// NewDownloadPaperTool constructs a DownloadPaperTool with the provided dependencies.
func NewDownloadPaperTool(downloads DownloadService, logger logSDK.Logger) (*DownloadPaperTool, error) {
	if downloads == nil {
		return nil, errors.New("download service is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &DownloadPaperTool{downloads: downloads, logger: logger}, nil
}

// Definition returns the MCP metadata describing the tool.
func (t *DownloadPaperTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"download_paper",
		mcp.WithDescription("Download a paper's pdf from arXiv and convert it to markdown. Conversion continues in the background; poll with check_status."),
		mcp.WithString(
			"paper_id",
			mcp.Required(),
			mcp.Description("arXiv paper id, e.g. 2401.12345."),
		),
		mcp.WithBoolean("check_status", mcp.Description("Report the conversion status instead of starting a download.")),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// Handle executes the download_paper tool logic using the configured dependencies.
func (t *DownloadPaperTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paperID, err := req.RequireString("paper_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if readBoolArgWithDefault(req, "check_status", false) {
		return jsonResult(t.logger, t.downloads.Status(paperID))
	}

	job, created, err := t.downloads.Start(ctx, paperID)
	if err != nil {
		if errors.Is(err, arxiv.ErrNotFound) {
			return jsonResult(t.logger, download.StatusReport{
				PaperID: paperID,
				Status:  "error",
				Message: fmt.Sprintf("Paper %s not found on arXiv", paperID),
			})
		}

		t.logger.Error("download_paper failed", zap.Error(err), zap.String("paper_id", paperID))
		return jsonResult(t.logger, download.StatusReport{
			PaperID: paperID,
			Status:  "error",
			Message: fmt.Sprintf("Error: %v", err),
		})
	}

	switch {
	case !created && job.State == download.StateSuccess:
		report := t.downloads.Status(paperID)
		report.Message = "Paper already available"
		return jsonResult(t.logger, report)

	case !created:
		return jsonResult(t.logger, statusFromJob(job, fmt.Sprintf("Paper conversion %s", job.State)))

	default:
		return jsonResult(t.logger, statusFromJob(job, "Paper downloaded, conversion started"))
	}
}

func statusFromJob(job download.Job, message string) download.StatusReport {
	report := download.StatusReport{
		PaperID: job.PaperID,
		Status:  string(job.State),
		Message: message,
		Error:   job.Error,
	}
	if !job.StartedAt.IsZero() {
		startedAt := job.StartedAt
		report.StartedAt = &startedAt
	}
	if !job.CompletedAt.IsZero() {
		completedAt := job.CompletedAt
		report.CompletedAt = &completedAt
	}
	return report
}
