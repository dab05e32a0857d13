package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/arxiv-mcp/internal/download"
	"github.com/Laisky/arxiv-mcp/internal/search"
	"github.com/Laisky/arxiv-mcp/library/arxiv"
)

// maxBatchPapers bounds one batch request; each paper costs at least
// one rate-limited API round trip.
const maxBatchPapers = 50

// BatchDownloader runs bounded-concurrency downloads.
type BatchDownloader interface {
	Batch(ctx context.Context, paperIDs []string, concurrency int) []download.BatchResult
}

// BatchDownloadTool implements the batch_download MCP tool.
type BatchDownloadTool struct {
	batcher  BatchDownloader
	searcher PaperSearcher
	logger   logSDK.Logger
}

// NewBatchDownloadTool constructs a BatchDownloadTool with the provided dependencies.
func NewBatchDownloadTool(batcher BatchDownloader, searcher PaperSearcher, logger logSDK.Logger) (*BatchDownloadTool, error) {
	if batcher == nil {
		return nil, errors.New("batch downloader is required")
	}
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &BatchDownloadTool{batcher: batcher, searcher: searcher, logger: logger}, nil
}

// batchResponse summarizes one batch run.
type batchResponse struct {
	Total   int                    `json:"total"`
	Success int                    `json:"success"`
	Skipped int                    `json:"skipped"`
	Failed  int                    `json:"failed"`
	Results []download.BatchResult `json:"results"`
}

// Definition returns the MCP metadata describing the tool.
func (t *BatchDownloadTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"batch_download",
		mcp.WithDescription("Download multiple arXiv papers concurrently. Provide paper_ids, or search_query to download the top search hits. Already stored papers are skipped."),
		mcp.WithArray("paper_ids", mcp.Description("arXiv paper ids to download.")),
		mcp.WithString("search_query", mcp.Description("Alternative to paper_ids: download the papers a search returns.")),
		mcp.WithNumber("max_results", mcp.Description("Number of search hits to download when search_query is used.")),
		mcp.WithNumber("max_concurrent", mcp.Description("Concurrent download limit; defaults to a CPU-based value.")),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// Handle executes the batch_download tool logic using the configured dependencies.
func (t *BatchDownloadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paperIDs := readStringSliceArg(req, "paper_ids")

	if len(paperIDs) == 0 {
		query := strings.TrimSpace(readStringArg(req, "search_query"))
		if query == "" {
			return mcp.NewToolResultError("either paper_ids or search_query is required"), nil
		}

		resolution, err := t.searcher.Search(ctx, search.Request{
			Query:      query,
			MaxResults: readIntArgWithDefault(req, "max_results", 10),
		})
		if err != nil {
			t.logger.Error("batch_download search failed", zap.Error(err))
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		papers, _ := resolution.Result.Items.([]arxiv.Paper)
		for _, paper := range papers {
			paperIDs = append(paperIDs, paper.ID)
		}
	}

	if len(paperIDs) == 0 {
		return mcp.NewToolResultError("no papers to download"), nil
	}
	if len(paperIDs) > maxBatchPapers {
		return mcp.NewToolResultError(
			fmt.Sprintf("batch holds %d papers, limit is %d", len(paperIDs), maxBatchPapers)), nil
	}

	t.logger.Info("batch_download started", zap.Int("papers", len(paperIDs)))

	results := t.batcher.Batch(ctx, paperIDs, readIntArgWithDefault(req, "max_concurrent", 0))

	response := batchResponse{Total: len(results), Results: results}
	for _, result := range results {
		switch result.Status {
		case "success":
			response.Success++
		case "skipped":
			response.Skipped++
		default:
			response.Failed++
		}
	}

	t.logger.Info("batch_download finished",
		zap.Int("success", response.Success),
		zap.Int("skipped", response.Skipped),
		zap.Int("failed", response.Failed),
	)

	return jsonResult(t.logger, response)
}
