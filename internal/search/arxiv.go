package search

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/arxiv-mcp/library/arxiv"
)

// ArxivExecutor adapts the arXiv API client to the cascade's executor
// contract. Category and date constraints are applied on every attempt,
// so widened queries stay inside the caller's scope.
type ArxivExecutor struct {
	client     *arxiv.Client
	maxResults int
	categories []string
	dateFrom   *time.Time
	dateTo     *time.Time
}

// NewArxivExecutor builds an executor for one resolution request.
func NewArxivExecutor(client *arxiv.Client, maxResults int, categories []string, dateFrom, dateTo *time.Time) *ArxivExecutor {
	return &ArxivExecutor{
		client:     client,
		maxResults: maxResults,
		categories: categories,
		dateFrom:   dateFrom,
		dateTo:     dateTo,
	}
}

// Execute runs queryText against the index. Items holds the fetched
// []arxiv.Paper page; Count is its post-filter length.
func (e *ArxivExecutor) Execute(ctx context.Context, queryText string) (ExecutorResult, error) {
	result, err := e.client.Search(ctx, arxiv.SearchParams{
		Query:      queryText,
		Categories: e.categories,
		MaxResults: e.maxResults,
		DateFrom:   e.dateFrom,
		DateTo:     e.dateTo,
	})
	if err != nil {
		return ExecutorResult{}, errors.Wrap(err, "query arxiv")
	}

	return ExecutorResult{Count: len(result.Papers), Items: result.Papers}, nil
}
