package tools

import (
	"context"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/arxiv-mcp/internal/search"
	"github.com/Laisky/arxiv-mcp/library/arxiv"
	"github.com/Laisky/arxiv-mcp/library/log"
)

type stubSearcher struct {
	resolution *search.Resolution
	err        error
	gotReq     search.Request
	calls      int
}

func (s *stubSearcher) Search(_ context.Context, req search.Request) (*search.Resolution, error) {
	s.calls++
	s.gotReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.resolution, nil
}

func mustSearchPapersTool(t *testing.T, searcher PaperSearcher) *SearchPapersTool {
	t.Helper()

	tool, err := NewSearchPapersTool(searcher, log.Logger.Named("test_search_papers"))
	require.NoError(t, err)
	return tool
}

func TestSearchPapersRequiresQuery(t *testing.T) {
	tool := mustSearchPapersTool(t, &stubSearcher{})

	result := callTool(t, tool, map[string]any{})
	require.True(t, result.IsError)
	require.Contains(t, resultText(t, result), "query")
}

func TestSearchPapersEmptyQuery(t *testing.T) {
	searcher := &stubSearcher{}
	tool := mustSearchPapersTool(t, searcher)

	result := callTool(t, tool, map[string]any{"query": "   "})
	require.False(t, result.IsError)
	require.Zero(t, searcher.calls)

	var payload searchResponse
	decodeResult(t, result, &payload)
	require.Equal(t, "Empty query provided", payload.Message)
	require.Zero(t, payload.TotalResults)
	require.Empty(t, payload.Papers)
}

func TestSearchPapersInvalidDate(t *testing.T) {
	searcher := &stubSearcher{}
	tool := mustSearchPapersTool(t, searcher)

	result := callTool(t, tool, map[string]any{
		"query":     "quantum computing",
		"date_from": "13/01/2024",
	})
	require.False(t, result.IsError)
	require.Zero(t, searcher.calls)

	var payload searchResponse
	decodeResult(t, result, &payload)
	require.Contains(t, payload.Error, "Invalid date format")
	require.Empty(t, payload.Papers)
}

func TestSearchPapersSearchError(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("arxiv down")}
	tool := mustSearchPapersTool(t, searcher)

	result := callTool(t, tool, map[string]any{"query": "quantum computing"})
	require.False(t, result.IsError)

	var payload searchResponse
	decodeResult(t, result, &payload)
	require.Contains(t, payload.Error, "Search error: arxiv down")
	require.Zero(t, payload.TotalResults)
}

func TestSearchPapersExactSuccess(t *testing.T) {
	published := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	searcher := &stubSearcher{
		resolution: &search.Resolution{
			Status:            search.StatusExact,
			FinalQuery:        "quantum computing",
			StrategiesApplied: []search.StrategyName{search.StrategyExact},
			Result: search.ExecutorResult{
				Count: 1,
				Items: []arxiv.Paper{
					{
						ID:          "2401.12345",
						Title:       "Quantum Computing Advances",
						Authors:     []string{"Alice Chen"},
						Abstract:    "We study quantum circuits.",
						Categories:  []string{"quant-ph"},
						Published:   published,
						PDFURL:      "https://arxiv.org/pdf/2401.12345",
						ResourceURI: "arxiv://2401.12345",
					},
				},
			},
		},
	}
	tool := mustSearchPapersTool(t, searcher)

	result := callTool(t, tool, map[string]any{
		"query":       "quantum computing",
		"max_results": 5,
		"categories":  []string{"quant-ph"},
	})
	require.False(t, result.IsError)
	require.Equal(t, 1, searcher.calls)
	require.Equal(t, "quantum computing", searcher.gotReq.Query)
	require.Equal(t, 5, searcher.gotReq.MaxResults)
	require.Equal(t, []string{"quant-ph"}, searcher.gotReq.Categories)

	var payload searchResponse
	decodeResult(t, result, &payload)
	require.Equal(t, search.StatusExact, payload.SearchStatus)
	require.Equal(t, "quantum computing", payload.FinalQuery)
	require.Equal(t, "quantum computing", payload.Query)
	require.Equal(t, 1, payload.TotalResults)
	require.Len(t, payload.Papers, 1)
	require.Equal(t, "2401.12345", payload.Papers[0].ID)
	require.Equal(t, "https://arxiv.org/pdf/2401.12345", payload.Papers[0].URL)
	require.Equal(t, "arxiv://2401.12345", payload.Papers[0].ResourceURI)
	require.NotNil(t, payload.Papers[0].Published)
	require.Equal(t, "2024-01-15T00:00:00Z", *payload.Papers[0].Published)
	require.Nil(t, payload.WideningInfo)
}

func TestSearchPapersWidened(t *testing.T) {
	searcher := &stubSearcher{
		resolution: &search.Resolution{
			Status:            search.StatusWidened,
			FinalQuery:        "quantum entanglement",
			StrategiesApplied: []search.StrategyName{search.StrategyExact, search.StrategyRemoveQuotes},
			Widening: &search.WideningInfo{
				Notice: "Your query was automatically adjusted to find results.",
				Reason: "The original query returned no results.",
				Action: "Removed quoted phrases to allow partial matches.",
			},
			Result: search.ExecutorResult{
				Count: 1,
				Items: []arxiv.Paper{{ID: "2402.00001", Title: "Entanglement Notes"}},
			},
		},
	}
	tool := mustSearchPapersTool(t, searcher)

	result := callTool(t, tool, map[string]any{"query": `"quantum entanglement"`})
	require.False(t, result.IsError)

	var payload searchResponse
	decodeResult(t, result, &payload)
	require.Equal(t, search.StatusWidened, payload.SearchStatus)
	require.Equal(t, `"quantum entanglement"`, payload.Query)
	require.Equal(t, "quantum entanglement", payload.FinalQuery)
	require.Contains(t, payload.StrategiesApplied, search.StrategyRemoveQuotes)
	require.NotNil(t, payload.WideningInfo)
	require.NotEmpty(t, payload.WideningInfo.Notice)
	require.Len(t, payload.Papers, 1)
}

func TestSearchPapersFailedCarriesSuggestions(t *testing.T) {
	searcher := &stubSearcher{
		resolution: &search.Resolution{
			Status:            search.StatusFailed,
			FinalQuery:        "nonexistent gibberish terms",
			StrategiesApplied: []search.StrategyName{search.StrategyExact},
			Suggestions:       []string{"nonexistent", "gibberish", "terms"},
		},
	}
	tool := mustSearchPapersTool(t, searcher)

	result := callTool(t, tool, map[string]any{"query": "nonexistent gibberish terms"})
	require.False(t, result.IsError)

	var payload searchResponse
	decodeResult(t, result, &payload)
	require.Equal(t, search.StatusFailed, payload.SearchStatus)
	require.Zero(t, payload.TotalResults)
	require.Empty(t, payload.Papers)
	require.Equal(t, []string{"nonexistent", "gibberish", "terms"}, payload.Suggestions)
}
