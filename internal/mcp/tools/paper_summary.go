package tools

import (
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/jinzhu/copier"

	"github.com/Laisky/arxiv-mcp/library/arxiv"
)

// paperSummary is the per-paper payload returned by search tools. The
// field set is part of the tool contract; clients key on it.
type paperSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Abstract    string   `json:"abstract"`
	Categories  []string `json:"categories"`
	Published   *string  `json:"published"`
	URL         string   `json:"url"`
	ResourceURI string   `json:"resource_uri"`
}

// summarizePaper converts one feed entry into the tool payload.
func summarizePaper(paper arxiv.Paper) (paperSummary, error) {
	var summary paperSummary
	if err := copier.Copy(&summary, &paper); err != nil {
		return paperSummary{}, errors.Wrap(err, "copy paper")
	}

	summary.URL = paper.PDFURL
	if !paper.Published.IsZero() {
		published := paper.Published.UTC().Format(time.RFC3339)
		summary.Published = &published
	}
	return summary, nil
}

func summarizePapers(papers []arxiv.Paper) ([]paperSummary, error) {
	summaries := make([]paperSummary, 0, len(papers))
	for _, paper := range papers {
		summary, err := summarizePaper(paper)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
