package search

import (
	"fmt"
	"strings"

	"github.com/Laisky/arxiv-mcp/library/arxiv"
)

const renderAbstractLimit = 200

// RenderText formats a resolution as the plain-text report used by the
// command line. Papers are numbered, widened resolutions get a banner
// naming what was tried, failures carry keyword suggestions.
func RenderText(res *Resolution) string {
	if res == nil {
		return ""
	}

	var b strings.Builder

	switch res.Status {
	case StatusServiceUnavailable:
		b.WriteString("arXiv search is unavailable right now. Please try again later.\n")
		return b.String()
	case StatusFailed:
		b.WriteString("No papers found matching your search criteria.\n")
		if len(res.Suggestions) > 0 {
			b.WriteString("\nSuggestions:\n")
			for _, s := range res.Suggestions {
				fmt.Fprintf(&b, "  - %s\n", s)
			}
		}
		return b.String()
	case StatusWidened:
		if w := res.Widening; w != nil {
			b.WriteString(w.Notice + "\n")
			b.WriteString(w.Reason + "\n")
			b.WriteString(w.Action + "\n")
			for _, d := range w.Details {
				fmt.Fprintf(&b, "  - %s\n", d)
			}
			b.WriteString(w.Recommendation + "\n\n")
		}
	}

	papers, _ := res.Result.Items.([]arxiv.Paper)
	b.WriteString(renderPapers(papers))

	return b.String()
}

// renderPapers numbers each paper with its key fields and a truncated
// abstract.
func renderPapers(papers []arxiv.Paper) string {
	if len(papers) == 0 {
		return "No papers found matching your search criteria.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d papers:\n\n", len(papers))

	for i, p := range papers {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.Title)
		b.WriteString("   Authors: " + renderAuthors(p.Authors) + "\n")
		fmt.Fprintf(&b, "   Published: %s\n", p.Published.Format("2006-01-02"))
		fmt.Fprintf(&b, "   Categories: %s\n", strings.Join(p.Categories, ", "))
		fmt.Fprintf(&b, "   arXiv ID: %s\n", p.ID)
		fmt.Fprintf(&b, "   PDF: %s\n", p.PDFURL)

		abstract := p.Abstract
		if len(abstract) > renderAbstractLimit {
			abstract = abstract[:renderAbstractLimit-3] + "..."
		}
		fmt.Fprintf(&b, "   Abstract: %s\n\n", abstract)
	}

	return b.String()
}

func renderAuthors(authors []string) string {
	if len(authors) <= 3 {
		return strings.Join(authors, ", ")
	}

	return fmt.Sprintf("%s and %d others",
		strings.Join(authors[:3], ", "), len(authors)-3)
}
