package download

import (
	"context"
	"fmt"
	"strings"

	errors "github.com/Laisky/errors/v2"

	"github.com/Laisky/arxiv-mcp/internal/storage"
	"github.com/Laisky/arxiv-mcp/library/arxiv"
)

// Converter turns a downloaded pdf into stored markdown and returns
// the markdown path.
type Converter interface {
	Convert(ctx context.Context, paperID string, paper *arxiv.Paper, pdfPath string) (string, error)
}

// MetadataConverter renders a markdown rendition of the paper from its
// feed metadata: title, authors, categories, links, and the full
// abstract. Body text extraction from the pdf is a separate concern
// behind the Converter interface.
type MetadataConverter struct {
	files *storage.Files
}

// NewMetadataConverter creates the default converter.
func NewMetadataConverter(files *storage.Files) *MetadataConverter {
	return &MetadataConverter{files: files}
}

// Convert writes the metadata markdown for one paper.
func (c *MetadataConverter) Convert(ctx context.Context,
	paperID string, paper *arxiv.Paper, pdfPath string) (string, error) {
	if paper == nil {
		return "", errors.New("paper cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, "convert cancelled")
	}

	path, err := c.files.WriteMarkdown(paperID, renderMarkdown(paper))
	if err != nil {
		return "", errors.Wrapf(err, "store markdown for %s", paperID)
	}

	return path, nil
}

func renderMarkdown(paper *arxiv.Paper) string {
	var b strings.Builder

	b.WriteString("---\n")
	fmt.Fprintf(&b, "arxiv_id: %s\n", paper.ID)
	fmt.Fprintf(&b, "title: %q\n", paper.Title)
	if len(paper.Authors) != 0 {
		fmt.Fprintf(&b, "authors: %q\n", strings.Join(paper.Authors, ", "))
	}
	if len(paper.Categories) != 0 {
		fmt.Fprintf(&b, "categories: %s\n", strings.Join(paper.Categories, ", "))
	}
	if !paper.Published.IsZero() {
		fmt.Fprintf(&b, "published: %s\n", paper.Published.Format("2006-01-02"))
	}
	if paper.DOI != "" {
		fmt.Fprintf(&b, "doi: %s\n", paper.DOI)
	}
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# %s\n\n", paper.Title)

	if len(paper.Authors) != 0 {
		fmt.Fprintf(&b, "**Authors:** %s\n\n", strings.Join(paper.Authors, ", "))
	}
	if len(paper.Categories) != 0 {
		fmt.Fprintf(&b, "**Categories:** %s\n\n", strings.Join(paper.Categories, ", "))
	}
	if !paper.Published.IsZero() {
		fmt.Fprintf(&b, "**Published:** %s\n\n", paper.Published.Format("2006-01-02"))
	}
	if paper.JournalRef != "" {
		fmt.Fprintf(&b, "**Journal:** %s\n\n", paper.JournalRef)
	}

	links := []string{
		fmt.Sprintf("[abs](https://arxiv.org/abs/%s)", paper.ID),
	}
	if paper.PDFURL != "" {
		links = append(links, fmt.Sprintf("[pdf](%s)", paper.PDFURL))
	}
	if paper.DOI != "" {
		links = append(links, fmt.Sprintf("[doi](https://doi.org/%s)", paper.DOI))
	}
	fmt.Fprintf(&b, "**Links:** %s\n\n", strings.Join(links, " | "))

	if paper.Abstract != "" {
		b.WriteString("## Abstract\n\n")
		b.WriteString(paper.Abstract)
		b.WriteString("\n")
	}

	return b.String()
}
