package tools

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Laisky/arxiv-mcp/internal/storage"
	"github.com/Laisky/arxiv-mcp/library/log"
)

const samplePaper = `# Attention Is All You Need

## Abstract

We propose the transformer.

## Introduction

Sequence models dominate.

### Motivation

RNNs are slow.

## Methodology

We use attention.

## Results

State of the art.

## References

[1] Prior work.
`

func mustExtractSectionsTool(t *testing.T, files MarkdownReader) *ExtractSectionsTool {
	t.Helper()

	tool, err := NewExtractSectionsTool(files, log.Logger.Named("test_extract_sections"))
	require.NoError(t, err)
	return tool
}

func TestExtractSectionsSingle(t *testing.T) {
	tool := mustExtractSectionsTool(t, &stubReader{content: samplePaper})

	result := callTool(t, tool, map[string]any{
		"paper_id": "2401.12345",
		"sections": []string{"abstract"},
	})
	require.False(t, result.IsError)
	require.Equal(t,
		"Extracted sections from 2401.12345:\n\n## Abstract\n\nWe propose the transformer.",
		resultText(t, result))
}

func TestExtractSectionsAlias(t *testing.T) {
	tool := mustExtractSectionsTool(t, &stubReader{content: samplePaper})

	result := callTool(t, tool, map[string]any{
		"paper_id": "2401.12345",
		"sections": []string{"methods"},
	})
	require.False(t, result.IsError)

	text := resultText(t, result)
	require.Contains(t, text, "## Methodology")
	require.Contains(t, text, "We use attention.")
	require.NotContains(t, text, "Sections not found")
}

func TestExtractSectionsIncludesSubsectionsByDefault(t *testing.T) {
	tool := mustExtractSectionsTool(t, &stubReader{content: samplePaper})

	result := callTool(t, tool, map[string]any{
		"paper_id": "2401.12345",
		"sections": []string{"introduction"},
	})
	require.False(t, result.IsError)

	text := resultText(t, result)
	require.Contains(t, text, "Sequence models dominate.")
	require.Contains(t, text, "### Motivation")
	require.Contains(t, text, "RNNs are slow.")
	require.NotContains(t, text, "## Methodology")
}

func TestExtractSectionsWithoutSubsections(t *testing.T) {
	tool := mustExtractSectionsTool(t, &stubReader{content: samplePaper})

	result := callTool(t, tool, map[string]any{
		"paper_id":            "2401.12345",
		"sections":            []string{"introduction"},
		"include_subsections": false,
	})
	require.False(t, result.IsError)

	text := resultText(t, result)
	require.Contains(t, text, "Sequence models dominate.")
	require.NotContains(t, text, "### Motivation")
}

func TestExtractSectionsMultiple(t *testing.T) {
	tool := mustExtractSectionsTool(t, &stubReader{content: samplePaper})

	result := callTool(t, tool, map[string]any{
		"paper_id": "2401.12345",
		"sections": []string{"abstract", "results"},
	})
	require.False(t, result.IsError)
	require.Equal(t,
		"Extracted sections from 2401.12345:\n\n"+
			"## Abstract\n\nWe propose the transformer."+
			"\n\n---\n\n"+
			"## Results\n\nState of the art.",
		resultText(t, result))
}

func TestExtractSectionsReportsMissing(t *testing.T) {
	tool := mustExtractSectionsTool(t, &stubReader{content: samplePaper})

	result := callTool(t, tool, map[string]any{
		"paper_id": "2401.12345",
		"sections": []string{"abstract", "conclusion"},
	})
	require.False(t, result.IsError)

	text := resultText(t, result)
	require.Contains(t, text, "## Abstract")
	require.Contains(t, text, "Sections not found: conclusion")
	require.Contains(t, text, "Available sections in this paper:")
	require.Contains(t, text, "• Methodology")
}

func TestExtractSectionsPaperMissing(t *testing.T) {
	tool := mustExtractSectionsTool(t, &stubReader{
		err: storage.NewError(storage.ErrCodeNotFound, "paper 2401.12345 not found in local storage", false),
	})

	result := callTool(t, tool, map[string]any{
		"paper_id": "2401.12345",
		"sections": []string{"abstract"},
	})
	require.True(t, result.IsError)
	require.Equal(t, "Error: Paper 2401.12345 not found. Please download it first.", resultText(t, result))
}

func TestParseHeading(t *testing.T) {
	level, text := parseHeading("## Results")
	require.Equal(t, 2, level)
	require.Equal(t, "Results", text)

	level, text = parseHeading("plain prose")
	require.Zero(t, level)
	require.Empty(t, text)
}

func TestAvailableSectionsDeduplicates(t *testing.T) {
	content := "# Summary\n\ntext\n\n## summary\n\nmore\n\n## Results\n\nend\n"
	require.Equal(t, []string{"Summary", "Results"}, availableSections(content))
}
