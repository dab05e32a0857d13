package semantic

import (
	"strings"
	"unicode"
)

// Fragment is one chunk candidate produced by the chunker.
type Fragment struct {
	Seq  int
	Text string
}

// Chunker splits markdown into bounded fragments.
type Chunker interface {
	Split(text string, maxChars int) []Fragment
}

// ParagraphChunker splits on blank lines and re-splits oversized
// paragraphs on sentence boundaries.
type ParagraphChunker struct{}

// Split divides the text into paragraph-sized fragments under the
// maxChars bound. Markdown heading markers survive inside fragments so
// matches keep their section context.
func (ParagraphChunker) Split(text string, maxChars int) []Fragment {
	var fragments []Fragment

	seq := 0
	for _, block := range strings.Split(text, "\n\n") {
		block = collapseWhitespace(block)
		if block == "" {
			continue
		}

		for _, segment := range splitBlock(block, maxChars) {
			fragments = append(fragments, Fragment{Seq: seq, Text: segment})
			seq++
		}
	}

	return fragments
}

func splitBlock(block string, maxChars int) []string {
	if maxChars <= 0 || len(block) <= maxChars {
		return []string{block}
	}

	var (
		segments []string
		current  strings.Builder
	)
	for _, sentence := range strings.Split(block, ". ") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if current.Len()+len(sentence)+1 > maxChars {
			if current.Len() > 0 {
				segments = append(segments, current.String())
				current.Reset()
			}
			// A single sentence above the bound gets hard-split.
			for len(sentence) > maxChars {
				segments = append(segments, sentence[:maxChars])
				sentence = sentence[maxChars:]
			}
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		segments = append(segments, current.String())
	}

	if len(segments) == 0 {
		return []string{block[:maxChars]}
	}
	return segments
}

// collapseWhitespace folds runs of whitespace inside one paragraph to
// single spaces.
func collapseWhitespace(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	lastSpace := false
	for _, r := range input {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}
