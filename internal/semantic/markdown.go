package semantic

import (
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// markdownPlainBlocks parses markdown and returns the plain text of
// every top-level block in document order. Formatting markers, link
// destinations and raw HTML are dropped so the embedder sees prose
// rather than syntax.
func markdownPlainBlocks(md string) []string {
	doc := parser.New().Parse([]byte(md))

	var blocks []string
	for _, node := range doc.GetChildren() {
		if text := blockPlainText(node); text != "" {
			blocks = append(blocks, text)
		}
	}
	return blocks
}

// blockPlainText collects the literal text under one block node.
// Inline leaves are concatenated as-is; nested paragraphs, list items
// and table cells are separated by single spaces.
func blockPlainText(node ast.Node) string {
	var b strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch n.(type) {
		case *ast.HTMLBlock, *ast.HTMLSpan:
			return ast.SkipChildren
		case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.TableCell:
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
		case *ast.Hardbreak, *ast.Softbreak:
			b.WriteByte(' ')
		}
		if leaf := n.AsLeaf(); leaf != nil {
			b.Write(leaf.Literal)
		}
		return ast.GoToNext
	})
	return collapseWhitespace(b.String())
}
