package loader

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// isProbablyText reports whether the bytes look like UTF-8 text rather than a
// binary format. NUL bytes or invalid UTF-8 disqualify the blob.
func isProbablyText(b []byte) bool {
	sample := b
	if len(sample) > 8192 {
		sample = sample[:8192]
		// Do not judge a multi-byte rune cut off by the sample boundary.
		for len(sample) > 0 && !utf8.Valid(sample) {
			sample = sample[:len(sample)-1]
		}
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return false
	}
	return utf8.Valid(sample)
}

// plainTextStrategy is the last-resort strategy: it accepts any text blob and
// extracts its content through a markdown parse, which flattens formatting
// syntax and renders tables as pipe-joined rows. Plain prose passes through
// a markdown parse unchanged, so no format sniffing beyond "is text" is done.
type plainTextStrategy struct {
	parser goldmark.Markdown
}

func newPlainTextStrategy() *plainTextStrategy {
	return &plainTextStrategy{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

func (s *plainTextStrategy) Name() string { return "plain-text" }

func (s *plainTextStrategy) Parse(blob Blob) ([]Record, error) {
	if !isProbablyText(blob.Data) {
		return nil, fmt.Errorf("not text")
	}

	doc := s.parser.Parser().Parse(text.NewReader(blob.Data))
	extracted := extractMarkdownText(doc, blob.Data)
	if strings.TrimSpace(extracted) == "" {
		return nil, nil
	}
	return []Record{newRecord(blob, 1, extracted, s.Name())}, nil
}

// extractMarkdownText walks the parsed AST and flattens it to plain text.
// Block boundaries become newlines and table rows become pipe-joined lines.
func extractMarkdownText(doc ast.Node, content []byte) string {
	var b strings.Builder

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(content))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.CodeBlock:
			writeCodeLines(&b, node, content)
		case *ast.FencedCodeBlock:
			writeCodeLines(&b, node, content)
		case *ast.Heading, *ast.Paragraph, *ast.ListItem:
			ensureNewline(&b)
		default:
			kind := n.Kind().String()
			if strings.Contains(kind, "TableRow") || strings.Contains(kind, "TableHeader") {
				ensureNewline(&b)
				b.WriteString(markdownRowText(n, content))
				b.WriteByte('\n')
				return ast.WalkSkipChildren, nil
			}
		}
		return ast.WalkContinue, nil
	})

	return collapseWhitespace(b.String())
}

func writeCodeLines(b *strings.Builder, n ast.Node, content []byte) {
	ensureNewline(b)
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(content))
	}
}

func ensureNewline(b *strings.Builder) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
}

// markdownRowText joins the cells of a table row with " | ".
func markdownRowText(row ast.Node, content []byte) string {
	var b strings.Builder
	cells := 0

	_ = ast.Walk(row, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if strings.Contains(n.Kind().String(), "TableCell") {
			if cells > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(nodeText(n, content))
			cells++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return b.String()
}

// nodeText flattens a node and its children to trimmed text.
func nodeText(n ast.Node, content []byte) string {
	var b strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}
