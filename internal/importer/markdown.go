package importer

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// MarkdownImporter handles Markdown files using goldmark.
type MarkdownImporter struct {
	Registry *orgtree.Registry
}

func (p *MarkdownImporter) Import(r io.Reader, filename string) (*orgtree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	b, err := NewBuilder(p.Registry, filename)
	if err != nil {
		return nil, err
	}
	b.SetTitle(baseTitle(filename))

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			b.Heading(node.Level, string(node.Text(src)))
		case *ast.FencedCodeBlock:
			lang := ""
			if node.Info != nil {
				lang = string(node.Language(src))
			}
			b.Code(lang, blockLines(node, src))
		case *ast.CodeBlock:
			b.Code("", blockLines(node, src))
		case *ast.Blockquote:
			b.Quote(goldmarkText(n, src))
		case *ast.ThematicBreak:
			b.Rule()
		default:
			b.Paragraph(goldmarkText(n, src))
		}
	}

	return b.Document(), nil
}

// blockLines returns the raw source lines of a block node, preserving
// line breaks. Used for code blocks where whitespace is significant.
func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.String()
}

// goldmarkText gets the text content of a goldmark AST node. Blocks
// with parsed children yield their children's text; the raw lines are
// used only for leaf blocks, so paragraph text is not counted twice.
func goldmarkText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.FirstChild() == nil {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
			continue
		}
		part := goldmarkText(c, src)
		if part == "" {
			continue
		}
		// Block children, such as list items, each get their own line.
		if c.Type() == ast.TypeBlock && buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(part)
	}
	return strings.TrimSpace(buf.String())
}
