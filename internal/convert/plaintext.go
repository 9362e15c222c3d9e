package convert

import (
	"fmt"
	"strings"

	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// Types whose plain text is their value property verbatim.
var plainValueTypes = map[string]bool{
	"code":              true,
	"comment":           true,
	"comment-block":     true,
	"latex-fragment":    true,
	"verbatim":          true,
	"example-block":     true,
	"statistics-cookie": true,
	"fixed-width":       true,
	"src-block":         true,
}

// PlainTextConverter reduces a tree to plain text. Object containers
// keep their inter-object blanks from the pre-blank and post-blank
// properties; sections separate their elements with blank lines.
type PlainTextConverter struct {
	Policy Policy
}

// Convert renders the node and its descendants as plain text.
func (c *PlainTextConverter) Convert(n *orgtree.Node) (string, error) {
	var b strings.Builder
	if err := c.convert(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}

// ConvertContents renders a content list, as found in secondary strings
// like headline titles. With blanks, each node keeps its surrounding
// whitespace; otherwise items join with single spaces.
func (c *PlainTextConverter) ConvertContents(contents []orgtree.Content, blanks bool) (string, error) {
	var b strings.Builder
	sep := " "
	if blanks {
		sep = ""
	}
	if err := c.contents(&b, contents, blanks, sep); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (c *PlainTextConverter) convert(b *strings.Builder, n *orgtree.Node) error {
	name := n.Type().Name

	if plainValueTypes[name] {
		b.WriteString(n.StringProperty("value"))
		return nil
	}

	switch name {
	case "org-data", "section":
		return c.contents(b, n.Contents(), false, "\n\n")
	case "headline":
		return c.headline(b, n)
	case "plain-list":
		return c.list(b, n)
	case "item":
		return c.contents(b, n.Contents(), false, "\n")
	case "line-break":
		b.WriteString("\n")
		return nil
	case "timestamp":
		b.WriteString(n.StringProperty("raw-value"))
		return nil
	case "entity":
		b.WriteString(n.StringProperty("utf-8"))
		return nil
	case "link":
		if len(n.Contents()) > 0 {
			return c.contents(b, n.Contents(), true, "")
		}
		b.WriteString(n.StringProperty("raw-link"))
		return nil
	}

	if n.Type().IsObjectContainer {
		return c.contents(b, n.Contents(), true, "")
	}

	if c.Policy == Strict {
		return &UnsupportedNodeError{Type: name, Target: "text"}
	}
	return c.contents(b, n.Contents(), true, "")
}

// headline renders an org-style star line with todo state, priority and
// tags, then the body after a blank line.
func (c *PlainTextConverter) headline(b *strings.Builder, n *orgtree.Node) error {
	writeHeadlineLine(b, n)
	if len(n.Contents()) > 0 {
		b.WriteString("\n\n")
		return c.contents(b, n.Contents(), false, "\n\n")
	}
	return nil
}

// HeadlineLine renders just the star line of a headline, as it would
// appear in the source file.
func HeadlineLine(n *orgtree.Node) string {
	var b strings.Builder
	writeHeadlineLine(&b, n)
	return b.String()
}

func writeHeadlineLine(b *strings.Builder, n *orgtree.Node) {
	level := n.Level()
	if level < 1 {
		level = 1
	}
	b.WriteString(strings.Repeat("*", level))
	if kw := n.TodoKeyword(); kw != "" {
		b.WriteString(" ")
		b.WriteString(kw)
	}
	if p, ok := n.Priority(); ok {
		fmt.Fprintf(b, " [#%c]", p)
	}
	b.WriteString(" ")
	b.WriteString(n.Title())
	if tags := n.Tags(); len(tags) > 0 {
		b.WriteString("  :")
		b.WriteString(strings.Join(tags, ":"))
		b.WriteString(":")
	}
}

// list renders items with dashes, or for ordered lists a counter that
// restarts with each list.
func (c *PlainTextConverter) list(b *strings.Builder, n *orgtree.Node) error {
	ordered := n.StringProperty("type") == "ordered"
	num := 0
	for i, item := range n.Children() {
		if i > 0 {
			b.WriteString("\n")
		}
		if ordered {
			num++
			fmt.Fprintf(b, "%d. ", num)
		} else {
			b.WriteString("- ")
		}
		if err := c.contents(b, item.Contents(), false, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func (c *PlainTextConverter) contents(b *strings.Builder, contents []orgtree.Content, blanks bool, sep string) error {
	first := true
	for _, item := range contents {
		if !first {
			b.WriteString(sep)
		}
		first = false

		switch v := item.(type) {
		case orgtree.Text:
			b.WriteString(string(v))
		case *orgtree.Node:
			if blanks {
				writeSpaces(b, intProp(v, "pre-blank"))
			}
			if err := c.convert(b, v); err != nil {
				return err
			}
			if blanks {
				writeSpaces(b, intProp(v, "post-blank"))
			}
		}
	}
	return nil
}

func writeSpaces(b *strings.Builder, n int) {
	for i := 0; i < n; i++ {
		b.WriteString(" ")
	}
}

func intProp(n *orgtree.Node, name string) int {
	v, _ := n.IntProperty(name)
	return v
}

// PlainText renders a node with the lenient policy. Handy for titles
// and agenda lines where partial text beats an error.
func PlainText(n *orgtree.Node) string {
	c := PlainTextConverter{Policy: Lenient}
	s, _ := c.Convert(n)
	return s
}
