package orgtree

import "strings"

// Document is one parsed unit corresponding to one source file. It is
// read-only after construction.
type Document struct {
	// Properties holds document-level metadata: title, author, tags,
	// timestamps and export diagnostics.
	Properties map[string]any

	// Path is the source file path, when known.
	Path string

	// Root is the single owned root node, always of the outline root kind.
	Root *Node

	// Diagnostics collects recoverable problems flagged while building
	// the tree, such as outline invariant violations.
	Diagnostics []string
}

// Title returns the document title from its properties, flattened to
// plain text.
func (d *Document) Title() string {
	return FlattenPlain(d.Properties["title"])
}

// NodeByRef finds a node by its identity ref. Returns nil when absent;
// a missing ref is an expected outcome, not an error.
func (d *Document) NodeByRef(ref string) *Node {
	if ref == "" || d.Root == nil {
		return nil
	}
	var found *Node
	d.Root.Walk(func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.ref == ref {
			found = n
			return false
		}
		return true
	})
	return found
}

// NodeAt returns the deepest headline whose buffer extent contains pos,
// or nil if no headline covers it.
func (d *Document) NodeAt(pos int) *Node {
	if d.Root == nil {
		return nil
	}
	var found *Node
	var descend func(n *Node)
	descend = func(n *Node) {
		for _, h := range n.Subheadings() {
			begin, okB := h.Begin()
			end, okE := h.End()
			if okB && okE && begin <= pos && pos < end {
				found = h
				descend(h)
				return
			}
		}
	}
	descend(d.Root)
	return found
}

// Headlines returns all headline nodes in outline pre-order.
func (d *Document) Headlines() []*Node {
	if d.Root == nil {
		return nil
	}
	var out []*Node
	var descend func(n *Node)
	descend = func(n *Node) {
		for _, h := range n.Subheadings() {
			out = append(out, h)
			descend(h)
		}
	}
	descend(d.Root)
	return out
}

// FlattenPlain reduces a property value to its raw text: strings are
// concatenated, nodes contribute the text runs of their contents, other
// scalars are skipped.
func FlattenPlain(v any) string {
	var b strings.Builder
	flattenPlain(&b, v)
	return b.String()
}

func flattenPlain(b *strings.Builder, v any) {
	switch val := v.(type) {
	case string:
		b.WriteString(val)
	case Text:
		b.WriteString(string(val))
	case *Node:
		for _, c := range val.contents {
			flattenPlain(b, c)
		}
	case []any:
		for _, item := range val {
			flattenPlain(b, item)
		}
	case []Content:
		for _, item := range val {
			flattenPlain(b, item)
		}
	}
}
