package orgtree

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is returned by indexed subheading lookups.
var ErrIndexOutOfRange = errors.New("subheading index out of range")

// ErrOutlineInvariant marks a node whose contents break the outline
// ordering rule (optional leading section, then only headlines).
var ErrOutlineInvariant = errors.New("outline invariant violated")

// OutlineInvariantError describes where an outline node's contents break
// the section-then-subheadings ordering. The node is still usable as a
// plain container.
type OutlineInvariantError struct {
	Type  string // node type of the violating outline node
	Index int    // index of the offending contents entry
	Found string // what was found there
}

func (e *OutlineInvariantError) Error() string {
	return fmt.Sprintf("outline invariant violated: %s contents[%d] is %s", e.Type, e.Index, e.Found)
}

func (e *OutlineInvariantError) Unwrap() error { return ErrOutlineInvariant }

// Content is one entry in a node's contents: either Text or *Node.
type Content interface{ isContent() }

// Text is a raw text run inside a node's contents.
type Text string

func (Text) isContent()  {}
func (*Node) isContent() {}

// Node is one unit of the document tree. A node exclusively owns its
// contents children; its ref is a weak identity label assigned at export
// time. Nodes are immutable once built.
type Node struct {
	typ      *NodeType
	ref      string
	props    map[string]any
	contents []Content

	// Outline partition, computed at construction for outline kinds.
	section     *Node
	subheadings []*Node
	level       int
	outlineErr  *OutlineInvariantError

	outlineID string
}

// NewNode builds a node. For outline kinds (org-data, headline) the
// contents are partitioned into section and subheadings up front; a
// violation of the outline ordering is recorded on the node (see
// OutlineError) and the node degrades to a plain container.
func NewNode(typ *NodeType, ref string, props map[string]any, contents []Content) *Node {
	if props == nil {
		props = map[string]any{}
	}
	n := &Node{typ: typ, ref: ref, props: props, contents: contents}

	if IsOutlineType(typ.Name) {
		n.partitionOutline()
	}
	return n
}

func (n *Node) partitionOutline() {
	if n.typ.Name == HeadlineType {
		if lvl, ok := n.IntProperty("level"); ok {
			n.level = lvl
		}
	}

	var rest []*Node
	for i, c := range n.contents {
		child, ok := c.(*Node)
		if !ok {
			n.failOutline(i, fmt.Sprintf("text %q", string(c.(Text))))
			return
		}

		if i == 0 && !child.IsOutline() {
			// Section must be first, if present.
			if child.typ.Name != "section" {
				n.failOutline(i, "a "+child.typ.Name)
				return
			}
			n.section = child
			continue
		}

		if !child.IsOutline() {
			n.failOutline(i, "a "+child.typ.Name)
			return
		}
		rest = append(rest, child)
	}
	n.subheadings = rest
}

func (n *Node) failOutline(i int, found string) {
	n.outlineErr = &OutlineInvariantError{Type: n.typ.Name, Index: i, Found: found}
	n.section = nil
	n.subheadings = nil
}

// Type returns the node's type descriptor.
func (n *Node) Type() *NodeType { return n.typ }

// Ref returns the node's stable identity string, or "" if none was
// assigned at export.
func (n *Node) Ref() string { return n.ref }

// Property returns a property value, or nil if absent.
func (n *Node) Property(name string) any { return n.props[name] }

// Properties returns the node's property map. Callers must treat it as
// read-only.
func (n *Node) Properties() map[string]any { return n.props }

// StringProperty returns a string-valued property, or "" if it is absent
// or not a string.
func (n *Node) StringProperty(name string) string {
	s, _ := n.props[name].(string)
	return s
}

// IntProperty returns an int-valued property. Whole floats are accepted
// since generic record decoding may widen them.
func (n *Node) IntProperty(name string) (int, bool) {
	switch v := n.props[name].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

// Contents returns the node's ordered contents (text runs and child nodes).
// Callers must treat the slice as read-only.
func (n *Node) Contents() []Content { return n.contents }

// Children returns only the child nodes from contents, in order.
func (n *Node) Children() []*Node {
	var out []*Node
	for _, c := range n.contents {
		if child, ok := c.(*Node); ok {
			out = append(out, child)
		}
	}
	return out
}

// IsOutline reports whether the node is part of the outline hierarchy.
func (n *Node) IsOutline() bool { return IsOutlineType(n.typ.Name) }

// OutlineError returns the recorded outline invariant violation, or nil.
func (n *Node) OutlineError() error {
	if n.outlineErr == nil {
		return nil
	}
	return n.outlineErr
}

// Section returns the body-content container preceding the subheadings,
// or nil if the node has none (or is not a valid outline node).
func (n *Node) Section() *Node { return n.section }

// Subheadings returns the node's child outline nodes in document order.
func (n *Node) Subheadings() []*Node { return n.subheadings }

// Subheading returns the i-th subheading.
func (n *Node) Subheading(i int) (*Node, error) {
	if i < 0 || i >= len(n.subheadings) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(n.subheadings))
	}
	return n.subheadings[i], nil
}

// Level returns the outline level: 0 for the document root, the headline
// level otherwise.
func (n *Node) Level() int { return n.level }

// Title returns the headline's raw title text. Empty for non-headlines;
// the document root's title lives on the Document.
func (n *Node) Title() string {
	return n.StringProperty("raw-value")
}

// Tags returns the headline's tags. The property may arrive as a list or
// as a colon-separated string.
func (n *Node) Tags() []string {
	switch v := n.props["tags"].(type) {
	case string:
		return ParseTags(v)
	case []any:
		var tags []string
		for _, t := range v {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	}
	return nil
}

// TodoKeyword returns the headline's TODO keyword (e.g. "TODO", "DONE"),
// or "" if the headline has none.
func (n *Node) TodoKeyword() string { return n.StringProperty("todo-keyword") }

// TodoType returns the TODO state category, "todo" or "done", or "".
func (n *Node) TodoType() string { return n.StringProperty("todo-type") }

// Priority returns the headline's priority character, if set. The export
// carries it as a character code.
func (n *Node) Priority() (rune, bool) {
	code, ok := n.IntProperty("priority")
	if !ok {
		return 0, false
	}
	return rune(code), true
}

// Begin returns the node's buffer position from the export, if present.
// Editor buffer positions start at 1.
func (n *Node) Begin() (int, bool) { return n.IntProperty("begin") }

// End returns the buffer position one past the node's extent, if present.
func (n *Node) End() (int, bool) { return n.IntProperty("end") }

// OutlineID returns the unique outline identifier assigned by
// AssignOutlineIDs, or "".
func (n *Node) OutlineID() string { return n.outlineID }

// Walk visits the node and its descendants pre-order. Returning false
// from fn skips that node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.contents {
		if child, ok := c.(*Node); ok {
			child.Walk(fn)
		}
	}
}
