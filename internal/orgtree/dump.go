package orgtree

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Dump writes a deterministic, indentation-based rendering of the node
// and its descendants for debugging and tests: depth-first pre-order,
// each node's type, then (when withProperties is set) its sorted
// properties, then its contents entries with their index. Strings render
// as quoted literals.
func (n *Node) Dump(w io.Writer, withProperties bool) error {
	return dumpNode(w, n, -1, 0, withProperties)
}

func dumpNode(w io.Writer, n *Node, index, depth int, withProperties bool) error {
	indent := strings.Repeat("  ", depth)

	if index < 0 {
		if _, err := fmt.Fprintf(w, "%s%s\n", indent, n.typ.Name); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprintf(w, "%s%d %s\n", indent, index, n.typ.Name); err != nil {
			return err
		}
	}

	if withProperties {
		keys := make([]string, 0, len(n.props))
		for k := range n.props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, err := fmt.Fprintf(w, "%s  :%s : %s\n", indent, k, dumpValue(n.props[k])); err != nil {
				return err
			}
		}
	}

	for i, c := range n.contents {
		switch child := c.(type) {
		case *Node:
			if err := dumpNode(w, child, i, depth+1, withProperties); err != nil {
				return err
			}
		case Text:
			if _, err := fmt.Fprintf(w, "%s  %d %q\n", indent, i, string(child)); err != nil {
				return err
			}
		}
	}
	return nil
}

func dumpValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", val)
	case Text:
		return fmt.Sprintf("%q", string(val))
	case *Node:
		return fmt.Sprintf("<node %s>", val.typ.Name)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = dumpValue(item)
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// DumpOutline writes the outline structure only: each subheading's
// index within its parent and raw title, depth-first pre-order.
func (n *Node) DumpOutline(w io.Writer) error {
	return dumpOutline(w, n, 0)
}

func dumpOutline(w io.Writer, n *Node, depth int) error {
	indent := strings.Repeat("  ", depth)
	for i, h := range n.Subheadings() {
		if _, err := fmt.Fprintf(w, "%s%d %s\n", indent, i, h.Title()); err != nil {
			return err
		}
		if err := dumpOutline(w, h, depth+1); err != nil {
			return err
		}
	}
	return nil
}
