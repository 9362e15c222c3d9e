package codec

import (
	"encoding/json"

	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// Record field and discriminator names of the serialized format.
const (
	DocumentType = "document"

	// FileKind discriminates synthetic per-file entries in a query
	// result's node table. It is not an org node type.
	FileKind = "org-file"

	// ParentIndexProp is the extra property injected on query table
	// entries, pointing at the parent entry's table index.
	ParentIndexProp = "parent_index"

	refIndexKey = "ref_index"
)

// EncodeSession tracks nodes already emitted into a shared node table
// during one encoding pass. A node encountered again encodes as an index
// reference instead of a nested record. Sessions are private to one
// query/encode run and are not safe for concurrent use.
type EncodeSession struct {
	emitted map[*orgtree.Node]int
	files   map[string]int
	table   []map[string]any
}

func NewEncodeSession() *EncodeSession {
	return &EncodeSession{
		emitted: make(map[*orgtree.Node]int),
		files:   make(map[string]int),
	}
}

// Index returns the table index of a node already emitted in this session.
func (s *EncodeSession) Index(n *orgtree.Node) (int, bool) {
	i, ok := s.emitted[n]
	return i, ok
}

// FileIndex returns the table index of a file entry, if one was created.
func (s *EncodeSession) FileIndex(path string) (int, bool) {
	i, ok := s.files[path]
	return i, ok
}

// AddFile appends a synthetic file entry for path, memoized so each file
// is represented exactly once per session.
func (s *EncodeSession) AddFile(path string) int {
	if i, ok := s.files[path]; ok {
		return i
	}
	i := len(s.table)
	s.table = append(s.table, map[string]any{
		"type":       FileKind,
		"ref":        nil,
		"properties": map[string]any{"path": path},
		"contents":   []any{},
	})
	s.files[path] = i
	return i
}

// AddHeadline appends a shallow encoding of a headline to the table with
// the extra properties merged in (the node itself is never mutated), and
// records the node so later occurrences encode by reference. Contents are
// excluded from table entries; that keeps the encoded size linear in the
// number of distinct nodes.
func (s *EncodeSession) AddHeadline(n *orgtree.Node, extra map[string]any) int {
	if i, ok := s.emitted[n]; ok {
		return i
	}
	i := len(s.table)
	// Reserve the slot before encoding properties so self-references
	// resolve to this entry.
	s.table = append(s.table, nil)
	s.emitted[n] = i

	rec := encodeNodeRecord(s, n, extra, false)
	s.table[i] = rec
	return i
}

// Table returns the encoded shared node table.
func (s *EncodeSession) Table() []map[string]any {
	return s.table
}

// EncodeNode produces the record form of a node tree. With a non-nil
// session, nodes already present in the session's table encode as
// {"ref_index": i}.
func EncodeNode(s *EncodeSession, n *orgtree.Node) map[string]any {
	if s != nil {
		if i, ok := s.emitted[n]; ok {
			return map[string]any{refIndexKey: i}
		}
	}
	return encodeNodeRecord(s, n, nil, true)
}

func encodeNodeRecord(s *EncodeSession, n *orgtree.Node, extra map[string]any, withContents bool) map[string]any {
	props := make(map[string]any, len(n.Properties())+len(extra))
	for k, v := range n.Properties() {
		props[k] = encodeValue(s, v)
	}
	for k, v := range extra {
		props[k] = encodeValue(s, v)
	}

	contents := []any{}
	if withContents {
		for _, c := range n.Contents() {
			switch child := c.(type) {
			case orgtree.Text:
				contents = append(contents, string(child))
			case *orgtree.Node:
				contents = append(contents, encodeNodeOrRef(s, child))
			}
		}
	}

	var ref any
	if n.Ref() != "" {
		ref = n.Ref()
	}

	return map[string]any{
		"type":       n.Type().Name,
		"ref":        ref,
		"properties": props,
		"contents":   contents,
	}
}

func encodeNodeOrRef(s *EncodeSession, n *orgtree.Node) any {
	return EncodeNode(s, n)
}

func encodeValue(s *EncodeSession, v any) any {
	switch val := v.(type) {
	case *orgtree.Node:
		return encodeNodeOrRef(s, val)
	case orgtree.Text:
		return string(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = encodeValue(s, item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = encodeValue(s, item)
		}
		return out
	default:
		return val
	}
}

// EncodeDocument produces the document record: the root node wrapped
// under the document properties, with the file path merged in.
func EncodeDocument(d *orgtree.Document) map[string]any {
	props := make(map[string]any, len(d.Properties)+1)
	for k, v := range d.Properties {
		props[k] = encodeValue(nil, v)
	}
	if d.Path != "" {
		props["path"] = d.Path
	}

	return map[string]any{
		"type":       DocumentType,
		"properties": props,
		"root":       EncodeNode(nil, d.Root),
	}
}

// MarshalDocument renders a document record as indented JSON.
func MarshalDocument(d *orgtree.Document) ([]byte, error) {
	return json.MarshalIndent(EncodeDocument(d), "", "  ")
}

// MarshalNode renders a node record as indented JSON.
func MarshalNode(n *orgtree.Node) ([]byte, error) {
	return json.MarshalIndent(EncodeNode(nil, n), "", "  ")
}

// EncodeQueryResult builds a query result record from match indices and
// the session that collected the shared node table.
func EncodeQueryResult(s *EncodeSession, results []int) map[string]any {
	if results == nil {
		results = []int{}
	}
	table := s.Table()
	if table == nil {
		table = []map[string]any{}
	}
	return map[string]any{
		"results":   results,
		"headlines": table,
	}
}

// MarshalQueryResult renders a query result record as indented JSON.
func MarshalQueryResult(s *EncodeSession, results []int) ([]byte, error) {
	return json.MarshalIndent(EncodeQueryResult(s, results), "", "  ")
}
