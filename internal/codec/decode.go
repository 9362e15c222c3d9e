package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// QueryResult is the decoded form of a query result record: match indices
// in search-traversal order (duplicates allowed) plus the de-duplicated
// node table.
type QueryResult struct {
	Results []int
	Table   []TableEntry
}

// TableEntry is one slot of a decoded node table: either a synthetic file
// entry or a headline.
type TableEntry struct {
	Kind        string        // FileKind or the node's type name
	Path        string        // set for file entries
	ParentIndex int           // index of the parent entry, -1 for file entries
	Node        *orgtree.Node // nil for file entries
}

type decoder struct {
	reg   *orgtree.Registry
	table []TableEntry
	diags []string
	path  []string
}

func (d *decoder) push(seg string)  { d.path = append(d.path, seg) }
func (d *decoder) pop()             { d.path = d.path[:len(d.path)-1] }
func (d *decoder) location() string { return strings.Join(d.path, "") }

func (d *decoder) fail(cause error) error {
	return &RecordError{Path: d.location(), Err: cause}
}

func (d *decoder) failf(format string, args ...any) error {
	return d.fail(fmt.Errorf(format, args...))
}

func parseJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, &RecordError{Path: "$", Err: err}
	}
	return data, nil
}

// DecodeDocument parses a serialized document record into a Document.
// Structural violations fail the whole call with an error in the
// ErrMalformedRecord class carrying path context; recoverable problems
// (outline invariant violations) are collected into Diagnostics instead.
func DecodeDocument(reg *orgtree.Registry, r io.Reader) (*orgtree.Document, error) {
	data, err := parseJSON(r)
	if err != nil {
		return nil, err
	}

	d := &decoder{reg: reg, path: []string{"$"}}

	rec, ok := data.(map[string]any)
	if !ok {
		return nil, d.failf("document record must be an object, got %T", data)
	}

	typ, ok := rec["type"].(string)
	if !ok {
		return nil, d.failf("missing type discriminator")
	}
	if typ != DocumentType {
		return nil, d.failf("unrecognized discriminator %q", typ)
	}

	// An optional shared node table is decoded first so index references
	// inside the tree resolve against it.
	if raw, present := rec["nodeTable"]; present {
		if err := d.decodeTable(raw, "nodeTable"); err != nil {
			return nil, err
		}
	}

	props := map[string]any{}
	if raw, present := rec["properties"]; present {
		d.push(".properties")
		props, err = d.decodeMapping(raw)
		d.pop()
		if err != nil {
			return nil, err
		}
	}

	rawRoot, present := rec["root"]
	if !present {
		return nil, d.failf("missing root node")
	}
	d.push(".root")
	root, err := d.decodeNode(rawRoot)
	d.pop()
	if err != nil {
		return nil, err
	}
	if root.Type().Name != orgtree.RootType {
		return nil, d.failf("root must be %q, got %q", orgtree.RootType, root.Type().Name)
	}

	doc := &orgtree.Document{
		Properties:  props,
		Root:        root,
		Diagnostics: d.diags,
	}
	if p, ok := props["path"].(string); ok {
		doc.Path = p
		delete(props, "path")
	}
	orgtree.AssignOutlineIDs(root)

	return doc, nil
}

// DecodeNode parses a single node record.
func DecodeNode(reg *orgtree.Registry, r io.Reader) (*orgtree.Node, error) {
	data, err := parseJSON(r)
	if err != nil {
		return nil, err
	}
	d := &decoder{reg: reg, path: []string{"$"}}
	return d.decodeNode(data)
}

// DecodeNodes parses a top-level array of node records, as returned by
// the editor's query bridge.
func DecodeNodes(reg *orgtree.Registry, r io.Reader) ([]*orgtree.Node, error) {
	data, err := parseJSON(r)
	if err != nil {
		return nil, err
	}
	d := &decoder{reg: reg, path: []string{"$"}}

	arr, ok := data.([]any)
	if !ok {
		return nil, d.failf("expected an array of node records, got %T", data)
	}
	nodes := make([]*orgtree.Node, 0, len(arr))
	for i, item := range arr {
		d.push(fmt.Sprintf("[%d]", i))
		n, err := d.decodeNode(item)
		d.pop()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// DecodeQueryResult parses a query result record: the ordered match
// indices and the shared headline/file table.
func DecodeQueryResult(reg *orgtree.Registry, r io.Reader) (*QueryResult, error) {
	data, err := parseJSON(r)
	if err != nil {
		return nil, err
	}
	d := &decoder{reg: reg, path: []string{"$"}}

	rec, ok := data.(map[string]any)
	if !ok {
		return nil, d.failf("query result must be an object, got %T", data)
	}

	if err := d.decodeTable(rec["headlines"], "headlines"); err != nil {
		return nil, err
	}

	rawResults, ok := rec["results"].([]any)
	if !ok {
		return nil, d.failf("missing results list")
	}
	results := make([]int, 0, len(rawResults))
	for i, raw := range rawResults {
		d.push(fmt.Sprintf(".results[%d]", i))
		idx, ok := toInt(raw)
		if !ok {
			return nil, d.failf("result index must be an integer, got %v", raw)
		}
		if idx < 0 || idx >= len(d.table) {
			return nil, d.failf("result index %d outside node table of %d", idx, len(d.table))
		}
		d.pop()
		results = append(results, idx)
	}

	return &QueryResult{Results: results, Table: d.table}, nil
}

// decodeTable fills the decoder's table from a raw entry array. Entries
// may reference only earlier entries; the protocol emits parents first.
func (d *decoder) decodeTable(raw any, field string) error {
	if raw == nil {
		return nil
	}
	arr, ok := raw.([]any)
	if !ok {
		d.push("." + field)
		defer d.pop()
		return d.failf("node table must be an array, got %T", raw)
	}

	for i, item := range arr {
		d.push(fmt.Sprintf(".%s[%d]", field, i))

		rec, ok := item.(map[string]any)
		if !ok {
			return d.failf("table entry must be an object, got %T", item)
		}
		typ, _ := rec["type"].(string)

		if typ == FileKind {
			props, _ := rec["properties"].(map[string]any)
			path, _ := props["path"].(string)
			if path == "" {
				return d.failf("file entry missing path")
			}
			d.table = append(d.table, TableEntry{Kind: FileKind, Path: path, ParentIndex: -1})
			d.pop()
			continue
		}

		// The parent index is an encode-time overlay, not a node
		// property; strip it from the raw record before construction.
		parentIdx := -1
		if props, ok := rec["properties"].(map[string]any); ok {
			if v, present := props[ParentIndexProp]; present {
				idx, ok := toInt(v)
				if !ok || idx < 0 || idx >= len(d.table) {
					return d.failf("parent index %v outside node table of %d", v, len(d.table))
				}
				parentIdx = idx
				delete(props, ParentIndexProp)
			}
		}

		n, err := d.decodeNode(item)
		if err != nil {
			return err
		}
		d.table = append(d.table, TableEntry{Kind: n.Type().Name, ParentIndex: parentIdx, Node: n})
		d.pop()
	}
	return nil
}

func (d *decoder) decodeNode(raw any) (*orgtree.Node, error) {
	rec, ok := raw.(map[string]any)
	if !ok {
		return nil, d.failf("node record must be an object, got %T", raw)
	}

	name, ok := rec["type"].(string)
	if !ok {
		return nil, d.failf("missing type discriminator")
	}
	typ, err := d.reg.Lookup(name)
	if err != nil {
		return nil, d.fail(err)
	}

	ref := ""
	if r, present := rec["ref"]; present && r != nil {
		s, ok := r.(string)
		if !ok {
			return nil, d.failf("ref must be a string or null, got %T", r)
		}
		ref = s
	}

	props := map[string]any{}
	if raw, present := rec["properties"]; present {
		d.push(".properties")
		props, err = d.decodeMapping(raw)
		d.pop()
		if err != nil {
			return nil, err
		}
	}

	var contents []orgtree.Content
	if raw, present := rec["contents"]; present && raw != nil {
		arr, ok := raw.([]any)
		if !ok {
			return nil, d.failf("contents must be an array, got %T", raw)
		}
		contents = make([]orgtree.Content, 0, len(arr))
		for i, item := range arr {
			d.push(fmt.Sprintf(".contents[%d]", i))
			c, err := d.decodeContent(item)
			d.pop()
			if err != nil {
				return nil, err
			}
			contents = append(contents, c)
		}
	}

	n := orgtree.NewNode(typ, ref, props, contents)
	if oerr := n.OutlineError(); oerr != nil {
		d.diags = append(d.diags, fmt.Sprintf("%s: %v", d.location(), oerr))
	}
	return n, nil
}

// decodeContent handles one contents entry: a string, a nested node
// record, or an index reference into the shared table.
func (d *decoder) decodeContent(raw any) (orgtree.Content, error) {
	switch v := raw.(type) {
	case string:
		return orgtree.Text(v), nil
	case map[string]any:
		if n, isRef, err := d.resolveRef(v); isRef {
			if err != nil {
				return nil, err
			}
			return n, nil
		}
		if _, hasType := v["type"].(string); hasType {
			return d.decodeNode(v)
		}
		return nil, d.failf("contents entry must be a string, node record or index reference")
	default:
		return nil, d.failf("contents entry must be a string, node record or index reference, got %T", raw)
	}
}

// decodeValue handles a property value position: scalars, strings, node
// records, index references, arrays and plain mappings.
func (d *decoder) decodeValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil, bool, string:
		return v, nil
	case json.Number:
		return normalizeNumber(v), nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			d.push(fmt.Sprintf("[%d]", i))
			dv, err := d.decodeValue(item)
			d.pop()
			if err != nil {
				return nil, err
			}
			out[i] = dv
		}
		return out, nil
	case map[string]any:
		if n, isRef, err := d.resolveRef(v); isRef {
			if err != nil {
				return nil, err
			}
			return n, nil
		}
		if _, hasType := v["type"].(string); hasType {
			return d.decodeNode(v)
		}
		return d.decodeMapping(v)
	default:
		return nil, d.failf("unsupported value of type %T", raw)
	}
}

func (d *decoder) decodeMapping(raw any) (map[string]any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, d.failf("expected an object, got %T", raw)
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		d.push("." + k)
		dv, err := d.decodeValue(v)
		d.pop()
		if err != nil {
			return nil, err
		}
		out[k] = dv
	}
	return out, nil
}

// resolveRef recognizes the {"ref_index": i} form and resolves it against
// the shared node table.
func (d *decoder) resolveRef(m map[string]any) (*orgtree.Node, bool, error) {
	raw, present := m[refIndexKey]
	if !present || len(m) != 1 {
		return nil, false, nil
	}
	idx, ok := toInt(raw)
	if !ok {
		return nil, true, d.failf("ref_index must be an integer, got %v", raw)
	}
	if idx < 0 || idx >= len(d.table) {
		return nil, true, d.failf("ref_index %d outside node table of %d", idx, len(d.table))
	}
	entry := d.table[idx]
	if entry.Node == nil {
		return nil, true, d.failf("ref_index %d points at a file entry", idx)
	}
	return entry.Node, true, nil
}

func normalizeNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

// IsMalformed reports whether an error belongs to the malformed-record
// class.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}
