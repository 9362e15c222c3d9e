package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/orgbridge/internal/orgtree"
)

func mustType(t *testing.T, reg *orgtree.Registry, name string) *orgtree.NodeType {
	t.Helper()
	typ, err := reg.Lookup(name)
	if err != nil {
		t.Fatalf("lookup %s: %v", name, err)
	}
	return typ
}

func mkNode(t *testing.T, reg *orgtree.Registry, name, ref string, props map[string]any, contents ...orgtree.Content) *orgtree.Node {
	t.Helper()
	if props == nil {
		props = map[string]any{}
	}
	return orgtree.NewNode(mustType(t, reg, name), ref, props, contents)
}

func sampleDocument(t *testing.T, reg *orgtree.Registry) *orgtree.Document {
	t.Helper()

	intro := mkNode(t, reg, "paragraph", "", map[string]any{"begin": 1, "end": 12},
		orgtree.Text("intro "),
		mkNode(t, reg, "bold", "", nil, orgtree.Text("text")),
	)
	rootSec := mkNode(t, reg, "section", "", map[string]any{"begin": 1, "end": 12}, intro)

	body := mkNode(t, reg, "paragraph", "", map[string]any{"begin": 20, "end": 35}, orgtree.Text("body"))
	topSec := mkNode(t, reg, "section", "", map[string]any{"begin": 20, "end": 35}, body)
	child := mkNode(t, reg, "headline", "h-2", map[string]any{
		"level": 2, "raw-value": "Child", "begin": 35, "end": 50,
	})
	top := mkNode(t, reg, "headline", "h-1", map[string]any{
		"level": 1, "raw-value": "Top", "begin": 12, "end": 50, "tags": []any{"work"},
	}, topSec, child)

	root := mkNode(t, reg, "org-data", "", map[string]any{}, rootSec, top)

	return &orgtree.Document{
		Properties: map[string]any{"title": []any{"T"}},
		Path:       "/notes/sample.org",
		Root:       root,
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	reg := orgtree.NewRegistry()
	doc := sampleDocument(t, reg)

	first, err := MarshalDocument(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := DecodeDocument(reg, bytes.NewReader(first))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Path != doc.Path {
		t.Errorf("path = %q, want %q", decoded.Path, doc.Path)
	}
	if len(decoded.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", decoded.Diagnostics)
	}
	if got := decoded.Title(); got != "T" {
		t.Errorf("title = %q, want %q", got, "T")
	}

	top := decoded.Root.Subheadings()
	if len(top) != 1 {
		t.Fatalf("top-level headlines = %d, want 1", len(top))
	}
	if top[0].Title() != "Top" || top[0].Level() != 1 {
		t.Errorf("headline = %q level %d, want Top level 1", top[0].Title(), top[0].Level())
	}
	if begin, ok := top[0].IntProperty("begin"); !ok || begin != 12 {
		t.Errorf("begin = %d (ok=%v), want 12; numbers must decode as ints", begin, ok)
	}
	if len(top[0].Subheadings()) != 1 || top[0].Subheadings()[0].Ref() != "h-2" {
		t.Errorf("child headline not preserved: %+v", top[0].Subheadings())
	}

	second, err := MarshalDocument(decoded)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("round trip changed the record\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestDecodeDocument_Minimal(t *testing.T) {
	input := `{
		"type": "document",
		"properties": {"title": ["T"]},
		"root": {
			"type": "org-data",
			"ref": null,
			"properties": {},
			"contents": [
				{"type": "headline", "ref": null, "properties": {"level": 1, "raw-value": "A"}, "contents": []}
			]
		}
	}`

	reg := orgtree.NewRegistry()
	doc, err := DecodeDocument(reg, strings.NewReader(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := doc.Title(); got != "T" {
		t.Errorf("title = %q, want T", got)
	}
	subs := doc.Root.Subheadings()
	if len(subs) != 1 {
		t.Fatalf("subheadings = %d, want 1", len(subs))
	}
	if subs[0].Title() != "A" || subs[0].Level() != 1 {
		t.Errorf("headline = %q level %d, want A level 1", subs[0].Title(), subs[0].Level())
	}
}

func TestDecodeDocument_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantIs   []error
		wantPath string
	}{
		{
			name:   "not an object",
			input:  `[1, 2]`,
			wantIs: []error{ErrMalformedRecord},
		},
		{
			name:   "missing discriminator",
			input:  `{"properties": {}, "root": {"type": "org-data"}}`,
			wantIs: []error{ErrMalformedRecord},
		},
		{
			name:   "wrong discriminator",
			input:  `{"type": "outline", "root": {"type": "org-data"}}`,
			wantIs: []error{ErrMalformedRecord},
		},
		{
			name:   "missing root",
			input:  `{"type": "document", "properties": {}}`,
			wantIs: []error{ErrMalformedRecord},
		},
		{
			name:   "root is not the outline root",
			input:  `{"type": "document", "root": {"type": "paragraph"}}`,
			wantIs: []error{ErrMalformedRecord},
		},
		{
			name:     "unknown node type",
			input:    `{"type": "document", "root": {"type": "org-data", "contents": [{"type": "mystery-block"}]}}`,
			wantIs:   []error{ErrMalformedRecord, orgtree.ErrUnknownType},
			wantPath: "root.contents[0]",
		},
		{
			name:     "dangling index reference",
			input:    `{"type": "document", "root": {"type": "org-data", "contents": [{"ref_index": 5}]}}`,
			wantIs:   []error{ErrMalformedRecord},
			wantPath: "root.contents[0]",
		},
		{
			name:     "unknown type inside a property",
			input:    `{"type": "document", "root": {"type": "org-data", "properties": {"title": [{"type": "mystery"}]}, "contents": []}}`,
			wantIs:   []error{ErrMalformedRecord, orgtree.ErrUnknownType},
			wantPath: "properties.title[0]",
		},
		{
			name:   "non-string ref",
			input:  `{"type": "document", "root": {"type": "org-data", "ref": 7, "contents": []}}`,
			wantIs: []error{ErrMalformedRecord},
		},
	}

	reg := orgtree.NewRegistry()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeDocument(reg, strings.NewReader(tc.input))
			if err == nil {
				t.Fatalf("decode succeeded, want error")
			}
			for _, want := range tc.wantIs {
				if !errors.Is(err, want) {
					t.Errorf("errors.Is(err, %v) = false; err = %v", want, err)
				}
			}
			if tc.wantPath != "" && !strings.Contains(err.Error(), tc.wantPath) {
				t.Errorf("error %q does not mention path %q", err, tc.wantPath)
			}
		})
	}
}

func TestDecodeDocument_OutlineDiagnostics(t *testing.T) {
	// A paragraph after the first headline breaks the outline shape. The
	// document must still decode, with the problem reported as a
	// diagnostic rather than a failure.
	input := `{
		"type": "document",
		"root": {
			"type": "org-data",
			"contents": [
				{"type": "headline", "properties": {"level": 1, "raw-value": "A"}, "contents": []},
				{"type": "paragraph", "properties": {}, "contents": ["stray"]}
			]
		}
	}`

	reg := orgtree.NewRegistry()
	doc, err := DecodeDocument(reg, strings.NewReader(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %v, want exactly one", doc.Diagnostics)
	}
	if !strings.Contains(doc.Diagnostics[0], "outline") {
		t.Errorf("diagnostic %q does not describe the outline problem", doc.Diagnostics[0])
	}
	if !strings.Contains(doc.Diagnostics[0], "$.root") {
		t.Errorf("diagnostic %q does not locate the node", doc.Diagnostics[0])
	}
	if doc.Root.OutlineError() == nil {
		t.Error("root outline error not recorded")
	}
	if len(doc.Root.Children()) != 2 {
		t.Errorf("children = %d, want 2 (content preserved)", len(doc.Root.Children()))
	}
	if doc.Root.Subheadings() != nil {
		t.Errorf("degraded root still exposes subheadings: %v", doc.Root.Subheadings())
	}
}

func TestDecodeDocument_NodeTable(t *testing.T) {
	input := `{
		"type": "document",
		"nodeTable": [
			{"type": "headline", "properties": {"level": 1, "raw-value": "Shared"}, "contents": []}
		],
		"root": {
			"type": "org-data",
			"contents": [{"ref_index": 0}]
		}
	}`

	reg := orgtree.NewRegistry()
	doc, err := DecodeDocument(reg, strings.NewReader(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	subs := doc.Root.Subheadings()
	if len(subs) != 1 || subs[0].Title() != "Shared" {
		t.Fatalf("aliased headline not resolved: %+v", subs)
	}
}

func TestDecodeNodes(t *testing.T) {
	input := `[
		{"type": "headline", "properties": {"level": 1, "raw-value": "One"}, "contents": []},
		{"type": "headline", "properties": {"level": 1, "raw-value": "Two"}, "contents": []}
	]`

	reg := orgtree.NewRegistry()
	nodes, err := DecodeNodes(reg, strings.NewReader(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(nodes))
	}
	if nodes[0].Title() != "One" || nodes[1].Title() != "Two" {
		t.Errorf("titles = %q, %q", nodes[0].Title(), nodes[1].Title())
	}
}

func TestEncodeSession_FileMemoized(t *testing.T) {
	s := NewEncodeSession()
	a := s.AddFile("/notes/a.org")
	b := s.AddFile("/notes/b.org")
	again := s.AddFile("/notes/a.org")

	if a != 0 || b != 1 {
		t.Errorf("indices = %d, %d, want 0, 1", a, b)
	}
	if again != a {
		t.Errorf("repeated AddFile = %d, want %d", again, a)
	}
	if len(s.Table()) != 2 {
		t.Errorf("table size = %d, want 2", len(s.Table()))
	}
}

func TestEncodeSession_HeadlineRefIndex(t *testing.T) {
	reg := orgtree.NewRegistry()
	h := mkNode(t, reg, "headline", "h-1", map[string]any{"level": 1, "raw-value": "Top"})

	s := NewEncodeSession()
	file := s.AddFile("/notes/a.org")
	first := s.AddHeadline(h, map[string]any{ParentIndexProp: file})
	second := s.AddHeadline(h, map[string]any{ParentIndexProp: file})

	if first != 1 || second != 1 {
		t.Errorf("indices = %d, %d, want both 1", first, second)
	}
	if len(s.Table()) != 2 {
		t.Fatalf("table size = %d, want 2", len(s.Table()))
	}

	// A later full encoding of the same node collapses to a reference.
	rec := EncodeNode(s, h)
	if _, ok := rec["ref_index"]; !ok {
		t.Errorf("re-encoding an emitted node did not alias: %v", rec)
	}
}

func TestQueryResultRoundTrip(t *testing.T) {
	reg := orgtree.NewRegistry()
	parent := mkNode(t, reg, "headline", "h-1", map[string]any{"level": 1, "raw-value": "Top"})
	child := mkNode(t, reg, "headline", "", map[string]any{"level": 2, "raw-value": "Inner", "begin": 42})

	s := NewEncodeSession()
	file := s.AddFile("/notes/a.org")
	pi := s.AddHeadline(parent, map[string]any{ParentIndexProp: file})
	ci := s.AddHeadline(child, map[string]any{ParentIndexProp: pi})

	data, err := MarshalQueryResult(s, []int{ci, ci, pi})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	res, err := DecodeQueryResult(reg, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := []int{2, 2, 1}; len(res.Results) != 3 || res.Results[0] != want[0] || res.Results[1] != want[1] || res.Results[2] != want[2] {
		t.Errorf("results = %v, want %v", res.Results, want)
	}
	if len(res.Table) != 3 {
		t.Fatalf("table size = %d, want 3", len(res.Table))
	}

	if e := res.Table[0]; e.Kind != FileKind || e.Path != "/notes/a.org" || e.ParentIndex != -1 {
		t.Errorf("file entry = %+v", e)
	}
	if e := res.Table[1]; e.Kind != "headline" || e.ParentIndex != 0 || e.Node.Title() != "Top" {
		t.Errorf("parent entry = %+v", e)
	}
	if e := res.Table[2]; e.ParentIndex != 1 || e.Node.Title() != "Inner" {
		t.Errorf("child entry = %+v", e)
	}
	if _, present := res.Table[2].Node.Properties()[ParentIndexProp]; present {
		t.Error("parent index overlay leaked into node properties")
	}
	if begin, ok := res.Table[2].Node.IntProperty("begin"); !ok || begin != 42 {
		t.Errorf("begin = %d (ok=%v), want 42", begin, ok)
	}
}

func TestDecodeQueryResult_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "result index out of range",
			input: `{"results": [3], "headlines": [{"type": "org-file", "properties": {"path": "/a.org"}}]}`,
		},
		{
			name:  "forward parent reference",
			input: `{"results": [], "headlines": [{"type": "headline", "properties": {"level": 1, "raw-value": "A", "parent_index": 1}}]}`,
		},
		{
			name:  "file entry without path",
			input: `{"results": [], "headlines": [{"type": "org-file", "properties": {}}]}`,
		},
		{
			name:  "missing results",
			input: `{"headlines": []}`,
		},
	}

	reg := orgtree.NewRegistry()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeQueryResult(reg, strings.NewReader(tc.input))
			if err == nil {
				t.Fatal("decode succeeded, want error")
			}
			if !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("errors.Is(err, ErrMalformedRecord) = false; err = %v", err)
			}
		})
	}
}

func TestDecodeDocument_FloatLevels(t *testing.T) {
	// Producers that serialize all numbers as floats still yield usable
	// integer properties.
	input := `{
		"type": "document",
		"root": {
			"type": "org-data",
			"contents": [{"type": "headline", "properties": {"level": 2.0, "raw-value": "F"}, "contents": []}]
		}
	}`

	reg := orgtree.NewRegistry()
	doc, err := DecodeDocument(reg, strings.NewReader(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	subs := doc.Root.Subheadings()
	if len(subs) != 1 || subs[0].Level() != 2 {
		t.Fatalf("level = %d, want 2", subs[0].Level())
	}
}
