package orgtree

import "testing"

func TestDocument_Title(t *testing.T) {
	reg := NewRegistry()
	bold := mkNode(t, reg, "bold", "", nil, Text("World"))

	doc := &Document{
		Properties: map[string]any{
			"title": []any{"Hello ", bold},
		},
		Root: mkNode(t, reg, RootType, "", nil),
	}

	if doc.Title() != "Hello World" {
		t.Errorf("expected flattened title %q, got %q", "Hello World", doc.Title())
	}
}

func TestDocument_NodeByRef(t *testing.T) {
	reg := NewRegistry()

	target := mkNode(t, reg, "paragraph", "p-42", nil, Text("body"))
	section := mkNode(t, reg, "section", "", nil, target)
	h := mkHeadline(t, reg, 1, "H", section)
	root := mkNode(t, reg, RootType, "r-1", nil, h)
	doc := &Document{Root: root}

	if got := doc.NodeByRef("p-42"); got != target {
		t.Errorf("expected to find paragraph by ref")
	}
	if got := doc.NodeByRef("missing"); got != nil {
		t.Errorf("expected nil for unknown ref, got %v", got)
	}
	if got := doc.NodeByRef(""); got != nil {
		t.Errorf("empty ref should find nothing")
	}
}

func TestDocument_NodeAt(t *testing.T) {
	reg := NewRegistry()

	deep := mkNode(t, reg, HeadlineType, "", map[string]any{
		"level": 2, "raw-value": "Deep", "begin": 20, "end": 40,
	})
	top := mkNode(t, reg, HeadlineType, "", map[string]any{
		"level": 1, "raw-value": "Top", "begin": 10, "end": 40,
	}, deep)
	other := mkNode(t, reg, HeadlineType, "", map[string]any{
		"level": 1, "raw-value": "Other", "begin": 40, "end": 60,
	})
	root := mkNode(t, reg, RootType, "", nil, top, other)
	doc := &Document{Root: root}

	if got := doc.NodeAt(15); got != top {
		t.Errorf("position 15 should land on Top, got %v", got)
	}
	if got := doc.NodeAt(25); got != deep {
		t.Errorf("position 25 should land on the deepest headline, got %v", got)
	}
	if got := doc.NodeAt(45); got != other {
		t.Errorf("position 45 should land on Other, got %v", got)
	}
	if got := doc.NodeAt(5); got != nil {
		t.Errorf("position before any headline should find nothing, got %v", got)
	}
	if got := doc.NodeAt(60); got != nil {
		t.Errorf("end positions are exclusive, got %v", got)
	}
}

func TestDocument_Headlines(t *testing.T) {
	reg := NewRegistry()

	inner := mkHeadline(t, reg, 2, "Inner")
	first := mkHeadline(t, reg, 1, "First", inner)
	second := mkHeadline(t, reg, 1, "Second")
	root := mkNode(t, reg, RootType, "", nil, first, second)
	doc := &Document{Root: root}

	got := doc.Headlines()
	want := []string{"First", "Inner", "Second"}
	if len(got) != len(want) {
		t.Fatalf("expected %d headlines, got %d", len(want), len(got))
	}
	for i, h := range got {
		if h.Title() != want[i] {
			t.Errorf("headline[%d]: expected %q, got %q", i, want[i], h.Title())
		}
	}
}
