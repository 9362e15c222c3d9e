package orgtree

import (
	"strings"
	"testing"
)

func TestDump_WithProperties(t *testing.T) {
	reg := NewRegistry()

	bold := mkNode(t, reg, "bold", "", nil, Text("loud"))
	para := mkNode(t, reg, "paragraph", "", map[string]any{"post-blank": 1}, Text("hello "), bold)
	section := mkNode(t, reg, "section", "", nil, para)
	h := mkNode(t, reg, HeadlineType, "", map[string]any{"level": 1, "raw-value": "A"}, section)
	root := mkNode(t, reg, RootType, "", nil, h)

	var b strings.Builder
	if err := root.Dump(&b, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `org-data
  0 headline
    :level : 1
    :raw-value : "A"
    0 section
      0 paragraph
        :post-blank : 1
        0 "hello "
        1 bold
          0 "loud"
`
	if b.String() != want {
		t.Errorf("dump mismatch:\n got:\n%s\nwant:\n%s", b.String(), want)
	}
}

func TestDump_WithoutProperties(t *testing.T) {
	reg := NewRegistry()
	h := mkHeadline(t, reg, 1, "A")
	root := mkNode(t, reg, RootType, "", nil, h)

	var b strings.Builder
	if err := root.Dump(&b, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "org-data\n  0 headline\n"
	if b.String() != want {
		t.Errorf("dump mismatch: got %q, want %q", b.String(), want)
	}
}

func TestDump_Deterministic(t *testing.T) {
	reg := NewRegistry()
	n := mkNode(t, reg, "paragraph", "", map[string]any{
		"zeta":  1,
		"alpha": "x",
		"mid":   nil,
	})

	var first strings.Builder
	if err := n.Dump(&first, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Properties come out sorted, so repeated dumps are identical.
	for i := 0; i < 5; i++ {
		var again strings.Builder
		if err := n.Dump(&again, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again.String() != first.String() {
			t.Fatalf("dump not deterministic:\n%s\nvs\n%s", first.String(), again.String())
		}
	}

	lines := strings.Split(strings.TrimSpace(first.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[1], ":alpha") || !strings.Contains(lines[3], ":zeta") {
		t.Errorf("properties not sorted: %v", lines)
	}
}

func TestDumpOutline(t *testing.T) {
	reg := NewRegistry()

	inner := mkHeadline(t, reg, 2, "Inner")
	first := mkHeadline(t, reg, 1, "First", inner)
	second := mkHeadline(t, reg, 1, "Second")
	root := mkNode(t, reg, RootType, "", nil, first, second)

	var b strings.Builder
	if err := root.DumpOutline(&b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `0 First
  0 Inner
1 Second
`
	if b.String() != want {
		t.Errorf("outline dump mismatch:\n got:\n%s\nwant:\n%s", b.String(), want)
	}
}
