package importer

import (
	"testing"

	"github.com/dgallion1/orgbridge/internal/orgtree"
)

func TestForFile(t *testing.T) {
	reg := orgtree.NewRegistry()
	tests := []struct {
		filename string
		wantErr  bool
	}{
		{"doc.md", false},
		{"doc.MD", false},
		{"notes.txt", false},
		{"data.csv", false},
		{"page.html", false},
		{"page.htm", false},
		{"paper.pdf", false},
		{"report.docx", false},
		{"image.png", true},
		{"noext", true},
	}
	for _, tt := range tests {
		imp, err := ForFile(reg, tt.filename)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error, got importer %T", tt.filename, imp)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.filename, err)
		}
	}
}

func TestIsSupportedExtension(t *testing.T) {
	if !IsSupportedExtension("a/b/doc.md") {
		t.Error("expected .md to be supported")
	}
	if IsSupportedExtension("archive.zip") {
		t.Error("expected .zip to be unsupported")
	}
}

func TestBuilder_OutlineShape(t *testing.T) {
	b, err := NewBuilder(orgtree.NewRegistry(), "built.org")
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	b.SetTitle("Built")
	b.Paragraph("preamble")
	b.Heading(2, "Deep first") // clamps against nothing, nests under root
	b.Heading(1, "Top")
	b.Paragraph("top text")
	b.Heading(3, "Leaf")
	b.HeadingProperty("PAGE", 4)
	b.Heading(1, "Second top")

	doc := b.Document()
	if err := doc.Root.OutlineError(); err != nil {
		t.Fatalf("builder produced an invalid outline: %v", err)
	}

	tops := doc.Root.Subheadings()
	if len(tops) != 3 {
		t.Fatalf("expected 3 top headlines, got %d", len(tops))
	}
	if tops[0].Title() != "Deep first" || tops[0].Level() != 2 {
		t.Errorf("unexpected first headline %q level %d", tops[0].Title(), tops[0].Level())
	}

	top := tops[1]
	if len(top.Subheadings()) != 1 {
		t.Fatalf("expected Leaf under Top, got %d children", len(top.Subheadings()))
	}
	leaf := top.Subheadings()[0]
	if page, ok := leaf.IntProperty("PAGE"); !ok || page != 4 {
		t.Errorf("expected PAGE property 4, got %v", leaf.Property("PAGE"))
	}

	if tops[2].Title() != "Second top" {
		t.Errorf("expected %q last, got %q", "Second top", tops[2].Title())
	}
	if doc.Root.Section() == nil {
		t.Error("expected the preamble paragraph in a root section")
	}
}

func TestBuilder_RefsAreUnique(t *testing.T) {
	b, err := NewBuilder(orgtree.NewRegistry(), "refs.org")
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	b.Heading(1, "A")
	b.Heading(1, "B")
	doc := b.Document()

	seen := map[string]bool{}
	for _, h := range doc.Headlines() {
		ref := h.Ref()
		if ref == "" {
			t.Fatal("expected every headline to carry a ref")
		}
		if seen[ref] {
			t.Fatalf("duplicate ref %q", ref)
		}
		seen[ref] = true
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(seen))
	}
}
