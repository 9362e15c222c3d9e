package orgtree

import (
	"errors"
	"strings"
	"testing"
)

func TestRegistry_BuiltinSchema(t *testing.T) {
	reg := NewRegistry()

	para, err := reg.Lookup("paragraph")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !para.IsElement || para.IsObject {
		t.Errorf("paragraph should be an element, got %+v", para)
	}
	if !para.IsObjectContainer {
		t.Errorf("paragraph should be an object container")
	}

	bold, err := reg.Lookup("bold")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bold.IsObject || bold.IsElement {
		t.Errorf("bold should be an object, got %+v", bold)
	}
	if !bold.IsObjectContainer || !bold.IsRecursiveObject {
		t.Errorf("bold should be a recursive object container, got %+v", bold)
	}

	hl, err := reg.Lookup("headline")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hl.IsElement || !hl.IsGreaterElement {
		t.Errorf("headline should be a greater element, got %+v", hl)
	}

	root, err := reg.Lookup(RootType)
	if err != nil {
		t.Fatalf("root type not registered: %v", err)
	}
	if root.IsElement || root.IsObject {
		t.Errorf("org-data should be neither element nor object, got %+v", root)
	}
	if !root.IsGreaterElement {
		t.Errorf("org-data should be able to contain elements")
	}

	if reg.Version() != "builtin" {
		t.Errorf("expected version %q, got %q", "builtin", reg.Version())
	}
}

func TestRegistry_LookupUnknown(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Lookup("no-such-type")
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestRegistry_RegisterOverwrites(t *testing.T) {
	reg := NewRegistry()

	reg.Register(NodeType{Name: "custom-block", IsElement: true})
	ct, err := reg.Lookup("custom-block")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ct.IsElement || ct.IsGreaterElement {
		t.Errorf("unexpected flags: %+v", ct)
	}

	// Overwriting changes the stored descriptor.
	reg.Register(NodeType{Name: "custom-block", IsElement: true, IsGreaterElement: true})
	ct, err = reg.Lookup("custom-block")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ct.IsGreaterElement {
		t.Errorf("overwrite did not take effect: %+v", ct)
	}
}

func TestRegistry_RegisterCopies(t *testing.T) {
	reg := NewRegistry()
	desc := NodeType{Name: "ephemeral", IsObject: true}
	reg.Register(desc)
	desc.IsObject = false

	got, err := reg.Lookup("ephemeral")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsObject {
		t.Error("registry should hold its own copy of the descriptor")
	}
}

func TestRegistry_LoadSchema(t *testing.T) {
	schema := `
version: "2.1"
types:
  - name: proof-block
    element: true
    greater: true
  - name: math-ref
    object: true
`
	reg := NewRegistry()
	if err := reg.LoadSchema(strings.NewReader(schema)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reg.Version() != "2.1" {
		t.Errorf("expected version %q, got %q", "2.1", reg.Version())
	}

	pb, err := reg.Lookup("proof-block")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pb.IsElement || !pb.IsGreaterElement {
		t.Errorf("unexpected flags: %+v", pb)
	}

	mr, err := reg.Lookup("math-ref")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mr.IsObject {
		t.Errorf("unexpected flags: %+v", mr)
	}

	// Builtin types survive a merge.
	if !reg.Has("paragraph") {
		t.Error("builtin types should survive schema load")
	}
}

func TestRegistry_LoadSchemaRejectsEmptyName(t *testing.T) {
	schema := `
types:
  - element: true
`
	reg := NewRegistry()
	if err := reg.LoadSchema(strings.NewReader(schema)); err == nil {
		t.Fatal("expected error for entry with empty name")
	}
}

func TestRegistry_TypesSorted(t *testing.T) {
	reg := NewRegistry()
	types := reg.Types()
	if len(types) == 0 {
		t.Fatal("expected builtin types")
	}
	for i := 1; i < len(types); i++ {
		if types[i-1].Name >= types[i].Name {
			t.Fatalf("types not sorted: %q before %q", types[i-1].Name, types[i].Name)
		}
	}
}
