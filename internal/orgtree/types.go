package orgtree

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownType is returned when a node type name is not in the registry.
var ErrUnknownType = errors.New("unknown node type")

// NodeType is an immutable descriptor of a node kind and its structural
// category. Flags are never mutated after registration.
type NodeType struct {
	Name              string
	IsElement         bool // block-level part, at the same level as a paragraph
	IsObject          bool // inline part that can appear inside an element
	IsGreaterElement  bool // can contain child elements
	IsObjectContainer bool // can directly contain child objects
	IsRecursiveObject bool // object that can contain other objects
}

// RootType is the synthetic outline root kind. It is not part of the
// element or object sets.
const RootType = "org-data"

// HeadlineType is the heading node kind.
const HeadlineType = "headline"

// IsOutlineType reports whether a type name participates in the outline
// hierarchy (document root or headline).
func IsOutlineType(name string) bool {
	return name == RootType || name == HeadlineType
}

// Element, greater-element, object, object-container and recursive-object
// kinds of the org syntax, as exported by the editor.
var (
	allElements = []string{
		"babel-call", "center-block", "clock", "comment", "comment-block",
		"diary-sexp", "drawer", "dynamic-block", "example-block", "export-block",
		"fixed-width", "footnote-definition", "headline", "horizontal-rule",
		"inlinetask", "item", "keyword", "latex-environment", "node-property",
		"paragraph", "plain-list", "planning", "property-drawer", "quote-block",
		"section", "special-block", "src-block", "table", "table-row", "verse-block",
	}
	greaterElements = []string{
		"center-block", "drawer", "dynamic-block", "footnote-definition", "headline",
		"inlinetask", "item", "plain-list", "property-drawer", "quote-block",
		"section", "special-block", "table",
	}
	allObjects = []string{
		"bold", "code", "entity", "export-snippet", "footnote-reference",
		"inline-babel-call", "inline-src-block", "italic", "line-break",
		"latex-fragment", "link", "macro", "radio-target", "statistics-cookie",
		"strike-through", "subscript", "superscript", "table-cell", "target",
		"timestamp", "underline", "verbatim",
	}
	objectContainers = []string{
		"bold", "footnote-reference", "italic", "link", "subscript", "radio-target",
		"strike-through", "superscript", "table-cell", "underline", "paragraph",
		"table-row", "verse-block",
	}
	recursiveObjects = []string{
		"bold", "footnote-reference", "italic", "link", "subscript", "radio-target",
		"strike-through", "superscript", "table-cell", "underline",
	}
)

// Registry is the catalog of known node types. It is populated once before
// tree operations begin and treated as read-only afterward; it carries no
// locking.
type Registry struct {
	types   map[string]*NodeType
	version string
}

// NewRegistry returns a registry pre-populated with the built-in org
// element/object schema plus the outline root kind.
func NewRegistry() *Registry {
	r := &Registry{
		types:   make(map[string]*NodeType, len(allElements)+len(allObjects)+1),
		version: "builtin",
	}

	for _, name := range allElements {
		r.Register(NodeType{Name: name, IsElement: true})
	}
	for _, name := range allObjects {
		r.Register(NodeType{Name: name, IsObject: true})
	}
	for _, name := range greaterElements {
		r.mustFlag(name, func(t *NodeType) { t.IsGreaterElement = true })
	}
	for _, name := range objectContainers {
		r.mustFlag(name, func(t *NodeType) { t.IsObjectContainer = true })
	}
	for _, name := range recursiveObjects {
		r.mustFlag(name, func(t *NodeType) { t.IsRecursiveObject = true })
	}

	r.Register(NodeType{Name: RootType, IsGreaterElement: true})

	return r
}

func (r *Registry) mustFlag(name string, set func(*NodeType)) {
	t, ok := r.types[name]
	if !ok {
		panic(fmt.Sprintf("orgtree: builtin schema references unregistered type %q", name))
	}
	set(t)
}

// Register adds or overwrites a type descriptor. Registering the same
// descriptor twice is a no-op.
func (r *Registry) Register(t NodeType) {
	cp := t
	r.types[t.Name] = &cp
}

// Lookup returns the descriptor for a type name, or ErrUnknownType.
func (r *Registry) Lookup(name string) (*NodeType, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return t, nil
}

// Has reports whether a type name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.types[name]
	return ok
}

// Types returns all registered descriptors sorted by name.
func (r *Registry) Types() []*NodeType {
	out := make([]*NodeType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Version reports the effective schema version: "builtin" until a schema
// file has been loaded.
func (r *Registry) Version() string {
	return r.version
}

type schemaFile struct {
	Version string `yaml:"version"`
	Types   []struct {
		Name            string `yaml:"name"`
		Element         bool   `yaml:"element"`
		Object          bool   `yaml:"object"`
		Greater         bool   `yaml:"greater"`
		ObjectContainer bool   `yaml:"object-container"`
		Recursive       bool   `yaml:"recursive"`
	} `yaml:"types"`
}

// LoadSchema merges a versioned YAML schema document into the registry.
// Entries overwrite existing descriptors of the same name.
func (r *Registry) LoadSchema(rd io.Reader) error {
	var sf schemaFile
	dec := yaml.NewDecoder(rd)
	if err := dec.Decode(&sf); err != nil {
		return fmt.Errorf("decode schema: %w", err)
	}

	for _, e := range sf.Types {
		if e.Name == "" {
			return fmt.Errorf("decode schema: type entry with empty name")
		}
		r.Register(NodeType{
			Name:              e.Name,
			IsElement:         e.Element,
			IsObject:          e.Object,
			IsGreaterElement:  e.Greater,
			IsObjectContainer: e.ObjectContainer,
			IsRecursiveObject: e.Recursive,
		})
	}

	if sf.Version != "" {
		r.version = sf.Version
	}
	return nil
}
