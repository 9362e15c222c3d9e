package importer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// nodeTypes holds the resolved node types a Builder constructs with.
type nodeTypes struct {
	root      *orgtree.NodeType
	section   *orgtree.NodeType
	headline  *orgtree.NodeType
	paragraph *orgtree.NodeType
	srcBlock  *orgtree.NodeType
	example   *orgtree.NodeType
	quote     *orgtree.NodeType
	rule      *orgtree.NodeType
	table     *orgtree.NodeType
	tableRow  *orgtree.NodeType
	tableCell *orgtree.NodeType
}

// Builder assembles an org document from a linear stream of headings and
// content blocks. Headings nest by level the way an outline does: a new
// heading closes every open heading at the same or a deeper level.
type Builder struct {
	types nodeTypes
	path  string
	props map[string]any
	root  *draft
	stack []*draft
}

// draft is a mutable headline under construction. Nodes are immutable
// once built, so the tree is assembled in drafts and materialized at the
// end in a single pass.
type draft struct {
	level    int
	title    string
	props    map[string]any
	blocks   []block
	children []*draft
}

type block interface {
	node(b *Builder) *orgtree.Node
}

// NewBuilder resolves the node types the importers emit. It fails only
// when the registry is missing a builtin type.
func NewBuilder(reg *orgtree.Registry, path string) (*Builder, error) {
	var t nodeTypes
	for _, entry := range []struct {
		name string
		dst  **orgtree.NodeType
	}{
		{"org-data", &t.root},
		{"section", &t.section},
		{"headline", &t.headline},
		{"paragraph", &t.paragraph},
		{"src-block", &t.srcBlock},
		{"example-block", &t.example},
		{"quote-block", &t.quote},
		{"horizontal-rule", &t.rule},
		{"table", &t.table},
		{"table-row", &t.tableRow},
		{"table-cell", &t.tableCell},
	} {
		typ, err := reg.Lookup(entry.name)
		if err != nil {
			return nil, fmt.Errorf("importer requires type %s: %w", entry.name, err)
		}
		*entry.dst = typ
	}
	root := &draft{level: 0}
	return &Builder{
		types: t,
		path:  path,
		props: map[string]any{},
		root:  root,
		stack: []*draft{root},
	}, nil
}

// SetTitle records the document title property.
func (b *Builder) SetTitle(title string) {
	title = strings.TrimSpace(title)
	if title != "" {
		b.props["title"] = []any{title}
	}
}

// SetProperty records a document-level property.
func (b *Builder) SetProperty(key string, value any) {
	b.props[key] = value
}

// Heading opens a headline at the given outline level. Levels start at 1;
// anything lower is clamped.
func (b *Builder) Heading(level int, title string) {
	if level < 1 {
		level = 1
	}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	d := &draft{level: level, title: strings.TrimSpace(title)}
	parent := b.stack[len(b.stack)-1]
	parent.children = append(parent.children, d)
	b.stack = append(b.stack, d)
}

// HeadingProperty sets a property on the innermost open headline. At the
// document root it sets a document property instead.
func (b *Builder) HeadingProperty(key string, value any) {
	cur := b.stack[len(b.stack)-1]
	if cur.level == 0 {
		b.SetProperty(key, value)
		return
	}
	if cur.props == nil {
		cur.props = map[string]any{}
	}
	cur.props[key] = value
}

// Paragraph appends a text block under the current heading. Blank text is
// dropped.
func (b *Builder) Paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.appendBlock(paragraphBlock{text: text})
}

// Code appends a source block. Without a language it degrades to an
// example block, matching how org distinguishes the two.
func (b *Builder) Code(language, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	b.appendBlock(codeBlock{language: strings.TrimSpace(language), value: value})
}

// Quote appends a block quote.
func (b *Builder) Quote(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.appendBlock(quoteBlock{text: text})
}

// Rule appends a horizontal rule.
func (b *Builder) Rule() {
	b.appendBlock(ruleBlock{})
}

// Table appends a table. A non-empty header row is separated from the
// body by a rule row.
func (b *Builder) Table(headers []string, rows [][]string) {
	if len(headers) == 0 && len(rows) == 0 {
		return
	}
	b.appendBlock(tableBlock{headers: headers, rows: rows})
}

func (b *Builder) appendBlock(blk block) {
	cur := b.stack[len(b.stack)-1]
	cur.blocks = append(cur.blocks, blk)
}

// Document materializes the accumulated drafts into an immutable org
// tree. Every headline gets a fresh ref so imported nodes stay
// addressable across re-imports within one session.
func (b *Builder) Document() *orgtree.Document {
	root := b.build(b.root)
	doc := &orgtree.Document{
		Properties: b.props,
		Path:       b.path,
		Root:       root,
	}
	orgtree.AssignOutlineIDs(root)
	return doc
}

func (b *Builder) build(d *draft) *orgtree.Node {
	var contents []orgtree.Content
	if len(d.blocks) > 0 {
		els := make([]orgtree.Content, 0, len(d.blocks))
		for _, blk := range d.blocks {
			els = append(els, blk.node(b))
		}
		contents = append(contents, orgtree.NewNode(b.types.section, "", nil, els))
	}
	for _, child := range d.children {
		contents = append(contents, b.build(child))
	}
	if d.level == 0 {
		return orgtree.NewNode(b.types.root, "", nil, contents)
	}
	props := map[string]any{
		"level":     d.level,
		"raw-value": d.title,
		"title":     []any{d.title},
	}
	for k, v := range d.props {
		props[k] = v
	}
	return orgtree.NewNode(b.types.headline, uuid.NewString(), props, contents)
}

type paragraphBlock struct {
	text string
}

func (p paragraphBlock) node(b *Builder) *orgtree.Node {
	return orgtree.NewNode(b.types.paragraph, "", nil, []orgtree.Content{orgtree.Text(p.text)})
}

type codeBlock struct {
	language string
	value    string
}

func (c codeBlock) node(b *Builder) *orgtree.Node {
	value := c.value
	if !strings.HasSuffix(value, "\n") {
		value += "\n"
	}
	if c.language == "" {
		return orgtree.NewNode(b.types.example, "", map[string]any{"value": value}, nil)
	}
	props := map[string]any{
		"language": c.language,
		"value":    value,
	}
	return orgtree.NewNode(b.types.srcBlock, "", props, nil)
}

type quoteBlock struct {
	text string
}

func (q quoteBlock) node(b *Builder) *orgtree.Node {
	para := orgtree.NewNode(b.types.paragraph, "", nil, []orgtree.Content{orgtree.Text(q.text)})
	return orgtree.NewNode(b.types.quote, "", nil, []orgtree.Content{para})
}

type ruleBlock struct{}

func (ruleBlock) node(b *Builder) *orgtree.Node {
	return orgtree.NewNode(b.types.rule, "", nil, nil)
}

type tableBlock struct {
	headers []string
	rows    [][]string
}

func (t tableBlock) node(b *Builder) *orgtree.Node {
	var rows []orgtree.Content
	if len(t.headers) > 0 {
		rows = append(rows, t.row(b, t.headers))
		if len(t.rows) > 0 {
			rows = append(rows, orgtree.NewNode(b.types.tableRow, "", map[string]any{"type": "rule"}, nil))
		}
	}
	for _, r := range t.rows {
		rows = append(rows, t.row(b, r))
	}
	return orgtree.NewNode(b.types.table, "", map[string]any{"type": "org"}, rows)
}

func (t tableBlock) row(b *Builder, cells []string) *orgtree.Node {
	contents := make([]orgtree.Content, 0, len(cells))
	for _, cell := range cells {
		cellNode := orgtree.NewNode(b.types.tableCell, "", nil, []orgtree.Content{orgtree.Text(strings.TrimSpace(cell))})
		contents = append(contents, cellNode)
	}
	return orgtree.NewNode(b.types.tableRow, "", map[string]any{"type": "standard"}, contents)
}
