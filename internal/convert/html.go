package convert

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// Default tag per node type. An empty value means the node renders
// nothing. Types missing from the map fall to the converter policy.
var htmlTags = map[string]string{
	"org-data":          "div",
	"item":              "li",
	"paragraph":         "p",
	"bold":              "strong",
	"code":              "code",
	"italic":            "em",
	"link":              "a",
	"strike-through":    "s",
	"verbatim":          "span",
	"superscript":       "sup",
	"subscript":         "sub",
	"underline":         "u",
	"section":           "div",
	"comment":           "",
	"example-block":     "pre",
	"quote-block":       "blockquote",
	"verse-block":       "p",
	"center-block":      "div",
	"timestamp":         "span",
	"statistics-cookie": "span",
	"fixed-width":       "pre",
	"babel-call":        "",
	"horizontal-rule":   "hr",
	"radio-target":      "span",
	"property-drawer":   "",
}

// LinkResolver turns a link into a URL. Returning false marks the link
// unresolvable, which renders with an error marker instead of an href.
type LinkResolver func(linktype, rawLink, path string) (string, bool)

// HTMLConverter renders a document tree as an HTML fragment. Each node
// type maps to a fixed tag carrying "org-node org-<type>" class tokens;
// headlines render as a sectioning container around a heading tag.
type HTMLConverter struct {
	// Policy controls node types with no HTML mapping.
	Policy Policy

	// ResolveLink overrides URL resolution per link type. http and https
	// links pass through unchanged by default.
	ResolveLink map[string]LinkResolver

	// ImageExtensions lists file link suffixes rendered as images.
	ImageExtensions []string

	// DateFormat is the layout used for timestamp rendering.
	DateFormat string

	// LatexDelims and LatexInlineDelims wrap display and inline LaTeX
	// fragments.
	LatexDelims       [2]string
	LatexInlineDelims [2]string

	// Indent is the per-level indent string for block rendering.
	Indent string
}

func NewHTMLConverter() *HTMLConverter {
	return &HTMLConverter{
		ImageExtensions:   []string{".png", ".jpg", ".gif", ".tiff"},
		DateFormat:        "2006-01-02 Mon",
		LatexDelims:       [2]string{"$$", "$$"},
		LatexInlineDelims: [2]string{`\(`, `\)`},
		Indent:            "\t",
	}
}

// Convert renders the node and its descendants.
func (c *HTMLConverter) Convert(n *orgtree.Node) (string, error) {
	frags, err := c.fragments(n)
	if err != nil {
		return "", err
	}
	return RenderFragments(frags, c.indent()), nil
}

// ConvertDocument renders the document's full tree.
func (c *HTMLConverter) ConvertDocument(d *orgtree.Document) (string, error) {
	return c.Convert(d.Root)
}

// ConvertDOM returns the element form instead of a rendered string.
func (c *HTMLConverter) ConvertDOM(n *orgtree.Node) ([]Fragment, error) {
	return c.fragments(n)
}

// HeadlineText renders only the headline's title, wrapped in an
// org-header-text span. Used for navigation trees and search results.
func (c *HTMLConverter) HeadlineText(n *orgtree.Node) (string, error) {
	e := NewElement("span", "org-header-text")
	e.Inline = true
	frags, err := c.valueFragments(n.Property("title"))
	if err != nil {
		return "", err
	}
	e.Append(frags...)
	return RenderFragments([]Fragment{e}, c.indent()), nil
}

func (c *HTMLConverter) indent() string {
	if c.Indent == "" {
		return "\t"
	}
	return c.Indent
}

func (c *HTMLConverter) fragments(n *orgtree.Node) ([]Fragment, error) {
	switch n.Type().Name {
	case "headline":
		e, err := c.headline(n)
		if err != nil {
			return nil, err
		}
		return []Fragment{e}, nil
	case "plain-list":
		return c.plainList(n)
	case "entity":
		return []Fragment{Text{Value: n.StringProperty("utf-8"), PostWS: postBlank(n)}}, nil
	case "link":
		return c.link(n)
	case "code":
		e := c.makeElement(n, "code")
		e.AppendText(n.StringProperty("value"))
		return []Fragment{e}, nil
	case "verbatim", "example-block", "statistics-cookie", "fixed-width":
		e := c.makeElement(n, htmlTags[n.Type().Name])
		e.AppendText(n.StringProperty("value"))
		return []Fragment{e}, nil
	case "latex-fragment":
		return c.latexFragment(n)
	case "src-block":
		return c.srcBlock(n)
	case "line-break":
		return []Fragment{NewElement("br")}, nil
	case "table":
		return c.table(n)
	case "timestamp":
		e := c.makeElement(n, "span")
		e.AddClass("org-timestamp-" + n.StringProperty("type"))
		e.AppendText(c.timestampText(n))
		return []Fragment{e}, nil
	case "planning":
		return c.planning(n)
	}
	return c.defaultFragments(n)
}

// defaultFragments handles every type without a dedicated handler: wrap
// the converted contents in the mapped tag, skip deliberately unmapped
// types, and apply the policy to unknown ones.
func (c *HTMLConverter) defaultFragments(n *orgtree.Node) ([]Fragment, error) {
	tag, mapped := htmlTags[n.Type().Name]
	if mapped && tag == "" {
		return nil, nil
	}
	if !mapped {
		if c.Policy == Strict {
			return nil, &UnsupportedNodeError{Type: n.Type().Name, Target: "html"}
		}
		return c.childFragments(n.Contents())
	}

	e := c.makeElement(n, tag)
	kids, err := c.childFragments(n.Contents())
	if err != nil {
		return nil, err
	}
	e.Append(kids...)
	return []Fragment{e}, nil
}

// makeElement builds the standard element for a node: mapped tag plus
// the org-node class pair, inline for object-level types.
func (c *HTMLConverter) makeElement(n *orgtree.Node, tag string) *Element {
	e := NewElement(tag, "org-node org-"+n.Type().Name)
	if isInlineType(n.Type()) {
		e.Inline = true
		e.PostWS = postBlank(n)
	}
	return e
}

func isInlineType(t *orgtree.NodeType) bool {
	switch t.Name {
	case "paragraph", "example-block", "fixed-width":
		return true
	}
	return t.IsObject
}

func postBlank(n *orgtree.Node) bool {
	pb, ok := n.IntProperty("post-blank")
	return ok && pb > 0
}

func (c *HTMLConverter) childFragments(contents []orgtree.Content) ([]Fragment, error) {
	var out []Fragment
	for _, item := range contents {
		switch v := item.(type) {
		case orgtree.Text:
			out = append(out, Text{Value: string(v)})
		case *orgtree.Node:
			frags, err := c.fragments(v)
			if err != nil {
				return nil, err
			}
			out = append(out, frags...)
		}
	}
	return out, nil
}

// valueFragments converts a property value holding a secondary string:
// a list of text runs and objects, as in headline titles.
func (c *HTMLConverter) valueFragments(v any) ([]Fragment, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []Fragment{Text{Value: val}}, nil
	case orgtree.Text:
		return []Fragment{Text{Value: string(val)}}, nil
	case *orgtree.Node:
		return c.fragments(val)
	case []any:
		var out []Fragment
		for _, item := range val {
			frags, err := c.valueFragments(item)
			if err != nil {
				return nil, err
			}
			out = append(out, frags...)
		}
		return out, nil
	}
	return nil, nil
}

func (c *HTMLConverter) headline(n *orgtree.Node) (*Element, error) {
	container := NewElement("div")
	container.AddClass(fmt.Sprintf("org-header-container org-header-level-%d", n.Level()))
	if id := n.OutlineID(); id != "" {
		container.SetAttr("id", id)
	}

	hLevel := n.Level() + 1
	if hLevel > 6 {
		hLevel = 6
	}
	header := c.makeElement(n, fmt.Sprintf("h%d", hLevel))
	header.Inline = true
	container.Append(header)

	if todoType := n.TodoType(); todoType != "" {
		kw := n.TodoKeyword()
		container.AddClass("org-has-todo")
		container.AddClass("org-todo-" + todoType)
		container.AddClass("org-todo-kw-" + kw)

		kwElem := NewElement("span", "org-todo org-todo-"+todoType)
		kwElem.PostWS = true
		kwElem.AppendText(kw)
		header.Append(kwElem)

		if p, ok := n.Priority(); ok {
			pe := NewElement("span", fmt.Sprintf("org-todo-priority org-todo-priority-%c", p))
			pe.PostWS = true
			pe.AppendText(string(p))
			header.Append(pe)
		}
	}

	text := NewElement("span", "org-header-text")
	titleFrags, err := c.valueFragments(n.Property("title"))
	if err != nil {
		return nil, err
	}
	text.Append(titleFrags...)
	header.Append(text)

	if tags := n.Tags(); len(tags) > 0 {
		tagsElem := NewElement("span", "org-tags")
		for _, tag := range tags {
			te := NewElement("span", "org-tag")
			te.PostWS = true
			te.AppendText(tag)
			tagsElem.Append(te)
		}
		header.Append(tagsElem)
	}

	kids, err := c.childFragments(n.Contents())
	if err != nil {
		return nil, err
	}
	container.Append(kids...)
	return container, nil
}

func (c *HTMLConverter) plainList(n *orgtree.Node) ([]Fragment, error) {
	switch n.StringProperty("type") {
	case "descriptive":
		return c.descriptiveList(n)
	case "ordered":
		return c.plainListItems(n, "ol")
	default:
		return c.plainListItems(n, "ul")
	}
}

func (c *HTMLConverter) plainListItems(n *orgtree.Node, tag string) ([]Fragment, error) {
	e := c.makeElement(n, tag)
	for _, item := range n.Children() {
		if item.Type().Name != "item" {
			continue
		}
		li, err := c.listItem(item)
		if err != nil {
			return nil, err
		}
		e.Append(li)
	}
	return []Fragment{e}, nil
}

func (c *HTMLConverter) listItem(item *orgtree.Node) (*Element, error) {
	li := c.makeElement(item, "li")
	if cb := item.StringProperty("checkbox"); cb != "" {
		li.AddClass("org-checkbox org-checkbox-" + cb)
	}

	// A leading paragraph's contents are inlined; a p tag directly
	// inside li renders with unwanted margins.
	contents := item.Contents()
	if len(contents) > 0 {
		if first, ok := contents[0].(*orgtree.Node); ok && first.Type().Name == "paragraph" {
			merged := make([]orgtree.Content, 0, len(first.Contents())+len(contents)-1)
			merged = append(merged, first.Contents()...)
			merged = append(merged, contents[1:]...)
			contents = merged
		}
	}

	kids, err := c.childFragments(contents)
	if err != nil {
		return nil, err
	}
	li.Append(kids...)
	return li, nil
}

func (c *HTMLConverter) descriptiveList(n *orgtree.Node) ([]Fragment, error) {
	dl := c.makeElement(n, "dl")
	for _, item := range n.Children() {
		if item.Type().Name != "item" {
			continue
		}

		dt := NewElement("dt")
		tagFrags, err := c.valueFragments(item.Property("tag"))
		if err != nil {
			return nil, err
		}
		dt.Append(tagFrags...)
		dl.Append(dt)

		dd := c.makeElement(item, "dd")
		kids, err := c.childFragments(item.Contents())
		if err != nil {
			return nil, err
		}
		dd.Append(kids...)
		dl.Append(dd)
	}
	return []Fragment{dl}, nil
}

func (c *HTMLConverter) link(n *orgtree.Node) ([]Fragment, error) {
	linktype := n.StringProperty("type")
	raw := n.StringProperty("raw-link")
	path := n.StringProperty("path")

	url, ok := c.resolve(linktype, raw, path)
	if ok && linktype == "file" && len(n.Contents()) == 0 && c.isImage(path) {
		img := c.makeElement(n, "img")
		img.AddClass("org-img-link")
		img.SetAttr("src", url)
		img.SetAttr("title", path)
		return []Fragment{img}, nil
	}

	e := c.makeElement(n, "a")
	e.AddClass("org-linktype-" + linktype)
	if len(n.Contents()) > 0 {
		kids, err := c.childFragments(n.Contents())
		if err != nil {
			return nil, err
		}
		e.Append(kids...)
	} else {
		e.AppendText(raw)
		e.AddClass("org-link-raw")
	}

	if ok {
		e.SetAttr("href", url)
	} else {
		e.AddClass("org-error")
		e.SetAttr("title", fmt.Sprintf("cannot resolve link %q", raw))
	}
	return []Fragment{e}, nil
}

func (c *HTMLConverter) resolve(linktype, raw, path string) (string, bool) {
	if r, ok := c.ResolveLink[linktype]; ok && r != nil {
		return r(linktype, raw, path)
	}
	switch linktype {
	case "http", "https":
		return raw, true
	}
	return "", false
}

func (c *HTMLConverter) isImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range c.ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

var latexDelims = regexp.MustCompile(`(?s)^(\$\$?|\\[[(])(.*?)(\$\$?|\\[\])])$`)

func (c *HTMLConverter) latexFragment(n *orgtree.Node) ([]Fragment, error) {
	value := n.StringProperty("value")
	latex := value
	inline := true
	if m := latexDelims.FindStringSubmatch(value); m != nil {
		latex = m[2]
		inline = m[1] == "$" || m[1] == `\(`
	}

	d := c.LatexDelims
	if inline {
		d = c.LatexInlineDelims
	}
	return []Fragment{Text{Value: d[0] + latex + d[1], PostWS: postBlank(n)}}, nil
}

func (c *HTMLConverter) srcBlock(n *orgtree.Node) ([]Fragment, error) {
	export := srcExport(n)
	exportCode := export == "code" || export == "both"
	exportResults := export == "results" || export == "both"
	if !exportCode && !exportResults {
		return nil, nil
	}

	e := c.makeElement(n, "div")
	e.Inline = false
	if exportCode {
		pre := NewElement("pre", "org-src-block-value")
		pre.Inline = true
		pre.AppendText(n.StringProperty("value"))
		e.Append(pre)
	}
	if exportResults {
		kids, err := c.childFragments(n.Contents())
		if err != nil {
			return nil, err
		}
		e.Append(kids...)
	}
	return []Fragment{e}, nil
}

// srcExport reads the block's export directive. The parameters property
// arrives either as a header-argument string or a pre-split mapping.
func srcExport(n *orgtree.Node) string {
	switch params := n.Property("parameters").(type) {
	case string:
		fields := strings.Fields(params)
		for i, f := range fields {
			if f == ":exports" && i+1 < len(fields) {
				return fields[i+1]
			}
		}
	case map[string]any:
		for _, key := range []string{"export", "exports"} {
			if v, ok := params[key].(string); ok {
				return v
			}
		}
	}
	return "both"
}

func (c *HTMLConverter) table(n *orgtree.Node) ([]Fragment, error) {
	// Rows group into blocks separated by rule rows; the first block
	// becomes the header when more than one exists.
	blocks := [][]*orgtree.Node{nil}
	for _, row := range n.Children() {
		if row.Type().Name != "table-row" {
			continue
		}
		if row.StringProperty("type") == "rule" {
			blocks = append(blocks, nil)
			continue
		}
		blocks[len(blocks)-1] = append(blocks[len(blocks)-1], row)
	}

	table := c.makeElement(n, "table")
	for i, block := range blocks {
		isHead := i == 0 && len(blocks) > 1
		sectionTag, cellTag := "tbody", "td"
		if isHead {
			sectionTag, cellTag = "thead", "th"
		}
		blockElem := NewElement(sectionTag)
		table.Append(blockElem)

		for _, row := range block {
			tr := NewElement("tr")
			blockElem.Append(tr)
			for _, cell := range row.Children() {
				if cell.Type().Name != "table-cell" {
					continue
				}
				cellElem := NewElement(cellTag)
				tr.Append(cellElem)
				kids, err := c.childFragments(cell.Contents())
				if err != nil {
					return nil, err
				}
				cellElem.Append(kids...)
			}
		}
	}
	return []Fragment{table}, nil
}

func (c *HTMLConverter) timestampText(n *orgtree.Node) string {
	year, okY := n.IntProperty("year-start")
	month, okM := n.IntProperty("month-start")
	day, okD := n.IntProperty("day-start")
	if !okY || !okM || !okD {
		return n.StringProperty("raw-value")
	}
	ts := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return ts.Format(c.DateFormat)
}

func (c *HTMLConverter) planning(n *orgtree.Node) ([]Fragment, error) {
	e := c.makeElement(n, "table")
	for _, key := range []string{"closed", "scheduled", "deadline"} {
		ts, ok := n.Property(key).(*orgtree.Node)
		if !ok {
			continue
		}
		row := NewElement("tr")
		th := NewElement("th")
		th.AppendText(strings.ToUpper(key[:1]) + key[1:])
		row.Append(th)

		td := NewElement("td")
		frags, err := c.fragments(ts)
		if err != nil {
			return nil, err
		}
		td.Append(frags...)
		row.Append(td)

		e.Append(row)
	}
	return []Fragment{e}, nil
}
