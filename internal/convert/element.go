package convert

import (
	"html"
	"sort"
	"strings"
)

// Fragment is one renderable piece of HTML output: an escaped text run
// or an element.
type Fragment interface {
	isFragment()
}

// Text is a text run, escaped at render time. PostWS appends a space
// after the run when the enclosing context renders inline.
type Text struct {
	Value  string
	PostWS bool
}

func (Text) isFragment() {}

// Element is a lightweight HTML element. Block elements render each
// child indented on its own line; inline elements render children on
// one line, separated only where a child asks for trailing whitespace.
type Element struct {
	Tag      string
	Attrs    map[string]string
	Children []Fragment
	Inline   bool
	PostWS   bool
}

func (*Element) isFragment() {}

func NewElement(tag string, classes ...string) *Element {
	e := &Element{Tag: tag, Attrs: map[string]string{}}
	for _, c := range classes {
		e.AddClass(c)
	}
	return e
}

// Classes returns the class attribute split into names.
func (e *Element) Classes() []string {
	s := strings.TrimSpace(e.Attrs["class"])
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

// AddClass appends the space-separated class names not already present.
func (e *Element) AddClass(classes string) {
	current := e.Classes()
	for _, c := range strings.Fields(classes) {
		found := false
		for _, have := range current {
			if have == c {
				found = true
				break
			}
		}
		if !found {
			current = append(current, c)
		}
	}
	e.SetAttr("class", strings.Join(current, " "))
}

func (e *Element) SetAttr(key, value string) {
	if e.Attrs == nil {
		e.Attrs = map[string]string{}
	}
	e.Attrs[key] = value
}

func (e *Element) Append(frags ...Fragment) {
	e.Children = append(e.Children, frags...)
}

func (e *Element) AppendText(s string) {
	e.Append(Text{Value: s})
}

func (e *Element) String() string {
	return RenderFragments([]Fragment{e}, "\t")
}

// Void elements close in the opening tag and never take children.
var voidTags = map[string]bool{
	"br":  true,
	"hr":  true,
	"img": true,
}

// RenderFragments renders a fragment sequence in block context,
// separating top-level fragments with newlines.
func RenderFragments(frags []Fragment, indent string) string {
	var b strings.Builder
	for i, f := range frags {
		if i > 0 {
			b.WriteString("\n")
		}
		writeFragment(&b, f, indent, 0, false)
	}
	return b.String()
}

func writeFragment(b *strings.Builder, f Fragment, indent string, depth int, inline bool) bool {
	switch frag := f.(type) {
	case Text:
		b.WriteString(html.EscapeString(frag.Value))
		return frag.PostWS
	case *Element:
		writeElement(b, frag, indent, depth, inline)
		return frag.PostWS
	}
	return false
}

func writeElement(b *strings.Builder, e *Element, indent string, depth int, inline bool) {
	inline = inline || e.Inline

	b.WriteString("<")
	b.WriteString(e.Tag)
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(html.EscapeString(k))
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(e.Attrs[k]))
		b.WriteString(`"`)
	}
	if voidTags[e.Tag] && len(e.Children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteString(">")

	for _, child := range e.Children {
		if !inline {
			b.WriteString("\n")
			b.WriteString(strings.Repeat(indent, depth+1))
		}
		postWS := writeFragment(b, child, indent, depth+1, inline)
		if inline && postWS {
			b.WriteString(" ")
		}
	}

	if len(e.Children) > 0 && !inline {
		b.WriteString("\n")
		b.WriteString(strings.Repeat(indent, depth))
	}
	b.WriteString("</")
	b.WriteString(e.Tag)
	b.WriteString(">")
}
