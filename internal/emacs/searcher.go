package emacs

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dgallion1/orgbridge/internal/codec"
	"github.com/dgallion1/orgbridge/internal/orgtree"
	"github.com/dgallion1/orgbridge/internal/query"
)

// QLSearcher evaluates queries through the editor's org-ql engine
// instead of walking resident trees. It understands raw selectors,
// which the in-process searcher rejects.
type QLSearcher struct {
	Client   *Client
	Registry *orgtree.Registry
}

func (s *QLSearcher) Search(ctx context.Context, docs []*orgtree.Document, q query.Query) ([]query.Match, error) {
	files := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.Path == "" {
			return nil, fmt.Errorf("document without a file path cannot be searched through the editor")
		}
		files = append(files, doc.Path)
	}

	form, err := qlForm(q)
	if err != nil {
		return nil, err
	}
	out, err := s.Client.QLSelect(ctx, files, form)
	if err != nil {
		return nil, err
	}

	nodes, err := codec.DecodeNodes(s.Registry, strings.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode selection: %w", err)
	}

	matches := make([]query.Match, 0, len(nodes))
	for _, n := range nodes {
		doc, resident := resolveResident(docs, n)
		if resident == nil {
			return nil, fmt.Errorf("selection returned headline %q not present in the loaded documents; re-export and retry", n.Title())
		}
		matches = append(matches, query.Match{Doc: doc, Node: resident})
	}
	return matches, nil
}

// resolveResident maps a freshly decoded headline back onto the loaded
// trees, by ref first and buffer position second. Results must point at
// resident nodes or ancestor linking cannot work.
func resolveResident(docs []*orgtree.Document, n *orgtree.Node) (*orgtree.Document, *orgtree.Node) {
	if ref := n.Ref(); ref != "" {
		for _, doc := range docs {
			if found := doc.NodeByRef(ref); found != nil {
				return doc, found
			}
		}
	}
	begin, ok := n.Begin()
	if !ok {
		return nil, nil
	}
	for _, doc := range docs {
		h := doc.NodeAt(begin)
		for h != nil {
			hBegin, _ := h.Begin()
			if hBegin == begin && h.StringProperty("raw-value") == n.StringProperty("raw-value") {
				return doc, h
			}
			// NodeAt returns the deepest cover; the match may be a
			// shallower ancestor starting at the same offset.
			h = parentAt(doc, h, begin)
		}
	}
	return nil, nil
}

func parentAt(doc *orgtree.Document, h *orgtree.Node, begin int) *orgtree.Node {
	var parent *orgtree.Node
	var descend func(n *orgtree.Node)
	descend = func(n *orgtree.Node) {
		for _, sub := range n.Subheadings() {
			if sub == h {
				if n != doc.Root {
					parent = n
				}
				return
			}
			descend(sub)
		}
	}
	descend(doc.Root)
	if parent == nil {
		return nil
	}
	if pBegin, ok := parent.Begin(); ok && pBegin == begin {
		return parent
	}
	return nil
}

// qlForm translates a query into a quoted org-ql selector. Raw
// selectors pass through verbatim; structured fields combine under and.
func qlForm(q query.Query) (Sexp, error) {
	if q.Raw != "" {
		raw := strings.TrimSpace(q.Raw)
		if !strings.HasPrefix(raw, "(") || !strings.HasSuffix(raw, ")") {
			return nil, fmt.Errorf("raw selector must be a parenthesized form, got %q", q.Raw)
		}
		return Quote{Raw(raw)}, nil
	}

	var terms []Sexp
	if q.TodoNotDone {
		terms = append(terms, Call("and", Call("todo"), Call("not", Call("done"))))
	}
	if len(q.Keywords) > 0 {
		args := make([]Sexp, len(q.Keywords))
		for i, kw := range q.Keywords {
			args[i] = Str(kw)
		}
		terms = append(terms, Call("todo", args...))
	}
	if len(q.Tags) > 0 {
		args := make([]Sexp, len(q.Tags))
		for i, tag := range q.Tags {
			args[i] = Str(tag)
		}
		terms = append(terms, Call("tags", args...))
	}
	if q.TitlePattern != "" {
		terms = append(terms, Call("heading-regexp", Str(q.TitlePattern)))
	}
	switch {
	case q.MinLevel > 0 && q.MaxLevel > 0:
		terms = append(terms, Call("level", Int(q.MinLevel), Int(q.MaxLevel)))
	case q.MinLevel > 0:
		terms = append(terms, Call("level", Sym(">="), Int(q.MinLevel)))
	case q.MaxLevel > 0:
		terms = append(terms, Call("level", Sym("<="), Int(q.MaxLevel)))
	}
	for _, key := range sortedKeys(q.Properties) {
		terms = append(terms, Call("property", Str(key), Str(q.Properties[key])))
	}

	if len(terms) == 0 {
		// An empty query selects every headline.
		return Quote{Call("level", Sym(">="), Int(1))}, nil
	}
	if len(terms) == 1 {
		return Quote{terms[0]}, nil
	}
	return Quote{Call("and", terms...)}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
