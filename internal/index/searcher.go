package index

import (
	"context"
	"fmt"

	"github.com/dgallion1/orgbridge/internal/orgtree"
	"github.com/dgallion1/orgbridge/internal/query"
)

// Searcher adapts the index to the query engine for loaded documents.
// Index rows only narrow the candidates; every resolved node is
// confirmed against the compiled predicate, so regexp and property
// filters keep full fidelity even when rows are stale.
type Searcher struct {
	Index *Index
}

func (s *Searcher) Search(ctx context.Context, docs []*orgtree.Document, q query.Query) ([]query.Match, error) {
	if q.Raw != "" {
		return nil, fmt.Errorf("raw selector %q requires an editor-backed searcher", q.Raw)
	}
	pred, err := q.Predicate()
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.Path == "" {
			return nil, fmt.Errorf("document without a file path cannot be searched through the index")
		}
		paths = append(paths, doc.Path)
	}

	rows, err := s.Index.Find(FindOptions{
		Files:        paths,
		Tags:         q.Tags,
		TodoKeywords: q.Keywords,
		TodoNotDone:  q.TodoNotDone,
		MinLevel:     q.MinLevel,
		MaxLevel:     q.MaxLevel,
		Archived:     true,
	})
	if err != nil {
		return nil, err
	}

	rowsByPath := make(map[string][]Row)
	for _, r := range rows {
		rowsByPath[r.Path] = append(rowsByPath[r.Path], r)
	}

	var out []query.Match
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		docRows := rowsByPath[doc.Path]
		if len(docRows) == 0 {
			continue
		}
		byBegin := beginMap(doc)
		for _, r := range docRows {
			node := resolveRow(doc, byBegin, r)
			if node == nil {
				// A row the tree no longer backs; the index lags the export.
				continue
			}
			if pred(node) {
				out = append(out, query.Match{Doc: doc, Node: node})
			}
		}
	}
	return out, nil
}

func beginMap(doc *orgtree.Document) map[int]*orgtree.Node {
	m := make(map[int]*orgtree.Node)
	for _, h := range doc.Headlines() {
		if begin, ok := h.Begin(); ok {
			m[begin] = h
		}
	}
	return m
}

func resolveRow(doc *orgtree.Document, byBegin map[int]*orgtree.Node, r Row) *orgtree.Node {
	if r.Ref != "" {
		if n := doc.NodeByRef(r.Ref); n != nil {
			return n
		}
	}
	if n := byBegin[r.Begin]; n != nil && n.Title() == r.Title {
		return n
	}
	return nil
}
