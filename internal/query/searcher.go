package query

import (
	"context"
	"fmt"

	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// Match pairs a matched headline with the document that owns it.
type Match struct {
	Doc  *orgtree.Document
	Node *orgtree.Node
}

// Searcher finds headline nodes matching a query. The matching strategy
// is a collaborator concern; Select only consumes the ordered matches.
type Searcher interface {
	Search(ctx context.Context, docs []*orgtree.Document, q Query) ([]Match, error)
}

// TreeSearcher evaluates structured queries by walking resident trees.
// Matches come out in document order, then outline pre-order within
// each document.
type TreeSearcher struct{}

func (TreeSearcher) Search(ctx context.Context, docs []*orgtree.Document, q Query) ([]Match, error) {
	if q.Raw != "" {
		return nil, fmt.Errorf("raw selector %q requires an editor-backed searcher", q.Raw)
	}
	pred, err := q.Predicate()
	if err != nil {
		return nil, err
	}

	var out []Match
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, h := range doc.Headlines() {
			if pred(h) {
				out = append(out, Match{Doc: doc, Node: h})
			}
		}
	}
	return out, nil
}
