package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dgallion1/orgbridge/internal/codec"
	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// Option configures a Select run.
type Option func(*options)

type options struct {
	workers int
}

// WithWorkers materializes documents concurrently, at most n at a time.
// Each document builds a private table merged under a single writer, so
// the de-duplication invariant holds regardless of scheduling.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// Result is a materialized query result: match indices in search order
// (duplicates allowed) plus the de-duplicated node table.
type Result struct {
	Results []int
	Table   []codec.TableEntry

	session *codec.EncodeSession
}

// Record returns the wire form of the result.
func (r *Result) Record() map[string]any {
	return codec.EncodeQueryResult(r.session, r.Results)
}

func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Record())
}

// Entry returns the table entry a result index points at.
func (r *Result) Entry(i int) (codec.TableEntry, error) {
	if i < 0 || i >= len(r.Table) {
		return codec.TableEntry{}, fmt.Errorf("%w: %d of %d", orgtree.ErrIndexOutOfRange, i, len(r.Table))
	}
	return r.Table[i], nil
}

// Select runs the searcher over the documents and materializes its
// matches. Each matched headline is keyed by (file path, node identity)
// and emitted into the shared table exactly once; parents are resolved
// recursively before their children, so every ancestor chain terminates
// at a synthetic per-file root entry.
func Select(ctx context.Context, docs []*orgtree.Document, searcher Searcher, q Query, opts ...Option) (*Result, error) {
	o := options{workers: 1}
	for _, opt := range opts {
		opt(&o)
	}

	matches, err := searcher.Search(ctx, docs, q)
	if err != nil {
		return nil, err
	}

	if o.workers <= 1 || len(docs) < 2 {
		return materializeAll(matches)
	}
	return selectParallel(ctx, docs, matches, o.workers)
}

// session holds the working state of one materialization pass: the
// key→index map, the encode session backing the shared table, and the
// lazily computed per-document outline info.
type session struct {
	enc     *codec.EncodeSession
	keys    map[string]int
	entries []codec.TableEntry
	info    map[*orgtree.Document]*docInfo
}

type docInfo struct {
	parents map[*orgtree.Node]*orgtree.Node
	paths   map[*orgtree.Node]string
}

func newSession() *session {
	return &session{
		enc:  codec.NewEncodeSession(),
		keys: make(map[string]int),
		info: make(map[*orgtree.Document]*docInfo),
	}
}

func (s *session) docInfo(doc *orgtree.Document) *docInfo {
	if in, ok := s.info[doc]; ok {
		return in
	}
	in := &docInfo{
		parents: make(map[*orgtree.Node]*orgtree.Node),
		paths:   make(map[*orgtree.Node]string),
	}
	var descend func(h, parent *orgtree.Node, path string)
	descend = func(h, parent *orgtree.Node, path string) {
		in.parents[h] = parent
		in.paths[h] = path
		for i, sub := range h.Subheadings() {
			descend(sub, h, path+"."+strconv.Itoa(i))
		}
	}
	if doc.Root != nil {
		for i, h := range doc.Root.Subheadings() {
			descend(h, nil, strconv.Itoa(i))
		}
	}
	s.info[doc] = in
	return in
}

// key computes the stable identity of a headline within its file: the
// ref when assigned, otherwise the buffer position, otherwise the
// outline index path.
func (s *session) key(doc *orgtree.Document, n *orgtree.Node) string {
	id := n.Ref()
	if id == "" {
		if begin, ok := n.Begin(); ok {
			id = "pos:" + strconv.Itoa(begin)
		} else if p, ok := s.docInfo(doc).paths[n]; ok {
			id = "path:" + p
		}
	}
	return doc.Path + "\x00" + id
}

func (s *session) materialize(doc *orgtree.Document, n *orgtree.Node) (int, error) {
	if n.Type().Name != orgtree.HeadlineType {
		return 0, fmt.Errorf("cannot materialize %s node: results carry headlines only", n.Type().Name)
	}
	info := s.docInfo(doc)
	parent, known := info.parents[n]
	if !known {
		return 0, fmt.Errorf("headline %q is not part of %s", n.Title(), doc.Path)
	}

	key := s.key(doc, n)
	if i, ok := s.keys[key]; ok {
		return i, nil
	}

	var parentIdx int
	if parent == nil {
		parentIdx = s.addFile(doc.Path)
	} else {
		i, err := s.materialize(doc, parent)
		if err != nil {
			return 0, err
		}
		parentIdx = i
	}

	idx := s.addHeadline(n, parentIdx)
	s.keys[key] = idx
	return idx, nil
}

func (s *session) addFile(path string) int {
	before := len(s.enc.Table())
	i := s.enc.AddFile(path)
	if len(s.enc.Table()) > before {
		s.entries = append(s.entries, codec.TableEntry{Kind: codec.FileKind, Path: path, ParentIndex: -1})
	}
	return i
}

func (s *session) addHeadline(n *orgtree.Node, parentIdx int) int {
	before := len(s.enc.Table())
	i := s.enc.AddHeadline(n, map[string]any{codec.ParentIndexProp: parentIdx})
	if len(s.enc.Table()) > before {
		s.entries = append(s.entries, codec.TableEntry{
			Kind:        n.Type().Name,
			ParentIndex: parentIdx,
			Node:        n,
		})
	}
	return i
}

func materializeAll(matches []Match) (*Result, error) {
	s := newSession()
	results := make([]int, 0, len(matches))
	for _, m := range matches {
		idx, err := s.materialize(m.Doc, m.Node)
		if err != nil {
			return nil, err
		}
		results = append(results, idx)
	}
	return &Result{Results: results, Table: s.entries, session: s.enc}, nil
}

// selectParallel partitions matches by document, materializes each
// document's share with bounded concurrency, then concatenates the
// private tables in document order, re-indexing parent references and
// match positions.
func selectParallel(ctx context.Context, docs []*orgtree.Document, matches []Match, workers int) (*Result, error) {
	type group struct {
		doc       *orgtree.Document
		matches   []Match
		positions []int
	}
	byDoc := make(map[*orgtree.Document]*group, len(docs))
	groups := make([]*group, 0, len(docs))
	for _, doc := range docs {
		g := &group{doc: doc}
		byDoc[doc] = g
		groups = append(groups, g)
	}
	for pos, m := range matches {
		g, ok := byDoc[m.Doc]
		if !ok {
			return nil, fmt.Errorf("match outside the selected documents")
		}
		g.matches = append(g.matches, m)
		g.positions = append(g.positions, pos)
	}

	type groupResult struct {
		idx     int
		partial *Result
		err     error
	}
	results := make(chan groupResult, len(groups))
	sem := make(chan struct{}, workers)

	for i, g := range groups {
		sem <- struct{}{}
		go func(i int, g *group) {
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				results <- groupResult{idx: i, err: err}
				return
			}
			partial, err := materializeAll(g.matches)
			results <- groupResult{idx: i, partial: partial, err: err}
		}(i, g)
	}

	partials := make([]*Result, len(groups))
	var firstErr error
	for range groups {
		r := <-results
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		partials[r.idx] = r.partial
	}
	if firstErr != nil {
		return nil, firstErr
	}

	// Single-writer merge. Partial tables list parents before children,
	// so re-indexing resolves against already remapped entries.
	merged := newSession()
	out := make([]int, len(matches))
	for gi, g := range groups {
		p := partials[gi]
		remap := make([]int, len(p.Table))
		for oldIdx, e := range p.Table {
			if e.Kind == codec.FileKind {
				remap[oldIdx] = merged.addFile(e.Path)
				continue
			}
			key := merged.key(g.doc, e.Node)
			if i, ok := merged.keys[key]; ok {
				remap[oldIdx] = i
				continue
			}
			ni := merged.addHeadline(e.Node, remap[e.ParentIndex])
			merged.keys[key] = ni
			remap[oldIdx] = ni
		}
		for j, localIdx := range p.Results {
			out[g.positions[j]] = remap[localIdx]
		}
	}
	return &Result{Results: out, Table: merged.entries, session: merged.enc}, nil
}
