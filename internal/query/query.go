package query

import (
	"fmt"
	"regexp"

	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// Query is the predicate form evaluated per headline. The zero value
// matches every headline. Structured fields compose with AND; list
// fields match when any listed value applies.
type Query struct {
	// Raw is a selector in the editor's query language, passed through
	// verbatim to editor-backed searchers. Searchers that evaluate
	// queries locally reject raw selectors instead of guessing.
	Raw string

	// TodoNotDone matches headlines in an unfinished todo state.
	TodoNotDone bool

	// Keywords matches headlines carrying any of the given todo keywords.
	Keywords []string

	// Tags matches headlines carrying at least one of the given tags.
	Tags []string

	// TitlePattern is a regular expression applied to the raw title.
	TitlePattern string

	// MinLevel and MaxLevel bound the outline depth. Zero means
	// unbounded.
	MinLevel int
	MaxLevel int

	// Properties requires string equality on each named node property.
	Properties map[string]string
}

// Structured reports whether any structured predicate field is set.
func (q Query) Structured() bool {
	return q.TodoNotDone || len(q.Keywords) > 0 || len(q.Tags) > 0 ||
		q.TitlePattern != "" || q.MinLevel > 0 || q.MaxLevel > 0 ||
		len(q.Properties) > 0
}

// Predicate compiles the structured form into a headline predicate.
func (q Query) Predicate() (func(*orgtree.Node) bool, error) {
	var title *regexp.Regexp
	if q.TitlePattern != "" {
		re, err := regexp.Compile(q.TitlePattern)
		if err != nil {
			return nil, fmt.Errorf("title pattern: %w", err)
		}
		title = re
	}
	keywords := toSet(q.Keywords)
	tags := toSet(q.Tags)

	return func(n *orgtree.Node) bool {
		if q.TodoNotDone && n.TodoType() != "todo" {
			return false
		}
		if len(keywords) > 0 {
			if _, ok := keywords[n.TodoKeyword()]; !ok {
				return false
			}
		}
		if len(tags) > 0 && !anyIn(n.Tags(), tags) {
			return false
		}
		if title != nil && !title.MatchString(n.Title()) {
			return false
		}
		if q.MinLevel > 0 && n.Level() < q.MinLevel {
			return false
		}
		if q.MaxLevel > 0 && n.Level() > q.MaxLevel {
			return false
		}
		for k, v := range q.Properties {
			if n.StringProperty(k) != v {
				return false
			}
		}
		return true
	}, nil
}

func toSet(vals []string) map[string]struct{} {
	if len(vals) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	return set
}

func anyIn(vals []string, set map[string]struct{}) bool {
	for _, v := range vals {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
