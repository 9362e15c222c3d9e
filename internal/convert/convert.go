// Package convert renders document trees to plain text, HTML and JSON.
// Converters are stateless between calls; each conversion is one
// depth-first pass carrying its own context, so concurrent conversions
// of a shared tree do not interfere.
package convert

import (
	"errors"
	"fmt"
)

// ErrUnsupportedNode marks a node type a converter has no handler for
// under the strict policy.
var ErrUnsupportedNode = errors.New("unsupported node type")

// Policy decides what happens when a converter meets a node type it has
// no mapping for.
type Policy int

const (
	// Lenient renders the node's converted children with no wrapper.
	Lenient Policy = iota
	// Strict fails the conversion with an UnsupportedNodeError.
	Strict
)

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

// ParsePolicy reads a policy name as used in configuration and CLI flags.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "strict":
		return Strict, nil
	case "lenient", "":
		return Lenient, nil
	}
	return Lenient, fmt.Errorf("unknown conversion policy %q", s)
}

// UnsupportedNodeError reports a node type the converter has no handler
// for under the strict policy.
type UnsupportedNodeError struct {
	Type   string
	Target string
}

func (e *UnsupportedNodeError) Error() string {
	return fmt.Sprintf("no %s conversion for %s nodes", e.Target, e.Type)
}

func (e *UnsupportedNodeError) Unwrap() error { return ErrUnsupportedNode }
