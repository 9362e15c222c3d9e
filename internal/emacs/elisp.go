// Package emacs talks to a running Emacs to export org files, run
// org-ql selections and move point to headlines. The tree model stays
// editor-agnostic; everything process-shaped lives here.
package emacs

import (
	"strconv"
	"strings"
)

// Sexp is an Emacs Lisp form. The concrete kinds are Sym, Str, Int,
// Raw, List and Quote; the unexported method keeps the set closed.
type Sexp interface {
	writeTo(b *strings.Builder)
}

// Sym is an elisp symbol.
type Sym string

// Str is a string literal, escaped on render.
type Str string

// Int is an integer literal.
type Int int

// Raw is verbatim elisp pasted into the output unchanged.
type Raw string

// List renders as a parenthesized form.
type List []Sexp

// Quote renders as 'form.
type Quote struct {
	Form Sexp
}

var strEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func (s Sym) writeTo(b *strings.Builder) { b.WriteString(string(s)) }

func (s Str) writeTo(b *strings.Builder) {
	b.WriteByte('"')
	b.WriteString(strEscaper.Replace(string(s)))
	b.WriteByte('"')
}

func (i Int) writeTo(b *strings.Builder) { b.WriteString(strconv.Itoa(int(i))) }

func (r Raw) writeTo(b *strings.Builder) { b.WriteString(string(r)) }

func (l List) writeTo(b *strings.Builder) {
	b.WriteByte('(')
	for i, item := range l {
		if i > 0 {
			b.WriteByte(' ')
		}
		item.writeTo(b)
	}
	b.WriteByte(')')
}

func (q Quote) writeTo(b *strings.Builder) {
	b.WriteByte('\'')
	q.Form.writeTo(b)
}

// Render prints a form as elisp source.
func Render(form Sexp) string {
	var b strings.Builder
	form.writeTo(&b)
	return b.String()
}

// Call builds a function call form.
func Call(name string, args ...Sexp) List {
	l := make(List, 0, len(args)+1)
	l = append(l, Sym(name))
	return append(l, args...)
}

// Progn wraps forms in a progn when there is more than one.
func Progn(forms ...Sexp) Sexp {
	if len(forms) == 1 {
		return forms[0]
	}
	return Call("progn", forms...)
}

// Strings builds a list of string literals.
func Strings(values []string) List {
	l := make(List, len(values))
	for i, v := range values {
		l[i] = Str(v)
	}
	return l
}
