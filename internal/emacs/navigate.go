package emacs

import (
	"context"
	"errors"
	"strings"

	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// Navigator moves point to a headline in the live editing surface.
type Navigator struct {
	Client *Client
	// Focus raises the Emacs frame after opening the file.
	Focus bool
}

// Locate opens the target's file and moves point to the first
// identifier that resolves, trying in fixed order: identity ID,
// CUSTOM_ID, buffer position, exact title text. A target nothing
// matches reports (false, nil); not found is an expected outcome.
func (n *Navigator) Locate(ctx context.Context, t orgtree.Target) (bool, error) {
	if t.File == "" {
		return false, errors.New("navigation target needs a file")
	}
	form, ok := locateForm(t, n.Focus)
	if !ok {
		return false, nil
	}
	out, err := n.Client.Eval(ctx, form)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "t", nil
}

// locateForm builds the elisp for a navigation attempt. It reports
// false when the target carries no usable identifier.
func locateForm(t orgtree.Target, focus bool) (Sexp, bool) {
	var clauses []Sexp
	if t.ID != "" {
		clauses = append(clauses, Call("org-find-entry-with-id", Str(t.ID)))
	}
	if t.CustomID != "" {
		clauses = append(clauses, Call("org-find-property", Str("CUSTOM_ID"), Str(t.CustomID)))
	}
	if t.Position > 0 {
		// A stale position must not drop point into arbitrary text, so
		// it only counts when it still sits on a headline.
		clauses = append(clauses, Call("and",
			Call("<=", Int(t.Position), Call("point-max")),
			Call("save-excursion", Call("goto-char", Int(t.Position)), Call("org-at-heading-p")),
			Int(t.Position),
		))
	}
	if t.Text != "" {
		clauses = append(clauses, Call("org-find-exact-headline-in-buffer", Str(t.Text)))
	}
	if len(clauses) == 0 {
		return nil, false
	}

	body := []Sexp{Call("find-file", Str(t.File))}
	if focus {
		body = append(body, Call("x-focus-frame", Sym("nil")))
	}
	body = append(body, Call("let",
		List{List{Sym("pos"), Call("or", clauses...)}},
		Call("if", Sym("pos"),
			Call("progn", Call("goto-char", Sym("pos")), Call("org-reveal"), Sym("t")),
			Sym("nil"),
		),
	))
	return Progn(body...), true
}
