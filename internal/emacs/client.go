package emacs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Client runs elisp through an external Emacs process. Cmd is the base
// command line, typically ["emacsclient"] against a running server or
// ["emacs" "--batch" "-l" "init.el"] for one-shot use.
type Client struct {
	Cmd []string
}

// NewClient builds a client from a base command line. An empty command
// defaults to emacsclient.
func NewClient(cmd []string) *Client {
	if len(cmd) == 0 {
		cmd = []string{"emacsclient"}
	}
	return &Client{Cmd: cmd}
}

// Eval evaluates a form and returns Emacs's stdout. Stderr is folded
// into the error on failure.
func (c *Client) Eval(ctx context.Context, form Sexp) (string, error) {
	if len(c.Cmd) == 0 {
		return "", errors.New("emacs command not configured")
	}
	args := append(append([]string{}, c.Cmd[1:]...), "-eval", Render(form))
	cmd := exec.CommandContext(ctx, c.Cmd[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("emacs eval: %w: %s", err, msg)
		}
		return "", fmt.Errorf("emacs eval: %w", err)
	}
	return stdout.String(), nil
}

// ExportFile has Emacs export an org file to its structured record form
// at dest. Both paths must be absolute; Emacs resolves paths against
// its own working directory, not ours.
func (c *Client) ExportFile(ctx context.Context, src, dest string) error {
	if !filepath.IsAbs(src) || !filepath.IsAbs(dest) {
		return errors.New("export paths must be absolute")
	}
	if _, err := os.Stat(src); err != nil {
		return err
	}
	form := Progn(
		Call("require", Quote{Sym("ox-json")}),
		Call("with-current-buffer",
			Call("find-file-noselect", Str(src)),
			Call("org-export-to-file", Quote{Sym("json")}, Str(dest)),
		),
	)
	_, err := c.Eval(ctx, form)
	return err
}

// QLSelect runs an org-ql selection over the given files and returns
// the raw JSON array of headline records. An empty file list falls back
// to the editor's configured agenda files. The query argument is the
// already-quoted selector form.
func (c *Client) QLSelect(ctx context.Context, files []string, qlQuery Sexp) (string, error) {
	var fileArg Sexp
	if len(files) > 0 {
		fileArg = Quote{Strings(files)}
	} else {
		fileArg = Sym("org-agenda-files")
	}
	form := Progn(
		Call("require", Quote{Sym("org-ql")}),
		Call("ox-json-ql-select", fileArg, qlQuery),
	)
	return c.Eval(ctx, form)
}

// OpenFile opens an org file for editing. With focus the Emacs frame
// grabs window focus.
func (c *Client) OpenFile(ctx context.Context, path string, focus bool) error {
	forms := []Sexp{Call("find-file", Str(path))}
	if focus {
		forms = append(forms, Call("x-focus-frame", Sym("nil")))
	}
	_, err := c.Eval(ctx, Progn(forms...))
	return err
}
