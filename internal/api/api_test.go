package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/orgbridge/internal/config"
	"github.com/dgallion1/orgbridge/internal/index"
	"github.com/dgallion1/orgbridge/internal/orgdir"
	"github.com/dgallion1/orgbridge/internal/orgtree"
	"github.com/dgallion1/orgbridge/internal/query"
)

type stubLoader struct {
	docs map[string]*orgtree.Document
}

func (s *stubLoader) Load(_ context.Context, file string) (*orgtree.Document, error) {
	doc, ok := s.docs[file]
	if !ok {
		return nil, fmt.Errorf("no such document: %s", file)
	}
	return doc, nil
}

type stubNavigator struct {
	found bool
	err   error
	last  orgtree.Target
}

func (s *stubNavigator) Locate(_ context.Context, t orgtree.Target) (bool, error) {
	s.last = t
	return s.found, s.err
}

func mkHeadline(t *testing.T, reg *orgtree.Registry, ref string, props map[string]any, contents ...orgtree.Content) *orgtree.Node {
	t.Helper()
	typ, err := reg.Lookup("headline")
	if err != nil {
		t.Fatalf("lookup headline: %v", err)
	}
	return orgtree.NewNode(typ, ref, props, contents)
}

func gardenDoc(t *testing.T, reg *orgtree.Registry, path string) *orgtree.Document {
	t.Helper()
	para, err := reg.Lookup("paragraph")
	if err != nil {
		t.Fatalf("lookup paragraph: %v", err)
	}
	secType, err := reg.Lookup("section")
	if err != nil {
		t.Fatalf("lookup section: %v", err)
	}
	rootType, err := reg.Lookup("org-data")
	if err != nil {
		t.Fatalf("lookup org-data: %v", err)
	}

	body := orgtree.NewNode(secType, "", nil, []orgtree.Content{
		orgtree.NewNode(para, "", nil, []orgtree.Content{orgtree.Text("every other day")}),
	})
	water := mkHeadline(t, reg, "ref-water", map[string]any{
		"level": 1, "raw-value": "Water plants", "begin": 10, "end": 40,
		"todo-keyword": "TODO", "todo-type": "todo",
	}, body)
	soil := mkHeadline(t, reg, "ref-soil", map[string]any{
		"level": 1, "raw-value": "Buy soil", "begin": 41, "end": 60,
		"todo-keyword": "DONE", "todo-type": "done",
	})
	root := orgtree.NewNode(rootType, "", nil, []orgtree.Content{water, soil})
	return &orgtree.Document{
		Properties: map[string]any{"title": []any{"Garden"}},
		Path:       path,
		Root:       root,
	}
}

type fixture struct {
	server   *Server
	registry *orgtree.Registry
	doc      *orgtree.Document
	nav      *stubNavigator
	index    *index.Index
}

func newFixture(t *testing.T, apiKey string) *fixture {
	t.Helper()
	reg := orgtree.NewRegistry()
	base := t.TempDir()

	for _, rel := range []string{"notes.org", filepath.Join("sub", "plan.org")} {
		abs := filepath.Join(base, rel)
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(abs, []byte("* stub\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	dir, err := orgdir.NewDir(base)
	if err != nil {
		t.Fatalf("new dir: %v", err)
	}

	doc := gardenDoc(t, reg, filepath.Join(base, "notes.org"))
	loader := &stubLoader{docs: map[string]*orgtree.Document{
		"notes.org": doc,
	}}

	idx, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	if err := idx.ReindexDocument(doc, time.Now()); err != nil {
		t.Fatalf("reindex: %v", err)
	}

	nav := &stubNavigator{found: true}
	cfg := config.Config{
		APIKey:         apiKey,
		QueryWorkers:   2,
		MaxUploadBytes: 1 << 20,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := NewServer(dir, loader, query.TreeSearcher{}, nav, idx, reg, log, cfg)

	return &fixture{server: server, registry: reg, doc: doc, nav: nav, index: idx}
}

func (f *fixture) do(t *testing.T, method, target string, body io.Reader, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, "GET", "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	f := newFixture(t, "secret")

	rec := f.do(t, "GET", "/api/files", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without key: status = %d", rec.Code)
	}

	rec = f.do(t, "GET", "/api/files", nil, map[string]string{"Authorization": "Bearer wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d", rec.Code)
	}

	rec = f.do(t, "GET", "/api/files", nil, map[string]string{"Authorization": "Bearer secret"})
	if rec.Code != http.StatusOK {
		t.Errorf("right key: status = %d", rec.Code)
	}

	// Health stays public.
	rec = f.do(t, "GET", "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health: status = %d", rec.Code)
	}
}

func TestFiles_Listing(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, "GET", "/api/files", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)

	files, _ := body["files"].([]any)
	if len(files) != 1 || files[0] != "notes.org" {
		t.Errorf("files = %v", files)
	}
	dirs, _ := body["directories"].([]any)
	if len(dirs) != 1 || dirs[0] != "sub" {
		t.Errorf("directories = %v", dirs)
	}
}

func TestFiles_Document(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, "GET", "/api/files/notes.org", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if _, ok := body["root"]; !ok {
		t.Errorf("document record missing root: %v", body)
	}

	rec = f.do(t, "GET", "/api/files/notes.org?format=text", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("text status = %d", rec.Code)
	}
	text := rec.Body.String()
	if !strings.Contains(text, "* TODO Water plants") || !strings.Contains(text, "every other day") {
		t.Errorf("text output = %q", text)
	}

	rec = f.do(t, "GET", "/api/files/notes.org?format=html", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("html status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "org-node") {
		t.Errorf("html output = %q", rec.Body.String())
	}

	rec = f.do(t, "GET", "/api/files/notes.org?format=docx", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d", rec.Code)
	}
}

func TestFiles_Missing(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, "GET", "/api/files/nope.org", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestFiles_RawAttachment(t *testing.T) {
	f := newFixture(t, "")
	abs, err := f.server.dir.Abs("diagram.svg")
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	if err := os.WriteFile(abs, []byte("<svg/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rec := f.do(t, "GET", "/api/files/diagram.svg", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "<svg/>" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestQuery(t *testing.T) {
	f := newFixture(t, "")
	body := strings.NewReader(`{"files": ["notes.org"], "todo": true}`)
	rec := f.do(t, "POST", "/api/query", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)

	results, _ := resp["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("results = %v", results)
	}
	headlines, _ := resp["headlines"].([]any)
	if len(headlines) < 2 {
		t.Fatalf("headlines = %v", headlines)
	}
	if !strings.Contains(rec.Body.String(), "Water plants") {
		t.Errorf("match missing from table: %s", rec.Body.String())
	}
}

func TestQuery_BadPattern(t *testing.T) {
	f := newFixture(t, "")
	body := strings.NewReader(`{"files": ["notes.org"], "title": "["}`)
	rec := f.do(t, "POST", "/api/query", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAgenda(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, "GET", "/api/agenda", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	entries, _ := resp["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("entries = %v", entries)
	}
	entry, _ := entries[0].(map[string]any)
	if entry["title"] != "Water plants" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNavigate(t *testing.T) {
	f := newFixture(t, "")

	body := strings.NewReader(`{"file": "notes.org", "id": "abc-123", "text": "Water plants"}`)
	rec := f.do(t, "POST", "/api/navigate", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if resp["found"] != true {
		t.Errorf("response = %v", resp)
	}
	if f.nav.last.ID != "abc-123" || !filepath.IsAbs(f.nav.last.File) {
		t.Errorf("target = %+v", f.nav.last)
	}

	f.nav.found = false
	rec = f.do(t, "POST", "/api/navigate", strings.NewReader(`{"file": "notes.org", "text": "gone"}`), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("absent target: status = %d", rec.Code)
	}
	if resp := decodeBody(t, rec); resp["found"] != false {
		t.Errorf("absent target response = %v", resp)
	}

	rec = f.do(t, "POST", "/api/navigate", strings.NewReader(`{"id": "abc"}`), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing file: status = %d", rec.Code)
	}

	rec = f.do(t, "POST", "/api/navigate", strings.NewReader(`{"file": "../etc/passwd"}`), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("escape: status = %d", rec.Code)
	}
}

func TestImport(t *testing.T) {
	f := newFixture(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "plan.md")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte("# Spring\n\nPlant the beds.\n"))
	mw.Close()

	rec := f.do(t, "POST", "/api/import", &buf, map[string]string{
		"Content-Type": mw.FormDataContentType(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if _, ok := resp["root"]; !ok {
		t.Errorf("missing root: %v", resp)
	}
	if !strings.Contains(rec.Body.String(), "Spring") {
		t.Errorf("headline missing: %s", rec.Body.String())
	}
}

func TestImport_Unsupported(t *testing.T) {
	f := newFixture(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "photo.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte("not really a png"))
	mw.Close()

	rec := f.do(t, "POST", "/api/import", &buf, map[string]string{
		"Content-Type": mw.FormDataContentType(),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}
