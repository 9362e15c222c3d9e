package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/orgbridge/internal/codec"
	"github.com/dgallion1/orgbridge/internal/convert"
)

// handleFiles serves the org directory: directories list their entries,
// org files render as a document record or a converted form.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	abs, err := s.dir.Abs(rel)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		jsonError(w, "not found: "+rel, http.StatusNotFound)
		return
	}
	if info.IsDir() {
		s.listDir(w, rel, abs)
		return
	}
	if filepath.Ext(abs) != ".org" {
		// Attachments and images referenced from org files are served raw.
		http.ServeFile(w, r, abs)
		return
	}
	s.serveDocument(w, r, rel)
}

func (s *Server) listDir(w http.ResponseWriter, rel, abs string) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		jsonError(w, "failed to list directory: "+err.Error(), http.StatusInternalServerError)
		return
	}

	dirs, files := []string{}, []string{}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if entry.IsDir() {
			dirs = append(dirs, name)
		} else if filepath.Ext(name) == ".org" {
			files = append(files, name)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"path":        rel,
		"directories": dirs,
		"files":       files,
	})
}

func (s *Server) serveDocument(w http.ResponseWriter, r *http.Request, rel string) {
	if _, err := s.dir.OrgFile(rel); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	doc, err := s.loader.Load(r.Context(), rel)
	if err != nil {
		jsonError(w, "failed to load document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, codec.EncodeDocument(doc))
	case "html":
		out, err := convert.NewHTMLConverter().ConvertDocument(doc)
		if err != nil {
			jsonError(w, "conversion failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, out)
	case "text":
		c := convert.PlainTextConverter{}
		out, err := c.Convert(doc.Root)
		if err != nil {
			jsonError(w, "conversion failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, out)
	default:
		jsonError(w, fmt.Sprintf("unknown format: %s", format), http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
