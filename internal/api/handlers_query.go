package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dgallion1/orgbridge/internal/index"
	"github.com/dgallion1/orgbridge/internal/orgtree"
	"github.com/dgallion1/orgbridge/internal/query"
)

type queryRequest struct {
	Files    []string `json:"files"`
	Todo     bool     `json:"todo"`
	Keywords []string `json:"keywords"`
	Tags     []string `json:"tags"`
	Title    string   `json:"title"`
	MinLevel int      `json:"min_level"`
	MaxLevel int      `json:"max_level"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	files := req.Files
	if len(files) == 0 {
		var err error
		files, err = s.dir.List("", true, false)
		if err != nil {
			jsonError(w, "failed to list org files: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	docs := make([]*orgtree.Document, 0, len(files))
	for _, f := range files {
		doc, err := s.loader.Load(r.Context(), f)
		if err != nil {
			jsonError(w, fmt.Sprintf("failed to load %s: %v", f, err), http.StatusBadRequest)
			return
		}
		docs = append(docs, doc)
	}

	q := query.Query{
		TodoNotDone:  req.Todo,
		Keywords:     req.Keywords,
		Tags:         req.Tags,
		TitlePattern: req.Title,
		MinLevel:     req.MinLevel,
		MaxLevel:     req.MaxLevel,
	}
	result, err := query.Select(r.Context(), docs, s.searcher, q, query.WithWorkers(s.cfg.QueryWorkers))
	if err != nil {
		jsonError(w, "query failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result.Record())
}

func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		jsonError(w, "agenda index unavailable", http.StatusServiceUnavailable)
		return
	}

	var opts index.AgendaOptions
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	rows, err := s.index.Agenda(opts)
	if err != nil {
		jsonError(w, "agenda query failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	entries := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, map[string]any{
			"path":         row.Path,
			"begin":        row.Begin,
			"level":        row.Level,
			"title":        row.Title,
			"todo_keyword": row.TodoKeyword,
			"priority":     row.Priority,
			"tags":         row.Tags,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type navigateRequest struct {
	File     string `json:"file"`
	ID       string `json:"id"`
	CustomID string `json:"custom_id"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// handleNavigate proxies a headline target to the editor. A target
// nothing matches answers found=false, not an error.
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	if s.navigator == nil {
		jsonError(w, "navigation unavailable", http.StatusServiceUnavailable)
		return
	}

	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.File == "" {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}
	abs, err := s.dir.OrgFile(req.File)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	found, err := s.navigator.Locate(r.Context(), orgtree.Target{
		File:     abs,
		ID:       req.ID,
		CustomID: req.CustomID,
		Text:     req.Text,
		Position: req.Position,
	})
	if err != nil {
		jsonError(w, "navigation failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	status := http.StatusOK
	if !found {
		// Not found is an expected outcome, not an error shape.
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]any{"found": found})
}
