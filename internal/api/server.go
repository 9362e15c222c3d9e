package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/orgbridge/internal/config"
	"github.com/dgallion1/orgbridge/internal/index"
	"github.com/dgallion1/orgbridge/internal/orgdir"
	"github.com/dgallion1/orgbridge/internal/orgtree"
	"github.com/dgallion1/orgbridge/internal/query"
)

// Navigator moves the editing surface to a headline target.
type Navigator interface {
	Locate(ctx context.Context, t orgtree.Target) (bool, error)
}

// Server is the HTTP API over an org directory.
type Server struct {
	router    chi.Router
	dir       *orgdir.Dir
	loader    orgdir.Loader
	searcher  query.Searcher
	navigator Navigator
	index     *index.Index
	registry  *orgtree.Registry
	log       *slog.Logger
	cfg       config.Config
}

// NewServer creates and configures the HTTP server. The navigator and
// index are optional; their endpoints answer 503 when absent.
func NewServer(dir *orgdir.Dir, loader orgdir.Loader, searcher query.Searcher,
	nav Navigator, idx *index.Index, reg *orgtree.Registry,
	log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		dir:       dir,
		loader:    loader,
		searcher:  searcher,
		navigator: nav,
		index:     idx,
		registry:  reg,
		log:       log,
		cfg:       cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints; an empty key disables auth.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Get("/api/files", s.handleFiles)
		r.Get("/api/files/*", s.handleFiles)
		r.Post("/api/query", s.handleQuery)
		r.Get("/api/agenda", s.handleAgenda)
		r.Post("/api/navigate", s.handleNavigate)
		r.Post("/api/import", s.handleImport)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
