package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/orgbridge/internal/api"
	"github.com/dgallion1/orgbridge/internal/emacs"
	"github.com/dgallion1/orgbridge/internal/query"
)

func newServeCmd() *cobra.Command {
	var emacsSearch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

			rt, err := newRuntime()
			if err != nil {
				return err
			}
			if err := rt.cfg.Validate(); err != nil {
				return err
			}

			idx, err := rt.openIndex()
			if err != nil {
				return err
			}
			defer idx.Close()

			var searcher query.Searcher = query.TreeSearcher{}
			if emacsSearch {
				searcher = &emacs.QLSearcher{Client: rt.client, Registry: rt.registry}
			}
			nav := &emacs.Navigator{Client: rt.client}

			srv := api.NewServer(rt.dir, rt.loader, searcher, nav, idx, rt.registry, log, rt.cfg)

			httpServer := &http.Server{
				Addr:         ":" + rt.cfg.Port,
				Handler:      srv,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			// Graceful shutdown on the command context.
			go func() {
				<-cmd.Context().Done()
				log.Info("shutting down...")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				httpServer.Shutdown(shutdownCtx)
			}()

			log.Info("starting orgbridge", "port", rt.cfg.Port, "org_dir", rt.cfg.OrgDir)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&emacsSearch, "emacs-search", false,
		"evaluate structured queries through org-ql instead of locally")
	return cmd
}
