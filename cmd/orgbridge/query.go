package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/orgbridge/internal/codec"
	"github.com/dgallion1/orgbridge/internal/convert"
	"github.com/dgallion1/orgbridge/internal/emacs"
	"github.com/dgallion1/orgbridge/internal/orgtree"
	"github.com/dgallion1/orgbridge/internal/query"
)

func newQueryCmd() *cobra.Command {
	var (
		todo     bool
		keywords []string
		tags     []string
		title    string
		minLevel int
		maxLevel int
		raw      string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "query [files...]",
		Short: "Search headlines across org files",
		Long: `Search headlines across org files.

Without file arguments the whole org directory is searched. Structured
filters combine with AND; --ql sends a raw org-ql selector to the
editor instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			if err := rt.requireDir(); err != nil {
				return err
			}

			files := args
			if len(files) == 0 {
				files, err = rt.dir.List("", true, false)
				if err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			docs := make([]*orgtree.Document, 0, len(files))
			for _, f := range files {
				doc, err := rt.loader.Load(ctx, f)
				if err != nil {
					return fmt.Errorf("load %s: %w", f, err)
				}
				docs = append(docs, doc)
			}

			q := query.Query{
				Raw:          raw,
				TodoNotDone:  todo,
				Keywords:     keywords,
				Tags:         tags,
				TitlePattern: title,
				MinLevel:     minLevel,
				MaxLevel:     maxLevel,
			}
			var searcher query.Searcher = query.TreeSearcher{}
			if raw != "" {
				searcher = &emacs.QLSearcher{Client: rt.client, Registry: rt.registry}
			}

			result, err := query.Select(ctx, docs, searcher, q, query.WithWorkers(rt.cfg.QueryWorkers))
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(result.Record(), "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			for _, i := range result.Results {
				entry, err := result.Entry(i)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %s\n", entryFile(result, entry), convert.HeadlineLine(entry.Node))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&todo, "todo", false, "only unfinished todo headlines")
	cmd.Flags().StringSliceVar(&keywords, "keyword", nil, "todo keywords to match (any of)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tags to match (any of)")
	cmd.Flags().StringVar(&title, "title", "", "regular expression on the headline title")
	cmd.Flags().IntVar(&minLevel, "min-level", 0, "minimum outline depth")
	cmd.Flags().IntVar(&maxLevel, "max-level", 0, "maximum outline depth")
	cmd.Flags().StringVar(&raw, "ql", "", "raw org-ql selector, evaluated by the editor")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result record")
	return cmd
}

// entryFile walks the parent chain up to the file entry.
func entryFile(r *query.Result, e codec.TableEntry) string {
	for e.ParentIndex >= 0 {
		parent, err := r.Entry(e.ParentIndex)
		if err != nil {
			return ""
		}
		e = parent
	}
	return e.Path
}
