package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Re-export changed files and rebuild the headline index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			if err := rt.requireDir(); err != nil {
				return err
			}

			ctx := cmd.Context()
			refreshed, err := rt.loader.Sync(ctx, rt.cfg.QueryWorkers)
			if err != nil {
				return err
			}
			for _, rel := range refreshed {
				fmt.Println("exported", rel)
			}

			idx, err := rt.openIndex()
			if err != nil {
				return err
			}
			defer idx.Close()

			files, err := rt.dir.List("", true, false)
			if err != nil {
				return err
			}
			current := make(map[string]bool, len(files))
			for _, rel := range files {
				doc, err := rt.loader.Load(ctx, rel)
				if err != nil {
					return fmt.Errorf("load %s: %w", rel, err)
				}
				abs, err := rt.dir.Abs(rel)
				if err != nil {
					return err
				}
				info, err := os.Stat(abs)
				if err != nil {
					return err
				}
				if err := idx.ReindexDocument(doc, info.ModTime()); err != nil {
					return fmt.Errorf("index %s: %w", rel, err)
				}
				current[doc.Path] = true
			}

			indexed, err := idx.Files()
			if err != nil {
				return err
			}
			for _, path := range indexed {
				if current[path] {
					continue
				}
				if err := idx.RemoveFile(path); err != nil {
					return err
				}
				fmt.Println("removed", path)
			}

			fmt.Printf("indexed %d files\n", len(files))
			return nil
		},
	}
	return cmd
}
