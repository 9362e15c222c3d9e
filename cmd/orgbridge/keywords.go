package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/orgbridge/internal/orgdir"
)

func newKeywordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords <file>",
		Short: "Print the #+KEYWORD lines of an org file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}

			path := args[0]
			if !filepath.IsAbs(path) && rt.dir != nil {
				path, err = rt.dir.Abs(path)
				if err != nil {
					return err
				}
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			kw, err := orgdir.ReadFileKeywords(f)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(kw))
			for k := range kw {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%s: %s\n", k, strings.Join(kw[k], ", "))
			}
			return nil
		},
	}
	return cmd
}
