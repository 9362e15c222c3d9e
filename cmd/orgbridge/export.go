package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export an org file through the editor and cache the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			if err := rt.requireDir(); err != nil {
				return err
			}

			if force {
				if err := rt.loader.Invalidate(args[0]); err != nil {
					return err
				}
			}
			doc, err := rt.loader.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printDiagnostics(doc)
			fmt.Printf("exported %s (%d headlines)\n", doc.Path, len(doc.Headlines()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "drop the cached export first")
	return cmd
}
