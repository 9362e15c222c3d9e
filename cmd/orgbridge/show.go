package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	var outline, props bool

	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print a document's tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			doc, err := rt.loadDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printDiagnostics(doc)

			if title := doc.Title(); title != "" {
				fmt.Println("title:", title)
			}
			if outline {
				return doc.Root.DumpOutline(os.Stdout)
			}
			return doc.Root.Dump(os.Stdout, props)
		},
	}

	cmd.Flags().BoolVar(&outline, "outline", false, "print only the headline hierarchy")
	cmd.Flags().BoolVar(&props, "properties", false, "include node properties")
	return cmd
}
