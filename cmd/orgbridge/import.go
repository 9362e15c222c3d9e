package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/orgbridge/internal/codec"
	"github.com/dgallion1/orgbridge/internal/importer"
)

func newImportCmd() *cobra.Command {
	var (
		title  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Convert a foreign document to an org document record",
		Long: `Convert a foreign document to an org document record.

Markdown, HTML, PDF, DOCX and plain text inputs are supported. The
result is the same JSON record the editor export produces, written to
stdout or to --output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}

			path := args[0]
			imp, err := importer.ForFile(rt.registry, path)
			if err != nil {
				return err
			}
			if p, ok := imp.(*importer.PDFImporter); ok {
				p.FallbackPdftotext = rt.cfg.PDFFallbackPdftotext
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			doc, err := imp.Import(f, filepath.Base(path))
			if err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}
			if title != "" {
				doc.Properties["title"] = []any{title}
			}

			data, err := codec.MarshalDocument(doc)
			if err != nil {
				return err
			}
			data = append(data, '\n')
			if output != "" {
				return os.WriteFile(output, data, 0o644)
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "override the document title")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the record to a file instead of stdout")
	return cmd
}
