package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/orgbridge/internal/codec"
	"github.com/dgallion1/orgbridge/internal/convert"
)

func newConvertCmd() *cobra.Command {
	var to, policyName string

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a document to html, text or json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := convert.ParsePolicy(policyName)
			if err != nil {
				return err
			}

			rt, err := newRuntime()
			if err != nil {
				return err
			}
			doc, err := rt.loadDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printDiagnostics(doc)

			switch to {
			case "html":
				c := convert.NewHTMLConverter()
				c.Policy = policy
				out, err := c.ConvertDocument(doc)
				if err != nil {
					return err
				}
				fmt.Println(out)
			case "text":
				c := convert.PlainTextConverter{Policy: policy}
				out, err := c.Convert(doc.Root)
				if err != nil {
					return err
				}
				fmt.Println(out)
			case "json":
				data, err := codec.MarshalDocument(doc)
				if err != nil {
					return err
				}
				os.Stdout.Write(data)
				fmt.Println()
			default:
				return fmt.Errorf("unknown target %q (want html, text or json)", to)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "html", "output target: html, text or json")
	cmd.Flags().StringVar(&policyName, "policy", "lenient", "unknown node handling: strict or lenient")
	return cmd
}
