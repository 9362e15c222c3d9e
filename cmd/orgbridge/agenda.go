package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/orgbridge/internal/client"
	"github.com/dgallion1/orgbridge/internal/index"
)

func newAgendaCmd() *cobra.Command {
	var (
		limit  int
		server string
	)

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "List open todo headlines from the index",
		Long: `List open todo headlines from the index.

Reads the headline index built by "orgbridge reindex"; run that first
if the output looks stale. With --server the listing comes from a
running orgbridge server instead of the local index.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}

			if server != "" {
				c := client.New(server, rt.cfg.APIKey)
				defer c.Close()
				entries, err := c.Agenda(cmd.Context(), limit)
				if err != nil {
					return err
				}
				for _, e := range entries {
					printAgendaRow(e.TodoKeyword, e.Priority, e.Title, e.Path)
				}
				return nil
			}

			idx, err := rt.openIndex()
			if err != nil {
				return err
			}
			defer idx.Close()

			rows, err := idx.Agenda(index.AgendaOptions{Limit: limit})
			if err != nil {
				return err
			}
			for _, row := range rows {
				printAgendaRow(row.TodoKeyword, row.Priority, row.Title, row.Path)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of entries (0 means all)")
	cmd.Flags().StringVar(&server, "server", "", "base URL of a running server to query instead")
	return cmd
}

func printAgendaRow(keyword, priority, title, path string) {
	pri := ""
	if priority != "" {
		pri = fmt.Sprintf("[#%s] ", priority)
	}
	fmt.Printf("%s %s%s  (%s)\n", keyword, pri, title, path)
}
