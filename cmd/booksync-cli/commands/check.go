package commands

import (
	"os"

	"booksync-backend/lib/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Prints row counts for every destination table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Table", "Rows"})

		for _, name := range store.DataTables {
			n, err := st.Count(cmd.Context(), name)
			if err != nil {
				return err
			}
			t.AppendRow(table.Row{name, n})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
