package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var runsLimit *int

func init() {
	runsLimit = runsCmd.Flags().Int("limit", 20, "Maximum number of runs to print.")
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs [--limit <n>]",
	Short: "Prints recent job runs, newest first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		runs, err := st.RecentRuns(cmd.Context(), *runsLimit)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Job", "Status", "Started", "Finished", "Rows", "Error"})

		for _, run := range runs {
			errDetail := run.Error.String
			if len(errDetail) > 60 {
				errDetail = errDetail[:60] + "..."
			}
			t.AppendRow(table.Row{
				run.ID,
				run.JobName,
				run.Status,
				run.StartedAt,
				run.FinishedAt.String,
				run.RowCount.Int64,
				errDetail,
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
