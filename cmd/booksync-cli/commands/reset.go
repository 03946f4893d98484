package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetYes *bool

func init() {
	resetYes = resetCmd.Flags().Bool("yes", false, "Confirm deletion of all scraped data.")
	rootCmd.AddCommand(resetCmd)
}

var resetCmd = &cobra.Command{
	Use:   "reset --yes",
	Short: "Deletes every row from the destination tables. Keeps the run log.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !*resetYes {
			return fmt.Errorf("refusing to delete data without --yes")
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		if err := st.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("destination tables cleared")
		return nil
	},
}
