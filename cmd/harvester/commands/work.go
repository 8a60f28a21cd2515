package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var workConsortium int64

var WorkCmd = &cobra.Command{
	Use:   "work",
	Short: "Process a consortium's harvest queue once",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		worker, err := e.newWorker(cmd.Context(), nil)
		if err != nil {
			return err
		}
		summary, err := worker.Run(cmd.Context(), workConsortium)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "processed %d, skipped %d, dropped %d\n", summary.Processed, summary.Skipped, summary.Dropped)
		for status, n := range summary.ByStatus {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %d\n", status, n)
		}
		return nil
	},
}

func init() {
	WorkCmd.Flags().Int64Var(&workConsortium, "consortium", 0, "Consortium ID (required)")
	_ = WorkCmd.MarkFlagRequired("consortium")
}
