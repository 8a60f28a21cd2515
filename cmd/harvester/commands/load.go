package commands

import (
	"fmt"

	"counter_harvester/internal/app"

	"github.com/spf13/cobra"
)

var loadReq app.LoadRequest

var LoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Create harvest records for due connections and queue them",
	Long: `Creates one harvest record per credential, master report and month for
every connection that is due, requeues finished records of the same month,
and queues everything that is New or ReQueued.

Without --month the previous calendar month is loaded, and only providers
whose harvest day is today are considered.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		summary, err := e.newLoader().Run(cmd.Context(), loadReq)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %d, requeued %d, unchanged %d, queued %d, already queued %d\n",
			summary.Created, summary.Requeued, summary.Unchanged, summary.Queued, summary.AlreadyQueued)
		return nil
	},
}

func init() {
	f := LoadCmd.Flags()
	f.Int64Var(&loadReq.ConsortiumID, "consortium", 0, "Consortium ID (required)")
	f.StringVar(&loadReq.YearMon, "month", "", "Usage month as YYYY-MM")
	f.Int64SliceVar(&loadReq.ProviderIDs, "provider", nil, "Only these provider IDs")
	f.Int64SliceVar(&loadReq.InstIDs, "inst", nil, "Only these institution IDs")
	f.StringSliceVar(&loadReq.ReportNames, "report", nil, "Only these master reports, e.g. TR,DR")
	f.BoolVar(&loadReq.ExplicitMonth, "force", false, "Ignore the providers' harvest day")
	f.BoolVar(&loadReq.ReplaceData, "replace", false, "Replace previously stored usage downstream")
	_ = LoadCmd.MarkFlagRequired("consortium")
}
