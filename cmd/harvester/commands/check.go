package commands

import (
	"fmt"
	"io"

	idb "counter_harvester/internal/infra/database"
	"counter_harvester/internal/infra/logger"
	"counter_harvester/internal/infra/sushi"

	"github.com/spf13/cobra"
)

var checkCredential int64

var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a credential against the status and members endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		creds := idb.NewPostgresCredentialRepository(e.db)
		cred, err := creds.GetByID(cmd.Context(), checkCredential)
		if err != nil {
			return err
		}
		prov, err := creds.GetProvider(cmd.Context(), cred.ProvID)
		if err != nil {
			return err
		}

		client := sushi.NewClient(e.cfg.HTTPTimeout, logger.Component("sushi"))
		out := cmd.OutOrStdout()
		printResult(out, "status", client.Status(cmd.Context(), prov, cred))
		printResult(out, "members", client.Members(cmd.Context(), prov, cred))
		return nil
	},
}

func printResult(out io.Writer, method string, res sushi.Result) {
	if res.Succeeded() {
		fmt.Fprintf(out, "%-8s ok (HTTP %d)\n", method, res.HTTPStatus)
		return
	}
	fmt.Fprintf(out, "%-8s error %d at %s step (HTTP %d): %s %s\n", method, res.Code, res.Step, res.HTTPStatus, res.Message, res.Detail)
}

func init() {
	CheckCmd.Flags().Int64Var(&checkCredential, "credential", 0, "Credential ID (required)")
	_ = CheckCmd.MarkFlagRequired("credential")
}
