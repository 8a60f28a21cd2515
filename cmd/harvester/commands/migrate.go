package commands

import (
	idb "counter_harvester/internal/infra/database"
	"counter_harvester/internal/infra/logger"

	"github.com/spf13/cobra"
)

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema and seed the error catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		if err := idb.Migrate(cmd.Context(), e.db); err != nil {
			return err
		}
		logger.Log.Info("Schema and error catalog are up to date")
		return nil
	},
}
