package main

import (
	"os"

	"counter_harvester/cmd/harvester/commands"
	"counter_harvester/internal/infra/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "COUNTER usage-report harvester",
	Long: `Harvests COUNTER/SUSHI usage reports from provider APIs.

Available commands:
  migrate - Create the schema and seed the error catalog
  load    - Create harvest records for due connections and queue them
  work    - Process a consortium's harvest queue once
  check   - Check a credential against the status and members endpoints
  run     - Run loader and worker on cron schedules with the operator bot

Examples:
  harvester load --consortium 1 --month 2024-02
  harvester work --consortium 1
  harvester run`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(commands.MigrateCmd)
	rootCmd.AddCommand(commands.LoadCmd)
	rootCmd.AddCommand(commands.WorkCmd)
	rootCmd.AddCommand(commands.CheckCmd)
	rootCmd.AddCommand(commands.RunCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
