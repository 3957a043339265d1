package main

import (
	"github.com/spf13/cobra"

	pgInfra "github.com/fastygo/taskhub/internal/infrastructure/postgres"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply (or revert one step of) the Postgres schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer logger.Sync()

		direction := pgInfra.MigrateUp
		if migrateDown {
			direction = pgInfra.MigrateDown
		}
		return pgInfra.Migrate(cfg, direction, logger)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "revert the most recent migration")
	rootCmd.AddCommand(migrateCmd)
}
