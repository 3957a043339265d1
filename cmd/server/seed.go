package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/taskhub/internal/config"
	"github.com/fastygo/taskhub/internal/security"
	"github.com/fastygo/taskhub/usecase/bootstrap"
)

var seedDemo bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the bootstrap administrator and, optionally, demo data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx := cmd.Context()
		store, err := openStorage(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer store.close(ctx)

		opts := seedOptions(cfg)
		opts.SeedDemo = opts.SeedDemo || seedDemo
		seeder := bootstrap.New(store.users, store.tasks, security.NewBcryptHasher(bcrypt.DefaultCost), logger)
		return seeder.Seed(ctx, opts)
	},
}

func seedOptions(cfg *config.Config) bootstrap.Options {
	return bootstrap.Options{
		SeedDemo:      cfg.Bootstrap.SeedDemo,
		AdminUsername: cfg.Bootstrap.AdminUsername,
		AdminEmail:    cfg.Bootstrap.AdminEmail,
		AdminPassword: cfg.Bootstrap.AdminPassword,
	}
}

func init() {
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "also create the demo user and its tasks")
	rootCmd.AddCommand(seedCmd)
}
