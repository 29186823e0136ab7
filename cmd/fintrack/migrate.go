package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tokmz/fintrack/internal/app"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, source, err := app.Load(*configPath)
			if err != nil {
				return err
			}
			defer source.Close()

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if err := a.Migrate(cmd.Context()); err != nil {
				return err
			}
			success("schema migrated (%s)", cfg.Database.Type)
			return nil
		},
	}
}
