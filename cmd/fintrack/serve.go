package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tokmz/fintrack/internal/app"
)

func serveCmd(configPath *string) *cobra.Command {
	var (
		migrate bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and realtime server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, source, err := app.Load(*configPath)
			if err != nil {
				return err
			}
			defer source.Close()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			log := a.Logger()

			if migrate {
				if err := a.Migrate(ctx); err != nil {
					return err
				}
				log.Info("schema migrated")
			}
			if watch && source.File() != "" {
				if err := a.Watch(ctx, source); err != nil {
					log.Warn("config watch disabled", zap.Error(err))
				}
			}

			a.Engine().PrintBanner(cmd.OutOrStdout(), version)
			if err := a.Run(ctx); err != nil {
				log.Error("server stopped", zap.Error(err))
				return err
			}
			log.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "Migrate the schema before serving")
	cmd.Flags().BoolVar(&watch, "watch", true, "Reload the log level when the config file changes")

	return cmd
}
