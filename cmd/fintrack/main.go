package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// 构建时注入
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "fintrack",
		Short: "Personal finance tracker with realtime sync",
		Long: `fintrack serves a REST API and a realtime WebSocket channel for
transactions, budgets and savings goals.

Every mutation is pushed to all of the owner's authenticated connections
as transaction:added, budget:updated, savingsGoal:deleted and so on.

Configuration is read from --config and FINTRACK_* environment variables,
for example FINTRACK_AUTH_SECRET or FINTRACK_DATABASE_DSN.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml)")

	rootCmd.AddCommand(
		serveCmd(&configPath),
		migrateCmd(&configPath),
		tokenCmd(&configPath),
		watchCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}
