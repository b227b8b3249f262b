package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configDir string
	env       string
	logLevel  string
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:          "collabtodo",
		Short:        "Collaborative to-do and project service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), flags)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configDir, "config-dir", "config", "Directory holding base.yaml, <env>.yaml and secrets.env")
	cmd.PersistentFlags().StringVar(&flags.env, "env", "", "Config environment (defaults to $CONFIG_ENV or local)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and outbox dispatcher",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context(), flags)
			},
		},
		migrateCmd(&flags),
		outboxCmd(&flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("collabtodo version %s (build: %s)\n", Version, BuildTime)
			},
		},
	)
	return cmd
}
