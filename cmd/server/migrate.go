package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"collabtodo/pkg/db"
	"collabtodo/pkg/outbox"
)

func migrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			cfg, log, err := setup(*flags)
			if err != nil {
				return err
			}
			defer log.Sync()
			if err := cfg.Validate(); err != nil {
				return err
			}

			pool, err := db.NewConnection(cmd.Context(), cfg.DB, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.Migrate(cmd.Context(), pool, command); err != nil {
				return err
			}
			log.Info("Migrations finished", zap.String("command", command))
			return nil
		},
	}
}

func outboxCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and repair the event outbox",
	}

	var (
		id    int64
		limit int
	)
	replay := &cobra.Command{
		Use:   "replay",
		Short: "Reset dead or failed events so the dispatcher publishes them again",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(*flags)
			if err != nil {
				return err
			}
			defer log.Sync()
			if err := cfg.Validate(); err != nil {
				return err
			}

			pool, err := db.NewConnection(cmd.Context(), cfg.DB, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := outbox.NewReplayService(outbox.NewRepository(pool), log)
			if id > 0 {
				if err := svc.ReplayEvent(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "replayed event %d\n", id)
				return nil
			}

			n, err := svc.ReplayFailedEvents(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d events\n", n)
			return nil
		},
	}
	replay.Flags().Int64Var(&id, "id", 0, "Replay a single event by id")
	replay.Flags().IntVar(&limit, "limit", 100, "Maximum number of failed events to replay")

	cmd.AddCommand(replay)
	return cmd
}
