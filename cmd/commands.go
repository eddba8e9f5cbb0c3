package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/garden/internal/adapters/repository"
	app "github.com/okian/garden/internal/app"
	"github.com/okian/garden/internal/config"
	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/internal/simulate"
	"github.com/okian/garden/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQL schema to the configured store",
		Long: `Apply the schema to the postgres or sqlite store named by store_driver and
store_dsn. Statements are idempotent, so running it twice is harmless.

Examples:
  GARDEN_STORE_DRIVER=sqlite GARDEN_STORE_DSN=file:garden.db garden migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := setup(ctx)
			if err != nil {
				return err
			}
			if cfg.StoreDriver == config.StoreMemory {
				return errors.New("migrate needs a sql store_driver (postgres or sqlite)")
			}
			store, err := repository.OpenSQL(ctx, cfg.StoreDriver, cfg.StoreDSN)
			if err != nil {
				return err
			}
			logger.Get().Info(ctx, "schema applied", logger.String("driver", cfg.StoreDriver))
			return store.Close()
		},
	}
}

func newAggregateCmd() *cobra.Command {
	var (
		user       string
		instrument string
	)
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Run the weekly WHO5 aggregation once and exit",
		Long: `Without --user, aggregate runs the weekly WHO5 batch for every user with a
completed WHO5 session in the last week. With --user, it aggregates one user's
last week for --instrument and prints the verbal result as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := setup(ctx)
			if err != nil {
				return err
			}
			// the one-shot run replaces the scheduler
			cfg.AggregateSchedule = ""

			code, err := model.ParseInstrument(instrument)
			if err != nil {
				return err
			}

			svc := app.New(app.WithConfig(cfg), app.WithLogger(logger.Get()))
			if err := svc.Start(ctx); err != nil {
				return err
			}
			defer svc.Stop()

			if user != "" {
				res, err := svc.Aggregate(ctx, user, code, model.Period{Kind: model.PeriodLastWeek})
				if err != nil {
					return fmt.Errorf("aggregate %s: %w", user, err)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			n, err := svc.RunWeekly(ctx)
			if err != nil {
				return fmt.Errorf("weekly aggregation: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "aggregated %d users\n", n)
			return err
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "aggregate only this user")
	cmd.Flags().StringVar(&instrument, "instrument", string(model.WHO5), "instrument for --user")
	return cmd
}

func newSimulateCmd() *cobra.Command {
	sc := simulate.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a running server with synthetic users",
		Long: `Simulate posts implicit signals (with duplicates), completes WHO5 sessions,
records moods and grants XP for each synthetic user, then reads back the
aggregate and prints run statistics as JSON.

Examples:
  garden simulate --url http://localhost:9080 --users 100 --workers 16`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := logger.Init(); err != nil {
				return err
			}
			stats, err := simulate.Run(ctx, sc)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
	f := cmd.Flags()
	f.StringVar(&sc.BaseURL, "url", sc.BaseURL, "base URL of the server")
	f.IntVar(&sc.Users, "users", sc.Users, "number of synthetic users")
	f.IntVar(&sc.SignalsPerUser, "signals", sc.SignalsPerUser, "implicit signals per user")
	f.IntVar(&sc.SessionsPerUser, "sessions", sc.SessionsPerUser, "WHO5 sessions per user")
	f.Float64Var(&sc.DuplicateRatio, "duplicates", sc.DuplicateRatio, "share of signals sent twice")
	f.IntVar(&sc.BatchSize, "batch", sc.BatchSize, "signals per request")
	f.IntVar(&sc.Workers, "workers", sc.Workers, "concurrent users")
	f.DurationVar(&sc.Timeout, "timeout", 10*time.Second, "HTTP request timeout")
	f.Uint64Var(&sc.Seed, "seed", sc.Seed, "generator seed")
	f.StringVar(&sc.Module, "module", sc.Module, "module receiving XP")
	f.IntVar(&sc.MinSessions, "min-sessions", sc.MinSessions, "aggregation gate configured on the server")
	f.StringVar(&sc.OutputFile, "output", "", "write generated signals to this JSON file")
	return cmd
}
