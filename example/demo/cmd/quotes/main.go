// Command quotes runs the random quote query through the query pipeline.
//
// Settings come from QUOTES_* environment variables (see example/demo/config); flags override them.
//
//	quotes get --count 3 --store redis
//	quotes get --unavailable        # source fails, the fallback quote is served
//	quotes schema --store postgres  # create the cache table
//	quotes purge --store postgres   # delete expired cache rows
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/example/demo/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfg config.Config

	root := &cobra.Command{
		Use:   "quotes",
		Short: "Query pipeline demo serving random quotes",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}

			applyFlagOverrides(cmd, &loaded, &cfg)
			cfg = loaded

			return cfg.Validate()
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfg.CacheStore, "store", "", "cache store: none, memory, redis, postgres")
	root.PersistentFlags().StringVar(&cfg.PostgresDriver, "driver", "", "postgres driver: pgxpool, sqldb, sqlx")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(getCmd(&cfg))
	root.AddCommand(schemaCmd(&cfg))
	root.AddCommand(purgeCmd(&cfg))

	return root
}

// applyFlagOverrides copies the flags the user set from flagged into cfg.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, flagged *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("store") {
		cfg.CacheStore = flagged.CacheStore
	}

	if flags.Changed("driver") {
		cfg.PostgresDriver = flagged.PostgresDriver
	}

	if flags.Changed("log-level") {
		cfg.LogLevel = flagged.LogLevel
	}
}
