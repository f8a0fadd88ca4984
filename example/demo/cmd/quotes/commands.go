package main

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/example/demo/config"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/example/demo/quotesapp"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/example/features/query/randomquote"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

var errPostgresOnly = errors.New("command needs --store postgres")

func getCmd(cfg *config.Config) *cobra.Command {
	var (
		count        int
		sync         bool
		unavailable  bool
		logBridge    string
		printMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Execute GetRandomQuote and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := config.NewLogger(os.Stderr, cfg.LogLevel)

			providers, err := config.NewObservabilityProviders(ctx, cfg.ServiceName, logger)
			if err != nil {
				return fmt.Errorf("create observability providers: %w", err)
			}
			defer func() { _ = providers.Shutdown() }()

			store, closeStore, err := openStore(ctx, *cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			contextualLogger, err := newContextualLogger(logBridge, cfg.ServiceName, logger)
			if err != nil {
				return err
			}

			deps := quotesapp.Dependencies{
				Store:            store,
				CacheTTL:         cfg.CacheTTL,
				Timeout:          cfg.Timeout,
				MaxAttempts:      cfg.MaxAttempts,
				Logger:           logger,
				ContextualLogger: contextualLogger,
			}
			deps.Metrics, deps.Tracing = newCollectors(providers, cfg.ServiceName)

			if unavailable {
				deps.Source = quotesapp.UnavailableSource{}
			}

			processor, err := quotesapp.NewProcessor(deps)
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}

			for range count {
				var quote randomquote.Quote
				if sync {
					quote, err = quotesapp.GetRandomQuoteSync(processor)
				} else {
					quote, err = quotesapp.GetRandomQuote(ctx, processor)
				}

				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), quote.String())
			}

			if printMetrics {
				rm, collectErr := providers.CollectMetrics(ctx)
				if collectErr != nil {
					return fmt.Errorf("collect metrics: %w", collectErr)
				}

				printCounters(cmd, rm)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 1, "number of queries to execute")
	cmd.Flags().BoolVar(&sync, "sync", false, "use the blocking execution form")
	cmd.Flags().BoolVar(&unavailable, "unavailable", false, "make the quote source fail to demonstrate the fallback")
	cmd.Flags().StringVar(&logBridge, "log-bridge", bridgeSlog, "contextual logger: slog, otelslog, otellog")
	cmd.Flags().BoolVar(&printMetrics, "print-metrics", false, "print pipeline counters after the run")

	return cmd
}

func schemaCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the PostgreSQL cache table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.CacheStore != config.StorePostgres {
				return errPostgresOnly
			}

			logger := config.NewLogger(os.Stderr, cfg.LogLevel)

			store, closeStore, err := openPostgresStore(cmd.Context(), *cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.EnsureSchema(cmd.Context()); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "cache table %q is ready\n", cfg.CacheTable)

			return nil
		},
	}
}

func purgeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired rows from the PostgreSQL cache table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.CacheStore != config.StorePostgres {
				return errPostgresOnly
			}

			logger := config.NewLogger(os.Stderr, cfg.LogLevel)

			store, closeStore, err := openPostgresStore(cmd.Context(), *cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			purged, err := store.DeleteExpired(cmd.Context())
			if err != nil {
				return fmt.Errorf("delete expired entries: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired cache entries\n", purged)

			return nil
		},
	}
}

// printCounters prints the pipeline counters sorted by name.
func printCounters(cmd *cobra.Command, rm metricdata.ResourceMetrics) {
	var lines []string

	for _, scopeMetrics := range rm.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}

			for _, dp := range sum.DataPoints {
				status, _ := dp.Attributes.Value(querypipeline.LogAttrStatus)
				lines = append(lines, fmt.Sprintf("%s{status=%q} %d", m.Name, status.AsString(), dp.Value))
			}
		}
	}

	sort.Strings(lines)

	for _, line := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
}
