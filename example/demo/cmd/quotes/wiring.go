package main

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/log/global"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/example/demo/config"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore/memory"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore/postgres"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore/redis"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/oteladapters"
)

const (
	bridgeSlog     = "slog"
	bridgeOTelSlog = "otelslog"
	bridgeOTelLog  = "otellog"
)

func noop() {}

// openStore returns the configured cache store, or nil for StoreNone, and its close function.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (cachestore.Store, func(), error) {
	switch cfg.CacheStore {
	case config.StoreNone:
		return nil, noop, nil

	case config.StoreMemory:
		return memory.NewStore(), noop, nil

	case config.StoreRedis:
		client := goredis.NewClient(cfg.RedisOptions())
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("ping redis: %w", err)
		}

		store, err := redis.NewStore(client, redis.WithKeyPrefix(cfg.CachePrefix))
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}

		return store, func() { _ = client.Close() }, nil

	case config.StorePostgres:
		store, closeStore, err := openPostgresStore(ctx, cfg, logger)
		if err != nil {
			return nil, noop, err
		}

		if err := store.EnsureSchema(ctx); err != nil {
			closeStore()
			return nil, noop, fmt.Errorf("ensure schema: %w", err)
		}

		return store, closeStore, nil

	default:
		return nil, noop, fmt.Errorf("%w: %q", config.ErrUnknownStore, cfg.CacheStore)
	}
}

// openPostgresStore connects with the configured driver.
func openPostgresStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*postgres.Store, func(), error) {
	options := []postgres.Option{
		postgres.WithTableName(cfg.CacheTable),
		postgres.WithLogger(logger),
	}

	switch cfg.PostgresDriver {
	case config.DriverPGXPool:
		pool, err := config.PostgresPGXPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}

		store, err := postgres.NewStoreFromPGXPool(pool, options...)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}

		return store, pool.Close, nil

	case config.DriverSQLDB:
		db, err := config.PostgresSQLDB(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}

		store, err := postgres.NewStoreFromSQLDB(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, noop, err
		}

		return store, func() { _ = db.Close() }, nil

	case config.DriverSQLX:
		db, err := config.PostgresSQLX(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}

		store, err := postgres.NewStoreFromSQLX(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, noop, err
		}

		return store, func() { _ = db.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.PostgresDriver)
	}
}

// newContextualLogger picks the contextual logger implementation.
// The OpenTelemetry bridges report to the global LoggerProvider.
func newContextualLogger(bridge, name string, logger *slog.Logger) (querypipeline.ContextualLogger, error) {
	switch bridge {
	case bridgeSlog:
		return oteladapters.NewSlogBridgeLoggerWithHandler(logger.Handler()), nil
	case bridgeOTelSlog:
		return oteladapters.NewSlogBridgeLogger(name), nil
	case bridgeOTelLog:
		return oteladapters.NewOTelLogger(global.GetLoggerProvider().Logger(name)), nil
	default:
		return nil, fmt.Errorf("unknown log bridge %q", bridge)
	}
}

func newCollectors(providers *config.ObservabilityProviders, name string) (*oteladapters.MetricsCollector, *oteladapters.TracingCollector) {
	return oteladapters.NewMetricsCollector(providers.MeterProvider.Meter(name)),
		oteladapters.NewTracingCollector(providers.TracerProvider.Tracer(name))
}
