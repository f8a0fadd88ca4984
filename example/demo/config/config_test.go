package config_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/AntonStoeckl/dynamic-query-pipeline-go/example/demo/config"
)

func Test_Load_Reads_Defaults(t *testing.T) {
	// act
	cfg, err := Load()

	// assert
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.CacheStore)
	assert.Equal(t, DriverPGXPool, cfg.PostgresDriver)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, "localhost:6379", cfg.RedisOptions().Addr)
}

func Test_Load_Reads_Environment(t *testing.T) {
	// arrange
	t.Setenv("QUOTES_CACHE_STORE", StoreRedis)
	t.Setenv("QUOTES_CACHE_TTL", "1m")
	t.Setenv("QUOTES_REDIS_ADDR", "redis:6380")
	t.Setenv("QUOTES_REDIS_DB", "2")
	t.Setenv("QUOTES_POSTGRES_DRIVER", DriverSQLX)

	// act
	cfg, err := Load()

	// assert
	require.NoError(t, err)
	assert.Equal(t, StoreRedis, cfg.CacheStore)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, DriverSQLX, cfg.PostgresDriver)
	assert.Equal(t, "redis:6380", cfg.RedisOptions().Addr)
	assert.Equal(t, 2, cfg.RedisOptions().DB)
}

func Test_Load_Rejects_Invalid_Settings(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		err   error
	}{
		{name: "unknown store", key: "QUOTES_CACHE_STORE", value: "etcd", err: ErrUnknownStore},
		{name: "unknown driver", key: "QUOTES_POSTGRES_DRIVER", value: "gorm", err: ErrUnknownDriver},
		{name: "malformed duration", key: "QUOTES_CACHE_TTL", value: "soon"},
		{name: "non positive attempts", key: "QUOTES_MAX_ATTEMPTS", value: "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			_, err := Load()

			require.Error(t, err)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
			}
		})
	}
}

func Test_PostgresPGXPoolConfig_Parses_DSN(t *testing.T) {
	cfg, err := PostgresPGXPoolConfig("postgres://user:secret@db:5433/quotes?sslmode=disable")
	require.NoError(t, err)

	assert.Equal(t, "db", cfg.ConnConfig.Host)
	assert.Equal(t, uint16(5433), cfg.ConnConfig.Port)
	assert.Equal(t, int32(8), cfg.MaxConns)

	_, invalidErr := PostgresPGXPoolConfig("postgres://user:secret@db:notaport/quotes")
	assert.Error(t, invalidErr)
}

func Test_ParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func Test_ObservabilityProviders_Export_Spans_And_Collect_Metrics(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	ctx := context.Background()
	providers, err := NewObservabilityProviders(ctx, "quotes-test", NewLogger(&buf, "debug"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = providers.Shutdown() })

	counter, err := providers.MeterProvider.Meter("test").Int64Counter("quotes_test_total")
	require.NoError(t, err)

	// act
	_, span := providers.TracerProvider.Tracer("test").Start(ctx, "quotes.test")
	span.End()
	counter.Add(ctx, 1)
	rm, collectErr := providers.CollectMetrics(ctx)

	// assert
	assert.Contains(t, buf.String(), `"span":"quotes.test"`)
	require.NoError(t, collectErr)
	require.NotEmpty(t, rm.ScopeMetrics)
	assert.Equal(t, "quotes_test_total", rm.ScopeMetrics[0].Metrics[0].Name)
}
