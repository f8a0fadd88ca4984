package postgres_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver for database/sql
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore/postgres"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/testutil/observability/testdoubles"
)

const dsnEnv = "QUERYPIPELINE_TEST_POSTGRES_DSN"

// givenStores returns one Store per supported connection type, all on the same fresh table.
// The test is skipped when no database is configured.
func givenStores(t *testing.T) map[string]*postgres.Store {
	t.Helper()

	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}

	ctx := context.Background()
	tableName := "query_cache_test_" + uuid.NewString()[:8]
	logger := testdoubles.NewLoggerSpy()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "error connecting to DB pool in test setup")
	t.Cleanup(pool.Close)

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	sqlxDB := sqlx.NewDb(sqlDB, "postgres")

	pgxStore, err := postgres.NewStoreFromPGXPool(pool, postgres.WithTableName(tableName), postgres.WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, pgxStore.EnsureSchema(ctx))

	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+tableName)
	})

	sqlStore, err := postgres.NewStoreFromSQLDB(sqlDB, postgres.WithTableName(tableName))
	require.NoError(t, err)

	sqlxStore, err := postgres.NewStoreFromSQLX(sqlxDB, postgres.WithTableName(tableName))
	require.NoError(t, err)

	return map[string]*postgres.Store{
		"pgx":  pgxStore,
		"sql":  sqlStore,
		"sqlx": sqlxStore,
	}
}

func Test_Store_Save_Load_Delete_Against_Postgres(t *testing.T) {
	for name, store := range givenStores(t) {
		t.Run(name, func(t *testing.T) {
			// arrange
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			key := "GetGreeting:" + name
			entry, err := cachestore.BuildEntry(key, "GetGreeting", []byte(`{"text":"hi"}`), time.Minute)
			require.NoError(t, err)

			// act
			require.NoError(t, store.Save(ctx, entry))
			loaded, loadErr := store.Load(ctx, key)
			deleteErr := store.Delete(ctx, key)
			afterDelete, _ := store.Load(ctx, key)

			// assert
			assert.NoError(t, loadErr)
			require.NotNil(t, loaded)
			assert.Equal(t, "GetGreeting", loaded.QueryType)
			assert.JSONEq(t, `{"text":"hi"}`, string(loaded.Data))
			assert.WithinDuration(t, entry.ExpiresAt, loaded.ExpiresAt, time.Millisecond)
			assert.NoError(t, deleteErr)
			assert.Nil(t, afterDelete)
		})
	}
}

func Test_Store_Save_Overwrites_And_DeleteExpired_Purges(t *testing.T) {
	stores := givenStores(t)
	store := stores["pgx"]

	// arrange
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := cachestore.BuildEntry("k", "GetGreeting", []byte(`"first"`), 0)
	require.NoError(t, err)
	second, err := cachestore.BuildEntry("k", "GetGreeting", []byte(`"second"`), 0)
	require.NoError(t, err)
	expired := cachestore.Entry{
		Key:       "old",
		QueryType: "GetGreeting",
		Data:      []byte(`"old"`),
		CreatedAt: time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	// act
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))
	require.NoError(t, store.Save(ctx, expired))
	loaded, _ := store.Load(ctx, "k")
	loadedExpired, _ := store.Load(ctx, "old")
	purged, purgeErr := store.DeleteExpired(ctx)

	// assert
	require.NotNil(t, loaded)
	assert.JSONEq(t, `"second"`, string(loaded.Data))
	assert.Nil(t, loadedExpired)
	assert.NoError(t, purgeErr)
	assert.Equal(t, int64(1), purged)
	assert.NoError(t, store.Ping(ctx))
}

func Test_NewStore_Rejects_Nil_Connections(t *testing.T) {
	_, errPGX := postgres.NewStoreFromPGXPool(nil)
	_, errSQL := postgres.NewStoreFromSQLDB(nil)
	_, errSQLX := postgres.NewStoreFromSQLX(nil)

	assert.ErrorIs(t, errPGX, cachestore.ErrNilConnection)
	assert.ErrorIs(t, errSQL, cachestore.ErrNilConnection)
	assert.ErrorIs(t, errSQLX, cachestore.ErrNilConnection)
}
