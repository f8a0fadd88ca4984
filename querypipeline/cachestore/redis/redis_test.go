package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore/redis"
)

func givenStore(t *testing.T, options ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := redis.NewStore(client, options...)
	require.NoError(t, err)

	return store, server
}

func givenEntry(t *testing.T, key string, ttl time.Duration) cachestore.Entry {
	t.Helper()

	entry, err := cachestore.BuildEntry(key, "GetGreeting", []byte(`{"text":"hi"}`), ttl)
	require.NoError(t, err)

	return entry
}

func Test_Store_Save_Then_Load_Returns_The_Entry(t *testing.T) {
	// arrange
	ctx := context.Background()
	store, server := givenStore(t)
	entry := givenEntry(t, "k1", time.Minute)

	// act
	require.NoError(t, store.Save(ctx, entry))
	loaded, err := store.Load(ctx, "k1")

	// assert
	assert.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "k1", loaded.Key)
	assert.Equal(t, "GetGreeting", loaded.QueryType)
	assert.JSONEq(t, `{"text":"hi"}`, string(loaded.Data))
	assert.True(t, entry.ExpiresAt.Equal(loaded.ExpiresAt))
	assert.True(t, server.Exists("querypipeline:cache:k1"))
	assert.Greater(t, server.TTL("querypipeline:cache:k1"), time.Duration(0))
}

func Test_Store_Entries_Expire_In_Redis(t *testing.T) {
	// arrange
	ctx := context.Background()
	store, server := givenStore(t)
	require.NoError(t, store.Save(ctx, givenEntry(t, "k1", time.Second)))

	// act
	server.FastForward(2 * time.Second)
	loaded, err := store.Load(ctx, "k1")

	// assert
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func Test_Store_Without_TTL_Keeps_The_Entry(t *testing.T) {
	// arrange
	ctx := context.Background()
	store, server := givenStore(t, redis.WithKeyPrefix("test:"))

	// act
	require.NoError(t, store.Save(ctx, givenEntry(t, "k1", 0)))

	// assert
	assert.True(t, server.Exists("test:k1"))
	assert.Zero(t, server.TTL("test:k1"))
}

func Test_Store_Delete_Removes_The_Entry(t *testing.T) {
	// arrange
	ctx := context.Background()
	store, _ := givenStore(t)
	require.NoError(t, store.Save(ctx, givenEntry(t, "k1", 0)))

	// act
	err := store.Delete(ctx, "k1")
	loaded, loadErr := store.Load(ctx, "k1")

	// assert
	assert.NoError(t, err)
	assert.NoError(t, loadErr)
	assert.Nil(t, loaded)
}

func Test_Store_Load_Fails_For_Corrupt_Values(t *testing.T) {
	// arrange
	store, server := givenStore(t)
	require.NoError(t, server.Set("querypipeline:cache:k1", "not json"))

	// act
	_, err := store.Load(context.Background(), "k1")

	// assert
	assert.ErrorIs(t, err, cachestore.ErrLoadingEntryFailed)
}

func Test_Store_Reports_Connection_Failures(t *testing.T) {
	// arrange
	store, server := givenStore(t)
	server.Close()

	// act
	_, err := store.Load(context.Background(), "k1")

	// assert
	assert.ErrorIs(t, err, cachestore.ErrLoadingEntryFailed)
}

func Test_NewStore_Rejects_Invalid_Configuration(t *testing.T) {
	_, errClient := redis.NewStore(nil)
	_, errPrefix := redis.NewStore(goredis.NewClient(&goredis.Options{}), redis.WithKeyPrefix(""))

	assert.ErrorIs(t, errClient, cachestore.ErrNilConnection)
	assert.ErrorIs(t, errPrefix, redis.ErrEmptyKeyPrefix)
}
