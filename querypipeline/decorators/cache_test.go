package decorators_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore/memory"
	. "github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/decorators"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/testutil/observability/testdoubles"
	. "github.com/AntonStoeckl/dynamic-query-pipeline-go/testutil/pipeline/pltesthelpers"
)

type greeting struct {
	Text string `json:"text"`
}

// brokenStore fails every operation.
type brokenStore struct{}

var errStoreDown = errors.New("store down")

func (brokenStore) Save(context.Context, cachestore.Entry) error { return errStoreDown }

func (brokenStore) Load(context.Context, string) (*cachestore.Entry, error) { return nil, errStoreDown }

func (brokenStore) Delete(context.Context, string) error { return errStoreDown }

func givenResultCache(
	t *testing.T,
	rc *querypipeline.RequestContext,
	store cachestore.Store,
	options ...CacheOption,
) (querypipeline.Decorator, *ResultCacheConfig) {
	t.Helper()

	config, err := NewResultCacheConfig(store, options...)
	require.NoError(t, err)

	decorator, err := config.Constructor()()
	require.NoError(t, err)
	require.NoError(t, decorator.(querypipeline.Parameterized).InitializeFromParams([]any{TTL(time.Minute)}))
	decorator.(querypipeline.ContextAware).SetRequestContext(rc)

	return decorator, config
}

func countingNext(result any, err error) (querypipeline.SyncNext, *int) {
	calls := 0

	return func(querypipeline.Query) (any, error) {
		calls++
		return result, err
	}, &calls
}

func Test_ResultCache_Serves_The_Second_Call_From_The_Store(t *testing.T) {
	// arrange
	store := memory.NewStore()
	metrics := testdoubles.NewMetricsCollectorSpy(true)
	first, _ := givenResultCache(t, givenRequestContext(), store,
		WithResultType(GetGreetingQueryType, DecodeJSON[greeting]()),
		WithCacheMetrics(metrics),
	)
	secondRC := givenRequestContext()
	second, _ := givenResultCache(t, secondRC, store, WithResultType(GetGreetingQueryType, DecodeJSON[greeting]()))
	next, calls := countingNext(greeting{Text: "Hello, Ada"}, nil)

	// act
	firstResult, firstErr := first.AroundSync(GetGreeting{Name: "Ada"}, next, nil)
	secondResult, secondErr := second.AroundSync(GetGreeting{Name: "Ada"}, next, nil)

	// assert
	assert.NoError(t, firstErr)
	assert.NoError(t, secondErr)
	assert.Equal(t, greeting{Text: "Hello, Ada"}, firstResult)
	assert.Equal(t, greeting{Text: "Hello, Ada"}, secondResult)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, 1, store.Len())
	assert.True(t, secondRC.Bag().CacheHit())
	assert.True(t, metrics.HasCounterRecordForMetric(CacheLookupsMetric).WithLabel(LogAttrOutcome, "miss").Assert())
}

func Test_ResultCache_Keys_Differ_By_Query_Content(t *testing.T) {
	// arrange
	store := memory.NewStore()
	decorator, _ := givenResultCache(t, givenRequestContext(), store, WithResultType(GetGreetingQueryType, DecodeJSON[greeting]()))
	next, calls := countingNext(greeting{Text: "Hello"}, nil)

	// act
	_, _ = decorator.AroundSync(GetGreeting{Name: "Ada"}, next, nil)
	_, _ = decorator.AroundSync(GetGreeting{Name: "Grace"}, next, nil)

	// assert
	assert.Equal(t, 2, *calls)
	assert.Equal(t, 2, store.Len())
}

func Test_ResultCache_Bypasses_Queries_Without_A_Decoder(t *testing.T) {
	// arrange
	store := memory.NewStore()
	metrics := testdoubles.NewMetricsCollectorSpy(true)
	decorator, _ := givenResultCache(t, givenRequestContext(), store, WithCacheMetrics(metrics))
	next, calls := countingNext("ok", nil)

	// act
	_, _ = decorator.AroundSync(GetFarewell{}, next, nil)
	_, _ = decorator.AroundSync(GetFarewell{}, next, nil)

	// assert
	assert.Equal(t, 2, *calls)
	assert.Zero(t, store.Len())
	assert.True(t, metrics.HasCounterRecordForMetric(CacheLookupsMetric).WithLabel(LogAttrOutcome, "bypass").Assert())
}

func Test_ResultCache_Does_Not_Store_Failures_Or_Fallback_Results(t *testing.T) {
	// arrange
	store := memory.NewStore()
	failingRC := givenRequestContext()
	failing, _ := givenResultCache(t, failingRC, store, WithResultType(GetGreetingQueryType, DecodeJSON[greeting]()))
	fallbackRC := givenRequestContext()
	withFallback, _ := givenResultCache(t, fallbackRC, store, WithResultType(GetGreetingQueryType, DecodeJSON[greeting]()))
	failure := errors.New("db down")
	failingNext, _ := countingNext(nil, failure)
	fallbackNext := func(querypipeline.Query) (any, error) {
		fallbackRC.Bag().SetFallbackCause(failure)
		return greeting{Text: "stale"}, nil
	}

	// act
	_, errFailing := failing.AroundSync(GetGreeting{Name: "Ada"}, failingNext, nil)
	_, errFallback := withFallback.AroundSync(GetGreeting{Name: "Ada"}, fallbackNext, nil)

	// assert
	assert.Same(t, failure, errFailing)
	assert.NoError(t, errFallback)
	assert.Zero(t, store.Len())
}

func Test_ResultCache_Runs_Uncached_When_The_Store_Fails(t *testing.T) {
	// arrange
	logger := testdoubles.NewContextualLoggerSpy(true)
	decorator, _ := givenResultCache(t, givenRequestContext(), brokenStore{},
		WithResultType(GetGreetingQueryType, DecodeJSON[greeting]()),
		WithCacheContextualLogger(logger),
	)
	next, _ := returning(greeting{Text: "fresh"}, nil)

	// act
	result, err := decorator.Around(context.Background(), GetGreeting{Name: "Ada"}, next, nil)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, greeting{Text: "fresh"}, result)
	assert.True(t, logger.HasWarnLog(LogMsgCacheLoadFailed))
	assert.True(t, logger.HasWarnLog(LogMsgCacheSaveFailed))
}

func Test_ResultCache_Runs_Uncached_When_A_Cached_Entry_Does_Not_Decode(t *testing.T) {
	// arrange
	store := memory.NewStore()
	logger := testdoubles.NewContextualLoggerSpy(true)
	rc := givenRequestContext()
	decorator, _ := givenResultCache(t, rc, store,
		WithResultType(GetGreetingQueryType, DecodeJSON[greeting]()),
		WithCacheContextualLogger(logger),
	)
	serialized, err := rc.Serialize(GetGreeting{Name: "Ada"})
	require.NoError(t, err)
	entry, err := cachestore.BuildEntry(CacheKey(GetGreetingQueryType, serialized), GetGreetingQueryType, []byte(`[1,2]`), 0)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), entry))
	next, calls := countingNext(greeting{Text: "fresh"}, nil)

	// act
	result, err := decorator.AroundSync(GetGreeting{Name: "Ada"}, next, nil)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, greeting{Text: "fresh"}, result)
	assert.Equal(t, 1, *calls)
	assert.True(t, logger.HasWarnLog(LogMsgCacheDecodeFailed))
	assert.False(t, rc.Bag().CacheHit())
}

func Test_ResultCache_Fails_Without_A_Serializer(t *testing.T) {
	// arrange
	decorator, _ := givenResultCache(t, querypipeline.NewRequestContext("corr-1", nil), memory.NewStore(),
		WithResultType(GetGreetingQueryType, DecodeJSON[greeting]()))
	next, calls := countingNext("ok", nil)

	// act
	_, err := decorator.AroundSync(GetGreeting{}, next, nil)

	// assert
	assert.ErrorIs(t, err, querypipeline.ErrMissingSerializer)
	assert.Zero(t, *calls)
}

func Test_ResultCache_Config_Validation(t *testing.T) {
	_, errStore := NewResultCacheConfig(nil)
	_, errType := NewResultCacheConfig(memory.NewStore(), WithResultType("", DecodeJSON[greeting]()))
	_, errDecoder := NewResultCacheConfig(memory.NewStore(), WithResultType(GetGreetingQueryType, nil))

	assert.ErrorIs(t, errStore, ErrNilResultStore)
	assert.ErrorIs(t, errType, querypipeline.ErrEmptyQueryType)
	assert.ErrorIs(t, errDecoder, querypipeline.ErrInvalidDecoratorMetadata)

	decorator, _ := givenResultCache(t, givenRequestContext(), memory.NewStore())
	assert.ErrorIs(t,
		decorator.(querypipeline.Parameterized).InitializeFromParams([]any{TTL(-time.Second)}),
		querypipeline.ErrInvalidDecoratorMetadata,
	)
}

func Test_ResultCacheConfig_Register_Enables_Caching_After_Construction(t *testing.T) {
	// arrange
	store := memory.NewStore()
	decorator, config := givenResultCache(t, givenRequestContext(), store)
	next, _ := countingNext(greeting{Text: "Bye"}, nil)

	// act
	require.NoError(t, config.Register(GetFarewellQueryType, DecodeJSON[greeting]()))
	_, err := decorator.AroundSync(GetFarewell{Name: "Ada"}, next, nil)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func Test_CacheKey_Is_Deterministic_And_Prefixed_With_The_QueryType(t *testing.T) {
	first := CacheKey(GetGreetingQueryType, `{"name":"Ada"}`)
	second := CacheKey(GetGreetingQueryType, `{"name":"Ada"}`)
	other := CacheKey(GetGreetingQueryType, `{"name":"Grace"}`)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Regexp(t, `^GetGreeting:[0-9a-f]{64}$`, first)
}
