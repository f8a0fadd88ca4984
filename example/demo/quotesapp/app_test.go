package quotesapp_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/example/demo/quotesapp"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/example/features/query/randomquote"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore/memory"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/decorators"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/testutil/observability/testdoubles"
)

// countingSource counts lookups and always returns quote.
type countingSource struct {
	quote randomquote.Quote
	calls int
}

func (s *countingSource) Quotes(_ context.Context) ([]randomquote.Quote, error) {
	s.calls++
	return []randomquote.Quote{s.quote}, nil
}

func Test_GetRandomQuote_Returns_Quote_From_Source(t *testing.T) {
	// arrange
	quote := randomquote.Quote{Quote: "Clear is better than clever.", Author: "Rob Pike"}
	logger := testdoubles.NewContextualLoggerSpy(true)
	processor, err := quotesapp.NewProcessor(quotesapp.Dependencies{
		Source:           &countingSource{quote: quote},
		ContextualLogger: logger,
	})
	require.NoError(t, err)

	// act
	asyncQuote, asyncErr := quotesapp.GetRandomQuote(context.Background(), processor)
	syncQuote, syncErr := quotesapp.GetRandomQuoteSync(processor)

	// assert
	assert.NoError(t, asyncErr)
	assert.NoError(t, syncErr)
	assert.Equal(t, quote, asyncQuote)
	assert.Equal(t, quote, syncQuote)
	assert.True(t, logger.HasInfoLog(decorators.LogMsgQueryExecuting))
	assert.True(t, logger.HasInfoLog(decorators.LogMsgQueryCompleted))
}

func Test_GetRandomQuote_Falls_Back_When_Source_Is_Unavailable(t *testing.T) {
	// arrange
	logger := testdoubles.NewContextualLoggerSpy(true)
	metrics := testdoubles.NewMetricsCollectorSpy(true)
	processor, err := quotesapp.NewProcessor(quotesapp.Dependencies{
		Source:           quotesapp.UnavailableSource{},
		MaxAttempts:      2,
		ContextualLogger: logger,
		Metrics:          metrics,
	})
	require.NoError(t, err)

	// act
	quote, executeErr := quotesapp.GetRandomQuote(context.Background(), processor)

	// assert
	assert.NoError(t, executeErr)
	assert.Equal(t, randomquote.FallbackQuote, quote)
	assert.True(t, logger.HasInfoLog(decorators.LogMsgQueryCompletedWithFallback))
	assert.True(t, metrics.HasCounterRecordForMetric(querypipeline.ExecuteCallsMetric).
		WithQueryType(randomquote.QueryType).
		WithStatus(querypipeline.StatusFallback).
		Assert())
	assert.Equal(t, 1, metrics.CountCounterRecordsForMetric(decorators.RetryMaxAttemptsReachedMetric))
}

func Test_GetRandomQuote_Serves_Repeated_Queries_From_The_Cache(t *testing.T) {
	// arrange
	source := &countingSource{quote: randomquote.Quote{Quote: "Errors are values.", Author: "Rob Pike"}}
	store := memory.NewStore()
	tracing := testdoubles.NewTracingCollectorSpy(true)
	processor, err := quotesapp.NewProcessor(quotesapp.Dependencies{
		Source:   source,
		Store:    store,
		CacheTTL: time.Minute,
		Tracing:  tracing,
	})
	require.NoError(t, err)

	// act
	first, firstErr := quotesapp.GetRandomQuote(context.Background(), processor)
	second, secondErr := quotesapp.GetRandomQuote(context.Background(), processor)

	// assert
	assert.NoError(t, firstErr)
	assert.NoError(t, secondErr)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 2, tracing.CountSpanRecordsForName(querypipeline.SpanNameExecute))
	assert.Equal(t, 1, tracing.CountSpanRecordsForName(decorators.SpanNameHandle))
}

func Test_NewProcessor_Rejects_Invalid_Decorator_Params(t *testing.T) {
	processor, err := quotesapp.NewProcessor(quotesapp.Dependencies{MaxAttempts: -1})
	require.NoError(t, err)

	_, executeErr := quotesapp.GetRandomQuote(context.Background(), processor)

	assert.ErrorIs(t, executeErr, querypipeline.ErrConfiguration)
	assert.ErrorIs(t, executeErr, decorators.ErrInvalidMaxAttempts)
}
