package decorators_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
	. "github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/decorators"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/testutil/observability/testdoubles"
	. "github.com/AntonStoeckl/dynamic-query-pipeline-go/testutil/pipeline/pltesthelpers"
)

func givenRetry(
	t *testing.T,
	rc *querypipeline.RequestContext,
	collector querypipeline.MetricsCollector,
	params ...any,
) querypipeline.Decorator {
	t.Helper()

	decorator, err := NewRetry(collector)()
	require.NoError(t, err)
	require.NoError(t, decorator.(querypipeline.Parameterized).InitializeFromParams(append([]any{BaseDelay(0)}, params...)))
	decorator.(querypipeline.ContextAware).SetRequestContext(rc)

	return decorator
}

func Test_Retry_Retries_Until_The_Chain_Succeeds(t *testing.T) {
	// arrange
	rc := givenRequestContext()
	metrics := testdoubles.NewMetricsCollectorSpy(true)
	decorator := givenRetry(t, rc, metrics)
	next, calls := failingOnce(errUpstream, "ok")

	// act
	result, err := decorator.AroundSync(GetGreeting{}, next, nil)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, *calls)
	assert.Equal(t, 2, rc.Bag().RetryAttempts())
	assert.True(t, metrics.HasCounterRecordForMetric(RetryAttemptsMetric).
		WithLabel(LogAttrAttempt, "1").
		WithLabel(LogAttrErrorType, "other").
		Assert())
}

func Test_Retry_Stops_At_MaxAttempts(t *testing.T) {
	// arrange
	rc := givenRequestContext()
	metrics := testdoubles.NewMetricsCollectorSpy(true)
	decorator := givenRetry(t, rc, metrics, MaxAttempts(4))
	calls := 0
	next := func(context.Context, querypipeline.Query) (any, error) {
		calls++
		return nil, errUpstream
	}

	// act
	_, err := decorator.Around(context.Background(), GetGreeting{}, next, nil)

	// assert
	assert.Same(t, errUpstream, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 4, rc.Bag().RetryAttempts())
	assert.Equal(t, 1, metrics.CountCounterRecordsForMetric(RetryMaxAttemptsReachedMetric))
}

func Test_Retry_Does_Not_Retry_Unmatched_Or_Terminal_Failures(t *testing.T) {
	tests := []struct {
		name    string
		failure error
		params  []any
	}{
		{name: "unmatched_kind", failure: errors.New("validation"), params: []any{errUpstream}},
		{name: "configuration", failure: querypipeline.ErrConstructionFailed},
		{name: "cancellation", failure: context.Canceled},
		{name: "timeout_by_default", failure: ErrQueryTimeout},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rc := givenRequestContext()
			decorator := givenRetry(t, rc, nil, tc.params...)
			calls := 0
			next := func(querypipeline.Query) (any, error) {
				calls++
				return nil, tc.failure
			}

			_, err := decorator.AroundSync(GetGreeting{}, next, nil)

			assert.ErrorIs(t, err, tc.failure)
			assert.Equal(t, 1, calls)
			assert.Equal(t, 1, rc.Bag().RetryAttempts())
		})
	}
}

func Test_Retry_Retries_Timeouts_When_Configured(t *testing.T) {
	// arrange
	rc := givenRequestContext()
	decorator := givenRetry(t, rc, nil, ErrQueryTimeout)
	next, calls := failingOnce(ErrQueryTimeout, "ok")

	// act
	result, err := decorator.AroundSync(GetGreeting{}, next, nil)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, *calls)
}

func Test_Retry_Around_Stops_Waiting_When_The_Context_Is_Done(t *testing.T) {
	// arrange
	rc := givenRequestContext()
	decorator, err := NewRetry(nil)()
	require.NoError(t, err)
	require.NoError(t, decorator.(querypipeline.Parameterized).InitializeFromParams([]any{BaseDelay(time.Hour)}))
	decorator.(querypipeline.ContextAware).SetRequestContext(rc)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	next := func(context.Context, querypipeline.Query) (any, error) {
		calls++
		cancel()
		return nil, errUpstream
	}

	// act
	_, err = decorator.Around(ctx, GetGreeting{}, next, nil)

	// assert
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func Test_Retry_Rejects_Malformed_Params(t *testing.T) {
	tests := []struct {
		name     string
		param    any
		expected error
	}{
		{name: "zero_attempts", param: MaxAttempts(0), expected: ErrInvalidMaxAttempts},
		{name: "negative_delay", param: BaseDelay(-time.Second), expected: ErrNegativeBaseDelay},
		{name: "jitter_above_one", param: JitterFactor(1.5), expected: ErrInvalidJitterFactor},
		{name: "unsupported_type", param: "three", expected: querypipeline.ErrInvalidDecoratorMetadata},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decorator, _ := NewRetry(nil)()

			err := decorator.(querypipeline.Parameterized).InitializeFromParams([]any{tc.param})

			assert.ErrorIs(t, err, tc.expected)
			assert.True(t, querypipeline.IsConfigurationError(err))
		})
	}
}
