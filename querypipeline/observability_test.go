package querypipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/testutil/observability/testdoubles"
)

func Test_StatusFor_Classifies_Outcomes(t *testing.T) {
	withFallback := NewRequestContext("id", nil).Bag()
	withFallback.SetFallbackCause(errors.New("db down"))

	tests := []struct {
		name     string
		err      error
		bag      *Bag
		expected string
	}{
		{name: "success", expected: StatusSuccess},
		{name: "success_without_fallback", bag: NewRequestContext("id", nil).Bag(), expected: StatusSuccess},
		{name: "fallback", bag: withFallback, expected: StatusFallback},
		{name: "error", err: errors.New("boom"), expected: StatusError},
		{name: "canceled", err: errors.Join(ErrQueryCanceled, context.Canceled), expected: StatusCanceled},
		{name: "timeout", err: context.DeadlineExceeded, expected: StatusTimeout},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, StatusFor(tc.err, tc.bag))
		})
	}
}

func Test_Observability_Prefers_The_ContextualLogger(t *testing.T) {
	// arrange
	logger := testdoubles.NewLoggerSpy()
	contextualLogger := testdoubles.NewContextualLoggerSpy(true)
	obs := Observability{Logger: logger, ContextualLogger: contextualLogger}

	// act
	obs.LogWarn(context.Background(), "careful")

	// assert
	assert.True(t, contextualLogger.HasWarnLog("careful"))
	assert.Empty(t, logger.GetRecords())
}

func Test_Observability_Helpers_Are_NoOps_Without_Sinks(t *testing.T) {
	obs := Observability{}

	assert.NotPanics(t, func() {
		obs.LogInfo(context.Background(), "msg")
		obs.RecordDuration(context.Background(), "m", time.Second, nil)
		obs.IncrementCounter(context.Background(), "m", nil)
		ctx, span := obs.StartSpan(context.Background(), "span", nil)
		assert.NotNil(t, ctx)
		obs.FinishSpan(span, StatusSuccess, time.Second, nil)
	})
}

func Test_ToMilliseconds(t *testing.T) {
	assert.InDelta(t, 1.5, ToMilliseconds(1500*time.Microsecond), 0.0001)
}
