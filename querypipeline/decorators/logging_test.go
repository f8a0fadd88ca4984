package decorators_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
	. "github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/decorators"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/testutil/observability/testdoubles"
	. "github.com/AntonStoeckl/dynamic-query-pipeline-go/testutil/pipeline/pltesthelpers"
)

func givenQueryLogging(t *testing.T, rc *querypipeline.RequestContext, logger querypipeline.ContextualLogger) querypipeline.Decorator {
	t.Helper()

	decorator, err := NewQueryLogging(nil, logger)()
	require.NoError(t, err)

	if rc != nil {
		decorator.(querypipeline.ContextAware).SetRequestContext(rc)
	}

	return decorator
}

func Test_QueryLogging_Logs_The_Serialized_Query_And_Completion(t *testing.T) {
	// arrange
	logger := testdoubles.NewContextualLoggerSpy(true)
	decorator := givenQueryLogging(t, givenRequestContext(), logger)
	next, _ := returning("ok", nil)

	// act
	result, err := decorator.Around(context.Background(), GetGreeting{Name: "Ada"}, next, nil)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "ok", result)

	started := logger.GetRecordsForMessage(LogMsgQueryExecuting)
	require.Len(t, started, 1)
	serialized, _ := started[0].Attr(LogAttrQuery)
	assert.Equal(t, `{"name":"Ada"}`, serialized)
	assert.True(t, logger.HasInfoLog(LogMsgQueryCompleted))
}

func Test_QueryLogging_Annotates_Completion_With_A_Fallback(t *testing.T) {
	// arrange
	logger := testdoubles.NewContextualLoggerSpy(true)
	rc := givenRequestContext()
	decorator := givenQueryLogging(t, rc, logger)
	_, next := returning("cached", nil)
	rc.Bag().SetFallbackCause(errors.New("db down"))

	// act
	_, err := decorator.AroundSync(GetGreeting{}, next, nil)

	// assert
	assert.NoError(t, err)
	assert.True(t, logger.HasInfoLog(LogMsgQueryCompletedWithFallback))
	assert.False(t, logger.HasInfoLog(LogMsgQueryCompleted))
}

func Test_QueryLogging_Logs_Failures_And_Propagates_Them(t *testing.T) {
	// arrange
	logger := testdoubles.NewContextualLoggerSpy(true)
	decorator := givenQueryLogging(t, givenRequestContext(), logger)
	failure := errors.New("db down")
	next, _ := returning(nil, failure)

	// act
	_, err := decorator.Around(context.Background(), GetGreeting{}, next, nil)

	// assert
	assert.Same(t, failure, err)
	assert.True(t, logger.HasErrorLog(LogMsgQueryFailed))
}

func Test_QueryLogging_Fails_Without_A_Serializer(t *testing.T) {
	// arrange
	logger := testdoubles.NewContextualLoggerSpy(true)
	decorator := givenQueryLogging(t, querypipeline.NewRequestContext("corr-1", nil), logger)
	called := false
	next := func(querypipeline.Query) (any, error) {
		called = true
		return "ok", nil
	}

	// act
	_, err := decorator.AroundSync(GetGreeting{}, next, nil)

	// assert
	assert.ErrorIs(t, err, querypipeline.ErrMissingSerializer)
	assert.False(t, called)
	assert.Zero(t, logger.GetTotalRecordCount())
}

func Test_QueryLogging_Uses_The_RequestContext_Carried_By_The_Context(t *testing.T) {
	// arrange
	logger := testdoubles.NewContextualLoggerSpy(true)
	decorator := givenQueryLogging(t, nil, logger)
	ctx := querypipeline.WithRequestContext(context.Background(), givenRequestContext())
	next, _ := returning("ok", nil)

	// act
	_, err := decorator.Around(ctx, GetGreeting{}, next, nil)

	// assert
	assert.NoError(t, err)
	assert.True(t, logger.HasInfoLog(LogMsgQueryExecuting))
}
