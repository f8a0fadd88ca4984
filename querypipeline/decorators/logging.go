package decorators

import (
	"context"
	"time"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

const (
	// QueryLoggingType identifies the QueryLogging decorator in registrations.
	QueryLoggingType querypipeline.DecoratorType = "QueryLogging"

	// LogMsgQueryExecuting is logged before the inner chain runs.
	LogMsgQueryExecuting = "executing query"

	// LogMsgQueryCompleted is logged when the inner chain succeeds.
	LogMsgQueryCompleted = "query completed"

	// LogMsgQueryCompletedWithFallback is logged when the inner chain succeeded through a fallback substitution.
	LogMsgQueryCompletedWithFallback = "query completed (with fallback)"

	// LogMsgQueryFailed is logged when the inner chain fails.
	LogMsgQueryFailed = "query failed"

	// LogAttrQuery contains the serialized query.
	LogAttrQuery = "query"
)

// QueryLogging logs a start message with the query type and the serialized query, runs the inner
// chain, and logs a completion message with the elapsed time. When the bag records a fallback
// substitution, the completion message carries the fallback annotation.
//
// It only reads the bag. Placed outside FallbackPolicy it sees the fallback flag;
// placed inside it logs the failed attempt instead.
type QueryLogging struct {
	requestContextHolder

	obs querypipeline.Observability
}

// NewQueryLogging returns a constructor for QueryLogging decorators writing to the given sinks.
// The contextual logger wins when both are set.
func NewQueryLogging(logger querypipeline.Logger, contextualLogger querypipeline.ContextualLogger) querypipeline.DecoratorConstructor {
	return func() (querypipeline.Decorator, error) {
		return &QueryLogging{
			obs: querypipeline.Observability{
				Logger:           logger,
				ContextualLogger: contextualLogger,
			},
		}, nil
	}
}

// Around implements the cancellable form.
func (d *QueryLogging) Around(
	ctx context.Context,
	query querypipeline.Query,
	next querypipeline.Next,
	_ querypipeline.Next,
) (any, error) {
	start, err := d.logStart(ctx, query)
	if err != nil {
		return nil, err
	}

	result, err := next(ctx, query)
	d.logEnd(ctx, query, time.Since(start), err)

	return result, err
}

// AroundSync implements the blocking form.
func (d *QueryLogging) AroundSync(
	query querypipeline.Query,
	next querypipeline.SyncNext,
	_ querypipeline.SyncNext,
) (any, error) {
	ctx := context.Background()

	start, err := d.logStart(ctx, query)
	if err != nil {
		return nil, err
	}

	result, err := next(query)
	d.logEnd(ctx, query, time.Since(start), err)

	return result, err
}

func (d *QueryLogging) logStart(ctx context.Context, query querypipeline.Query) (time.Time, error) {
	rc := d.requestContext(ctx)
	if rc == nil {
		return time.Time{}, querypipeline.ErrMissingSerializer
	}

	serialized, err := rc.Serialize(query)
	if err != nil {
		return time.Time{}, err
	}

	d.obs.LogInfo(ctx, LogMsgQueryExecuting,
		querypipeline.LogAttrQueryType, query.QueryType(),
		LogAttrQuery, serialized,
		querypipeline.LogAttrCorrelationID, rc.ID(),
	)

	return time.Now(), nil
}

func (d *QueryLogging) logEnd(ctx context.Context, query querypipeline.Query, elapsed time.Duration, err error) {
	if err != nil {
		d.obs.LogError(ctx, LogMsgQueryFailed,
			querypipeline.LogAttrQueryType, query.QueryType(),
			querypipeline.LogAttrCorrelationID, d.correlationID(ctx),
			querypipeline.LogAttrDurationMS, querypipeline.ToMilliseconds(elapsed),
			querypipeline.LogAttrError, err.Error(),
		)

		return
	}

	bag := d.bag(ctx)
	if bag != nil && bag.HasFallback() {
		d.obs.LogInfo(ctx, LogMsgQueryCompletedWithFallback,
			querypipeline.LogAttrQueryType, query.QueryType(),
			querypipeline.LogAttrCorrelationID, d.correlationID(ctx),
			querypipeline.LogAttrDurationMS, querypipeline.ToMilliseconds(elapsed),
			querypipeline.LogAttrFallback, true,
		)

		return
	}

	d.obs.LogInfo(ctx, LogMsgQueryCompleted,
		querypipeline.LogAttrQueryType, query.QueryType(),
		querypipeline.LogAttrCorrelationID, d.correlationID(ctx),
		querypipeline.LogAttrDurationMS, querypipeline.ToMilliseconds(elapsed),
	)
}

var (
	_ querypipeline.Decorator    = (*QueryLogging)(nil)
	_ querypipeline.ContextAware = (*QueryLogging)(nil)
)
