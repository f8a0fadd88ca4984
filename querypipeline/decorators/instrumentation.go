package decorators

import (
	"context"
	"strconv"
	"time"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

const (
	// InstrumentationType identifies the Instrumentation decorator in registrations.
	InstrumentationType querypipeline.DecoratorType = "Instrumentation"

	// HandleDurationMetric tracks the duration of the chain inside the decorator (OpenTelemetry-compatible).
	HandleDurationMetric = "querypipeline_handle_duration_seconds"

	// HandleCallsMetric tracks calls of the chain inside the decorator.
	HandleCallsMetric = "querypipeline_handle_calls_total"

	// SpanNameHandle is the tracing span name of the chain inside the decorator.
	SpanNameHandle = "querypipeline.handle"

	// LogAttrCacheHit marks a result served from the result cache.
	LogAttrCacheHit = "cache_hit"

	// LogAttrRetryAttempts reports the attempts recorded by the retry decorator.
	LogAttrRetryAttempts = "retry_attempts"
)

// Instrumentation records metrics and a tracing span around the inner chain.
// Where it sits in the chain decides what it measures: placed last it measures the handler alone.
// Span attributes carry the bag signals visible at completion: fallback, cache hit, retry attempts.
type Instrumentation struct {
	requestContextHolder

	obs querypipeline.Observability
}

// NewInstrumentation returns a constructor for Instrumentation decorators. Both collectors may be nil.
func NewInstrumentation(
	metrics querypipeline.MetricsCollector,
	tracing querypipeline.TracingCollector,
) querypipeline.DecoratorConstructor {
	return func() (querypipeline.Decorator, error) {
		return &Instrumentation{
			obs: querypipeline.Observability{
				MetricsCollector: metrics,
				TracingCollector: tracing,
			},
		}, nil
	}
}

// Around implements the cancellable form.
func (d *Instrumentation) Around(
	ctx context.Context,
	query querypipeline.Query,
	next querypipeline.Next,
	_ querypipeline.Next,
) (any, error) {
	start := time.Now()
	spanCtx, span := d.obs.StartSpan(ctx, SpanNameHandle, map[string]string{
		querypipeline.LogAttrQueryType:     query.QueryType(),
		querypipeline.LogAttrCorrelationID: d.correlationID(ctx),
	})

	result, err := next(spanCtx, query)

	d.record(ctx, query, span, time.Since(start), err)

	return result, err
}

// AroundSync implements the blocking form.
func (d *Instrumentation) AroundSync(
	query querypipeline.Query,
	next querypipeline.SyncNext,
	_ querypipeline.SyncNext,
) (any, error) {
	ctx := context.Background()

	start := time.Now()
	_, span := d.obs.StartSpan(ctx, SpanNameHandle, map[string]string{
		querypipeline.LogAttrQueryType:     query.QueryType(),
		querypipeline.LogAttrCorrelationID: d.correlationID(ctx),
	})

	result, err := next(query)

	d.record(ctx, query, span, time.Since(start), err)

	return result, err
}

func (d *Instrumentation) record(
	ctx context.Context,
	query querypipeline.Query,
	span querypipeline.SpanContext,
	duration time.Duration,
	err error,
) {
	bag := d.bag(ctx)
	status := querypipeline.StatusFor(err, bag)
	labels := querypipeline.BuildLabels(query.QueryType(), status)

	d.obs.RecordDuration(ctx, HandleDurationMetric, duration, labels)
	d.obs.IncrementCounter(ctx, HandleCallsMetric, labels)

	if span != nil && bag != nil {
		span.AddAttribute(querypipeline.LogAttrFallback, strconv.FormatBool(bag.HasFallback()))
		span.AddAttribute(LogAttrCacheHit, strconv.FormatBool(bag.CacheHit()))
		span.AddAttribute(LogAttrRetryAttempts, strconv.Itoa(bag.RetryAttempts()))
	}

	d.obs.FinishSpan(span, status, duration, err)
}

var (
	_ querypipeline.Decorator    = (*Instrumentation)(nil)
	_ querypipeline.ContextAware = (*Instrumentation)(nil)
)
