package querypipeline

import (
	"context"
	"fmt"
	"time"
)

const (
	// ExecuteDurationMetric tracks pipeline invocation duration (OpenTelemetry-compatible).
	ExecuteDurationMetric = "querypipeline_execute_duration_seconds"

	// ExecuteCallsMetric tracks total pipeline invocations.
	ExecuteCallsMetric = "querypipeline_execute_calls_total"

	// ExecuteCanceledMetric tracks invocations canceled by the caller.
	ExecuteCanceledMetric = "querypipeline_canceled_operations_total"

	// ExecuteFallbackMetric tracks invocations that completed with a fallback substitution.
	ExecuteFallbackMetric = "querypipeline_fallback_operations_total"

	// StatusSuccess indicates successful completion.
	StatusSuccess = "success"

	// StatusFallback indicates successful completion through a fallback substitution.
	StatusFallback = "fallback"

	// StatusError indicates a failed invocation.
	StatusError = "error"

	// StatusCanceled indicates the caller's context was canceled.
	StatusCanceled = "canceled"

	// StatusTimeout indicates a deadline was exceeded.
	StatusTimeout = "timeout"

	// ModeSync labels invocations through ExecuteSync.
	ModeSync = "sync"

	// ModeAsync labels invocations through ExecuteAsync.
	ModeAsync = "async"

	// LogMsgExecuteStarted is logged when an invocation begins.
	LogMsgExecuteStarted = "query pipeline started"

	// LogMsgExecuteCompleted is logged when an invocation succeeds.
	LogMsgExecuteCompleted = "query pipeline completed"

	// LogMsgExecuteFailed is logged when an invocation fails.
	LogMsgExecuteFailed = "query pipeline failed"

	// LogMsgPipelineResolved is logged at debug level with the resolved chain.
	LogMsgPipelineResolved = "query pipeline resolved"

	// LogAttrQueryType identifies the query type in logs and metric labels.
	LogAttrQueryType = "query_type"

	// LogAttrHandlerType identifies the handler type in logs.
	LogAttrHandlerType = "handler_type"

	// LogAttrDecorators lists the resolved decorator types in logs.
	LogAttrDecorators = "decorators"

	// LogAttrCorrelationID identifies the invocation in logs.
	LogAttrCorrelationID = "correlation_id"

	// LogAttrMode distinguishes sync and async invocations.
	LogAttrMode = "mode"

	// LogAttrStatus indicates the invocation status.
	LogAttrStatus = "status"

	// LogAttrDurationMS indicates the processing duration in milliseconds.
	LogAttrDurationMS = "duration_ms"

	// LogAttrError contains error details.
	LogAttrError = "error"

	// LogAttrFallback marks a completion that went through a fallback substitution.
	LogAttrFallback = "fallback"

	// SpanNameExecute is the tracing span name for one pipeline invocation.
	SpanNameExecute = "querypipeline.execute"
)

// Logger interface for basic structured logging with key-value args.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger interface for context-aware logging with automatic trace correlation.
// This interface follows the same dependency-free pattern as MetricsCollector and TracingCollector,
// allowing users to integrate with any logging backend that supports context-based correlation.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MetricsCollector interface for collecting pipeline performance and operational metrics.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// ContextualMetricsCollector extends MetricsCollector with context-aware methods for better tracing integration.
// The pipeline uses the context-aware methods when available and falls back to the base interface.
type ContextualMetricsCollector interface {
	MetricsCollector
	RecordDurationContext(ctx context.Context, metric string, duration time.Duration, labels map[string]string)
	IncrementCounterContext(ctx context.Context, metric string, labels map[string]string)
	RecordValueContext(ctx context.Context, metric string, value float64, labels map[string]string)
}

// SpanContext represents an active tracing span that can be finished and updated with attributes.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector interface for collecting distributed tracing information from pipeline invocations.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

// Observability bundles the optional observability sinks.
// Every field may be nil; the helpers below are no-ops for nil sinks.
type Observability struct {
	Logger           Logger
	ContextualLogger ContextualLogger
	MetricsCollector MetricsCollector
	TracingCollector TracingCollector
}

// BuildLabels creates standard metric labels for pipeline operations.
func BuildLabels(queryType, status string) map[string]string {
	return map[string]string{
		LogAttrQueryType: queryType,
		LogAttrStatus:    status,
	}
}

// ToMilliseconds converts a time.Duration to float64 milliseconds with precision.
func ToMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

// LogInfo logs at info level, preferring the contextual logger.
func (o Observability) LogInfo(ctx context.Context, msg string, args ...any) {
	if o.ContextualLogger != nil {
		o.ContextualLogger.InfoContext(ctx, msg, args...)
	} else if o.Logger != nil {
		o.Logger.Info(msg, args...)
	}
}

// LogDebug logs at debug level, preferring the contextual logger.
func (o Observability) LogDebug(ctx context.Context, msg string, args ...any) {
	if o.ContextualLogger != nil {
		o.ContextualLogger.DebugContext(ctx, msg, args...)
	} else if o.Logger != nil {
		o.Logger.Debug(msg, args...)
	}
}

// LogWarn logs at warn level, preferring the contextual logger.
func (o Observability) LogWarn(ctx context.Context, msg string, args ...any) {
	if o.ContextualLogger != nil {
		o.ContextualLogger.WarnContext(ctx, msg, args...)
	} else if o.Logger != nil {
		o.Logger.Warn(msg, args...)
	}
}

// LogError logs at error level, preferring the contextual logger.
func (o Observability) LogError(ctx context.Context, msg string, args ...any) {
	if o.ContextualLogger != nil {
		o.ContextualLogger.ErrorContext(ctx, msg, args...)
	} else if o.Logger != nil {
		o.Logger.Error(msg, args...)
	}
}

// RecordDuration records a duration metric, preferring the context-aware collector.
func (o Observability) RecordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if o.MetricsCollector == nil {
		return
	}

	if contextualCollector, ok := o.MetricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
	} else {
		o.MetricsCollector.RecordDuration(metric, duration, labels)
	}
}

// IncrementCounter increments a counter metric, preferring the context-aware collector.
func (o Observability) IncrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if o.MetricsCollector == nil {
		return
	}

	if contextualCollector, ok := o.MetricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
	} else {
		o.MetricsCollector.IncrementCounter(metric, labels)
	}
}

// StartSpan starts a tracing span.
// Returns the updated context and span context, or the original context and nil if tracing is disabled.
func (o Observability) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext) {
	if o.TracingCollector == nil {
		return ctx, nil
	}

	return o.TracingCollector.StartSpan(ctx, name, attrs)
}

// FinishSpan completes a tracing span with the operation outcome.
func (o Observability) FinishSpan(span SpanContext, status string, duration time.Duration, err error) {
	if o.TracingCollector == nil || span == nil {
		return
	}

	attrs := map[string]string{
		LogAttrStatus:     status,
		LogAttrDurationMS: fmt.Sprintf("%.2f", ToMilliseconds(duration)),
	}

	if err != nil {
		attrs[LogAttrError] = err.Error()
	}

	o.TracingCollector.FinishSpan(span, status, attrs)
}

// StatusFor classifies an invocation outcome for metrics, spans, and logs.
func StatusFor(err error, bag *Bag) string {
	switch {
	case err == nil && bag != nil && bag.HasFallback():
		return StatusFallback
	case err == nil:
		return StatusSuccess
	case IsCancellationError(err):
		return StatusCanceled
	case IsTimeoutError(err):
		return StatusTimeout
	default:
		return StatusError
	}
}
