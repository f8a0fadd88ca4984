package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

// TracingCollector implements querypipeline.TracingCollector using the OpenTelemetry tracing API.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a collector on tracer.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a span carrying attrs and returns the context holding it.
func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, querypipeline.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan adds attrs, maps status to a span status, and ends the span.
// Spans not started by a TracingCollector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx querypipeline.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(toAttributes(attrs)...)
	otelSpanCtx.SetStatus(status)
	otelSpanCtx.span.End()
}

var _ querypipeline.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext implements querypipeline.SpanContext by wrapping an OpenTelemetry span.
type OTelSpanContext struct {
	span trace.Span
}

// SetStatus maps the pipeline status to an OpenTelemetry status code.
// A fallback substitution is a success for the caller and keeps an Ok status with a marker attribute.
func (s *OTelSpanContext) SetStatus(status string) {
	switch status {
	case querypipeline.StatusSuccess:
		s.span.SetStatus(codes.Ok, "")
	case querypipeline.StatusFallback:
		s.span.SetStatus(codes.Ok, "")
		s.span.SetAttributes(attribute.Bool(querypipeline.LogAttrFallback, true))
	case querypipeline.StatusError:
		s.span.SetStatus(codes.Error, "query failed")
	case querypipeline.StatusCanceled:
		s.span.SetStatus(codes.Error, "query canceled")
	case querypipeline.StatusTimeout:
		s.span.SetStatus(codes.Error, "query timed out")
	default:
		s.span.SetAttributes(attribute.String(querypipeline.LogAttrStatus, status))
	}
}

// AddAttribute adds a string attribute to the span.
func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ querypipeline.SpanContext = (*OTelSpanContext)(nil)
