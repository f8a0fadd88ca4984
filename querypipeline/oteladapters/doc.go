// Package oteladapters provides OpenTelemetry adapters for the querypipeline observability ports.
//
// Adapters:
//   - SlogBridgeLogger: querypipeline.ContextualLogger on log/slog with the OpenTelemetry slog bridge
//   - OTelLogger: querypipeline.ContextualLogger on the OpenTelemetry logs API
//   - MetricsCollector: querypipeline.ContextualMetricsCollector on the OpenTelemetry metrics API
//   - TracingCollector: querypipeline.TracingCollector on the OpenTelemetry tracing API
//
// A plain *slog.Logger already satisfies querypipeline.Logger and querypipeline.ContextualLogger.
//
// Usage:
//
//	processor, err := querypipeline.NewBuilder().
//		// registrations
//		WithOptions(
//			querypipeline.WithContextualLogger(oteladapters.NewSlogBridgeLogger("quotes")),
//			querypipeline.WithMetrics(oteladapters.NewMetricsCollector(otel.Meter("quotes"))),
//			querypipeline.WithTracing(oteladapters.NewTracingCollector(otel.Tracer("quotes"))),
//		).
//		Build()
package oteladapters
