// Package testdoubles provides test doubles (spies) for the querypipeline observability ports.
//
//   - LoggerSpy: captures basic logging calls
//   - ContextualLoggerSpy: captures context-aware logging calls
//   - MetricsCollectorSpy: captures metrics calls, with a fluent matcher on labels
//   - TracingCollectorSpy: captures spans, with a fluent matcher on status and attributes
//
// All spies are safe for concurrent use.
package testdoubles
