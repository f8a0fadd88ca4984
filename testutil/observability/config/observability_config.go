package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestObservabilityProviders holds in-memory OpenTelemetry providers for testing.
type TestObservabilityProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	SpanRecorder   *tracetest.SpanRecorder
	MetricReader   *sdkmetric.ManualReader
}

// NewTestObservabilityConfig creates the providers and shuts them down when the test ends.
func NewTestObservabilityConfig(t testing.TB) *TestObservabilityProviders {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()

	providers := &TestObservabilityProviders{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)),
		MeterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		SpanRecorder:   recorder,
		MetricReader:   reader,
	}

	t.Cleanup(func() {
		_ = providers.TracerProvider.Shutdown(context.Background())
		_ = providers.MeterProvider.Shutdown(context.Background())
	})

	return providers
}

// EndedSpans returns the finished spans in end order.
func (p *TestObservabilityProviders) EndedSpans() []sdktrace.ReadOnlySpan {
	return p.SpanRecorder.Ended()
}

// CollectMetric collects all instruments and returns the one named name. The test fails if it is missing.
func (p *TestObservabilityProviders) CollectMetric(t testing.TB, name string) metricdata.Metrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, p.MetricReader.Collect(context.Background(), &resourceMetrics))

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if m.Name == name {
				return m
			}
		}
	}

	require.Failf(t, "metric not collected", "metric %q", name)

	return metricdata.Metrics{}
}
