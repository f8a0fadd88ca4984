// Package config provides observability configuration for query pipeline testing.
//
// It sets up OpenTelemetry SDK providers that keep telemetry in memory: a span recorder for
// traces and a manual reader for metrics. Tests use them to verify that the OpenTelemetry
// adapters emit the expected spans and instruments without external infrastructure.
package config
