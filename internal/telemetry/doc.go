// Package telemetry holds codemate's Prometheus collectors and the
// OpenTelemetry tracer setup.
//
// # Metrics
//
// [NewMetrics] registers every collector on a caller-supplied registry so
// tests can use an isolated one:
//   - codemate_webhook_events_total{platform,state}
//   - codemate_analyzer_runs_total{analyzer,outcome}
//   - codemate_analyzer_duration_seconds{analyzer}
//   - codemate_provider_calls_total{platform,op,status}
//   - codemate_review_score
//
// All Observe methods are safe on a nil *Metrics, which disables collection.
//
// # Tracing
//
// Packages create spans through the global otel tracer provider, which is a
// no-op until [InstallStdoutTracer] replaces it.
package telemetry
