// Package telemetry wraps OpenTelemetry SDK initialization, providing the
// TracerProvider and MeterProvider webpilot exports spans and metrics
// through. When telemetry is disabled, noop implementations are used and no
// external service is contacted.
package telemetry
