// Package otel reserves the integration point for an OpenTelemetry-backed
// task.Observer. It currently ships only a no-op implementation.
package otel
