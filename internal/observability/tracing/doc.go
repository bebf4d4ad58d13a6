// Package tracing wraps the OpenTelemetry tracer used around report stages.
//
// No exporter is configured by default, so the global provider is a no-op
// and spans cost nothing. Installing an SDK provider with otel.SetTracerProvider
// makes every stage span visible without code changes.
//
// Example usage:
//
//	ctx, span := tracing.StartSpan(ctx, "market.fetch", attribute.Int("assets", 4))
//	defer func() { tracing.EndSpan(span, err) }()
package tracing
