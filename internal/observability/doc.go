// Package observability groups logging and tracing for the report worker.
//
// Subpackages:
//   - logging: slog construction, run-scoped loggers, credential masking
//   - tracing: OpenTelemetry spans around pipeline stages
//
// Prometheus metrics live next to the worker in internal/infra/worker.
package observability
