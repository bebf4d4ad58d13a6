// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for the patterns used by the report worker.
//
// Key features:
//   - JSON and text output formats
//   - Output to stdout and a rotated log file
//   - Run ID propagation through context
//   - Credential masking for errors and URLs
//
// Example usage:
//
//	logger, closer, err := logging.NewLogger(logging.Options{Level: "info", File: "crypto_report.log"})
//	if err != nil {
//	    os.Exit(1)
//	}
//	defer closer.Close()
//
//	runLogger := logging.WithRunID(logger, uuid.NewString())
//	ctx = logging.WithLogger(ctx, runLogger)
package logging
