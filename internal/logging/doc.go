// Package logging provides structured logging utilities for flushfinder.
//
// It configures the process-wide slog logger from the command-line settings
// and supplies consistent attribute helpers so that every stage of a run logs
// the same keys:
//
//	logger := logging.WithOperation(slog.Default(), "report.run")
//	logger.Info("building reported",
//	    logging.Building(brn),
//	    logging.Status(logging.StatusSuccess))
//
// Bearer tokens and client secrets must never be logged directly; use
// SanitizeToken.
package logging
