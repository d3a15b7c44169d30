// Package log provides the leveled logging interface used across courseqa.
//
// Every workflow, store and client logs through the Logger interface so the
// CLI can switch between verbose, quiet and debug output without touching the
// components themselves.
//
// # Log Levels
//
//   - LogLevelDebug: detailed troubleshooting output (prompts, tool args)
//   - LogLevelInfo: normal workflow progress
//   - LogLevelWarn: recoverable problems such as a skipped course
//   - LogLevelError: failures that were replaced by a default value
//   - LogLevelNone: disables all output
//
// # Example Usage
//
//	logger := log.NewGologLogger(golog.New())
//	logger.SetLevel(log.LogLevelDebug)
//	log.SetDefaultLogger(logger)
//
//	wf := log.Named("stage3-hierarchical")
//	wf.Info("classifying intent for %q", query)
//
// Named loggers resolve the package default on every call, so a logger
// captured before SetDefaultLogger still honours later level changes.
package log
