// Package logging provides structured logging for the Adax client.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used by the request executor, the write coalescer and the
// local bridge.
//
// # Log Levels
//
//   - Debug: every request and response, flush scheduling, skipped updates
//   - Info: bridge lifecycle, configuration changes
//   - Warn: rate-limited responses, abandoned flushes
//   - Error: exhausted retries, failed credential exchanges
//
// # Configuration
//
// Logging is silent unless a level is given explicitly or ADAX_LOG_LEVEL is set:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Logs go to stderr so JSON output of the CLI stays clean on stdout.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. SetLogger may be called
// at any time to swap the underlying logger.
package logging
