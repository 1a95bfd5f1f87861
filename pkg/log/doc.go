/*
Package log provides structured logging for Cutover using zerolog.

The log package wraps the zerolog library to provide JSON-structured
logging with component-specific loggers, configurable log levels, and
helper functions for common logging patterns. All logs include
timestamps and support filtering by severity level.

# Usage

Initialize once at startup:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: false,
	})

Create child loggers that stamp every entry with run context:

	logger := log.WithComponent("coordinator")
	logger.Info().Str("stage", "verification").Msg("stage complete")

WithRunID builds the per-rollout child used to correlate a single run
across components; further fields are chained with zerolog's With().

Console output is the default for interactive CLI use; JSON output is
for collection by a log pipeline. Level filtering is global.
*/
package log
