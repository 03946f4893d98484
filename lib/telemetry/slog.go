package telemetry

import "log/slog"

// InitSlog configures the default logger's level; -v on any of the
// binaries turns on debug logging.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetLogLoggerLevel(level)
}
