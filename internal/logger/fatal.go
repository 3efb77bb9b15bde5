package logger

import (
	"log/slog"
	"os"
)

// Process exit codes reported by Fatal
const (
	ExitStartFailed = 1
	ExitSetupFailed = 2
)

var exit = os.Exit

// Fatal logs msg at error level with the exit code attached, runs cleanup so the
// rotating log file is flushed, then exits. Deferred calls in main do not run.
func Fatal(logger *slog.Logger, cleanup func(), code int, msg string, args ...any) {
	logger.Error(msg, append(args, "exit_code", code)...)
	if cleanup != nil {
		cleanup()
	}
	exit(code)
}
