package main

import (
	"fmt"
	"os"

	"github.com/ZebulonRouseFrantzich/fetchkit/internal/progress"
)

// stderrLogger writes structured log lines to stderr. Wired in behind
// the -v flag; the pipeline runs on a no-op logger otherwise.
type stderrLogger struct{}

func (stderrLogger) Debug(msg string, keysAndValues ...interface{}) {
	logLine("DEBUG", msg, keysAndValues)
}

func (stderrLogger) Info(msg string, keysAndValues ...interface{}) {
	logLine("INFO", msg, keysAndValues)
}

func (stderrLogger) Warn(msg string, keysAndValues ...interface{}) {
	logLine("WARN", msg, keysAndValues)
}

func (stderrLogger) Error(msg string, keysAndValues ...interface{}) {
	logLine("ERROR", msg, keysAndValues)
}

func logLine(level, msg string, keysAndValues []interface{}) {
	fmt.Fprintf(os.Stderr, "[%s] %s", level, msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(os.Stderr, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	fmt.Fprintln(os.Stderr)
}

// pickLogger returns the stderr logger when verbose, the no-op
// logger otherwise.
func pickLogger(verbose bool) progress.Logger {
	if verbose {
		return stderrLogger{}
	}
	return progress.NopLogger()
}
