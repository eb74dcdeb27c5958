// Package logger provides logging implementations for corpus runs.
//
// ConsoleLogger writes timestamped, optionally colorized progress to a
// terminal; FileLogger keeps a per-run log under the log directory. Both
// filter by level and are safe for concurrent use by builder workers.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/paircorpus/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive); anything else means info.
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal reports whether w is os.Stdout or os.Stderr and colors are enabled.
// fatih/color sets NoColor when the stream is not a TTY or NO_COLOR is set.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		return !color.NoColor
	}
	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel writes "[HH:MM:SS] [LEVEL] message" if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	levelText := level
	if cl.colorOutput {
		levelText = levelColor(level).Sprint(level)
	}
	cl.write(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), levelText, message))
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}

func (cl *ConsoleLogger) write(s string) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	cl.writer.Write([]byte(s))
}

// LogRunStart logs the start of a run at INFO level.
// Format: "[HH:MM:SS] Starting <mode> run: <total> pairs"
func (cl *ConsoleLogger) LogRunStart(mode string, total int) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	modeText := mode
	if cl.colorOutput {
		modeText = color.New(color.Bold).Sprint(mode)
	}
	cl.write(fmt.Sprintf("[%s] Starting %s run: %d %s\n", timestamp(), modeText, total, plural(total, "pair", "pairs")))
}

// LogPairStart logs that a pair was picked up by a worker, at DEBUG level.
func (cl *ConsoleLogger) LogPairStart(pair models.ResolvedPair) {
	cl.logWithLevel("DEBUG", fmt.Sprintf("Pair %s: %d C path(s), %d Rust path(s)",
		pair.ProgramName, len(pair.C.SourcePaths), len(pair.Rust.SourcePaths)))
}

// LogPairState logs a state transition at DEBUG level.
func (cl *ConsoleLogger) LogPairState(name string, state models.PairState) {
	cl.logWithLevel("DEBUG", fmt.Sprintf("Pair %s: %s", name, state))
}

// LogPairResult logs the outcome of a pair at INFO level.
// Format: "[HH:MM:SS] Pair <name>: SUCCEEDED (c: N files, rust: M files)"
// or "[HH:MM:SS] Pair <name>: FAILED - <reason>"
func (cl *ConsoleLogger) LogPairResult(result models.PairResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	status := result.Status
	if cl.colorOutput {
		if result.Succeeded() {
			status = color.New(color.FgGreen).Sprint(status)
		} else {
			status = color.New(color.FgRed).Sprint(status)
		}
	}

	var detail string
	if result.Succeeded() {
		detail = fmt.Sprintf(" (c: %d files, rust: %d files, %s)", result.CFiles, result.RustFiles, formatDuration(result.Duration))
	} else {
		detail = " - " + result.Reason
	}
	cl.write(fmt.Sprintf("[%s] Pair %s: %s%s\n", timestamp(), result.ProgramName, status, detail))
}

// LogProgress logs run progress at INFO level.
// Format: "[HH:MM:SS] Progress: [=====     ] 4/8 (50%)"
func (cl *ConsoleLogger) LogProgress(done, total int) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	pb := NewProgressBar(total, 20, cl.colorOutput)
	pb.Update(done)
	cl.write(fmt.Sprintf("[%s] Progress: %s\n", timestamp(), pb.Render()))
}

// LogSummary logs the run summary with per-pair failures at INFO level.
func (cl *ConsoleLogger) LogSummary(report models.RunReport) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	ts := timestamp()
	header := "=== Run Summary ==="
	succeeded := fmt.Sprintf("Succeeded: %d", report.SucceededCount())
	failed := fmt.Sprintf("Failed: %d", report.FailedCount())
	failedHeader := "Failed pairs:"
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
		succeeded = color.New(color.FgGreen).Sprint(succeeded)
		if report.FailedCount() > 0 {
			failed = color.New(color.FgRed).Sprint(failed)
			failedHeader = color.New(color.FgRed).Sprint(failedHeader)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ts, header)
	fmt.Fprintf(&b, "[%s] Mode: %s\n", ts, report.Mode)
	fmt.Fprintf(&b, "[%s] Total pairs: %d\n", ts, report.Total())
	fmt.Fprintf(&b, "[%s] %s\n", ts, succeeded)
	fmt.Fprintf(&b, "[%s] %s\n", ts, failed)
	fmt.Fprintf(&b, "[%s] Duration: %s\n", ts, formatDuration(report.Duration()))

	if failedResults := report.Failed(); len(failedResults) > 0 {
		fmt.Fprintf(&b, "[%s] %s\n", ts, failedHeader)
		for _, r := range failedResults {
			fmt.Fprintf(&b, "[%s]   - %s: %s\n", ts, r.ProgramName, r.Reason)
		}
	}

	cl.write(b.String())
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		seconds := (d % time.Minute) / time.Second
		switch {
		case minutes == 0 && seconds == 0:
			return fmt.Sprintf("%dh", hours)
		case seconds == 0:
			return fmt.Sprintf("%dh%dm", hours, minutes)
		default:
			return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
		}
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// NoOpLogger discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(string) {}

func (n *NoOpLogger) LogDebug(string) {}

func (n *NoOpLogger) LogInfo(string) {}

func (n *NoOpLogger) LogWarn(string) {}

func (n *NoOpLogger) LogError(string) {}

func (n *NoOpLogger) LogRunStart(string, int) {}

func (n *NoOpLogger) LogPairStart(models.ResolvedPair) {}

func (n *NoOpLogger) LogPairState(string, models.PairState) {}

func (n *NoOpLogger) LogPairResult(models.PairResult) {}

func (n *NoOpLogger) LogProgress(int, int) {}

func (n *NoOpLogger) LogSummary(models.RunReport) {}
