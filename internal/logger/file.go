package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/paircorpus/internal/models"
)

// FileLogger logs run events to files in the log directory.
// It creates a timestamped per-run log, one detail file per pair under
// pairs/, and maintains a latest.log symlink pointing to the most recent run.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	pairsDir string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger writing under logDir at the given level.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	pairsDir := filepath.Join(logDir, "pairs")
	if err := os.MkdirAll(pairsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		pairsDir: pairsDir,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== paircorpus Run Log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// RunFile returns the path of the current run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

// LogDir returns the log directory.
func (fl *FileLogger) LogDir() string {
	return fl.logDir
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogRunStart logs the start of a run at INFO level.
func (fl *FileLogger) LogRunStart(mode string, total int) {
	if !fl.shouldLog("info") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] Starting %s run: %d %s\n", timestamp(), mode, total, plural(total, "pair", "pairs")))
}

// LogPairStart logs the declared paths of a pair at DEBUG level.
func (fl *FileLogger) LogPairStart(pair models.ResolvedPair) {
	fl.logWithLevel("DEBUG", fmt.Sprintf("Pair %s: c=%s [%s] rust=%s [%s]",
		pair.ProgramName,
		pair.C.RepositoryURL, strings.Join(pair.C.SourcePaths, ", "),
		pair.Rust.RepositoryURL, strings.Join(pair.Rust.SourcePaths, ", ")))
}

// LogPairState logs a state transition at DEBUG level.
func (fl *FileLogger) LogPairState(name string, state models.PairState) {
	fl.logWithLevel("DEBUG", fmt.Sprintf("Pair %s: %s", name, state))
}

// LogPairResult writes a one-line result to the run log and a detail file
// pairs/<program>.log.
func (fl *FileLogger) LogPairResult(result models.PairResult) {
	if fl.shouldLog("info") {
		line := fmt.Sprintf("[%s] Pair %s: %s", timestamp(), result.ProgramName, result.Status)
		if !result.Succeeded() {
			line += " - " + result.Reason
		}
		fl.writeRunLog(line + "\n")
	}

	if err := fl.writePairLog(result); err != nil {
		fl.LogWarn(fmt.Sprintf("pair log for %s: %v", result.ProgramName, err))
	}
}

func (fl *FileLogger) writePairLog(result models.PairResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Pair %s ===\n", result.ProgramName)
	fmt.Fprintf(&b, "Status: %s\n", result.Status)
	fmt.Fprintf(&b, "State: %s\n", result.State)
	fmt.Fprintf(&b, "Duration: %.1fs\n", result.Duration.Seconds())
	fmt.Fprintf(&b, "C files: %d\n", result.CFiles)
	fmt.Fprintf(&b, "Rust files: %d\n", result.RustFiles)
	if inv := result.CInventory; inv != nil {
		fmt.Fprintf(&b, "C inventory: %d functions, %d types\n", inv.Functions, inv.Types)
	}
	if inv := result.RustInventory; inv != nil {
		fmt.Fprintf(&b, "Rust inventory: %d functions, %d types\n", inv.Functions, inv.Types)
	}
	if result.Error != nil {
		fmt.Fprintf(&b, "\nError:\n%v\n", result.Error)
	}
	fmt.Fprintf(&b, "\nCompleted at: %s\n", time.Now().Format(time.RFC3339))

	path := filepath.Join(fl.pairsDir, result.ProgramName+".log")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write pair log: %w", err)
	}
	return nil
}

// LogProgress is a no-op: progress is console-only.
func (fl *FileLogger) LogProgress(done, total int) {}

// LogSummary logs the run summary at INFO level.
func (fl *FileLogger) LogSummary(report models.RunReport) {
	if !fl.shouldLog("info") {
		return
	}

	status := "SUCCESS"
	if report.FailedCount() > 0 {
		status = "PARTIAL"
		if report.SucceededCount() == 0 {
			status = "FAILED"
		}
	}

	ts := timestamp()
	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] === RUN SUMMARY ===\n", ts)
	fmt.Fprintf(&b, "[%s] Run ID:       %s\n", ts, report.ID)
	fmt.Fprintf(&b, "[%s] Mode:         %s\n", ts, report.Mode)
	fmt.Fprintf(&b, "[%s] Total pairs:  %d\n", ts, report.Total())
	fmt.Fprintf(&b, "[%s] Succeeded:    %d\n", ts, report.SucceededCount())
	fmt.Fprintf(&b, "[%s] Failed:       %d\n", ts, report.FailedCount())
	fmt.Fprintf(&b, "[%s] Total time:   %.1fs\n", ts, report.Duration().Seconds())
	fmt.Fprintf(&b, "[%s] Status:       %s (%d/%d pairs succeeded)\n", ts, status, report.SucceededCount(), report.Total())
	for _, r := range report.Failed() {
		fmt.Fprintf(&b, "[%s]   - %s: %s\n", ts, r.ProgramName, r.Reason)
	}
	fl.writeRunLog(b.String())
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
