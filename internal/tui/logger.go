package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harrison/paircorpus/internal/models"
)

// sender is the part of *tea.Program the logger needs.
type sender interface {
	Send(msg tea.Msg)
}

// Logger forwards run events to a running program as messages.
// Debug output is dropped; the console and file loggers keep it.
type Logger struct {
	p sender
}

// NewLogger creates a Logger bound to p.
func NewLogger(p sender) *Logger {
	return &Logger{p: p}
}

func (l *Logger) LogDebug(string) {}

func (l *Logger) LogInfo(message string) {
	l.p.Send(logMsg{level: "info", text: message})
}

func (l *Logger) LogWarn(message string) {
	l.p.Send(logMsg{level: "warn", text: message})
}

func (l *Logger) LogError(message string) {
	l.p.Send(logMsg{level: "error", text: message})
}

func (l *Logger) LogRunStart(mode string, total int) {
	l.p.Send(runStartMsg{mode: mode, total: total})
}

func (l *Logger) LogPairStart(pair models.ResolvedPair) {
	l.p.Send(pairStartMsg{name: pair.ProgramName})
}

func (l *Logger) LogPairState(name string, state models.PairState) {
	l.p.Send(pairStateMsg{name: name, state: state})
}

func (l *Logger) LogPairResult(result models.PairResult) {
	l.p.Send(pairResultMsg{result: result})
}

func (l *Logger) LogProgress(done, total int) {
	l.p.Send(progressMsg{done: done, total: total})
}

func (l *Logger) LogSummary(report models.RunReport) {
	l.p.Send(summaryMsg{report: report})
}
