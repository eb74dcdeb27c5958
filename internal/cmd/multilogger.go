package cmd

import (
	"sync"

	"github.com/harrison/paircorpus/internal/builder"
	"github.com/harrison/paircorpus/internal/models"
)

// runLogger is what every sink of a run must handle.
type runLogger = builder.Logger

// multiLogger implements builder.Logger and repocache.Logger by delegating to
// multiple loggers
type multiLogger struct {
	mu      sync.RWMutex
	loggers []runLogger
}

func (ml *multiLogger) add(l runLogger) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.loggers = append(ml.loggers, l)
}

func (ml *multiLogger) each(fn func(runLogger)) {
	ml.mu.RLock()
	defer ml.mu.RUnlock()
	for _, l := range ml.loggers {
		fn(l)
	}
}

func (ml *multiLogger) LogDebug(message string) {
	ml.each(func(l runLogger) { l.LogDebug(message) })
}

func (ml *multiLogger) LogInfo(message string) {
	ml.each(func(l runLogger) { l.LogInfo(message) })
}

func (ml *multiLogger) LogWarn(message string) {
	ml.each(func(l runLogger) { l.LogWarn(message) })
}

func (ml *multiLogger) LogRunStart(mode string, total int) {
	ml.each(func(l runLogger) { l.LogRunStart(mode, total) })
}

func (ml *multiLogger) LogPairStart(pair models.ResolvedPair) {
	ml.each(func(l runLogger) { l.LogPairStart(pair) })
}

func (ml *multiLogger) LogPairState(name string, state models.PairState) {
	ml.each(func(l runLogger) { l.LogPairState(name, state) })
}

func (ml *multiLogger) LogPairResult(result models.PairResult) {
	ml.each(func(l runLogger) { l.LogPairResult(result) })
}

func (ml *multiLogger) LogProgress(done, total int) {
	ml.each(func(l runLogger) { l.LogProgress(done, total) })
}

func (ml *multiLogger) LogSummary(report models.RunReport) {
	ml.each(func(l runLogger) { l.LogSummary(report) })
}
