package tui

import (
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/paircorpus/internal/models"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func apply(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func TestLoggerForwardsEvents(t *testing.T) {
	rec := &recordingSender{}
	l := NewLogger(rec)

	l.LogDebug("dropped")
	l.LogInfo("info")
	l.LogWarn("careful")
	l.LogRunStart(models.ModeFull, 3)
	l.LogPairStart(models.ResolvedPair{ProgramName: "cat"})
	l.LogPairState("cat", models.StateCloning)
	l.LogPairResult(models.PairResult{ProgramName: "cat", Status: models.StatusSucceeded})
	l.LogProgress(1, 3)
	l.LogSummary(models.RunReport{ID: "r"})

	require.Len(t, rec.msgs, 8)
	assert.Equal(t, logMsg{level: "info", text: "info"}, rec.msgs[0])
	assert.Equal(t, logMsg{level: "warn", text: "careful"}, rec.msgs[1])
	assert.Equal(t, runStartMsg{mode: models.ModeFull, total: 3}, rec.msgs[2])
	assert.Equal(t, pairStartMsg{name: "cat"}, rec.msgs[3])
	assert.Equal(t, pairStateMsg{name: "cat", state: models.StateCloning}, rec.msgs[4])
	assert.Equal(t, progressMsg{done: 1, total: 3}, rec.msgs[6])
}

func TestModelTracksPairs(t *testing.T) {
	m := apply(t, New(nil),
		runStartMsg{mode: models.ModeDemo, total: 3},
		pairStartMsg{name: "wc"},
		pairStartMsg{name: "cat"},
		pairStateMsg{name: "cat", state: models.StateExtracting},
		pairStateMsg{name: "unknown", state: models.StateCloning},
	)

	assert.Len(t, m.active, 2)
	assert.Equal(t, models.StateExtracting, m.active["cat"])
	view := m.View()
	assert.Contains(t, view, "Building corpus (demo)")
	assert.Contains(t, view, "0/3 pairs")
	assert.Contains(t, view, "extracting")
	assert.Contains(t, view, "Press q to interrupt")

	m = apply(t, m,
		pairResultMsg{result: models.PairResult{ProgramName: "cat", Status: models.StatusSucceeded, CFiles: 1, RustFiles: 2}},
		pairResultMsg{result: models.PairResult{ProgramName: "wc", Status: models.StatusFailed, Reason: "cloning: boom"}},
		progressMsg{done: 2, total: 3},
		logMsg{level: "warn", text: "rust side of cat is empty"},
		logMsg{level: "info", text: "ignored"},
	)

	assert.Empty(t, m.active)
	assert.Equal(t, 1, m.failed)
	assert.InDelta(t, 2.0/3.0, m.percent(), 1e-9)
	view = m.View()
	assert.Contains(t, view, "2/3 pairs")
	assert.Contains(t, view, "1 failed")
	assert.Contains(t, view, "✓ cat")
	assert.Contains(t, view, "1 C, 2 Rust files")
	assert.Contains(t, view, "✗ wc")
	assert.Contains(t, view, "cloning: boom")
	assert.Contains(t, view, "rust side of cat is empty")
	assert.NotContains(t, view, "ignored")
}

func TestModelBoundsRecentAndWarnings(t *testing.T) {
	m := New(nil)
	for i := 0; i < maxRecent+3; i++ {
		m = apply(t, m, pairResultMsg{result: models.PairResult{ProgramName: "p", Status: models.StatusSucceeded}})
		m = apply(t, m, logMsg{level: "warn", text: "w"})
	}
	assert.Len(t, m.recent, maxRecent)
	assert.Len(t, m.warnings, maxWarnings)
}

func TestModelInterruptCancelsOnce(t *testing.T) {
	calls := 0
	m := New(func() { calls++ })

	m = apply(t, m, tea.KeyMsg{Type: tea.KeyCtrlC}, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Equal(t, 1, calls)
	assert.True(t, m.interrupted)
	assert.Contains(t, m.View(), "Interrupting")

	next, cmd := m.Update(doneMsg{err: errors.New("run interrupted")})
	require.NotNil(t, cmd)
	m = next.(Model)
	assert.True(t, m.finished)
	assert.Contains(t, m.View(), "Error: run interrupted")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModelFinalView(t *testing.T) {
	started := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	report := models.RunReport{
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Results: []models.PairResult{
			{ProgramName: "cat", Status: models.StatusSucceeded},
			{ProgramName: "ls", Status: models.StatusFailed, Reason: "extracting: missing"},
		},
	}
	m := apply(t, New(nil), summaryMsg{report: report}, doneMsg{})

	view := m.View()
	assert.Contains(t, view, "1/2 pairs succeeded in 1s")
	assert.Contains(t, view, "✗ ls")
	assert.NotContains(t, view, "✓ cat")
	assert.NotContains(t, view, "Error:")
}

func TestWindowSizeBoundsBar(t *testing.T) {
	m := apply(t, New(nil), tea.WindowSizeMsg{Width: 200, Height: 40})
	assert.Equal(t, maxBarWidth, m.bar.Width)

	m = apply(t, m, tea.WindowSizeMsg{Width: 8, Height: 40})
	assert.Equal(t, 10, m.bar.Width)
}
