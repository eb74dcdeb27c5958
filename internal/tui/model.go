// Package tui shows an interactive progress view while a corpus run is in flight.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harrison/paircorpus/internal/models"
)

const (
	maxRecent   = 8
	maxWarnings = 5
	maxBarWidth = 60
)

// Model is the Bubble Tea model for a run.
type Model struct {
	spinner spinner.Model
	bar     progress.Model
	cancel  func()

	mode     string
	total    int
	done     int
	failed   int
	active   map[string]models.PairState
	recent   []models.PairResult
	warnings []string
	report   *models.RunReport

	interrupted bool
	finished    bool
	err         error
}

// New creates a model. cancel is called when the user interrupts the run.
func New(cancel func()) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		cancel:  cancel,
		active:  make(map[string]models.PairState),
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-4, 10), maxBarWidth)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.finished {
				return m, tea.Quit
			}
			if !m.interrupted && m.cancel != nil {
				m.cancel()
			}
			m.interrupted = true
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case runStartMsg:
		m.mode = msg.mode
		m.total = msg.total
		return m, nil

	case pairStartMsg:
		m.active[msg.name] = models.StatePending
		return m, nil

	case pairStateMsg:
		if _, ok := m.active[msg.name]; ok {
			m.active[msg.name] = msg.state
		}
		return m, nil

	case pairResultMsg:
		delete(m.active, msg.result.ProgramName)
		if !msg.result.Succeeded() {
			m.failed++
		}
		m.recent = append(m.recent, msg.result)
		if len(m.recent) > maxRecent {
			m.recent = m.recent[len(m.recent)-maxRecent:]
		}
		return m, nil

	case progressMsg:
		m.done = msg.done
		m.total = msg.total
		return m, nil

	case logMsg:
		if msg.level == "info" {
			return m, nil
		}
		m.warnings = append(m.warnings, msg.text)
		if len(m.warnings) > maxWarnings {
			m.warnings = m.warnings[len(m.warnings)-maxWarnings:]
		}
		return m, nil

	case summaryMsg:
		report := msg.report
		m.report = &report
		return m, nil

	case doneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

func (m Model) View() string {
	var b strings.Builder

	title := "Building corpus"
	if m.mode != "" {
		title += " (" + m.mode + ")"
	}
	b.WriteString("\n  " + titleStyle.Render(title) + "\n\n")

	if m.finished {
		b.WriteString(m.finalView())
		return b.String()
	}

	fmt.Fprintf(&b, "  %s %d/%d pairs", m.spinner.View(), m.done, m.total)
	if m.failed > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("  %d failed", m.failed)))
	}
	b.WriteString("\n  " + m.bar.ViewAs(m.percent()) + "\n\n")

	names := make([]string, 0, len(m.active))
	for name := range m.active {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %s %s\n", dimStyle.Render(fmt.Sprintf("%-10s", m.active[name])), name)
	}
	if len(names) > 0 {
		b.WriteString("\n")
	}

	for _, r := range m.recent {
		b.WriteString("  " + resultLine(r) + "\n")
	}

	for _, w := range m.warnings {
		b.WriteString("  " + warnStyle.Render(w) + "\n")
	}

	if m.interrupted {
		b.WriteString("\n  " + warnStyle.Render("Interrupting, waiting for running pairs...") + "\n")
	} else {
		b.WriteString("\n  " + dimStyle.Render("Press q to interrupt") + "\n")
	}
	return b.String()
}

func (m Model) finalView() string {
	var b strings.Builder
	if m.report != nil {
		line := fmt.Sprintf("%d/%d pairs succeeded in %s",
			m.report.SucceededCount(), m.report.Total(), m.report.Duration().Round(time.Millisecond))
		if m.report.FailedCount() > 0 {
			b.WriteString("  " + errorStyle.Render(line) + "\n")
			for _, r := range m.report.Failed() {
				b.WriteString("  " + resultLine(r) + "\n")
			}
		} else {
			b.WriteString("  " + successStyle.Render(line) + "\n")
		}
	}
	if m.err != nil {
		b.WriteString("  " + errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	return b.String()
}

func resultLine(r models.PairResult) string {
	if r.Succeeded() {
		return successStyle.Render("✓ "+r.ProgramName) +
			dimStyle.Render(fmt.Sprintf(" %d C, %d Rust files", r.CFiles, r.RustFiles))
	}
	return errorStyle.Render("✗ "+r.ProgramName) + dimStyle.Render(" "+r.Reason)
}
