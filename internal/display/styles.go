package display

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/harrison/paircorpus/internal/models"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Summary returns a one-line styled outcome of a run.
func Summary(report *models.RunReport) string {
	if report == nil {
		return ""
	}
	line := okStyle.Render(fmt.Sprintf("%d succeeded", report.SucceededCount()))
	if n := report.FailedCount(); n > 0 {
		line += ", " + errStyle.Render(fmt.Sprintf("%d failed", n))
	}
	return fmt.Sprintf("%s of %d pairs in %s", line, report.Total(), report.Duration().Round(time.Millisecond))
}

// Table renders rows under headers with a rounded border.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}
