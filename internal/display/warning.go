package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Items      []string // Individual problems, numbered (optional)
	Suggestion string   // Action to take (optional)
}

// Display writes the warning to out.
func (w Warning) Display(out io.Writer) {
	fmt.Fprint(out, w.Render())
}

// Render returns the formatted warning.
func (w Warning) Render() string {
	var b strings.Builder

	b.WriteString(warnStyle.Render("Warning: " + w.Title))
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	for i, item := range w.Items {
		fmt.Fprintf(&b, "    %d. %s\n", i+1, item)
	}

	if w.Suggestion != "" {
		b.WriteString("    ")
		b.WriteString(dimStyle.Render("Suggestion: " + w.Suggestion))
		b.WriteString("\n")
	}

	return b.String()
}

// WarnErrors builds a warning listing each error on its own line.
func WarnErrors(title string, errs []error) Warning {
	items := make([]string, 0, len(errs))
	for _, err := range errs {
		items = append(items, err.Error())
	}
	return Warning{Title: title, Items: items}
}
