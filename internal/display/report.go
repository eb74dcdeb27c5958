package display

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harrison/paircorpus/internal/models"
)

// Markdown renders a run report as a GitHub-flavored Markdown document.
func Markdown(report *models.RunReport) string {
	if report == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Run %s\n\n", report.ID)

	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Mode | %s |\n", escapeCell(report.Mode))
	fmt.Fprintf(&b, "| Output | %s |\n", escapeCell(report.OutputRoot))
	fmt.Fprintf(&b, "| Started | %s |\n", report.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "| Duration | %s |\n", report.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "| Pairs | %d (%d succeeded, %d failed) |\n\n",
		report.Total(), report.SucceededCount(), report.FailedCount())

	if report.Total() == 0 {
		b.WriteString("No pairs were processed.\n")
		return b.String()
	}

	b.WriteString("## Pairs\n\n")
	b.WriteString("| Program | Status | C files | Rust files | C functions | C types | Rust functions | Rust types | Duration |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, r := range report.Results {
		cFuncs, cTypes := inventoryCells(r.CInventory)
		rustFuncs, rustTypes := inventoryCells(r.RustInventory)
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %s | %s | %s | %s | %s |\n",
			escapeCell(r.ProgramName), r.Status, r.CFiles, r.RustFiles,
			cFuncs, cTypes, rustFuncs, rustTypes, r.Duration.Round(time.Millisecond))
	}

	failed := report.Failed()
	if len(failed) > 0 {
		b.WriteString("\n## Failures\n\n")
		for _, r := range failed {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", r.ProgramName, r.State, oneLine(r.Reason))
		}
	}
	return b.String()
}

func inventoryCells(inv *models.SourceInventory) (string, string) {
	if inv == nil {
		return "-", "-"
	}
	return fmt.Sprint(inv.Functions), fmt.Sprint(inv.Types)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// HTML converts a Markdown report into a standalone HTML page.
func HTML(markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}

	title := "paircorpus report"
	if first, _, ok := strings.Cut(markdown, "\n"); ok && strings.HasPrefix(first, "# ") {
		title = strings.TrimPrefix(first, "# ")
	}

	var page strings.Builder
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(title))
	page.WriteString("<style>body{font-family:sans-serif;margin:2em}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:4px 8px}</style>\n")
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.String(), nil
}

// Terminal renders Markdown for a terminal of the given width.
func Terminal(markdown string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
