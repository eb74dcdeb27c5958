package display

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/paircorpus/internal/models"
)

func sampleReport() *models.RunReport {
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.RunReport{
		ID:         "3f2a",
		Mode:       models.ModeFull,
		OutputRoot: "/work/programs",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Results: []models.PairResult{
			{
				ProgramName:   "cat",
				Status:        models.StatusSucceeded,
				State:         models.StateDone,
				CFiles:        1,
				RustFiles:     1,
				CInventory:    &models.SourceInventory{Files: 1, Functions: 5, Types: 2},
				RustInventory: &models.SourceInventory{Files: 1, Functions: 3, Types: 1},
			},
			{
				ProgramName: "ls",
				Status:      models.StatusFailed,
				State:       models.StateCloning,
				Reason:      "cloning: exit status 128 | fatal",
			},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleReport())

	assert.True(t, strings.HasPrefix(md, "# Run 3f2a\n"))
	assert.Contains(t, md, "| Pairs | 2 (1 succeeded, 1 failed) |")
	assert.Contains(t, md, "| Duration | 2s |")
	assert.Contains(t, md, "| cat | SUCCEEDED | 1 | 1 | 5 | 2 | 3 | 1 | 0s |")
	assert.Contains(t, md, "| ls | FAILED | 0 | 0 | - | - | - | - | 0s |")
	assert.Contains(t, md, "## Failures")
	assert.Contains(t, md, "- **ls** (cloning): cloning: exit status 128 | fatal")
}

func TestMarkdownEmptyAndNil(t *testing.T) {
	assert.Equal(t, "", Markdown(nil))

	md := Markdown(&models.RunReport{ID: "x", Mode: models.ModeDemo})
	assert.Contains(t, md, "No pairs were processed.")
	assert.NotContains(t, md, "## Pairs")
}

func TestEscapeCell(t *testing.T) {
	assert.Equal(t, `a \| b`, escapeCell("a |\n b"))
	assert.Equal(t, "plain", escapeCell("plain"))
}

func TestHTML(t *testing.T) {
	page, err := HTML(Markdown(sampleReport()))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "<title>Run 3f2a</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<td>cat</td>")
	assert.Contains(t, page, "<strong>ls</strong>")
}

func TestHTMLDefaultTitle(t *testing.T) {
	page, err := HTML("no heading here\n")
	require.NoError(t, err)
	assert.Contains(t, page, "<title>paircorpus report</title>")
	assert.Contains(t, page, "<p>no heading here</p>")
}

func TestTerminal(t *testing.T) {
	out, err := Terminal(Markdown(sampleReport()), 0)
	require.NoError(t, err)
	assert.Contains(t, out, "Run 3f2a")
	assert.Contains(t, out, "Failures")
}

func TestSummary(t *testing.T) {
	line := Summary(sampleReport())
	assert.Contains(t, line, "1 succeeded")
	assert.Contains(t, line, "1 failed")
	assert.Contains(t, line, "of 2 pairs")

	assert.Empty(t, Summary(nil))

	clean := &models.RunReport{Results: []models.PairResult{{Status: models.StatusSucceeded}}}
	assert.NotContains(t, Summary(clean), "failed")
}

func TestTable(t *testing.T) {
	out := Table([]string{"ID", "Mode"}, [][]string{{"abc", "full"}, {"def", "demo"}})
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "abc")
	assert.Contains(t, out, "demo")
	assert.True(t, strings.HasPrefix(out, "╭"))
}

func TestWarning(t *testing.T) {
	var buf bytes.Buffer
	w := WarnErrors("2 metadata problems", []error{errors.New("a.json: bad"), errors.New("b.yaml: worse")})
	w.Suggestion = "run paircorpus validate"
	w.Display(&buf)

	out := buf.String()
	assert.Contains(t, out, "Warning: 2 metadata problems")
	assert.Contains(t, out, "    1. a.json: bad\n")
	assert.Contains(t, out, "    2. b.yaml: worse\n")
	assert.Contains(t, out, "Suggestion: run paircorpus validate")
}

func TestWarningTitleOnly(t *testing.T) {
	out := Warning{Title: "nothing to do"}.Render()
	assert.Contains(t, out, "nothing to do")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}
