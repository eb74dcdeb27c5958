// Package display renders run reports and user-facing messages.
//
// A finished run is summarized once as Markdown, and that document is the
// source for every other rendering:
//
//	md := display.Markdown(report)
//	page, err := display.HTML(md)        // report.html in the log directory
//	out, err := display.Terminal(md, 100) // glamour rendering for a TTY
//
// Tabular listings such as run history use Table, and load or validation
// problems are shown with Warning.
package display
