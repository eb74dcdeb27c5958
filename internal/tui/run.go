package tui

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the progress view on out while work executes in the background.
// work receives a Logger bound to the view; cancel is invoked when the user
// interrupts. The error returned by work is returned unchanged.
func Run(out io.Writer, cancel func(), work func(*Logger) error) error {
	p := tea.NewProgram(New(cancel), tea.WithOutput(out))

	errCh := make(chan error, 1)
	go func() {
		err := work(NewLogger(p))
		errCh <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		if cancel != nil {
			cancel()
		}
		return errors.Join(<-errCh, err)
	}
	return <-errCh
}
