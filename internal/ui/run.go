package ui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"molten/internal/driver"
)

// Track runs work while a progress view over units is shown on out.
// work receives the observer to pass to the driver; the view closes when
// work returns.
func Track(ctx context.Context, out io.Writer, title string, units []string, work func(driver.PhaseObserver) error) error {
	events := make(chan driver.PhaseEvent, 64)
	prog := tea.NewProgram(NewProgressModel(title, units, events), tea.WithOutput(out), tea.WithInput(nil), tea.WithContext(ctx))

	done := make(chan error, 1)
	go func() {
		_, err := prog.Run()
		done <- err
	}()

	workErr := work(func(ev driver.PhaseEvent) { events <- ev })
	close(events)
	if uiErr := <-done; workErr == nil && uiErr != nil && ctx.Err() == nil {
		return uiErr
	}
	return workErr
}
