// Package tui is the terminal front end of kurve: it renders match views
// with Bubble Tea, turns key presses into control events for local seats
// and serves the game over SSH with Wish.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TickMsg triggers a redraw and expires held keys.
type TickMsg time.Time

// tickCmd returns a Bubble Tea command that sends tick messages at the specified rate.
func tickCmd(frameRate int) tea.Cmd {
	interval := time.Second / time.Duration(frameRate)
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// doneMsg is sent once the match or connection behind the model is gone.
type doneMsg struct{}

func waitDone(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return doneMsg{}
	}
}
