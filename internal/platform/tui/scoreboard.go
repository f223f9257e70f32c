package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/kurve"
)

// Scoreboard layout constants
const (
	scoreboardWidth    = 34 // Sum of column widths plus padding
	minWidthForSidebar = 40 // Extra columns needed to place the board beside the arena
)

// Scoreboard lists the players of a frame with their score and status.
type Scoreboard struct {
	table table.Model
}

// NewScoreboard creates an unfocused player table.
func NewScoreboard() Scoreboard {
	columns := []table.Column{
		{Title: "#", Width: 2},
		{Title: "Player", Width: 14},
		{Title: "Score", Width: 5},
		{Title: "Status", Width: 9},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(core.MaxPlayers+1),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Cell
	t.SetStyles(s)

	return Scoreboard{table: t}
}

// Update refreshes the rows from f.
func (b *Scoreboard) Update(f *kurve.Frame) {
	rows := make([]table.Row, 0, len(f.Players))
	for _, p := range f.Players {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", p.ID),
			p.Name,
			fmt.Sprintf("%d", p.Score),
			playerStatus(f.State, p),
		})
	}
	b.table.SetRows(rows)
}

// View renders the table in a rounded border.
func (b Scoreboard) View() string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Render(b.table.View())
}

func playerStatus(state kurve.State, p kurve.PlayerState) string {
	switch {
	case !p.Connected:
		return "gone"
	case state == kurve.StateLobby && p.Ready:
		return "ready"
	case state == kurve.StateLobby:
		return "waiting"
	case p.Alive:
		return "alive"
	default:
		return "crashed"
	}
}
