package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/kurve"
)

// colorStyles maps core.Color to lipgloss styles.
var colorStyles = map[core.Color]lipgloss.Style{
	core.ColorDefault:       lipgloss.NewStyle(),
	core.ColorRed:           lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	core.ColorGreen:         lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	core.ColorYellow:        lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	core.ColorBlue:          lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	core.ColorMagenta:       lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	core.ColorCyan:          lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	core.ColorWhite:         lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
	core.ColorBrightRed:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	core.ColorBrightGreen:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	core.ColorBrightYellow:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	core.ColorBrightBlue:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	core.ColorBrightMagenta: lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	core.ColorBrightCyan:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	core.ColorBrightWhite:   lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
	core.ColorOrange:        lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	core.ColorGray:          lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
}

// Arena glyphs.
const (
	glyphTrail     = '█'
	glyphObstacle  = '▒'
	glyphHead      = '●'
	glyphPredicted = '○'
)

// RenderScreen converts a Screen buffer to a styled string for display.
// Adjacent cells of the same color share one style run.
func RenderScreen(s *core.Screen) string {
	var sb strings.Builder
	sb.Grow(s.Width()*s.Height()*2 + s.Height())

	for y := range s.Height() {
		if y > 0 {
			sb.WriteRune('\n')
		}

		x := 0
		for x < s.Width() {
			startColor := s.GetGlyph(x, y).Color

			var run strings.Builder
			for x < s.Width() {
				g := s.GetGlyph(x, y)
				if g.Color != startColor {
					break
				}
				run.WriteRune(g.Rune)
				x++
			}

			style, ok := colorStyles[startColor]
			if !ok {
				style = colorStyles[core.ColorDefault]
			}
			sb.WriteString(style.Render(run.String()))
		}
	}
	return sb.String()
}

// ArenaSize returns the screen size needed to draw v: a status line above
// the bordered arena.
func ArenaSize(v *kurve.View) (w, h int) {
	return v.Width + 2, v.Height + 3
}

// DrawArena draws the status line, border, obstacles, trails and heads of
// v. The arena's cell (0,0) lands at screen (1,2).
func DrawArena(s *core.Screen, v *kurve.View, tickRate int) {
	s.Clear()
	f := &v.Frame

	s.DrawText(0, 0, statusLine(f, tickRate), core.ColorBrightWhite)
	s.DrawBox(core.NewRect(0, 1, v.Width+2, v.Height+2), core.ColorGray)

	const ox, oy = 1, 2
	for _, r := range v.Obstacles {
		for y := r.Y; y < r.Bottom(); y++ {
			for x := r.X; x < r.Right(); x++ {
				s.SetColored(ox+x, oy+y, glyphObstacle, core.ColorGray)
			}
		}
	}

	for i, owner := range v.Grid {
		if owner == core.NoPlayer {
			continue
		}
		s.SetColored(ox+i%v.Width, oy+i/v.Width, glyphTrail, core.PlayerColor(owner))
	}

	if f.State == kurve.StateLobby {
		return
	}
	for _, p := range f.Players {
		if !p.Alive {
			continue
		}
		c := p.Pos.Cell()
		s.SetColored(ox+c.X, oy+c.Y, glyphHead, core.PlayerColor(p.ID))
	}
	if v.HasPrediction {
		c := v.Predicted.Pos.Cell()
		if s.Get(ox+c.X, oy+c.Y) != glyphHead {
			s.SetColored(ox+c.X, oy+c.Y, glyphPredicted, core.PlayerColor(v.Predicted.ID))
		}
	}
}

func statusLine(f *kurve.Frame, tickRate int) string {
	switch f.State {
	case kurve.StateLobby:
		return fmt.Sprintf("Lobby · %d player(s)", len(f.Players))
	case kurve.StateCountdown:
		return fmt.Sprintf("Round %d · starting in %s", f.Round, ticksLeft(f.Timer, tickRate))
	case kurve.StatePlaying:
		return fmt.Sprintf("Round %d · tick %d", f.Round, f.RoundTick)
	case kurve.StateRoundEnd:
		return fmt.Sprintf("Round %d over", f.Round)
	case kurve.StateMatchEnd:
		return "Match over"
	case kurve.StateMatchAborted:
		return "Match aborted"
	default:
		return f.State.String()
	}
}

func ticksLeft(ticks, tickRate int) string {
	if tickRate <= 0 {
		return fmt.Sprintf("%d ticks", ticks)
	}
	return fmt.Sprintf("%ds", (ticks+tickRate-1)/tickRate)
}

// drawOverlay writes centered lines in the middle of the arena.
func drawOverlay(s *core.Screen, lines []string, c core.Color) {
	y := 2 + (s.Height()-3)/2 - len(lines)/2
	for i, line := range lines {
		if line == "" {
			continue
		}
		text := " " + line + " "
		s.DrawTextCentered(y+i, text, c)
	}
}
