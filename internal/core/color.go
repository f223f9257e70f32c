package core

// Color represents a foreground color for a screen cell.
// Uses ANSI 256-color codes for terminal compatibility.
type Color uint8

// Predefined colors for game elements.
const (
	ColorDefault Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
	ColorBrightRed
	ColorBrightGreen
	ColorBrightYellow
	ColorBrightBlue
	ColorBrightMagenta
	ColorBrightCyan
	ColorBrightWhite
	ColorOrange
	ColorGray
)

// playerColors assigns a trail color per player slot.
var playerColors = [MaxPlayers + 1]Color{
	NoPlayer: ColorGray,
	1:        ColorBrightBlue,
	2:        ColorBrightGreen,
	3:        ColorBrightMagenta,
	4:        ColorOrange,
}

// PlayerColor returns the trail color of a player.
func PlayerColor(id PlayerID) Color {
	if !id.Valid() {
		return ColorGray
	}
	return playerColors[id]
}
