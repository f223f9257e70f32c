// Package kurve implements the simulation of a continuous-trajectory arena
// game: player movement, trails, collisions, the round/match state machine
// and the fixed-rate tick scheduler that drives them.
//
// All state is owned by the goroutine running the Scheduler. Other
// components talk to it only through an InputSource (inputs in) and a
// FrameSink (committed frames out).
package kurve

import (
	"fmt"

	"github.com/vovakirdan/kurve/internal/config"
	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/registry"
)

// Rules are the immutable parameters of a match, converted from the YAML
// configuration into simulation units.
type Rules struct {
	Width, Height int
	Obstacles     []core.Rect

	TurnRate core.Angle // Heading change per tick while turning
	Speed    core.Fixed // Distance per tick in cells
	SelfGap  uint64     // Own cells younger than this many ticks are ignored

	WinScore       int
	CountdownTicks int
	RoundEndTicks  int
	MinPlayers     int
	Solo           bool
}

// NewRules validates cfg and derives the simulation rules from it.
func NewRules(cfg config.KurveConfig) (Rules, error) {
	if err := cfg.Validate(); err != nil {
		return Rules{}, err
	}
	obstacles, err := registry.Obstacles(cfg.Arena.Layout, cfg.Arena.Width, cfg.Arena.Height)
	if err != nil {
		return Rules{}, fmt.Errorf("kurve: %w", err)
	}

	return Rules{
		Width:          cfg.Arena.Width,
		Height:         cfg.Arena.Height,
		Obstacles:      obstacles,
		TurnRate:       core.AngleFromDegrees(cfg.Physics.TurnRate),
		Speed:          core.FromFloat(cfg.Physics.Speed),
		SelfGap:        uint64(cfg.Physics.SelfGapTicks),
		WinScore:       cfg.Match.WinScore,
		CountdownTicks: cfg.Match.CountdownTicks,
		RoundEndTicks:  cfg.Match.RoundEndTicks,
		MinPlayers:     cfg.Match.MinPlayers,
		Solo:           cfg.Match.Solo,
	}, nil
}

// Bounds returns the arena rectangle in cells.
func (r Rules) Bounds() core.Rect {
	return core.NewRect(0, 0, r.Width, r.Height)
}

// Blocked reports whether c is outside the arena or inside a static obstacle.
func (r Rules) Blocked(c core.Cell) bool {
	if !r.Bounds().ContainsCell(c) {
		return true
	}
	for _, o := range r.Obstacles {
		if o.ContainsCell(c) {
			return true
		}
	}
	return false
}

// spawnInset is the distance of the first spawn point from the top-left corner.
const spawnInset = 3

// Spawn returns the start position and heading of a player slot.
// Slots are placed in the corners, each heading to the arena centre;
// slot 2 is the exact point reflection of slot 1 (and 4 of 3) so that
// opposite players meet symmetrically.
func (r Rules) Spawn(id core.PlayerID) (core.Vec, core.Angle) {
	w, h := core.FromInt(r.Width), core.FromInt(r.Height)
	first := core.Cell{X: spawnInset, Y: spawnInset}.Center()
	centre := core.Vec{X: w / 2, Y: h / 2}
	heading := core.AngleTowards(first, centre)

	switch id {
	case 2:
		return core.Vec{X: w - first.X, Y: h - first.Y}, heading.Add(core.HalfTurn)
	case 3:
		return core.Vec{X: w - first.X, Y: first.Y}, (core.HalfTurn - heading).Normalize()
	case 4:
		return core.Vec{X: first.X, Y: h - first.Y}, (-heading).Normalize()
	default:
		return first, heading
	}
}
