package kurve

import "github.com/vovakirdan/kurve/internal/core"

// Player is the per-round and per-match state of one participant.
type Player struct {
	ID        core.PlayerID
	Name      string
	Pos       core.Vec
	Heading   core.Angle
	Speed     core.Fixed
	Intent    core.Intent // Last intent received; held until changed
	Alive     bool
	Connected bool
	Ready     bool
	Score     int
}

// Advance integrates one tick of movement: the heading turns by turnRate
// for Left/Right intents, then the position moves by the player's speed
// along the new heading. The player is mutated and the new state returned.
// Unknown intents are treated as IntentNone.
func Advance(p *Player, intent core.Intent, turnRate core.Angle) (core.Vec, core.Angle) {
	switch intent {
	case core.IntentLeft:
		p.Heading = p.Heading.Add(-turnRate)
	case core.IntentRight:
		p.Heading = p.Heading.Add(turnRate)
	}
	p.Pos = p.Pos.Add(core.Step(p.Heading, p.Speed))
	return p.Pos, p.Heading
}

// State returns the serialisable view of the player.
func (p *Player) State() PlayerState {
	return PlayerState{
		ID:        p.ID,
		Name:      p.Name,
		Pos:       p.Pos,
		Heading:   p.Heading,
		Intent:    p.Intent,
		Alive:     p.Alive,
		Connected: p.Connected,
		Ready:     p.Ready,
		Score:     p.Score,
	}
}

// PlayerState is the per-player part of a Frame.
type PlayerState struct {
	ID        core.PlayerID `msgpack:"id"`
	Name      string        `msgpack:"name"`
	Pos       core.Vec      `msgpack:"pos"`
	Heading   core.Angle    `msgpack:"heading"`
	Intent    core.Intent   `msgpack:"intent"`
	Alive     bool          `msgpack:"alive"`
	Connected bool          `msgpack:"connected"`
	Ready     bool          `msgpack:"ready"`
	Score     int           `msgpack:"score"`
}

// Player rebuilds a Player from its state, e.g. for client-side prediction.
func (s PlayerState) Player(speed core.Fixed) Player {
	return Player{
		ID:        s.ID,
		Name:      s.Name,
		Pos:       s.Pos,
		Heading:   s.Heading,
		Speed:     speed,
		Intent:    s.Intent,
		Alive:     s.Alive,
		Connected: s.Connected,
		Ready:     s.Ready,
		Score:     s.Score,
	}
}
