package kurve

import (
	"fmt"

	"github.com/vovakirdan/kurve/internal/core"
)

// State is a phase of the round state machine.
type State uint8

const (
	StateLobby        State = iota // Waiting for players to join and get ready
	StateCountdown                 // Players spawned, movement not started
	StatePlaying                   // Ticks move players
	StateRoundEnd                  // Round decided, brief pause
	StateMatchEnd                  // A player reached the win score (terminal)
	StateMatchAborted              // Too few players remain (terminal)
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateLobby:
		return "Lobby"
	case StateCountdown:
		return "Countdown"
	case StatePlaying:
		return "Playing"
	case StateRoundEnd:
		return "RoundEnd"
	case StateMatchEnd:
		return "MatchEnd"
	case StateMatchAborted:
		return "MatchAborted"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateMatchEnd || s == StateMatchAborted
}

// EventKind identifies a RoundEvent.
type EventKind uint8

const (
	EventPlayerJoined EventKind = iota + 1
	EventPlayerLeft
	EventPlayerEliminated
	EventRoundWon
	EventRoundDraw
	EventMatchWon
	EventMatchAborted
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventPlayerJoined:
		return "PlayerJoined"
	case EventPlayerLeft:
		return "PlayerLeft"
	case EventPlayerEliminated:
		return "PlayerEliminated"
	case EventRoundWon:
		return "RoundWon"
	case EventRoundDraw:
		return "RoundDraw"
	case EventMatchWon:
		return "MatchWon"
	case EventMatchAborted:
		return "MatchAborted"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Cause explains why a player was eliminated.
type Cause uint8

const (
	CauseNone Cause = iota
	CauseWall
	CauseTrail
	CauseHeadOn
	CauseDisconnect
)

func causeOf(r CollisionResult) Cause {
	switch r.Kind {
	case CollisionWall:
		return CauseWall
	case CollisionTrail:
		return CauseTrail
	case CollisionHead:
		return CauseHeadOn
	default:
		return CauseNone
	}
}

// RoundEvent is an observer-visible outcome of a tick or a command.
// It is a flat tagged record so it travels unchanged inside frames.
type RoundEvent struct {
	Kind   EventKind     `msgpack:"kind"`
	Player core.PlayerID `msgpack:"player"`
	Other  core.PlayerID `msgpack:"other"` // Trail owner or head-on partner
	Cause  Cause         `msgpack:"cause"`
	Polite bool          `msgpack:"polite"` // PlayerLeft: said goodbye
	Round  int           `msgpack:"round"`
}

// Banner returns the message shown to players for the event, using name
// to resolve player ids.
func (e RoundEvent) Banner(name func(core.PlayerID) string) string {
	switch e.Kind {
	case EventPlayerJoined:
		return name(e.Player) + " joined"
	case EventPlayerLeft:
		if e.Polite {
			return name(e.Player) + " left"
		}
		return name(e.Player) + " lost connection"
	case EventPlayerEliminated:
		return name(e.Player) + " crashed!"
	case EventRoundWon:
		return name(e.Player) + " won!"
	case EventRoundDraw:
		return "Everyone crashed!"
	case EventMatchWon:
		return name(e.Player) + " wins the match!"
	case EventMatchAborted:
		return "They left!"
	default:
		return ""
	}
}
