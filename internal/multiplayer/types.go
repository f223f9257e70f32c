// Package multiplayer synchronises a hosted kurve match with its players.
// The Host buffers inbound intents by tick and broadcasts committed frames;
// a Client mirrors those frames and forwards local input. Sessions are
// transport-neutral: in-process players, SSH users and TCP peers all look
// the same to the Host.
package multiplayer

import (
	"github.com/google/uuid"

	"github.com/vovakirdan/kurve/internal/core"
)

// PlayerID is an alias to core.PlayerID for convenience.
type PlayerID = core.PlayerID

// SessionID uniquely identifies a connected session (local, SSH or TCP).
type SessionID string

// NewSessionID returns a fresh random session id.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// MatchID uniquely identifies a hosted match.
type MatchID string

// NewMatchID returns a fresh random match id.
func NewMatchID() MatchID {
	return MatchID(uuid.NewString())
}

// Short returns the first eight characters of the id for display.
func (id MatchID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}
