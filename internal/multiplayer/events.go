package multiplayer

import (
	"github.com/vovakirdan/kurve/internal/config"
	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/kurve"
)

// SessionEvent is sent from the host to a session.
type SessionEvent interface {
	sessionEvent()
}

// WelcomeEvent admits a session into the lobby.
type WelcomeEvent struct {
	MatchID MatchID
	Player  PlayerID
	Config  config.KurveConfig
}

func (WelcomeEvent) sessionEvent() {}

// RejectEvent refuses a join. The session is closed afterwards.
type RejectEvent struct {
	Reason string
}

func (RejectEvent) sessionEvent() {}

// FrameEvent carries a committed frame.
type FrameEvent struct {
	Frame kurve.Frame
}

func (FrameEvent) sessionEvent() {}

// HostMessage is sent from a session to the host. Messages are queued and
// take effect at the next tick boundary.
type HostMessage interface {
	hostMessage()
}

// JoinMsg asks for a player slot.
type JoinMsg struct {
	Session SessionHandle
	Name    string
}

func (JoinMsg) hostMessage() {}

// InputMsg forwards a player's intent for a tick.
type InputMsg struct {
	Session SessionID
	Input   core.InputMessage
}

func (InputMsg) hostMessage() {}

// ReadyMsg toggles lobby readiness.
type ReadyMsg struct {
	Session SessionID
	Ready   bool
}

func (ReadyMsg) hostMessage() {}

// ResyncMsg requests a full frame on the next broadcast.
type ResyncMsg struct {
	Session  SessionID
	LastTick uint64
}

func (ResyncMsg) hostMessage() {}

// LeaveMsg removes a session. Polite is set when the player said goodbye.
type LeaveMsg struct {
	Session SessionID
	Polite  bool
}

func (LeaveMsg) hostMessage() {}
