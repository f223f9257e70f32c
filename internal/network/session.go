package network

import (
	"fmt"

	"github.com/vovakirdan/kurve/internal/multiplayer"
	"github.com/vovakirdan/kurve/internal/protocol"
)

// peerSession adapts a Peer to multiplayer.SessionHandle.
type peerSession struct {
	peer *Peer
}

func (s *peerSession) ID() multiplayer.SessionID { return s.peer.ID }
func (s *peerSession) Done() <-chan struct{}     { return s.peer.Done() }
func (s *peerSession) Close()                    { s.peer.Close() }

// Send encodes the event and queues it. A full queue is reported to the
// host, which then drops the session.
func (s *peerSession) Send(evt multiplayer.SessionEvent) error {
	msg, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	return s.peer.Send(msg)
}

func encodeEvent(evt multiplayer.SessionEvent) (*protocol.Message, error) {
	switch evt := evt.(type) {
	case multiplayer.WelcomeEvent:
		return protocol.Marshal(protocol.Welcome{Match: string(evt.MatchID), Player: evt.Player, Config: evt.Config})
	case multiplayer.RejectEvent:
		return protocol.Marshal(protocol.Reject{Reason: evt.Reason})
	case multiplayer.FrameEvent:
		return protocol.Marshal(evt.Frame)
	default:
		return nil, fmt.Errorf("network: cannot encode %T", evt)
	}
}

// decodeEvent is the client-side inverse of encodeEvent.
func decodeEvent(v any) (multiplayer.SessionEvent, bool) {
	switch v := v.(type) {
	case protocol.Welcome:
		return multiplayer.WelcomeEvent{MatchID: multiplayer.MatchID(v.Match), Player: v.Player, Config: v.Config}, true
	case protocol.Reject:
		return multiplayer.RejectEvent{Reason: v.Reason}, true
	default:
		return nil, false
	}
}
