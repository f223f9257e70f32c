package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vovakirdan/kurve/internal/config"
	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/kurve"
)

// Hello is the first message a client sends.
type Hello struct {
	Version uint8  `msgpack:"version"`
	Name    string `msgpack:"name"`
}

// Welcome admits a client and tells it its player slot and the match
// configuration it must simulate with.
type Welcome struct {
	Match  string             `msgpack:"match"`
	Player core.PlayerID      `msgpack:"player"`
	Config config.KurveConfig `msgpack:"config"`
}

// Reject refuses a Hello. The host closes the connection after sending it.
type Reject struct {
	Reason string `msgpack:"reason"`
}

// Ready toggles the sender's lobby readiness.
type Ready struct {
	Ready bool `msgpack:"ready"`
}

// Goodbye announces a voluntary disconnect.
type Goodbye struct{}

// ResyncRequest asks the host for a full frame. LastTick is the last frame
// the client applied.
type ResyncRequest struct {
	LastTick uint64 `msgpack:"last_tick"`
}

// Pack encodes v as the payload of a new message of type t.
func Pack(t MessageType, v any) (*Message, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", t, err)
	}
	return &Message{Type: t, Payload: data}, nil
}

// Unpack decodes the payload of m into v.
func Unpack(m *Message, v any) error {
	if err := msgpack.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, m.Type, err)
	}
	return nil
}

// Parse decodes m into the value matching its type: Hello, Welcome,
// Reject, Ready, Goodbye, ResyncRequest, core.InputMessage or kurve.Frame.
func Parse(m *Message) (any, error) {
	switch m.Type {
	case MsgHello:
		return decode[Hello](m)
	case MsgWelcome:
		return decode[Welcome](m)
	case MsgReject:
		return decode[Reject](m)
	case MsgReady:
		return decode[Ready](m)
	case MsgGoodbye:
		return Goodbye{}, nil
	case MsgResync:
		return decode[ResyncRequest](m)
	case MsgInput:
		return decode[core.InputMessage](m)
	case MsgFrame:
		return decode[kurve.Frame](m)
	default:
		return nil, fmt.Errorf("%w: unknown type %s", ErrMalformed, m.Type)
	}
}

func decode[T any](m *Message) (any, error) {
	var v T
	if err := Unpack(m, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// TypeOf returns the message type used to carry v.
func TypeOf(v any) (MessageType, error) {
	switch v.(type) {
	case Hello, *Hello:
		return MsgHello, nil
	case Welcome, *Welcome:
		return MsgWelcome, nil
	case Reject, *Reject:
		return MsgReject, nil
	case Ready, *Ready:
		return MsgReady, nil
	case Goodbye, *Goodbye:
		return MsgGoodbye, nil
	case ResyncRequest, *ResyncRequest:
		return MsgResync, nil
	case core.InputMessage, *core.InputMessage:
		return MsgInput, nil
	case kurve.Frame, *kurve.Frame:
		return MsgFrame, nil
	default:
		return 0, fmt.Errorf("protocol: no message type for %T", v)
	}
}

// Marshal packs v with the message type matching its Go type.
func Marshal(v any) (*Message, error) {
	t, err := TypeOf(v)
	if err != nil {
		return nil, err
	}
	return Pack(t, v)
}
