// Package protocol defines the kurve wire format: a fixed binary header
// followed by a msgpack-encoded payload.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Version is the protocol version carried in every header. Peers with a
// different version are rejected during the handshake.
const Version uint8 = 1

// HeaderSize is the fixed header length:
// [Version:1][Type:1][Flags:1][Reserved:1][Seq:4][Len:4]
const HeaderSize = 12

// MaxPayload bounds a single message. Full resync frames of a large arena
// are the biggest messages on the wire.
const MaxPayload = 4 << 20

var (
	// ErrMalformed is returned for messages that cannot be decoded.
	ErrMalformed = errors.New("protocol: malformed message")
	// ErrVersion is returned when a header carries a different version.
	ErrVersion = errors.New("protocol: version mismatch")
)

// MessageType identifies the payload of a message.
type MessageType uint8

const (
	// Handshake and membership
	MsgHello   MessageType = 0x01
	MsgWelcome MessageType = 0x02
	MsgReject  MessageType = 0x03
	MsgGoodbye MessageType = 0x04
	MsgReady   MessageType = 0x05

	// Simulation
	MsgInput  MessageType = 0x10
	MsgFrame  MessageType = 0x11
	MsgResync MessageType = 0x12
)

func (t MessageType) String() string {
	switch t {
	case MsgHello:
		return "hello"
	case MsgWelcome:
		return "welcome"
	case MsgReject:
		return "reject"
	case MsgGoodbye:
		return "goodbye"
	case MsgReady:
		return "ready"
	case MsgInput:
		return "input"
	case MsgFrame:
		return "frame"
	case MsgResync:
		return "resync"
	default:
		return fmt.Sprintf("MessageType(%#x)", uint8(t))
	}
}

// Message is a framed network message.
type Message struct {
	Type    MessageType
	Flags   uint8
	Seq     uint32 // Sender's sequence number, assigned by the connection
	Payload []byte
}

// Encode writes the header and payload to w.
func (m *Message) Encode(w io.Writer) error {
	if len(m.Payload) > MaxPayload {
		return fmt.Errorf("protocol: payload of %d bytes exceeds limit", len(m.Payload))
	}

	var header [HeaderSize]byte
	header[0] = Version
	header[1] = byte(m.Type)
	header[2] = m.Flags
	binary.BigEndian.PutUint32(header[4:8], m.Seq)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(m.Payload)))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if len(m.Payload) > 0 {
		if _, err := w.Write(m.Payload); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads one message from r. I/O errors are returned as is; a bad
// header yields ErrVersion or ErrMalformed.
func Decode(r io.Reader) (*Message, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	if header[0] != Version {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrVersion, header[0], Version)
	}

	size := binary.BigEndian.Uint32(header[8:12])
	if size > MaxPayload {
		return nil, fmt.Errorf("%w: payload length %d", ErrMalformed, size)
	}

	m := &Message{
		Type:  MessageType(header[1]),
		Flags: header[2],
		Seq:   binary.BigEndian.Uint32(header[4:8]),
	}
	if size > 0 {
		m.Payload = make([]byte, size)
		if _, err := io.ReadFull(r, m.Payload); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
	return m, nil
}
