package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/kurve"
	"github.com/vovakirdan/kurve/internal/multiplayer"
	"github.com/vovakirdan/kurve/internal/protocol"
)

// ErrHostGone is returned by Conn.Run when the host closes the connection.
var ErrHostGone = errors.New("network: host closed the connection")

// Conn is a client connection to a host.
type Conn struct {
	peer    *Peer
	client  *multiplayer.Client
	log     *log.Logger
	leaving atomic.Bool
}

// Dial connects to a host and completes the handshake.
func Dial(ctx context.Context, cfg *Config, name string, logger *log.Logger) (*Conn, error) {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("network: dial %s: %w", cfg.Address, err)
	}
	return Handshake(conn, cfg, name, logger)
}

// Handshake sends Hello over an established connection and waits for the
// host's answer. The connection is closed on failure.
func Handshake(conn net.Conn, cfg *Config, name string, logger *log.Logger) (*Conn, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	p := newPeer(conn, cfg)
	c := &Conn{peer: p, log: logger}
	c.client = multiplayer.NewClient(&peerUplink{peer: p, leaving: &c.leaving}, logger)

	fail := func(err error) (*Conn, error) {
		p.Close()
		p.Wait()
		return nil, err
	}

	if err := p.sendValue(protocol.Hello{Version: protocol.Version, Name: name}); err != nil {
		return fail(err)
	}
	msg, err := p.readOne(cfg.HandshakeTimeout)
	if err != nil {
		return fail(fmt.Errorf("network: handshake: %w", err))
	}
	v, err := protocol.Parse(msg)
	if err != nil {
		return fail(err)
	}
	evt, ok := decodeEvent(v)
	if !ok {
		return fail(fmt.Errorf("%w: expected welcome, got %s", protocol.ErrMalformed, msg.Type))
	}
	if err := c.client.HandleEvent(evt); err != nil {
		return fail(err)
	}
	return c, nil
}

// Client returns the match mirror fed by this connection.
func (c *Conn) Client() *multiplayer.Client {
	return c.client
}

// Run reads frames until the connection ends or ctx is cancelled.
// Undecodable payloads are reported to the client, which resyncs; a
// broken header ends the connection.
func (c *Conn) Run(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			c.peer.Close()
		case <-c.peer.Done():
		}
	}()

	err := c.peer.readLoop(func(msg *protocol.Message) error {
		v, err := protocol.Parse(msg)
		if err != nil {
			c.client.HandleMalformed(err)
			return nil
		}
		switch v := v.(type) {
		case kurve.Frame:
			c.client.HandleFrame(v)
		default:
			if evt, ok := decodeEvent(v); ok {
				return c.client.HandleEvent(evt)
			}
			c.log.Warn("unexpected message", "type", msg.Type)
		}
		return nil
	})
	c.peer.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.leaving.Load() {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return ErrHostGone
	}
	return err
}

// Close leaves the match politely and closes the connection.
func (c *Conn) Close() error {
	return c.client.Quit()
}

// peerUplink sends client messages over a Peer.
type peerUplink struct {
	peer    *Peer
	leaving *atomic.Bool
}

func (u *peerUplink) SendInput(in core.InputMessage) error {
	return u.peer.sendValue(in)
}

func (u *peerUplink) SendReady(ready bool) error {
	return u.peer.sendValue(protocol.Ready{Ready: ready})
}

func (u *peerUplink) RequestResync(lastTick uint64) error {
	return u.peer.sendValue(protocol.ResyncRequest{LastTick: lastTick})
}

func (u *peerUplink) Close(polite bool) error {
	u.leaving.Store(true)
	var err error
	if polite {
		err = u.peer.sendValue(protocol.Goodbye{})
		if errors.Is(err, ErrPeerClosed) {
			err = nil
		}
	}
	u.peer.Close()
	return err
}
