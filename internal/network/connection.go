package network

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vovakirdan/kurve/internal/multiplayer"
	"github.com/vovakirdan/kurve/internal/protocol"
)

var (
	ErrPeerClosed = errors.New("network: peer closed")
	ErrQueueFull  = errors.New("network: send queue full")
)

// Peer is one end of an established connection. Messages are written by
// a dedicated goroutine; Send never blocks.
type Peer struct {
	ID       multiplayer.SessionID
	Addr     string
	LastSeen atomic.Int64 // UnixNano

	// Sequence tracking
	outSeq atomic.Uint32
	inSeq  atomic.Uint32

	// I/O
	conn         net.Conn
	reader       *bufio.Reader
	writer       *bufio.Writer
	writeTimeout time.Duration

	// Send queue
	sendCh chan *protocol.Message

	// Lifecycle
	closeCh   chan struct{}
	closeOnce sync.Once
	finished  chan struct{}
}

// newPeer wraps an established connection and starts its write loop.
func newPeer(conn net.Conn, cfg *Config) *Peer {
	p := &Peer{
		ID:           multiplayer.NewSessionID(),
		Addr:         conn.RemoteAddr().String(),
		conn:         conn,
		reader:       bufio.NewReaderSize(conn, cfg.BufferSize),
		writer:       bufio.NewWriterSize(conn, cfg.BufferSize),
		writeTimeout: cfg.WriteTimeout,
		sendCh:       make(chan *protocol.Message, cfg.SendQueueSize),
		closeCh:      make(chan struct{}),
		finished:     make(chan struct{}),
	}
	p.LastSeen.Store(time.Now().UnixNano())
	go p.writeLoop()
	return p
}

// Send queues a message for transmission.
func (p *Peer) Send(msg *protocol.Message) error {
	select {
	case <-p.closeCh:
		return ErrPeerClosed
	default:
	}

	msg.Seq = p.outSeq.Add(1)
	select {
	case p.sendCh <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close initiates a graceful shutdown: queued messages are flushed before
// the connection is closed.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		close(p.closeCh)
	})
}

// Done closes when the peer starts shutting down.
func (p *Peer) Done() <-chan struct{} {
	return p.closeCh
}

// Wait blocks until the connection has been closed.
func (p *Peer) Wait() {
	<-p.finished
}

// readLoop reads messages until the connection fails or handle returns an
// error. The peer is closed on return.
func (p *Peer) readLoop(handle func(*protocol.Message) error) error {
	defer p.Close()

	for {
		msg, err := protocol.Decode(p.reader)
		if err != nil {
			return err
		}

		p.LastSeen.Store(time.Now().UnixNano())
		if msg.Seq > p.inSeq.Load() {
			p.inSeq.Store(msg.Seq)
		}

		if err := handle(msg); err != nil {
			return err
		}
	}
}

// readOne reads a single message with a deadline (handshakes).
func (p *Peer) readOne(timeout time.Duration) (*protocol.Message, error) {
	if timeout > 0 {
		_ = p.conn.SetReadDeadline(time.Now().Add(timeout))
		defer p.conn.SetReadDeadline(time.Time{})
	}
	return protocol.Decode(p.reader)
}

// writeLoop sends queued messages
func (p *Peer) writeLoop() {
	defer close(p.finished)
	defer p.conn.Close()

	for {
		select {
		case msg := <-p.sendCh:
			if err := p.write(msg); err != nil {
				p.Close()
				return
			}
		case <-p.closeCh:
			p.drain()
			return
		}
	}
}

// drain writes whatever is still queued.
func (p *Peer) drain() {
	for {
		select {
		case msg := <-p.sendCh:
			if err := p.write(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (p *Peer) write(msg *protocol.Message) error {
	if p.writeTimeout > 0 {
		_ = p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
	}
	if err := msg.Encode(p.writer); err != nil {
		return err
	}
	return p.writer.Flush()
}

// sendValue marshals v and queues it.
func (p *Peer) sendValue(v any) error {
	msg, err := protocol.Marshal(v)
	if err != nil {
		return err
	}
	return p.Send(msg)
}
