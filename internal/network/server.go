package network

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/multiplayer"
	"github.com/vovakirdan/kurve/internal/protocol"
)

// ReasonVersion is sent to clients speaking another protocol version.
const ReasonVersion = "protocol version mismatch"

// ReasonBusy is sent when the host cannot take the join request.
const ReasonBusy = "host is busy, try again"

// Server accepts TCP players and attaches them to a Host.
type Server struct {
	cfg      *Config
	host     *multiplayer.Host
	log      *log.Logger
	listener net.Listener
	peers    *multiplayer.SessionRegistry

	running   atomic.Bool
	stopCh    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewServer creates a server for host. It does not listen until Listen.
func NewServer(cfg *Config, host *multiplayer.Host, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		cfg:    cfg,
		host:   host,
		log:    logger,
		peers:  multiplayer.NewSessionRegistry(cfg.MaxPeers),
		stopCh: make(chan struct{}),
	}
}

// Listen binds the configured address and starts accepting. A bind
// failure is returned before any connection is served.
func (s *Server) Listen() error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("network: listen %s: %w", s.cfg.Address, err)
	}
	s.listener = ln
	s.log.Info("listening", "addr", ln.Addr().String())

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// acceptLoop handles incoming connections
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept failed", "err", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(conn)
		}()
	}
}

// ServeConn runs the handshake and message loop for one connection and
// returns when it closes. Errors only affect this connection.
func (s *Server) ServeConn(conn net.Conn) {
	p := newPeer(conn, s.cfg)
	defer p.Wait()
	logger := s.log.With("peer", p.Addr)

	go func() {
		select {
		case <-s.stopCh:
			p.Close()
		case <-p.Done():
		}
	}()

	hello, err := s.handshake(p)
	if err != nil {
		logger.Warn("handshake failed", "err", err)
		p.Close()
		return
	}

	sess := &peerSession{peer: p}
	if !s.peers.Register(sess) {
		_ = p.sendValue(protocol.Reject{Reason: multiplayer.ReasonFull})
		p.Close()
		return
	}
	defer s.peers.Unregister(sess.ID())

	if !s.host.Submit(multiplayer.JoinMsg{Session: sess, Name: hello.Name}) {
		logger.Warn("host busy, turning peer away", "name", hello.Name)
		_ = p.sendValue(protocol.Reject{Reason: ReasonBusy})
		p.Close()
		return
	}
	logger.Info("peer connected", "name", hello.Name, "session", sess.ID())

	err = p.readLoop(func(msg *protocol.Message) error {
		return s.dispatch(sess, msg, logger)
	})
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !errors.Is(err, errGoodbye) {
		logger.Warn("connection lost", "err", err)
	}
	// The host notices the closed session at the next tick.
}

var errGoodbye = errors.New("network: goodbye")

func (s *Server) handshake(p *Peer) (protocol.Hello, error) {
	msg, err := p.readOne(s.cfg.HandshakeTimeout)
	if err != nil {
		return protocol.Hello{}, err
	}
	if msg.Type != protocol.MsgHello {
		return protocol.Hello{}, fmt.Errorf("%w: expected hello, got %s", protocol.ErrMalformed, msg.Type)
	}
	var hello protocol.Hello
	if err := protocol.Unpack(msg, &hello); err != nil {
		return protocol.Hello{}, err
	}
	if hello.Version != protocol.Version {
		_ = p.sendValue(protocol.Reject{Reason: ReasonVersion})
		return protocol.Hello{}, fmt.Errorf("%w: client speaks %d", protocol.ErrVersion, hello.Version)
	}
	return hello, nil
}

// dispatch turns a client message into a host message. Malformed
// payloads are dropped; the connection stays up.
func (s *Server) dispatch(sess *peerSession, msg *protocol.Message, logger *log.Logger) error {
	v, err := protocol.Parse(msg)
	if err != nil {
		logger.Warn("dropping message", "type", msg.Type, "err", err)
		return nil
	}

	id := sess.ID()
	switch v := v.(type) {
	case protocol.Ready:
		s.host.Submit(multiplayer.ReadyMsg{Session: id, Ready: v.Ready})
	case protocol.ResyncRequest:
		s.host.Submit(multiplayer.ResyncMsg{Session: id, LastTick: v.LastTick})
	case protocol.Goodbye:
		s.host.Submit(multiplayer.LeaveMsg{Session: id, Polite: true})
		return errGoodbye
	case core.InputMessage:
		s.host.Submit(multiplayer.InputMsg{Session: id, Input: v})
	default:
		logger.Warn("unexpected message", "type", msg.Type)
	}
	return nil
}

// Close stops accepting, closes every connection and then releases the
// listening socket.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.running.Store(false)
		close(s.stopCh)

		s.peers.CloseAll()
		if s.listener != nil {
			err = s.listener.Close()
		}
		s.wg.Wait()
	})
	return err
}
