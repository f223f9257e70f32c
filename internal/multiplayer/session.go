package multiplayer

import (
	"errors"
	"sync"
)

var (
	// ErrSessionClosed is returned when sending to a closed session.
	ErrSessionClosed = errors.New("multiplayer: session closed")
	// ErrSessionBusy is returned when a session cannot keep up with frames.
	ErrSessionBusy = errors.New("multiplayer: session send queue full")
)

// SessionHandle is the transport-neutral interface for communicating with a session.
// It allows the host to send events without depending on Wish, Bubble Tea or sockets.
type SessionHandle interface {
	// ID returns the unique session identifier.
	ID() SessionID

	// Send queues an event for the session. It must not block; an error
	// means the session can no longer be served and will be disconnected.
	Send(evt SessionEvent) error

	// Done returns a channel that closes when the session ends.
	Done() <-chan struct{}

	// Close ends the session. Safe to call multiple times.
	Close()
}

// ChannelSession is a SessionHandle implementation using Go channels.
// Used for in-process players: the local keyboard and SSH users.
type ChannelSession struct {
	id       SessionID
	events   chan SessionEvent
	done     chan struct{}
	doneOnce sync.Once
}

// NewChannelSession creates a new channel-based session handle.
// eventBufferSize controls how many events can be buffered before dropping.
func NewChannelSession(id SessionID, eventBufferSize int) *ChannelSession {
	if eventBufferSize < 1 {
		eventBufferSize = 64
	}
	return &ChannelSession{
		id:     id,
		events: make(chan SessionEvent, eventBufferSize),
		done:   make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *ChannelSession) ID() SessionID {
	return s.id
}

// Send queues an event. If the buffer is full the oldest event is dropped;
// the client notices the missing frame and asks for a resync.
func (s *ChannelSession) Send(evt SessionEvent) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.events <- evt:
		return nil
	default:
	}

	// Buffer full, drop oldest and retry
	select {
	case <-s.events:
	default:
	}
	select {
	case s.events <- evt:
		return nil
	default:
		return ErrSessionBusy
	}
}

// Events returns the channel to receive events from.
func (s *ChannelSession) Events() <-chan SessionEvent {
	return s.events
}

// Done returns the done channel.
func (s *ChannelSession) Done() <-chan struct{} {
	return s.done
}

// Close marks the session as done.
// Safe to call multiple times.
func (s *ChannelSession) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

// SessionRegistry tracks active sessions.
// Thread-safe for concurrent access.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[SessionID]SessionHandle
	limit    int
}

// NewSessionRegistry creates a registry admitting at most limit sessions
// (0 means unlimited).
func NewSessionRegistry(limit int) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[SessionID]SessionHandle),
		limit:    limit,
	}
}

// Register adds a session to the registry. It returns false if the
// registry is full.
func (r *SessionRegistry) Register(session SessionHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limit > 0 && len(r.sessions) >= r.limit {
		return false
	}
	r.sessions[session.ID()] = session
	return true
}

// Unregister removes a session from the registry.
func (r *SessionRegistry) Unregister(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Get retrieves a session by ID.
func (r *SessionRegistry) Get(id SessionID) (SessionHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Count returns the number of registered sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes and removes every session.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[SessionID]SessionHandle)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
