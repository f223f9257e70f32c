package multiplayer

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/kurve/internal/config"
	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/kurve"
)

var (
	ErrUnknownSession = errors.New("multiplayer: unknown session")
	ErrPlayerMismatch = errors.New("multiplayer: input for another player")
	ErrInputTooEarly  = errors.New("multiplayer: input too far ahead")
)

// Join rejection reasons.
const (
	ReasonStarted = "match already started"
	ReasonFull    = "match is full"
)

// HostStats counts how inbound inputs were handled.
type HostStats struct {
	Applied  int64 // Applied on their own tick
	Stale    int64 // Applied on a later tick than the one they were sent for
	Ignored  int64 // Superseded by a newer input of the same player
	Rejected int64 // Malformed, too early or for the wrong player
}

type member struct {
	session SessionHandle
	player  PlayerID
	name    string
}

// Host is the authoritative side of a networked match. It is the
// scheduler's InputSource and FrameSink: connection goroutines only
// enqueue HostMessages, which are applied in Drain at a tick boundary.
type Host struct {
	id    MatchID
	cfg   config.KurveConfig
	log   *log.Logger
	inbox chan HostMessage

	lateTicks uint64
	maxLead   uint64

	sessions *SessionRegistry

	// Owned by the scheduler goroutine.
	mu       sync.Mutex
	members  map[SessionID]*member
	slots    [core.MaxPlayers + 1]SessionID
	pending  map[uint64][]InputMsg
	leaving  []kurve.Command
	resync   map[SessionID]bool
	latest   map[PlayerID]uint64 // Tick of the newest input applied per player
	replica  *kurve.Replica
	state    kurve.State
	lastTick uint64

	applied, stale, ignored, rejected atomic.Int64
}

// NewHost creates a host for a match played with cfg.
func NewHost(cfg config.KurveConfig, rules kurve.Rules, logger *log.Logger) *Host {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	id := NewMatchID()
	return &Host{
		id:        id,
		cfg:       cfg,
		log:       logger.With("match", id.Short()),
		inbox:     make(chan HostMessage, 256),
		lateTicks: uint64(cfg.Network.LateInputTicks),
		maxLead:   uint64(cfg.Network.MaxInputLead),
		sessions:  NewSessionRegistry(core.MaxPlayers),
		members:   make(map[SessionID]*member),
		pending:   make(map[uint64][]InputMsg),
		resync:    make(map[SessionID]bool),
		latest:    make(map[PlayerID]uint64),
		replica:   kurve.NewReplica(rules),
		state:     kurve.StateLobby,
	}
}

// ID returns the match identifier.
func (h *Host) ID() MatchID {
	return h.id
}

// Submit queues a message for the next tick. Non-blocking: when the inbox
// is full the message is dropped. Leaves are also detected from the
// session's Done channel, so a dropped LeaveMsg is not lost.
func (h *Host) Submit(msg HostMessage) bool {
	select {
	case h.inbox <- msg:
		return true
	default:
		h.log.Warn("host inbox full, dropping message", "type", fmt.Sprintf("%T", msg))
		return false
	}
}

// Stats returns the input counters.
func (h *Host) Stats() HostStats {
	return HostStats{
		Applied:  h.applied.Load(),
		Stale:    h.stale.Load(),
		Ignored:  h.ignored.Load(),
		Rejected: h.rejected.Load(),
	}
}

// Sessions returns the number of admitted sessions.
func (h *Host) Sessions() int {
	return h.sessions.Count()
}

// Drain implements kurve.InputSource.
func (h *Host) Drain(tick uint64) kurve.Batch {
	h.mu.Lock()
	defer h.mu.Unlock()

	var b kurve.Batch
	b.Commands = append(b.Commands, h.leaving...)
	h.leaving = nil

	for {
		var msg HostMessage
		select {
		case msg = <-h.inbox:
		default:
		}
		if msg == nil {
			break
		}
		if cmd, ok := h.handle(msg, tick); ok {
			b.Commands = append(b.Commands, cmd)
		}
	}

	for _, sid := range h.memberIDs() {
		m := h.members[sid]
		select {
		case <-m.session.Done():
			h.log.Info("session closed", "session", sid, "player", m.player)
			b.Commands = append(b.Commands, h.remove(sid, false))
		default:
		}
	}

	b.Inputs, b.Stale = h.due(tick)
	return b
}

// handle applies one inbound message. It returns a command for the match
// when the message changes membership or readiness.
func (h *Host) handle(msg HostMessage, tick uint64) (kurve.Command, bool) {
	switch msg := msg.(type) {
	case JoinMsg:
		return h.join(msg)

	case InputMsg:
		if err := h.buffer(msg, tick); err != nil {
			h.rejected.Add(1)
			h.log.Warn("input rejected", "session", msg.Session, "tick", msg.Input.Tick, "err", err)
		}

	case ReadyMsg:
		if m, ok := h.members[msg.Session]; ok {
			return kurve.Command{Kind: kurve.CommandReady, Player: m.player, Ready: msg.Ready}, true
		}

	case ResyncMsg:
		if _, ok := h.members[msg.Session]; ok {
			h.resync[msg.Session] = true
			h.log.Debug("resync requested", "session", msg.Session, "last_tick", msg.LastTick)
		}

	case LeaveMsg:
		if _, ok := h.members[msg.Session]; ok {
			return h.remove(msg.Session, msg.Polite), true
		}
	}
	return kurve.Command{}, false
}

func (h *Host) join(msg JoinMsg) (kurve.Command, bool) {
	s := msg.Session
	reject := func(reason string) (kurve.Command, bool) {
		h.log.Info("join rejected", "session", s.ID(), "reason", reason)
		_ = s.Send(RejectEvent{Reason: reason})
		s.Close()
		return kurve.Command{}, false
	}

	if _, dup := h.members[s.ID()]; dup {
		return kurve.Command{}, false
	}
	if h.state != kurve.StateLobby {
		return reject(ReasonStarted)
	}
	id := core.NoPlayer
	for p := core.PlayerID(1); p <= core.MaxPlayers; p++ {
		if h.slots[p] == "" {
			id = p
			break
		}
	}
	if id == core.NoPlayer || !h.sessions.Register(s) {
		return reject(ReasonFull)
	}

	name := msg.Name
	if name == "" {
		name = fmt.Sprintf("Player %d", id)
	}
	if err := s.Send(WelcomeEvent{MatchID: h.id, Player: id, Config: h.cfg}); err != nil {
		h.sessions.Unregister(s.ID())
		h.log.Warn("welcome failed", "session", s.ID(), "err", err)
		return kurve.Command{}, false
	}

	h.members[s.ID()] = &member{session: s, player: id, name: name}
	h.slots[id] = s.ID()
	h.resync[s.ID()] = true
	h.log.Info("session joined", "session", s.ID(), "player", id, "name", name)
	return kurve.Command{Kind: kurve.CommandJoin, Player: id, Name: name}, true
}

// buffer validates an input and stores it under its target tick.
func (h *Host) buffer(msg InputMsg, tick uint64) error {
	m, ok := h.members[msg.Session]
	if !ok {
		return ErrUnknownSession
	}
	in := msg.Input
	if in.Player != m.player {
		return fmt.Errorf("%w: session owns %d, got %d", ErrPlayerMismatch, m.player, in.Player)
	}
	if !in.Intent.Valid() {
		return fmt.Errorf("%w: %s", kurve.ErrInvalidIntent, in.Intent)
	}
	if in.Tick > tick+h.maxLead {
		return fmt.Errorf("%w: tick %d at %d", ErrInputTooEarly, in.Tick, tick)
	}
	h.pending[in.Tick] = append(h.pending[in.Tick], msg)
	return nil
}

// due returns the buffered inputs that take effect at tick, in tick order.
// Inputs for earlier ticks are applied now and flag the frame stale, so a
// lagging player still steers; committed ticks are never replayed. An
// input older than one already applied for the same player is dropped.
func (h *Host) due(tick uint64) ([]core.InputMessage, bool) {
	var (
		out   []core.InputMessage
		stale bool
	)
	for _, t := range slices.Sorted(maps.Keys(h.pending)) {
		if t > tick {
			break
		}
		for _, msg := range h.pending[t] {
			m, ok := h.members[msg.Session]
			if !ok || m.player != msg.Input.Player {
				continue
			}
			if last, ok := h.latest[m.player]; ok && t < last {
				h.ignored.Add(1)
				h.log.Debug("superseded input ignored", "player", m.player, "tick", t, "newest", last)
				continue
			}
			h.latest[m.player] = t
			out = append(out, msg.Input)
			switch lag := tick - t; {
			case lag == 0:
				h.applied.Add(1)
			case lag <= h.lateTicks:
				h.stale.Add(1)
				stale = true
				h.log.Debug("late input applied", "player", m.player, "tick", t, "now", tick)
			default:
				h.stale.Add(1)
				stale = true
				h.log.Warn("lagging input applied", "player", m.player, "tick", t, "now", tick, "lag", lag)
			}
		}
		delete(h.pending, t)
	}
	return out, stale
}

// remove drops a member and returns the Leave command for the match.
func (h *Host) remove(sid SessionID, polite bool) kurve.Command {
	m := h.members[sid]
	delete(h.members, sid)
	delete(h.resync, sid)
	delete(h.latest, m.player)
	h.sessions.Unregister(sid)
	if h.state == kurve.StateLobby {
		h.slots[m.player] = ""
	}
	m.session.Close()
	return kurve.Command{Kind: kurve.CommandLeave, Player: m.player, Polite: polite}
}

// Publish implements kurve.FrameSink. Sessions that asked for a resync
// (or just joined) get the full trail set; a failed send disconnects that
// session only.
func (h *Host) Publish(f kurve.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.replica.Apply(f)
	h.state = f.State
	h.lastTick = f.Tick

	var full *kurve.Frame
	for _, sid := range h.memberIDs() {
		m := h.members[sid]
		out := f
		if h.resync[sid] {
			if full == nil {
				ff := h.replica.Full()
				ff.Events = f.Events
				full = &ff
			}
			out = *full
			delete(h.resync, sid)
		}
		if err := m.session.Send(FrameEvent{Frame: out}); err != nil {
			h.log.Warn("send failed, disconnecting", "session", sid, "player", m.player, "err", err)
			h.leaving = append(h.leaving, h.remove(sid, false))
		}
	}
}

// memberIDs returns member sessions ordered by player id.
func (h *Host) memberIDs() []SessionID {
	ids := slices.Collect(maps.Keys(h.members))
	slices.SortFunc(ids, func(a, b SessionID) int {
		return int(h.members[a].player) - int(h.members[b].player)
	})
	return ids
}

// Close disconnects every session. Call it after the scheduler has stopped.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions.CloseAll()
	clear(h.members)
}
