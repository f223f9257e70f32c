package kurve

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/kurve/internal/core"
)

var (
	ErrMatchStarted  = errors.New("kurve: match already started")
	ErrSlotTaken     = errors.New("kurve: player slot taken")
	ErrUnknownPlayer = errors.New("kurve: unknown player")
	ErrInvalidIntent = errors.New("kurve: invalid intent")
)

// Match is the aggregate of all game state: players, trails, scores and
// the round state machine. It is owned by a single goroutine (the
// Scheduler's) and is not safe for concurrent use.
type Match struct {
	rules   Rules
	log     *log.Logger
	players [core.MaxPlayers + 1]*Player
	trails  *TrailStore
	detect  *Detector

	state     State
	tick      uint64
	round     int
	roundTick uint64
	timer     int
	winner    core.PlayerID

	// Accumulated for the next frame.
	events []RoundEvent
	cells  []TrailCell
}

// NewMatch creates a match in the Lobby state.
func NewMatch(rules Rules, logger *log.Logger) *Match {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	trails := NewTrailStore(rules.Width, rules.Height)
	return &Match{
		rules:  rules,
		log:    logger,
		trails: trails,
		detect: NewDetector(rules, trails),
		state:  StateLobby,
	}
}

// Rules returns the match rules.
func (m *Match) Rules() Rules { return m.rules }

// State returns the current state.
func (m *Match) State() State { return m.state }

// Tick returns the number of the last committed tick.
func (m *Match) Tick() uint64 { return m.tick }

// Round returns the current round number (0 before the first round).
func (m *Match) Round() int { return m.round }

// Trails returns the trail store (read-only use).
func (m *Match) Trails() *TrailStore { return m.trails }

// Player returns the state of a joined player.
func (m *Match) Player(id core.PlayerID) (PlayerState, bool) {
	p := m.player(id)
	if p == nil {
		return PlayerState{}, false
	}
	return p.State(), true
}

// Players returns all joined players in id order.
func (m *Match) Players() []PlayerState {
	var out []PlayerState
	for _, p := range m.players {
		if p != nil {
			out = append(out, p.State())
		}
	}
	return out
}

func (m *Match) player(id core.PlayerID) *Player {
	if !id.Valid() {
		return nil
	}
	return m.players[id]
}

// Apply executes a lobby or connection command.
func (m *Match) Apply(c Command) error {
	switch c.Kind {
	case CommandJoin:
		return m.Join(c.Player, c.Name)
	case CommandLeave:
		return m.Leave(c.Player, c.Polite)
	case CommandReady:
		return m.SetReady(c.Player, c.Ready)
	default:
		return fmt.Errorf("kurve: unknown command %d", c.Kind)
	}
}

// Join adds a player to the lobby.
func (m *Match) Join(id core.PlayerID, name string) error {
	if m.state != StateLobby {
		return ErrMatchStarted
	}
	if !id.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownPlayer, id)
	}
	if m.players[id] != nil {
		return fmt.Errorf("%w: %d", ErrSlotTaken, id)
	}

	m.players[id] = &Player{ID: id, Name: name, Connected: true, Speed: m.rules.Speed}
	m.emit(RoundEvent{Kind: EventPlayerJoined, Player: id})
	m.log.Info("player joined", "player", id, "name", name)
	return nil
}

// SetReady marks a player ready (or not) to start.
func (m *Match) SetReady(id core.PlayerID, ready bool) error {
	p := m.player(id)
	if p == nil {
		return fmt.Errorf("%w: %d", ErrUnknownPlayer, id)
	}
	p.Ready = ready
	return nil
}

// SetIntent records the intent a player holds from the next tick on.
func (m *Match) SetIntent(id core.PlayerID, intent core.Intent) error {
	p := m.player(id)
	if p == nil {
		return fmt.Errorf("%w: %d", ErrUnknownPlayer, id)
	}
	if !intent.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidIntent, intent)
	}
	p.Intent = intent
	return nil
}

// Leave handles a disconnect. In the lobby the slot is freed; afterwards the
// player is eliminated and kept for the scoreboard. If fewer than the
// minimum number of players remain connected, the match is aborted.
func (m *Match) Leave(id core.PlayerID, polite bool) error {
	p := m.player(id)
	if p == nil || !p.Connected {
		return fmt.Errorf("%w: %d", ErrUnknownPlayer, id)
	}
	m.emit(RoundEvent{Kind: EventPlayerLeft, Player: id, Polite: polite, Round: m.round})
	m.log.Info("player left", "player", id, "polite", polite, "state", m.state)

	if m.state == StateLobby {
		m.players[id] = nil
		return nil
	}

	p.Connected = false
	p.Ready = false
	if p.Alive {
		p.Alive = false
		if m.state == StatePlaying {
			m.emit(RoundEvent{Kind: EventPlayerEliminated, Player: id, Cause: CauseDisconnect, Round: m.round})
		}
	}

	if m.state.Terminal() {
		return nil
	}
	if m.connected() < m.rules.MinPlayers {
		m.state = StateMatchAborted
		m.emit(RoundEvent{Kind: EventMatchAborted, Player: id, Round: m.round})
		m.log.Warn("match aborted", "connected", m.connected(), "min", m.rules.MinPlayers)
		return nil
	}
	m.checkRoundOver()
	return nil
}

// Step advances the state machine by one tick and returns the committed frame.
func (m *Match) Step() Frame {
	m.tick++

	switch m.state {
	case StateLobby:
		if m.canStart() {
			m.startRound()
		}
	case StateCountdown:
		m.timer--
		if m.timer <= 0 {
			m.beginPlaying()
		}
	case StatePlaying:
		m.play()
	case StateRoundEnd:
		m.timer--
		if m.timer <= 0 {
			m.finishRound()
		}
	}

	return m.frame()
}

func (m *Match) canStart() bool {
	n := 0
	for _, p := range m.players {
		if p == nil {
			continue
		}
		if !p.Ready {
			return false
		}
		n++
	}
	return n >= m.rules.MinPlayers
}

// startRound resets the arena and spawns every connected player.
func (m *Match) startRound() {
	m.round++
	m.roundTick = 0
	m.trails.Clear()

	for _, p := range m.players {
		if p == nil {
			continue
		}
		p.Pos, p.Heading = m.rules.Spawn(p.ID)
		p.Speed = m.rules.Speed
		p.Alive = p.Connected
	}

	m.state = StateCountdown
	m.timer = m.rules.CountdownTicks
	m.log.Debug("round starting", "round", m.round, "tick", m.tick)
}

// beginPlaying switches to Playing and lays down the spawn cells.
func (m *Match) beginPlaying() {
	m.state = StatePlaying
	m.timer = 0
	for _, p := range m.players {
		if p == nil || !p.Alive {
			continue
		}
		c := p.Pos.Cell()
		if m.trails.Append(p.ID, c, m.tick) {
			m.cells = append(m.cells, TrailCell{Cell: c, Player: p.ID})
		}
	}
}

// play runs one Playing tick: every alive player moves in id order, the
// moves are resolved together and the trails committed.
func (m *Match) play() {
	m.roundTick++

	var moves []Move
	for _, p := range m.players {
		if p == nil || !p.Alive {
			continue
		}
		from := p.Pos
		Advance(p, p.Intent, m.rules.TurnRate)
		moves = append(moves, Move{Player: p.ID, From: from, To: p.Pos})
	}

	for _, o := range m.detect.ResolveTick(moves, m.tick) {
		if o.Result.Hit() {
			m.players[o.Player].Alive = false
			m.emit(RoundEvent{
				Kind:   EventPlayerEliminated,
				Player: o.Player,
				Other:  o.Result.Owner,
				Cause:  causeOf(o.Result),
				Round:  m.round,
			})
			m.log.Debug("player eliminated", "player", o.Player, "cause", o.Result.Kind, "cell", o.Result.Cell, "tick", m.tick)
			continue
		}
		for _, c := range o.Cells {
			m.cells = append(m.cells, TrailCell{Cell: c, Player: o.Player})
		}
	}

	m.checkRoundOver()
}

// checkRoundOver ends the round once at most one player is alive (none in
// a single-player round) and awards the survivor a point.
func (m *Match) checkRoundOver() {
	if m.state != StatePlaying {
		return
	}

	alive, last := 0, core.NoPlayer
	participants := 0
	for _, p := range m.players {
		if p == nil {
			continue
		}
		participants++
		if p.Alive {
			alive++
			last = p.ID
		}
	}

	threshold := 1
	if m.rules.Solo && participants == 1 {
		threshold = 0
	}
	if alive > threshold {
		return
	}

	m.state = StateRoundEnd
	m.timer = m.rules.RoundEndTicks
	if alive == 1 {
		m.players[last].Score++
		m.emit(RoundEvent{Kind: EventRoundWon, Player: last, Round: m.round})
		m.log.Info("round won", "round", m.round, "player", last, "score", m.players[last].Score)
		return
	}
	m.emit(RoundEvent{Kind: EventRoundDraw, Round: m.round})
	m.log.Info("round draw", "round", m.round)
}

// finishRound either ends the match or starts the next round.
func (m *Match) finishRound() {
	for _, p := range m.players {
		if p != nil && p.Score >= m.rules.WinScore {
			m.state = StateMatchEnd
			m.winner = p.ID
			m.emit(RoundEvent{Kind: EventMatchWon, Player: p.ID, Round: m.round})
			m.log.Info("match won", "player", p.ID, "score", p.Score, "rounds", m.round)
			return
		}
	}
	m.startRound()
}

func (m *Match) connected() int {
	n := 0
	for _, p := range m.players {
		if p != nil && p.Connected {
			n++
		}
	}
	return n
}

func (m *Match) emit(ev RoundEvent) {
	m.events = append(m.events, ev)
}

func (m *Match) frame() Frame {
	f := Frame{
		Tick:      m.tick,
		Round:     m.round,
		RoundTick: m.roundTick,
		State:     m.state,
		Timer:     max(m.timer, 0),
		Winner:    m.winner,
		Players:   m.Players(),
		Cells:     m.cells,
		Events:    m.events,
	}
	m.cells = nil
	m.events = nil
	return f
}
