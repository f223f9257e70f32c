package kurve

import (
	"fmt"

	"github.com/vovakirdan/kurve/internal/core"
)

// Frame is the committed result of one tick. It is the authoritative
// snapshot the host broadcasts; Cells holds only the trail cells appended
// on this tick unless Resync is set, in which case it holds all of them.
type Frame struct {
	Tick      uint64        `msgpack:"tick"`
	Round     int           `msgpack:"round"`
	RoundTick uint64        `msgpack:"round_tick"`
	State     State         `msgpack:"state"`
	Timer     int           `msgpack:"timer"` // Ticks left in Countdown/RoundEnd
	Winner    core.PlayerID `msgpack:"winner"`
	Players   []PlayerState `msgpack:"players"`
	Cells     []TrailCell   `msgpack:"cells"`
	Events    []RoundEvent  `msgpack:"events"`
	Stale     bool          `msgpack:"stale"`  // A late input was applied on this tick
	Resync    bool          `msgpack:"resync"` // Cells is the complete trail set
}

// Player returns the state of a player in the frame.
func (f *Frame) Player(id core.PlayerID) (PlayerState, bool) {
	for _, p := range f.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerState{}, false
}

// Name returns a player's display name, or a placeholder.
func (f *Frame) Name(id core.PlayerID) string {
	if p, ok := f.Player(id); ok && p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("Player %d", id)
}

// View is a read-only snapshot for renderers: the latest committed frame
// plus the full trail grid.
type View struct {
	Frame     Frame
	Width     int
	Height    int
	Obstacles []core.Rect
	Grid      []core.PlayerID // Row-major owner of every cell

	// Recent holds the latest events, oldest first. EventSeq counts every
	// event applied so far, so a renderer can tell which ones are new.
	Recent   []RoundEvent
	EventSeq uint64

	// Predicted is the locally predicted state of the viewing player,
	// valid when HasPrediction is set. Only clients fill it in.
	Predicted     PlayerState
	HasPrediction bool
}

// Owner returns the trail owner of a cell.
func (v *View) Owner(c core.Cell) core.PlayerID {
	if c.X < 0 || c.X >= v.Width || c.Y < 0 || c.Y >= v.Height {
		return core.NoPlayer
	}
	return v.Grid[c.Y*v.Width+c.X]
}

// ViewSource is implemented by anything that can be rendered.
type ViewSource interface {
	View() *View
}

// Replica rebuilds the trail grid from a stream of frames. The scheduler,
// the host and every client keep one.
type Replica struct {
	rules         Rules
	width, height int
	obstacles     []core.Rect
	trails        *TrailStore
	last          Frame
	started       bool
	recent        []RoundEvent
	eventSeq      uint64
}

// recentEvents bounds Replica's event history.
const recentEvents = 8

// NewReplica creates an empty replica for the given rules.
func NewReplica(rules Rules) *Replica {
	return &Replica{
		rules:     rules,
		width:     rules.Width,
		height:    rules.Height,
		obstacles: rules.Obstacles,
		trails:    NewTrailStore(rules.Width, rules.Height),
	}
}

// Apply merges a frame. A resync frame or the first frame of a new round
// replaces the grid; otherwise the frame's cells are appended.
func (r *Replica) Apply(f Frame) {
	if f.Resync || !r.started || f.Round != r.last.Round {
		r.trails.Clear()
	}
	for _, c := range f.Cells {
		r.trails.Append(c.Player, c.Cell, f.Tick)
	}
	r.recent = append(r.recent, f.Events...)
	if n := len(r.recent) - recentEvents; n > 0 {
		r.recent = append(r.recent[:0:0], r.recent[n:]...)
	}
	r.eventSeq += uint64(len(f.Events))
	r.last = f
	r.started = true
}

// Last returns the most recently applied frame.
func (r *Replica) Last() (Frame, bool) {
	return r.last, r.started
}

// Pilot returns a pilot probing the replica's trail grid. It reads the
// grid directly, so it must be used under the same lock as Apply.
func (r *Replica) Pilot() *Pilot {
	return NewPilot(r.rules, r.trails)
}

// Full returns the last frame with every trail cell, flagged as a resync.
func (r *Replica) Full() Frame {
	f := r.last
	f.Cells = r.trails.Cells()
	f.Events = nil
	f.Resync = true
	return f
}

// View copies the replica into a renderer snapshot.
func (r *Replica) View() *View {
	return &View{
		Frame:     r.last,
		Width:     r.width,
		Height:    r.height,
		Obstacles: r.obstacles,
		Grid:      append([]core.PlayerID(nil), r.trails.owner...),
		Recent:    append([]RoundEvent(nil), r.recent...),
		EventSeq:  r.eventSeq,
	}
}
