package kurve

import "github.com/vovakirdan/kurve/internal/core"

// Segment is one occupied cell of a trail with the tick it was created on.
type Segment struct {
	Cell core.Cell
	Tick uint64
}

// TrailCell is a trail cell attributed to its owner, as carried in frames.
type TrailCell struct {
	Cell   core.Cell     `msgpack:"c"`
	Player core.PlayerID `msgpack:"p"`
}

// TrailStore records the cells occupied by every player's trail.
// A flat grid gives O(1) lookups; per-player segment lists keep creation
// order for rendering and snapshots. Cells are only appended or cleared.
type TrailStore struct {
	width, height int
	owner         []core.PlayerID
	stamp         []uint64
	segments      [core.MaxPlayers + 1][]Segment
}

// NewTrailStore creates an empty store for an arena of the given size.
func NewTrailStore(width, height int) *TrailStore {
	return &TrailStore{
		width:  width,
		height: height,
		owner:  make([]core.PlayerID, width*height),
		stamp:  make([]uint64, width*height),
	}
}

func (t *TrailStore) index(c core.Cell) (int, bool) {
	if c.X < 0 || c.X >= t.width || c.Y < 0 || c.Y >= t.height {
		return 0, false
	}
	return c.Y*t.width + c.X, true
}

// Append marks c as occupied by id at tick. It returns false, leaving the
// store unchanged, if the cell is outside the arena or already occupied.
func (t *TrailStore) Append(id core.PlayerID, c core.Cell, tick uint64) bool {
	i, ok := t.index(c)
	if !ok || !id.Valid() || t.owner[i] != core.NoPlayer {
		return false
	}
	t.owner[i] = id
	t.stamp[i] = tick
	t.segments[id] = append(t.segments[id], Segment{Cell: c, Tick: tick})
	return true
}

// Contains returns the owner of c, if any.
func (t *TrailStore) Contains(c core.Cell) (core.PlayerID, bool) {
	i, ok := t.index(c)
	if !ok || t.owner[i] == core.NoPlayer {
		return core.NoPlayer, false
	}
	return t.owner[i], true
}

// IsOwnRecent reports whether c belongs to id and was created fewer than
// gap ticks before tick. Such cells never count as a self-collision.
func (t *TrailStore) IsOwnRecent(id core.PlayerID, c core.Cell, tick, gap uint64) bool {
	i, ok := t.index(c)
	if !ok || t.owner[i] != id {
		return false
	}
	return tick-t.stamp[i] < gap
}

// Len returns the number of cells in a player's trail.
func (t *TrailStore) Len(id core.PlayerID) int {
	if !id.Valid() {
		return 0
	}
	return len(t.segments[id])
}

// Segments returns a copy of a player's trail in creation order.
func (t *TrailStore) Segments(id core.PlayerID) []Segment {
	if !id.Valid() {
		return nil
	}
	return append([]Segment(nil), t.segments[id]...)
}

// Cells returns every trail cell, grouped by player.
func (t *TrailStore) Cells() []TrailCell {
	var out []TrailCell
	for id := range t.segments {
		for _, s := range t.segments[id] {
			out = append(out, TrailCell{Cell: s.Cell, Player: core.PlayerID(id)})
		}
	}
	return out
}

// Clear removes all trails. Used on round reset.
func (t *TrailStore) Clear() {
	clear(t.owner)
	clear(t.stamp)
	for id := range t.segments {
		t.segments[id] = t.segments[id][:0]
	}
}
