package kurve

import "github.com/vovakirdan/kurve/internal/core"

// CollisionKind classifies the outcome of a move.
type CollisionKind uint8

const (
	CollisionNone  CollisionKind = iota
	CollisionWall                // Arena bounds or static obstacle
	CollisionTrail               // A committed trail cell, Owner is set
	CollisionHead                // Same fresh cell claimed by several players this tick
)

// String returns a human-readable name for the collision kind.
func (k CollisionKind) String() string {
	switch k {
	case CollisionNone:
		return "none"
	case CollisionWall:
		return "wall"
	case CollisionTrail:
		return "trail"
	case CollisionHead:
		return "head-on"
	default:
		return "unknown"
	}
}

// CollisionResult describes what a move ran into.
type CollisionResult struct {
	Kind  CollisionKind
	Owner core.PlayerID // Trail owner, or the other claimant of a head-on
	Cell  core.Cell
}

// Hit reports whether the move eliminates the player.
func (r CollisionResult) Hit() bool {
	return r.Kind != CollisionNone
}

// Move is a player's proposed displacement for one tick.
type Move struct {
	Player   core.PlayerID
	From, To core.Vec
}

// Outcome is the resolved result of a Move.
type Outcome struct {
	Player core.PlayerID
	Result CollisionResult
	Cells  []core.Cell // Cells appended to the trail (survivors only)
}

// Detector tests moves against the arena and the committed trails.
// It only reads the TrailStore until ResolveTick commits.
type Detector struct {
	rules  Rules
	trails *TrailStore
}

// NewDetector creates a detector over the given trails.
func NewDetector(rules Rules, trails *TrailStore) *Detector {
	return &Detector{rules: rules, trails: trails}
}

// path returns the cells newly entered when moving from one position to
// another, excluding the cell the move starts in.
func path(from, to core.Vec) []core.Cell {
	return core.Line(from.Cell(), to.Cell())[1:]
}

// Check tests a single move. The destination is checked against the arena
// bounds first; then every entered cell is checked against obstacles and
// the trail grid.
func (d *Detector) Check(id core.PlayerID, from, to core.Vec, tick uint64) CollisionResult {
	dst := to.Cell()
	if !d.rules.Bounds().ContainsCell(dst) {
		return CollisionResult{Kind: CollisionWall, Cell: dst}
	}

	for _, c := range path(from, to) {
		if d.rules.Blocked(c) {
			return CollisionResult{Kind: CollisionWall, Cell: c}
		}
		owner, ok := d.trails.Contains(c)
		if !ok {
			continue
		}
		if owner == id && d.trails.IsOwnRecent(id, c, tick, d.rules.SelfGap) {
			continue
		}
		return CollisionResult{Kind: CollisionTrail, Owner: owner, Cell: c}
	}
	return CollisionResult{}
}

// ResolveTick evaluates every move against the trails as committed before
// this tick, eliminates all players that claim the same fresh cell, and
// then appends the cells of the survivors. The result does not depend on
// the order of moves.
func (d *Detector) ResolveTick(moves []Move, tick uint64) []Outcome {
	outcomes := make([]Outcome, len(moves))
	claims := make(map[core.Cell][]int)
	var order []core.Cell

	for i, m := range moves {
		res := d.Check(m.Player, m.From, m.To, tick)
		outcomes[i] = Outcome{Player: m.Player, Result: res}
		for _, c := range path(m.From, m.To) {
			// A player stops at the cell it crashed into.
			if res.Hit() && c == res.Cell {
				break
			}
			if _, taken := d.trails.Contains(c); taken || d.rules.Blocked(c) {
				continue
			}
			if _, seen := claims[c]; !seen {
				order = append(order, c)
			}
			claims[c] = appendUnique(claims[c], i)
		}
	}

	for _, c := range order {
		movers := claims[c]
		if len(movers) < 2 {
			continue
		}
		for _, i := range movers {
			if outcomes[i].Result.Hit() {
				continue
			}
			outcomes[i].Result = CollisionResult{Kind: CollisionHead, Owner: otherClaimant(moves, movers, i), Cell: c}
		}
	}

	for i, m := range moves {
		if outcomes[i].Result.Hit() {
			continue
		}
		for _, c := range path(m.From, m.To) {
			if d.trails.Append(m.Player, c, tick) {
				outcomes[i].Cells = append(outcomes[i].Cells, c)
			}
		}
	}
	return outcomes
}

func appendUnique(list []int, i int) []int {
	for _, v := range list {
		if v == i {
			return list
		}
	}
	return append(list, i)
}

// otherClaimant returns the lowest player id among the other claimants.
func otherClaimant(moves []Move, movers []int, self int) core.PlayerID {
	other := core.NoPlayer
	for _, i := range movers {
		if i == self {
			continue
		}
		if id := moves[i].Player; other == core.NoPlayer || id < other {
			other = id
		}
	}
	return other
}
