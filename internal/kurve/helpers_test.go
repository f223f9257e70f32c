package kurve

import (
	"testing"

	"github.com/vovakirdan/kurve/internal/core"
)

func testRules(w, h int) Rules {
	return Rules{
		Width:          w,
		Height:         h,
		TurnRate:       core.AngleFromDegrees(9),
		Speed:          core.FromFloat(0.5),
		SelfGap:        6,
		WinScore:       2,
		CountdownTicks: 2,
		RoundEndTicks:  2,
		MinPlayers:     2,
	}
}

// startMatch joins n ready players and steps until the round is Playing.
func startMatch(t *testing.T, r Rules, n int) *Match {
	t.Helper()
	m := NewMatch(r, nil)
	for id := core.PlayerID(1); int(id) <= n; id++ {
		if err := m.Join(id, ""); err != nil {
			t.Fatalf("Join(%d): %v", id, err)
		}
		if err := m.SetReady(id, true); err != nil {
			t.Fatalf("SetReady(%d): %v", id, err)
		}
	}
	for i := 0; i < 100 && m.State() != StatePlaying; i++ {
		m.Step()
	}
	if m.State() != StatePlaying {
		t.Fatalf("match did not start, state %s", m.State())
	}
	return m
}

// place moves a player to the given cell and heading.
func place(m *Match, id core.PlayerID, c core.Cell, h core.Angle) {
	p := m.players[id]
	p.Pos = c.Center()
	p.Heading = h
}

// mirror puts player dst at the point reflection of src through the arena
// centre, heading the opposite way.
func mirror(m *Match, src, dst core.PlayerID) {
	w, h := core.FromInt(m.rules.Width), core.FromInt(m.rules.Height)
	s, d := m.players[src], m.players[dst]
	d.Pos = core.Vec{X: w - s.Pos.X, Y: h - s.Pos.Y}
	d.Heading = s.Heading.Add(core.HalfTurn)
}

func hasEvent(f Frame, kind EventKind, id core.PlayerID) bool {
	for _, ev := range f.Events {
		if ev.Kind == kind && ev.Player == id {
			return true
		}
	}
	return false
}
