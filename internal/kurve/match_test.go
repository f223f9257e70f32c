package kurve

import (
	"errors"
	"testing"

	"github.com/vovakirdan/kurve/internal/core"
)

func TestLobbyStartGuard(t *testing.T) {
	m := NewMatch(testRules(80, 24), nil)

	if err := m.Join(1, "ann"); err != nil {
		t.Fatal(err)
	}
	_ = m.SetReady(1, true)
	m.Step()
	if m.State() != StateLobby {
		t.Fatalf("one player should not start a networked match, state %s", m.State())
	}

	if err := m.Join(2, "bob"); err != nil {
		t.Fatal(err)
	}
	m.Step()
	if m.State() != StateLobby {
		t.Fatal("match started before every player was ready")
	}

	_ = m.SetReady(2, true)
	f := m.Step()
	if f.State != StateCountdown || f.Round != 1 {
		t.Fatalf("expected Countdown of round 1, got %s round %d", f.State, f.Round)
	}

	if err := m.Join(3, "cat"); !errors.Is(err, ErrMatchStarted) {
		t.Errorf("Join after start: %v, expected ErrMatchStarted", err)
	}
}

func TestJoinErrors(t *testing.T) {
	m := NewMatch(testRules(80, 24), nil)
	_ = m.Join(1, "")

	if err := m.Join(1, ""); !errors.Is(err, ErrSlotTaken) {
		t.Errorf("duplicate Join: %v", err)
	}
	if err := m.Join(core.MaxPlayers+1, ""); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("out of range Join: %v", err)
	}
	if err := m.SetIntent(3, core.IntentLeft); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("SetIntent unknown: %v", err)
	}
	if err := m.SetIntent(1, core.Intent(5)); !errors.Is(err, ErrInvalidIntent) {
		t.Errorf("SetIntent invalid: %v", err)
	}
}

func TestSoloRoundEndsWithNoSurvivors(t *testing.T) {
	r := testRules(30, 10)
	r.MinPlayers = 1
	r.Solo = true
	m := startMatch(t, r, 1)

	for i := 0; i < 500 && m.State() == StatePlaying; i++ {
		m.Step()
	}
	if m.State() != StateRoundEnd {
		t.Fatalf("solo round should end when the player crashes, state %s", m.State())
	}
}

func TestCountdownDoesNotMovePlayers(t *testing.T) {
	m := NewMatch(testRules(80, 24), nil)
	for id := core.PlayerID(1); id <= 2; id++ {
		_ = m.Join(id, "")
		_ = m.SetReady(id, true)
	}
	m.Step() // Lobby -> Countdown
	before, _ := m.Player(1)
	f := m.Step()
	after, _ := m.Player(1)

	if f.State != StateCountdown {
		t.Fatalf("expected Countdown, got %s", f.State)
	}
	if before.Pos != after.Pos {
		t.Error("player moved during countdown")
	}
	if m.Trails().Len(1) != 0 {
		t.Error("trail grew outside Playing")
	}
}

func TestRoundEndsExactlyWhenOneAlive(t *testing.T) {
	m := startMatch(t, testRules(40, 20), 3)

	// Player 3 heads into the wall, the others keep flying.
	place(m, 3, core.Cell{X: 39, Y: 10}, core.East)
	place(m, 1, core.Cell{X: 5, Y: 5}, core.East)
	place(m, 2, core.Cell{X: 5, Y: 15}, core.East)

	for i := 0; i < 4; i++ {
		m.Step()
	}
	if p, _ := m.Player(3); p.Alive {
		t.Fatal("player 3 should have crashed")
	}
	if m.State() != StatePlaying {
		t.Fatalf("round ended with two players alive, state %s", m.State())
	}

	// Player 2 turns into the bottom wall.
	place(m, 2, core.Cell{X: 20, Y: 19}, core.South)
	var f Frame
	for i := 0; i < 4 && m.State() == StatePlaying; i++ {
		f = m.Step()
	}
	if m.State() != StateRoundEnd {
		t.Fatalf("expected RoundEnd, got %s", m.State())
	}
	if !hasEvent(f, EventPlayerEliminated, 2) || !hasEvent(f, EventRoundWon, 1) {
		t.Errorf("RoundEnd frame events %+v", f.Events)
	}
	if p, _ := m.Player(1); p.Score != 1 {
		t.Errorf("winner score = %d, expected 1", p.Score)
	}
}

func TestHeadOnFromOppositeCorners(t *testing.T) {
	m := startMatch(t, testRules(80, 24), 2)

	p1, _ := m.Player(1)
	p2, _ := m.Player(2)
	if p2.Heading != p1.Heading.Add(core.HalfTurn) {
		t.Fatalf("spawn headings not opposite: %d vs %d", p1.Heading, p2.Heading)
	}

	var f Frame
	for i := 0; i < 200 && m.State() == StatePlaying; i++ {
		f = m.Step()
	}

	if m.State() != StateRoundEnd {
		t.Fatalf("players never collided, state %s", m.State())
	}
	if !hasEvent(f, EventPlayerEliminated, 1) || !hasEvent(f, EventPlayerEliminated, 2) {
		t.Fatalf("both players should be eliminated in tick %d, events %+v", f.Tick, f.Events)
	}
	if !hasEvent(f, EventRoundDraw, core.NoPlayer) {
		t.Error("head-on should be a draw")
	}
	if f.RoundTick < 60 || f.RoundTick > 90 {
		t.Errorf("collision at round tick %d, expected near the centre", f.RoundTick)
	}
	for _, p := range f.Players {
		c := p.Pos.Cell()
		if c.X < 30 || c.X > 50 {
			t.Errorf("player %d crashed at %v, expected near the centre", p.ID, c)
		}
	}
}

func TestDisconnectMidRound(t *testing.T) {
	m := startMatch(t, testRules(60, 30), 3)
	place(m, 1, core.Cell{X: 10, Y: 5}, core.East)
	place(m, 2, core.Cell{X: 10, Y: 15}, core.East)
	place(m, 3, core.Cell{X: 10, Y: 25}, core.East)
	m.Step()

	if err := m.Leave(2, false); err != nil {
		t.Fatal(err)
	}
	f := m.Step()
	if m.State() != StatePlaying {
		t.Fatalf("round should continue with two players, state %s", m.State())
	}
	if !hasEvent(f, EventPlayerLeft, 2) || !hasEvent(f, EventPlayerEliminated, 2) {
		t.Errorf("expected leave and elimination events, got %+v", f.Events)
	}
	if p, _ := m.Player(2); p.Alive || p.Connected {
		t.Error("disconnected player should be eliminated")
	}

	// Player 3 runs into the bottom wall; player 1 is the last one standing.
	place(m, 3, core.Cell{X: 30, Y: 29}, core.South)
	for i := 0; i < 4 && m.State() == StatePlaying; i++ {
		f = m.Step()
	}
	if m.State() != StateRoundEnd || !hasEvent(f, EventRoundWon, 1) {
		t.Fatalf("expected player 1 to win, state %s events %+v", m.State(), f.Events)
	}
}

func TestDisconnectBelowMinimumAborts(t *testing.T) {
	m := startMatch(t, testRules(60, 30), 2)
	if err := m.Leave(1, true); err != nil {
		t.Fatal(err)
	}
	f := m.Step()
	if f.State != StateMatchAborted {
		t.Fatalf("expected MatchAborted, got %s", f.State)
	}
	if !hasEvent(f, EventMatchAborted, 1) {
		t.Errorf("missing MatchAborted event: %+v", f.Events)
	}
	if err := m.Leave(1, true); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("second Leave: %v", err)
	}
}

func TestLeaveInLobbyFreesSlot(t *testing.T) {
	m := NewMatch(testRules(80, 24), nil)
	_ = m.Join(1, "ann")
	if err := m.Leave(1, true); err != nil {
		t.Fatal(err)
	}
	if err := m.Join(1, "bob"); err != nil {
		t.Errorf("slot should be free again: %v", err)
	}
}

func TestMatchEndsAtWinScore(t *testing.T) {
	m := startMatch(t, testRules(40, 20), 2)

	for round := 1; round <= 2; round++ {
		if m.State() != StatePlaying {
			t.Fatalf("round %d: expected Playing, got %s", round, m.State())
		}
		place(m, 2, core.Cell{X: 39, Y: 10}, core.East)
		place(m, 1, core.Cell{X: 5, Y: 5}, core.South)
		for i := 0; i < 10 && m.State() == StatePlaying; i++ {
			m.Step()
		}
		if m.State() != StateRoundEnd {
			t.Fatalf("round %d did not end", round)
		}
		for i := 0; i < 10 && m.State() == StateRoundEnd; i++ {
			m.Step()
		}
		for i := 0; i < 10 && m.State() == StateCountdown; i++ {
			m.Step()
		}
	}

	if m.State() != StateMatchEnd {
		t.Fatalf("expected MatchEnd, got %s", m.State())
	}
	f := m.Step()
	if f.Winner != 1 {
		t.Errorf("winner = %d, expected 1", f.Winner)
	}
}

func TestBannerText(t *testing.T) {
	name := func(id core.PlayerID) string { return []string{"", "ann", "bob"}[id] }
	tests := []struct {
		ev   RoundEvent
		want string
	}{
		{RoundEvent{Kind: EventPlayerEliminated, Player: 1}, "ann crashed!"},
		{RoundEvent{Kind: EventRoundWon, Player: 2}, "bob won!"},
		{RoundEvent{Kind: EventRoundDraw}, "Everyone crashed!"},
		{RoundEvent{Kind: EventMatchAborted, Player: 2}, "They left!"},
	}
	for _, tc := range tests {
		if got := tc.ev.Banner(name); got != tc.want {
			t.Errorf("Banner(%s) = %q, expected %q", tc.ev.Kind, got, tc.want)
		}
	}
}
