package multiplayer

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/kurve/internal/config"
	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/kurve"
)

func testConfig() config.KurveConfig {
	cfg := config.DefaultKurveConfig()
	cfg.Match.CountdownTicks = 2
	cfg.Match.RoundEndTicks = 2
	cfg.Match.WinScore = 2
	return cfg
}

type harness struct {
	t     *testing.T
	host  *Host
	match *kurve.Match
	sched *kurve.Scheduler
	peers []*peer
}

type peer struct {
	client  *Client
	session *ChannelSession
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testConfig()
	rules, err := kurve.NewRules(cfg)
	if err != nil {
		t.Fatalf("NewRules: %v", err)
	}
	m := kurve.NewMatch(rules, nil)
	h := NewHost(cfg, rules, nil)
	return &harness{
		t:     t,
		host:  h,
		match: m,
		sched: kurve.NewScheduler(m, h, time.Millisecond, 1, kurve.WithSink(h)),
	}
}

func (hs *harness) connect(name string) *peer {
	c, s := hs.host.Connect(name, 64, nil)
	p := &peer{client: c, session: s}
	hs.peers = append(hs.peers, p)
	return p
}

// pump hands every queued event to the client and returns the first error.
func (p *peer) pump() error {
	var first error
	for {
		select {
		case evt := <-p.session.Events():
			if err := p.client.HandleEvent(evt); err != nil && first == nil {
				first = err
			}
		default:
			return first
		}
	}
}

// step runs one tick and delivers the results to every peer.
func (hs *harness) step() kurve.Frame {
	f := hs.sched.Step()
	for _, p := range hs.peers {
		_ = p.pump()
	}
	return f
}

// play connects n ready players and steps until the round is Playing.
func (hs *harness) play(n int) []*peer {
	hs.t.Helper()
	var peers []*peer
	for i := 0; i < n; i++ {
		p := hs.connect("")
		if err := p.client.ToggleReady(); err != nil {
			hs.t.Fatalf("ToggleReady: %v", err)
		}
		peers = append(peers, p)
	}
	for i := 0; i < 20 && hs.match.State() != kurve.StatePlaying; i++ {
		hs.step()
	}
	if hs.match.State() != kurve.StatePlaying {
		hs.t.Fatalf("match did not start, state %s", hs.match.State())
	}
	return peers
}

func intentOf(t *testing.T, f kurve.Frame, id PlayerID) core.Intent {
	t.Helper()
	p, ok := f.Player(id)
	if !ok {
		t.Fatalf("player %d missing from frame %d", id, f.Tick)
	}
	return p.Intent
}

func TestHostAdmitsAndBroadcasts(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("alice")
	b := hs.connect("")

	f := hs.step()
	if len(f.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(f.Players))
	}
	if a.client.Player() != 1 || b.client.Player() != 2 {
		t.Errorf("slots = %d, %d, expected 1, 2", a.client.Player(), b.client.Player())
	}
	if f.Name(1) != "alice" || f.Name(2) != "Player 2" {
		t.Errorf("names = %q, %q", f.Name(1), f.Name(2))
	}
	if hs.host.Sessions() != 2 {
		t.Errorf("Sessions() = %d, expected 2", hs.host.Sessions())
	}
	for _, p := range []*peer{a, b} {
		v := p.client.View()
		if v == nil || v.Frame.Tick != 1 || p.client.Desynced() {
			t.Fatalf("client view not synced: %+v", v)
		}
	}
}

func TestHostIgnoresSupersededInput(t *testing.T) {
	hs := newHarness(t)
	peers := hs.play(2)
	sid := peers[0].session.ID()
	for i := 0; i < 8; i++ {
		hs.step()
	}

	next := hs.match.Tick() + 1
	hs.host.Submit(InputMsg{Session: sid, Input: core.InputMessage{Tick: next, Player: 1, Intent: core.IntentRight}})
	hs.step()

	// Sent before the right turn, delivered after it.
	hs.host.Submit(InputMsg{Session: sid, Input: core.InputMessage{Tick: next - 2, Player: 1, Intent: core.IntentLeft}})
	f := hs.step()
	if got := intentOf(t, f, 1); got != core.IntentRight {
		t.Errorf("intent = %s, expected right", got)
	}
	if f.Stale {
		t.Error("frame should not be stale")
	}
	if s := hs.host.Stats(); s.Ignored != 1 || s.Applied != 1 {
		t.Errorf("stats = %+v, expected one applied and one ignored input", s)
	}
}

func TestHostAppliesLaggingInput(t *testing.T) {
	hs := newHarness(t)
	peers := hs.play(2)
	a, b := peers[0], peers[1]

	// Client a falls behind by several ticks.
	for i := 0; i < 6; i++ {
		hs.sched.Step()
		_ = b.pump()
	}
	if err := a.client.Control(core.ControlLeftStart); err != nil {
		t.Fatalf("Control: %v", err)
	}

	before, _ := hs.match.Player(1)
	f := hs.step()
	if got := intentOf(t, f, 1); got != core.IntentLeft {
		t.Fatalf("intent = %s, expected left", got)
	}
	after, _ := f.Player(1)
	if after.Heading == before.Heading {
		t.Error("lagging player did not turn")
	}
	if !f.Stale {
		t.Error("expected stale frame")
	}
	if s := hs.host.Stats(); s.Stale != 1 || s.Ignored != 0 {
		t.Errorf("stats = %+v, expected one stale input", s)
	}
	if a.client.Desynced() {
		t.Error("lagging client desynced")
	}
}

func TestHostAppliesLateInputAsStale(t *testing.T) {
	hs := newHarness(t)
	peers := hs.play(2)

	hs.host.Submit(InputMsg{
		Session: peers[0].session.ID(),
		Input:   core.InputMessage{Tick: hs.match.Tick(), Player: 1, Intent: core.IntentLeft},
	})

	f := hs.step()
	if !f.Stale {
		t.Error("expected stale frame")
	}
	if got := intentOf(t, f, 1); got != core.IntentLeft {
		t.Errorf("intent = %s, expected left", got)
	}
	if s := hs.host.Stats(); s.Stale != 1 {
		t.Errorf("stats = %+v, expected one stale input", s)
	}
}

func TestHostHoldsFutureInput(t *testing.T) {
	hs := newHarness(t)
	peers := hs.play(2)

	target := hs.match.Tick() + 3
	hs.host.Submit(InputMsg{
		Session: peers[1].session.ID(),
		Input:   core.InputMessage{Tick: target, Player: 2, Intent: core.IntentRight},
	})

	for hs.match.Tick() < target-1 {
		if got := intentOf(t, hs.step(), 2); got != core.IntentNone {
			t.Fatalf("intent applied early at tick %d", hs.match.Tick())
		}
	}
	f := hs.step()
	if f.Tick != target || intentOf(t, f, 2) != core.IntentRight {
		t.Errorf("tick %d: intent %s, expected right at %d", f.Tick, intentOf(t, f, 2), target)
	}
	if s := hs.host.Stats(); s.Applied != 1 || s.Stale != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestHostRejectsBadInput(t *testing.T) {
	hs := newHarness(t)
	peers := hs.play(2)
	sid := peers[0].session.ID()
	next := hs.match.Tick() + 1

	tests := []struct {
		name string
		msg  InputMsg
	}{
		{"too far ahead", InputMsg{Session: sid, Input: core.InputMessage{Tick: next + 100, Player: 1, Intent: core.IntentLeft}}},
		{"other player", InputMsg{Session: sid, Input: core.InputMessage{Tick: next, Player: 2, Intent: core.IntentLeft}}},
		{"invalid intent", InputMsg{Session: sid, Input: core.InputMessage{Tick: next, Player: 1, Intent: core.Intent(9)}}},
		{"unknown session", InputMsg{Session: "nobody", Input: core.InputMessage{Tick: next, Player: 1, Intent: core.IntentLeft}}},
	}

	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hs.host.Submit(tc.msg)
			f := hs.step()
			if intentOf(t, f, 1) != core.IntentNone || intentOf(t, f, 2) != core.IntentNone {
				t.Error("rejected input changed an intent")
			}
			if got := hs.host.Stats().Rejected; got != int64(i+1) {
				t.Errorf("Rejected = %d, expected %d", got, i+1)
			}
		})
	}
}

// flakySession fails every send from the n-th on.
type flakySession struct {
	id       SessionID
	failFrom int
	mu       sync.Mutex
	sent     int
	done     chan struct{}
	once     sync.Once
}

func newFlakySession(failFrom int) *flakySession {
	return &flakySession{id: NewSessionID(), failFrom: failFrom, done: make(chan struct{})}
}

func (s *flakySession) ID() SessionID         { return s.id }
func (s *flakySession) Done() <-chan struct{} { return s.done }
func (s *flakySession) Close()                { s.once.Do(func() { close(s.done) }) }

func (s *flakySession) Send(SessionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
	if s.sent >= s.failFrom {
		return errors.New("broken pipe")
	}
	return nil
}

func TestFailedSendDisconnectsOnlyThatSession(t *testing.T) {
	hs := newHarness(t)
	a, b := hs.connect("a"), hs.connect("b")
	flaky := newFlakySession(6) // welcome + frames 1..4
	hs.host.Submit(JoinMsg{Session: flaky, Name: "flaky"})
	hs.host.Submit(ReadyMsg{Session: flaky.ID(), Ready: true})
	for _, p := range []*peer{a, b} {
		if err := p.client.ToggleReady(); err != nil {
			t.Fatal(err)
		}
	}

	var f kurve.Frame
	for i := 0; i < 5; i++ {
		f = hs.step()
	}
	if f.State != kurve.StatePlaying {
		t.Fatalf("state = %s, expected playing", f.State)
	}
	select {
	case <-flaky.Done():
	default:
		t.Fatal("failing session was not closed")
	}

	f = hs.step()
	if !hasEvent(f, kurve.EventPlayerEliminated, 3) {
		t.Errorf("expected player 3 eliminated, events %+v", f.Events)
	}
	if f.State != kurve.StatePlaying {
		t.Errorf("state = %s, round should continue", f.State)
	}
	p3, _ := f.Player(3)
	if p3.Connected || p3.Alive {
		t.Errorf("player 3 = %+v, expected disconnected", p3)
	}
	for _, p := range []*peer{a, b} {
		if v := p.client.View(); v == nil || v.Frame.Tick != f.Tick {
			t.Errorf("client %d missed frame %d", p.client.Player(), f.Tick)
		}
	}
	if hs.host.Sessions() != 2 {
		t.Errorf("Sessions() = %d, expected 2", hs.host.Sessions())
	}
}

func hasEvent(f kurve.Frame, kind kurve.EventKind, id PlayerID) bool {
	for _, ev := range f.Events {
		if ev.Kind == kind && ev.Player == id {
			return true
		}
	}
	return false
}

func TestClientResyncsAfterGap(t *testing.T) {
	hs := newHarness(t)
	peers := hs.play(2)
	a := peers[0]

	// Lose one frame on the way to client a.
	hs.sched.Step()
	<-a.session.Events()
	_ = peers[1].pump()

	hs.step()
	if !a.client.Desynced() || a.client.Resyncs() != 1 {
		t.Fatalf("desynced = %v, resyncs = %d", a.client.Desynced(), a.client.Resyncs())
	}

	f := hs.step()
	if a.client.Desynced() {
		t.Fatal("client still desynced after full frame")
	}
	got, want := a.client.View(), hs.sched.View()
	if got.Frame.Tick != f.Tick {
		t.Errorf("client at tick %d, host at %d", got.Frame.Tick, f.Tick)
	}
	if !slices.Equal(got.Grid, want.Grid) {
		t.Error("client grid differs from host grid after resync")
	}
}

func TestClientResyncsAfterMalformed(t *testing.T) {
	hs := newHarness(t)
	peers := hs.play(2)

	peers[1].client.HandleMalformed(errors.New("bad payload"))
	peers[1].client.HandleMalformed(errors.New("bad payload"))
	if peers[1].client.Resyncs() != 1 {
		t.Errorf("Resyncs() = %d, expected a single request", peers[1].client.Resyncs())
	}

	hs.step()
	if peers[1].client.Desynced() {
		t.Error("client still desynced")
	}
}

func TestJoinRejected(t *testing.T) {
	t.Run("after start", func(t *testing.T) {
		hs := newHarness(t)
		hs.play(2)
		late := hs.connect("late")
		hs.sched.Step()
		if err := late.pump(); !errors.Is(err, ErrRejected) {
			t.Fatalf("pump() error = %v, expected ErrRejected", err)
		}
		if late.client.Rejected() != ReasonStarted {
			t.Errorf("Rejected() = %q", late.client.Rejected())
		}
		select {
		case <-late.session.Done():
		default:
			t.Error("rejected session still open")
		}
	})

	t.Run("full", func(t *testing.T) {
		hs := newHarness(t)
		for i := 0; i < core.MaxPlayers; i++ {
			hs.connect("")
		}
		extra := hs.connect("extra")
		hs.sched.Step()
		if err := extra.pump(); !errors.Is(err, ErrRejected) || extra.client.Rejected() != ReasonFull {
			t.Errorf("pump() error = %v, reason %q", err, extra.client.Rejected())
		}
	})
}

func TestClientControlAndPrediction(t *testing.T) {
	hs := newHarness(t)
	peers := hs.play(2)
	a := peers[0]

	if err := a.client.Control(core.ControlLeftStart); err != nil {
		t.Fatalf("Control: %v", err)
	}
	v := a.client.View()
	if !v.HasPrediction {
		t.Fatal("expected a prediction while playing")
	}
	cur, _ := v.Frame.Player(1)
	turn := hs.match.Rules().TurnRate
	if v.Predicted.Heading != cur.Heading.Add(-turn) {
		t.Errorf("predicted heading %d, expected %d", v.Predicted.Heading, cur.Heading.Add(-turn))
	}

	f := hs.step()
	if intentOf(t, f, 1) != core.IntentLeft {
		t.Error("intent not applied on the next tick")
	}
	if s := hs.host.Stats(); s.Applied != 1 || s.Stale != 0 {
		t.Errorf("stats = %+v, expected on-time input", s)
	}
	p1, _ := f.Player(1)
	if p1.Heading != v.Predicted.Heading || p1.Pos != v.Predicted.Pos {
		t.Errorf("prediction %+v differs from authoritative %+v", v.Predicted, p1)
	}
}

func TestClientQuitIsPolite(t *testing.T) {
	hs := newHarness(t)
	peers := hs.play(3)

	if err := peers[2].client.Quit(); err != nil {
		t.Fatalf("Quit: %v", err)
	}
	f := hs.step()

	var left *kurve.RoundEvent
	for i := range f.Events {
		if f.Events[i].Kind == kurve.EventPlayerLeft {
			left = &f.Events[i]
		}
	}
	if left == nil || left.Player != 3 || !left.Polite {
		t.Fatalf("expected polite leave of player 3, events %+v", f.Events)
	}
	if f.State != kurve.StatePlaying {
		t.Errorf("state = %s, expected playing", f.State)
	}
}

func TestLobbyLeaveFreesSlot(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("a")
	hs.connect("b")
	hs.step()

	if err := a.client.Quit(); err != nil {
		t.Fatal(err)
	}
	hs.step()
	c := hs.connect("c")
	hs.step()
	if c.client.Player() != 1 {
		t.Errorf("new player got slot %d, expected 1", c.client.Player())
	}
}
