package kurve

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/kurve/internal/core"
)

// fakeClock only moves when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordSink struct {
	frames []Frame
}

func (r *recordSink) Publish(f Frame) {
	r.frames = append(r.frames, f)
}

func newTestScheduler(t *testing.T, clock Clock) (*Scheduler, *InputQueue, *recordSink) {
	t.Helper()
	m := NewMatch(testRules(80, 24), nil)
	q := NewInputQueue(16)
	sink := &recordSink{}
	s := NewScheduler(m, q, 50*time.Millisecond, 3, WithClock(clock), WithSink(sink))
	return s, q, sink
}

func TestSchedulerStepAppliesCommandsAndInputs(t *testing.T) {
	s, q, sink := newTestScheduler(t, &fakeClock{})

	q.Send(Command{Kind: CommandJoin, Player: 1, Name: "ann"})
	q.Send(Command{Kind: CommandJoin, Player: 2, Name: "bob"})
	q.Send(Command{Kind: CommandReady, Player: 1, Ready: true})
	q.Send(Command{Kind: CommandReady, Player: 2, Ready: true})
	q.Push(core.InputMessage{Player: 1, Intent: core.IntentLeft})
	q.Push(core.InputMessage{Player: 3, Intent: core.IntentLeft}) // unknown, rejected

	f := s.Step()
	if f.Tick != 1 || f.State != StateCountdown {
		t.Fatalf("frame tick %d state %s", f.Tick, f.State)
	}
	if p, _ := f.Player(1); p.Intent != core.IntentLeft {
		t.Errorf("intent = %s, expected Left", p.Intent)
	}
	if len(sink.frames) != 1 {
		t.Fatalf("sink received %d frames", len(sink.frames))
	}
	if s.View().Frame.Tick != 1 {
		t.Errorf("view tick = %d, expected 1", s.View().Frame.Tick)
	}
}

func TestSchedulerKeepsLastIntent(t *testing.T) {
	s, q, _ := newTestScheduler(t, &fakeClock{})
	q.Send(Command{Kind: CommandJoin, Player: 1})
	q.Push(core.InputMessage{Player: 1, Intent: core.IntentRight})
	s.Step()

	for i := 0; i < 3; i++ {
		f := s.Step()
		if p, _ := f.Player(1); p.Intent != core.IntentRight {
			t.Fatalf("tick %d: intent = %s, expected held Right", f.Tick, p.Intent)
		}
	}
}

func TestSchedulerCatchUpIsBounded(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s, _, sink := newTestScheduler(t, clock)
	s.next = clock.Now().Add(s.interval)

	tests := []struct {
		name     string
		advance  time.Duration
		ran      int
		overruns int64
	}{
		{"not due", 10 * time.Millisecond, 0, 0},
		{"one due", 40 * time.Millisecond, 1, 0},
		{"two due", 100 * time.Millisecond, 2, 0},
		{"far behind", time.Second, 3, 1},
		{"rebased", 50 * time.Millisecond, 1, 1},
	}

	total := 0
	for _, tc := range tests {
		clock.Advance(tc.advance)
		ran := s.runDue(clock.Now())
		total += ran
		if ran != tc.ran {
			t.Errorf("%s: ran %d ticks, expected %d", tc.name, ran, tc.ran)
		}
		if s.Overruns() != tc.overruns {
			t.Errorf("%s: overruns = %d, expected %d", tc.name, s.Overruns(), tc.overruns)
		}
	}

	for i, f := range sink.frames {
		if f.Tick != uint64(i+1) {
			t.Fatalf("tick %d skipped: frame %d has tick %d", i+1, i, f.Tick)
		}
	}
	if len(sink.frames) != total {
		t.Errorf("published %d frames, ran %d ticks", len(sink.frames), total)
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	s, _, sink := newTestScheduler(t, &fakeClock{now: time.Unix(0, 0)})
	ctx, cancel := context.WithCancel(context.Background())

	s.sinks = append(s.sinks, sinkFunc(func(f Frame) {
		if f.Tick == 10 {
			cancel()
		}
	}))

	if err := s.Run(ctx); err != context.Canceled {
		t.Fatalf("Run returned %v, expected context.Canceled", err)
	}
	if n := len(sink.frames); n != 10 {
		t.Errorf("ran %d ticks, expected 10", n)
	}
}

func TestSchedulerRunReturnsWhenMatchOver(t *testing.T) {
	s, q, _ := newTestScheduler(t, &fakeClock{now: time.Unix(0, 0)})
	q.Send(Command{Kind: CommandJoin, Player: 1})
	q.Send(Command{Kind: CommandJoin, Player: 2})
	q.Send(Command{Kind: CommandReady, Player: 1, Ready: true})
	q.Send(Command{Kind: CommandReady, Player: 2, Ready: true})
	s.Step()
	q.Send(Command{Kind: CommandLeave, Player: 2})

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.View().Frame.State != StateMatchAborted {
		t.Errorf("state = %s, expected MatchAborted", s.View().Frame.State)
	}
}

type sinkFunc func(Frame)

func (f sinkFunc) Publish(fr Frame) { f(fr) }

func TestViewReflectsTrails(t *testing.T) {
	s, q, _ := newTestScheduler(t, &fakeClock{})
	for id := core.PlayerID(1); id <= 2; id++ {
		q.Send(Command{Kind: CommandJoin, Player: id})
		q.Send(Command{Kind: CommandReady, Player: id, Ready: true})
	}
	for i := 0; i < 20; i++ {
		s.Step()
	}

	v := s.View()
	if v.Frame.State != StatePlaying {
		t.Fatalf("state = %s", v.Frame.State)
	}
	p1, _ := v.Frame.Player(1)
	if v.Owner(p1.Pos.Cell()) != 1 {
		t.Errorf("head cell of player 1 not in view grid")
	}
	if v.Owner(core.Cell{X: 3, Y: 3}) != 1 {
		t.Errorf("spawn cell missing from view grid")
	}
}

func TestBotsAvoidWalls(t *testing.T) {
	r := testRules(40, 20)
	m := NewMatch(r, nil)
	q := NewInputQueue(8)
	bots := NewBots(m, q, 1, 2)
	s := NewScheduler(m, bots, time.Millisecond, 1)

	for id := core.PlayerID(1); id <= 2; id++ {
		q.Send(Command{Kind: CommandJoin, Player: id})
		q.Send(Command{Kind: CommandReady, Player: id, Ready: true})
	}
	for i := 0; i < 5; i++ {
		s.Step()
	}
	if m.State() != StatePlaying {
		t.Fatalf("state = %s", m.State())
	}
	place(m, 1, core.Cell{X: 36, Y: 10}, core.East)

	for i := 0; i < 10; i++ {
		s.Step()
	}
	if p, _ := m.Player(1); !p.Alive {
		t.Error("bot drove into the wall")
	}
}
