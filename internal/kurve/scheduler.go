package kurve

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Clock abstracts time for the scheduler so tests can drive it.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the logger used for overruns and rejected inputs.
func WithLogger(l *log.Logger) SchedulerOption {
	return func(s *Scheduler) { s.log = l }
}

// WithSink adds a FrameSink.
func WithSink(sink FrameSink) SchedulerOption {
	return func(s *Scheduler) { s.sinks = append(s.sinks, sink) }
}

// Scheduler drives a Match at a fixed logical rate. Each tick it drains
// the InputSource, steps the match and publishes the committed frame.
// All match mutation happens on the goroutine calling Step or Run.
type Scheduler struct {
	match      *Match
	src        InputSource
	sinks      []FrameSink
	interval   time.Duration
	maxCatchUp int
	clock      Clock
	log        *log.Logger

	replica  *Replica
	view     atomic.Pointer[View]
	overruns atomic.Int64
	next     time.Time
}

// NewScheduler creates a scheduler ticking every interval and running at
// most maxCatchUp ticks back-to-back per scheduling pass.
func NewScheduler(m *Match, src InputSource, interval time.Duration, maxCatchUp int, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		match:      m,
		src:        src,
		interval:   interval,
		maxCatchUp: max(maxCatchUp, 1),
		clock:      systemClock{},
		log:        log.New(io.Discard),
		replica:    NewReplica(m.Rules()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.view.Store(s.replica.View())
	return s
}

// View returns the latest committed snapshot. Safe for concurrent use.
func (s *Scheduler) View() *View {
	return s.view.Load()
}

// Overruns returns how many scheduling passes fell too far behind.
func (s *Scheduler) Overruns() int64 {
	return s.overruns.Load()
}

// Step runs exactly one tick.
func (s *Scheduler) Step() Frame {
	tick := s.match.Tick() + 1
	var b Batch
	if s.src != nil {
		b = s.src.Drain(tick)
	}

	for _, c := range b.Commands {
		if err := s.match.Apply(c); err != nil {
			s.log.Warn("command rejected", "kind", c.Kind, "player", c.Player, "err", err)
		}
	}
	for _, in := range b.Inputs {
		if err := s.match.SetIntent(in.Player, in.Intent); err != nil {
			s.log.Warn("input rejected", "player", in.Player, "tick", in.Tick, "err", err)
		}
	}

	f := s.match.Step()
	f.Stale = b.Stale

	s.replica.Apply(f)
	s.view.Store(s.replica.View())
	for _, sink := range s.sinks {
		sink.Publish(f)
	}
	return f
}

// Run ticks until ctx is cancelled or the match reaches a terminal state.
// It returns nil when the match is over and ctx.Err() on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	s.next = s.clock.Now().Add(s.interval)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if wait := s.next.Sub(s.clock.Now()); wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.clock.After(wait):
			}
		}

		s.runDue(s.clock.Now())
		if s.match.State().Terminal() {
			return nil
		}
	}
}

// runDue runs the ticks that are due at now, at most maxCatchUp of them.
// If more are due the overrun is logged and the schedule restarts from now
// instead of accumulating drift.
func (s *Scheduler) runDue(now time.Time) int {
	if now.Before(s.next) {
		return 0
	}
	due := 1 + int(now.Sub(s.next)/s.interval)
	run := min(due, s.maxCatchUp)

	ran := 0
	for ran < run {
		s.Step()
		ran++
		if s.match.State().Terminal() {
			break
		}
	}

	if due > s.maxCatchUp {
		s.overruns.Add(1)
		s.log.Warn("tick overrun", "due", due, "ran", ran, "tick", s.match.Tick())
		s.next = now.Add(s.interval)
	} else {
		s.next = s.next.Add(time.Duration(due) * s.interval)
	}
	return ran
}
