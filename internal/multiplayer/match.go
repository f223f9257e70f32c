package multiplayer

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/kurve/internal/config"
	"github.com/vovakirdan/kurve/internal/kurve"
)

// MatchResult contains the outcome of a hosted match.
type MatchResult struct {
	MatchID MatchID
	State   kurve.State // MatchEnd or MatchAborted; Lobby etc. when stopped early
	Winner  PlayerID
	Scores  map[PlayerID]int
	Ticks   uint64
}

// HostedMatch bundles the match aggregate, its scheduler and the host that
// serves it to sessions.
type HostedMatch struct {
	match *kurve.Match
	host  *Host
	sched *kurve.Scheduler
	log   *log.Logger

	cancel   context.CancelFunc
	stopped  bool
	done     chan struct{}
	doneOnce sync.Once
	mu       sync.Mutex
}

// NewHostedMatch builds a match from cfg. Extra sources (bots, a local
// keyboard queue) are drained after the host each tick.
func NewHostedMatch(cfg config.KurveConfig, logger *log.Logger, extra ...kurve.InputSource) (*HostedMatch, error) {
	rules, err := kurve.NewRules(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	m := kurve.NewMatch(rules, logger.WithPrefix("match"))
	h := NewHost(cfg, rules, logger.WithPrefix("host"))
	src := append(kurve.Sources{h}, extra...)
	sched := kurve.NewScheduler(m, src, cfg.TickInterval(), cfg.Network.MaxCatchUp,
		kurve.WithLogger(logger.WithPrefix("tick")),
		kurve.WithSink(h),
	)

	return &HostedMatch{
		match: m,
		host:  h,
		sched: sched,
		log:   logger,
		done:  make(chan struct{}),
	}, nil
}

// ID returns the match identifier.
func (hm *HostedMatch) ID() MatchID { return hm.host.ID() }

// Host returns the session-facing host.
func (hm *HostedMatch) Host() *Host { return hm.host }

// Match returns the match aggregate. Only safe to read once Run returned.
func (hm *HostedMatch) Match() *kurve.Match { return hm.match }

// View implements kurve.ViewSource.
func (hm *HostedMatch) View() *kurve.View { return hm.sched.View() }

// Done closes when Run returns.
func (hm *HostedMatch) Done() <-chan struct{} { return hm.done }

// Run drives the match until it ends, ctx is cancelled or Stop is called,
// then disconnects every session. onComplete, if set, receives the result.
func (hm *HostedMatch) Run(ctx context.Context, onComplete func(MatchResult)) error {
	defer hm.doneOnce.Do(func() { close(hm.done) })

	ctx, cancel := context.WithCancel(ctx)
	hm.mu.Lock()
	hm.cancel = cancel
	if hm.stopped {
		cancel()
	}
	hm.mu.Unlock()
	defer cancel()

	err := hm.sched.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	// Stop the scheduler before closing connections.
	hm.host.Close()

	result := hm.result()
	hm.log.Info("match finished", "match", hm.ID().Short(), "state", result.State, "winner", result.Winner, "ticks", result.Ticks)
	if onComplete != nil {
		onComplete(result)
	}
	return err
}

// Stop cancels a running match.
func (hm *HostedMatch) Stop() {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.stopped = true
	if hm.cancel != nil {
		hm.cancel()
	}
}

func (hm *HostedMatch) result() MatchResult {
	f := hm.View().Frame
	scores := make(map[PlayerID]int, len(f.Players))
	for _, p := range f.Players {
		scores[p.ID] = p.Score
	}
	return MatchResult{
		MatchID: hm.ID(),
		State:   f.State,
		Winner:  f.Winner,
		Scores:  scores,
		Ticks:   f.Tick,
	}
}
