package multiplayer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/kurve"
)

// ErrRejected is returned when the host refuses to admit the client.
var ErrRejected = errors.New("multiplayer: join rejected")

// Uplink carries client messages to the host.
type Uplink interface {
	SendInput(in core.InputMessage) error
	SendReady(ready bool) error
	RequestResync(lastTick uint64) error
	// Close leaves the match. Polite is set for a voluntary quit.
	Close(polite bool) error
}

// Client mirrors the host's match. Frames overwrite local state; the
// trail grid is rebuilt from frame deltas and resynchronised with a full
// frame whenever a gap or a malformed message is detected. The local
// player's next position is predicted one tick ahead for rendering.
//
// HandleEvent runs on the receiving goroutine while Control and View run
// on the UI goroutine.
type Client struct {
	uplink Uplink
	log    *log.Logger

	mu       sync.Mutex
	matchID  MatchID
	player   PlayerID
	rules    kurve.Rules
	tickRate int
	replica  *kurve.Replica
	pilot    *kurve.Pilot
	tracker  core.IntentTracker
	ready    bool
	lastTick uint64
	synced   bool
	desync   bool
	waited   int // Frames discarded since the last resync request
	rejected string
	resyncs  int
}

// defaultResyncRetry is how many discarded frames a desynchronised client
// waits for a full frame before asking again, when the tick rate is unknown.
const defaultResyncRetry = 20

// NewClient creates a client sending through uplink.
func NewClient(uplink Uplink, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{uplink: uplink, log: logger}
}

// HandleEvent applies an event received from the host.
func (c *Client) HandleEvent(evt SessionEvent) error {
	switch evt := evt.(type) {
	case WelcomeEvent:
		return c.welcome(evt)
	case RejectEvent:
		c.mu.Lock()
		c.rejected = evt.Reason
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRejected, evt.Reason)
	case FrameEvent:
		c.HandleFrame(evt.Frame)
	}
	return nil
}

func (c *Client) welcome(evt WelcomeEvent) error {
	rules, err := kurve.NewRules(evt.Config)
	if err != nil {
		return fmt.Errorf("multiplayer: host config: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.matchID = evt.MatchID
	c.player = evt.Player
	c.rules = rules
	c.tickRate = evt.Config.Physics.TickRate
	c.replica = kurve.NewReplica(rules)
	c.pilot = c.replica.Pilot()
	c.synced = false
	c.log.Info("joined match", "match", evt.MatchID.Short(), "player", evt.Player)
	return nil
}

// HandleFrame applies an authoritative frame. A frame that does not follow
// the last applied one cannot be merged; the client then waits for a full
// frame instead.
func (c *Client) HandleFrame(f kurve.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.replica == nil {
		return
	}
	if !f.Resync {
		if c.synced && f.Tick <= c.lastTick {
			return // duplicate or reordered
		}
		if !c.synced || f.Tick != c.lastTick+1 {
			c.markDesync("frame gap", f.Tick)
			return
		}
	}

	c.replica.Apply(f)
	c.lastTick = f.Tick
	c.synced = true
	c.desync = false
	c.waited = 0
}

// HandleMalformed records a message that could not be decoded.
func (c *Client) HandleMalformed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log.Warn("malformed message", "err", err)
	c.markDesync("malformed message", c.lastTick)
}

// markDesync asks for a full frame when the client loses sync. While it
// stays desynchronised the request is repeated about once a second, and
// on the next frame when sending it failed.
func (c *Client) markDesync(reason string, tick uint64) {
	if !c.desync {
		c.desync = true
		c.log.Warn("desynchronised, requesting resync", "reason", reason, "tick", tick, "last", c.lastTick)
		c.requestResync()
		return
	}
	c.waited++
	if c.waited >= c.resyncRetry() {
		c.log.Debug("still desynchronised, asking again", "tick", tick, "last", c.lastTick)
		c.requestResync()
	}
}

func (c *Client) requestResync() {
	c.waited = 0
	c.resyncs++
	if err := c.uplink.RequestResync(c.lastTick); err != nil {
		c.log.Warn("resync request failed", "err", err)
		c.waited = c.resyncRetry()
	}
}

func (c *Client) resyncRetry() int {
	if c.tickRate > 0 {
		return c.tickRate
	}
	return defaultResyncRetry
}

// Control feeds a key event. Intent changes are sent immediately, tagged
// with the tick after the last one observed.
func (c *Client) Control(ev core.ControlEvent) error {
	if ev == core.ControlQuit {
		return c.Quit()
	}

	c.mu.Lock()
	intent, changed := c.tracker.Apply(ev)
	player, tick := c.player, c.lastTick+1
	c.mu.Unlock()

	if !changed || !player.Valid() {
		return nil
	}
	return c.uplink.SendInput(core.InputMessage{Tick: tick, Player: player, Intent: intent})
}

// Steer presses and releases turn keys until the intent is the given one.
func (c *Client) Steer(intent core.Intent) error {
	c.mu.Lock()
	cur := c.tracker.Current()
	c.mu.Unlock()

	for _, ev := range steerEvents(cur, intent) {
		if err := c.Control(ev); err != nil {
			return err
		}
	}
	return nil
}

// steerEvents presses the new key before releasing the old one, so a
// change of direction sends a single input.
func steerEvents(from, to core.Intent) []core.ControlEvent {
	if from == to {
		return nil
	}
	var evs []core.ControlEvent
	switch to {
	case core.IntentLeft:
		evs = append(evs, core.ControlLeftStart)
	case core.IntentRight:
		evs = append(evs, core.ControlRightStart)
	}
	switch from {
	case core.IntentLeft:
		evs = append(evs, core.ControlLeftStop)
	case core.IntentRight:
		evs = append(evs, core.ControlRightStop)
	}
	return evs
}

// Autopilot picks the local player's next intent with a kurve.Pilot over
// the replica. It reports false while the player is not steering: outside
// a round, after a crash or while waiting for a full frame.
func (c *Client) Autopilot() (core.Intent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pilot == nil || c.desync {
		return core.IntentNone, false
	}
	f, ok := c.replica.Last()
	if !ok || f.State != kurve.StatePlaying {
		return core.IntentNone, false
	}
	ps, ok := f.Player(c.player)
	if !ok || !ps.Alive {
		return core.IntentNone, false
	}
	return c.pilot.Decide(ps.Player(c.rules.Speed), c.lastTick+1), true
}

// Ready reports whether the client has declared itself ready.
func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// ToggleReady flips lobby readiness.
func (c *Client) ToggleReady() error {
	c.mu.Lock()
	c.ready = !c.ready
	ready := c.ready
	c.mu.Unlock()
	return c.uplink.SendReady(ready)
}

// Quit leaves the match politely.
func (c *Client) Quit() error {
	return c.uplink.Close(true)
}

// Player returns the slot assigned by the host, or NoPlayer before Welcome.
func (c *Client) Player() PlayerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player
}

// TickRate returns the host's tick rate, or 0 before Welcome.
func (c *Client) TickRate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickRate
}

// Rejected returns the host's reason for refusing the join, if any.
func (c *Client) Rejected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rejected
}

// Desynced reports whether the client is waiting for a full frame.
func (c *Client) Desynced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.desync
}

// Resyncs returns how many resyncs the client has requested.
func (c *Client) Resyncs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resyncs
}

// View implements kurve.ViewSource. It returns nil until the first frame.
func (c *Client) View() *kurve.View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.replica == nil {
		return nil
	}
	if _, ok := c.replica.Last(); !ok {
		return nil
	}

	v := c.replica.View()
	if v.Frame.State != kurve.StatePlaying {
		return v
	}
	if ps, ok := v.Frame.Player(c.player); ok && ps.Alive {
		p := ps.Player(c.rules.Speed)
		kurve.Advance(&p, c.tracker.Current(), c.rules.TurnRate)
		v.Predicted = p.State()
		v.HasPrediction = true
	}
	return v
}

// Run applies events from a channel session until it closes or ctx ends.
func (c *Client) Run(ctx context.Context, s *ChannelSession) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-s.Events():
			if err := c.HandleEvent(evt); err != nil {
				return err
			}
		case <-s.Done():
			// Deliver what is already queued (a Reject, typically).
			for {
				select {
				case evt := <-s.Events():
					if err := c.HandleEvent(evt); err != nil {
						return err
					}
				default:
					return nil
				}
			}
		}
	}
}
