package multiplayer

import (
	"context"
	"time"

	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/kurve"
)

// defaultAutoplayPoll is used until the host's tick rate is known.
const defaultAutoplayPoll = 25 * time.Millisecond

// Autoplay drives a client without a terminal. It readies up in the lobby
// and steers with the client's Autopilot twice per tick, until ctx ends or
// done closes. Send failures are logged and retried on the next poll.
// It returns nil when the connection ends on its own.
func Autoplay(ctx context.Context, c *Client, done <-chan struct{}) error {
	poll := defaultAutoplayPoll
	if rate := c.TickRate(); rate > 0 {
		poll = time.Second / time.Duration(2*rate)
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return ctx.Err()
		case <-ticker.C:
		}
		if err := c.autoplayStep(); err != nil {
			c.log.Warn("autoplay", "err", err)
		}
	}
}

func (c *Client) autoplayStep() error {
	if v := c.View(); v != nil && v.Frame.State == kurve.StateLobby && !c.Ready() && c.Player().Valid() {
		return c.ToggleReady()
	}
	intent, ok := c.Autopilot()
	if !ok {
		intent = core.IntentNone
	}
	return c.Steer(intent)
}
