package multiplayer

import (
	"slices"
	"testing"

	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/kurve"
)

// scriptedUplink records client messages; the first failResyncs resync
// requests fail.
type scriptedUplink struct {
	failResyncs int
	resyncs     []uint64
	inputs      []core.InputMessage
}

func (u *scriptedUplink) SendInput(in core.InputMessage) error {
	u.inputs = append(u.inputs, in)
	return nil
}

func (u *scriptedUplink) SendReady(bool) error { return nil }
func (u *scriptedUplink) Close(bool) error     { return nil }

func (u *scriptedUplink) RequestResync(lastTick uint64) error {
	u.resyncs = append(u.resyncs, lastTick)
	if len(u.resyncs) <= u.failResyncs {
		return ErrSessionBusy
	}
	return nil
}

func welcomed(t *testing.T, u Uplink) *Client {
	t.Helper()
	c := NewClient(u, nil)
	if err := c.HandleEvent(WelcomeEvent{MatchID: "m", Player: 1, Config: testConfig()}); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	return c
}

func frameAt(tick uint64) kurve.Frame {
	return kurve.Frame{Tick: tick, Round: 1, State: kurve.StatePlaying}
}

// fullAt is the complete frame a host sends to a new or resyncing client.
func fullAt(tick uint64) kurve.Frame {
	f := frameAt(tick)
	f.Resync = true
	return f
}

func TestClientRetriesLostResync(t *testing.T) {
	u := &scriptedUplink{failResyncs: 1}
	c := welcomed(t, u)
	retry := testConfig().Physics.TickRate

	c.HandleFrame(fullAt(1))
	c.HandleFrame(frameAt(3))
	if !c.Desynced() || len(u.resyncs) != 1 {
		t.Fatalf("desynced = %v, requests = %d after a gap", c.Desynced(), len(u.resyncs))
	}

	// The failed request is repeated on the next frame.
	c.HandleFrame(frameAt(4))
	if len(u.resyncs) != 2 {
		t.Fatalf("requests = %d, expected a retry after the failed send", len(u.resyncs))
	}

	// A request that went out but was never answered is repeated once a second.
	tick := uint64(5)
	for range retry - 1 {
		c.HandleFrame(frameAt(tick))
		tick++
	}
	if len(u.resyncs) != 2 {
		t.Fatalf("requests = %d, retried too early", len(u.resyncs))
	}
	c.HandleFrame(frameAt(tick))
	tick++
	if len(u.resyncs) != 3 {
		t.Fatalf("requests = %d, expected a retry after %d frames", len(u.resyncs), retry)
	}
	for _, last := range u.resyncs {
		if last != 1 {
			t.Errorf("request carries last tick %d, expected 1", last)
		}
	}

	c.HandleFrame(fullAt(tick))
	c.HandleFrame(frameAt(tick + 1))
	if c.Desynced() {
		t.Fatal("still desynced after a full frame")
	}
	if v := c.View(); v == nil || v.Frame.Tick != tick+1 {
		t.Errorf("view not following frames after resync: %+v", v)
	}
	if c.Resyncs() != 3 {
		t.Errorf("Resyncs() = %d, expected 3", c.Resyncs())
	}
}

func TestClientStampsInputsWithNextTick(t *testing.T) {
	u := &scriptedUplink{}
	c := welcomed(t, u)
	c.HandleFrame(fullAt(1))
	c.HandleFrame(frameAt(2))

	if err := c.Control(core.ControlRightStart); err != nil {
		t.Fatalf("Control: %v", err)
	}
	if err := c.Control(core.ControlRightStart); err != nil {
		t.Fatalf("Control: %v", err)
	}
	want := core.InputMessage{Tick: 3, Player: 1, Intent: core.IntentRight}
	if len(u.inputs) != 1 || u.inputs[0] != want {
		t.Errorf("inputs = %+v, expected [%+v]", u.inputs, want)
	}
}

func TestClientSteer(t *testing.T) {
	tests := []struct {
		name  string
		steps []core.Intent
		want  []core.Intent // Inputs sent
	}{
		{"straight", []core.Intent{core.IntentNone}, nil},
		{"left then straight", []core.Intent{core.IntentLeft, core.IntentLeft, core.IntentNone},
			[]core.Intent{core.IntentLeft, core.IntentNone}},
		{"reverse", []core.Intent{core.IntentRight, core.IntentLeft},
			[]core.Intent{core.IntentRight, core.IntentLeft}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := &scriptedUplink{}
			c := welcomed(t, u)
			c.HandleFrame(fullAt(1))
			for _, intent := range tc.steps {
				if err := c.Steer(intent); err != nil {
					t.Fatalf("Steer(%s): %v", intent, err)
				}
			}
			var got []core.Intent
			for _, in := range u.inputs {
				got = append(got, in.Intent)
			}
			if !slices.Equal(got, tc.want) {
				t.Errorf("inputs = %v, expected %v", got, tc.want)
			}
		})
	}
}

func TestClientAutopilotAvoidsWall(t *testing.T) {
	c := welcomed(t, &scriptedUplink{})
	if _, ok := c.Autopilot(); ok {
		t.Fatal("autopilot active before any frame")
	}

	f := fullAt(1)
	f.Players = []kurve.PlayerState{
		{ID: 1, Pos: core.Cell{X: 77, Y: 12}.Center(), Heading: core.East, Alive: true, Connected: true},
	}
	c.HandleFrame(f)
	intent, ok := c.Autopilot()
	if !ok || intent == core.IntentNone {
		t.Errorf("Autopilot() = %s, %v, expected a turn away from the wall", intent, ok)
	}

	f = frameAt(2)
	f.Players = []kurve.PlayerState{{ID: 1, Connected: true}}
	c.HandleFrame(f)
	if _, ok := c.Autopilot(); ok {
		t.Error("autopilot active for a crashed player")
	}
}
