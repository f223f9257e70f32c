package core

import "fmt"

// PlayerID is the stable small integer identity of a player within a match.
// Valid ids are 1..MaxPlayers; NoPlayer marks "nobody".
type PlayerID uint8

const (
	NoPlayer   PlayerID = 0
	MaxPlayers          = 4
)

// Valid reports whether id is within the supported player range.
func (id PlayerID) Valid() bool {
	return id >= 1 && int(id) <= MaxPlayers
}

// Intent is a player's desired turning action for a tick.
// It is a closed enumeration consumed by a pure transition function.
type Intent uint8

const (
	IntentNone Intent = iota
	IntentLeft
	IntentRight
)

// String returns a human-readable name for the intent.
func (i Intent) String() string {
	switch i {
	case IntentNone:
		return "None"
	case IntentLeft:
		return "Left"
	case IntentRight:
		return "Right"
	default:
		return fmt.Sprintf("Intent(%d)", uint8(i))
	}
}

// Valid reports whether the intent is one of the known values.
func (i Intent) Valid() bool {
	return i <= IntentRight
}

// InputMessage declares that a player's intent is in effect from Tick onward.
// Local keyboards, bots and remote clients all produce it.
type InputMessage struct {
	Tick   uint64   `msgpack:"tick"`
	Player PlayerID `msgpack:"player"`
	Intent Intent   `msgpack:"intent"`
}

// ControlEvent is a discrete event delivered by the input-capture collaborator.
type ControlEvent int

const (
	ControlNone ControlEvent = iota
	ControlLeftStart
	ControlLeftStop
	ControlRightStart
	ControlRightStop
	ControlQuit
)

// String returns a human-readable name for the control event.
func (e ControlEvent) String() string {
	switch e {
	case ControlNone:
		return "None"
	case ControlLeftStart:
		return "LeftStart"
	case ControlLeftStop:
		return "LeftStop"
	case ControlRightStart:
		return "RightStart"
	case ControlRightStop:
		return "RightStop"
	case ControlQuit:
		return "Quit"
	default:
		return "Unknown"
	}
}

// IntentTracker folds start/stop control events into the current intent.
// When both turn keys are held the most recently pressed one wins; releasing
// it falls back to the other.
type IntentTracker struct {
	left, right bool
	last        Intent
	current     Intent
}

// Apply processes one control event and returns the resulting intent and
// whether it differs from the previous one.
func (t *IntentTracker) Apply(ev ControlEvent) (Intent, bool) {
	switch ev {
	case ControlLeftStart:
		t.left = true
		t.last = IntentLeft
	case ControlLeftStop:
		t.left = false
	case ControlRightStart:
		t.right = true
		t.last = IntentRight
	case ControlRightStop:
		t.right = false
	default:
		return t.current, false
	}

	next := IntentNone
	switch {
	case t.left && t.right:
		next = t.last
	case t.left:
		next = IntentLeft
	case t.right:
		next = IntentRight
	}

	changed := next != t.current
	t.current = next
	return next, changed
}

// Current returns the tracked intent.
func (t *IntentTracker) Current() Intent {
	return t.current
}

// Reset releases both keys.
func (t *IntentTracker) Reset() {
	*t = IntentTracker{}
}
