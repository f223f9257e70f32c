package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/kurve/internal/core"
)

// KeyMap defines the key bindings of the arena screen. The second pair of
// turn keys drives the second local seat; with a single seat both pairs
// steer it.
type KeyMap struct {
	Left1  key.Binding
	Right1 key.Binding
	Left2  key.Binding
	Right2 key.Binding
	Ready  key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Left1, k.Right1, k.Ready, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left1, k.Right1},
		{k.Left2, k.Right2},
		{k.Ready, k.Help, k.Quit},
	}
}

// DefaultKeyMap returns default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Left1: key.NewBinding(
			key.WithKeys("a", "A"),
			key.WithHelp("a", "turn left"),
		),
		Right1: key.NewBinding(
			key.WithKeys("d", "D"),
			key.WithHelp("d", "turn right"),
		),
		Left2: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "turn left (p2)"),
		),
		Right2: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "turn right (p2)"),
		),
		Ready: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "ready"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Turn maps a key to a turn start for one of seats local seats.
func (k KeyMap) Turn(msg tea.KeyMsg, seats int) (seat int, ev core.ControlEvent, ok bool) {
	switch {
	case key.Matches(msg, k.Left1):
		seat, ev = 0, core.ControlLeftStart
	case key.Matches(msg, k.Right1):
		seat, ev = 0, core.ControlRightStart
	case key.Matches(msg, k.Left2):
		seat, ev = 1, core.ControlLeftStart
	case key.Matches(msg, k.Right2):
		seat, ev = 1, core.ControlRightStart
	default:
		return 0, core.ControlNone, false
	}
	if seats <= 0 {
		return 0, core.ControlNone, false
	}
	if seat >= seats {
		seat = 0
	}
	return seat, ev, true
}

// Default hold timeouts. Terminals report presses and auto-repeats but no
// releases, so a turn key counts as held until its repeats stop.
const (
	DefaultHoldInitial = 400 * time.Millisecond // Covers the auto-repeat delay
	DefaultHoldRepeat  = 120 * time.Millisecond
)

type hold struct {
	held  bool
	until time.Time
}

// HoldTracker turns a stream of key presses into start and stop events.
type HoldTracker struct {
	initial, repeat time.Duration
	left, right     hold
}

// NewHoldTracker creates a tracker. A key is released initial after its
// first press, or repeat after any later auto-repeat.
func NewHoldTracker(initial, repeat time.Duration) *HoldTracker {
	return &HoldTracker{initial: initial, repeat: repeat}
}

func (h *HoldTracker) slot(ev core.ControlEvent) *hold {
	switch ev {
	case core.ControlLeftStart, core.ControlLeftStop:
		return &h.left
	case core.ControlRightStart, core.ControlRightStop:
		return &h.right
	}
	return nil
}

// Press records a start event. It returns true when the key was not held
// yet, i.e. when the start should be forwarded.
func (h *HoldTracker) Press(ev core.ControlEvent, now time.Time) bool {
	s := h.slot(ev)
	if s == nil {
		return false
	}
	if s.held {
		s.until = now.Add(h.repeat)
		return false
	}
	*s = hold{held: true, until: now.Add(h.initial)}
	return true
}

// Expire returns a stop event for every key whose hold ran out.
func (h *HoldTracker) Expire(now time.Time) []core.ControlEvent {
	var out []core.ControlEvent
	if h.left.held && !now.Before(h.left.until) {
		h.left = hold{}
		out = append(out, core.ControlLeftStop)
	}
	if h.right.held && !now.Before(h.right.until) {
		h.right = hold{}
		out = append(out, core.ControlRightStop)
	}
	return out
}

// Release drops every held key.
func (h *HoldTracker) Release() []core.ControlEvent {
	var out []core.ControlEvent
	if h.left.held {
		out = append(out, core.ControlLeftStop)
	}
	if h.right.held {
		out = append(out, core.ControlRightStop)
	}
	h.left, h.right = hold{}, hold{}
	return out
}
