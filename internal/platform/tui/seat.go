package tui

import (
	"errors"

	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/kurve"
)

// ErrQueueFull is returned when a local seat cannot enqueue its input.
var ErrQueueFull = errors.New("tui: input queue full")

// Seat is one player steered from this terminal. multiplayer.Client is a
// Seat; LocalSeat is the offline one.
type Seat interface {
	Control(ev core.ControlEvent) error
	ToggleReady() error
}

// quitter is implemented by seats that can leave politely.
type quitter interface {
	Quit() error
}

// LocalSeat feeds one offline player into an InputQueue.
type LocalSeat struct {
	queue   *kurve.InputQueue
	source  kurve.ViewSource
	player  core.PlayerID
	tracker core.IntentTracker
	ready   bool
}

// NewLocalSeat creates a seat for player. source supplies the tick inputs
// are stamped with.
func NewLocalSeat(q *kurve.InputQueue, source kurve.ViewSource, player core.PlayerID) *LocalSeat {
	return &LocalSeat{queue: q, source: source, player: player}
}

// Player returns the seat's player id.
func (s *LocalSeat) Player() core.PlayerID { return s.player }

// Join queues the player's join command.
func (s *LocalSeat) Join(name string) error {
	return s.send(kurve.Command{Kind: kurve.CommandJoin, Player: s.player, Name: name})
}

// Control implements Seat.
func (s *LocalSeat) Control(ev core.ControlEvent) error {
	if ev == core.ControlQuit {
		return s.Quit()
	}
	intent, changed := s.tracker.Apply(ev)
	if !changed {
		return nil
	}
	var tick uint64
	if v := s.source.View(); v != nil {
		tick = v.Frame.Tick + 1
	}
	if !s.queue.Push(core.InputMessage{Tick: tick, Player: s.player, Intent: intent}) {
		return ErrQueueFull
	}
	return nil
}

// ToggleReady implements Seat.
func (s *LocalSeat) ToggleReady() error {
	s.ready = !s.ready
	return s.send(kurve.Command{Kind: kurve.CommandReady, Player: s.player, Ready: s.ready})
}

// Quit leaves the match politely.
func (s *LocalSeat) Quit() error {
	return s.send(kurve.Command{Kind: kurve.CommandLeave, Player: s.player, Polite: true})
}

func (s *LocalSeat) send(c kurve.Command) error {
	if !s.queue.Send(c) {
		return ErrQueueFull
	}
	return nil
}
