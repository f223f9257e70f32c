// Package config provides YAML-based configuration loading, speed presets
// and validation for the kurve game.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalid is returned by Validate when a configuration value is out of range.
var ErrInvalid = errors.New("config: invalid value")

// KurveConfig contains all tunables of a match. Host and clients must agree
// on every value here; the host sends its copy in the handshake.
type KurveConfig struct {
	Arena   ArenaConfig   `yaml:"arena" msgpack:"arena"`
	Physics PhysicsConfig `yaml:"physics" msgpack:"physics"`
	Match   MatchConfig   `yaml:"match" msgpack:"match"`
	Network NetworkConfig `yaml:"network" msgpack:"network"`
}

// ArenaConfig defines the playing field.
type ArenaConfig struct {
	Width  int    `yaml:"width" msgpack:"width"`
	Height int    `yaml:"height" msgpack:"height"`
	Layout string `yaml:"layout" msgpack:"layout"` // registered obstacle layout name
}

// PhysicsConfig defines movement parameters.
type PhysicsConfig struct {
	TickRate     int     `yaml:"tick_rate" msgpack:"tick_rate"`           // Simulation ticks per second
	TurnRate     float64 `yaml:"turn_rate" msgpack:"turn_rate"`           // Degrees per tick while turning
	Speed        float64 `yaml:"speed" msgpack:"speed"`                   // Cells per tick
	SelfGapTicks int     `yaml:"self_gap_ticks" msgpack:"self_gap_ticks"` // Own cells younger than this are ignored
}

// MatchConfig defines round and match progression.
type MatchConfig struct {
	WinScore       int  `yaml:"win_score" msgpack:"win_score"`
	CountdownTicks int  `yaml:"countdown_ticks" msgpack:"countdown_ticks"`
	RoundEndTicks  int  `yaml:"round_end_ticks" msgpack:"round_end_ticks"`
	MinPlayers     int  `yaml:"min_players" msgpack:"min_players"`
	Solo           bool `yaml:"solo" msgpack:"solo"` // Allow a single player (testing)
}

// NetworkConfig defines host input buffering and transport limits.
type NetworkConfig struct {
	LateInputTicks   int           `yaml:"late_input_ticks" msgpack:"late_input_ticks"`
	MaxInputLead     int           `yaml:"max_input_lead" msgpack:"max_input_lead"`
	MaxCatchUp       int           `yaml:"max_catch_up" msgpack:"max_catch_up"`
	SendQueue        int           `yaml:"send_queue" msgpack:"send_queue"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" msgpack:"handshake_timeout"`
}

// TickInterval returns the wall-clock duration of one tick.
func (c KurveConfig) TickInterval() time.Duration {
	if c.Physics.TickRate <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(c.Physics.TickRate)
}

// Largest arena accepted by Validate. A resync frame carries every trail
// cell, and a full arena of this size still fits in one wire message.
const (
	MaxArenaWidth  = 400
	MaxArenaHeight = 250
)

// Validate checks every value against its allowed range.
func (c KurveConfig) Validate() error {
	checks := []struct {
		ok   bool
		name string
		val  any
	}{
		{c.Arena.Width >= 20 && c.Arena.Width <= MaxArenaWidth, "arena.width", c.Arena.Width},
		{c.Arena.Height >= 10 && c.Arena.Height <= MaxArenaHeight, "arena.height", c.Arena.Height},
		{c.Physics.TickRate >= 1 && c.Physics.TickRate <= 240, "physics.tick_rate", c.Physics.TickRate},
		{c.Physics.TurnRate > 0 && c.Physics.TurnRate <= 90, "physics.turn_rate", c.Physics.TurnRate},
		{c.Physics.Speed > 0 && c.Physics.Speed <= 4, "physics.speed", c.Physics.Speed},
		// The head must be able to leave its last few cells before they count.
		{float64(c.Physics.SelfGapTicks)*c.Physics.Speed >= 2.5, "physics.self_gap_ticks", c.Physics.SelfGapTicks},
		{c.Match.WinScore >= 1, "match.win_score", c.Match.WinScore},
		{c.Match.CountdownTicks >= 0, "match.countdown_ticks", c.Match.CountdownTicks},
		{c.Match.RoundEndTicks >= 0, "match.round_end_ticks", c.Match.RoundEndTicks},
		{c.Match.MinPlayers >= 1 && c.Match.MinPlayers <= 4, "match.min_players", c.Match.MinPlayers},
		{c.Match.MinPlayers >= 2 || c.Match.Solo, "match.min_players", c.Match.MinPlayers},
		{c.Network.LateInputTicks >= 0, "network.late_input_ticks", c.Network.LateInputTicks},
		{c.Network.MaxInputLead >= 1, "network.max_input_lead", c.Network.MaxInputLead},
		{c.Network.MaxCatchUp >= 1, "network.max_catch_up", c.Network.MaxCatchUp},
		{c.Network.SendQueue >= 1, "network.send_queue", c.Network.SendQueue},
		{c.Network.HandshakeTimeout > 0, "network.handshake_timeout", c.Network.HandshakeTimeout},
	}
	for _, ch := range checks {
		if !ch.ok {
			return fmt.Errorf("%w: %s = %v", ErrInvalid, ch.name, ch.val)
		}
	}
	return nil
}
