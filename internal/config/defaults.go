package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/kurve.yaml
var defaultKurveYAML []byte

// DefaultKurveConfig returns the built-in configuration.
func DefaultKurveConfig() KurveConfig {
	return KurveConfig{
		Arena: ArenaConfig{
			Width:  80,
			Height: 24,
			Layout: "classic",
		},
		Physics: PhysicsConfig{
			TickRate:     20,
			TurnRate:     9,
			Speed:        0.5,
			SelfGapTicks: 6,
		},
		Match: MatchConfig{
			WinScore:       5,
			CountdownTicks: 60,
			RoundEndTicks:  40,
			MinPlayers:     2,
		},
		Network: NetworkConfig{
			LateInputTicks:   3,
			MaxInputLead:     20,
			MaxCatchUp:       5,
			SendQueue:        32,
			HandshakeTimeout: 5 * time.Second,
		},
	}
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return defaultKurveYAML
}
