package core

// RuntimeConfig contains terminal parameters handed to the rendering layer.
// Simulation tunables live in the config package; this only describes the
// display the frame is drawn on.
type RuntimeConfig struct {
	ScreenW   int // Screen width in characters
	ScreenH   int // Screen height in characters
	FrameRate int // Redraws per second, independent of the simulation tick rate
}

// DefaultConfig returns a RuntimeConfig with sensible defaults.
func DefaultConfig() RuntimeConfig {
	return RuntimeConfig{
		ScreenW:   80,
		ScreenH:   24,
		FrameRate: 30,
	}
}
