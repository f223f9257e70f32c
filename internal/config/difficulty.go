package config

import "fmt"

// SpeedPreset represents a named pace for the simulation.
// Presets change only the tick rate, so per-tick movement (and therefore
// determinism between peers using the same preset) is unaffected.
type SpeedPreset string

const (
	SpeedSlow   SpeedPreset = "slow"
	SpeedNormal SpeedPreset = "normal"
	SpeedFast   SpeedPreset = "fast"
)

// TickRateForPreset returns the tick rate for a speed preset.
func TickRateForPreset(preset SpeedPreset) (int, error) {
	switch preset {
	case SpeedSlow:
		return 14, nil
	case SpeedNormal, "":
		return 20, nil
	case SpeedFast:
		return 30, nil
	default:
		return 0, fmt.Errorf("%w: unknown speed preset %q", ErrInvalid, preset)
	}
}

// ApplySpeedPreset modifies the config based on a speed preset.
func ApplySpeedPreset(cfg *KurveConfig, preset SpeedPreset) error {
	rate, err := TickRateForPreset(preset)
	if err != nil {
		return err
	}
	if preset != "" {
		cfg.Physics.TickRate = rate
	}
	return nil
}
