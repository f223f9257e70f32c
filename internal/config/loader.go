package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// configFile is the file name looked up in the search path.
const configFile = "kurve.yaml"

// LoadKurve loads the game configuration.
// Search order: customPath -> ~/.kurve/configs/kurve.yaml -> ./configs/kurve.yaml -> embedded default.
// Values missing from a file keep their defaults.
func LoadKurve(customPath string) (KurveConfig, error) {
	cfg := DefaultKurveConfig()

	// Try custom path first
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", customPath, err)
		}
		return cfg, cfg.Validate()
	}

	// Try user config directory
	if userCfgPath := userConfigPath(configFile); userCfgPath != "" {
		if data, err := os.ReadFile(userCfgPath); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err == nil {
				return cfg, cfg.Validate()
			}
			cfg = DefaultKurveConfig()
		}
	}

	// Try local configs directory
	if data, err := os.ReadFile(filepath.Join("configs", configFile)); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err == nil {
			return cfg, cfg.Validate()
		}
		cfg = DefaultKurveConfig()
	}

	// Use embedded default YAML
	if err := yaml.Unmarshal(defaultKurveYAML, &cfg); err != nil {
		return DefaultKurveConfig(), nil // Fallback to hardcoded if embed fails
	}
	return cfg, cfg.Validate()
}

// Marshal renders the configuration as YAML.
func Marshal(cfg KurveConfig) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	return data, nil
}

// userConfigPath returns the path to user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kurve", "configs", filename)
}
