package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads the configuration for a match-3 variant.
// Search order: customPath -> ~/.arcade/configs/<id>.yaml -> ./configs/<id>.yaml -> embedded default.
// Files are decoded over the variant's defaults, so they only need the keys they change.
func Load(gameID, customPath string) (Match3Config, error) {
	base, ok := Default(gameID)
	if !ok {
		return Match3Config{}, fmt.Errorf("config: unknown game %q", gameID)
	}
	filename := gameID + ".yaml"

	// Try custom path first
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return base, fmt.Errorf("config: failed to read %s: %w", customPath, err)
		}
		cfg, err := decode(data, base)
		if err != nil {
			return base, fmt.Errorf("config: failed to parse %s: %w", customPath, err)
		}
		return cfg, cfg.Validate()
	}

	// Try user config directory, then the local configs directory.
	// Broken files there are skipped rather than fatal.
	for _, path := range []string{userConfigPath(filename), filepath.Join("configs", filename)} {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if cfg, err := decode(data, base); err == nil && cfg.Validate() == nil {
			return cfg, nil
		}
	}

	// Use embedded default YAML
	cfg, err := decode(GetDefaultYAML(gameID), base)
	if err != nil {
		return base, nil // Fallback to hardcoded if embed fails
	}
	return cfg, nil
}

func decode(data []byte, base Match3Config) (Match3Config, error) {
	cfg := base
	cfg.Palette = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, err
	}
	if cfg.Palette == nil {
		cfg.Palette = base.Palette
	}
	return cfg, nil
}

// userConfigPath returns the path to user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".arcade", "configs", filename)
}
