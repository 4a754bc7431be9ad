package config

import (
	_ "embed"
)

//go:embed defaults/match3.yaml
var defaultMatch3YAML []byte

//go:embed defaults/match3_mini.yaml
var defaultMiniYAML []byte

// DefaultMatch3Config returns the default configuration of the classic board.
func DefaultMatch3Config() Match3Config {
	return Match3Config{
		Board:   BoardConfig{Rows: 8, Cols: 8},
		Palette: []string{"red", "green", "blue", "yellow", "magenta", "cyan"},
		Scoring: ScoringConfig{
			PointsPerMatch: 10,
			Goal:           100,
		},
		Animation: AnimationConfig{
			SwapMs:         200,
			RevertMs:       200,
			FallMs:         500,
			FallDelayMaxMs: 200,
			FallRowBiasMs:  300,
		},
		SettleTimeoutMs: 5000,
	}
}

// DefaultMiniConfig returns the default configuration of the mini board.
func DefaultMiniConfig() Match3Config {
	return Match3Config{
		Board:   BoardConfig{Rows: 6, Cols: 6},
		Palette: []string{"red", "green", "blue", "yellow"},
		Scoring: ScoringConfig{
			PointsPerMatch: 10,
			Goal:           60,
		},
		Animation: AnimationConfig{
			SwapMs:         150,
			RevertMs:       150,
			FallMs:         350,
			FallDelayMaxMs: 150,
			FallRowBiasMs:  200,
		},
		SettleTimeoutMs: 5000,
	}
}

// Default returns the hardcoded default for a game, or false if unknown.
func Default(gameID string) (Match3Config, bool) {
	switch gameID {
	case "match3":
		return DefaultMatch3Config(), true
	case "match3_mini":
		return DefaultMiniConfig(), true
	default:
		return Match3Config{}, false
	}
}

// GetDefaultYAML returns the embedded default YAML for a game.
func GetDefaultYAML(gameID string) []byte {
	switch gameID {
	case "match3":
		return defaultMatch3YAML
	case "match3_mini":
		return defaultMiniYAML
	default:
		return nil
	}
}
