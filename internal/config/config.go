// Package config provides YAML-based game configuration loading and
// difficulty presets for the arcade platform.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Match3Config contains all configuration for one match-3 variant.
type Match3Config struct {
	Board     BoardConfig     `yaml:"board"`
	Palette   []string        `yaml:"palette"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Animation AnimationConfig `yaml:"animation"`

	// SettleTimeoutMs bounds a single settle group. 0 disables the watchdog.
	SettleTimeoutMs int `yaml:"settle_timeout_ms"`
}

// BoardConfig defines the grid dimensions.
type BoardConfig struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

// ScoringConfig defines round rules.
type ScoringConfig struct {
	PointsPerMatch int `yaml:"points_per_match"`
	Goal           int `yaml:"goal"`
}

// AnimationConfig defines settle timings in milliseconds.
type AnimationConfig struct {
	SwapMs         int `yaml:"swap_ms"`
	RevertMs       int `yaml:"revert_ms"`
	FallMs         int `yaml:"fall_ms"`
	FallDelayMaxMs int `yaml:"fall_delay_max_ms"`
	FallRowBiasMs  int `yaml:"fall_row_bias_ms"`
}

// Swap returns the swap motion duration.
func (a AnimationConfig) Swap() time.Duration { return ms(a.SwapMs) }

// Revert returns the duration of the swap-back motion.
func (a AnimationConfig) Revert() time.Duration { return ms(a.RevertMs) }

// Fall returns the fall motion duration.
func (a AnimationConfig) Fall() time.Duration { return ms(a.FallMs) }

// FallDelayMax returns the upper bound of the random refill delay.
func (a AnimationConfig) FallDelayMax() time.Duration { return ms(a.FallDelayMaxMs) }

// FallRowBias returns the per-row refill delay bias.
func (a AnimationConfig) FallRowBias() time.Duration { return ms(a.FallRowBiasMs) }

// SettleTimeout returns the watchdog duration.
func (c Match3Config) SettleTimeout() time.Duration { return ms(c.SettleTimeoutMs) }

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// MaxPalette is the number of distinct colors a board can use.
const MaxPalette = 8

// Validate reports the first problem that would keep the config from
// producing a playable board.
func (c Match3Config) Validate() error {
	var errs []error
	if c.Board.Rows < 1 || c.Board.Cols < 1 {
		errs = append(errs, fmt.Errorf("board must be at least 1x1, got %dx%d", c.Board.Rows, c.Board.Cols))
	}
	if len(c.Palette) == 0 {
		errs = append(errs, errors.New("palette is empty"))
	}
	if len(c.Palette) == 1 && max(c.Board.Rows, c.Board.Cols) >= 3 {
		errs = append(errs, fmt.Errorf("palette needs at least 2 colors on a %dx%d board", c.Board.Rows, c.Board.Cols))
	}
	if len(c.Palette) > MaxPalette {
		errs = append(errs, fmt.Errorf("palette has %d colors, max %d", len(c.Palette), MaxPalette))
	}
	if c.Scoring.Goal <= 0 {
		errs = append(errs, fmt.Errorf("goal must be positive, got %d", c.Scoring.Goal))
	}
	if c.Scoring.PointsPerMatch <= 0 {
		errs = append(errs, fmt.Errorf("points_per_match must be positive, got %d", c.Scoring.PointsPerMatch))
	}
	a := c.Animation
	for name, v := range map[string]int{
		"swap_ms":           a.SwapMs,
		"revert_ms":         a.RevertMs,
		"fall_ms":           a.FallMs,
		"fall_delay_max_ms": a.FallDelayMaxMs,
		"fall_row_bias_ms":  a.FallRowBiasMs,
		"settle_timeout_ms": c.SettleTimeoutMs,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", name, v))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid match3 config: %w", err)
	}
	return nil
}

// DifficultyPreset represents a named difficulty level.
type DifficultyPreset string

const (
	DifficultyEasy   DifficultyPreset = "easy"
	DifficultyNormal DifficultyPreset = "normal"
	DifficultyHard   DifficultyPreset = "hard"
)

// ParsePreset resolves a preset name. The empty string means normal.
func ParsePreset(name string) (DifficultyPreset, error) {
	switch DifficultyPreset(name) {
	case "", DifficultyNormal:
		return DifficultyNormal, nil
	case DifficultyEasy, DifficultyHard:
		return DifficultyPreset(name), nil
	default:
		return "", fmt.Errorf("config: unknown difficulty %q (want easy, normal or hard)", name)
	}
}

// ApplyPreset adjusts the starting goal and palette size. Normal leaves the
// config untouched. Fewer colors make matches more likely.
func ApplyPreset(cfg *Match3Config, preset DifficultyPreset) {
	switch preset {
	case DifficultyEasy:
		cfg.Scoring.Goal = max(cfg.Scoring.Goal/2, cfg.Scoring.PointsPerMatch)
		if len(cfg.Palette) > 4 {
			cfg.Palette = cfg.Palette[:len(cfg.Palette)-1]
		}
	case DifficultyHard:
		cfg.Scoring.Goal *= 2
		if len(cfg.Palette) < len(allColors) {
			cfg.Palette = append(cfg.Palette[:len(cfg.Palette):len(cfg.Palette)], nextColor(cfg.Palette))
		}
	}
}

// allColors is the order hard mode draws extra colors from.
var allColors = []string{"red", "green", "blue", "yellow", "magenta", "cyan", "orange", "white"}

func nextColor(used []string) string {
	for _, c := range allColors {
		found := false
		for _, u := range used {
			if u == c {
				found = true
				break
			}
		}
		if !found {
			return c
		}
	}
	return allColors[len(allColors)-1]
}
