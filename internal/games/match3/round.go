package match3

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/match3-arcade/internal/config"
	"github.com/vovakirdan/match3-arcade/internal/core"
	"github.com/vovakirdan/match3-arcade/internal/games/match3/engine"
)

// Package-level settings applied on every Reset, set from CLI flags.
var (
	configPath       string
	difficultyPreset string
	logger           = log.New(io.Discard)
)

// SetConfigPath sets a config file that overrides the variant's defaults.
func SetConfigPath(path string) {
	configPath = path
}

// SetDifficultyPreset sets the difficulty preset ("easy", "normal", "hard").
func SetDifficultyPreset(preset string) {
	difficultyPreset = preset
}

// SetLogger routes engine and game logs. nil discards them.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard)
	}
	logger = l
}

// LoadConfig resolves the config for a variant with the current path and
// difficulty. A broken config file falls back to the variant's defaults.
func LoadConfig(gameID string) (config.Match3Config, error) {
	preset, err := config.ParsePreset(difficultyPreset)
	if err != nil {
		return config.Match3Config{}, err
	}
	cfg, err := config.Load(gameID, configPath)
	if err != nil {
		def, ok := config.Default(gameID)
		if !ok {
			return config.Match3Config{}, err
		}
		logger.Warn("config rejected, using defaults", "game", gameID, "error", err)
		cfg = def
	}
	config.ApplyPreset(&cfg, preset)
	return cfg, cfg.Validate()
}

// Palette converts config color names to screen colors. Tile color i is
// drawn with the i-th entry.
func Palette(cfg config.Match3Config) ([]core.Color, error) {
	out := make([]core.Color, len(cfg.Palette))
	for i, name := range cfg.Palette {
		c, err := core.ParseColor(name)
		if err != nil {
			return nil, fmt.Errorf("match3: palette entry %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

// Options maps a config onto controller options.
func Options(cfg config.Match3Config, seed int64) engine.Options {
	return engine.Options{
		PointsPerMatch: cfg.Scoring.PointsPerMatch,
		Goal:           cfg.Scoring.Goal,
		SwapDuration:   cfg.Animation.Swap(),
		RevertDuration: cfg.Animation.Revert(),
		FallDuration:   cfg.Animation.Fall(),
		FallDelayMax:   cfg.Animation.FallDelayMax(),
		FallRowBias:    cfg.Animation.FallRowBias(),
		SettleTimeout:  cfg.SettleTimeout(),
		DelaySeed:      seed,
		Logger:         logger,
	}
}

// NewRound builds a filled, primed board and its controller.
func NewRound(cfg config.Match3Config, seed int64, anim engine.Animator, listener engine.Listener) (*engine.Board, *engine.Controller, error) {
	src, err := engine.NewRandSource(len(cfg.Palette), seed)
	if err != nil {
		return nil, nil, fmt.Errorf("match3: %w", err)
	}
	board, err := engine.NewBoard(cfg.Board.Rows, cfg.Board.Cols, src)
	if err != nil {
		return nil, nil, fmt.Errorf("match3: %w", err)
	}
	board.Fill()

	opts := Options(cfg, seed)
	opts.Listener = listener
	ctrl, err := engine.NewController(board, anim, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("match3: %w", err)
	}
	ctrl.Prime()
	return board, ctrl, nil
}
