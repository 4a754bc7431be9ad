package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/match3-arcade/internal/core"
	"github.com/vovakirdan/match3-arcade/internal/platform/tui"
	"github.com/vovakirdan/match3-arcade/internal/registry"
	"github.com/vovakirdan/match3-arcade/internal/storage"
)

var playCmd = &cobra.Command{
	Use:   "play <game>",
	Short: "Play a game",
	Long: `Start playing the specified variant.

Controls:
  Arrows/hjkl/wasd  - Move the cursor
  Space/Enter       - Pick the tile under the cursor
  Mouse click       - Pick a tile
  ?/i               - Show a hint
  R                 - Restart with a new board
  P                 - Pause
  Esc/B             - Leave the round
  Q/Ctrl+C          - Quit

Pick a tile, then a neighbour to swap them. A swap that makes no line
of three is swapped back.

Difficulty options:
  easy   - Half the goal, one color fewer on large palettes
  normal - Config as written
  hard   - Double the goal, one extra color

Examples:
  arcade play match3
  arcade play match3_mini --difficulty easy
  arcade play match3 --seed 42
  arcade play match3 --config ./my-match3.yaml`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{fullscreenAnnotation: "true"},
	Run:         runPlay,
}

// runtimeConfig builds the platform config from flags and the terminal size.
func runtimeConfig() core.RuntimeConfig {
	cfg := core.DefaultConfig()
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		cfg.ScreenW = w
		cfg.ScreenH = h
	}
	cfg.TickRate = flagFPS
	cfg.Seed = flagSeed
	return cfg
}

// openStore opens the scores database. Games still run without it.
func openStore() *storage.Store {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open scores database: %v\n", err)
		logger.Warn("scores disabled", "db", flagDBPath, "error", err)
		return nil
	}
	return store
}

func runPlay(_ *cobra.Command, args []string) {
	gameID := args[0]

	// Check if game exists
	if !registry.Exists(gameID) {
		fmt.Fprintf(os.Stderr, "Error: unknown game %q\n", gameID)
		fmt.Fprintln(os.Stderr, "Run 'arcade list' to see available games.")
		os.Exit(1)
	}

	cfg := runtimeConfig()

	// Create game instance
	game, err := registry.Create(gameID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating game: %v\n", err)
		os.Exit(1)
	}

	store := openStore()

	// Run the game
	runErr := tui.Run(game, store, cfg, logger)

	// Close store before potential exit
	if store != nil {
		store.Close()
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running game: %v\n", runErr)
		closeLogFile()
		os.Exit(1)
	}
}
