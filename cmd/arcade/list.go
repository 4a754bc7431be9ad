package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/match3-arcade/internal/games/match3"
	"github.com/vovakirdan/match3-arcade/internal/registry"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available variants",
	Long:  `Shows every registered variant with its board size, palette and goal.`,
	Run:   runList,
}

func runList(_ *cobra.Command, _ []string) {
	games := registry.List()

	if len(games) == 0 {
		fmt.Println("No games available.")
		return
	}

	fmt.Println("Available games:")
	fmt.Println()

	// Calculate column widths
	maxIDLen := 2 // "ID" header
	maxTitleLen := 5
	for _, g := range games {
		maxIDLen = max(maxIDLen, len(g.ID))
		maxTitleLen = max(maxTitleLen, len(g.Title))
	}

	// Print header
	fmt.Printf("  %-*s  %-*s  %s\n", maxIDLen, "ID", maxTitleLen, "Title", "Board")
	fmt.Printf("  %-*s  %-*s  %s\n", maxIDLen, "--", maxTitleLen, "-----", "-----")

	// Print games with the config they would start with
	for _, g := range games {
		board := "?"
		if cfg, err := match3.LoadConfig(g.ID); err == nil {
			board = fmt.Sprintf("%dx%d, %d colors, goal %d",
				cfg.Board.Rows, cfg.Board.Cols, len(cfg.Palette), cfg.Scoring.Goal)
		}
		fmt.Printf("  %-*s  %-*s  %s\n", maxIDLen, g.ID, maxTitleLen, g.Title, board)
	}

	fmt.Println()
	fmt.Println("Run 'arcade play <id>' to play a game.")
}
