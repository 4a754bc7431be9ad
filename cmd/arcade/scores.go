package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/match3-arcade/internal/registry"
	"github.com/vovakirdan/match3-arcade/internal/storage"
)

var (
	flagScoresLimit int
	flagScoresClear bool
)

var scoresCmd = &cobra.Command{
	Use:   "scores [game]",
	Short: "Show best rounds for a game",
	Long: `Display the best rounds and statistics for the specified variant.
Without a variant, shows a summary of every variant played so far.

Examples:
  arcade scores
  arcade scores match3
  arcade scores match3_mini --limit 20
  arcade scores match3 --clear`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScores,
}

func init() {
	scoresCmd.Flags().IntVar(&flagScoresLimit, "limit", 10, "Number of rounds to show")
	scoresCmd.Flags().BoolVar(&flagScoresClear, "clear", false, "Delete all recorded rounds of the game")
}

func runScores(_ *cobra.Command, args []string) error {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		return fmt.Errorf("opening scores database: %w", err)
	}
	defer store.Close()

	if len(args) == 0 {
		return printSummary(store)
	}

	gameID := args[0]
	if !registry.Exists(gameID) {
		fmt.Fprintln(os.Stderr, "Run 'arcade list' to see available games.")
		return fmt.Errorf("unknown game %q", gameID)
	}
	title := registry.Title(gameID)

	if flagScoresClear {
		if err := store.ClearScores(gameID); err != nil {
			return err
		}
		logger.Info("scores cleared", "game", gameID)
		fmt.Printf("Cleared all rounds of %s.\n", title)
		return nil
	}

	rounds, err := store.TopRounds(gameID, flagScoresLimit)
	if err != nil {
		return err
	}

	// Display rounds
	fmt.Printf("High Scores - %s\n", title)
	fmt.Println()

	if len(rounds) == 0 {
		fmt.Println("No rounds recorded yet.")
		fmt.Println()
		fmt.Printf("Play 'arcade play %s' to set the first high score!\n", gameID)
		return nil
	}

	// Print header
	fmt.Printf("  %-4s  %-8s  %-10s  %-5s  %-5s  %s\n", "Rank", "Score", "Goal", "Moves", "Chain", "When")
	fmt.Printf("  %-4s  %-8s  %-10s  %-5s  %-5s  %s\n", "----", "-----", "----", "-----", "-----", "----")

	for i, r := range rounds {
		goal := humanize.Comma(int64(r.Goal))
		if r.GoalReached {
			goal += " ✓"
		}
		fmt.Printf("  %-4d  %-8s  %-10s  %-5d  x%-4d  %s\n",
			i+1, humanize.Comma(int64(r.Score)), goal, r.Moves, r.LongestChain, humanize.Time(r.CreatedAt))
	}

	// Aggregate statistics
	stats, err := store.GetGameStats(gameID)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Printf("Rounds: %s  Goals reached: %d  Average: %.1f  Longest chain: x%d\n",
		humanize.Comma(int64(stats.RoundsCount)), stats.GoalsReached, stats.AvgScore, stats.LongestChain)
	return nil
}

// printSummary lists statistics of every variant with recorded rounds.
func printSummary(store *storage.Store) error {
	all, err := store.GetAllGamesStats()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No rounds recorded yet.")
		return nil
	}

	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("  %-16s  %-7s  %-6s  %-8s  %s\n", "Game", "Rounds", "Goals", "Best", "Last played")
	fmt.Printf("  %-16s  %-7s  %-6s  %-8s  %s\n", "----", "------", "-----", "----", "-----------")
	for _, id := range ids {
		s := all[id]
		fmt.Printf("  %-16s  %-7d  %-6d  %-8s  %s\n",
			registry.Title(id), s.RoundsCount, s.GoalsReached, humanize.Comma(int64(s.HighScore)), humanize.Time(s.LastPlayed))
	}
	return nil
}
