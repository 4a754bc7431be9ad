package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/match3-arcade/internal/games/match3"
	"github.com/vovakirdan/match3-arcade/internal/registry"
	"github.com/vovakirdan/match3-arcade/internal/storage"
)

var (
	flagAutoMoves  int
	flagAutoNoSave bool
	flagAutoBoard  bool
)

var autoplayCmd = &cobra.Command{
	Use:   "autoplay <game>",
	Short: "Let the hint bot play a headless round",
	Long: `Play a round without a terminal UI. The bot always takes the first
hint and settles instantly, so a given variant, config and seed always
produce the same result. The round is saved like a played one unless
--no-save is given.

Examples:
  arcade autoplay match3
  arcade autoplay match3 --seed 42 --moves 100
  arcade autoplay match3_mini --difficulty hard --board --no-save`,
	Args: cobra.ExactArgs(1),
	RunE: runAutoplay,
}

func init() {
	autoplayCmd.Flags().IntVar(&flagAutoMoves, "moves", 30, "Maximum number of swaps")
	autoplayCmd.Flags().BoolVar(&flagAutoNoSave, "no-save", false, "Do not record the round")
	autoplayCmd.Flags().BoolVar(&flagAutoBoard, "board", false, "Print the final board")
}

func runAutoplay(_ *cobra.Command, args []string) error {
	gameID := args[0]
	if !registry.Exists(gameID) {
		return fmt.Errorf("unknown game %q", gameID)
	}
	if flagAutoMoves <= 0 {
		return fmt.Errorf("--moves must be positive, got %d", flagAutoMoves)
	}

	seed := flagSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	res, err := match3.Autoplay(ctx, gameID, seed, flagAutoMoves)
	if err != nil {
		return fmt.Errorf("autoplay: %w", err)
	}
	logger.Info("autoplay finished", "game", gameID, "seed", seed, "score", res.Score,
		"moves", res.Stats.Moves, "elapsed", time.Since(start))

	fmt.Printf("%s  seed %d\n", registry.Title(gameID), seed)
	fmt.Printf("Score:         %s / %s", humanize.Comma(int64(res.Score)), humanize.Comma(int64(res.Goal)))
	if res.GoalReached {
		fmt.Print("  goal reached")
	}
	fmt.Println()
	fmt.Printf("Moves:         %d (%d reverted)\n", res.Stats.Moves, res.Stats.Reverts)
	fmt.Printf("Matches:       %d in %d cascades\n", res.Stats.Matches, res.Stats.Cascades)
	fmt.Printf("Longest chain: x%d\n", res.Stats.LongestChain)
	if res.DeadBoard {
		fmt.Println("Stopped: no moves left")
	}

	if flagAutoBoard {
		fmt.Println()
		printLayout(res)
	}

	if flagAutoNoSave || res.Stats.Moves == 0 {
		return nil
	}
	return saveAutoplay(res)
}

// saveAutoplay records the bot round like a played one.
func saveAutoplay(res match3.AutoplayResult) error {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		return fmt.Errorf("opening scores database: %w", err)
	}
	defer store.Close()

	id, err := store.SaveRound(storage.Round{
		GameID:       res.GameID,
		Score:        res.Score,
		Goal:         res.Goal,
		GoalReached:  res.GoalReached,
		Moves:        res.Stats.Moves,
		Cascades:     res.Stats.Cascades,
		LongestChain: res.Stats.LongestChain,
	})
	if err != nil {
		return err
	}
	logger.Debug("autoplay round saved", "id", id)
	return nil
}

// printLayout prints the final board as palette letters.
func printLayout(res match3.AutoplayResult) {
	const letters = "ABCDEFGH"
	for _, row := range res.Layout {
		for i, c := range row {
			if i > 0 {
				fmt.Print(" ")
			}
			if c < 0 || int(c) >= len(letters) {
				fmt.Print(".")
				continue
			}
			fmt.Print(string(letters[c]))
		}
		fmt.Println()
	}
}
