// arcade is a terminal match-3 game built on a small arcade platform.
//
// Usage:
//
//	arcade list              - List available variants
//	arcade play <game>       - Play a variant
//	arcade menu              - Start menu to pick variants interactively
//	arcade serve             - Start SSH server for remote play
//	arcade scores [game]     - Show best rounds and statistics
//	arcade autoplay <game>   - Let the hint bot play a headless round
//
// Global flags:
//
//	--fps <rate>         - Set tick rate (default: 60)
//	--seed <value>       - Set RNG seed for reproducible boards
//	--db <path>          - Set database path (default: ~/.arcade/scores.db)
//	--config <path>      - Use a custom variant config YAML
//	--difficulty <name>  - Difficulty preset: easy, normal, hard
//	--log-file <path>    - Write logs to a file
//	--log-level <level>  - debug, info, warn or error
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/match3-arcade/internal/games/match3"
)

var (
	// Global flags
	flagFPS        int
	flagSeed       int64
	flagDBPath     string
	flagConfig     string
	flagDifficulty string
	flagLogFile    string
	flagLogLevel   string

	// logger is set up by the root command before any subcommand runs.
	logger = log.Default()
)

func main() {
	defer closeLogFile()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		closeLogFile()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "arcade",
	Short: "Match-3 in your terminal",
	Long: `A terminal match-3 game. Swap two neighbouring tiles to line up
three or more of a color; matched runs clear, the tiles above fall and
new ones drop in. Reach the goal score to win the round.

Available commands:
  list      - Show all available variants
  play      - Play a specific variant directly
  menu      - Interactive variant picker menu
  serve     - Start SSH server for remote play
  scores    - View best rounds and statistics
  autoplay  - Let the hint bot play a headless round

Examples:
  arcade list
  arcade play match3
  arcade play match3_mini --difficulty hard
  arcade menu
  arcade serve --ssh :2222
  arcade autoplay match3 --seed 42 --moves 50`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		l, err := setupLogger(cmd)
		if err != nil {
			return err
		}
		logger = l
		match3.SetLogger(l.WithPrefix("match3"))
		match3.SetConfigPath(flagConfig)
		match3.SetDifficultyPreset(flagDifficulty)
		return nil
	},
}

func init() {
	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.IntVar(&flagFPS, "fps", 60, "Tick rate (frames per second)")
	pf.Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	pf.StringVar(&flagDBPath, "db", "~/.arcade/scores.db", "Path to scores database")
	pf.StringVar(&flagConfig, "config", "", "Path to custom variant config YAML")
	pf.StringVar(&flagDifficulty, "difficulty", "", "Difficulty preset: easy, normal, hard")
	pf.StringVar(&flagLogFile, "log-file", "", "Write logs to this file")
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	// Add subcommands
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(menuCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(autoplayCmd)
}
