package core

// RuntimeConfig contains configuration passed to games at initialization.
// Games use this to adapt to screen size and for deterministic simulation.
type RuntimeConfig struct {
	ScreenW  int   // Screen width in characters
	ScreenH  int   // Screen height in characters
	TickRate int   // Simulation ticks per second (default 60)
	Seed     int64 // RNG seed for deterministic gameplay
}

// DefaultConfig returns a RuntimeConfig with sensible defaults.
func DefaultConfig() RuntimeConfig {
	return RuntimeConfig{
		ScreenW:  80,
		ScreenH:  24,
		TickRate: 60,
		Seed:     0, // 0 means use current time in platform layer
	}
}

// GameState represents the current state of a game.
// Returned by Game.State() to communicate status to the platform.
type GameState struct {
	Score       int  // Current score
	Goal        int  // Score that triggers the goal banner
	GoalReached bool // Whether the goal has been reached this round
	Busy        bool // Input is disabled while a move resolves
	Paused      bool // Whether the game is paused

	// Round statistics, saved with the score.
	Moves        int
	Cascades     int
	LongestChain int
}

// StepResult is returned by Game.Step() after each simulation tick.
// Contains the updated game state and any events that occurred.
type StepResult struct {
	State GameState
	// Restarted is set when a restart request took effect this tick.
	// State then describes the fresh round.
	Restarted bool
}
