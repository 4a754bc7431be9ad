package match3

import "github.com/vovakirdan/match3-arcade/internal/games/match3/engine"

// Snapshot captures the game state for determinism testing.
type Snapshot struct {
	Tick     uint64
	Score    int
	Goal     int
	Won      bool
	Stats    engine.Stats
	Cursor   engine.Pos
	Selected *engine.Pos
	Paused   bool
	Layout   [][]engine.Color
}

// Snapshot returns the current game snapshot for determinism verification.
func (g *Game) Snapshot() Snapshot {
	snap := Snapshot{
		Tick:   g.tick,
		Score:  g.ctrl.Score(),
		Goal:   g.ctrl.Goal(),
		Won:    g.ctrl.Won(),
		Stats:  g.ctrl.Stats(),
		Cursor: g.cursor,
		Paused: g.paused,
	}
	if sel, ok := g.ctrl.Selected(); ok {
		snap.Selected = &sel
	}
	g.ctrl.View(func(b *engine.Board) { snap.Layout = b.Layout() })
	return snap
}
