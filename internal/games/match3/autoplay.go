package match3

import (
	"context"

	"github.com/vovakirdan/match3-arcade/internal/games/match3/engine"
)

// AutoplayResult summarizes a headless bot round.
type AutoplayResult struct {
	GameID      string
	Seed        int64
	Score       int
	Goal        int
	GoalReached bool
	Stats       engine.Stats
	DeadBoard   bool // stopped because no productive swap was left
	Layout      [][]engine.Color
}

// Autoplay plays up to moves swaps with instant settles, always taking the
// first hint. It is deterministic for a given variant, config and seed.
func Autoplay(ctx context.Context, gameID string, seed int64, moves int) (AutoplayResult, error) {
	res := AutoplayResult{GameID: gameID, Seed: seed}

	cfg, err := LoadConfig(gameID)
	if err != nil {
		return res, err
	}
	_, ctrl, err := NewRound(cfg, seed, engine.InstantAnimator{}, nil)
	if err != nil {
		return res, err
	}

	for i := 0; i < moves; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		sw, ok := ctrl.Hint()
		if !ok {
			res.DeadBoard = true
			logger.Info("autoplay stopped on a dead board", "game", gameID, "move", i)
			break
		}
		if err := ctrl.HandleIntent(ctx, sw.A); err != nil {
			return res, err
		}
		if err := ctrl.HandleIntent(ctx, sw.B); err != nil {
			return res, err
		}
	}

	res.Score = ctrl.Score()
	res.Goal = ctrl.Goal()
	res.GoalReached = ctrl.Won()
	res.Stats = ctrl.Stats()
	ctrl.View(func(b *engine.Board) { res.Layout = b.Layout() })
	return res, nil
}
