// Package match3 hosts the match-3 engine as an arcade game: it drives the
// engine controller from platform input, plays its settle motions on the
// game tick, and renders the board.
package match3

import (
	"context"
	"fmt"
	"sync"

	"github.com/vovakirdan/match3-arcade/internal/config"
	"github.com/vovakirdan/match3-arcade/internal/core"
	"github.com/vovakirdan/match3-arcade/internal/games/match3/engine"
	"github.com/vovakirdan/match3-arcade/internal/registry"
)

// Variant IDs.
const (
	IDClassic = "match3"
	IDMini    = "match3_mini"
)

const hintSeconds = 2

// Game implements registry.Game for one board variant.
type Game struct {
	id    string
	title string

	cfg     config.Match3Config
	palette []core.Color
	board   *engine.Board
	ctrl    *engine.Controller
	anim    *TweenAnimator
	hud     *hud

	cancel context.CancelFunc
	done   chan struct{}

	tick      uint64
	tickRate  int
	cursor    engine.Pos
	hint      *engine.Swap
	hintUntil uint64
	paused    bool

	// Screen dimensions
	screenW int
	screenH int
}

// New creates the classic 8x8 variant.
func New() *Game {
	return &Game{id: IDClassic, title: "Match-3"}
}

// NewMini creates the 6x6 four-color variant.
func NewMini() *Game {
	return &Game{id: IDMini, title: "Match-3 (Mini)"}
}

func init() {
	registry.Register(IDClassic, "Match-3", func() registry.Game {
		return New()
	})
	registry.Register(IDMini, "Match-3 (Mini)", func() registry.Game {
		return NewMini()
	})
}

// ID returns the game identifier.
func (g *Game) ID() string { return g.id }

// Title returns the display name.
func (g *Game) Title() string { return g.title }

// Reset stops the previous round, builds a new primed board and starts the
// controller goroutine.
func (g *Game) Reset(rc core.RuntimeConfig) error {
	g.Close()

	cfg, err := LoadConfig(g.id)
	if err != nil {
		return err
	}
	palette, err := Palette(cfg)
	if err != nil {
		return err
	}

	anim := NewTweenAnimator()
	h := &hud{}
	board, ctrl, err := NewRound(cfg, rc.Seed, anim, h)
	if err != nil {
		return err
	}

	g.cfg = cfg
	g.palette = palette
	g.board = board
	g.ctrl = ctrl
	g.anim = anim
	g.hud = h
	g.tick = 0
	g.tickRate = rc.TickRate
	if g.tickRate <= 0 {
		g.tickRate = core.DefaultConfig().TickRate
	}
	g.cursor = engine.P(0, 0)
	g.hint = nil
	g.paused = false
	g.screenW = rc.ScreenW
	g.screenH = rc.ScreenH

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	g.cancel = cancel
	g.done = done
	go func() {
		defer close(done)
		ctrl.Run(ctx) //nolint:errcheck // Returns only when the round is closed
	}()

	logger.Info("round started", "game", g.id, "seed", rc.Seed,
		"board", fmt.Sprintf("%dx%d", cfg.Board.Rows, cfg.Board.Cols), "goal", cfg.Scoring.Goal)
	return nil
}

// Close stops the controller goroutine and waits for it. In-flight settles
// snap to their targets.
func (g *Game) Close() {
	if g.cancel == nil {
		return
	}
	g.cancel()
	<-g.done
	g.cancel = nil
	g.done = nil
}

// Step advances motions by one tick and forwards input to the controller.
func (g *Game) Step(in core.InputFrame) core.StepResult {
	if g.ctrl == nil {
		return core.StepResult{}
	}
	g.tick++

	if in.Has(core.ActionPause) {
		g.paused = !g.paused
	}
	if g.paused {
		return core.StepResult{State: g.State()}
	}

	g.anim.Advance(1 / float32(g.tickRate))

	g.moveCursor(in)
	if in.Has(core.ActionSelect) {
		g.submit(g.cursor)
	}
	for _, c := range in.Clicks {
		if p, ok := g.cellAt(c.X, c.Y); ok {
			g.cursor = p
			g.submit(p)
		}
	}
	if in.Has(core.ActionHint) {
		g.showHint()
	}
	restarted := in.Has(core.ActionRestart) && g.restart()
	if g.hint != nil && g.tick >= g.hintUntil {
		g.hint = nil
	}

	return core.StepResult{State: g.State(), Restarted: restarted}
}

func (g *Game) moveCursor(in core.InputFrame) {
	rows, cols := g.cfg.Board.Rows, g.cfg.Board.Cols
	switch {
	case in.Has(core.ActionUp):
		g.cursor.Row = core.Wrap(g.cursor.Row-1, rows)
	case in.Has(core.ActionDown):
		g.cursor.Row = core.Wrap(g.cursor.Row+1, rows)
	case in.Has(core.ActionLeft):
		g.cursor.Col = core.Wrap(g.cursor.Col-1, cols)
	case in.Has(core.ActionRight):
		g.cursor.Col = core.Wrap(g.cursor.Col+1, cols)
	}
}

// submit forwards a swap-intent. Input arriving mid-transition is dropped.
func (g *Game) submit(p engine.Pos) {
	if !g.ctrl.Submit(p) {
		logger.Debug("input dropped", "pos", p)
		return
	}
	g.hint = nil
}

func (g *Game) showHint() {
	sw, ok := g.ctrl.Hint()
	if !ok {
		g.hud.flash("No moves left - press R")
		return
	}
	g.hint = &sw
	g.hintUntil = g.tick + uint64(hintSeconds*g.tickRate)
	g.cursor = sw.A
}

// restart reports false when the controller is mid-transition.
func (g *Game) restart() bool {
	if !g.ctrl.Restart() {
		return false
	}
	g.hint = nil
	g.hud.clear()
	return true
}

// State returns the current game state.
func (g *Game) State() core.GameState {
	if g.ctrl == nil {
		return core.GameState{}
	}
	stats := g.ctrl.Stats()
	return core.GameState{
		Score:        g.ctrl.Score(),
		Goal:         g.ctrl.Goal(),
		GoalReached:  g.ctrl.Won(),
		Busy:         g.ctrl.Disabled() || g.anim.Busy(),
		Paused:       g.paused,
		Moves:        stats.Moves,
		Cascades:     stats.Cascades,
		LongestChain: stats.LongestChain,
	}
}

// Idle reports whether no transition or motion is in flight.
func (g *Game) Idle() bool {
	return g.ctrl != nil && !g.ctrl.Disabled() && !g.anim.Busy()
}

// hud collects controller events for the status line. Events arrive on the
// controller goroutine while Render runs on the platform's.
type hud struct {
	engine.NopListener

	mu        sync.Mutex
	chain     int
	lastChain int
	arrow     rune
	message   string
}

func (h *hud) StateChanged(s engine.State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch s {
	case engine.StateResolving:
		h.chain = 0
		h.message = ""
	case engine.StateIdle:
		h.arrow = 0
		if h.chain > 1 {
			h.lastChain = h.chain
		}
	}
}

func (h *hud) SwapStarted(a, b engine.Pos) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case b.Col > a.Col:
		h.arrow = '→'
	case b.Col < a.Col:
		h.arrow = '←'
	case b.Row > a.Row:
		h.arrow = '↓'
	default:
		h.arrow = '↑'
	}
}

func (h *hud) MatchRemoved([]*engine.Tile) {
	h.mu.Lock()
	h.chain++
	h.mu.Unlock()
}

func (h *hud) GoalReached() {
	h.flash("Goal reached!")
}

func (h *hud) flash(msg string) {
	h.mu.Lock()
	h.message = msg
	h.mu.Unlock()
}

func (h *hud) clear() {
	h.mu.Lock()
	h.chain, h.lastChain, h.arrow, h.message = 0, 0, 0, ""
	h.mu.Unlock()
}

type hudView struct {
	lastChain int
	arrow     rune
	message   string
}

func (h *hud) view() hudView {
	h.mu.Lock()
	defer h.mu.Unlock()
	return hudView{lastChain: h.lastChain, arrow: h.arrow, message: h.message}
}
