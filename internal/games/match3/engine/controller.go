package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// ErrInvalidGoal is returned by NewController for a non-positive goal.
var ErrInvalidGoal = errors.New("engine: goal must be positive")

// Options configures a Controller. Zero durations make every motion instant.
type Options struct {
	PointsPerMatch int
	Goal           int

	SwapDuration   time.Duration
	RevertDuration time.Duration
	FallDuration   time.Duration
	FallDelayMax   time.Duration // random part of a refilled tile's delay
	FallRowBias    time.Duration // divided by row+1 and added to the delay

	// SettleTimeout bounds each settle group. When a group exceeds it the
	// controller logs a warning and continues as if it had settled.
	// Zero disables the watchdog.
	SettleTimeout time.Duration

	// DelaySeed seeds the cosmetic fall delays. It never affects the grid.
	DelaySeed int64

	Listener Listener
	Logger   *log.Logger
}

// DefaultOptions returns the stock round rules and timings.
func DefaultOptions() Options {
	return Options{
		PointsPerMatch: 10,
		Goal:           100,
		SwapDuration:   200 * time.Millisecond,
		RevertDuration: 200 * time.Millisecond,
		FallDuration:   500 * time.Millisecond,
		FallDelayMax:   200 * time.Millisecond,
		FallRowBias:    300 * time.Millisecond,
	}
}

type intent struct {
	pos   Pos
	epoch uint64
}

// Controller turns swap-intents into grid mutations. It runs the state
// machine Idle -> Resolving -> (Cascading ->) Idle and is the only writer
// of the board. Input is disabled for the whole of a transition.
type Controller struct {
	board    *Board
	anim     Animator
	opts     Options
	listener Listener
	logger   *log.Logger
	delays   *rand.Rand

	busy    atomic.Bool
	epoch   atomic.Uint64
	intents chan intent

	// mu guards everything below plus the board. It is never held across a
	// settle group or a listener call.
	mu       sync.RWMutex
	state    State
	primed   bool
	selected *Tile
	score    int
	goal     int
	won      bool
	stats    Stats
}

// NewController wires a controller to its board and animator. The board is
// not primed until Prime or the first intent.
func NewController(b *Board, anim Animator, opts Options) (*Controller, error) {
	if b == nil {
		return nil, errors.New("engine: nil board")
	}
	if opts.Goal <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidGoal, opts.Goal)
	}
	if p, ok := b.colors.(Palette); ok && p.Colors() < 2 && max(b.rows, b.cols) >= 3 {
		return nil, fmt.Errorf("%w: %d color(s) on %dx%d", ErrPaletteTooSmall, p.Colors(), b.rows, b.cols)
	}
	if anim == nil {
		anim = InstantAnimator{}
	}
	listener := opts.Listener
	if listener == nil {
		listener = NopListener{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Controller{
		board:    b,
		anim:     anim,
		opts:     opts,
		listener: listener,
		logger:   logger,
		delays:   rand.New(rand.NewSource(opts.DelaySeed)),
		intents:  make(chan intent, 1),
		goal:     opts.Goal,
	}, nil
}

// maxPasses bounds a single prime or cascade. A random palette of two or more
// colors settles in a handful of passes; only a scripted source that keeps
// refilling the same run can reach it.
const maxPasses = 1000

// Prime removes every pre-existing match (remove, compact, refill, rescan
// until stable) without scoring, then gives each tile a visual at its cell.
// It returns false if a transition is in flight.
func (c *Controller) Prime() bool {
	if !c.busy.CompareAndSwap(false, true) {
		return false
	}
	defer c.busy.Store(false)
	c.prime()
	return true
}

func (c *Controller) prime() {
	c.mu.Lock()
	passes := 0
	var dropped []Visual
	for {
		matches := FindMatches(c.board)
		if len(matches) == 0 {
			break
		}
		passes++
		if passes > maxPasses {
			c.logger.Error("priming did not settle, leaving runs on the board", "passes", passes-1)
			break
		}
		for _, t := range uniqueTiles(matches) {
			if t.visual != nil {
				dropped = append(dropped, t.visual)
			}
			c.board.Remove(t)
		}
		for col := 0; col < c.board.cols; col++ {
			if c.board.ColumnHasGap(col) {
				c.board.CompactColumn(col)
			}
		}
		c.board.RefillEmpties()
	}
	tiles := c.board.Tiles()
	c.primed = true
	c.mu.Unlock()

	for _, v := range dropped {
		c.anim.Destroy(v)
	}
	for _, t := range tiles {
		at := c.board.PosOf(t)
		if t.visual == nil {
			t.visual = c.anim.CreateVisual(t.id, t.color, PointOf(at))
			c.listener.TileCreated(t, at)
			continue
		}
		//nolint:errcheck // Instant motions cannot block or fail
		c.anim.AnimateTo(context.Background(), t.visual, PointOf(at), Motion{})
	}
	c.logger.Debug("board primed", "passes", passes)
}

// Submit queues a swap-intent for Run. It returns false when input is
// disabled or an intent is already waiting; the intent is then dropped.
func (c *Controller) Submit(p Pos) bool {
	if c.busy.Load() {
		return false
	}
	select {
	case c.intents <- intent{pos: p, epoch: c.epoch.Load()}:
		return true
	default:
		return false
	}
}

// Run consumes submitted intents until ctx ends. Intents submitted before a
// swap started are stale once it finishes and are dropped.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-c.intents:
			if in.epoch != c.epoch.Load() {
				c.logger.Debug("stale intent dropped", "pos", in.pos)
				continue
			}
			if err := c.HandleIntent(ctx, in.pos); err != nil && ctx.Err() == nil {
				c.logger.Error("intent failed", "pos", in.pos, "error", err)
			}
		}
	}
}

// HandleIntent applies one swap-intent naming the tile at p. It blocks for
// the whole transition, including every settle group. Intents arriving
// while another transition is in flight are ignored.
//
// Out-of-bounds or empty positions are ignored. A returned error comes only
// from ctx; the grid is consistent and input re-enabled in every case.
func (c *Controller) HandleIntent(ctx context.Context, p Pos) error {
	if !c.busy.CompareAndSwap(false, true) {
		c.logger.Debug("intent ignored, input disabled", "pos", p)
		return nil
	}
	defer c.busy.Store(false)

	if !c.isPrimed() {
		c.prime()
	}

	c.mu.Lock()
	cell, ok := c.board.At(p)
	if !ok || cell.tile == nil {
		c.mu.Unlock()
		return nil
	}
	tile := cell.tile
	sel := c.selected

	if sel == nil {
		c.selected = tile
		c.mu.Unlock()
		c.listener.TileSelected(tile, p)
		return nil
	}

	selPos := c.board.PosOf(sel)
	if !selPos.Adjacent(p) {
		c.selected = tile
		c.mu.Unlock()
		c.listener.TileDeselected()
		c.listener.TileSelected(tile, p)
		return nil
	}

	c.selected = nil
	c.mu.Unlock()
	c.listener.TileDeselected()
	return c.swap(ctx, sel, tile, selPos, p)
}

func (c *Controller) swap(ctx context.Context, a, b *Tile, pa, pb Pos) error {
	c.epoch.Add(1)
	c.setState(StateResolving)
	c.listener.SwapStarted(pa, pb)

	move := c.swapMotion()
	err := c.settle(ctx, []settle{
		{visual: a.visual, to: PointOf(pb), motion: move},
		{visual: b.visual, to: PointOf(pa), motion: move},
	})

	c.mu.Lock()
	c.board.SwapCells(a, b)
	matches := FindMatches(c.board)
	if len(matches) == 0 {
		c.stats.Reverts++
	} else {
		c.stats.Moves++
	}
	c.mu.Unlock()

	if len(matches) > 0 {
		return firstErr(err, c.cascade(ctx, matches))
	}

	c.logger.Debug("swap reverted", "a", pa, "b", pb)
	back := Motion{Duration: c.opts.RevertDuration, Easing: EaseLinear}
	err = firstErr(err, c.settle(ctx, []settle{
		{visual: a.visual, to: PointOf(pa), motion: back},
		{visual: b.visual, to: PointOf(pb), motion: back},
	}))
	c.mu.Lock()
	c.board.SwapCells(a, b)
	c.mu.Unlock()
	c.setState(StateIdle)
	return err
}

// cascade runs remove -> score -> goal check -> fall/refill -> rescan until
// a scan comes back empty. Each grid mutation happens strictly between two
// settle groups.
func (c *Controller) cascade(ctx context.Context, matches []Match) error {
	c.setState(StateCascading)
	var err error
	chain := 0
	for len(matches) > 0 {
		if chain == maxPasses {
			c.logger.Error("cascade did not settle, leaving runs on the board", "chain", chain)
			break
		}
		chain++

		removed, score, reached := c.removeMatches(matches)
		for _, t := range removed {
			c.anim.Destroy(t.visual)
			t.visual = nil
		}
		c.listener.MatchRemoved(removed)
		c.listener.ScoreChanged(score)
		if reached {
			c.logger.Info("goal reached", "score", score)
			c.listener.GoalReached()
		}

		group := c.collapse()
		err = firstErr(err, c.settle(ctx, group))

		c.mu.RLock()
		matches = FindMatches(c.board)
		c.mu.RUnlock()
	}

	c.mu.Lock()
	c.stats.LongestChain = max(c.stats.LongestChain, chain)
	c.mu.Unlock()
	c.logger.Debug("cascade settled", "chain", chain)
	c.setState(StateIdle)
	return err
}

// removeMatches detaches every matched tile once and applies scoring. The
// score grows by PointsPerMatch per run, so a tile in two runs counts twice
// for scoring but is removed once.
func (c *Controller) removeMatches(matches []Match) (removed []*Tile, score int, reached bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed = uniqueTiles(matches)
	for _, t := range removed {
		c.board.Remove(t)
	}
	c.score += len(matches) * c.opts.PointsPerMatch
	c.stats.Matches += len(matches)
	c.stats.Cascades++
	if !c.won && c.score >= c.goal {
		c.won = true
		reached = true
	}
	return removed, c.score, reached
}

type created struct {
	tile  *Tile
	at    Pos
	start Point
}

// collapse compacts every gapped column, refills the rest, and returns the
// settle group for all moved and new tiles.
func (c *Controller) collapse() []settle {
	c.mu.Lock()
	var falls []Fall
	for col := 0; col < c.board.cols; col++ {
		if c.board.ColumnHasGap(col) {
			falls = append(falls, c.board.CompactColumn(col)...)
		}
	}
	fresh := c.board.RefillEmpties()
	perCol := make(map[int]int)
	for _, t := range fresh {
		perCol[c.board.PosOf(t).Col]++
	}
	news := make([]created, len(fresh))
	for i, t := range fresh {
		at := c.board.PosOf(t)
		news[i] = created{
			tile: t,
			at:   at,
			// Stack new tiles above the grid in their final order.
			start: Point{X: float64(at.Col), Y: float64(at.Row - perCol[at.Col])},
		}
	}
	c.mu.Unlock()

	group := make([]settle, 0, len(falls)+len(news))
	for _, f := range falls {
		group = append(group, settle{
			visual: f.Tile.visual,
			to:     PointOf(f.To),
			motion: Motion{Duration: c.opts.FallDuration, Easing: EaseOutBounce},
		})
	}
	for _, n := range news {
		n.tile.visual = c.anim.CreateVisual(n.tile.id, n.tile.color, n.start)
		c.listener.TileCreated(n.tile, n.at)
		group = append(group, settle{
			visual: n.tile.visual,
			to:     PointOf(n.at),
			motion: Motion{Duration: c.opts.FallDuration, Delay: c.fallDelay(n.at.Row), Easing: EaseOutBounce},
		})
	}
	return group
}

func (c *Controller) fallDelay(row int) time.Duration {
	var d time.Duration
	if c.opts.FallDelayMax > 0 {
		d = time.Duration(c.delays.Int63n(int64(c.opts.FallDelayMax)))
	}
	return d + c.opts.FallRowBias/time.Duration(row+1)
}

func (c *Controller) swapMotion() Motion {
	return Motion{Duration: c.opts.SwapDuration, Easing: EaseLinear}
}

// settle joins a group; a watchdog timeout is logged and swallowed.
func (c *Controller) settle(ctx context.Context, group []settle) error {
	err := join(ctx, c.anim, c.opts.SettleTimeout, group)
	if errors.Is(err, errSettleTimeout) {
		c.logger.Warn("settle group timed out, continuing", "size", len(group), "timeout", c.opts.SettleTimeout)
		c.mu.Lock()
		c.stats.Stalls++
		c.mu.Unlock()
		return nil
	}
	return err
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		c.logger.Debug("state", "from", prev, "to", s)
		c.listener.StateChanged(s)
	}
}

// Restart resets score, goal and the goal signal, clears the selection and
// re-primes the existing grid. It returns false if a transition is in flight.
func (c *Controller) Restart() bool {
	if !c.busy.CompareAndSwap(false, true) {
		return false
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	c.score = 0
	c.goal = c.opts.Goal
	c.won = false
	c.stats = Stats{}
	hadSelection := c.selected != nil
	c.selected = nil
	c.mu.Unlock()

	if hadSelection {
		c.listener.TileDeselected()
	}
	c.prime()
	c.listener.ScoreChanged(0)
	c.logger.Info("round restarted", "goal", c.opts.Goal)
	return true
}

func (c *Controller) isPrimed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.primed
}

// Disabled reports whether input is currently gated.
func (c *Controller) Disabled() bool { return c.busy.Load() }

// State returns the current state machine position.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Score returns the round score.
func (c *Controller) Score() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.score
}

// Goal returns the round goal.
func (c *Controller) Goal() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.goal
}

// Won reports whether the goal signal has fired this round.
func (c *Controller) Won() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.won
}

// Stats returns a copy of the round statistics.
func (c *Controller) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Selected returns the selected tile's position, if any.
func (c *Controller) Selected() (Pos, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selected == nil {
		return Pos{}, false
	}
	return c.board.PosOf(c.selected), true
}

// Hint returns the first productive swap on the current board.
func (c *Controller) Hint() (Swap, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	moves := FindMoves(c.board)
	if len(moves) == 0 {
		return Swap{}, false
	}
	return moves[0], true
}

// View calls fn with the board under the read lock. fn must not retain the
// board or call back into the controller's mutating methods.
func (c *Controller) View(fn func(b *Board)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.board)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
