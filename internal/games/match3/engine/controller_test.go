package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"
)

// recorder captures listener events as short strings.
type recorder struct {
	mu     sync.Mutex
	events []string
	scores []int
	goals  int
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) ScoreChanged(score int) {
	r.mu.Lock()
	r.scores = append(r.scores, score)
	r.mu.Unlock()
	r.add("score %d", score)
}

func (r *recorder) GoalReached() {
	r.mu.Lock()
	r.goals++
	r.mu.Unlock()
	r.add("goal")
}

func (r *recorder) TileSelected(_ *Tile, at Pos) { r.add("selected %v", at) }
func (r *recorder) TileDeselected()             { r.add("deselected") }
func (r *recorder) SwapStarted(a, b Pos)        { r.add("swap %v %v", a, b) }
func (r *recorder) MatchRemoved(tiles []*Tile)  { r.add("removed %d", len(tiles)) }
func (r *recorder) TileCreated(_ *Tile, at Pos) { r.add("created %v", at) }
func (r *recorder) StateChanged(s State)        { r.add("state %v", s) }

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) goalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.goals
}

func (r *recorder) scoreHistory() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.scores...)
}

// gateAnimator blocks every timed motion until the test releases it.
type gateAnimator struct {
	InstantAnimator
	started chan Point
	release chan struct{}
}

func newGateAnimator() *gateAnimator {
	return &gateAnimator{started: make(chan Point, 64), release: make(chan struct{})}
}

func (g *gateAnimator) AnimateTo(ctx context.Context, _ Visual, to Point, m Motion) error {
	if m.Instant() {
		return ctx.Err()
	}
	g.started <- to
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gateAnimator) waitStarted(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-g.started:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d animations started", i, n)
		}
	}
}

func (g *gateAnimator) releaseN(n int) {
	for i := 0; i < n; i++ {
		g.release <- struct{}{}
	}
}

// The 3x3 board used by most scenarios. No runs, two productive swaps.
var scenario = [][]Color{
	{R, R, G},
	{B, G, R},
	{G, R, B},
}

func newTestController(t *testing.T, layout [][]Color, refill []Color, anim Animator, mutate func(*Options)) (*Controller, *recorder) {
	t.Helper()
	b := mustBoard(t, layout, refill...)
	rec := &recorder{}
	opts := DefaultOptions()
	opts.Listener = rec
	if mutate != nil {
		mutate(&opts)
	}
	c, err := NewController(b, anim, opts)
	if err != nil {
		t.Fatalf("NewController() failed: %v", err)
	}
	return c, rec
}

func layoutOf(c *Controller) [][]Color {
	var out [][]Color
	c.View(func(b *Board) { out = b.Layout() })
	return out
}

func swapTiles(t *testing.T, c *Controller, a, b Pos) {
	t.Helper()
	ctx := context.Background()
	if err := c.HandleIntent(ctx, a); err != nil {
		t.Fatalf("HandleIntent(%v) failed: %v", a, err)
	}
	if err := c.HandleIntent(ctx, b); err != nil {
		t.Fatalf("HandleIntent(%v) failed: %v", b, err)
	}
}

func TestNewControllerRejectsBadGoal(t *testing.T) {
	b := mustBoard(t, scenario)
	opts := DefaultOptions()
	opts.Goal = 0
	if _, err := NewController(b, nil, opts); !errors.Is(err, ErrInvalidGoal) {
		t.Errorf("NewController() error = %v, want ErrInvalidGoal", err)
	}
	if _, err := NewController(nil, nil, DefaultOptions()); err == nil {
		t.Error("NewController(nil board) should fail")
	}
}

func TestNewControllerRejectsOneColorPalette(t *testing.T) {
	tests := []struct {
		name       string
		rows, cols int
		wantErr    bool
	}{
		{"full board", 8, 8, true},
		{"single column", 3, 1, true},
		{"too small to match", 2, 2, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src, err := NewRandSource(1, 7)
			if err != nil {
				t.Fatal(err)
			}
			b, _ := NewBoard(tc.rows, tc.cols, src)
			b.Fill()
			_, err = NewController(b, nil, DefaultOptions())
			if got := errors.Is(err, ErrPaletteTooSmall); got != tc.wantErr {
				t.Errorf("NewController() error = %v, want ErrPaletteTooSmall=%v", err, tc.wantErr)
			}
		})
	}
}

func TestPrimeStopsOnEndlessRefill(t *testing.T) {
	b, _ := NewBoard(3, 3, NewSequenceSource(R))
	b.Fill()
	c, err := NewController(b, nil, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan bool, 1)
	go func() { done <- c.Prime() }()
	select {
	case ok := <-done:
		if !ok {
			t.Fatal("Prime() returned false on an idle controller")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Prime() did not return on a board that refills the same run")
	}
	c.View(func(b *Board) {
		if err := b.Check(); err != nil {
			t.Error(err)
		}
	})
}

func TestCascadeStopsOnEndlessRefill(t *testing.T) {
	c, _ := newTestController(t, scenario, []Color{R}, nil, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx := context.Background()
		c.HandleIntent(ctx, P(0, 2))
		c.HandleIntent(ctx, P(1, 2))
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("cascade did not return on a board that refills the same run")
	}
	if s := c.Stats(); s.LongestChain != maxPasses {
		t.Errorf("LongestChain = %d, want %d", s.LongestChain, maxPasses)
	}
	if c.Disabled() || c.State() != StateIdle {
		t.Errorf("controller not idle: disabled=%v state=%v", c.Disabled(), c.State())
	}
}

func TestPrimeRemovesStartMatchesWithoutScoring(t *testing.T) {
	c, rec := newTestController(t, [][]Color{
		{R, R, R},
		{G, B, G},
	}, []Color{B, G, B}, nil, nil)

	if !c.Prime() {
		t.Fatal("Prime() returned false on an idle controller")
	}

	want := [][]Color{{B, G, B}, {G, B, G}}
	if got := layoutOf(c); !reflect.DeepEqual(got, want) {
		t.Errorf("layout after Prime = %v, want %v", got, want)
	}
	if c.Score() != 0 || c.Won() {
		t.Errorf("Prime scored: score=%d won=%v", c.Score(), c.Won())
	}
	if n := len(rec.scoreHistory()); n != 0 {
		t.Errorf("Prime emitted %d ScoreChanged events", n)
	}
	var created int
	for _, e := range rec.snapshot() {
		if len(e) > 7 && e[:7] == "created" {
			created++
		}
	}
	if created != 6 {
		t.Errorf("Prime created %d visuals, want 6", created)
	}
}

func TestPrimeLeavesNearMissColumn(t *testing.T) {
	layout := [][]Color{{R}, {R}, {G}, {R}}
	c, _ := newTestController(t, layout, nil, nil, nil)
	c.Prime()
	if got := layoutOf(c); !reflect.DeepEqual(got, layout) {
		t.Errorf("layout = %v, want unchanged %v", got, layout)
	}
}

func TestSwapWithoutMatchReverts(t *testing.T) {
	c, _ := newTestController(t, scenario, nil, nil, nil)

	swapTiles(t, c, P(1, 0), P(2, 0))

	if got := layoutOf(c); !reflect.DeepEqual(got, scenario) {
		t.Errorf("layout = %v, want original %v", got, scenario)
	}
	if c.Score() != 0 {
		t.Errorf("Score() = %d, want 0", c.Score())
	}
	if s := c.Stats(); s.Reverts != 1 || s.Moves != 0 {
		t.Errorf("Stats() = %+v, want 1 revert and 0 moves", s)
	}
	if c.Disabled() || c.State() != StateIdle {
		t.Errorf("controller not idle: disabled=%v state=%v", c.Disabled(), c.State())
	}
	if _, ok := c.Selected(); ok {
		t.Error("selection should be cleared after a swap")
	}
}

func TestEveryUnproductiveSwapReverts(t *testing.T) {
	for seed := int64(1); seed <= 3; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			src, _ := NewRandSource(5, seed)
			b, _ := NewBoard(6, 6, src)
			b.Fill()
			c, err := NewController(b, nil, DefaultOptions())
			if err != nil {
				t.Fatal(err)
			}
			c.Prime()

			var productive map[Swap]bool
			c.View(func(b *Board) {
				productive = make(map[Swap]bool)
				for _, m := range FindMoves(b) {
					productive[m] = true
					productive[Swap{A: m.B, B: m.A}] = true
				}
			})

			reverts := 0
			for row := 0; row < 6; row++ {
				for col := 0; col < 6; col++ {
					a := P(row, col)
					for _, n := range []Pos{P(row, col+1), P(row+1, col)} {
						if n.Row >= 6 || n.Col >= 6 || productive[Swap{A: a, B: n}] {
							continue
						}
						before := layoutOf(c)
						swapTiles(t, c, a, n)
						if got := layoutOf(c); !reflect.DeepEqual(got, before) {
							t.Fatalf("swap %v %v changed the board:\n got %v\nwant %v", a, n, got, before)
						}
						reverts++
					}
				}
			}
			if s := c.Stats(); s.Reverts != reverts || s.Moves != 0 || c.Score() != 0 {
				t.Errorf("Stats() = %+v score=%d, want %d reverts and nothing scored", s, c.Score(), reverts)
			}
		})
	}
}

func TestSwapWithMatchCommits(t *testing.T) {
	c, rec := newTestController(t, scenario, []Color{G, B, R}, nil, nil)
	c.Prime()
	rec.reset()

	swapTiles(t, c, P(0, 2), P(1, 2))

	want := [][]Color{
		{G, B, R},
		{B, G, G},
		{G, R, B},
	}
	if got := layoutOf(c); !reflect.DeepEqual(got, want) {
		t.Errorf("layout = %v, want %v", got, want)
	}
	if c.Score() != 10 {
		t.Errorf("Score() = %d, want 10", c.Score())
	}
	wantEvents := []string{
		"selected (0,2)",
		"deselected",
		"state resolving",
		"swap (0,2) (1,2)",
		"state cascading",
		"removed 3",
		"score 10",
		"created (0,0)",
		"created (0,1)",
		"created (0,2)",
		"state idle",
	}
	if got := rec.snapshot(); !reflect.DeepEqual(got, wantEvents) {
		t.Errorf("events =\n%v\nwant\n%v", got, wantEvents)
	}
}

// chainBoard clears row 2 on swapping (2,2) with (3,2). The first refill
// puts B B B on top, which clears on the next pass.
var chainBoard = [][]Color{
	{G, Y, Y},
	{B, G, G},
	{R, R, B},
	{Y, B, R},
}

var chainRefill = []Color{B, B, B, R, G, R}

func TestCascadeChains(t *testing.T) {
	c, _ := newTestController(t, chainBoard, chainRefill, nil, nil)
	c.Prime()
	var topLeft TileID
	c.View(func(b *Board) { topLeft = b.TileAt(P(0, 0)).ID() })

	swapTiles(t, c, P(2, 2), P(3, 2))

	want := [][]Color{
		{R, G, R},
		{G, Y, Y},
		{B, G, G},
		{Y, B, B},
	}
	if got := layoutOf(c); !reflect.DeepEqual(got, want) {
		t.Errorf("layout = %v, want %v", got, want)
	}
	if c.Score() != 20 {
		t.Errorf("Score() = %d, want 20", c.Score())
	}
	s := c.Stats()
	if s.Moves != 1 || s.Matches != 2 || s.Cascades != 2 || s.LongestChain != 2 {
		t.Errorf("Stats() = %+v", s)
	}
	c.View(func(b *Board) {
		if id := b.TileAt(P(1, 0)).ID(); id != topLeft {
			t.Errorf("tile at (1,0) = %d, want the original top-left %d", id, topLeft)
		}
		if err := b.Check(); err != nil {
			t.Error(err)
		}
	})
}

func TestCrossMatchScoresEachRun(t *testing.T) {
	// Swapping (1,0) and (1,1) forms a row and a column meeting at (1,1).
	c, _ := newTestController(t, [][]Color{
		{G, B, Y, G},
		{R, Y, R, R},
		{B, R, G, Y},
		{Y, R, B, G},
	}, []Color{R, B, Y, R, Y}, nil, nil)

	swapTiles(t, c, P(1, 0), P(1, 1))

	want := [][]Color{
		{G, R, B, Y},
		{Y, R, Y, G},
		{B, Y, G, Y},
		{Y, B, B, G},
	}
	if got := layoutOf(c); !reflect.DeepEqual(got, want) {
		t.Errorf("layout = %v, want %v", got, want)
	}
	if c.Score() != 20 {
		t.Errorf("Score() = %d, want 20 for two runs", c.Score())
	}
	if s := c.Stats(); s.Matches != 2 || s.Cascades != 1 {
		t.Errorf("Stats() = %+v, want 2 runs in 1 pass", s)
	}
	c.View(func(b *Board) {
		if err := b.Check(); err != nil {
			t.Error(err)
		}
	})
}

func TestGoalFiresOnce(t *testing.T) {
	c, rec := newTestController(t, chainBoard, chainRefill, nil, func(o *Options) {
		o.Goal = 10
	})

	swapTiles(t, c, P(2, 2), P(3, 2))

	if !c.Won() {
		t.Fatal("Won() = false after passing the goal")
	}
	if n := rec.goalCount(); n != 1 {
		t.Errorf("GoalReached fired %d times, want 1", n)
	}

	if !c.Restart() {
		t.Fatal("Restart() returned false")
	}
	if c.Score() != 0 || c.Won() || c.Goal() != 10 {
		t.Errorf("after Restart: score=%d won=%v goal=%d", c.Score(), c.Won(), c.Goal())
	}
	if (c.Stats() != Stats{}) {
		t.Errorf("Restart kept stats %+v", c.Stats())
	}
	scores := rec.scoreHistory()
	if scores[len(scores)-1] != 0 {
		t.Errorf("last ScoreChanged = %d, want 0", scores[len(scores)-1])
	}
}

func TestSelectionProtocol(t *testing.T) {
	c, rec := newTestController(t, scenario, nil, nil, nil)
	c.Prime()
	rec.reset()
	ctx := context.Background()

	c.HandleIntent(ctx, P(0, 0))
	if p, ok := c.Selected(); !ok || p != P(0, 0) {
		t.Fatalf("Selected() = %v, %v; want (0,0)", p, ok)
	}

	// Not adjacent: reselect.
	c.HandleIntent(ctx, P(2, 2))
	if p, ok := c.Selected(); !ok || p != P(2, 2) {
		t.Fatalf("Selected() = %v, %v; want (2,2)", p, ok)
	}

	// Out of bounds: ignored.
	c.HandleIntent(ctx, P(5, 5))
	if p, _ := c.Selected(); p != P(2, 2) {
		t.Errorf("out-of-bounds intent changed selection to %v", p)
	}

	want := []string{"selected (0,0)", "deselected", "selected (2,2)"}
	if got := rec.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if got := layoutOf(c); !reflect.DeepEqual(got, scenario) {
		t.Error("selection changed the board")
	}
}

func TestSingleCellBoard(t *testing.T) {
	c, _ := newTestController(t, [][]Color{{R}}, nil, nil, nil)
	ctx := context.Background()
	c.HandleIntent(ctx, P(0, 0))
	c.HandleIntent(ctx, P(0, 0))
	if s := c.Stats(); s.Moves+s.Reverts != 0 {
		t.Errorf("1x1 board swapped: %+v", s)
	}
	if _, ok := c.Hint(); ok {
		t.Error("1x1 board should have no hint")
	}
}

func TestInputDisabledDuringTransition(t *testing.T) {
	gate := newGateAnimator()
	c, _ := newTestController(t, scenario, nil, gate, nil)
	ctx := context.Background()
	c.Prime()
	c.HandleIntent(ctx, P(1, 0))

	done := make(chan error, 1)
	go func() { done <- c.HandleIntent(ctx, P(2, 0)) }()

	// Both swap motions run concurrently.
	gate.waitStarted(t, 2)
	if !c.Disabled() {
		t.Error("Disabled() = false during swap")
	}
	if c.State() != StateResolving {
		t.Errorf("State() = %v, want resolving", c.State())
	}
	if got := layoutOf(c); !reflect.DeepEqual(got, scenario) {
		t.Error("board changed before the swap motion settled")
	}
	if c.Submit(P(0, 0)) {
		t.Error("Submit() accepted an intent while disabled")
	}
	if err := c.HandleIntent(ctx, P(0, 0)); err != nil {
		t.Errorf("ignored intent returned %v", err)
	}
	if _, ok := c.Selected(); ok {
		t.Error("intent while disabled changed the selection")
	}

	gate.releaseN(2)
	gate.waitStarted(t, 2)
	// Between the swap and the revert the board holds the swapped state.
	swapped := [][]Color{{R, R, G}, {G, G, R}, {B, R, B}}
	if got := layoutOf(c); !reflect.DeepEqual(got, swapped) {
		t.Errorf("layout during revert = %v, want %v", got, swapped)
	}
	if !c.Disabled() {
		t.Error("Disabled() = false during revert")
	}

	gate.releaseN(2)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("HandleIntent() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("transition did not finish")
	}
	if c.Disabled() || c.State() != StateIdle {
		t.Errorf("after transition: disabled=%v state=%v", c.Disabled(), c.State())
	}
	if got := layoutOf(c); !reflect.DeepEqual(got, scenario) {
		t.Errorf("layout = %v, want original", got)
	}
}

func TestSettleWatchdog(t *testing.T) {
	gate := newGateAnimator()
	c, _ := newTestController(t, scenario, nil, gate, func(o *Options) {
		o.SettleTimeout = 20 * time.Millisecond
	})

	swapTiles(t, c, P(1, 0), P(2, 0))

	if s := c.Stats(); s.Stalls != 2 || s.Reverts != 1 {
		t.Errorf("Stats() = %+v, want 2 stalls and 1 revert", s)
	}
	if got := layoutOf(c); !reflect.DeepEqual(got, scenario) {
		t.Errorf("layout = %v, want original", got)
	}
	if c.Disabled() {
		t.Error("input still disabled after stalled transition")
	}
}

func TestCancelLeavesBoardConsistent(t *testing.T) {
	gate := newGateAnimator()
	c, _ := newTestController(t, scenario, nil, gate, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.HandleIntent(ctx, P(1, 0))

	done := make(chan error, 1)
	go func() { done <- c.HandleIntent(ctx, P(2, 0)) }()
	gate.waitStarted(t, 2)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("HandleIntent() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled transition did not return")
	}
	if got := layoutOf(c); !reflect.DeepEqual(got, scenario) {
		t.Errorf("layout = %v, want original", got)
	}
	c.View(func(b *Board) {
		if err := b.Check(); err != nil {
			t.Error(err)
		}
	})
	if c.Disabled() {
		t.Error("input still disabled after cancel")
	}
}

func TestRunProcessesSubmittedIntents(t *testing.T) {
	c, _ := newTestController(t, scenario, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()

	waitFor := func(what string, cond func() bool) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for !cond() {
			if time.Now().After(deadline) {
				t.Fatalf("timed out waiting for %s", what)
			}
			time.Sleep(time.Millisecond)
		}
	}

	if !c.Submit(P(1, 0)) {
		t.Fatal("Submit() rejected the first intent")
	}
	waitFor("selection", func() bool { _, ok := c.Selected(); return ok })
	if !c.Submit(P(2, 0)) {
		t.Fatal("Submit() rejected the second intent")
	}
	waitFor("revert", func() bool { return c.Stats().Reverts == 1 && !c.Disabled() })

	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

func TestRunDropsStaleIntents(t *testing.T) {
	c, _ := newTestController(t, scenario, nil, nil, nil)
	c.HandleIntent(context.Background(), P(1, 0))
	if !c.Submit(P(0, 0)) {
		t.Fatal("Submit() rejected the intent")
	}
	// A swap completes before Run sees the queued intent.
	c.HandleIntent(context.Background(), P(2, 0))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	c.Run(ctx)

	if p, ok := c.Selected(); ok {
		t.Errorf("stale intent selected %v", p)
	}
}

func TestCascadesTerminateOnRandomBoards(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			src, _ := NewRandSource(4, seed)
			b, _ := NewBoard(8, 8, src)
			b.Fill()
			rec := &recorder{}
			opts := DefaultOptions()
			opts.Listener = rec
			c, err := NewController(b, nil, opts)
			if err != nil {
				t.Fatal(err)
			}
			c.Prime()

			moves := 0
			for ; moves < 100; moves++ {
				hint, ok := c.Hint()
				if !ok {
					break
				}
				swapTiles(t, c, hint.A, hint.B)

				c.View(func(b *Board) {
					if err := b.Check(); err != nil {
						t.Fatal(err)
					}
					if m := FindMatches(b); len(m) != 0 {
						t.Fatalf("move %d left %d runs on the board", moves, len(m))
					}
				})
				s := c.Stats()
				if c.Score() != s.Matches*opts.PointsPerMatch {
					t.Fatalf("score %d != %d runs * %d", c.Score(), s.Matches, opts.PointsPerMatch)
				}
				if s.Reverts != 0 {
					t.Fatalf("hinted swap reverted")
				}
			}
			if moves == 0 {
				t.Fatal("no productive swap on a fresh board")
			}

			scores := rec.scoreHistory()
			for i := 1; i < len(scores); i++ {
				if scores[i] < scores[i-1] {
					t.Fatalf("score decreased: %v", scores)
				}
			}
			if rec.goalCount() > 1 {
				t.Errorf("GoalReached fired %d times", rec.goalCount())
			}
		})
	}
}

func TestFallDelay(t *testing.T) {
	c, _ := newTestController(t, scenario, nil, nil, nil)
	for row := 0; row < 8; row++ {
		d := c.fallDelay(row)
		bias := c.opts.FallRowBias / time.Duration(row+1)
		if d < bias || d >= bias+c.opts.FallDelayMax {
			t.Errorf("fallDelay(%d) = %v, want in [%v, %v)", row, d, bias, bias+c.opts.FallDelayMax)
		}
	}
}
