package engine

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// Visual is an opaque presentation handle. The engine only stores it on the
// tile and hands it back to the Animator.
type Visual any

// Point is a position in board units: X is the column, Y is the row.
// Negative Y is above the visible grid.
type Point struct {
	X float64
	Y float64
}

// PointOf converts a cell position to its resting point.
func PointOf(p Pos) Point {
	return Point{X: float64(p.Col), Y: float64(p.Row)}
}

// Easing selects the interpolation curve of a motion.
type Easing int

const (
	EaseLinear Easing = iota
	EaseOutQuad
	EaseOutBounce
)

// Motion describes one settle animation.
type Motion struct {
	Duration time.Duration
	Delay    time.Duration
	Easing   Easing
}

// Instant reports whether the motion has nothing to wait for.
func (m Motion) Instant() bool {
	return m.Duration <= 0 && m.Delay <= 0
}

// Animator is the only capability the engine needs from presentation.
// AnimateTo must support concurrent calls and return once the visual has
// settled at to, or with ctx.Err() if ctx ends first.
type Animator interface {
	CreateVisual(id TileID, color Color, at Point) Visual
	AnimateTo(ctx context.Context, v Visual, to Point, m Motion) error
	Destroy(v Visual)
}

// settle is one member of a join group.
type settle struct {
	visual Visual
	to     Point
	motion Motion
}

// join starts every settle concurrently and waits for all of them. When
// timeout > 0 a group that runs longer is abandoned and reported through
// errSettleTimeout so the caller can carry on.
func join(ctx context.Context, anim Animator, timeout time.Duration, group []settle) error {
	if len(group) == 0 {
		return ctx.Err()
	}
	wctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var g errgroup.Group
	for _, s := range group {
		g.Go(func() error {
			return anim.AnimateTo(wctx, s.visual, s.to, s.motion)
		})
	}
	err := g.Wait()
	if err != nil && ctx.Err() == nil && errors.Is(wctx.Err(), context.DeadlineExceeded) {
		return errSettleTimeout
	}
	return err
}

var errSettleTimeout = errors.New("engine: settle group timed out")

// InstantAnimator settles every motion immediately. It is used by headless
// play and tests.
type InstantAnimator struct{}

// CreateVisual returns the tile ID as the handle.
func (InstantAnimator) CreateVisual(id TileID, _ Color, _ Point) Visual { return id }

// AnimateTo returns at once unless ctx is already done.
func (InstantAnimator) AnimateTo(ctx context.Context, _ Visual, _ Point, _ Motion) error {
	return ctx.Err()
}

// Destroy is a no-op.
func (InstantAnimator) Destroy(Visual) {}
