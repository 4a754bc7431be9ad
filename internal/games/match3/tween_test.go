package match3

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/match3-arcade/internal/games/match3/engine"
)

const frame = float32(1.0 / 60)

// animate runs AnimateTo on its own goroutine and returns its result channel.
func animate(ctx context.Context, a *TweenAnimator, v engine.Visual, to engine.Point, m engine.Motion) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- a.AnimateTo(ctx, v, to, m) }()
	return ch
}

// waitMoving blocks until the animator has picked up a motion.
func waitMoving(t *testing.T, a *TweenAnimator) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !a.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("motion never started")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTweenAnimatorPlaysMotion(t *testing.T) {
	a := NewTweenAnimator()
	v := a.CreateVisual(1, 0, engine.Point{X: 0, Y: 0})

	done := animate(context.Background(), a, v, engine.Point{X: 1, Y: 0},
		engine.Motion{Duration: 200 * time.Millisecond, Easing: engine.EaseLinear})
	waitMoving(t, a)

	a.Advance(0.1)
	mid := a.Sprites()[0]
	if mid.X < 0.4 || mid.X > 0.6 || !mid.Moving {
		t.Errorf("halfway sprite = %+v, want X near 0.5 and moving", mid)
	}
	select {
	case err := <-done:
		t.Fatalf("AnimateTo returned early: %v", err)
	default:
	}

	a.Advance(0.15)
	if err := <-done; err != nil {
		t.Fatalf("AnimateTo() = %v", err)
	}
	end := a.Sprites()[0]
	if end.X != 1 || end.Y != 0 || end.Moving {
		t.Errorf("settled sprite = %+v, want (1, 0) at rest", end)
	}
	if a.Busy() {
		t.Error("Busy() after the motion finished")
	}
}

func TestTweenAnimatorDelay(t *testing.T) {
	a := NewTweenAnimator()
	v := a.CreateVisual(1, 0, engine.Point{X: 2, Y: -1})

	done := animate(context.Background(), a, v, engine.Point{X: 2, Y: 3},
		engine.Motion{Duration: 100 * time.Millisecond, Delay: 100 * time.Millisecond, Easing: engine.EaseOutBounce})
	waitMoving(t, a)

	a.Advance(0.05)
	if s := a.Sprites()[0]; s.Y != -1 {
		t.Errorf("sprite moved during its delay: Y = %v", s.Y)
	}
	a.Advance(0.05)
	a.Advance(0.11)
	if err := <-done; err != nil {
		t.Fatalf("AnimateTo() = %v", err)
	}
	if s := a.Sprites()[0]; s.Y != 3 {
		t.Errorf("sprite Y = %v, want 3", s.Y)
	}
}

func TestTweenAnimatorDelayOnly(t *testing.T) {
	a := NewTweenAnimator()
	v := a.CreateVisual(1, 0, engine.Point{})

	done := animate(context.Background(), a, v, engine.Point{X: 1}, engine.Motion{Delay: 30 * time.Millisecond})
	waitMoving(t, a)
	a.Advance(frame)
	a.Advance(frame)

	if err := <-done; err != nil {
		t.Fatalf("AnimateTo() = %v", err)
	}
	if s := a.Sprites()[0]; s.X != 1 {
		t.Errorf("sprite X = %v, want 1", s.X)
	}
}

func TestTweenAnimatorInstant(t *testing.T) {
	a := NewTweenAnimator()
	v := a.CreateVisual(1, 0, engine.Point{})

	if err := a.AnimateTo(context.Background(), v, engine.Point{X: 4, Y: 5}, engine.Motion{}); err != nil {
		t.Fatalf("AnimateTo() = %v", err)
	}
	if s := a.Sprites()[0]; s.X != 4 || s.Y != 5 || s.Moving {
		t.Errorf("sprite = %+v, want snapped to (4, 5)", s)
	}
}

func TestTweenAnimatorCancelSnaps(t *testing.T) {
	a := NewTweenAnimator()
	v := a.CreateVisual(1, 0, engine.Point{})
	ctx, cancel := context.WithCancel(context.Background())

	done := animate(ctx, a, v, engine.Point{X: 3}, engine.Motion{Duration: time.Second})
	waitMoving(t, a)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("AnimateTo() = %v, want context.Canceled", err)
	}
	if s := a.Sprites()[0]; s.X != 3 || s.Moving {
		t.Errorf("cancelled sprite = %+v, want snapped to X 3", s)
	}
}

func TestTweenAnimatorDestroyReleasesWaiter(t *testing.T) {
	a := NewTweenAnimator()
	v := a.CreateVisual(1, 0, engine.Point{})

	done := animate(context.Background(), a, v, engine.Point{X: 3}, engine.Motion{Duration: time.Second})
	waitMoving(t, a)
	a.Destroy(v)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("AnimateTo() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Destroy did not release the waiter")
	}
	if n := len(a.Sprites()); n != 0 {
		t.Errorf("%d sprites left after Destroy", n)
	}
	// Animating a destroyed sprite returns at once.
	if err := a.AnimateTo(context.Background(), v, engine.Point{}, engine.Motion{Duration: time.Second}); err != nil {
		t.Errorf("AnimateTo(destroyed) = %v", err)
	}
}

func TestTweenAnimatorSupersede(t *testing.T) {
	a := NewTweenAnimator()
	v := a.CreateVisual(1, 0, engine.Point{})

	first := animate(context.Background(), a, v, engine.Point{X: 5}, engine.Motion{Duration: time.Second})
	waitMoving(t, a)
	if err := a.AnimateTo(context.Background(), v, engine.Point{Y: 2}, engine.Motion{}); err != nil {
		t.Fatal(err)
	}
	if err := <-first; err != nil {
		t.Errorf("superseded AnimateTo() = %v", err)
	}
	if s := a.Sprites()[0]; s.X != 0 || s.Y != 2 {
		t.Errorf("sprite = %+v, want the newer target", s)
	}
}

func TestTweenAnimatorSpritesSorted(t *testing.T) {
	a := NewTweenAnimator()
	for _, id := range []engine.TileID{7, 2, 5} {
		a.CreateVisual(id, engine.Color(id), engine.Point{})
	}
	got := a.Sprites()
	if len(got) != 3 || got[0].ID != 2 || got[1].ID != 5 || got[2].ID != 7 {
		t.Errorf("Sprites() = %+v, want IDs 2, 5, 7", got)
	}
}
