package match3

import (
	"context"
	"sort"
	"sync"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/vovakirdan/match3-arcade/internal/games/match3/engine"
)

// sprite is the on-screen twin of a tile. Positions are in board units.
type sprite struct {
	id     engine.TileID
	color  engine.Color
	x, y   float32
	motion *motion
}

// motion is one pending AnimateTo. done is closed when it finishes, is
// superseded, or the sprite is destroyed.
type motion struct {
	fromX, fromY float32
	toX, toY     float32
	delay        float32 // seconds left before the tween starts
	tween        *gween.Tween
	done         chan struct{}
}

// TweenAnimator implements engine.Animator on top of gween tweens that are
// advanced by the game tick. AnimateTo blocks the controller goroutine until
// Advance has played the motion out.
type TweenAnimator struct {
	mu      sync.Mutex
	sprites map[engine.TileID]*sprite
}

// NewTweenAnimator creates an animator with no sprites.
func NewTweenAnimator() *TweenAnimator {
	return &TweenAnimator{sprites: make(map[engine.TileID]*sprite)}
}

// SpriteView is a read-only copy of a sprite for rendering.
type SpriteView struct {
	ID     engine.TileID
	Color  engine.Color
	X, Y   float32
	Moving bool
}

// CreateVisual adds a sprite resting at the given point.
func (a *TweenAnimator) CreateVisual(id engine.TileID, color engine.Color, at engine.Point) engine.Visual {
	s := &sprite{id: id, color: color, x: float32(at.X), y: float32(at.Y)}
	a.mu.Lock()
	a.sprites[id] = s
	a.mu.Unlock()
	return s
}

// AnimateTo starts a motion and waits for it. A newer motion on the same
// sprite releases the older waiter. When ctx ends first the sprite snaps to
// its target.
func (a *TweenAnimator) AnimateTo(ctx context.Context, v engine.Visual, to engine.Point, m engine.Motion) error {
	s, ok := v.(*sprite)
	if !ok {
		return ctx.Err()
	}
	tx, ty := float32(to.X), float32(to.Y)

	a.mu.Lock()
	if _, live := a.sprites[s.id]; !live {
		a.mu.Unlock()
		return ctx.Err()
	}
	s.finish()
	if m.Instant() {
		s.x, s.y = tx, ty
		a.mu.Unlock()
		return ctx.Err()
	}
	mo := &motion{
		fromX: s.x,
		fromY: s.y,
		toX:   tx,
		toY:   ty,
		delay: float32(m.Delay.Seconds()),
		done:  make(chan struct{}),
	}
	if d := float32(m.Duration.Seconds()); d > 0 {
		mo.tween = gween.New(0, 1, d, easing(m.Easing))
	}
	s.motion = mo
	a.mu.Unlock()

	select {
	case <-mo.done:
		return nil
	case <-ctx.Done():
		a.mu.Lock()
		if s.motion == mo {
			s.x, s.y = tx, ty
			s.finish()
		}
		a.mu.Unlock()
		return ctx.Err()
	}
}

// Destroy removes the sprite and releases anyone waiting on it.
func (a *TweenAnimator) Destroy(v engine.Visual) {
	s, ok := v.(*sprite)
	if !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	s.finish()
	delete(a.sprites, s.id)
}

// Advance plays every active motion forward by dt seconds.
func (a *TweenAnimator) Advance(dt float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range a.sprites {
		mo := s.motion
		if mo == nil {
			continue
		}
		step := dt
		if mo.delay > 0 {
			mo.delay -= step
			if mo.delay > 0 {
				continue
			}
			step = -mo.delay
			mo.delay = 0
		}
		if mo.tween == nil {
			s.x, s.y = mo.toX, mo.toY
			s.finish()
			continue
		}
		t, finished := mo.tween.Update(step)
		if finished {
			s.x, s.y = mo.toX, mo.toY
			s.finish()
			continue
		}
		s.x = mo.fromX + (mo.toX-mo.fromX)*t
		s.y = mo.fromY + (mo.toY-mo.fromY)*t
	}
}

// Busy reports whether any motion is still playing.
func (a *TweenAnimator) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.sprites {
		if s.motion != nil {
			return true
		}
	}
	return false
}

// Sprites returns every sprite ordered by tile ID.
func (a *TweenAnimator) Sprites() []SpriteView {
	a.mu.Lock()
	out := make([]SpriteView, 0, len(a.sprites))
	for _, s := range a.sprites {
		out = append(out, SpriteView{ID: s.id, Color: s.color, X: s.x, Y: s.y, Moving: s.motion != nil})
	}
	a.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// finish closes the current motion, if any. Callers hold the animator lock.
func (s *sprite) finish() {
	if s.motion != nil {
		close(s.motion.done)
		s.motion = nil
	}
}

func easing(e engine.Easing) ease.TweenFunc {
	switch e {
	case engine.EaseOutQuad:
		return ease.OutQuad
	case engine.EaseOutBounce:
		return ease.OutBounce
	default:
		return ease.Linear
	}
}
