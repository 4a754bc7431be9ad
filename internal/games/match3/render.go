package match3

import (
	"fmt"
	"math"

	"github.com/vovakirdan/match3-arcade/internal/core"
	"github.com/vovakirdan/match3-arcade/internal/games/match3/engine"
)

const (
	cellWidth  = 4 // Columns per tile including the marker gap
	cellHeight = 2 // Lines per tile including the spacer line
)

// glyphs tell colors apart on terminals without color. Index = tile color.
var glyphs = []rune{'●', '◆', '■', '▲', '★', '♥', '♣', '✚'}

// layout is where the board lands on a screen of a given size.
type layout struct {
	frame  core.Rect // HUD line, box, status line
	box    core.Rect
	ox, oy int // screen cell of tile (0, 0)
	fits   bool
}

func (g *Game) layoutFor(w, h int) layout {
	rows, cols := g.cfg.Board.Rows, g.cfg.Board.Cols
	boxW := cols*cellWidth + 3
	boxH := rows*cellHeight + 1
	frame := core.NewRect(0, 0, w, h).Centered(boxW, boxH+2)
	return layout{
		frame: frame,
		box:   core.NewRect(frame.X, frame.Y+1, boxW, boxH),
		ox:    frame.X + 3,
		oy:    frame.Y + 2,
		fits:  w >= boxW && h >= boxH+2,
	}
}

// cellAt maps a screen cell to the board position drawn there, using the
// size of the last rendered frame.
func (g *Game) cellAt(x, y int) (engine.Pos, bool) {
	l := g.layoutFor(g.screenW, g.screenH)
	if !l.fits {
		return engine.Pos{}, false
	}
	dx := x - (l.ox - 2)
	dy := y - l.oy
	if dx < 0 || dy < 0 {
		return engine.Pos{}, false
	}
	p := engine.P(dy/cellHeight, dx/cellWidth)
	if p.Row >= g.cfg.Board.Rows || p.Col >= g.cfg.Board.Cols {
		return engine.Pos{}, false
	}
	return p, true
}

// Render draws the game state to the screen.
func (g *Game) Render(dst *core.Screen) {
	dst.Clear()
	if g.ctrl == nil {
		return
	}
	g.screenW, g.screenH = dst.Width(), dst.Height()

	l := g.layoutFor(dst.Width(), dst.Height())
	if !l.fits {
		g.renderTooSmall(dst)
		return
	}

	dst.DrawBox(l.box, core.ColorGray)
	g.renderTiles(dst, l)
	g.renderMarkers(dst, l)
	g.renderHUD(dst, l)
}

// renderTooSmall shows a "window too small" message.
func (g *Game) renderTooSmall(dst *core.Screen) {
	y := dst.Height() / 2
	dst.DrawTextCentered(y, "Window too small", core.ColorDefault)
	dst.DrawTextCentered(y+1, "Please resize terminal", core.ColorGray)
}

// renderTiles draws every sprite at its tweened position. Sprites still
// above the grid during a refill are clipped.
func (g *Game) renderTiles(dst *core.Screen, l layout) {
	bottom := l.oy + (g.cfg.Board.Rows-1)*cellHeight
	for _, s := range g.anim.Sprites() {
		x := l.ox + round(s.X*cellWidth)
		y := l.oy + round(s.Y*cellHeight)
		if y < l.oy || y > bottom {
			continue
		}
		dst.SetColor(x, y, glyph(s.Color), g.colorOf(s.Color))
	}
}

func (g *Game) renderMarkers(dst *core.Screen, l layout) {
	mark := func(p engine.Pos, left, right rune, c core.Color) {
		x := l.ox + p.Col*cellWidth
		y := l.oy + p.Row*cellHeight
		dst.SetColor(x-1, y, left, c)
		dst.SetColor(x+1, y, right, c)
	}

	if g.hint != nil {
		mark(g.hint.A, '*', '*', core.ColorBrightMagenta)
		mark(g.hint.B, '*', '*', core.ColorBrightMagenta)
	}
	mark(g.cursor, '[', ']', core.ColorBrightWhite)
	if sel, ok := g.ctrl.Selected(); ok {
		mark(sel, '<', '>', core.ColorBrightYellow)
	}
}

// renderHUD draws score and goal above the box and the status line below.
func (g *Game) renderHUD(dst *core.Screen, l layout) {
	st := g.State()
	top := l.frame.Y
	dst.DrawTextColor(l.frame.X, top, fmt.Sprintf("Score %d/%d", st.Score, st.Goal), core.ColorBrightWhite)
	title := g.title
	dst.DrawTextColor(l.frame.Right()-len([]rune(title)), top, title, core.ColorCyan)

	status := l.box.Bottom()
	v := g.hud.view()
	switch {
	case g.paused:
		dst.DrawTextCentered(status, "PAUSED", core.ColorBrightYellow)
	case v.message != "":
		dst.DrawTextCentered(status, v.message, core.ColorBrightYellow)
	case st.GoalReached:
		dst.DrawTextCentered(status, "★ GOAL REACHED ★", core.ColorBrightYellow)
	default:
		var line string
		if v.arrow != 0 {
			line = fmt.Sprintf("swap %c", v.arrow)
		} else if v.lastChain > 1 {
			line = fmt.Sprintf("chain x%d", v.lastChain)
		}
		if line != "" {
			dst.DrawTextCentered(status, line, core.ColorGray)
		}
	}
}

func (g *Game) colorOf(c engine.Color) core.Color {
	if c < 0 || int(c) >= len(g.palette) {
		return core.ColorDefault
	}
	return g.palette[c]
}

func glyph(c engine.Color) rune {
	if c < 0 || int(c) >= len(glyphs) {
		return '?'
	}
	return glyphs[c]
}

func round(v float32) int {
	return int(math.Round(float64(v)))
}
