package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/match3-arcade/internal/core"
)

// colorCodes maps core.Color to ANSI palette indices.
var colorCodes = map[core.Color]lipgloss.Color{
	core.ColorRed:           "1",
	core.ColorGreen:         "2",
	core.ColorYellow:        "3",
	core.ColorBlue:          "4",
	core.ColorMagenta:       "5",
	core.ColorCyan:          "6",
	core.ColorWhite:         "7",
	core.ColorBrightRed:     "9",
	core.ColorBrightGreen:   "10",
	core.ColorBrightYellow:  "11",
	core.ColorBrightBlue:    "12",
	core.ColorBrightMagenta: "13",
	core.ColorBrightCyan:    "14",
	core.ColorBrightWhite:   "15",
	core.ColorOrange:        "208",
	core.ColorGray:          "245",
}

// Styles holds the cell styles of one output. SSH sessions get their own so
// colors follow the client terminal rather than the server's.
type Styles struct {
	cells map[core.Color]lipgloss.Style
	plain lipgloss.Style
	help  lipgloss.Style
}

// NewStyles builds styles for r. A nil renderer means the local terminal.
func NewStyles(r *lipgloss.Renderer) *Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	st := &Styles{
		cells: make(map[core.Color]lipgloss.Style, len(colorCodes)),
		plain: r.NewStyle(),
		help:  r.NewStyle().Foreground(lipgloss.Color("241")),
	}
	for c, code := range colorCodes {
		st.cells[c] = r.NewStyle().Foreground(code)
	}
	return st
}

func (st *Styles) cell(c core.Color) lipgloss.Style {
	if style, ok := st.cells[c]; ok {
		return style
	}
	return st.plain
}

// RenderScreen converts a Screen buffer to a styled string for display.
// Groups adjacent cells with the same color to minimize ANSI escape sequences.
func (st *Styles) RenderScreen(s *core.Screen) string {
	var sb strings.Builder
	sb.Grow(s.Width()*s.Height()*2 + s.Height())

	var run strings.Builder
	for y := range s.Height() {
		if y > 0 {
			sb.WriteRune('\n')
		}

		x := 0
		for x < s.Width() {
			color := s.GetCell(x, y).Color
			run.Reset()
			for ; x < s.Width(); x++ {
				cell := s.GetCell(x, y)
				if cell.Color != color {
					break
				}
				run.WriteRune(cell.Rune)
			}
			if color == core.ColorDefault {
				sb.WriteString(run.String())
				continue
			}
			sb.WriteString(st.cell(color).Render(run.String()))
		}
	}
	return sb.String()
}

// RenderScreen renders s with the local terminal's styles.
func RenderScreen(s *core.Screen) string {
	return defaultStyles.RenderScreen(s)
}

var defaultStyles = NewStyles(nil)
