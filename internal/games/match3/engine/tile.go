package engine

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	// ErrEmptyPalette is returned when a color source has no colors to draw from.
	ErrEmptyPalette = errors.New("engine: palette must have at least one color")

	// ErrPaletteTooSmall is returned when a board that can hold a run of
	// three draws from a single color. Every refill would match again.
	ErrPaletteTooSmall = errors.New("engine: palette needs at least two colors for this board")
)

// Color is an index into the configured palette.
type Color int

// NoColor marks an empty cell in Layout output.
const NoColor Color = -1

// TileID identifies a tile for its whole lifetime. IDs are never reused
// within a board.
type TileID uint64

const detached = -1

// Tile is a colored game piece. Its color is fixed at creation.
type Tile struct {
	id     TileID
	color  Color
	cell   int
	visual Visual
}

// ID returns the tile's identity.
func (t *Tile) ID() TileID { return t.id }

// Color returns the tile's palette index.
func (t *Tile) Color() Color { return t.color }

// Attached reports whether the tile still occupies a cell.
func (t *Tile) Attached() bool { return t.cell != detached }

func (t *Tile) String() string {
	if t == nil {
		return "<nil tile>"
	}
	return fmt.Sprintf("tile#%d(c%d)", t.id, t.color)
}

// ColorSource yields tile colors. Tests inject deterministic sequences.
type ColorSource interface {
	Next() Color
}

// Palette is implemented by color sources that know how many distinct colors
// they draw from. Scripted sources need not implement it.
type Palette interface {
	Colors() int
}

// RandSource draws colors uniformly from [0, n) using a seeded RNG.
type RandSource struct {
	rng *rand.Rand
	n   int
}

// NewRandSource returns a source over n colors seeded with seed.
func NewRandSource(n int, seed int64) (*RandSource, error) {
	if n < 1 {
		return nil, ErrEmptyPalette
	}
	return &RandSource{rng: rand.New(rand.NewSource(seed)), n: n}, nil
}

// Next returns the next random color.
func (s *RandSource) Next() Color {
	return Color(s.rng.Intn(s.n))
}

// Colors returns the palette size.
func (s *RandSource) Colors() int { return s.n }

// SequenceSource replays a fixed list of colors, wrapping around.
type SequenceSource struct {
	colors []Color
	i      int
}

// NewSequenceSource returns a source cycling through colors.
func NewSequenceSource(colors ...Color) *SequenceSource {
	return &SequenceSource{colors: colors}
}

// Next returns the next color in the sequence.
func (s *SequenceSource) Next() Color {
	if len(s.colors) == 0 {
		return 0
	}
	c := s.colors[s.i%len(s.colors)]
	s.i++
	return c
}
