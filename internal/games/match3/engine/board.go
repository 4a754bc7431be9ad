// Package engine implements the match-3 core: the cell/tile grid, match
// detection, and the swap/cascade state machine. It has no terminal, storage
// or timing dependencies; presentation is reached only through Animator and
// Listener.
package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGridSize is returned when a board is created with rows or cols < 1.
	ErrInvalidGridSize = errors.New("engine: rows and cols must be at least 1")

	// ErrRaggedLayout is returned by NewBoardFromColors for non-rectangular input.
	ErrRaggedLayout = errors.New("engine: color layout rows differ in length")
)

// Pos addresses a cell by row and column. Row 0 is the top of the board.
type Pos struct {
	Row int
	Col int
}

// P is shorthand for Pos{Row: row, Col: col}.
func P(row, col int) Pos {
	return Pos{Row: row, Col: col}
}

// Adjacent reports whether q is exactly one orthogonal step from p.
func (p Pos) Adjacent(q Pos) bool {
	return abs(p.Row-q.Row)+abs(p.Col-q.Col) == 1
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Cell is a fixed grid slot. It exclusively owns the tile occupying it.
type Cell struct {
	pos  Pos
	tile *Tile
}

// Pos returns the cell's coordinate.
func (c *Cell) Pos() Pos { return c.pos }

// Tile returns the occupying tile, or nil when the cell is empty.
func (c *Cell) Tile() *Tile { return c.tile }

// Empty reports whether the cell has no tile.
func (c *Cell) Empty() bool { return c.tile == nil }

// Board owns the cell arena and the mechanics of swap, fall and refill.
// It knows nothing about matching rules or scoring.
//
// Cells are stored row-major: index = row*cols + col. A tile refers back to
// its cell by index, never by pointer.
type Board struct {
	rows   int
	cols   int
	cells  []Cell
	colors ColorSource
	nextID TileID
}

// NewBoard allocates rows*cols empty cells in row-major order.
// Boards smaller than 3 in both dimensions are allowed but can never match.
func NewBoard(rows, cols int, colors ColorSource) (*Board, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidGridSize, rows, cols)
	}
	if colors == nil {
		return nil, ErrEmptyPalette
	}
	b := &Board{
		rows:   rows,
		cols:   cols,
		cells:  make([]Cell, rows*cols),
		colors: colors,
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			b.cells[row*cols+col].pos = Pos{Row: row, Col: col}
		}
	}
	return b, nil
}

// NewBoardFromColors builds a fully populated board from an explicit layout.
// Subsequent refills draw from colors.
func NewBoardFromColors(layout [][]Color, colors ColorSource) (*Board, error) {
	if len(layout) == 0 {
		return nil, fmt.Errorf("%w: got 0 rows", ErrInvalidGridSize)
	}
	b, err := NewBoard(len(layout), len(layout[0]), colors)
	if err != nil {
		return nil, err
	}
	for row, line := range layout {
		if len(line) != b.cols {
			return nil, fmt.Errorf("%w: row %d has %d, want %d", ErrRaggedLayout, row, len(line), b.cols)
		}
		for col, color := range line {
			b.place(&b.cells[row*b.cols+col], color)
		}
	}
	return b, nil
}

// Rows returns the number of rows.
func (b *Board) Rows() int { return b.rows }

// Cols returns the number of columns.
func (b *Board) Cols() int { return b.cols }

func (b *Board) index(row, col int) int {
	return row*b.cols + col
}

// Lookup returns the cell at (row, col). The bool is false when the
// coordinate is outside the grid; callers treat that as "no tile there".
func (b *Board) Lookup(row, col int) (*Cell, bool) {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols {
		return nil, false
	}
	return &b.cells[b.index(row, col)], true
}

// At is Lookup by Pos.
func (b *Board) At(p Pos) (*Cell, bool) {
	return b.Lookup(p.Row, p.Col)
}

// TileAt returns the tile at p, or nil for empty or out-of-bounds cells.
func (b *Board) TileAt(p Pos) *Tile {
	c, ok := b.At(p)
	if !ok {
		return nil
	}
	return c.tile
}

// CellOf resolves a live tile to its cell. A tile that cannot be resolved is
// a broken invariant, not a runtime condition, so CellOf panics.
func (b *Board) CellOf(t *Tile) *Cell {
	if t == nil || t.cell < 0 || t.cell >= len(b.cells) {
		panic(fmt.Sprintf("engine: tile %v is not on the board", t))
	}
	c := &b.cells[t.cell]
	if c.tile != t {
		panic(fmt.Sprintf("engine: tile %v points at %v which holds %v", t, c.pos, c.tile))
	}
	return c
}

// PosOf returns the position of a live tile. Panics like CellOf.
func (b *Board) PosOf(t *Tile) Pos {
	return b.CellOf(t).pos
}

// CreateTile generates a tile with a color drawn from the board's color
// source and assigns it to the given empty cell.
func (b *Board) CreateTile(c *Cell) *Tile {
	return b.place(c, b.colors.Next())
}

func (b *Board) place(c *Cell, color Color) *Tile {
	if c.tile != nil {
		panic(fmt.Sprintf("engine: cell %v already holds %v", c.pos, c.tile))
	}
	b.nextID++
	t := &Tile{id: b.nextID, color: color}
	b.attach(c, t)
	return t
}

func (b *Board) attach(c *Cell, t *Tile) {
	c.tile = t
	t.cell = b.index(c.pos.Row, c.pos.Col)
}

// Fill creates a tile in every empty cell, row-major. It is used for the
// initial board and is the same operation as RefillEmpties.
func (b *Board) Fill() []*Tile {
	return b.RefillEmpties()
}

// SwapCells exchanges the cell assignments of two live tiles. It does not
// touch anything visual.
func (b *Board) SwapCells(t1, t2 *Tile) {
	c1, c2 := b.CellOf(t1), b.CellOf(t2)
	b.attach(c1, t2)
	b.attach(c2, t1)
}

// Remove detaches a live tile from its cell, leaving the cell empty.
// A removed tile has no cell and must not be used again.
func (b *Board) Remove(t *Tile) {
	c := b.CellOf(t)
	c.tile = nil
	t.cell = detached
}

// Fall records a tile relocated by CompactColumn.
type Fall struct {
	Tile *Tile
	From Pos
	To   Pos
}

// CompactColumn applies gravity to one column. Scanning from the bottom,
// each empty cell pulls down the nearest tile above it. Tiles never skip
// over other tiles, so their relative vertical order is preserved.
func (b *Board) CompactColumn(col int) []Fall {
	if col < 0 || col >= b.cols {
		return nil
	}
	var falls []Fall
	for row := b.rows - 1; row >= 0; row-- {
		dst := &b.cells[b.index(row, col)]
		if dst.tile != nil {
			continue
		}
		for above := row - 1; above >= 0; above-- {
			src := &b.cells[b.index(above, col)]
			if src.tile == nil {
				continue
			}
			t := src.tile
			src.tile = nil
			b.attach(dst, t)
			falls = append(falls, Fall{Tile: t, From: src.pos, To: dst.pos})
			break
		}
	}
	return falls
}

// ColumnHasGap reports whether the column has at least one empty cell.
func (b *Board) ColumnHasGap(col int) bool {
	for row := 0; row < b.rows; row++ {
		if b.cells[b.index(row, col)].tile == nil {
			return true
		}
	}
	return false
}

// RefillEmpties creates a fresh tile in every empty cell, row-major.
func (b *Board) RefillEmpties() []*Tile {
	var created []*Tile
	for i := range b.cells {
		if b.cells[i].tile == nil {
			created = append(created, b.CreateTile(&b.cells[i]))
		}
	}
	return created
}

// Tiles returns all live tiles in row-major order.
func (b *Board) Tiles() []*Tile {
	tiles := make([]*Tile, 0, len(b.cells))
	for i := range b.cells {
		if t := b.cells[i].tile; t != nil {
			tiles = append(tiles, t)
		}
	}
	return tiles
}

// ColorAt returns the color at (row, col). The bool is false for empty or
// out-of-bounds cells.
func (b *Board) ColorAt(row, col int) (Color, bool) {
	c, ok := b.Lookup(row, col)
	if !ok || c.tile == nil {
		return 0, false
	}
	return c.tile.color, true
}

// Layout returns a copy of the board colors. Empty cells hold NoColor.
func (b *Board) Layout() [][]Color {
	out := make([][]Color, b.rows)
	for row := range out {
		out[row] = make([]Color, b.cols)
		for col := range out[row] {
			if c, ok := b.ColorAt(row, col); ok {
				out[row][col] = c
			} else {
				out[row][col] = NoColor
			}
		}
	}
	return out
}

// Check verifies the cell/tile back-reference invariant: every occupied
// cell's tile points back at that cell, and no tile is held twice.
func (b *Board) Check() error {
	seen := make(map[*Tile]Pos, len(b.cells))
	for i := range b.cells {
		c := &b.cells[i]
		if c.tile == nil {
			continue
		}
		if prev, dup := seen[c.tile]; dup {
			return fmt.Errorf("engine: tile %v held by %v and %v", c.tile, prev, c.pos)
		}
		seen[c.tile] = c.pos
		if c.tile.cell != i {
			return fmt.Errorf("engine: tile %v at %v points at cell index %d", c.tile, c.pos, c.tile.cell)
		}
	}
	return nil
}
