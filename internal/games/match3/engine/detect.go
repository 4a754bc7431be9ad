package engine

// MinRun is the shortest same-color run that counts as a match.
const MinRun = 3

// Match is an ordered run of at least MinRun same-colored tiles in one row
// (left to right) or one column (top to bottom).
type Match []*Tile

// FindMatches scans the board and returns every run, rows first (top to
// bottom, each left to right) and then columns (left to right, each top to
// bottom). A tile in both a horizontal and a vertical run appears in both.
// The board is not modified.
func FindMatches(b *Board) []Match {
	var matches []Match
	scanRuns(b.rows, b.cols, b.ColorAt, func(run []Pos) {
		m := make(Match, len(run))
		for i, p := range run {
			m[i] = b.cells[b.index(p.Row, p.Col)].tile
		}
		matches = append(matches, m)
	})
	return matches
}

// scanRuns reports each maximal run of length >= MinRun. Empty cells break
// runs. The emit slice is reused between calls.
func scanRuns(rows, cols int, at func(row, col int) (Color, bool), emit func(run []Pos)) {
	run := make([]Pos, 0, max(rows, cols))
	var runColor Color

	flush := func() {
		if len(run) >= MinRun {
			emit(run)
		}
		run = run[:0]
	}
	step := func(row, col int) {
		c, ok := at(row, col)
		if !ok {
			flush()
			return
		}
		if len(run) > 0 && c != runColor {
			flush()
		}
		runColor = c
		run = append(run, Pos{Row: row, Col: col})
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			step(row, col)
		}
		flush()
	}
	for col := 0; col < cols; col++ {
		for row := 0; row < rows; row++ {
			step(row, col)
		}
		flush()
	}
}

// Swap is a pair of adjacent positions.
type Swap struct {
	A Pos
	B Pos
}

// FindMoves lists every adjacent swap that would produce at least one match,
// in row-major order of A, right neighbour before down neighbour. It works on
// a copy of the colors, so the board is left untouched.
func FindMoves(b *Board) []Swap {
	layout := b.Layout()
	at := func(row, col int) (Color, bool) {
		c := layout[row][col]
		return c, c != NoColor
	}
	hasRun := func() bool {
		found := false
		scanRuns(b.rows, b.cols, at, func([]Pos) { found = true })
		return found
	}

	var moves []Swap
	for row := 0; row < b.rows; row++ {
		for col := 0; col < b.cols; col++ {
			for _, d := range [2]Pos{{0, 1}, {1, 0}} {
				r2, c2 := row+d.Row, col+d.Col
				if r2 >= b.rows || c2 >= b.cols {
					continue
				}
				if layout[row][col] == NoColor || layout[r2][c2] == NoColor {
					continue
				}
				layout[row][col], layout[r2][c2] = layout[r2][c2], layout[row][col]
				if hasRun() {
					moves = append(moves, Swap{A: P(row, col), B: P(r2, c2)})
				}
				layout[row][col], layout[r2][c2] = layout[r2][c2], layout[row][col]
			}
		}
	}
	return moves
}

// uniqueTiles flattens matches, keeping the first occurrence of each tile.
func uniqueTiles(matches []Match) []*Tile {
	seen := make(map[*Tile]struct{})
	var out []*Tile
	for _, m := range matches {
		for _, t := range m {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
