package grid

import (
	"fmt"
	"math"
	"sort"
)

// Cell is an integer board coordinate. Cells compare and hash by value.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Add offsets the cell by dx, dy.
func (c Cell) Add(dx, dy int) Cell {
	return Cell{X: c.X + dx, Y: c.Y + dy}
}

// Manhattan returns the four-connected taxicab distance between two cells.
func Manhattan(a, b Cell) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Euclidean returns the straight-line distance between two cells.
func Euclidean(a, b Cell) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Less orders cells row-major so that map iteration can be made deterministic.
func Less(a, b Cell) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

// SortCells sorts cells in place using Less.
func SortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool {
		return Less(cells[i], cells[j])
	})
}

// Dimensions describe the fixed board size of a game.
type Dimensions struct {
	Width  int
	Height int
}

// Area is the number of cells on the board.
func (d Dimensions) Area() int {
	return d.Width * d.Height
}

func (d Dimensions) InBounds(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < d.Width && c.Y < d.Height
}

// Index maps an in-bounds cell to its row-major offset in a flat slice.
func (d Dimensions) Index(c Cell) int {
	return c.Y*d.Width + c.X
}

// CellAt is the inverse of Index.
func (d Dimensions) CellAt(idx int) Cell {
	return Cell{X: idx % d.Width, Y: idx / d.Width}
}

// Clamp pulls a cell back onto the board.
func (d Dimensions) Clamp(c Cell) Cell {
	return Cell{X: clampInt(c.X, 0, d.Width-1), Y: clampInt(c.Y, 0, d.Height-1)}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
