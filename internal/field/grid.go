package field

import (
	"github.com/overfly42/found-gems/internal/grid"
)

// Grid is a dense per-cell float surface in row-major order.
type Grid struct {
	dims   grid.Dimensions
	values []float64
}

func NewGrid(dims grid.Dimensions) Grid {
	return Grid{dims: dims, values: make([]float64, dims.Area())}
}

func (g Grid) Dimensions() grid.Dimensions { return g.dims }

// Empty reports whether the grid has no backing cells.
func (g Grid) Empty() bool { return len(g.values) == 0 }

// At returns the value at c. Off-board reads return zero.
func (g Grid) At(c grid.Cell) float64 {
	if !g.dims.InBounds(c) {
		return 0
	}
	return g.values[g.dims.Index(c)]
}

// AddScaled accumulates weight * other into g. Both grids must share dimensions.
func (g Grid) AddScaled(other Grid, weight float64) {
	for i, v := range other.values {
		g.values[i] += weight * v
	}
}

// Rows returns a copy of the grid as rows, top row first.
func (g Grid) Rows() [][]float64 {
	rows := make([][]float64, g.dims.Height)
	for y := range rows {
		start := y * g.dims.Width
		rows[y] = append([]float64(nil), g.values[start:start+g.dims.Width]...)
	}
	return rows
}
