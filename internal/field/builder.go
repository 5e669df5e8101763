// Package field builds wall-aware distance fields over the agent's belief and
// composes weighted, decayed fields into the value the move selector reads.
package field

import (
	"math"

	"github.com/overfly42/found-gems/internal/grid"
)

// Walls is the read-only wall knowledge a flood fill needs. Unknown cells must
// report false from Blocked so unexplored territory stays passable.
type Walls interface {
	Dimensions() grid.Dimensions
	Blocked(c grid.Cell) bool
}

// Builder runs breadth-first flood fills against a Walls view. It holds no
// mutable state and is safe for concurrent use while the walls are not written.
type Builder struct {
	walls Walls
	dims  grid.Dimensions
}

func NewBuilder(walls Walls) *Builder {
	return &Builder{walls: walls, dims: walls.Dimensions()}
}

// Distances is the hop count from one source to every cell on the board.
type Distances struct {
	Source grid.Cell
	// EarlyStopped is set when the fill refused to expand past the stop
	// distance while passable cells were still waiting behind the frontier.
	EarlyStopped bool

	dims grid.Dimensions
	dist []int
}

// Distances floods from source. A stop of zero or less means unbounded. A
// source on a wall or off the board reaches nothing.
func (b *Builder) Distances(source grid.Cell, stop int) Distances {
	area := b.dims.Area()
	out := Distances{Source: source, dims: b.dims, dist: make([]int, area)}
	unreached := area
	for i := range out.dist {
		out.dist[i] = unreached
	}
	if !b.dims.InBounds(source) || b.walls.Blocked(source) {
		return out
	}

	queue := make([]int, 0, area)
	start := b.dims.Index(source)
	out.dist[start] = 0
	queue = append(queue, start)

	for head := 0; head < len(queue); head++ {
		idx := queue[head]
		cell := b.dims.CellAt(idx)
		d := out.dist[idx]
		for _, next := range grid.Neighbors(cell) {
			if !b.dims.InBounds(next) || b.walls.Blocked(next) {
				continue
			}
			nidx := b.dims.Index(next)
			if out.dist[nidx] <= d+1 {
				continue
			}
			if stop > 0 && d >= stop {
				out.EarlyStopped = true
				continue
			}
			out.dist[nidx] = d + 1
			queue = append(queue, nidx)
		}
	}
	return out
}

// Unreached is the sentinel distance of cells the fill never touched.
func (d Distances) Unreached() int {
	return d.dims.Area()
}

// At returns the hop count to c, or the sentinel when c was not reached or is
// off the board.
func (d Distances) At(c grid.Cell) int {
	if !d.dims.InBounds(c) {
		return d.Unreached()
	}
	return d.dist[d.dims.Index(c)]
}

func (d Distances) Reached(c grid.Cell) bool {
	return d.At(c) < d.Unreached()
}

// Decayed converts the distances into value * decay^distance.
func (d Distances) Decayed(value, decay float64) Grid {
	out := NewGrid(d.dims)
	powers := make(map[int]float64)
	for i, dist := range d.dist {
		p, ok := powers[dist]
		if !ok {
			p = math.Pow(decay, float64(dist))
			powers[dist] = p
		}
		out.values[i] = value * p
	}
	return out
}

// Linear converts the distances into value * distance. It is meant for
// auxiliary distance queries and is never used for scoring.
func (d Distances) Linear(value float64) Grid {
	out := NewGrid(d.dims)
	for i, dist := range d.dist {
		out.values[i] = value * float64(dist)
	}
	return out
}
