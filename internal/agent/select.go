package agent

import (
	"github.com/overfly42/found-gems/internal/grid"
)

// Occupancy is what move selection needs to know about the neighbourhood.
type Occupancy interface {
	Dimensions() grid.Dimensions
	Blocked(c grid.Cell) bool
	IsOpponent(c grid.Cell) bool
}

// Eligible reports, in grid.Directions order, which neighbours of origin the
// agent may step onto: on the board, not a known wall, not an opponent.
func Eligible(origin grid.Cell, occ Occupancy) [4]bool {
	var out [4]bool
	dims := occ.Dimensions()
	for i, n := range grid.Neighbors(origin) {
		out[i] = dims.InBounds(n) && !occ.Blocked(n) && !occ.IsOpponent(n)
	}
	return out
}

// SelectMove returns the eligible direction with the strictly greatest value.
// Ties go to the earliest entry of grid.Directions (W, E, N, S). With no
// eligible neighbour the result is grid.Wait.
func SelectMove(origin grid.Cell, values [4]float64, occ Occupancy) grid.Move {
	eligible := Eligible(origin, occ)
	best := grid.Wait
	var bestValue float64
	for i, move := range grid.Directions {
		if !eligible[i] {
			continue
		}
		if best == grid.Wait || values[i] > bestValue {
			best = move
			bestValue = values[i]
		}
	}
	return best
}

func anyEligible(eligible [4]bool) bool {
	for _, ok := range eligible {
		if ok {
			return true
		}
	}
	return false
}
