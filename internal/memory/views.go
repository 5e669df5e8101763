package memory

import (
	"github.com/overfly42/found-gems/internal/grid"
)

func (m *Memory) Dimensions() grid.Dimensions { return m.dims }

func (m *Memory) Tick() int { return m.tick }

func (m *Memory) Position() grid.Cell { return m.position }

// Wall returns the wall knowledge for c. Off-board cells read as blocked.
func (m *Memory) Wall(c grid.Cell) WallState {
	if !m.dims.InBounds(c) {
		return WallBlocked
	}
	return m.walls[m.dims.Index(c)]
}

// Blocked reports whether c is a known wall or off the board.
func (m *Memory) Blocked(c grid.Cell) bool {
	return m.Wall(c) == WallBlocked
}

func (m *Memory) IsUnseen(c grid.Cell) bool {
	_, ok := m.unseen[c]
	return ok
}

func (m *Memory) UnseenCount() int { return len(m.unseen) }

// UnseenCells returns the never-seen cells in row-major order.
func (m *Memory) UnseenCells() []grid.Cell {
	return sortedCells(m.unseen)
}

func (m *Memory) IsVoid(c grid.Cell) bool {
	_, ok := m.void[c]
	return ok
}

func (m *Memory) VoidCells() []grid.Cell {
	return sortedCells(m.void)
}

// Visible reports whether c is inside the visibility set of the current tick.
func (m *Memory) Visible(c grid.Cell) bool {
	_, ok := m.visible[c]
	return ok
}

// Age returns how many ticks ago c was last visible.
func (m *Memory) Age(c grid.Cell) (int, bool) {
	age, ok := m.lastSeen[c]
	return age, ok
}

// Ages returns a copy of the not-seen age of every floor cell ever observed.
func (m *Memory) Ages() map[grid.Cell]int {
	out := make(map[grid.Cell]int, len(m.lastSeen))
	for c, age := range m.lastSeen {
		out[c] = age
	}
	return out
}

// AnchorPositions lists every position with a frozen view, row-major.
func (m *Memory) AnchorPositions() []grid.Cell {
	out := make([]grid.Cell, 0, len(m.anchors))
	for c := range m.anchors {
		out = append(out, c)
	}
	grid.SortCells(out)
	return out
}

// AnchorView returns the cells visible from pos on its first occupation.
func (m *Memory) AnchorView(pos grid.Cell) ([]grid.Cell, bool) {
	view, ok := m.anchors[pos]
	if !ok {
		return nil, false
	}
	return sortedCells(view), true
}

// AnchorSees reports whether the frozen view of pos contains c.
func (m *Memory) AnchorSees(pos, c grid.Cell) bool {
	view, ok := m.anchors[pos]
	if !ok {
		return false
	}
	_, seen := view[c]
	return seen
}

// AnchorCoverage counts how many of cells appear in the frozen view of pos.
func (m *Memory) AnchorCoverage(pos grid.Cell, cells map[grid.Cell]struct{}) int {
	view, ok := m.anchors[pos]
	if !ok {
		return 0
	}
	count := 0
	if len(view) < len(cells) {
		for c := range view {
			if _, ok := cells[c]; ok {
				count++
			}
		}
		return count
	}
	for c := range cells {
		if _, ok := view[c]; ok {
			count++
		}
	}
	return count
}

// Gems returns a copy of the tracked gems and their remaining TTL.
func (m *Memory) Gems() map[grid.Cell]int {
	out := make(map[grid.Cell]int, len(m.gems))
	for c, ttl := range m.gems {
		out[c] = ttl
	}
	return out
}

func (m *Memory) GemTTL(c grid.Cell) (int, bool) {
	ttl, ok := m.gems[c]
	return ttl, ok
}

func (m *Memory) GemCount() int { return len(m.gems) }

// GemCells returns tracked gem cells row-major.
func (m *Memory) GemCells() []grid.Cell {
	out := make([]grid.Cell, 0, len(m.gems))
	for c := range m.gems {
		out = append(out, c)
	}
	grid.SortCells(out)
	return out
}

func (m *Memory) IsOpponent(c grid.Cell) bool {
	_, ok := m.opponents[c]
	return ok
}

func (m *Memory) Opponents() []grid.Cell {
	return sortedCells(m.opponents)
}

// PathHistory returns the visited positions, oldest first. Callers must not
// modify the returned slice.
func (m *Memory) PathHistory() []grid.Cell {
	return m.path
}

func sortedCells(set cellSet) []grid.Cell {
	out := make([]grid.Cell, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	grid.SortCells(out)
	return out
}
