// Package memory holds the agent's persistent belief about the board: walls,
// floor ever seen and how long ago, unreachable cells, anchor views, gems,
// opponents and signal candidates. It is pure state; the decision algorithms
// live in the field, cycling, signal and targets packages.
package memory

import (
	"github.com/overfly42/found-gems/internal/grid"
)

// WallState is the tri-state wall knowledge of a cell.
type WallState uint8

const (
	// WallUnknown cells are assumed passable until proven otherwise.
	WallUnknown WallState = iota
	WallFree
	WallBlocked
)

// GemSighting is a gem reported by the current observation.
type GemSighting struct {
	Cell grid.Cell
	TTL  int
}

// Observation is the per-tick input to Update, already converted to cells.
type Observation struct {
	Tick      int
	Position  grid.Cell
	Walls     []grid.Cell
	Floor     []grid.Cell
	Opponents []grid.Cell
	Gems      []GemSighting
}

// UpdateReport summarises what changed during one Update.
type UpdateReport struct {
	FirstVisit   bool
	Stalled      bool
	CollectedGem bool
	NewWalls     []grid.Cell
	Reinstated   []grid.Cell
	VanishedGems []grid.Cell
	ExpiredGems  []grid.Cell
	NewGems      []grid.Cell
}

type cellSet map[grid.Cell]struct{}

// Memory is created once per game and mutated only by Update (plus the
// explicit void/age/candidate mutators the tick pipeline calls before any
// parallel reads begin).
type Memory struct {
	dims grid.Dimensions

	walls      []WallState
	unseen     cellSet
	void       cellSet
	floor      cellSet
	visible    cellSet
	lastSeen   map[grid.Cell]int
	anchors    map[grid.Cell]cellSet
	gems       map[grid.Cell]int
	opponents  cellSet
	candidates map[grid.Cell]*Evidence
	path       []grid.Cell

	tick     int
	position grid.Cell
	moved    bool
}

// New returns an empty belief for a board of the given size. Every cell starts
// unseen with unknown wall state.
func New(dims grid.Dimensions) *Memory {
	m := &Memory{
		dims:       dims,
		walls:      make([]WallState, dims.Area()),
		unseen:     make(cellSet, dims.Area()),
		void:       make(cellSet),
		floor:      make(cellSet),
		visible:    make(cellSet),
		lastSeen:   make(map[grid.Cell]int),
		anchors:    make(map[grid.Cell]cellSet),
		gems:       make(map[grid.Cell]int),
		opponents:  make(cellSet),
		candidates: make(map[grid.Cell]*Evidence),
	}
	for idx := 0; idx < dims.Area(); idx++ {
		m.unseen[dims.CellAt(idx)] = struct{}{}
	}
	return m
}

// Update folds one observation into the belief.
func (m *Memory) Update(obs Observation) UpdateReport {
	var report UpdateReport

	if m.moved && m.position == obs.Position {
		report.Stalled = true
	}
	m.tick = obs.Tick
	m.position = obs.Position
	m.moved = true
	m.path = append(m.path, obs.Position)
	if _, ok := m.gems[obs.Position]; ok {
		report.CollectedGem = true
	}

	m.applyWalls(obs.Walls, &report)
	m.applyFloor(obs.Position, obs.Floor, &report)

	clear(m.opponents)
	for _, c := range obs.Opponents {
		m.opponents[c] = struct{}{}
	}

	m.applyGems(obs.Gems, &report)
	return report
}

func (m *Memory) applyWalls(walls []grid.Cell, report *UpdateReport) {
	for _, c := range walls {
		if !m.dims.InBounds(c) {
			continue
		}
		idx := m.dims.Index(c)
		if m.walls[idx] != WallBlocked {
			report.NewWalls = append(report.NewWalls, c)
		}
		m.walls[idx] = WallBlocked
		delete(m.unseen, c)
		delete(m.gems, c)
		delete(m.floor, c)
		delete(m.lastSeen, c)
	}
}

func (m *Memory) applyFloor(position grid.Cell, floor []grid.Cell, report *UpdateReport) {
	clear(m.visible)
	for _, c := range floor {
		if m.dims.InBounds(c) {
			m.visible[c] = struct{}{}
		}
	}
	if _, known := m.anchors[position]; !known && len(m.visible) > 0 {
		frozen := make(cellSet, len(m.visible))
		for c := range m.visible {
			frozen[c] = struct{}{}
		}
		m.anchors[position] = frozen
		report.FirstVisit = true
	}
	if len(m.visible) == 0 {
		for c := range m.anchors[position] {
			m.visible[c] = struct{}{}
		}
	}

	for c := range m.visible {
		delete(m.unseen, c)
		if _, wasVoid := m.void[c]; wasVoid {
			// Reinstated cells are visible now: they rejoin age tracking as
			// floor below and are not returned to unseen.
			delete(m.void, c)
			report.Reinstated = append(report.Reinstated, c)
		}
		m.walls[m.dims.Index(c)] = WallFree
		m.floor[c] = struct{}{}
	}

	for c := range m.floor {
		if _, seen := m.visible[c]; seen {
			m.lastSeen[c] = 0
			continue
		}
		m.lastSeen[c]++
	}
	grid.SortCells(report.Reinstated)
}

func (m *Memory) applyGems(sightings []GemSighting, report *UpdateReport) {
	reported := make(cellSet, len(sightings))
	for _, g := range sightings {
		reported[g.Cell] = struct{}{}
	}
	for c := range m.gems {
		if _, seen := m.visible[c]; !seen {
			continue
		}
		if _, stillThere := reported[c]; !stillThere {
			report.VanishedGems = append(report.VanishedGems, c)
		}
		delete(m.gems, c)
	}
	for c, ttl := range m.gems {
		ttl--
		if ttl <= 0 {
			delete(m.gems, c)
			report.ExpiredGems = append(report.ExpiredGems, c)
			continue
		}
		m.gems[c] = ttl
	}
	for _, g := range sightings {
		if !m.dims.InBounds(g.Cell) || m.walls[m.dims.Index(g.Cell)] == WallBlocked {
			continue
		}
		if _, tracked := m.gems[g.Cell]; !tracked {
			report.NewGems = append(report.NewGems, g.Cell)
		}
		m.gems[g.Cell] = g.TTL
	}
	grid.SortCells(report.VanishedGems)
	grid.SortCells(report.ExpiredGems)
}

// MarkVoid records that no path from the agent reaches c. Marking twice is a no-op.
func (m *Memory) MarkVoid(c grid.Cell) bool {
	if !m.dims.InBounds(c) {
		return false
	}
	if _, exists := m.void[c]; exists {
		return false
	}
	m.void[c] = struct{}{}
	delete(m.unseen, c)
	return true
}

// ReduceStalest lowers the age of every cell tied for the largest not-seen age
// by step (never below zero) and returns the affected cells.
func (m *Memory) ReduceStalest(step int) []grid.Cell {
	if len(m.lastSeen) == 0 || step <= 0 {
		return nil
	}
	maxAge := -1
	for _, age := range m.lastSeen {
		if age > maxAge {
			maxAge = age
		}
	}
	reduce := min(step, maxAge)
	var affected []grid.Cell
	for c, age := range m.lastSeen {
		if age != maxAge {
			continue
		}
		m.lastSeen[c] = age - reduce
		affected = append(affected, c)
	}
	grid.SortCells(affected)
	return affected
}
