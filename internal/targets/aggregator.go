// Package targets gathers the weighted attractors and repellers that drive the
// agent's field each tick.
package targets

import (
	"sort"

	"github.com/overfly42/found-gems/internal/field"
	"github.com/overfly42/found-gems/internal/grid"
	"github.com/overfly42/found-gems/internal/memory"
)

// Kind identifies where a target came from.
type Kind uint8

const (
	KindGem Kind = iota
	KindOpponent
	KindCandidate
	KindExplore
	KindPatrol
)

func (k Kind) String() string {
	switch k {
	case KindGem:
		return "gem"
	case KindOpponent:
		return "opponent"
	case KindCandidate:
		return "candidate"
	case KindExplore:
		return "explore"
	case KindPatrol:
		return "patrol"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Target is one weighted cell.
type Target struct {
	Cell   grid.Cell `json:"cell"`
	Weight float64   `json:"weight"`
	Kind   Kind      `json:"kind"`
}

// Settings hold the weights and counts used by Collect.
type Settings struct {
	OpponentPenalty    float64
	SignalReward       float64
	ExplorationWeight  float64
	ExplorationCount   int
	PatrolCount        int
	StalenessThreshold int
}

func DefaultSettings() Settings {
	return Settings{
		OpponentPenalty:    0.01,
		SignalReward:       10,
		ExplorationWeight:  100,
		ExplorationCount:   20,
		PatrolCount:        7,
		StalenessThreshold: 100,
	}
}

// Aggregator collects targets from memory.
type Aggregator struct {
	settings Settings
	builder  *field.Builder
}

// NewAggregator returns an aggregator. The builder must read the same memory
// later passed to Collect.
func NewAggregator(settings Settings, builder *field.Builder) *Aggregator {
	return &Aggregator{settings: settings, builder: builder}
}

// Collect returns this tick's targets in precedence order: gems, opponents,
// signal candidates, exploration, patrol. Targets on void cells are skipped.
func (a *Aggregator) Collect(mem *memory.Memory, cycling bool, stop int) []Target {
	var out []Target
	add := func(c grid.Cell, weight float64, kind Kind) {
		if mem.IsVoid(c) {
			return
		}
		out = append(out, Target{Cell: c, Weight: weight, Kind: kind})
	}

	gems := mem.Gems()
	for _, c := range mem.GemCells() {
		add(c, float64(gems[c]), KindGem)
	}
	penalty := a.settings.OpponentPenalty
	if penalty > 0 {
		penalty = -penalty
	}
	for _, c := range mem.Opponents() {
		add(c, penalty, KindOpponent)
	}
	for _, c := range mem.CandidateCells() {
		add(c, a.settings.SignalReward, KindCandidate)
	}
	if len(gems) == 0 && mem.UnseenCount() > 0 && !cycling {
		for _, c := range a.exploration(mem) {
			add(c, a.settings.ExplorationWeight, KindExplore)
		}
	}
	ages := mem.Ages()
	for _, c := range a.patrol(mem, stop) {
		weight := 1
		if age, ok := ages[c]; ok && age > weight {
			weight = age
		}
		add(c, float64(weight), KindPatrol)
	}
	return out
}

// exploration returns the unseen cells nearest the agent by Manhattan distance.
func (a *Aggregator) exploration(mem *memory.Memory) []grid.Cell {
	pos := mem.Position()
	unseen := mem.UnseenCells()
	sort.SliceStable(unseen, func(i, j int) bool {
		return grid.Manhattan(unseen[i], pos) < grid.Manhattan(unseen[j], pos)
	})
	if len(unseen) > a.settings.ExplorationCount {
		unseen = unseen[:a.settings.ExplorationCount]
	}
	return unseen
}

// patrol picks the anchor positions that re-observe the longest-unseen cells.
func (a *Aggregator) patrol(mem *memory.Memory, stop int) []grid.Cell {
	ages := mem.Ages()
	if len(ages) == 0 {
		return []grid.Cell{mem.Position()}
	}

	values := make([]int, 0, len(ages))
	for _, age := range ages {
		values = append(values, age)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))
	if len(values) > a.settings.PatrolCount {
		values = values[:a.settings.PatrolCount]
	}
	topAges := make(map[int]struct{}, len(values))
	for _, v := range values {
		topAges[v] = struct{}{}
	}
	maxAge := values[0]

	relevant := make(map[grid.Cell]struct{})
	var stalest []grid.Cell
	for c, age := range ages {
		if _, ok := topAges[age]; ok {
			relevant[c] = struct{}{}
		}
		if age == maxAge {
			stalest = append(stalest, c)
		}
	}
	grid.SortCells(stalest)
	oldest := stalest[0]

	var selected []grid.Cell
	best := 0
	for _, anchor := range mem.AnchorPositions() {
		n := mem.AnchorCoverage(anchor, relevant)
		switch {
		case n == 0 || n < best:
			continue
		case n > best:
			best = n
			selected = selected[:0]
		}
		selected = append(selected, anchor)
	}
	if len(selected) == 0 {
		return []grid.Cell{oldest}
	}

	if maxAge <= a.settings.StalenessThreshold {
		return selected
	}
	for _, anchor := range selected {
		if mem.AnchorSees(anchor, oldest) {
			return selected
		}
	}
	if closest, ok := a.closestAnchor(mem, oldest, stop); ok {
		selected = append(selected, closest)
	}
	return selected
}

// closestAnchor finds the anchor seeing c with the shortest path from the agent.
func (a *Aggregator) closestAnchor(mem *memory.Memory, c grid.Cell, stop int) (grid.Cell, bool) {
	hops := a.builder.Distances(mem.Position(), stop).Linear(1)
	var (
		closest grid.Cell
		bestHop float64
		found   bool
	)
	for _, anchor := range mem.AnchorPositions() {
		if !mem.AnchorSees(anchor, c) {
			continue
		}
		h := hops.At(anchor)
		if !found || h < bestHop {
			closest, bestHop, found = anchor, h, true
		}
	}
	return closest, found
}
