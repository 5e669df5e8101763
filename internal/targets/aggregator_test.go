package targets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overfly42/found-gems/internal/field"
	"github.com/overfly42/found-gems/internal/grid"
	"github.com/overfly42/found-gems/internal/memory"
)

func newAggregator(mem *memory.Memory) *Aggregator {
	return NewAggregator(DefaultSettings(), field.NewBuilder(mem))
}

func ofKind(targets []Target, kind Kind) []Target {
	var out []Target
	for _, t := range targets {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

func TestCollectPrecedenceAndWeights(t *testing.T) {
	mem := memory.New(grid.Dimensions{Width: 8, Height: 8})
	pos := grid.Cell{X: 1, Y: 1}
	mem.Update(memory.Observation{
		Tick:      1,
		Position:  pos,
		Floor:     []grid.Cell{pos, {X: 2, Y: 1}},
		Opponents: []grid.Cell{{X: 2, Y: 1}},
		Gems:      []memory.GemSighting{{Cell: grid.Cell{X: 6, Y: 6}, TTL: 42}},
	})
	mem.AddEvidence(grid.Cell{X: 4, Y: 4}, 0.2, 1)

	got := newAggregator(mem).Collect(mem, false, 4000)
	require.GreaterOrEqual(t, len(got), 4)
	assert.Equal(t, Target{Cell: grid.Cell{X: 6, Y: 6}, Weight: 42, Kind: KindGem}, got[0])
	assert.Equal(t, Target{Cell: grid.Cell{X: 2, Y: 1}, Weight: -0.01, Kind: KindOpponent}, got[1])
	assert.Equal(t, Target{Cell: grid.Cell{X: 4, Y: 4}, Weight: 10, Kind: KindCandidate}, got[2])
	assert.Empty(t, ofKind(got, KindExplore), "a tracked gem suppresses exploration")
	assert.Equal(t, KindPatrol, got[len(got)-1].Kind)
}

func TestCollectExplorationNearestUnseen(t *testing.T) {
	mem := memory.New(grid.Dimensions{Width: 10, Height: 10})
	pos := grid.Cell{X: 0, Y: 0}
	mem.Update(memory.Observation{Tick: 1, Position: pos, Floor: []grid.Cell{pos}})

	got := ofKind(newAggregator(mem).Collect(mem, false, 4000), KindExplore)
	require.Len(t, got, 20)
	assert.Equal(t, grid.Cell{X: 1, Y: 0}, got[0].Cell)
	assert.Equal(t, grid.Cell{X: 0, Y: 1}, got[1].Cell)
	for _, target := range got {
		assert.Equal(t, 100.0, target.Weight)
		assert.LessOrEqual(t, grid.Manhattan(pos, target.Cell), 5)
	}
}

func TestCollectNoExplorationWhileCycling(t *testing.T) {
	mem := memory.New(grid.Dimensions{Width: 10, Height: 10})
	mem.Update(memory.Observation{Tick: 1, Position: grid.Cell{}, Floor: []grid.Cell{{}}})
	got := newAggregator(mem).Collect(mem, true, 4000)
	assert.Empty(t, ofKind(got, KindExplore))
	assert.NotEmpty(t, ofKind(got, KindPatrol))
}

func TestCollectSkipsVoidTargets(t *testing.T) {
	mem := memory.New(grid.Dimensions{Width: 4, Height: 4})
	mem.Update(memory.Observation{
		Tick: 1, Position: grid.Cell{}, Floor: []grid.Cell{{}},
		Gems: []memory.GemSighting{{Cell: grid.Cell{X: 3, Y: 3}, TTL: 9}},
	})
	mem.MarkVoid(grid.Cell{X: 3, Y: 3})
	got := newAggregator(mem).Collect(mem, false, 4000)
	assert.Empty(t, ofKind(got, KindGem))
}

func TestPatrolAppendsClosestAnchorForStaleCell(t *testing.T) {
	mem := memory.New(grid.Dimensions{Width: 12, Height: 1})
	mem.Update(memory.Observation{Tick: 1, Position: grid.Cell{X: 0, Y: 0}, Floor: []grid.Cell{{X: 0, Y: 0}}})
	far := grid.Cell{X: 11, Y: 0}
	view := []grid.Cell{{X: 9, Y: 0}, {X: 10, Y: 0}, far}
	for tick := 2; tick <= 103; tick++ {
		mem.Update(memory.Observation{Tick: tick, Position: far, Floor: view})
	}

	got := newAggregator(mem).Collect(mem, true, 4000)
	assert.Equal(t, []Target{
		{Cell: far, Weight: 1, Kind: KindPatrol},
		{Cell: grid.Cell{X: 0, Y: 0}, Weight: 102, Kind: KindPatrol},
	}, got)
}

func TestPatrolWithoutStalenessKeepsBestAnchors(t *testing.T) {
	mem := memory.New(grid.Dimensions{Width: 12, Height: 1})
	mem.Update(memory.Observation{Tick: 1, Position: grid.Cell{X: 0, Y: 0}, Floor: []grid.Cell{{X: 0, Y: 0}}})
	far := grid.Cell{X: 11, Y: 0}
	for tick := 2; tick <= 10; tick++ {
		mem.Update(memory.Observation{Tick: tick, Position: far, Floor: []grid.Cell{{X: 10, Y: 0}, far}})
	}
	got := ofKind(newAggregator(mem).Collect(mem, true, 4000), KindPatrol)
	assert.Equal(t, []Target{{Cell: far, Weight: 1, Kind: KindPatrol}}, got)
}

func TestPatrolFallsBackToStalestCell(t *testing.T) {
	mem := memory.New(grid.Dimensions{Width: 10, Height: 1})
	home := grid.Cell{X: 0, Y: 0}
	mem.Update(memory.Observation{Tick: 1, Position: home, Floor: []grid.Cell{home}})
	for tick := 2; tick <= 9; tick++ {
		mem.Update(memory.Observation{Tick: tick, Position: home, Floor: []grid.Cell{home, {X: tick - 1, Y: 0}}})
	}
	got := ofKind(newAggregator(mem).Collect(mem, true, 4000), KindPatrol)
	assert.Equal(t, []Target{{Cell: grid.Cell{X: 1, Y: 0}, Weight: 7, Kind: KindPatrol}}, got)
}

func TestPatrolWithoutFloorTargetsOwnCell(t *testing.T) {
	mem := memory.New(grid.Dimensions{Width: 3, Height: 3})
	mem.Update(memory.Observation{Tick: 1, Position: grid.Cell{X: 1, Y: 1}})
	got := ofKind(newAggregator(mem).Collect(mem, true, 4000), KindPatrol)
	assert.Equal(t, []Target{{Cell: grid.Cell{X: 1, Y: 1}, Weight: 1, Kind: KindPatrol}}, got)
}
