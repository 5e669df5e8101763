package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overfly42/found-gems/internal/grid"
)

func cells(pairs ...int) []grid.Cell {
	out := make([]grid.Cell, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, grid.Cell{X: pairs[i], Y: pairs[i+1]})
	}
	return out
}

func TestNewMemoryStartsUnseenAndUnknown(t *testing.T) {
	m := New(grid.Dimensions{Width: 4, Height: 3})
	assert.Equal(t, 12, m.UnseenCount())
	assert.Equal(t, WallUnknown, m.Wall(grid.Cell{X: 1, Y: 1}))
	assert.True(t, m.Blocked(grid.Cell{X: -1, Y: 0}), "off-board cells read as blocked")
}

func TestUpdateWallsClearUnseenAndGems(t *testing.T) {
	m := New(grid.Dimensions{Width: 5, Height: 5})
	m.Update(Observation{
		Tick:     1,
		Position: grid.Cell{X: 0, Y: 0},
		Floor:    cells(0, 0),
		Gems:     []GemSighting{{Cell: grid.Cell{X: 3, Y: 3}, TTL: 10}},
	})
	require.Equal(t, 1, m.GemCount())

	report := m.Update(Observation{
		Tick:     2,
		Position: grid.Cell{X: 0, Y: 0},
		Walls:    cells(3, 3),
		Floor:    cells(0, 0),
	})
	assert.Equal(t, cells(3, 3), report.NewWalls)
	assert.True(t, m.Blocked(grid.Cell{X: 3, Y: 3}))
	assert.False(t, m.IsUnseen(grid.Cell{X: 3, Y: 3}))
	assert.Equal(t, 0, m.GemCount(), "a gem cannot occupy a wall")

	again := m.Update(Observation{Tick: 3, Position: grid.Cell{X: 0, Y: 0}, Walls: cells(3, 3), Floor: cells(0, 0)})
	assert.Empty(t, again.NewWalls)
}

func TestAnchorViewFrozenOnFirstVisit(t *testing.T) {
	m := New(grid.Dimensions{Width: 6, Height: 6})
	pos := grid.Cell{X: 2, Y: 2}
	first := m.Update(Observation{Tick: 1, Position: pos, Floor: cells(2, 2, 2, 3)})
	assert.True(t, first.FirstVisit)

	m.Update(Observation{Tick: 2, Position: grid.Cell{X: 2, Y: 3}, Floor: cells(2, 3, 2, 4)})
	second := m.Update(Observation{Tick: 3, Position: pos, Floor: cells(2, 2, 2, 3, 1, 2)})
	assert.False(t, second.FirstVisit)

	view, ok := m.AnchorView(pos)
	require.True(t, ok)
	assert.Equal(t, cells(2, 2, 2, 3), view)
	assert.False(t, m.AnchorSees(pos, grid.Cell{X: 1, Y: 2}))
	assert.Equal(t, []grid.Cell{{X: 2, Y: 2}, {X: 2, Y: 3}}, m.AnchorPositions())
}

func TestLastSeenAges(t *testing.T) {
	m := New(grid.Dimensions{Width: 6, Height: 1})
	m.Update(Observation{Tick: 1, Position: grid.Cell{X: 0, Y: 0}, Floor: cells(0, 0, 1, 0)})
	m.Update(Observation{Tick: 2, Position: grid.Cell{X: 1, Y: 0}, Floor: cells(1, 0, 2, 0)})
	m.Update(Observation{Tick: 3, Position: grid.Cell{X: 2, Y: 0}, Floor: cells(2, 0, 3, 0)})

	age, ok := m.Age(grid.Cell{X: 0, Y: 0})
	require.True(t, ok)
	assert.Equal(t, 2, age)
	age, _ = m.Age(grid.Cell{X: 1, Y: 0})
	assert.Equal(t, 1, age)
	age, _ = m.Age(grid.Cell{X: 3, Y: 0})
	assert.Equal(t, 0, age)
	_, ok = m.Age(grid.Cell{X: 5, Y: 0})
	assert.False(t, ok, "never seen cells have no age")
}

func TestGemLifecycleExpiresAfterTTL(t *testing.T) {
	m := New(grid.Dimensions{Width: 10, Height: 10})
	gem := grid.Cell{X: 9, Y: 9}
	here := grid.Cell{X: 0, Y: 0}
	report := m.Update(Observation{Tick: 1, Position: here, Floor: cells(0, 0), Gems: []GemSighting{{Cell: gem, TTL: 3}}})
	assert.Equal(t, []grid.Cell{gem}, report.NewGems)

	m.Update(Observation{Tick: 2, Position: here, Floor: cells(0, 0)})
	ttl, ok := m.GemTTL(gem)
	require.True(t, ok, "present after one tick")
	assert.Equal(t, 2, ttl)

	m.Update(Observation{Tick: 3, Position: here, Floor: cells(0, 0)})
	_, ok = m.GemTTL(gem)
	require.True(t, ok, "present after two ticks")

	report = m.Update(Observation{Tick: 4, Position: here, Floor: cells(0, 0)})
	_, ok = m.GemTTL(gem)
	assert.False(t, ok, "gone after the third decrement")
	assert.Equal(t, []grid.Cell{gem}, report.ExpiredGems)
}

func TestGemRemovedWhenVisibleButNotReported(t *testing.T) {
	m := New(grid.Dimensions{Width: 10, Height: 10})
	gem := grid.Cell{X: 1, Y: 0}
	m.Update(Observation{Tick: 1, Position: grid.Cell{X: 5, Y: 5}, Floor: cells(5, 5), Gems: []GemSighting{{Cell: gem, TTL: 50}}})
	require.Equal(t, 1, m.GemCount())

	report := m.Update(Observation{Tick: 2, Position: grid.Cell{X: 0, Y: 0}, Floor: cells(0, 0, 1, 0)})
	assert.Equal(t, 0, m.GemCount())
	assert.Equal(t, []grid.Cell{gem}, report.VanishedGems)
}

func TestReportedGemOverwritesStaleEntry(t *testing.T) {
	m := New(grid.Dimensions{Width: 4, Height: 4})
	gem := grid.Cell{X: 1, Y: 1}
	m.Update(Observation{Tick: 1, Position: grid.Cell{}, Floor: cells(0, 0, 1, 1), Gems: []GemSighting{{Cell: gem, TTL: 5}}})
	m.Update(Observation{Tick: 2, Position: grid.Cell{}, Floor: cells(0, 0, 1, 1), Gems: []GemSighting{{Cell: gem, TTL: 9}}})
	ttl, ok := m.GemTTL(gem)
	require.True(t, ok)
	assert.Equal(t, 9, ttl)
}

func TestCollectedAndStalledFlags(t *testing.T) {
	m := New(grid.Dimensions{Width: 4, Height: 4})
	gem := grid.Cell{X: 1, Y: 0}
	m.Update(Observation{Tick: 1, Position: grid.Cell{}, Floor: cells(0, 0), Gems: []GemSighting{{Cell: gem, TTL: 5}}})
	report := m.Update(Observation{Tick: 2, Position: gem, Floor: cells(1, 0)})
	assert.True(t, report.CollectedGem)
	assert.False(t, report.Stalled)

	report = m.Update(Observation{Tick: 3, Position: gem, Floor: cells(1, 0)})
	assert.True(t, report.Stalled)
	assert.Equal(t, []grid.Cell{{}, gem, gem}, m.PathHistory())
}

func TestOpponentsReplacedEachTick(t *testing.T) {
	m := New(grid.Dimensions{Width: 4, Height: 4})
	m.Update(Observation{Tick: 1, Opponents: cells(1, 1, 2, 2)})
	assert.Equal(t, cells(1, 1, 2, 2), m.Opponents())
	m.Update(Observation{Tick: 2, Opponents: cells(3, 3)})
	assert.Equal(t, cells(3, 3), m.Opponents())
	assert.False(t, m.IsOpponent(grid.Cell{X: 1, Y: 1}))
}

func TestVoidMarkIsIdempotentAndReinstatedBySight(t *testing.T) {
	m := New(grid.Dimensions{Width: 5, Height: 5})
	target := grid.Cell{X: 4, Y: 4}

	assert.True(t, m.MarkVoid(target))
	assert.False(t, m.MarkVoid(target))
	assert.True(t, m.IsVoid(target))
	assert.False(t, m.IsUnseen(target), "void cells leave the unseen set")
	assert.Equal(t, []grid.Cell{target}, m.VoidCells())

	report := m.Update(Observation{Tick: 1, Position: grid.Cell{X: 4, Y: 3}, Floor: cells(4, 3, 4, 4)})
	assert.Equal(t, []grid.Cell{target}, report.Reinstated)
	assert.False(t, m.IsVoid(target))
	assert.Equal(t, WallFree, m.Wall(target))
	age, ok := m.Age(target)
	require.True(t, ok)
	assert.Equal(t, 0, age)
}

func TestReduceStalestLowersTiedMaximum(t *testing.T) {
	m := New(grid.Dimensions{Width: 6, Height: 1})
	m.Update(Observation{Tick: 1, Position: grid.Cell{X: 0, Y: 0}, Floor: cells(0, 0, 1, 0)})
	for tick := 2; tick <= 31; tick++ {
		m.Update(Observation{Tick: tick, Position: grid.Cell{X: 5, Y: 0}, Floor: cells(5, 0)})
	}
	affected := m.ReduceStalest(20)
	assert.Equal(t, cells(0, 0, 1, 0), affected)
	age, _ := m.Age(grid.Cell{X: 0, Y: 0})
	assert.Equal(t, 10, age)

	assert.Nil(t, New(grid.Dimensions{Width: 1, Height: 1}).ReduceStalest(20))
}

func TestVisibleFallsBackToAnchorView(t *testing.T) {
	m := New(grid.Dimensions{Width: 4, Height: 4})
	pos := grid.Cell{X: 1, Y: 1}
	m.Update(Observation{Tick: 1, Position: pos, Floor: cells(1, 1, 1, 2)})
	m.Update(Observation{Tick: 2, Position: pos})
	assert.True(t, m.Visible(grid.Cell{X: 1, Y: 2}))
}

func TestCandidateEvidence(t *testing.T) {
	m := New(grid.Dimensions{Width: 4, Height: 4})
	c := grid.Cell{X: 2, Y: 2}
	m.AddEvidence(c, 0.4, 7)
	m.AddEvidence(c, 0.5, 5)
	ev, ok := m.Candidate(c)
	require.True(t, ok)
	assert.Equal(t, 2, ev.Samples())
	oldest, ok := ev.Oldest()
	require.True(t, ok)
	assert.Equal(t, 5, oldest)
	assert.Equal(t, []grid.Cell{c}, m.CandidateCells())
	assert.True(t, m.DropCandidate(c))
	assert.False(t, m.DropCandidate(c))
}
