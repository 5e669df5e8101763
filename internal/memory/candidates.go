package memory

import (
	"github.com/overfly42/found-gems/internal/grid"
)

// Evidence accumulates the signal readings that pointed at a candidate cell.
type Evidence struct {
	Signals []float64
	Ticks   []int
}

// Samples is the number of readings recorded for the candidate.
func (e *Evidence) Samples() int {
	if e == nil {
		return 0
	}
	return len(e.Ticks)
}

// Oldest returns the earliest tick stamp, or false when there is none.
func (e *Evidence) Oldest() (int, bool) {
	if e == nil || len(e.Ticks) == 0 {
		return 0, false
	}
	oldest := e.Ticks[0]
	for _, tick := range e.Ticks[1:] {
		if tick < oldest {
			oldest = tick
		}
	}
	return oldest, true
}

// AddEvidence appends a reading to the candidate at c, creating it if needed.
func (m *Memory) AddEvidence(c grid.Cell, signal float64, tick int) {
	ev, ok := m.candidates[c]
	if !ok {
		ev = &Evidence{}
		m.candidates[c] = ev
	}
	ev.Signals = append(ev.Signals, signal)
	ev.Ticks = append(ev.Ticks, tick)
}

// Candidate returns a copy of the evidence recorded at c.
func (m *Memory) Candidate(c grid.Cell) (Evidence, bool) {
	ev, ok := m.candidates[c]
	if !ok {
		return Evidence{}, false
	}
	return Evidence{
		Signals: append([]float64(nil), ev.Signals...),
		Ticks:   append([]int(nil), ev.Ticks...),
	}, true
}

// CandidateCells lists every candidate cell row-major.
func (m *Memory) CandidateCells() []grid.Cell {
	out := make([]grid.Cell, 0, len(m.candidates))
	for c := range m.candidates {
		out = append(out, c)
	}
	grid.SortCells(out)
	return out
}

func (m *Memory) CandidateCount() int { return len(m.candidates) }

func (m *Memory) DropCandidate(c grid.Cell) bool {
	if _, ok := m.candidates[c]; !ok {
		return false
	}
	delete(m.candidates, c)
	return true
}
