package signal

import (
	"errors"
	"math"

	"github.com/overfly42/found-gems/internal/grid"
	"github.com/overfly42/found-gems/internal/memory"
)

// PruneReason says why a candidate was dropped.
type PruneReason string

const (
	PruneVoid        PruneReason = "void"
	PruneStale       PruneReason = "stale"
	PruneUnconfirmed PruneReason = "unconfirmed"
	PruneOutOfBounds PruneReason = "out_of_bounds"
	PruneWall        PruneReason = "wall"
	PruneSeenEmpty   PruneReason = "seen_empty"
)

// Pruned is a dropped candidate.
type Pruned struct {
	Cell   grid.Cell
	Reason PruneReason
}

// Outcome describes one Update.
type Outcome struct {
	Reading  float64
	Residual float64
	// Distance is the estimated range to the unexplained gem, or +Inf.
	Distance float64
	// TooFar is set when the range exceeds the board and no cells were derived.
	TooFar  bool
	Derived []grid.Cell
	Pruned  []Pruned
}

// Triangulator derives candidate gem cells from signal readings and keeps the
// candidate store in memory tidy.
type Triangulator struct {
	radius      float64
	gemDuration int
}

func NewTriangulator(radius float64, gemDuration int) *Triangulator {
	return &Triangulator{radius: radius, gemDuration: gemDuration}
}

// Update processes one reading taken at mem.Position(). The memory must
// already hold this tick's observation. An ErrInvalidSignal return means the
// reading was discarded; pruning still ran and the outcome is valid.
func (t *Triangulator) Update(mem *memory.Memory, reading float64) (Outcome, error) {
	out := Outcome{Reading: reading, Distance: math.Inf(1)}
	derived, err := t.derive(mem, reading, &out)
	out.Derived = derived
	out.Pruned = t.prune(mem, derived)
	return out, err
}

func (t *Triangulator) derive(mem *memory.Memory, reading float64, out *Outcome) ([]grid.Cell, error) {
	pos := mem.Position()
	residual := reading
	for _, gem := range mem.GemCells() {
		// Euclidean, matching the dx²+dy² circle the residual is inverted onto.
		residual -= Strength(grid.Euclidean(gem, pos), t.radius)
	}
	out.Residual = residual

	dist, err := Distance(residual, t.radius)
	if err != nil {
		return nil, err
	}
	out.Distance = dist
	if math.IsInf(dist, 1) {
		return nil, nil
	}
	dims := mem.Dimensions()
	if dist > float64(dims.Width+dims.Height) {
		out.TooFar = true
		return nil, nil
	}

	tick := mem.Tick()
	squared := int(math.Round(dist * dist))
	var derived []grid.Cell
	for _, o := range CircleOffsets(squared) {
		c := pos.Add(o.DX, o.DY)
		mem.AddEvidence(c, residual, tick)
		derived = append(derived, c)
	}
	grid.SortCells(derived)
	return derived, nil
}

func (t *Triangulator) prune(mem *memory.Memory, derived []grid.Cell) []Pruned {
	fresh := make(map[grid.Cell]struct{}, len(derived))
	for _, c := range derived {
		fresh[c] = struct{}{}
	}
	timeout := mem.Tick() - t.gemDuration
	dims := mem.Dimensions()

	var pruned []Pruned
	for _, c := range mem.CandidateCells() {
		ev, _ := mem.Candidate(c)
		_, isFresh := fresh[c]
		oldest, _ := ev.Oldest()
		_, hasGem := mem.GemTTL(c)

		var reason PruneReason
		switch {
		case mem.IsVoid(c):
			reason = PruneVoid
		case oldest < timeout:
			reason = PruneStale
		case !isFresh && ev.Samples() < 2:
			reason = PruneUnconfirmed
		case !dims.InBounds(c):
			reason = PruneOutOfBounds
		case mem.Blocked(c):
			reason = PruneWall
		case mem.Visible(c) && !hasGem:
			reason = PruneSeenEmpty
		default:
			continue
		}
		mem.DropCandidate(c)
		pruned = append(pruned, Pruned{Cell: c, Reason: reason})
	}
	return pruned
}

// IsInvalid reports whether err is a discarded reading.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidSignal)
}
