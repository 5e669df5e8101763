// Package agent runs the per-tick decision pipeline: fold the observation into
// memory, adjust for cycling, triangulate signals, gather targets, compose the
// field and pick a move.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/overfly42/found-gems/internal/cycling"
	"github.com/overfly42/found-gems/internal/field"
	"github.com/overfly42/found-gems/internal/grid"
	"github.com/overfly42/found-gems/internal/memory"
	"github.com/overfly42/found-gems/internal/protocol"
	"github.com/overfly42/found-gems/internal/signal"
	"github.com/overfly42/found-gems/internal/targets"
	"github.com/overfly42/found-gems/internal/telemetry"
	"github.com/overfly42/found-gems/logging"
	"github.com/overfly42/found-gems/logging/decision"
	"github.com/overfly42/found-gems/logging/observation"
)

const (
	metricTicks         = "agent_ticks_total"
	metricFills         = "agent_flood_fills_total"
	metricVoidMarks     = "agent_void_marks_total"
	metricCyclingTicks  = "agent_cycling_ticks_total"
	metricGemsCollected = "agent_gems_collected_total"
	metricWaits         = "agent_wait_moves_total"
	metricCandidates    = "agent_signal_candidates_peak"
)

// Config wires an agent to its settings and observability.
type Config struct {
	Settings  Settings
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
}

// Decision is the outcome of one tick.
type Decision struct {
	Tick         int              `json:"tick"`
	Position     grid.Cell        `json:"position"`
	Move         grid.Move        `json:"move"`
	Neighbors    [4]float64       `json:"neighbors"`
	Eligible     [4]bool          `json:"eligible"`
	Targets      []targets.Target `json:"targets"`
	Candidates   []grid.Cell      `json:"candidates,omitempty"`
	Cycling      bool             `json:"cycling"`
	Decay        float64          `json:"decay"`
	StopDistance int              `json:"stopDistance"`
	Fills        int              `json:"fills"`
	// Field is the composed surface when the target strategy produced one.
	Field field.Grid `json:"-"`
}

// Highlights colours the decision's targets for the game viewer.
func (d Decision) Highlights() []protocol.Highlight {
	out := make([]protocol.Highlight, 0, len(d.Targets))
	for _, t := range d.Targets {
		color := protocol.ColorTarget
		switch t.Kind {
		case targets.KindGem:
			color = protocol.ColorGem
		case targets.KindOpponent:
			color = protocol.ColorOpponent
		case targets.KindCandidate:
			color = protocol.ColorCandidate
		}
		out = append(out, protocol.Highlight{Cell: t.Cell, Color: color})
	}
	return out
}

// Stats summarise the game so far.
type Stats struct {
	Ticks         int
	GemsCollected int
}

// Agent owns all per-game state. It is not safe for concurrent Tick calls.
type Agent struct {
	game     protocol.GameConfig
	settings Settings
	pub      logging.Publisher
	metrics  telemetry.Metrics

	mem          *memory.Memory
	composer     *field.Composer
	detector     *cycling.Detector
	triangulator *signal.Triangulator
	aggregator   *targets.Aggregator

	stats Stats
}

// New validates the game configuration and builds an agent for it.
func New(game protocol.GameConfig, cfg Config) (*Agent, error) {
	if err := game.Validate(); err != nil {
		return nil, err
	}
	game = game.Normalized()
	settings := cfg.Settings.normalized()

	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}

	mem := memory.New(game.Dimensions())
	builder := field.NewBuilder(mem)
	a := &Agent{
		game:       game,
		settings:   settings,
		pub:        pub,
		metrics:    metrics,
		mem:        mem,
		composer:   field.NewComposer(builder, settings.Strategy, settings.Workers),
		detector:   cycling.NewDetector(settings.cycling()),
		aggregator: targets.NewAggregator(settings.targets(), builder),
	}
	if game.EmitSignals {
		a.triangulator = signal.NewTriangulator(game.SignalRadius, game.GemTTL)
	}
	return a, nil
}

func (a *Agent) Game() protocol.GameConfig { return a.game }

func (a *Agent) Settings() Settings { return a.settings }

// Memory exposes the belief for inspection. Callers must not mutate it.
func (a *Agent) Memory() *memory.Memory { return a.mem }

func (a *Agent) Stats() Stats { return a.stats }

// Tick folds obs into memory and decides the move. The only error is a
// wrapped field.ErrEmptyField (or a context error), both fatal for the game.
func (a *Agent) Tick(ctx context.Context, obs protocol.Observation) (Decision, error) {
	tick := obs.Tick
	pos := obs.Bot.Cell()
	a.stats.Ticks++
	a.metrics.Add(metricTicks, 1)

	report := a.mem.Update(toMemory(obs, pos))
	a.publishUpdate(ctx, tick, pos, report)

	cyc := a.detector.Observe(a.mem.PathHistory())
	reduced := 0
	if cyc.Cycling {
		reduced = len(a.mem.ReduceStalest(a.settings.AgeReduction))
		a.metrics.Add(metricCyclingTicks, 1)
	}
	if cyc.Changed {
		payload := decision.CyclingPayload{
			X: cyc.Cell.X, Y: cyc.Cell.Y,
			Occurrences:  cyc.Count,
			Decay:        cyc.Decay,
			StopDistance: cyc.StopDistance,
			AgesReduced:  reduced,
		}
		if cyc.Cycling {
			decision.CyclingDetected(ctx, a.pub, tick, payload, nil)
		} else {
			decision.CyclingCleared(ctx, a.pub, tick, payload, nil)
		}
	}

	a.triangulate(ctx, tick, obs.SignalLevel)

	d := Decision{
		Tick:         tick,
		Position:     pos,
		Move:         grid.Wait,
		Eligible:     Eligible(pos, a.mem),
		Cycling:      cyc.Cycling,
		Decay:        cyc.Decay,
		StopDistance: cyc.StopDistance,
		Candidates:   a.mem.CandidateCells(),
	}
	if !anyEligible(d.Eligible) {
		a.metrics.Add(metricWaits, 1)
		decision.NoEligibleMove(ctx, a.pub, tick, decision.NoEligibleMovePayload{X: pos.X, Y: pos.Y}, nil)
		return d, nil
	}

	d.Targets = a.aggregator.Collect(a.mem, cyc.Cycling, cyc.StopDistance)
	sources := make([]field.Source, len(d.Targets))
	for i, t := range d.Targets {
		sources[i] = field.Source{Cell: t.Cell, Weight: t.Weight}
	}

	res, err := a.composer.Compose(ctx, pos, sources, field.Params{Decay: cyc.Decay, StopDistance: cyc.StopDistance})
	a.metrics.Add(metricFills, uint64(res.Fills))
	a.markUnreachable(ctx, tick, res.Unreachable, d.Targets)
	if err != nil {
		if errors.Is(err, field.ErrEmptyField) {
			decision.EmptyField(ctx, a.pub, tick, decision.EmptyFieldPayload{Targets: len(sources), Unreachable: len(res.Unreachable)}, nil)
		}
		return d, fmt.Errorf("tick %d: %w", tick, err)
	}

	d.Neighbors = res.Neighbors
	d.Fills = res.Fills
	d.Field = res.Grid
	d.Candidates = a.mem.CandidateCells()
	d.Move = SelectMove(pos, res.Neighbors, a.mem)
	if d.Move == grid.Wait {
		a.metrics.Add(metricWaits, 1)
	}
	decision.MoveChosen(ctx, a.pub, tick, decision.MoveChosenPayload{
		Move:      d.Move.Token(),
		Neighbors: d.Neighbors,
		Targets:   len(d.Targets),
		Fills:     d.Fills,
	}, nil)
	return d, nil
}

func toMemory(obs protocol.Observation, pos grid.Cell) memory.Observation {
	out := memory.Observation{
		Tick:     obs.Tick,
		Position: pos,
		Walls:    protocol.Cells(obs.Walls),
		Floor:    protocol.Cells(obs.Floor),
	}
	for _, bot := range obs.VisibleBots {
		if c := bot.Position.Cell(); c != pos {
			out.Opponents = append(out.Opponents, c)
		}
	}
	for _, gem := range obs.VisibleGems {
		out.Gems = append(out.Gems, memory.GemSighting{Cell: gem.Position.Cell(), TTL: gem.TTL})
	}
	return out
}

func (a *Agent) publishUpdate(ctx context.Context, tick int, pos grid.Cell, report memory.UpdateReport) {
	if report.CollectedGem {
		a.stats.GemsCollected++
		a.metrics.Add(metricGemsCollected, 1)
		observation.GemCollected(ctx, a.pub, tick, observation.CellPayload{X: pos.X, Y: pos.Y})
	}
	if report.Stalled {
		observation.BotStalled(ctx, a.pub, tick, observation.CellPayload{X: pos.X, Y: pos.Y})
	}
	if n := len(report.NewWalls); n > 0 {
		observation.WallsDiscovered(ctx, a.pub, tick, observation.CountPayload{Count: n})
	}
	for _, c := range report.Reinstated {
		observation.VoidReinstated(ctx, a.pub, tick, observation.CellPayload{X: c.X, Y: c.Y})
	}
	for _, c := range report.VanishedGems {
		if c == pos {
			continue
		}
		observation.GemLost(ctx, a.pub, tick, observation.GemLostPayload{X: c.X, Y: c.Y, Reason: "vanished"})
	}
	for _, c := range report.ExpiredGems {
		observation.GemLost(ctx, a.pub, tick, observation.GemLostPayload{X: c.X, Y: c.Y, Reason: "expired"})
	}
}

// triangulate runs only in signal games. A missing reading counts as zero so
// candidate pruning still happens every tick.
func (a *Agent) triangulate(ctx context.Context, tick int, level *float64) {
	if a.triangulator == nil {
		return
	}
	reading := 0.0
	if level != nil {
		reading = *level
	}
	out, err := a.triangulator.Update(a.mem, reading)
	if signal.IsInvalid(err) {
		observation.InvalidSignal(ctx, a.pub, tick, observation.InvalidSignalPayload{
			Reading:  out.Reading,
			Residual: out.Residual,
			Error:    err.Error(),
		})
	}
	if len(out.Pruned) > 0 {
		reasons := make(map[string]int)
		for _, p := range out.Pruned {
			reasons[string(p.Reason)]++
		}
		decision.CandidatesPruned(ctx, a.pub, tick, decision.PrunedPayload{Reasons: reasons, Remaining: a.mem.CandidateCount()}, nil)
	}
	a.metrics.Store(metricCandidates, uint64(a.mem.CandidateCount()))
}

// markUnreachable records void targets after the fan-out has joined.
func (a *Agent) markUnreachable(ctx context.Context, tick int, cells []grid.Cell, list []targets.Target) {
	if len(cells) == 0 {
		return
	}
	kinds := make(map[grid.Cell]targets.Kind, len(list))
	for _, t := range list {
		if _, seen := kinds[t.Cell]; !seen {
			kinds[t.Cell] = t.Kind
		}
	}
	for _, c := range cells {
		a.mem.DropCandidate(c)
		if !a.mem.MarkVoid(c) {
			continue
		}
		a.metrics.Add(metricVoidMarks, 1)
		decision.TargetUnreachable(ctx, a.pub, tick, decision.UnreachablePayload{X: c.X, Y: c.Y, Kind: kinds[c].String()}, nil)
	}
}
