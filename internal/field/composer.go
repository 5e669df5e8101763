package field

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/overfly42/found-gems/internal/grid"
)

// ErrEmptyField reports that no target produced any influence. The patrol
// fallback should always supply a reachable target, so this is a logic defect.
var ErrEmptyField = errors.New("field: aggregate field is empty")

// Strategy selects how the composer evaluates the aggregate field.
type Strategy string

const (
	// StrategyTarget floods once from every target and sums full grids.
	StrategyTarget Strategy = "target"
	// StrategyNeighbor floods once from each of the agent's four neighbours
	// and reads the hop count to every target from those four fields.
	StrategyNeighbor Strategy = "neighbor"
)

// ParseStrategy accepts the names used in configuration.
func ParseStrategy(name string) (Strategy, bool) {
	switch Strategy(name) {
	case StrategyTarget:
		return StrategyTarget, true
	case StrategyNeighbor:
		return StrategyNeighbor, true
	default:
		return "", false
	}
}

// Source is one weighted attractor (positive) or repeller (negative).
type Source struct {
	Cell   grid.Cell
	Weight float64
}

// Params are the per-tick tuning values, adjusted by the cycling detector.
type Params struct {
	Decay        float64
	StopDistance int
}

// Result is the outcome of one composition.
type Result struct {
	// Neighbors holds the composed value at each cell of grid.Neighbors(origin),
	// in grid.Directions order. Off-board neighbours read the clamped cell.
	Neighbors [4]float64
	// Grid is the full composed surface. Only StrategyTarget fills it.
	Grid Grid
	// Unreachable lists targets no wall-respecting path connects to the
	// origin. The caller records them as void once the fan-out has joined.
	Unreachable []grid.Cell
	// Contributing counts targets that reached the origin.
	Contributing int
	// Fills is the number of flood fills performed.
	Fills int
}

// Composer sums weighted decayed fields with a bounded worker pool.
type Composer struct {
	builder  *Builder
	strategy Strategy
	workers  int
}

// NewComposer returns a composer. Workers <= 0 uses GOMAXPROCS; an unknown
// strategy falls back to StrategyNeighbor.
func NewComposer(builder *Builder, strategy Strategy, workers int) *Composer {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if _, ok := ParseStrategy(string(strategy)); !ok {
		strategy = StrategyNeighbor
	}
	return &Composer{builder: builder, strategy: strategy, workers: workers}
}

func (c *Composer) Strategy() Strategy { return c.strategy }

// Compose evaluates sources around origin. The walls behind the builder must
// not change until Compose returns.
func (c *Composer) Compose(ctx context.Context, origin grid.Cell, sources []Source, params Params) (Result, error) {
	if len(sources) == 0 {
		return Result{}, fmt.Errorf("compose at %s: no targets: %w", origin, ErrEmptyField)
	}
	var (
		res Result
		err error
	)
	switch c.strategy {
	case StrategyTarget:
		res, err = c.composeTargets(ctx, origin, sources, params)
	default:
		res, err = c.composeNeighbors(ctx, origin, sources, params)
	}
	if err != nil {
		return Result{}, err
	}
	if res.Contributing == 0 {
		return res, fmt.Errorf("compose at %s: none of %d targets reachable: %w", origin, len(sources), ErrEmptyField)
	}
	return res, nil
}

func (c *Composer) composeTargets(ctx context.Context, origin grid.Cell, sources []Source, params Params) (Result, error) {
	fills := make([]Distances, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fills[i] = c.builder.Distances(src.Cell, params.StopDistance)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	dims := c.builder.dims
	res := Result{Grid: NewGrid(dims), Fills: len(fills)}
	for i, dist := range fills {
		if dist.Reached(origin) {
			res.Contributing++
		} else if !dist.EarlyStopped {
			res.Unreachable = append(res.Unreachable, sources[i].Cell)
		}
		res.Grid.AddScaled(dist.Decayed(1, params.Decay), sources[i].Weight)
	}
	for i, n := range grid.Neighbors(origin) {
		res.Neighbors[i] = res.Grid.At(dims.Clamp(n))
	}
	return res, nil
}

func (c *Composer) composeNeighbors(ctx context.Context, origin grid.Cell, sources []Source, params Params) (Result, error) {
	dims := c.builder.dims
	neighbors := grid.Neighbors(origin)
	var fills [4]*Distances

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, n := range neighbors {
		i, n := i, n
		n = dims.Clamp(n)
		if c.builder.walls.Blocked(n) {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dist := c.builder.Distances(n, params.StopDistance)
			fills[i] = &dist
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var res Result
	earlyStopped := false
	for _, fill := range fills {
		if fill == nil {
			continue
		}
		res.Fills++
		earlyStopped = earlyStopped || fill.EarlyStopped
	}

	powers := make(map[int]float64)
	pow := func(d int) float64 {
		p, ok := powers[d]
		if !ok {
			p = math.Pow(params.Decay, float64(d))
			powers[d] = p
		}
		return p
	}

	for _, src := range sources {
		reached := src.Cell == origin
		for i, fill := range fills {
			if fill == nil {
				res.Neighbors[i] += src.Weight * pow(dims.Area())
				continue
			}
			d := fill.At(src.Cell)
			if d < fill.Unreached() {
				reached = true
			}
			res.Neighbors[i] += src.Weight * pow(d)
		}
		if reached {
			res.Contributing++
		} else if !earlyStopped {
			res.Unreachable = append(res.Unreachable, src.Cell)
		}
	}
	return res, nil
}
