// Package signal turns the scalar gem signal into candidate gem cells.
package signal

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSignal marks a reading above 1, which no distance can produce.
var ErrInvalidSignal = errors.New("signal: reading above 1")

// precision matches the six decimals the game server reports.
const precision = 1e6

// Strength is the signal a gem at distance d emits for the given radius:
// 1 / (1 + (d/r)^2), rounded to six decimals.
func Strength(d, radius float64) float64 {
	ratio := d / radius
	s := 1 / (1 + ratio*ratio)
	return math.Round(s*precision) / precision
}

// Distance inverts Strength. A non-positive reading carries no information
// and maps to +Inf.
func Distance(s, radius float64) (float64, error) {
	switch {
	case math.IsNaN(s) || s > 1:
		return 0, fmt.Errorf("distance for %v: %w", s, ErrInvalidSignal)
	case s <= 0:
		return math.Inf(1), nil
	}
	return radius * math.Sqrt((1-s)/s), nil
}

// Offset is a relative displacement from the agent.
type Offset struct {
	DX, DY int
}

// CircleOffsets returns every integer offset with DX^2 + DY^2 == squared,
// each once.
func CircleOffsets(squared int) []Offset {
	if squared < 0 {
		return nil
	}
	var out []Offset
	seen := make(map[Offset]struct{})
	limit := isqrt(squared)
	for x := 0; x <= limit; x++ {
		rest := squared - x*x
		y := isqrt(rest)
		if y*y != rest {
			continue
		}
		for _, o := range [...]Offset{{-x, -y}, {-x, y}, {x, -y}, {x, y}} {
			if _, dup := seen[o]; dup {
				continue
			}
			seen[o] = struct{}{}
			out = append(out, o)
		}
	}
	return out
}

func isqrt(n int) int {
	r := int(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}
