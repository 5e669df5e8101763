package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/overfly42/found-gems/internal/grid"
)

const (
	DefaultGemTTL       = 1000
	DefaultVisRadius    = 100
	DefaultSignalRadius = 1.0
)

// ErrInvalidConfig marks a first-tick configuration the agent cannot run with.
var ErrInvalidConfig = errors.New("invalid game config")

// GameConfig is the static configuration sent with the first observation only.
type GameConfig struct {
	Width        int     `json:"width" jsonschema:"required,minimum=1"`
	Height       int     `json:"height" jsonschema:"required,minimum=1"`
	MaxTicks     int     `json:"max_ticks,omitempty"`
	VisRadius    int     `json:"vis_radius,omitempty"`
	MaxGems      int     `json:"max_gems,omitempty"`
	GemTTL       int     `json:"gem_ttl,omitempty"`
	EmitSignals  bool    `json:"emit_signals,omitempty"`
	SignalRadius float64 `json:"signal_radius,omitempty"`
}

// Validate fails fast on missing or non-positive board dimensions.
func (c GameConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: width=%d height=%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.EmitSignals && c.SignalRadius < 0 {
		return fmt.Errorf("%w: signal_radius=%v", ErrInvalidConfig, c.SignalRadius)
	}
	return nil
}

func (c GameConfig) normalized() GameConfig {
	normalized := c
	if normalized.GemTTL <= 0 {
		normalized.GemTTL = DefaultGemTTL
	}
	if normalized.VisRadius <= 0 {
		normalized.VisRadius = DefaultVisRadius
	}
	if normalized.SignalRadius <= 0 {
		normalized.SignalRadius = DefaultSignalRadius
	}
	if normalized.MaxGems < 0 {
		normalized.MaxGems = 0
	}
	if normalized.MaxTicks < 0 {
		normalized.MaxTicks = 0
	}
	return normalized
}

// Normalized fills optional fields with the game's documented defaults.
func (c GameConfig) Normalized() GameConfig {
	return c.normalized()
}

func (c GameConfig) Dimensions() grid.Dimensions {
	return grid.Dimensions{Width: c.Width, Height: c.Height}
}

// Position is an [x, y] pair as it appears on the wire.
type Position [2]int

func (p Position) Cell() grid.Cell {
	return grid.Cell{X: p[0], Y: p[1]}
}

// VisibleBot is an opponent inside the agent's visibility radius.
type VisibleBot struct {
	Position Position `json:"position"`
}

// VisibleGem is a gem inside the visibility radius with its remaining lifetime.
type VisibleGem struct {
	Position Position `json:"position"`
	TTL      int      `json:"ttl"`
}

// Observation is one tick of input. Config is only present on the first line.
type Observation struct {
	Config      *GameConfig  `json:"config,omitempty"`
	Tick        int          `json:"tick"`
	Bot         Position     `json:"bot"`
	Walls       []Position   `json:"wall,omitempty"`
	Floor       []Position   `json:"floor,omitempty"`
	VisibleBots []VisibleBot `json:"visible_bots,omitempty"`
	VisibleGems []VisibleGem `json:"visible_gems,omitempty"`
	SignalLevel *float64     `json:"signal_level,omitempty"`
}

// Decode parses a single observation line.
func Decode(line []byte) (Observation, error) {
	var obs Observation
	if err := json.Unmarshal(line, &obs); err != nil {
		return Observation{}, fmt.Errorf("decode observation: %w", err)
	}
	return obs, nil
}

// Cells converts a list of wire positions into cells.
func Cells(positions []Position) []grid.Cell {
	if len(positions) == 0 {
		return nil
	}
	out := make([]grid.Cell, len(positions))
	for i, p := range positions {
		out[i] = p.Cell()
	}
	return out
}
