package agent

import (
	"runtime"

	"github.com/overfly42/found-gems/internal/cycling"
	"github.com/overfly42/found-gems/internal/field"
	"github.com/overfly42/found-gems/internal/targets"
)

// Settings are the tuning constants of the decision pipeline.
type Settings struct {
	DecayFactor float64
	DecayChange float64
	MinDecay    float64

	OpponentPenalty    float64
	SignalReward       float64
	ExplorationWeight  float64
	ExplorationCount   int
	PatrolCount        int
	StalenessThreshold int

	CyclingWindow         int
	CyclingMaxOccurrences int
	AgeReduction          int

	StopDistance     int
	StopDistanceStep int

	Strategy field.Strategy
	Workers  int
}

// DefaultSettings returns the tuned defaults.
func DefaultSettings() Settings {
	return Settings{
		DecayFactor:           0.8,
		DecayChange:           0.9,
		MinDecay:              0.05,
		OpponentPenalty:       0.01,
		SignalReward:          10,
		ExplorationWeight:     100,
		ExplorationCount:      20,
		PatrolCount:           7,
		StalenessThreshold:    100,
		CyclingWindow:         20,
		CyclingMaxOccurrences: 3,
		AgeReduction:          20,
		StopDistance:          4000,
		StopDistanceStep:      5,
		Strategy:              field.StrategyNeighbor,
		Workers:               runtime.GOMAXPROCS(0),
	}
}

func (s Settings) normalized() Settings {
	def := DefaultSettings()
	normalized := s
	if normalized.DecayFactor <= 0 || normalized.DecayFactor >= 1 {
		normalized.DecayFactor = def.DecayFactor
	}
	if normalized.DecayChange <= 0 || normalized.DecayChange >= 1 {
		normalized.DecayChange = def.DecayChange
	}
	if normalized.MinDecay <= 0 {
		normalized.MinDecay = def.MinDecay
	}
	if normalized.OpponentPenalty < 0 {
		normalized.OpponentPenalty = -normalized.OpponentPenalty
	}
	if normalized.SignalReward <= 0 {
		normalized.SignalReward = def.SignalReward
	}
	if normalized.ExplorationWeight <= 0 {
		normalized.ExplorationWeight = def.ExplorationWeight
	}
	if normalized.ExplorationCount <= 0 {
		normalized.ExplorationCount = def.ExplorationCount
	}
	if normalized.PatrolCount <= 0 {
		normalized.PatrolCount = def.PatrolCount
	}
	if normalized.StalenessThreshold <= 0 {
		normalized.StalenessThreshold = def.StalenessThreshold
	}
	if normalized.CyclingWindow <= 0 {
		normalized.CyclingWindow = def.CyclingWindow
	}
	if normalized.CyclingMaxOccurrences <= 0 {
		normalized.CyclingMaxOccurrences = def.CyclingMaxOccurrences
	}
	if normalized.AgeReduction < 0 {
		normalized.AgeReduction = def.AgeReduction
	}
	if normalized.StopDistance <= 0 {
		normalized.StopDistance = def.StopDistance
	}
	if normalized.StopDistanceStep <= 0 {
		normalized.StopDistanceStep = def.StopDistanceStep
	}
	if _, ok := field.ParseStrategy(string(normalized.Strategy)); !ok {
		normalized.Strategy = def.Strategy
	}
	if normalized.Workers <= 0 {
		normalized.Workers = def.Workers
	}
	return normalized
}

func (s Settings) cycling() cycling.Settings {
	return cycling.Settings{
		Window:           s.CyclingWindow,
		MaxOccurrences:   s.CyclingMaxOccurrences,
		Decay:            s.DecayFactor,
		DecayChange:      s.DecayChange,
		MinDecay:         s.MinDecay,
		StopDistance:     s.StopDistance,
		StopDistanceStep: s.StopDistanceStep,
	}
}

func (s Settings) targets() targets.Settings {
	return targets.Settings{
		OpponentPenalty:    s.OpponentPenalty,
		SignalReward:       s.SignalReward,
		ExplorationWeight:  s.ExplorationWeight,
		ExplorationCount:   s.ExplorationCount,
		PatrolCount:        s.PatrolCount,
		StalenessThreshold: s.StalenessThreshold,
	}
}
