// Package cycling flags oscillation in the agent's recent path and perturbs the
// field parameters to escape it.
package cycling

import (
	"github.com/overfly42/found-gems/internal/grid"
)

// Settings configure the detector. Zero values are replaced by DefaultSettings.
type Settings struct {
	Window         int
	MaxOccurrences int

	Decay       float64
	DecayChange float64
	MinDecay    float64

	StopDistance     int
	StopDistanceStep int
}

func DefaultSettings() Settings {
	return Settings{
		Window:           20,
		MaxOccurrences:   3,
		Decay:            0.8,
		DecayChange:      0.9,
		MinDecay:         0.05,
		StopDistance:     4000,
		StopDistanceStep: 5,
	}
}

func (s Settings) normalized() Settings {
	def := DefaultSettings()
	if s.Window <= 0 {
		s.Window = def.Window
	}
	if s.MaxOccurrences <= 0 {
		s.MaxOccurrences = def.MaxOccurrences
	}
	if s.Decay <= 0 || s.Decay >= 1 {
		s.Decay = def.Decay
	}
	if s.DecayChange <= 0 || s.DecayChange >= 1 {
		s.DecayChange = def.DecayChange
	}
	if s.MinDecay <= 0 || s.MinDecay > s.Decay {
		s.MinDecay = min(def.MinDecay, s.Decay)
	}
	if s.StopDistance <= 0 {
		s.StopDistance = def.StopDistance
	}
	if s.StopDistanceStep <= 0 {
		s.StopDistanceStep = def.StopDistanceStep
	}
	return s
}

// Report is the detector's verdict for one tick.
type Report struct {
	Cycling bool
	// Cell is the most repeated cell in the window and Count its occurrences.
	Cell  grid.Cell
	Count int
	// Changed is set when the verdict differs from the previous tick.
	Changed bool

	Decay        float64
	StopDistance int
}

// Detector carries the adjusted parameters from tick to tick.
type Detector struct {
	settings Settings
	decay    float64
	stop     int
	cycling  bool
}

func NewDetector(settings Settings) *Detector {
	settings = settings.normalized()
	return &Detector{
		settings: settings,
		decay:    settings.Decay,
		stop:     settings.StopDistance,
	}
}

func (d *Detector) Settings() Settings { return d.settings }

// Decay is the per-hop attenuation the field should use this tick.
func (d *Detector) Decay() float64 { return d.decay }

// StopDistance is the flood fill bound the field should use this tick.
func (d *Detector) StopDistance() int { return d.stop }

// Observe inspects the tail of path and updates the parameters.
func (d *Detector) Observe(path []grid.Cell) Report {
	window := path
	if len(window) > d.settings.Window {
		window = window[len(window)-d.settings.Window:]
	}

	counts := make(map[grid.Cell]int, len(window))
	var report Report
	for _, c := range window {
		counts[c]++
		n := counts[c]
		if n > report.Count || (n == report.Count && grid.Less(c, report.Cell)) {
			report.Cell = c
			report.Count = n
		}
	}
	report.Cycling = report.Count > d.settings.MaxOccurrences
	report.Changed = report.Cycling != d.cycling
	d.cycling = report.Cycling

	if report.Cycling {
		d.decay = max(d.decay*d.settings.DecayChange, d.settings.MinDecay)
		d.stop += d.settings.StopDistanceStep
	} else {
		d.decay = d.settings.Decay
		d.stop = d.settings.StopDistance
	}
	report.Decay = d.decay
	report.StopDistance = d.stop
	return report
}
