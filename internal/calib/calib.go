// Package calib maintains the slowly-evolving detection thresholds for
// one monitoring session. Environmental observations (noise,
// brightness, motion) ease each parameter toward a piecewise target by
// exponential smoothing; everything is clamped to documented bounds.
// There are no globals: each session owns its Calibrator.
package calib

import "time"

// Params are the calibration outputs read by the detection sources.
// Mutated only by Calibrator.Observe.
type Params struct {
	// SensitivityLevel scales the fusion assertion threshold.
	// Higher sensitivity lowers the evidence needed for presence.
	// Range [0.5, 1.5].
	SensitivityLevel float64

	// AmplitudeThreshold is the minimum amplified value the amplitude
	// detector requires. Range [0.05, 1.0].
	AmplitudeThreshold float64

	// RhythmThreshold is the maximum coefficient of variation the
	// rhythm detector accepts as a stable pulse. Range [0.1, 0.6].
	RhythmThreshold float64

	// EnvironmentQualityFactor summarizes how hostile the environment
	// is, 1.0 = ideal. Range [0.2, 1.0].
	EnvironmentQualityFactor float64

	// FalsePositiveReduction and FalseNegativeReduction bias the
	// detectors when the environment favors one error mode.
	// Range [0, 0.5] each.
	FalsePositiveReduction float64
	FalseNegativeReduction float64
}

// Observation is one environmental reading from the host's
// environment-sensing collaborator.
type Observation struct {
	// Noise is normalized ambient noise, 0-1.
	Noise float64

	// Brightness is scene brightness, 0-255.
	Brightness float64

	// Motion is normalized subject motion, 0-1.
	Motion float64
}

// Config tunes the calibrator.
type Config struct {
	// Rate is the exponential smoothing rate per accepted observation,
	// in (0,1).
	Rate float64 `yaml:"rate"`

	// MinInterval is the minimum spacing between accepted
	// observations. Earlier ones are ignored.
	MinInterval time.Duration `yaml:"min_interval"`
}

// DefaultConfig returns the standard smoothing configuration.
func DefaultConfig() Config {
	return Config{
		Rate:        0.1,
		MinInterval: 2000 * time.Millisecond,
	}
}

// DefaultParams returns the neutral starting thresholds.
func DefaultParams() Params {
	return Params{
		SensitivityLevel:         1.0,
		AmplitudeThreshold:       0.15,
		RhythmThreshold:          0.30,
		EnvironmentQualityFactor: 1.0,
		FalsePositiveReduction:   0.1,
		FalseNegativeReduction:   0.1,
	}
}

// Calibrator eases Params toward observation-derived targets.
type Calibrator struct {
	cfg          Config
	params       Params
	lastObserved time.Time
	observed     bool
}

// New creates a Calibrator with default starting params.
func New(cfg Config) *Calibrator {
	if cfg.Rate <= 0 || cfg.Rate >= 1 {
		cfg.Rate = DefaultConfig().Rate
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultConfig().MinInterval
	}
	return &Calibrator{cfg: cfg, params: DefaultParams()}
}

// Observe applies one environmental observation. Observations arriving
// sooner than MinInterval after the previous accepted one are ignored.
// Returns whether the observation was accepted.
func (c *Calibrator) Observe(obs Observation, now time.Time) bool {
	if c.observed && now.Sub(c.lastObserved) < c.cfg.MinInterval {
		return false
	}
	c.lastObserved = now
	c.observed = true

	t := targetsFor(obs)
	r := c.cfg.Rate
	p := &c.params

	p.SensitivityLevel = ease(p.SensitivityLevel, t.SensitivityLevel, r)
	p.AmplitudeThreshold = ease(p.AmplitudeThreshold, t.AmplitudeThreshold, r)
	p.RhythmThreshold = ease(p.RhythmThreshold, t.RhythmThreshold, r)
	p.EnvironmentQualityFactor = ease(p.EnvironmentQualityFactor, t.EnvironmentQualityFactor, r)
	p.FalsePositiveReduction = ease(p.FalsePositiveReduction, t.FalsePositiveReduction, r)
	p.FalseNegativeReduction = ease(p.FalseNegativeReduction, t.FalseNegativeReduction, r)

	clampParams(p)
	return true
}

// Snapshot returns a value copy for read-only consumers.
func (c *Calibrator) Snapshot() Params {
	return c.params
}

// Reset restores default params and clears the observation clock.
func (c *Calibrator) Reset() {
	c.params = DefaultParams()
	c.observed = false
}

// targetsFor maps an observation onto per-parameter targets.
// Piecewise, deliberately simple: each environment axis pushes the one
// or two thresholds it actually affects.
func targetsFor(obs Observation) Params {
	t := DefaultParams()

	// Noisy environment: demand more evidence, expect more false
	// positives.
	switch {
	case obs.Noise > 0.7:
		t.SensitivityLevel = 0.7
		t.AmplitudeThreshold = 0.35
		t.FalsePositiveReduction = 0.4
	case obs.Noise > 0.4:
		t.SensitivityLevel = 0.9
		t.AmplitudeThreshold = 0.25
		t.FalsePositiveReduction = 0.25
	default:
		t.SensitivityLevel = 1.1
		t.AmplitudeThreshold = 0.12
		t.FalsePositiveReduction = 0.1
	}

	// Dim scenes weaken the optical signal: raise amplitude demands,
	// loosen rhythm tolerance slightly.
	switch {
	case obs.Brightness < 60:
		t.AmplitudeThreshold += 0.10
		t.RhythmThreshold = 0.40
		t.FalseNegativeReduction = 0.35
	case obs.Brightness < 120:
		t.AmplitudeThreshold += 0.05
		t.RhythmThreshold = 0.35
		t.FalseNegativeReduction = 0.2
	default:
		t.RhythmThreshold = 0.28
		t.FalseNegativeReduction = 0.1
	}

	// Motion corrupts rhythm more than amplitude.
	if obs.Motion > 0.5 {
		t.RhythmThreshold += 0.1
		t.EnvironmentQualityFactor = 0.5
	} else {
		t.EnvironmentQualityFactor = 1.0 - obs.Motion*0.6
	}

	clampParams(&t)
	return t
}

func ease(old, target, rate float64) float64 {
	return old*(1-rate) + target*rate
}

func clampParams(p *Params) {
	p.SensitivityLevel = clamp(p.SensitivityLevel, 0.5, 1.5)
	p.AmplitudeThreshold = clamp(p.AmplitudeThreshold, 0.05, 1.0)
	p.RhythmThreshold = clamp(p.RhythmThreshold, 0.1, 0.6)
	p.EnvironmentQualityFactor = clamp(p.EnvironmentQualityFactor, 0.2, 1.0)
	p.FalsePositiveReduction = clamp(p.FalsePositiveReduction, 0, 0.5)
	p.FalseNegativeReduction = clamp(p.FalseNegativeReduction, 0, 0.5)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
