package detect

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/sweeney/pulse-sensor/internal/calib"
	"github.com/sweeney/pulse-sensor/internal/ppg"
)

// RhythmConfig tunes the rhythm-pattern source.
type RhythmConfig struct {
	// MinIntervals is how many inter-beat intervals are needed before
	// the coefficient of variation is meaningful.
	MinIntervals int `yaml:"min_intervals"`

	// ConsistentRuns is how many consecutive in-tolerance evaluations
	// are needed before detection asserts.
	ConsistentRuns int `yaml:"consistent_runs"`

	// MaxIntervals bounds the interval history.
	MaxIntervals int `yaml:"max_intervals"`

	// MinInterval/MaxInterval reject implausible beat spacing.
	MinInterval time.Duration `yaml:"min_interval"`
	MaxInterval time.Duration `yaml:"max_interval"`
}

// DefaultRhythmConfig returns the standard rhythm tuning.
func DefaultRhythmConfig() RhythmConfig {
	return RhythmConfig{
		MinIntervals:   3,
		ConsistentRuns: 3,
		MaxIntervals:   8,
		MinInterval:    250 * time.Millisecond,
		MaxInterval:    2 * time.Second,
	}
}

// RhythmSource asserts placement when upward threshold crossings recur
// at consistent intervals. A finger on the sensor produces a periodic
// pulse; ambient light and motion do not.
type RhythmSource struct {
	cfg RhythmConfig

	prev         float64
	havePrev     bool
	lastCrossing time.Time
	intervals    []float64 // ms, newest last

	consistent int
	detected   bool
	lastCV     float64
}

// NewRhythmSource creates the rhythm-pattern detector.
func NewRhythmSource(cfg RhythmConfig) *RhythmSource {
	d := DefaultRhythmConfig()
	if cfg.MinIntervals <= 0 {
		cfg.MinIntervals = d.MinIntervals
	}
	if cfg.ConsistentRuns <= 0 {
		cfg.ConsistentRuns = d.ConsistentRuns
	}
	if cfg.MaxIntervals < cfg.MinIntervals {
		cfg.MaxIntervals = d.MaxIntervals
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = d.MinInterval
	}
	if cfg.MaxInterval <= cfg.MinInterval {
		cfg.MaxInterval = d.MaxInterval
	}
	return &RhythmSource{cfg: cfg, lastCV: 1}
}

// ID identifies this source.
func (r *RhythmSource) ID() string { return "rhythm" }

// Update records upward crossings of the calibrated amplitude
// threshold, maintains the interval history, and evaluates interval
// consistency via the coefficient of variation.
func (r *RhythmSource) Update(sample ppg.Sample, params calib.Params, now time.Time) Vote {
	v := sample.Amplified
	threshold := params.AmplitudeThreshold

	if r.havePrev && r.prev < threshold && v >= threshold {
		r.onCrossing(now, params)
	}
	r.prev = v
	r.havePrev = true

	confidence := 0.0
	if r.detected {
		// CV 0 -> confidence 1; CV at the tolerance -> 0.
		confidence = clamp01(1 - r.lastCV/params.RhythmThreshold)
	}

	return Vote{
		SourceID:   r.ID(),
		Detected:   r.detected,
		Confidence: confidence,
		UpdatedAt:  now,
	}
}

func (r *RhythmSource) onCrossing(now time.Time, params calib.Params) {
	if !r.lastCrossing.IsZero() {
		iv := now.Sub(r.lastCrossing)
		if iv >= r.cfg.MinInterval && iv <= r.cfg.MaxInterval {
			r.intervals = append(r.intervals, float64(iv.Milliseconds()))
			if len(r.intervals) > r.cfg.MaxIntervals {
				r.intervals = r.intervals[1:]
			}
			r.evaluate(params)
		} else {
			// Implausible spacing breaks any consistency streak.
			r.consistent = 0
		}
	}
	r.lastCrossing = now
}

func (r *RhythmSource) evaluate(params calib.Params) {
	if len(r.intervals) < r.cfg.MinIntervals {
		return
	}
	mean, std := stat.MeanStdDev(r.intervals, nil)
	if mean <= 0 {
		return
	}
	cv := std / mean
	r.lastCV = cv

	if cv < params.RhythmThreshold {
		r.consistent++
		if r.consistent >= r.cfg.ConsistentRuns {
			r.detected = true
		}
	} else {
		r.consistent = 0
		r.detected = false
	}
}

// Reset clears crossings, intervals and the detection state.
func (r *RhythmSource) Reset() {
	r.prev = 0
	r.havePrev = false
	r.lastCrossing = time.Time{}
	r.intervals = nil
	r.consistent = 0
	r.detected = false
	r.lastCV = 1
}
