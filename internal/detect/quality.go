package detect

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/sweeney/pulse-sensor/internal/calib"
	"github.com/sweeney/pulse-sensor/internal/ppg"
)

// QualityConfig tunes the signal-quality source.
type QualityConfig struct {
	// Window is how many recent samples feed the stability estimate.
	Window int `yaml:"window"`

	// MinQuality is the floor (0-1) below which placement is denied.
	MinQuality float64 `yaml:"min_quality"`
}

// DefaultQualityConfig returns the standard quality tuning.
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{Window: 20, MinQuality: 0.35}
}

// QualitySource combines the frontend quality estimate with a local
// amplitude/stability score and denies placement below a floor.
type QualitySource struct {
	cfg    QualityConfig
	window []float64
}

// NewQualitySource creates the signal-quality detector.
func NewQualitySource(cfg QualityConfig) *QualitySource {
	if cfg.Window <= 1 {
		cfg.Window = DefaultQualityConfig().Window
	}
	if cfg.MinQuality <= 0 {
		cfg.MinQuality = DefaultQualityConfig().MinQuality
	}
	return &QualitySource{cfg: cfg}
}

// ID identifies this source.
func (q *QualitySource) ID() string { return "quality" }

// Update scores the sample window on amplitude and variance stability,
// blended with the frontend's own quality figure, scaled by the
// environment quality factor.
func (q *QualitySource) Update(sample ppg.Sample, params calib.Params, now time.Time) Vote {
	q.window = append(q.window, sample.Amplified)
	if len(q.window) > q.cfg.Window {
		q.window = q.window[1:]
	}

	score := q.score(sample, params)
	detected := score >= q.cfg.MinQuality

	return Vote{
		SourceID:   q.ID(),
		Detected:   detected,
		Confidence: clamp01(score),
		UpdatedAt:  now,
	}
}

func (q *QualitySource) score(sample ppg.Sample, params calib.Params) float64 {
	if len(q.window) < 3 {
		return 0
	}

	lo, hi := q.window[0], q.window[0]
	for _, v := range q.window {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	amplitude := hi - lo

	// Amplitude score: full credit at 2x the calibrated threshold.
	ampScore := clamp01(amplitude / (2 * params.AmplitudeThreshold))

	// Stability: high variance relative to amplitude means noise, not
	// pulse. A dead-flat window means no pulse at all.
	_, std := stat.MeanStdDev(q.window, nil)
	stability := 0.0
	if amplitude > 0 {
		stability = clamp01(1 - math.Abs(std/amplitude-0.25)*2)
	}

	frontend := clamp01(sample.Quality / 100)

	score := (0.4*ampScore + 0.3*stability + 0.3*frontend) * params.EnvironmentQualityFactor
	return clamp01(score)
}

// Reset clears the sample window.
func (q *QualitySource) Reset() {
	q.window = nil
}
