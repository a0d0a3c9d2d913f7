package detect

import (
	"time"

	"github.com/sweeney/pulse-sensor/internal/calib"
	"github.com/sweeney/pulse-sensor/internal/ppg"
)

// AmplitudeConfig tunes the amplitude source's hysteresis counters.
type AmplitudeConfig struct {
	// AssertCount is how many consecutive samples must sit above the
	// calibrated amplitude threshold before detection asserts.
	AssertCount int `yaml:"assert_count"`

	// RetractCount is how many consecutive samples must sit below the
	// threshold before detection retracts. Larger than AssertCount so
	// brief dropouts do not flicker the decision.
	RetractCount int `yaml:"retract_count"`
}

// DefaultAmplitudeConfig returns the 3-up/5-down hysteresis.
func DefaultAmplitudeConfig() AmplitudeConfig {
	return AmplitudeConfig{AssertCount: 3, RetractCount: 5}
}

// AmplitudeSource asserts placement when the amplified signal clears
// the calibrated amplitude threshold with asymmetric hysteresis.
type AmplitudeSource struct {
	cfg      AmplitudeConfig
	above    int
	below    int
	detected bool
}

// NewAmplitudeSource creates the amplitude detector.
func NewAmplitudeSource(cfg AmplitudeConfig) *AmplitudeSource {
	if cfg.AssertCount <= 0 {
		cfg.AssertCount = DefaultAmplitudeConfig().AssertCount
	}
	if cfg.RetractCount <= 0 {
		cfg.RetractCount = DefaultAmplitudeConfig().RetractCount
	}
	return &AmplitudeSource{cfg: cfg}
}

// ID identifies this source.
func (a *AmplitudeSource) ID() string { return "amplitude" }

// Update counts consecutive samples on either side of the threshold
// and flips the detection state only when a run is long enough.
// Confidence scales with distance from the threshold.
func (a *AmplitudeSource) Update(sample ppg.Sample, params calib.Params, now time.Time) Vote {
	threshold := params.AmplitudeThreshold
	v := sample.Amplified

	if v >= threshold {
		a.above++
		a.below = 0
		if a.above >= a.cfg.AssertCount {
			a.detected = true
		}
	} else {
		a.below++
		a.above = 0
		if a.below >= a.cfg.RetractCount {
			a.detected = false
		}
	}

	var confidence float64
	if threshold > 0 {
		// 0 at the threshold, saturating at 2x threshold distance.
		confidence = clamp01((v - threshold) / threshold)
		if !a.detected {
			confidence = clamp01((threshold - v) / threshold)
		}
	}

	return Vote{
		SourceID:   a.ID(),
		Detected:   a.detected,
		Confidence: confidence,
		UpdatedAt:  now,
	}
}

// Reset clears counters and the detection state.
func (a *AmplitudeSource) Reset() {
	a.above = 0
	a.below = 0
	a.detected = false
}
