// Package channel specializes the single preprocessed PPG stream into
// per-measurement channels. Every channel shares the same contract: a
// pure per-type transform over the amplified sample, a bounded ring
// buffer of recent values, a quality estimate recomputed each step,
// and clamped feedback-driven retuning. The hub owns the channels,
// routes samples and feedback, and isolates per-channel faults.
package channel

import (
	"time"

	"github.com/sweeney/pulse-sensor/internal/filter"
	"github.com/sweeney/pulse-sensor/internal/ppg"
)

// Type names a measurement channel.
type Type string

const (
	TypeCardiac       Type = "cardiac"
	TypeSpO2          Type = "spo2"
	TypeBloodPressure Type = "blood_pressure"
	TypeGlucose       Type = "glucose"
	TypeLipids        Type = "lipids"
	TypeHydration     Type = "hydration"
)

// Output is one channel's result for one sample.
type Output struct {
	Type    Type
	Value   float64
	Quality float64 // [0,1]

	// Faulted marks an output synthesized by the hub after the
	// channel's transform failed; Value is then the last good value
	// and Quality is 0.
	Faulted bool
}

// Adjustments carries optional parameter suggestions from a downstream
// estimator. Nil fields are left untouched.
type Adjustments struct {
	Amplification  *float64
	FilterStrength *float64
	PeakThreshold  *float64
}

// Feedback retunes one channel. Applied once, then discarded.
type Feedback struct {
	Channel       Type
	SignalQuality float64
	Success       bool
	Adjustments   Adjustments
	Timestamp     time.Time
}

// Channel is the capability shared by all six variants.
type Channel interface {
	// Type identifies the channel for routing.
	Type() Type

	// Process consumes one sample and returns the optimized value
	// plus the recomputed quality.
	Process(sample ppg.Sample) Output

	// ApplyFeedback retunes the channel. Out-of-bounds suggestions
	// are clamped, never rejected.
	ApplyFeedback(fb Feedback)

	// Reset clears transient buffers and filter state.
	Reset()
}

// FullResetter is implemented by channels that additionally carry
// cross-session counters.
type FullResetter interface {
	FullReset()
}

// Config tunes the shared channel state.
type Config struct {
	// BufferSize bounds the recent-value ring buffer.
	BufferSize int `yaml:"buffer_size"`

	// Filter configures the adaptive filter bank instance each
	// channel owns.
	Filter filter.Config `yaml:"filter"`
}

// DefaultConfig returns the shared channel defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize: 50,
		Filter:     filter.DefaultConfig(),
	}
}

// Feedback bounds. Suggestions outside these are clamped.
const (
	minAmplification  = 0.5
	maxAmplification  = 3.0
	minFilterStrength = 0.0
	maxFilterStrength = 1.0
)
