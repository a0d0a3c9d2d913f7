// Package detect decides whether the sensor is properly placed on the
// finger. Three independent sources (amplitude, rhythm, signal
// quality) each emit a vote per sample; Fusion combines the votes with
// per-source weights, age decay and a global hysteresis window into one
// stable boolean decision.
package detect

import (
	"time"

	"github.com/sweeney/pulse-sensor/internal/calib"
	"github.com/sweeney/pulse-sensor/internal/ppg"
)

// Vote is one source's current opinion. Fusion keeps exactly one slot
// per registered source and overwrites it on each update.
type Vote struct {
	SourceID   string
	Detected   bool
	Confidence float64 // [0,1]
	UpdatedAt  time.Time
}

// Source is a small independent placement classifier. Update is called
// once per sample with the current calibration snapshot.
type Source interface {
	// ID identifies the source for vote bookkeeping.
	ID() string

	// Update consumes one sample and returns the refreshed vote.
	Update(sample ppg.Sample, params calib.Params, now time.Time) Vote

	// Reset clears transient state (counters, interval history).
	Reset()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
