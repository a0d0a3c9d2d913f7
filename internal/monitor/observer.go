package monitor

import (
	"time"

	"github.com/sweeney/pulse-sensor/internal/detect"
	"github.com/sweeney/pulse-sensor/internal/ppg"
)

// BeatEvent describes one accepted heartbeat.
type BeatEvent struct {
	At              time.Time
	HeartRate       int
	IsArrhythmia    bool
	ArrhythmiaCount int
	Confidence      float64
}

// Observer receives session events. Callbacks run synchronously inside
// Process; implementations that do slow work should hand off to their
// own goroutine.
type Observer interface {
	OnBeat(ev BeatEvent)
	OnPresence(tr detect.Transition)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnBeat(BeatEvent) {}

func (NopObserver) OnPresence(detect.Transition) {}

// Enhancer is an optional pluggable refinement step for the per-tick
// value, for hosts that carry a trained model.
type Enhancer interface {
	// Enhance returns a refined value and a confidence in [0,1].
	Enhance(sample ppg.Sample) (value, confidence float64)
}

// NopEnhancer passes the amplified value through at zero confidence,
// which consumers treat as "no opinion".
type NopEnhancer struct{}

func (NopEnhancer) Enhance(sample ppg.Sample) (float64, float64) {
	return sample.Amplified, 0
}
