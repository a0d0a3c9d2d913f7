package ppg

import (
	"math"
	"time"
)

// SimSource generates a synthetic PPG waveform: slow baseline wander,
// a systolic peak and dicrotic notch per cardiac cycle, plus cheap
// deterministic noise. Not clinical — just shaped well enough to drive
// the peak detector and channels in the demo daemon.
type SimSource struct {
	rateHz float64 // sample rate
	bpm    float64
	noise  float64
	phase  float64
	now    func() time.Time
}

// NewSimSource creates a simulator. rateHz is the acquisition rate
// (typically 25-30), bpm the simulated heart rate, noise the noise
// amplitude (0.0-0.05 is realistic).
func NewSimSource(rateHz, bpm, noise float64) *SimSource {
	return &SimSource{rateHz: rateHz, bpm: bpm, noise: noise, now: time.Now}
}

// Read returns the next synthetic sample and advances the cycle phase.
func (s *SimSource) Read() (Sample, error) {
	cycleHz := s.bpm / 60.0
	s.phase += cycleHz / s.rateHz
	if s.phase >= 1.0 {
		s.phase -= 1.0
	}
	t := s.phase

	baseline := 0.05 * math.Sin(2*math.Pi*0.25*t)
	systolic := 1.0 * gauss(t, 0.20, 0.045)
	notch := -0.12 * gauss(t, 0.38, 0.02)
	diastolic := 0.28 * gauss(t, 0.48, 0.06)
	n := s.noise * (2*fract(math.Sin(12345.678*t)*9876.543) - 1)

	raw := baseline + systolic + notch + diastolic + n
	filtered := baseline + systolic + notch + diastolic

	return Sample{
		Timestamp:      s.now(),
		Raw:            raw,
		Filtered:       filtered,
		Amplified:      filtered * 1.5,
		Quality:        85,
		FingerDetected: true,
	}, nil
}

// Close is a no-op for the simulator.
func (s *SimSource) Close() error { return nil }

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

func fract(x float64) float64 { return x - math.Floor(x) }
