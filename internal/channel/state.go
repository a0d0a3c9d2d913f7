package channel

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sweeney/pulse-sensor/internal/filter"
)

// ring is a bounded FIFO of recent channel values.
type ring struct {
	buf []float64
	cap int
}

func newRing(capacity int) *ring {
	return &ring{cap: capacity}
}

func (r *ring) push(v float64) {
	r.buf = append(r.buf, v)
	if len(r.buf) > r.cap {
		r.buf = r.buf[1:]
	}
}

func (r *ring) len() int { return len(r.buf) }

// last returns the n most recent values, oldest first. n larger than
// the fill returns everything.
func (r *ring) last(n int) []float64 {
	if n >= len(r.buf) {
		return r.buf
	}
	return r.buf[len(r.buf)-n:]
}

func (r *ring) clear() { r.buf = r.buf[:0] }

// state is the per-channel mutable state: ring buffer, tuning
// parameters and the adaptive filter instance. Exclusively owned by
// its channel; the hub serializes processing and feedback.
type state struct {
	typ            Type
	buf            *ring
	amplification  float64
	filterStrength float64
	quality        float64
	bank           filter.Filter
	last           float64
	haveLast       bool
}

func newState(typ Type, cfg Config) state {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	bank, err := filter.New(cfg.Filter)
	if err != nil {
		bank, _ = filter.New(filter.DefaultConfig())
	}
	return state{
		typ:            typ,
		buf:            newRing(cfg.BufferSize),
		amplification:  1.0,
		filterStrength: 0.5,
		bank:           bank,
	}
}

// Type identifies the channel.
func (s *state) Type() Type { return s.typ }

// prepare applies amplification and the filter bank (blended by filter
// strength), pushes the result into the buffer and refreshes quality.
// Variants call this first, then run their pure transform.
func (s *state) prepare(amplified float64) float64 {
	v := amplified * s.amplification
	fv := s.bank.Process(v)
	v = v*(1-s.filterStrength) + fv*s.filterStrength
	s.buf.push(v)
	s.quality = s.computeQuality()
	return v
}

// computeQuality scores the recent buffer on amplitude, variance
// stability, and pulsatility (sign changes around the mean).
func (s *state) computeQuality() float64 {
	window := s.buf.last(30)
	if len(window) < 5 {
		return 0
	}

	lo, hi := window[0], window[0]
	for _, v := range window {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	amplitude := hi - lo
	if amplitude <= 0 {
		return 0
	}

	mean, std := stat.MeanStdDev(window, nil)

	// Pulsatile signals oscillate around their mean; count crossings.
	crossings := 0
	prevAbove := window[0] > mean
	for _, v := range window[1:] {
		above := v > mean
		if above != prevAbove {
			crossings++
			prevAbove = above
		}
	}
	pulsatility := clamp01(float64(crossings) / (float64(len(window)) * 0.4))

	// A pulse wave keeps its spread well below its peak-to-peak range.
	stability := clamp01(1 - math.Abs(std/amplitude-0.3)*2)

	ampScore := clamp01(amplitude / 0.2)

	return clamp01(0.4*ampScore + 0.3*stability + 0.3*pulsatility)
}

// record stores the optimized value as last-known-good.
func (s *state) record(v float64) {
	s.last = v
	s.haveLast = true
}

// ApplyFeedback clamps and applies amplification and filter-strength
// suggestions. Unknown or nil fields are ignored.
func (s *state) ApplyFeedback(fb Feedback) {
	if fb.Adjustments.Amplification != nil {
		s.amplification = clampRange(*fb.Adjustments.Amplification, minAmplification, maxAmplification)
	}
	if fb.Adjustments.FilterStrength != nil {
		s.filterStrength = clampRange(*fb.Adjustments.FilterStrength, minFilterStrength, maxFilterStrength)
	}
}

// Reset clears the buffer, quality and filter state. Tuning parameters
// survive: feedback-derived gain is not transient state.
func (s *state) Reset() {
	s.buf.clear()
	s.quality = 0
	s.bank.Reset()
	s.haveLast = false
	s.last = 0
}

// Quality returns the current quality estimate, [0,1].
func (s *state) Quality() float64 { return s.quality }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
