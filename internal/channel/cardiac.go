package channel

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/sweeney/pulse-sensor/internal/ppg"
)

// CardiacConfig tunes peak acceptance, RR tracking and arrhythmia
// classification. The deviation thresholds are tunable defaults, not
// physiological law.
type CardiacConfig struct {
	Channel Config `yaml:"channel"`

	// LocalMaxWindow is the window (in samples) the candidate must
	// dominate to count as a local maximum.
	LocalMaxWindow int `yaml:"local_max_window"`

	// PeakHistory bounds the accepted-peak amplitude history feeding
	// the adaptive threshold.
	PeakHistory int `yaml:"peak_history"`

	// ThresholdRatio scales the mean recent peak amplitude into the
	// adaptive acceptance threshold.
	ThresholdRatio float64 `yaml:"threshold_ratio"`

	// BootstrapThreshold is used until MinPeaksForThreshold peaks have
	// been accepted.
	BootstrapThreshold   float64 `yaml:"bootstrap_threshold"`
	MinPeaksForThreshold int     `yaml:"min_peaks_for_threshold"`

	// Refractory is the minimum spacing between accepted peaks.
	Refractory time.Duration `yaml:"refractory"`

	// RRMin/RRMax bound storable RR intervals; RRCapacity bounds the
	// RR FIFO.
	RRMin      time.Duration `yaml:"rr_min"`
	RRMax      time.Duration `yaml:"rr_max"`
	RRCapacity int           `yaml:"rr_capacity"`

	// HRMin/HRMax clamp the reported heart rate.
	HRMin int `yaml:"hr_min"`
	HRMax int `yaml:"hr_max"`

	// Arrhythmia rule parameters, evaluated over the last
	// ArrhythmiaWindow RR intervals.
	ArrhythmiaWindow int     `yaml:"arrhythmia_window"`
	HighHR           int     `yaml:"high_hr"`
	LowHR            int     `yaml:"low_hr"`
	DevHighHR        float64 `yaml:"dev_high_hr"`
	DevLowHR         float64 `yaml:"dev_low_hr"`
	DevBase          float64 `yaml:"dev_base"`
	DevWithRMSSD     float64 `yaml:"dev_with_rmssd"`
	RMSSDLimit       float64 `yaml:"rmssd_limit_ms"`
}

// DefaultCardiacConfig returns the standard cardiac tuning.
func DefaultCardiacConfig() CardiacConfig {
	return CardiacConfig{
		Channel:              DefaultConfig(),
		LocalMaxWindow:       5,
		PeakHistory:          10,
		ThresholdRatio:       0.6,
		BootstrapThreshold:   0.5,
		MinPeaksForThreshold: 3,
		Refractory:           250 * time.Millisecond,
		RRMin:                250 * time.Millisecond,
		RRMax:                2000 * time.Millisecond,
		RRCapacity:           10,
		HRMin:                30,
		HRMax:                220,
		ArrhythmiaWindow:     5,
		HighHR:               100,
		LowHR:                50,
		DevHighHR:            0.25,
		DevLowHR:             0.30,
		DevBase:              0.20,
		DevWithRMSSD:         0.15,
		RMSSDLimit:           50,
	}
}

// Result is the cardiac channel's per-sample analysis output.
type Result struct {
	IsPeak          bool
	HeartRate       int
	IsArrhythmia    bool
	ArrhythmiaCount int
	Confidence      float64
	RRCount         int
}

// CardiacChannel extends the shared channel with peak detection,
// RR-interval tracking, heart-rate estimation and arrhythmia
// classification.
type CardiacChannel struct {
	state
	cfg CardiacConfig

	// peak acceptance
	peakAmps     []float64
	lastPeakTime time.Time
	peakCount    int
	thresholdAdj float64 // feedback-suggested scale on the threshold

	// rhythm
	rr         []float64 // ms, newest last, bounded by RRCapacity
	heartRate  int
	arrhythmic bool
	arrCounter int

	result Result
}

// NewCardiacChannel creates the cardiac channel.
func NewCardiacChannel(cfg CardiacConfig) *CardiacChannel {
	d := DefaultCardiacConfig()
	if cfg.LocalMaxWindow < 3 {
		cfg.LocalMaxWindow = d.LocalMaxWindow
	}
	if cfg.PeakHistory <= 0 {
		cfg.PeakHistory = d.PeakHistory
	}
	if cfg.ThresholdRatio <= 0 {
		cfg.ThresholdRatio = d.ThresholdRatio
	}
	if cfg.Refractory <= 0 {
		cfg.Refractory = d.Refractory
	}
	if cfg.RRCapacity <= 0 {
		cfg.RRCapacity = d.RRCapacity
	}
	if cfg.RRMin <= 0 || cfg.RRMax <= cfg.RRMin {
		cfg.RRMin, cfg.RRMax = d.RRMin, d.RRMax
	}
	if cfg.HRMin <= 0 || cfg.HRMax <= cfg.HRMin {
		cfg.HRMin, cfg.HRMax = d.HRMin, d.HRMax
	}
	if cfg.ArrhythmiaWindow <= 1 {
		cfg.ArrhythmiaWindow = d.ArrhythmiaWindow
	}
	return &CardiacChannel{
		state:        newState(TypeCardiac, cfg.Channel),
		cfg:          cfg,
		thresholdAdj: 1.0,
	}
}

// Process runs the shared prepare step, then the peak state machine.
// With fewer than LocalMaxWindow buffered samples or fewer than two
// accepted peaks the result is the defined empty one: no peak,
// confidence 0, RR untouched.
func (c *CardiacChannel) Process(sample ppg.Sample) Output {
	v := c.prepare(sample.Amplified)
	c.record(v)

	accepted := false
	if c.buf.len() >= c.cfg.LocalMaxWindow {
		if amp, ok := c.candidatePeak(); ok {
			accepted = c.acceptPeak(amp, sample.Timestamp)
		}
	}

	c.result = Result{ArrhythmiaCount: c.arrCounter}
	if c.peakCount >= 2 {
		c.result = Result{
			IsPeak:          accepted,
			HeartRate:       c.heartRate,
			IsArrhythmia:    c.arrhythmic,
			ArrhythmiaCount: c.arrCounter,
			Confidence:      c.confidence(),
			RRCount:         len(c.rr),
		}
	}

	return Output{Type: c.typ, Value: v, Quality: c.quality}
}

// candidatePeak checks whether the center of the local-max window is a
// peak that clears the adaptive threshold. Detection therefore lags by
// half the window, which at 25-30Hz keeps RR spacing exact while
// letting the falling edge confirm the crest.
func (c *CardiacChannel) candidatePeak() (float64, bool) {
	w := c.buf.last(c.cfg.LocalMaxWindow)
	mid := len(w) / 2
	center := w[mid]

	for i, v := range w {
		if i == mid {
			continue
		}
		if i < mid && v >= center {
			return 0, false
		}
		if i > mid && v > center {
			return 0, false
		}
	}

	if center < c.peakThreshold() {
		return 0, false
	}
	return center, true
}

// peakThreshold is 60% of the mean of the recent accepted peak
// amplitudes, or the bootstrap default before enough peaks exist.
func (c *CardiacChannel) peakThreshold() float64 {
	if len(c.peakAmps) < c.cfg.MinPeaksForThreshold {
		return c.cfg.BootstrapThreshold * c.thresholdAdj
	}
	mean := stat.Mean(c.peakAmps, nil)
	return mean * c.cfg.ThresholdRatio * c.thresholdAdj
}

// acceptPeak applies the refractory gate, then records the beat and
// its RR interval. Returns whether the peak was accepted.
func (c *CardiacChannel) acceptPeak(amp float64, now time.Time) bool {
	if c.peakCount > 0 && now.Sub(c.lastPeakTime) < c.cfg.Refractory {
		return false
	}

	if c.peakCount > 0 {
		rr := now.Sub(c.lastPeakTime)
		// Out-of-range intervals are dropped silently: the beat still
		// counts, the interval does not.
		if rr >= c.cfg.RRMin && rr <= c.cfg.RRMax {
			c.recordInterval(float64(rr.Milliseconds()))
		}
	}

	c.peakAmps = append(c.peakAmps, amp)
	if len(c.peakAmps) > c.cfg.PeakHistory {
		c.peakAmps = c.peakAmps[1:]
	}
	c.lastPeakTime = now
	c.peakCount++
	return true
}

// recordInterval appends one RR interval, refreshes the heart rate and
// re-runs the arrhythmia classification.
func (c *CardiacChannel) recordInterval(rrMs float64) {
	c.rr = append(c.rr, rrMs)
	if len(c.rr) > c.cfg.RRCapacity {
		c.rr = c.rr[1:]
	}

	mean := stat.Mean(c.rr, nil)
	if mean > 0 {
		hr := int(math.Round(60000 / mean))
		if hr < c.cfg.HRMin {
			hr = c.cfg.HRMin
		}
		if hr > c.cfg.HRMax {
			hr = c.cfg.HRMax
		}
		c.heartRate = hr
	}

	c.classifyRhythm()
}

// classifyRhythm evaluates the last ArrhythmiaWindow intervals and
// updates the edge-counted arrhythmia state.
func (c *CardiacChannel) classifyRhythm() {
	n := len(c.rr)
	if n < 3 {
		return
	}
	w := c.rr
	if n > c.cfg.ArrhythmiaWindow {
		w = c.rr[n-c.cfg.ArrhythmiaWindow:]
	}

	mean := stat.Mean(w, nil)
	if mean <= 0 {
		return
	}
	var dev float64
	for _, rr := range w {
		d := math.Abs(rr-mean) / mean
		if d > dev {
			dev = d
		}
	}

	var sumSq float64
	for i := 1; i < len(w); i++ {
		d := w[i] - w[i-1]
		sumSq += d * d
	}
	rmssd := math.Sqrt(sumSq / float64(len(w)-1))

	arr := (c.heartRate > c.cfg.HighHR && dev > c.cfg.DevHighHR) ||
		(c.heartRate < c.cfg.LowHR && dev > c.cfg.DevLowHR) ||
		dev > c.cfg.DevBase ||
		(rmssd > c.cfg.RMSSDLimit && dev > c.cfg.DevWithRMSSD)

	// Count only the edge into the arrhythmic state.
	if arr && !c.arrhythmic {
		c.arrCounter++
	}
	c.arrhythmic = arr
}

// confidence blends RR consistency (1 - coefficient of variation) with
// the amplitude-derived quality.
func (c *CardiacChannel) confidence() float64 {
	if len(c.rr) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(c.rr, nil)
	if mean <= 0 {
		return 0
	}
	consistency := clamp01(1 - std/mean)
	return clamp01(0.6*consistency + 0.4*c.quality)
}

// Result returns the analysis from the most recent Process call.
func (c *CardiacChannel) Result() Result { return c.result }

// HeartRate returns the current estimate, 0 before enough beats.
func (c *CardiacChannel) HeartRate() int { return c.heartRate }

// ArrhythmiaCount returns the session arrhythmia counter.
func (c *CardiacChannel) ArrhythmiaCount() int { return c.arrCounter }

// ApplyFeedback additionally honors the peak-threshold suggestion,
// clamped to a sane scale.
func (c *CardiacChannel) ApplyFeedback(fb Feedback) {
	c.state.ApplyFeedback(fb)
	if fb.Adjustments.PeakThreshold != nil {
		c.thresholdAdj = clampRange(*fb.Adjustments.PeakThreshold, 0.5, 2.0)
	}
}

// Reset clears beats, RR history and heart rate, but preserves the
// arrhythmia counter: it is scoped to the monitoring session, not the
// buffer lifetime.
func (c *CardiacChannel) Reset() {
	c.state.Reset()
	c.peakAmps = nil
	c.lastPeakTime = time.Time{}
	c.peakCount = 0
	c.rr = nil
	c.heartRate = 0
	c.arrhythmic = false
	c.result = Result{ArrhythmiaCount: c.arrCounter}
}

// FullReset additionally zeroes the arrhythmia counter.
func (c *CardiacChannel) FullReset() {
	c.Reset()
	c.arrCounter = 0
	c.result = Result{}
}
