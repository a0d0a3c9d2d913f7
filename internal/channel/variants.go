package channel

import (
	"math"

	"github.com/sweeney/pulse-sensor/internal/ppg"
)

// The five non-cardiac variants below share the same skeleton: run the
// common prepare step (gain, filter bank, buffer, quality), then apply
// a pure per-measurement transform emphasizing that measurement's
// characteristic band.

// SpO2Channel separates the slow DC baseline from the fast AC
// pulsatile component and amplifies the AC part, since the oxygen
// ratio lives in the AC/DC relationship.
type SpO2Channel struct {
	state
	dcAlpha  float64
	emphasis float64
	dc       float64
	haveDC   bool
}

// NewSpO2Channel creates the SpO2 channel.
func NewSpO2Channel(cfg Config) *SpO2Channel {
	return &SpO2Channel{
		state:    newState(TypeSpO2, cfg),
		dcAlpha:  0.95,
		emphasis: 1.8,
	}
}

// Process runs the DC/AC decomposition.
func (c *SpO2Channel) Process(sample ppg.Sample) Output {
	v := c.prepare(sample.Amplified)
	if !c.haveDC {
		c.dc = v
		c.haveDC = true
	}
	c.dc = c.dcAlpha*c.dc + (1-c.dcAlpha)*v
	ac := v - c.dc
	out := c.dc + ac*c.emphasis
	c.record(out)
	return Output{Type: c.typ, Value: out, Quality: c.quality}
}

// Reset clears the DC tracker along with the shared state.
func (c *SpO2Channel) Reset() {
	c.state.Reset()
	c.haveDC = false
	c.dc = 0
}

// BloodPressureChannel emphasizes the systolic upslope and damps
// sub-baseline excursions harder than above-baseline ones, since the
// pressure estimate keys on the rising edge of each pulse.
type BloodPressureChannel struct {
	state
	baseAlpha float64
	slopeGain float64
	baseline  float64
	prev      float64
	havePrev  bool
}

// NewBloodPressureChannel creates the blood-pressure channel.
func NewBloodPressureChannel(cfg Config) *BloodPressureChannel {
	return &BloodPressureChannel{
		state:     newState(TypeBloodPressure, cfg),
		baseAlpha: 0.95,
		slopeGain: 2.0,
	}
}

// Process emphasizes rising slope and applies the asymmetric baseline
// penalty.
func (c *BloodPressureChannel) Process(sample ppg.Sample) Output {
	v := c.prepare(sample.Amplified)
	if !c.havePrev {
		c.prev = v
		c.baseline = v
		c.havePrev = true
	}
	c.baseline = c.baseAlpha*c.baseline + (1-c.baseAlpha)*v

	slope := v - c.prev
	c.prev = v

	out := v
	if slope > 0 {
		out += slope * c.slopeGain
	}
	excursion := out - c.baseline
	if excursion < 0 {
		// Diastolic dips carry less pressure information.
		out = c.baseline + excursion*0.5
	} else {
		out = c.baseline + excursion*1.2
	}
	c.record(out)
	return Output{Type: c.typ, Value: out, Quality: c.quality}
}

// Reset clears slope and baseline trackers.
func (c *BloodPressureChannel) Reset() {
	c.state.Reset()
	c.havePrev = false
	c.prev = 0
	c.baseline = 0
}

// GlucoseChannel is the slowest variant: a heavy low-pass trend with a
// small pulsatile residue, since the absorption signal of interest
// drifts over seconds.
type GlucoseChannel struct {
	state
	trendAlpha float64
	residue    float64
	trend      float64
	haveTrend  bool
}

// NewGlucoseChannel creates the glucose channel.
func NewGlucoseChannel(cfg Config) *GlucoseChannel {
	return &GlucoseChannel{
		state:      newState(TypeGlucose, cfg),
		trendAlpha: 0.98,
		residue:    0.15,
	}
}

// Process tracks the slow trend.
func (c *GlucoseChannel) Process(sample ppg.Sample) Output {
	v := c.prepare(sample.Amplified)
	if !c.haveTrend {
		c.trend = v
		c.haveTrend = true
	}
	c.trend = c.trendAlpha*c.trend + (1-c.trendAlpha)*v
	out := c.trend + (v-c.trend)*c.residue
	c.record(out)
	return Output{Type: c.typ, Value: out, Quality: c.quality}
}

// Reset clears the trend tracker.
func (c *GlucoseChannel) Reset() {
	c.state.Reset()
	c.haveTrend = false
	c.trend = 0
}

// LipidsChannel band-passes between two exponential trackers,
// emphasizing mid-band waveform shape where the lipid-related pulse
// morphology lives.
type LipidsChannel struct {
	state
	fastAlpha float64
	slowAlpha float64
	emphasis  float64
	fast      float64
	slow      float64
	primed    bool
}

// NewLipidsChannel creates the lipids channel.
func NewLipidsChannel(cfg Config) *LipidsChannel {
	return &LipidsChannel{
		state:     newState(TypeLipids, cfg),
		fastAlpha: 0.6,
		slowAlpha: 0.95,
		emphasis:  1.5,
	}
}

// Process extracts the mid-band component.
func (c *LipidsChannel) Process(sample ppg.Sample) Output {
	v := c.prepare(sample.Amplified)
	if !c.primed {
		c.fast = v
		c.slow = v
		c.primed = true
	}
	c.fast = c.fastAlpha*c.fast + (1-c.fastAlpha)*v
	c.slow = c.slowAlpha*c.slow + (1-c.slowAlpha)*v
	band := c.fast - c.slow
	out := c.slow + band*c.emphasis
	c.record(out)
	return Output{Type: c.typ, Value: out, Quality: c.quality}
}

// Reset clears both trackers.
func (c *LipidsChannel) Reset() {
	c.state.Reset()
	c.primed = false
	c.fast = 0
	c.slow = 0
}

// HydrationChannel splits the slow tissue-perfusion trend from fast
// pulsatile variance and blends both with fixed weights.
type HydrationChannel struct {
	state
	trendAlpha  float64
	trendWeight float64
	varWindow   int
	trend       float64
	haveTrend   bool
}

// NewHydrationChannel creates the hydration channel.
func NewHydrationChannel(cfg Config) *HydrationChannel {
	return &HydrationChannel{
		state:       newState(TypeHydration, cfg),
		trendAlpha:  0.97,
		trendWeight: 0.7,
		varWindow:   15,
	}
}

// Process blends trend and pulsatile variance.
func (c *HydrationChannel) Process(sample ppg.Sample) Output {
	v := c.prepare(sample.Amplified)
	if !c.haveTrend {
		c.trend = v
		c.haveTrend = true
	}
	c.trend = c.trendAlpha*c.trend + (1-c.trendAlpha)*v

	window := c.buf.last(c.varWindow)
	var variance float64
	if len(window) > 1 {
		var mean float64
		for _, w := range window {
			mean += w
		}
		mean /= float64(len(window))
		for _, w := range window {
			variance += (w - mean) * (w - mean)
		}
		variance /= float64(len(window))
	}
	pulsatile := math.Sqrt(variance)

	out := c.trend*c.trendWeight + pulsatile*(1-c.trendWeight)
	c.record(out)
	return Output{Type: c.typ, Value: out, Quality: c.quality}
}

// Reset clears the trend tracker.
func (c *HydrationChannel) Reset() {
	c.state.Reset()
	c.haveTrend = false
	c.trend = 0
}
