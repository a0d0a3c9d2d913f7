package detect

import (
	"testing"
	"time"

	"github.com/sweeney/pulse-sensor/internal/calib"
	"github.com/sweeney/pulse-sensor/internal/ppg"
)

// pulse feeds one synthetic beat: a sample below threshold, then one
// above 20ms later, then advances now by the given period. Keeping the
// crossing pinned near the period start makes the recorded intervals
// equal the scripted periods.
func pulse(r *RhythmSource, params calib.Params, now time.Time, period time.Duration) (Vote, time.Time) {
	low := ppg.Sample{Amplified: params.AmplitudeThreshold / 2}
	high := ppg.Sample{Amplified: params.AmplitudeThreshold * 2}
	r.Update(low, params, now)
	vote := r.Update(high, params, now.Add(20*time.Millisecond))
	return vote, now.Add(period)
}

func TestRhythmAssertsOnSteadyBeat(t *testing.T) {
	r := NewRhythmSource(DefaultRhythmConfig())
	params := calib.DefaultParams()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var vote Vote
	// 800ms beat spacing: perfectly regular. Needs MinIntervals
	// intervals plus ConsistentRuns in-tolerance evaluations.
	for i := 0; i < 8; i++ {
		vote, now = pulse(r, params, now, 800*time.Millisecond)
	}
	if !vote.Detected {
		t.Fatal("steady rhythm not detected")
	}
	if vote.Confidence <= 0.5 {
		t.Errorf("perfectly regular rhythm should carry high confidence, got %v", vote.Confidence)
	}
}

func TestRhythmRejectsIrregularSpacing(t *testing.T) {
	r := NewRhythmSource(DefaultRhythmConfig())
	params := calib.DefaultParams()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// Wildly varying spacing: CV stays above tolerance.
	periods := []time.Duration{400, 1500, 500, 1800, 450, 1600, 400, 1700}
	var vote Vote
	for _, p := range periods {
		vote, now = pulse(r, params, now, p*time.Millisecond)
	}
	if vote.Detected {
		t.Error("irregular rhythm should not assert detection")
	}
}

func TestRhythmIgnoresImplausibleIntervals(t *testing.T) {
	r := NewRhythmSource(DefaultRhythmConfig())
	params := calib.DefaultParams()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// 100ms spacing is below the physiological floor: intervals must
	// not accumulate.
	for i := 0; i < 10; i++ {
		_, now = pulse(r, params, now, 100*time.Millisecond)
	}
	if len(r.intervals) != 0 {
		t.Errorf("sub-floor intervals stored: %v", r.intervals)
	}
}

func TestRhythmConfidenceInverseToVariability(t *testing.T) {
	params := calib.DefaultParams()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	steady := NewRhythmSource(DefaultRhythmConfig())
	now := start
	var steadyVote Vote
	for i := 0; i < 8; i++ {
		steadyVote, now = pulse(steady, params, now, 800*time.Millisecond)
	}

	wobbly := NewRhythmSource(DefaultRhythmConfig())
	now = start
	var wobblyVote Vote
	// Mild jitter: still within tolerance, but higher CV.
	periods := []time.Duration{750, 870, 760, 860, 770, 850, 780, 840}
	for _, p := range periods {
		wobblyVote, now = pulse(wobbly, params, now, p*time.Millisecond)
	}

	if !steadyVote.Detected || !wobblyVote.Detected {
		t.Fatalf("both rhythms should be detected: steady=%v wobbly=%v", steadyVote.Detected, wobblyVote.Detected)
	}
	if wobblyVote.Confidence >= steadyVote.Confidence {
		t.Errorf("confidence should fall with variability: steady=%v wobbly=%v",
			steadyVote.Confidence, wobblyVote.Confidence)
	}
}

func TestRhythmReset(t *testing.T) {
	r := NewRhythmSource(DefaultRhythmConfig())
	params := calib.DefaultParams()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 8; i++ {
		_, now = pulse(r, params, now, 800*time.Millisecond)
	}
	r.Reset()
	if r.detected || len(r.intervals) != 0 {
		t.Error("reset should clear detection and intervals")
	}
}
