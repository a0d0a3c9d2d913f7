package detect

import (
	"math"
	"testing"
	"time"

	"github.com/sweeney/pulse-sensor/internal/calib"
	"github.com/sweeney/pulse-sensor/internal/ppg"
)

func TestQualityAssertsOnCleanPulse(t *testing.T) {
	q := NewQualitySource(DefaultQualityConfig())
	params := calib.DefaultParams()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// A clean sinusoidal pulse well above the amplitude threshold.
	var vote Vote
	for i := 0; i < 30; i++ {
		v := 0.3 + 0.3*math.Sin(2*math.Pi*float64(i)/25)
		vote = q.Update(ppg.Sample{Amplified: v, Quality: 90}, params, now)
		now = now.Add(40 * time.Millisecond)
	}
	if !vote.Detected {
		t.Fatalf("clean pulse should clear the quality floor, confidence=%v", vote.Confidence)
	}
}

func TestQualityDeniesFlatSignal(t *testing.T) {
	q := NewQualitySource(DefaultQualityConfig())
	params := calib.DefaultParams()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var vote Vote
	for i := 0; i < 30; i++ {
		vote = q.Update(ppg.Sample{Amplified: 0.001, Quality: 10}, params, now)
		now = now.Add(40 * time.Millisecond)
	}
	if vote.Detected {
		t.Errorf("flat low-quality signal should be denied, confidence=%v", vote.Confidence)
	}
}

func TestQualityEnvironmentFactorScalesScore(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	feed := func(params calib.Params) Vote {
		q := NewQualitySource(DefaultQualityConfig())
		var vote Vote
		for i := 0; i < 30; i++ {
			v := 0.3 + 0.3*math.Sin(2*math.Pi*float64(i)/25)
			vote = q.Update(ppg.Sample{Amplified: v, Quality: 90}, params, now)
		}
		return vote
	}

	good := calib.DefaultParams()
	bad := calib.DefaultParams()
	bad.EnvironmentQualityFactor = 0.2

	if feed(bad).Confidence >= feed(good).Confidence {
		t.Error("hostile environment should lower the quality score")
	}
}

func TestQualityInsufficientWindow(t *testing.T) {
	q := NewQualitySource(DefaultQualityConfig())
	params := calib.DefaultParams()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	vote := q.Update(ppg.Sample{Amplified: 0.5, Quality: 90}, params, now)
	if vote.Detected || vote.Confidence != 0 {
		t.Errorf("one sample is not enough evidence: %+v", vote)
	}
}
