package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sweeney/pulse-sensor/internal/ppg"
)

// bombChannel reports the sample index as its value and panics on cue.
type bombChannel struct {
	typ     Type
	n       int
	panicOn map[int]bool

	feedback []Feedback
	resets   int
}

func newBomb(typ Type, panicOn ...int) *bombChannel {
	m := make(map[int]bool, len(panicOn))
	for _, i := range panicOn {
		m[i] = true
	}
	return &bombChannel{typ: typ, panicOn: m}
}

func (b *bombChannel) Type() Type { return b.typ }

func (b *bombChannel) Process(sample ppg.Sample) Output {
	i := b.n
	b.n++
	if b.panicOn[i] {
		panic("transform blew up")
	}
	return Output{Type: b.typ, Value: float64(i), Quality: 1}
}

func (b *bombChannel) ApplyFeedback(fb Feedback) { b.feedback = append(b.feedback, fb) }
func (b *bombChannel) Reset()                    { b.resets++ }

func hubSample(i int) ppg.Sample {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return ppg.Sample{
		Timestamp: start.Add(time.Duration(i) * 40 * time.Millisecond),
		Amplified: 1.0 + 0.2*float64(i%5),
		Quality:   85,
	}
}

// TestHubFaultIsolation runs the same sample stream through two hubs,
// one with an extra channel that panics mid-stream, and requires the
// healthy channels' outputs to be bit-identical in both.
func TestHubFaultIsolation(t *testing.T) {
	withBomb := NewHub(nil)
	withBomb.Register(NewSpO2Channel(DefaultConfig()))
	withBomb.Register(newBomb(Type("bomb"), 25))
	withBomb.Register(NewGlucoseChannel(DefaultConfig()))

	clean := NewHub(nil)
	clean.Register(NewSpO2Channel(DefaultConfig()))
	clean.Register(NewGlucoseChannel(DefaultConfig()))

	for i := 0; i < 50; i++ {
		s := hubSample(i)
		got := withBomb.Process(s)
		want := clean.Process(s)

		require.Equal(t, want[TypeSpO2], got[TypeSpO2], "sample %d", i)
		require.Equal(t, want[TypeGlucose], got[TypeGlucose], "sample %d", i)
	}
	require.Equal(t, 1, withBomb.FaultCount(Type("bomb")))
	require.Zero(t, withBomb.FaultCount(TypeSpO2))
}

func TestHubFaultedOutputHoldsLastGood(t *testing.T) {
	h := NewHub(nil)
	h.Register(newBomb(Type("bomb"), 10))

	var outs []Output
	for i := 0; i < 13; i++ {
		outs = append(outs, h.Process(hubSample(i))[Type("bomb")])
	}

	require.Equal(t, 9.0, outs[9].Value)
	require.False(t, outs[9].Faulted)

	require.True(t, outs[10].Faulted)
	require.Equal(t, 9.0, outs[10].Value, "faulted output holds the last good value")
	require.Zero(t, outs[10].Quality)

	require.False(t, outs[11].Faulted, "channel recovers on the next sample")
	require.Equal(t, 11.0, outs[11].Value)
}

func TestHubFaultBeforeAnyGoodValue(t *testing.T) {
	h := NewHub(nil)
	h.Register(newBomb(Type("bomb"), 0))

	out := h.Process(hubSample(0))[Type("bomb")]
	require.True(t, out.Faulted)
	require.Zero(t, out.Value, "no history yet, hold zero")
}

func TestHubFeedbackRouting(t *testing.T) {
	h := NewHub(nil)
	b := newBomb(Type("bomb"))
	h.Register(b)

	fb := Feedback{Channel: Type("bomb"), SignalQuality: 0.4}
	h.ApplyFeedback(fb)
	require.Len(t, b.feedback, 1)

	// Unknown channel: dropped, no panic, nothing delivered.
	h.ApplyFeedback(Feedback{Channel: Type("nope")})
	require.Len(t, b.feedback, 1)
}

func TestHubRegisterReplaceForgetsLastGood(t *testing.T) {
	h := NewHub(nil)
	h.Register(newBomb(Type("bomb")))
	h.Process(hubSample(0)) // lastGood = 0.0... feed a couple
	h.Process(hubSample(1)) // lastGood = 1.0

	h.Register(newBomb(Type("bomb"), 0))
	out := h.Process(hubSample(2))[Type("bomb")]
	require.True(t, out.Faulted)
	require.Zero(t, out.Value, "replacement must not inherit the old channel's last value")

	require.Len(t, h.Types(), 1, "re-registration keeps a single slot")
}

func TestHubResetSemantics(t *testing.T) {
	h := NewHub(nil)
	cardiac := NewCardiacChannel(DefaultCardiacConfig())
	h.Register(cardiac)
	h.Register(newBomb(Type("bomb"), 3))

	for i := 0; i < 4; i++ {
		cardiac.recordInterval(800)
	}
	cardiac.recordInterval(400)
	require.Equal(t, 1, cardiac.ArrhythmiaCount())

	for i := 0; i < 5; i++ {
		h.Process(hubSample(i))
	}
	require.Equal(t, 1, h.FaultCount(Type("bomb")))

	h.Reset()
	require.Equal(t, 1, cardiac.ArrhythmiaCount(), "plain reset keeps the session counter")
	require.Empty(t, cardiac.rr)
	require.Equal(t, 1, h.FaultCount(Type("bomb")), "fault history survives a plain reset")

	h.FullReset()
	require.Zero(t, cardiac.ArrhythmiaCount())
	require.Zero(t, h.FaultCount(Type("bomb")))
}
