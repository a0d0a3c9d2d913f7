package internal

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/sweeney/pulse-sensor/internal/channel"
	"github.com/sweeney/pulse-sensor/internal/detect"
	"github.com/sweeney/pulse-sensor/internal/monitor"
	"github.com/sweeney/pulse-sensor/internal/ppg"
	"github.com/sweeney/pulse-sensor/internal/status"
	"github.com/sweeney/pulse-sensor/internal/telemetry"
)

var startTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func tickTime(i int) time.Time {
	return startTime.Add(time.Duration(i) * 40 * time.Millisecond)
}

// pulseSamples returns a raised sinusoid with one clean pulse every 20
// samples: 800ms between peaks at a 40ms tick.
func pulseSamples(n int) []ppg.Sample {
	out := make([]ppg.Sample, n)
	for i := range out {
		out[i] = ppg.Sample{
			Timestamp:      tickTime(i),
			Amplified:      0.8 + 0.4*math.Sin(2*math.Pi*float64(i)/20),
			Quality:        90,
			FingerDetected: true,
		}
	}
	return out
}

// newSession builds a session with the cardiac filter blend turned off
// so the scripted waveform reaches the peak detector unchanged.
func newSession(opts ...monitor.Option) *monitor.Session {
	sess := monitor.NewSession(monitor.DefaultConfig(), opts...)
	zero := 0.0
	sess.Feedback(channel.Feedback{
		Channel:     channel.TypeCardiac,
		Adjustments: channel.Adjustments{FilterStrength: &zero},
	})
	return sess
}

// mqttObserver forwards session events straight to the publisher, the
// way the daemon's observer does.
type mqttObserver struct {
	pub telemetry.Publisher
}

func (o mqttObserver) OnBeat(ev monitor.BeatEvent) { o.pub.PublishBeat(ev) }

func (o mqttObserver) OnPresence(tr detect.Transition) { o.pub.PublishPresence(tr) }

// TestIntegrationFullFlow tests the complete flow from sample source to
// MQTT using fakes.
func TestIntegrationFullFlow(t *testing.T) {
	samples := pulseSamples(160)
	src := ppg.NewFakeSource(samples)
	publisher := telemetry.NewFakePublisher()
	sess := newSession(monitor.WithObserver(mqttObserver{pub: publisher}))

	for i := range samples {
		sample, err := src.Read()
		if err != nil {
			t.Fatalf("sample %d: read error: %v", i, err)
		}
		sess.Process(sample, tickTime(i))
	}

	if len(publisher.Beats) < 5 {
		t.Fatalf("expected at least 5 beats, got %d", len(publisher.Beats))
	}
	last := publisher.Beats[len(publisher.Beats)-1]
	if last.HeartRate != 75 {
		t.Errorf("last beat heart rate: got %d, want 75", last.HeartRate)
	}
	if last.IsArrhythmia {
		t.Error("steady pulse should not be arrhythmic")
	}

	if len(publisher.Presences) != 1 {
		t.Fatalf("expected 1 presence transition, got %d", len(publisher.Presences))
	}
	if !publisher.Presences[0].Detected {
		t.Error("expected presence transition to detected=true")
	}

	// Verify JSON payloads
	var beat telemetry.BeatPayload
	if err := json.Unmarshal(publisher.BeatPayloads[len(publisher.BeatPayloads)-1], &beat); err != nil {
		t.Fatalf("beat payload: invalid JSON: %v", err)
	}
	if beat.Pulse.HeartRate != 75 {
		t.Errorf("beat payload heart rate: got %d, want 75", beat.Pulse.HeartRate)
	}
	if beat.Pulse.Timestamp == "" {
		t.Error("beat payload missing timestamp")
	}

	var presence telemetry.PresencePayload
	if err := json.Unmarshal(publisher.PresencePayloads[0], &presence); err != nil {
		t.Fatalf("presence payload: invalid JSON: %v", err)
	}
	if !presence.Presence.Detected {
		t.Error("presence payload: expected detected=true")
	}
}

// TestIntegrationNoEventsWithoutSignal verifies a flat, low-quality
// stream produces no beats and no presence transition.
func TestIntegrationNoEventsWithoutSignal(t *testing.T) {
	publisher := telemetry.NewFakePublisher()
	sess := newSession(monitor.WithObserver(mqttObserver{pub: publisher}))

	for i := 0; i < 100; i++ {
		sess.Process(ppg.Sample{
			Timestamp: tickTime(i),
			Amplified: 0.05,
			Quality:   30,
		}, tickTime(i))
	}

	if len(publisher.Beats) != 0 {
		t.Errorf("expected 0 beats on a flat stream, got %d", len(publisher.Beats))
	}
	if len(publisher.Presences) != 0 {
		t.Errorf("expected 0 presence transitions, got %d", len(publisher.Presences))
	}
}

// TestIntegrationStatusTracksSession verifies the tracker's JSON view
// reflects the session after a steady pulse.
func TestIntegrationStatusTracksSession(t *testing.T) {
	samples := pulseSamples(160)
	sess := newSession()
	tracker := status.NewTracker(startTime, status.Config{
		TickMs:      40,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPPort:    ":80",
	})

	for i := range samples {
		res := sess.Process(samples[i], tickTime(i))
		snap := sess.Snapshot()
		tracker.Update(snap.ID, snap.HeartRate, res.Cardiac.IsArrhythmia, snap.ArrhythmiaCount, snap.Presence, snap.PresenceScore, snap.Outputs, snap.Params)
	}
	tracker.SetMQTTConnected(true)

	var sj status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(tracker.Snapshot()), &sj); err != nil {
		t.Fatalf("status JSON: %v", err)
	}

	if sj.Status.SessionID != sess.ID() {
		t.Errorf("session id: got %q, want %q", sj.Status.SessionID, sess.ID())
	}
	if sj.Status.HeartRate != 75 {
		t.Errorf("heart rate: got %d, want 75", sj.Status.HeartRate)
	}
	if !sj.Status.Presence {
		t.Error("expected finger_present=true")
	}
	if len(sj.Status.Channels) != 6 {
		t.Errorf("channels: got %d, want 6", len(sj.Status.Channels))
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected mqtt connected")
	}
}

// TestIntegrationStartupThenShutdown verifies the full lifecycle event
// sequence the daemon publishes.
func TestIntegrationStartupThenShutdown(t *testing.T) {
	publisher := telemetry.NewFakePublisher()
	tracker := status.NewTracker(startTime, status.Config{
		TickMs:      40,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPPort:    ":80",
	})

	snap := tracker.Snapshot()
	startup := telemetry.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		t.Fatalf("startup publish error: %v", err)
	}

	shutdown := telemetry.SystemEvent{
		Timestamp:  snap.Now.Add(time.Minute),
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", "SIGTERM"),
	}
	if err := publisher.PublishSystem(shutdown); err != nil {
		t.Fatalf("shutdown publish error: %v", err)
	}

	if len(publisher.SystemEvents) != 2 {
		t.Fatalf("expected 2 system events, got %d", len(publisher.SystemEvents))
	}
	if publisher.SystemEvents[0].Event != "STARTUP" {
		t.Errorf("first system event should be STARTUP, got %s", publisher.SystemEvents[0].Event)
	}
	if publisher.SystemEvents[1].Event != "SHUTDOWN" {
		t.Errorf("second system event should be SHUTDOWN, got %s", publisher.SystemEvents[1].Event)
	}

	// Lifecycle payloads are full status snapshots.
	var sj status.StatusJSON
	if err := json.Unmarshal(publisher.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("startup payload: invalid JSON: %v", err)
	}
	if sj.Status.Event != "STARTUP" {
		t.Errorf("startup payload event: got %q, want STARTUP", sj.Status.Event)
	}
	if sj.Status.Config.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("startup payload broker: got %q", sj.Status.Config.Broker)
	}

	if err := json.Unmarshal(publisher.SystemPayloads[1], &sj); err != nil {
		t.Fatalf("shutdown payload: invalid JSON: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" {
		t.Errorf("shutdown payload event: got %q, want SHUTDOWN", sj.Status.Event)
	}
	if sj.Status.Reason != "SIGTERM" {
		t.Errorf("shutdown payload reason: got %q, want SIGTERM", sj.Status.Reason)
	}
}

// TestIntegrationFeedbackRoundTrip verifies downstream feedback reaches
// the targeted channel through the session.
func TestIntegrationFeedbackRoundTrip(t *testing.T) {
	sess := newSession()

	amp := 2.0
	strength := 0.0
	sess.Feedback(channel.Feedback{
		Channel:       channel.TypeGlucose,
		SignalQuality: 0.9,
		Success:       true,
		Adjustments:   channel.Adjustments{Amplification: &amp, FilterStrength: &strength},
	})

	res := sess.Process(ppg.Sample{Timestamp: tickTime(0), Amplified: 1.0, Quality: 85}, tickTime(0))
	out := res.Outputs[channel.TypeGlucose]
	if math.Abs(out.Value-2.0) > 1e-9 {
		t.Errorf("glucose output after feedback: got %v, want 2.0", out.Value)
	}
}
