package telemetry

import (
	"github.com/sweeney/pulse-sensor/internal/detect"
	"github.com/sweeney/pulse-sensor/internal/monitor"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Beats contains all heartbeat events that were published.
	Beats []monitor.BeatEvent

	// BeatPayloads contains the JSON payloads for beat events.
	BeatPayloads [][]byte

	// Presences contains all presence transitions that were published.
	Presences []detect.Transition

	// PresencePayloads contains the JSON payloads for transitions.
	PresencePayloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishBeat and
	// PublishPresence.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishBeat records the heartbeat event.
func (f *FakePublisher) PublishBeat(ev monitor.BeatEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Beats = append(f.Beats, ev)

	payload, err := FormatBeatPayload(ev)
	if err != nil {
		return err
	}
	f.BeatPayloads = append(f.BeatPayloads, payload)

	return nil
}

// PublishPresence records the presence transition.
func (f *FakePublisher) PublishPresence(tr detect.Transition) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Presences = append(f.Presences, tr)

	payload, err := FormatPresencePayload(tr)
	if err != nil {
		return err
	}
	f.PresencePayloads = append(f.PresencePayloads, payload)

	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.Beats = nil
	f.BeatPayloads = nil
	f.Presences = nil
	f.PresencePayloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
