// Package telemetry publishes pulse events over MQTT, with an
// abstraction for testing and an offline buffer for flaky links.
package telemetry

import (
	"encoding/json"
	"time"

	"github.com/sweeney/pulse-sensor/internal/detect"
	"github.com/sweeney/pulse-sensor/internal/monitor"
)

// TopicBeats is the MQTT topic for heartbeat events.
const TopicBeats = "vitals/pulse/sensor/beats"

// TopicPresence is the MQTT topic for finger-presence transitions.
const TopicPresence = "vitals/pulse/sensor/presence"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "vitals/pulse/sensor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishBeat sends one accepted heartbeat to the broker.
	// Returns error if publishing fails (must not crash the process).
	PublishBeat(ev monitor.BeatEvent) error

	// PublishPresence sends a finger-presence transition to the broker.
	PublishPresence(tr detect.Transition) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event
// (e.g. startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g. "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g. "SIGTERM", "SIGINT" (shutdown only)
	Config     *SystemConfig
	Heartbeat  *HeartbeatInfo
	RawPayload []byte // Pre-formatted JSON; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// SystemConfig is the daemon configuration carried by STARTUP events.
type SystemConfig struct {
	TickMs      int64  `json:"tick_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
}

// HeartbeatInfo is the periodic liveness payload.
type HeartbeatInfo struct {
	UptimeSeconds   int64 `json:"uptime_seconds"`
	BeatCount       int   `json:"beat_count"`
	ArrhythmiaCount int   `json:"arrhythmia_count"`
}

// BeatPayload is the MQTT message structure for heartbeat events.
type BeatPayload struct {
	Pulse BeatInner `json:"pulse"`
}

// BeatInner contains the heartbeat details.
type BeatInner struct {
	Timestamp       string  `json:"timestamp"`
	HeartRate       int     `json:"heart_rate_bpm"`
	Arrhythmia      bool    `json:"arrhythmia"`
	ArrhythmiaCount int     `json:"arrhythmia_count"`
	Confidence      float64 `json:"confidence"`
}

// FormatBeatPayload creates the JSON payload for a heartbeat event.
func FormatBeatPayload(ev monitor.BeatEvent) ([]byte, error) {
	payload := BeatPayload{
		Pulse: BeatInner{
			Timestamp:       ev.At.UTC().Format(time.RFC3339),
			HeartRate:       ev.HeartRate,
			Arrhythmia:      ev.IsArrhythmia,
			ArrhythmiaCount: ev.ArrhythmiaCount,
			Confidence:      ev.Confidence,
		},
	}
	return json.Marshal(payload)
}

// PresencePayload is the MQTT message structure for presence changes.
type PresencePayload struct {
	Presence PresenceInner `json:"presence"`
}

// PresenceInner contains the presence transition details.
type PresenceInner struct {
	Timestamp  string  `json:"timestamp"`
	Detected   bool    `json:"detected"`
	Confidence float64 `json:"confidence"`
}

// FormatPresencePayload creates the JSON payload for a presence
// transition.
func FormatPresencePayload(tr detect.Transition) ([]byte, error) {
	payload := PresencePayload{
		Presence: PresenceInner{
			Timestamp:  tr.At.UTC().Format(time.RFC3339),
			Detected:   tr.Detected,
			Confidence: tr.Confidence,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the MQTT message structure for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string         `json:"timestamp"`
	Event     string         `json:"event"`
	Reason    string         `json:"reason,omitempty"`
	Config    *SystemConfig  `json:"config,omitempty"`
	Heartbeat *HeartbeatInfo `json:"heartbeat,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full
// status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			Config:    event.Config,
			Heartbeat: event.Heartbeat,
		},
	}
	return json.Marshal(payload)
}
