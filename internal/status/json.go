package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event           string                 `json:"event,omitempty"`
	Reason          string                 `json:"reason,omitempty"`
	SessionID       string                 `json:"session_id"`
	HeartRate       int                    `json:"heart_rate_bpm"`
	Arrhythmia      bool                   `json:"arrhythmia"`
	ArrhythmiaCount int                    `json:"arrhythmia_count"`
	Presence        bool                   `json:"finger_present"`
	PresenceScore   float64                `json:"presence_score"`
	UptimeSeconds   int64                  `json:"uptime_seconds"`
	StartTime       string                 `json:"start_time"`
	Timestamp       string                 `json:"timestamp"`
	MQTT            MQTTStatus             `json:"mqtt"`
	Channels        map[string]ChannelJSON `json:"channels,omitempty"`
	Calibration     CalibrationJSON        `json:"calibration"`
	Config          ConfigJSON             `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ChannelJSON is the JSON representation of one channel reading.
type ChannelJSON struct {
	Value   float64 `json:"value"`
	Quality float64 `json:"quality"`
	Faulted bool    `json:"faulted,omitempty"`
}

// CalibrationJSON is the JSON representation of calibration params.
type CalibrationJSON struct {
	SensitivityLevel         float64 `json:"sensitivity_level"`
	AmplitudeThreshold       float64 `json:"amplitude_threshold"`
	RhythmThreshold          float64 `json:"rhythm_threshold"`
	EnvironmentQualityFactor float64 `json:"environment_quality_factor"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs      int64  `json:"tick_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
}

func buildInner(snap Snapshot) StatusInner {
	var channels map[string]ChannelJSON
	if len(snap.Channels) > 0 {
		channels = make(map[string]ChannelJSON, len(snap.Channels))
		for typ, r := range snap.Channels {
			channels[string(typ)] = ChannelJSON{Value: r.Value, Quality: r.Quality, Faulted: r.Faulted}
		}
	}

	return StatusInner{
		SessionID:       snap.SessionID,
		HeartRate:       snap.HeartRate,
		Arrhythmia:      snap.Arrhythmia,
		ArrhythmiaCount: snap.ArrhythmiaCount,
		Presence:        snap.Presence,
		PresenceScore:   snap.PresenceScore,
		UptimeSeconds:   int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:       snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:       snap.Now.UTC().Format(time.RFC3339),
		MQTT:            MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Channels:        channels,
		Calibration: CalibrationJSON{
			SensitivityLevel:         snap.Calibration.SensitivityLevel,
			AmplitudeThreshold:       snap.Calibration.AmplitudeThreshold,
			RhythmThreshold:          snap.Calibration.RhythmThreshold,
			EnvironmentQualityFactor: snap.Calibration.EnvironmentQualityFactor,
		},
		Config: ConfigJSON{
			TickMs:      snap.Config.TickMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
