// Package status provides a thread-safe status tracker for the
// pulse-sensor daemon. It is read by the HTTP handlers and the LED
// driver while the run loop writes it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/pulse-sensor/internal/calib"
	"github.com/sweeney/pulse-sensor/internal/channel"
)

// Config contains daemon configuration for display.
type Config struct {
	TickMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
}

// ChannelReading is one channel's latest output for display.
type ChannelReading struct {
	Value   float64
	Quality float64
	Faulted bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	SessionID       string
	HeartRate       int
	Arrhythmia      bool
	ArrhythmiaCount int
	Presence        bool
	PresenceScore   float64
	Channels        map[channel.Type]ChannelReading
	Calibration     calib.Params
	StartTime       time.Time
	Now             time.Time
	MQTTConnected   bool
	Config          Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the latest tick's vitals. Called from runLoop on
// every tick.
func (t *Tracker) Update(sessionID string, hr int, arrhythmia bool, arrCount int, presence bool, score float64, outputs map[channel.Type]channel.Output, params calib.Params) {
	readings := make(map[channel.Type]ChannelReading, len(outputs))
	for typ, out := range outputs {
		readings[typ] = ChannelReading{Value: out.Value, Quality: out.Quality, Faulted: out.Faulted}
	}

	t.mu.Lock()
	t.snap.SessionID = sessionID
	t.snap.HeartRate = hr
	t.snap.Arrhythmia = arrhythmia
	t.snap.ArrhythmiaCount = arrCount
	t.snap.Presence = presence
	t.snap.PresenceScore = score
	t.snap.Channels = readings
	t.snap.Calibration = params
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
