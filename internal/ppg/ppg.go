// Package ppg defines the preprocessed pulse-signal sample and the
// source abstraction that feeds it into the monitoring core.
// The real preprocessing pipeline (camera or photodiode frontend) lives
// outside this repository; sources here are a simulator for the demo
// daemon and a scripted fake for tests.
package ppg

import "time"

// Sample is one preprocessed PPG observation, produced once per
// acquisition tick. It is a value type and is never mutated downstream.
type Sample struct {
	Timestamp time.Time

	// Raw is the unprocessed sensor value.
	Raw float64

	// Filtered is the value after the frontend's noise filter.
	Filtered float64

	// Amplified is the value after frontend gain. This is what the
	// channels consume.
	Amplified float64

	// Quality is the frontend's signal quality estimate, 0-100.
	Quality float64

	// FingerDetected is the frontend's own coarse placement hint.
	// The core forms its own decision via fusion; this is advisory.
	FingerDetected bool
}

// Source produces one Sample per call. Implementations decide pacing;
// the daemon drives Read from its tick loop.
type Source interface {
	// Read returns the next sample.
	Read() (Sample, error)

	// Close releases source resources.
	Close() error
}
