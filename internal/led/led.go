// Package led drives the status LEDs with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package led

// Indicator drives the two status LEDs.
type Indicator interface {
	// SetPresence sets the presence LED. It is held steady while a
	// finger rests on the sensor.
	SetPresence(on bool) error

	// SetAlert sets the alert LED. The caller toggles it to blink
	// while an arrhythmia is flagged.
	SetAlert(on bool) error

	// Close turns both LEDs off and releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	PinPresence = 26 // finger presence LED
	PinAlert    = 16 // arrhythmia alert LED
)

// NopIndicator discards all state changes. Used when GPIO is
// unavailable or disabled.
type NopIndicator struct{}

// SetPresence discards the state change.
func (NopIndicator) SetPresence(on bool) error { return nil }

// SetAlert discards the state change.
func (NopIndicator) SetAlert(on bool) error { return nil }

// Close is a no-op.
func (NopIndicator) Close() error { return nil }
