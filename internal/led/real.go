//go:build linux

package led

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealIndicator drives LEDs on actual hardware using Linux GPIO
// character device.
type RealIndicator struct {
	chip        *gpiocdev.Chip
	presencePin *gpiocdev.Line
	alertPin    *gpiocdev.Line
}

// NewRealIndicator creates an LED driver for actual Raspberry Pi hardware.
// Both LEDs start off.
func NewRealIndicator(pinPresence, pinAlert int) (*RealIndicator, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	presenceLine, err := chip.RequestLine(pinPresence, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request presence pin %d: %w", pinPresence, err)
	}

	alertLine, err := chip.RequestLine(pinAlert, gpiocdev.AsOutput(0))
	if err != nil {
		presenceLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request alert pin %d: %w", pinAlert, err)
	}

	return &RealIndicator{
		chip:        chip,
		presencePin: presenceLine,
		alertPin:    alertLine,
	}, nil
}

// SetPresence sets the presence LED.
func (r *RealIndicator) SetPresence(on bool) error {
	if err := r.presencePin.SetValue(boolToRaw(on)); err != nil {
		return fmt.Errorf("set presence pin: %w", err)
	}
	return nil
}

// SetAlert sets the alert LED.
func (r *RealIndicator) SetAlert(on bool) error {
	if err := r.alertPin.SetValue(boolToRaw(on)); err != nil {
		return fmt.Errorf("set alert pin: %w", err)
	}
	return nil
}

// Close turns both LEDs off and releases GPIO resources.
// Pins are reconfigured to input with pull-down (matching Pi boot
// defaults) before closing so a restart finds them in a clean state.
func (r *RealIndicator) Close() error {
	var errs []error

	if r.presencePin != nil {
		if err := r.presencePin.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear presence pin: %w", err))
		}
		if err := r.presencePin.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure presence pin: %w", err))
		}
		if err := r.presencePin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close presence pin: %w", err))
		}
	}
	if r.alertPin != nil {
		if err := r.alertPin.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear alert pin: %w", err))
		}
		if err := r.alertPin.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure alert pin: %w", err))
		}
		if err := r.alertPin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close alert pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func boolToRaw(on bool) int {
	if on {
		return 1
	}
	return 0
}
