package led

// FakeIndicator is a test double that records every LED state change.
type FakeIndicator struct {
	// PresenceStates records each value passed to SetPresence, in order.
	PresenceStates []bool

	// AlertStates records each value passed to SetAlert, in order.
	AlertStates []bool

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by SetPresence and SetAlert
	SetError error
}

// NewFakeIndicator creates a FakeIndicator with both LEDs off.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

// SetPresence records the presence LED state.
func (f *FakeIndicator) SetPresence(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.PresenceStates = append(f.PresenceStates, on)
	return nil
}

// SetAlert records the alert LED state.
func (f *FakeIndicator) SetAlert(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.AlertStates = append(f.AlertStates, on)
	return nil
}

// Presence returns the current presence LED state (false if never set).
func (f *FakeIndicator) Presence() bool {
	if len(f.PresenceStates) == 0 {
		return false
	}
	return f.PresenceStates[len(f.PresenceStates)-1]
}

// Alert returns the current alert LED state (false if never set).
func (f *FakeIndicator) Alert() bool {
	if len(f.AlertStates) == 0 {
		return false
	}
	return f.AlertStates[len(f.AlertStates)-1]
}

// Close marks the indicator as closed.
func (f *FakeIndicator) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded state changes.
func (f *FakeIndicator) Reset() {
	f.PresenceStates = nil
	f.AlertStates = nil
	f.Closed = false
	f.SetError = nil
}
