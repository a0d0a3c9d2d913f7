package led

import (
	"errors"
	"testing"
)

func TestFakeIndicatorRecordsStates(t *testing.T) {
	f := NewFakeIndicator()

	if f.Presence() || f.Alert() {
		t.Error("both LEDs should start off")
	}

	if err := f.SetPresence(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.SetAlert(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.SetAlert(false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !f.Presence() {
		t.Error("presence LED should be on")
	}
	if f.Alert() {
		t.Error("alert LED should be off after toggle")
	}

	if len(f.PresenceStates) != 1 {
		t.Errorf("expected 1 presence change, got %d", len(f.PresenceStates))
	}
	if len(f.AlertStates) != 2 {
		t.Errorf("expected 2 alert changes, got %d", len(f.AlertStates))
	}
	if f.AlertStates[0] != true || f.AlertStates[1] != false {
		t.Errorf("alert history: expected [true false], got %v", f.AlertStates)
	}
}

func TestFakeIndicatorError(t *testing.T) {
	f := NewFakeIndicator()
	f.SetError = errors.New("simulated error")

	if err := f.SetPresence(true); err == nil {
		t.Error("expected error from SetPresence")
	}
	if err := f.SetAlert(true); err == nil {
		t.Error("expected error from SetAlert")
	}
	if len(f.PresenceStates) != 0 || len(f.AlertStates) != 0 {
		t.Error("failed sets should not be recorded")
	}
}

func TestFakeIndicatorClose(t *testing.T) {
	f := NewFakeIndicator()

	if f.Closed {
		t.Error("should not be closed initially")
	}

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestFakeIndicatorReset(t *testing.T) {
	f := NewFakeIndicator()
	f.SetPresence(true)
	f.SetAlert(true)
	f.Close()

	f.Reset()

	if len(f.PresenceStates) != 0 || len(f.AlertStates) != 0 {
		t.Error("reset should clear recorded states")
	}
	if f.Closed {
		t.Error("reset should clear closed flag")
	}
}

var _ Indicator = (*FakeIndicator)(nil)
