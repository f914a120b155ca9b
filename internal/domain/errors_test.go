package domain

import (
	"errors"
	"io"
	"testing"
)

func TestDeviceError(t *testing.T) {
	err := NewDeviceError("open", "/dev/ttyACM0", io.EOF)

	if got, want := err.Error(), "serial open /dev/ttyACM0: EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, io.EOF) {
		t.Error("DeviceError should unwrap to its cause")
	}
}

func TestDeliveryError(t *testing.T) {
	err := &DeliveryError{SubscriberID: "sub-1", Err: ErrDeliveryTimeout}

	if got, want := err.Error(), "deliver to sub-1: delivery timed out"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrDeliveryTimeout) {
		t.Error("DeliveryError should match ErrDeliveryTimeout")
	}
}

func TestForwardError(t *testing.T) {
	tests := []struct {
		name string
		err  *ForwardError
		want string
	}{
		{"with status", &ForwardError{StatusCode: 500, Err: errors.New("boom")}, "forward: status 500: boom"},
		{"no response", &ForwardError{Err: errors.New("connection refused")}, "forward: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFatalErrorMatchesBoth(t *testing.T) {
	err := NewFatalError("broadcast", ErrHubNotRunning)

	if !errors.Is(err, ErrFatal) {
		t.Error("FatalError should match ErrFatal")
	}
	if !errors.Is(err, ErrHubNotRunning) {
		t.Error("FatalError should match its cause")
	}
	if errors.Is(err, ErrPortClosed) {
		t.Error("FatalError should not match unrelated sentinels")
	}

	var fatal *FatalError
	if !errors.As(error(err), &fatal) || fatal.Op != "broadcast" {
		t.Errorf("errors.As gave %+v", fatal)
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("relay.mode", "must be forward, broadcast or both")

	if got, want := err.Error(), "validation error: relay.mode: must be forward, broadcast or both"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
