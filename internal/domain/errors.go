// Package domain contains domain errors used throughout the application.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	ErrHubNotRunning    = errors.New("event hub is not running")
	ErrSubscriberClosed = errors.New("subscriber is closed")
	ErrDeliveryTimeout  = errors.New("delivery timed out")
	ErrPortClosed       = errors.New("serial port is closed")
	ErrUnsupported      = errors.New("serial ports are not supported on this platform")
	ErrFatal            = errors.New("fatal relay error")
)

// DeviceError represents an error from serial device operations.
type DeviceError struct {
	Op     string // Operation that failed (open, read, configure)
	Device string // Device path
	Err    error  // Underlying error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("serial %s %s: %v", e.Op, e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// NewDeviceError creates a new DeviceError.
func NewDeviceError(op, device string, err error) *DeviceError {
	return &DeviceError{
		Op:     op,
		Device: device,
		Err:    err,
	}
}

// DeliveryError represents a failed delivery to one subscriber.
type DeliveryError struct {
	SubscriberID string
	Err          error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.SubscriberID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// ForwardError represents a failed call to the forwarding endpoint.
type ForwardError struct {
	StatusCode int // Zero when the request never got a response
	Err        error
}

func (e *ForwardError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("forward: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("forward: %v", e.Err)
}

func (e *ForwardError) Unwrap() error {
	return e.Err
}

// FatalError stops the serial source. It always matches ErrFatal.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() []error {
	return []error{ErrFatal, e.Err}
}

// NewFatalError creates a new FatalError.
func NewFatalError(op string, err error) *FatalError {
	return &FatalError{
		Op:  op,
		Err: err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
