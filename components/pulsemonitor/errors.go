package pulsemonitor

import (
	"fmt"

	"go.viam.com/pulsemonitor/components/board"
)

// InitFailure is returned by New when the interrupt callback could not be registered. The
// monitor returned alongside it is usable but will never see a hardware event.
type InitFailure struct {
	Err error
}

func (e *InitFailure) Error() string {
	return fmt.Sprintf("failed to register interrupt callback: %v", e.Err)
}

// Unwrap returns the driver error.
func (e *InitFailure) Unwrap() error { return e.Err }

// ArmFailure describes an interrupt request rejected by the driver during Start.
type ArmFailure struct {
	Pin board.Pin
	Err error
}

func (e *ArmFailure) Error() string {
	return fmt.Sprintf("failed to arm rising edge interrupt on %s: %v", e.Pin, e.Err)
}

// Unwrap returns the driver error.
func (e *ArmFailure) Unwrap() error { return e.Err }

// ReadFailure describes a synchronous pin read that failed or returned a negative value.
type ReadFailure struct {
	Pin board.Pin
	Err error
}

func (e *ReadFailure) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Pin, e.Err)
}

// Unwrap returns the driver error.
func (e *ReadFailure) Unwrap() error { return e.Err }

// TeardownFailure describes a callback unregistration that failed during Close.
type TeardownFailure struct {
	Err error
}

func (e *TeardownFailure) Error() string {
	return fmt.Sprintf("failed to unregister interrupt callback: %v", e.Err)
}

// Unwrap returns the driver error.
func (e *TeardownFailure) Unwrap() error { return e.Err }
