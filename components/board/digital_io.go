// Package board defines the digital I/O capability a pulse monitor drives: reading a pin,
// requesting an edge interrupt on it, and receiving interrupt callbacks.
package board

import (
	"context"
	"fmt"
)

// Pin is the logical identity of a digital input, as numbered on the I/O connector. Drivers map
// logical pins onto their own lines.
type Pin int

// The pins exposed by the digital input connector. Only Pin1 carries counting semantics; the
// others are delivered to callbacks but ignored by the monitor.
const (
	Pin1 Pin = iota + 1
	Pin2
	Pin3
)

// KnownPins lists every logical pin a DigitalIO may deliver callbacks for.
var KnownPins = []Pin{Pin1, Pin2, Pin3}

func (p Pin) String() string {
	return fmt.Sprintf("pin %d", int(p))
}

// Levels returned by ReadValue.
const (
	Low  = 0
	High = 1
)

// Edge selects which signal transitions raise an interrupt.
type Edge int

// Edge values.
const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeNone:
		return "none"
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	}
	return fmt.Sprintf("edge(%d)", int(e))
}

// An InterruptCallback is invoked by a DigitalIO when an interrupt fires on a requested pin. It
// runs on a goroutine owned by the driver, concurrently with any caller of the DigitalIO.
type InterruptCallback func(pin Pin)

// DigitalIO is the driver-side capability for a digital input connector.
type DigitalIO interface {
	// ReadValue synchronously reads the current level of the pin, Low or High.
	ReadValue(ctx context.Context, pin Pin) (int, error)

	// RequestInterrupt arms an interrupt on the pin for the given edge. There is no way to
	// disarm a single pin; requests stay in effect until the DigitalIO is closed.
	RequestInterrupt(ctx context.Context, pin Pin, edge Edge) error

	// RegisterCallback installs the single callback all interrupts are dispatched to.
	RegisterCallback(cb InterruptCallback) error

	// UnregisterCallback removes the callback. Once it returns, the callback is never invoked
	// again.
	UnregisterCallback() error

	// Close releases the underlying hardware.
	Close(ctx context.Context) error
}
