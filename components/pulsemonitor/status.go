package pulsemonitor

import (
	"fmt"
	"time"

	"go.viam.com/pulsemonitor/components/board"
)

// EventKind classifies a StatusEvent.
type EventKind string

// The kinds of StatusEvent a Monitor emits.
const (
	KindInitialized       EventKind = "initialized"
	KindInitFailed        EventKind = "init_failed"
	KindStarted           EventKind = "started"
	KindAlreadyMonitoring EventKind = "already_monitoring"
	KindArmFailed         EventKind = "arm_failed"
	KindStopped           EventKind = "stopped"
	KindNotMonitoring     EventKind = "not_monitoring"
	KindReading           EventKind = "reading"
	KindReadFailed        EventKind = "read_failed"
	KindPulse             EventKind = "pulse"
	KindReset             EventKind = "reset"
	KindTeardownFailed    EventKind = "teardown_failed"
	KindDisconnected      EventKind = "disconnected"
)

// IsFailure reports whether the kind describes a hardware failure.
func (k EventKind) IsFailure() bool {
	switch k {
	case KindInitFailed, KindArmFailed, KindReadFailed, KindTeardownFailed:
		return true
	case KindInitialized, KindStarted, KindAlreadyMonitoring, KindStopped, KindNotMonitoring,
		KindReading, KindPulse, KindReset, KindDisconnected:
		return false
	}
	return false
}

// StatusEventTimeFormat is the layout used to render event timestamps.
const StatusEventTimeFormat = "15:04:05"

// A StatusEvent is an immutable snapshot broadcast on every state transition, manual read,
// qualifying pulse and hardware failure.
type StatusEvent struct {
	Time    time.Time
	Kind    EventKind
	Message string
	// TotalPulses is the pulse count at the moment the event was emitted.
	TotalPulses int64
	// Pin and Value are set for reads and pulses. Value is -1 for failed reads.
	Pin   board.Pin
	Value int
	// Err is the typed failure for failure kinds, nil otherwise.
	Err error
}

// String renders the event the way display surfaces print it: "[15:04:05] message".
func (e StatusEvent) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format(StatusEventTimeFormat), e.Message)
}
