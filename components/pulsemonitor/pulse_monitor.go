// Package pulsemonitor counts rising edge pulses on a digital input pin and reports every state
// change, manual read and hardware failure as a StatusEvent.
package pulsemonitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"go.viam.com/pulsemonitor/components/board"
	"go.viam.com/pulsemonitor/logging"
	"go.viam.com/pulsemonitor/utils/broadcast"
)

// Interrupts on unmonitored pins are logged at most this often, after an initial burst.
const (
	ignoredLogInterval = time.Second
	ignoredLogBurst    = 10
)

// Subscription receives StatusEvents in emission order.
type Subscription = broadcast.Subscription[StatusEvent]

// Option customizes a Monitor.
type Option func(*Monitor)

// WithClock sets the clock used to timestamp events.
func WithClock(c clock.Clock) Option {
	return func(m *Monitor) {
		m.clock = c
	}
}

// A Monitor counts qualifying pulses on a single pin of an exclusively owned board.Channel.
type Monitor struct {
	channel     *board.Channel
	pin         board.Pin
	activeLevel int
	logger      logging.Logger
	clock       clock.Clock
	events      *broadcast.Broadcaster[StatusEvent]
	ignoredLogs *rate.Limiter

	// mu guards everything below, and serializes every read-modify-emit sequence so that events
	// are published in one global order.
	mu         sync.Mutex
	state      MonitorState
	pulses     int64
	registered bool
}

// New acquires the channel and registers the monitor's interrupt callback with it. If the
// channel already has an owner, New returns ErrChannelInUse and no monitor. If the callback
// cannot be registered, New returns the monitor along with an *InitFailure; the monitor still
// works but will never see a hardware event.
func New(
	ctx context.Context,
	channel *board.Channel,
	conf Config,
	logger logging.Logger,
	opts ...Option,
) (*Monitor, error) {
	if err := channel.Acquire(); err != nil {
		return nil, err
	}
	m := &Monitor{
		channel:     channel,
		pin:         conf.pin(),
		activeLevel: conf.activeLevel(),
		logger:      logger,
		clock:       clock.New(),
		events:      broadcast.New[StatusEvent](broadcast.Options{PendingLimit: conf.PendingEvents}),
		ignoredLogs: rate.NewLimiter(rate.Every(ignoredLogInterval), ignoredLogBurst),
	}
	for _, opt := range opts {
		opt(m)
	}

	regErr := channel.RegisterCallback(m.handleInterrupt)

	m.mu.Lock()
	defer m.mu.Unlock()
	if regErr != nil {
		initErr := &InitFailure{Err: regErr}
		m.logger.Errorw("failed to initialize digital io", "pin", m.pin, "error", regErr)
		m.emitLocked(StatusEvent{
			Kind:    KindInitFailed,
			Message: fmt.Sprintf("initialization error: %v", regErr),
			Err:     initErr,
		})
		return m, initErr
	}
	m.registered = true
	m.logger.Infow("digital io initialized", "pin", m.pin, "active_level", m.activeLevel)
	m.emitLocked(StatusEvent{Kind: KindInitialized, Message: "digital io initialized"})
	return m, nil
}

// Subscribe returns a subscription that receives every event emitted from now on. The first
// subscription also receives the most recent events emitted before it, up to the configured
// pending limit. The subscription's channel is closed when the monitor is closed.
func (m *Monitor) Subscribe() *Subscription {
	return m.events.Subscribe()
}

// State returns the current monitoring state.
func (m *Monitor) State() MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// PulseCount returns the number of pulses counted since creation or the last reset.
func (m *Monitor) PulseCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pulses
}

// Start arms a rising edge interrupt on the monitored pin and begins counting. Failures are
// reported as events; Start never returns an error.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Disposed:
		m.logger.Debug("start called on a closed monitor")
		return
	case Monitoring:
		m.emitLocked(StatusEvent{
			Kind:    KindAlreadyMonitoring,
			Message: fmt.Sprintf("%s is already being monitored", m.pin),
		})
		return
	case Idle:
	}

	err := errors.New("interrupt callback is not registered")
	if m.registered {
		err = m.channel.RequestInterrupt(ctx, m.pin, board.EdgeRising)
	}
	if err != nil {
		armErr := &ArmFailure{Pin: m.pin, Err: err}
		m.logger.Errorw("failed to start monitoring", "pin", m.pin, "error", err)
		record(armFailuresMeasure)
		m.emitLocked(StatusEvent{
			Kind:    KindArmFailed,
			Message: fmt.Sprintf("error starting monitoring: %v", err),
			Pin:     m.pin,
			Err:     armErr,
		})
		return
	}

	m.state = Monitoring
	value, err := m.channel.ReadValue(ctx, m.pin)
	value = m.reportReadLocked(m.pin, value, err)
	m.logger.Infow("monitoring started", "pin", m.pin, "initial_value", value)
	m.emitLocked(StatusEvent{
		Kind:    KindStarted,
		Message: fmt.Sprintf("monitoring of %s started - initial value: %d", m.pin, value),
		Pin:     m.pin,
		Value:   value,
	})
}

// Stop stops counting. The interrupt stays armed on the driver; callbacks that arrive while the
// monitor is idle are ignored.
func (m *Monitor) Stop(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Disposed:
		m.logger.Debug("stop called on a closed monitor")
	case Idle:
		m.emitLocked(StatusEvent{
			Kind:    KindNotMonitoring,
			Message: fmt.Sprintf("%s was not being monitored", m.pin),
		})
	case Monitoring:
		m.stopLocked()
	}
}

func (m *Monitor) stopLocked() {
	m.state = Idle
	m.logger.Infow("monitoring stopped", "pin", m.pin, "total_pulses", m.pulses)
	m.emitLocked(StatusEvent{
		Kind:    KindStopped,
		Message: fmt.Sprintf("monitoring of %s stopped", m.pin),
	})
}

// ReadInput synchronously reads any pin, regardless of monitoring state, and reports the result
// as an event. It returns -1 if the read failed.
func (m *Monitor) ReadInput(ctx context.Context, pin board.Pin) int {
	if m.State() == Disposed {
		m.logger.Debugw("read called on a closed monitor", "pin", pin)
		return -1
	}
	value, err := m.channel.ReadValue(ctx, pin)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Disposed {
		if err != nil || value < 0 {
			return -1
		}
		return value
	}
	return m.reportReadLocked(pin, value, err)
}

// reportReadLocked emits the outcome of a manual read and returns the value, or -1 on failure.
// A negative value from the driver is treated as a failure.
func (m *Monitor) reportReadLocked(pin board.Pin, value int, err error) int {
	if err == nil && value < 0 {
		err = errors.Errorf("driver returned %d", value)
	}
	if err != nil {
		readErr := &ReadFailure{Pin: pin, Err: err}
		m.logger.Warnw("failed to read pin", "pin", pin, "error", err)
		record(readFailuresMeasure)
		m.emitLocked(StatusEvent{
			Kind:    KindReadFailed,
			Message: fmt.Sprintf("error reading %s: %v", pin, err),
			Pin:     pin,
			Value:   -1,
			Err:     readErr,
		})
		return -1
	}
	m.emitLocked(StatusEvent{
		Kind:    KindReading,
		Message: fmt.Sprintf("manual read %s: %d", pin, value),
		Pin:     pin,
		Value:   value,
	})
	return value
}

// ResetPulseCount sets the pulse count to zero in any live state.
func (m *Monitor) ResetPulseCount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Disposed {
		m.logger.Debug("reset called on a closed monitor")
		return
	}
	m.pulses = 0
	m.emitLocked(StatusEvent{Kind: KindReset, Message: "pulse count reset"})
}

// Close stops monitoring, unregisters the interrupt callback and releases the channel. Once
// Close returns, no callback affects the monitor and every subscription channel is closed after
// its queued events are delivered. Teardown failures are reported as events, so Close always
// returns nil; calling it again does nothing.
func (m *Monitor) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.state == Disposed {
		m.mu.Unlock()
		return nil
	}
	if m.state == Monitoring {
		m.stopLocked()
	}
	// Disposed is set before unregistering so a callback racing teardown is a no-op. The driver
	// may wait for an in-flight callback, so the lock is not held while unregistering.
	m.state = Disposed
	registered := m.registered
	m.registered = false
	m.mu.Unlock()

	var unregErr error
	if registered {
		unregErr = m.channel.UnregisterCallback()
	}

	m.mu.Lock()
	if unregErr != nil {
		m.logger.Errorw("failed to unregister interrupt callback", "pin", m.pin, "error", unregErr)
		m.emitLocked(StatusEvent{
			Kind:    KindTeardownFailed,
			Message: fmt.Sprintf("error during cleanup: %v", unregErr),
			Err:     &TeardownFailure{Err: unregErr},
		})
	}
	m.logger.Info("digital io disconnected")
	m.emitLocked(StatusEvent{Kind: KindDisconnected, Message: "digital io disconnected"})
	m.mu.Unlock()

	m.channel.Release()
	m.events.Close()
	return nil
}

// handleInterrupt is registered with the channel and runs on the driver's goroutine.
func (m *Monitor) handleInterrupt(pin board.Pin) {
	if pin != m.pin {
		if m.ignoredLogs.Allow() {
			m.logger.Debugw("ignoring interrupt on unmonitored pin", "pin", pin)
		}
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Monitoring {
		return
	}
	value, err := m.channel.ReadValue(context.Background(), m.pin)
	if err != nil {
		m.logger.Debugw("failed to read pin after interrupt", "pin", m.pin, "error", err)
		return
	}
	if value != m.activeLevel {
		return
	}
	m.pulses++
	record(pulsesMeasure)
	m.emitLocked(StatusEvent{
		Kind:    KindPulse,
		Message: fmt.Sprintf("%s activated - value read: %d", m.pin, value),
		Pin:     m.pin,
		Value:   value,
	})
}

// emitLocked stamps the event and publishes it. m.mu must be held.
func (m *Monitor) emitLocked(ev StatusEvent) {
	ev.Time = m.clock.Now()
	ev.TotalPulses = m.pulses
	m.events.Publish(ev)
}
