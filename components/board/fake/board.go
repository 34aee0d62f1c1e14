// Package fake implements an in-memory board for tests and simulation.
package fake

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/utils"

	"go.viam.com/pulsemonitor/components/board"
	"go.viam.com/pulsemonitor/logging"
)

// Model is the registered name of the fake board.
const Model = "fake"

// A Config describes the initial state of a fake board.
type Config struct {
	// Values holds the initial level of each pin, keyed by logical pin number.
	Values map[string]int `json:"values,omitempty"`
	// PulseIntervalMs, when positive, makes the board pulse pin 1 at that interval.
	PulseIntervalMs int  `json:"pulse_interval_ms,omitempty"`
	FailNew         bool `json:"fail_new,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	for key, value := range conf.Values {
		if _, err := parsePin(key); err != nil {
			return utils.NewConfigValidationError(fmt.Sprintf("%s.values", path), err)
		}
		if value != board.Low && value != board.High {
			return utils.NewConfigValidationError(fmt.Sprintf("%s.values.%s", path, key),
				errors.Errorf("level must be %d or %d, got %d", board.Low, board.High, value))
		}
	}
	if conf.PulseIntervalMs < 0 {
		return utils.NewConfigValidationError(path, errors.New("pulse_interval_ms cannot be negative"))
	}
	if conf.FailNew {
		return errors.New("whoops")
	}
	return nil
}

func parsePin(key string) (board.Pin, error) {
	n, err := strconv.Atoi(key)
	if err != nil {
		return 0, errors.Errorf("pin %q is not a number", key)
	}
	for _, pin := range board.KnownPins {
		if board.Pin(n) == pin {
			return pin, nil
		}
	}
	return 0, errors.Errorf("unknown pin %d", n)
}

func init() {
	board.RegisterModel(Model, board.Registration{
		Constructor: func(ctx context.Context, attributes board.Attributes, logger logging.Logger) (board.DigitalIO, error) {
			var conf Config
			if err := board.DecodeAttributes(attributes, &conf); err != nil {
				return nil, err
			}
			return NewDigitalIO(ctx, conf, logger)
		},
		AttributeValidator: func(attributes board.Attributes) error {
			var conf Config
			if err := board.DecodeAttributes(attributes, &conf); err != nil {
				return err
			}
			return conf.Validate("")
		},
	})
}

// NewDigitalIO returns a fake board in the state described by conf.
func NewDigitalIO(ctx context.Context, conf Config, logger logging.Logger) (*DigitalIO, error) {
	if err := conf.Validate(""); err != nil {
		return nil, err
	}
	d := &DigitalIO{
		logger:    logger,
		values:    map[board.Pin]int{},
		readErrs:  map[board.Pin]error{},
		requested: map[board.Pin]board.Edge{},
	}
	for key, value := range conf.Values {
		pin, err := parsePin(key)
		if err != nil {
			return nil, err
		}
		d.values[pin] = value
	}
	if conf.PulseIntervalMs > 0 {
		d.StartSimulation(time.Duration(conf.PulseIntervalMs) * time.Millisecond)
	}
	return d, nil
}

// A DigitalIO is a fake board whose pin levels and failures are set by the caller. Interrupts
// are raised explicitly with Interrupt or Pulse, or periodically with StartSimulation.
type DigitalIO struct {
	logger logging.Logger

	// callbackMu is held for reading while a callback runs so UnregisterCallback can wait for it.
	callbackMu sync.RWMutex

	mu            sync.Mutex
	values        map[board.Pin]int
	readErrs      map[board.Pin]error
	requested     map[board.Pin]board.Edge
	callback      board.InterruptCallback
	requestErr    error
	registerErr   error
	unregisterErr error
	workers       *utils.StoppableWorkers
	closed        bool

	reads     atomic.Int64
	delivered atomic.Int64
}

// ReadValue returns the pin's current level, or the error set with SetReadError.
func (d *DigitalIO) ReadValue(ctx context.Context, pin board.Pin) (int, error) {
	d.reads.Inc()
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.readErrs[pin]; err != nil {
		return -1, err
	}
	return d.values[pin], nil
}

// RequestInterrupt arms the given edge on the pin.
func (d *DigitalIO) RequestInterrupt(ctx context.Context, pin board.Pin, edge board.Edge) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.requestErr != nil {
		return d.requestErr
	}
	d.requested[pin] = edge
	return nil
}

// RegisterCallback sets the callback that receives interrupts.
func (d *DigitalIO) RegisterCallback(cb board.InterruptCallback) error {
	d.callbackMu.Lock()
	defer d.callbackMu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.registerErr != nil {
		return d.registerErr
	}
	d.callback = cb
	return nil
}

// UnregisterCallback removes the callback, waiting for a running callback to return first.
func (d *DigitalIO) UnregisterCallback() error {
	d.callbackMu.Lock()
	defer d.callbackMu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unregisterErr != nil {
		return d.unregisterErr
	}
	d.callback = nil
	return nil
}

// Close stops any simulation.
func (d *DigitalIO) Close(ctx context.Context) error {
	d.mu.Lock()
	workers := d.workers
	d.workers = nil
	d.closed = true
	d.mu.Unlock()
	if workers != nil {
		workers.Stop()
	}
	return nil
}

// SetValue sets the level a pin reads at. It does not raise an interrupt.
func (d *DigitalIO) SetValue(pin board.Pin, value int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[pin] = value
}

// SetReadError makes reads of the pin fail with err. A nil err clears the failure.
func (d *DigitalIO) SetReadError(pin board.Pin, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readErrs[pin] = err
}

// SetRequestInterruptError makes RequestInterrupt fail with err.
func (d *DigitalIO) SetRequestInterruptError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requestErr = err
}

// SetRegisterCallbackError makes RegisterCallback fail with err.
func (d *DigitalIO) SetRegisterCallbackError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.registerErr = err
}

// SetUnregisterCallbackError makes UnregisterCallback fail with err.
func (d *DigitalIO) SetUnregisterCallbackError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unregisterErr = err
}

// RequestedEdge returns the edge armed on the pin.
func (d *DigitalIO) RequestedEdge(pin board.Pin) board.Edge {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requested[pin]
}

// Interrupt raises an interrupt on the pin as a rising edge would, calling the registered
// callback on the caller's goroutine. It reports whether a callback ran: nothing is delivered
// unless a callback is registered and a rising edge was requested on the pin.
func (d *DigitalIO) Interrupt(pin board.Pin) bool {
	d.callbackMu.RLock()
	defer d.callbackMu.RUnlock()
	d.mu.Lock()
	cb := d.callback
	edge := d.requested[pin]
	d.mu.Unlock()
	if cb == nil || (edge != board.EdgeRising && edge != board.EdgeBoth) {
		return false
	}
	d.delivered.Inc()
	cb(pin)
	return true
}

// Pulse drives the pin high, raises an interrupt, then drives it low again.
func (d *DigitalIO) Pulse(pin board.Pin) bool {
	d.SetValue(pin, board.High)
	defer d.SetValue(pin, board.Low)
	return d.Interrupt(pin)
}

// StartSimulation pulses pin 1 every interval until Close. Calling it again replaces the
// previous simulation.
func (d *DigitalIO) StartSimulation(interval time.Duration) {
	workers := utils.NewBackgroundStoppableWorkers(func(ctx context.Context) {
		for {
			if !utils.SelectContextOrWait(ctx, interval) {
				return
			}
			d.Pulse(board.Pin1)
		}
	})

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		workers.Stop()
		return
	}
	previous := d.workers
	d.workers = workers
	d.mu.Unlock()

	if previous != nil {
		previous.Stop()
	}
	d.logger.Infow("simulating pulses", "pin", board.Pin1, "interval", interval)
}

// Reads returns how many times ReadValue was called.
func (d *DigitalIO) Reads() int64 {
	return d.reads.Load()
}

// Delivered returns how many interrupts reached a callback.
func (d *DigitalIO) Delivered() int64 {
	return d.delivered.Load()
}
