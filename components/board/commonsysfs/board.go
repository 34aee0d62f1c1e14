// Package commonsysfs implements a board on top of periph.io, which picks the best GPIO driver
// the host offers (sysfs, /dev/gpiomem, or a SoC specific one).
package commonsysfs

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"go.viam.com/pulsemonitor/components/board"
	"go.viam.com/pulsemonitor/logging"
)

// Model is the registered name of the periph board.
const Model = "commonsysfs"

// edgePollInterval bounds how long a worker waits for an edge before checking for cancellation.
const edgePollInterval = 100 * time.Millisecond

var (
	hostOnce sync.Once
	hostErr  error
)

func initHost() error {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	return hostErr
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

type watchedPin struct {
	edge   board.Edge
	cancel func()
}

// A DigitalIO reads and watches periph GPIO pins.
type DigitalIO struct {
	logger logging.Logger
	pull   gpio.Pull
	pins   map[board.Pin]gpio.PinIO

	callbackMu sync.RWMutex
	callback   board.InterruptCallback

	mu      sync.Mutex
	inputs  map[board.Pin]bool
	watched map[board.Pin]*watchedPin
	workers *goutils.StoppableWorkers
	closed  bool
}

// NewDigitalIO initializes the host's periph drivers and resolves every configured pin name.
func NewDigitalIO(ctx context.Context, conf Config, logger logging.Logger) (*DigitalIO, error) {
	if err := conf.Validate(""); err != nil {
		return nil, err
	}
	if err := initHost(); err != nil {
		return nil, errors.Wrap(err, "initializing periph host drivers")
	}
	names, err := conf.pinNames()
	if err != nil {
		return nil, err
	}
	pull, err := conf.pull()
	if err != nil {
		return nil, err
	}
	pins := map[board.Pin]gpio.PinIO{}
	for pin, name := range names {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, errors.Errorf("no gpio pin named %q for %s", name, pin)
		}
		pins[pin] = p
	}
	return &DigitalIO{
		logger:  logger,
		pull:    pull,
		pins:    pins,
		inputs:  map[board.Pin]bool{},
		watched: map[board.Pin]*watchedPin{},
		workers: goutils.NewBackgroundStoppableWorkers(),
	}, nil
}

func (d *DigitalIO) pin(pin board.Pin) (gpio.PinIO, error) {
	p, ok := d.pins[pin]
	if !ok {
		return nil, errors.Errorf("%s is not mapped to a gpio pin", pin)
	}
	return p, nil
}

// ReadValue returns the pin's level, configuring it as an input first if needed.
func (d *DigitalIO) ReadValue(ctx context.Context, pin board.Pin) (int, error) {
	p, err := d.pin(pin)
	if err != nil {
		return -1, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return -1, errors.New("board is closed")
	}
	if !d.inputs[pin] {
		if err := p.In(d.pull, gpio.NoEdge); err != nil {
			return -1, errors.Wrapf(err, "configuring %s as input", p.Name())
		}
		d.inputs[pin] = true
	}
	if p.Read() == gpio.High {
		return board.High, nil
	}
	return board.Low, nil
}

func periphEdge(edge board.Edge) (gpio.Edge, error) {
	switch edge {
	case board.EdgeRising:
		return gpio.RisingEdge, nil
	case board.EdgeFalling:
		return gpio.FallingEdge, nil
	case board.EdgeBoth:
		return gpio.BothEdges, nil
	case board.EdgeNone:
	}
	return gpio.NoEdge, errors.Errorf("cannot request an interrupt on %s edges", edge)
}

// RequestInterrupt enables edge detection on the pin and starts forwarding edges to the
// registered callback.
func (d *DigitalIO) RequestInterrupt(ctx context.Context, pin board.Pin, edge board.Edge) error {
	p, err := d.pin(pin)
	if err != nil {
		return err
	}
	pEdge, err := periphEdge(edge)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("board is closed")
	}
	if old, ok := d.watched[pin]; ok {
		if old.edge == edge {
			return nil
		}
		// The old worker exits on its own; waiting here could deadlock with a running callback.
		old.cancel()
		delete(d.watched, pin)
	}
	if err := p.In(d.pull, pEdge); err != nil {
		return errors.Wrapf(err, "enabling %s edge detection on %s", edge, p.Name())
	}
	d.inputs[pin] = true

	var once sync.Once
	done := make(chan struct{})
	watched := &watchedPin{edge: edge, cancel: func() { once.Do(func() { close(done) }) }}
	d.watched[pin] = watched
	d.workers.Add(func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			default:
			}
			if p.WaitForEdge(edgePollInterval) {
				select {
				case <-ctx.Done():
					return
				case <-done:
					return
				default:
				}
				d.dispatch(pin)
			}
		}
	})
	d.logger.Debugw("watching gpio pin", "pin", pin, "name", p.Name(), "edge", edge)
	return nil
}

// RegisterCallback sets the callback that receives interrupts from every watched pin.
func (d *DigitalIO) RegisterCallback(cb board.InterruptCallback) error {
	if cb == nil {
		return errors.New("cannot register a nil interrupt callback")
	}
	d.callbackMu.Lock()
	defer d.callbackMu.Unlock()
	d.callback = cb
	return nil
}

// UnregisterCallback removes the callback, waiting for a running callback to return first.
func (d *DigitalIO) UnregisterCallback() error {
	d.callbackMu.Lock()
	defer d.callbackMu.Unlock()
	d.callback = nil
	return nil
}

func (d *DigitalIO) dispatch(pin board.Pin) {
	d.callbackMu.RLock()
	defer d.callbackMu.RUnlock()
	if d.callback == nil {
		return
	}
	d.callback(pin)
}

// Close stops every edge worker and halts the watched pins.
func (d *DigitalIO) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	watched := d.watched
	d.watched = map[board.Pin]*watchedPin{}
	d.mu.Unlock()

	d.workers.Stop()
	var err error
	for pin := range watched {
		if haltErr := d.pins[pin].Halt(); haltErr != nil {
			err = multierr.Combine(err, errors.Wrapf(haltErr, "halting %s", pin))
		}
	}
	return err
}
