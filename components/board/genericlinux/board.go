//go:build linux

// Package genericlinux implements a board over the Linux GPIO character device, by way of mkch's
// gpio package.
package genericlinux

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/pulsemonitor/components/board"
	"go.viam.com/pulsemonitor/logging"
)

// A DigitalIO reads and watches the configured lines of one GPIO chip.
type DigitalIO struct {
	logger     logging.Logger
	devicePath string
	offsets    map[board.Pin]uint32

	// callbackMu is held for reading while a callback runs so UnregisterCallback can wait for it.
	callbackMu sync.RWMutex
	callback   board.InterruptCallback

	mu                      sync.Mutex
	interrupts              map[board.Pin]*digitalInterrupt
	cancelCtx               context.Context
	cancelFunc              func()
	activeBackgroundWorkers sync.WaitGroup
	closed                  bool
}

// NewDigitalIO returns a board for the chip and pins described by conf. No line is opened until
// it is read or watched.
func NewDigitalIO(ctx context.Context, conf Config, logger logging.Logger) (board.DigitalIO, error) {
	offsets, err := conf.lineOffsets()
	if err != nil {
		return nil, err
	}
	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	return &DigitalIO{
		logger:     logger,
		devicePath: conf.devicePath(),
		offsets:    offsets,
		interrupts: map[board.Pin]*digitalInterrupt{},
		cancelCtx:  cancelCtx,
		cancelFunc: cancelFunc,
	}, nil
}

func (d *DigitalIO) offset(pin board.Pin) (uint32, error) {
	offset, ok := d.offsets[pin]
	if !ok {
		return 0, errors.Errorf("%s is not mapped to a gpio line", pin)
	}
	return offset, nil
}

// RegisterCallback sets the callback that receives interrupts from every watched line.
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
// Watched lines stay open; their events are dropped until a callback is registered again.
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

// Close stops every interrupt worker and releases the lines.
func (d *DigitalIO) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.cancelFunc()
	var err error
	for pin, interrupt := range d.interrupts {
		err = multierr.Combine(err, interrupt.Close())
		delete(d.interrupts, pin)
	}
	d.mu.Unlock()

	d.activeBackgroundWorkers.Wait()
	return err
}
