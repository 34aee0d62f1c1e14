//go:build linux

package genericlinux

import (
	"context"

	"github.com/mkch/gpio"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/pulsemonitor/components/board"
)

const interruptConsumer = "pulsemon-interrupt"

type digitalInterrupt struct {
	pin        board.Pin
	edge       board.Edge
	line       *gpio.LineWithEvent
	cancelFunc func()
}

func checkEdge(edge board.Edge) error {
	switch edge {
	case board.EdgeRising, board.EdgeFalling, board.EdgeBoth:
		return nil
	case board.EdgeNone:
	}
	return errors.Errorf("cannot request an interrupt on %s edges", edge)
}

// RequestInterrupt opens the pin's line for edge events and starts forwarding them to the
// registered callback. Requesting a pin again replaces its previous request.
func (d *DigitalIO) RequestInterrupt(ctx context.Context, pin board.Pin, edge board.Edge) error {
	offset, err := d.offset(pin)
	if err != nil {
		return err
	}
	if err := checkEdge(edge); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("board is closed")
	}
	if old, ok := d.interrupts[pin]; ok {
		if old.edge == edge {
			return nil
		}
		delete(d.interrupts, pin)
		utils.UncheckedError(old.Close())
	}

	if err := d.checkDevice(); err != nil {
		return err
	}
	chip, err := gpio.OpenChip(d.devicePath)
	if err != nil {
		return errors.Wrapf(err, "opening %s", d.devicePath)
	}
	defer utils.UncheckedErrorFunc(chip.Close)

	var line *gpio.LineWithEvent
	switch edge {
	case board.EdgeRising:
		line, err = chip.OpenLineWithEvents(offset, gpio.Input, gpio.RisingEdge, interruptConsumer)
	case board.EdgeFalling:
		line, err = chip.OpenLineWithEvents(offset, gpio.Input, gpio.FallingEdge, interruptConsumer)
	case board.EdgeBoth, board.EdgeNone:
		line, err = chip.OpenLineWithEvents(offset, gpio.Input, gpio.BothEdges, interruptConsumer)
	}
	if err != nil {
		return errors.Wrapf(err, "watching line %d of %s", offset, d.devicePath)
	}

	cancelCtx, cancelFunc := context.WithCancel(d.cancelCtx)
	interrupt := &digitalInterrupt{pin: pin, edge: edge, line: line, cancelFunc: cancelFunc}
	d.interrupts[pin] = interrupt
	d.startMonitor(cancelCtx, interrupt)
	d.logger.Debugw("watching gpio line", "pin", pin, "line", offset, "edge", edge)
	return nil
}

func (d *DigitalIO) startMonitor(cancelCtx context.Context, di *digitalInterrupt) {
	events := di.line.Events()
	d.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		for {
			select {
			case <-cancelCtx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				// The kernel already filters events down to the requested edge.
				if cancelCtx.Err() != nil {
					return
				}
				d.dispatch(di.pin)
			}
		}
	}, d.activeBackgroundWorkers.Done)
}

func (di *digitalInterrupt) Close() error {
	// The worker only reads the event channel, so it can finish after the line is closed.
	di.cancelFunc()
	return di.line.Close()
}

func (di *digitalInterrupt) value() (int, error) {
	value, err := di.line.Value()
	if err != nil {
		return -1, err
	}
	if value != 0 {
		return board.High, nil
	}
	return board.Low, nil
}
