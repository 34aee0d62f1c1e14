//go:build linux

package genericlinux

import (
	"context"

	"github.com/mkch/gpio"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"golang.org/x/sys/unix"

	"go.viam.com/pulsemonitor/components/board"
)

const readConsumer = "pulsemon-gpio"

// ReadValue returns the pin's level. A watched pin is read through its event line; any other pin
// is opened as an input for the duration of the read.
func (d *DigitalIO) ReadValue(ctx context.Context, pin board.Pin) (int, error) {
	offset, err := d.offset(pin)
	if err != nil {
		return -1, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return -1, errors.New("board is closed")
	}
	if interrupt, ok := d.interrupts[pin]; ok {
		return interrupt.value()
	}

	if err := d.checkDevice(); err != nil {
		return -1, err
	}
	chip, err := gpio.OpenChip(d.devicePath)
	if err != nil {
		return -1, errors.Wrapf(err, "opening %s", d.devicePath)
	}
	defer utils.UncheckedErrorFunc(chip.Close)

	line, err := chip.OpenLine(offset, 0, gpio.Input, readConsumer)
	if err != nil {
		return -1, errors.Wrapf(err, "opening line %d of %s", offset, d.devicePath)
	}
	defer utils.UncheckedErrorFunc(line.Close)

	value, err := line.Value()
	if err != nil {
		return -1, err
	}
	// Any non-zero value is high.
	if value != 0 {
		return board.High, nil
	}
	return board.Low, nil
}

// checkDevice reports whether the chip device exists and can be opened for reading and writing.
func (d *DigitalIO) checkDevice() error {
	if err := unix.Access(d.devicePath, unix.R_OK|unix.W_OK); err != nil {
		return errors.Wrapf(err, "cannot access %s", d.devicePath)
	}
	return nil
}
