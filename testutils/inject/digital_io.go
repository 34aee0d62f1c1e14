package inject

import (
	"context"
	"sync"

	"go.viam.com/pulsemonitor/components/board"
)

// DigitalIO is an injected digital io. Any func left nil falls back to the embedded DigitalIO,
// or to a zero-value success if none is embedded.
type DigitalIO struct {
	board.DigitalIO
	ReadValueFunc          func(ctx context.Context, pin board.Pin) (int, error)
	RequestInterruptFunc   func(ctx context.Context, pin board.Pin, edge board.Edge) error
	RegisterCallbackFunc   func(cb board.InterruptCallback) error
	UnregisterCallbackFunc func() error
	CloseFunc              func(ctx context.Context) error

	mu              sync.Mutex
	requestCap      []interface{}
	callback        board.InterruptCallback
	registerCount   int
	unregisterCount int
}

// ReadValue calls the injected ReadValue or the real version.
func (d *DigitalIO) ReadValue(ctx context.Context, pin board.Pin) (int, error) {
	if d.ReadValueFunc == nil {
		if d.DigitalIO == nil {
			return board.Low, nil
		}
		return d.DigitalIO.ReadValue(ctx, pin)
	}
	return d.ReadValueFunc(ctx, pin)
}

// RequestInterrupt calls the injected RequestInterrupt or the real version.
func (d *DigitalIO) RequestInterrupt(ctx context.Context, pin board.Pin, edge board.Edge) error {
	d.mu.Lock()
	d.requestCap = append(d.requestCap, []interface{}{pin, edge})
	d.mu.Unlock()
	if d.RequestInterruptFunc == nil {
		if d.DigitalIO == nil {
			return nil
		}
		return d.DigitalIO.RequestInterrupt(ctx, pin, edge)
	}
	return d.RequestInterruptFunc(ctx, pin, edge)
}

// RequestInterruptCap returns the (pin, edge) pairs received by RequestInterrupt, and then
// clears them.
func (d *DigitalIO) RequestInterruptCap() []interface{} {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	defer func() { d.requestCap = nil }()
	return d.requestCap
}

// RegisterCallback calls the injected RegisterCallback or the real version. The callback is
// captured either way so tests can invoke it directly with Callback.
func (d *DigitalIO) RegisterCallback(cb board.InterruptCallback) error {
	d.mu.Lock()
	d.callback = cb
	d.registerCount++
	d.mu.Unlock()
	if d.RegisterCallbackFunc == nil {
		if d.DigitalIO == nil {
			return nil
		}
		return d.DigitalIO.RegisterCallback(cb)
	}
	return d.RegisterCallbackFunc(cb)
}

// UnregisterCallback calls the injected UnregisterCallback or the real version.
func (d *DigitalIO) UnregisterCallback() error {
	d.mu.Lock()
	d.unregisterCount++
	d.mu.Unlock()
	if d.UnregisterCallbackFunc == nil {
		if d.DigitalIO == nil {
			return nil
		}
		return d.DigitalIO.UnregisterCallback()
	}
	return d.UnregisterCallbackFunc()
}

// Close calls the injected Close or the real version.
func (d *DigitalIO) Close(ctx context.Context) error {
	if d.CloseFunc == nil {
		if d.DigitalIO == nil {
			return nil
		}
		return d.DigitalIO.Close(ctx)
	}
	return d.CloseFunc(ctx)
}

// Callback returns the last callback passed to RegisterCallback, even if it has since been
// unregistered. Tests use it to play the part of a driver that misbehaves.
func (d *DigitalIO) Callback() board.InterruptCallback {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.callback
}

// RegisterCount returns how many times RegisterCallback was called.
func (d *DigitalIO) RegisterCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registerCount
}

// UnregisterCount returns how many times UnregisterCallback was called.
func (d *DigitalIO) UnregisterCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unregisterCount
}
