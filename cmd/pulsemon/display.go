package main

import (
	"io"
	"sync"

	"github.com/fatih/color"

	"go.viam.com/pulsemonitor/components/pulsemonitor"
)

// display prints status events one per line, colored by kind.
type display struct {
	mu  sync.Mutex
	out io.Writer
}

func newDisplay(out io.Writer) *display {
	return &display{out: out}
}

func colorFor(kind pulsemonitor.EventKind) *color.Color {
	if kind.IsFailure() {
		return color.New(color.FgRed)
	}
	switch kind {
	case pulsemonitor.KindPulse:
		return color.New(color.FgGreen, color.Bold)
	case pulsemonitor.KindStarted, pulsemonitor.KindStopped:
		return color.New(color.FgCyan)
	case pulsemonitor.KindReset, pulsemonitor.KindAlreadyMonitoring, pulsemonitor.KindNotMonitoring:
		return color.New(color.FgYellow)
	case pulsemonitor.KindInitialized, pulsemonitor.KindInitFailed, pulsemonitor.KindArmFailed,
		pulsemonitor.KindReading, pulsemonitor.KindReadFailed, pulsemonitor.KindTeardownFailed,
		pulsemonitor.KindDisconnected:
	}
	return color.New(color.Reset)
}

func (d *display) event(ev pulsemonitor.StatusEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	colorFor(ev.Kind).Fprintln(d.out, ev.String()) //nolint:errcheck
}

func (d *display) printf(format string, args ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	color.New(color.Faint).Fprintf(d.out, format+"\n", args...) //nolint:errcheck
}

func (d *display) prompt() {
	d.mu.Lock()
	defer d.mu.Unlock()
	color.New(color.Bold).Fprint(d.out, "> ") //nolint:errcheck
}
