package pulsemonitor

// MonitorState is the monitoring state of a Monitor. Transitions are driven only by callers:
// Start, Stop and Close.
type MonitorState int

const (
	// Idle is the initial state. Interrupts that arrive while Idle are ignored.
	Idle MonitorState = iota
	// Monitoring counts qualifying interrupts on the monitored pin.
	Monitoring
	// Disposed is terminal; the monitor has released its hardware channel.
	Disposed
)

func (s MonitorState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Monitoring:
		return "monitoring"
	case Disposed:
		return "disposed"
	}
	return "unknown"
}
