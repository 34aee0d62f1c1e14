package pulsemonitor

import (
	"context"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
)

var (
	pulsesMeasure       = stats.Int64("pulsemonitor/pulses", "pulses counted on the monitored pin", stats.UnitDimensionless)
	readFailuresMeasure = stats.Int64("pulsemonitor/read_failures", "pin reads that failed", stats.UnitDimensionless)
	armFailuresMeasure  = stats.Int64("pulsemonitor/arm_failures", "interrupt requests that failed", stats.UnitDimensionless)

	// PulsesView sums counted pulses across every monitor in the process.
	PulsesView = &view.View{
		Name:        "pulsemonitor/pulses",
		Description: "total pulses counted",
		Measure:     pulsesMeasure,
		Aggregation: view.Sum(),
	}
	// ReadFailuresView sums failed pin reads.
	ReadFailuresView = &view.View{
		Name:        "pulsemonitor/read_failures",
		Description: "total failed pin reads",
		Measure:     readFailuresMeasure,
		Aggregation: view.Sum(),
	}
	// ArmFailuresView sums failed interrupt requests.
	ArmFailuresView = &view.View{
		Name:        "pulsemonitor/arm_failures",
		Description: "total failed interrupt requests",
		Measure:     armFailuresMeasure,
		Aggregation: view.Sum(),
	}
)

// RegisterViews registers the monitor's views with opencensus so their data can be retrieved.
func RegisterViews() error {
	return view.Register(PulsesView, ReadFailuresView, ArmFailuresView)
}

// UnregisterViews undoes RegisterViews.
func UnregisterViews() {
	view.Unregister(PulsesView, ReadFailuresView, ArmFailuresView)
}

func record(measure *stats.Int64Measure) {
	stats.Record(context.Background(), measure.M(1))
}
