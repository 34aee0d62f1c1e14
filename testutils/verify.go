// Package testutils contains helpers shared by the pulse monitor's tests.
package testutils

import (
	"go.uber.org/goleak"
)

// VerifyTestMain runs the package's tests and then fails if any goroutine outlived them, such as
// an interrupt worker or subscriber delivery loop that was never stopped. Packages that start
// library goroutines which cannot be stopped pass extra options to ignore them.
func VerifyTestMain(m goleak.TestingM, opts ...goleak.Option) {
	goleak.VerifyTestMain(m, append([]goleak.Option{
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	}, opts...)...)
}
