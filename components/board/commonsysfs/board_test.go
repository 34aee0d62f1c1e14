package commonsysfs

import (
	"context"
	"sync"
	"testing"

	"go.viam.com/test"
	"go.viam.com/utils/testutils"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"go.viam.com/pulsemonitor/components/board"
	"go.viam.com/pulsemonitor/logging"
)

var (
	registerOnce sync.Once
	edgePin      = &gpiotest.Pin{N: "PULSEMON_TEST_EDGE", Num: 9001, EdgesChan: make(chan gpio.Level)}
	plainPin     = &gpiotest.Pin{N: "PULSEMON_TEST_PLAIN", Num: 9002}
)

func registerTestPins(t *testing.T) {
	t.Helper()
	registerOnce.Do(func() {
		test.That(t, gpioreg.Register(edgePin), test.ShouldBeNil)
		test.That(t, gpioreg.Register(plainPin), test.ShouldBeNil)
	})
}

func TestConfigValidate(t *testing.T) {
	conf := Config{}
	err := conf.Validate("path")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"pins" is required`)

	conf = Config{Pins: map[string]string{"1": "GPIO17"}}
	test.That(t, conf.Validate("path"), test.ShouldBeNil)
	pull, err := conf.pull()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pull, test.ShouldEqual, gpio.PullDown)

	conf.Pull = "up"
	pull, err = conf.pull()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pull, test.ShouldEqual, gpio.PullUp)

	conf.Pull = "sideways"
	err = conf.Validate("path")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown pull "sideways"`)

	conf = Config{Pins: map[string]string{"1": ""}}
	test.That(t, conf.Validate("path").Error(), test.ShouldContainSubstring, "pin 1 has no name")

	conf = Config{Pins: map[string]string{"5": "GPIO5"}}
	test.That(t, conf.Validate("path").Error(), test.ShouldContainSubstring, "unknown pin 5")
}

func TestDigitalIO(t *testing.T) {
	ctx := context.Background()
	registerTestPins(t)

	_, err := NewDigitalIO(ctx, Config{Pins: map[string]string{"1": "PULSEMON_TEST_MISSING"}}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `no gpio pin named "PULSEMON_TEST_MISSING"`)

	d, err := NewDigitalIO(ctx, Config{Pins: map[string]string{
		"1": edgePin.Name(),
		"2": plainPin.Name(),
	}}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	t.Run("read", func(t *testing.T) {
		value, err := d.ReadValue(ctx, board.Pin2)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, value, test.ShouldEqual, board.Low)
		test.That(t, plainPin.Out(gpio.High), test.ShouldBeNil)
		value, err = d.ReadValue(ctx, board.Pin2)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, value, test.ShouldEqual, board.High)

		value, err = d.ReadValue(ctx, board.Pin3)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, value, test.ShouldEqual, -1)
	})

	t.Run("request errors", func(t *testing.T) {
		err := d.RequestInterrupt(ctx, board.Pin3, board.EdgeRising)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "pin 3 is not mapped")

		err = d.RequestInterrupt(ctx, board.Pin1, board.EdgeNone)
		test.That(t, err, test.ShouldNotBeNil)

		// the plain test pin cannot detect edges
		err = d.RequestInterrupt(ctx, board.Pin2, board.EdgeRising)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "enabling rising edge detection")
	})

	t.Run("edges", func(t *testing.T) {
		var mu sync.Mutex
		var levels []int
		test.That(t, d.RegisterCallback(func(pin board.Pin) {
			test.That(t, pin, test.ShouldEqual, board.Pin1)
			value, err := d.ReadValue(ctx, pin)
			test.That(t, err, test.ShouldBeNil)
			mu.Lock()
			levels = append(levels, value)
			mu.Unlock()
		}), test.ShouldBeNil)
		test.That(t, d.RequestInterrupt(ctx, board.Pin1, board.EdgeRising), test.ShouldBeNil)
		test.That(t, d.RequestInterrupt(ctx, board.Pin1, board.EdgeRising), test.ShouldBeNil)

		edgePin.EdgesChan <- gpio.High
		edgePin.EdgesChan <- gpio.High
		testutils.WaitForAssertion(t, func(tb testing.TB) {
			tb.Helper()
			mu.Lock()
			defer mu.Unlock()
			test.That(tb, levels, test.ShouldResemble, []int{board.High, board.High})
		})

		test.That(t, d.UnregisterCallback(), test.ShouldBeNil)
		edgePin.EdgesChan <- gpio.High
		mu.Lock()
		test.That(t, levels, test.ShouldHaveLength, 2)
		mu.Unlock()
	})

	test.That(t, d.Close(ctx), test.ShouldBeNil)
	test.That(t, d.Close(ctx), test.ShouldBeNil)
	_, err = d.ReadValue(ctx, board.Pin1)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, d.RequestInterrupt(ctx, board.Pin1, board.EdgeRising), test.ShouldNotBeNil)
}
