package genericlinux

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/pulsemonitor/components/board"
)

func TestConfigValidate(t *testing.T) {
	conf := Config{}
	err := conf.Validate("path")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"pins" is required`)

	conf = Config{Pins: map[string]int{"1": 17, "2": 27, "3": 22}}
	test.That(t, conf.Validate("path"), test.ShouldBeNil)
	test.That(t, conf.devicePath(), test.ShouldEqual, "/dev/gpiochip0")
	offsets, err := conf.lineOffsets()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, offsets, test.ShouldResemble, map[board.Pin]uint32{board.Pin1: 17, board.Pin2: 27, board.Pin3: 22})

	conf.GPIOChipDev = "gpiochip4"
	test.That(t, conf.devicePath(), test.ShouldEqual, "/dev/gpiochip4")

	for _, tc := range []struct {
		pins     map[string]int
		contains string
	}{
		{map[string]int{"x": 1}, `"x" is not a number`},
		{map[string]int{"4": 1}, "unknown pin 4"},
		{map[string]int{"1": -3}, "negative line offset -3"},
		{map[string]int{"1": 5, "2": 5}, "pins 1 and 2 both use line 5"},
	} {
		conf := Config{Pins: tc.pins}
		err := conf.Validate("path")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "path.pins")
		test.That(t, err.Error(), test.ShouldContainSubstring, tc.contains)
	}
}

func TestRegistration(t *testing.T) {
	_, ok := board.LookupModel(Model)
	test.That(t, ok, test.ShouldBeTrue)

	conf := board.Config{Model: Model, Attributes: board.Attributes{
		"gpio_chip_dev": "gpiochip1",
		"pins":          map[string]interface{}{"1": 17},
	}}
	test.That(t, conf.Validate("board"), test.ShouldBeNil)

	conf.Attributes = board.Attributes{"pins": map[string]interface{}{"1": 17}, "analogs": []interface{}{}}
	err := conf.Validate("board")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid board attributes")
}
