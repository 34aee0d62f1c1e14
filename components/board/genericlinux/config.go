package genericlinux

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/pulsemonitor/components/board"
	"go.viam.com/pulsemonitor/logging"
)

// Model is the registered name of the GPIO character device board.
const Model = "genericlinux"

// DefaultGPIOChipDev is the chip used when a config names none.
const DefaultGPIOChipDev = "gpiochip0"

// A Config maps logical pins onto the lines of a GPIO chip.
type Config struct {
	// GPIOChipDev is the chip's device name under /dev, such as "gpiochip0".
	GPIOChipDev string `json:"gpio_chip_dev,omitempty"`
	// Pins maps a logical pin number to a line offset on the chip.
	Pins map[string]int `json:"pins"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if len(conf.Pins) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "pins")
	}
	_, err := conf.lineOffsets()
	if err != nil {
		return utils.NewConfigValidationError(fmt.Sprintf("%s.pins", path), err)
	}
	return nil
}

func (conf *Config) devicePath() string {
	chip := conf.GPIOChipDev
	if chip == "" {
		chip = DefaultGPIOChipDev
	}
	return "/dev/" + chip
}

// lineOffsets returns the chip line of each configured pin.
func (conf *Config) lineOffsets() (map[board.Pin]uint32, error) {
	keys := make([]string, 0, len(conf.Pins))
	for key := range conf.Pins {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	offsets := map[board.Pin]uint32{}
	used := map[int]string{}
	for _, key := range keys {
		n, err := strconv.Atoi(key)
		if err != nil {
			return nil, errors.Errorf("pin %q is not a number", key)
		}
		pin := board.Pin(n)
		known := false
		for _, p := range board.KnownPins {
			known = known || p == pin
		}
		if !known {
			return nil, errors.Errorf("unknown pin %d", n)
		}
		offset := conf.Pins[key]
		if offset < 0 {
			return nil, errors.Errorf("pin %d has negative line offset %d", n, offset)
		}
		if other, ok := used[offset]; ok {
			return nil, errors.Errorf("pins %s and %s both use line %d", other, key, offset)
		}
		used[offset] = key
		offsets[pin] = uint32(offset)
	}
	return offsets, nil
}

func init() {
	board.RegisterModel(Model, board.Registration{
		Constructor: func(ctx context.Context, attributes board.Attributes, logger logging.Logger) (board.DigitalIO, error) {
			var conf Config
			if err := board.DecodeAttributes(attributes, &conf); err != nil {
				return nil, err
			}
			return NewDigitalIO(ctx, conf, logger)
		},
		AttributeValidator: func(attributes board.Attributes) error {
			var conf Config
			if err := board.DecodeAttributes(attributes, &conf); err != nil {
				return err
			}
			return conf.Validate("")
		},
	})
}
