package commonsysfs

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"periph.io/x/conn/v3/gpio"

	"go.viam.com/pulsemonitor/components/board"
)

// A Config maps logical pins onto periph pin names.
type Config struct {
	// Pins maps a logical pin number to a periph pin name, such as "GPIO17".
	Pins map[string]string `json:"pins"`
	// Pull is the input bias: "down" (default), "up" or "none".
	Pull string `json:"pull,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if len(conf.Pins) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "pins")
	}
	if _, err := conf.pinNames(); err != nil {
		return utils.NewConfigValidationError(fmt.Sprintf("%s.pins", path), err)
	}
	if _, err := conf.pull(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

func (conf *Config) pull() (gpio.Pull, error) {
	switch conf.Pull {
	case "", "down":
		return gpio.PullDown, nil
	case "up":
		return gpio.PullUp, nil
	case "none":
		return gpio.Float, nil
	}
	return gpio.PullNoChange, errors.Errorf("unknown pull %q", conf.Pull)
}

func (conf *Config) pinNames() (map[board.Pin]string, error) {
	keys := make([]string, 0, len(conf.Pins))
	for key := range conf.Pins {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	names := map[board.Pin]string{}
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
		if conf.Pins[key] == "" {
			return nil, errors.Errorf("pin %d has no name", n)
		}
		names[pin] = conf.Pins[key]
	}
	return names, nil
}
