package pulsemonitor

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/pulsemonitor/components/board"
)

// Config describes which pin a Monitor counts and how.
type Config struct {
	// Pin is the logical pin to count. Defaults to pin 1.
	Pin int `json:"pin,omitempty"`
	// ActiveLevel is the level a read must return for an interrupt to count as a pulse.
	// Defaults to High.
	ActiveLevel *int `json:"active_level,omitempty"`
	// PendingEvents is how many events emitted before the first subscription are kept for it.
	// Zero means one; negative keeps none.
	PendingEvents int `json:"pending_events,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Pin != 0 {
		known := false
		for _, pin := range board.KnownPins {
			if board.Pin(conf.Pin) == pin {
				known = true
				break
			}
		}
		if !known {
			return utils.NewConfigValidationError(path, errors.Errorf("unknown pin %d", conf.Pin))
		}
	}
	if conf.ActiveLevel != nil && *conf.ActiveLevel != board.Low && *conf.ActiveLevel != board.High {
		return utils.NewConfigValidationError(path,
			errors.Errorf("active_level must be %d or %d, got %d", board.Low, board.High, *conf.ActiveLevel))
	}
	return nil
}

func (conf *Config) pin() board.Pin {
	if conf.Pin == 0 {
		return board.Pin1
	}
	return board.Pin(conf.Pin)
}

func (conf *Config) activeLevel() int {
	if conf.ActiveLevel == nil {
		return board.High
	}
	return *conf.ActiveLevel
}
