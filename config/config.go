// Package config defines the structures to configure a pulse monitor and the means to read them
// from a file.
package config

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/pulsemonitor/components/board"
	"go.viam.com/pulsemonitor/components/pulsemonitor"
	"go.viam.com/pulsemonitor/logging"
)

// Config describes the board to open and how to monitor it.
type Config struct {
	ConfigFilePath string `json:"-"`

	Board    board.Config        `json:"board"`
	Monitor  pulsemonitor.Config `json:"monitor"`
	LogLevel string              `json:"log_level,omitempty"`
}

// Ensure ensures all parts of the config are valid.
func (c *Config) Ensure() error {
	if err := c.Board.Validate("board"); err != nil {
		return err
	}
	if err := c.Monitor.Validate("monitor"); err != nil {
		return err
	}
	if c.LogLevel != "" {
		if _, err := logging.LevelFromString(c.LogLevel); err != nil {
			return utils.NewConfigValidationError("log_level", err)
		}
	}
	return nil
}

// Level returns the configured log level, INFO if none is set.
func (c *Config) Level() logging.Level {
	if c.LogLevel == "" {
		return logging.INFO
	}
	level, err := logging.LevelFromString(c.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}

// ErrNoBoard is returned when a config has no board section at all.
var ErrNoBoard = errors.New("config has no board")
