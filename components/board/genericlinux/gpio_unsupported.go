//go:build !linux

package genericlinux

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/pulsemonitor/components/board"
	"go.viam.com/pulsemonitor/logging"
)

// NewDigitalIO fails outside Linux, which is the only platform with a GPIO character device.
// The config is still validated so misconfigurations are reported first.
func NewDigitalIO(ctx context.Context, conf Config, logger logging.Logger) (board.DigitalIO, error) {
	if _, err := conf.lineOffsets(); err != nil {
		return nil, err
	}
	return nil, errors.New("the genericlinux board is only supported on linux")
}
