package board

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Config selects a DigitalIO model and carries its model-specific attributes.
type Config struct {
	Model      string     `json:"model"`
	Attributes Attributes `json:"attributes,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (config *Config) Validate(path string) error {
	if config.Model == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "model")
	}
	reg, ok := LookupModel(config.Model)
	if !ok {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown board model %q", config.Model))
	}
	if reg.AttributeValidator == nil {
		return nil
	}
	if err := reg.AttributeValidator(config.Attributes); err != nil {
		return utils.NewConfigValidationError(path+".attributes", err)
	}
	return nil
}
