package board

import (
	"context"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/pulsemonitor/logging"
)

// Attributes are the model-specific settings of a board config.
type Attributes map[string]interface{}

// A Constructor builds a DigitalIO from its attributes.
type Constructor func(ctx context.Context, attributes Attributes, logger logging.Logger) (DigitalIO, error)

// Registration describes how to build and validate a DigitalIO model.
type Registration struct {
	Constructor        Constructor
	AttributeValidator func(attributes Attributes) error
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Registration{}
)

// RegisterModel registers a DigitalIO model. It panics on duplicate registration since models
// register themselves from init functions.
func RegisterModel(model string, reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[model]; ok {
		panic(errors.Errorf("trying to register two board models with the same name %q", model))
	}
	if reg.Constructor == nil {
		panic(errors.Errorf("cannot register board model %q with a nil constructor", model))
	}
	registry[model] = reg
}

// LookupModel returns the registration for the model, if any.
func LookupModel(model string) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[model]
	return reg, ok
}

// RegisteredModels returns the sorted names of all registered models.
func RegisteredModels() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	models := make([]string, 0, len(registry))
	for model := range registry {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// NewFromConfig builds the DigitalIO described by the config.
func NewFromConfig(ctx context.Context, conf Config, logger logging.Logger) (DigitalIO, error) {
	reg, ok := LookupModel(conf.Model)
	if !ok {
		return nil, errors.Errorf("unknown board model %q", conf.Model)
	}
	return reg.Constructor(ctx, conf.Attributes, logger)
}

// DecodeAttributes decodes attributes into the typed config pointed to by target, using the
// target's json tags.
func DecodeAttributes(attributes Attributes, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return errors.Wrap(decoder.Decode(map[string]interface{}(attributes)), "invalid board attributes")
}
