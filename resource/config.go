package resource

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/rangesim/utils"
)

// AttributeMap is a convenience wrapper for the free-form attributes of a component config.
type AttributeMap map[string]interface{}

// Has returns whether the given attribute is present.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// ConfigValidator is implemented by converted attribute structs.
type ConfigValidator interface {
	Validate(path string) error
}

// A Config describes the configuration of a single sensor component.
type Config struct {
	Name       string       `json:"name"`
	Kind       string       `json:"kind"`
	Attributes AttributeMap `json:"attributes"`

	ConvertedAttributes ConfigValidator `json:"-"`
}

// ResourceName returns the sensor resource name for the config.
func (conf *Config) ResourceName() Name {
	return NewSensorName(conf.Name)
}

// String returns a verbose representation of the config.
func (conf *Config) String() string {
	return fmt.Sprintf("%#v", conf)
}

// Validate ensures the config names its component and kind and that converted attributes,
// if any, are valid.
func (conf *Config) Validate(path string) error {
	if conf.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if conf.Kind == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "kind")
	}
	if conf.ConvertedAttributes != nil {
		return conf.ConvertedAttributes.Validate(fmt.Sprintf("%s.attributes", path))
	}
	return nil
}

// NativeConfig returns the native config from the given config via its
// converted attributes.
func NativeConfig[T any](conf Config) (T, error) {
	return utils.AssertType[T](conf.ConvertedAttributes)
}

// DecodeAttributes decodes an attribute map into a fresh *T using the struct's json tags.
// Unknown attributes are an error.
func DecodeAttributes[T any](attributes AttributeMap) (*T, error) {
	var converted T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &converted,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]interface{}(attributes)); err != nil {
		return nil, errors.Wrapf(err, "failed to decode attributes into %T", &converted)
	}
	return &converted, nil
}
