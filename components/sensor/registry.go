package sensor

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/rangesim/logging"
	"go.viam.com/rangesim/resource"
)

type (
	// A Constructor creates a sensor of one kind from a validated config.
	Constructor func(
		ctx context.Context,
		deps Dependencies,
		conf resource.Config,
		logger logging.Logger,
	) (Sensor, error)

	// An AttributeMapConverter converts free-form attributes into a kind's native config.
	AttributeMapConverter func(attributes resource.AttributeMap) (resource.ConfigValidator, error)
)

// Registration stores the functions needed to build a sensor kind.
type Registration struct {
	Constructor           Constructor
	AttributeMapConverter AttributeMapConverter
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Registration{}
)

// RegisterKind registers a sensor kind with its constructor. It panics on duplicate kinds.
func RegisterKind(kind string, reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, old := registry[kind]; old {
		panic(errors.Errorf("trying to register two sensor kinds with same name %q", kind))
	}
	if reg.Constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for sensor kind %q", kind))
	}
	registry[kind] = reg
}

// Lookup looks up a sensor registration by kind.
func Lookup(kind string) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[kind]
	return reg, ok
}

// Kinds returns every registered kind in sorted order.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// NewUnknownKindError is returned when a config names a kind nobody registered.
func NewUnknownKindError(kind string) error {
	return errors.Errorf("unknown sensor kind %q", kind)
}

// ConvertAttributes fills in conf.ConvertedAttributes using the kind's converter, if it has one.
func ConvertAttributes(conf *resource.Config) error {
	reg, ok := Lookup(conf.Kind)
	if !ok {
		return NewUnknownKindError(conf.Kind)
	}
	if reg.AttributeMapConverter == nil || conf.ConvertedAttributes != nil {
		return nil
	}
	converted, err := reg.AttributeMapConverter(conf.Attributes)
	if err != nil {
		return errors.Wrapf(err, "error converting attributes for sensor %q", conf.Name)
	}
	conf.ConvertedAttributes = converted
	return nil
}

// New converts, validates and constructs a sensor from its config.
func New(ctx context.Context, deps Dependencies, conf resource.Config, logger logging.Logger) (Sensor, error) {
	if err := ConvertAttributes(&conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(conf.Name); err != nil {
		return nil, err
	}
	reg, _ := Lookup(conf.Kind)
	return reg.Constructor(ctx, deps, conf, logger.Sublogger(conf.Name))
}
