// Package resource contains the naming and configuration types shared by every simulated
// component.
package resource

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Known namespaces, types and subtypes.
const (
	ResourceNamespaceRangesim = "rangesim"
	ResourceTypeComponent     = "component"
	ResourceSubtypeSensor     = "sensor"
	ResourceSubtypeEntity     = "entity"
)

// Name represents a known component of the simulation.
type Name struct {
	UUID      string
	Namespace string
	Type      string
	Subtype   string
	Name      string
}

// NewName creates a new Name based on parameters passed in. The UUID is derived from the other
// fields so the same name always maps to the same UUID.
func NewName(namespace, rType, subtype, name string) (Name, error) {
	if namespace == "" {
		return Name{}, errors.New("namespace parameter missing or invalid")
	}
	if rType == "" {
		return Name{}, errors.New("type parameter missing or invalid")
	}
	if subtype == "" {
		return Name{}, errors.New("subtype parameter missing or invalid")
	}
	i := fmt.Sprintf("%s:%s:%s", namespace, rType, subtype)
	if name != "" {
		i = fmt.Sprintf("%s/%s", i, name)
	}
	return Name{
		UUID:      uuid.NewSHA1(uuid.NameSpaceX500, []byte(i)).String(),
		Namespace: namespace,
		Type:      rType,
		Subtype:   subtype,
		Name:      name,
	}, nil
}

// NewSensorName is a helper for naming sensor components.
func NewSensorName(name string) Name {
	//nolint:errcheck
	n, _ := NewName(ResourceNamespaceRangesim, ResourceTypeComponent, ResourceSubtypeSensor, name)
	return n
}

// NewEntityName is a helper for naming world entities.
func NewEntityName(name string) Name {
	//nolint:errcheck
	n, _ := NewName(ResourceNamespaceRangesim, ResourceTypeComponent, ResourceSubtypeEntity, name)
	return n
}

// Validate ensures that important fields exist and are valid.
func (n Name) Validate() error {
	if _, err := uuid.Parse(n.UUID); err != nil {
		return errors.New("uuid field for resource missing or invalid")
	}
	if n.Namespace == "" {
		return errors.New("namespace field for resource missing or invalid")
	}
	if n.Type == "" {
		return errors.New("type field for resource missing or invalid")
	}
	if n.Subtype == "" {
		return errors.New("subtype field for resource missing or invalid")
	}
	return nil
}

func (n Name) String() string {
	return fmt.Sprintf("%s:%s:%s/%s", n.Namespace, n.Type, n.Subtype, n.Name)
}

// AsNamed returns a trivial Named implementation for this name.
func (n Name) AsNamed() Named {
	return selfNamed{n}
}

// Named is implemented by everything that has a resource name.
type Named interface {
	Name() Name
}

type selfNamed struct {
	name Name
}

func (s selfNamed) Name() Name {
	return s.name
}

// A Resource is a named thing that can be closed.
type Resource interface {
	Named
	Close(ctx context.Context) error
}
