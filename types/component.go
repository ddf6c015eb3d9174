package types

import (
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"
)

// ErrComponentSchemaMismatch is returned when a component is re-registered
// with a schema that differs from the one captured at first registration.
var ErrComponentSchemaMismatch = eris.New("component schema does not match target schema")

// Component is the interface the user implements to declare a new component
// type. Any plain data struct qualifies; Name must be unique per world.
type Component interface {
	// Name returns the name of the component.
	Name() string
}

// SparseComponent marks a component type that prefers sparse-set storage over
// the default columnar table storage.
type SparseComponent interface {
	Component
	// SparseStorage is a marker method; it is never called.
	SparseStorage()
}

// ComponentMetadata wraps a user-defined Component and provides the
// descriptor the storage layer needs: the stable id, the concrete Go type,
// the storage tag, and codec helpers. It is created once at registration and
// immutable afterwards (except for the one-time SetID).
type ComponentMetadata interface { //revive:disable-line:exported
	// SetID sets the ComponentID of this component. It must only be set once.
	SetID(ComponentID) error
	// ID returns the ComponentID of the component.
	ID() ComponentID
	// Type returns the concrete Go type of the component.
	Type() reflect.Type
	// StorageType returns the storage layout tag for the component.
	StorageType() StorageType
	// New returns a zero value of the component type.
	New() any
	Encode(any) ([]byte, error)
	Decode([]byte) (any, error)
	GetSchema() []byte
	// ValidateAgainstSchema errors with ErrComponentSchemaMismatch when the
	// component's schema differs from targetSchema.
	ValidateAgainstSchema(targetSchema []byte) error

	Component
}

// SerializeComponentSchema captures the JSON schema of a component at
// registration time so that later re-registrations can be checked against it.
func SerializeComponentSchema(component Component) ([]byte, error) {
	componentSchema := jsonschema.Reflect(component)
	schema, err := componentSchema.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "component must be json serializable")
	}
	return schema, nil
}

// IsComponentValid returns true if the given component matches the given
// serialized schema.
func IsComponentValid(component Component, jsonSchemaBytes []byte) (bool, error) {
	componentSchema := jsonschema.Reflect(component)
	componentSchemaBytes, err := componentSchema.MarshalJSON()
	if err != nil {
		return false, eris.Wrap(err, "")
	}
	return IsSchemaValid(componentSchemaBytes, jsonSchemaBytes)
}

func IsSchemaValid(jsonSchemaBytes1 []byte, jsonSchemaBytes2 []byte) (bool, error) {
	patch, err := jsondiff.CompareJSON(jsonSchemaBytes1, jsonSchemaBytes2)
	if err != nil {
		return false, eris.Wrap(err, "")
	}
	return patch.String() == "", nil
}

// ConvertComponentMetadatasToComponents casts a slice of ComponentMetadata
// into a slice of Component.
func ConvertComponentMetadatasToComponents(comps []ComponentMetadata) []Component {
	ret := make([]Component, len(comps))
	for i, comp := range comps {
		ret[i] = comp
	}
	return ret
}
