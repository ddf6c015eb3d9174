package component

import (
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"

	"github.com/bevyengine/bevy-sub038/codec"
	"github.com/bevyengine/bevy-sub038/types"
)

// Interface guard
var _ types.ComponentMetadata = (*componentMetadata[types.Component])(nil)

// Option is a type that can be passed to NewComponentMetadata to augment the
// creation of the component type.
type Option[T types.Component] func(c *componentMetadata[T])

// componentMetadata is the concrete descriptor for one component type: its
// stable id, Go type, storage tag, and captured JSON schema.
type componentMetadata[T types.Component] struct {
	isIDSet     bool
	id          types.ComponentID
	compType    reflect.Type
	storageType types.StorageType
	name        string
	schema      []byte
	defaultVal  types.Component
}

// NewComponentMetadata creates the metadata descriptor for component type T.
// The storage tag defaults to table storage; types implementing
// types.SparseComponent are placed in sparse-set storage instead.
func NewComponentMetadata[T types.Component](opts ...Option[T]) (
	types.ComponentMetadata, error,
) {
	var t T
	compType := reflect.TypeOf(t)
	if compType == nil || compType.Kind() != reflect.Struct {
		return nil, eris.Errorf("component %T must be a plain struct type", t)
	}

	schema, err := jsonschema.ReflectFromType(compType).MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "component must be json serializable")
	}

	storageType := types.StorageTypeTable
	if _, ok := any(t).(types.SparseComponent); ok {
		storageType = types.StorageTypeSparseSet
	}

	compMetadata := &componentMetadata[T]{
		compType:    compType,
		storageType: storageType,
		name:        t.Name(),
		schema:      schema,
	}
	for _, opt := range opts {
		opt(compMetadata)
	}

	return compMetadata, nil
}

func (c *componentMetadata[T]) GetSchema() []byte {
	return c.schema
}

// SetID sets this component's ID. It must be unique across the world object.
func (c *componentMetadata[T]) SetID(id types.ComponentID) error {
	if c.isIDSet {
		// Components are initialized one time on startup. In tests it's often
		// useful to use the same component in multiple worlds, so
		// re-initialization is allowed as long as the ID doesn't change.
		if id == c.id {
			return nil
		}
		return eris.Errorf("id for component %v is already set to %v, cannot change to %v", c, c.id, id)
	}
	c.id = id
	c.isIDSet = true
	return nil
}

// String returns the component type name.
func (c *componentMetadata[T]) String() string {
	return c.name
}

// Name returns the component type name.
func (c *componentMetadata[T]) Name() string {
	return c.name
}

// ID returns the component type id.
func (c *componentMetadata[T]) ID() types.ComponentID {
	return c.id
}

func (c *componentMetadata[T]) Type() reflect.Type {
	return c.compType
}

func (c *componentMetadata[T]) StorageType() types.StorageType {
	return c.storageType
}

// New returns the default value for the component type. It is what a freshly
// allocated storage slot holds before the bundle write fills it.
func (c *componentMetadata[T]) New() any {
	if c.defaultVal != nil {
		return c.defaultVal
	}
	return reflect.Zero(c.compType).Interface()
}

func (c *componentMetadata[T]) Encode(v any) ([]byte, error) {
	return codec.Encode(v)
}

func (c *componentMetadata[T]) Decode(bz []byte) (any, error) {
	return codec.Decode[T](bz)
}

func (c *componentMetadata[T]) ValidateAgainstSchema(targetSchema []byte) error {
	diff, err := jsondiff.CompareJSON(c.schema, targetSchema)
	if err != nil {
		return eris.Wrap(err, "failed to compare component schema")
	}

	if diff.String() != "" {
		return eris.Wrap(types.ErrComponentSchemaMismatch, diff.String())
	}

	return nil
}

func (c *componentMetadata[T]) validateDefaultVal() {
	if !reflect.TypeOf(c.defaultVal).AssignableTo(c.compType) {
		panic(fmt.Sprintf("default value is not assignable to component type: %s", c.name))
	}
}

// WithDefault updates the created componentMetadata with a default value.
func WithDefault[T types.Component](defaultVal T) Option[T] {
	return func(c *componentMetadata[T]) {
		c.defaultVal = defaultVal
		c.validateDefaultVal()
	}
}
