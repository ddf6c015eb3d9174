package component

import (
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"

	"github.com/bevyengine/bevy-sub038/codec"
	"github.com/bevyengine/bevy-sub038/types"
)

var _ types.ComponentMetadata = (*dynamicMetadata)(nil)

// dynamicMetadata backs component types discovered while resolving a bundle
// struct, where no static type parameter is available. It behaves like the
// generic componentMetadata but decodes through reflection.
type dynamicMetadata struct {
	isIDSet     bool
	id          types.ComponentID
	compType    reflect.Type
	storageType types.StorageType
	name        string
	schema      []byte
}

func newDynamicMetadata(compType reflect.Type, sample types.Component) (*dynamicMetadata, error) {
	if compType.Kind() != reflect.Struct {
		return nil, eris.Errorf("component %s must be a plain struct type", compType)
	}
	schema, err := jsonschema.ReflectFromType(compType).MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "component must be json serializable")
	}
	storageType := types.StorageTypeTable
	if _, ok := sample.(types.SparseComponent); ok {
		storageType = types.StorageTypeSparseSet
	}
	return &dynamicMetadata{
		compType:    compType,
		storageType: storageType,
		name:        sample.Name(),
		schema:      schema,
	}, nil
}

func (d *dynamicMetadata) SetID(id types.ComponentID) error {
	if d.isIDSet {
		if id == d.id {
			return nil
		}
		return eris.Errorf("id for component %v is already set to %v, cannot change to %v", d, d.id, id)
	}
	d.id = id
	d.isIDSet = true
	return nil
}

func (d *dynamicMetadata) ID() types.ComponentID          { return d.id }
func (d *dynamicMetadata) Type() reflect.Type             { return d.compType }
func (d *dynamicMetadata) StorageType() types.StorageType { return d.storageType }
func (d *dynamicMetadata) Name() string                   { return d.name }
func (d *dynamicMetadata) String() string                 { return d.name }
func (d *dynamicMetadata) GetSchema() []byte              { return d.schema }

func (d *dynamicMetadata) New() any {
	return reflect.Zero(d.compType).Interface()
}

func (d *dynamicMetadata) Encode(v any) ([]byte, error) {
	return codec.Encode(v)
}

func (d *dynamicMetadata) Decode(bz []byte) (any, error) {
	ptr := reflect.New(d.compType)
	if err := codec.DecodeInto(bz, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

func (d *dynamicMetadata) ValidateAgainstSchema(targetSchema []byte) error {
	diff, err := jsondiff.CompareJSON(d.schema, targetSchema)
	if err != nil {
		return eris.Wrap(err, "failed to compare component schema")
	}
	if diff.String() != "" {
		return eris.Wrap(types.ErrComponentSchemaMismatch, diff.String())
	}
	return nil
}
