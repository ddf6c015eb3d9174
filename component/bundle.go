package component

import (
	"reflect"

	"github.com/rotisserie/eris"

	"github.com/bevyengine/bevy-sub038/types"
)

var componentInterfaceType = reflect.TypeOf((*types.Component)(nil)).Elem()

// BundleInfo is the cached storage layout for one concrete bundle type: the
// resolved, deduplicated component-id list with its parallel storage-type
// list, and the struct field index each component is extracted from. It is
// created at most once per bundle type.
type BundleInfo struct {
	id           types.BundleID
	typ          reflect.Type
	componentIDs []types.ComponentID
	storageTypes []types.StorageType
	fieldIndexes []int
}

func (b *BundleInfo) ID() types.BundleID {
	return b.id
}

func (b *BundleInfo) Type() reflect.Type {
	return b.typ
}

// ComponentIDs returns the bundle's component ids in field-declaration order.
func (b *BundleInfo) ComponentIDs() []types.ComponentID {
	return b.componentIDs
}

// StorageTypes runs parallel to ComponentIDs.
func (b *BundleInfo) StorageTypes() []types.StorageType {
	return b.storageTypes
}

// Extract pulls the per-component values out of a bundle value, ordered like
// ComponentIDs. The bundle must be of the type this info was built from.
func (b *BundleInfo) Extract(bundle any) ([]any, error) {
	v := reflect.ValueOf(bundle)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Type() != b.typ {
		return nil, eris.Errorf("bundle type %s does not match registered type %s", v.Type(), b.typ)
	}
	values := make([]any, len(b.fieldIndexes))
	for i, fieldIdx := range b.fieldIndexes {
		values[i] = v.Field(fieldIdx).Interface()
	}
	return values, nil
}

// RegisterBundle resolves the storage layout for the given bundle value's
// type. A bundle is a struct whose exported fields are all components; the
// fields are inserted and removed atomically as one unit.
//
// The call is idempotent: the first call per concrete type resolves each
// field's component id (registering previously unseen component types) and
// caches the result; subsequent calls return the cached info in O(1).
// A component type appearing twice within one bundle is a configuration
// error, detected here once and fatal to setup.
func (m *Manager) RegisterBundle(bundle any) (*BundleInfo, error) {
	typ := reflect.TypeOf(bundle)
	if typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, eris.Errorf("bundle must be a struct, got %T", bundle)
	}

	if id, ok := m.bundlesByType[typ]; ok {
		return m.bundles[id], nil
	}

	info := &BundleInfo{
		id:  types.BundleID(len(m.bundles)),
		typ: typ,
	}
	seen := make(map[types.ComponentID]struct{})
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		if !field.Type.Implements(componentInterfaceType) {
			return nil, eris.Errorf(
				"bundle %s field %q is not a component (missing Name() string)", typ, field.Name)
		}
		sample := reflect.Zero(field.Type).Interface().(types.Component)
		meta, err := m.registerDiscovered(field.Type, sample)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[meta.ID()]; dup {
			return nil, eris.Wrapf(ErrDuplicateComponent,
				"bundle %s contains component %q more than once", typ, meta.Name())
		}
		seen[meta.ID()] = struct{}{}
		info.componentIDs = append(info.componentIDs, meta.ID())
		info.storageTypes = append(info.storageTypes, meta.StorageType())
		info.fieldIndexes = append(info.fieldIndexes, i)
	}
	if len(info.componentIDs) == 0 {
		return nil, eris.Errorf("bundle %s has no component fields", typ)
	}

	m.bundles = append(m.bundles, info)
	m.bundlesByType[typ] = info.id
	return info, nil
}

// GetBundle returns the cached info for a bundle id.
func (m *Manager) GetBundle(id types.BundleID) (*BundleInfo, error) {
	if int(id) < 0 || int(id) >= len(m.bundles) {
		return nil, eris.Errorf("bundle id %d not registered", id)
	}
	return m.bundles[id], nil
}

// BundleCount returns the number of registered bundle types.
func (m *Manager) BundleCount() int {
	return len(m.bundles)
}

// registerDiscovered registers a component type found while walking a bundle
// struct. Already-registered types are returned as-is.
func (m *Manager) registerDiscovered(typ reflect.Type, sample types.Component) (types.ComponentMetadata, error) {
	if meta, err := m.GetComponentByType(typ); err == nil {
		return meta, nil
	}
	meta, err := newDynamicMetadata(typ, sample)
	if err != nil {
		return nil, err
	}
	return m.RegisterComponent(meta)
}
