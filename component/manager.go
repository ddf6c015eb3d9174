package component

import (
	"fmt"
	"reflect"

	"github.com/rotisserie/eris"

	"github.com/bevyengine/bevy-sub038/storage"
	"github.com/bevyengine/bevy-sub038/types"
)

var (
	ErrComponentNotRegistered = eris.New("component not registered")
	ErrDuplicateComponent     = eris.New("duplicate component in bundle")
)

// Manager is the registry of component types and bundle layouts for one
// world. Component ids are assigned in registration order and never removed;
// bundle infos are memoized by the bundle's concrete struct type.
type Manager struct {
	registeredComponents map[string]types.ComponentMetadata
	componentsByID       []types.ComponentMetadata
	componentsByType     map[reflect.Type]types.ComponentMetadata
	schemas              map[string][]byte
	nextComponentID      types.ComponentID

	bundles       []*BundleInfo
	bundlesByType map[reflect.Type]types.BundleID
}

// NewManager creates a new component manager.
func NewManager() *Manager {
	return &Manager{
		registeredComponents: make(map[string]types.ComponentMetadata),
		componentsByType:     make(map[reflect.Type]types.ComponentMetadata),
		schemas:              make(map[string][]byte),
		bundlesByType:        make(map[reflect.Type]types.BundleID),
	}
}

// RegisterComponent registers compMetadata with the manager. There can only
// be one component with a given name, declared by the user via Name().
// Re-registering a component whose schema matches the stored one returns the
// already-registered metadata; a schema mismatch is a configuration error.
func (m *Manager) RegisterComponent(compMetadata types.ComponentMetadata) (types.ComponentMetadata, error) {
	if existing, ok := m.registeredComponents[compMetadata.Name()]; ok {
		storedSchema := m.schemas[compMetadata.Name()]
		if err := compMetadata.ValidateAgainstSchema(storedSchema); err != nil {
			if eris.Is(eris.Cause(err), types.ErrComponentSchemaMismatch) {
				return nil, eris.Wrap(err,
					fmt.Sprintf("component %q does not match its previously registered schema", compMetadata.Name()),
				)
			}
			return nil, eris.Wrap(err, "error when validating component schema against stored schema")
		}
		return existing, nil
	}

	// Ids past the mask width cannot be represented by any archetype or
	// query, so the registry refuses them here instead of letting a later
	// mask operation index out of range.
	if int(m.nextComponentID) >= storage.MaxComponentTypes {
		return nil, eris.Wrapf(storage.ErrTooManyComponentTypes,
			"cannot register component %q: the limit is %d component types per world",
			compMetadata.Name(), storage.MaxComponentTypes)
	}
	if err := compMetadata.SetID(m.nextComponentID); err != nil {
		return nil, err
	}
	m.registeredComponents[compMetadata.Name()] = compMetadata
	m.componentsByID = append(m.componentsByID, compMetadata)
	m.componentsByType[compMetadata.Type()] = compMetadata
	m.schemas[compMetadata.Name()] = compMetadata.GetSchema()
	m.nextComponentID++

	return compMetadata, nil
}

// GetComponents returns all registered components ordered by id.
func (m *Manager) GetComponents() []types.ComponentMetadata {
	return m.componentsByID
}

// GetComponentByName returns the component metadata for the given name.
func (m *Manager) GetComponentByName(name string) (types.ComponentMetadata, error) {
	compMetadata, ok := m.registeredComponents[name]
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotRegistered, "component %q", name)
	}
	return compMetadata, nil
}

// GetComponentByID returns the component metadata for the given id.
func (m *Manager) GetComponentByID(id types.ComponentID) (types.ComponentMetadata, error) {
	if int(id) < 0 || int(id) >= len(m.componentsByID) {
		return nil, eris.Wrapf(ErrComponentNotRegistered, "component id %d", id)
	}
	return m.componentsByID[id], nil
}

// GetComponentByType returns the component metadata for the given Go type.
func (m *Manager) GetComponentByType(t reflect.Type) (types.ComponentMetadata, error) {
	compMetadata, ok := m.componentsByType[t]
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotRegistered, "component type %s", t)
	}
	return compMetadata, nil
}

// ComponentCount returns the number of registered component types.
func (m *Manager) ComponentCount() int {
	return len(m.componentsByID)
}
