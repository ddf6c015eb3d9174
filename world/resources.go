package world

import (
	"reflect"

	"github.com/rotisserie/eris"

	"github.com/bevyengine/bevy-sub038/tick"
	"github.com/bevyengine/bevy-sub038/types"
)

var ErrResourceNotFound = eris.New("resource not found")

// ResourceStore holds singleton, non-entity-keyed values keyed by their Go
// type. Each resource type gets a stable ResourceID on first touch, used by
// the scheduler's static access-conflict analysis exactly like component
// ids.
type ResourceStore struct {
	entries map[reflect.Type]*resourceEntry
	ids     map[reflect.Type]types.ResourceID
	nextID  types.ResourceID
}

type resourceEntry struct {
	value reflect.Value // pointer to the stored value
	ticks tick.ComponentTicks
}

func newResourceStore() *ResourceStore {
	return &ResourceStore{
		entries: make(map[reflect.Type]*resourceEntry),
		ids:     make(map[reflect.Type]types.ResourceID),
	}
}

// IDOf returns the resource id for a Go type, assigning one on first touch.
// Access declarations use this before the resource value necessarily exists.
func (s *ResourceStore) IDOf(t reflect.Type) types.ResourceID {
	if id, ok := s.ids[t]; ok {
		return id
	}
	id := s.nextID
	s.ids[t] = id
	s.nextID++
	return id
}

// Len returns the number of stored resources.
func (s *ResourceStore) Len() int {
	return len(s.entries)
}

// InsertResource stores value as the singleton of its type, replacing any
// previous value.
func InsertResource[T any](w *World, value T) {
	t := reflect.TypeOf(value)
	now := w.CurrentTick()
	store := w.resources
	store.IDOf(t)
	if entry, ok := store.entries[t]; ok {
		entry.value.Elem().Set(reflect.ValueOf(value))
		entry.ticks.Changed = now
		return
	}
	ptr := reflect.New(t)
	ptr.Elem().Set(reflect.ValueOf(value))
	store.entries[t] = &resourceEntry{
		value: ptr,
		ticks: tick.NewComponentTicks(now),
	}
}

// Resource returns a read-only pointer to the singleton of type T.
func Resource[T any](w *World) (*T, error) {
	var zero T
	entry, ok := w.resources.entries[reflect.TypeOf(zero)]
	if !ok {
		return nil, eris.Wrapf(ErrResourceNotFound, "resource %T", zero)
	}
	return entry.value.Interface().(*T), nil
}

// ResourceMut returns a mutable pointer to the singleton of type T and
// stamps its changed tick.
func ResourceMut[T any](w *World) (*T, error) {
	var zero T
	entry, ok := w.resources.entries[reflect.TypeOf(zero)]
	if !ok {
		return nil, eris.Wrapf(ErrResourceNotFound, "resource %T", zero)
	}
	entry.ticks.Changed = w.CurrentTick()
	return entry.value.Interface().(*T), nil
}

// ResourceTicks returns the add/change stamps for the singleton of type T.
func ResourceTicks[T any](w *World) (tick.ComponentTicks, error) {
	var zero T
	entry, ok := w.resources.entries[reflect.TypeOf(zero)]
	if !ok {
		return tick.ComponentTicks{}, eris.Wrapf(ErrResourceNotFound, "resource %T", zero)
	}
	return entry.ticks, nil
}

// ResourceIDFor returns the access-analysis id for resource type T.
func ResourceIDFor[T any](w *World) types.ResourceID {
	var zero T
	return w.resources.IDOf(reflect.TypeOf(zero))
}
