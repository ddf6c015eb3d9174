package world

import (
	"reflect"

	"github.com/rotisserie/eris"

	"github.com/bevyengine/bevy-sub038/tick"
	"github.com/bevyengine/bevy-sub038/types"
)

// Get returns a copy of entity e's component of type T.
func Get[T types.Component](w *World, e types.Entity) (T, error) {
	var zero T
	value, _, err := w.getRaw(reflect.TypeOf(zero), e)
	if err != nil {
		return zero, err
	}
	comp, ok := value.(T)
	if !ok {
		return zero, eris.Errorf("type assertion for component failed: %T to %T", value, zero)
	}
	return comp, nil
}

// Mut returns a pointer to entity e's component of type T and stamps its
// changed tick at the current pass. Mutations through the pointer are
// observable by Changed filters in subsequent passes.
func Mut[T types.Component](w *World, e types.Entity) (*T, error) {
	var zero T
	ptr, err := w.mutRaw(reflect.TypeOf(zero), e)
	if err != nil {
		return nil, err
	}
	typed, ok := ptr.(*T)
	if !ok {
		return nil, eris.Errorf("type assertion for component failed: %T to %T", ptr, &zero)
	}
	return typed, nil
}

// Has reports whether entity e currently has component type T.
func Has[T types.Component](w *World, e types.Entity) (bool, error) {
	var zero T
	meta, err := w.registry.GetComponentByType(reflect.TypeOf(zero))
	if err != nil {
		return false, err
	}
	loc, err := w.index.Location(e)
	if err != nil {
		return false, err
	}
	arch, err := w.archetypes.Get(loc.Archetype)
	if err != nil {
		return false, err
	}
	return arch.Contains(meta.ID()), nil
}

// Ticks returns the add/change stamps of entity e's component of type T.
func Ticks[T types.Component](w *World, e types.Entity) (tick.ComponentTicks, error) {
	var zero T
	meta, err := w.registry.GetComponentByType(reflect.TypeOf(zero))
	if err != nil {
		return tick.ComponentTicks{}, err
	}
	return w.ComponentTicks(meta.ID(), e)
}

// ComponentTicks returns the add/change stamps for a component id on e.
func (w *World) ComponentTicks(id types.ComponentID, e types.Entity) (tick.ComponentTicks, error) {
	meta, err := w.registry.GetComponentByID(id)
	if err != nil {
		return tick.ComponentTicks{}, err
	}
	if meta.StorageType() == types.StorageTypeSparseSet {
		set, err := w.sparseSet(id)
		if err != nil {
			return tick.ComponentTicks{}, err
		}
		return set.Ticks(e)
	}
	loc, err := w.index.Location(e)
	if err != nil {
		return tick.ComponentTicks{}, err
	}
	arch, err := w.archetypes.Get(loc.Archetype)
	if err != nil {
		return tick.ComponentTicks{}, err
	}
	col, err := arch.Table().Column(id)
	if err != nil {
		return tick.ComponentTicks{}, eris.Wrapf(ErrComponentNotOnEntity, "entity %s, component %q", e, meta.Name())
	}
	return col.Ticks(loc.Row), nil
}

func (w *World) getRaw(compType reflect.Type, e types.Entity) (any, types.ComponentMetadata, error) {
	meta, err := w.registry.GetComponentByType(compType)
	if err != nil {
		return nil, nil, err
	}
	if meta.StorageType() == types.StorageTypeSparseSet {
		set, err := w.sparseSet(meta.ID())
		if err != nil {
			return nil, nil, err
		}
		value, err := set.Get(e)
		return value, meta, err
	}
	loc, err := w.index.Location(e)
	if err != nil {
		return nil, nil, err
	}
	arch, err := w.archetypes.Get(loc.Archetype)
	if err != nil {
		return nil, nil, err
	}
	col, err := arch.Table().Column(meta.ID())
	if err != nil {
		return nil, nil, eris.Wrapf(ErrComponentNotOnEntity, "entity %s, component %q", e, meta.Name())
	}
	value, err := col.Get(loc.Row)
	return value, meta, err
}

func (w *World) mutRaw(compType reflect.Type, e types.Entity) (any, error) {
	meta, err := w.registry.GetComponentByType(compType)
	if err != nil {
		return nil, err
	}
	now := w.CurrentTick()
	if meta.StorageType() == types.StorageTypeSparseSet {
		set, err := w.sparseSet(meta.ID())
		if err != nil {
			return nil, err
		}
		ptr, err := set.GetPointer(e)
		if err != nil {
			return nil, err
		}
		set.MarkChanged(e, now)
		return ptr, nil
	}
	loc, err := w.index.Location(e)
	if err != nil {
		return nil, err
	}
	arch, err := w.archetypes.Get(loc.Archetype)
	if err != nil {
		return nil, err
	}
	col, err := arch.Table().Column(meta.ID())
	if err != nil {
		return nil, eris.Wrapf(ErrComponentNotOnEntity, "entity %s, component %q", e, meta.Name())
	}
	ptr, err := col.GetPointer(loc.Row)
	if err != nil {
		return nil, err
	}
	col.MarkChanged(loc.Row, now)
	return ptr, nil
}
