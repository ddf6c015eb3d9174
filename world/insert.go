package world

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/bevyengine/bevy-sub038/component"
	"github.com/bevyengine/bevy-sub038/storage"
	"github.com/bevyengine/bevy-sub038/types"
)

// ComponentStatus describes how a bundle write affected one field: the field
// either created the component on the entity or overwrote an existing value.
type ComponentStatus int

const (
	ComponentStatusAdded ComponentStatus = iota
	ComponentStatusOverwritten
)

// Spawn allocates a new entity and inserts the bundle's components on it.
// The bundle type is registered on first use.
func (w *World) Spawn(bundle any) (types.Entity, error) {
	info, err := w.registry.RegisterBundle(bundle)
	if err != nil {
		return types.Null, err
	}
	metas, err := w.metasFor(info.ComponentIDs())
	if err != nil {
		return types.Null, err
	}
	arch, err := w.archetypes.GetOrCreate(metas)
	if err != nil {
		return types.Null, err
	}

	now := w.CurrentTick()
	e := w.index.Alloc()
	row := arch.Table().AllocateRow(e, now)
	if err := w.writeBundle(arch, row, e, info, bundle, nil); err != nil {
		return types.Null, err
	}
	// Location is updated last so the spawn is atomic from the caller's
	// perspective.
	w.index.SetLocation(e, storage.Location{Archetype: arch.ID(), Row: row})

	w.Logger.Debug().
		Str("entity", e.String()).
		Int("archetype_id", int(arch.ID())).
		Msg("entity spawned")
	return e, nil
}

// Insert writes the bundle's components onto an existing entity. Components
// the entity already has are overwritten in place; new components move the
// entity to the archetype whose set is the union of its current set and the
// bundle's.
func (w *World) Insert(e types.Entity, bundle any) error {
	info, err := w.registry.RegisterBundle(bundle)
	if err != nil {
		return err
	}
	loc, err := w.index.Location(e)
	if err != nil {
		return err
	}
	src, err := w.archetypes.Get(loc.Archetype)
	if err != nil {
		return err
	}

	dst, err := w.insertTarget(src, info)
	if err != nil {
		return err
	}

	// Per-field status: fields whose component the entity already has are
	// overwrites; the rest are fresh adds.
	statuses := make([]ComponentStatus, len(info.ComponentIDs()))
	for i, id := range info.ComponentIDs() {
		if src.Contains(id) {
			statuses[i] = ComponentStatusOverwritten
		} else {
			statuses[i] = ComponentStatusAdded
		}
	}

	if dst.ID() == src.ID() {
		// Every bundle component is already present; overwrite in place.
		return w.writeBundle(src, loc.Row, e, info, bundle, statuses)
	}

	now := w.CurrentTick()
	dstRow, moved, movedOK := src.Table().MoveRowTo(loc.Row, dst.Table(), now)
	if err := w.writeBundle(dst, dstRow, e, info, bundle, statuses); err != nil {
		return err
	}
	if movedOK {
		// The swap-remove relocated another entity into the vacated row.
		w.index.SetLocation(moved, storage.Location{Archetype: src.ID(), Row: loc.Row})
	}
	w.index.SetLocation(e, storage.Location{Archetype: dst.ID(), Row: dstRow})
	return nil
}

// Remove strips the bundle's components from an entity, moving it to the
// archetype whose set is the difference. Bundle components the entity does
// not have are ignored. The bundle's field values are irrelevant; only its
// type matters.
func (w *World) Remove(e types.Entity, bundle any) error {
	info, err := w.registry.RegisterBundle(bundle)
	if err != nil {
		return err
	}
	loc, err := w.index.Location(e)
	if err != nil {
		return err
	}
	src, err := w.archetypes.Get(loc.Archetype)
	if err != nil {
		return err
	}

	dst, err := w.removeTarget(src, info)
	if err != nil {
		return err
	}
	if dst.ID() == src.ID() {
		return nil
	}

	// Sparse-set values for removed components live outside the table and
	// are dropped explicitly.
	for i, id := range info.ComponentIDs() {
		if info.StorageTypes()[i] != types.StorageTypeSparseSet || !src.Contains(id) {
			continue
		}
		set, err := w.sparseSet(id)
		if err != nil {
			return err
		}
		set.Remove(e)
	}

	now := w.CurrentTick()
	dstRow, moved, movedOK := src.Table().MoveRowTo(loc.Row, dst.Table(), now)
	if movedOK {
		w.index.SetLocation(moved, storage.Location{Archetype: src.ID(), Row: loc.Row})
	}
	w.index.SetLocation(e, storage.Location{Archetype: dst.ID(), Row: dstRow})
	return nil
}

// Despawn removes the entity and all its components. The entity's slot index
// becomes reusable; its generation is bumped so outstanding handles go stale.
func (w *World) Despawn(e types.Entity) error {
	loc, err := w.index.Location(e)
	if err != nil {
		return err
	}
	arch, err := w.archetypes.Get(loc.Archetype)
	if err != nil {
		return err
	}

	for _, id := range arch.Components() {
		meta, err := w.registry.GetComponentByID(id)
		if err != nil {
			return err
		}
		if meta.StorageType() != types.StorageTypeSparseSet {
			continue
		}
		set, err := w.sparseSet(id)
		if err != nil {
			return err
		}
		set.Remove(e)
	}

	moved, movedOK := arch.Table().SwapRemove(loc.Row)
	if movedOK {
		w.index.SetLocation(moved, storage.Location{Archetype: arch.ID(), Row: loc.Row})
	}
	if err := w.index.Free(e); err != nil {
		return err
	}

	w.Logger.Debug().Str("entity", e.String()).Msg("entity despawned")
	return nil
}

// writeBundle performs the per-field storage writes for a spawn or insert.
// Table-storage fields land in the archetype's table at the given row;
// sparse-set fields land in their component's sparse set. Each field's tick
// stamps follow its status: a fresh add stamps both ticks, an overwrite
// stamps only the changed tick. All fields are written before the caller
// publishes the entity's new location. A nil statuses means every field is a
// fresh add (spawn).
func (w *World) writeBundle(arch *storage.Archetype, row types.TableRow, e types.Entity, info *component.BundleInfo, bundle any, statuses []ComponentStatus) error {
	values, err := info.Extract(bundle)
	if err != nil {
		return err
	}
	now := w.CurrentTick()
	for i, id := range info.ComponentIDs() {
		if statuses != nil && w.Logger.GetLevel() <= zerolog.TraceLevel {
			w.Logger.Trace().
				Str("entity", e.String()).
				Int("component_id", int(id)).
				Bool("overwrite", statuses[i] == ComponentStatusOverwritten).
				Msg("bundle field write")
		}
		switch info.StorageTypes()[i] {
		case types.StorageTypeTable:
			col, err := arch.Table().Column(id)
			if err != nil {
				return err
			}
			if err := col.Set(row, values[i], now); err != nil {
				return err
			}
		case types.StorageTypeSparseSet:
			set, err := w.sparseSet(id)
			if err != nil {
				return err
			}
			if _, err := set.Insert(e, values[i], now); err != nil {
				return err
			}
		default:
			return eris.Errorf("unknown storage type %d", info.StorageTypes()[i])
		}
	}
	return nil
}

// insertTarget resolves the destination archetype for inserting the bundle
// into src, consulting and populating src's cached insert edge.
func (w *World) insertTarget(src *storage.Archetype, info *component.BundleInfo) (*storage.Archetype, error) {
	if dstID, ok := src.InsertEdge(info.ID()); ok {
		return w.archetypes.Get(dstID)
	}
	mask := src.Mask()
	for _, id := range info.ComponentIDs() {
		mask.Set(id)
	}
	metas, err := w.metasFor(mask.Bits())
	if err != nil {
		return nil, err
	}
	dst, err := w.archetypes.GetOrCreate(metas)
	if err != nil {
		return nil, err
	}
	src.CacheInsertEdge(info.ID(), dst.ID())
	return dst, nil
}

// removeTarget resolves the destination archetype for removing the bundle
// from src, consulting and populating src's cached remove edge.
func (w *World) removeTarget(src *storage.Archetype, info *component.BundleInfo) (*storage.Archetype, error) {
	if dstID, ok := src.RemoveEdge(info.ID()); ok {
		return w.archetypes.Get(dstID)
	}
	mask := src.Mask()
	for _, id := range info.ComponentIDs() {
		mask.Unset(id)
	}
	metas, err := w.metasFor(mask.Bits())
	if err != nil {
		return nil, err
	}
	dst, err := w.archetypes.GetOrCreate(metas)
	if err != nil {
		return nil, err
	}
	src.CacheRemoveEdge(info.ID(), dst.ID())
	return dst, nil
}
