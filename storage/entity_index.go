package storage

import (
	"github.com/rotisserie/eris"

	"github.com/bevyengine/bevy-sub038/types"
)

// Location records where a live entity's data currently lives: its archetype
// and its row in that archetype's table. The index is the single source of
// truth for entity placement; structural moves update it last, so a reader
// never observes a half-migrated entity.
type Location struct {
	Archetype types.ArchetypeID
	Row       types.TableRow
}

// EntityIndex allocates entity handles and tracks their locations. Despawned
// slot indices go on a freelist and are reused with a bumped generation, so
// stale handles held by user code can be detected.
type EntityIndex struct {
	generations []uint32
	locations   []Location
	alive       []bool
	free        []uint32
}

func NewEntityIndex() *EntityIndex {
	return &EntityIndex{}
}

// Alloc returns a fresh entity handle, reusing a despawned slot if one is
// available.
func (idx *EntityIndex) Alloc() types.Entity {
	if n := len(idx.free); n > 0 {
		slot := idx.free[n-1]
		idx.free = idx.free[:n-1]
		idx.alive[slot] = true
		idx.locations[slot] = Location{Row: types.BadRow}
		return types.NewEntity(slot, idx.generations[slot])
	}
	slot := uint32(len(idx.generations))
	idx.generations = append(idx.generations, 0)
	idx.locations = append(idx.locations, Location{Row: types.BadRow})
	idx.alive = append(idx.alive, true)
	return types.NewEntity(slot, 0)
}

// Free releases the entity's slot, incrementing its generation so any
// outstanding handles become stale.
func (idx *EntityIndex) Free(e types.Entity) error {
	if !idx.IsAlive(e) {
		return eris.Wrapf(ErrEntityDoesNotExist, "entity %s", e)
	}
	slot := e.Index()
	idx.alive[slot] = false
	idx.generations[slot]++
	idx.free = append(idx.free, slot)
	return nil
}

// IsAlive reports whether e refers to a currently live entity: its slot must
// be in use and its generation must match the slot's current generation.
func (idx *EntityIndex) IsAlive(e types.Entity) bool {
	slot := e.Index()
	if int(slot) >= len(idx.generations) {
		return false
	}
	return idx.alive[slot] && idx.generations[slot] == e.Generation()
}

func (idx *EntityIndex) Location(e types.Entity) (Location, error) {
	if !idx.IsAlive(e) {
		return Location{}, eris.Wrapf(ErrEntityDoesNotExist, "entity %s", e)
	}
	return idx.locations[e.Index()], nil
}

func (idx *EntityIndex) SetLocation(e types.Entity, loc Location) {
	idx.locations[e.Index()] = loc
}

// Len returns the number of live entities.
func (idx *EntityIndex) Len() int {
	return len(idx.generations) - len(idx.free)
}
