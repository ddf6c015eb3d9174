package storage

import (
	"github.com/rotisserie/eris"

	"github.com/bevyengine/bevy-sub038/types"
)

// Archetype groups the entities that currently share one exact component
// set. Each archetype owns exactly one backing table for its table-storage
// components; sparse-set components participate in the archetype's identity
// but keep their data in the per-component sparse sets.
type Archetype struct {
	id         types.ArchetypeID
	mask       Mask
	components []types.ComponentID // ascending
	table      *Table

	// Cached transitions: bundle id -> destination archetype after inserting
	// or removing that bundle. Populated lazily, so repeated transitions are
	// O(1) lookups after the first.
	insertEdges map[types.BundleID]types.ArchetypeID
	removeEdges map[types.BundleID]types.ArchetypeID
}

func (a *Archetype) ID() types.ArchetypeID {
	return a.id
}

func (a *Archetype) Mask() Mask {
	return a.mask
}

// Components returns the archetype's component ids in ascending order.
func (a *Archetype) Components() []types.ComponentID {
	return a.components
}

func (a *Archetype) Table() *Table {
	return a.table
}

func (a *Archetype) Contains(id types.ComponentID) bool {
	return a.mask.Has(id)
}

func (a *Archetype) Count() int {
	return a.table.Len()
}

func (a *Archetype) InsertEdge(bundle types.BundleID) (types.ArchetypeID, bool) {
	id, ok := a.insertEdges[bundle]
	return id, ok
}

func (a *Archetype) CacheInsertEdge(bundle types.BundleID, dst types.ArchetypeID) {
	a.insertEdges[bundle] = dst
}

func (a *Archetype) RemoveEdge(bundle types.BundleID) (types.ArchetypeID, bool) {
	id, ok := a.removeEdges[bundle]
	return id, ok
}

func (a *Archetype) CacheRemoveEdge(bundle types.BundleID, dst types.ArchetypeID) {
	a.removeEdges[bundle] = dst
}

// Archetypes is the registry of all archetypes in a world, addressable by id
// and by component mask. Archetypes are only ever added; the slice index is
// the archetype id.
type Archetypes struct {
	archetypes []*Archetype
	byMask     map[Mask]types.ArchetypeID
}

func NewArchetypes() *Archetypes {
	return &Archetypes{
		byMask: make(map[Mask]types.ArchetypeID),
	}
}

// Count doubles as the archetype generation: queries remember the count they
// last saw and re-match only the archetypes added since.
func (s *Archetypes) Count() int {
	return len(s.archetypes)
}

func (s *Archetypes) Get(id types.ArchetypeID) (*Archetype, error) {
	if int(id) < 0 || int(id) >= len(s.archetypes) {
		return nil, eris.Errorf("archetype id %d out of range", id)
	}
	return s.archetypes[id], nil
}

func (s *Archetypes) GetByMask(mask Mask) (*Archetype, bool) {
	id, ok := s.byMask[mask]
	if !ok {
		return nil, false
	}
	return s.archetypes[id], true
}

// GetOrCreate returns the archetype for the exact component set described by
// metas, creating it (and its backing table) on first use.
func (s *Archetypes) GetOrCreate(metas []types.ComponentMetadata) (*Archetype, error) {
	var mask Mask
	for _, meta := range metas {
		if int(meta.ID()) >= MaxComponentTypes {
			return nil, eris.Wrapf(ErrTooManyComponentTypes, "component %q id %d", meta.Name(), meta.ID())
		}
		mask.Set(meta.ID())
	}
	if arch, ok := s.GetByMask(mask); ok {
		return arch, nil
	}

	ids := mask.Bits()
	arch := &Archetype{
		id:          types.ArchetypeID(len(s.archetypes)),
		mask:        mask,
		components:  ids,
		table:       NewTable(metas),
		insertEdges: make(map[types.BundleID]types.ArchetypeID),
		removeEdges: make(map[types.BundleID]types.ArchetypeID),
	}
	s.archetypes = append(s.archetypes, arch)
	s.byMask[mask] = arch.id
	return arch, nil
}

// All returns every archetype, ordered by id.
func (s *Archetypes) All() []*Archetype {
	return s.archetypes
}
