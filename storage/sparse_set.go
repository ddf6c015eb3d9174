package storage

import (
	"reflect"

	"github.com/rotisserie/eris"

	"github.com/bevyengine/bevy-sub038/tick"
	"github.com/bevyengine/bevy-sub038/types"
)

// SparseSet stores one component type's values densely, indexed by entity
// slot through a sparse lookup array. It is the storage backend for
// sparse-set components, which keep their value in place across archetype
// moves.
type SparseSet struct {
	meta     types.ComponentMetadata
	dense    reflect.Value // slice of meta.Type()
	entities []types.Entity
	added    []tick.Tick
	changed  []tick.Tick
	sparse   []int // by entity index; -1 when absent
}

func NewSparseSet(meta types.ComponentMetadata) *SparseSet {
	return &SparseSet{
		meta:  meta,
		dense: reflect.MakeSlice(reflect.SliceOf(meta.Type()), 0, 0),
	}
}

func (s *SparseSet) Len() int {
	return len(s.entities)
}

func (s *SparseSet) denseIndex(e types.Entity) int {
	idx := int(e.Index())
	if idx >= len(s.sparse) {
		return -1
	}
	di := s.sparse[idx]
	if di < 0 || di >= len(s.entities) || s.entities[di] != e {
		return -1
	}
	return di
}

func (s *SparseSet) Has(e types.Entity) bool {
	return s.denseIndex(e) >= 0
}

// Insert writes a value for e. A fresh insert stamps both ticks at now; an
// overwrite of an existing value stamps only the changed tick. The returned
// flag reports whether the value already existed.
func (s *SparseSet) Insert(e types.Entity, value any, now tick.Tick) (existed bool, err error) {
	v := reflect.ValueOf(value)
	if v.Type() != s.meta.Type() {
		return false, eris.Errorf("cannot store %s in sparse set of %s", v.Type(), s.meta.Type())
	}
	if di := s.denseIndex(e); di >= 0 {
		s.dense.Index(di).Set(v)
		s.changed[di] = now
		return true, nil
	}
	for int(e.Index()) >= len(s.sparse) {
		s.sparse = append(s.sparse, -1)
	}
	s.dense = reflect.Append(s.dense, v)
	s.entities = append(s.entities, e)
	s.added = append(s.added, now)
	s.changed = append(s.changed, now)
	s.sparse[e.Index()] = len(s.entities) - 1
	return false, nil
}

// Get returns a copy of the value for e.
func (s *SparseSet) Get(e types.Entity) (any, error) {
	di := s.denseIndex(e)
	if di < 0 {
		return nil, eris.Wrapf(ErrComponentNotOnEntity, "entity %s, component %q", e, s.meta.Name())
	}
	return s.dense.Index(di).Interface(), nil
}

// GetPointer returns a pointer to the value for e without stamping the
// changed tick; see column.GetPointer.
func (s *SparseSet) GetPointer(e types.Entity) (any, error) {
	di := s.denseIndex(e)
	if di < 0 {
		return nil, eris.Wrapf(ErrComponentNotOnEntity, "entity %s, component %q", e, s.meta.Name())
	}
	return s.dense.Index(di).Addr().Interface(), nil
}

func (s *SparseSet) MarkChanged(e types.Entity, now tick.Tick) {
	if di := s.denseIndex(e); di >= 0 {
		s.changed[di] = now
	}
}

func (s *SparseSet) Ticks(e types.Entity) (tick.ComponentTicks, error) {
	di := s.denseIndex(e)
	if di < 0 {
		return tick.ComponentTicks{}, eris.Wrapf(ErrComponentNotOnEntity, "entity %s, component %q", e, s.meta.Name())
	}
	return tick.ComponentTicks{Added: s.added[di], Changed: s.changed[di]}, nil
}

// Remove deletes the value for e, keeping the dense arrays packed.
func (s *SparseSet) Remove(e types.Entity) bool {
	di := s.denseIndex(e)
	if di < 0 {
		return false
	}
	last := len(s.entities) - 1
	if di != last {
		s.dense.Index(di).Set(s.dense.Index(last))
		s.entities[di] = s.entities[last]
		s.added[di] = s.added[last]
		s.changed[di] = s.changed[last]
		s.sparse[s.entities[di].Index()] = di
	}
	s.dense = s.dense.Slice(0, last)
	s.entities = s.entities[:last]
	s.added = s.added[:last]
	s.changed = s.changed[:last]
	s.sparse[e.Index()] = -1
	return true
}
