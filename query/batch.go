package query

import (
	"reflect"

	"github.com/rotisserie/eris"

	"github.com/bevyengine/bevy-sub038/types"
)

var (
	ErrBatchOverSparse      = eris.New("batched fetch requires table storage")
	ErrBatchWithTickFilters = eris.New("batched fetch cannot evaluate tick filters")
)

// DefaultBatchSize is used when EachBatch is called with size <= 0.
const DefaultBatchSize = 1024

// EachBatch invokes fn with contiguous sub-slices of the component column
// for type T, at most size elements per call. The slices alias the live
// column storage, so writes through them are real writes; when the query
// declares write access to T, every visited element's changed tick is
// stamped at win.This.
//
// Batching skips per-row filter evaluation, so it is only available to
// queries whose filters are decidable per archetype. Queries carrying
// Changed or Added filters are rejected with ErrBatchWithTickFilters;
// callers needing tick filters iterate with Each instead.
func EachBatch[T types.Component](s *State, win Window, size int, fn func(entities []types.Entity, items []T) bool) error {
	var zero T
	meta, err := s.world.Registry().GetComponentByType(reflect.TypeOf(zero))
	if err != nil {
		return err
	}
	id := meta.ID()
	if !s.access.CompReads.Has(id) && !s.access.CompWrites.Has(id) {
		return eris.Wrapf(ErrComponentNotDeclared, "component %q", meta.Name())
	}
	if meta.StorageType() != types.StorageTypeTable {
		return eris.Wrapf(ErrBatchOverSparse, "component %q", meta.Name())
	}
	if s.root.usesTicks() {
		return ErrBatchWithTickFilters
	}
	if size <= 0 {
		size = DefaultBatchSize
	}
	write := s.access.CompWrites.Has(id)

	s.refreshArchetypes()
	for _, archID := range s.matched {
		arch, err := s.world.Archetypes().Get(archID)
		if err != nil {
			return err
		}
		table := arch.Table()
		col, err := table.Column(id)
		if err != nil {
			return err
		}
		slice, ok := col.Slice().([]T)
		if !ok {
			return eris.Errorf("type assertion for column failed: %T to []%T", col.Slice(), zero)
		}
		entities := table.Entities()
		for start := 0; start < len(slice); start += size {
			end := start + size
			if end > len(slice) {
				end = len(slice)
			}
			if write {
				for row := start; row < end; row++ {
					col.MarkChanged(types.TableRow(row), win.This)
				}
			}
			if !fn(entities[start:end], slice[start:end]) {
				return nil
			}
		}
	}
	return nil
}
