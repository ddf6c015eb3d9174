package storage

import (
	"github.com/rotisserie/eris"

	"github.com/bevyengine/bevy-sub038/tick"
	"github.com/bevyengine/bevy-sub038/types"
)

// Table is the columnar backing store for one archetype: one column per
// table-storage component type, plus the entity occupying each row. Rows are
// kept dense with swap-remove, so deleting a row relocates at most one other
// entity.
type Table struct {
	columns   map[types.ComponentID]*column
	columnIDs []types.ComponentID
	entities  []types.Entity
}

func NewTable(metas []types.ComponentMetadata) *Table {
	t := &Table{
		columns: make(map[types.ComponentID]*column, len(metas)),
	}
	for _, meta := range metas {
		if meta.StorageType() != types.StorageTypeTable {
			continue
		}
		t.columns[meta.ID()] = newColumn(meta)
		t.columnIDs = append(t.columnIDs, meta.ID())
	}
	return t
}

func (t *Table) Len() int {
	return len(t.entities)
}

func (t *Table) Entities() []types.Entity {
	return t.entities
}

func (t *Table) EntityAt(row types.TableRow) types.Entity {
	return t.entities[row]
}

func (t *Table) HasColumn(id types.ComponentID) bool {
	_, ok := t.columns[id]
	return ok
}

// Column returns the column for the given component id.
func (t *Table) Column(id types.ComponentID) (*column, error) {
	col, ok := t.columns[id]
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotInTable, "component id %d", id)
	}
	return col, nil
}

// AllocateRow appends an empty row for entity and returns its index. Every
// column is extended with a zero value stamped at now; the caller must
// overwrite each slot before the row is observable.
func (t *Table) AllocateRow(entity types.Entity, now tick.Tick) types.TableRow {
	row := types.TableRow(len(t.entities))
	t.entities = append(t.entities, entity)
	ticks := tick.NewComponentTicks(now)
	for _, id := range t.columnIDs {
		t.columns[id].PushZero(ticks)
	}
	return row
}

// SwapRemove deletes the given row. If another entity was relocated into the
// vacated slot, it is returned so the caller can patch its location.
func (t *Table) SwapRemove(row types.TableRow) (moved types.Entity, ok bool) {
	last := len(t.entities) - 1
	movedIn := int(row) != last
	if movedIn {
		moved = t.entities[last]
		t.entities[row] = moved
	}
	t.entities = t.entities[:last]
	for _, id := range t.columnIDs {
		t.columns[id].SwapRemove(row)
	}
	return moved, movedIn
}

// MoveRowTo transfers the surviving values of row into a freshly allocated
// row of dst, preserving their tick stamps, and swap-removes the source row.
// Columns present only in dst are left zeroed and stamped at now for the
// caller to fill. It returns the destination row, plus the entity (if any)
// that was relocated into the vacated source slot.
func (t *Table) MoveRowTo(row types.TableRow, dst *Table, now tick.Tick) (dstRow types.TableRow, moved types.Entity, ok bool) {
	entity := t.entities[row]
	dstRow = dst.AllocateRow(entity, now)
	for _, id := range t.columnIDs {
		dstCol, exists := dst.columns[id]
		if !exists {
			continue
		}
		srcCol := t.columns[id]
		value, _ := srcCol.Get(row)
		_ = dstCol.Set(dstRow, value, now)
		dstCol.setTicks(dstRow, srcCol.Ticks(row))
	}
	moved, ok = t.SwapRemove(row)
	return dstRow, moved, ok
}
