package storage

import (
	"reflect"

	"github.com/rotisserie/eris"

	"github.com/bevyengine/bevy-sub038/tick"
	"github.com/bevyengine/bevy-sub038/types"
)

// column is one contiguous array of component values, parallel to its
// table's entity list. The backing store is a typed slice built via reflect
// so that values of one component type stay adjacent in memory; the added
// and changed tick slices run parallel to it, one stamp pair per row.
type column struct {
	meta    types.ComponentMetadata
	data    reflect.Value // slice of meta.Type()
	added   []tick.Tick
	changed []tick.Tick
}

func newColumn(meta types.ComponentMetadata) *column {
	return &column{
		meta: meta,
		data: reflect.MakeSlice(reflect.SliceOf(meta.Type()), 0, 0),
	}
}

func (c *column) Len() int {
	return c.data.Len()
}

// Push appends a value, stamping it with the given ticks. The value must be
// assignable to the column's component type.
func (c *column) Push(value any, ticks tick.ComponentTicks) error {
	v := reflect.ValueOf(value)
	if v.Type() != c.meta.Type() {
		return eris.Errorf("cannot store %s in column of %s", v.Type(), c.meta.Type())
	}
	c.data = reflect.Append(c.data, v)
	c.added = append(c.added, ticks.Added)
	c.changed = append(c.changed, ticks.Changed)
	return nil
}

// PushZero appends the zero value of the component type. The caller is
// expected to overwrite it before the row becomes observable.
func (c *column) PushZero(ticks tick.ComponentTicks) {
	c.data = reflect.Append(c.data, reflect.Zero(c.meta.Type()))
	c.added = append(c.added, ticks.Added)
	c.changed = append(c.changed, ticks.Changed)
}

// Get returns a copy of the value at row.
func (c *column) Get(row types.TableRow) (any, error) {
	if int(row) < 0 || int(row) >= c.data.Len() {
		return nil, eris.Wrapf(ErrRowOutOfRange, "row %d, len %d", row, c.data.Len())
	}
	return c.data.Index(int(row)).Interface(), nil
}

// GetPointer returns a pointer to the value at row. Mutations through the
// pointer do not stamp the changed tick; callers that hand the pointer to
// user code must call MarkChanged themselves.
func (c *column) GetPointer(row types.TableRow) (any, error) {
	if int(row) < 0 || int(row) >= c.data.Len() {
		return nil, eris.Wrapf(ErrRowOutOfRange, "row %d, len %d", row, c.data.Len())
	}
	return c.data.Index(int(row)).Addr().Interface(), nil
}

// Set overwrites the value at row and stamps its changed tick.
func (c *column) Set(row types.TableRow, value any, now tick.Tick) error {
	v := reflect.ValueOf(value)
	if v.Type() != c.meta.Type() {
		return eris.Errorf("cannot store %s in column of %s", v.Type(), c.meta.Type())
	}
	if int(row) < 0 || int(row) >= c.data.Len() {
		return eris.Wrapf(ErrRowOutOfRange, "row %d, len %d", row, c.data.Len())
	}
	c.data.Index(int(row)).Set(v)
	c.changed[row] = now
	return nil
}

func (c *column) MarkChanged(row types.TableRow, now tick.Tick) {
	c.changed[row] = now
}

func (c *column) Ticks(row types.TableRow) tick.ComponentTicks {
	return tick.ComponentTicks{Added: c.added[row], Changed: c.changed[row]}
}

func (c *column) setTicks(row types.TableRow, ticks tick.ComponentTicks) {
	c.added[row] = ticks.Added
	c.changed[row] = ticks.Changed
}

// SwapRemove removes the value at row by moving the last value into its
// place, keeping the column dense.
func (c *column) SwapRemove(row types.TableRow) {
	last := c.data.Len() - 1
	if int(row) != last {
		c.data.Index(int(row)).Set(c.data.Index(last))
		c.added[row] = c.added[last]
		c.changed[row] = c.changed[last]
	}
	c.data = c.data.Slice(0, last)
	c.added = c.added[:last]
	c.changed = c.changed[:last]
}

// Slice returns the backing slice as a plain any holding []T. The batched
// fetch path type-asserts this back to []T and hands out contiguous
// sub-slices of it.
func (c *column) Slice() any {
	return c.data.Interface()
}

// AddedTicks and ChangedTicks expose the parallel tick slices for batched
// change stamping.
func (c *column) AddedTicks() []tick.Tick   { return c.added }
func (c *column) ChangedTicks() []tick.Tick { return c.changed }
