package query

import (
	"github.com/bevyengine/bevy-sub038/storage"
	"github.com/bevyengine/bevy-sub038/types"
)

// Access is the declared data-access set of a query or system: which
// component and resource types it reads and writes, and whether it demands
// exclusive world access. The scheduler proves parallel safety from Access
// values alone; there is no per-access runtime locking.
type Access struct {
	CompReads  storage.Mask
	CompWrites storage.Mask
	ResReads   storage.Mask
	ResWrites  storage.Mask
	Exclusive  bool
}

func (a *Access) AddComponentRead(id types.ComponentID) {
	a.CompReads.Set(id)
}

func (a *Access) AddComponentWrite(id types.ComponentID) {
	a.CompWrites.Set(id)
}

func (a *Access) AddResourceRead(id types.ResourceID) {
	a.ResReads.Set(types.ComponentID(id))
}

func (a *Access) AddResourceWrite(id types.ResourceID) {
	a.ResWrites.Set(types.ComponentID(id))
}

// Extend unions other into a.
func (a *Access) Extend(other Access) {
	for i := range a.CompReads {
		a.CompReads[i] |= other.CompReads[i]
		a.CompWrites[i] |= other.CompWrites[i]
		a.ResReads[i] |= other.ResReads[i]
		a.ResWrites[i] |= other.ResWrites[i]
	}
	a.Exclusive = a.Exclusive || other.Exclusive
}

// IsEmpty reports whether the access set claims nothing.
func (a Access) IsEmpty() bool {
	return !a.Exclusive &&
		a.CompReads.IsEmpty() && a.CompWrites.IsEmpty() &&
		a.ResReads.IsEmpty() && a.ResWrites.IsEmpty()
}

// ConflictsWith reports whether two access sets cannot safely execute
// concurrently: either claims exclusive access, or one's writes overlap the
// other's reads or writes.
func (a Access) ConflictsWith(b Access) bool {
	if a.Exclusive || b.Exclusive {
		return true
	}
	if a.CompWrites.Intersects(b.CompWrites) ||
		a.CompWrites.Intersects(b.CompReads) ||
		a.CompReads.Intersects(b.CompWrites) {
		return true
	}
	if a.ResWrites.Intersects(b.ResWrites) ||
		a.ResWrites.Intersects(b.ResReads) ||
		a.ResReads.Intersects(b.ResWrites) {
		return true
	}
	return false
}
