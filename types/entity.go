package types

import (
	"fmt"
	"math"
)

// Entity is an opaque handle to a row of component data. It pairs a dense
// index with a generation counter: the index may be reused after a despawn,
// and the generation distinguishes a stale handle from the entity currently
// occupying that slot.
type Entity struct {
	index      uint32
	generation uint32
}

// Null is the zero-width "no entity" handle. It is never alive.
var Null = Entity{index: math.MaxUint32, generation: 0}

func NewEntity(index, generation uint32) Entity {
	return Entity{index: index, generation: generation}
}

// Index returns the dense slot index of the entity.
func (e Entity) Index() uint32 {
	return e.index
}

// Generation returns the generation counter for the entity's slot.
func (e Entity) Generation() uint32 {
	return e.generation
}

func (e Entity) IsNull() bool {
	return e == Null
}

func (e Entity) String() string {
	return fmt.Sprintf("%dv%d", e.index, e.generation)
}
