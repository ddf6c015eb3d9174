package storage

import (
	"math/bits"

	"github.com/bevyengine/bevy-sub038/types"
)

// maskWords * 64 bounds the number of distinct component and resource types
// a single world can register.
const maskWords = 4

// MaxComponentTypes is the largest id representable in a Mask.
const MaxComponentTypes = maskWords * 64

// Mask is a fixed-width bitset over component (or resource) ids. It is a
// value type and usable as a map key, which is how archetypes are looked up
// by their component set.
type Mask [maskWords]uint64

func (m *Mask) Set(id types.ComponentID) {
	m[id>>6] |= uint64(1) << (uint64(id) & 63)
}

func (m *Mask) Unset(id types.ComponentID) {
	m[id>>6] &^= uint64(1) << (uint64(id) & 63)
}

func (m Mask) Has(id types.ComponentID) bool {
	return m[id>>6]&(uint64(1)<<(uint64(id)&63)) != 0
}

// ContainsAll reports whether every bit of sub is set in m.
func (m Mask) ContainsAll(sub Mask) bool {
	for i := range m {
		if m[i]&sub[i] != sub[i] {
			return false
		}
	}
	return true
}

// Intersects reports whether m and other share at least one bit.
func (m Mask) Intersects(other Mask) bool {
	for i := range m {
		if m[i]&other[i] != 0 {
			return true
		}
	}
	return false
}

func (m Mask) IsEmpty() bool {
	return m == Mask{}
}

// Count returns the number of set bits.
func (m Mask) Count() int {
	total := 0
	for i := range m {
		total += bits.OnesCount64(m[i])
	}
	return total
}

// Bits returns the set ids in ascending order.
func (m Mask) Bits() []types.ComponentID {
	ids := make([]types.ComponentID, 0, m.Count())
	for w := 0; w < maskWords; w++ {
		word := m[w]
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			ids = append(ids, types.ComponentID(w<<6+bit))
			word &= word - 1
		}
	}
	return ids
}

// MaskOf builds a mask from the given ids.
func MaskOf(ids ...types.ComponentID) Mask {
	var m Mask
	for _, id := range ids {
		m.Set(id)
	}
	return m
}
