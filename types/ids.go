package types

// ComponentID is the stable integer id assigned to a component type when it
// is first registered. Ids are never reassigned or removed.
type ComponentID int

// ArchetypeID identifies a unique component-set grouping of entities.
type ArchetypeID int

// BundleID identifies a registered bundle type. A BundleID maps to exactly
// one BundleInfo for the lifetime of the registry.
type BundleID int

// ResourceID is the stable integer id assigned to a resource type, used by
// the scheduler's access-conflict analysis.
type ResourceID int

// TableRow is a row index local to one archetype's backing table.
type TableRow int

// BadRow marks an entity that has no assigned table row.
const BadRow TableRow = -1

// StorageType tags how a component type's data is laid out.
type StorageType int

const (
	// StorageTypeTable stores component data in a contiguous column, one
	// slot per entity row in the owning archetype's table.
	StorageTypeTable StorageType = iota
	// StorageTypeSparseSet stores component data in a hash-indexed dense
	// set, for rarely-present or frequently added/removed types.
	StorageTypeSparseSet
)

func (s StorageType) String() string {
	switch s {
	case StorageTypeTable:
		return "Table"
	case StorageTypeSparseSet:
		return "SparseSet"
	}
	return "Unknown"
}
