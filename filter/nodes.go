package filter

import "github.com/bevyengine/bevy-sub038/types"

// WithNode matches archetypes that contain the component. Membership only;
// it never reads component data.
type WithNode struct {
	Ref ComponentRef
}

func (WithNode) componentFilter() {}

// With matches entities that have component C.
func With[C types.Component]() ComponentFilter {
	return WithNode{Ref: Component[C]()}
}

// WithoutNode matches archetypes that lack the component.
type WithoutNode struct {
	Ref ComponentRef
}

func (WithoutNode) componentFilter() {}

// Without matches entities that lack component C.
func Without[C types.Component]() ComponentFilter {
	return WithoutNode{Ref: Component[C]()}
}

// AddedNode matches rows whose component was added within the observing
// system's change window. It implies membership.
type AddedNode struct {
	Ref ComponentRef
}

func (AddedNode) componentFilter() {}

// Added matches entities whose component C was added since the observing
// system last ran.
func Added[C types.Component]() ComponentFilter {
	return AddedNode{Ref: Component[C]()}
}

// ChangedNode matches rows whose component was mutated within the observing
// system's change window. It implies membership.
type ChangedNode struct {
	Ref ComponentRef
}

func (ChangedNode) componentFilter() {}

// Changed matches entities whose component C was mutated since the observing
// system last ran.
func Changed[C types.Component]() ComponentFilter {
	return ChangedNode{Ref: Component[C]()}
}

// AndNode matches when every sub-filter matches.
type AndNode struct {
	Filters []ComponentFilter
}

func (AndNode) componentFilter() {}

// And combines filters conjunctively.
func And(filters ...ComponentFilter) ComponentFilter {
	return AndNode{Filters: filters}
}

// OrNode matches when any sub-filter matches. Evaluation is NOT
// short-circuited at the row level: every branch's tick predicate is
// evaluated for every row, so each branch's observation state stays
// consistent even when another branch already decided the outcome. This is a
// stated contract, not an implementation accident.
type OrNode struct {
	Filters []ComponentFilter
}

func (OrNode) componentFilter() {}

// Or combines filters disjunctively.
func Or(filters ...ComponentFilter) ComponentFilter {
	return OrNode{Filters: filters}
}

// NotNode inverts its sub-filter. Only valid over membership filters; the
// query compiler rejects Not over tick filters.
type NotNode struct {
	Filter ComponentFilter
}

func (NotNode) componentFilter() {}

// Not inverts a membership filter.
func Not(f ComponentFilter) ComponentFilter {
	return NotNode{Filter: f}
}

// ContainsNode matches archetypes containing all listed components.
type ContainsNode struct {
	Refs []ComponentRef
}

func (ContainsNode) componentFilter() {}

// Contains matches archetypes that contain every listed component.
func Contains(refs ...ComponentRef) ComponentFilter {
	return ContainsNode{Refs: refs}
}

// ExactNode matches archetypes whose component set is exactly the listed
// components.
type ExactNode struct {
	Refs []ComponentRef
}

func (ExactNode) componentFilter() {}

// Exact matches archetypes that contain exactly the listed components.
func Exact(refs ...ComponentRef) ComponentFilter {
	return ExactNode{Refs: refs}
}

// AllNode matches every archetype.
type AllNode struct{}

func (AllNode) componentFilter() {}

// All matches all entities.
func All() ComponentFilter {
	return AllNode{}
}
