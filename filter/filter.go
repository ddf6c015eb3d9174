// Package filter declares the query filter vocabulary. Filters are pure
// descriptions; the query package compiles them against a world's component
// registry into archetype matchers and per-row tick predicates.
package filter

import (
	"reflect"

	"github.com/bevyengine/bevy-sub038/types"
)

// ComponentFilter is a node in a filter tree.
type ComponentFilter interface {
	componentFilter()
}

// ComponentRef names a component either statically (by Go type) or
// dynamically (by registered name, as produced by the CQL parser).
type ComponentRef struct {
	Type reflect.Type
	Name string
}

func (ComponentRef) componentFilter() {}

// Component builds a ComponentRef for component type T.
func Component[T types.Component]() ComponentRef {
	var x T
	return ComponentRef{Type: reflect.TypeOf(x)}
}

// ComponentNamed builds a ComponentRef resolved by registered name.
func ComponentNamed(name string) ComponentRef {
	return ComponentRef{Name: name}
}
