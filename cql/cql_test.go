package cql

import (
	"testing"

	"github.com/bevyengine/bevy-sub038/assert"

	"github.com/bevyengine/bevy-sub038/filter"
)

func TestParser(t *testing.T) {
	term, err := internalCQLParser.ParseString("", "!(EXACT(a, b) & EXACT(a)) | CONTAINS(b)")
	assert.NilError(t, err)
	assert.Equal(t, "!((EXACT(a, b) & EXACT(a))) | CONTAINS(b)", term.String())

	result, err := termToComponentFilter(term)
	assert.NilError(t, err)
	expected := filter.Or(
		filter.Not(
			filter.And(
				filter.Exact(filter.ComponentNamed("a"), filter.ComponentNamed("b")),
				filter.Exact(filter.ComponentNamed("a")),
			),
		),
		filter.Contains(filter.ComponentNamed("b")),
	)
	assert.DeepEqual(t, expected, result)
}

func TestParseAll(t *testing.T) {
	result, err := Parse("ALL()")
	assert.NilError(t, err)
	assert.DeepEqual(t, filter.All(), result)
}

func TestParseChangedAndAdded(t *testing.T) {
	result, err := Parse("CHANGED(Position) & ADDED(Velocity)")
	assert.NilError(t, err)
	expected := filter.And(
		filter.ChangedNode{Ref: filter.ComponentNamed("Position")},
		filter.AddedNode{Ref: filter.ComponentNamed("Velocity")},
	)
	assert.DeepEqual(t, expected, result)
}

func TestParsePrecedenceIsLeftToRight(t *testing.T) {
	// a & b | c groups as (a & b) | c because operators fold left.
	result, err := Parse("CONTAINS(a) & CONTAINS(b) | CONTAINS(c)")
	assert.NilError(t, err)
	expected := filter.Or(
		filter.And(
			filter.Contains(filter.ComponentNamed("a")),
			filter.Contains(filter.ComponentNamed("b")),
		),
		filter.Contains(filter.ComponentNamed("c")),
	)
	assert.DeepEqual(t, expected, result)
}

func TestParseErrors(t *testing.T) {
	for _, expr := range []string{
		"",
		"CONTAINS()",
		"EXACT()",
		"CONTAINS(a) &",
		"WHATEVER(a)",
	} {
		_, err := Parse(expr)
		assert.Check(t, err != nil, "expression %q should not parse", expr)
	}
}
