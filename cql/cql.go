// Package cql implements a small textual query language over component
// filters. An expression names components and combines them with CONTAINS,
// EXACT, CHANGED, ADDED, ALL, negation and the & and | operators:
//
//	CONTAINS(Position, Velocity) & !CHANGED(Health) | ALL()
//
// Parsed expressions lower to filter trees and compile through the regular
// query engine, so anything expressible here behaves exactly like its
// programmatic counterpart.
package cql

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/rotisserie/eris"

	"github.com/bevyengine/bevy-sub038/filter"
)

type cqlOperator int

const (
	opAnd cqlOperator = iota
	opOr
)

var operatorMap = map[string]cqlOperator{"&": opAnd, "|": opOr}

// Capture tells the parser how to transform a parsed string token into the
// operator type.
func (o *cqlOperator) Capture(s []string) error {
	if len(s) == 0 {
		return eris.New("invalid operator")
	}
	operator, ok := operatorMap[s[0]]
	if !ok {
		return eris.New("invalid operator")
	}
	*o = operator
	return nil
}

type cqlComponent struct {
	Name string `parser:"@Ident"`
}

type cqlAll struct{}

func (a *cqlAll) Capture(values []string) error {
	if values[0] == "ALL" && values[1] == "(" && values[2] == ")" {
		*a = cqlAll{}
	}
	return nil
}

type cqlNot struct {
	SubExpression *cqlValue `parser:"'!' @@"`
}

type cqlExact struct {
	Components []*cqlComponent `parser:"'EXACT' '(' (@@ ',')* @@ ')'"`
}

type cqlContains struct {
	Components []*cqlComponent `parser:"'CONTAINS' '(' (@@ ',')* @@ ')'"`
}

type cqlChanged struct {
	Component *cqlComponent `parser:"'CHANGED' '(' @@ ')'"`
}

type cqlAdded struct {
	Component *cqlComponent `parser:"'ADDED' '(' @@ ')'"`
}

type cqlValue struct {
	All           *cqlAll      `parser:"@('ALL' '(' ')')"`
	Exact         *cqlExact    `parser:"| @@"`
	Contains      *cqlContains `parser:"| @@"`
	Changed       *cqlChanged  `parser:"| @@"`
	Added         *cqlAdded    `parser:"| @@"`
	Not           *cqlNot      `parser:"| @@"`
	Subexpression *cqlTerm     `parser:"| '(' @@ ')'"`
}

type cqlFactor struct {
	Base *cqlValue `parser:"@@"`
}

type cqlOpFactor struct {
	Operator cqlOperator `parser:"@('&' | '|')"`
	Factor   *cqlFactor  `parser:"@@"`
}

type cqlTerm struct {
	Left  *cqlFactor     `parser:"@@"`
	Right []*cqlOpFactor `parser:"@@*"`
}

// Display

func (o cqlOperator) String() string {
	switch o {
	case opAnd:
		return "&"
	case opOr:
		return "|"
	}
	panic("unsupported operator")
}

func (a *cqlAll) String() string {
	return "ALL()"
}

func joinComponents(components []*cqlComponent) string {
	parameters := ""
	for i, comp := range components {
		parameters += comp.Name
		if i < len(components)-1 {
			parameters += ", "
		}
	}
	return parameters
}

func (e *cqlExact) String() string {
	return "EXACT(" + joinComponents(e.Components) + ")"
}

func (e *cqlContains) String() string {
	return "CONTAINS(" + joinComponents(e.Components) + ")"
}

func (c *cqlChanged) String() string {
	return "CHANGED(" + c.Component.Name + ")"
}

func (c *cqlAdded) String() string {
	return "ADDED(" + c.Component.Name + ")"
}

func (v *cqlValue) String() string {
	//nolint: gocritic,nestif // its ok.
	if v.Exact != nil {
		return v.Exact.String()
	} else if v.Contains != nil {
		return v.Contains.String()
	} else if v.Changed != nil {
		return v.Changed.String()
	} else if v.Added != nil {
		return v.Added.String()
	} else if v.All != nil {
		return v.All.String()
	} else if v.Not != nil {
		return "!(" + v.Not.SubExpression.String() + ")"
	} else if v.Subexpression != nil {
		return "(" + v.Subexpression.String() + ")"
	} else {
		panic("logic error displaying CQL ast. Check the code in cql.go")
	}
}

func (f *cqlFactor) String() string {
	out := f.Base.String()
	return out
}

func (o *cqlOpFactor) String() string {
	return fmt.Sprintf("%s %s", o.Operator, o.Factor)
}

func (t *cqlTerm) String() string {
	out := []string{t.Left.String()}
	for _, r := range t.Right {
		out = append(out, r.String())
	}
	return strings.Join(out, " ")
}

var internalCQLParser = participle.MustBuild[cqlTerm]()

// TODO: the sum type is represented as a product type. There is a case where
// multiple properties are filled out. Only one property may be non-nil; the
// parser should prevent this from happening but for safety this should
// eventually be checked.
func valueToComponentFilter(value *cqlValue) (filter.ComponentFilter, error) {
	if value.Not != nil { //nolint:gocritic,nestif // its fine.
		resultFilter, err := valueToComponentFilter(value.Not.SubExpression)
		if err != nil {
			return nil, err
		}
		return filter.Not(resultFilter), nil
	} else if value.Exact != nil {
		if len(value.Exact.Components) == 0 {
			return nil, eris.New("EXACT cannot have zero parameters")
		}
		return filter.Exact(toRefs(value.Exact.Components)...), nil
	} else if value.Contains != nil {
		if len(value.Contains.Components) == 0 {
			return nil, eris.New("CONTAINS cannot have zero parameters")
		}
		return filter.Contains(toRefs(value.Contains.Components)...), nil
	} else if value.Changed != nil {
		return filter.ChangedNode{Ref: filter.ComponentNamed(value.Changed.Component.Name)}, nil
	} else if value.Added != nil {
		return filter.AddedNode{Ref: filter.ComponentNamed(value.Added.Component.Name)}, nil
	} else if value.All != nil {
		return filter.All(), nil
	} else if value.Subexpression != nil {
		return termToComponentFilter(value.Subexpression)
	} else {
		return nil, eris.New("unknown error during conversion from CQL AST to ComponentFilter")
	}
}

func toRefs(components []*cqlComponent) []filter.ComponentRef {
	refs := make([]filter.ComponentRef, 0, len(components))
	for _, comp := range components {
		refs = append(refs, filter.ComponentNamed(comp.Name))
	}
	return refs
}

func factorToComponentFilter(factor *cqlFactor) (filter.ComponentFilter, error) {
	return valueToComponentFilter(factor.Base)
}

func opFactorToComponentFilter(opFactor *cqlOpFactor) (*cqlOperator, filter.ComponentFilter, error) {
	resultFilter, err := factorToComponentFilter(opFactor.Factor)
	if err != nil {
		return nil, nil, err
	}
	return &opFactor.Operator, resultFilter, nil
}

func termToComponentFilter(term *cqlTerm) (filter.ComponentFilter, error) {
	if term.Left == nil {
		return nil, eris.New("not enough values in expression")
	}
	acc, err := factorToComponentFilter(term.Left)
	if err != nil {
		return nil, err
	}
	for _, opFactor := range term.Right {
		operator, resultFilter, err := opFactorToComponentFilter(opFactor)
		if err != nil {
			return nil, err
		}
		switch *operator {
		case opAnd:
			acc = filter.And(acc, resultFilter)
		case opOr:
			acc = filter.Or(acc, resultFilter)
		default:
			return nil, eris.New("invalid operator")
		}
	}
	return acc, nil
}

// Parse converts a CQL expression into a component filter. Component names
// resolve against the world's registry at query-compile time, so an unknown
// name is not detected here.
func Parse(cqlText string) (filter.ComponentFilter, error) {
	term, err := internalCQLParser.ParseString("", cqlText)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	resultFilter, err := termToComponentFilter(term)
	if err != nil {
		return nil, err
	}
	return resultFilter, nil
}
