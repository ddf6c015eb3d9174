package schedule

import (
	"path/filepath"
	"reflect"
	"runtime"

	"github.com/bevyengine/bevy-sub038/intern"
	"github.com/bevyengine/bevy-sub038/query"
	"github.com/bevyengine/bevy-sub038/world"
)

// Intern returns the interned label for value, shared with every other
// caller that interns the same string. Labels name systems and sets in
// ordering constraints.
func Intern(value string) *intern.Label {
	return intern.Intern(value)
}

// System is a unit of work executed by a schedule. It touches the world only
// through the accesses it declared; structural changes go through
// ctx.Commands() and apply at the next barrier.
type System func(ctx *Context) error

// Condition gates whether a system or set runs this pass. Conditions must
// only read; a condition that errors counts as false and is reported.
type Condition func(ctx *Context) (bool, error)

// AccessDecl declares part of a system's access set. Declarations resolve
// against the world when the schedule builds, so they can be written before
// the referenced resources exist.
type AccessDecl func(w *world.World, acc *query.Access) error

// ReadsResource declares read access to resource type T.
func ReadsResource[T any]() AccessDecl {
	return func(w *world.World, acc *query.Access) error {
		acc.AddResourceRead(world.ResourceIDFor[T](w))
		return nil
	}
}

// WritesResource declares read-write access to resource type T.
func WritesResource[T any]() AccessDecl {
	return func(w *world.World, acc *query.Access) error {
		acc.AddResourceWrite(world.ResourceIDFor[T](w))
		return nil
	}
}

// SystemConfig is a system plus its scheduling metadata: name, label,
// ordering constraints, set memberships, run conditions, and declared
// access.
type SystemConfig struct {
	system     System
	name       string
	label      *intern.Label
	before     []*intern.Label
	after      []*intern.Label
	sets       []*intern.Label
	conditions []Condition
	queries    []*query.State
	decls      []AccessDecl
	exclusive  bool
	barrier    bool
}

// NewSystem wraps fn in a config. The system's name, and therefore its
// default label, is derived from the function name via reflection.
func NewSystem(fn System) *SystemConfig {
	name := filepath.Base(runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name())
	return &SystemConfig{
		system: fn,
		name:   name,
		label:  intern.Intern(name),
	}
}

// Named overrides the derived name and label.
func (c *SystemConfig) Named(name string) *SystemConfig {
	c.name = name
	c.label = intern.Intern(name)
	return c
}

func (c *SystemConfig) Name() string {
	return c.name
}

func (c *SystemConfig) Label() *intern.Label {
	return c.label
}

// Before constrains this system to run before every system or set carrying
// one of the labels.
func (c *SystemConfig) Before(labels ...*intern.Label) *SystemConfig {
	c.before = append(c.before, labels...)
	return c
}

// After constrains this system to run after every system or set carrying one
// of the labels.
func (c *SystemConfig) After(labels ...*intern.Label) *SystemConfig {
	c.after = append(c.after, labels...)
	return c
}

// InSet adds the system to the named set. It inherits the set's ordering
// constraints and run conditions.
func (c *SystemConfig) InSet(set *intern.Label) *SystemConfig {
	c.sets = append(c.sets, set)
	return c
}

// RunIf gates the system on cond. Several conditions are conjunctive.
func (c *SystemConfig) RunIf(cond Condition) *SystemConfig {
	c.conditions = append(c.conditions, cond)
	return c
}

// Uses folds the access sets of the given compiled queries into the
// system's declared access. Systems must declare every query they iterate.
func (c *SystemConfig) Uses(states ...*query.State) *SystemConfig {
	c.queries = append(c.queries, states...)
	return c
}

// Declares adds resource access declarations.
func (c *SystemConfig) Declares(decls ...AccessDecl) *SystemConfig {
	c.decls = append(c.decls, decls...)
	return c
}

// Exclusive marks the system as needing the whole world. Exclusive systems
// conflict with everything and never run concurrently.
func (c *SystemConfig) Exclusive() *SystemConfig {
	c.exclusive = true
	return c
}

func (c *SystemConfig) resolveAccess(w *world.World) (query.Access, error) {
	var acc query.Access
	for _, q := range c.queries {
		acc.Extend(q.Access())
	}
	for _, decl := range c.decls {
		if err := decl(w, &acc); err != nil {
			return acc, err
		}
	}
	acc.Exclusive = c.exclusive
	return acc, nil
}

// SetConfig declares a system set: a label systems can join, carrying shared
// ordering constraints and run conditions. A set's conditions are evaluated
// at most once per pass and gate every member.
type SetConfig struct {
	label      *intern.Label
	before     []*intern.Label
	after      []*intern.Label
	conditions []Condition
}

// NewSet declares a set with the given label.
func NewSet(label *intern.Label) *SetConfig {
	return &SetConfig{label: label}
}

func (s *SetConfig) Label() *intern.Label {
	return s.label
}

func (s *SetConfig) Before(labels ...*intern.Label) *SetConfig {
	s.before = append(s.before, labels...)
	return s
}

func (s *SetConfig) After(labels ...*intern.Label) *SetConfig {
	s.after = append(s.after, labels...)
	return s
}

func (s *SetConfig) RunIf(cond Condition) *SetConfig {
	s.conditions = append(s.conditions, cond)
	return s
}
