package query

import (
	"reflect"

	"github.com/rotisserie/eris"

	"github.com/bevyengine/bevy-sub038/filter"
	"github.com/bevyengine/bevy-sub038/storage"
	"github.com/bevyengine/bevy-sub038/tick"
	"github.com/bevyengine/bevy-sub038/types"
	"github.com/bevyengine/bevy-sub038/world"
)

var (
	ErrComponentNotDeclared = eris.New("component access not declared by query")
	ErrWriteNotDeclared     = eris.New("mutable component access not declared by query")
)

// Window is the change-observation window a query evaluates tick filters
// against: everything written after LastRun and no later than This counts as
// new.
type Window struct {
	LastRun tick.Tick
	This    tick.Tick
}

// FullWindow observes every change ever made, relative to the world's
// current tick. Useful for direct (non-system) iteration.
func FullWindow(w *world.World) Window {
	return Window{LastRun: 0, This: w.CurrentTick()}
}

// State is a compiled query: a declarative access specification resolved
// once against a world's registry into component ids, an access set, and a
// compiled filter tree. Iterating re-checks only archetypes created since
// the previous run, so a State is cheap to execute repeatedly.
type State struct {
	world  *world.World
	access Access
	reads  []types.ComponentID
	writes []types.ComponentID
	root   compiledNode

	matched        []types.ArchetypeID
	seenArchetypes int
}

// Option configures a State under construction.
type Option func(*stateBuilder)

type stateBuilder struct {
	readTypes  []reflect.Type
	writeTypes []reflect.Type
	filters    []filter.ComponentFilter
}

// Read declares read-only access to component type T. The component is also
// required to be present on matched entities.
func Read[T types.Component]() Option {
	var x T
	return func(b *stateBuilder) {
		b.readTypes = append(b.readTypes, reflect.TypeOf(x))
	}
}

// Write declares read-write access to component type T. The component is
// also required to be present on matched entities.
func Write[T types.Component]() Option {
	var x T
	return func(b *stateBuilder) {
		b.writeTypes = append(b.writeTypes, reflect.TypeOf(x))
	}
}

// WithFilter adds a filter tree; several are combined conjunctively.
func WithFilter(f filter.ComponentFilter) Option {
	return func(b *stateBuilder) {
		b.filters = append(b.filters, f)
	}
}

// New compiles a query against w. All referenced component types must be
// registered; an unknown component is a configuration error.
func New(w *world.World, opts ...Option) (*State, error) {
	b := &stateBuilder{}
	for _, opt := range opts {
		opt(b)
	}
	if len(b.readTypes) == 0 && len(b.writeTypes) == 0 && len(b.filters) == 0 {
		return nil, eris.New("query must declare at least one access or filter")
	}

	s := &State{world: w}
	for _, t := range b.readTypes {
		meta, err := w.Registry().GetComponentByType(t)
		if err != nil {
			return nil, err
		}
		s.reads = append(s.reads, meta.ID())
		s.access.AddComponentRead(meta.ID())
	}
	for _, t := range b.writeTypes {
		meta, err := w.Registry().GetComponentByType(t)
		if err != nil {
			return nil, err
		}
		s.writes = append(s.writes, meta.ID())
		s.access.AddComponentWrite(meta.ID())
	}

	// Declared accesses and explicit filters combine into one conjunction:
	// accessed components must be present.
	nodes := make([]filter.ComponentFilter, 0, len(b.filters))
	nodes = append(nodes, b.filters...)
	root, err := compileFilter(w, filter.And(nodes...))
	if err != nil {
		return nil, err
	}
	s.root = andNode{children: append(
		[]compiledNode{root},
		accessNodes(s.reads, s.writes)...,
	)}
	return s, nil
}

func accessNodes(reads, writes []types.ComponentID) []compiledNode {
	nodes := make([]compiledNode, 0, len(reads)+len(writes))
	for _, id := range reads {
		nodes = append(nodes, withNode{id: id})
	}
	for _, id := range writes {
		nodes = append(nodes, withNode{id: id})
	}
	return nodes
}

// Access returns the query's declared access set; the scheduler unions these
// per system for conflict analysis.
func (s *State) Access() Access {
	return s.access
}

// refreshArchetypes matches archetypes created since the last execution.
func (s *State) refreshArchetypes() {
	all := s.world.Archetypes().All()
	for ; s.seenArchetypes < len(all); s.seenArchetypes++ {
		arch := all[s.seenArchetypes]
		if s.root.matchesArchetype(arch) {
			s.matched = append(s.matched, arch.ID())
		}
	}
}

// Item is one matched row, valid only for the duration of the callback it
// was yielded to.
type Item struct {
	state  *State
	arch   *storage.Archetype
	row    types.TableRow
	entity types.Entity
	win    Window
}

func (i Item) Entity() types.Entity {
	return i.entity
}

// Each invokes fn for every matching entity, observing tick filters through
// win. Returning false from fn stops the iteration early. The iteration is
// restartable: re-running re-checks only archetypes that appeared since.
func (s *State) Each(win Window, fn func(Item) bool) error {
	s.refreshArchetypes()
	for _, archID := range s.matched {
		arch, err := s.world.Archetypes().Get(archID)
		if err != nil {
			return err
		}
		table := arch.Table()
		for row := 0; row < table.Len(); row++ {
			e := table.EntityAt(types.TableRow(row))
			ok, err := s.root.matchesRow(s.world, arch, types.TableRow(row), e, win)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			item := Item{state: s, arch: arch, row: types.TableRow(row), entity: e, win: win}
			if !fn(item) {
				return nil
			}
		}
	}
	return nil
}

// Count returns the number of entities matching under win.
func (s *State) Count(win Window) (int, error) {
	count := 0
	err := s.Each(win, func(Item) bool {
		count++
		return true
	})
	return count, err
}

// First returns the first matching entity under win, or ErrNoMatch.
func (s *State) First(win Window) (types.Entity, error) {
	found := types.Null
	err := s.Each(win, func(item Item) bool {
		found = item.Entity()
		return false
	})
	if err != nil {
		return types.Null, err
	}
	if found.IsNull() {
		return types.Null, ErrNoMatch
	}
	return found, nil
}

var ErrNoMatch = eris.New("no entity matches the query")

// Get returns a copy of the item's component of type T. The component must
// be part of the query's declared read or write set.
func Get[T types.Component](i Item) (T, error) {
	var zero T
	meta, err := i.state.world.Registry().GetComponentByType(reflect.TypeOf(zero))
	if err != nil {
		return zero, err
	}
	id := meta.ID()
	if !i.state.access.CompReads.Has(id) && !i.state.access.CompWrites.Has(id) {
		return zero, eris.Wrapf(ErrComponentNotDeclared, "component %q", meta.Name())
	}
	value, err := i.componentValue(meta)
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, eris.Errorf("type assertion for component failed: %T to %T", value, zero)
	}
	return typed, nil
}

// GetMut returns a pointer to the item's component of type T and stamps its
// changed tick at the window's current pass. The component must be part of
// the query's declared write set; undeclared mutable access is rejected so
// the static conflict analysis stays sound.
func GetMut[T types.Component](i Item) (*T, error) {
	var zero T
	meta, err := i.state.world.Registry().GetComponentByType(reflect.TypeOf(zero))
	if err != nil {
		return nil, err
	}
	id := meta.ID()
	if !i.state.access.CompWrites.Has(id) {
		return nil, eris.Wrapf(ErrWriteNotDeclared, "component %q", meta.Name())
	}

	if meta.StorageType() == types.StorageTypeSparseSet {
		set, err := i.state.world.SparseSet(id)
		if err != nil {
			return nil, err
		}
		ptr, err := set.GetPointer(i.entity)
		if err != nil {
			return nil, err
		}
		set.MarkChanged(i.entity, i.win.This)
		typed, ok := ptr.(*T)
		if !ok {
			return nil, eris.Errorf("type assertion for component failed: %T to %T", ptr, &zero)
		}
		return typed, nil
	}

	col, err := i.arch.Table().Column(id)
	if err != nil {
		return nil, err
	}
	ptr, err := col.GetPointer(i.row)
	if err != nil {
		return nil, err
	}
	col.MarkChanged(i.row, i.win.This)
	typed, ok := ptr.(*T)
	if !ok {
		return nil, eris.Errorf("type assertion for component failed: %T to %T", ptr, &zero)
	}
	return typed, nil
}

func (i Item) componentValue(meta types.ComponentMetadata) (any, error) {
	if meta.StorageType() == types.StorageTypeSparseSet {
		set, err := i.state.world.SparseSet(meta.ID())
		if err != nil {
			return nil, err
		}
		return set.Get(i.entity)
	}
	col, err := i.arch.Table().Column(meta.ID())
	if err != nil {
		return nil, err
	}
	return col.Get(i.row)
}
