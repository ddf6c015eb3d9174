package query

import (
	"github.com/rotisserie/eris"

	"github.com/bevyengine/bevy-sub038/filter"
	"github.com/bevyengine/bevy-sub038/storage"
	"github.com/bevyengine/bevy-sub038/tick"
	"github.com/bevyengine/bevy-sub038/types"
	"github.com/bevyengine/bevy-sub038/world"
)

var (
	ErrFilterComponentUnknown = eris.New("filter references unregistered component")
	ErrNotOverTickFilter      = eris.New("Not cannot wrap a tick filter")
)

// compiledNode is a filter node resolved against one world's registry.
// matchesArchetype answers whether the archetype can produce matching rows;
// matchesRow answers for one concrete row, including the membership part.
type compiledNode interface {
	matchesArchetype(arch *storage.Archetype) bool
	matchesRow(w *world.World, arch *storage.Archetype, row types.TableRow, e types.Entity, win Window) (bool, error)
	usesTicks() bool
}

// compileFilter resolves a filter tree against the world registry.
func compileFilter(w *world.World, f filter.ComponentFilter) (compiledNode, error) {
	switch node := f.(type) {
	case filter.AllNode:
		return allNode{}, nil
	case filter.WithNode:
		id, err := resolveRef(w, node.Ref)
		if err != nil {
			return nil, err
		}
		return withNode{id: id}, nil
	case filter.WithoutNode:
		id, err := resolveRef(w, node.Ref)
		if err != nil {
			return nil, err
		}
		return withoutNode{id: id}, nil
	case filter.AddedNode:
		id, err := resolveRef(w, node.Ref)
		if err != nil {
			return nil, err
		}
		return tickNode{id: id, added: true}, nil
	case filter.ChangedNode:
		id, err := resolveRef(w, node.Ref)
		if err != nil {
			return nil, err
		}
		return tickNode{id: id}, nil
	case filter.ContainsNode:
		ids, err := resolveRefs(w, node.Refs)
		if err != nil {
			return nil, err
		}
		return containsNode{mask: storage.MaskOf(ids...)}, nil
	case filter.ExactNode:
		ids, err := resolveRefs(w, node.Refs)
		if err != nil {
			return nil, err
		}
		return exactNode{mask: storage.MaskOf(ids...)}, nil
	case filter.AndNode:
		children, err := compileChildren(w, node.Filters)
		if err != nil {
			return nil, err
		}
		return andNode{children: children}, nil
	case filter.OrNode:
		children, err := compileChildren(w, node.Filters)
		if err != nil {
			return nil, err
		}
		return orNode{children: children}, nil
	case filter.NotNode:
		child, err := compileFilter(w, node.Filter)
		if err != nil {
			return nil, err
		}
		if child.usesTicks() {
			return nil, ErrNotOverTickFilter
		}
		return notNode{child: child}, nil
	case filter.ComponentRef:
		// A bare component reference behaves like With.
		id, err := resolveRef(w, node)
		if err != nil {
			return nil, err
		}
		return withNode{id: id}, nil
	default:
		return nil, eris.Errorf("unknown filter node %T", f)
	}
}

func compileChildren(w *world.World, filters []filter.ComponentFilter) ([]compiledNode, error) {
	children := make([]compiledNode, len(filters))
	for i, f := range filters {
		child, err := compileFilter(w, f)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	return children, nil
}

func resolveRef(w *world.World, ref filter.ComponentRef) (types.ComponentID, error) {
	if ref.Type != nil {
		meta, err := w.Registry().GetComponentByType(ref.Type)
		if err != nil {
			return 0, eris.Wrapf(ErrFilterComponentUnknown, "type %s", ref.Type)
		}
		return meta.ID(), nil
	}
	meta, err := w.Registry().GetComponentByName(ref.Name)
	if err != nil {
		return 0, eris.Wrapf(ErrFilterComponentUnknown, "name %q", ref.Name)
	}
	return meta.ID(), nil
}

func resolveRefs(w *world.World, refs []filter.ComponentRef) ([]types.ComponentID, error) {
	ids := make([]types.ComponentID, len(refs))
	for i, ref := range refs {
		id, err := resolveRef(w, ref)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

type allNode struct{}

func (allNode) matchesArchetype(*storage.Archetype) bool { return true }
func (allNode) matchesRow(*world.World, *storage.Archetype, types.TableRow, types.Entity, Window) (bool, error) {
	return true, nil
}
func (allNode) usesTicks() bool { return false }

type withNode struct {
	id types.ComponentID
}

func (n withNode) matchesArchetype(arch *storage.Archetype) bool { return arch.Contains(n.id) }
func (n withNode) matchesRow(_ *world.World, arch *storage.Archetype, _ types.TableRow, _ types.Entity, _ Window) (bool, error) {
	return arch.Contains(n.id), nil
}
func (withNode) usesTicks() bool { return false }

type withoutNode struct {
	id types.ComponentID
}

func (n withoutNode) matchesArchetype(arch *storage.Archetype) bool { return !arch.Contains(n.id) }
func (n withoutNode) matchesRow(_ *world.World, arch *storage.Archetype, _ types.TableRow, _ types.Entity, _ Window) (bool, error) {
	return !arch.Contains(n.id), nil
}
func (withoutNode) usesTicks() bool { return false }

type containsNode struct {
	mask storage.Mask
}

func (n containsNode) matchesArchetype(arch *storage.Archetype) bool {
	return arch.Mask().ContainsAll(n.mask)
}
func (n containsNode) matchesRow(_ *world.World, arch *storage.Archetype, _ types.TableRow, _ types.Entity, _ Window) (bool, error) {
	return arch.Mask().ContainsAll(n.mask), nil
}
func (containsNode) usesTicks() bool { return false }

type exactNode struct {
	mask storage.Mask
}

func (n exactNode) matchesArchetype(arch *storage.Archetype) bool { return arch.Mask() == n.mask }
func (n exactNode) matchesRow(_ *world.World, arch *storage.Archetype, _ types.TableRow, _ types.Entity, _ Window) (bool, error) {
	return arch.Mask() == n.mask, nil
}
func (exactNode) usesTicks() bool { return false }

// tickNode matches rows whose component was added (or changed) inside the
// observation window. Membership is part of the row match.
type tickNode struct {
	id    types.ComponentID
	added bool
}

func (n tickNode) matchesArchetype(arch *storage.Archetype) bool { return arch.Contains(n.id) }

func (n tickNode) matchesRow(w *world.World, arch *storage.Archetype, row types.TableRow, e types.Entity, win Window) (bool, error) {
	if !arch.Contains(n.id) {
		return false, nil
	}
	var ticks tick.ComponentTicks
	col, err := arch.Table().Column(n.id)
	if err == nil {
		ticks = col.Ticks(row)
	} else {
		set, err := w.SparseSet(n.id)
		if err != nil {
			return false, err
		}
		ticks, err = set.Ticks(e)
		if err != nil {
			return false, err
		}
	}
	if n.added {
		return ticks.IsAdded(win.LastRun, win.This), nil
	}
	return ticks.IsChanged(win.LastRun, win.This), nil
}

func (tickNode) usesTicks() bool { return true }

type andNode struct {
	children []compiledNode
}

func (n andNode) matchesArchetype(arch *storage.Archetype) bool {
	for _, child := range n.children {
		if !child.matchesArchetype(arch) {
			return false
		}
	}
	return true
}

func (n andNode) matchesRow(w *world.World, arch *storage.Archetype, row types.TableRow, e types.Entity, win Window) (bool, error) {
	for _, child := range n.children {
		ok, err := child.matchesRow(w, arch, row, e, win)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (n andNode) usesTicks() bool {
	for _, child := range n.children {
		if child.usesTicks() {
			return true
		}
	}
	return false
}

// orNode matches when any branch matches. Row evaluation deliberately runs
// every branch before combining the results: a branch's tick observation
// must advance even when an earlier branch already matched.
type orNode struct {
	children []compiledNode
}

func (n orNode) matchesArchetype(arch *storage.Archetype) bool {
	for _, child := range n.children {
		if child.matchesArchetype(arch) {
			return true
		}
	}
	return false
}

func (n orNode) matchesRow(w *world.World, arch *storage.Archetype, row types.TableRow, e types.Entity, win Window) (bool, error) {
	matched := false
	for _, child := range n.children {
		ok, err := child.matchesRow(w, arch, row, e, win)
		if err != nil {
			return false, err
		}
		matched = matched || ok
	}
	return matched, nil
}

func (n orNode) usesTicks() bool {
	for _, child := range n.children {
		if child.usesTicks() {
			return true
		}
	}
	return false
}

type notNode struct {
	child compiledNode
}

func (n notNode) matchesArchetype(arch *storage.Archetype) bool {
	return !n.child.matchesArchetype(arch)
}

func (n notNode) matchesRow(w *world.World, arch *storage.Archetype, row types.TableRow, e types.Entity, win Window) (bool, error) {
	ok, err := n.child.matchesRow(w, arch, row, e, win)
	return !ok, err
}

func (notNode) usesTicks() bool { return false }
