package query_test

import (
	"testing"

	"github.com/bevyengine/bevy-sub038/assert"

	"github.com/bevyengine/bevy-sub038/filter"
	"github.com/bevyengine/bevy-sub038/query"
	"github.com/bevyengine/bevy-sub038/types"
	"github.com/bevyengine/bevy-sub038/world"
)

type Position struct {
	X, Y float64
}

func (Position) Name() string { return "Position" }

type Velocity struct {
	DX, DY float64
}

func (Velocity) Name() string { return "Velocity" }

type Health struct {
	Current int
}

func (Health) Name() string { return "Health" }

type Frozen struct {
	Until uint32
}

func (Frozen) Name() string   { return "Frozen" }
func (Frozen) SparseStorage() {}

type MoverBundle struct {
	Position Position
	Velocity Velocity
}

type PositionBundle struct {
	Position Position
}

type HealthBundle struct {
	Health Health
}

type FrozenBundle struct {
	Frozen Frozen
}

func fullWindow(w *world.World) query.Window {
	return query.FullWindow(w)
}

func spawnWorld(t *testing.T) (*world.World, []types.Entity) {
	t.Helper()
	w := world.New()
	movers := make([]types.Entity, 0, 3)
	for i := 0; i < 3; i++ {
		e, err := w.Spawn(MoverBundle{Position: Position{X: float64(i)}})
		assert.NilError(t, err)
		movers = append(movers, e)
	}
	for i := 0; i < 2; i++ {
		_, err := w.Spawn(PositionBundle{Position: Position{X: 100}})
		assert.NilError(t, err)
	}
	return w, movers
}

func TestEachVisitsMatchingEntities(t *testing.T) {
	w, _ := spawnWorld(t)
	q, err := query.New(w, query.Read[Position](), query.Read[Velocity]())
	assert.NilError(t, err)

	count, err := q.Count(fullWindow(w))
	assert.NilError(t, err)
	assert.Equal(t, 3, count, "only the mover archetype has both components")

	err = q.Each(fullWindow(w), func(item query.Item) bool {
		pos, err := query.Get[Position](item)
		assert.NilError(t, err)
		assert.Check(t, pos.X < 100)
		return true
	})
	assert.NilError(t, err)
}

func TestQueryMatchesArchetypesCreatedLater(t *testing.T) {
	w, _ := spawnWorld(t)
	q, err := query.New(w, query.Read[Health]())
	assert.NilError(t, err)

	count, err := q.Count(fullWindow(w))
	assert.NilError(t, err)
	assert.Equal(t, 0, count)

	// A brand-new archetype appears after the query was compiled.
	_, err = w.Spawn(HealthBundle{Health: Health{Current: 10}})
	assert.NilError(t, err)
	count, err = q.Count(fullWindow(w))
	assert.NilError(t, err)
	assert.Equal(t, 1, count)
}

func TestWithoutFilter(t *testing.T) {
	w, _ := spawnWorld(t)
	q, err := query.New(w,
		query.Read[Position](),
		query.WithFilter(filter.Without[Velocity]()),
	)
	assert.NilError(t, err)
	count, err := q.Count(fullWindow(w))
	assert.NilError(t, err)
	assert.Equal(t, 2, count)
}

func TestGetMutRequiresDeclaredWrite(t *testing.T) {
	w, _ := spawnWorld(t)
	q, err := query.New(w, query.Read[Position]())
	assert.NilError(t, err)

	err = q.Each(fullWindow(w), func(item query.Item) bool {
		_, errMut := query.GetMut[Position](item)
		assert.ErrorIs(t, errMut, query.ErrWriteNotDeclared)
		return false
	})
	assert.NilError(t, err)
}

func TestGetRequiresDeclaredAccess(t *testing.T) {
	w, _ := spawnWorld(t)
	q, err := query.New(w,
		query.Read[Position](),
		query.WithFilter(filter.With[Velocity]()),
	)
	assert.NilError(t, err)

	err = q.Each(fullWindow(w), func(item query.Item) bool {
		// Velocity is a filter, not an access.
		_, errGet := query.Get[Velocity](item)
		assert.ErrorIs(t, errGet, query.ErrComponentNotDeclared)
		return false
	})
	assert.NilError(t, err)
}

func TestChangedFilterObservesWindow(t *testing.T) {
	w, movers := spawnWorld(t)
	spawnTick := w.CurrentTick()

	q, err := query.New(w,
		query.Read[Position](),
		query.WithFilter(filter.Changed[Position]()),
	)
	assert.NilError(t, err)

	// Window that already observed the spawn sees nothing.
	win := query.Window{LastRun: spawnTick, This: spawnTick}
	count, err := q.Count(win)
	assert.NilError(t, err)
	assert.Equal(t, 0, count)

	// Mutate one entity on the next tick.
	now := w.IncrementTick()
	ptr, err := world.Mut[Position](w, movers[1])
	assert.NilError(t, err)
	ptr.X = -1

	count, err = q.Count(query.Window{LastRun: spawnTick, This: now})
	assert.NilError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddedFilterDistinguishesFromChanged(t *testing.T) {
	w, movers := spawnWorld(t)
	spawnTick := w.CurrentTick()

	added, err := query.New(w,
		query.Read[Position](),
		query.WithFilter(filter.Added[Position]()),
	)
	assert.NilError(t, err)

	now := w.IncrementTick()
	ptr, err := world.Mut[Position](w, movers[0])
	assert.NilError(t, err)
	ptr.X = 1

	// The mutation does not make the component "added".
	count, err := added.Count(query.Window{LastRun: spawnTick, This: now})
	assert.NilError(t, err)
	assert.Equal(t, 0, count)

	_, err = w.Spawn(PositionBundle{})
	assert.NilError(t, err)
	count, err = added.Count(query.Window{LastRun: spawnTick, This: now})
	assert.NilError(t, err)
	assert.Equal(t, 1, count)
}

func TestOrEvaluatesEveryBranch(t *testing.T) {
	w, movers := spawnWorld(t)
	spawnTick := w.CurrentTick()
	now := w.IncrementTick()

	ptr, err := world.Mut[Position](w, movers[0])
	assert.NilError(t, err)
	ptr.X = 50
	vel, err := world.Mut[Velocity](w, movers[1])
	assert.NilError(t, err)
	vel.DX = 50

	// Changed(Position) | Changed(Velocity): each mover matched through a
	// different branch; both branches are evaluated for every row.
	q, err := query.New(w,
		query.Read[Position](),
		query.WithFilter(filter.Or(
			filter.Changed[Position](),
			filter.Changed[Velocity](),
		)),
	)
	assert.NilError(t, err)
	count, err := q.Count(query.Window{LastRun: spawnTick, This: now})
	assert.NilError(t, err)
	assert.Equal(t, 2, count)
}

func TestNotOverTickFilterIsRejected(t *testing.T) {
	w, _ := spawnWorld(t)
	_, err := query.New(w,
		query.Read[Position](),
		query.WithFilter(filter.Not(filter.Changed[Position]())),
	)
	assert.ErrorIs(t, err, query.ErrNotOverTickFilter)
}

func TestUnknownComponentIsCompileError(t *testing.T) {
	w := world.New()
	_, err := query.New(w, query.WithFilter(filter.ComponentNamed("Ghost")))
	assert.ErrorIs(t, err, query.ErrFilterComponentUnknown)
}

func TestSparseComponentQuery(t *testing.T) {
	w, movers := spawnWorld(t)
	assert.NilError(t, w.Insert(movers[0], FrozenBundle{Frozen: Frozen{Until: 9}}))

	q, err := query.New(w, query.Read[Position](), query.Read[Frozen]())
	assert.NilError(t, err)
	count, err := q.Count(fullWindow(w))
	assert.NilError(t, err)
	assert.Equal(t, 1, count)

	err = q.Each(fullWindow(w), func(item query.Item) bool {
		frozen, err := query.Get[Frozen](item)
		assert.NilError(t, err)
		assert.Equal(t, uint32(9), frozen.Until)
		return true
	})
	assert.NilError(t, err)
}

func TestAccessConflicts(t *testing.T) {
	w, _ := spawnWorld(t)
	readPos, err := query.New(w, query.Read[Position]())
	assert.NilError(t, err)
	writePos, err := query.New(w, query.Write[Position]())
	assert.NilError(t, err)
	writeVel, err := query.New(w, query.Write[Velocity]())
	assert.NilError(t, err)

	assert.Check(t, readPos.Access().ConflictsWith(writePos.Access()))
	assert.Check(t, writePos.Access().ConflictsWith(writePos.Access()))
	assert.Check(t, !readPos.Access().ConflictsWith(readPos.Access()))
	assert.Check(t, !readPos.Access().ConflictsWith(writeVel.Access()))
}

func TestEachBatchVisitsContiguousChunks(t *testing.T) {
	w, _ := spawnWorld(t)
	q, err := query.New(w, query.Write[Position]())
	assert.NilError(t, err)

	visited := 0
	err = query.EachBatch[Position](q, fullWindow(w), 2,
		func(entities []types.Entity, items []Position) bool {
			assert.Equal(t, len(entities), len(items))
			assert.Check(t, len(items) <= 2)
			for i := range items {
				items[i].Y = 7
			}
			visited += len(items)
			return true
		})
	assert.NilError(t, err)
	assert.Equal(t, 5, visited)

	// Batch writes are real writes into the columns.
	check, err := query.New(w, query.Read[Position]())
	assert.NilError(t, err)
	err = check.Each(fullWindow(w), func(item query.Item) bool {
		pos, err := query.Get[Position](item)
		assert.NilError(t, err)
		assert.Equal(t, 7.0, pos.Y)
		return true
	})
	assert.NilError(t, err)
}

func TestEachBatchRejectsTickFiltersAndSparse(t *testing.T) {
	w, _ := spawnWorld(t)

	ticky, err := query.New(w,
		query.Read[Position](),
		query.WithFilter(filter.Changed[Position]()),
	)
	assert.NilError(t, err)
	err = query.EachBatch[Position](ticky, fullWindow(w), 0,
		func([]types.Entity, []Position) bool { return true })
	assert.ErrorIs(t, err, query.ErrBatchWithTickFilters)

	_, err = w.Spawn(FrozenBundle{})
	assert.NilError(t, err)
	sparse, err := query.New(w, query.Read[Frozen]())
	assert.NilError(t, err)
	err = query.EachBatch[Frozen](sparse, fullWindow(w), 0,
		func([]types.Entity, []Frozen) bool { return true })
	assert.ErrorIs(t, err, query.ErrBatchOverSparse)
}
