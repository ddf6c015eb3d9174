package world

import (
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/bevyengine/bevy-sub038/component"
	"github.com/bevyengine/bevy-sub038/storage"
	"github.com/bevyengine/bevy-sub038/tick"
	"github.com/bevyengine/bevy-sub038/types"
)

var (
	ErrEntityDoesNotExist   = storage.ErrEntityDoesNotExist
	ErrComponentNotOnEntity = storage.ErrComponentNotOnEntity
)

// World is the in-memory entity-component store: the component/bundle
// registry, the archetype and sparse-set storages, the entity index, the
// resource store, and the change-detection tick counter.
//
// A World is not safe for unsynchronized concurrent structural mutation; the
// scheduler guarantees that systems running in parallel hold non-conflicting
// access and that structural changes only happen at apply-deferred barriers.
type World struct {
	id     uuid.UUID
	Logger *zerolog.Logger

	registry   *component.Manager
	archetypes *storage.Archetypes
	sparseSets map[types.ComponentID]*storage.SparseSet
	index      *storage.EntityIndex
	resources  *ResourceStore

	currentTick atomic.Uint32
}

// Option modifies a World at construction.
type Option func(w *World)

// WithLogger replaces the default stderr logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *World) {
		w.Logger = &logger
	}
}

// New creates an empty world.
func New(opts ...Option) *World {
	defaultLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	w := &World{
		id:         uuid.New(),
		Logger:     &defaultLogger,
		registry:   component.NewManager(),
		archetypes: storage.NewArchetypes(),
		sparseSets: make(map[types.ComponentID]*storage.SparseSet),
		index:      storage.NewEntityIndex(),
		resources:  newResourceStore(),
	}
	for _, opt := range opts {
		opt(w)
	}
	logger := w.Logger.With().Str("world_id", w.id.String()).Logger()
	w.Logger = &logger
	w.Logger.Debug().Msg("world created")
	return w
}

// ID returns the unique instance id of this world.
func (w *World) ID() uuid.UUID {
	return w.id
}

// Registry exposes the component/bundle registry.
func (w *World) Registry() *component.Manager {
	return w.registry
}

// Archetypes exposes the archetype registry, primarily for query compilation.
func (w *World) Archetypes() *storage.Archetypes {
	return w.archetypes
}

// Resources exposes the resource store.
func (w *World) Resources() *ResourceStore {
	return w.resources
}

// CurrentTick returns the tick of the pass in progress.
func (w *World) CurrentTick() tick.Tick {
	return tick.Tick(w.currentTick.Load())
}

// IncrementTick advances the change-detection counter by one and returns the
// new value. The scheduler calls this once at the start of each pass.
func (w *World) IncrementTick() tick.Tick {
	return tick.Tick(w.currentTick.Add(1))
}

// IsAlive reports whether e refers to a live entity.
func (w *World) IsAlive(e types.Entity) bool {
	return w.index.IsAlive(e)
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return w.index.Len()
}

// Location returns the entity's current (archetype, row) placement.
func (w *World) Location(e types.Entity) (storage.Location, error) {
	return w.index.Location(e)
}

// sparseSet returns the sparse set for a component id, creating it on first
// use.
func (w *World) sparseSet(id types.ComponentID) (*storage.SparseSet, error) {
	if set, ok := w.sparseSets[id]; ok {
		return set, nil
	}
	meta, err := w.registry.GetComponentByID(id)
	if err != nil {
		return nil, err
	}
	if meta.StorageType() != types.StorageTypeSparseSet {
		return nil, eris.Errorf("component %q is not sparse-set storage", meta.Name())
	}
	set := storage.NewSparseSet(meta)
	w.sparseSets[id] = set
	return set, nil
}

// SparseSet exposes the sparse set for a component id, creating it on first
// use. Queries use this to read sparse component data and ticks.
func (w *World) SparseSet(id types.ComponentID) (*storage.SparseSet, error) {
	return w.sparseSet(id)
}

// metasFor resolves metadata for a list of component ids.
func (w *World) metasFor(ids []types.ComponentID) ([]types.ComponentMetadata, error) {
	metas := make([]types.ComponentMetadata, len(ids))
	for i, id := range ids {
		meta, err := w.registry.GetComponentByID(id)
		if err != nil {
			return nil, err
		}
		metas[i] = meta
	}
	return metas, nil
}

// RegisterComponent registers component type T with the world's registry,
// returning its metadata. Registering the same type twice returns the
// original metadata.
func RegisterComponent[T types.Component](w *World, opts ...component.Option[T]) (types.ComponentMetadata, error) {
	meta, err := component.NewComponentMetadata[T](opts...)
	if err != nil {
		return nil, err
	}
	return w.registry.RegisterComponent(meta)
}

// RegisterBundle resolves and caches the storage layout for bundle type B.
func RegisterBundle[B any](w *World) (*component.BundleInfo, error) {
	var b B
	return w.registry.RegisterBundle(b)
}
