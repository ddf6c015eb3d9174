// Package ecs is the top-level surface of the engine: a World holding
// entities, components, and resources; compiled Queries over them; and a
// Schedule that runs systems in a declaratively ordered, conflict-checked
// order with per-system change detection.
package ecs

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/bevyengine/bevy-sub038/component"
	"github.com/bevyengine/bevy-sub038/cql"
	"github.com/bevyengine/bevy-sub038/log"
	"github.com/bevyengine/bevy-sub038/query"
	"github.com/bevyengine/bevy-sub038/schedule"
	"github.com/bevyengine/bevy-sub038/statsd"
	"github.com/bevyengine/bevy-sub038/tick"
	"github.com/bevyengine/bevy-sub038/types"
	"github.com/bevyengine/bevy-sub038/world"
)

// Engine bundles a world and its schedule behind one configured front door.
type Engine struct {
	cfg      Config
	world    *world.World
	schedule *schedule.Schedule
}

// NewEngine builds an engine from cfg: it sets the global log level, points
// statsd at the configured address, and prepares an empty world and
// schedule.
func NewEngine(cfg Config, opts ...world.Option) (*Engine, error) {
	level, err := cfg.logLevel()
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)

	if cfg.StatsdAddress != "" {
		var tags []string
		if cfg.StatsdTag != "" {
			tags = append(tags, cfg.StatsdTag)
		}
		if err := statsd.Init(cfg.StatsdAddress, tags); err != nil {
			return nil, err
		}
	}

	if cfg.LogPretty {
		pretty := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		opts = append([]world.Option{world.WithLogger(pretty)}, opts...)
	}

	w := world.New(opts...)
	var schedOpts []schedule.Option
	if cfg.NoFinalApply {
		schedOpts = append(schedOpts, schedule.WithoutFinalApply())
	}
	e := &Engine{
		cfg:      cfg,
		world:    w,
		schedule: schedule.New(w, schedOpts...),
	}
	return e, nil
}

// BatchSize returns the configured chunk size for batched iteration, falling
// back to the query package default.
func (e *Engine) BatchSize() int {
	if e.cfg.BatchSize > 0 {
		return e.cfg.BatchSize
	}
	return query.DefaultBatchSize
}

func (e *Engine) World() *world.World {
	return e.world
}

func (e *Engine) Schedule() *schedule.Schedule {
	return e.schedule
}

// Build freezes the schedule and logs the registered components and systems.
func (e *Engine) Build() error {
	if err := e.schedule.Build(); err != nil {
		return err
	}
	log.World(e.world.Logger, e, zerolog.InfoLevel)
	return nil
}

// Tick runs one pass. With ParallelWorkers above one the pass executes
// concurrently, otherwise it runs in order on the calling goroutine.
func (e *Engine) Tick(ctx context.Context) error {
	if e.cfg.ParallelWorkers > 1 {
		return e.schedule.RunParallel(ctx, e.cfg.ParallelWorkers)
	}
	return e.schedule.Run()
}

// GetRegisteredComponents implements log.Loggable.
func (e *Engine) GetRegisteredComponents() []types.ComponentMetadata {
	return e.world.Registry().GetComponents()
}

// GetRegisteredSystems implements log.Loggable.
func (e *Engine) GetRegisteredSystems() []string {
	return e.schedule.SystemNames()
}

// QueryByCQL compiles a textual query expression. Declared accesses still
// come through opts; the expression contributes the filter.
func (e *Engine) QueryByCQL(expr string, opts ...query.Option) (*query.State, error) {
	f, err := cql.Parse(expr)
	if err != nil {
		return nil, err
	}
	opts = append(opts, query.WithFilter(f))
	return query.New(e.world, opts...)
}

// RegisterComponent registers component type T with the engine's world.
func RegisterComponent[T types.Component](e *Engine, opts ...component.Option[T]) error {
	_, err := world.RegisterComponent[T](e.world, opts...)
	return err
}

// RegisterBundle registers bundle type B and its discovered components.
func RegisterBundle[B any](e *Engine) error {
	_, err := world.RegisterBundle[B](e.world)
	return err
}

// Generic world accessors re-exported at the root for convenience.

func GetComponent[T types.Component](w *world.World, e types.Entity) (T, error) {
	return world.Get[T](w, e)
}

func MutComponent[T types.Component](w *world.World, e types.Entity) (*T, error) {
	return world.Mut[T](w, e)
}

func HasComponent[T types.Component](w *world.World, e types.Entity) (bool, error) {
	return world.Has[T](w, e)
}

func ComponentTicks[T types.Component](w *world.World, e types.Entity) (tick.ComponentTicks, error) {
	return world.Ticks[T](w, e)
}

func InsertResource[T any](w *world.World, value T) {
	world.InsertResource(w, value)
}

func GetResource[T any](w *world.World) (*T, error) {
	return world.Resource[T](w)
}

func MutResource[T any](w *world.World) (*T, error) {
	return world.ResourceMut[T](w)
}
