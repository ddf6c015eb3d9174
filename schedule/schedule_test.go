package schedule_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/bevyengine/bevy-sub038/assert"
	"github.com/bevyengine/bevy-sub038/filter"
	"github.com/bevyengine/bevy-sub038/query"
	"github.com/bevyengine/bevy-sub038/schedule"
	"github.com/bevyengine/bevy-sub038/tick"
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

type MoverBundle struct {
	Position Position
	Velocity Velocity
}

func buildSchedule(t *testing.T, w *world.World, cfgs ...*schedule.SystemConfig) *schedule.Schedule {
	t.Helper()
	s := schedule.New(w)
	assert.NilError(t, s.AddSystems(cfgs...))
	assert.NilError(t, s.Build())
	return s
}

func TestDeclarationOrderIsPreservedWithoutConstraints(t *testing.T) {
	w := world.New()
	var order []string
	mk := func(name string) *schedule.SystemConfig {
		return schedule.NewSystem(func(*schedule.Context) error {
			order = append(order, name)
			return nil
		}).Named(name)
	}
	s := buildSchedule(t, w, mk("first"), mk("second"), mk("third"))
	assert.NilError(t, s.Run())
	assert.DeepEqual(t, []string{"first", "second", "third"}, order)
}

func TestBeforeAndAfterConstraints(t *testing.T) {
	w := world.New()
	var order []string
	mk := func(name string) schedule.System {
		return func(*schedule.Context) error {
			order = append(order, name)
			return nil
		}
	}
	s := buildSchedule(t, w,
		schedule.NewSystem(mk("render")).Named("render").
			After(schedule.Intern("physics")),
		schedule.NewSystem(mk("input")).Named("input").
			Before(schedule.Intern("physics")),
		schedule.NewSystem(mk("physics")).Named("physics"),
	)
	assert.NilError(t, s.Run())
	assert.DeepEqual(t, []string{"input", "physics", "render"}, order)
}

func TestUnknownLabelIsBuildError(t *testing.T) {
	w := world.New()
	s := schedule.New(w)
	assert.NilError(t, s.AddSystems(
		schedule.NewSystem(func(*schedule.Context) error { return nil }).
			Named("lonely").
			After(schedule.Intern("missing")),
	))
	assert.ErrorIs(t, s.Build(), schedule.ErrUnknownLabel)
}

func TestOrderingCycleIsBuildError(t *testing.T) {
	w := world.New()
	s := schedule.New(w)
	noop := func(*schedule.Context) error { return nil }
	assert.NilError(t, s.AddSystems(
		schedule.NewSystem(noop).Named("a").After(schedule.Intern("b")),
		schedule.NewSystem(noop).Named("b").After(schedule.Intern("a")),
	))
	assert.ErrorIs(t, s.Build(), schedule.ErrOrderingCycle)
}

func TestDuplicateSystemNameIsBuildError(t *testing.T) {
	w := world.New()
	s := schedule.New(w)
	noop := func(*schedule.Context) error { return nil }
	assert.NilError(t, s.AddSystems(
		schedule.NewSystem(noop).Named("same"),
		schedule.NewSystem(noop).Named("same"),
	))
	assert.ErrorIs(t, s.Build(), schedule.ErrDuplicateSystem)
}

func TestRegistrationAfterBuildIsRejected(t *testing.T) {
	w := world.New()
	s := buildSchedule(t, w)
	err := s.AddSystems(schedule.NewSystem(func(*schedule.Context) error { return nil }))
	assert.ErrorIs(t, err, schedule.ErrAlreadyBuilt)
	assert.ErrorIs(t, s.Build(), schedule.ErrAlreadyBuilt)
}

func TestRunBeforeBuildIsRejected(t *testing.T) {
	w := world.New()
	s := schedule.New(w)
	assert.ErrorIs(t, s.Run(), schedule.ErrNotBuilt)
}

func TestSetOrderingAndConditions(t *testing.T) {
	w := world.New()
	simulation := schedule.Intern("simulation")
	var order []string
	var setEvals atomic.Int32
	mk := func(name string) schedule.System {
		return func(*schedule.Context) error {
			order = append(order, name)
			return nil
		}
	}

	s := schedule.New(w)
	assert.NilError(t, s.ConfigureSet(
		schedule.NewSet(simulation).
			Before(schedule.Intern("render")).
			RunIf(func(*schedule.Context) (bool, error) {
				setEvals.Add(1)
				return true, nil
			}),
	))
	assert.NilError(t, s.AddSystems(
		schedule.NewSystem(mk("render")).Named("render"),
		schedule.NewSystem(mk("physics")).Named("physics").InSet(simulation),
		schedule.NewSystem(mk("collision")).Named("collision").InSet(simulation),
	))
	assert.NilError(t, s.Build())
	assert.NilError(t, s.Run())

	// Set members run before render; the set condition is evaluated once
	// per pass even with two members.
	assert.Equal(t, "render", order[len(order)-1])
	assert.Equal(t, int32(1), setEvals.Load())

	assert.NilError(t, s.Run())
	assert.Equal(t, int32(2), setEvals.Load(), "memo resets between passes")
}

func TestFalseSetConditionSkipsAllMembers(t *testing.T) {
	w := world.New()
	gated := schedule.Intern("gated")
	ran := 0

	s := schedule.New(w)
	assert.NilError(t, s.ConfigureSet(
		schedule.NewSet(gated).RunIf(func(*schedule.Context) (bool, error) {
			return false, nil
		}),
	))
	assert.NilError(t, s.AddSystems(
		schedule.NewSystem(func(*schedule.Context) error {
			ran++
			return nil
		}).Named("member").InSet(gated),
	))
	assert.NilError(t, s.Build())
	assert.NilError(t, s.Run())
	assert.Equal(t, 0, ran)
}

func TestRunIfGatesSystem(t *testing.T) {
	w := world.New()
	ran := 0
	s := buildSchedule(t, w,
		schedule.NewSystem(func(*schedule.Context) error {
			ran++
			return nil
		}).Named("every-other").RunIf(schedule.EveryNTicks(2)),
	)
	for i := 0; i < 4; i++ {
		assert.NilError(t, s.Run())
	}
	assert.Equal(t, 2, ran, "ticks 2 and 4 pass the condition")
}

func TestRunOnce(t *testing.T) {
	w := world.New()
	ran := 0
	s := buildSchedule(t, w,
		schedule.NewSystem(func(*schedule.Context) error {
			ran++
			return nil
		}).Named("startup").RunIf(schedule.RunOnce()),
	)
	for i := 0; i < 3; i++ {
		assert.NilError(t, s.Run())
	}
	assert.Equal(t, 1, ran)
}

func TestConditionErrorSkipsAndReports(t *testing.T) {
	w := world.New()
	var reported []string
	ran := 0
	s := schedule.New(w, schedule.WithErrorHandler(
		func(name string, _ tick.Tick, _ error) {
			reported = append(reported, name)
		}))
	assert.NilError(t, s.AddSystems(
		schedule.NewSystem(func(*schedule.Context) error {
			ran++
			return nil
		}).Named("fragile").RunIf(func(*schedule.Context) (bool, error) {
			return false, eris.New("condition blew up")
		}),
	))
	assert.NilError(t, s.Build())
	assert.NilError(t, s.Run())
	assert.Equal(t, 0, ran)
	assert.DeepEqual(t, []string{"fragile"}, reported)
}

func TestFailingSystemIsIsolated(t *testing.T) {
	w := world.New()
	var reported []string
	var order []string
	s := schedule.New(w, schedule.WithErrorHandler(
		func(name string, _ tick.Tick, _ error) {
			reported = append(reported, name)
		}))
	assert.NilError(t, s.AddSystems(
		schedule.NewSystem(func(ctx *schedule.Context) error {
			order = append(order, "broken")
			ctx.Commands().Spawn(MoverBundle{})
			return eris.New("boom")
		}).Named("broken"),
		schedule.NewSystem(func(*schedule.Context) error {
			order = append(order, "healthy")
			return nil
		}).Named("healthy"),
	))
	assert.NilError(t, s.Build())
	assert.NilError(t, s.Run())

	assert.DeepEqual(t, []string{"broken", "healthy"}, order)
	assert.DeepEqual(t, []string{"broken"}, reported)
	assert.Equal(t, 0, w.EntityCount(), "a failed system's commands are discarded")
}

func TestPanickingSystemIsRecovered(t *testing.T) {
	w := world.New()
	var caught error
	s := schedule.New(w, schedule.WithErrorHandler(
		func(_ string, _ tick.Tick, err error) { caught = err }))
	assert.NilError(t, s.AddSystems(
		schedule.NewSystem(func(*schedule.Context) error {
			panic("unexpected")
		}).Named("panicky"),
		schedule.NewSystem(func(*schedule.Context) error { return nil }).Named("after"),
	))
	assert.NilError(t, s.Build())
	assert.NilError(t, s.Run())
	assert.ErrorContains(t, caught, "panicked")
}

func TestDeferredCommandsApplyAtEndOfPass(t *testing.T) {
	w := world.New()
	observed := -1
	s := buildSchedule(t, w,
		schedule.NewSystem(func(ctx *schedule.Context) error {
			ctx.Commands().Spawn(MoverBundle{})
			return nil
		}).Named("spawner"),
		schedule.NewSystem(func(ctx *schedule.Context) error {
			observed = ctx.World().EntityCount()
			return nil
		}).Named("observer").After(schedule.Intern("spawner")),
	)
	assert.NilError(t, s.Run())
	assert.Equal(t, 0, observed, "no barrier between the systems")
	assert.Equal(t, 1, w.EntityCount(), "commands flush at end of pass")
}

func TestContextLoggerCarriesSystemAndTraceTags(t *testing.T) {
	w := world.New()
	var buf bytes.Buffer
	s := schedule.New(w, schedule.WithLogger(zerolog.New(&buf)))
	assert.NilError(t, s.AddSystems(
		schedule.NewSystem(func(ctx *schedule.Context) error {
			ctx.Logger().Info().Msg("running")
			ctx.TraceLogger("req-42").Info().Msg("traced")
			return nil
		}).Named("movement"),
	))
	assert.NilError(t, s.Build())
	assert.NilError(t, s.Run())

	out := buf.String()
	assert.Assert(t, strings.Contains(out, `"system":"movement"`))
	assert.Assert(t, strings.Contains(out, `"trace_id":"req-42"`))
}

func TestDeferredCommandsApplyInDeclarationOrder(t *testing.T) {
	w := world.New()
	var applied []string
	mk := func(name string) schedule.System {
		return func(ctx *schedule.Context) error {
			ctx.Commands().Queue(name, func(*world.World) error {
				applied = append(applied, name)
				return nil
			})
			return nil
		}
	}
	first := schedule.NewSystem(mk("first")).Named("first")
	second := schedule.NewSystem(mk("second")).Named("second").Before(first.Label())

	s := buildSchedule(t, w, first, second)
	assert.DeepEqual(t, []string{"second", "first"}, s.SystemNames())
	assert.NilError(t, s.Run())
	// The buffers flush in declaration order even though execution order
	// ran "second" first.
	assert.DeepEqual(t, []string{"first", "second"}, applied)
}

func TestBarrierAppliesCommandsMidPass(t *testing.T) {
	w := world.New()
	observed := -1
	spawner := schedule.NewSystem(func(ctx *schedule.Context) error {
		ctx.Commands().Spawn(MoverBundle{})
		return nil
	}).Named("spawner")
	barrier := schedule.ApplyDeferred().After(spawner.Label())
	observer := schedule.NewSystem(func(ctx *schedule.Context) error {
		observed = ctx.World().EntityCount()
		return nil
	}).Named("observer").After(barrier.Label())

	s := buildSchedule(t, w, spawner, barrier, observer)
	assert.NilError(t, s.Run())
	assert.Equal(t, 1, observed, "the barrier publishes the spawn before the observer")
}

func TestChangeWindowReportsEachChangeOnce(t *testing.T) {
	w := world.New()
	e, err := w.Spawn(MoverBundle{})
	assert.NilError(t, err)

	changed, err := query.New(w,
		query.Read[Position](),
		query.WithFilter(filter.Changed[Position]()),
	)
	assert.NilError(t, err)

	var counts []int
	mutate := schedule.NewSystem(func(ctx *schedule.Context) error {
		if ctx.CurrentTick() == 2 {
			ptr, err := world.Mut[Position](ctx.World(), e)
			if err != nil {
				return err
			}
			ptr.X++
		}
		return nil
	}).Named("mutator")
	observe := schedule.NewSystem(func(ctx *schedule.Context) error {
		n, err := changed.Count(ctx.Window())
		if err != nil {
			return err
		}
		counts = append(counts, n)
		return nil
	}).Named("observer").After(mutate.Label())

	s := buildSchedule(t, w, mutate, observe)
	for i := 0; i < 3; i++ {
		assert.NilError(t, s.Run())
	}
	// Pass 1: the pre-pass spawn is visible to the observer's first run.
	// Pass 2: the mutation. Pass 3: nothing new.
	assert.DeepEqual(t, []int{1, 1, 0}, counts)
}

func TestParallelSerializesConflictingAccess(t *testing.T) {
	w := world.New()
	_, err := w.Spawn(MoverBundle{})
	assert.NilError(t, err)

	writeQ, err := query.New(w, query.Write[Position]())
	assert.NilError(t, err)
	readQ, err := query.New(w, query.Read[Position]())
	assert.NilError(t, err)

	var active atomic.Int32
	var maxActive atomic.Int32
	body := func(*schedule.Context) error {
		n := active.Add(1)
		for {
			seen := maxActive.Load()
			if n <= seen || maxActive.CompareAndSwap(seen, n) {
				break
			}
		}
		active.Add(-1)
		return nil
	}

	s := schedule.New(w)
	assert.NilError(t, s.AddSystems(
		schedule.NewSystem(body).Named("writer-1").Uses(writeQ),
		schedule.NewSystem(body).Named("writer-2").Uses(writeQ),
		schedule.NewSystem(body).Named("reader").Uses(readQ),
	))
	assert.NilError(t, s.Build())

	for i := 0; i < 10; i++ {
		assert.NilError(t, s.RunParallel(context.Background(), 4))
	}
	assert.Equal(t, int32(1), maxActive.Load(),
		"conflicting systems must never overlap")
}

func TestParallelAllowsDisjointAccess(t *testing.T) {
	w := world.New()
	_, err := w.Spawn(MoverBundle{})
	assert.NilError(t, err)

	posQ, err := query.New(w, query.Write[Position]())
	assert.NilError(t, err)
	velQ, err := query.New(w, query.Write[Velocity]())
	assert.NilError(t, err)

	var mu sync.Mutex
	var order []string
	mk := func(name string, q *query.State) *schedule.SystemConfig {
		return schedule.NewSystem(func(*schedule.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}).Named(name).Uses(q)
	}

	s := schedule.New(w)
	assert.NilError(t, s.AddSystems(mk("pos", posQ), mk("vel", velQ)))
	assert.NilError(t, s.Build())
	assert.NilError(t, s.RunParallel(context.Background(), 4))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, len(order), "both disjoint systems ran")
}

func TestParallelHonorsOrderingConstraints(t *testing.T) {
	w := world.New()
	var mu sync.Mutex
	var order []string
	mk := func(name string) schedule.System {
		return func(*schedule.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}
	s := schedule.New(w)
	assert.NilError(t, s.AddSystems(
		schedule.NewSystem(mk("last")).Named("last").After(schedule.Intern("middle")),
		schedule.NewSystem(mk("middle")).Named("middle").After(schedule.Intern("head")),
		schedule.NewSystem(mk("head")).Named("head"),
	))
	assert.NilError(t, s.Build())

	for i := 0; i < 5; i++ {
		order = order[:0]
		assert.NilError(t, s.RunParallel(context.Background(), 4))
		assert.DeepEqual(t, []string{"head", "middle", "last"}, order)
	}
}

func TestAmbiguityDetection(t *testing.T) {
	w := world.New()
	_, err := w.Spawn(MoverBundle{})
	assert.NilError(t, err)
	writeQ, err := query.New(w, query.Write[Position]())
	assert.NilError(t, err)

	noop := func(*schedule.Context) error { return nil }
	s := schedule.New(w)
	assert.NilError(t, s.AddSystems(
		schedule.NewSystem(noop).Named("unordered-1").Uses(writeQ),
		schedule.NewSystem(noop).Named("unordered-2").Uses(writeQ),
	))
	assert.NilError(t, s.Build())
	assert.Equal(t, 1, len(s.Ambiguities()))

	// Ordering the pair silences the report.
	s2 := schedule.New(w)
	assert.NilError(t, s2.AddSystems(
		schedule.NewSystem(noop).Named("ordered-1").Uses(writeQ),
		schedule.NewSystem(noop).Named("ordered-2").Uses(writeQ).
			After(schedule.Intern("ordered-1")),
	))
	assert.NilError(t, s2.Build())
	assert.Equal(t, 0, len(s2.Ambiguities()))
}
