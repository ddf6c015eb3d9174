package ecs_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bevyengine/bevy-sub038/assert"

	ecs "github.com/bevyengine/bevy-sub038"
	"github.com/bevyengine/bevy-sub038/query"
	"github.com/bevyengine/bevy-sub038/schedule"
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

func newEngine(t *testing.T) *ecs.Engine {
	t.Helper()
	cfg, err := ecs.LoadConfig()
	assert.NilError(t, err)
	e, err := ecs.NewEngine(cfg)
	assert.NilError(t, err)
	return e
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := ecs.LoadConfig()
	assert.NilError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "", cfg.StatsdAddress)
}

func TestEngineMovementLoop(t *testing.T) {
	e := newEngine(t)
	assert.NilError(t, ecs.RegisterBundle[MoverBundle](e))

	mover, err := e.World().Spawn(MoverBundle{
		Velocity: Velocity{DX: 1, DY: 2},
	})
	assert.NilError(t, err)

	movers, err := ecs.NewQuery(e.World(),
		query.Write[Position](),
		query.Read[Velocity](),
	)
	assert.NilError(t, err)

	movement := schedule.NewSystem(func(ctx *schedule.Context) error {
		return movers.Each(ctx.Window(), func(item query.Item) bool {
			pos, err := query.GetMut[Position](item)
			if err != nil {
				return false
			}
			vel, err := query.Get[Velocity](item)
			if err != nil {
				return false
			}
			pos.X += vel.DX
			pos.Y += vel.DY
			return true
		})
	}).Named("movement").Uses(movers)

	assert.NilError(t, e.Schedule().AddSystems(movement))
	assert.NilError(t, e.Build())

	for i := 0; i < 3; i++ {
		assert.NilError(t, e.Tick(context.Background()))
	}

	pos, err := ecs.GetComponent[Position](e.World(), mover)
	assert.NilError(t, err)
	assert.Equal(t, 3.0, pos.X)
	assert.Equal(t, 6.0, pos.Y)

	assert.DeepEqual(t, []string{"movement"}, e.GetRegisteredSystems())
	assert.Equal(t, 2, len(e.GetRegisteredComponents()))
}

func TestPrettyLoggingKeepsExplicitLoggerOverride(t *testing.T) {
	cfg, err := ecs.LoadConfig()
	assert.NilError(t, err)
	cfg.LogPretty = true

	var buf bytes.Buffer
	e, err := ecs.NewEngine(cfg, world.WithLogger(zerolog.New(&buf)))
	assert.NilError(t, err)

	e.World().Logger.Info().Msg("hello")
	assert.Assert(t, strings.Contains(buf.String(), `"message":"hello"`),
		"an explicit logger option wins over the pretty console writer")
}

func TestEngineQueryByCQL(t *testing.T) {
	e := newEngine(t)
	assert.NilError(t, ecs.RegisterBundle[MoverBundle](e))
	_, err := e.World().Spawn(MoverBundle{})
	assert.NilError(t, err)

	q, err := e.QueryByCQL("CONTAINS(Position, Velocity)", query.Read[Position]())
	assert.NilError(t, err)
	n, err := q.Count(query.FullWindow(e.World()))
	assert.NilError(t, err)
	assert.Equal(t, 1, n)

	_, err = e.QueryByCQL("CONTAINS(")
	assert.Assert(t, err != nil)
}

func TestEngineResources(t *testing.T) {
	e := newEngine(t)
	type Score struct{ Value int }

	ecs.InsertResource(e.World(), Score{Value: 10})
	score, err := ecs.GetResource[Score](e.World())
	assert.NilError(t, err)
	assert.Equal(t, 10, score.Value)

	mut, err := ecs.MutResource[Score](e.World())
	assert.NilError(t, err)
	mut.Value = 20
	score, err = ecs.GetResource[Score](e.World())
	assert.NilError(t, err)
	assert.Equal(t, 20, score.Value)
}
