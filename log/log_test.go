package log_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/bevyengine/bevy-sub038/assert"
	"github.com/bevyengine/bevy-sub038/component"
	"github.com/bevyengine/bevy-sub038/log"
	"github.com/bevyengine/bevy-sub038/types"
)

type EnergyComp struct {
	Value int
}

func (EnergyComp) Name() string {
	return "EnergyComp"
}

type HealthComp struct {
	Current int
}

func (HealthComp) Name() string {
	return "HealthComp"
}

type fakeLoggable struct {
	components []types.ComponentMetadata
	systems    []string
}

func (f *fakeLoggable) GetRegisteredComponents() []types.ComponentMetadata {
	return f.components
}

func (f *fakeLoggable) GetRegisteredSystems() []string {
	return f.systems
}

func mustMeta[T types.Component](t *testing.T, id types.ComponentID) types.ComponentMetadata {
	t.Helper()
	meta, err := component.NewComponentMetadata[T]()
	assert.NilError(t, err)
	assert.NilError(t, meta.SetID(id))
	return meta
}

func newFakeLoggable(t *testing.T) *fakeLoggable {
	t.Helper()
	return &fakeLoggable{
		components: []types.ComponentMetadata{
			mustMeta[EnergyComp](t, 0),
			mustMeta[HealthComp](t, 1),
		},
		systems: []string{"movement", "regen"},
	}
}

func TestWorldLogger(t *testing.T) {
	var buf bytes.Buffer
	bufLogger := zerolog.New(&buf)

	log.World(&bufLogger, newFakeLoggable(t), zerolog.InfoLevel)
	require.JSONEq(t, `{
		"level":"info",
		"total_components":2,
		"components":
			[
				{
					"component_id":0,
					"component_name":"EnergyComp"
				},
				{
					"component_id":1,
					"component_name":"HealthComp"
				}
			],
		"total_systems":2,
		"systems":
			[
				"movement",
				"regen"
			]
	}`, buf.String())
}

func TestEntityLogger(t *testing.T) {
	var buf bytes.Buffer
	bufLogger := zerolog.New(&buf)
	target := newFakeLoggable(t)

	entity := types.NewEntity(5, 2)
	log.Entity(&bufLogger, zerolog.DebugLevel, entity, 3, target.components[:1])
	require.JSONEq(t, `{
		"level":"debug",
		"components":
			[
				{
					"component_id":0,
					"component_name":"EnergyComp"
				}
			],
		"entity":"`+entity.String()+`",
		"archetype_id":3
	}`, buf.String())
}

func TestSystemLoggerTagsEveryLine(t *testing.T) {
	var buf bytes.Buffer
	bufLogger := zerolog.New(&buf)

	sysLogger := log.CreateSystemLogger(&bufLogger, "movement")
	sysLogger.Info().Msg("moved")
	assert.Check(t, strings.Contains(buf.String(), `"system":"movement"`))

	buf.Reset()
	traceLogger := log.CreateTraceLogger(&bufLogger, "trace-1")
	traceLogger.Info().Msg("step")
	assert.Check(t, strings.Contains(buf.String(), `"trace_id":"trace-1"`))
}
