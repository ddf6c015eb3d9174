package ecs

import (
	"github.com/bevyengine/bevy-sub038/filter"
	"github.com/bevyengine/bevy-sub038/intern"
	"github.com/bevyengine/bevy-sub038/query"
	"github.com/bevyengine/bevy-sub038/schedule"
	"github.com/bevyengine/bevy-sub038/tick"
	"github.com/bevyengine/bevy-sub038/types"
	"github.com/bevyengine/bevy-sub038/world"
)

type (
	// Entity is a handle to a spawned row: an index plus a generation that
	// guards against reuse.
	Entity    = types.Entity
	Component = types.Component
	Tick      = tick.Tick
	Label     = intern.Label

	World         = world.World
	CommandBuffer = world.CommandBuffer

	Query  = query.State
	Window = query.Window
	Item   = query.Item

	System       = schedule.System
	Condition    = schedule.Condition
	Context      = schedule.Context
	Schedule     = schedule.Schedule
	SystemConfig = schedule.SystemConfig
	SetConfig    = schedule.SetConfig
)

var (
	All      = filter.All
	And      = filter.And
	Or       = filter.Or
	Not      = filter.Not
	Contains = filter.Contains
	Exact    = filter.Exact

	Intern = intern.Intern

	NewWorld         = world.New
	NewCommandBuffer = world.NewCommandBuffer
	NewQuery         = query.New
	NewSystem        = schedule.NewSystem
	NewSet           = schedule.NewSet
	NewSchedule      = schedule.New
	ApplyDeferred    = schedule.ApplyDeferred
	RunOnce          = schedule.RunOnce
	EveryNTicks      = schedule.EveryNTicks
)
