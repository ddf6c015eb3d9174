package schedule

import (
	"github.com/rs/zerolog"

	"github.com/bevyengine/bevy-sub038/log"
	"github.com/bevyengine/bevy-sub038/query"
	"github.com/bevyengine/bevy-sub038/tick"
	"github.com/bevyengine/bevy-sub038/world"
)

// Context is what a system receives each pass. It carries the world, a
// logger pre-tagged with the system's name, the system's private command
// buffer, and the change-observation window for this run.
type Context struct {
	world    *world.World
	logger   zerolog.Logger
	commands *world.CommandBuffer
	lastRun  tick.Tick
	thisRun  tick.Tick
}

func newContext(w *world.World, logger zerolog.Logger, lastRun, thisRun tick.Tick) *Context {
	return &Context{
		world:    w,
		logger:   logger,
		commands: world.NewCommandBuffer(),
		lastRun:  lastRun,
		thisRun:  thisRun,
	}
}

func (c *Context) World() *world.World {
	return c.world
}

func (c *Context) Logger() *zerolog.Logger {
	return &c.logger
}

// TraceLogger derives a logger tagged with traceID, for following one piece
// of data across log lines.
func (c *Context) TraceLogger(traceID string) *zerolog.Logger {
	return log.CreateTraceLogger(&c.logger, traceID)
}

// Commands is the system's deferred command buffer. Queued structural
// changes apply at the next barrier, or at end of pass.
func (c *Context) Commands() *world.CommandBuffer {
	return c.commands
}

// Window is the change-observation window for this run: everything written
// after the system's previous run and up to the current pass counts as new.
func (c *Context) Window() query.Window {
	return query.Window{LastRun: c.lastRun, This: c.thisRun}
}

// LastRun is the tick at which this system last completed.
func (c *Context) LastRun() tick.Tick {
	return c.lastRun
}

// CurrentTick is the tick of the pass in progress.
func (c *Context) CurrentTick() tick.Tick {
	return c.thisRun
}
