// Package schedule runs systems against a world in a deterministic order
// derived from declarative constraints. Ordering is resolved once at build
// time; passes execute the fixed order with per-system change windows,
// memoized set conditions, deferred command buffers, and failure isolation.
package schedule

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/bevyengine/bevy-sub038/intern"
	"github.com/bevyengine/bevy-sub038/log"
	"github.com/bevyengine/bevy-sub038/runstate"
	"github.com/bevyengine/bevy-sub038/statsd"
	"github.com/bevyengine/bevy-sub038/tick"
	"github.com/bevyengine/bevy-sub038/world"
)

var (
	ErrNotBuilt       = eris.New("schedule has not been built")
	ErrAlreadyBuilt   = eris.New("schedule is already built")
	ErrAlreadyRunning = eris.New("a pass is already in progress")
	ErrShutDown       = eris.New("schedule is shut down")
)

// ErrorHandler receives every isolated system failure: the system's name,
// the tick it last completed, and the error (condition errors and recovered
// panics included). The pass continues after the handler returns.
type ErrorHandler func(systemName string, lastRun tick.Tick, err error)

type nodeStatus uint8

const (
	statusPending nodeStatus = iota
	statusSkipped
	statusBuffered
	statusCompleted
)

// Schedule owns a set of systems and executes them as passes over a world.
// Registration is only legal before Build; after Build the graph is frozen
// and passes may run.
type Schedule struct {
	world  *world.World
	logger zerolog.Logger
	state  runstate.Atomic

	systems []*SystemConfig
	sets    map[*intern.Label]*SetConfig
	graph   *graph

	lastRun []tick.Tick
	onError ErrorHandler

	// applyAtEnd flushes still-buffered commands when a pass finishes, so a
	// schedule without explicit barriers still applies deferred work.
	applyAtEnd bool
}

// Option configures a schedule at construction.
type Option func(*Schedule)

// WithErrorHandler replaces the default handler, which logs the failure.
func WithErrorHandler(h ErrorHandler) Option {
	return func(s *Schedule) { s.onError = h }
}

// WithoutFinalApply leaves commands buffered at end of pass unless an
// explicit barrier applied them.
func WithoutFinalApply() Option {
	return func(s *Schedule) { s.applyAtEnd = false }
}

// WithLogger replaces the world-derived logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Schedule) { s.logger = logger }
}

// New creates an empty schedule over w.
func New(w *world.World, opts ...Option) *Schedule {
	s := &Schedule{
		world:      w,
		logger:     w.Logger.With().Str("module", "schedule").Logger(),
		state:      runstate.NewAtomic(),
		sets:       make(map[*intern.Label]*SetConfig),
		applyAtEnd: true,
	}
	s.onError = func(systemName string, lastRun tick.Tick, err error) {
		s.logger.Error().
			Str("system", systemName).
			Uint32("last_run", uint32(lastRun)).
			Msg(eris.ToString(err, true))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddSystems registers systems. Duplicate labels are rejected at Build.
func (s *Schedule) AddSystems(cfgs ...*SystemConfig) error {
	if s.state.Load() != runstate.StateBuilding {
		return ErrAlreadyBuilt
	}
	s.systems = append(s.systems, cfgs...)
	return nil
}

// ConfigureSet declares or extends a set. Systems join with InSet.
func (s *Schedule) ConfigureSet(set *SetConfig) error {
	if s.state.Load() != runstate.StateBuilding {
		return ErrAlreadyBuilt
	}
	if existing, ok := s.sets[set.label]; ok {
		existing.before = append(existing.before, set.before...)
		existing.after = append(existing.after, set.after...)
		existing.conditions = append(existing.conditions, set.conditions...)
		return nil
	}
	s.sets[set.label] = set
	return nil
}

var barrierCounter atomic.Int64

// ApplyDeferred builds a barrier: a first-class node that applies every
// command buffer still pending from systems ordered before it. Barriers are
// exclusive, so the parallel executor drains all in-flight work first.
func ApplyDeferred() *SystemConfig {
	n := barrierCounter.Add(1)
	name := fmt.Sprintf("ApplyDeferred#%d", n)
	return &SystemConfig{
		name:      name,
		label:     intern.Intern(name),
		barrier:   true,
		exclusive: true,
	}
}

// AddBarrier appends a barrier ordered after every system added so far.
func (s *Schedule) AddBarrier() error {
	barrier := ApplyDeferred()
	for _, cfg := range s.systems {
		barrier.After(cfg.label)
	}
	return s.AddSystems(barrier)
}

// Build freezes the schedule: resolves accesses and labels, computes the
// execution order, and reports ambiguities. Registration is rejected after
// Build succeeds.
func (s *Schedule) Build() error {
	if s.state.Load() != runstate.StateBuilding {
		return ErrAlreadyBuilt
	}
	g, err := buildGraph(s.world, s.systems, s.sets)
	if err != nil {
		return err
	}
	s.graph = g
	// A system that has never run must observe everything already in the
	// world as changed, so its initial last-run sits a full change-age in
	// the past rather than at the current tick.
	s.lastRun = make([]tick.Tick, len(g.nodes))
	initial := s.world.CurrentTick() - tick.MaxChangeAge
	for i := range s.lastRun {
		s.lastRun[i] = initial
	}
	for _, pair := range g.ambiguities {
		s.logger.Warn().
			Str("first", pair[0]).
			Str("second", pair[1]).
			Msg("systems have conflicting access and no ordering between them")
	}
	s.logger.Info().
		Int("systems", len(s.systems)).
		Int("sets", len(s.sets)).
		Msg("schedule built")
	if !s.state.CompareAndSwap(runstate.StateBuilding, runstate.StateReady) {
		return ErrAlreadyBuilt
	}
	return nil
}

// SystemNames returns the system names in execution order.
func (s *Schedule) SystemNames() []string {
	if s.graph == nil {
		return nil
	}
	names := make([]string, 0, len(s.graph.order))
	for _, idx := range s.graph.order {
		names = append(names, s.graph.nodes[idx].cfg.name)
	}
	return names
}

// Ambiguities returns the conflicting unordered system pairs found at Build.
func (s *Schedule) Ambiguities() [][2]string {
	if s.graph == nil {
		return nil
	}
	return s.graph.ambiguities
}

// Shutdown permanently retires the schedule.
func (s *Schedule) Shutdown() {
	s.state.Store(runstate.StateShutDown)
}

func (s *Schedule) beginPass() error {
	switch s.state.Load() {
	case runstate.StateBuilding:
		return ErrNotBuilt
	case runstate.StateShutDown:
		return ErrShutDown
	}
	if !s.state.CompareAndSwap(runstate.StateReady, runstate.StateRunning) {
		return ErrAlreadyRunning
	}
	return nil
}

// pass carries the per-pass scratch state. A fresh pass is built for every
// run, so no bitset or memo survives between passes.
type pass struct {
	this          tick.Tick
	status        []nodeStatus
	contexts      []*Context
	evaluatedSets map[*intern.Label]bool
}

func (s *Schedule) newPass() *pass {
	return &pass{
		this:          s.world.IncrementTick(),
		status:        make([]nodeStatus, len(s.graph.nodes)),
		contexts:      make([]*Context, len(s.graph.nodes)),
		evaluatedSets: make(map[*intern.Label]bool, len(s.sets)),
	}
}

// Run executes one single-threaded pass in the built order.
func (s *Schedule) Run() error {
	if err := s.beginPass(); err != nil {
		return err
	}
	defer s.state.CompareAndSwap(runstate.StateRunning, runstate.StateReady)

	passStart := time.Now()
	p := s.newPass()
	for _, idx := range s.graph.order {
		n := s.graph.nodes[idx]
		if n.isBarrier() {
			s.applyBuffered(p)
			p.status[n.index] = statusCompleted
			continue
		}
		s.runNode(p, n)
	}
	if s.applyAtEnd {
		s.applyBuffered(p)
	}

	statsd.EmitPassStat(passStart, "pass")
	statsd.EmitEntityCount(s.world.EntityCount())
	return nil
}

// runNode evaluates a system's gates and, if they pass, executes it. All
// failures are isolated: a condition error or a system error (panics
// included) is reported through the error handler and the pass moves on. A
// failed system's commands are discarded, never applied.
func (s *Schedule) runNode(p *pass, n *node) {
	logger := log.CreateSystemLogger(&s.logger, n.cfg.name)
	ctx := newContext(s.world, *logger, s.lastRun[n.index], p.this)
	p.contexts[n.index] = ctx

	run, err := s.evalConditions(p, n, ctx)
	if err != nil {
		s.onError(n.cfg.name, s.lastRun[n.index], err)
		p.status[n.index] = statusSkipped
		return
	}
	if !run {
		p.status[n.index] = statusSkipped
		return
	}

	start := time.Now()
	err = s.callSystem(n.cfg.system, ctx)
	statsd.EmitSystemStat(start, n.cfg.name)
	if err != nil {
		s.onError(n.cfg.name, s.lastRun[n.index], err)
		ctx.Commands().Discard()
		p.status[n.index] = statusCompleted
		return
	}

	s.lastRun[n.index] = p.this
	if ctx.Commands().Len() > 0 {
		p.status[n.index] = statusBuffered
	} else {
		p.status[n.index] = statusCompleted
	}
}

// evalConditions gates a system on its sets' conditions and then its own.
// Set conditions are evaluated at most once per pass; every member observes
// the memoized verdict.
func (s *Schedule) evalConditions(p *pass, n *node, ctx *Context) (bool, error) {
	for _, setLabel := range n.cfg.sets {
		verdict, ok := p.evaluatedSets[setLabel]
		if !ok {
			verdict = true
			for _, cond := range s.sets[setLabel].conditions {
				passed, err := cond(ctx)
				if err != nil {
					p.evaluatedSets[setLabel] = false
					return false, eris.Wrapf(err, "condition of set %q failed", setLabel.String())
				}
				if !passed {
					verdict = false
					break
				}
			}
			p.evaluatedSets[setLabel] = verdict
		}
		if !verdict {
			return false, nil
		}
	}
	for _, cond := range n.cfg.conditions {
		passed, err := cond(ctx)
		if err != nil {
			return false, eris.Wrap(err, "run condition failed")
		}
		if !passed {
			return false, nil
		}
	}
	return true, nil
}

// callSystem invokes the system with panic isolation.
func (s *Schedule) callSystem(system System, ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("system panicked: %v", r)
		}
	}()
	return system(ctx)
}

// applyBuffered flushes every buffered command buffer serially, in system
// declaration order. Declaration order is the contract even when ordering
// edges run the systems in a different order. A buffer that fails mid-way is
// reported and dropped; other systems' buffers still apply.
func (s *Schedule) applyBuffered(p *pass) {
	for idx := range s.graph.nodes {
		if p.status[idx] != statusBuffered {
			continue
		}
		n := s.graph.nodes[idx]
		if err := p.contexts[idx].Commands().Apply(s.world); err != nil {
			s.onError(n.cfg.name, s.lastRun[idx], eris.Wrap(err, "applying deferred commands"))
		}
		p.status[idx] = statusCompleted
	}
}
