package schedule

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/bevyengine/bevy-sub038/query"
	"github.com/bevyengine/bevy-sub038/runstate"
	"github.com/bevyengine/bevy-sub038/statsd"
)

// parallelState is the dispatch bookkeeping shared by the coordinator and
// the workers. All fields are guarded by mu.
type parallelState struct {
	mu   sync.Mutex
	cond *sync.Cond

	indegree []int
	started  []bool
	finished int

	// running holds the access sets of in-flight systems. A node only
	// dispatches when its access is compatible with every entry.
	running map[int]query.Access
}

func newParallelState(g *graph) *parallelState {
	st := &parallelState{
		indegree: make([]int, len(g.nodes)),
		started:  make([]bool, len(g.nodes)),
		running:  make(map[int]query.Access),
	}
	st.cond = sync.NewCond(&st.mu)
	for i, n := range g.nodes {
		st.indegree[i] = n.indegree
	}
	return st
}

// dispatchable reports whether node idx can start right now: all
// predecessors finished and no in-flight system conflicts with it. Barriers
// additionally require the world to be quiet.
func (st *parallelState) dispatchable(g *graph, idx int) bool {
	if st.started[idx] || st.indegree[idx] != 0 {
		return false
	}
	n := g.nodes[idx]
	if n.isBarrier() && len(st.running) > 0 {
		return false
	}
	for _, acc := range st.running {
		if n.access.ConflictsWith(acc) {
			return false
		}
	}
	return true
}

// RunParallel executes one pass with up to workers concurrent systems.
// Systems with conflicting declared accesses never overlap; ordering
// constraints are honored exactly as in the single-threaded pass. workers
// <= 0 uses GOMAXPROCS.
func (s *Schedule) RunParallel(ctx context.Context, workers int) error {
	if err := s.beginPass(); err != nil {
		return err
	}
	defer s.state.CompareAndSwap(runstate.StateRunning, runstate.StateReady)

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	passStart := time.Now()
	p := s.newPass()
	st := newParallelState(s.graph)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	// Wake the dispatcher if the pass is canceled while it is waiting.
	stop := context.AfterFunc(gctx, func() {
		st.mu.Lock()
		st.mu.Unlock()
		st.cond.Broadcast()
	})
	defer stop()

	total := len(s.graph.nodes)
	dispatchErr := func() error {
		st.mu.Lock()
		defer st.mu.Unlock()
		for st.finished < total {
			if err := gctx.Err(); err != nil {
				return err
			}
			idx := -1
			for _, candidate := range s.graph.order {
				if st.dispatchable(s.graph, candidate) {
					idx = candidate
					break
				}
			}
			if idx == -1 {
				st.cond.Wait()
				continue
			}
			st.started[idx] = true
			st.running[idx] = s.graph.nodes[idx].access
			node := s.graph.nodes[idx]
			st.mu.Unlock()
			// Go blocks while all workers are busy; dispatch resumes when
			// a slot frees.
			g.Go(func() error {
				s.runNodeParallel(p, st, node)
				return nil
			})
			st.mu.Lock()
		}
		return nil
	}()

	waitErr := g.Wait()
	if dispatchErr != nil {
		return eris.Wrap(dispatchErr, "parallel pass canceled")
	}
	if waitErr != nil {
		return waitErr
	}

	if s.applyAtEnd {
		s.applyBuffered(p)
	}
	statsd.EmitPassStat(passStart, "parallel_pass")
	statsd.EmitEntityCount(s.world.EntityCount())
	return nil
}

// runNodeParallel is the worker-side execution of one node. Scheduling
// state mutates under the mutex; the system call itself runs unlocked,
// isolation being guaranteed by the access-compatibility dispatch.
func (s *Schedule) runNodeParallel(p *pass, st *parallelState, n *node) {
	defer func() {
		st.mu.Lock()
		delete(st.running, n.index)
		for _, succ := range n.successors {
			st.indegree[succ]--
		}
		st.finished++
		st.mu.Unlock()
		st.cond.Broadcast()
	}()

	if n.isBarrier() {
		// The dispatcher only releases a barrier when nothing is running,
		// so applying buffers here is race free.
		s.applyBuffered(p)
		p.status[n.index] = statusCompleted
		return
	}

	logger := s.logger.With().Str("system", n.cfg.name).Logger()
	ctx := newContext(s.world, logger, s.lastRun[n.index], p.this)
	p.contexts[n.index] = ctx

	run, err := s.evalConditionsLocked(p, st, n, ctx)
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

// evalConditionsLocked mirrors evalConditions but memoizes set verdicts
// under the dispatch mutex, so concurrent members still evaluate each set's
// conditions at most once per pass.
func (s *Schedule) evalConditionsLocked(p *pass, st *parallelState, n *node, ctx *Context) (bool, error) {
	for _, setLabel := range n.cfg.sets {
		st.mu.Lock()
		verdict, ok := p.evaluatedSets[setLabel]
		if !ok {
			verdict = true
			for _, cond := range s.sets[setLabel].conditions {
				passed, err := cond(ctx)
				if err != nil {
					p.evaluatedSets[setLabel] = false
					st.mu.Unlock()
					return false, eris.Wrapf(err, "condition of set %q failed", setLabel.String())
				}
				if !passed {
					verdict = false
					break
				}
			}
			p.evaluatedSets[setLabel] = verdict
		}
		st.mu.Unlock()
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
