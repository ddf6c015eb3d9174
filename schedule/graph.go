package schedule

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/bevyengine/bevy-sub038/intern"
	"github.com/bevyengine/bevy-sub038/query"
	"github.com/bevyengine/bevy-sub038/world"
)

var (
	ErrDuplicateSystem = eris.New("system is already registered")
	ErrUnknownLabel    = eris.New("ordering constraint references an unknown label")
	ErrOrderingCycle   = eris.New("ordering constraints form a cycle")
)

type node struct {
	index      int
	cfg        *SystemConfig
	access     query.Access
	successors []int
	indegree   int
}

func (n *node) isBarrier() bool {
	return n.cfg.barrier
}

// graph is the built form of a schedule: systems resolved to nodes, ordering
// constraints resolved to edges, and a fixed execution order. The order is a
// topological sort broken by declaration order, so rebuilding the same
// schedule always yields the same order.
type graph struct {
	nodes []*node
	order []int

	// ambiguities are pairs of systems with conflicting access and no
	// ordering path between them. The parallel executor still serializes
	// them, but which runs first is unspecified.
	ambiguities [][2]string
}

func buildGraph(w *world.World, systems []*SystemConfig, sets map[*intern.Label]*SetConfig) (*graph, error) {
	g := &graph{nodes: make([]*node, 0, len(systems))}

	seen := make(map[*intern.Label]struct{}, len(systems))
	labelToNodes := make(map[*intern.Label][]int, len(systems))
	for i, cfg := range systems {
		if _, dup := seen[cfg.label]; dup {
			return nil, eris.Wrapf(ErrDuplicateSystem, "system %q", cfg.name)
		}
		seen[cfg.label] = struct{}{}

		acc, err := cfg.resolveAccess(w)
		if err != nil {
			return nil, eris.Wrapf(err, "resolving access for system %q", cfg.name)
		}
		n := &node{index: i, cfg: cfg, access: acc}
		g.nodes = append(g.nodes, n)

		labelToNodes[cfg.label] = append(labelToNodes[cfg.label], i)
		for _, set := range cfg.sets {
			if _, ok := sets[set]; !ok {
				return nil, eris.Wrapf(ErrUnknownLabel, "system %q joins undeclared set %q", cfg.name, set.String())
			}
			labelToNodes[set] = append(labelToNodes[set], i)
		}
	}

	type edge struct{ from, to int }
	edges := make(map[edge]struct{})
	addEdge := func(from, to int) {
		if from == to {
			return
		}
		e := edge{from, to}
		if _, ok := edges[e]; ok {
			return
		}
		edges[e] = struct{}{}
		g.nodes[from].successors = append(g.nodes[from].successors, to)
		g.nodes[to].indegree++
	}
	resolve := func(owner string, label *intern.Label) ([]int, error) {
		targets, ok := labelToNodes[label]
		if !ok {
			return nil, eris.Wrapf(ErrUnknownLabel, "system %q references label %q", owner, label.String())
		}
		return targets, nil
	}

	for i, cfg := range systems {
		for _, label := range cfg.before {
			targets, err := resolve(cfg.name, label)
			if err != nil {
				return nil, err
			}
			for _, t := range targets {
				addEdge(i, t)
			}
		}
		for _, label := range cfg.after {
			targets, err := resolve(cfg.name, label)
			if err != nil {
				return nil, err
			}
			for _, t := range targets {
				addEdge(t, i)
			}
		}
	}

	// Set-level constraints apply to every member.
	for setLabel, setCfg := range sets {
		members := labelToNodes[setLabel]
		for _, label := range setCfg.before {
			targets, err := resolve(setLabel.String(), label)
			if err != nil {
				return nil, err
			}
			for _, m := range members {
				for _, t := range targets {
					addEdge(m, t)
				}
			}
		}
		for _, label := range setCfg.after {
			targets, err := resolve(setLabel.String(), label)
			if err != nil {
				return nil, err
			}
			for _, m := range members {
				for _, t := range targets {
					addEdge(t, m)
				}
			}
		}
	}

	if err := g.sort(); err != nil {
		return nil, err
	}
	g.findAmbiguities()
	return g, nil
}

// sort computes the execution order: a Kahn topological sort that always
// picks the ready node declared earliest, so ties resolve by declaration
// order.
func (g *graph) sort() error {
	indegree := make([]int, len(g.nodes))
	for i, n := range g.nodes {
		indegree[i] = n.indegree
	}

	g.order = make([]int, 0, len(g.nodes))
	done := make([]bool, len(g.nodes))
	for len(g.order) < len(g.nodes) {
		next := -1
		for i := range g.nodes {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next == -1 {
			var stuck []string
			for i, n := range g.nodes {
				if !done[i] {
					stuck = append(stuck, n.cfg.name)
				}
			}
			return eris.Wrapf(ErrOrderingCycle, "involving: %s", strings.Join(stuck, ", "))
		}
		done[next] = true
		g.order = append(g.order, next)
		for _, succ := range g.nodes[next].successors {
			indegree[succ]--
		}
	}
	return nil
}

// findAmbiguities flags pairs of systems whose accesses conflict but that
// have no ordering path between them in either direction.
func (g *graph) findAmbiguities() {
	n := len(g.nodes)
	if n == 0 {
		return
	}
	words := (n + 63) / 64
	reach := make([][]uint64, n)
	for i := range reach {
		reach[i] = make([]uint64, words)
	}
	// Walk the topo order backwards so successors' reach sets are final.
	for i := len(g.order) - 1; i >= 0; i-- {
		idx := g.order[i]
		for _, succ := range g.nodes[idx].successors {
			reach[idx][succ/64] |= 1 << (succ % 64)
			for w := 0; w < words; w++ {
				reach[idx][w] |= reach[succ][w]
			}
		}
	}
	reaches := func(a, b int) bool {
		return reach[a][b/64]&(1<<(b%64)) != 0
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !g.nodes[i].access.ConflictsWith(g.nodes[j].access) {
				continue
			}
			if reaches(i, j) || reaches(j, i) {
				continue
			}
			g.ambiguities = append(g.ambiguities, [2]string{g.nodes[i].cfg.name, g.nodes[j].cfg.name})
		}
	}
}
