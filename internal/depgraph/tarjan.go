package depgraph

import (
	"sort"

	"github.com/sunholo/cribo/internal/resolver"
)

// SCC is one strongly-connected component: a set of nodes that must be
// treated as a single ordering unit (spec.md §4.2 — condensed so the
// classifier can recognize them as a circular group). A component of
// size 1 whose single node has no self-edge is an ordinary acyclic node.
type SCC struct {
	Nodes []Node
}

// Cyclic reports whether the component is a genuine cycle (more than
// one node, or a single node with a self-dependency).
func (s SCC) Cyclic(g *Graph) bool {
	if len(s.Nodes) > 1 {
		return true
	}
	n := s.Nodes[0]
	for _, to := range g.neighbors(n) {
		if to == n {
			return true
		}
	}
	return false
}

// tarjanState carries Tarjan's algorithm's working sets across the
// recursive walk.
type tarjanState struct {
	g        *Graph
	index    map[Node]int
	lowlink  map[Node]int
	onStack  map[Node]bool
	stack    []Node
	counter  int
	sccs     []SCC
}

// StronglyConnectedComponents runs Tarjan's algorithm over the full
// graph and returns components in reverse-topological discovery order
// (a component's dependencies appear before it), matching Tarjan's
// standard output order. Iteration over nodes is in AllNodes order
// (module-discovery then source order) so that equal-priority starting
// points produce a deterministic result, per spec.md §5.
func (g *Graph) StronglyConnectedComponents() []SCC {
	st := &tarjanState{
		g:       g,
		index:   make(map[Node]int),
		lowlink: make(map[Node]int),
		onStack: make(map[Node]bool),
	}
	for _, n := range g.AllNodes() {
		if _, seen := st.index[n]; !seen {
			st.strongConnect(n)
		}
	}
	return st.sccs
}

func (st *tarjanState) strongConnect(v Node) {
	st.index[v] = st.counter
	st.lowlink[v] = st.counter
	st.counter++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	for _, w := range st.g.neighbors(v) {
		if _, seen := st.index[w]; !seen {
			st.strongConnect(w)
			if st.lowlink[w] < st.lowlink[v] {
				st.lowlink[v] = st.lowlink[w]
			}
		} else if st.onStack[w] {
			if st.index[w] < st.lowlink[v] {
				st.lowlink[v] = st.index[w]
			}
		}
	}

	if st.lowlink[v] == st.index[v] {
		var comp []Node
		for {
			n := len(st.stack) - 1
			w := st.stack[n]
			st.stack = st.stack[:n]
			st.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		st.sccs = append(st.sccs, SCC{Nodes: comp})
	}
}

// TopologicalOrder returns the graph's SCCs ordered so that every
// component appears after all components it depends on, with ties
// (components that are mutually independent) broken by ascending
// ModuleId and then ascending ItemId of each component's lowest-id
// member, per spec.md §4.2's determinism requirement.
func (g *Graph) TopologicalOrder() []SCC {
	sccs := g.StronglyConnectedComponents()

	// Tarjan lists a component's dependencies before it in sccs; the
	// list is reversed here, and kahnOrder then derives the
	// dependencies-first order from the condensation edges.
	for i, j := 0, len(sccs)-1; i < j; i, j = i+1, j-1 {
		sccs[i], sccs[j] = sccs[j], sccs[i]
	}

	// Kahn's algorithm over the SCC condensation, breaking ties among
	// simultaneously-ready components by ascending (Module, Item) of
	// their minimal node for full determinism.
	return kahnOrder(g, sccs)
}

func minNode(nodes []Node) Node {
	m := nodes[0]
	for _, n := range nodes[1:] {
		if n.less(m) {
			m = n
		}
	}
	return m
}

func (n Node) less(o Node) bool {
	if n.Module != o.Module {
		return n.Module < o.Module
	}
	return n.Item < o.Item
}

// kahnOrder computes a dependency-respecting order over the SCC
// condensation using Kahn's algorithm, breaking ties among
// simultaneously-ready components by ascending (Module, Item) of their
// minimal node so the result is fully deterministic.
func kahnOrder(g *Graph, sccs []SCC) []SCC {
	nodeToComp := make(map[Node]int)
	for ci, s := range sccs {
		for _, n := range s.Nodes {
			nodeToComp[n] = ci
		}
	}

	indegree := make([]int, len(sccs))
	condEdges := make([][]int, len(sccs)) // condEdges[c] = components c depends on
	seen := make([]map[int]bool, len(sccs))
	for i := range seen {
		seen[i] = make(map[int]bool)
	}

	for ci, s := range sccs {
		for _, n := range s.Nodes {
			for _, to := range g.neighbors(n) {
				cj := nodeToComp[to]
				if cj == ci || seen[ci][cj] {
					continue
				}
				seen[ci][cj] = true
				condEdges[ci] = append(condEdges[ci], cj)
				indegree[ci]++
			}
		}
	}

	// dependents[c] = components that depend on c (reverse edges), used
	// to decrement indegree as components are emitted.
	dependents := make([][]int, len(sccs))
	for ci, deps := range condEdges {
		for _, cj := range deps {
			dependents[cj] = append(dependents[cj], ci)
		}
	}

	ready := []int{}
	for ci, d := range indegree {
		if d == 0 {
			ready = append(ready, ci)
		}
	}

	var out []SCC
	placed := make([]bool, len(sccs))
	for len(out) < len(sccs) {
		sort.Slice(ready, func(i, j int) bool {
			return minNode(sccs[ready[i]].Nodes).less(minNode(sccs[ready[j]].Nodes))
		})
		// take the first not-yet-placed ready component
		idx := -1
		for i, c := range ready {
			if !placed[c] {
				idx = i
				break
			}
		}
		if idx == -1 {
			break // no progress possible; leftover is a graph bug (shouldn't happen: SCCs are acyclic by construction)
		}
		c := ready[idx]
		ready = append(ready[:idx], ready[idx+1:]...)
		placed[c] = true
		out = append(out, sccs[c])
		for _, dep := range dependents[c] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	return out
}

// ModuleSCC is one strongly-connected component of the module-level
// condensation of the item graph, with members in ascending ModuleId
// order.
type ModuleSCC struct {
	Modules []resolver.ModuleId
}

// Cyclic reports whether the component is a genuine module-level cycle.
func (s ModuleSCC) Cyclic() bool {
	return len(s.Modules) > 1
}

// ModuleSCCOrder condenses the item graph to module granularity, runs
// Tarjan over it, and returns the components in dependencies-first
// order: every component appears after every component it depends on,
// ties broken by ascending minimal ModuleId. This is the emission
// order spec.md §4.6.5 requires; item-level order within a module is
// simply source order of its surviving items.
func (g *Graph) ModuleSCCOrder() []ModuleSCC {
	adj := map[resolver.ModuleId][]resolver.ModuleId{}
	seenEdge := map[[2]resolver.ModuleId]bool{}
	for from, tos := range g.edges {
		for _, to := range tos {
			if from.Module == to.Module {
				continue
			}
			key := [2]resolver.ModuleId{from.Module, to.Module}
			if !seenEdge[key] {
				seenEdge[key] = true
				adj[from.Module] = append(adj[from.Module], to.Module)
			}
		}
	}

	index := map[resolver.ModuleId]int{}
	lowlink := map[resolver.ModuleId]int{}
	onStack := map[resolver.ModuleId]bool{}
	var stack []resolver.ModuleId
	counter := 0
	var comps []ModuleSCC

	var connect func(v resolver.ModuleId)
	connect = func(v resolver.ModuleId) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range adj[v] {
			if _, seen := index[w]; !seen {
				connect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
		}
		if lowlink[v] == index[v] {
			var members []resolver.ModuleId
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				members = append(members, w)
				if w == v {
					break
				}
			}
			sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
			comps = append(comps, ModuleSCC{Modules: members})
		}
	}

	for _, id := range g.order {
		if _, seen := index[id]; !seen {
			connect(id)
		}
	}

	// Tarjan emits a component's dependencies before it; Kahn over the
	// condensation gives the dependencies-first order with deterministic
	// tie-breaking.
	compOf := map[resolver.ModuleId]int{}
	for ci, c := range comps {
		for _, m := range c.Modules {
			compOf[m] = ci
		}
	}
	indegree := make([]int, len(comps))
	dependents := make([][]int, len(comps))
	edgeSeen := map[[2]int]bool{}
	for ci, c := range comps {
		for _, m := range c.Modules {
			for _, to := range adj[m] {
				cj := compOf[to]
				if cj == ci || edgeSeen[[2]int{ci, cj}] {
					continue
				}
				edgeSeen[[2]int{ci, cj}] = true
				indegree[ci]++
				dependents[cj] = append(dependents[cj], ci)
			}
		}
	}

	var ready []int
	for ci, d := range indegree {
		if d == 0 {
			ready = append(ready, ci)
		}
	}
	var out []ModuleSCC
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			return comps[ready[i]].Modules[0] < comps[ready[j]].Modules[0]
		})
		c := ready[0]
		ready = ready[1:]
		out = append(out, comps[c])
		for _, dep := range dependents[c] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	return out
}
