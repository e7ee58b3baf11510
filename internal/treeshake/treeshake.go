// Package treeshake implements mark-and-sweep reachability over the
// item-level dependency graph (spec.md §4.4, C4): starting from the
// entry module's top-level items, mark every item transitively
// reachable through read/import edges, then report which items survive.
// Grounded on the reachability-marking shape of the teacher's
// internal/eval_analysis (liveness-style analysis over the evaluated
// program) generalized from AILANG's value-level reachability to
// cribo's item-level one.
package treeshake

import (
	"sort"

	"github.com/sunholo/cribo/internal/depgraph"
	"github.com/sunholo/cribo/internal/resolver"
	"github.com/sunholo/cribo/internal/semantic"
)

// Result is the outcome of a tree-shake pass: which graph nodes survive.
type Result struct {
	Live map[depgraph.Node]bool

	// LiveModules is the set of modules with at least one surviving
	// item, or that are marked live in full (namespace/wildcard import).
	LiveModules map[resolver.ModuleId]bool
}

// Options controls a tree-shake pass.
type Options struct {
	// Disabled, when true, marks every item in every registered module
	// live — spec.md §4.4's tree-shake-disabled mode (`--no-tree-shake`).
	Disabled bool

	// NamespaceImported and WildcardImported name modules reached via
	// `import pkg` (whole-module reference) or `from pkg import *`: in
	// both cases the set of attributes actually used can't be statically
	// enumerated from the read-name alone, so every item of the target
	// module is conservatively marked live in full.
	NamespaceImported map[resolver.ModuleId]bool
	WildcardImported  map[resolver.ModuleId]bool
}

// Run marks every item reachable from the entry module's top-level
// items (all of them — the entry module always runs in full) and from
// there follows Defines/Reads edges, plus two conservative
// whole-module escape hatches: a namespace import (`import pkg as p`)
// or wildcard import (`from pkg import *`) marks every item of the
// target module live, since which attributes are actually used can't be
// statically enumerated.
func Run(g *depgraph.Graph, models map[resolver.ModuleId]*semantic.Model, entry resolver.ModuleId, opts Options) Result {
	res := Result{Live: make(map[depgraph.Node]bool), LiveModules: make(map[resolver.ModuleId]bool)}

	if opts.Disabled {
		for _, n := range g.AllNodes() {
			res.Live[n] = true
			res.LiveModules[n.Module] = true
		}
		return res
	}

	var queue []depgraph.Node
	enqueue := func(n depgraph.Node) {
		if !res.Live[n] {
			res.Live[n] = true
			res.LiveModules[n.Module] = true
			queue = append(queue, n)
		}
	}

	for _, mi := range g.Modules() {
		if mi.Module == entry || opts.NamespaceImported[mi.Module] || opts.WildcardImported[mi.Module] {
			for _, it := range mi.Items {
				enqueue(depgraph.Node{Module: mi.Module, Item: it.ID})
			}
			continue
		}
		for _, it := range mi.Items {
			if it.SideEffect || it.IsImport {
				enqueue(depgraph.Node{Module: mi.Module, Item: it.ID})
			}
		}
	}

	// A module, once reachable at all, always runs every side-effecting
	// top-level statement in source order (Python has no notion of
	// partially executing a module) — so as soon as any item of a
	// module is marked live, every side-effecting item of that module
	// is marked live too.
	sideEffectsFlushed := map[resolver.ModuleId]bool{}
	flushSideEffects := func(id resolver.ModuleId) {
		if sideEffectsFlushed[id] {
			return
		}
		sideEffectsFlushed[id] = true
		mi := g.ModuleItemsFor(id)
		if mi == nil {
			return
		}
		for _, it := range mi.Items {
			if it.SideEffect {
				enqueue(depgraph.Node{Module: id, Item: it.ID})
			}
		}
	}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		flushSideEffects(n.Module)
		for _, dep := range g.Neighbors(n) {
			enqueue(dep)
		}
	}

	return res
}

// LiveExportedNames returns, for a module, the exported names (per its
// semantic Model) that are defined by at least one live item — used by
// the bundler to expand `from x import *` over a module's live exports.
func LiveExportedNames(res Result, id resolver.ModuleId, mi *depgraph.ModuleItems, model *semantic.Model) []string {
	liveDefs := map[string]bool{}
	for _, it := range mi.Items {
		if res.Live[depgraph.Node{Module: id, Item: it.ID}] {
			for _, d := range it.Defines {
				liveDefs[d] = true
			}
		}
	}
	var out []string
	for _, n := range model.ExportedNames() {
		if liveDefs[n] {
			out = append(out, n)
		}
	}
	sort.Strings(out) // callers receive the names in this sorted order
	return out
}
