// Package classify partitions reachable first-party modules into
// inlinable and wrapper modules (spec.md §4.5, C5) and produces the
// SCC-condensed topological emission order codegen walks. Grounded on
// the module-kind dispatch in the teacher's internal/link/linker.go
// (which separates "core" modules requiring a runtime link record from
// simple inlined ones), generalized from AILANG's link-record-vs-inline
// split to cribo's wrapper-vs-inline split.
package classify

import (
	"strconv"

	"github.com/sunholo/cribo/internal/bundleerrors"
	"github.com/sunholo/cribo/internal/depgraph"
	"github.com/sunholo/cribo/internal/resolver"
)

// Strategy tags how one module will be emitted.
type Strategy int

const (
	// Inline: the module's top-level statements are spliced directly
	// into the bundle's top level, renamed to avoid collisions. Valid
	// only for a pure, acyclic module that is never used as a namespace
	// object, per spec.md §4.5.
	Inline Strategy = iota

	// Wrapper: the module's body is emitted as an init function behind
	// a three-state (Fresh/Initializing/Initialized) guard, and every
	// reference to it goes through its module object. Required for any
	// module that participates in an import cycle, has top-level side
	// effects, is the target of a namespace or wildcard import, or
	// wildcard-reexports another module's surface (spec.md §4.5,
	// §4.6.3).
	Wrapper
)

func (s Strategy) String() string {
	if s == Wrapper {
		return "Wrapper"
	}
	return "Inline"
}

// ClassBaseDep records that module From executes a class statement
// whose base class is imported from module To — a dependency that must
// hold at class-statement execution time and therefore cannot be
// satisfied across a partial-initialization boundary.
type ClassBaseDep struct {
	From resolver.ModuleId
	To   resolver.ModuleId
	Name string
}

// Inputs carries everything the classifier consumes beyond the graph
// itself; all of it is computed by earlier phases.
type Inputs struct {
	Live              map[resolver.ModuleId]bool
	NamespaceImported map[resolver.ModuleId]bool
	SideEffecting     map[resolver.ModuleId]bool
	WildcardReexport  map[resolver.ModuleId]bool
	ClassBaseDeps     []ClassBaseDep
	Entry             resolver.ModuleId
	EntryIsPackageInit bool
}

// Plan is the classification result: each live module's strategy, and
// the module-level SCC emission order codegen walks group by group.
type Plan struct {
	Strategy map[resolver.ModuleId]Strategy
	Order    []depgraph.ModuleSCC
}

// Build classifies every live module reachable in g and orders the
// result for emission.
func Build(g *depgraph.Graph, in Inputs) (*Plan, error) {
	order := g.ModuleSCCOrder()
	plan := &Plan{Strategy: make(map[resolver.ModuleId]Strategy), Order: order}

	for _, scc := range order {
		if scc.Cyclic() {
			if err := checkClassInheritanceCycle(scc, in.ClassBaseDeps); err != nil {
				return nil, err
			}
		}
		for _, m := range scc.Modules {
			if !in.Live[m] {
				continue
			}
			plan.Strategy[m] = strategyFor(m, scc, in)
		}
	}
	return plan, nil
}

func strategyFor(m resolver.ModuleId, scc depgraph.ModuleSCC, in Inputs) Strategy {
	if m == in.Entry {
		// The entry is spliced directly (it runs exactly once, last)
		// unless it is a package __init__, which other modules may
		// import and which therefore needs the module-object treatment.
		if in.EntryIsPackageInit {
			return Wrapper
		}
		return Inline
	}
	switch {
	case scc.Cyclic():
		return Wrapper
	case in.NamespaceImported[m]:
		return Wrapper
	case in.SideEffecting[m]:
		return Wrapper
	case in.WildcardReexport[m]:
		return Wrapper
	}
	return Inline
}

// checkClassInheritanceCycle implements the Open Question decision
// recorded in DESIGN.md: a cyclic SCC containing a class statement
// whose base class is imported from another member of the same SCC
// cannot be satisfied by the wrapper init-function machine — the base
// class object must exist before the `class` statement executes, and a
// partially-initialized module cannot promise that. Surfaced as DEP002.
func checkClassInheritanceCycle(scc depgraph.ModuleSCC, deps []ClassBaseDep) error {
	members := map[resolver.ModuleId]bool{}
	for _, m := range scc.Modules {
		members[m] = true
	}
	for _, d := range deps {
		if d.From != d.To && members[d.From] && members[d.To] {
			names := make([]string, 0, len(scc.Modules))
			for _, m := range scc.Modules {
				names = append(names, strconv.Itoa(int(m)))
			}
			return bundleerrors.Wrap(bundleerrors.CycleUnresolvable(names,
				"class statement base "+d.Name+" is defined in another module of the same import cycle"))
		}
	}
	return nil
}
