package depgraph

import "github.com/sunholo/cribo/internal/resolver"

// ImportBinding describes one name an import item binds and, when it
// resolved to a first-party module, which module it came from.
// SourceName is the name as it exists in the source module (the
// pre-`as` spelling of a `from` import); it is empty for whole-module
// bindings, where WholeModule marks that every item of the source
// module is a dependency (a namespace import's attribute accesses
// cannot be statically enumerated).
type ImportBinding struct {
	BoundName    string
	SourceName   string
	FromModule   resolver.ModuleId
	IsFirstParty bool
	Stdlib       bool
	WholeModule  bool
}

// LinkEdges connects every item's Reads names to the item(s) that
// define them, producing the graph's actual edges (AddModule/extraction
// alone only records what each item defines and reads — it does not
// know about other modules). Resolution rule, in order:
//
//  1. Same-module definition: the nearest preceding top-level item
//     (by source order) that defines the name, matching Python's own
//     last-write-wins top-level rebinding. If none precedes it, the
//     nearest item overall (forward reference, valid for a name only
//     read inside a function body that runs after the module finishes
//     initializing).
//  2. Cross-module: if the read name matches a name bound by an import
//     item in the same module, and that import resolved to a
//     first-party module, add an edge to that target module's item(s)
//     defining the re-exported name — the importBindings parameter
//     supplies this mapping since it requires the resolver's classified
//     Resolution, not something the graph can derive from text alone.
func (g *Graph) LinkEdges(importBindings map[Node][]ImportBinding) {
	for _, mi := range g.Modules() {
		definers := map[string][]ItemId{}
		for _, it := range mi.Items {
			for _, d := range it.Defines {
				definers[d] = append(definers[d], it.ID)
			}
		}
		for _, it := range mi.Items {
			from := Node{Module: mi.Module, Item: it.ID}
			for _, name := range it.Reads {
				if ids, ok := definers[name]; ok {
					target := nearestPreceding(ids, it.ID)
					g.AddEdge(from, Node{Module: mi.Module, Item: target})
				}
				// Otherwise a builtin or an unresolved name; no edge.
			}
			for _, ib := range importBindings[from] {
				if !ib.IsFirstParty {
					continue
				}
				target := findModuleItems(g, ib.FromModule)
				if target == nil {
					continue
				}
				if ib.WholeModule {
					for _, ti := range target.Items {
						g.AddEdge(from, Node{Module: ib.FromModule, Item: ti.ID})
					}
					continue
				}
				want := ib.SourceName
				if want == "" {
					want = ib.BoundName
				}
				for _, ti := range target.Items {
					for _, d := range ti.Defines {
						if d == want {
							g.AddEdge(from, Node{Module: ib.FromModule, Item: ti.ID})
						}
					}
				}
			}
		}
	}
}

// nearestPreceding returns the largest id strictly less than before, or
// (if none precedes it) the smallest id overall — a forward reference,
// valid when the read only happens inside a function body invoked after
// module initialization completes.
func nearestPreceding(ids []ItemId, before ItemId) ItemId {
	havePreceding := false
	var preceding, smallest ItemId
	for i, id := range ids {
		if i == 0 || id < smallest {
			smallest = id
		}
		if id < before && (!havePreceding || id > preceding) {
			preceding = id
			havePreceding = true
		}
	}
	if havePreceding {
		return preceding
	}
	return smallest
}

func findModuleItems(g *Graph, id resolver.ModuleId) *ModuleItems {
	for _, mi := range g.Modules() {
		if mi.Module == id {
			return mi
		}
	}
	return nil
}
