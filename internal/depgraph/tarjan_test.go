package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunholo/cribo/internal/resolver"
)

func TestTopologicalOrderAcyclic(t *testing.T) {
	g := New()
	g.AddModule(&ModuleItems{Module: 0, Items: []Item{{ID: 0, Defines: []string{"main"}, Reads: []string{"helper"}}}})
	g.AddModule(&ModuleItems{Module: 1, Items: []Item{{ID: 0, Defines: []string{"helper"}}}})
	g.AddEdge(Node{Module: 0, Item: 0}, Node{Module: 1, Item: 0})

	order := g.TopologicalOrder()
	require.Len(t, order, 2)
	// helper (module 1) has no dependencies, must come before main (module 0).
	assert.Equal(t, Node{Module: 1, Item: 0}, order[0].Nodes[0])
	assert.Equal(t, Node{Module: 0, Item: 0}, order[1].Nodes[0])
}

func TestStronglyConnectedComponentsDetectsCycle(t *testing.T) {
	g := New()
	g.AddModule(&ModuleItems{Module: 0, Items: []Item{{ID: 0, Defines: []string{"a"}, Reads: []string{"b"}}}})
	g.AddModule(&ModuleItems{Module: 1, Items: []Item{{ID: 0, Defines: []string{"b"}, Reads: []string{"a"}}}})
	g.AddEdge(Node{Module: 0, Item: 0}, Node{Module: 1, Item: 0})
	g.AddEdge(Node{Module: 1, Item: 0}, Node{Module: 0, Item: 0})

	sccs := g.StronglyConnectedComponents()
	require.Len(t, sccs, 1)
	assert.True(t, sccs[0].Cyclic(g))
	assert.Len(t, sccs[0].Nodes, 2)
}

func TestLinkEdgesResolvesSameModuleDefiner(t *testing.T) {
	g := New()
	g.AddModule(&ModuleItems{Module: 0, Items: []Item{
		{ID: 0, Defines: []string{"x"}},
		{ID: 1, Reads: []string{"x"}},
	}})

	g.LinkEdges(map[Node][]ImportBinding{})

	deps := g.Neighbors(Node{Module: 0, Item: 1})
	require.Len(t, deps, 1)
	assert.Equal(t, Node{Module: 0, Item: 0}, deps[0])
}

func TestLinkEdgesResolvesCrossModuleImport(t *testing.T) {
	g := New()
	g.AddModule(&ModuleItems{Module: 0, Items: []Item{
		{ID: 0, IsImport: true, Defines: []string{"helper"}},
		{ID: 1, Reads: []string{"helper"}},
	}})
	g.AddModule(&ModuleItems{Module: 1, Items: []Item{{ID: 0, Defines: []string{"helper"}}}})

	bindings := map[Node][]ImportBinding{
		{Module: 0, Item: 0}: {{BoundName: "helper", FromModule: resolver.ModuleId(1), IsFirstParty: true}},
	}
	g.LinkEdges(bindings)

	deps := g.Neighbors(Node{Module: 0, Item: 0})
	require.Len(t, deps, 1)
	assert.Equal(t, Node{Module: 1, Item: 0}, deps[0])
}

func TestModuleSCCOrderDependenciesFirst(t *testing.T) {
	g := New()
	g.AddModule(&ModuleItems{Module: 0, Items: []Item{{ID: 0, Reads: []string{"helper"}}}})
	g.AddModule(&ModuleItems{Module: 1, Items: []Item{{ID: 0, Defines: []string{"helper"}, Reads: []string{"leaf"}}}})
	g.AddModule(&ModuleItems{Module: 2, Items: []Item{{ID: 0, Defines: []string{"leaf"}}}})
	g.AddEdge(Node{Module: 0, Item: 0}, Node{Module: 1, Item: 0})
	g.AddEdge(Node{Module: 1, Item: 0}, Node{Module: 2, Item: 0})

	order := g.ModuleSCCOrder()
	require.Len(t, order, 3)
	assert.Equal(t, []resolver.ModuleId{2}, order[0].Modules)
	assert.Equal(t, []resolver.ModuleId{1}, order[1].Modules)
	assert.Equal(t, []resolver.ModuleId{0}, order[2].Modules)
	assert.False(t, order[0].Cyclic())
}

func TestModuleSCCOrderCondensesCycle(t *testing.T) {
	g := New()
	g.AddModule(&ModuleItems{Module: 0, Items: []Item{{ID: 0, Reads: []string{"a"}}}})
	g.AddModule(&ModuleItems{Module: 1, Items: []Item{{ID: 0, Defines: []string{"a"}}}})
	g.AddModule(&ModuleItems{Module: 2, Items: []Item{{ID: 0, Defines: []string{"b"}}}})
	// 1 and 2 import from each other; 0 depends on the pair.
	g.AddEdge(Node{Module: 0, Item: 0}, Node{Module: 1, Item: 0})
	g.AddEdge(Node{Module: 1, Item: 0}, Node{Module: 2, Item: 0})
	g.AddEdge(Node{Module: 2, Item: 0}, Node{Module: 1, Item: 0})

	order := g.ModuleSCCOrder()
	require.Len(t, order, 2)
	assert.Equal(t, []resolver.ModuleId{1, 2}, order[0].Modules)
	assert.True(t, order[0].Cyclic())
	assert.Equal(t, []resolver.ModuleId{0}, order[1].Modules)
}
