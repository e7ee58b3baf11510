package treeshake

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sunholo/cribo/internal/depgraph"
	"github.com/sunholo/cribo/internal/resolver"
	"github.com/sunholo/cribo/internal/semantic"
)

func TestRunPrunesUnreachableItem(t *testing.T) {
	g := depgraph.New()
	// entry: uses `used`, never references `unused`.
	g.AddModule(&depgraph.ModuleItems{Module: 0, Items: []depgraph.Item{
		{ID: 0, IsImport: true, Defines: []string{"used"}, SideEffect: false},
	}})
	g.AddModule(&depgraph.ModuleItems{Module: 1, Items: []depgraph.Item{
		{ID: 0, Defines: []string{"used"}},
		{ID: 1, Defines: []string{"unused"}},
	}})
	g.AddEdge(depgraph.Node{Module: 0, Item: 0}, depgraph.Node{Module: 1, Item: 0})

	res := Run(g, map[resolver.ModuleId]*semantic.Model{}, 0, Options{})

	assert.True(t, res.Live[depgraph.Node{Module: 0, Item: 0}])
	assert.True(t, res.Live[depgraph.Node{Module: 1, Item: 0}])
	assert.False(t, res.Live[depgraph.Node{Module: 1, Item: 1}])
}

func TestRunDisabledMarksEverythingLive(t *testing.T) {
	g := depgraph.New()
	g.AddModule(&depgraph.ModuleItems{Module: 0, Items: []depgraph.Item{{ID: 0, Defines: []string{"a"}}}})
	g.AddModule(&depgraph.ModuleItems{Module: 1, Items: []depgraph.Item{{ID: 0, Defines: []string{"unused"}}}})

	res := Run(g, map[resolver.ModuleId]*semantic.Model{}, 0, Options{Disabled: true})

	assert.True(t, res.Live[depgraph.Node{Module: 1, Item: 0}])
	assert.True(t, res.LiveModules[1])
}

func TestRunPreservesSideEffectsOnceModuleReachable(t *testing.T) {
	g := depgraph.New()
	g.AddModule(&depgraph.ModuleItems{Module: 0, Items: []depgraph.Item{
		{ID: 0, IsImport: true, Defines: []string{"mod"}},
	}})
	g.AddModule(&depgraph.ModuleItems{Module: 1, Items: []depgraph.Item{
		{ID: 0, SideEffect: true}, // e.g. a bare `print("loaded")` at module scope
	}})
	g.AddEdge(depgraph.Node{Module: 0, Item: 0}, depgraph.Node{Module: 1, Item: 0})

	res := Run(g, map[resolver.ModuleId]*semantic.Model{}, 0, Options{})

	assert.True(t, res.Live[depgraph.Node{Module: 1, Item: 0}])
}
