package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sunholo/cribo/internal/resolver"
)

func TestRenameTableFirstClaimKeepsOriginalName(t *testing.T) {
	rt := NewRenameTable()
	name := rt.Assign(resolver.ModuleId(0), "helper")
	assert.Equal(t, "helper", name)
}

func TestRenameTableCollisionGetsSuffixed(t *testing.T) {
	rt := NewRenameTable()
	first := rt.Assign(resolver.ModuleId(0), "helper")
	second := rt.Assign(resolver.ModuleId(1), "helper")
	third := rt.Assign(resolver.ModuleId(2), "helper")

	assert.Equal(t, "helper", first)
	assert.Equal(t, "helper_2", second)
	assert.Equal(t, "helper_3", third)
}

func TestRenameTableAssignIsIdempotent(t *testing.T) {
	rt := NewRenameTable()
	first := rt.Assign(resolver.ModuleId(0), "helper")
	again := rt.Assign(resolver.ModuleId(0), "helper")
	assert.Equal(t, first, again)
}

func TestRenameTableLookup(t *testing.T) {
	rt := NewRenameTable()
	rt.Assign(resolver.ModuleId(0), "helper")

	name, ok := rt.Lookup(resolver.ModuleId(0), "helper")
	assert.True(t, ok)
	assert.Equal(t, "helper", name)

	_, ok = rt.Lookup(resolver.ModuleId(0), "missing")
	assert.False(t, ok)
}
