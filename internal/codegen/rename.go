// Package codegen assembles the final bundle module from the
// classification plan (spec.md §4.6, C6): synthetic name assignment,
// the stdlib proxy object, wrapper-module init functions with the
// three-state guard, import-site rewriting (delegated to
// internal/transform), and namespace reconstruction. Grounded on the
// teacher's internal/ast/print.go printer shape (a single recursive
// emitter walking a tagged-variant AST) and internal/link/linker.go's
// per-module emission loop, generalized from emitting a linked AILANG
// program to emitting one synthetic Python module.
package codegen

import (
	"fmt"

	"github.com/sunholo/cribo/internal/resolver"
)

// RenameTable maps a (ModuleId, originalName) pair to the synthetic
// top-level name it was assigned in the bundle, resolving collisions by
// appending an ascending numeric suffix the first time a name is seen a
// second time — "_2", "_3", ... — matching spec.md §4.6.1's rule in the
// specific order modules are visited (entry-module names keep their
// original spelling; among all other collisions, the module visited
// earlier in classify.Plan.Order wins the unsuffixed name).
type RenameTable struct {
	assigned map[resolver.ModuleId]map[string]string
	taken    map[string]int // original name -> next available suffix
}

// NewRenameTable creates an empty table.
func NewRenameTable() *RenameTable {
	return &RenameTable{
		assigned: make(map[resolver.ModuleId]map[string]string),
		taken:    make(map[string]int),
	}
}

// Assign reserves a bundle-global name for (module, name), returning the
// name to actually emit. Calling Assign twice for the same pair returns
// the same result (idempotent).
func (t *RenameTable) Assign(module resolver.ModuleId, name string) string {
	if m, ok := t.assigned[module]; ok {
		if existing, ok := m[name]; ok {
			return existing
		}
	} else {
		t.assigned[module] = make(map[string]string)
	}

	synthetic := name
	if n, used := t.taken[name]; used {
		synthetic = fmt.Sprintf("%s_%d", name, n+1)
		t.taken[name] = n + 1
	} else {
		t.taken[name] = 1
	}
	t.assigned[module][name] = synthetic
	return synthetic
}

// Lookup returns the synthetic name previously assigned to (module,
// name), if any.
func (t *RenameTable) Lookup(module resolver.ModuleId, name string) (string, bool) {
	m, ok := t.assigned[module]
	if !ok {
		return "", false
	}
	n, ok := m[name]
	return n, ok
}
