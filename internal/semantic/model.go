// Package semantic builds a per-module semantic model (spec.md §4.3,
// C3): the module's top-level scope, a statically-resolved `__all__`
// when present, and which names are read at module-initialization time
// (top level, decorators, default arguments, base-class expressions) as
// opposed to only inside a function body (deferred until call time).
// Grounded on the binding/reference bookkeeping shape of the teacher's
// internal/core package (Go-side variable resolution for the AILANG
// evaluator) and internal/types' environment model, generalized from a
// typed-lambda-calculus scope to a Python module's flat top-level
// namespace plus nested function/class scopes.
package semantic

import "github.com/sunholo/cribo/internal/pyast"

// Binding records one name bound at module top level, and whether its
// defining item runs unconditionally at import time.
type Binding struct {
	Name          string
	DefiningItem  int // index into the module's top-level statement list
	SideEffecting bool
}

// Model is the semantic summary of one module, independent of any
// other module (cross-module resolution happens in C1/C2).
type Model struct {
	ModulePath string

	// TopLevelBindings maps every name bound at module scope to its
	// Binding, last-write-wins (matching Python's own rebinding
	// semantics: a later top-level assignment shadows an earlier one
	// for any reader after it).
	TopLevelBindings map[string]*Binding

	// DunderAll holds the statically-resolved contents of a module-level
	// `__all__ = [...]` or `__all__ = (...)` assignment, when every
	// element is a string literal. Nil if `__all__` is absent or its
	// value could not be statically resolved (treated conservatively:
	// the module falls back to the default export rule in spec.md
	// §4.6.5 — all names not starting with `_`).
	DunderAll []string

	// HasDynamicDunderAll is set when `__all__` is assigned something
	// computed (e.g. `__all__ = foo() + bar`) rather than a literal
	// sequence of strings, so callers know DunderAll==nil is ambiguous
	// rather than "no __all__ at all".
	HasDynamicDunderAll bool

	// ModuleInitReads is the set of names read somewhere that executes
	// at module-initialization time: top-level statements, decorator
	// expressions, default-argument expressions, and class base lists.
	// A name read only inside a function body is excluded, since that
	// read happens at call time, after every module has finished
	// initializing (spec.md §4.3).
	ModuleInitReads map[string]bool

	// SideEffectingImport is set for a module whose mere presence in the
	// dependency graph must be preserved even if none of its bindings
	// are read (import for effect only, e.g. `import a.b.c.monkeypatch`
	// with no following use).
	SideEffectingImport bool
}

// Analyze builds a Model for one parsed module.
func Analyze(modulePath string, m *pyast.Module) *Model {
	model := &Model{
		ModulePath:       modulePath,
		TopLevelBindings: make(map[string]*Binding),
		ModuleInitReads:  make(map[string]bool),
	}

	for i, stmt := range m.Body {
		recordBindings(model, i, stmt)
		if names, ok := dunderAllLiteral(stmt); ok {
			model.DunderAll = names
			model.HasDynamicDunderAll = false
		} else if isDunderAllAssign(stmt) {
			model.HasDynamicDunderAll = true
		}
	}

	for _, stmt := range m.Body {
		collectInitReads(model, stmt)
	}

	return model
}

func recordBindings(model *Model, idx int, s *pyast.Stmt) {
	names, sideEffect := bindingNamesAndEffect(s)
	for _, n := range names {
		model.TopLevelBindings[n] = &Binding{Name: n, DefiningItem: idx, SideEffecting: sideEffect}
	}
}

func bindingNamesAndEffect(s *pyast.Stmt) (names []string, sideEffect bool) {
	switch s.Kind {
	case pyast.KindFunctionDef, pyast.KindAsyncFunctionDef, pyast.KindClassDef:
		return []string{s.Name}, s.Kind == pyast.KindClassDef
	case pyast.KindImport:
		for _, a := range s.Names {
			names = append(names, importBindingName(a))
		}
		return names, false
	case pyast.KindImportFrom:
		for _, a := range s.Names {
			if a.Name != "*" {
				names = append(names, importBindingName(a))
			}
		}
		return names, false
	case pyast.KindAssign:
		for _, t := range s.Targets {
			names = append(names, flattenTargets(t)...)
		}
		return names, true
	case pyast.KindAugAssign, pyast.KindAnnAssign:
		for _, t := range s.Targets {
			names = append(names, flattenTargets(t)...)
		}
		return names, true
	default:
		return nil, true
	}
}

func importBindingName(a *pyast.Alias) string {
	if a.AsName != "" {
		return a.AsName
	}
	name := a.Name
	for i, c := range name {
		if c == '.' {
			return name[:i]
		}
	}
	return name
}

func flattenTargets(e *pyast.Expr) []string {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case pyast.EName:
		return []string{e.Id}
	case pyast.ETuple, pyast.EList:
		var out []string
		for _, el := range e.Elts {
			out = append(out, flattenTargets(el)...)
		}
		return out
	case pyast.EStarred:
		return flattenTargets(e.Value)
	default:
		return nil
	}
}

func isDunderAllAssign(s *pyast.Stmt) bool {
	if s.Kind != pyast.KindAssign || len(s.Targets) != 1 {
		return false
	}
	t := s.Targets[0]
	return t.Kind == pyast.EName && t.Id == "__all__"
}

// dunderAllLiteral statically resolves `__all__ = [...]`/`(...)` when
// every element is a plain string constant; returns ok=false otherwise.
func dunderAllLiteral(s *pyast.Stmt) ([]string, bool) {
	if !isDunderAllAssign(s) {
		return nil, false
	}
	v := s.Value
	if v == nil || (v.Kind != pyast.EList && v.Kind != pyast.ETuple) {
		return nil, false
	}
	out := make([]string, 0, len(v.Elts))
	for _, el := range v.Elts {
		if el.Kind != pyast.EConstant || el.ConstKind != "str" {
			return nil, false
		}
		out = append(out, unquote(el.ConstRepr))
	}
	return out, true
}

// unquote strips the Python string-literal quoting produced by
// pyast.pyStringRepr's counterpart at parse time (ConstRepr always
// carries a single layer of quotes here since __all__ entries are
// plain literals, never f-strings or byte-strings).
func unquote(repr string) string {
	if len(repr) >= 2 && (repr[0] == '\'' || repr[0] == '"') {
		return repr[1 : len(repr)-1]
	}
	return repr
}
