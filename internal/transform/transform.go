// Package transform rewrites import sites within a module's AST (spec.md
// §4.6.4 / §4.7, C7): `import x`/`from x import y`/`importlib.
// import_module("x")` become the init calls and assignments the bundle
// needs (wrapper module) or direct references to the renamed bundle
// binding (inlined module), and references to a stdlib module route
// through the stdlib proxy object instead of importing it under its
// original name. Grounded on the recursive scope-tracking rewrite pass
// in the teacher's internal/elaborate package (which rewrites
// surface-syntax references into resolved core-IR references while
// tracking local shadowing), generalized from AILANG's
// elaboration-to-core-IR rewrite to cribo's source-to-source
// import-site rewrite.
package transform

import (
	"github.com/sunholo/cribo/internal/classify"
	"github.com/sunholo/cribo/internal/codegen"
	"github.com/sunholo/cribo/internal/pyast"
	"github.com/sunholo/cribo/internal/resolver"
)

// OwnerKind tags what kind of module body the rewriter is working on;
// it decides whether rewritten import bindings become statements
// (wrapper bodies need a real local so the module object can mirror
// it) or pure use-site substitutions (inlined and entry bodies).
type OwnerKind int

const (
	OwnerEntry OwnerKind = iota
	OwnerInline
	OwnerWrapper
)

// Resolved is everything the rewriter needs about one import target's
// resolution, supplied by the orchestrator (internal/bundler) which has
// already run the resolver/classifier over every module.
type Resolved struct {
	resolver.Resolution
	Strategy classify.Strategy
}

// Rewriter rewrites one module's statement list, given lookups into the
// resolver/classifier results and the synthetic-name tables codegen is
// using for the whole bundle.
type Rewriter struct {
	Names        *codegen.RenameTable
	ModuleDotted map[resolver.ModuleId]string
	Wrappers     *codegen.WrapperSet
	Owner        resolver.ModuleId
	OwnerKind    OwnerKind

	// SelfRenames maps the owner module's own top-level names to their
	// bundle-global spellings, so references are remapped alongside the
	// binding sites (identity for the entry module, whose names are
	// reserved first and keep their original spelling).
	SelfRenames map[string]string

	Resolve func(importString string, level int) (Resolved, bool)

	// Exports returns the live exported names of a module, used to
	// expand `from x import *` into explicit assignments at emit time.
	Exports func(id resolver.ModuleId) []string

	// shadowed tracks local bindings (parameters, local assignments,
	// loop targets) per scope: a name resolved to a local binding is
	// never rewritten, per spec.md §4.7 point 4.
	shadowed []map[string]bool

	// bound maps a name bound by an import statement seen so far in
	// this module to the accessor expression replacing its uses.
	bound map[string]*pyast.Expr
}

// RewriteModule rewrites every import statement and every reference to
// an imported name throughout the module body, returning the new
// statement list (import statements are replaced by zero or more
// synthetic statements; other statements are mutated and returned as-is
// or recursed into).
func (rw *Rewriter) RewriteModule(body []*pyast.Stmt) []*pyast.Stmt {
	rw.shadowed = []map[string]bool{{}}
	// Import bindings are module-level in Python: a function defined
	// before the import still sees the binding at call time. Register
	// the use-site substitutions up front so statement order doesn't
	// matter for them.
	for _, s := range body {
		rw.prebindImports(s)
	}
	return rw.rewriteBlock(body)
}

func (rw *Rewriter) rewriteBlock(body []*pyast.Stmt) []*pyast.Stmt {
	var out []*pyast.Stmt
	for _, s := range body {
		out = append(out, rw.rewriteStmt(s)...)
	}
	return out
}

func (rw *Rewriter) rewriteStmt(s *pyast.Stmt) []*pyast.Stmt {
	switch s.Kind {
	case pyast.KindImport:
		return rw.rewriteImport(s)
	case pyast.KindImportFrom:
		return rw.rewriteImportFrom(s)

	case pyast.KindFunctionDef, pyast.KindAsyncFunctionDef:
		rw.renameTopLevelDef(s)
		// Decorators, defaults, and annotations evaluate in the
		// enclosing scope; only the body sees the parameters.
		for _, d := range s.Decorators {
			rw.rewriteExprInPlace(d)
		}
		rw.rewriteArgDefaults(s.Args)
		rw.rewriteExprInPlace(s.Returns)
		locals := paramNames(s.Args)
		for n := range localAssignedNames(s.Body) {
			locals[n] = true
		}
		rw.pushScope(locals)
		s.Body = rw.rewriteBlock(s.Body)
		rw.popScope()
		return []*pyast.Stmt{s}

	case pyast.KindClassDef:
		rw.renameTopLevelDef(s)
		for _, d := range s.Decorators {
			rw.rewriteExprInPlace(d)
		}
		for _, b := range s.Bases {
			rw.rewriteExprInPlace(b)
		}
		rw.pushScope(localAssignedNames(s.Body))
		s.Body = rw.rewriteBlock(s.Body)
		rw.popScope()
		return []*pyast.Stmt{s}

	default:
		rw.rewriteNestedFields(s)
		return []*pyast.Stmt{s}
	}
}

func (rw *Rewriter) rewriteNestedFields(s *pyast.Stmt) {
	rw.rewriteExprInPlace(s.Expr)
	rw.rewriteExprInPlace(s.Value)
	rw.rewriteExprInPlace(s.Annotation)
	rw.rewriteExprInPlace(s.Test)
	rw.rewriteTarget(s.Target)
	rw.rewriteExprInPlace(s.Iter)
	rw.rewriteExprInPlace(s.RaiseExc)
	rw.rewriteExprInPlace(s.RaiseCause)
	rw.rewriteExprInPlace(s.AssertTest)
	rw.rewriteExprInPlace(s.AssertMsg)
	for _, t := range s.Targets {
		rw.rewriteTarget(t)
	}
	for _, t := range s.DeleteTargets {
		rw.rewriteExprInPlace(t)
	}
	for _, w := range s.WithItems {
		rw.rewriteExprInPlace(w.ContextExpr)
	}
	s.Body = rw.rewriteBlock(s.Body)
	s.Orelse = rw.rewriteBlock(s.Orelse)
	s.FinalBody = rw.rewriteBlock(s.FinalBody)
	for _, h := range s.Handlers {
		rw.rewriteExprInPlace(h.Type)
		h.Body = rw.rewriteBlock(h.Body)
	}
}

// rewriteTarget handles an assignment target: a bare name is a binding
// site (apply the module's own rename, never an import accessor — a
// top-level rebinding of an imported name stays a plain name), while
// attribute/subscript/tuple targets contain genuine reads.
func (rw *Rewriter) rewriteTarget(e *pyast.Expr) {
	if e == nil {
		return
	}
	switch e.Kind {
	case pyast.EName:
		if !rw.isShadowed(e.Id) {
			if syn, ok := rw.SelfRenames[e.Id]; ok {
				e.Id = syn
			}
		}
	case pyast.ETuple, pyast.EList:
		for _, el := range e.Elts {
			rw.rewriteTarget(el)
		}
	case pyast.EStarred:
		rw.rewriteTarget(e.Value)
	default:
		rw.rewriteExprInPlace(e)
	}
}

func (rw *Rewriter) rewriteArgDefaults(args *pyast.Arguments) {
	if args == nil {
		return
	}
	for _, d := range args.Defaults {
		rw.rewriteExprInPlace(d)
	}
	for _, d := range args.KwDefaults {
		rw.rewriteExprInPlace(d)
	}
}

// renameTopLevelDef applies the owner module's rename map to a def or
// class statement's own name when the statement sits at module level
// (nested defs keep their names — they are locals of their enclosing
// scope).
func (rw *Rewriter) renameTopLevelDef(s *pyast.Stmt) {
	if len(rw.shadowed) != 1 {
		return
	}
	if syn, ok := rw.SelfRenames[s.Name]; ok {
		s.Name = syn
	}
}

func (rw *Rewriter) pushScope(locals map[string]bool) {
	if locals == nil {
		locals = map[string]bool{}
	}
	rw.shadowed = append(rw.shadowed, locals)
}

func (rw *Rewriter) popScope() {
	rw.shadowed = rw.shadowed[:len(rw.shadowed)-1]
}

func (rw *Rewriter) isShadowed(name string) bool {
	for i := len(rw.shadowed) - 1; i >= 1; i-- { // module scope (index 0) never "shadows" — it's what we're rewriting
		if rw.shadowed[i][name] {
			return true
		}
	}
	return false
}

func paramNames(args *pyast.Arguments) map[string]bool {
	set := map[string]bool{}
	if args == nil {
		return set
	}
	for _, n := range args.Args {
		set[n] = true
	}
	for _, n := range args.KwOnlyArgs {
		set[n] = true
	}
	if args.VarArg != "" {
		set[args.VarArg] = true
	}
	if args.KwArg != "" {
		set[args.KwArg] = true
	}
	return set
}

// localAssignedNames collects every name a block binds locally (by
// assignment, loop target, with-as, except-as, def/class statement, or
// import), without descending into nested function/class bodies — those
// open their own scopes. Python's scoping makes any such name local for
// the whole enclosing function, so the set is computed up front rather
// than as statements are encountered.
func localAssignedNames(body []*pyast.Stmt) map[string]bool {
	set := map[string]bool{}
	var walk func(body []*pyast.Stmt)
	add := func(e *pyast.Expr) {
		for _, n := range flattenTargetNames(e) {
			set[n] = true
		}
	}
	walk = func(body []*pyast.Stmt) {
		for _, s := range body {
			if s == nil {
				continue
			}
			switch s.Kind {
			case pyast.KindFunctionDef, pyast.KindAsyncFunctionDef, pyast.KindClassDef:
				set[s.Name] = true
				continue // own scope
			case pyast.KindImport, pyast.KindImportFrom:
				for _, a := range s.Names {
					if a.Name != "*" {
						set[aliasLocalName(a)] = true
					}
				}
			case pyast.KindAssign, pyast.KindAugAssign, pyast.KindAnnAssign:
				for _, t := range s.Targets {
					add(t)
				}
			case pyast.KindFor, pyast.KindAsyncFor:
				add(s.Target)
			case pyast.KindWith, pyast.KindAsyncWith:
				for _, w := range s.WithItems {
					add(w.OptionalVars)
				}
			case pyast.KindGlobal, pyast.KindNonlocal:
				// A global/nonlocal declaration means the name is NOT
				// local; remove any earlier recording.
				for _, n := range s.GlobalNames {
					delete(set, n)
				}
			}
			walk(s.Body)
			walk(s.Orelse)
			walk(s.FinalBody)
			for _, h := range s.Handlers {
				if h.Name != "" {
					set[h.Name] = true
				}
				walk(h.Body)
			}
		}
	}
	walk(body)
	return set
}

func flattenTargetNames(e *pyast.Expr) []string {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case pyast.EName:
		return []string{e.Id}
	case pyast.ETuple, pyast.EList:
		var out []string
		for _, el := range e.Elts {
			out = append(out, flattenTargetNames(el)...)
		}
		return out
	case pyast.EStarred:
		return flattenTargetNames(e.Value)
	}
	return nil
}

func aliasLocalName(a *pyast.Alias) string {
	if a.AsName != "" {
		return a.AsName
	}
	name := a.Name
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i]
		}
	}
	return name
}
