package transform

import (
	"strings"

	"github.com/sunholo/cribo/internal/classify"
	"github.com/sunholo/cribo/internal/codegen"
	"github.com/sunholo/cribo/internal/pyast"
	"github.com/sunholo/cribo/internal/resolver"
)

// bind records that, for the rest of this module, a reference to name
// should be replaced with accessor. Python import bindings are always
// module-level, so this is tracked per-Rewriter, not per-scope; a later
// local reassignment of the same name is caught by isShadowed instead.
func (rw *Rewriter) bind(name string, accessor *pyast.Expr) {
	if rw.bound == nil {
		rw.bound = map[string]*pyast.Expr{}
	}
	rw.bound[name] = accessor
}

// initChain emits `<mv>.__init__(<mv>)` for every wrapper ancestor of
// target (outermost first) and target itself, skipping the rewriter's
// own module — the caller of an import initializes parents before
// children, init functions never initialize their own parent (spec.md
// §4.6.3/§4.6.4).
func (rw *Rewriter) initChain(target resolver.ModuleId) []*pyast.Stmt {
	dotted := rw.ModuleDotted[target]
	if dotted == "" {
		return nil
	}
	var out []*pyast.Stmt
	segs := strings.Split(dotted, ".")
	for i := range segs {
		prefix := strings.Join(segs[:i+1], ".")
		info, ok := rw.Wrappers.ByDotted(prefix)
		if !ok || info.Module == rw.Owner {
			continue
		}
		out = append(out, codegen.BuildInitCall(info))
	}
	return out
}

// prebindImports registers the pure use-site substitutions (stdlib
// proxy routes and inlined-symbol renames) an import statement will
// introduce, without emitting anything. Wrapper bindings are real
// assignments emitted in statement order and need no pre-binding.
func (rw *Rewriter) prebindImports(s *pyast.Stmt) {
	switch s.Kind {
	case pyast.KindImport:
		for _, alias := range s.Names {
			res, ok := rw.Resolve(alias.Name, 0)
			if !ok || res.Kind != resolver.ResStdLib {
				continue
			}
			if alias.AsName != "" {
				rw.bind(alias.AsName, proxyChain(alias.Name))
			} else {
				top := alias.Name
				if i := strings.IndexByte(top, '.'); i >= 0 {
					top = top[:i]
				}
				rw.bind(top, proxyChain(top))
			}
		}
	case pyast.KindImportFrom:
		if s.Level == 0 && s.ModulePath == "__future__" {
			return
		}
		res, ok := rw.Resolve(s.ModulePath, s.Level)
		if !ok {
			return
		}
		for _, alias := range s.Names {
			if alias.Name == "*" {
				continue
			}
			bound := alias.AsName
			if bound == "" {
				bound = alias.Name
			}
			switch res.Kind {
			case resolver.ResStdLib:
				rw.bind(bound, pyast.AttrExpr(proxyChain(res.StdlibName), alias.Name))
			case resolver.ResFirstParty:
				if childRes, ok := rw.Resolve(joinChildPath(s.ModulePath, alias.Name), s.Level); ok &&
					childRes.Kind == resolver.ResFirstParty {
					continue // module binding; emitted as a real assignment
				}
				if res.Strategy != classify.Wrapper {
					if synth, ok := rw.Names.Lookup(res.ModuleID, alias.Name); ok {
						rw.bind(bound, pyast.NameExpr(synth))
					}
				}
			}
		}
	}
}

// rewriteImport handles `import a.b.c`, `import a.b.c as x`, and
// multi-name `import a, b`.
func (rw *Rewriter) rewriteImport(s *pyast.Stmt) []*pyast.Stmt {
	var out []*pyast.Stmt
	for _, alias := range s.Names {
		dotted := alias.Name
		top := dotted
		if i := strings.IndexByte(top, '.'); i >= 0 {
			top = top[:i]
		}
		bound := alias.AsName
		if bound == "" {
			bound = top
		}

		res, ok := rw.Resolve(dotted, 0)
		if !ok {
			out = append(out, pyast.ImportStmt(alias)) // unresolved; preserved verbatim
			continue
		}
		switch res.Kind {
		case resolver.ResStdLib:
			// `import os.path` binds `os`; `import os.path as p` binds
			// the full dotted target. Either way the statement goes and
			// uses route through the proxy.
			if alias.AsName != "" {
				rw.bind(bound, proxyChain(dotted))
			} else {
				rw.bind(bound, proxyChain(top))
			}
		case resolver.ResFirstParty:
			out = append(out, rw.rewriteModuleBinding(res, bound)...)
		default:
			out = append(out, pyast.ImportStmt(alias)) // third-party import preserved verbatim
		}
	}
	return out
}

// rewriteModuleBinding emits the init calls and binding assignment for
// a whole-module reference (`import x`, `import x as y`, or `from pkg
// import sub` where sub is a module).
func (rw *Rewriter) rewriteModuleBinding(res Resolved, bound string) []*pyast.Stmt {
	info, ok := rw.Wrappers.ByID(res.ModuleID)
	if !ok {
		// Namespace-imported modules are always classified Wrapper; a
		// miss here means the module was pruned, so there is nothing to
		// bind.
		return nil
	}
	out := rw.initChain(res.ModuleID)
	switch {
	case rw.OwnerKind == OwnerWrapper:
		// Wrapper bodies need a real local so the init function can
		// mirror the binding onto the module object.
		out = append(out, pyast.AssignStmt(pyast.NameExpr(bound), pyast.NameExpr(info.ModuleVar)))
	case bound != info.ModuleVar:
		out = append(out, pyast.AssignStmt(pyast.NameExpr(rw.rebindOwn(bound)), pyast.NameExpr(info.ModuleVar)))
	}
	return out
}

// rewriteImportFrom handles `from x import a, b as c`, the relative
// `from . import a` form, submodule imports (`from pkg import sub`
// where sub is a module), and the `*` wildcard expansion.
func (rw *Rewriter) rewriteImportFrom(s *pyast.Stmt) []*pyast.Stmt {
	if s.Level == 0 && s.ModulePath == "__future__" {
		return nil // hoisted separately to the top of the bundle
	}
	res, ok := rw.Resolve(s.ModulePath, s.Level)
	if !ok {
		return []*pyast.Stmt{s}
	}

	var out []*pyast.Stmt
	for _, alias := range s.Names {
		if alias.Name == "*" {
			out = append(out, rw.expandStar(res)...)
			continue
		}
		bound := alias.AsName
		if bound == "" {
			bound = alias.Name
		}

		switch res.Kind {
		case resolver.ResStdLib:
			rw.bind(bound, pyast.AttrExpr(proxyChain(res.StdlibName), alias.Name))

		case resolver.ResFirstParty:
			// `from pkg import sub` where sub is itself a module binds
			// the module object, not a symbol of pkg.
			if childRes, ok := rw.Resolve(joinChildPath(s.ModulePath, alias.Name), s.Level); ok &&
				childRes.Kind == resolver.ResFirstParty {
				out = append(out, rw.rewriteModuleBinding(childRes, bound)...)
				continue
			}
			out = append(out, rw.rewriteSymbolBinding(res, alias.Name, bound)...)

		default:
			// Third-party / unresolved: the whole statement survives.
			return []*pyast.Stmt{s}
		}
	}
	return out
}

// rewriteSymbolBinding handles `from pkg import sym` for a first-party
// source: a wrapper source yields init calls plus `sym = pkg.sym`; an
// inlined source remaps every use of the binding to the symbol's
// synthetic bundle-global name.
func (rw *Rewriter) rewriteSymbolBinding(res Resolved, sourceName, bound string) []*pyast.Stmt {
	if res.Strategy == classify.Wrapper {
		info, ok := rw.Wrappers.ByID(res.ModuleID)
		if !ok {
			return nil
		}
		out := rw.initChain(res.ModuleID)
		target := bound
		if rw.OwnerKind != OwnerWrapper {
			target = rw.rebindOwn(bound)
		}
		out = append(out, pyast.AssignStmt(
			pyast.NameExpr(target),
			pyast.AttrExpr(pyast.NameExpr(info.ModuleVar), sourceName),
		))
		return out
	}

	synth, ok := rw.Names.Lookup(res.ModuleID, sourceName)
	if !ok {
		// The symbol was pruned by tree-shaking (and so is every use).
		return nil
	}
	if rw.OwnerKind == OwnerWrapper {
		return []*pyast.Stmt{pyast.AssignStmt(pyast.NameExpr(bound), pyast.NameExpr(synth))}
	}
	rw.bind(bound, pyast.NameExpr(synth))
	return nil
}

// expandStar materializes `from pkg import *` as explicit assignments
// over the source's public export list (its __all__ when known, else
// every live non-underscore binding), per spec.md §4.6.4.
func (rw *Rewriter) expandStar(res Resolved) []*pyast.Stmt {
	if res.Kind != resolver.ResFirstParty || rw.Exports == nil {
		return nil
	}
	exports := rw.Exports(res.ModuleID)
	var out []*pyast.Stmt
	if res.Strategy == classify.Wrapper {
		info, ok := rw.Wrappers.ByID(res.ModuleID)
		if !ok {
			return nil
		}
		out = append(out, rw.initChain(res.ModuleID)...)
		for _, name := range exports {
			out = append(out, pyast.AssignStmt(
				pyast.NameExpr(rw.starTarget(name)),
				pyast.AttrExpr(pyast.NameExpr(info.ModuleVar), name),
			))
		}
		return out
	}
	for _, name := range exports {
		synth, ok := rw.Names.Lookup(res.ModuleID, name)
		if !ok {
			continue
		}
		out = append(out, pyast.AssignStmt(pyast.NameExpr(rw.starTarget(name)), pyast.NameExpr(synth)))
	}
	return out
}

// starTarget returns the emitted spelling of a star-import binding in
// the owner module, reserving a bundle-global name for inlined owners
// so later references remap consistently.
func (rw *Rewriter) starTarget(name string) string {
	if rw.OwnerKind != OwnerInline {
		return name
	}
	return rw.rebindOwn(name)
}

// rebindOwn reserves (or looks up) the owner module's bundle-global
// spelling for a top-level binding introduced by a rewritten import,
// and records it in SelfRenames so subsequent references follow.
func (rw *Rewriter) rebindOwn(name string) string {
	if rw.OwnerKind != OwnerInline {
		return name
	}
	if syn, ok := rw.SelfRenames[name]; ok {
		return syn
	}
	syn := rw.Names.Assign(rw.Owner, name)
	if rw.SelfRenames == nil {
		rw.SelfRenames = map[string]string{}
	}
	rw.SelfRenames[name] = syn
	return syn
}

// proxyChain builds `_cribo.a.b` from a dotted stdlib name.
func proxyChain(dotted string) *pyast.Expr {
	return pyast.AttrChain(codegen.StdlibProxyName, strings.Split(dotted, ".")...)
}

func joinChildPath(modulePath, name string) string {
	if modulePath == "" {
		return name
	}
	return modulePath + "." + name
}

// rewriteExprInPlace walks e, replacing any EName reference to a bound
// import name (and not locally shadowed) with its accessor expression,
// remapping the owner module's own renamed top-level names, and
// recognizing `importlib.import_module("literal")` calls so they
// resolve the same way a static import would (spec.md §4.6.4).
func (rw *Rewriter) rewriteExprInPlace(e *pyast.Expr) {
	if e == nil {
		return
	}
	if e.Kind == pyast.EName && !rw.isShadowed(e.Id) {
		if accessor, ok := rw.bound[e.Id]; ok {
			*e = *accessor
			return
		}
		if syn, ok := rw.SelfRenames[e.Id]; ok && syn != e.Id {
			e.Id = syn
			return
		}
	}
	if lit, ok := LiteralImportlibCall(e); ok {
		if res, ok := rw.Resolve(lit, 0); ok && res.Kind == resolver.ResFirstParty {
			if info, found := rw.Wrappers.ByID(res.ModuleID); found {
				// The init function returns the module object, so the
				// call expression itself becomes the module reference.
				*e = *pyast.CallExpr(
					pyast.AttrExpr(pyast.NameExpr(info.ModuleVar), "__init__"),
					pyast.NameExpr(info.ModuleVar),
				)
				return
			}
		}
	}

	if e.Kind == pyast.ELambda {
		rw.rewriteArgDefaults(e.LambdaArgs)
		rw.pushScope(paramNames(e.LambdaArgs))
		rw.rewriteExprInPlace(e.LambdaBody)
		rw.popScope()
		return
	}
	if len(e.Comprehensions) > 0 {
		// The first iterable evaluates in the enclosing scope; the
		// targets are local to the comprehension.
		locals := map[string]bool{}
		for _, c := range e.Comprehensions {
			rw.rewriteExprInPlace(c.Iter)
			for _, n := range flattenTargetNames(c.Target) {
				locals[n] = true
			}
		}
		rw.pushScope(locals)
		rw.rewriteExprInPlace(e.Value)
		rw.rewriteExprInPlace(e.CompKey)
		rw.rewriteExprInPlace(e.CompValue)
		for _, c := range e.Comprehensions {
			for _, i := range c.Ifs {
				rw.rewriteExprInPlace(i)
			}
		}
		rw.popScope()
		return
	}

	rw.rewriteExprInPlace(e.Value)
	rw.rewriteExprInPlace(e.Func)
	for _, a := range e.Args {
		rw.rewriteExprInPlace(a)
	}
	for _, k := range e.Keywords {
		rw.rewriteExprInPlace(k.Value)
	}
	for _, el := range e.Elts {
		rw.rewriteExprInPlace(el)
	}
	for _, k := range e.Keys {
		rw.rewriteExprInPlace(k)
	}
	for _, v := range e.Values {
		rw.rewriteExprInPlace(v)
	}
	rw.rewriteExprInPlace(e.Left)
	rw.rewriteExprInPlace(e.Right)
	for _, o := range e.Operands {
		rw.rewriteExprInPlace(o)
	}
	rw.rewriteExprInPlace(e.Test)
	rw.rewriteExprInPlace(e.Body)
	rw.rewriteExprInPlace(e.Orelse)
	rw.rewriteExprInPlace(e.Slice)
	rw.rewriteExprInPlace(e.Target)
}

// LiteralImportlibCall recognizes `importlib.import_module("x")` with a
// string-literal sole argument, per spec.md §4.3/§4.6.4; a non-literal
// argument is left alone and surfaced as a DynamicImportUnknown
// diagnostic by the orchestrator.
func LiteralImportlibCall(e *pyast.Expr) (string, bool) {
	if e == nil || e.Kind != pyast.ECall || e.Func == nil {
		return "", false
	}
	if e.Func.Kind != pyast.EAttribute || e.Func.Attr != "import_module" {
		return "", false
	}
	if e.Func.Value == nil || e.Func.Value.Kind != pyast.EName || e.Func.Value.Id != "importlib" {
		return "", false
	}
	if len(e.Args) != 1 || e.Args[0].Kind != pyast.EConstant || e.Args[0].ConstKind != "str" {
		return "", false
	}
	return unquote(e.Args[0].ConstRepr), true
}

// IsImportlibCall reports whether e is any `importlib.import_module`
// call, literal-argument or not — used by the orchestrator to flag the
// non-literal form as DynamicImportUnknown.
func IsImportlibCall(e *pyast.Expr) bool {
	if e == nil || e.Kind != pyast.ECall || e.Func == nil {
		return false
	}
	return e.Func.Kind == pyast.EAttribute && e.Func.Attr == "import_module" &&
		e.Func.Value != nil && e.Func.Value.Kind == pyast.EName && e.Func.Value.Id == "importlib"
}

func unquote(repr string) string {
	if len(repr) >= 2 && (repr[0] == '\'' || repr[0] == '"') {
		return repr[1 : len(repr)-1]
	}
	return repr
}
