package codegen

import (
	"fmt"
	"hash/fnv"

	"github.com/sunholo/cribo/internal/pyast"
	"github.com/sunholo/cribo/internal/resolver"
)

// WrapperInfo carries the synthetic names derived for one wrapper
// module: the module-object variable (`foo.bar.baz` → `foo_bar_baz`),
// the init function name (`_cribo_init__<hash>_<sanitized>`, where the
// hash is a short digest of the module's canonical path), and the
// dotted name used for the generated sys.modules registration.
type WrapperInfo struct {
	Module    resolver.ModuleId
	Dotted    string
	ModuleVar string
	InitFunc  string
	IsPackage bool
}

// WrapperSet assigns and indexes WrapperInfo records for every module
// classified as a wrapper, so codegen and the import transformer agree
// on the synthetic names without re-deriving them.
type WrapperSet struct {
	byID     map[resolver.ModuleId]*WrapperInfo
	byDotted map[string]*WrapperInfo
	order    []resolver.ModuleId
}

// NewWrapperSet creates an empty set.
func NewWrapperSet() *WrapperSet {
	return &WrapperSet{
		byID:     make(map[resolver.ModuleId]*WrapperInfo),
		byDotted: make(map[string]*WrapperInfo),
	}
}

// Add derives (or returns the already-derived) wrapper names for a
// module. Name uniqueness is delegated to the bundle-wide RenameTable,
// so when a user symbol and a module variable collide, whichever was
// assigned first keeps the bare name and the other gets a suffix.
func (ws *WrapperSet) Add(names *RenameTable, id resolver.ModuleId, dotted, canonicalPath string, isPackage bool) *WrapperInfo {
	if info, ok := ws.byID[id]; ok {
		return info
	}
	info := &WrapperInfo{
		Module:    id,
		Dotted:    dotted,
		ModuleVar: names.Assign(id, Sanitize(dotted)),
		InitFunc:  names.Assign(id, initFuncNameFor(dotted, canonicalPath)),
		IsPackage: isPackage,
	}
	ws.byID[id] = info
	ws.byDotted[dotted] = info
	ws.order = append(ws.order, id)
	return info
}

// ByID returns the wrapper info for a module id, if the module was
// classified as a wrapper.
func (ws *WrapperSet) ByID(id resolver.ModuleId) (*WrapperInfo, bool) {
	info, ok := ws.byID[id]
	return info, ok
}

// ByDotted returns the wrapper info for a dotted module name.
func (ws *WrapperSet) ByDotted(dotted string) (*WrapperInfo, bool) {
	info, ok := ws.byDotted[dotted]
	return info, ok
}

// Sanitize maps a dotted module path to a flat identifier:
// `foo.bar.baz` → `foo_bar_baz`.
func Sanitize(dotted string) string {
	out := make([]byte, len(dotted))
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			out[i] = '_'
		} else {
			out[i] = dotted[i]
		}
	}
	return string(out)
}

func initFuncNameFor(dotted, canonicalPath string) string {
	h := fnv.New32a()
	h.Write([]byte(canonicalPath))
	return fmt.Sprintf("_cribo_init__%08x_%s", h.Sum32(), Sanitize(dotted))
}

// BuildModuleObject emits the wrapper's module object and its
// sys.modules registration:
//
//	<module_var> = _cribo_types.SimpleNamespace(__name__='<dotted>',
//	    __initialized__=False, __initializing__=False[, __path__=[]])
//	_cribo_sys.modules['<dotted>'] = <module_var>
func BuildModuleObject(info *WrapperInfo) []*pyast.Stmt {
	kwargs := map[string]*pyast.Expr{
		"__name__":         pyast.StrExpr(info.Dotted),
		"__initialized__":  pyast.BoolExpr(false),
		"__initializing__": pyast.BoolExpr(false),
	}
	order := []string{"__name__", "__initialized__", "__initializing__"}
	if info.IsPackage {
		kwargs["__path__"] = pyast.ListExpr()
		order = append(order, "__path__")
	}
	create := pyast.AssignStmt(
		pyast.NameExpr(info.ModuleVar),
		pyast.CallKw(pyast.AttrChain(TypesAlias, "SimpleNamespace"), nil, kwargs, order),
	)
	register := pyast.AssignStmt(
		pyast.SubscriptExpr(pyast.AttrChain(SysAlias, "modules"), pyast.StrExpr(info.Dotted)),
		pyast.NameExpr(info.ModuleVar),
	)
	return []*pyast.Stmt{create, register}
}

// BuildInitAttach emits `<module_var>.__init__ = <init_func>`, so any
// import site can initialize the module as `m.__init__(m)`.
func BuildInitAttach(info *WrapperInfo) *pyast.Stmt {
	return pyast.AssignStmt(
		pyast.AttrExpr(pyast.NameExpr(info.ModuleVar), "__init__"),
		pyast.NameExpr(info.InitFunc),
	)
}

// BuildInitCall emits `<module_var>.__init__(<module_var>)`.
func BuildInitCall(info *WrapperInfo) *pyast.Stmt {
	return pyast.ExprStmtNode(pyast.CallExpr(
		pyast.AttrExpr(pyast.NameExpr(info.ModuleVar), "__init__"),
		pyast.NameExpr(info.ModuleVar),
	))
}

// BuildWrapperInit assembles the init function for one wrapper module.
// The three observable states match Python's own sys.modules exposure
// during a cyclic import:
//
//	def _cribo_init__<hash>_<name>(self):
//	    if self.__initialized__:
//	        return self
//	    if self.__initializing__:
//	        self.__initializing__ = False
//	        return self
//	    self.__initializing__ = True
//	    <module body, import sites already rewritten>
//	    ... each top-level binding is attached onto self right after the
//	    ... statement that introduces it, so a partially-initialized
//	    ... module exposes what has executed so far
//	    self.__initialized__ = True
//	    self.__initializing__ = False
//	    return self
//
// Names declared `global` anywhere in the module are lifted to true
// bundle-level variables under sanitized unique names; the init body
// declares them `global` so its own assignments reach bundle scope.
// `globals()` inside the body is rewritten to `<module_var>.__dict__`
// and `locals()` (outside nested functions) to `vars(<module_var>)`.
func BuildWrapperInit(names *RenameTable, info *WrapperInfo, body []*pyast.Stmt) *pyast.Stmt {
	selfAttr := func(attr string) *pyast.Expr {
		return pyast.AttrExpr(pyast.NameExpr("self"), attr)
	}
	setFlag := func(attr string, v bool) *pyast.Stmt {
		return pyast.AssignStmt(selfAttr(attr), pyast.BoolExpr(v))
	}
	returnSelf := &pyast.Stmt{Kind: pyast.KindReturn, Expr: pyast.NameExpr("self")}

	lifted := liftGlobals(names, info, body)
	rewriteGlobalsCalls(body, info.ModuleVar, false)

	fnBody := []*pyast.Stmt{
		{Kind: pyast.KindIf, Test: selfAttr("__initialized__"), Body: []*pyast.Stmt{returnSelf}},
		{Kind: pyast.KindIf, Test: selfAttr("__initializing__"), Body: []*pyast.Stmt{
			setFlag("__initializing__", false),
			returnSelf,
		}},
		setFlag("__initializing__", true),
	}

	liftedRev := make(map[string]string, len(lifted.byOriginal))
	var liftedNames []string
	for _, orig := range lifted.order {
		l := lifted.byOriginal[orig]
		liftedRev[l] = orig
		liftedNames = append(liftedNames, l)
	}
	if len(liftedNames) > 0 {
		fnBody = append(fnBody, &pyast.Stmt{Kind: pyast.KindGlobal, GlobalNames: liftedNames})
	}

	for _, s := range body {
		fnBody = append(fnBody, s)
		for _, n := range stmtBoundNames(s) {
			attr := n
			if orig, ok := liftedRev[n]; ok {
				attr = orig
			}
			if attr == "self" {
				continue
			}
			fnBody = append(fnBody, pyast.AssignStmt(selfAttr(attr), pyast.NameExpr(n)))
		}
	}

	fnBody = append(fnBody,
		setFlag("__initialized__", true),
		setFlag("__initializing__", false),
		returnSelf,
	)

	return &pyast.Stmt{
		Kind: pyast.KindFunctionDef,
		Name: info.InitFunc,
		Args: &pyast.Arguments{Args: []string{"self"}},
		Body: fnBody,
	}
}

// stmtBoundNames returns the names a statement binds at its own level,
// in source order, deduplicated — the set a wrapper init must mirror
// onto the module object after executing the statement.
func stmtBoundNames(s *pyast.Stmt) []string {
	var out []string
	switch s.Kind {
	case pyast.KindFunctionDef, pyast.KindAsyncFunctionDef, pyast.KindClassDef:
		out = append(out, s.Name)
	case pyast.KindAssign, pyast.KindAugAssign, pyast.KindAnnAssign:
		for _, t := range s.Targets {
			out = append(out, targetNames(t)...)
		}
	case pyast.KindImport, pyast.KindImportFrom:
		for _, a := range s.Names {
			if a.Name == "*" {
				continue
			}
			out = append(out, aliasBoundName(a))
		}
	case pyast.KindFor, pyast.KindAsyncFor:
		out = append(out, targetNames(s.Target)...)
	case pyast.KindWith, pyast.KindAsyncWith:
		for _, w := range s.WithItems {
			out = append(out, targetNames(w.OptionalVars)...)
		}
	}
	seen := make(map[string]bool, len(out))
	dedup := out[:0]
	for _, n := range out {
		if !seen[n] {
			seen[n] = true
			dedup = append(dedup, n)
		}
	}
	return dedup
}

func targetNames(e *pyast.Expr) []string {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case pyast.EName:
		return []string{e.Id}
	case pyast.ETuple, pyast.EList:
		var out []string
		for _, el := range e.Elts {
			out = append(out, targetNames(el)...)
		}
		return out
	case pyast.EStarred:
		return targetNames(e.Value)
	}
	return nil
}

func aliasBoundName(a *pyast.Alias) string {
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

type liftedGlobals struct {
	byOriginal map[string]string
	order      []string
}

// liftGlobals finds every name declared `global` anywhere in the
// module body, assigns it a unique bundle-level name, and renames all
// occurrences in the body (references, binding sites, and the global
// statements themselves) to the lifted name.
func liftGlobals(names *RenameTable, info *WrapperInfo, body []*pyast.Stmt) liftedGlobals {
	lifted := liftedGlobals{byOriginal: map[string]string{}}
	collectGlobalDecls(body, &lifted, names, info)
	if len(lifted.order) == 0 {
		return lifted
	}
	for _, s := range body {
		renameInStmt(s, lifted.byOriginal)
	}
	return lifted
}

func collectGlobalDecls(body []*pyast.Stmt, lifted *liftedGlobals, names *RenameTable, info *WrapperInfo) {
	for _, s := range body {
		if s == nil {
			continue
		}
		if s.Kind == pyast.KindGlobal {
			for _, n := range s.GlobalNames {
				if _, ok := lifted.byOriginal[n]; !ok {
					lifted.byOriginal[n] = names.Assign(info.Module, Sanitize(info.Dotted)+"_"+n)
					lifted.order = append(lifted.order, n)
				}
			}
		}
		collectGlobalDecls(s.Body, lifted, names, info)
		collectGlobalDecls(s.Orelse, lifted, names, info)
		collectGlobalDecls(s.FinalBody, lifted, names, info)
		for _, h := range s.Handlers {
			collectGlobalDecls(h.Body, lifted, names, info)
		}
	}
}

func renameInStmt(s *pyast.Stmt, renames map[string]string) {
	if s == nil {
		return
	}
	if s.Kind == pyast.KindGlobal {
		for i, n := range s.GlobalNames {
			if l, ok := renames[n]; ok {
				s.GlobalNames[i] = l
			}
		}
	}
	for _, e := range []*pyast.Expr{s.Expr, s.Value, s.Annotation, s.Test, s.Target, s.Iter,
		s.RaiseExc, s.RaiseCause, s.AssertTest, s.AssertMsg} {
		renameInExpr(e, renames)
	}
	for _, t := range s.Targets {
		renameInExpr(t, renames)
	}
	for _, t := range s.DeleteTargets {
		renameInExpr(t, renames)
	}
	for _, d := range s.Decorators {
		renameInExpr(d, renames)
	}
	for _, b := range s.Bases {
		renameInExpr(b, renames)
	}
	for _, w := range s.WithItems {
		renameInExpr(w.ContextExpr, renames)
		renameInExpr(w.OptionalVars, renames)
	}
	for _, sub := range s.Body {
		renameInStmt(sub, renames)
	}
	for _, sub := range s.Orelse {
		renameInStmt(sub, renames)
	}
	for _, sub := range s.FinalBody {
		renameInStmt(sub, renames)
	}
	for _, h := range s.Handlers {
		renameInExpr(h.Type, renames)
		for _, sub := range h.Body {
			renameInStmt(sub, renames)
		}
	}
}

func renameInExpr(e *pyast.Expr, renames map[string]string) {
	if e == nil {
		return
	}
	if e.Kind == pyast.EName {
		if l, ok := renames[e.Id]; ok {
			e.Id = l
		}
	}
	for _, sub := range []*pyast.Expr{e.Value, e.Func, e.Left, e.Right, e.Test, e.Body, e.Orelse,
		e.LambdaBody, e.Slice, e.CompKey, e.CompValue, e.Target} {
		renameInExpr(sub, renames)
	}
	for _, a := range e.Args {
		renameInExpr(a, renames)
	}
	for _, k := range e.Keywords {
		renameInExpr(k.Value, renames)
	}
	for _, el := range e.Elts {
		renameInExpr(el, renames)
	}
	for _, k := range e.Keys {
		renameInExpr(k, renames)
	}
	for _, v := range e.Values {
		renameInExpr(v, renames)
	}
	for _, o := range e.Operands {
		renameInExpr(o, renames)
	}
	for _, c := range e.Comprehensions {
		renameInExpr(c.Target, renames)
		renameInExpr(c.Iter, renames)
		for _, i := range c.Ifs {
			renameInExpr(i, renames)
		}
	}
}

// rewriteGlobalsCalls replaces `globals()` with `<module_var>.__dict__`
// everywhere in the body, and `locals()` with `vars(<module_var>)` only
// outside nested function bodies (inside one, locals() refers to that
// function's own frame and must stay).
func rewriteGlobalsCalls(body []*pyast.Stmt, moduleVar string, inFunction bool) {
	for _, s := range body {
		rewriteGlobalsInStmt(s, moduleVar, inFunction)
	}
}

func rewriteGlobalsInStmt(s *pyast.Stmt, moduleVar string, inFunction bool) {
	if s == nil {
		return
	}
	nested := inFunction
	if s.Kind == pyast.KindFunctionDef || s.Kind == pyast.KindAsyncFunctionDef {
		nested = true
	}
	for _, e := range []*pyast.Expr{s.Expr, s.Value, s.Annotation, s.Test, s.Target, s.Iter,
		s.RaiseExc, s.RaiseCause, s.AssertTest, s.AssertMsg} {
		rewriteGlobalsInExpr(e, moduleVar, inFunction)
	}
	for _, t := range s.Targets {
		rewriteGlobalsInExpr(t, moduleVar, inFunction)
	}
	for _, d := range s.Decorators {
		rewriteGlobalsInExpr(d, moduleVar, inFunction)
	}
	for _, b := range s.Bases {
		rewriteGlobalsInExpr(b, moduleVar, inFunction)
	}
	for _, w := range s.WithItems {
		rewriteGlobalsInExpr(w.ContextExpr, moduleVar, inFunction)
	}
	rewriteGlobalsCalls(s.Body, moduleVar, nested)
	rewriteGlobalsCalls(s.Orelse, moduleVar, nested)
	rewriteGlobalsCalls(s.FinalBody, moduleVar, nested)
	for _, h := range s.Handlers {
		rewriteGlobalsInExpr(h.Type, moduleVar, inFunction)
		rewriteGlobalsCalls(h.Body, moduleVar, nested)
	}
}

func rewriteGlobalsInExpr(e *pyast.Expr, moduleVar string, inFunction bool) {
	if e == nil {
		return
	}
	if e.Kind == pyast.ECall && e.Func != nil && e.Func.Kind == pyast.EName && len(e.Args) == 0 {
		switch e.Func.Id {
		case "globals":
			*e = *pyast.AttrExpr(pyast.NameExpr(moduleVar), "__dict__")
			return
		case "locals":
			if !inFunction {
				*e = *pyast.CallExpr(pyast.NameExpr("vars"), pyast.NameExpr(moduleVar))
				return
			}
		}
	}
	for _, sub := range []*pyast.Expr{e.Value, e.Func, e.Left, e.Right, e.Test, e.Body, e.Orelse,
		e.LambdaBody, e.Slice, e.CompKey, e.CompValue, e.Target} {
		rewriteGlobalsInExpr(sub, moduleVar, inFunction)
	}
	for _, a := range e.Args {
		rewriteGlobalsInExpr(a, moduleVar, inFunction)
	}
	for _, k := range e.Keywords {
		rewriteGlobalsInExpr(k.Value, moduleVar, inFunction)
	}
	for _, el := range e.Elts {
		rewriteGlobalsInExpr(el, moduleVar, inFunction)
	}
	for _, k := range e.Keys {
		rewriteGlobalsInExpr(k, moduleVar, inFunction)
	}
	for _, v := range e.Values {
		rewriteGlobalsInExpr(v, moduleVar, inFunction)
	}
	for _, o := range e.Operands {
		rewriteGlobalsInExpr(o, moduleVar, inFunction)
	}
	for _, c := range e.Comprehensions {
		rewriteGlobalsInExpr(c.Iter, moduleVar, inFunction)
		for _, i := range c.Ifs {
			rewriteGlobalsInExpr(i, moduleVar, inFunction)
		}
	}
}
