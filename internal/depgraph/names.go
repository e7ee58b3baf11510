package depgraph

import "github.com/sunholo/cribo/internal/pyast"

// assignTargetNames flattens an assignment target expression (Name,
// Tuple/List of targets, Starred, or Attribute/Subscript which binds no
// new top-level name) into the simple names it introduces.
func assignTargetNames(e *pyast.Expr) []string {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case pyast.EName:
		return []string{e.Id}
	case pyast.ETuple, pyast.EList:
		var out []string
		for _, el := range e.Elts {
			out = append(out, assignTargetNames(el)...)
		}
		return out
	case pyast.EStarred:
		return assignTargetNames(e.Value)
	default:
		// Attribute/Subscript targets mutate an existing object; they
		// read the base name rather than define one.
		return nil
	}
}

// exprReads collects every free-variable name an expression references,
// without excluding any scope — used where a precise binder isn't
// needed (decorator/default/base-class expressions evaluate in the
// enclosing scope directly).
func exprReads(e *pyast.Expr) []string {
	var out []string
	walkExpr(e, func(n *pyast.Expr) {
		if n.Kind == pyast.EName {
			out = append(out, n.Id)
		}
	})
	return out
}

// exprHasCall reports whether an expression contains a call anywhere,
// a rough proxy for "may have a side effect" used to decide whether a
// plain assignment's value is worth keeping even if its target is
// unread (spec.md §4.4's side-effect-preserving tree-shake rule).
func exprHasCall(e *pyast.Expr) bool {
	found := false
	walkExpr(e, func(n *pyast.Expr) {
		if n.Kind == pyast.ECall {
			found = true
		}
	})
	return found
}

// collectFreeVars walks a statement list (a function/class body, or any
// nested block) and collects every Name read, skipping over names bound
// by `exclude` (a function's own parameters) since those refer to the
// local, not an outer, binding. This is an overapproximation: it does
// not build a full scope tree (that lives in internal/semantic) — it
// exists only to seed graph edges, so false positives (reading a
// variable that was actually locally rebound) just add a harmless
// extra edge.
func collectFreeVars(body []*pyast.Stmt, exclude map[string]bool) []string {
	var out []string
	var walkStmt func(s *pyast.Stmt)
	emit := func(e *pyast.Expr) {
		walkExpr(e, func(n *pyast.Expr) {
			if n.Kind == pyast.EName && !exclude[n.Id] {
				out = append(out, n.Id)
			}
		})
	}
	walkStmt = func(s *pyast.Stmt) {
		if s == nil {
			return
		}
		emit(s.Expr)
		emit(s.Value)
		emit(s.Annotation)
		emit(s.Test)
		emit(s.Target)
		emit(s.Iter)
		emit(s.RaiseExc)
		emit(s.RaiseCause)
		emit(s.AssertTest)
		emit(s.AssertMsg)
		for _, t := range s.Targets {
			// An attribute/subscript target's base is a read.
			if t != nil && t.Kind != pyast.EName {
				emit(t)
			}
		}
		for _, t := range s.DeleteTargets {
			emit(t)
		}
		for _, d := range s.Decorators {
			emit(d)
		}
		for _, b := range s.Bases {
			emit(b)
		}
		for _, w := range s.WithItems {
			emit(w.ContextExpr)
		}
		for _, sub := range s.Body {
			walkStmt(sub)
		}
		for _, sub := range s.Orelse {
			walkStmt(sub)
		}
		for _, sub := range s.FinalBody {
			walkStmt(sub)
		}
		for _, h := range s.Handlers {
			emit(h.Type)
			for _, sub := range h.Body {
				walkStmt(sub)
			}
		}
	}
	for _, s := range body {
		walkStmt(s)
	}
	return out
}

// walkExpr visits e and every expression reachable from it, calling fn
// on each node (including e itself). nil is a no-op.
func walkExpr(e *pyast.Expr, fn func(*pyast.Expr)) {
	if e == nil {
		return
	}
	fn(e)
	walkExpr(e.Value, fn)
	walkExpr(e.Func, fn)
	for _, a := range e.Args {
		walkExpr(a, fn)
	}
	for _, k := range e.Keywords {
		walkExpr(k.Value, fn)
	}
	for _, el := range e.Elts {
		walkExpr(el, fn)
	}
	for _, k := range e.Keys {
		walkExpr(k, fn)
	}
	for _, v := range e.Values {
		walkExpr(v, fn)
	}
	walkExpr(e.Left, fn)
	walkExpr(e.Right, fn)
	for _, o := range e.Operands {
		walkExpr(o, fn)
	}
	walkExpr(e.Test, fn)
	walkExpr(e.Body, fn)
	walkExpr(e.Orelse, fn)
	walkExpr(e.LambdaBody, fn)
	walkExpr(e.Slice, fn)
	walkExpr(e.CompKey, fn)
	walkExpr(e.CompValue, fn)
	walkExpr(e.Target, fn)
	for _, c := range e.Comprehensions {
		walkExpr(c.Target, fn)
		walkExpr(c.Iter, fn)
		for _, i := range c.Ifs {
			walkExpr(i, fn)
		}
	}
}
