package semantic

import (
	"sort"

	"github.com/sunholo/cribo/internal/pyast"
)

// collectInitReads walks one top-level statement and records every name
// read during module initialization: everything except the body of a
// function def (whose reads are deferred to call time). A class body
// does count, since executing `class C: ...` runs its body immediately.
func collectInitReads(model *Model, s *pyast.Stmt) {
	switch s.Kind {
	case pyast.KindFunctionDef, pyast.KindAsyncFunctionDef:
		for _, d := range s.Decorators {
			markReads(model, d)
		}
		markReadsIn(model, s.Args)
		// s.Body is deliberately skipped: executes only when called.
	case pyast.KindClassDef:
		for _, d := range s.Decorators {
			markReads(model, d)
		}
		for _, b := range s.Bases {
			markReads(model, b)
		}
		for _, sub := range s.Body {
			collectInitReads(model, sub)
		}
	default:
		markStmtReads(model, s)
		for _, sub := range s.Body {
			collectInitReads(model, sub)
		}
		for _, sub := range s.Orelse {
			collectInitReads(model, sub)
		}
		for _, sub := range s.FinalBody {
			collectInitReads(model, sub)
		}
		for _, h := range s.Handlers {
			markReads(model, h.Type)
			for _, sub := range h.Body {
				collectInitReads(model, sub)
			}
		}
	}
}

func markStmtReads(model *Model, s *pyast.Stmt) {
	markReads(model, s.Expr)
	markReads(model, s.Value)
	markReads(model, s.Annotation)
	markReads(model, s.Test)
	markReads(model, s.Iter)
	markReads(model, s.RaiseExc)
	markReads(model, s.RaiseCause)
	markReads(model, s.AssertTest)
	markReads(model, s.AssertMsg)
	for _, t := range s.Targets {
		if t != nil && t.Kind != pyast.EName {
			markReads(model, t)
		}
	}
	for _, t := range s.DeleteTargets {
		markReads(model, t)
	}
	for _, w := range s.WithItems {
		markReads(model, w.ContextExpr)
	}
}

func markReadsIn(model *Model, args *pyast.Arguments) {
	if args == nil {
		return
	}
	for _, d := range args.Defaults {
		markReads(model, d)
	}
	for _, d := range args.KwDefaults {
		markReads(model, d)
	}
}

func markReads(model *Model, e *pyast.Expr) {
	if e == nil {
		return
	}
	if e.Kind == pyast.EName {
		model.ModuleInitReads[e.Id] = true
	}
	markReads(model, e.Value)
	markReads(model, e.Func)
	for _, a := range e.Args {
		markReads(model, a)
	}
	for _, k := range e.Keywords {
		markReads(model, k.Value)
	}
	for _, el := range e.Elts {
		markReads(model, el)
	}
	for _, k := range e.Keys {
		markReads(model, k)
	}
	for _, v := range e.Values {
		markReads(model, v)
	}
	markReads(model, e.Left)
	markReads(model, e.Right)
	for _, o := range e.Operands {
		markReads(model, o)
	}
	markReads(model, e.Test)
	markReads(model, e.Body)
	markReads(model, e.Orelse)
	markReads(model, e.LambdaBody)
	markReads(model, e.Slice)
	markReads(model, e.CompKey)
	markReads(model, e.CompValue)
	markReads(model, e.Target)
	for _, c := range e.Comprehensions {
		markReads(model, c.Target)
		markReads(model, c.Iter)
		for _, i := range c.Ifs {
			markReads(model, i)
		}
	}
}

// Exported reports whether name should be part of the module's public
// surface: present in a statically-resolved __all__ when one exists,
// else any top-level binding not starting with an underscore, per
// spec.md §4.6.5.
func (m *Model) Exported(name string) bool {
	if m.DunderAll != nil {
		for _, n := range m.DunderAll {
			if n == name {
				return true
			}
		}
		return false
	}
	if len(name) == 0 || name[0] == '_' {
		return false
	}
	_, ok := m.TopLevelBindings[name]
	return ok
}

// ExportedNames returns every exported name, in a deterministic order:
// __all__ order when present, else ascending over TopLevelBindings'
// defining-item index (source order), names bound by the same item in
// name order.
func (m *Model) ExportedNames() []string {
	if m.DunderAll != nil {
		out := make([]string, 0, len(m.DunderAll))
		for _, n := range m.DunderAll {
			if _, ok := m.TopLevelBindings[n]; ok {
				out = append(out, n)
			}
		}
		return out
	}
	type ordered struct {
		name string
		idx  int
	}
	var names []ordered
	for n, b := range m.TopLevelBindings {
		if len(n) > 0 && n[0] != '_' {
			names = append(names, ordered{n, b.DefiningItem})
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i].idx != names[j].idx {
			return names[i].idx < names[j].idx
		}
		return names[i].name < names[j].name
	})
	out := make([]string, len(names))
	for i, o := range names {
		out[i] = o.name
	}
	return out
}
