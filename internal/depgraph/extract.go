package depgraph

import "github.com/sunholo/cribo/internal/pyast"

// ExtractItems splits one module's top-level statement list into graph
// items, one per top-level statement, per spec.md §4.2: a function or
// class def defines its own name; an assignment defines its targets and
// reads whatever names its value expression references; an import
// defines the bound names and is itself a dependency edge target for
// every later item that reads those names. Nested statement bodies are
// walked for name reads but do not themselves become separate items —
// the granularity is top-level only.
func ExtractItems(m *pyast.Module) []Item {
	items := make([]Item, 0, len(m.Body))
	for i, stmt := range m.Body {
		items = append(items, itemFor(ItemId(i), stmt))
	}
	return items
}

func itemFor(id ItemId, s *pyast.Stmt) Item {
	it := Item{ID: id}
	switch s.Kind {
	case pyast.KindFunctionDef, pyast.KindAsyncFunctionDef:
		it.Defines = []string{s.Name}
		it.Reads = append(it.Reads, readsInDecorators(s)...)
		it.Reads = append(it.Reads, readsInDefaults(s.Args)...)
		it.Reads = append(it.Reads, collectFreeVars(s.Body, paramNames(s.Args))...)

	case pyast.KindClassDef:
		it.Defines = []string{s.Name}
		it.IsClassDef = true
		it.Reads = append(it.Reads, readsInDecorators(s)...)
		for _, b := range s.Bases {
			it.BaseReads = append(it.BaseReads, exprReads(b)...)
		}
		it.Reads = append(it.Reads, it.BaseReads...)
		it.Reads = append(it.Reads, collectFreeVars(s.Body, nil)...)
		// A class statement executes its body at module-init time, but a
		// pure definition is not a side effect (the module stays
		// inlinable); only the base/body reads are init-time reads.

	case pyast.KindImport:
		it.IsImport = true
		for _, a := range s.Names {
			it.Defines = append(it.Defines, bindingName(a))
		}

	case pyast.KindImportFrom:
		it.IsImport = true
		for _, a := range s.Names {
			if a.Name == "*" {
				it.IsReexport = true
				continue
			}
			it.Defines = append(it.Defines, bindingName(a))
		}

	case pyast.KindAssign:
		for _, t := range s.Targets {
			it.Defines = append(it.Defines, assignTargetNames(t)...)
		}
		it.Reads = append(it.Reads, exprReads(s.Value)...)
		it.SideEffect = exprHasCall(s.Value)

	case pyast.KindAugAssign:
		it.Defines = append(it.Defines, assignTargetNames(s.Targets[0])...)
		it.Reads = append(it.Reads, assignTargetNames(s.Targets[0])...)
		it.Reads = append(it.Reads, exprReads(s.Value)...)
		it.SideEffect = true

	case pyast.KindAnnAssign:
		for _, t := range s.Targets {
			it.Defines = append(it.Defines, assignTargetNames(t)...)
		}
		if s.Value != nil {
			it.Reads = append(it.Reads, exprReads(s.Value)...)
		}

	default:
		// If/For/While/Try/With/expression-statements/raise/assert/etc:
		// no new top-level binding (ignoring the rare case of a
		// conditional def, handled conservatively by tree-shaking
		// keeping the whole item once any name inside is live), but may
		// read names and always runs for effect.
		it.Reads = append(it.Reads, collectFreeVars([]*pyast.Stmt{s}, nil)...)
		it.SideEffect = true
	}
	return dedupe(it)
}

func bindingName(a *pyast.Alias) string {
	if a.AsName != "" {
		return a.AsName
	}
	// `import a.b.c` binds the top-level name `a` in the importing
	// module's namespace.
	name := a.Name
	for i, c := range name {
		if c == '.' {
			return name[:i]
		}
	}
	return name
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

func readsInDefaults(args *pyast.Arguments) []string {
	if args == nil {
		return nil
	}
	var out []string
	for _, d := range args.Defaults {
		out = append(out, exprReads(d)...)
	}
	for _, d := range args.KwDefaults {
		out = append(out, exprReads(d)...)
	}
	return out
}

func readsInDecorators(s *pyast.Stmt) []string {
	var out []string
	for _, d := range s.Decorators {
		out = append(out, exprReads(d)...)
	}
	return out
}

func dedupe(it Item) Item {
	it.Defines = dedupeStrings(it.Defines)
	it.Reads = dedupeStrings(it.Reads)
	return it
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
