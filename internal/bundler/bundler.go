// Package bundler provides the unified bundling pipeline for cribo:
// threading (entry, source roots, config) through module resolution
// (C1), dependency-graph construction (C2), semantic analysis (C3),
// tree-shaking (C4), classification (C5), code generation (C6), and
// import-site transformation (C7) into a single synthetic Python
// module plus a requirements.txt sidecar. Grounded on the phase
// sequencing and Config/Result shape of the teacher's
// internal/pipeline/pipeline.go, generalized from AILANG's
// parse/elaborate/typecheck/eval phases to cribo's resolve/graph/
// semantic/treeshake/classify/codegen phases.
package bundler

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sunholo/cribo/internal/bundleerrors"
	"github.com/sunholo/cribo/internal/classify"
	"github.com/sunholo/cribo/internal/codegen"
	"github.com/sunholo/cribo/internal/depgraph"
	"github.com/sunholo/cribo/internal/diagnostics"
	"github.com/sunholo/cribo/internal/pyast"
	"github.com/sunholo/cribo/internal/resolver"
	"github.com/sunholo/cribo/internal/semantic"
	"github.com/sunholo/cribo/internal/transform"
	"github.com/sunholo/cribo/internal/treeshake"
)

// Config controls one bundling run.
type Config struct {
	Entry            string
	SourceRoots      []string // additional roots beyond the entry's directory
	PythonVersion    [2]int
	NoTreeShake      bool
	EmitRequirements bool
}

// Result is the outcome of a successful bundling run.
type Result struct {
	Output       []byte
	Requirements []string // third-party package names, sorted; nil unless requested
	Diagnostics  []diagnostics.Diagnostic
}

// discovery carries the mutable state of the worklist phase; it is
// read-only once the worklist drains, per spec.md §5.
type discovery struct {
	res               *resolver.Resolver
	graph             *depgraph.Graph
	bag               *diagnostics.Bag
	models            map[resolver.ModuleId]*semantic.Model
	modules           map[resolver.ModuleId]*pyast.Module
	thirdParty        map[string]bool
	namespaceImported map[resolver.ModuleId]bool
	wildcardImported  map[resolver.ModuleId]bool
	starSources       map[resolver.ModuleId][]resolver.ModuleId
	importBindings    map[depgraph.Node][]depgraph.ImportBinding
	queue             []resolver.ModuleId
}

// Run executes the full pipeline.
func Run(cfg Config) (Result, error) {
	if cfg.PythonVersion == [2]int{} {
		cfg.PythonVersion = [2]int{3, 12}
	}

	roots := append([]string{filepath.Dir(cfg.Entry)}, cfg.SourceRoots...)
	res := resolver.New(roots, cfg.PythonVersion)

	entryID, err := res.RegisterEntry(cfg.Entry)
	if err != nil {
		return Result{}, bundleerrors.Wrap(bundleerrors.New("resolve", bundleerrors.IO001, err.Error()))
	}

	d := &discovery{
		res:               res,
		graph:             depgraph.New(),
		bag:               &diagnostics.Bag{},
		models:            map[resolver.ModuleId]*semantic.Model{},
		modules:           map[resolver.ModuleId]*pyast.Module{},
		thirdParty:        map[string]bool{},
		namespaceImported: map[resolver.ModuleId]bool{},
		wildcardImported:  map[resolver.ModuleId]bool{},
		starSources:       map[resolver.ModuleId][]resolver.ModuleId{},
		importBindings:    map[depgraph.Node][]depgraph.ImportBinding{},
		queue:             []resolver.ModuleId{entryID},
	}

	if err := d.drain(); err != nil {
		return Result{}, err
	}

	// A submodule of a bundled package is reachable by attribute access
	// on its parent (`pkg.sub`), so it must keep a module object of its
	// own.
	for _, m := range res.AllModules() {
		if i := strings.LastIndexByte(m.DottedName, '.'); i >= 0 {
			if _, ok := d.moduleByDotted(m.DottedName[:i]); ok {
				d.namespaceImported[m.ID] = true
			}
		}
	}

	d.graph.LinkEdges(d.importBindings)

	shaken := treeshake.Run(d.graph, d.models, entryID, treeshake.Options{
		Disabled:          cfg.NoTreeShake,
		NamespaceImported: d.namespaceImported,
		WildcardImported:  d.wildcardImported,
	})

	entryMeta, _ := res.Metadata(entryID)
	plan, err := classify.Build(d.graph, classify.Inputs{
		Live:               shaken.LiveModules,
		NamespaceImported:  d.namespaceImported,
		SideEffecting:      d.sideEffecting(),
		WildcardReexport:   d.wildcardReexporters(),
		ClassBaseDeps:      d.classBaseDeps(),
		Entry:              entryID,
		EntryIsPackageInit: entryMeta.Kind == resolver.PackageInit,
	})
	if err != nil {
		return Result{}, err
	}

	out, err := emit(cfg, d, plan, shaken, entryID)
	if err != nil {
		return Result{}, err
	}

	var reqs []string
	if cfg.EmitRequirements {
		for name := range d.thirdParty {
			reqs = append(reqs, name)
		}
		sort.Strings(reqs)
	}

	return Result{Output: out, Requirements: reqs, Diagnostics: d.bag.Items()}, nil
}

// drain processes the discovery worklist: parse every reachable
// first-party module, extract its items, resolve its imports, and
// enqueue any newly discovered first-party target. The entry is always
// processed first and is always ModuleId(0).
func (d *discovery) drain() error {
	processed := map[resolver.ModuleId]bool{}
	for len(d.queue) > 0 {
		id := d.queue[0]
		d.queue = d.queue[1:]
		if processed[id] {
			continue
		}
		processed[id] = true

		meta, _ := d.res.Metadata(id)
		if meta.Kind == resolver.NamespacePackageDir {
			// A namespace package has no source of its own; it exists
			// only as an attribute container for its children.
			mod := &pyast.Module{Filename: meta.CanonicalPath}
			d.modules[id] = mod
			d.models[id] = semantic.Analyze(meta.DottedName, mod)
			d.graph.AddModule(&depgraph.ModuleItems{Module: id})
			continue
		}

		src, err := os.ReadFile(meta.CanonicalPath)
		if err != nil {
			return bundleerrors.Wrap(bundleerrors.New("io", bundleerrors.IO001, err.Error()))
		}
		mod, err := pyast.Parse(meta.CanonicalPath, src)
		if err != nil {
			return bundleerrors.Wrap(bundleerrors.Parse(meta.CanonicalPath, err))
		}
		d.modules[id] = mod
		d.models[id] = semantic.Analyze(meta.DottedName, mod)

		items := depgraph.ExtractItems(mod)
		d.graph.AddModule(&depgraph.ModuleItems{Module: id, Items: items})

		for i, stmt := range mod.Body {
			d.discoverStmt(stmt, i, id, meta)
		}
	}
	return nil
}

func (d *discovery) discoverStmt(s *pyast.Stmt, itemIdx int, owner resolver.ModuleId, ownerMeta resolver.ModuleMetadata) {
	d.scanDynamicConstructs(s, owner, ownerMeta)

	switch s.Kind {
	case pyast.KindImport:
		for _, alias := range s.Names {
			bound := alias.AsName
			if bound == "" {
				bound = alias.Name
				if i := strings.IndexByte(bound, '.'); i >= 0 {
					bound = bound[:i]
				}
			}
			// `import x` and `import x as y` both bind the whole module
			// object, so the target must keep a module object whose
			// attributes resolve at runtime (spec.md §4.5).
			d.resolveOne(importSite{
				importString: alias.Name, owner: owner, item: itemIdx, line: s.Line,
				boundName: bound, wholeModule: true,
			})
		}

	case pyast.KindImportFrom:
		for _, alias := range s.Names {
			if alias.Name == "*" {
				if r, ok := d.resolveOne(importSite{
					importString: s.ModulePath, level: s.Level, owner: owner, item: itemIdx,
					line: s.Line, wildcard: true,
				}); ok {
					d.starSources[owner] = append(d.starSources[owner], r)
				}
				continue
			}
			bound := alias.AsName
			if bound == "" {
				bound = alias.Name
			}
			// `from pkg import sub` may name a submodule rather than a
			// symbol; probe for the module form first so the child is
			// discovered and kept namespace-importable.
			child := alias.Name
			if s.ModulePath != "" {
				child = s.ModulePath + "." + alias.Name
			}
			if r, ok := d.resolveOne(importSite{
				importString: child, level: s.Level, owner: owner, item: itemIdx, line: s.Line,
				boundName: bound, wholeModule: true, probe: true,
			}); ok {
				d.namespaceImported[r] = true
				continue
			}
			d.resolveOne(importSite{
				importString: s.ModulePath, level: s.Level, owner: owner, item: itemIdx,
				line: s.Line, boundName: bound, sourceName: alias.Name,
			})
		}

	default:
		for _, sub := range s.Body {
			d.discoverStmt(sub, itemIdx, owner, ownerMeta)
		}
		for _, sub := range s.Orelse {
			d.discoverStmt(sub, itemIdx, owner, ownerMeta)
		}
		for _, sub := range s.FinalBody {
			d.discoverStmt(sub, itemIdx, owner, ownerMeta)
		}
		for _, h := range s.Handlers {
			for _, sub := range h.Body {
				d.discoverStmt(sub, itemIdx, owner, ownerMeta)
			}
		}
	}
}

// importSite describes one import occurrence being resolved during
// discovery.
type importSite struct {
	importString string
	level        int
	owner        resolver.ModuleId
	item         int
	line         int
	boundName    string
	sourceName   string
	wholeModule  bool
	wildcard     bool
	// probe suppresses error/diagnostic reporting: the site is a guess
	// (submodule form of a from-import) that legitimately may not exist.
	probe bool
}

func (d *discovery) resolveOne(site importSite) (resolver.ModuleId, bool) {
	resolution, err := d.res.Resolve(site.owner, site.importString, site.level)
	if err != nil {
		if !site.probe {
			d.bag.Add(diagnostics.UnsupportedConstruct, site.importString, site.line, "%v", err)
		}
		return 0, false
	}
	switch resolution.Kind {
	case resolver.ResStdLib:
		if !site.probe && site.item >= 0 && site.boundName != "" {
			node := depgraph.Node{Module: site.owner, Item: depgraph.ItemId(site.item)}
			d.importBindings[node] = append(d.importBindings[node], depgraph.ImportBinding{
				BoundName: site.boundName, SourceName: site.sourceName, Stdlib: true,
			})
		}
		return 0, false
	case resolver.ResThirdParty:
		if !site.probe {
			d.thirdParty[resolution.ThirdPartyName] = true
			if site.item >= 0 && site.boundName != "" {
				node := depgraph.Node{Module: site.owner, Item: depgraph.ItemId(site.item)}
				d.importBindings[node] = append(d.importBindings[node], depgraph.ImportBinding{
					BoundName: site.boundName, SourceName: site.sourceName,
				})
			}
		}
		return 0, false
	case resolver.ResFirstParty:
		d.queue = append(d.queue, resolution.ModuleID)
		d.enqueueAncestors(resolution.ModuleID)
		if site.wholeModule {
			d.namespaceImported[resolution.ModuleID] = true
		}
		if site.wildcard {
			d.wildcardImported[resolution.ModuleID] = true
		}
		if site.item >= 0 {
			node := depgraph.Node{Module: site.owner, Item: depgraph.ItemId(site.item)}
			d.importBindings[node] = append(d.importBindings[node], depgraph.ImportBinding{
				BoundName:    site.boundName,
				SourceName:   site.sourceName,
				FromModule:   resolution.ModuleID,
				IsFirstParty: true,
				WholeModule:  site.wholeModule || site.wildcard,
			})
		}
		return resolution.ModuleID, true
	}
	return 0, false
}

// enqueueAncestors registers and enqueues every package on the dotted
// path above a resolved module: importing `a.b.c` executes a, then
// a.b, then a.b.c, exactly as Python's import machinery does.
func (d *discovery) enqueueAncestors(id resolver.ModuleId) {
	meta, ok := d.res.Metadata(id)
	if !ok {
		return
	}
	segs := strings.Split(meta.DottedName, ".")
	for i := 1; i < len(segs); i++ {
		prefix := strings.Join(segs[:i], ".")
		r, err := d.res.Resolve(id, prefix, 0)
		if err == nil && r.Kind == resolver.ResFirstParty {
			d.queue = append(d.queue, r.ModuleID)
		}
	}
}

// scanDynamicConstructs flags importlib.import_module calls (resolving
// the literal form as a static import, warning on the dynamic form) and
// the constructs spec.md §7 treats as UnsupportedConstruct: exec at
// module scope and direct sys.modules manipulation.
func (d *discovery) scanDynamicConstructs(s *pyast.Stmt, owner resolver.ModuleId, meta resolver.ModuleMetadata) {
	if s.Kind == pyast.KindAssign {
		for _, t := range s.Targets {
			if isSysModulesSubscript(t) {
				d.bag.Add(diagnostics.UnsupportedConstruct, meta.DottedName, s.Line,
					"direct sys.modules manipulation is passed through unchanged")
			}
		}
	}
	for _, e := range []*pyast.Expr{s.Expr, s.Value, s.Test, s.Iter, s.RaiseExc, s.AssertTest, s.AssertMsg} {
		d.scanExpr(e, s.Line, owner, meta)
	}
}

func (d *discovery) scanExpr(e *pyast.Expr, line int, owner resolver.ModuleId, meta resolver.ModuleMetadata) {
	if e == nil {
		return
	}
	if lit, ok := transform.LiteralImportlibCall(e); ok {
		if r, found := d.resolveOne(importSite{
			importString: lit, owner: owner, item: -1, line: line, probe: true,
		}); found {
			d.namespaceImported[r] = true
		}
	} else if transform.IsImportlibCall(e) {
		d.bag.Add(diagnostics.DynamicImportUnknown, meta.DottedName, line,
			"importlib.import_module argument is not a string literal; the call is left untouched")
	}
	if e.Kind == pyast.ECall && e.Func != nil && e.Func.Kind == pyast.EName && e.Func.Id == "exec" {
		d.bag.Add(diagnostics.UnsupportedConstruct, meta.DottedName, line,
			"exec at module scope is passed through unchanged")
	}
	d.scanExpr(e.Value, line, owner, meta)
	d.scanExpr(e.Func, line, owner, meta)
	for _, a := range e.Args {
		d.scanExpr(a, line, owner, meta)
	}
	for _, k := range e.Keywords {
		d.scanExpr(k.Value, line, owner, meta)
	}
	for _, el := range e.Elts {
		d.scanExpr(el, line, owner, meta)
	}
	d.scanExpr(e.Left, line, owner, meta)
	d.scanExpr(e.Right, line, owner, meta)
	for _, o := range e.Operands {
		d.scanExpr(o, line, owner, meta)
	}
	d.scanExpr(e.Test, line, owner, meta)
	d.scanExpr(e.Body, line, owner, meta)
	d.scanExpr(e.Orelse, line, owner, meta)
}

func isSysModulesSubscript(e *pyast.Expr) bool {
	if e == nil || e.Kind != pyast.ESubscript || e.Value == nil {
		return false
	}
	v := e.Value
	return v.Kind == pyast.EAttribute && v.Attr == "modules" &&
		v.Value != nil && v.Value.Kind == pyast.EName && v.Value.Id == "sys"
}

func (d *discovery) moduleByDotted(dotted string) (resolver.ModuleId, bool) {
	for _, m := range d.res.AllModules() {
		if m.DottedName == dotted {
			return m.ID, true
		}
	}
	return 0, false
}

// sideEffecting computes spec.md §4.3's module-level side-effect flag:
// a module with any side-effecting item, plus (to a fixed point) any
// module wildcard-reexporting a side-effecting one.
func (d *discovery) sideEffecting() map[resolver.ModuleId]bool {
	out := map[resolver.ModuleId]bool{}
	for _, mi := range d.graph.Modules() {
		for _, it := range mi.Items {
			if it.SideEffect {
				out[mi.Module] = true
				break
			}
		}
	}
	for changed := true; changed; {
		changed = false
		for owner, sources := range d.starSources {
			if out[owner] {
				continue
			}
			for _, src := range sources {
				if out[src] {
					out[owner] = true
					changed = true
					break
				}
			}
		}
	}
	return out
}

// wildcardReexporters returns the modules containing a `from x import *`
// statement; they are emitted as wrappers so the expanded surface stays
// behind a module object (spec.md §4.5).
func (d *discovery) wildcardReexporters() map[resolver.ModuleId]bool {
	out := map[resolver.ModuleId]bool{}
	for _, mi := range d.graph.Modules() {
		for _, it := range mi.Items {
			if it.IsReexport {
				out[mi.Module] = true
				break
			}
		}
	}
	return out
}

// classBaseDeps pairs each class statement's base-class reads with the
// first-party modules those names were imported from, feeding the
// classifier's unresolvable-cycle check.
func (d *discovery) classBaseDeps() []classify.ClassBaseDep {
	var out []classify.ClassBaseDep
	for _, mi := range d.graph.Modules() {
		imported := map[string]resolver.ModuleId{}
		for _, it := range mi.Items {
			node := depgraph.Node{Module: mi.Module, Item: it.ID}
			for _, ib := range d.importBindings[node] {
				if ib.IsFirstParty && ib.BoundName != "" {
					imported[ib.BoundName] = ib.FromModule
				}
			}
		}
		for _, it := range mi.Items {
			if !it.IsClassDef {
				continue
			}
			for _, base := range it.BaseReads {
				if from, ok := imported[base]; ok && from != mi.Module {
					out = append(out, classify.ClassBaseDep{From: mi.Module, To: from, Name: base})
				}
			}
		}
	}
	return out
}

func emit(cfg Config, d *discovery, plan *classify.Plan, shaken treeshake.Result, entryID resolver.ModuleId) ([]byte, error) {
	names := codegen.NewRenameTable()
	wrappers := codegen.NewWrapperSet()

	dotted := map[resolver.ModuleId]string{}
	metaOf := map[resolver.ModuleId]resolver.ModuleMetadata{}
	for _, m := range d.res.AllModules() {
		dotted[m.ID] = m.DottedName
		metaOf[m.ID] = m
	}

	entryWrapper := plan.Strategy[entryID] == classify.Wrapper

	// Synthetic-name assignment walks the entry first (its names keep
	// their original spelling), then every other module in emission
	// order, so collisions resolve with deterministic _2/_3 suffixes
	// (spec.md §4.6.1).
	liveDefines := func(id resolver.ModuleId) []string {
		mi := d.graph.ModuleItemsFor(id)
		if mi == nil {
			return nil
		}
		var out []string
		for _, it := range mi.Items {
			if id == entryID || shaken.Live[depgraph.Node{Module: id, Item: it.ID}] {
				out = append(out, it.Defines...)
			}
		}
		return out
	}
	if !entryWrapper {
		reserveEntryNames(d, plan, names, dotted, entryID)
	}
	registerModule := func(m resolver.ModuleId) {
		meta := metaOf[m]
		isPackage := meta.Kind == resolver.PackageInit || meta.Kind == resolver.NamespacePackageDir
		switch {
		case plan.Strategy[m] == classify.Wrapper:
			wrappers.Add(names, m, dotted[m], meta.CanonicalPath, isPackage)
		default:
			for _, n := range liveDefines(m) {
				names.Assign(m, n)
			}
		}
	}
	for _, scc := range plan.Order {
		for _, m := range scc.Modules {
			if !shaken.LiveModules[m] || (m == entryID && !entryWrapper) {
				continue
			}
			registerModule(m)
		}
	}
	if entryWrapper {
		// Ensure the entry has wrapper names even if the graph walk
		// somehow missed it.
		registerModule(entryID)
	}

	exportsFn := func(id resolver.ModuleId) []string {
		model := d.models[id]
		if model == nil {
			return nil
		}
		mi := d.graph.ModuleItemsFor(id)
		if cfg.NoTreeShake || mi == nil {
			return model.ExportedNames()
		}
		return treeshake.LiveExportedNames(shaken, id, mi, model)
	}

	newRewriter := func(m resolver.ModuleId, kind transform.OwnerKind) *transform.Rewriter {
		selfRenames := map[string]string{}
		if kind != transform.OwnerWrapper {
			for _, n := range liveDefines(m) {
				if syn, ok := names.Lookup(m, n); ok {
					selfRenames[n] = syn
				}
			}
		}
		return &transform.Rewriter{
			Names:        names,
			ModuleDotted: dotted,
			Wrappers:     wrappers,
			Owner:        m,
			OwnerKind:    kind,
			SelfRenames:  selfRenames,
			Resolve: func(importString string, level int) (transform.Resolved, bool) {
				r, err := d.res.Resolve(m, importString, level)
				if err != nil {
					return transform.Resolved{}, false
				}
				strat := classify.Inline
				if r.Kind == resolver.ResFirstParty {
					strat = plan.Strategy[r.ModuleID]
				}
				return transform.Resolved{Resolution: r, Strategy: strat}, true
			},
			Exports: exportsFn,
		}
	}

	var futures []string
	futureSeen := map[string]bool{}
	collectFutures := func(id resolver.ModuleId) {
		mod := d.modules[id]
		if mod == nil {
			return
		}
		for _, f := range mod.FutureImports {
			if !futureSeen[f] {
				futureSeen[f] = true
				futures = append(futures, f)
			}
		}
	}

	// Parent attachments (`pkg.sub = pkg_sub`) are emitted as soon as
	// both module objects exist.
	type attachPair struct {
		parent, child resolver.ModuleId
		attr          string
	}
	var pairs []attachPair
	created := map[resolver.ModuleId]bool{}
	attached := map[attachPair]bool{}

	var finalBody []*pyast.Stmt
	emitAttachments := func(m resolver.ModuleId) {
		for _, p := range pairs {
			if attached[p] || (p.parent != m && p.child != m) || !created[p.parent] || !created[p.child] {
				continue
			}
			attached[p] = true
			parentInfo, _ := wrappers.ByID(p.parent)
			childInfo, _ := wrappers.ByID(p.child)
			finalBody = append(finalBody, pyast.AssignStmt(
				pyast.AttrExpr(pyast.NameExpr(parentInfo.ModuleVar), p.attr),
				pyast.NameExpr(childInfo.ModuleVar),
			))
		}
	}
	for _, scc := range plan.Order {
		for _, m := range scc.Modules {
			if _, ok := wrappers.ByID(m); !ok {
				continue
			}
			dn := dotted[m]
			if i := strings.LastIndexByte(dn, '.'); i >= 0 {
				if parent, ok := d.moduleByDotted(dn[:i]); ok {
					if _, isWrapper := wrappers.ByID(parent); isWrapper {
						pairs = append(pairs, attachPair{parent: parent, child: m, attr: dn[i+1:]})
					}
				}
			}
		}
	}

	rewriteBody := func(m resolver.ModuleId, kind transform.OwnerKind) []*pyast.Stmt {
		mod := d.modules[m]
		if mod == nil {
			return nil
		}
		body := mod.Body
		if m != entryID {
			body = liveStatements(body, m, shaken)
		}
		return newRewriter(m, kind).RewriteModule(body)
	}

	emitWrapperGroup := func(members []resolver.ModuleId) {
		// Two-phase emission (spec.md §4.6.5): every module object of
		// the group exists before any init function body that may
		// reference a sibling's name runs or is even defined.
		for _, m := range members {
			info, _ := wrappers.ByID(m)
			finalBody = append(finalBody, codegen.BuildModuleObject(info)...)
			created[m] = true
			emitAttachments(m)
		}
		for _, m := range members {
			collectFutures(m)
			info, _ := wrappers.ByID(m)
			finalBody = append(finalBody, codegen.BuildWrapperInit(names, info, rewriteBody(m, transform.OwnerWrapper)))
		}
		for _, m := range members {
			info, _ := wrappers.ByID(m)
			finalBody = append(finalBody, codegen.BuildInitAttach(info))
		}
	}

	for _, scc := range plan.Order {
		var wrapperMembers []resolver.ModuleId
		for _, m := range scc.Modules {
			if !shaken.LiveModules[m] || m == entryID {
				continue
			}
			if _, ok := wrappers.ByID(m); ok {
				wrapperMembers = append(wrapperMembers, m)
			}
		}
		if len(wrapperMembers) > 0 {
			emitWrapperGroup(wrapperMembers)
		}
		for _, m := range scc.Modules {
			if !shaken.LiveModules[m] || m == entryID {
				continue
			}
			if _, ok := wrappers.ByID(m); ok {
				continue
			}
			collectFutures(m)
			finalBody = append(finalBody, rewriteBody(m, transform.OwnerInline)...)
		}
	}

	collectFutures(entryID)
	if entryWrapper {
		info, ok := wrappers.ByID(entryID)
		if !ok {
			return nil, bundleerrors.Wrap(bundleerrors.Internal("codegen", "entry classified as wrapper but has no wrapper names"))
		}
		finalBody = append(finalBody, codegen.BuildModuleObject(info)...)
		created[entryID] = true
		emitAttachments(entryID)
		finalBody = append(finalBody, codegen.BuildWrapperInit(names, info, rewriteBody(entryID, transform.OwnerWrapper)))
		finalBody = append(finalBody, codegen.BuildInitAttach(info))
		finalBody = append(finalBody, codegen.BuildInitCall(info))
	} else {
		finalBody = append(finalBody, rewriteBody(entryID, transform.OwnerEntry)...)
	}

	out := &pyast.Module{
		Filename:      "bundle.py",
		FutureImports: futures,
		Body:          append(codegen.BuildPrelude(), finalBody...),
	}
	return pyast.Unparse(out), nil
}

// reserveEntryNames claims the entry module's surviving top-level
// names first, so they are emitted without suffix (spec.md §4.6.1).
// Names bound by imports that the rewrite dissolves into use-site
// substitutions (stdlib and inlined first-party targets) are not
// reserved — they never appear as entry bindings in the output. A
// whole-module binding whose spelling coincides with the target's
// module variable is also skipped, so the module variable itself can
// keep the bare name.
func reserveEntryNames(d *discovery, plan *classify.Plan, names *codegen.RenameTable, dotted map[resolver.ModuleId]string, entryID resolver.ModuleId) {
	mi := d.graph.ModuleItemsFor(entryID)
	if mi == nil {
		return
	}
	for _, it := range mi.Items {
		bindings := d.importBindings[depgraph.Node{Module: entryID, Item: it.ID}]
		byName := map[string]depgraph.ImportBinding{}
		for _, ib := range bindings {
			byName[ib.BoundName] = ib
		}
		for _, n := range it.Defines {
			if ib, ok := byName[n]; ok {
				switch {
				case ib.Stdlib:
					continue
				case ib.IsFirstParty && plan.Strategy[ib.FromModule] != classify.Wrapper:
					continue
				case ib.IsFirstParty && ib.WholeModule && n == codegen.Sanitize(dotted[ib.FromModule]):
					continue
				}
			}
			names.Assign(entryID, n)
		}
	}
}

// liveStatements drops every top-level statement of a module whose
// corresponding graph item did not survive tree-shaking, preserving
// source order.
func liveStatements(body []*pyast.Stmt, id resolver.ModuleId, shaken treeshake.Result) []*pyast.Stmt {
	var out []*pyast.Stmt
	for i, s := range body {
		if shaken.Live[depgraph.Node{Module: id, Item: depgraph.ItemId(i)}] {
			out = append(out, s)
		}
	}
	return out
}
