// Package resolver implements the Module Resolver (spec.md §4.1, C1):
// classification of import names, location of source files, ModuleId
// assignment, and module-kind recording. Ported from the shape of
// ailang's internal/module.Resolver (NormalizePath/ResolveImport/
// GetModuleIdentity), generalized from AILANG's .ail/std scheme to
// Python's dotted-name, relative-level, stdlib-allowlist scheme.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sunholo/cribo/internal/bundleerrors"
)

// Resolver owns the single mutable registry of ModuleId → metadata. It
// is mutated only during discovery (ids and entries grow monotonically);
// every later phase takes a read-only view, per spec.md §5.
type Resolver struct {
	pythonVersion [2]int
	stdlib        map[string]bool
	sourceRoots   []string // entry dir, explicit --src roots, PYTHONPATH, in search order

	modules  []ModuleMetadata
	byPath   map[string]ModuleId
	byDotted map[string]ModuleId
}

// New creates a Resolver with the given search roots (entry directory
// first) and target Python version. It does not yet register anything;
// call RegisterEntry to obtain ModuleId(0).
func New(sourceRoots []string, pythonVersion [2]int) *Resolver {
	return &Resolver{
		pythonVersion: pythonVersion,
		stdlib:        StdlibModules(pythonVersion),
		sourceRoots:   sourceRoots,
		byPath:        make(map[string]ModuleId),
		byDotted:      make(map[string]ModuleId),
	}
}

// RegisterEntry registers the entry file. It must be called exactly once,
// before any other registration, to satisfy the ModuleId(0) invariant.
func (r *Resolver) RegisterEntry(entryPath string) (ModuleId, error) {
	if len(r.modules) != 0 {
		return 0, fmt.Errorf("RegisterEntry called after other modules were registered")
	}
	canonical, err := canonicalize(entryPath)
	if err != nil {
		return 0, err
	}
	kind := EntryScript
	dotted := strings.TrimSuffix(filepath.Base(canonical), ".py")
	if filepath.Base(canonical) == "__init__.py" {
		kind = PackageInit
		dotted = filepath.Base(filepath.Dir(canonical))
	} else if dotted == "__main__" {
		dotted = filepath.Base(filepath.Dir(canonical))
	}
	return r.register(dotted, canonical, kind), nil
}

// Register records a module by dotted name and path, idempotent by
// canonicalized path: the first registration for a given path wins the
// id, and a later call with the same path returns the existing id.
func (r *Resolver) Register(dottedName, path string, kind ModuleKind) (ModuleId, error) {
	canonical, err := canonicalize(path)
	if err != nil {
		return 0, err
	}
	if id, ok := r.byPath[canonical]; ok {
		return id, nil
	}
	return r.register(dottedName, canonical, kind), nil
}

func (r *Resolver) register(dottedName, canonicalPath string, kind ModuleKind) ModuleId {
	id := ModuleId(len(r.modules))
	r.modules = append(r.modules, ModuleMetadata{ID: id, DottedName: dottedName, CanonicalPath: canonicalPath, Kind: kind})
	r.byPath[canonicalPath] = id
	r.byDotted[dottedName] = id
	return id
}

// Metadata returns the metadata for a registered ModuleId.
func (r *Resolver) Metadata(id ModuleId) (ModuleMetadata, bool) {
	if int(id) < 0 || int(id) >= len(r.modules) {
		return ModuleMetadata{}, false
	}
	return r.modules[id], true
}

// AllModules returns every registered module's metadata, in discovery
// (= ModuleId) order.
func (r *Resolver) AllModules() []ModuleMetadata {
	out := make([]ModuleMetadata, len(r.modules))
	copy(out, r.modules)
	return out
}

// ClassifyName derives the coarse stdlib/first-party/third-party class of
// an absolute dotted import: stdlib when its top-level segment is in the
// stdlib table, else first-party when the full dotted name is found on a
// source root, else third-party. It registers nothing.
func (r *Resolver) ClassifyName(name string) ModuleKindClass {
	top := name
	if i := strings.IndexByte(name, '.'); i >= 0 {
		top = name[:i]
	}
	if r.stdlib[top] {
		return StandardLibrary
	}
	if _, _, found := r.findOnRoots(strings.Split(name, ".")); found {
		return FirstParty
	}
	return ThirdParty
}

// Resolve resolves one import statement. importingID identifies the
// importing module (used to anchor relative imports); importString is
// the dotted module name as written (absolute form) or the module
// following the dots (relative form, may be empty for `from . import x`);
// level is the number of leading dots (0 for an absolute import).
func (r *Resolver) Resolve(importingID ModuleId, importString string, level int) (Resolution, error) {
	if level > 0 {
		return r.resolveRelative(importingID, importString, level)
	}
	return r.resolveAbsolute(importString)
}

func (r *Resolver) resolveAbsolute(importString string) (Resolution, error) {
	top := importString
	if i := strings.IndexByte(importString, '.'); i >= 0 {
		top = importString[:i]
	}
	if r.stdlib[top] {
		return Resolution{Kind: ResStdLib, StdlibName: importString}, nil
	}

	segments := strings.Split(importString, ".")
	path, kind, found := r.findOnRoots(segments)
	if found {
		id, err := r.Register(importString, path, kind)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Kind: ResFirstParty, ModuleID: id}, nil
	}

	// Not stdlib, not found on any first-party root: treat as third-party
	// (recorded verbatim per spec.md §1 Non-goals).
	return Resolution{Kind: ResThirdParty, ThirdPartyName: top}, nil
}

// resolveRelative walks up `level` package components from the importer's
// package directory before resolving the remaining dotted name, per
// spec.md §4.1 point 2: the first dot always refers to the importer's
// own package (a no-op dedent, since both a package's __init__.py and an
// ordinary module already live in their package's directory); each
// further dot walks up one more directory.
func (r *Resolver) resolveRelative(importingID ModuleId, importString string, level int) (Resolution, error) {
	meta, ok := r.Metadata(importingID)
	if !ok {
		return Resolution{}, fmt.Errorf("resolveRelative: unknown importing module %d", importingID)
	}

	// The directory containing the importing file is already that
	// file's own package directory — true whether the file is a
	// package's __init__.py or an ordinary module living inside the
	// package — so a single leading dot (level 1) needs zero dedents
	// from here; each additional dot walks up one more directory.
	dir := filepath.Dir(meta.CanonicalPath)
	dedents := level - 1
	for i := 0; i < dedents; i++ {
		parent := filepath.Dir(dir)
		if parent == dir {
			return Resolution{}, bundleerrors.Wrap(bundleerrors.New("resolve", "RES002",
				fmt.Sprintf("relative import level %d exceeds package depth of %s", level, meta.DottedName)))
		}
		dir = parent
	}

	packageDotted := dottedForDir(dir, r.sourceRoots)

	full := importString
	if packageDotted != "" {
		if importString == "" {
			full = packageDotted
		} else {
			full = packageDotted + "." + importString
		}
	}

	path, kind, found := r.findInDir(dir, strings.Split(importString, "."), importString == "")
	if !found {
		return Resolution{}, bundleerrors.Wrap(bundleerrors.Resolve(full, r.sourceRoots))
	}
	id, err := r.Register(full, path, kind)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Kind: ResFirstParty, ModuleID: id}, nil
}

// findOnRoots searches every configured source root, in order, for the
// dotted module path given as segments. Module-first resolution: a
// regular module (name.py) wins over a same-named package directory.
func (r *Resolver) findOnRoots(segments []string) (path string, kind ModuleKind, found bool) {
	for _, root := range r.sourceRoots {
		if p, k, ok := r.findInDir(root, segments, false); ok {
			return p, k, true
		}
	}
	return "", 0, false
}

// findInDir resolves `segments` relative to baseDir. If bare is true and
// segments is a single empty string, baseDir itself (a package) is the
// target, used for `from . import x`.
func (r *Resolver) findInDir(baseDir string, segments []string, bare bool) (string, ModuleKind, bool) {
	if bare {
		if isDir(baseDir) {
			if init := filepath.Join(baseDir, "__init__.py"); isFile(init) {
				return init, PackageInit, true
			}
			return baseDir, NamespacePackageDir, true
		}
		return "", 0, false
	}

	dir := baseDir
	for _, seg := range segments[:len(segments)-1] {
		dir = filepath.Join(dir, seg)
		if !isDir(dir) {
			return "", 0, false
		}
	}
	last := segments[len(segments)-1]
	candidateDir := filepath.Join(dir, last)
	candidateFile := candidateDir + ".py"

	// Module-first: prefer `name.py` over `name/__init__.py`.
	if isFile(candidateFile) {
		return candidateFile, RegularModule, true
	}
	if isDir(candidateDir) {
		if init := filepath.Join(candidateDir, "__init__.py"); isFile(init) {
			return init, PackageInit, true
		}
		return candidateDir, NamespacePackageDir, true
	}
	return "", 0, false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// canonicalize resolves symlinks and makes the path absolute so that
// duplicate paths collapse to the first-seen ModuleId.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot make path absolute: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return filepath.Clean(abs), nil
		}
		return "", fmt.Errorf("cannot resolve symlinks for %s: %w", abs, err)
	}
	return resolved, nil
}

// dottedForDir best-effort derives the dotted package name for a
// directory relative to the configured source roots, used to build the
// fully-qualified name of a relatively-imported module.
func dottedForDir(dir string, roots []string) string {
	for _, root := range roots {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if rel, err := filepath.Rel(rootAbs, dir); err == nil && !strings.HasPrefix(rel, "..") && rel != "." {
			return strings.ReplaceAll(rel, string(filepath.Separator), ".")
		}
		if dir == rootAbs {
			return ""
		}
	}
	return ""
}
