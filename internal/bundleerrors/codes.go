// Package bundleerrors provides centralized error code definitions and a
// structured report type for the cribo bundling core. All error codes
// follow a consistent taxonomy for machine-readable diagnostics, mirroring
// the phase-grouped code scheme the teacher project uses for its own
// compiler errors.
package bundleerrors

import "strings"

// Error code constants, grouped by the phase (spec.md §2 component) that
// raises them.
const (
	// ============================================================
	// Resolver errors (RES###) — internal/resolver, spec.md §4.1
	// ============================================================

	// RES001 indicates a first-party dotted import could not be found on
	// any configured search root.
	RES001 = "RES001"

	// RES002 indicates a relative import walked past the top of its
	// package (too many leading dots for the importer's depth).
	RES002 = "RES002"

	// RES003 indicates two distinct registrations canonicalized to the
	// same path with conflicting dotted names.
	RES003 = "RES003"

	// ============================================================
	// Parse errors (PAR###) — delegated to the external parser
	// ============================================================

	// PAR001 indicates the external parser rejected a source file.
	PAR001 = "PAR001"

	// ============================================================
	// Dependency graph errors (DEP###) — internal/depgraph, spec.md §4.2
	// ============================================================

	// DEP001 indicates an import edge points at a module absent from the
	// graph (an Internal invariant violation — should not happen in
	// correct code, since the resolver registers every import target
	// before the graph is built).
	DEP001 = "DEP001"

	// DEP002 indicates a cycle whose wrapper-mechanism handling would
	// require a base class to be known at class-statement execution
	// time; see spec.md §9's open question on class-inheritance cycles.
	DEP002 = "DEP002"

	// ============================================================
	// Semantic analysis errors (SEM###) — internal/semantic, spec.md §4.3
	// ============================================================

	// SEM001 indicates a dynamic importlib.import_module() call whose
	// argument is not a string literal.
	SEM001 = "SEM001"

	// SEM002 indicates a construct whose semantics cannot be faithfully
	// preserved by the bundler (e.g. exec() at module scope).
	SEM002 = "SEM002"

	// ============================================================
	// Code generation invariants (GEN###) — internal/codegen, spec.md §4.6
	// ============================================================

	// GEN001 indicates a reachable module reached code generation with
	// no recorded metadata — an Internal invariant violation.
	GEN001 = "GEN001"

	// ============================================================
	// I/O errors (IO###)
	// ============================================================

	// IO001 indicates a source file could not be read.
	IO001 = "IO001"

	// IO002 indicates the output file could not be written.
	IO002 = "IO002"
)

// ExitCode maps an error code's phase prefix to the process exit code
// contract in spec.md §6.
func ExitCode(code string) int {
	switch {
	case strings.HasPrefix(code, "RES"), strings.HasPrefix(code, "DEP"), strings.HasPrefix(code, "SEM"):
		return 1
	case strings.HasPrefix(code, "PAR"):
		return 2
	case strings.HasPrefix(code, "IO"):
		return 3
	case strings.HasPrefix(code, "GEN"):
		return 4
	default:
		return 1
	}
}
