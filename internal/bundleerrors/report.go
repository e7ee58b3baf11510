package bundleerrors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SchemaVersion identifies the structured error report schema.
const SchemaVersion = "cribo.error/v1"

// Report is the canonical structured error type for the bundler. All
// error constructors in the core return a *Report wrapped as an error
// via Wrap, so callers can recover the structured form with As.
type Report struct {
	Schema  string         `json:"schema"`
	Code    string         `json:"code"`
	Phase   string         `json:"phase"`
	Message string         `json:"message"`
	Module  string         `json:"module,omitempty"`
	Import  string         `json:"import,omitempty"`
	Cycle   []string       `json:"cycle,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// reportError wraps a Report as an error so it survives errors.As.
type reportError struct{ rep *Report }

func (e *reportError) Error() string {
	if e.rep == nil {
		return "unknown bundling error"
	}
	return fmt.Sprintf("%s: %s", e.rep.Code, e.rep.Message)
}

// Wrap wraps a Report as an error.
func Wrap(r *Report) error {
	if r == nil {
		return nil
	}
	return &reportError{rep: r}
}

// As extracts a *Report from an error chain.
func As(err error) (*Report, bool) {
	var re *reportError
	if errors.As(err, &re) {
		return re.rep, true
	}
	return nil, false
}

// New builds a Report for the given phase/code/message.
func New(phase, code, message string) *Report {
	return &Report{Schema: SchemaVersion, Phase: phase, Code: code, Message: message}
}

// JSON renders the report as deterministic JSON: fields in declaration
// order, keys of the Data map sorted.
func (r *Report) JSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Resolve builds a RES001 "first-party module not found" report.
func Resolve(importString string, searchRoots []string) *Report {
	return &Report{
		Schema:  SchemaVersion,
		Phase:   "resolve",
		Code:    RES001,
		Message: fmt.Sprintf("first-party module not found: %q", importString),
		Import:  importString,
		Data:    map[string]any{"search_roots": searchRoots},
	}
}

// Parse builds a PAR001 "parser rejected source" report.
func Parse(path string, cause error) *Report {
	return &Report{
		Schema:  SchemaVersion,
		Phase:   "parse",
		Code:    PAR001,
		Message: fmt.Sprintf("failed to parse %s: %v", path, cause),
		Module:  path,
	}
}

// CycleUnresolvable builds a DEP002 report for a cycle the wrapper
// mechanism cannot handle (spec.md §9's class-inheritance open question).
func CycleUnresolvable(members []string, reason string) *Report {
	return &Report{
		Schema:  SchemaVersion,
		Phase:   "classify",
		Code:    DEP002,
		Message: fmt.Sprintf("circular dependency cannot be resolved: %s", reason),
		Cycle:   members,
	}
}

// Internal builds a report for an invariant violation — a defect in the
// core itself rather than a malformed input.
func Internal(phase, message string) *Report {
	return &Report{Schema: SchemaVersion, Phase: phase, Code: "INTERNAL", Message: message}
}
