// Package diagnostics collects the bundler's non-fatal findings —
// DynamicImportUnknown and UnsupportedConstruct per spec.md §7 — so a
// caller can print them after a successful run instead of the core
// printing ad hoc as it walks modules.
package diagnostics

import "fmt"

// Kind tags a diagnostic's category.
type Kind string

const (
	DynamicImportUnknown Kind = "DynamicImportUnknown"
	UnsupportedConstruct Kind = "UnsupportedConstruct"
)

// Diagnostic is one non-fatal finding.
type Diagnostic struct {
	Kind    Kind
	Module  string
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d: %s: %s", d.Module, d.Line, d.Kind, d.Message)
}

// Bag accumulates diagnostics in insertion order, per spec.md §5's
// determinism contract.
type Bag struct {
	items []Diagnostic
}

// Add appends a diagnostic.
func (b *Bag) Add(kind Kind, module string, line int, format string, args ...interface{}) {
	b.items = append(b.items, Diagnostic{Kind: kind, Module: module, Line: line, Message: fmt.Sprintf(format, args...)})
}

// Items returns all diagnostics in insertion order.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Empty reports whether no diagnostics were recorded.
func (b *Bag) Empty() bool {
	return len(b.items) == 0
}
