package pyast

import (
	"bytes"
	"fmt"

	gast "github.com/go-python/gpython/ast"
	"github.com/go-python/gpython/parser"
	"golang.org/x/text/unicode/norm"
)

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// normalize strips a UTF-8 BOM and applies Unicode NFC normalization,
// mirroring the lexer-boundary normalization AILANG performs so that
// identifiers compare equal independent of source encoding.
func normalize(src []byte) []byte {
	src = bytes.TrimPrefix(src, bomUTF8)
	if !norm.NFC.IsNormal(src) {
		src = norm.NFC.Bytes(src)
	}
	return src
}

// Parse parses Python source into the bundler's tagged-variant AST.
// Parsing itself is delegated to gpython (the external capability
// spec.md §1 assumes); this function's job is purely to lower gpython's
// node types into ours.
func Parse(filename string, src []byte) (*Module, error) {
	src = normalize(src)

	tree, err := parser.ParseString(string(src), "exec")
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", filename, err)
	}

	mod, ok := tree.(*gast.Module)
	if !ok {
		return nil, fmt.Errorf("parse error in %s: expected module, got %T", filename, tree)
	}

	m := &Module{Filename: filename}
	for _, s := range mod.Body {
		if fi, ok := futureImportNames(s); ok {
			m.FutureImports = append(m.FutureImports, fi...)
			continue
		}
		m.Body = append(m.Body, convertStmt(s))
	}
	return m, nil
}

func futureImportNames(s gast.Stmt) ([]string, bool) {
	imp, ok := s.(*gast.ImportFrom)
	if !ok || string(imp.Module) != "__future__" {
		return nil, false
	}
	names := make([]string, 0, len(imp.Names))
	for _, a := range imp.Names {
		names = append(names, string(a.Name))
	}
	return names, true
}
