package pyast

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnparseSimpleAssignAndCall(t *testing.T) {
	m := &Module{
		Body: []*Stmt{
			AssignStmt(NameExpr("x"), NumExpr("1")),
			ExprStmtNode(CallExpr(AttrExpr(NameExpr("os"), "getcwd"))),
		},
	}
	out := string(Unparse(m))
	assert.Equal(t, "x = 1\nos.getcwd()\n", out)
}

func TestUnparseImportWithAsName(t *testing.T) {
	m := &Module{Body: []*Stmt{ImportStmt(&Alias{Name: "numpy", AsName: "np"})}}
	out := string(Unparse(m))
	assert.Equal(t, "import numpy as np\n", out)
}

func TestUnparseImportFromRelative(t *testing.T) {
	m := &Module{Body: []*Stmt{
		{Kind: KindImportFrom, Level: 1, ModulePath: "sub", Names: []*Alias{{Name: "thing"}}},
	}}
	out := string(Unparse(m))
	assert.Equal(t, "from .sub import thing\n", out)
}

func TestUnparseFunctionDefWithDefaultAndReturn(t *testing.T) {
	fn := &Stmt{
		Kind: KindFunctionDef,
		Name: "add",
		Args: &Arguments{Args: []string{"a", "b"}, Defaults: []*Expr{NumExpr("2")}},
		Body: []*Stmt{{Kind: KindReturn, Expr: CompareExpr(NameExpr("a"), "==", NameExpr("b"))}},
	}
	out := string(Unparse(&Module{Body: []*Stmt{fn}}))
	assert.True(t, strings.HasPrefix(out, "def add(a, b=2):\n"))
	assert.Contains(t, out, "return (a == b)\n")
}

func TestUnparseClassDefWithBase(t *testing.T) {
	cls := &Stmt{Kind: KindClassDef, Name: "Child", Bases: []*Expr{NameExpr("Base")}, Body: []*Stmt{{Kind: KindPass}}}
	out := string(Unparse(&Module{Body: []*Stmt{cls}}))
	assert.Equal(t, "class Child(Base):\n    pass\n", out)
}

func TestUnparseIfElse(t *testing.T) {
	ifs := &Stmt{
		Kind:   KindIf,
		Test:   NameExpr("cond"),
		Body:   []*Stmt{ExprStmtNode(NameExpr("a"))},
		Orelse: []*Stmt{ExprStmtNode(NameExpr("b"))},
	}
	out := string(Unparse(&Module{Body: []*Stmt{ifs}}))
	assert.Equal(t, "if cond:\n    a\nelse:\n    b\n", out)
}

func TestUnparseSubscriptAssign(t *testing.T) {
	s := AssignStmt(SubscriptExpr(NameExpr("d"), StrExpr("k")), NumExpr("0"))
	out := string(Unparse(&Module{Body: []*Stmt{s}}))
	assert.Equal(t, "d['k'] = 0\n", out)
}

func TestUnparseFutureImportsPrecedeBody(t *testing.T) {
	m := &Module{
		FutureImports: []string{"annotations"},
		Body:          []*Stmt{ExprStmtNode(NameExpr("x"))},
	}
	out := string(Unparse(m))
	assert.Equal(t, "from __future__ import annotations\n\nx\n", out)
}
