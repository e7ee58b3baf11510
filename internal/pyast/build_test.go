package pyast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttrChainBuildsNestedAttributes(t *testing.T) {
	e := AttrChain("a", "b", "c")
	out := string(Unparse(&Module{Body: []*Stmt{ExprStmtNode(e)}}))
	assert.Equal(t, "a.b.c\n", out)
}

func TestCallKwOrdersKeywordsAsGiven(t *testing.T) {
	call := CallKw(NameExpr("f"), nil, map[string]*Expr{"b": NumExpr("2"), "a": NumExpr("1")}, []string{"a", "b"})
	out := string(Unparse(&Module{Body: []*Stmt{ExprStmtNode(call)}}))
	assert.Equal(t, "f(a=1, b=2)\n", out)
}

func TestBoolAndNoneExprRender(t *testing.T) {
	out := string(Unparse(&Module{Body: []*Stmt{
		ExprStmtNode(BoolExpr(true)),
		ExprStmtNode(BoolExpr(false)),
		ExprStmtNode(NoneExpr()),
	}}))
	assert.Equal(t, "True\nFalse\nNone\n", out)
}
