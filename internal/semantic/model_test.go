package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunholo/cribo/internal/pyast"
)

func mod(body ...*pyast.Stmt) *pyast.Module {
	return &pyast.Module{Filename: "t.py", Body: body}
}

func TestAnalyzeTopLevelBindings(t *testing.T) {
	m := mod(
		pyast.AssignStmt(pyast.NameExpr("x"), pyast.NumExpr("1")),
		&pyast.Stmt{Kind: pyast.KindFunctionDef, Name: "f", Args: &pyast.Arguments{}},
	)
	model := Analyze("mymod", m)

	_, ok := model.TopLevelBindings["x"]
	assert.True(t, ok)
	_, ok = model.TopLevelBindings["f"]
	assert.True(t, ok)
}

func TestAnalyzeStaticDunderAll(t *testing.T) {
	m := mod(
		pyast.AssignStmt(pyast.NameExpr("foo"), pyast.NumExpr("1")),
		pyast.AssignStmt(pyast.NameExpr("bar"), pyast.NumExpr("2")),
		pyast.AssignStmt(pyast.NameExpr("__all__"), pyast.ListExpr(pyast.StrExpr("foo"))),
	)
	model := Analyze("mymod", m)

	require.NotNil(t, model.DunderAll)
	assert.Equal(t, []string{"foo"}, model.DunderAll)
	assert.True(t, model.Exported("foo"))
	assert.False(t, model.Exported("bar"))
}

func TestAnalyzeDynamicDunderAllFallsBackToDefaultRule(t *testing.T) {
	m := mod(
		pyast.AssignStmt(pyast.NameExpr("foo"), pyast.NumExpr("1")),
		pyast.AssignStmt(pyast.NameExpr("_hidden"), pyast.NumExpr("2")),
		pyast.AssignStmt(pyast.NameExpr("__all__"), pyast.CallExpr(pyast.NameExpr("compute_exports"))),
	)
	model := Analyze("mymod", m)

	assert.True(t, model.HasDynamicDunderAll)
	assert.Nil(t, model.DunderAll)
	assert.True(t, model.Exported("foo"))
	assert.False(t, model.Exported("_hidden"))
}

func TestModuleInitReadsExcludesFunctionBody(t *testing.T) {
	fn := &pyast.Stmt{
		Kind: pyast.KindFunctionDef,
		Name: "f",
		Args: &pyast.Arguments{},
		Body: []*pyast.Stmt{pyast.ExprStmtNode(pyast.NameExpr("only_used_at_call_time"))},
	}
	topLevelRead := pyast.ExprStmtNode(pyast.NameExpr("used_at_import_time"))
	m := mod(fn, topLevelRead)

	model := Analyze("mymod", m)

	assert.True(t, model.ModuleInitReads["used_at_import_time"])
	assert.False(t, model.ModuleInitReads["only_used_at_call_time"])
}

func TestModuleInitReadsIncludesDecoratorAndDefault(t *testing.T) {
	fn := &pyast.Stmt{
		Kind:       pyast.KindFunctionDef,
		Name:       "f",
		Decorators: []*pyast.Expr{pyast.NameExpr("some_decorator")},
		Args: &pyast.Arguments{
			Args:     []string{"x"},
			Defaults: []*pyast.Expr{pyast.NameExpr("default_value")},
		},
	}
	model := Analyze("mymod", mod(fn))

	assert.True(t, model.ModuleInitReads["some_decorator"])
	assert.True(t, model.ModuleInitReads["default_value"])
}

func TestModuleInitReadsIncludesClassBaseAndBody(t *testing.T) {
	cls := &pyast.Stmt{
		Kind:  pyast.KindClassDef,
		Name:  "C",
		Bases: []*pyast.Expr{pyast.NameExpr("Base")},
		Body: []*pyast.Stmt{
			pyast.AssignStmt(pyast.NameExpr("attr"), pyast.NameExpr("class_body_read")),
		},
	}
	model := Analyze("mymod", mod(cls))

	assert.True(t, model.ModuleInitReads["Base"])
	assert.True(t, model.ModuleInitReads["class_body_read"])
}
