package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunholo/cribo/internal/pyast"
	"github.com/sunholo/cribo/internal/resolver"
)

func TestWrapperSetDerivesSanitizedModuleVar(t *testing.T) {
	names := NewRenameTable()
	ws := NewWrapperSet()
	info := ws.Add(names, resolver.ModuleId(1), "pkg.sub", "/proj/pkg/sub.py", false)

	assert.Equal(t, "pkg_sub", info.ModuleVar)
	assert.Contains(t, info.InitFunc, "_cribo_init__")
	assert.Contains(t, info.InitFunc, "_pkg_sub")
}

func TestWrapperSetModuleVarYieldsToEarlierClaimant(t *testing.T) {
	names := NewRenameTable()
	names.Assign(resolver.ModuleId(0), "pkg_sub") // entry symbol got there first
	ws := NewWrapperSet()
	info := ws.Add(names, resolver.ModuleId(1), "pkg.sub", "/proj/pkg/sub.py", false)

	assert.Equal(t, "pkg_sub_2", info.ModuleVar)
}

func TestWrapperSetInitFuncNameIsDeterministic(t *testing.T) {
	a := NewWrapperSet().Add(NewRenameTable(), 1, "pkg", "/proj/pkg/__init__.py", true)
	b := NewWrapperSet().Add(NewRenameTable(), 1, "pkg", "/proj/pkg/__init__.py", true)
	assert.Equal(t, a.InitFunc, b.InitFunc)
}

func TestWrapperSetLookupByDotted(t *testing.T) {
	names := NewRenameTable()
	ws := NewWrapperSet()
	ws.Add(names, resolver.ModuleId(2), "foo.boo", "/proj/foo/boo.py", false)

	info, ok := ws.ByDotted("foo.boo")
	require.True(t, ok)
	assert.Equal(t, resolver.ModuleId(2), info.Module)
	_, ok = ws.ByDotted("foo")
	assert.False(t, ok)
}

func TestBuildModuleObjectRegistersInSysModules(t *testing.T) {
	info := &WrapperInfo{Module: 1, Dotted: "foo", ModuleVar: "foo", InitFunc: "_cribo_init__0_foo"}
	stmts := BuildModuleObject(info)

	require.Len(t, stmts, 2)
	create := stmts[0]
	require.Equal(t, pyast.KindAssign, create.Kind)
	assert.Equal(t, "foo", create.Targets[0].Id)
	call := create.Value
	require.Equal(t, pyast.ECall, call.Kind)
	require.Len(t, call.Keywords, 3)
	assert.Equal(t, "__name__", call.Keywords[0].Arg)
	assert.Equal(t, "__initialized__", call.Keywords[1].Arg)
	assert.Equal(t, "__initializing__", call.Keywords[2].Arg)

	register := stmts[1]
	require.Equal(t, pyast.KindAssign, register.Kind)
	sub := register.Targets[0]
	require.Equal(t, pyast.ESubscript, sub.Kind)
	assert.Equal(t, "modules", sub.Value.Attr)
	assert.Equal(t, SysAlias, sub.Value.Value.Id)
}

func TestBuildModuleObjectAddsPathForPackages(t *testing.T) {
	info := &WrapperInfo{Module: 1, Dotted: "pkg", ModuleVar: "pkg", InitFunc: "f", IsPackage: true}
	stmts := BuildModuleObject(info)
	call := stmts[0].Value
	require.Len(t, call.Keywords, 4)
	assert.Equal(t, "__path__", call.Keywords[3].Arg)
}

func TestBuildWrapperInitStateMachineShape(t *testing.T) {
	names := NewRenameTable()
	info := &WrapperInfo{Module: 1, Dotted: "pkg", ModuleVar: "pkg", InitFunc: "_cribo_init__0_pkg"}
	body := []*pyast.Stmt{
		pyast.AssignStmt(pyast.NameExpr("value"), pyast.NumExpr("1")),
	}
	fn := BuildWrapperInit(names, info, body)

	require.Equal(t, pyast.KindFunctionDef, fn.Kind)
	assert.Equal(t, "_cribo_init__0_pkg", fn.Name)
	require.Equal(t, []string{"self"}, fn.Args.Args)

	// Guard one: already initialized → return self.
	g1 := fn.Body[0]
	require.Equal(t, pyast.KindIf, g1.Kind)
	assert.Equal(t, "__initialized__", g1.Test.Attr)
	assert.Equal(t, pyast.KindReturn, g1.Body[0].Kind)

	// Guard two: initializing → flip the flag, return the partial self.
	g2 := fn.Body[1]
	require.Equal(t, pyast.KindIf, g2.Kind)
	assert.Equal(t, "__initializing__", g2.Test.Attr)
	require.Len(t, g2.Body, 2)
	assert.Equal(t, pyast.KindAssign, g2.Body[0].Kind)
	assert.Equal(t, pyast.KindReturn, g2.Body[1].Kind)

	// The body statement is followed by the self-attachment of its
	// binding, so a partially-initialized module exposes it.
	var sawValueAttach bool
	for _, s := range fn.Body {
		if s.Kind == pyast.KindAssign && len(s.Targets) == 1 &&
			s.Targets[0].Kind == pyast.EAttribute && s.Targets[0].Attr == "value" {
			sawValueAttach = true
		}
	}
	assert.True(t, sawValueAttach)

	last := fn.Body[len(fn.Body)-1]
	assert.Equal(t, pyast.KindReturn, last.Kind)
	assert.Equal(t, "self", last.Expr.Id)
}

func TestBuildWrapperInitLiftsGlobalDeclarations(t *testing.T) {
	names := NewRenameTable()
	info := &WrapperInfo{Module: 1, Dotted: "counter", ModuleVar: "counter_mod", InitFunc: "_cribo_init__0_counter"}
	body := []*pyast.Stmt{
		pyast.AssignStmt(pyast.NameExpr("total"), pyast.NumExpr("0")),
		{
			Kind: pyast.KindFunctionDef,
			Name: "bump",
			Args: &pyast.Arguments{},
			Body: []*pyast.Stmt{
				{Kind: pyast.KindGlobal, GlobalNames: []string{"total"}},
				{Kind: pyast.KindAugAssign, Targets: []*pyast.Expr{pyast.NameExpr("total")}, Op: "+", Value: pyast.NumExpr("1")},
			},
		},
	}
	fn := BuildWrapperInit(names, info, body)

	// The init body declares the lifted name global so its own
	// assignment lands at bundle scope.
	require.Equal(t, pyast.KindGlobal, fn.Body[3].Kind)
	assert.Equal(t, []string{"counter_total"}, fn.Body[3].GlobalNames)

	// The top-level assignment and the nested global statement were
	// renamed to the lifted spelling.
	assert.Equal(t, "counter_total", fn.Body[4].Targets[0].Id)
	nested := findDef(t, fn.Body, "bump")
	assert.Equal(t, []string{"counter_total"}, nested.Body[0].GlobalNames)

	// The module attribute keeps the original name.
	var attach *pyast.Stmt
	for _, s := range fn.Body {
		if s.Kind == pyast.KindAssign && len(s.Targets) == 1 &&
			s.Targets[0].Kind == pyast.EAttribute && s.Targets[0].Attr == "total" {
			attach = s
		}
	}
	require.NotNil(t, attach)
	assert.Equal(t, "counter_total", attach.Value.Id)
}

func TestBuildWrapperInitRewritesGlobalsCalls(t *testing.T) {
	names := NewRenameTable()
	info := &WrapperInfo{Module: 1, Dotted: "m", ModuleVar: "m", InitFunc: "_cribo_init__0_m"}
	body := []*pyast.Stmt{
		pyast.AssignStmt(pyast.NameExpr("g"), pyast.CallExpr(pyast.NameExpr("globals"))),
		pyast.AssignStmt(pyast.NameExpr("l"), pyast.CallExpr(pyast.NameExpr("locals"))),
	}
	fn := BuildWrapperInit(names, info, body)

	gAssign := fn.Body[3]
	require.Equal(t, pyast.EAttribute, gAssign.Value.Kind)
	assert.Equal(t, "__dict__", gAssign.Value.Attr)
	assert.Equal(t, "m", gAssign.Value.Value.Id)

	lAssign := fn.Body[5]
	require.Equal(t, pyast.ECall, lAssign.Value.Kind)
	assert.Equal(t, "vars", lAssign.Value.Func.Id)
}

func TestBuildInitCallShape(t *testing.T) {
	info := &WrapperInfo{ModuleVar: "foo", InitFunc: "f"}
	s := BuildInitCall(info)
	require.Equal(t, pyast.KindExprStmt, s.Kind)
	call := s.Expr
	assert.Equal(t, "__init__", call.Func.Attr)
	assert.Equal(t, "foo", call.Func.Value.Id)
	require.Len(t, call.Args, 1)
	assert.Equal(t, "foo", call.Args[0].Id)
}

func findDef(t *testing.T, body []*pyast.Stmt, name string) *pyast.Stmt {
	t.Helper()
	for _, s := range body {
		if s.Kind == pyast.KindFunctionDef && s.Name == name {
			return s
		}
	}
	t.Fatalf("no def %s in body", name)
	return nil
}
