package codegen

import "github.com/sunholo/cribo/internal/pyast"

// Bundle-global names reserved by the generated prelude. The aliases
// keep the three runtime support modules out of the user namespace, so
// a first-party symbol named `sys` or `types` never collides with
// them.
const (
	StdlibProxyName = "_cribo"
	SysAlias        = "_cribo_sys"
	TypesAlias      = "_cribo_types"
	ImportlibAlias  = "_cribo_importlib"

	proxyClassName = "_CriboModuleProxy"
)

// BuildPrelude emits the bundle's fixed runtime preamble: the three
// support imports and the stdlib proxy object. The proxy imports a
// stdlib module on first attribute access and hands back another proxy
// so nested access (`_cribo.collections.abc.Mapping`) keeps working
// without the bundler ever enumerating which stdlib attributes user
// code touches:
//
//	import sys as _cribo_sys
//	import types as _cribo_types
//	import importlib as _cribo_importlib
//
//	class _CriboModuleProxy(_cribo_types.ModuleType):
//	    def __getattr__(self, name):
//	        fullname = (self.__name__ + '.' + name) if self.__name__ else name
//	        try:
//	            _cribo_importlib.import_module(fullname)
//	        except ImportError:
//	            return getattr(_cribo_importlib.import_module(self.__name__), name)
//	        proxy = _CriboModuleProxy(fullname)
//	        setattr(self, name, proxy)
//	        return proxy
//
//	_cribo = _CriboModuleProxy('')
func BuildPrelude() []*pyast.Stmt {
	imports := []*pyast.Stmt{
		pyast.ImportStmt(&pyast.Alias{Name: "sys", AsName: SysAlias}),
		pyast.ImportStmt(&pyast.Alias{Name: "types", AsName: TypesAlias}),
		pyast.ImportStmt(&pyast.Alias{Name: "importlib", AsName: ImportlibAlias}),
	}

	selfName := pyast.AttrExpr(pyast.NameExpr("self"), "__name__")
	fullname := &pyast.Expr{
		Kind: pyast.EIfExp,
		Test: pyast.AttrExpr(pyast.NameExpr("self"), "__name__"),
		Body: &pyast.Expr{
			Kind: pyast.EBinOp,
			Op:   "+",
			Left: &pyast.Expr{
				Kind: pyast.EBinOp,
				Op:   "+",
				Left: selfName,
				Right: pyast.StrExpr("."),
			},
			Right: pyast.NameExpr("name"),
		},
		Orelse: pyast.NameExpr("name"),
	}

	importModule := func(arg *pyast.Expr) *pyast.Expr {
		return pyast.CallExpr(pyast.AttrExpr(pyast.NameExpr(ImportlibAlias), "import_module"), arg)
	}

	getattrBody := []*pyast.Stmt{
		pyast.AssignStmt(pyast.NameExpr("fullname"), fullname),
		{
			Kind: pyast.KindTry,
			Body: []*pyast.Stmt{pyast.ExprStmtNode(importModule(pyast.NameExpr("fullname")))},
			Handlers: []*pyast.ExceptHandler{{
				Type: pyast.NameExpr("ImportError"),
				Body: []*pyast.Stmt{{
					Kind: pyast.KindReturn,
					Expr: pyast.CallExpr(
						pyast.NameExpr("getattr"),
						importModule(pyast.AttrExpr(pyast.NameExpr("self"), "__name__")),
						pyast.NameExpr("name"),
					),
				}},
			}},
		},
		pyast.AssignStmt(pyast.NameExpr("proxy"), pyast.CallExpr(pyast.NameExpr(proxyClassName), pyast.NameExpr("fullname"))),
		pyast.ExprStmtNode(pyast.CallExpr(
			pyast.NameExpr("setattr"),
			pyast.NameExpr("self"), pyast.NameExpr("name"), pyast.NameExpr("proxy"),
		)),
		{Kind: pyast.KindReturn, Expr: pyast.NameExpr("proxy")},
	}

	proxyClass := &pyast.Stmt{
		Kind:  pyast.KindClassDef,
		Name:  proxyClassName,
		Bases: []*pyast.Expr{pyast.AttrChain(TypesAlias, "ModuleType")},
		Body: []*pyast.Stmt{{
			Kind: pyast.KindFunctionDef,
			Name: "__getattr__",
			Args: &pyast.Arguments{Args: []string{"self", "name"}},
			Body: getattrBody,
		}},
	}

	proxyInstance := pyast.AssignStmt(
		pyast.NameExpr(StdlibProxyName),
		pyast.CallExpr(pyast.NameExpr(proxyClassName), pyast.StrExpr("")),
	)

	out := imports
	out = append(out, proxyClass, proxyInstance)
	return out
}
