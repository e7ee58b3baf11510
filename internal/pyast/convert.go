package pyast

import (
	"fmt"
	"strings"

	gast "github.com/go-python/gpython/ast"
)

// convertStmt lowers one gpython statement into our tagged-variant Stmt.
// Unrecognized statement kinds degrade to KindOther rather than panicking,
// so a bundling run can still proceed; no diagnostic is raised for such a
// statement.
func convertStmt(s gast.Stmt) *Stmt {
	if s == nil {
		return &Stmt{Kind: KindPass}
	}
	line := int(s.GetLineno())

	switch n := s.(type) {
	case *gast.FunctionDef:
		return &Stmt{
			Kind:       KindFunctionDef,
			Line:       line,
			Name:       string(n.Name),
			Args:       convertArguments(n.Args),
			Body:       convertStmts(n.Body),
			Decorators: convertExprs(n.DecoratorList),
			Returns:    convertExpr(n.Returns),
		}
	case *gast.AsyncFunctionDef:
		return &Stmt{
			Kind:       KindAsyncFunctionDef,
			Line:       line,
			Name:       string(n.Name),
			Args:       convertArguments(n.Args),
			Body:       convertStmts(n.Body),
			Decorators: convertExprs(n.DecoratorList),
			Returns:    convertExpr(n.Returns),
		}
	case *gast.ClassDef:
		return &Stmt{
			Kind:       KindClassDef,
			Line:       line,
			Name:       string(n.Name),
			Bases:      convertExprs(n.Bases),
			Body:       convertStmts(n.Body),
			Decorators: convertExprs(n.DecoratorList),
		}
	case *gast.Import:
		return &Stmt{Kind: KindImport, Line: line, Names: convertAliases(n.Names)}
	case *gast.ImportFrom:
		return &Stmt{
			Kind:       KindImportFrom,
			Line:       line,
			ModulePath: string(n.Module),
			Names:      convertAliases(n.Names),
			Level:      int(n.Level),
		}
	case *gast.Assign:
		return &Stmt{Kind: KindAssign, Line: line, Targets: convertExprs(n.Targets), Value: convertExpr(n.Value)}
	case *gast.AugAssign:
		return &Stmt{
			Kind:    KindAugAssign,
			Line:    line,
			Targets: []*Expr{convertExpr(n.Target)},
			Op:      opString(n.Op),
			Value:   convertExpr(n.Value),
		}
	case *gast.AnnAssign:
		return &Stmt{
			Kind:       KindAnnAssign,
			Line:       line,
			Targets:    []*Expr{convertExpr(n.Target)},
			Annotation: convertExpr(n.Annotation),
			Value:      convertExpr(n.Value),
		}
	case *gast.ExprStmt:
		return &Stmt{Kind: KindExprStmt, Line: line, Expr: convertExpr(n.Value)}
	case *gast.Return:
		return &Stmt{Kind: KindReturn, Line: line, Expr: convertExpr(n.Value)}
	case *gast.If:
		return &Stmt{Kind: KindIf, Line: line, Test: convertExpr(n.Test), Body: convertStmts(n.Body), Orelse: convertStmts(n.Orelse)}
	case *gast.For:
		return &Stmt{Kind: KindFor, Line: line, Target: convertExpr(n.Target), Iter: convertExpr(n.Iter), Body: convertStmts(n.Body), Orelse: convertStmts(n.Orelse)}
	case *gast.AsyncFor:
		return &Stmt{Kind: KindAsyncFor, Line: line, Target: convertExpr(n.Target), Iter: convertExpr(n.Iter), Body: convertStmts(n.Body), Orelse: convertStmts(n.Orelse)}
	case *gast.While:
		return &Stmt{Kind: KindWhile, Line: line, Test: convertExpr(n.Test), Body: convertStmts(n.Body), Orelse: convertStmts(n.Orelse)}
	case *gast.With:
		return &Stmt{Kind: KindWith, Line: line, WithItems: convertWithItems(n.Items), Body: convertStmts(n.Body)}
	case *gast.AsyncWith:
		return &Stmt{Kind: KindAsyncWith, Line: line, WithItems: convertWithItems(n.Items), Body: convertStmts(n.Body)}
	case *gast.Try:
		return &Stmt{
			Kind:      KindTry,
			Line:      line,
			Body:      convertStmts(n.Body),
			Handlers:  convertHandlers(n.Handlers),
			Orelse:    convertStmts(n.Orelse),
			FinalBody: convertStmts(n.Finalbody),
		}
	case *gast.Raise:
		return &Stmt{Kind: KindRaise, Line: line, RaiseExc: convertExpr(n.Exc), RaiseCause: convertExpr(n.Cause)}
	case *gast.Assert:
		return &Stmt{Kind: KindAssert, Line: line, AssertTest: convertExpr(n.Test), AssertMsg: convertExpr(n.Msg)}
	case *gast.Delete:
		return &Stmt{Kind: KindDelete, Line: line, DeleteTargets: convertExprs(n.Targets)}
	case *gast.Global:
		return &Stmt{Kind: KindGlobal, Line: line, GlobalNames: identifiers(n.Names)}
	case *gast.Nonlocal:
		return &Stmt{Kind: KindNonlocal, Line: line, GlobalNames: identifiers(n.Names)}
	case *gast.Pass:
		return &Stmt{Kind: KindPass, Line: line}
	case *gast.Break:
		return &Stmt{Kind: KindBreak, Line: line}
	case *gast.Continue:
		return &Stmt{Kind: KindContinue, Line: line}
	default:
		return &Stmt{Kind: KindOther, Line: line}
	}
}

func convertStmts(ss []gast.Stmt) []*Stmt {
	if ss == nil {
		return nil
	}
	out := make([]*Stmt, 0, len(ss))
	for _, s := range ss {
		out = append(out, convertStmt(s))
	}
	return out
}

func identifiers(ids []gast.Identifier) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func convertAliases(aliases []*gast.Alias) []*Alias {
	out := make([]*Alias, 0, len(aliases))
	for _, a := range aliases {
		out = append(out, &Alias{Name: string(a.Name), AsName: string(a.AsName)})
	}
	return out
}

func convertWithItems(items []*gast.WithItem) []*WithItem {
	out := make([]*WithItem, 0, len(items))
	for _, it := range items {
		out = append(out, &WithItem{ContextExpr: convertExpr(it.ContextExpr), OptionalVars: convertExpr(it.OptionalVars)})
	}
	return out
}

func convertHandlers(hs []*gast.ExceptHandler) []*ExceptHandler {
	out := make([]*ExceptHandler, 0, len(hs))
	for _, h := range hs {
		out = append(out, &ExceptHandler{Type: convertExpr(h.Type), Name: string(h.Name), Body: convertStmts(h.Body)})
	}
	return out
}

func convertArguments(a *gast.Arguments) *Arguments {
	if a == nil {
		return &Arguments{}
	}
	out := &Arguments{Defaults: convertExprs(a.Defaults), KwDefaults: convertExprs(a.KwDefaults)}
	for _, arg := range a.Args {
		out.Args = append(out.Args, string(arg.Arg))
	}
	for _, arg := range a.Kwonlyargs {
		out.KwOnlyArgs = append(out.KwOnlyArgs, string(arg.Arg))
	}
	if a.Vararg != nil {
		out.VarArg = string(a.Vararg.Arg)
	}
	if a.Kwarg != nil {
		out.KwArg = string(a.Kwarg.Arg)
	}
	return out
}

func convertKeywords(ks []*gast.Keyword) []*Keyword {
	out := make([]*Keyword, 0, len(ks))
	for _, k := range ks {
		out = append(out, &Keyword{Arg: string(k.Arg), Value: convertExpr(k.Value)})
	}
	return out
}

func convertComprehensions(cs []gast.Comprehension) []*Comprehension {
	out := make([]*Comprehension, 0, len(cs))
	for _, c := range cs {
		out = append(out, &Comprehension{
			Target:  convertExpr(c.Target),
			Iter:    convertExpr(c.Iter),
			Ifs:     convertExprs(c.Ifs),
			IsAsync: c.IsAsync != 0,
		})
	}
	return out
}

// convertExpr lowers one gpython expression. nil in, nil out (many AST
// fields are optional, e.g. AnnAssign.Value).
func convertExpr(e gast.Expr) *Expr {
	if e == nil {
		return nil
	}
	line := int(e.GetLineno())

	switch n := e.(type) {
	case *gast.Name:
		return &Expr{Kind: EName, Line: line, Id: string(n.Id)}
	case *gast.Attribute:
		return &Expr{Kind: EAttribute, Line: line, Value: convertExpr(n.Value), Attr: string(n.Attr)}
	case *gast.Call:
		return &Expr{Kind: ECall, Line: line, Func: convertExpr(n.Func), Args: convertExprs(n.Args), Keywords: convertKeywords(n.Keywords)}
	case *gast.Num:
		return &Expr{Kind: EConstant, Line: line, ConstKind: "num", ConstRepr: fmt.Sprintf("%v", n.N)}
	case *gast.Str:
		return &Expr{Kind: EConstant, Line: line, ConstKind: "str", ConstRepr: pyStringRepr(string(n.S))}
	case *gast.Bytes:
		return &Expr{Kind: EConstant, Line: line, ConstKind: "bytes", ConstRepr: pyBytesRepr([]byte(n.S))}
	case *gast.NameConstant:
		return &Expr{Kind: EConstant, Line: line, ConstKind: "nameconstant", ConstRepr: fmt.Sprintf("%v", n.Value)}
	case *gast.Ellipsis:
		return &Expr{Kind: EConstant, Line: line, ConstKind: "ellipsis", ConstRepr: "..."}
	case *gast.List:
		return &Expr{Kind: EList, Line: line, Elts: convertExprs(n.Elts)}
	case *gast.Tuple:
		return &Expr{Kind: ETuple, Line: line, Elts: convertExprs(n.Elts)}
	case *gast.Set:
		return &Expr{Kind: ESet, Line: line, Elts: convertExprs(n.Elts)}
	case *gast.Dict:
		return &Expr{Kind: EDict, Line: line, Keys: convertExprs(n.Keys), Values: convertExprs(n.Values)}
	case *gast.BinOp:
		return &Expr{Kind: EBinOp, Line: line, Left: convertExpr(n.Left), Op: opString(n.Op), Right: convertExpr(n.Right)}
	case *gast.BoolOp:
		return &Expr{Kind: EBoolOp, Line: line, Op: boolOpString(n.Op), Operands: convertExprs(n.Values)}
	case *gast.UnaryOp:
		return &Expr{Kind: EUnaryOp, Line: line, Op: unaryOpString(n.Op), Value: convertExpr(n.Operand)}
	case *gast.Compare:
		ops := make([]string, 0, len(n.Ops))
		for _, o := range n.Ops {
			ops = append(ops, cmpOpString(o))
		}
		return &Expr{Kind: ECompare, Line: line, Left: convertExpr(n.Left), Op: joinOps(ops), Operands: convertExprs(n.Comparators)}
	case *gast.IfExp:
		return &Expr{Kind: EIfExp, Line: line, Test: convertExpr(n.Test), Body: convertExpr(n.Body), Orelse: convertExpr(n.Orelse)}
	case *gast.Lambda:
		return &Expr{Kind: ELambda, Line: line, LambdaArgs: convertArguments(n.Args), LambdaBody: convertExpr(n.Body)}
	case *gast.Starred:
		return &Expr{Kind: EStarred, Line: line, Value: convertExpr(n.Value)}
	case *gast.Subscript:
		return &Expr{Kind: ESubscript, Line: line, Value: convertExpr(n.Value), Slice: convertSlice(n.Slice)}
	case *gast.ListComp:
		return &Expr{Kind: EListComp, Line: line, Value: convertExpr(n.Elt), Comprehensions: convertComprehensions(n.Generators)}
	case *gast.SetComp:
		return &Expr{Kind: ESetComp, Line: line, Value: convertExpr(n.Elt), Comprehensions: convertComprehensions(n.Generators)}
	case *gast.DictComp:
		return &Expr{Kind: EDictComp, Line: line, CompKey: convertExpr(n.Key), CompValue: convertExpr(n.Value), Comprehensions: convertComprehensions(n.Generators)}
	case *gast.GeneratorExp:
		return &Expr{Kind: EGeneratorExp, Line: line, Value: convertExpr(n.Elt), Comprehensions: convertComprehensions(n.Generators)}
	case *gast.Await:
		return &Expr{Kind: EAwait, Line: line, Value: convertExpr(n.Value)}
	case *gast.Yield:
		return &Expr{Kind: EYield, Line: line, Value: convertExpr(n.Value)}
	case *gast.YieldFrom:
		return &Expr{Kind: EYieldFrom, Line: line, Value: convertExpr(n.Value)}
	default:
		return &Expr{Kind: EOther, Line: line}
	}
}

func convertExprs(es []gast.Expr) []*Expr {
	if es == nil {
		return nil
	}
	out := make([]*Expr, 0, len(es))
	for _, e := range es {
		out = append(out, convertExpr(e))
	}
	return out
}

// convertSlice lowers Index/Slice/ExtSlice subscript slicers into a
// single Expr shape: plain indices pass through as the inner expression;
// range slices carry Left=lower, Right=upper, Operands[0]=step (any may
// be nil, printed as an empty slot by the printer).
func convertSlice(s gast.Slicer) *Expr {
	if s == nil {
		return nil
	}
	switch n := s.(type) {
	case *gast.Index:
		return convertExpr(n.Value)
	case *gast.Slice:
		step := convertExpr(n.Step)
		var ops []*Expr
		if step != nil {
			ops = []*Expr{step}
		}
		return &Expr{Kind: ESlice, Left: convertExpr(n.Lower), Right: convertExpr(n.Upper), Operands: ops}
	case *gast.ExtSlice:
		var dims []*Expr
		for _, d := range n.Dims {
			dims = append(dims, convertSlice(d))
		}
		return &Expr{Kind: ETuple, Elts: dims}
	default:
		return &Expr{Kind: EOther}
	}
}

// pyStringRepr renders a string the way Python's own repr does
// (single-quoted), so emitted literals match what a Python developer
// expects to read in the bundle.
func pyStringRepr(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\x%02x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func pyBytesRepr(b []byte) string {
	return "b" + pyStringRepr(string(b))
}

func joinOps(ops []string) string {
	out := ""
	for i, o := range ops {
		if i > 0 {
			out += " "
		}
		out += o
	}
	return out
}

func opString(op gast.Operator) string {
	switch op {
	case gast.Add:
		return "+"
	case gast.Sub:
		return "-"
	case gast.Mult:
		return "*"
	case gast.MatMult:
		return "@"
	case gast.Div:
		return "/"
	case gast.Modulo:
		return "%"
	case gast.Pow:
		return "**"
	case gast.LShift:
		return "<<"
	case gast.RShift:
		return ">>"
	case gast.BitOr:
		return "|"
	case gast.BitXor:
		return "^"
	case gast.BitAnd:
		return "&"
	case gast.FloorDiv:
		return "//"
	default:
		return "?"
	}
}

func boolOpString(op gast.BoolOpNumber) string {
	if op == gast.And {
		return "and"
	}
	return "or"
}

func unaryOpString(op gast.UnaryOpNumber) string {
	switch op {
	case gast.Invert:
		return "~"
	case gast.Not:
		return "not"
	case gast.UAdd:
		return "+"
	default:
		return "-"
	}
}

func cmpOpString(op gast.CmpOp) string {
	switch op {
	case gast.Eq:
		return "=="
	case gast.NotEq:
		return "!="
	case gast.Lt:
		return "<"
	case gast.LtE:
		return "<="
	case gast.Gt:
		return ">"
	case gast.GtE:
		return ">="
	case gast.Is:
		return "is"
	case gast.IsNot:
		return "is not"
	case gast.In:
		return "in"
	default:
		return "not in"
	}
}
