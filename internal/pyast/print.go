package pyast

import (
	"fmt"
	"strings"
)

// Unparse renders a Module as Python source text. It is invoked only on
// the bundler's own synthetic output AST (built directly by
// internal/codegen, or carried through from the parsed input with
// targeted rewrites by internal/transform) — never on arbitrary
// user-authored constructs beyond what internal/pyast.Parse already
// accepted, so the printer only needs to round-trip the grammar subset
// modeled in node.go.
func Unparse(m *Module) []byte {
	var b strings.Builder
	for _, name := range m.FutureImports {
		fmt.Fprintf(&b, "from __future__ import %s\n", name)
	}
	if len(m.FutureImports) > 0 {
		b.WriteByte('\n')
	}
	p := &printer{out: &b}
	for _, s := range m.Body {
		p.stmt(s, 0)
	}
	return []byte(b.String())
}

type printer struct {
	out *strings.Builder
}

func (p *printer) indent(depth int) {
	for i := 0; i < depth; i++ {
		p.out.WriteString("    ")
	}
}

func (p *printer) line(depth int, format string, args ...interface{}) {
	p.indent(depth)
	fmt.Fprintf(p.out, format, args...)
	p.out.WriteByte('\n')
}

func (p *printer) block(body []*Stmt, depth int) {
	if len(body) == 0 {
		p.line(depth, "pass")
		return
	}
	for _, s := range body {
		p.stmt(s, depth)
	}
}

func (p *printer) stmt(s *Stmt, depth int) {
	if s == nil {
		return
	}
	switch s.Kind {
	case KindFunctionDef, KindAsyncFunctionDef:
		for _, d := range s.Decorators {
			p.line(depth, "@%s", p.expr(d))
		}
		kw := "def"
		if s.Kind == KindAsyncFunctionDef {
			kw = "async def"
		}
		ret := ""
		if s.Returns != nil {
			ret = " -> " + p.expr(s.Returns)
		}
		p.line(depth, "%s %s(%s)%s:", kw, s.Name, p.arguments(s.Args), ret)
		p.block(s.Body, depth+1)

	case KindClassDef:
		for _, d := range s.Decorators {
			p.line(depth, "@%s", p.expr(d))
		}
		bases := p.exprList(s.Bases)
		if bases != "" {
			p.line(depth, "class %s(%s):", s.Name, bases)
		} else {
			p.line(depth, "class %s:", s.Name)
		}
		p.block(s.Body, depth+1)

	case KindImport:
		p.line(depth, "import %s", p.aliasList(s.Names))

	case KindImportFrom:
		p.line(depth, "from %s%s import %s", strings.Repeat(".", s.Level), s.ModulePath, p.aliasList(s.Names))

	case KindAssign:
		targets := make([]string, 0, len(s.Targets))
		for _, t := range s.Targets {
			targets = append(targets, p.expr(t))
		}
		p.line(depth, "%s = %s", strings.Join(targets, " = "), p.expr(s.Value))

	case KindAugAssign:
		p.line(depth, "%s %s= %s", p.expr(s.Targets[0]), s.Op, p.expr(s.Value))

	case KindAnnAssign:
		if s.Value != nil {
			p.line(depth, "%s: %s = %s", p.expr(s.Targets[0]), p.expr(s.Annotation), p.expr(s.Value))
		} else {
			p.line(depth, "%s: %s", p.expr(s.Targets[0]), p.expr(s.Annotation))
		}

	case KindExprStmt:
		p.line(depth, "%s", p.expr(s.Expr))

	case KindReturn:
		if s.Expr != nil {
			p.line(depth, "return %s", p.expr(s.Expr))
		} else {
			p.line(depth, "return")
		}

	case KindIf:
		p.line(depth, "if %s:", p.expr(s.Test))
		p.block(s.Body, depth+1)
		if len(s.Orelse) > 0 {
			p.line(depth, "else:")
			p.block(s.Orelse, depth+1)
		}

	case KindFor, KindAsyncFor:
		kw := "for"
		if s.Kind == KindAsyncFor {
			kw = "async for"
		}
		p.line(depth, "%s %s in %s:", kw, p.expr(s.Target), p.expr(s.Iter))
		p.block(s.Body, depth+1)
		if len(s.Orelse) > 0 {
			p.line(depth, "else:")
			p.block(s.Orelse, depth+1)
		}

	case KindWhile:
		p.line(depth, "while %s:", p.expr(s.Test))
		p.block(s.Body, depth+1)
		if len(s.Orelse) > 0 {
			p.line(depth, "else:")
			p.block(s.Orelse, depth+1)
		}

	case KindWith, KindAsyncWith:
		kw := "with"
		if s.Kind == KindAsyncWith {
			kw = "async with"
		}
		items := make([]string, 0, len(s.WithItems))
		for _, it := range s.WithItems {
			if it.OptionalVars != nil {
				items = append(items, fmt.Sprintf("%s as %s", p.expr(it.ContextExpr), p.expr(it.OptionalVars)))
			} else {
				items = append(items, p.expr(it.ContextExpr))
			}
		}
		p.line(depth, "%s %s:", kw, strings.Join(items, ", "))
		p.block(s.Body, depth+1)

	case KindTry:
		p.line(depth, "try:")
		p.block(s.Body, depth+1)
		for _, h := range s.Handlers {
			switch {
			case h.Type == nil:
				p.line(depth, "except:")
			case h.Name != "":
				p.line(depth, "except %s as %s:", p.expr(h.Type), h.Name)
			default:
				p.line(depth, "except %s:", p.expr(h.Type))
			}
			p.block(h.Body, depth+1)
		}
		if len(s.Orelse) > 0 {
			p.line(depth, "else:")
			p.block(s.Orelse, depth+1)
		}
		if len(s.FinalBody) > 0 {
			p.line(depth, "finally:")
			p.block(s.FinalBody, depth+1)
		}

	case KindRaise:
		switch {
		case s.RaiseExc == nil:
			p.line(depth, "raise")
		case s.RaiseCause != nil:
			p.line(depth, "raise %s from %s", p.expr(s.RaiseExc), p.expr(s.RaiseCause))
		default:
			p.line(depth, "raise %s", p.expr(s.RaiseExc))
		}

	case KindAssert:
		if s.AssertMsg != nil {
			p.line(depth, "assert %s, %s", p.expr(s.AssertTest), p.expr(s.AssertMsg))
		} else {
			p.line(depth, "assert %s", p.expr(s.AssertTest))
		}

	case KindDelete:
		p.line(depth, "del %s", p.exprList(s.DeleteTargets))

	case KindGlobal:
		p.line(depth, "global %s", strings.Join(s.GlobalNames, ", "))

	case KindNonlocal:
		p.line(depth, "nonlocal %s", strings.Join(s.GlobalNames, ", "))

	case KindPass:
		p.line(depth, "pass")

	case KindBreak:
		p.line(depth, "break")

	case KindContinue:
		p.line(depth, "continue")

	default:
		p.line(depth, "pass  # unsupported construct preserved as no-op")
	}
}

func (p *printer) arguments(a *Arguments) string {
	if a == nil {
		return ""
	}
	parts := make([]string, 0, len(a.Args)+len(a.KwOnlyArgs)+2)
	nDefaults := len(a.Defaults)
	nPositional := len(a.Args)
	for i, name := range a.Args {
		defIdx := i - (nPositional - nDefaults)
		if defIdx >= 0 {
			parts = append(parts, fmt.Sprintf("%s=%s", name, p.expr(a.Defaults[defIdx])))
		} else {
			parts = append(parts, name)
		}
	}
	if a.VarArg != "" {
		parts = append(parts, "*"+a.VarArg)
	} else if len(a.KwOnlyArgs) > 0 {
		parts = append(parts, "*")
	}
	for i, name := range a.KwOnlyArgs {
		if i < len(a.KwDefaults) && a.KwDefaults[i] != nil {
			parts = append(parts, fmt.Sprintf("%s=%s", name, p.expr(a.KwDefaults[i])))
		} else {
			parts = append(parts, name)
		}
	}
	if a.KwArg != "" {
		parts = append(parts, "**"+a.KwArg)
	}
	return strings.Join(parts, ", ")
}

func (p *printer) aliasList(names []*Alias) string {
	parts := make([]string, 0, len(names))
	for _, a := range names {
		if a.AsName != "" {
			parts = append(parts, fmt.Sprintf("%s as %s", a.Name, a.AsName))
		} else {
			parts = append(parts, a.Name)
		}
	}
	return strings.Join(parts, ", ")
}

func (p *printer) exprList(es []*Expr) string {
	parts := make([]string, 0, len(es))
	for _, e := range es {
		parts = append(parts, p.expr(e))
	}
	return strings.Join(parts, ", ")
}

func (p *printer) expr(e *Expr) string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case EName:
		return e.Id
	case EAttribute:
		return fmt.Sprintf("%s.%s", p.expr(e.Value), e.Attr)
	case ECall:
		args := make([]string, 0, len(e.Args)+len(e.Keywords))
		for _, a := range e.Args {
			args = append(args, p.expr(a))
		}
		for _, k := range e.Keywords {
			if k.Arg == "" {
				args = append(args, fmt.Sprintf("**%s", p.expr(k.Value)))
			} else {
				args = append(args, fmt.Sprintf("%s=%s", k.Arg, p.expr(k.Value)))
			}
		}
		return fmt.Sprintf("%s(%s)", p.expr(e.Func), strings.Join(args, ", "))
	case EConstant:
		if e.ConstKind == "nameconstant" {
			switch e.ConstRepr {
			case "true", "True":
				return "True"
			case "false", "False":
				return "False"
			default:
				return "None"
			}
		}
		return e.ConstRepr
	case EList:
		return fmt.Sprintf("[%s]", p.exprList(e.Elts))
	case ETuple:
		if len(e.Elts) == 1 {
			return fmt.Sprintf("(%s,)", p.expr(e.Elts[0]))
		}
		return fmt.Sprintf("(%s)", p.exprList(e.Elts))
	case ESet:
		if len(e.Elts) == 0 {
			return "set()"
		}
		return fmt.Sprintf("{%s}", p.exprList(e.Elts))
	case EDict:
		parts := make([]string, 0, len(e.Keys))
		for i, k := range e.Keys {
			if k == nil {
				parts = append(parts, fmt.Sprintf("**%s", p.expr(e.Values[i])))
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %s", p.expr(k), p.expr(e.Values[i])))
		}
		return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
	case EBinOp:
		return fmt.Sprintf("(%s %s %s)", p.expr(e.Left), e.Op, p.expr(e.Right))
	case EBoolOp:
		parts := make([]string, 0, len(e.Operands))
		for _, o := range e.Operands {
			parts = append(parts, p.expr(o))
		}
		return fmt.Sprintf("(%s)", strings.Join(parts, " "+e.Op+" "))
	case EUnaryOp:
		if e.Op == "not" {
			return fmt.Sprintf("(not %s)", p.expr(e.Value))
		}
		return fmt.Sprintf("(%s%s)", e.Op, p.expr(e.Value))
	case ECompare:
		ops := strings.Fields(e.Op)
		var b strings.Builder
		b.WriteByte('(')
		b.WriteString(p.expr(e.Left))
		for i, o := range e.Operands {
			op := "?"
			if i < len(ops) {
				op = ops[i]
			}
			fmt.Fprintf(&b, " %s %s", op, p.expr(o))
		}
		b.WriteByte(')')
		return b.String()
	case EIfExp:
		return fmt.Sprintf("(%s if %s else %s)", p.expr(e.Body), p.expr(e.Test), p.expr(e.Orelse))
	case ELambda:
		return fmt.Sprintf("lambda %s: %s", p.arguments(e.LambdaArgs), p.expr(e.LambdaBody))
	case EStarred:
		return fmt.Sprintf("*%s", p.expr(e.Value))
	case ESubscript:
		return fmt.Sprintf("%s[%s]", p.expr(e.Value), p.sliceExpr(e.Slice))
	case EListComp:
		return fmt.Sprintf("[%s %s]", p.expr(e.Value), p.comprehensions(e.Comprehensions))
	case ESetComp:
		return fmt.Sprintf("{%s %s}", p.expr(e.Value), p.comprehensions(e.Comprehensions))
	case EDictComp:
		return fmt.Sprintf("{%s: %s %s}", p.expr(e.CompKey), p.expr(e.CompValue), p.comprehensions(e.Comprehensions))
	case EGeneratorExp:
		return fmt.Sprintf("(%s %s)", p.expr(e.Value), p.comprehensions(e.Comprehensions))
	case EAwait:
		return fmt.Sprintf("(await %s)", p.expr(e.Value))
	case EYield:
		if e.Value != nil {
			return fmt.Sprintf("(yield %s)", p.expr(e.Value))
		}
		return "(yield)"
	case EYieldFrom:
		return fmt.Sprintf("(yield from %s)", p.expr(e.Value))
	case ENamedExpr:
		return fmt.Sprintf("(%s := %s)", p.expr(e.Target), p.expr(e.Value))
	default:
		return "None"
	}
}

func (p *printer) sliceExpr(s *Expr) string {
	if s == nil {
		return ""
	}
	if s.Kind != ESlice {
		return p.expr(s)
	}
	lower, upper, step := "", "", ""
	if s.Left != nil {
		lower = p.expr(s.Left)
	}
	if s.Right != nil {
		upper = p.expr(s.Right)
	}
	if len(s.Operands) > 0 && s.Operands[0] != nil {
		step = p.expr(s.Operands[0])
	}
	if step != "" {
		return fmt.Sprintf("%s:%s:%s", lower, upper, step)
	}
	return fmt.Sprintf("%s:%s", lower, upper)
}

func (p *printer) comprehensions(cs []*Comprehension) string {
	var b strings.Builder
	for _, c := range cs {
		kw := "for"
		if c.IsAsync {
			kw = "async for"
		}
		fmt.Fprintf(&b, "%s %s in %s", kw, p.expr(c.Target), p.expr(c.Iter))
		for _, ifc := range c.Ifs {
			fmt.Fprintf(&b, " if %s", p.expr(ifc))
		}
		b.WriteByte(' ')
	}
	return strings.TrimSpace(b.String())
}
