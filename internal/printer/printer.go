// Package printer renders a pyast tree back to Python source. Output is
// normalized (four-space indents, one statement per line, minimal
// parentheses) and re-parses to an equivalent tree.
package printer

import (
	"fmt"
	"strings"

	"github.com/whit3rabbit/pymixer/internal/pyast"
)

// RenderError reports a tree the printer cannot express. Path lists the
// enclosing statements from the module down to the failing node.
type RenderError struct {
	Path []string
	Msg  string
}

func (e *RenderError) Error() string {
	if len(e.Path) == 0 {
		return "render: " + e.Msg
	}
	return fmt.Sprintf("render %s: %s", strings.Join(e.Path, " > "), e.Msg)
}

// Operator precedence, loosest first.
const (
	precNamed = iota + 1
	precTuple
	precYield
	precTest
	precOr
	precAnd
	precNot
	precCmp
	precBor
	precBxor
	precBand
	precShift
	precArith
	precTerm
	precFactor
	precPower
	precAwait
	precAtom
)

var binOpPrec = map[string]int{
	"|": precBor, "^": precBxor, "&": precBand,
	"<<": precShift, ">>": precShift,
	"+": precArith, "-": precArith,
	"*": precTerm, "/": precTerm, "//": precTerm, "%": precTerm, "@": precTerm,
	"**": precPower,
}

const indentUnit = "    "

// Printer accumulates rendered source.
type Printer struct {
	sb     strings.Builder
	indent int
	path   []string
}

// Render converts a module to source text.
func Render(mod *pyast.Module) (out string, err error) {
	p := &Printer{}
	defer func() {
		if r := recover(); r != nil {
			re, ok := r.(*RenderError)
			if !ok {
				panic(r)
			}
			out, err = "", re
		}
	}()
	p.stmts(mod.Body)
	return p.sb.String(), nil
}

// RenderExpr converts a single expression to source text.
func RenderExpr(e pyast.Expr) (out string, err error) {
	p := &Printer{}
	defer func() {
		if r := recover(); r != nil {
			re, ok := r.(*RenderError)
			if !ok {
				panic(r)
			}
			out, err = "", re
		}
	}()
	return p.expr(e, precTest), nil
}

func (p *Printer) fail(format string, args ...interface{}) {
	path := append([]string(nil), p.path...)
	panic(&RenderError{Path: path, Msg: fmt.Sprintf(format, args...)})
}

func (p *Printer) enter(label string) { p.path = append(p.path, label) }
func (p *Printer) leave()             { p.path = p.path[:len(p.path)-1] }

func (p *Printer) line(s string) {
	p.sb.WriteString(strings.Repeat(indentUnit, p.indent))
	p.sb.WriteString(s)
	p.sb.WriteByte('\n')
}

// block writes an indented suite. An empty suite becomes `pass`.
func (p *Printer) block(body []pyast.Stmt) {
	p.indent++
	if len(body) == 0 {
		p.line("pass")
	} else {
		p.stmts(body)
	}
	p.indent--
}

func (p *Printer) stmts(body []pyast.Stmt) {
	for _, s := range body {
		p.stmt(s)
	}
}

func (p *Printer) stmt(s pyast.Stmt) {
	switch n := s.(type) {
	case *pyast.FunctionDef:
		p.enter("FunctionDef " + n.Name)
		for _, d := range n.Decorators {
			p.line("@" + p.expr(d, precTest))
		}
		head := "def "
		if n.Async {
			head = "async def "
		}
		head += n.Name + "(" + p.arguments(n.Args, true) + ")"
		if n.Returns != nil {
			head += " -> " + p.expr(n.Returns, precTest)
		}
		p.line(head + ":")
		p.block(n.Body)
		p.leave()
	case *pyast.ClassDef:
		p.enter("ClassDef " + n.Name)
		for _, d := range n.Decorators {
			p.line("@" + p.expr(d, precTest))
		}
		head := "class " + n.Name
		if len(n.Bases) > 0 || len(n.Keywords) > 0 {
			head += "(" + p.callArgs(n.Bases, n.Keywords) + ")"
		}
		p.line(head + ":")
		p.block(n.Body)
		p.leave()
	case *pyast.Return:
		if n.Value == nil {
			p.line("return")
		} else {
			p.line("return " + p.expr(n.Value, precTest))
		}
	case *pyast.Delete:
		p.line("del " + p.exprList(n.Targets))
	case *pyast.Assign:
		p.enter("Assign")
		parts := make([]string, 0, len(n.Targets)+1)
		for _, t := range n.Targets {
			parts = append(parts, p.expr(t, precTest))
		}
		parts = append(parts, p.expr(p.required(n.Value), precTest))
		p.line(strings.Join(parts, " = "))
		p.leave()
	case *pyast.AugAssign:
		p.line(p.expr(n.Target, precTest) + " " + n.Op + "= " + p.expr(p.required(n.Value), precTest))
	case *pyast.AnnAssign:
		s := p.expr(n.Target, precTest) + ": " + p.expr(n.Annotation, precTest)
		if n.Value != nil {
			s += " = " + p.expr(n.Value, precTest)
		}
		p.line(s)
	case *pyast.For:
		p.enter("For")
		head := "for "
		if n.Async {
			head = "async for "
		}
		p.line(head + p.expr(n.Target, precTest) + " in " + p.expr(n.Iter, precTest) + ":")
		p.block(n.Body)
		p.orelse(n.Orelse)
		p.leave()
	case *pyast.While:
		p.enter("While")
		p.line("while " + p.expr(n.Test, precTest) + ":")
		p.block(n.Body)
		p.orelse(n.Orelse)
		p.leave()
	case *pyast.If:
		p.enter("If")
		p.line("if " + p.expr(n.Test, precTest) + ":")
		p.block(n.Body)
		p.elifChain(n.Orelse)
		p.leave()
	case *pyast.With:
		p.enter("With")
		items := make([]string, len(n.Items))
		for i, item := range n.Items {
			items[i] = p.expr(item.ContextExpr, precTest)
			if item.OptionalVars != nil {
				items[i] += " as " + p.expr(item.OptionalVars, precTest)
			}
		}
		head := "with "
		if n.Async {
			head = "async with "
		}
		p.line(head + strings.Join(items, ", ") + ":")
		p.block(n.Body)
		p.leave()
	case *pyast.Raise:
		s := "raise"
		if n.Exc != nil {
			s += " " + p.expr(n.Exc, precTest)
			if n.Cause != nil {
				s += " from " + p.expr(n.Cause, precTest)
			}
		}
		p.line(s)
	case *pyast.Try:
		p.enter("Try")
		p.line("try:")
		p.block(n.Body)
		for _, h := range n.Handlers {
			s := "except"
			if h.Type != nil {
				s += " " + p.expr(h.Type, precTest)
				if h.Name != "" {
					s += " as " + h.Name
				}
			}
			p.line(s + ":")
			p.block(h.Body)
		}
		p.orelse(n.Orelse)
		if len(n.Finalbody) > 0 {
			p.line("finally:")
			p.block(n.Finalbody)
		}
		p.leave()
	case *pyast.Assert:
		s := "assert " + p.expr(n.Test, precTest)
		if n.Msg != nil {
			s += ", " + p.expr(n.Msg, precTest)
		}
		p.line(s)
	case *pyast.Import:
		p.line("import " + aliases(n.Names))
	case *pyast.ImportFrom:
		p.line("from " + strings.Repeat(".", n.Level) + n.Module + " import " + aliases(n.Names))
	case *pyast.Global:
		p.line("global " + strings.Join(n.Names, ", "))
	case *pyast.Nonlocal:
		p.line("nonlocal " + strings.Join(n.Names, ", "))
	case *pyast.ExprStmt:
		p.line(p.expr(p.required(n.Value), precTest))
	case *pyast.Pass:
		p.line("pass")
	case *pyast.Break:
		p.line("break")
	case *pyast.Continue:
		p.line("continue")
	case nil:
		p.fail("nil statement")
	default:
		p.fail("unsupported statement %T", s)
	}
}

func (p *Printer) orelse(body []pyast.Stmt) {
	if len(body) > 0 {
		p.line("else:")
		p.block(body)
	}
}

func (p *Printer) elifChain(orelse []pyast.Stmt) {
	for len(orelse) == 1 {
		elif, ok := orelse[0].(*pyast.If)
		if !ok {
			break
		}
		p.line("elif " + p.expr(elif.Test, precTest) + ":")
		p.block(elif.Body)
		orelse = elif.Orelse
	}
	p.orelse(orelse)
}

func aliases(names []*pyast.Alias) string {
	parts := make([]string, len(names))
	for i, a := range names {
		parts[i] = a.Name
		if a.Asname != "" {
			parts[i] += " as " + a.Asname
		}
	}
	return strings.Join(parts, ", ")
}

func (p *Printer) required(e pyast.Expr) pyast.Expr {
	if e == nil {
		p.fail("missing expression")
	}
	return e
}

func (p *Printer) exprList(exprs []pyast.Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = p.expr(e, precTest)
	}
	return strings.Join(parts, ", ")
}

// arguments renders a parameter list. Lambdas pass annotations=false.
func (p *Printer) arguments(a *pyast.Arguments, annotations bool) string {
	if a == nil {
		return ""
	}
	var parts []string
	param := func(arg *pyast.Arg, def pyast.Expr) string {
		s := arg.Name
		hasAnn := annotations && arg.Annotation != nil
		if hasAnn {
			s += ": " + p.expr(arg.Annotation, precTest)
		}
		if def != nil {
			if hasAnn {
				s += " = " + p.expr(def, precTest)
			} else {
				s += "=" + p.expr(def, precTest)
			}
		}
		return s
	}

	positional := append(append([]*pyast.Arg(nil), a.PosOnly...), a.Args...)
	firstDefault := len(positional) - len(a.Defaults)
	for i, arg := range positional {
		var def pyast.Expr
		if i >= firstDefault {
			def = a.Defaults[i-firstDefault]
		}
		parts = append(parts, param(arg, def))
		if i == len(a.PosOnly)-1 {
			parts = append(parts, "/")
		}
	}
	if a.Vararg != nil {
		parts = append(parts, "*"+param(a.Vararg, nil))
	} else if len(a.KwOnly) > 0 {
		parts = append(parts, "*")
	}
	for i, arg := range a.KwOnly {
		var def pyast.Expr
		if i < len(a.KwDefaults) {
			def = a.KwDefaults[i]
		}
		parts = append(parts, param(arg, def))
	}
	if a.Kwarg != nil {
		parts = append(parts, "**"+param(a.Kwarg, nil))
	}
	return strings.Join(parts, ", ")
}

func (p *Printer) callArgs(args []pyast.Expr, keywords []*pyast.Keyword) string {
	parts := make([]string, 0, len(args)+len(keywords))
	for _, a := range args {
		parts = append(parts, p.expr(a, precTest))
	}
	for _, k := range keywords {
		if k.Arg == "" {
			parts = append(parts, "**"+p.expr(k.Value, precBor))
		} else {
			parts = append(parts, k.Arg+"="+p.expr(k.Value, precTest))
		}
	}
	return strings.Join(parts, ", ")
}

// expr renders e, parenthesizing it when it binds looser than minPrec.
func (p *Printer) expr(e pyast.Expr, minPrec int) string {
	s, prec := p.exprPrec(e)
	if prec < minPrec {
		return "(" + s + ")"
	}
	return s
}

func (p *Printer) exprPrec(e pyast.Expr) (string, int) {
	switch n := e.(type) {
	case *pyast.Name:
		return n.ID, precAtom
	case *pyast.Constant:
		return p.constant(n), precAtom
	case *pyast.Attribute:
		recv := p.expr(n.Value, precAtom)
		if c, ok := n.Value.(*pyast.Constant); ok && c.Kind == pyast.ConstNum {
			recv = "(" + recv + ")"
		}
		return recv + "." + n.Attr, precAtom
	case *pyast.Subscript:
		return p.expr(n.Value, precAtom) + "[" + p.subscript(n.Slice) + "]", precAtom
	case *pyast.Call:
		return p.expr(n.Func, precAtom) + "(" + p.callArgs(n.Args, n.Keywords) + ")", precAtom
	case *pyast.Tuple:
		if len(n.Elts) == 1 {
			return "(" + p.expr(n.Elts[0], precTest) + ",)", precAtom
		}
		return "(" + p.exprList(n.Elts) + ")", precAtom
	case *pyast.List:
		return "[" + p.exprList(n.Elts) + "]", precAtom
	case *pyast.Set:
		if len(n.Elts) == 0 {
			return "set()", precAtom
		}
		return "{" + p.exprList(n.Elts) + "}", precAtom
	case *pyast.Dict:
		parts := make([]string, len(n.Keys))
		for i, k := range n.Keys {
			if k == nil {
				parts[i] = "**" + p.expr(n.Values[i], precBor)
			} else {
				parts[i] = p.expr(k, precTest) + ": " + p.expr(n.Values[i], precTest)
			}
		}
		return "{" + strings.Join(parts, ", ") + "}", precAtom
	case *pyast.ListComp:
		return "[" + p.expr(n.Elt, precTest) + p.generators(n.Generators) + "]", precAtom
	case *pyast.SetComp:
		return "{" + p.expr(n.Elt, precTest) + p.generators(n.Generators) + "}", precAtom
	case *pyast.GeneratorExp:
		return "(" + p.expr(n.Elt, precTest) + p.generators(n.Generators) + ")", precAtom
	case *pyast.DictComp:
		return "{" + p.expr(n.Key, precTest) + ": " + p.expr(n.Value, precTest) + p.generators(n.Generators) + "}", precAtom
	case *pyast.NamedExpr:
		return "(" + n.Target.ID + " := " + p.expr(n.Value, precTest) + ")", precAtom
	case *pyast.Yield:
		if n.Value == nil {
			return "(yield)", precAtom
		}
		return "(yield " + p.expr(n.Value, precTest) + ")", precAtom
	case *pyast.YieldFrom:
		return "(yield from " + p.expr(n.Value, precTest) + ")", precAtom
	case *pyast.Starred:
		return "*" + p.expr(n.Value, precBor), precAtom
	case *pyast.Await:
		return "await " + p.expr(n.Value, precAtom), precAwait
	case *pyast.BinOp:
		prec, ok := binOpPrec[n.Op]
		if !ok {
			p.fail("unknown binary operator %q", n.Op)
		}
		if n.Op == "**" {
			return p.expr(n.Left, precAwait) + " ** " + p.expr(n.Right, precFactor), precPower
		}
		return p.expr(n.Left, prec) + " " + n.Op + " " + p.expr(n.Right, prec+1), prec
	case *pyast.UnaryOp:
		if n.Op == "not" {
			return "not " + p.expr(n.Operand, precNot), precNot
		}
		return n.Op + p.expr(n.Operand, precFactor), precFactor
	case *pyast.BoolOp:
		prec := precOr
		if n.Op == "and" {
			prec = precAnd
		}
		parts := make([]string, len(n.Values))
		for i, v := range n.Values {
			parts[i] = p.expr(v, prec+1)
		}
		return strings.Join(parts, " "+n.Op+" "), prec
	case *pyast.Compare:
		var sb strings.Builder
		sb.WriteString(p.expr(n.Left, precCmp+1))
		for i, op := range n.Ops {
			sb.WriteString(" " + op + " ")
			sb.WriteString(p.expr(n.Comparators[i], precCmp+1))
		}
		return sb.String(), precCmp
	case *pyast.IfExp:
		return p.expr(n.Body, precOr) + " if " + p.expr(n.Test, precOr) + " else " + p.expr(n.Orelse, precTest), precTest
	case *pyast.Lambda:
		args := p.arguments(n.Args, false)
		if args == "" {
			return "lambda: " + p.expr(n.Body, precTest), precTest
		}
		return "lambda " + args + ": " + p.expr(n.Body, precTest), precTest
	case *pyast.JoinedStr:
		if s, ok := p.fstring(n); ok {
			return s, precAtom
		}
		return p.exprPrec(n.Lower())
	case *pyast.Slice:
		return "slice(" + p.sliceArgs(n) + ")", precAtom
	case nil:
		p.fail("missing expression")
	}
	p.fail("unsupported expression %T", e)
	return "", 0
}

func (p *Printer) constant(c *pyast.Constant) string {
	switch c.Kind {
	case pyast.ConstStr:
		return Quote(c.Value)
	case pyast.ConstBytes:
		return QuoteBytes(c.Value)
	case pyast.ConstTrue:
		return "True"
	case pyast.ConstFalse:
		return "False"
	case pyast.ConstNone:
		return "None"
	case pyast.ConstEllipsis:
		return "..."
	}
	return c.Value
}

func (p *Printer) generators(gens []*pyast.Comprehension) string {
	var sb strings.Builder
	for _, g := range gens {
		if g.Async {
			sb.WriteString(" async")
		}
		sb.WriteString(" for " + p.expr(g.Target, precTest) + " in " + p.expr(g.Iter, precOr))
		for _, cond := range g.Ifs {
			sb.WriteString(" if " + p.expr(cond, precOr))
		}
	}
	return sb.String()
}

// subscript renders the inside of [...]. A tuple holding slices is written
// bare since a parenthesized slice is not valid syntax.
func (p *Printer) subscript(e pyast.Expr) string {
	switch n := e.(type) {
	case *pyast.Slice:
		return p.slice(n)
	case *pyast.Tuple:
		hasSlice := false
		for _, elt := range n.Elts {
			if _, ok := elt.(*pyast.Slice); ok {
				hasSlice = true
			}
		}
		if hasSlice {
			parts := make([]string, len(n.Elts))
			for i, elt := range n.Elts {
				parts[i] = p.subscript(elt)
			}
			s := strings.Join(parts, ", ")
			if len(parts) == 1 {
				s += ","
			}
			return s
		}
	}
	return p.expr(e, precTest)
}

func (p *Printer) slice(s *pyast.Slice) string {
	out := ""
	if s.Lower != nil {
		out = p.expr(s.Lower, precTest)
	}
	out += ":"
	if s.Upper != nil {
		out += p.expr(s.Upper, precTest)
	}
	if s.Step != nil {
		out += ":" + p.expr(s.Step, precTest)
	}
	return out
}

// sliceArgs renders a slice outside a subscript as slice() arguments.
func (p *Printer) sliceArgs(s *pyast.Slice) string {
	arg := func(e pyast.Expr) string {
		if e == nil {
			return "None"
		}
		return p.expr(e, precTest)
	}
	return arg(s.Lower) + ", " + arg(s.Upper) + ", " + arg(s.Step)
}
