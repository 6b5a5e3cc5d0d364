package pyast

// Inspect traverses the tree rooted at node in depth-first source order,
// calling f for every node. If f returns false the children of that node
// are skipped. Inspect does not mutate the tree.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || !f(node) {
		return
	}
	switch n := node.(type) {
	case *Module:
		inspectStmts(n.Body, f)

	case *FunctionDef:
		inspectExprs(n.Decorators, f)
		if n.Args != nil {
			Inspect(n.Args, f)
		}
		inspectExpr(n.Returns, f)
		inspectStmts(n.Body, f)
	case *ClassDef:
		inspectExprs(n.Decorators, f)
		inspectExprs(n.Bases, f)
		for _, k := range n.Keywords {
			Inspect(k, f)
		}
		inspectStmts(n.Body, f)
	case *Return:
		inspectExpr(n.Value, f)
	case *Delete:
		inspectExprs(n.Targets, f)
	case *Assign:
		inspectExprs(n.Targets, f)
		inspectExpr(n.Value, f)
	case *AugAssign:
		inspectExpr(n.Target, f)
		inspectExpr(n.Value, f)
	case *AnnAssign:
		inspectExpr(n.Target, f)
		inspectExpr(n.Annotation, f)
		inspectExpr(n.Value, f)
	case *For:
		inspectExpr(n.Target, f)
		inspectExpr(n.Iter, f)
		inspectStmts(n.Body, f)
		inspectStmts(n.Orelse, f)
	case *While:
		inspectExpr(n.Test, f)
		inspectStmts(n.Body, f)
		inspectStmts(n.Orelse, f)
	case *If:
		inspectExpr(n.Test, f)
		inspectStmts(n.Body, f)
		inspectStmts(n.Orelse, f)
	case *With:
		for _, item := range n.Items {
			Inspect(item, f)
		}
		inspectStmts(n.Body, f)
	case *Raise:
		inspectExpr(n.Exc, f)
		inspectExpr(n.Cause, f)
	case *Try:
		inspectStmts(n.Body, f)
		for _, h := range n.Handlers {
			Inspect(h, f)
		}
		inspectStmts(n.Orelse, f)
		inspectStmts(n.Finalbody, f)
	case *Assert:
		inspectExpr(n.Test, f)
		inspectExpr(n.Msg, f)
	case *Import:
		for _, a := range n.Names {
			Inspect(a, f)
		}
	case *ImportFrom:
		for _, a := range n.Names {
			Inspect(a, f)
		}
	case *ExprStmt:
		inspectExpr(n.Value, f)
	case *Global, *Nonlocal, *Pass, *Break, *Continue:

	case *Arguments:
		for _, a := range n.PosOnly {
			Inspect(a, f)
		}
		for _, a := range n.Args {
			Inspect(a, f)
		}
		if n.Vararg != nil {
			Inspect(n.Vararg, f)
		}
		for _, a := range n.KwOnly {
			Inspect(a, f)
		}
		inspectExprs(n.KwDefaults, f)
		if n.Kwarg != nil {
			Inspect(n.Kwarg, f)
		}
		inspectExprs(n.Defaults, f)
	case *Arg:
		inspectExpr(n.Annotation, f)
	case *Keyword:
		inspectExpr(n.Value, f)
	case *Alias:
	case *WithItem:
		inspectExpr(n.ContextExpr, f)
		inspectExpr(n.OptionalVars, f)
	case *ExceptHandler:
		inspectExpr(n.Type, f)
		inspectStmts(n.Body, f)
	case *Comprehension:
		inspectExpr(n.Target, f)
		inspectExpr(n.Iter, f)
		inspectExprs(n.Ifs, f)

	case *BoolOp:
		inspectExprs(n.Values, f)
	case *NamedExpr:
		if n.Target != nil {
			Inspect(n.Target, f)
		}
		inspectExpr(n.Value, f)
	case *BinOp:
		inspectExpr(n.Left, f)
		inspectExpr(n.Right, f)
	case *UnaryOp:
		inspectExpr(n.Operand, f)
	case *Lambda:
		if n.Args != nil {
			Inspect(n.Args, f)
		}
		inspectExpr(n.Body, f)
	case *IfExp:
		inspectExpr(n.Test, f)
		inspectExpr(n.Body, f)
		inspectExpr(n.Orelse, f)
	case *Dict:
		for i := range n.Values {
			if i < len(n.Keys) {
				inspectExpr(n.Keys[i], f)
			}
			inspectExpr(n.Values[i], f)
		}
	case *Set:
		inspectExprs(n.Elts, f)
	case *ListComp:
		inspectGenerators(n.Generators, f)
		inspectExpr(n.Elt, f)
	case *SetComp:
		inspectGenerators(n.Generators, f)
		inspectExpr(n.Elt, f)
	case *DictComp:
		inspectGenerators(n.Generators, f)
		inspectExpr(n.Key, f)
		inspectExpr(n.Value, f)
	case *GeneratorExp:
		inspectGenerators(n.Generators, f)
		inspectExpr(n.Elt, f)
	case *Await:
		inspectExpr(n.Value, f)
	case *Yield:
		inspectExpr(n.Value, f)
	case *YieldFrom:
		inspectExpr(n.Value, f)
	case *Compare:
		inspectExpr(n.Left, f)
		inspectExprs(n.Comparators, f)
	case *Call:
		inspectExpr(n.Func, f)
		inspectExprs(n.Args, f)
		for _, k := range n.Keywords {
			Inspect(k, f)
		}
	case *FormattedValue:
		inspectExpr(n.Value, f)
		if n.FormatSpec != nil {
			Inspect(n.FormatSpec, f)
		}
	case *JoinedStr:
		inspectExprs(n.Values, f)
	case *Attribute:
		inspectExpr(n.Value, f)
	case *Subscript:
		inspectExpr(n.Value, f)
		inspectExpr(n.Slice, f)
	case *Starred:
		inspectExpr(n.Value, f)
	case *List:
		inspectExprs(n.Elts, f)
	case *Tuple:
		inspectExprs(n.Elts, f)
	case *Slice:
		inspectExpr(n.Lower, f)
		inspectExpr(n.Upper, f)
		inspectExpr(n.Step, f)
	case *Constant, *Name:
	}
}

func inspectExpr(e Expr, f func(Node) bool) {
	if e != nil {
		Inspect(e, f)
	}
}

func inspectExprs(list []Expr, f func(Node) bool) {
	for _, e := range list {
		inspectExpr(e, f)
	}
}

func inspectStmts(list []Stmt, f func(Node) bool) {
	for _, s := range list {
		if s != nil {
			Inspect(s, f)
		}
	}
}

func inspectGenerators(gens []*Comprehension, f func(Node) bool) {
	for _, g := range gens {
		Inspect(g, f)
	}
}
