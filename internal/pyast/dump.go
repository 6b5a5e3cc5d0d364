package pyast

import (
	"fmt"
	"strings"
)

// Dump returns an indented tree representation of a node for debugging.
func Dump(node Node) string {
	var sb strings.Builder
	dumpNode(&sb, node, 0)
	return sb.String()
}

func dumpNode(sb *strings.Builder, node Node, indent int) {
	if node == nil {
		return
	}
	prefix := strings.Repeat("  ", indent)

	switch n := node.(type) {
	case *Module:
		sb.WriteString(prefix + "Module\n")
		dumpStmts(sb, n.Body, indent+1)
	case *FunctionDef:
		kw := "FunctionDef"
		if n.Async {
			kw = "AsyncFunctionDef"
		}
		sb.WriteString(fmt.Sprintf("%s%s %s\n", prefix, kw, n.Name))
		for _, d := range n.Decorators {
			dumpNode(sb, d, indent+2)
		}
		dumpArguments(sb, n.Args, indent+1)
		dumpStmts(sb, n.Body, indent+1)
	case *ClassDef:
		sb.WriteString(fmt.Sprintf("%sClassDef %s\n", prefix, n.Name))
		for _, b := range n.Bases {
			dumpNode(sb, b, indent+2)
		}
		dumpStmts(sb, n.Body, indent+1)
	case *Assign:
		sb.WriteString(prefix + "Assign\n")
		for _, t := range n.Targets {
			dumpNode(sb, t, indent+1)
		}
		dumpNode(sb, n.Value, indent+1)
	case *AugAssign:
		sb.WriteString(fmt.Sprintf("%sAugAssign %s=\n", prefix, n.Op))
		dumpNode(sb, n.Target, indent+1)
		dumpNode(sb, n.Value, indent+1)
	case *If:
		sb.WriteString(prefix + "If\n")
		dumpNode(sb, n.Test, indent+1)
		dumpStmts(sb, n.Body, indent+1)
		if len(n.Orelse) > 0 {
			sb.WriteString(prefix + "Else\n")
			dumpStmts(sb, n.Orelse, indent+1)
		}
	case *For:
		sb.WriteString(prefix + "For\n")
		dumpNode(sb, n.Target, indent+1)
		dumpNode(sb, n.Iter, indent+1)
		dumpStmts(sb, n.Body, indent+1)
	case *While:
		sb.WriteString(prefix + "While\n")
		dumpNode(sb, n.Test, indent+1)
		dumpStmts(sb, n.Body, indent+1)
	case *Try:
		sb.WriteString(prefix + "Try\n")
		dumpStmts(sb, n.Body, indent+1)
		for _, h := range n.Handlers {
			dumpNode(sb, h, indent)
		}
		dumpStmts(sb, n.Finalbody, indent+1)
	case *ExceptHandler:
		sb.WriteString(fmt.Sprintf("%sExcept as %q\n", prefix, n.Name))
		dumpNode(sb, n.Type, indent+1)
		dumpStmts(sb, n.Body, indent+1)
	case *Import:
		for _, a := range n.Names {
			sb.WriteString(fmt.Sprintf("%sImport %s as %q\n", prefix, a.Name, a.Asname))
		}
	case *ImportFrom:
		for _, a := range n.Names {
			sb.WriteString(fmt.Sprintf("%sImportFrom %s%s: %s as %q\n", prefix, strings.Repeat(".", n.Level), n.Module, a.Name, a.Asname))
		}
	case *ExprStmt:
		sb.WriteString(prefix + "Expr\n")
		dumpNode(sb, n.Value, indent+1)
	case *Return:
		sb.WriteString(prefix + "Return\n")
		dumpNode(sb, n.Value, indent+1)
	case *Name:
		sb.WriteString(fmt.Sprintf("%sName %s (%s)\n", prefix, n.ID, n.Ctx))
	case *Attribute:
		sb.WriteString(fmt.Sprintf("%sAttribute .%s (%s)\n", prefix, n.Attr, n.Ctx))
		dumpNode(sb, n.Value, indent+1)
	case *Constant:
		sb.WriteString(fmt.Sprintf("%sConstant %q\n", prefix, n.Value))
	case *Call:
		sb.WriteString(prefix + "Call\n")
		dumpNode(sb, n.Func, indent+1)
		for _, a := range n.Args {
			dumpNode(sb, a, indent+2)
		}
		for _, k := range n.Keywords {
			sb.WriteString(fmt.Sprintf("%s    %s=\n", prefix, k.Arg))
			dumpNode(sb, k.Value, indent+3)
		}
	case *Tuple:
		sb.WriteString(fmt.Sprintf("%sTuple (%s)\n", prefix, n.Ctx))
		for _, e := range n.Elts {
			dumpNode(sb, e, indent+1)
		}
	case *List:
		sb.WriteString(fmt.Sprintf("%sList (%s)\n", prefix, n.Ctx))
		for _, e := range n.Elts {
			dumpNode(sb, e, indent+1)
		}
	case *BinOp:
		sb.WriteString(fmt.Sprintf("%sBinOp %s\n", prefix, n.Op))
		dumpNode(sb, n.Left, indent+1)
		dumpNode(sb, n.Right, indent+1)
	default:
		sb.WriteString(fmt.Sprintf("%s%T\n", prefix, node))
	}
}

func dumpStmts(sb *strings.Builder, stmts []Stmt, indent int) {
	for _, s := range stmts {
		dumpNode(sb, s, indent)
	}
}

func dumpArguments(sb *strings.Builder, args *Arguments, indent int) {
	if args == nil {
		return
	}
	prefix := strings.Repeat("  ", indent)
	var names []string
	for _, a := range args.PosOnly {
		names = append(names, a.Name)
	}
	if len(args.PosOnly) > 0 {
		names = append(names, "/")
	}
	for _, a := range args.Args {
		names = append(names, a.Name)
	}
	if args.Vararg != nil {
		names = append(names, "*"+args.Vararg.Name)
	}
	for _, a := range args.KwOnly {
		names = append(names, a.Name)
	}
	if args.Kwarg != nil {
		names = append(names, "**"+args.Kwarg.Name)
	}
	sb.WriteString(fmt.Sprintf("%sArgs(%s)\n", prefix, strings.Join(names, ", ")))
}
