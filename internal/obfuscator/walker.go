package obfuscator

import (
	"fmt"
	"strings"

	"github.com/whit3rabbit/pymixer/internal/config"
	"github.com/whit3rabbit/pymixer/internal/pyast"
	"github.com/whit3rabbit/pymixer/internal/scrambler"
)

// walker rewrites one module in place. Nodes it synthesizes are never
// walked again.
type walker struct {
	octx *ObfuscationContext
	cfg  *config.Config
	reg  *scrambler.Registry
	file string

	scopes *scopeStack
	// block nesting; compared against the scope's base to find top-level bindings
	depth int
	// parameter names of enclosing defs and lambdas that keep their spelling
	shadows []map[string]bool
	// attribute targets already renamed by the assignment rule
	settled map[*pyast.Attribute]bool

	exports exportList
	members []Export
}

func newWalker(octx *ObfuscationContext, file string) *walker {
	return &walker{
		octx:    octx,
		cfg:     octx.Config,
		reg:     octx.Registry,
		file:    file,
		scopes:  newScopeStack(),
		settled: make(map[*pyast.Attribute]bool),
	}
}

func (w *walker) debugf(format string, args ...interface{}) {
	if w.cfg.DebugMode && !w.cfg.Silent {
		fmt.Printf("Debug: %s: "+format+"\n", append([]interface{}{w.file}, args...)...)
	}
}

// run rewrites mod and returns the exports it re-bound together with the
// self-attribute names that never resolved.
func (w *walker) run(mod *pyast.Module) ([]Export, []string) {
	mod.Body = w.suite(mod.Body)

	unresolved := w.scopes.resolve(func(name string) (string, bool) {
		if isPrivate(name) && w.octx.isMember(name) && w.renameMember(name) {
			alias := w.reg.Alias(name)
			w.debugf("resolved %s -> %s from a declaration elsewhere in the run", name, alias)
			return alias, true
		}
		return "", false
	})

	if !w.cfg.Obfuscation.Exports.Enabled {
		return nil, unresolved
	}
	exports := w.exports.ordered()
	mod.Body = append(mod.Body, rebindStmts(exports)...)
	return append(exports, w.members...), unresolved
}

// --- Renaming predicates ---

// renameIdent reports whether a plain identifier in the current position is
// renamed.
func (w *walker) renameIdent(name string) bool {
	if !w.renameMember(name) {
		return false
	}
	if sc := w.scopes.top(); sc.class != nil && sc.funcs == 0 && sc.data[name] {
		return false
	}
	for i := len(w.shadows) - 1; i >= 0; i-- {
		if kept, ok := w.shadows[i][name]; ok {
			return !kept
		}
	}
	return true
}

// renameMember is renameIdent for attribute names, which parameters cannot shadow.
func (w *walker) renameMember(name string) bool {
	return w.cfg.Obfuscation.Names.Scramble && name != "" && !isProtected(name) && !w.reg.ShouldIgnore(name)
}

func (w *walker) rename(name string) string {
	if !w.renameIdent(name) {
		return name
	}
	return w.reg.Alias(name)
}

// --- Statements ---

func (w *walker) stmts(list []pyast.Stmt) []pyast.Stmt {
	if len(list) == 0 {
		return list
	}
	out := make([]pyast.Stmt, 0, len(list))
	for _, s := range list {
		out = append(out, w.stmt(s)...)
	}
	return out
}

// suite walks a module, class or def body. A leading docstring stays a plain
// string constant so it still sets __doc__ and may precede __future__ imports.
func (w *walker) suite(list []pyast.Stmt) []pyast.Stmt {
	if len(list) == 0 || !isDocstring(list[0]) {
		return w.stmts(list)
	}
	return append([]pyast.Stmt{list[0]}, w.stmts(list[1:])...)
}

func isDocstring(s pyast.Stmt) bool {
	es, ok := s.(*pyast.ExprStmt)
	if !ok {
		return false
	}
	c, ok := es.Value.(*pyast.Constant)
	return ok && c.Kind == pyast.ConstStr
}

func (w *walker) stmt(s pyast.Stmt) []pyast.Stmt {
	switch n := s.(type) {
	case *pyast.FunctionDef:
		w.functionDef(n)
	case *pyast.ClassDef:
		w.classDef(n)
	case *pyast.Return:
		n.Value = w.expr(n.Value)
	case *pyast.Delete:
		n.Targets = w.exprs(n.Targets)
	case *pyast.Assign:
		for _, t := range n.Targets {
			w.bindTarget(t)
		}
		n.Targets = w.exprs(n.Targets)
		n.Value = w.expr(n.Value)
	case *pyast.AugAssign:
		n.Target = w.expr(n.Target)
		n.Value = w.expr(n.Value)
	case *pyast.AnnAssign:
		if n.Value != nil {
			w.bindTarget(n.Target)
		}
		n.Target = w.expr(n.Target)
		n.Annotation = w.expr(n.Annotation)
		n.Value = w.expr(n.Value)
	case *pyast.For:
		w.depth++
		n.Target = w.expr(n.Target)
		n.Iter = w.expr(n.Iter)
		n.Body = w.stmts(n.Body)
		n.Orelse = w.stmts(n.Orelse)
		w.depth--
	case *pyast.While:
		w.depth++
		n.Test = w.expr(n.Test)
		n.Body = w.stmts(n.Body)
		n.Orelse = w.stmts(n.Orelse)
		w.depth--
	case *pyast.If:
		w.depth++
		n.Test = w.expr(n.Test)
		n.Body = w.stmts(n.Body)
		n.Orelse = w.stmts(n.Orelse)
		w.depth--
	case *pyast.With:
		w.depth++
		for _, item := range n.Items {
			item.ContextExpr = w.expr(item.ContextExpr)
			item.OptionalVars = w.expr(item.OptionalVars)
		}
		n.Body = w.stmts(n.Body)
		w.depth--
	case *pyast.Raise:
		n.Exc = w.expr(n.Exc)
		n.Cause = w.expr(n.Cause)
	case *pyast.Try:
		w.depth++
		n.Body = w.stmts(n.Body)
		for _, h := range n.Handlers {
			h.Type = w.expr(h.Type)
			h.Name = w.rename(h.Name)
			h.Body = w.stmts(h.Body)
		}
		n.Orelse = w.stmts(n.Orelse)
		n.Finalbody = w.stmts(n.Finalbody)
		w.depth--
	case *pyast.Assert:
		n.Test = w.expr(n.Test)
		n.Msg = w.expr(n.Msg)
	case *pyast.Import:
		return w.importStmt(n)
	case *pyast.ImportFrom:
		w.importFrom(n)
	case *pyast.Global:
		w.renameAll(n.Names)
	case *pyast.Nonlocal:
		w.renameAll(n.Names)
	case *pyast.ExprStmt:
		n.Value = w.expr(n.Value)
	case *pyast.Pass, *pyast.Break, *pyast.Continue:
	default:
		panic(fmt.Sprintf("obfuscator: unhandled statement %T", s))
	}
	return []pyast.Stmt{s}
}

func (w *walker) renameAll(names []string) {
	for i, name := range names {
		names[i] = w.rename(name)
	}
}

func (w *walker) functionDef(fn *pyast.FunctionDef) {
	fn.Decorators = w.exprs(fn.Decorators)
	kept := w.parameters(fn.Args)
	fn.Returns = w.expr(fn.Returns)
	// a global declaration makes the name refer to the module binding again
	for _, name := range globalNames(fn.Body, nil) {
		kept[name] = false
	}

	sc := w.scopes.top()
	if orig := fn.Name; w.renameIdent(orig) {
		alias := w.reg.Alias(orig)
		fn.Name = alias
		w.bindMember(sc, orig, alias, ExportFunction)
	}

	w.shadows = append(w.shadows, kept)
	sc.funcs++
	w.depth++
	fn.Body = w.suite(fn.Body)
	w.depth--
	sc.funcs--
	w.shadows = w.shadows[:len(w.shadows)-1]
}

// parameters walks the parts of a def or lambda header that are evaluated in
// the enclosing scope and renames the parameters that cannot be passed by
// keyword. It returns the parameter names that keep their spelling.
func (w *walker) parameters(a *pyast.Arguments) map[string]bool {
	kept := make(map[string]bool)
	if a == nil {
		return kept
	}
	a.Defaults = w.exprs(a.Defaults)
	a.KwDefaults = w.exprs(a.KwDefaults)

	for _, arg := range a.PosOnly {
		arg.Annotation = w.expr(arg.Annotation)
		arg.Name = w.rename(arg.Name)
	}
	for _, arg := range a.Args {
		arg.Annotation = w.expr(arg.Annotation)
		kept[arg.Name] = true
	}
	if a.Vararg != nil {
		a.Vararg.Annotation = w.expr(a.Vararg.Annotation)
		a.Vararg.Name = w.rename(a.Vararg.Name)
	}
	for _, arg := range a.KwOnly {
		arg.Annotation = w.expr(arg.Annotation)
		kept[arg.Name] = true
	}
	if a.Kwarg != nil {
		a.Kwarg.Annotation = w.expr(a.Kwarg.Annotation)
		a.Kwarg.Name = w.rename(a.Kwarg.Name)
	}
	return kept
}

func (w *walker) classDef(cls *pyast.ClassDef) {
	cls.Decorators = w.exprs(cls.Decorators)
	cls.Bases = w.exprs(cls.Bases)
	w.keywords(cls.Keywords)

	sc := w.scopes.top()
	name := cls.Name
	if w.renameIdent(name) {
		alias := w.reg.Alias(name)
		cls.Name = alias
		w.bindMember(sc, name, alias, ExportClass)
	}
	if w.cfg.Obfuscation.Slots.Strip {
		cls.Body = stripSlots(cls.Body)
	}

	w.depth++
	inner := w.scopes.enter(cls, w.depth)
	inner.data = classData(cls.Body, nil)
	cls.Body = w.suite(cls.Body)
	if w.cfg.Obfuscation.Exports.Enabled {
		cls.Body = append(cls.Body, rebindStmts(inner.rebinds.items)...)
		for _, e := range inner.rebinds.items {
			e.Class = name
			w.members = append(w.members, e)
		}
	}
	w.scopes.leave()
	w.depth--
}

// bindMember handles a def or class statement whose name was renamed: inside
// a class body it declares a member, and at the top level of its scope a
// public name becomes an export.
func (w *walker) bindMember(sc *scope, orig, alias string, kind ExportKind) {
	if sc.class != nil && sc.funcs == 0 {
		w.scopes.declare(orig, alias)
	}
	if w.depth != sc.base || !isPublic(orig) {
		return
	}
	if sc.class != nil {
		sc.rebinds.add(ExportMember, orig, alias)
		return
	}
	w.exports.add(kind, orig, alias)
}

// stripSlots drops __slots__ targets from the class body's assignments and
// removes assignments left without targets.
func stripSlots(body []pyast.Stmt) []pyast.Stmt {
	out := body[:0]
	for _, s := range body {
		switch st := s.(type) {
		case *pyast.Assign:
			targets := st.Targets[:0]
			for _, t := range st.Targets {
				if n, ok := t.(*pyast.Name); ok && n.ID == "__slots__" {
					continue
				}
				targets = append(targets, t)
			}
			st.Targets = targets
			if len(targets) == 0 {
				continue
			}
		case *pyast.AnnAssign:
			if n, ok := st.Target.(*pyast.Name); ok && n.ID == "__slots__" {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// blocks returns the statement lists nested in s that share its scope.
func blocks(s pyast.Stmt) [][]pyast.Stmt {
	switch n := s.(type) {
	case *pyast.If:
		return [][]pyast.Stmt{n.Body, n.Orelse}
	case *pyast.For:
		return [][]pyast.Stmt{n.Body, n.Orelse}
	case *pyast.While:
		return [][]pyast.Stmt{n.Body, n.Orelse}
	case *pyast.With:
		return [][]pyast.Stmt{n.Body}
	case *pyast.Try:
		out := [][]pyast.Stmt{n.Body, n.Orelse, n.Finalbody}
		for _, h := range n.Handlers {
			out = append(out, h.Body)
		}
		return out
	}
	return nil
}

// globalNames appends the names a function body declares global.
func globalNames(body []pyast.Stmt, into []string) []string {
	for _, s := range body {
		if g, ok := s.(*pyast.Global); ok {
			into = append(into, g.Names...)
			continue
		}
		for _, b := range blocks(s) {
			into = globalNames(b, into)
		}
	}
	return into
}

// classData collects the public names a class body binds by assignment.
// They are class attributes reachable through instances, so they keep their
// spelling like public instance attributes do.
func classData(body []pyast.Stmt, into map[string]bool) map[string]bool {
	if into == nil {
		into = make(map[string]bool)
	}
	for _, s := range body {
		switch n := s.(type) {
		case *pyast.Assign:
			for _, t := range n.Targets {
				targetNames(t, into)
			}
		case *pyast.AugAssign:
			targetNames(n.Target, into)
		case *pyast.AnnAssign:
			targetNames(n.Target, into)
		case *pyast.For:
			targetNames(n.Target, into)
		}
		for _, b := range blocks(s) {
			classData(b, into)
		}
	}
	return into
}

func targetNames(target pyast.Expr, into map[string]bool) {
	switch t := target.(type) {
	case *pyast.Name:
		if isPublic(t.ID) {
			into[t.ID] = true
		}
	case *pyast.Tuple:
		for _, e := range t.Elts {
			targetNames(e, into)
		}
	case *pyast.List:
		for _, e := range t.Elts {
			targetNames(e, into)
		}
	case *pyast.Starred:
		targetNames(t.Value, into)
	}
}

// bindTarget applies the assignment-target rules before the target is
// walked as an ordinary expression.
func (w *walker) bindTarget(target pyast.Expr) {
	switch t := target.(type) {
	case *pyast.Name:
		w.bindName(t.ID)
	case *pyast.Tuple:
		for _, e := range t.Elts {
			w.bindTarget(e)
		}
	case *pyast.List:
		for _, e := range t.Elts {
			w.bindTarget(e)
		}
	case *pyast.Starred:
		w.bindTarget(t.Value)
	case *pyast.Attribute:
		if !isReceiver(t.Value) || !isPrivate(t.Attr) || !w.renameMember(t.Attr) {
			return
		}
		orig := t.Attr
		alias := w.reg.Alias(orig)
		w.scopes.declare(orig, alias)
		t.Attr = alias
		w.settled[t] = true
		w.debugf("declared %s -> %s", orig, alias)
	}
}

func (w *walker) bindName(name string) {
	if !w.renameIdent(name) {
		return
	}
	sc := w.scopes.top()
	if sc.class == nil {
		if w.depth == 0 && isPublic(name) {
			w.exports.add(ExportConstant, name, w.reg.Alias(name))
		}
		return
	}
	if sc.funcs == 0 {
		w.bindMember(sc, name, w.reg.Alias(name), ExportConstant)
	}
}

// importStmt renames the local binding of each imported module. A dotted
// import without `as` binds its top-level package, so it becomes an explicit
// __import__ call assigned to the alias.
func (w *walker) importStmt(imp *pyast.Import) []pyast.Stmt {
	var out []pyast.Stmt
	var names []*pyast.Alias
	flush := func() {
		if len(names) > 0 {
			out = append(out, &pyast.Import{Loc: imp.Loc, Names: names})
			names = nil
		}
	}

	for _, a := range imp.Names {
		bound, dotted := a.Asname, false
		if bound == "" {
			bound = a.Name
			if i := strings.IndexByte(a.Name, '.'); i >= 0 {
				bound, dotted = a.Name[:i], true
			}
		}
		if !w.renameIdent(bound) {
			names = append(names, a)
			continue
		}
		alias := w.reg.Alias(bound)
		w.bindImport(bound, alias)
		if !dotted {
			a.Asname = alias
			names = append(names, a)
			continue
		}

		flush()
		var module pyast.Expr = pyast.Str(a.Name)
		if w.cfg.Obfuscation.Strings.Enabled {
			module = encodeLiteral(pyast.Str(a.Name))
		}
		assign := &pyast.Assign{
			Targets: []pyast.Expr{pyast.NewName(alias, pyast.Store)},
			Value:   pyast.CallName("__import__", module),
		}
		assign.Loc = a.Loc
		out = append(out, assign)
	}
	flush()
	return out
}

func (w *walker) importFrom(imp *pyast.ImportFrom) {
	if imp.Level == 0 && imp.Module == "__future__" {
		return
	}
	for _, a := range imp.Names {
		if a.Name == "*" {
			continue
		}
		bound := a.Asname
		if bound == "" {
			bound = a.Name
		}
		if !w.renameIdent(bound) {
			continue
		}
		alias := w.reg.Alias(bound)
		a.Asname = alias
		w.bindImport(bound, alias)
	}
}

// bindImport exports public module-level import bindings so importers of
// this module still find them under the original name.
func (w *walker) bindImport(name, alias string) {
	if w.scopes.top().class == nil && w.depth == 0 && isPublic(name) {
		w.exports.add(ExportConstant, name, alias)
	}
}

// --- Expressions ---

func (w *walker) exprs(list []pyast.Expr) []pyast.Expr {
	for i, e := range list {
		list[i] = w.expr(e)
	}
	return list
}

func (w *walker) keywords(list []*pyast.Keyword) {
	for _, k := range list {
		k.Value = w.expr(k.Value)
	}
}

func (w *walker) generators(gens []*pyast.Comprehension) {
	for _, g := range gens {
		g.Target = w.expr(g.Target)
		g.Iter = w.expr(g.Iter)
		g.Ifs = w.exprs(g.Ifs)
	}
}

// expr walks e and returns the expression that replaces it.
func (w *walker) expr(e pyast.Expr) pyast.Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case *pyast.Name:
		n.ID = w.rename(n.ID)
	case *pyast.Attribute:
		w.attribute(n)
	case *pyast.Constant:
		if w.cfg.Obfuscation.Strings.Enabled {
			return encodeLiteral(n)
		}
	case *pyast.JoinedStr:
		if w.cfg.Obfuscation.Strings.Enabled {
			return w.expr(n.Lower())
		}
		w.joinedStr(n)
	case *pyast.FormattedValue:
		n.Value = w.expr(n.Value)
		if n.FormatSpec != nil {
			w.joinedStr(n.FormatSpec)
		}
	case *pyast.BoolOp:
		n.Values = w.exprs(n.Values)
	case *pyast.NamedExpr:
		if n.Target != nil {
			n.Target.ID = w.rename(n.Target.ID)
		}
		n.Value = w.expr(n.Value)
	case *pyast.BinOp:
		n.Left = w.expr(n.Left)
		n.Right = w.expr(n.Right)
	case *pyast.UnaryOp:
		n.Operand = w.expr(n.Operand)
	case *pyast.Lambda:
		kept := w.parameters(n.Args)
		sc := w.scopes.top()
		w.shadows = append(w.shadows, kept)
		sc.funcs++
		n.Body = w.expr(n.Body)
		sc.funcs--
		w.shadows = w.shadows[:len(w.shadows)-1]
	case *pyast.IfExp:
		n.Test = w.expr(n.Test)
		n.Body = w.expr(n.Body)
		n.Orelse = w.expr(n.Orelse)
	case *pyast.Dict:
		n.Keys = w.exprs(n.Keys)
		n.Values = w.exprs(n.Values)
	case *pyast.Set:
		n.Elts = w.exprs(n.Elts)
	case *pyast.ListComp:
		w.generators(n.Generators)
		n.Elt = w.expr(n.Elt)
	case *pyast.SetComp:
		w.generators(n.Generators)
		n.Elt = w.expr(n.Elt)
	case *pyast.DictComp:
		w.generators(n.Generators)
		n.Key = w.expr(n.Key)
		n.Value = w.expr(n.Value)
	case *pyast.GeneratorExp:
		w.generators(n.Generators)
		n.Elt = w.expr(n.Elt)
	case *pyast.Await:
		n.Value = w.expr(n.Value)
	case *pyast.Yield:
		n.Value = w.expr(n.Value)
	case *pyast.YieldFrom:
		n.Value = w.expr(n.Value)
	case *pyast.Compare:
		n.Left = w.expr(n.Left)
		n.Comparators = w.exprs(n.Comparators)
	case *pyast.Call:
		n.Func = w.expr(n.Func)
		n.Args = w.exprs(n.Args)
		w.keywords(n.Keywords)
	case *pyast.Subscript:
		n.Value = w.expr(n.Value)
		n.Slice = w.expr(n.Slice)
	case *pyast.Starred:
		n.Value = w.expr(n.Value)
	case *pyast.List:
		n.Elts = w.exprs(n.Elts)
	case *pyast.Tuple:
		n.Elts = w.exprs(n.Elts)
	case *pyast.Slice:
		n.Lower = w.expr(n.Lower)
		n.Upper = w.expr(n.Upper)
		n.Step = w.expr(n.Step)
	default:
		panic(fmt.Sprintf("obfuscator: unhandled expression %T", e))
	}
	return e
}

// joinedStr walks the replacement fields of an f-string kept as an f-string.
func (w *walker) joinedStr(js *pyast.JoinedStr) {
	for _, v := range js.Values {
		if fv, ok := v.(*pyast.FormattedValue); ok {
			w.expr(fv)
		}
	}
}

// attribute applies the member rules to an attribute access. Members read
// through self or cls are renamed once declared in the current scope and
// deferred until then. Other receivers only see private members declared
// somewhere in the run.
func (w *walker) attribute(a *pyast.Attribute) {
	receiver := isReceiver(a.Value)
	a.Value = w.expr(a.Value)
	if w.settled[a] || !w.renameMember(a.Attr) {
		return
	}

	switch {
	case receiver:
		if alias, ok := w.scopes.lookup(a.Attr); ok {
			a.Attr = alias
			return
		}
		w.debugf("deferring attribute %s at line %d", a.Attr, a.Line)
		w.scopes.deferAttr(a)
	case isPrivate(a.Attr) && w.octx.isMember(a.Attr):
		a.Attr = w.reg.Alias(a.Attr)
	}
}
