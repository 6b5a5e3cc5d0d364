// Package parser builds a pyast.Module from Python 3 source text. It is the
// Parser collaborator of the obfuscator: it validates syntax and fails fast
// with a *ParseError; it never returns a partial tree.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/whit3rabbit/pymixer/internal/lexer"
	"github.com/whit3rabbit/pymixer/internal/pyast"
)

// ParseError reports malformed input at a source position.
type ParseError struct {
	File   string
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: syntax error: %s", e.File, e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("%d:%d: syntax error: %s", e.Line, e.Column, e.Msg)
}

// Parser is a recursive-descent parser over a pre-scanned token slice.
type Parser struct {
	tokens []lexer.Token
	pos    int
	file   string
}

// Parse parses a complete module. filename is only used in error messages.
func Parse(source, filename string) (*pyast.Module, error) {
	tokens, err := lexer.New(source).Tokenize()
	if err != nil {
		var lexErr *lexer.Error
		if errors.As(err, &lexErr) {
			return nil, &ParseError{File: filename, Line: lexErr.Line, Column: lexErr.Column, Msg: lexErr.Msg}
		}
		return nil, err
	}
	p := &Parser{tokens: tokens, file: filename}
	return p.parseModule()
}

// ParseExpr parses a single expression, as found inside f-string fields.
func ParseExpr(source string) (pyast.Expr, error) {
	tokens, err := lexer.New("(" + source + "\n)").Tokenize()
	if err != nil {
		return nil, &ParseError{Msg: err.Error()}
	}
	p := &Parser{tokens: tokens}
	var expr pyast.Expr
	err = p.guard(func() {
		expr = p.parseAtom()
		p.skipNewlines()
		if !p.checkType(lexer.EOF) {
			p.errorf(p.cur(), "unexpected %q after expression", p.cur().Value)
		}
	})
	return expr, err
}

// guard runs fn and converts a ParseError panic raised by errorf into an error.
func (p *Parser) guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(*ParseError)
			if !ok {
				panic(r)
			}
			err = pe
		}
	}()
	fn()
	return nil
}

func (p *Parser) parseModule() (*pyast.Module, error) {
	mod := &pyast.Module{}
	err := p.guard(func() {
		for !p.checkType(lexer.EOF) {
			if p.acceptType(lexer.NEWLINE) {
				continue
			}
			mod.Body = append(mod.Body, p.parseStatement()...)
		}
	})
	if err != nil {
		return nil, err
	}
	return mod, nil
}

// --- Token helpers ---

func (p *Parser) cur() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) peek(n int) lexer.Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) advance() lexer.Token {
	tok := p.tokens[p.pos]
	if tok.Type != lexer.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) check(v string) bool {
	return p.cur().Is(v)
}

func (p *Parser) checkType(tt lexer.TokenType) bool {
	return p.cur().Type == tt
}

func (p *Parser) accept(v string) bool {
	if p.check(v) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) acceptType(tt lexer.TokenType) bool {
	if p.checkType(tt) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(v string) lexer.Token {
	if !p.check(v) {
		p.errorf(p.cur(), "expected %q, found %s", v, describe(p.cur()))
	}
	return p.advance()
}

func (p *Parser) expectType(tt lexer.TokenType) lexer.Token {
	if !p.checkType(tt) {
		p.errorf(p.cur(), "expected %s, found %s", tt, describe(p.cur()))
	}
	return p.advance()
}

// expectName consumes an identifier that is not a hard keyword.
func (p *Parser) expectName() lexer.Token {
	tok := p.cur()
	if tok.Type != lexer.NAME || lexer.IsKeyword(tok.Value) {
		p.errorf(tok, "expected identifier, found %s", describe(tok))
	}
	return p.advance()
}

func (p *Parser) skipNewlines() {
	for p.acceptType(lexer.NEWLINE) {
	}
}

func (p *Parser) errorf(tok lexer.Token, format string, args ...interface{}) {
	panic(&ParseError{File: p.file, Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf(format, args...)})
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.EOF, lexer.NEWLINE, lexer.INDENT, lexer.DEDENT:
		return tok.Type.String()
	}
	return fmt.Sprintf("%q", tok.Value)
}

func loc(tok lexer.Token) pyast.Loc {
	return pyast.Loc{Line: tok.Line, Column: tok.Column}
}

// atStatementEnd reports whether the current token closes a simple statement.
func (p *Parser) atStatementEnd() bool {
	return p.checkType(lexer.NEWLINE) || p.checkType(lexer.EOF) || p.check(";")
}

// --- Statements ---

func (p *Parser) parseStatement() []pyast.Stmt {
	tok := p.cur()
	switch tok.Type {
	case lexer.INDENT:
		p.errorf(tok, "unexpected indent")
	case lexer.DEDENT:
		p.errorf(tok, "unexpected dedent")
	}
	if tok.Is("@") {
		return []pyast.Stmt{p.parseDecorated()}
	}
	if tok.Type == lexer.NAME {
		switch tok.Value {
		case "if":
			return []pyast.Stmt{p.parseIf()}
		case "while":
			return []pyast.Stmt{p.parseWhile()}
		case "for":
			return []pyast.Stmt{p.parseFor(false)}
		case "try":
			return []pyast.Stmt{p.parseTry()}
		case "with":
			return []pyast.Stmt{p.parseWith(false)}
		case "def":
			return []pyast.Stmt{p.parseFunctionDef(nil, false)}
		case "class":
			return []pyast.Stmt{p.parseClassDef(nil)}
		case "async":
			next := p.peek(1)
			switch {
			case next.Is("def"):
				p.advance()
				return []pyast.Stmt{p.parseFunctionDef(nil, true)}
			case next.Is("for"):
				p.advance()
				return []pyast.Stmt{p.parseFor(true)}
			case next.Is("with"):
				p.advance()
				return []pyast.Stmt{p.parseWith(true)}
			}
			p.errorf(tok, "expected def, for or with after async")
		}
	}
	return p.parseSimpleStatement()
}

// parseSimpleStatement parses `small (';' small)* [';'] NEWLINE`.
func (p *Parser) parseSimpleStatement() []pyast.Stmt {
	stmts := []pyast.Stmt{p.parseSmallStatement()}
	for p.accept(";") {
		if p.checkType(lexer.NEWLINE) || p.checkType(lexer.EOF) {
			break
		}
		stmts = append(stmts, p.parseSmallStatement())
	}
	if !p.acceptType(lexer.NEWLINE) && !p.checkType(lexer.EOF) {
		p.errorf(p.cur(), "expected end of statement, found %s", describe(p.cur()))
	}
	return stmts
}

func (p *Parser) parseSmallStatement() pyast.Stmt {
	tok := p.cur()
	if tok.Type == lexer.NAME {
		switch tok.Value {
		case "pass":
			p.advance()
			return &pyast.Pass{Loc: loc(tok)}
		case "break":
			p.advance()
			return &pyast.Break{Loc: loc(tok)}
		case "continue":
			p.advance()
			return &pyast.Continue{Loc: loc(tok)}
		case "return":
			p.advance()
			ret := &pyast.Return{Loc: loc(tok)}
			if !p.atStatementEnd() {
				ret.Value = p.parseTestListStar()
			}
			return ret
		case "raise":
			p.advance()
			r := &pyast.Raise{Loc: loc(tok)}
			if !p.atStatementEnd() {
				r.Exc = p.parseTest()
				if p.accept("from") {
					r.Cause = p.parseTest()
				}
			}
			return r
		case "global", "nonlocal":
			p.advance()
			var names []string
			for {
				names = append(names, p.expectName().Value)
				if !p.accept(",") {
					break
				}
			}
			if tok.Value == "global" {
				return &pyast.Global{Loc: loc(tok), Names: names}
			}
			return &pyast.Nonlocal{Loc: loc(tok), Names: names}
		case "del":
			p.advance()
			targets, _ := p.parseExprList()
			for _, t := range targets {
				p.setContext(t, pyast.Del)
			}
			return &pyast.Delete{Loc: loc(tok), Targets: targets}
		case "assert":
			p.advance()
			a := &pyast.Assert{Loc: loc(tok), Test: p.parseTest()}
			if p.accept(",") {
				a.Msg = p.parseTest()
			}
			return a
		case "import":
			return p.parseImport()
		case "from":
			return p.parseImportFrom()
		}
	}
	return p.parseExprStatement()
}

var augOps = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, "//=": true, "%=": true, "**=": true,
	">>=": true, "<<=": true, "&=": true, "|=": true, "^=": true, "@=": true,
}

func (p *Parser) parseExprStatement() pyast.Stmt {
	tok := p.cur()
	first := p.parseYieldOrTestListStar()

	switch {
	case p.check(":"):
		p.advance()
		ann := &pyast.AnnAssign{Loc: loc(tok), Target: first, Annotation: p.parseTest()}
		_, ann.Simple = first.(*pyast.Name)
		if p.accept("=") {
			ann.Value = p.parseYieldOrTestListStar()
		}
		p.setContext(first, pyast.Store)
		return ann
	case p.cur().Type == lexer.OP && augOps[p.cur().Value]:
		op := p.advance()
		p.setContext(first, pyast.Store)
		return &pyast.AugAssign{
			Loc:    loc(tok),
			Target: first,
			Op:     strings.TrimSuffix(op.Value, "="),
			Value:  p.parseYieldOrTestListStar(),
		}
	case p.check("="):
		exprs := []pyast.Expr{first}
		for p.accept("=") {
			exprs = append(exprs, p.parseYieldOrTestListStar())
		}
		targets := exprs[:len(exprs)-1]
		for _, t := range targets {
			p.setContext(t, pyast.Store)
		}
		return &pyast.Assign{Loc: loc(tok), Targets: targets, Value: exprs[len(exprs)-1]}
	}
	return &pyast.ExprStmt{Loc: loc(tok), Value: first}
}

// setContext marks an expression as an assignment or deletion target,
// rejecting expressions that cannot be bound.
func (p *Parser) setContext(e pyast.Expr, ctx pyast.Context) {
	switch t := e.(type) {
	case *pyast.Name:
		t.Ctx = ctx
	case *pyast.Attribute:
		t.Ctx = ctx
	case *pyast.Subscript:
		t.Ctx = ctx
	case *pyast.Starred:
		t.Ctx = ctx
		p.setContext(t.Value, ctx)
	case *pyast.Tuple:
		t.Ctx = ctx
		for _, elt := range t.Elts {
			p.setContext(elt, ctx)
		}
	case *pyast.List:
		t.Ctx = ctx
		for _, elt := range t.Elts {
			p.setContext(elt, ctx)
		}
	default:
		line, col := e.Pos()
		panic(&ParseError{File: p.file, Line: line, Column: col, Msg: fmt.Sprintf("cannot assign to %T", e)})
	}
}

func (p *Parser) parseDottedName() string {
	parts := []string{p.expectName().Value}
	for p.accept(".") {
		parts = append(parts, p.expectName().Value)
	}
	return strings.Join(parts, ".")
}

func (p *Parser) parseImport() pyast.Stmt {
	tok := p.advance()
	imp := &pyast.Import{Loc: loc(tok)}
	for {
		at := p.cur()
		alias := &pyast.Alias{Loc: loc(at), Name: p.parseDottedName()}
		if p.accept("as") {
			alias.Asname = p.expectName().Value
		}
		imp.Names = append(imp.Names, alias)
		if !p.accept(",") {
			break
		}
	}
	return imp
}

func (p *Parser) parseImportFrom() pyast.Stmt {
	tok := p.advance()
	imp := &pyast.ImportFrom{Loc: loc(tok)}
	for {
		if p.accept(".") {
			imp.Level++
		} else if p.accept("...") {
			imp.Level += 3
		} else {
			break
		}
	}
	if !p.check("import") {
		imp.Module = p.parseDottedName()
	} else if imp.Level == 0 {
		p.errorf(p.cur(), "expected module name")
	}
	p.expect("import")

	if star := p.cur(); p.accept("*") {
		imp.Names = []*pyast.Alias{{Loc: loc(star), Name: "*"}}
		return imp
	}
	parens := p.accept("(")
	for {
		if parens && p.check(")") {
			break
		}
		at := p.cur()
		alias := &pyast.Alias{Loc: loc(at), Name: p.expectName().Value}
		if p.accept("as") {
			alias.Asname = p.expectName().Value
		}
		imp.Names = append(imp.Names, alias)
		if !p.accept(",") {
			break
		}
	}
	if parens {
		p.expect(")")
	}
	if len(imp.Names) == 0 {
		p.errorf(tok, "empty import list")
	}
	return imp
}

// parseBlock parses the suite after a ':'.
func (p *Parser) parseBlock() []pyast.Stmt {
	if !p.acceptType(lexer.NEWLINE) {
		return p.parseSimpleStatement()
	}
	p.skipNewlines()
	p.expectType(lexer.INDENT)
	var body []pyast.Stmt
	for !p.checkType(lexer.DEDENT) && !p.checkType(lexer.EOF) {
		if p.acceptType(lexer.NEWLINE) {
			continue
		}
		body = append(body, p.parseStatement()...)
	}
	p.acceptType(lexer.DEDENT)
	return body
}

func (p *Parser) parseElse() []pyast.Stmt {
	if p.accept("else") {
		p.expect(":")
		return p.parseBlock()
	}
	return nil
}

// parseIf handles both `if` and `elif`; an elif becomes a nested If in Orelse.
func (p *Parser) parseIf() *pyast.If {
	tok := p.advance()
	node := &pyast.If{Loc: loc(tok), Test: p.parseNamedExprTest()}
	p.expect(":")
	node.Body = p.parseBlock()
	if p.check("elif") {
		node.Orelse = []pyast.Stmt{p.parseIf()}
	} else {
		node.Orelse = p.parseElse()
	}
	return node
}

func (p *Parser) parseWhile() pyast.Stmt {
	tok := p.advance()
	node := &pyast.While{Loc: loc(tok), Test: p.parseNamedExprTest()}
	p.expect(":")
	node.Body = p.parseBlock()
	node.Orelse = p.parseElse()
	return node
}

func (p *Parser) parseFor(async bool) pyast.Stmt {
	tok := p.advance()
	node := &pyast.For{Loc: loc(tok), Async: async}
	node.Target = p.parseTargetList()
	p.setContext(node.Target, pyast.Store)
	p.expect("in")
	node.Iter = p.parseTestListStar()
	p.expect(":")
	node.Body = p.parseBlock()
	node.Orelse = p.parseElse()
	return node
}

func (p *Parser) parseTry() pyast.Stmt {
	tok := p.advance()
	p.expect(":")
	node := &pyast.Try{Loc: loc(tok), Body: p.parseBlock()}
	for p.check("except") {
		at := p.advance()
		h := &pyast.ExceptHandler{Loc: loc(at)}
		if !p.check(":") {
			h.Type = p.parseTest()
			if p.accept("as") {
				h.Name = p.expectName().Value
			}
		}
		p.expect(":")
		h.Body = p.parseBlock()
		node.Handlers = append(node.Handlers, h)
	}
	node.Orelse = p.parseElse()
	if p.accept("finally") {
		p.expect(":")
		node.Finalbody = p.parseBlock()
	}
	if len(node.Handlers) == 0 && node.Finalbody == nil {
		p.errorf(tok, "try statement needs an except or finally clause")
	}
	if len(node.Handlers) == 0 && node.Orelse != nil {
		p.errorf(tok, "try/else without except")
	}
	return node
}

func (p *Parser) parseWith(async bool) pyast.Stmt {
	tok := p.advance()
	node := &pyast.With{Loc: loc(tok), Async: async}
	if p.check("(") {
		start := p.pos
		err := p.guard(func() {
			p.advance()
			node.Items = p.parseWithItems(")")
			p.expect(")")
			if !p.check(":") {
				p.errorf(p.cur(), "expected ':'")
			}
		})
		if err != nil {
			p.pos = start
			node.Items = nil
		}
	}
	if node.Items == nil {
		node.Items = p.parseWithItems(":")
	}
	p.expect(":")
	node.Body = p.parseBlock()
	return node
}

func (p *Parser) parseWithItems(closer string) []*pyast.WithItem {
	var items []*pyast.WithItem
	for {
		item := &pyast.WithItem{ContextExpr: p.parseTest()}
		if p.accept("as") {
			item.OptionalVars = p.parseTarget()
			p.setContext(item.OptionalVars, pyast.Store)
		}
		items = append(items, item)
		if !p.accept(",") || p.check(closer) {
			break
		}
	}
	return items
}

func (p *Parser) parseDecorated() pyast.Stmt {
	var decorators []pyast.Expr
	for p.accept("@") {
		decorators = append(decorators, p.parseNamedExprTest())
		p.expectType(lexer.NEWLINE)
		p.skipNewlines()
	}
	switch {
	case p.check("def"):
		return p.parseFunctionDef(decorators, false)
	case p.check("class"):
		return p.parseClassDef(decorators)
	case p.check("async") && p.peek(1).Is("def"):
		p.advance()
		return p.parseFunctionDef(decorators, true)
	}
	p.errorf(p.cur(), "expected def or class after decorator")
	return nil
}

func (p *Parser) parseFunctionDef(decorators []pyast.Expr, async bool) pyast.Stmt {
	tok := p.expect("def")
	fn := &pyast.FunctionDef{Loc: loc(tok), Decorators: decorators, Async: async}
	fn.Name = p.expectName().Value
	p.expect("(")
	fn.Args = p.parseArguments(")", true)
	p.expect(")")
	if p.accept("->") {
		fn.Returns = p.parseTest()
	}
	p.expect(":")
	fn.Body = p.parseBlock()
	return fn
}

func (p *Parser) parseClassDef(decorators []pyast.Expr) pyast.Stmt {
	tok := p.expect("class")
	cls := &pyast.ClassDef{Loc: loc(tok), Decorators: decorators}
	cls.Name = p.expectName().Value
	if p.accept("(") {
		cls.Bases, cls.Keywords = p.parseCallArgs()
	}
	p.expect(":")
	cls.Body = p.parseBlock()
	return cls
}

// parseArguments parses a def or lambda parameter list up to closer.
func (p *Parser) parseArguments(closer string, annotations bool) *pyast.Arguments {
	args := &pyast.Arguments{}
	kwOnly := false
	for !p.check(closer) {
		switch {
		case p.check("/"):
			tok := p.advance()
			if kwOnly || len(args.PosOnly) > 0 || len(args.Args) == 0 {
				p.errorf(tok, "invalid '/' in parameter list")
			}
			args.PosOnly, args.Args = args.Args, nil
		case p.accept("**"):
			args.Kwarg = p.parseArg(annotations)
		case p.accept("*"):
			kwOnly = true
			if !p.check(",") && !p.check(closer) {
				args.Vararg = p.parseArg(annotations)
			}
		default:
			arg := p.parseArg(annotations)
			var def pyast.Expr
			if p.accept("=") {
				def = p.parseTest()
			}
			if kwOnly {
				args.KwOnly = append(args.KwOnly, arg)
				args.KwDefaults = append(args.KwDefaults, def)
			} else {
				args.Args = append(args.Args, arg)
				if def != nil {
					args.Defaults = append(args.Defaults, def)
				} else if len(args.Defaults) > 0 {
					p.errorf(p.cur(), "non-default argument follows default argument")
				}
			}
		}
		if !p.accept(",") {
			break
		}
	}
	return args
}

func (p *Parser) parseArg(annotations bool) *pyast.Arg {
	tok := p.expectName()
	arg := &pyast.Arg{Loc: loc(tok), Name: tok.Value}
	if annotations && p.accept(":") {
		arg.Annotation = p.parseTest()
	}
	return arg
}
