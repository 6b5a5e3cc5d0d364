package parser

import (
	"github.com/whit3rabbit/pymixer/internal/lexer"
	"github.com/whit3rabbit/pymixer/internal/pyast"
)

// Binary operator precedence below the unary/power level. Higher binds tighter.
var binaryPrecedence = map[string]int{
	"|":  1,
	"^":  2,
	"&":  3,
	"<<": 4, ">>": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "//": 6, "%": 6, "@": 6,
}

// parseYieldOrTestListStar parses the right-hand side of an assignment or an
// expression statement.
func (p *Parser) parseYieldOrTestListStar() pyast.Expr {
	if p.check("yield") {
		return p.parseYield()
	}
	return p.parseTestListStar()
}

// parseTestListStar parses `a, *b, c`, producing a Tuple when a comma is present.
func (p *Parser) parseTestListStar() pyast.Expr {
	tok := p.cur()
	first := p.parseTestOrStar()
	if !p.check(",") {
		return first
	}
	elts := []pyast.Expr{first}
	for p.accept(",") {
		if !p.startsExpression() {
			break
		}
		elts = append(elts, p.parseTestOrStar())
	}
	return &pyast.Tuple{Loc: loc(tok), Elts: elts, Ctx: pyast.Load}
}

// startsExpression reports whether the current token can begin an expression;
// used to accept trailing commas.
func (p *Parser) startsExpression() bool {
	tok := p.cur()
	switch tok.Type {
	case lexer.NAME:
		switch tok.Value {
		case "lambda", "not", "await", "None", "True", "False", "yield":
			return true
		}
		return !lexer.IsKeyword(tok.Value)
	case lexer.NUMBER, lexer.STRING:
		return true
	case lexer.OP:
		switch tok.Value {
		case "(", "[", "{", "-", "+", "~", "*", "...":
			return true
		}
	}
	return false
}

func (p *Parser) parseTestOrStar() pyast.Expr {
	if tok := p.cur(); p.accept("*") {
		return &pyast.Starred{Loc: loc(tok), Value: p.parseBitOr(), Ctx: pyast.Load}
	}
	return p.parseTest()
}

// parseNamedExprTest allows an unparenthesized walrus where the grammar does.
func (p *Parser) parseNamedExprTest() pyast.Expr {
	tok := p.cur()
	if tok.Type == lexer.NAME && !lexer.IsKeyword(tok.Value) && p.peek(1).Is(":=") {
		p.advance()
		p.advance()
		return &pyast.NamedExpr{
			Loc:    loc(tok),
			Target: &pyast.Name{Loc: loc(tok), ID: tok.Value, Ctx: pyast.Store},
			Value:  p.parseTest(),
		}
	}
	return p.parseTest()
}

// parseExprList parses comma-separated targets at bitwise-or level, as in
// `for` and `del` statements. The bool reports whether a comma was seen.
func (p *Parser) parseExprList() ([]pyast.Expr, bool) {
	elts := []pyast.Expr{p.parseTarget()}
	comma := false
	for p.check(",") {
		p.advance()
		comma = true
		if !p.startsExpression() {
			break
		}
		elts = append(elts, p.parseTarget())
	}
	return elts, comma
}

func (p *Parser) parseTargetList() pyast.Expr {
	tok := p.cur()
	elts, comma := p.parseExprList()
	if !comma {
		return elts[0]
	}
	return &pyast.Tuple{Loc: loc(tok), Elts: elts, Ctx: pyast.Load}
}

func (p *Parser) parseTarget() pyast.Expr {
	if tok := p.cur(); p.accept("*") {
		return &pyast.Starred{Loc: loc(tok), Value: p.parseBitOr(), Ctx: pyast.Load}
	}
	return p.parseBitOr()
}

func (p *Parser) parseTest() pyast.Expr {
	if p.check("lambda") {
		return p.parseLambda()
	}
	tok := p.cur()
	body := p.parseOrTest()
	if !p.check("if") {
		return body
	}
	p.advance()
	test := p.parseOrTest()
	p.expect("else")
	return &pyast.IfExp{Loc: loc(tok), Test: test, Body: body, Orelse: p.parseTest()}
}

func (p *Parser) parseLambda() pyast.Expr {
	tok := p.advance()
	args := p.parseArguments(":", false)
	p.expect(":")
	return &pyast.Lambda{Loc: loc(tok), Args: args, Body: p.parseTest()}
}

func (p *Parser) parseYield() pyast.Expr {
	tok := p.advance()
	if p.accept("from") {
		return &pyast.YieldFrom{Loc: loc(tok), Value: p.parseTest()}
	}
	y := &pyast.Yield{Loc: loc(tok)}
	if p.startsExpression() {
		y.Value = p.parseTestListStar()
	}
	return y
}

func (p *Parser) parseOrTest() pyast.Expr {
	return p.parseBoolOp("or", p.parseAndTest)
}

func (p *Parser) parseAndTest() pyast.Expr {
	return p.parseBoolOp("and", p.parseNotTest)
}

func (p *Parser) parseBoolOp(op string, operand func() pyast.Expr) pyast.Expr {
	tok := p.cur()
	first := operand()
	if !p.check(op) {
		return first
	}
	values := []pyast.Expr{first}
	for p.accept(op) {
		values = append(values, operand())
	}
	return &pyast.BoolOp{Loc: loc(tok), Op: op, Values: values}
}

func (p *Parser) parseNotTest() pyast.Expr {
	if tok := p.cur(); p.accept("not") {
		return &pyast.UnaryOp{Loc: loc(tok), Op: "not", Operand: p.parseNotTest()}
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() pyast.Expr {
	tok := p.cur()
	left := p.parseBitOr()
	var ops []string
	var comparators []pyast.Expr
	for {
		op := p.comparisonOp()
		if op == "" {
			break
		}
		ops = append(ops, op)
		comparators = append(comparators, p.parseBitOr())
	}
	if len(ops) == 0 {
		return left
	}
	return &pyast.Compare{Loc: loc(tok), Left: left, Ops: ops, Comparators: comparators}
}

// comparisonOp consumes and returns a comparison operator, or "" if none.
func (p *Parser) comparisonOp() string {
	tok := p.cur()
	switch {
	case tok.Type == lexer.OP:
		switch tok.Value {
		case "<", ">", "==", ">=", "<=", "!=":
			p.advance()
			return tok.Value
		}
	case tok.Is("in"):
		p.advance()
		return "in"
	case tok.Is("not") && p.peek(1).Is("in"):
		p.advance()
		p.advance()
		return "not in"
	case tok.Is("is"):
		p.advance()
		if p.accept("not") {
			return "is not"
		}
		return "is"
	}
	return ""
}

func (p *Parser) parseBitOr() pyast.Expr {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) pyast.Expr {
	left := p.parseFactor()
	for {
		tok := p.cur()
		if tok.Type != lexer.OP {
			return left
		}
		prec, ok := binaryPrecedence[tok.Value]
		if !ok || prec < minPrec {
			return left
		}
		p.advance()
		right := p.parseBinary(prec + 1)
		line, col := left.Pos()
		left = &pyast.BinOp{Loc: pyast.Loc{Line: line, Column: col}, Left: left, Op: tok.Value, Right: right}
	}
}

func (p *Parser) parseFactor() pyast.Expr {
	tok := p.cur()
	if tok.Type == lexer.OP && (tok.Value == "-" || tok.Value == "+" || tok.Value == "~") {
		p.advance()
		return &pyast.UnaryOp{Loc: loc(tok), Op: tok.Value, Operand: p.parseFactor()}
	}
	return p.parsePower()
}

func (p *Parser) parsePower() pyast.Expr {
	tok := p.cur()
	var base pyast.Expr
	if p.accept("await") {
		base = &pyast.Await{Loc: loc(tok), Value: p.parsePrimary()}
	} else {
		base = p.parsePrimary()
	}
	if p.accept("**") {
		return &pyast.BinOp{Loc: loc(tok), Left: base, Op: "**", Right: p.parseFactor()}
	}
	return base
}

// parsePrimary parses an atom followed by calls, subscripts and attribute access.
func (p *Parser) parsePrimary() pyast.Expr {
	tok := p.cur()
	expr := p.parseAtom()
	for {
		switch {
		case p.accept("("):
			args, keywords := p.parseCallArgs()
			expr = &pyast.Call{Loc: loc(tok), Func: expr, Args: args, Keywords: keywords}
		case p.accept("["):
			slice := p.parseSubscriptList()
			p.expect("]")
			expr = &pyast.Subscript{Loc: loc(tok), Value: expr, Slice: slice, Ctx: pyast.Load}
		case p.accept("."):
			name := p.cur()
			if name.Type != lexer.NAME {
				p.errorf(name, "expected attribute name, found %s", describe(name))
			}
			p.advance()
			expr = &pyast.Attribute{Loc: loc(tok), Value: expr, Attr: name.Value, Ctx: pyast.Load}
		default:
			return expr
		}
	}
}

// parseCallArgs parses call arguments after '(' through the closing ')'.
func (p *Parser) parseCallArgs() ([]pyast.Expr, []*pyast.Keyword) {
	var args []pyast.Expr
	var keywords []*pyast.Keyword
	for !p.check(")") {
		tok := p.cur()
		switch {
		case p.accept("*"):
			args = append(args, &pyast.Starred{Loc: loc(tok), Value: p.parseTest(), Ctx: pyast.Load})
		case p.accept("**"):
			keywords = append(keywords, &pyast.Keyword{Loc: loc(tok), Value: p.parseTest()})
		case tok.Type == lexer.NAME && !lexer.IsKeyword(tok.Value) && p.peek(1).Is("="):
			p.advance()
			p.advance()
			keywords = append(keywords, &pyast.Keyword{Loc: loc(tok), Arg: tok.Value, Value: p.parseTest()})
		default:
			arg := p.parseNamedExprTest()
			if p.checkCompFor() {
				arg = &pyast.GeneratorExp{Loc: loc(tok), Elt: arg, Generators: p.parseCompFor()}
			}
			args = append(args, arg)
		}
		if !p.accept(",") {
			break
		}
	}
	p.expect(")")
	return args, keywords
}

func (p *Parser) parseSubscriptList() pyast.Expr {
	tok := p.cur()
	first := p.parseSubscript()
	if !p.check(",") {
		return first
	}
	elts := []pyast.Expr{first}
	for p.accept(",") {
		if p.check("]") {
			break
		}
		elts = append(elts, p.parseSubscript())
	}
	return &pyast.Tuple{Loc: loc(tok), Elts: elts, Ctx: pyast.Load}
}

func (p *Parser) parseSubscript() pyast.Expr {
	tok := p.cur()
	var lower pyast.Expr
	if !p.check(":") {
		if p.check("*") {
			lower = p.parseTestOrStar()
		} else {
			lower = p.parseNamedExprTest()
		}
		if !p.check(":") {
			return lower
		}
	}
	p.expect(":")
	s := &pyast.Slice{Loc: loc(tok), Lower: lower}
	if !p.check(":") && !p.check(",") && !p.check("]") {
		s.Upper = p.parseTest()
	}
	if p.accept(":") && !p.check(",") && !p.check("]") {
		s.Step = p.parseTest()
	}
	return s
}

func (p *Parser) checkCompFor() bool {
	return p.check("for") || (p.check("async") && p.peek(1).Is("for"))
}

func (p *Parser) parseCompFor() []*pyast.Comprehension {
	var gens []*pyast.Comprehension
	for p.checkCompFor() {
		gen := &pyast.Comprehension{Async: p.accept("async")}
		p.expect("for")
		gen.Target = p.parseTargetList()
		p.setContext(gen.Target, pyast.Store)
		p.expect("in")
		gen.Iter = p.parseOrTest()
		for p.accept("if") {
			gen.Ifs = append(gen.Ifs, p.parseOrTest())
		}
		gens = append(gens, gen)
	}
	return gens
}

func (p *Parser) parseAtom() pyast.Expr {
	tok := p.cur()
	switch tok.Type {
	case lexer.NUMBER:
		p.advance()
		return &pyast.Constant{Loc: loc(tok), Kind: pyast.ConstNum, Value: tok.Value}
	case lexer.STRING:
		var parts []lexer.Token
		for p.checkType(lexer.STRING) {
			parts = append(parts, p.advance())
		}
		return p.parseStrings(parts)
	case lexer.NAME:
		switch tok.Value {
		case "True":
			p.advance()
			return &pyast.Constant{Loc: loc(tok), Kind: pyast.ConstTrue, Value: "True"}
		case "False":
			p.advance()
			return &pyast.Constant{Loc: loc(tok), Kind: pyast.ConstFalse, Value: "False"}
		case "None":
			p.advance()
			return &pyast.Constant{Loc: loc(tok), Kind: pyast.ConstNone, Value: "None"}
		}
		p.expectName()
		return &pyast.Name{Loc: loc(tok), ID: tok.Value, Ctx: pyast.Load}
	case lexer.OP:
		switch tok.Value {
		case "(":
			return p.parseParenAtom()
		case "[":
			return p.parseListAtom()
		case "{":
			return p.parseBraceAtom()
		case "...":
			p.advance()
			return &pyast.Constant{Loc: loc(tok), Kind: pyast.ConstEllipsis, Value: "..."}
		}
	}
	p.errorf(tok, "unexpected %s", describe(tok))
	return nil
}

func (p *Parser) parseParenAtom() pyast.Expr {
	tok := p.advance()
	if p.accept(")") {
		return &pyast.Tuple{Loc: loc(tok), Ctx: pyast.Load}
	}
	if p.check("yield") {
		y := p.parseYield()
		p.expect(")")
		return y
	}
	first := p.parseStarOrNamed()
	if p.checkCompFor() {
		gen := &pyast.GeneratorExp{Loc: loc(tok), Elt: first, Generators: p.parseCompFor()}
		p.expect(")")
		return gen
	}
	if !p.check(",") {
		p.expect(")")
		return first
	}
	elts := []pyast.Expr{first}
	for p.accept(",") {
		if p.check(")") {
			break
		}
		elts = append(elts, p.parseStarOrNamed())
	}
	p.expect(")")
	return &pyast.Tuple{Loc: loc(tok), Elts: elts, Ctx: pyast.Load}
}

func (p *Parser) parseStarOrNamed() pyast.Expr {
	if p.check("*") {
		return p.parseTestOrStar()
	}
	return p.parseNamedExprTest()
}

func (p *Parser) parseListAtom() pyast.Expr {
	tok := p.advance()
	if p.accept("]") {
		return &pyast.List{Loc: loc(tok), Ctx: pyast.Load}
	}
	first := p.parseStarOrNamed()
	if p.checkCompFor() {
		comp := &pyast.ListComp{Loc: loc(tok), Elt: first, Generators: p.parseCompFor()}
		p.expect("]")
		return comp
	}
	elts := []pyast.Expr{first}
	for p.accept(",") {
		if p.check("]") {
			break
		}
		elts = append(elts, p.parseStarOrNamed())
	}
	p.expect("]")
	return &pyast.List{Loc: loc(tok), Elts: elts, Ctx: pyast.Load}
}

func (p *Parser) parseBraceAtom() pyast.Expr {
	tok := p.advance()
	if p.accept("}") {
		return &pyast.Dict{Loc: loc(tok)}
	}

	if p.accept("**") {
		d := &pyast.Dict{Loc: loc(tok), Keys: []pyast.Expr{nil}, Values: []pyast.Expr{p.parseBitOr()}}
		return p.parseDictRest(d)
	}

	first := p.parseStarOrNamed()
	if p.accept(":") {
		value := p.parseTest()
		if p.checkCompFor() {
			comp := &pyast.DictComp{Loc: loc(tok), Key: first, Value: value, Generators: p.parseCompFor()}
			p.expect("}")
			return comp
		}
		d := &pyast.Dict{Loc: loc(tok), Keys: []pyast.Expr{first}, Values: []pyast.Expr{value}}
		return p.parseDictRest(d)
	}

	if p.checkCompFor() {
		comp := &pyast.SetComp{Loc: loc(tok), Elt: first, Generators: p.parseCompFor()}
		p.expect("}")
		return comp
	}
	elts := []pyast.Expr{first}
	for p.accept(",") {
		if p.check("}") {
			break
		}
		elts = append(elts, p.parseStarOrNamed())
	}
	p.expect("}")
	return &pyast.Set{Loc: loc(tok), Elts: elts}
}

func (p *Parser) parseDictRest(d *pyast.Dict) pyast.Expr {
	for p.accept(",") {
		if p.check("}") {
			break
		}
		if p.accept("**") {
			d.Keys = append(d.Keys, nil)
			d.Values = append(d.Values, p.parseBitOr())
			continue
		}
		key := p.parseTest()
		p.expect(":")
		d.Keys = append(d.Keys, key)
		d.Values = append(d.Values, p.parseTest())
	}
	p.expect("}")
	return d
}
