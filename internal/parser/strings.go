package parser

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/whit3rabbit/pymixer/internal/lexer"
	"github.com/whit3rabbit/pymixer/internal/pyast"
)

// literal is one STRING token split into its prefix flags and body.
type literal struct {
	tok   lexer.Token
	raw   bool
	bytes bool
	fstr  bool
	body  string
}

func splitLiteral(tok lexer.Token) literal {
	v := tok.Value
	q := strings.IndexAny(v, `'"`)
	prefix := strings.ToLower(v[:q])
	n := 1
	if len(v)-q >= 6 && v[q+1] == v[q] && v[q+2] == v[q] {
		n = 3
	}
	body := v[q+n : len(v)-n]
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	return literal{
		tok:   tok,
		raw:   strings.Contains(prefix, "r"),
		bytes: strings.Contains(prefix, "b"),
		fstr:  strings.Contains(prefix, "f"),
		body:  body,
	}
}

// parseStrings folds implicitly concatenated literals into one Constant, or
// a JoinedStr when any part is an f-string with replacement fields.
func (p *Parser) parseStrings(tokens []lexer.Token) pyast.Expr {
	lits := make([]literal, len(tokens))
	anyF := false
	for i, tok := range tokens {
		lits[i] = splitLiteral(tok)
		if lits[i].bytes != lits[0].bytes {
			p.errorf(tok, "cannot mix bytes and nonbytes literals")
		}
		anyF = anyF || lits[i].fstr
	}
	first := tokens[0]

	if !anyF {
		var sb strings.Builder
		for _, lit := range lits {
			sb.WriteString(p.decode(lit.tok, lit.body, lit.raw, lit.bytes))
		}
		kind := pyast.ConstStr
		if lits[0].bytes {
			kind = pyast.ConstBytes
		}
		return &pyast.Constant{Loc: loc(first), Kind: kind, Value: sb.String()}
	}

	var values []pyast.Expr
	for _, lit := range lits {
		if lit.fstr {
			values = append(values, p.parseFString(lit.tok, lit.body, lit.raw)...)
		} else {
			values = append(values, &pyast.Constant{Loc: loc(lit.tok), Kind: pyast.ConstStr, Value: p.decode(lit.tok, lit.body, lit.raw, false)})
		}
	}
	values = mergeText(values)

	fields := false
	for _, v := range values {
		if _, ok := v.(*pyast.FormattedValue); ok {
			fields = true
		}
	}
	if !fields {
		text := ""
		if len(values) == 1 {
			text = values[0].(*pyast.Constant).Value
		}
		return &pyast.Constant{Loc: loc(first), Kind: pyast.ConstStr, Value: text}
	}
	return &pyast.JoinedStr{Loc: loc(first), Values: values}
}

// mergeText joins adjacent text parts and drops empty ones.
func mergeText(values []pyast.Expr) []pyast.Expr {
	var out []pyast.Expr
	for _, v := range values {
		c, ok := v.(*pyast.Constant)
		if !ok {
			out = append(out, v)
			continue
		}
		if c.Value == "" {
			continue
		}
		if n := len(out); n > 0 {
			if prev, ok := out[n-1].(*pyast.Constant); ok {
				out[n-1] = &pyast.Constant{Loc: prev.Loc, Kind: pyast.ConstStr, Value: prev.Value + c.Value}
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// decode processes escape sequences. Text results are UTF-8; bytes results
// hold one byte per element.
func (p *Parser) decode(tok lexer.Token, s string, raw, isBytes bool) string {
	if isBytes {
		for i := 0; i < len(s); i++ {
			if s[i] >= 0x80 {
				p.errorf(tok, "bytes can only contain ASCII literal characters")
			}
		}
	}
	if raw || !strings.Contains(s, `\`) {
		return s
	}

	var sb strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			sb.WriteByte(c)
			i++
			continue
		}
		e := s[i+1]
		i += 2
		switch e {
		case '\n':
		case '\\', '\'', '"':
			sb.WriteByte(e)
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'v':
			sb.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i - 1
			for j < len(s) && j < i+2 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint(s[i-1:j], 8, 32)
			i = j
			p.writeCode(&sb, tok, rune(n), isBytes)
		case 'x':
			p.writeCode(&sb, tok, p.hexEscape(tok, s, i, 2), isBytes)
			i += 2
		case 'u', 'U':
			if isBytes {
				sb.WriteByte('\\')
				sb.WriteByte(e)
				continue
			}
			width := 4
			if e == 'U' {
				width = 8
			}
			r := p.hexEscape(tok, s, i, width)
			if !utf8.ValidRune(r) {
				p.errorf(tok, "unsupported code point in \\%c escape", e)
			}
			sb.WriteRune(r)
			i += width
		case 'N':
			if isBytes {
				sb.WriteString(`\N`)
				continue
			}
			end := strings.IndexByte(s[i:], '}')
			if i >= len(s) || s[i] != '{' || end < 0 {
				p.errorf(tok, "malformed \\N character escape")
			}
			name := s[i+1 : i+end]
			r, ok := lookupRuneName(name)
			if !ok {
				p.errorf(tok, "unknown Unicode character name %q", name)
			}
			sb.WriteRune(r)
			i += end + 1
		default:
			sb.WriteByte('\\')
			sb.WriteByte(e)
		}
	}
	return sb.String()
}

func (p *Parser) hexEscape(tok lexer.Token, s string, i, width int) rune {
	if i+width > len(s) {
		p.errorf(tok, "truncated escape sequence")
	}
	n, err := strconv.ParseUint(s[i:i+width], 16, 32)
	if err != nil {
		p.errorf(tok, "invalid escape sequence %q", s[i-2:i+width])
	}
	return rune(n)
}

func (p *Parser) writeCode(sb *strings.Builder, tok lexer.Token, r rune, isBytes bool) {
	if isBytes {
		if r > 0xff {
			p.errorf(tok, "octal escape out of range for bytes")
		}
		sb.WriteByte(byte(r))
		return
	}
	sb.WriteRune(r)
}

// parseFString splits an f-string body into text parts and replacement fields.
func (p *Parser) parseFString(tok lexer.Token, body string, raw bool) []pyast.Expr {
	var parts []pyast.Expr
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, &pyast.Constant{Loc: loc(tok), Kind: pyast.ConstStr, Value: p.decode(tok, text.String(), raw, false)})
			text.Reset()
		}
	}

	for i := 0; i < len(body); {
		c := body[i]
		switch {
		case c == '{' && i+1 < len(body) && body[i+1] == '{':
			text.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(body) && body[i+1] == '}':
			text.WriteByte('}')
			i += 2
		case c == '}':
			p.errorf(tok, "f-string: single '}' is not allowed")
		case c == '{':
			flush()
			end, field := p.parseField(tok, body, i+1, raw)
			parts = append(parts, field...)
			i = end
		case c == '\\' && !raw && strings.HasPrefix(body[i:], `\N{`):
			// the braces of a named escape are not a replacement field
			end := strings.IndexByte(body[i:], '}')
			if end < 0 {
				p.errorf(tok, "malformed \\N character escape")
			}
			text.WriteString(body[i : i+end+1])
			i += end + 1
		case c == '\\' && !raw && i+1 < len(body):
			text.WriteString(body[i : i+2])
			i += 2
		default:
			text.WriteByte(c)
			i++
		}
	}
	flush()
	return mergeText(parts)
}

// parseField parses one replacement field starting just after '{'. It returns
// the index after the closing '}' and the nodes the field produces: a
// FormattedValue, preceded by its source text for `{expr=}` fields.
func (p *Parser) parseField(tok lexer.Token, body string, start int, raw bool) (int, []pyast.Expr) {
	depth := 0
	var quote byte
	i := start
scan:
	for ; i < len(body); i++ {
		c := body[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']':
			depth--
		case '}':
			if depth == 0 {
				break scan
			}
			depth--
		case '!':
			if i+1 < len(body) && body[i+1] == '=' {
				i++
				continue
			}
			if depth == 0 {
				break scan
			}
		case ':':
			if depth == 0 {
				break scan
			}
		case '=', '<', '>':
			if i+1 < len(body) && body[i+1] == '=' {
				i++
			}
		}
	}
	if i >= len(body) {
		p.errorf(tok, "f-string: expecting '}'")
	}

	source := body[start:i]
	exprText := strings.TrimRight(source, " \t\n")
	debug := false
	if strings.HasSuffix(exprText, "=") {
		prev := byte(0)
		if len(exprText) > 1 {
			prev = exprText[len(exprText)-2]
		}
		if !strings.ContainsRune("=!<>", rune(prev)) {
			debug = true
			exprText = exprText[:len(exprText)-1]
		}
	}
	if strings.TrimSpace(exprText) == "" {
		p.errorf(tok, "f-string: empty expression not allowed")
	}

	field := &pyast.FormattedValue{Loc: loc(tok)}
	if body[i] == '!' {
		if i+1 >= len(body) || !strings.ContainsRune("sra", rune(body[i+1])) {
			p.errorf(tok, "f-string: invalid conversion character")
		}
		field.Conversion = body[i+1]
		i += 2
	}
	if i < len(body) && body[i] == ':' {
		j, nested := i+1, 0
		for ; j < len(body); j++ {
			if body[j] == '{' {
				nested++
			} else if body[j] == '}' {
				if nested == 0 {
					break
				}
				nested--
			}
		}
		field.FormatSpec = &pyast.JoinedStr{Loc: loc(tok), Values: p.parseFString(tok, body[i+1:j], raw)}
		i = j
	}
	if i >= len(body) || body[i] != '}' {
		p.errorf(tok, "f-string: expecting '}'")
	}

	expr, err := ParseExpr(exprText)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			p.errorf(tok, "f-string: %s", pe.Msg)
		}
		p.errorf(tok, "f-string: %v", err)
	}
	field.Value = expr

	if !debug {
		return i + 1, []pyast.Expr{field}
	}
	if field.Conversion == 0 && field.FormatSpec == nil {
		field.Conversion = 'r'
	}
	return i + 1, []pyast.Expr{
		&pyast.Constant{Loc: loc(tok), Kind: pyast.ConstStr, Value: source},
		field,
	}
}
