// Package lexer turns Python source text into a token stream, including the
// NEWLINE, INDENT and DEDENT tokens that carry block structure.
package lexer

import (
	"fmt"
	"strings"
)

// Error is a tokenization failure at a source position.
type Error struct {
	Line   int
	Column int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

// Lexer scans Python source code and produces tokens
type Lexer struct {
	input   string
	pos     int // current position in input
	line    int // current line number
	column  int // current column number (1-based)
	depth   int // open (, [ and { count; newlines inside brackets are ignored
	indents []int
	tokens  []Token
}

// New creates a new Lexer instance
func New(input string) *Lexer {
	return &Lexer{
		input:   strings.TrimPrefix(input, "\ufeff"),
		line:    1,
		column:  1,
		indents: []int{0},
	}
}

// Tokenize scans the whole input. The stream always ends with NEWLINE (when
// any statement was seen), the pending DEDENTs and EOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	atLineStart := true
	for l.pos < len(l.input) {
		if atLineStart && l.depth == 0 {
			blank, err := l.indentation()
			if err != nil {
				return nil, err
			}
			if blank {
				continue
			}
			atLineStart = false
			if l.pos >= len(l.input) {
				break
			}
		}

		ch := l.input[l.pos]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\f':
			l.advance(1)
		case ch == '#':
			l.skipComment()
		case ch == '\\':
			if !l.lineBreakAt(l.pos + 1) {
				return nil, l.errorf("unexpected character after line continuation")
			}
			l.advance(1)
			l.newline()
		case ch == '\n' || ch == '\r':
			if l.depth == 0 {
				l.emit(NEWLINE, "\n", l.line, l.column)
				atLineStart = true
			}
			l.newline()
		case isIdentStart(ch):
			if err := l.readNameOrString(); err != nil {
				return nil, err
			}
		case isDigit(ch) || (ch == '.' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1])):
			l.readNumber()
		case ch == '\'' || ch == '"':
			if err := l.readString(l.pos, l.line, l.column); err != nil {
				return nil, err
			}
		default:
			if err := l.readOperator(); err != nil {
				return nil, err
			}
		}
	}

	if n := len(l.tokens); n > 0 && l.tokens[n-1].Type != NEWLINE && l.tokens[n-1].Type != DEDENT {
		l.emit(NEWLINE, "\n", l.line, l.column)
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.emit(DEDENT, "", l.line, l.column)
	}
	l.emit(EOF, "", l.line, l.column)
	return l.tokens, nil
}

// indentation measures the leading whitespace of a logical line and emits
// INDENT/DEDENT tokens. It reports blank (whitespace or comment only) lines,
// which are consumed entirely and produce no tokens.
func (l *Lexer) indentation() (bool, error) {
	width := 0
scan:
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ':
			width++
		case '\t':
			width = (width/8 + 1) * 8
		case '\f':
			width = 0
		default:
			break scan
		}
		l.advance(1)
	}
	if l.pos >= len(l.input) {
		return true, nil
	}
	switch l.input[l.pos] {
	case '#':
		l.skipComment()
		if l.pos < len(l.input) {
			l.newline()
		}
		return true, nil
	case '\n', '\r':
		l.newline()
		return true, nil
	}

	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		l.emit(INDENT, "", l.line, l.column)
	case width < top:
		for width < l.indents[len(l.indents)-1] {
			l.indents = l.indents[:len(l.indents)-1]
			l.emit(DEDENT, "", l.line, l.column)
		}
		if width != l.indents[len(l.indents)-1] {
			return false, l.errorf("unindent does not match any outer indentation level")
		}
	}
	return false, nil
}

func (l *Lexer) emit(tt TokenType, value string, line, col int) {
	l.tokens = append(l.tokens, Token{Type: tt, Value: value, Line: line, Column: col})
}

func (l *Lexer) advance(n int) {
	l.pos += n
	l.column += n
}

// newline consumes \n, \r or \r\n.
func (l *Lexer) newline() {
	if l.input[l.pos] == '\r' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '\n' {
		l.pos++
	}
	l.pos++
	l.line++
	l.column = 1
}

func (l *Lexer) lineBreakAt(i int) bool {
	return i < len(l.input) && (l.input[i] == '\n' || l.input[i] == '\r')
}

func (l *Lexer) skipComment() {
	for l.pos < len(l.input) && l.input[l.pos] != '\n' && l.input[l.pos] != '\r' {
		l.advance(1)
	}
}

func (l *Lexer) errorf(format string, args ...interface{}) error {
	return &Error{Line: l.line, Column: l.column, Msg: fmt.Sprintf(format, args...)}
}

// readNameOrString reads an identifier, or a string literal when the
// identifier is a valid prefix immediately followed by a quote.
func (l *Lexer) readNameOrString() error {
	start, line, col := l.pos, l.line, l.column
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.advance(1)
	}
	word := l.input[start:l.pos]
	if l.pos < len(l.input) && (l.input[l.pos] == '\'' || l.input[l.pos] == '"') && IsStringPrefix(word) {
		return l.readString(start, line, col)
	}
	l.emit(NAME, word, line, col)
	return nil
}

// IsStringPrefix reports whether p is a valid string literal prefix.
func IsStringPrefix(p string) bool {
	switch strings.ToLower(p) {
	case "r", "u", "b", "br", "rb", "f", "fr", "rf":
		return true
	}
	return false
}

// readString scans a literal whose opening quote is at l.pos. The token
// value spans from start (the prefix) through the closing quote.
func (l *Lexer) readString(start, line, col int) error {
	quote := l.input[l.pos]
	delim := string(quote)
	if strings.HasPrefix(l.input[l.pos:], strings.Repeat(delim, 3)) {
		delim = strings.Repeat(delim, 3)
	}
	l.advance(len(delim))
	for {
		if l.pos >= len(l.input) {
			return &Error{Line: line, Column: col, Msg: "unterminated string literal"}
		}
		ch := l.input[l.pos]
		switch {
		case ch == '\\':
			l.advance(1)
			if l.pos < len(l.input) {
				if l.lineBreakAt(l.pos) {
					l.newline()
				} else {
					l.advance(1)
				}
			}
		case ch == '\n' || ch == '\r':
			if len(delim) == 1 {
				return &Error{Line: line, Column: col, Msg: "unterminated string literal"}
			}
			l.newline()
		case strings.HasPrefix(l.input[l.pos:], delim):
			l.advance(len(delim))
			l.emit(STRING, l.input[start:l.pos], line, col)
			return nil
		default:
			l.advance(1)
		}
	}
}

// readNumber reads integer, float and imaginary literals, keeping the spelling.
func (l *Lexer) readNumber() {
	start, line, col := l.pos, l.line, l.column
	if l.input[l.pos] == '0' && l.pos+1 < len(l.input) && strings.ContainsRune("xXoObB", rune(l.input[l.pos+1])) {
		l.advance(2)
		for l.pos < len(l.input) && (isHexDigit(l.input[l.pos]) || l.input[l.pos] == '_') {
			l.advance(1)
		}
		l.emit(NUMBER, l.input[start:l.pos], line, col)
		return
	}
	l.digits()
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		l.advance(1)
		l.digits()
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		next := l.pos + 1
		if next < len(l.input) && (l.input[next] == '+' || l.input[next] == '-') {
			next++
		}
		if next < len(l.input) && isDigit(l.input[next]) {
			l.advance(next - l.pos)
			l.digits()
		}
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'j' || l.input[l.pos] == 'J') {
		l.advance(1)
	}
	l.emit(NUMBER, l.input[start:l.pos], line, col)
}

func (l *Lexer) digits() {
	for l.pos < len(l.input) && (isDigit(l.input[l.pos]) || l.input[l.pos] == '_') {
		l.advance(1)
	}
}

func (l *Lexer) readOperator() error {
	rest := l.input[l.pos:]
	for _, op := range operators {
		if !strings.HasPrefix(rest, op) {
			continue
		}
		switch op {
		case "(", "[", "{":
			l.depth++
		case ")", "]", "}":
			if l.depth == 0 {
				return l.errorf("unmatched '%s'", op)
			}
			l.depth--
		}
		l.emit(OP, op, l.line, l.column)
		l.advance(len(op))
		return nil
	}
	return l.errorf("invalid character %q", rest[0])
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch >= 0x80
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}
