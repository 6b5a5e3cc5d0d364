package lexer

import "fmt"

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota
	NEWLINE
	INDENT
	DEDENT

	// Literals
	NAME   // identifiers and keywords
	NUMBER // 123, 0x1f, 1.5e3, 2j
	STRING // complete literal including prefix and quotes: rb'...'

	// Operators and delimiters
	OP
)

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	NEWLINE: "NEWLINE",
	INDENT:  "INDENT",
	DEDENT:  "DEDENT",
	NAME:    "NAME",
	NUMBER:  "NUMBER",
	STRING:  "STRING",
	OP:      "OP",
}

// String returns the string representation of the token type
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token represents a lexical token
type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int
}

// String returns a debug representation of the token
func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %d:%d", t.Type, t.Value, t.Line, t.Column)
}

// Is reports whether the token is the operator or keyword v.
func (t Token) Is(v string) bool {
	return (t.Type == OP || t.Type == NAME) && t.Value == v
}

// Keywords lists the hard keywords of Python 3.
var Keywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

// SoftKeywords are only keywords in particular syntactic positions.
var SoftKeywords = map[string]bool{
	"match": true, "case": true, "type": true, "_": true,
}

// IsKeyword reports whether name is a hard keyword.
func IsKeyword(name string) bool {
	return Keywords[name]
}

// operators ordered longest first so the scanner can take the longest match.
var operators = []string{
	"**=", "//=", ">>=", "<<=", "...",
	"->", ":=", "**", "//", ">>", "<<", "<=", ">=", "==", "!=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
	"+", "-", "*", "/", "%", "@", "&", "|", "^", "~", "<", ">",
	"(", ")", "[", "]", "{", "}", ",", ":", ".", ";", "=",
}
