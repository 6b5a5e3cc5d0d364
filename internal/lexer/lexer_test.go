package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func types(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, t := range tokens {
		out[i] = t.Type
	}
	return out
}

func TestTokenizeBlockStructure(t *testing.T) {
	src := "def f(a):\n    return a\n\nx = 1\n"
	tokens, err := New(src).Tokenize()
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		NAME, NAME, OP, NAME, OP, OP, NEWLINE,
		INDENT, NAME, NAME, NEWLINE,
		DEDENT, NAME, OP, NUMBER, NEWLINE,
		EOF,
	}, types(tokens))
}

func TestTokenizeIgnoresNewlinesInsideBrackets(t *testing.T) {
	src := "x = [\n    1,\n    2,\n]\n"
	tokens, err := New(src).Tokenize()
	require.NoError(t, err)

	newlines := 0
	for _, tok := range tokens {
		if tok.Type == NEWLINE {
			newlines++
		}
		assert.NotEqual(t, INDENT, tok.Type)
	}
	assert.Equal(t, 1, newlines)
}

func TestTokenizeBlankAndCommentLines(t *testing.T) {
	src := "if x:\n    # comment\n\n    y = 1\n"
	tokens, err := New(src).Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []TokenType{
		NAME, NAME, OP, NEWLINE,
		INDENT, NAME, OP, NUMBER, NEWLINE,
		DEDENT, EOF,
	}, types(tokens))
}

func TestTokenizeStrings(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`'abc'`, `'abc'`},
		{`"it's"`, `"it's"`},
		{`b'\x00'`, `b'\x00'`},
		{`rb"\d+"`, `rb"\d+"`},
		{`f'{x}'`, `f'{x}'`},
		{`'a\'b'`, `'a\'b'`},
		{"'''line1\nline2'''", "'''line1\nline2'''"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tokens, err := New(tt.src).Tokenize()
			require.NoError(t, err)
			require.Equal(t, STRING, tokens[0].Type)
			assert.Equal(t, tt.want, tokens[0].Value)
		})
	}
}

func TestTokenizeNumbers(t *testing.T) {
	for _, src := range []string{"42", "0x1F", "0o17", "0b101", "1_000", "3.14", ".5", "1e-3", "2j", "1.5E+10"} {
		t.Run(src, func(t *testing.T) {
			tokens, err := New(src).Tokenize()
			require.NoError(t, err)
			require.Equal(t, NUMBER, tokens[0].Type)
			assert.Equal(t, src, tokens[0].Value)
		})
	}
}

func TestTokenizeOperatorsLongestMatch(t *testing.T) {
	tokens, err := New("a **= b // c -> d := e ...").Tokenize()
	require.NoError(t, err)

	var ops []string
	for _, tok := range tokens {
		if tok.Type == OP {
			ops = append(ops, tok.Value)
		}
	}
	assert.Equal(t, []string{"**=", "//", "->", ":=", "..."}, ops)
}

func TestTokenizeLineContinuation(t *testing.T) {
	tokens, err := New("x = 1 + \\\n    2\n").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []TokenType{NAME, OP, NUMBER, OP, NUMBER, NEWLINE, EOF}, types(tokens))
}

func TestTokenizePositions(t *testing.T) {
	tokens, err := New("a\n  \nbb = 1").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, 3, tokens[2].Line)
	assert.Equal(t, 1, tokens[2].Column)
	assert.Equal(t, 3, tokens[3].Line)
	assert.Equal(t, 4, tokens[3].Column)
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unterminated string", "x = 'abc\n"},
		{"unterminated triple", "x = '''abc\n"},
		{"bad dedent", "if x:\n        a\n    b\n"},
		{"unmatched bracket", "x = )\n"},
		{"invalid character", "x = $\n"},
		{"continuation garbage", "x = \\ y\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.src).Tokenize()
			require.Error(t, err)
			var lexErr *Error
			assert.ErrorAs(t, err, &lexErr)
		})
	}
}

func TestIsStringPrefix(t *testing.T) {
	for _, p := range []string{"r", "R", "b", "Rb", "bR", "f", "rF", "u"} {
		assert.True(t, IsStringPrefix(p), p)
	}
	for _, p := range []string{"x", "ub", "bf", "rr"} {
		assert.False(t, IsStringPrefix(p), p)
	}
}
