package printer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whit3rabbit/pymixer/internal/parser"
	"github.com/whit3rabbit/pymixer/internal/pyast"
)

func roundTrip(t *testing.T, src string) string {
	t.Helper()
	mod, err := parser.Parse(src, "test.py")
	require.NoError(t, err)
	out, err := Render(mod)
	require.NoError(t, err)
	return out
}

func TestRenderNormalizesSource(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "function",
			src:  "def f(a, b=1, *args, c, d=2, **kw):\n  return a+b\n",
			want: "def f(a, b=1, *args, c, d=2, **kw):\n    return a + b\n",
		},
		{
			name: "annotations",
			src:  "def f(a: int, /, b: str = 'x', *, c) -> None: pass\n",
			want: "def f(a: int, /, b: str = 'x', *, c) -> None:\n    pass\n",
		},
		{
			name: "class",
			src:  "@dec\nclass A(B, metaclass=M):\n    x = 1\n",
			want: "@dec\nclass A(B, metaclass=M):\n    x = 1\n",
		},
		{
			name: "elif",
			src:  "if a:\n    x\nelif b:\n    y\nelse:\n    z\n",
			want: "if a:\n    x\nelif b:\n    y\nelse:\n    z\n",
		},
		{
			name: "try",
			src:  "try:\n    a\nexcept (E, F) as e:\n    raise G from e\nfinally:\n    b\n",
			want: "try:\n    a\nexcept (E, F) as e:\n    raise G from e\nfinally:\n    b\n",
		},
		{
			name: "tuples",
			src:  "a, b = b, a\nx = 1,\n",
			want: "(a, b) = (b, a)\nx = (1,)\n",
		},
		{
			name: "imports",
			src:  "import a.b as c, d\nfrom ..m import (x as y, z)\n",
			want: "import a.b as c, d\nfrom ..m import x as y, z\n",
		},
		{
			name: "semicolons",
			src:  "a = 1; b = 2\n",
			want: "a = 1\nb = 2\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, roundTrip(t, tt.src))
		})
	}
}

func TestRenderParenthesizesByPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"(a + b) * c", "(a + b) * c"},
		{"a + (b * c)", "a + b * c"},
		{"a - (b - c)", "a - (b - c)"},
		{"(a ** b) ** c", "(a ** b) ** c"},
		{"a ** -b", "a ** -b"},
		{"(-a) ** b", "(-a) ** b"},
		{"not (a and b)", "not (a and b)"},
		{"(a or b) and c", "(a or b) and c"},
		{"(a if b else c) if d else e", "(a if b else c) if d else e"},
		{"f(lambda: 1)", "f(lambda: 1)"},
		{"(lambda: 1) or x", "(lambda: 1) or x"},
		{"[x for x in (a if b else c)]", "[x for x in (a if b else c)]"},
		{"1 .real", "(1).real"},
		{"a[1:2, ::3]", "a[1:2, ::3]"},
		{"a[1, 2]", "a[(1, 2)]"},
		{"f(*a, **k)", "f(*a, **k)"},
		{"{**a, 'b': 1}", "{**a, 'b': 1}"},
		{"await (a + b)", "await (a + b)"},
		{"x = yield y", "x = (yield y)"},
		{"(y := 1)", "(y := 1)"},
		{"a < b < c", "a < b < c"},
		{"(a < b) < c", "(a < b) < c"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want+"\n", roundTrip(t, tt.src+"\n"))
		})
	}
}

func TestRenderStrings(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`"hi"`, `'hi'`},
		{`"it's"`, `"it's"`},
		{`'a\nb\\'`, `'a\nb\\'`},
		{`'\x00'`, `'\x00'`},
		{`'café'`, `'café'`},
		{`b'\xff"'`, `b'\xff"'`},
		{`f'{x!r:>10} {{lit}}'`, `f'{x!r:>10} {{lit}}'`},
		{`f"{d['k']}"`, `f"{d['k']}"`},
		{`f"{a}" f'{b}'`, `f'{a}{b}'`},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want+"\n", roundTrip(t, tt.src+"\n"))
		})
	}
}

func TestRenderFStringFallsBackToLowering(t *testing.T) {
	d := pyast.NewName("d", pyast.Load)
	js := &pyast.JoinedStr{Values: []pyast.Expr{
		&pyast.FormattedValue{Value: &pyast.BinOp{
			Left:  &pyast.Subscript{Value: d, Slice: pyast.Str("a")},
			Op:    "+",
			Right: &pyast.Subscript{Value: d, Slice: pyast.Str("it's")},
		}},
	}}
	out, err := RenderExpr(js)
	require.NoError(t, err)
	assert.Equal(t, `''.join((format(d['a'] + d["it's"]),))`, out)
}

func TestRenderIsStable(t *testing.T) {
	src := `
class Account:
    __slots__ = ('balance',)
    MAX = 10

    def deposit(self, amount):
        if amount > Account.MAX:
            raise ValueError(f"too much: {amount}")
        self.balance += amount
        return [x ** 2 for x in range(amount) if x % 2]

async def main():
    async with lock:
        await go(*args, **kwargs)
`
	first := roundTrip(t, src)
	second := roundTrip(t, first)
	assert.Equal(t, first, second)
}

func TestRenderEmptyBodyBecomesPass(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{&pyast.ClassDef{Name: "A"}}}
	out, err := Render(mod)
	require.NoError(t, err)
	assert.Equal(t, "class A:\n    pass\n", out)
}

func TestRenderErrorHasPath(t *testing.T) {
	mod := &pyast.Module{Body: []pyast.Stmt{
		&pyast.ClassDef{Name: "A", Body: []pyast.Stmt{
			&pyast.FunctionDef{Name: "f", Args: &pyast.Arguments{}, Body: []pyast.Stmt{
				&pyast.Assign{Targets: []pyast.Expr{pyast.NewName("x", pyast.Store)}},
			}},
		}},
	}}
	_, err := Render(mod)
	require.Error(t, err)

	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, []string{"ClassDef A", "FunctionDef f", "Assign"}, re.Path)
	assert.Contains(t, err.Error(), "ClassDef A > FunctionDef f > Assign")
}

func TestRenderSynthesizedNodes(t *testing.T) {
	call := pyast.CallMethod(
		pyast.CallName("bytes", &pyast.List{Elts: []pyast.Expr{pyast.Int(104), pyast.Int(105)}}),
		"decode", pyast.Str("utf-8"),
	)
	s, err := RenderExpr(call)
	require.NoError(t, err)
	assert.Equal(t, "bytes([104, 105]).decode('utf-8')", s)
}
