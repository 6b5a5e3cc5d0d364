package obfuscator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whit3rabbit/pymixer/internal/parser"
	"github.com/whit3rabbit/pymixer/internal/printer"
	"github.com/whit3rabbit/pymixer/internal/pyast"
)

func selfAttr(name string) *pyast.Attribute {
	return &pyast.Attribute{Value: pyast.NewName("self", pyast.Load), Attr: name}
}

func TestScopeDeclarePatchesPending(t *testing.T) {
	s := newScopeStack()
	s.enter(&pyast.ClassDef{Name: "A"}, 1)

	early := selfAttr("_x")
	s.deferAttr(early)
	s.declare("_x", "q")
	assert.Equal(t, "q", early.Attr)

	alias, ok := s.lookup("_x")
	assert.True(t, ok)
	assert.Equal(t, "q", alias)
	assert.Empty(t, s.top().pending)
}

func TestScopeLeaveMergesPendingByAppend(t *testing.T) {
	s := newScopeStack()
	outer := selfAttr("_y")
	s.deferAttr(outer)

	s.enter(&pyast.ClassDef{Name: "A"}, 1)
	inner := selfAttr("_y")
	s.deferAttr(inner)
	s.leave()

	require.Len(t, s.module().pending["_y"], 2)

	unresolved := s.resolve(func(name string) (string, bool) {
		return "r", name == "_y"
	})
	assert.Empty(t, unresolved)
	assert.Equal(t, "r", outer.Attr)
	assert.Equal(t, "r", inner.Attr)
}

func TestScopeChildSeesParentDeclarations(t *testing.T) {
	s := newScopeStack()
	s.enter(&pyast.ClassDef{Name: "Outer"}, 1)
	s.declare("_a", "p")
	s.enter(&pyast.ClassDef{Name: "Inner"}, 2)
	_, ok := s.lookup("_a")
	assert.True(t, ok)
	s.declare("_b", "q")
	s.leave()
	_, ok = s.lookup("_b")
	assert.False(t, ok, "inner declarations do not leak outward")
}

func TestScopeResolveReportsLeftovers(t *testing.T) {
	s := newScopeStack()
	s.deferAttr(selfAttr("zeta"))
	s.deferAttr(selfAttr("alpha"))
	unresolved := s.resolve(func(string) (string, bool) { return "", false })
	assert.Equal(t, []string{"alpha", "zeta"}, unresolved)
}

func TestScopeLeaveOnModulePanics(t *testing.T) {
	assert.Panics(t, func() { newScopeStack().leave() })
}

func TestEncodeLiteral(t *testing.T) {
	tests := []struct {
		name string
		in   *pyast.Constant
		want string
	}{
		{"text", pyast.Str("hi"), "bytes([104, 105]).decode('utf-8')"},
		{"empty text", pyast.Str(""), "bytes([]).decode('utf-8')"},
		{"bytes", &pyast.Constant{Kind: pyast.ConstBytes, Value: "\x00\xff"}, "bytes([0, 255])"},
		{"number", pyast.Int(7), "7"},
		{"none", &pyast.Constant{Kind: pyast.ConstNone}, "None"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := printer.RenderExpr(encodeLiteral(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanCollectsSpellingsAndMembers(t *testing.T) {
	src := `import os.path as osp
from m import thing


class A(Base):
    limit = 3
    label: str

    def run(self, arg, *rest, key=None):
        self._state = arg
        self.public = 1
        other._ignored = 2
        try:
            pass
        except Exception as err:
            pass

    if flag:
        def _maybe(self):
            pass
`
	mod, err := parser.Parse(src, "scan.py")
	require.NoError(t, err)
	scan := NewScan()
	scan.Add(mod)

	for _, name := range []string{"os", "path", "osp", "thing", "A", "Base", "limit", "label",
		"run", "self", "arg", "rest", "key", "_state", "public", "other", "_ignored", "err", "flag", "_maybe"} {
		assert.True(t, scan.Spellings[name], name)
	}
	assert.Equal(t, map[string]bool{"limit": true, "label": true, "run": true, "_state": true, "_maybe": true}, scan.Members)
	assert.Equal(t, []string{"label"}, scan.SortedFields())
}
