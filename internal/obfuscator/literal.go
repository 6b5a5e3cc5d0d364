package obfuscator

import "github.com/whit3rabbit/pymixer/internal/pyast"

// encodeLiteral rewrites a text or bytes constant into an expression that
// rebuilds the same value at runtime from its byte values:
//
//	"hi"  -> bytes([104, 105]).decode('utf-8')
//	b"hi" -> bytes([104, 105])
//
// Any other constant is returned unchanged. The returned nodes are
// synthesized and must not be walked again.
func encodeLiteral(c *pyast.Constant) pyast.Expr {
	switch c.Kind {
	case pyast.ConstStr:
		call := pyast.CallMethod(byteList(c.Value), "decode", pyast.Str("utf-8"))
		call.Loc = c.Loc
		return call
	case pyast.ConstBytes:
		call := byteList(c.Value)
		call.Loc = c.Loc
		return call
	}
	return c
}

func byteList(s string) *pyast.Call {
	elts := make([]pyast.Expr, len(s))
	for i := 0; i < len(s); i++ {
		elts[i] = pyast.Int(int(s[i]))
	}
	return pyast.CallName("bytes", &pyast.List{Elts: elts, Ctx: pyast.Load})
}
