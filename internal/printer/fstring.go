package printer

import (
	"strings"

	"github.com/whit3rabbit/pymixer/internal/pyast"
)

// fstring renders an f-string literal when its fields can be expressed
// without backslashes or the chosen quote; otherwise ok is false and the
// caller falls back to the lowered form.
func (p *Printer) fstring(js *pyast.JoinedStr) (string, bool) {
	for _, q := range []byte{'\'', '"'} {
		if body, ok := p.fstringBody(js, q); ok {
			return "f" + string(q) + body + string(q), true
		}
	}
	return "", false
}

func (p *Printer) fstringBody(js *pyast.JoinedStr, q byte) (string, bool) {
	var sb strings.Builder
	for _, v := range js.Values {
		switch part := v.(type) {
		case *pyast.Constant:
			if part.Kind != pyast.ConstStr {
				return "", false
			}
			text := escapeText(part.Value, q)
			text = strings.ReplaceAll(text, "{", "{{")
			text = strings.ReplaceAll(text, "}", "}}")
			sb.WriteString(text)
		case *pyast.FormattedValue:
			expr := p.expr(part.Value, precOr)
			if strings.ContainsAny(expr, "\\\n"+string(q)) {
				return "", false
			}
			sb.WriteByte('{')
			if strings.HasPrefix(expr, "{") {
				sb.WriteByte(' ')
			}
			sb.WriteString(expr)
			if part.Conversion != 0 {
				sb.WriteByte('!')
				sb.WriteByte(part.Conversion)
			}
			if part.FormatSpec != nil && len(part.FormatSpec.Values) > 0 {
				spec, ok := p.fstringBody(part.FormatSpec, q)
				if !ok {
					return "", false
				}
				sb.WriteByte(':')
				sb.WriteString(spec)
			}
			sb.WriteByte('}')
		default:
			return "", false
		}
	}
	return sb.String(), true
}
