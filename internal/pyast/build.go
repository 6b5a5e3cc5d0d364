package pyast

import "strconv"

// Helpers for nodes synthesized by rewriting passes. They carry no position.

// NewName returns a Name reference in the given context.
func NewName(id string, ctx Context) *Name {
	return &Name{ID: id, Ctx: ctx}
}

// Str returns a text literal.
func Str(s string) *Constant {
	return &Constant{Kind: ConstStr, Value: s}
}

// Int returns an integer literal.
func Int(n int) *Constant {
	return &Constant{Kind: ConstNum, Value: strconv.Itoa(n)}
}

// CallName returns `fn(args...)`.
func CallName(fn string, args ...Expr) *Call {
	return &Call{Func: NewName(fn, Load), Args: args}
}

// CallMethod returns `recv.method(args...)`.
func CallMethod(recv Expr, method string, args ...Expr) *Call {
	return &Call{Func: &Attribute{Value: recv, Attr: method, Ctx: Load}, Args: args}
}

// Rebind returns the statement `name = target`.
func Rebind(name, target string) *Assign {
	return &Assign{
		Targets: []Expr{NewName(name, Store)},
		Value:   NewName(target, Load),
	}
}

// Lower rewrites an f-string into an equivalent plain expression:
// a join over (part, format(value, spec), ...). Conversions map onto the
// str/repr/ascii builtins.
func (j *JoinedStr) Lower() Expr {
	parts := make([]Expr, 0, len(j.Values))
	for _, v := range j.Values {
		switch p := v.(type) {
		case *FormattedValue:
			parts = append(parts, p.lowerField())
		default:
			parts = append(parts, v)
		}
	}
	join := CallMethod(Str(""), "join", &Tuple{Elts: parts, Ctx: Load})
	join.Loc = j.Loc
	return join
}

func (f *FormattedValue) lowerField() Expr {
	value := f.Value
	switch f.Conversion {
	case 's':
		value = CallName("str", value)
	case 'r':
		value = CallName("repr", value)
	case 'a':
		value = CallName("ascii", value)
	}
	if f.FormatSpec == nil || len(f.FormatSpec.Values) == 0 {
		return CallName("format", value)
	}
	var spec Expr
	if len(f.FormatSpec.Values) == 1 {
		if c, ok := f.FormatSpec.Values[0].(*Constant); ok {
			spec = c
		}
	}
	if spec == nil {
		spec = f.FormatSpec.Lower()
	}
	return CallName("format", value, spec)
}
