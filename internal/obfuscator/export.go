package obfuscator

import "github.com/whit3rabbit/pymixer/internal/pyast"

// ExportKind classifies a re-bound public name.
type ExportKind int

const (
	ExportConstant ExportKind = iota
	ExportClass
	ExportFunction
	ExportMember // method, class attribute or nested class, re-bound inside its class
)

func (k ExportKind) String() string {
	switch k {
	case ExportClass:
		return "class"
	case ExportFunction:
		return "function"
	case ExportMember:
		return "member"
	default:
		return "constant"
	}
}

// Export is an original public name re-bound to its alias.
type Export struct {
	Name  string
	Alias string
	Kind  ExportKind
	Class string // enclosing class for members
}

// exportList collects module-level export candidates, keeping the first
// occurrence of each name.
type exportList struct {
	seen  map[string]bool
	items []Export
}

func (l *exportList) add(kind ExportKind, name, alias string) {
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	if l.seen[name] {
		return
	}
	l.seen[name] = true
	l.items = append(l.items, Export{Name: name, Alias: alias, Kind: kind})
}

// ordered returns constants, then classes, then functions, each group in
// the order it was collected.
func (l *exportList) ordered() []Export {
	out := make([]Export, 0, len(l.items))
	for _, kind := range []ExportKind{ExportConstant, ExportClass, ExportFunction} {
		for _, e := range l.items {
			if e.Kind == kind {
				out = append(out, e)
			}
		}
	}
	return out
}

// rebindStmts synthesizes `name = alias` for every export.
func rebindStmts(exports []Export) []pyast.Stmt {
	stmts := make([]pyast.Stmt, 0, len(exports))
	for _, e := range exports {
		stmts = append(stmts, pyast.Rebind(e.Name, e.Alias))
	}
	return stmts
}
