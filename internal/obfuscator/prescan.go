package obfuscator

import (
	"sort"
	"strings"

	"github.com/whit3rabbit/pymixer/internal/pyast"
)

// Scan is what a tree contributes before any renaming starts: every
// identifier spelling it contains, the member names it declares on classes or
// instances, and the annotated class fields whose names double as keyword
// arguments of generated constructors.
type Scan struct {
	Spellings map[string]bool
	Members   map[string]bool
	Fields    map[string]bool
}

// NewScan returns an empty Scan ready to accumulate trees.
func NewScan() *Scan {
	return &Scan{
		Spellings: make(map[string]bool),
		Members:   make(map[string]bool),
		Fields:    make(map[string]bool),
	}
}

// Add records the spellings and member declarations of mod.
func (s *Scan) Add(mod *pyast.Module) {
	pyast.Inspect(mod, func(n pyast.Node) bool {
		switch n := n.(type) {
		case *pyast.Name:
			s.spell(n.ID)
		case *pyast.FunctionDef:
			s.spell(n.Name)
		case *pyast.ClassDef:
			s.spell(n.Name)
			s.classMembers(n.Body)
		case *pyast.Arg:
			s.spell(n.Name)
		case *pyast.Attribute:
			s.spell(n.Attr)
		case *pyast.Alias:
			for _, part := range strings.Split(n.Name, ".") {
				s.spell(part)
			}
			s.spell(n.Asname)
		case *pyast.Global:
			for _, name := range n.Names {
				s.spell(name)
			}
		case *pyast.Nonlocal:
			for _, name := range n.Names {
				s.spell(name)
			}
		case *pyast.Keyword:
			s.spell(n.Arg)
		case *pyast.ExceptHandler:
			s.spell(n.Name)
		case *pyast.Assign:
			for _, t := range n.Targets {
				s.receiverTargets(t)
			}
		case *pyast.AnnAssign:
			s.receiverTargets(n.Target)
		}
		return true
	})
}

// SortedFields returns the annotated class field names in lexical order.
func (s *Scan) SortedFields() []string {
	return sortedKeys(s.Fields)
}

// Sorted returns the collected spellings in lexical order.
func (s *Scan) Sorted() []string {
	return sortedKeys(s.Spellings)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Scan) spell(name string) {
	if name != "" {
		s.Spellings[name] = true
	}
}

// classMembers records the methods and class-level names bound directly in
// a class body, including those under if/try blocks of the body.
func (s *Scan) classMembers(body []pyast.Stmt) {
	for _, stmt := range body {
		switch st := stmt.(type) {
		case *pyast.FunctionDef:
			s.member(st.Name)
		case *pyast.ClassDef:
			s.member(st.Name)
		case *pyast.Assign:
			for _, t := range st.Targets {
				s.nameTargets(t)
			}
		case *pyast.AnnAssign:
			s.nameTargets(st.Target)
			if n, ok := st.Target.(*pyast.Name); ok && !isProtected(n.ID) {
				s.Fields[n.ID] = true
			}
		case *pyast.If:
			s.classMembers(st.Body)
			s.classMembers(st.Orelse)
		case *pyast.Try:
			s.classMembers(st.Body)
			for _, h := range st.Handlers {
				s.classMembers(h.Body)
			}
			s.classMembers(st.Orelse)
			s.classMembers(st.Finalbody)
		}
	}
}

func (s *Scan) nameTargets(target pyast.Expr) {
	switch t := target.(type) {
	case *pyast.Name:
		s.member(t.ID)
	case *pyast.Tuple:
		for _, e := range t.Elts {
			s.nameTargets(e)
		}
	case *pyast.List:
		for _, e := range t.Elts {
			s.nameTargets(e)
		}
	case *pyast.Starred:
		s.nameTargets(t.Value)
	}
}

// receiverTargets records private `self._x` style assignment targets.
func (s *Scan) receiverTargets(target pyast.Expr) {
	switch t := target.(type) {
	case *pyast.Attribute:
		if isReceiver(t.Value) && isPrivate(t.Attr) {
			s.member(t.Attr)
		}
	case *pyast.Tuple:
		for _, e := range t.Elts {
			s.receiverTargets(e)
		}
	case *pyast.List:
		for _, e := range t.Elts {
			s.receiverTargets(e)
		}
	case *pyast.Starred:
		s.receiverTargets(t.Value)
	}
}

func (s *Scan) member(name string) {
	if name != "" && !isProtected(name) {
		s.Members[name] = true
	}
}
