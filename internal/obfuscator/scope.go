package obfuscator

import (
	"sort"

	"github.com/whit3rabbit/pymixer/internal/pyast"
)

// scope is the renaming state of one class body, or of the module.
type scope struct {
	class *pyast.ClassDef // nil for the module scope

	// depth of the scope's own top-level statements
	base int
	// number of function bodies entered since this scope was pushed; members
	// are only declared when it is zero
	funcs int

	data     map[string]bool               // public class attributes bound in the body
	declared map[string]string             // member name -> alias
	pending  map[string][]*pyast.Attribute // member name -> attribute nodes awaiting an alias
	rebinds  exportList                    // class-level re-bindings, appended to the body on exit
}

func newScope(class *pyast.ClassDef, base int) *scope {
	return &scope{
		class:    class,
		base:     base,
		declared: make(map[string]string),
		pending:  make(map[string][]*pyast.Attribute),
	}
}

// scopeStack tracks nested class bodies. The bottom entry is the module.
type scopeStack struct {
	stack []*scope
}

func newScopeStack() *scopeStack {
	return &scopeStack{stack: []*scope{newScope(nil, 0)}}
}

func (s *scopeStack) top() *scope {
	return s.stack[len(s.stack)-1]
}

func (s *scopeStack) module() *scope {
	return s.stack[0]
}

// enter pushes a class scope. The child starts with a copy of the parent's
// declared members and an empty pending set.
func (s *scopeStack) enter(class *pyast.ClassDef, base int) *scope {
	child := newScope(class, base)
	for name, alias := range s.top().declared {
		child.declared[name] = alias
	}
	s.stack = append(s.stack, child)
	return child
}

// leave pops the current class scope and hands its unresolved attribute
// nodes to the parent.
func (s *scopeStack) leave() *scope {
	if len(s.stack) == 1 {
		panic("obfuscator: leave called on module scope")
	}
	child := s.top()
	s.stack = s.stack[:len(s.stack)-1]
	parent := s.top()
	for name, nodes := range child.pending {
		parent.pending[name] = append(parent.pending[name], nodes...)
	}
	return child
}

// declare records name as a member of the current scope under alias and
// patches every attribute node that was waiting for it.
func (s *scopeStack) declare(name, alias string) {
	sc := s.top()
	sc.declared[name] = alias
	if nodes, ok := sc.pending[name]; ok {
		for _, node := range nodes {
			node.Attr = alias
		}
		delete(sc.pending, name)
	}
}

// lookup returns the alias of a member declared in the current scope.
func (s *scopeStack) lookup(name string) (string, bool) {
	alias, ok := s.top().declared[name]
	return alias, ok
}

// deferAttr records node as waiting for its member name to be declared.
func (s *scopeStack) deferAttr(node *pyast.Attribute) {
	sc := s.top()
	sc.pending[node.Attr] = append(sc.pending[node.Attr], node)
}

// resolve patches the module-level pending entries that resolver can alias and
// returns the names left unresolved, sorted.
func (s *scopeStack) resolve(resolver func(name string) (string, bool)) []string {
	sc := s.module()
	var unresolved []string
	for name, nodes := range sc.pending {
		if alias, ok := resolver(name); ok {
			for _, node := range nodes {
				node.Attr = alias
			}
			delete(sc.pending, name)
			continue
		}
		unresolved = append(unresolved, name)
	}
	sort.Strings(unresolved)
	return unresolved
}
