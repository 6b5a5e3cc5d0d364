package obfuscator

import (
	"strings"

	"github.com/whit3rabbit/pymixer/internal/pyast"
)

// isProtected reports names with the double-underscore spelling: dunders and
// class-private names subject to mangling. They are never renamed.
func isProtected(name string) bool {
	return strings.HasPrefix(name, "__")
}

// isPublic reports names without the leading-underscore privacy marker.
func isPublic(name string) bool {
	return !strings.HasPrefix(name, "_")
}

// isPrivate reports single-underscore member names.
func isPrivate(name string) bool {
	return strings.HasPrefix(name, "_") && !isProtected(name) && name != "_"
}

// isReceiver reports whether e is the self or cls reference.
func isReceiver(e pyast.Expr) bool {
	n, ok := e.(*pyast.Name)
	return ok && (n.ID == "self" || n.ID == "cls")
}
