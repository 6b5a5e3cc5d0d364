package scrambler

import "github.com/whit3rabbit/pymixer/internal/lexer"

// ReservedKind says why a spelling can never be renamed or produced as an alias.
type ReservedKind string

const (
	KindKeyword     ReservedKind = "keyword"
	KindSoftKeyword ReservedKind = "soft_keyword"
	KindBuiltin     ReservedKind = "builtin"
	KindSpecial     ReservedKind = "special"
)

// specialNames are the conventional receiver parameters. They are ordinary
// identifiers to Python, but the engine keys attribute handling on them.
var specialNames = map[string]bool{
	"self": true,
	"cls":  true,
}

// builtinNames mirrors dir(builtins) for CPython 3.8 through 3.13.
var builtinNames = map[string]bool{
	// Functions and types
	"abs": true, "aiter": true, "all": true, "anext": true, "any": true,
	"ascii": true, "bin": true, "bool": true, "breakpoint": true, "bytearray": true,
	"bytes": true, "callable": true, "chr": true, "classmethod": true, "compile": true,
	"complex": true, "copyright": true, "credits": true, "delattr": true, "dict": true,
	"dir": true, "divmod": true, "enumerate": true, "eval": true, "exec": true,
	"exit": true, "filter": true, "float": true, "format": true, "frozenset": true,
	"getattr": true, "globals": true, "hasattr": true, "hash": true, "help": true,
	"hex": true, "id": true, "input": true, "int": true, "isinstance": true,
	"issubclass": true, "iter": true, "len": true, "license": true, "list": true,
	"locals": true, "map": true, "max": true, "memoryview": true, "min": true,
	"next": true, "object": true, "oct": true, "open": true, "ord": true,
	"pow": true, "print": true, "property": true, "quit": true, "range": true,
	"repr": true, "reversed": true, "round": true, "set": true, "setattr": true,
	"slice": true, "sorted": true, "staticmethod": true, "str": true, "sum": true,
	"super": true, "tuple": true, "type": true, "vars": true, "zip": true,
	"Ellipsis": true, "NotImplemented": true,

	// Exceptions and warnings
	"ArithmeticError": true, "AssertionError": true, "AttributeError": true,
	"BaseException": true, "BaseExceptionGroup": true, "BlockingIOError": true,
	"BrokenPipeError": true, "BufferError": true, "BytesWarning": true,
	"ChildProcessError": true, "ConnectionAbortedError": true, "ConnectionError": true,
	"ConnectionRefusedError": true, "ConnectionResetError": true,
	"DeprecationWarning": true, "EncodingWarning": true, "EOFError": true,
	"EnvironmentError": true, "Exception": true, "ExceptionGroup": true,
	"FileExistsError": true, "FileNotFoundError": true, "FloatingPointError": true,
	"FutureWarning": true, "GeneratorExit": true, "ImportError": true,
	"ImportWarning": true, "IndentationError": true, "IndexError": true,
	"InterruptedError": true, "IOError": true, "IsADirectoryError": true,
	"KeyboardInterrupt": true, "KeyError": true, "LookupError": true,
	"MemoryError": true, "ModuleNotFoundError": true, "NameError": true,
	"NotADirectoryError": true, "NotImplementedError": true, "OSError": true,
	"OverflowError": true, "PendingDeprecationWarning": true, "PermissionError": true,
	"ProcessLookupError": true, "PythonFinalizationError": true, "RecursionError": true,
	"ReferenceError": true, "ResourceWarning": true, "RuntimeError": true,
	"RuntimeWarning": true, "StopAsyncIteration": true, "StopIteration": true,
	"SyntaxError": true, "SyntaxWarning": true, "SystemError": true,
	"SystemExit": true, "TabError": true, "TimeoutError": true, "TypeError": true,
	"UnboundLocalError": true, "UnicodeDecodeError": true, "UnicodeEncodeError": true,
	"UnicodeError": true, "UnicodeTranslateError": true, "UnicodeWarning": true,
	"UserWarning": true, "ValueError": true, "Warning": true, "WindowsError": true,
	"ZeroDivisionError": true,
}

// Classify reports whether name is reserved and, if so, why.
func Classify(name string) (ReservedKind, bool) {
	switch {
	case lexer.Keywords[name]:
		return KindKeyword, true
	case lexer.SoftKeywords[name]:
		return KindSoftKeyword, true
	case builtinNames[name]:
		return KindBuiltin, true
	case specialNames[name]:
		return KindSpecial, true
	}
	return "", false
}

// IsReserved reports whether name is a keyword, soft keyword, builtin or receiver name.
func IsReserved(name string) bool {
	_, ok := Classify(name)
	return ok
}

// IsBuiltin reports whether name is bound in the builtins module.
func IsBuiltin(name string) bool {
	return builtinNames[name]
}
