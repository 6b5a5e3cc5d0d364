// Package pyast defines the mutable Python program tree that the obfuscator
// rewrites in place. The set of node kinds is closed: every statement
// implements Stmt and every expression implements Expr.
package pyast

// Node is the base interface for all tree nodes.
type Node interface {
	Pos() (line, col int)
}

// Stmt is implemented by all statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is implemented by all expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Loc records the source position of a node. Synthesized nodes have a zero Loc.
type Loc struct {
	Line   int
	Column int
}

func (l Loc) Pos() (int, int) { return l.Line, l.Column }

// Context tells whether a name, attribute or subscript is read, bound or deleted.
type Context int

const (
	Load Context = iota
	Store
	Del
)

func (c Context) String() string {
	switch c {
	case Store:
		return "Store"
	case Del:
		return "Del"
	default:
		return "Load"
	}
}

// Module is the root of a ProgramTree.
type Module struct {
	Body []Stmt
}

func (m *Module) Pos() (int, int) { return 1, 1 }

// --- Statements ---

// FunctionDef represents a def or async def statement.
type FunctionDef struct {
	Loc
	Name       string
	Args       *Arguments
	Body       []Stmt
	Decorators []Expr
	Returns    Expr
	Async      bool
}

// ClassDef represents a class statement.
type ClassDef struct {
	Loc
	Name       string
	Bases      []Expr
	Keywords   []*Keyword
	Body       []Stmt
	Decorators []Expr
}

type Return struct {
	Loc
	Value Expr
}

type Delete struct {
	Loc
	Targets []Expr
}

// Assign represents `t1 = t2 = value`.
type Assign struct {
	Loc
	Targets []Expr
	Value   Expr
}

// AugAssign represents `target op= value`. Op is the binary operator without '='.
type AugAssign struct {
	Loc
	Target Expr
	Op     string
	Value  Expr
}

// AnnAssign represents `target: annotation [= value]`.
type AnnAssign struct {
	Loc
	Target     Expr
	Annotation Expr
	Value      Expr
	Simple     bool
}

type For struct {
	Loc
	Target Expr
	Iter   Expr
	Body   []Stmt
	Orelse []Stmt
	Async  bool
}

type While struct {
	Loc
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
}

// If represents if/elif/else. An elif chain is an Orelse holding a single *If.
type If struct {
	Loc
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
}

type With struct {
	Loc
	Items []*WithItem
	Body  []Stmt
	Async bool
}

type Raise struct {
	Loc
	Exc   Expr
	Cause Expr
}

type Try struct {
	Loc
	Body      []Stmt
	Handlers  []*ExceptHandler
	Orelse    []Stmt
	Finalbody []Stmt
}

type Assert struct {
	Loc
	Test Expr
	Msg  Expr
}

type Import struct {
	Loc
	Names []*Alias
}

// ImportFrom represents `from [.]*module import names`. Level counts leading dots.
type ImportFrom struct {
	Loc
	Module string
	Names  []*Alias
	Level  int
}

type Global struct {
	Loc
	Names []string
}

type Nonlocal struct {
	Loc
	Names []string
}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	Loc
	Value Expr
}

type Pass struct{ Loc }

type Break struct{ Loc }

type Continue struct{ Loc }

func (*FunctionDef) stmtNode() {}
func (*ClassDef) stmtNode()    {}
func (*Return) stmtNode()      {}
func (*Delete) stmtNode()      {}
func (*Assign) stmtNode()      {}
func (*AugAssign) stmtNode()   {}
func (*AnnAssign) stmtNode()   {}
func (*For) stmtNode()         {}
func (*While) stmtNode()       {}
func (*If) stmtNode()          {}
func (*With) stmtNode()        {}
func (*Raise) stmtNode()       {}
func (*Try) stmtNode()         {}
func (*Assert) stmtNode()      {}
func (*Import) stmtNode()      {}
func (*ImportFrom) stmtNode()  {}
func (*Global) stmtNode()      {}
func (*Nonlocal) stmtNode()    {}
func (*ExprStmt) stmtNode()    {}
func (*Pass) stmtNode()        {}
func (*Break) stmtNode()       {}
func (*Continue) stmtNode()    {}

// --- Auxiliary nodes ---

// Arguments is the parameter list of a def or lambda.
// Defaults apply to the trailing entries of PosOnly+Args.
// KwDefaults is parallel to KwOnly; a nil entry means no default.
type Arguments struct {
	PosOnly    []*Arg
	Args       []*Arg
	Vararg     *Arg
	KwOnly     []*Arg
	KwDefaults []Expr
	Kwarg      *Arg
	Defaults   []Expr
}

func (a *Arguments) Pos() (int, int) { return 0, 0 }

type Arg struct {
	Loc
	Name       string
	Annotation Expr
}

// Keyword is a `name=value` call argument. An empty Arg means `**value`.
type Keyword struct {
	Loc
	Arg   string
	Value Expr
}

// Alias is one imported name. Asname is empty when no `as` clause was given.
type Alias struct {
	Loc
	Name   string
	Asname string
}

type WithItem struct {
	ContextExpr  Expr
	OptionalVars Expr
}

func (w *WithItem) Pos() (int, int) {
	if w.ContextExpr == nil {
		return 0, 0
	}
	return w.ContextExpr.Pos()
}

// ExceptHandler is one except clause. Name is empty when there is no `as`.
type ExceptHandler struct {
	Loc
	Type Expr
	Name string
	Body []Stmt
}

type Comprehension struct {
	Target Expr
	Iter   Expr
	Ifs    []Expr
	Async  bool
}

func (c *Comprehension) Pos() (int, int) {
	if c.Target == nil {
		return 0, 0
	}
	return c.Target.Pos()
}

// --- Expressions ---

// BoolOp is a chain of `and` or `or`.
type BoolOp struct {
	Loc
	Op     string
	Values []Expr
}

// NamedExpr is the walrus operator `target := value`.
type NamedExpr struct {
	Loc
	Target *Name
	Value  Expr
}

type BinOp struct {
	Loc
	Left  Expr
	Op    string
	Right Expr
}

// UnaryOp has Op one of "not", "-", "+", "~".
type UnaryOp struct {
	Loc
	Op      string
	Operand Expr
}

type Lambda struct {
	Loc
	Args *Arguments
	Body Expr
}

// IfExp is the conditional expression `body if test else orelse`.
type IfExp struct {
	Loc
	Test   Expr
	Body   Expr
	Orelse Expr
}

// Dict holds parallel Keys and Values. A nil key marks a `**value` spread.
type Dict struct {
	Loc
	Keys   []Expr
	Values []Expr
}

type Set struct {
	Loc
	Elts []Expr
}

type ListComp struct {
	Loc
	Elt        Expr
	Generators []*Comprehension
}

type SetComp struct {
	Loc
	Elt        Expr
	Generators []*Comprehension
}

type DictComp struct {
	Loc
	Key        Expr
	Value      Expr
	Generators []*Comprehension
}

type GeneratorExp struct {
	Loc
	Elt        Expr
	Generators []*Comprehension
}

type Await struct {
	Loc
	Value Expr
}

type Yield struct {
	Loc
	Value Expr
}

type YieldFrom struct {
	Loc
	Value Expr
}

// Compare is a comparison chain; Ops and Comparators are parallel.
type Compare struct {
	Loc
	Left        Expr
	Ops         []string
	Comparators []Expr
}

type Call struct {
	Loc
	Func     Expr
	Args     []Expr
	Keywords []*Keyword
}

// FormattedValue is a replacement field of an f-string. Conversion is 0, 's', 'r' or 'a'.
type FormattedValue struct {
	Loc
	Value      Expr
	Conversion byte
	FormatSpec *JoinedStr
}

// JoinedStr is an f-string. Values holds *Constant text parts and *FormattedValue fields.
type JoinedStr struct {
	Loc
	Values []Expr
}

// ConstKind distinguishes literal kinds held by Constant.
type ConstKind int

const (
	ConstStr ConstKind = iota
	ConstBytes
	ConstNum
	ConstTrue
	ConstFalse
	ConstNone
	ConstEllipsis
)

// Constant is a literal. For ConstStr Value is the decoded UTF-8 text, for
// ConstBytes the raw bytes, for ConstNum the literal spelling.
type Constant struct {
	Loc
	Kind  ConstKind
	Value string
}

// Attribute is `value.attr`.
type Attribute struct {
	Loc
	Value Expr
	Attr  string
	Ctx   Context
}

type Subscript struct {
	Loc
	Value Expr
	Slice Expr
	Ctx   Context
}

type Starred struct {
	Loc
	Value Expr
	Ctx   Context
}

type Name struct {
	Loc
	ID  string
	Ctx Context
}

type List struct {
	Loc
	Elts []Expr
	Ctx  Context
}

type Tuple struct {
	Loc
	Elts []Expr
	Ctx  Context
}

// Slice is `lower:upper:step` inside a subscript.
type Slice struct {
	Loc
	Lower Expr
	Upper Expr
	Step  Expr
}

func (*BoolOp) exprNode()         {}
func (*NamedExpr) exprNode()      {}
func (*BinOp) exprNode()          {}
func (*UnaryOp) exprNode()        {}
func (*Lambda) exprNode()         {}
func (*IfExp) exprNode()          {}
func (*Dict) exprNode()           {}
func (*Set) exprNode()            {}
func (*ListComp) exprNode()       {}
func (*SetComp) exprNode()        {}
func (*DictComp) exprNode()       {}
func (*GeneratorExp) exprNode()   {}
func (*Await) exprNode()          {}
func (*Yield) exprNode()          {}
func (*YieldFrom) exprNode()      {}
func (*Compare) exprNode()        {}
func (*Call) exprNode()           {}
func (*FormattedValue) exprNode() {}
func (*JoinedStr) exprNode()      {}
func (*Constant) exprNode()       {}
func (*Attribute) exprNode()      {}
func (*Subscript) exprNode()      {}
func (*Starred) exprNode()        {}
func (*Name) exprNode()           {}
func (*List) exprNode()           {}
func (*Tuple) exprNode()          {}
func (*Slice) exprNode()          {}
