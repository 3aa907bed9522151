// Package qsc models the QSC scripting language as an abstract syntax tree
// and renders it back to source text.
//
// Nodes are produced by the qvm decompiler and consumed immediately by the
// renderer; they are never shared between programs and never form cycles.
package qsc

// Node is the interface implemented by all AST nodes.
type Node interface {
	node() // marker method
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// IntLit represents an integer literal.
type IntLit struct {
	Value int64
}

func (n *IntLit) node() {}
func (n *IntLit) expr() {}

// FloatLit represents a floating-point literal.
type FloatLit struct {
	Value float32
}

func (n *FloatLit) node() {}
func (n *FloatLit) expr() {}

// StrLit represents a string literal. The value is stored with newline and
// double-quote characters already escaped, so rendering never re-scans it.
type StrLit struct {
	Value string
}

func (n *StrLit) node() {}
func (n *StrLit) expr() {}

// Ident represents a variable reference by name.
type Ident struct {
	Name string
}

func (n *Ident) node() {}
func (n *Ident) expr() {}

// Unary represents a prefix operator applied to one operand.
type Unary struct {
	Op      string
	Operand Expr
}

func (n *Unary) node() {}
func (n *Unary) expr() {}

// Binary represents an infix operator applied to two operands.
// Assignment is a Binary with Op "=", matching the bytecode's encoding.
type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

func (n *Binary) node() {}
func (n *Binary) expr() {}

// Call represents a function invocation.
type Call struct {
	Func string
	Args []Expr
}

func (n *Call) node() {}
func (n *Call) expr() {}

// ExprStmt wraps an expression appearing in statement position.
type ExprStmt struct {
	X Expr
}

func (n *ExprStmt) node() {}
func (n *ExprStmt) stmt() {}

// If represents a conditional with an optional else branch.
type If struct {
	Cond Expr
	Then *Block
	Else *Block // nil when there is no else branch
}

func (n *If) node() {}
func (n *If) stmt() {}

// While represents a pre-tested loop.
type While struct {
	Cond Expr
	Body *Block
}

func (n *While) node() {}
func (n *While) stmt() {}

// Block is an ordered sequence of statements covering one contiguous
// region of the original control flow.
type Block struct {
	Stmts []Stmt
}

func (n *Block) node() {}
func (n *Block) stmt() {}
