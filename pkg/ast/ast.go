// Package ast defines Sun's abstract syntax tree. Unlike a
// statement/expression split, every node is an Expression — a top-level
// program is simply a sequence of expressions (spec §4.2).
package ast

import "github.com/windlx/sun/pkg/value"

// Node is implemented by every AST node.
type Node interface {
	node()
}

// Expression is the single node category Sun's parser produces.
type Expression interface {
	Node
	expressionNode()
}

type baseExpr struct{}

func (baseExpr) node()           {}
func (baseExpr) expressionNode() {}

// Program is a sequence of top-level expressions, in source order.
type Program struct {
	baseExpr
	Statements []Expression
}

// Constant wraps a literal value fixed at parse time (number, string,
// bool, or nil).
type Constant struct {
	baseExpr
	Value value.Value
}

// Variable is a bare name reference.
type Variable struct {
	baseExpr
	Name string
}

// BinOp is a binary operator application; Op is one of the fixed
// operator-name strings from spec §4.3 (add, sub, mul, div, rem, pow,
// and, or, xor, eq, noteq, le, ge, less, greater).
type BinOp struct {
	baseExpr
	Op    string
	Left  Expression
	Right Expression
	Line  int
}

// UnaryOp is a prefix or postfix unary operator application; Op is one
// of neg, not, fac, conj.
type UnaryOp struct {
	baseExpr
	Op   string
	X    Expression
	Line int
}

// Dot is member access `obj.name` — a meta-operation in its own right,
// not sugar for Index (spec §4.3).
type Dot struct {
	baseExpr
	Object Expression
	Name   string
	Line   int
}

// Index is `obj[key]`.
type Index struct {
	baseExpr
	Object Expression
	Key    Expression
	Line   int
}

// Assign binds Name to the value of RHS; the parser only produces this
// when the assignment target was a bare name.
type Assign struct {
	baseExpr
	Name string
	RHS  Expression
	Line int
}

// TableAssign writes RHS into the table/key designated by LHS, which is
// always a Dot or Index node.
type TableAssign struct {
	baseExpr
	LHS  Expression // *Dot or *Index
	RHS  Expression
	Line int
}

// Call invokes Head with Args.
type Call struct {
	baseExpr
	Head Expression
	Args []Expression
	Line int
}

// DotCall is a method call `obj.name(args...)`; Head is the *Dot node
// naming the method, and the receiver is implicit (already produced by
// lowering Head).
type DotCall struct {
	baseExpr
	Head Expression // *Dot
	Args []Expression
	Line int
}

// TableCreate builds a table literal from Items, which are either plain
// expressions (array half) or *PairCreate nodes (dict half).
type TableCreate struct {
	baseExpr
	Items []Expression
	Line  int
}

// PairCreate is a `key: value` entry inside a table literal; Key must
// have been a string constant at parse time (spec §4.2 "pair" production).
type PairCreate struct {
	baseExpr
	Key   string
	Value Expression
	Line  int
}

// If is `if Cond: Then [else Else] end`.
type If struct {
	baseExpr
	Cond Expression
	Then []Expression
	Else []Expression // nil if no else clause
	Line int
}

// Loop is `loop Cond: Body end`.
type Loop struct {
	baseExpr
	Cond Expression
	Body []Expression
	Line int
}

// Return is `return Value`.
type Return struct {
	baseExpr
	Value Expression
	Line  int
}

// Import is `import libname`.
type Import struct {
	baseExpr
	Name string
	Line int
}
