// Package ast defines the abstract syntax tree for Lox.
//
// Nodes are pointer types. Consumers dispatch with type switches; node
// identity (the pointer) is meaningful, because the resolver keys its scope
// table on it.
package ast

import (
	"lox-lang/internal/span"
	"lox-lang/internal/token"
)

// ============================================================
// Node interfaces
// ============================================================

// Node is the interface implemented by all AST nodes.
type Node interface {
	nodeNode()
	GetSpan() span.Span
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// ============================================================
// Base types (embedded to provide common fields)
// ============================================================

// NodeBase provides the common Span field for all AST nodes.
type NodeBase struct {
	Span span.Span
}

func (n NodeBase) nodeNode()          {}
func (n NodeBase) GetSpan() span.Span { return n.Span }

// ExprBase is embedded by all expression nodes.
type ExprBase struct{ NodeBase }

func (ExprBase) exprNode() {}

// StmtBase is embedded by all statement nodes.
type StmtBase struct{ NodeBase }

func (StmtBase) stmtNode() {}

// ============================================================
// Program (top-level AST root)
// ============================================================

// Program is the list of top-level declarations in one source text.
type Program struct {
	NodeBase
	Stmts []Stmt
}

// ============================================================
// Expressions
// ============================================================

// LiteralExpr is a constant: nil, a bool, a float64 or a string.
type LiteralExpr struct {
	ExprBase
	Value interface{}
}

// GroupingExpr is a parenthesized expression.
type GroupingExpr struct {
	ExprBase
	Expr Expr
}

// UnaryExpr represents a unary operation: !x, -x.
type UnaryExpr struct {
	ExprBase
	Op      token.Token
	Operand Expr
}

// BinaryExpr represents an arithmetic, comparison or equality operation.
type BinaryExpr struct {
	ExprBase
	Op    token.Token
	Left  Expr
	Right Expr
}

// LogicalExpr represents a short-circuiting `and` / `or`.
type LogicalExpr struct {
	ExprBase
	Op    token.Token
	Left  Expr
	Right Expr
}

// VariableExpr represents a variable reference.
type VariableExpr struct {
	ExprBase
	Name token.Token
}

// AssignExpr represents assignment to a variable: name = value.
type AssignExpr struct {
	ExprBase
	Name  token.Token
	Value Expr
}

// CallExpr represents a call: callee(args). Paren is the closing
// parenthesis, used to locate runtime errors.
type CallExpr struct {
	ExprBase
	Callee Expr
	Paren  token.Token
	Args   []Expr
}

// GetExpr represents property access: object.name.
type GetExpr struct {
	ExprBase
	Object Expr
	Name   token.Token
}

// SetExpr represents property assignment: object.name = value.
type SetExpr struct {
	ExprBase
	Object Expr
	Name   token.Token
	Value  Expr
}

// ThisExpr represents the 'this' keyword.
type ThisExpr struct {
	ExprBase
	Keyword token.Token
}

// SuperExpr represents a superclass method access: super.method.
type SuperExpr struct {
	ExprBase
	Keyword token.Token
	Method  token.Token
}

// ============================================================
// Statements
// ============================================================

// ExprStmt wraps an expression used as a statement.
type ExprStmt struct {
	StmtBase
	Expr Expr
}

// PrintStmt writes the value of Expr to the print sink.
type PrintStmt struct {
	StmtBase
	Expr Expr
}

// VarDeclStmt represents a variable declaration: var x = expr.
type VarDeclStmt struct {
	StmtBase
	Name token.Token
	Init Expr // may be nil if no initializer
}

// BlockStmt represents a block of statements: { ... }.
type BlockStmt struct {
	StmtBase
	Stmts []Stmt
}

// IfStmt represents if/else.
type IfStmt struct {
	StmtBase
	Condition Expr
	Then      Stmt
	Else      Stmt // may be nil
}

// WhileStmt represents a while loop. For loops are desugared into one.
type WhileStmt struct {
	StmtBase
	Condition Expr
	Body      Stmt
}

// ReturnStmt represents a return statement.
type ReturnStmt struct {
	StmtBase
	Keyword token.Token
	Value   Expr // may be nil
}

// ============================================================
// Declarations
// ============================================================

// FuncDecl represents a function or method declaration. The body runs in
// the same scope as the parameters.
type FuncDecl struct {
	StmtBase
	Name   token.Token
	Params []token.Token
	Body   []Stmt
}

// ClassDecl represents a class declaration.
type ClassDecl struct {
	StmtBase
	Name       token.Token
	SuperClass *VariableExpr // may be nil if no superclass
	Methods    []*FuncDecl
}
