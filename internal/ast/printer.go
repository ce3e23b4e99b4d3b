package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Sprint renders a node as a parenthesized prefix expression, e.g.
// `(* (- 123) (group 45.67))`. It is meant for debugging the parser.
func Sprint(node Node) string {
	var b strings.Builder
	writeNode(&b, node)
	return b.String()
}

func writeNode(b *strings.Builder, node Node) {
	switch n := node.(type) {
	case nil:
		b.WriteString("nil")
	case *Program:
		for i, s := range n.Stmts {
			if i > 0 {
				b.WriteByte('\n')
			}
			writeNode(b, s)
		}

	case *LiteralExpr:
		b.WriteString(literalString(n.Value))
	case *GroupingExpr:
		parens(b, "group", n.Expr)
	case *UnaryExpr:
		parens(b, n.Op.Lexeme, n.Operand)
	case *BinaryExpr:
		parens(b, n.Op.Lexeme, n.Left, n.Right)
	case *LogicalExpr:
		parens(b, n.Op.Lexeme, n.Left, n.Right)
	case *VariableExpr:
		b.WriteString(n.Name.Lexeme)
	case *AssignExpr:
		parens(b, "= "+n.Name.Lexeme, n.Value)
	case *CallExpr:
		parens(b, "call", append([]Expr{n.Callee}, n.Args...)...)
	case *GetExpr:
		parens(b, "."+n.Name.Lexeme, n.Object)
	case *SetExpr:
		parens(b, "= ."+n.Name.Lexeme, n.Object, n.Value)
	case *ThisExpr:
		b.WriteString("this")
	case *SuperExpr:
		b.WriteString("(super " + n.Method.Lexeme + ")")

	case *ExprStmt:
		parens(b, ";", n.Expr)
	case *PrintStmt:
		parens(b, "print", n.Expr)
	case *VarDeclStmt:
		if n.Init == nil {
			b.WriteString("(var " + n.Name.Lexeme + ")")
		} else {
			parens(b, "var "+n.Name.Lexeme, n.Init)
		}
	case *BlockStmt:
		b.WriteString("(block")
		for _, s := range n.Stmts {
			b.WriteByte(' ')
			writeNode(b, s)
		}
		b.WriteByte(')')
	case *IfStmt:
		b.WriteString("(if ")
		writeNode(b, n.Condition)
		b.WriteByte(' ')
		writeNode(b, n.Then)
		if n.Else != nil {
			b.WriteByte(' ')
			writeNode(b, n.Else)
		}
		b.WriteByte(')')
	case *WhileStmt:
		b.WriteString("(while ")
		writeNode(b, n.Condition)
		b.WriteByte(' ')
		writeNode(b, n.Body)
		b.WriteByte(')')
	case *ReturnStmt:
		if n.Value == nil {
			b.WriteString("(return)")
		} else {
			parens(b, "return", n.Value)
		}
	case *FuncDecl:
		writeFunc(b, "fun", n)
	case *ClassDecl:
		b.WriteString("(class " + n.Name.Lexeme)
		if n.SuperClass != nil {
			b.WriteString(" < " + n.SuperClass.Name.Lexeme)
		}
		for _, md := range n.Methods {
			b.WriteByte(' ')
			writeFunc(b, "method", md)
		}
		b.WriteByte(')')
	default:
		fmt.Fprintf(b, "(unknown %T)", node)
	}
}

func writeFunc(b *strings.Builder, label string, n *FuncDecl) {
	b.WriteString("(" + label + " " + n.Name.Lexeme + " (")
	for i, p := range n.Params {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.Lexeme)
	}
	b.WriteByte(')')
	for _, s := range n.Body {
		b.WriteByte(' ')
		writeNode(b, s)
	}
	b.WriteByte(')')
}

func parens(b *strings.Builder, name string, exprs ...Expr) {
	b.WriteString("(" + name)
	for _, e := range exprs {
		b.WriteByte(' ')
		writeNode(b, e)
	}
	b.WriteByte(')')
}

func literalString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return strconv.Quote(val)
	default:
		return fmt.Sprint(val)
	}
}
