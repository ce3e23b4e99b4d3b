// Package parser implements the syntax analysis for Lox.
// It is a recursive-descent parser with one method per precedence level.
package parser

import (
	"lox-lang/internal/ast"
	"lox-lang/internal/diag"
	"lox-lang/internal/span"
	"lox-lang/internal/token"
)

// maxArgs bounds the number of parameters and call arguments.
const maxArgs = 255

// ============================================================
// Parser
// ============================================================

// Parser performs syntax analysis on a stream of tokens.
type Parser struct {
	tokens []token.Token
	pos    int
	diags  []diag.Diagnostic
}

// parseError unwinds the parser from the point of a syntax error back to
// the enclosing declaration, which resynchronizes.
type parseError struct{}

// New creates a new parser from a token slice. The slice is expected to
// end with an EOF token, as produced by the lexer.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens, pos: 0}
}

// ParseFile parses the entire token stream and returns the program and
// diagnostics. When diagnostics are non-empty the program is partial and
// must not be resolved or executed.
func (p *Parser) ParseFile() (*ast.Program, []diag.Diagnostic) {
	prog := &ast.Program{}
	startPos := p.peek().Span.Start

	for !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			prog.Stmts = append(prog.Stmts, stmt)
		}
	}

	endPos := p.peek().Span.End
	prog.Span = span.Span{Start: startPos, End: endPos}
	return prog, p.diags
}

// ---- navigation helpers ----

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		if len(p.tokens) > 0 {
			last := p.tokens[len(p.tokens)-1]
			return token.Token{Kind: token.EOF, Span: last.Span}
		}
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekKind() token.Kind {
	return p.peek().Kind
}

func (p *Parser) previous() token.Token {
	if p.pos == 0 {
		return p.peek()
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if !p.isAtEnd() {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind token.Kind) bool {
	return p.peekKind() == kind
}

// match reports whether the current token is any of kinds, without consuming it.
func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			return true
		}
	}
	return false
}

// accept consumes the current token if it is any of kinds.
func (p *Parser) accept(kinds ...token.Kind) bool {
	if p.match(kinds...) {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token of the given kind or fails with message.
func (p *Parser) expect(kind token.Kind, message string) token.Token {
	if p.check(kind) {
		return p.advance()
	}
	panic(p.errorAt(p.peek(), diag.CodeExpectToken, message))
}

func (p *Parser) isAtEnd() bool {
	return p.peekKind() == token.EOF
}

// errorAt records a diagnostic at tok and returns the unwinding signal. The
// caller decides whether to panic with it or keep parsing.
func (p *Parser) errorAt(tok token.Token, code, msg string) parseError {
	p.diags = append(p.diags, diag.AtToken(code, tok, msg))
	return parseError{}
}

// ============================================================
// Error recovery
// ============================================================

// synchronize discards tokens until a likely statement boundary: just past
// a semicolon, or before a keyword that starts a statement.
func (p *Parser) synchronize() {
	p.advance()
	for !p.isAtEnd() {
		if p.previous().Kind == token.SEMICOLON {
			return
		}
		if p.peekKind().StartsStatement() {
			return
		}
		p.advance()
	}
}

// ============================================================
// Declarations
// ============================================================

// declaration parses one declaration or statement. A syntax error anywhere
// inside it is recovered here; nil is returned in that case.
func (p *Parser) declaration() (stmt ast.Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseError); !ok {
				panic(r)
			}
			p.synchronize()
			stmt = nil
		}
	}()

	switch p.peekKind() {
	case token.KW_CLASS:
		return p.parseClassDecl()
	case token.KW_FUN:
		start := p.advance() // consume 'fun'
		return p.parseFunction("function", start.Span.Start)
	case token.KW_VAR:
		return p.parseVarDecl()
	default:
		return p.parseStmt()
	}
}

// parseClassDecl parses: class IDENT [ < IDENT ] { method* }
func (p *Parser) parseClassDecl() *ast.ClassDecl {
	start := p.advance() // consume 'class'
	decl := &ast.ClassDecl{}
	decl.Name = p.expect(token.IDENT, "Expect class name.")

	if p.accept(token.LT) {
		superTok := p.expect(token.IDENT, "Expect superclass name.")
		decl.SuperClass = &ast.VariableExpr{
			ExprBase: makeExprBase(superTok.Span.Start, superTok.Span.End),
			Name:     superTok,
		}
	}

	p.expect(token.LBRACE, "Expect '{' before class body.")
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		decl.Methods = append(decl.Methods, p.parseFunction("method", p.peek().Span.Start))
	}
	p.expect(token.RBRACE, "Expect '}' after class body.")

	decl.Span = p.makeSpan(start.Span.Start)
	return decl
}

// parseFunction parses: IDENT ( params ) block. kind is "function" or
// "method" and only affects error messages.
func (p *Parser) parseFunction(kind string, start span.Position) *ast.FuncDecl {
	decl := &ast.FuncDecl{}
	decl.Name = p.expect(token.IDENT, "Expect "+kind+" name.")

	p.expect(token.LPAREN, "Expect '(' after "+kind+" name.")
	if !p.check(token.RPAREN) {
		for {
			if len(decl.Params) >= maxArgs {
				p.errorAt(p.peek(), diag.CodeTooManyArgs, "Can't have more than 255 parameters.")
			}
			decl.Params = append(decl.Params, p.expect(token.IDENT, "Expect parameter name."))
			if !p.accept(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN, "Expect ')' after parameters.")

	p.expect(token.LBRACE, "Expect '{' before "+kind+" body.")
	decl.Body = p.parseBlockBody()
	decl.Span = p.makeSpan(start)
	return decl
}

// parseVarDecl parses: var IDENT [ = expr ] ;
func (p *Parser) parseVarDecl() *ast.VarDeclStmt {
	start := p.advance() // consume 'var'
	stmt := &ast.VarDeclStmt{}
	stmt.Name = p.expect(token.IDENT, "Expect variable name.")

	if p.accept(token.ASSIGN) {
		stmt.Init = p.parseExpr()
	}

	p.expect(token.SEMICOLON, "Expect ';' after variable declaration.")
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// ============================================================
// Statement parsing
// ============================================================

func (p *Parser) parseStmt() ast.Stmt {
	switch p.peekKind() {
	case token.KW_FOR:
		return p.parseForStmt()
	case token.KW_IF:
		return p.parseIfStmt()
	case token.KW_PRINT:
		return p.parsePrintStmt()
	case token.KW_RETURN:
		return p.parseReturnStmt()
	case token.KW_WHILE:
		return p.parseWhileStmt()
	case token.LBRACE:
		return p.parseBlock()
	default:
		return p.parseExprStmt()
	}
}

// parseForStmt parses: for ( init? ; cond? ; incr? ) stmt
// and desugars it into { init; while (cond) { stmt; incr; } }.
func (p *Parser) parseForStmt() ast.Stmt {
	start := p.advance() // consume 'for'
	p.expect(token.LPAREN, "Expect '(' after 'for'.")

	var init ast.Stmt
	switch {
	case p.accept(token.SEMICOLON):
	case p.check(token.KW_VAR):
		init = p.parseVarDecl()
	default:
		init = p.parseExprStmt()
	}

	var cond ast.Expr
	if !p.check(token.SEMICOLON) {
		cond = p.parseExpr()
	}
	condEnd := p.expect(token.SEMICOLON, "Expect ';' after loop condition.")

	var incr ast.Expr
	if !p.check(token.RPAREN) {
		incr = p.parseExpr()
	}
	p.expect(token.RPAREN, "Expect ')' after for clauses.")

	body := p.parseStmt()
	loopSpan := p.makeSpan(start.Span.Start)

	if incr != nil {
		body = &ast.BlockStmt{
			StmtBase: ast.StmtBase{NodeBase: ast.NodeBase{Span: body.GetSpan()}},
			Stmts: []ast.Stmt{
				body,
				&ast.ExprStmt{StmtBase: makeStmtBase(incr.GetSpan().Start, incr.GetSpan().End), Expr: incr},
			},
		}
	}

	if cond == nil {
		cond = &ast.LiteralExpr{ExprBase: makeExprBase(condEnd.Span.Start, condEnd.Span.Start), Value: true}
	}

	var loop ast.Stmt = &ast.WhileStmt{
		StmtBase:  ast.StmtBase{NodeBase: ast.NodeBase{Span: loopSpan}},
		Condition: cond,
		Body:      body,
	}

	if init != nil {
		loop = &ast.BlockStmt{
			StmtBase: ast.StmtBase{NodeBase: ast.NodeBase{Span: loopSpan}},
			Stmts:    []ast.Stmt{init, loop},
		}
	}
	return loop
}

// parseIfStmt parses: if ( expr ) stmt [ else stmt ]
func (p *Parser) parseIfStmt() *ast.IfStmt {
	start := p.advance() // consume 'if'
	stmt := &ast.IfStmt{}

	p.expect(token.LPAREN, "Expect '(' after 'if'.")
	stmt.Condition = p.parseExpr()
	p.expect(token.RPAREN, "Expect ')' after if condition.")

	stmt.Then = p.parseStmt()
	if p.accept(token.KW_ELSE) {
		stmt.Else = p.parseStmt()
	}

	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parsePrintStmt parses: print expr ;
func (p *Parser) parsePrintStmt() *ast.PrintStmt {
	start := p.advance() // consume 'print'
	stmt := &ast.PrintStmt{Expr: p.parseExpr()}
	p.expect(token.SEMICOLON, "Expect ';' after value.")
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseReturnStmt parses: return [expr] ;
func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	keyword := p.advance() // consume 'return'
	stmt := &ast.ReturnStmt{Keyword: keyword}

	if !p.check(token.SEMICOLON) {
		stmt.Value = p.parseExpr()
	}
	p.expect(token.SEMICOLON, "Expect ';' after return value.")

	stmt.Span = p.makeSpan(keyword.Span.Start)
	return stmt
}

// parseWhileStmt parses: while ( expr ) stmt
func (p *Parser) parseWhileStmt() *ast.WhileStmt {
	start := p.advance() // consume 'while'
	stmt := &ast.WhileStmt{}

	p.expect(token.LPAREN, "Expect '(' after 'while'.")
	stmt.Condition = p.parseExpr()
	p.expect(token.RPAREN, "Expect ')' after condition.")
	stmt.Body = p.parseStmt()

	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseBlock parses: { declaration* }
func (p *Parser) parseBlock() *ast.BlockStmt {
	start := p.advance() // consume '{'
	block := &ast.BlockStmt{Stmts: p.parseBlockBody()}
	block.Span = p.makeSpan(start.Span.Start)
	return block
}

// parseBlockBody parses declarations up to and including the closing brace.
// The opening brace has already been consumed.
func (p *Parser) parseBlockBody() []ast.Stmt {
	var stmts []ast.Stmt
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	p.expect(token.RBRACE, "Expect '}' after block.")
	return stmts
}

// parseExprStmt parses: expr ;
func (p *Parser) parseExprStmt() *ast.ExprStmt {
	expr := p.parseExpr()
	p.expect(token.SEMICOLON, "Expect ';' after expression.")
	return &ast.ExprStmt{
		StmtBase: makeStmtBase(expr.GetSpan().Start, p.prevEnd()),
		Expr:     expr,
	}
}

// ============================================================
// Expression parsing (one method per precedence level)
// ============================================================

func (p *Parser) parseExpr() ast.Expr {
	return p.parseAssignment()
}

// parseAssignment is right-associative. The left side is parsed as an
// ordinary expression and then reinterpreted as an assignment target.
func (p *Parser) parseAssignment() ast.Expr {
	expr := p.parseOr()

	if p.accept(token.ASSIGN) {
		equals := p.previous()
		value := p.parseAssignment()

		switch target := expr.(type) {
		case *ast.VariableExpr:
			return &ast.AssignExpr{
				ExprBase: makeExprBase(target.GetSpan().Start, value.GetSpan().End),
				Name:     target.Name,
				Value:    value,
			}
		case *ast.GetExpr:
			return &ast.SetExpr{
				ExprBase: makeExprBase(target.GetSpan().Start, value.GetSpan().End),
				Object:   target.Object,
				Name:     target.Name,
				Value:    value,
			}
		}
		// Reported without unwinding: the parser is not confused.
		p.errorAt(equals, diag.CodeInvalidAssignment, "Invalid assignment target.")
	}

	return expr
}

func (p *Parser) parseOr() ast.Expr {
	expr := p.parseAnd()
	for p.accept(token.KW_OR) {
		op := p.previous()
		right := p.parseAnd()
		expr = &ast.LogicalExpr{
			ExprBase: makeExprBase(expr.GetSpan().Start, right.GetSpan().End),
			Op:       op,
			Left:     expr,
			Right:    right,
		}
	}
	return expr
}

func (p *Parser) parseAnd() ast.Expr {
	expr := p.parseEquality()
	for p.accept(token.KW_AND) {
		op := p.previous()
		right := p.parseEquality()
		expr = &ast.LogicalExpr{
			ExprBase: makeExprBase(expr.GetSpan().Start, right.GetSpan().End),
			Op:       op,
			Left:     expr,
			Right:    right,
		}
	}
	return expr
}

func (p *Parser) parseEquality() ast.Expr {
	return p.parseBinary(p.parseComparison, token.EQ, token.NEQ)
}

func (p *Parser) parseComparison() ast.Expr {
	return p.parseBinary(p.parseTerm, token.GT, token.GTE, token.LT, token.LTE)
}

func (p *Parser) parseTerm() ast.Expr {
	return p.parseBinary(p.parseFactor, token.MINUS, token.PLUS)
}

func (p *Parser) parseFactor() ast.Expr {
	return p.parseBinary(p.parseUnary, token.SLASH, token.STAR)
}

// parseBinary parses a left-associative chain of operands joined by any of ops.
func (p *Parser) parseBinary(operand func() ast.Expr, ops ...token.Kind) ast.Expr {
	expr := operand()
	for p.accept(ops...) {
		op := p.previous()
		right := operand()
		expr = &ast.BinaryExpr{
			ExprBase: makeExprBase(expr.GetSpan().Start, right.GetSpan().End),
			Op:       op,
			Left:     expr,
			Right:    right,
		}
	}
	return expr
}

func (p *Parser) parseUnary() ast.Expr {
	if p.accept(token.BANG, token.MINUS) {
		op := p.previous()
		operand := p.parseUnary()
		return &ast.UnaryExpr{
			ExprBase: makeExprBase(op.Span.Start, operand.GetSpan().End),
			Op:       op,
			Operand:  operand,
		}
	}
	return p.parseCall()
}

// parseCall parses a primary followed by any mix of calls and property gets.
func (p *Parser) parseCall() ast.Expr {
	expr := p.parsePrimary()

	for {
		switch {
		case p.accept(token.LPAREN):
			expr = p.finishCall(expr)
		case p.accept(token.DOT):
			name := p.expect(token.IDENT, "Expect property name after '.'.")
			expr = &ast.GetExpr{
				ExprBase: makeExprBase(expr.GetSpan().Start, name.Span.End),
				Object:   expr,
				Name:     name,
			}
		default:
			return expr
		}
	}
}

// finishCall parses the argument list after '('.
func (p *Parser) finishCall(callee ast.Expr) *ast.CallExpr {
	var args []ast.Expr

	if !p.check(token.RPAREN) {
		for {
			if len(args) >= maxArgs {
				p.errorAt(p.peek(), diag.CodeTooManyArgs, "Can't have more than 255 arguments.")
			}
			args = append(args, p.parseExpr())
			if !p.accept(token.COMMA) {
				break
			}
		}
	}
	paren := p.expect(token.RPAREN, "Expect ')' after arguments.")

	return &ast.CallExpr{
		ExprBase: makeExprBase(callee.GetSpan().Start, paren.Span.End),
		Callee:   callee,
		Paren:    paren,
		Args:     args,
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.peek()

	switch tok.Kind {
	case token.KW_FALSE:
		p.advance()
		return &ast.LiteralExpr{ExprBase: makeExprBase(tok.Span.Start, tok.Span.End), Value: false}

	case token.KW_TRUE:
		p.advance()
		return &ast.LiteralExpr{ExprBase: makeExprBase(tok.Span.Start, tok.Span.End), Value: true}

	case token.KW_NIL:
		p.advance()
		return &ast.LiteralExpr{ExprBase: makeExprBase(tok.Span.Start, tok.Span.End), Value: nil}

	case token.NUMBER, token.STRING:
		p.advance()
		return &ast.LiteralExpr{ExprBase: makeExprBase(tok.Span.Start, tok.Span.End), Value: tok.Literal}

	case token.KW_SUPER:
		p.advance()
		p.expect(token.DOT, "Expect '.' after 'super'.")
		method := p.expect(token.IDENT, "Expect superclass method name.")
		return &ast.SuperExpr{
			ExprBase: makeExprBase(tok.Span.Start, method.Span.End),
			Keyword:  tok,
			Method:   method,
		}

	case token.KW_THIS:
		p.advance()
		return &ast.ThisExpr{ExprBase: makeExprBase(tok.Span.Start, tok.Span.End), Keyword: tok}

	case token.IDENT:
		p.advance()
		return &ast.VariableExpr{ExprBase: makeExprBase(tok.Span.Start, tok.Span.End), Name: tok}

	case token.LPAREN:
		p.advance() // consume '('
		expr := p.parseExpr()
		end := p.expect(token.RPAREN, "Expect ')' after expression.")
		return &ast.GroupingExpr{ExprBase: makeExprBase(tok.Span.Start, end.Span.End), Expr: expr}
	}

	panic(p.errorAt(tok, diag.CodeExpectExpression, "Expect expression."))
}

// ============================================================
// Span helpers
// ============================================================

func (p *Parser) prevEnd() span.Position {
	if p.pos > 0 && p.pos-1 < len(p.tokens) {
		return p.tokens[p.pos-1].Span.End
	}
	return p.peek().Span.Start
}

func (p *Parser) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: p.prevEnd()}
}

func makeExprBase(start, end span.Position) ast.ExprBase {
	return ast.ExprBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}

func makeStmtBase(start, end span.Position) ast.StmtBase {
	return ast.StmtBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}
