package parser

import (
	"encoding/json"
	"fmt"
	"lox-lang/internal/ast"
	"lox-lang/internal/diag"
	"lox-lang/internal/lexer"
	"strings"
	"testing"
)

// helper: parse source and return AST + check for no errors
func parseOK(t *testing.T, source string) *ast.Program {
	t.Helper()
	tokens, lexDiags := lexer.New(source, "test.lox").Tokenize()
	if len(lexDiags) > 0 {
		t.Fatalf("lex errors: %v", lexDiags)
	}
	prog, parseDiags := New(tokens).ParseFile()
	if len(parseDiags) > 0 {
		t.Fatalf("parse errors: %v", parseDiags)
	}
	return prog
}

// helper: parse source expecting syntax errors, returned as rendered strings
func parseErrors(t *testing.T, source string) []string {
	t.Helper()
	tokens, lexDiags := lexer.New(source, "test.lox").Tokenize()
	if len(lexDiags) > 0 {
		t.Fatalf("lex errors: %v", lexDiags)
	}
	_, parseDiags := New(tokens).ParseFile()
	if len(parseDiags) == 0 {
		t.Fatalf("expected parse errors for %q", source)
	}
	out := make([]string, len(parseDiags))
	for i, d := range parseDiags {
		out[i] = d.String()
	}
	return out
}

// expectSexpr parses source and compares the S-expression rendering.
func expectSexpr(t *testing.T, source, expected string) {
	t.Helper()
	if got := ast.Sprint(parseOK(t, source)); got != expected {
		t.Errorf("source %q:\n  expected %s\n  got      %s", source, expected, got)
	}
}

func TestParseVarDecl(t *testing.T) {
	prog := parseOK(t, `var x = 42;`)
	if len(prog.Stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Stmts))
	}
	decl, ok := prog.Stmts[0].(*ast.VarDeclStmt)
	if !ok {
		t.Fatalf("expected VarDeclStmt, got %T", prog.Stmts[0])
	}
	if decl.Name.Lexeme != "x" {
		t.Errorf("expected name 'x', got %q", decl.Name.Lexeme)
	}
	lit, ok := decl.Init.(*ast.LiteralExpr)
	if !ok || lit.Value != 42.0 {
		t.Errorf("expected literal 42, got %#v", decl.Init)
	}
}

func TestParseVarDeclWithoutInit(t *testing.T) {
	prog := parseOK(t, `var x;`)
	decl := prog.Stmts[0].(*ast.VarDeclStmt)
	if decl.Init != nil {
		t.Errorf("expected nil initializer, got %T", decl.Init)
	}
}

func TestParsePrecedence(t *testing.T) {
	expectSexpr(t, `1 + 2 * 3;`, `(; (+ 1 (* 2 3)))`)
	expectSexpr(t, `(1 + 2) * 3;`, `(; (* (group (+ 1 2)) 3))`)
	expectSexpr(t, `1 - 2 - 3;`, `(; (- (- 1 2) 3))`)
	expectSexpr(t, `-a * !b;`, `(; (* (- a) (! b)))`)
	expectSexpr(t, `!!true;`, `(; (! (! true)))`)
	expectSexpr(t, `1 < 2 == 3 >= 4;`, `(; (== (< 1 2) (>= 3 4)))`)
	expectSexpr(t, `a or b and c;`, `(; (or a (and b c)))`)
	expectSexpr(t, `a == b != c;`, `(; (!= (== a b) c))`)
}

func TestParseAssignmentIsRightAssociative(t *testing.T) {
	expectSexpr(t, `a = b = c;`, `(; (= a (= b c)))`)
}

func TestParseLiterals(t *testing.T) {
	expectSexpr(t, `print nil; print "hi"; print 2.5; print false;`,
		"(print nil)\n(print \"hi\")\n(print 2.5)\n(print false)")
}

func TestParseIfStmt(t *testing.T) {
	expectSexpr(t, `if (x) print 1; else print 2;`, `(if x (print 1) (print 2))`)
	expectSexpr(t, `if (x) print 1;`, `(if x (print 1))`)
}

func TestParseDanglingElse(t *testing.T) {
	// else binds to the nearest if.
	expectSexpr(t, `if (a) if (b) print 1; else print 2;`, `(if a (if b (print 1) (print 2)))`)
}

func TestParseWhileStmt(t *testing.T) {
	expectSexpr(t, `while (i < 10) { i = i + 1; }`, `(while (< i 10) (block (; (= i (+ i 1)))))`)
}

func TestParseForDesugaring(t *testing.T) {
	expectSexpr(t, `for (var i = 0; i < 3; i = i + 1) print i;`,
		`(block (var i 0) (while (< i 3) (block (print i) (; (= i (+ i 1))))))`)
	expectSexpr(t, `for (;;) print 1;`, `(while true (print 1))`)
	expectSexpr(t, `for (i = 0; i < 1;) print i;`, `(block (; (= i 0)) (while (< i 1) (print i)))`)
}

func TestParseForMissingConditionSpan(t *testing.T) {
	prog := parseOK(t, `for (;;) print 1;`)
	loop, ok := prog.Stmts[0].(*ast.WhileStmt)
	if !ok {
		t.Fatalf("expected WhileStmt, got %T", prog.Stmts[0])
	}
	cond, ok := loop.Condition.(*ast.LiteralExpr)
	if !ok || cond.Value != true {
		t.Fatalf("expected literal true condition, got %#v", loop.Condition)
	}
	sp := cond.GetSpan()
	if sp.Start != sp.End {
		t.Errorf("implicit condition should have an empty span, got %s", sp)
	}
	if sp.Start.Offset != 6 || sp.Start.Column != 7 {
		t.Errorf("implicit condition should sit at the second ';', got %s", sp.Start)
	}
}

func TestParseFuncDecl(t *testing.T) {
	prog := parseOK(t, `fun add(a, b) { return a + b; }`)
	fn, ok := prog.Stmts[0].(*ast.FuncDecl)
	if !ok {
		t.Fatalf("expected FuncDecl, got %T", prog.Stmts[0])
	}
	if fn.Name.Lexeme != "add" {
		t.Errorf("expected name 'add', got %q", fn.Name.Lexeme)
	}
	if len(fn.Params) != 2 || fn.Params[0].Lexeme != "a" || fn.Params[1].Lexeme != "b" {
		t.Errorf("unexpected params %v", fn.Params)
	}
	if got := ast.Sprint(fn); got != `(fun add (a b) (return (+ a b)))` {
		t.Errorf("unexpected rendering %s", got)
	}
}

func TestParseClassDecl(t *testing.T) {
	prog := parseOK(t, `class B < A { init(x) { this.x = x; } get() { return super.get(); } }`)
	cls, ok := prog.Stmts[0].(*ast.ClassDecl)
	if !ok {
		t.Fatalf("expected ClassDecl, got %T", prog.Stmts[0])
	}
	if cls.Name.Lexeme != "B" {
		t.Errorf("expected class name 'B', got %q", cls.Name.Lexeme)
	}
	if cls.SuperClass == nil || cls.SuperClass.Name.Lexeme != "A" {
		t.Errorf("expected superclass 'A', got %#v", cls.SuperClass)
	}
	if len(cls.Methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(cls.Methods))
	}
	want := `(class B < A (method init (x) (; (= .x this x))) (method get () (return (call (super get)))))`
	if got := ast.Sprint(cls); got != want {
		t.Errorf("expected %s\ngot      %s", want, got)
	}
}

func TestParseCallAndProperty(t *testing.T) {
	expectSexpr(t, `f(1, 2)(3);`, `(; (call (call f 1 2) 3))`)
	expectSexpr(t, `a.b.c();`, `(; (call (.c (.b a))))`)
	expectSexpr(t, `a.b = 1;`, `(; (= .b a 1))`)
	expectSexpr(t, `f().x = y;`, `(; (= .x (call f) y))`)
}

func TestParseCallRecordsParen(t *testing.T) {
	prog := parseOK(t, "f(\n1\n);")
	call := prog.Stmts[0].(*ast.ExprStmt).Expr.(*ast.CallExpr)
	if call.Paren.Line() != 3 {
		t.Errorf("expected closing paren on line 3, got %d", call.Paren.Line())
	}
}

func TestParseSpans(t *testing.T) {
	prog := parseOK(t, "print 1 + 22;")
	stmt := prog.Stmts[0].(*ast.PrintStmt)
	s := stmt.GetSpan()
	if s.Start.Offset != 0 || s.End.Offset != 13 {
		t.Errorf("print span: expected 0..13, got %d..%d", s.Start.Offset, s.End.Offset)
	}
	es := stmt.Expr.GetSpan()
	if es.Start.Offset != 6 || es.End.Offset != 12 {
		t.Errorf("expr span: expected 6..12, got %d..%d", es.Start.Offset, es.End.Offset)
	}
}

func TestParseJSONOutput(t *testing.T) {
	prog := parseOK(t, `var x = 1 + 2;`)
	data, err := json.Marshal(ast.NodeToMap(prog))
	if err != nil {
		t.Fatalf("json error: %v", err)
	}
	js := string(data)
	for _, want := range []string{`"kind":"Program"`, `"kind":"VarDeclStmt"`, `"kind":"BinaryExpr"`, `"name":"x"`} {
		if !strings.Contains(js, want) {
			t.Errorf("expected JSON to contain %s, got %s", want, js)
		}
	}
}

// ---- errors ----

func TestParseErrorMessages(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{`print 1`, `[line 1] Error at end: Expect ';' after value.`},
		{`var 1 = 2;`, `[line 1] Error at '1': Expect variable name.`},
		{`var x = ;`, `[line 1] Error at ';': Expect expression.`},
		{`(1 + 2;`, `[line 1] Error at ';': Expect ')' after expression.`},
		{`if x) print 1;`, `[line 1] Error at 'x': Expect '(' after 'if'.`},
		{`fun (a) {}`, `[line 1] Error at '(': Expect function name.`},
		{`class A { 1 }`, `[line 1] Error at '1': Expect method name.`},
		{`class A < {}`, `[line 1] Error at '{': Expect superclass name.`},
		{`super;`, `[line 1] Error at ';': Expect '.' after 'super'.`},
		{`a.1;`, `[line 1] Error at '1': Expect property name after '.'.`},
		{"{\nprint 1;", `[line 2] Error at end: Expect '}' after block.`},
		{`for (var i = 0; i < 1 i = i + 1) {}`, `[line 1] Error at 'i': Expect ';' after loop condition.`},
	}
	for _, tt := range tests {
		errs := parseErrors(t, tt.source)
		if errs[0] != tt.want {
			t.Errorf("source %q:\n  expected %s\n  got      %s", tt.source, tt.want, errs[0])
		}
	}
}

func TestParseInvalidAssignmentTarget(t *testing.T) {
	tokens, _ := lexer.New(`a + b = c; print 1;`, "test.lox").Tokenize()
	prog, diags := New(tokens).ParseFile()
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", diags)
	}
	if diags[0].Code != diag.CodeInvalidAssignment {
		t.Errorf("expected %s, got %s", diag.CodeInvalidAssignment, diags[0].Code)
	}
	if got := diags[0].String(); got != `[line 1] Error at '=': Invalid assignment target.` {
		t.Errorf("unexpected message %q", got)
	}
	// Not a panic-mode error: both statements are still parsed.
	if len(prog.Stmts) != 2 {
		t.Errorf("expected 2 statements, got %d", len(prog.Stmts))
	}
}

func TestParseErrorRecovery(t *testing.T) {
	source := "var = 1;\nprint 2;\nvar y = ;\nprint 4 print 5;\nprint 3;"
	errs := parseErrors(t, source)
	want := []string{
		`[line 1] Error at '=': Expect variable name.`,
		`[line 3] Error at ';': Expect expression.`,
		`[line 4] Error at 'print': Expect ';' after value.`,
	}
	if len(errs) != len(want) {
		t.Fatalf("expected %d errors, got %d: %v", len(want), len(errs), errs)
	}
	for i := range want {
		if errs[i] != want[i] {
			t.Errorf("error[%d]: expected %s, got %s", i, want[i], errs[i])
		}
	}
}

func TestParseErrorRecoveryKeepsGoodStatements(t *testing.T) {
	tokens, _ := lexer.New("print 1;\nvar = 2;\nprint 3;", "test.lox").Tokenize()
	prog, diags := New(tokens).ParseFile()
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", diags)
	}
	if got := ast.Sprint(prog); got != "(print 1)\n(print 3)" {
		t.Errorf("unexpected surviving statements: %s", got)
	}
}

func TestParseTooManyArguments(t *testing.T) {
	args := make([]string, 256)
	for i := range args {
		args[i] = fmt.Sprint(i)
	}
	errs := parseErrors(t, "f("+strings.Join(args, ", ")+");")
	if len(errs) != 1 || errs[0] != `[line 1] Error at '255': Can't have more than 255 arguments.` {
		t.Errorf("unexpected errors %v", errs)
	}
}

func TestParseMaxArgumentsAllowed(t *testing.T) {
	args := make([]string, 255)
	params := make([]string, 255)
	for i := range args {
		args[i] = fmt.Sprint(i)
		params[i] = fmt.Sprintf("p%d", i)
	}
	parseOK(t, "f("+strings.Join(args, ", ")+");")
	parseOK(t, "fun g("+strings.Join(params, ", ")+") {}")
}

func TestParseTooManyParameters(t *testing.T) {
	params := make([]string, 256)
	for i := range params {
		params[i] = fmt.Sprintf("p%d", i)
	}
	errs := parseErrors(t, "fun g("+strings.Join(params, ", ")+") {}")
	if len(errs) != 1 || errs[0] != `[line 1] Error at 'p255': Can't have more than 255 parameters.` {
		t.Errorf("unexpected errors %v", errs)
	}
}
