// Package resolver performs the static scope pass that runs between parsing
// and evaluation.
//
// The resolver walks the whole program once, mirroring the interpreter's
// scoping rules, and records for every local variable reference how many
// environments separate the use from the declaration. References it cannot
// find in any enclosing scope are left out of the table and are looked up in
// the global environment at run time. It also reports scope errors the
// interpreter would otherwise hit late or not at all.
package resolver

import (
	"lox-lang/internal/ast"
	"lox-lang/internal/diag"
	"lox-lang/internal/token"
)

// Locals maps a variable-referencing expression (by node identity) to its
// scope distance.
type Locals map[ast.Expr]int

type functionType int

const (
	fnNone functionType = iota
	fnFunction
	fnInitializer
	fnMethod
)

type classType int

const (
	classNone classType = iota
	classClass
	classSubclass
)

// Resolver computes scope distances for a program.
type Resolver struct {
	// scopes holds one map per open local scope; the value is false while
	// the name is declared but its initializer has not finished.
	scopes []map[string]bool
	locals Locals
	diags  []diag.Diagnostic

	currentFunction functionType
	currentClass    classType
}

// New creates a resolver.
func New() *Resolver {
	return &Resolver{}
}

// Resolve walks prog and returns the scope table together with any
// resolution errors. The program must not be executed if errors are
// returned. Resolving the same program again produces an equal table.
func (r *Resolver) Resolve(prog *ast.Program) (Locals, []diag.Diagnostic) {
	r.scopes = nil
	r.locals = make(Locals)
	r.diags = nil
	r.currentFunction = fnNone
	r.currentClass = classNone

	r.resolveStmts(prog.Stmts)
	return r.locals, r.diags
}

// ============================================================
// Scope helpers
// ============================================================

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, make(map[string]bool))
}

func (r *Resolver) endScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *Resolver) innermost() map[string]bool {
	return r.scopes[len(r.scopes)-1]
}

// declare adds name to the innermost scope as not yet ready. Globals are not
// tracked, so redeclaring a global is allowed.
func (r *Resolver) declare(name token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	scope := r.innermost()
	if _, exists := scope[name.Lexeme]; exists {
		r.errorAt(name, diag.CodeDuplicateLocal, "Already a variable with this name in this scope.")
	}
	scope[name.Lexeme] = false
}

// define marks name ready for use in the innermost scope.
func (r *Resolver) define(name token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	r.innermost()[name.Lexeme] = true
}

// resolveLocal records the distance from the innermost scope to the scope
// declaring name. Nothing is recorded for globals.
func (r *Resolver) resolveLocal(expr ast.Expr, name string) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name]; ok {
			r.locals[expr] = len(r.scopes) - 1 - i
			return
		}
	}
}

func (r *Resolver) errorAt(tok token.Token, code, msg string) {
	r.diags = append(r.diags, diag.AtToken(code, tok, msg))
}

// ============================================================
// Statements
// ============================================================

func (r *Resolver) resolveStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		r.resolveStmt(s)
	}
}

func (r *Resolver) resolveStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		r.beginScope()
		r.resolveStmts(s.Stmts)
		r.endScope()

	case *ast.VarDeclStmt:
		r.declare(s.Name)
		if s.Init != nil {
			r.resolveExpr(s.Init)
		}
		r.define(s.Name)

	case *ast.FuncDecl:
		// Defined before the body so the function can refer to itself.
		r.declare(s.Name)
		r.define(s.Name)
		r.resolveFunction(s, fnFunction)

	case *ast.ClassDecl:
		r.resolveClass(s)

	case *ast.ExprStmt:
		r.resolveExpr(s.Expr)

	case *ast.PrintStmt:
		r.resolveExpr(s.Expr)

	case *ast.IfStmt:
		r.resolveExpr(s.Condition)
		r.resolveStmt(s.Then)
		if s.Else != nil {
			r.resolveStmt(s.Else)
		}

	case *ast.WhileStmt:
		r.resolveExpr(s.Condition)
		r.resolveStmt(s.Body)

	case *ast.ReturnStmt:
		if r.currentFunction == fnNone {
			r.errorAt(s.Keyword, diag.CodeTopLevelReturn, "Can't return from top-level code.")
		}
		if s.Value != nil {
			if r.currentFunction == fnInitializer {
				r.errorAt(s.Keyword, diag.CodeInitializerValue, "Can't return a value from an initializer.")
			}
			r.resolveExpr(s.Value)
		}
	}
}

func (r *Resolver) resolveFunction(fn *ast.FuncDecl, kind functionType) {
	enclosing := r.currentFunction
	r.currentFunction = kind
	defer func() { r.currentFunction = enclosing }()

	r.beginScope()
	for _, param := range fn.Params {
		r.declare(param)
		r.define(param)
	}
	r.resolveStmts(fn.Body)
	r.endScope()
}

func (r *Resolver) resolveClass(c *ast.ClassDecl) {
	enclosing := r.currentClass
	r.currentClass = classClass
	defer func() { r.currentClass = enclosing }()

	r.declare(c.Name)
	r.define(c.Name)

	if c.SuperClass != nil {
		if c.SuperClass.Name.Lexeme == c.Name.Lexeme {
			r.errorAt(c.SuperClass.Name, diag.CodeSelfInheritance, "A class can't inherit from itself.")
		}
		r.currentClass = classSubclass
		r.resolveExpr(c.SuperClass)

		r.beginScope()
		r.innermost()["super"] = true
	}

	r.beginScope()
	r.innermost()["this"] = true

	for _, method := range c.Methods {
		kind := fnMethod
		if method.Name.Lexeme == "init" {
			kind = fnInitializer
		}
		r.resolveFunction(method, kind)
	}

	r.endScope()
	if c.SuperClass != nil {
		r.endScope()
	}
}

// ============================================================
// Expressions
// ============================================================

func (r *Resolver) resolveExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.VariableExpr:
		if len(r.scopes) > 0 {
			if ready, declared := r.innermost()[e.Name.Lexeme]; declared && !ready {
				r.errorAt(e.Name, diag.CodeSelfInitializer, "Can't read local variable in its own initializer.")
			}
		}
		r.resolveLocal(e, e.Name.Lexeme)

	case *ast.AssignExpr:
		r.resolveExpr(e.Value)
		r.resolveLocal(e, e.Name.Lexeme)

	case *ast.BinaryExpr:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)

	case *ast.LogicalExpr:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)

	case *ast.UnaryExpr:
		r.resolveExpr(e.Operand)

	case *ast.GroupingExpr:
		r.resolveExpr(e.Expr)

	case *ast.CallExpr:
		r.resolveExpr(e.Callee)
		for _, arg := range e.Args {
			r.resolveExpr(arg)
		}

	case *ast.GetExpr:
		// Property names are looked up dynamically; only the object resolves.
		r.resolveExpr(e.Object)

	case *ast.SetExpr:
		r.resolveExpr(e.Value)
		r.resolveExpr(e.Object)

	case *ast.ThisExpr:
		if r.currentClass == classNone {
			r.errorAt(e.Keyword, diag.CodeThisOutsideClass, "Can't use 'this' outside of a class.")
			return
		}
		r.resolveLocal(e, "this")

	case *ast.SuperExpr:
		switch r.currentClass {
		case classNone:
			r.errorAt(e.Keyword, diag.CodeSuperOutside, "Can't use 'super' outside of a class.")
		case classClass:
			r.errorAt(e.Keyword, diag.CodeSuperNoSuper, "Can't use 'super' in a class with no superclass.")
		}
		r.resolveLocal(e, "super")

	case *ast.LiteralExpr:
	}
}
