package runtime

import (
	"errors"
	"fmt"
	"io"
	"lox-lang/internal/ast"
	"lox-lang/internal/diag"
	"lox-lang/internal/resolver"
	"lox-lang/internal/token"
	"maps"
	"time"
)

// DefaultMaxCallDepth bounds nested calls before "Stack overflow." is raised.
const DefaultMaxCallDepth = 1024

// ============================================================
// Control flow signals
// ============================================================

// ExecSignal represents a control flow signal from statement execution.
type ExecSignal int

const (
	SigNone   ExecSignal = iota
	SigReturn            // return from function
)

// ExecResult is the outcome of executing a statement: either normal
// completion or a return carrying a value. It is checked after every
// statement so that a return unwinds exactly to the enclosing call.
type ExecResult struct {
	Signal ExecSignal
	Value  Value
}

var resultNone = ExecResult{Signal: SigNone}

// ============================================================
// Errors
// ============================================================

// ErrInternal marks failures that indicate a bug in the interpreter rather
// than in the program being run.
var ErrInternal = errors.New("internal interpreter error")

// RuntimeError is an error raised by the running program. It carries the
// token nearest to the fault for line reporting.
type RuntimeError struct {
	Token   token.Token
	Message string
}

// Error renders the error as `<message>\n[line N]`.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d]", e.Message, e.Token.Line())
}

// Diagnostic converts the error into the compile-time diagnostic form.
func (e *RuntimeError) Diagnostic() diag.Diagnostic {
	return diag.Errorf(diag.CodeRuntime, e.Token.Span, "%s", e.Message)
}

func runtimeErr(tok token.Token, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Token: tok, Message: fmt.Sprintf(format, args...)}
}

// ============================================================
// Interpreter
// ============================================================

// Interpreter walks the AST and executes it. It keeps its global
// environment and scope table across Interpret calls, so a REPL can define
// something on one line and use it on the next. It is not safe for
// concurrent use.
type Interpreter struct {
	global *Environment
	env    *Environment
	output io.Writer
	locals resolver.Locals

	depth    int
	maxDepth int
	now      func() time.Time
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithMaxCallDepth sets how many calls may be active at once. Values below
// one keep the default.
func WithMaxCallDepth(n int) Option {
	return func(i *Interpreter) {
		if n > 0 {
			i.maxDepth = n
		}
	}
}

// WithClock replaces the time source used by the clock() native.
func WithClock(now func() time.Time) Option {
	return func(i *Interpreter) { i.now = now }
}

// WithBuiltin defines an extra native function in the global environment.
func WithBuiltin(b *BuiltinVal) Option {
	return func(i *Interpreter) { i.global.Define(b.Name, b) }
}

// NewInterpreter creates a new interpreter that prints to output, with the
// native functions registered.
func NewInterpreter(output io.Writer, opts ...Option) *Interpreter {
	global := NewEnvironment(nil)
	i := &Interpreter{
		global:   global,
		env:      global,
		output:   output,
		locals:   make(resolver.Locals),
		maxDepth: DefaultMaxCallDepth,
		now:      time.Now,
	}
	RegisterBuiltins(global, func() time.Time { return i.now() })
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Interpret executes prog using the scope table the resolver produced for
// it. Execution stops at the first runtime error, which is returned; the
// remaining top-level statements are skipped. Definitions made before the
// error stay in the global environment.
func (i *Interpreter) Interpret(prog *ast.Program, locals resolver.Locals) error {
	maps.Copy(i.locals, locals)
	i.env = i.global
	i.depth = 0

	for _, stmt := range prog.Stmts {
		result, err := i.execStmt(stmt)
		if err != nil {
			return err
		}
		if result.Signal == SigReturn {
			return fmt.Errorf("%w: return escaped to top level at line %d", ErrInternal, stmt.GetSpan().Line())
		}
	}
	return nil
}

// ============================================================
// Statement execution
// ============================================================

func (i *Interpreter) execStmt(stmt ast.Stmt) (ExecResult, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		_, err := i.evalExpr(s.Expr)
		return resultNone, err

	case *ast.PrintStmt:
		val, err := i.evalExpr(s.Expr)
		if err != nil {
			return resultNone, err
		}
		fmt.Fprintln(i.output, stringify(val))
		return resultNone, nil

	case *ast.VarDeclStmt:
		var val Value = NilVal{}
		if s.Init != nil {
			v, err := i.evalExpr(s.Init)
			if err != nil {
				return resultNone, err
			}
			val = v
		}
		i.env.Define(s.Name.Lexeme, val)
		return resultNone, nil

	case *ast.BlockStmt:
		return i.execBlock(s.Stmts, NewEnvironment(i.env))

	case *ast.IfStmt:
		cond, err := i.evalExpr(s.Condition)
		if err != nil {
			return resultNone, err
		}
		if IsTruthy(cond) {
			return i.execStmt(s.Then)
		}
		if s.Else != nil {
			return i.execStmt(s.Else)
		}
		return resultNone, nil

	case *ast.WhileStmt:
		return i.execWhile(s)

	case *ast.FuncDecl:
		i.env.Define(s.Name.Lexeme, &FuncVal{Decl: s, Closure: i.env})
		return resultNone, nil

	case *ast.ReturnStmt:
		var val Value = NilVal{}
		if s.Value != nil {
			v, err := i.evalExpr(s.Value)
			if err != nil {
				return resultNone, err
			}
			val = v
		}
		return ExecResult{Signal: SigReturn, Value: val}, nil

	case *ast.ClassDecl:
		return i.execClassDecl(s)

	default:
		return resultNone, fmt.Errorf("%w: unhandled statement type %T", ErrInternal, stmt)
	}
}

func (i *Interpreter) execWhile(s *ast.WhileStmt) (ExecResult, error) {
	for {
		cond, err := i.evalExpr(s.Condition)
		if err != nil {
			return resultNone, err
		}
		if !IsTruthy(cond) {
			return resultNone, nil
		}

		result, err := i.execStmt(s.Body)
		if err != nil {
			return resultNone, err
		}
		if result.Signal == SigReturn {
			return result, nil // propagate return
		}
	}
}

// execBlock runs stmts with blockEnv as the current environment. The
// previous environment is restored however the block exits.
func (i *Interpreter) execBlock(stmts []ast.Stmt, blockEnv *Environment) (ExecResult, error) {
	prevEnv := i.env
	i.env = blockEnv
	defer func() { i.env = prevEnv }()

	for _, stmt := range stmts {
		result, err := i.execStmt(stmt)
		if err != nil {
			return resultNone, err
		}
		if result.Signal != SigNone {
			return result, nil // propagate signal
		}
	}
	return resultNone, nil
}

func (i *Interpreter) execClassDecl(s *ast.ClassDecl) (ExecResult, error) {
	// Bound first so methods can refer to the class by name.
	i.env.Define(s.Name.Lexeme, NilVal{})

	var superclass *ClassVal
	if s.SuperClass != nil {
		val, err := i.evalExpr(s.SuperClass)
		if err != nil {
			return resultNone, err
		}
		sc, ok := val.(*ClassVal)
		if !ok {
			return resultNone, runtimeErr(s.SuperClass.Name, "Superclass must be a class.")
		}
		superclass = sc
	}

	methodEnv := i.env
	if superclass != nil {
		methodEnv = NewEnvironment(i.env)
		methodEnv.Define("super", superclass)
	}

	cls := &ClassVal{
		Name:    s.Name.Lexeme,
		Super:   superclass,
		Methods: make(map[string]*FuncVal, len(s.Methods)),
	}
	for _, m := range s.Methods {
		cls.Methods[m.Name.Lexeme] = &FuncVal{
			Decl:    m,
			Closure: methodEnv,
			IsInit:  m.Name.Lexeme == "init",
		}
	}

	i.env.Define(s.Name.Lexeme, cls)
	return resultNone, nil
}

// ============================================================
// Expression evaluation
// ============================================================

func (i *Interpreter) evalExpr(expr ast.Expr) (Value, error) {
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		return fromLiteral(e.Value), nil
	case *ast.GroupingExpr:
		return i.evalExpr(e.Expr)
	case *ast.UnaryExpr:
		return i.evalUnary(e)
	case *ast.BinaryExpr:
		return i.evalBinary(e)
	case *ast.LogicalExpr:
		return i.evalLogical(e)
	case *ast.VariableExpr:
		return i.lookUpVariable(e.Name, e)
	case *ast.AssignExpr:
		return i.evalAssign(e)
	case *ast.CallExpr:
		return i.evalCall(e)
	case *ast.GetExpr:
		return i.evalGet(e)
	case *ast.SetExpr:
		return i.evalSet(e)
	case *ast.ThisExpr:
		return i.lookUpVariable(e.Keyword, e)
	case *ast.SuperExpr:
		return i.evalSuper(e)
	default:
		return nil, fmt.Errorf("%w: unhandled expression type %T", ErrInternal, expr)
	}
}

func fromLiteral(v interface{}) Value {
	switch val := v.(type) {
	case bool:
		return BoolVal(val)
	case float64:
		return NumberVal(val)
	case string:
		return StringVal(val)
	default:
		return NilVal{}
	}
}

// lookUpVariable reads name at the distance the resolver recorded for expr,
// or from the globals if it recorded none.
func (i *Interpreter) lookUpVariable(name token.Token, expr ast.Expr) (Value, error) {
	if distance, ok := i.locals[expr]; ok {
		return i.env.GetAt(distance, name.Lexeme)
	}
	return i.global.Get(name)
}

func (i *Interpreter) evalAssign(e *ast.AssignExpr) (Value, error) {
	val, err := i.evalExpr(e.Value)
	if err != nil {
		return nil, err
	}

	if distance, ok := i.locals[e]; ok {
		if err := i.env.AssignAt(distance, e.Name.Lexeme, val); err != nil {
			return nil, err
		}
		return val, nil
	}
	if err := i.global.Assign(e.Name, val); err != nil {
		return nil, err
	}
	return val, nil
}

func (i *Interpreter) evalUnary(e *ast.UnaryExpr) (Value, error) {
	operand, err := i.evalExpr(e.Operand)
	if err != nil {
		return nil, err
	}

	switch e.Op.Kind {
	case token.BANG:
		return BoolVal(!IsTruthy(operand)), nil
	case token.MINUS:
		n, ok := operand.(NumberVal)
		if !ok {
			return nil, runtimeErr(e.Op, "Operand must be a number.")
		}
		return -n, nil
	default:
		return nil, fmt.Errorf("%w: unknown unary operator %s", ErrInternal, e.Op.Kind)
	}
}

func (i *Interpreter) evalBinary(e *ast.BinaryExpr) (Value, error) {
	left, err := i.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := i.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op.Kind {
	case token.EQ:
		return BoolVal(ValuesEqual(left, right)), nil
	case token.NEQ:
		return BoolVal(!ValuesEqual(left, right)), nil
	case token.PLUS:
		if l, ok := left.(NumberVal); ok {
			if r, ok := right.(NumberVal); ok {
				return l + r, nil
			}
		}
		if l, ok := left.(StringVal); ok {
			if r, ok := right.(StringVal); ok {
				return l + r, nil
			}
		}
		return nil, runtimeErr(e.Op, "Operands must be two numbers or two strings.")
	}

	l, lok := left.(NumberVal)
	r, rok := right.(NumberVal)
	if !lok || !rok {
		return nil, runtimeErr(e.Op, "Operands must be numbers.")
	}

	switch e.Op.Kind {
	case token.MINUS:
		return l - r, nil
	case token.STAR:
		return l * r, nil
	case token.SLASH:
		return l / r, nil
	case token.GT:
		return BoolVal(l > r), nil
	case token.GTE:
		return BoolVal(l >= r), nil
	case token.LT:
		return BoolVal(l < r), nil
	case token.LTE:
		return BoolVal(l <= r), nil
	default:
		return nil, fmt.Errorf("%w: unknown binary operator %s", ErrInternal, e.Op.Kind)
	}
}

// evalLogical returns whichever operand decided the result, not a bool.
func (i *Interpreter) evalLogical(e *ast.LogicalExpr) (Value, error) {
	left, err := i.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	if e.Op.Kind == token.KW_OR {
		if IsTruthy(left) {
			return left, nil // short-circuit
		}
	} else if !IsTruthy(left) {
		return left, nil // short-circuit
	}
	return i.evalExpr(e.Right)
}

func (i *Interpreter) evalCall(e *ast.CallExpr) (Value, error) {
	callee, err := i.evalExpr(e.Callee)
	if err != nil {
		return nil, err
	}

	args := make([]Value, len(e.Args))
	for idx, argExpr := range e.Args {
		val, err := i.evalExpr(argExpr)
		if err != nil {
			return nil, err
		}
		args[idx] = val
	}

	fn, ok := callee.(Callable)
	if !ok {
		return nil, runtimeErr(e.Paren, "Can only call functions and classes.")
	}
	if len(args) != fn.Arity() {
		return nil, runtimeErr(e.Paren, "Expected %d arguments but got %d.", fn.Arity(), len(args))
	}
	return i.call(fn, args, e.Paren)
}

// call invokes fn, enforcing the call depth limit.
func (i *Interpreter) call(fn Callable, args []Value, paren token.Token) (Value, error) {
	if i.depth >= i.maxDepth {
		return nil, runtimeErr(paren, "Stack overflow.")
	}
	i.depth++
	defer func() { i.depth-- }()
	return fn.Call(i, args)
}

func (i *Interpreter) evalGet(e *ast.GetExpr) (Value, error) {
	obj, err := i.evalExpr(e.Object)
	if err != nil {
		return nil, err
	}

	instance, ok := obj.(*InstanceVal)
	if !ok {
		return nil, runtimeErr(e.Name, "Only instances have properties.")
	}
	if val, ok := instance.Get(e.Name.Lexeme); ok {
		return val, nil
	}
	return nil, runtimeErr(e.Name, "Undefined property '%s'.", e.Name.Lexeme)
}

func (i *Interpreter) evalSet(e *ast.SetExpr) (Value, error) {
	obj, err := i.evalExpr(e.Object)
	if err != nil {
		return nil, err
	}

	instance, ok := obj.(*InstanceVal)
	if !ok {
		return nil, runtimeErr(e.Name, "Only instances have fields.")
	}

	val, err := i.evalExpr(e.Value)
	if err != nil {
		return nil, err
	}
	instance.Set(e.Name.Lexeme, val)
	return val, nil
}

// evalSuper finds the method on the superclass captured by the class
// declaration and binds it to the current 'this', which lives one
// environment below 'super'.
func (i *Interpreter) evalSuper(e *ast.SuperExpr) (Value, error) {
	distance, ok := i.locals[e]
	if !ok {
		return nil, fmt.Errorf("%w: unresolved 'super' at line %d", ErrInternal, e.Keyword.Line())
	}

	sv, err := i.env.GetAt(distance, "super")
	if err != nil {
		return nil, err
	}
	superclass, ok := sv.(*ClassVal)
	if !ok {
		return nil, fmt.Errorf("%w: 'super' is not bound to a class", ErrInternal)
	}
	tv, err := i.env.GetAt(distance-1, "this")
	if err != nil {
		return nil, err
	}
	instance, ok := tv.(*InstanceVal)
	if !ok {
		return nil, fmt.Errorf("%w: 'this' is not bound to an instance", ErrInternal)
	}

	method, ok := superclass.FindMethod(e.Method.Lexeme)
	if !ok {
		return nil, runtimeErr(e.Method, "Undefined property '%s'.", e.Method.Lexeme)
	}
	return method.Bind(instance), nil
}

// stringify renders a value for print.
func stringify(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.String()
}
