// Package runtime implements the interpreter and runtime value system for Lox.
package runtime

import (
	"lox-lang/internal/ast"
	"math"
	"strconv"
)

// Value is the interface for all runtime values.
type Value interface {
	TypeName() string
	String() string
}

// ---- Primitive values ----

// NilVal represents nil.
type NilVal struct{}

func (v NilVal) TypeName() string { return "nil" }
func (v NilVal) String() string   { return "nil" }

// BoolVal represents a boolean value.
type BoolVal bool

func (v BoolVal) TypeName() string { return "bool" }
func (v BoolVal) String() string   { return strconv.FormatBool(bool(v)) }

// NumberVal represents a number. All numbers are double precision.
type NumberVal float64

func (v NumberVal) TypeName() string { return "number" }
func (v NumberVal) String() string   { return FormatNumber(float64(v)) }

// StringVal represents a string value.
type StringVal string

func (v StringVal) TypeName() string { return "string" }
func (v StringVal) String() string   { return string(v) }

// FormatNumber renders a number the way print shows it: integral values have
// no fractional part ("3", not "3.0").
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ---- Callable values ----

// Callable is implemented by every value that can appear before '(' in a
// call expression.
type Callable interface {
	Value
	Arity() int
	Call(in *Interpreter, args []Value) (Value, error)
}

// FuncVal is a user-defined function or method together with the
// environment it closes over. Bound methods share Decl with the method they
// were bound from and differ only in Closure.
type FuncVal struct {
	Decl    *ast.FuncDecl
	Closure *Environment
	IsInit  bool // class initializer: calls always yield 'this'
}

func (v *FuncVal) TypeName() string { return "function" }
func (v *FuncVal) String() string   { return "<fn " + v.Decl.Name.Lexeme + ">" }

// Arity returns the number of declared parameters.
func (v *FuncVal) Arity() int { return len(v.Decl.Params) }

// Call runs the function body in a fresh environment enclosed by the closure.
func (v *FuncVal) Call(in *Interpreter, args []Value) (Value, error) {
	env := NewEnvironment(v.Closure)
	for idx, param := range v.Decl.Params {
		env.Define(param.Lexeme, args[idx])
	}

	result, err := in.execBlock(v.Decl.Body, env)
	if err != nil {
		return nil, err
	}

	if v.IsInit {
		return v.Closure.GetAt(0, "this")
	}
	if result.Signal == SigReturn {
		return result.Value, nil
	}
	return NilVal{}, nil
}

// Bind returns a copy of the method whose closure defines 'this' as
// instance. The receiver is not modified.
func (v *FuncVal) Bind(instance *InstanceVal) *FuncVal {
	env := NewEnvironment(v.Closure)
	env.Define("this", instance)
	return &FuncVal{Decl: v.Decl, Closure: env, IsInit: v.IsInit}
}

// BuiltinFn is the Go signature for built-in functions.
type BuiltinFn func(args []Value) (Value, error)

// BuiltinVal represents a built-in (native) function.
type BuiltinVal struct {
	Name   string
	Params int
	Fn     BuiltinFn
}

func (v *BuiltinVal) TypeName() string { return "builtin" }
func (v *BuiltinVal) String() string   { return "<native fn>" }

// Arity returns the fixed number of arguments the builtin takes.
func (v *BuiltinVal) Arity() int { return v.Params }

// Call invokes the Go implementation.
func (v *BuiltinVal) Call(_ *Interpreter, args []Value) (Value, error) {
	return v.Fn(args)
}

// ---- OOP values ----

// ClassVal is a class: a name, an optional superclass and a method table
// that does not change after the class declaration has executed.
type ClassVal struct {
	Name    string
	Super   *ClassVal // may be nil
	Methods map[string]*FuncVal
}

func (v *ClassVal) TypeName() string { return "class" }
func (v *ClassVal) String() string   { return v.Name }

// FindMethod looks name up on the class, then on each superclass in turn.
func (v *ClassVal) FindMethod(name string) (*FuncVal, bool) {
	for cls := v; cls != nil; cls = cls.Super {
		if method, ok := cls.Methods[name]; ok {
			return method, true
		}
	}
	return nil, false
}

// Arity is the arity of the initializer, or 0 without one.
func (v *ClassVal) Arity() int {
	if init, ok := v.FindMethod("init"); ok {
		return init.Arity()
	}
	return 0
}

// Call creates an instance and runs the initializer on it, if any.
func (v *ClassVal) Call(in *Interpreter, args []Value) (Value, error) {
	instance := NewInstance(v)
	if init, ok := v.FindMethod("init"); ok {
		if _, err := init.Bind(instance).Call(in, args); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

// InstanceVal is an instance of a class. Fields are created on first
// assignment.
type InstanceVal struct {
	Class  *ClassVal
	Fields map[string]Value
}

// NewInstance creates an instance with no fields.
func NewInstance(class *ClassVal) *InstanceVal {
	return &InstanceVal{Class: class, Fields: make(map[string]Value)}
}

func (v *InstanceVal) TypeName() string { return "instance" }
func (v *InstanceVal) String() string   { return v.Class.Name + " instance" }

// Get returns a field, or else the named method bound to this instance.
// Fields shadow methods.
func (v *InstanceVal) Get(name string) (Value, bool) {
	if val, ok := v.Fields[name]; ok {
		return val, true
	}
	if method, ok := v.Class.FindMethod(name); ok {
		return method.Bind(v), true
	}
	return nil, false
}

// Set creates or overwrites a field.
func (v *InstanceVal) Set(name string, value Value) {
	v.Fields[name] = value
}

// ---- Truthiness & equality ----

// IsTruthy reports whether v counts as true in a condition: everything
// except nil and false.
func IsTruthy(v Value) bool {
	switch val := v.(type) {
	case nil, NilVal:
		return false
	case BoolVal:
		return bool(val)
	default:
		return true
	}
}

// ValuesEqual implements == . Values of different types are never equal and
// no conversion is performed. NaN is equal to itself.
func ValuesEqual(a, b Value) bool {
	if x, ok := a.(NumberVal); ok {
		if y, ok := b.(NumberVal); ok {
			if math.IsNaN(float64(x)) && math.IsNaN(float64(y)) {
				return true
			}
			return x == y
		}
		return false
	}
	return a == b
}
