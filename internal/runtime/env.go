package runtime

import (
	"fmt"

	"lox-lang/internal/token"
)

// Environment is one scope of variable storage with a link to its enclosing
// scope. The global environment has no parent.
//
// Environments are shared: a closure, a bound method and an active call can
// all hold the same one, and references may form cycles through instances.
// They are plain pointers and the garbage collector reclaims them.
type Environment struct {
	values map[string]Value
	parent *Environment
}

// NewEnvironment creates a new environment with an optional parent scope.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		values: make(map[string]Value),
		parent: parent,
	}
}

// Define binds name in this scope, replacing any existing binding.
func (e *Environment) Define(name string, value Value) {
	e.values[name] = value
}

// Get looks up a variable by walking the scope chain.
func (e *Environment) Get(name token.Token) (Value, error) {
	for env := e; env != nil; env = env.parent {
		if val, exists := env.values[name.Lexeme]; exists {
			return val, nil
		}
	}
	return nil, undefinedVariable(name)
}

// Assign sets an existing variable found by walking the scope chain.
func (e *Environment) Assign(name token.Token, value Value) error {
	for env := e; env != nil; env = env.parent {
		if _, exists := env.values[name.Lexeme]; exists {
			env.values[name.Lexeme] = value
			return nil
		}
	}
	return undefinedVariable(name)
}

// Ancestor returns the environment distance links up the chain, or nil if
// the chain is shorter than that.
func (e *Environment) Ancestor(distance int) *Environment {
	env := e
	for i := 0; i < distance && env != nil; i++ {
		env = env.parent
	}
	return env
}

// GetAt reads name from the environment exactly distance links up. A missing
// scope or binding means the scope table is wrong and yields ErrInternal.
func (e *Environment) GetAt(distance int, name string) (Value, error) {
	env, err := e.resolvedScope(distance, name)
	if err != nil {
		return nil, err
	}
	return env.values[name], nil
}

// AssignAt writes name in the environment exactly distance links up. It never
// creates a binding.
func (e *Environment) AssignAt(distance int, name string, value Value) error {
	env, err := e.resolvedScope(distance, name)
	if err != nil {
		return err
	}
	env.values[name] = value
	return nil
}

func (e *Environment) resolvedScope(distance int, name string) (*Environment, error) {
	env := e.Ancestor(distance)
	if env == nil {
		return nil, fmt.Errorf("%w: no scope at distance %d for '%s'", ErrInternal, distance, name)
	}
	if _, ok := env.values[name]; !ok {
		return nil, fmt.Errorf("%w: '%s' not bound at distance %d", ErrInternal, name, distance)
	}
	return env, nil
}

func undefinedVariable(name token.Token) error {
	return runtimeErr(name, "Undefined variable '%s'.", name.Lexeme)
}
