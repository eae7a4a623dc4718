package interpreter

import (
	"fmt"

	"minic/token"
	"minic/value"
)

// Environment is a chained scope: a map of bindings plus an optional
// parent. Entering a block pushes a child; leaving it discards that
// child, giving the tree-walker the same lexical shadowing behavior the
// compiled path gets from the symbol table's depth-scoped slot list.
type Environment struct {
	values map[string]value.Value
	parent *Environment
}

func NewEnvironment(parent *Environment) *Environment {
	return &Environment{values: make(map[string]value.Value), parent: parent}
}

// Define binds name in this scope, failing if it is already bound here
// (shadowing an outer scope's name is fine; redeclaring within the same
// scope is not — the same rule the symbol table enforces at compile
// time).
func (e *Environment) Define(name string, v value.Value) error {
	if _, ok := e.values[name]; ok {
		return fmt.Errorf("redefinition of %q in the same scope", name)
	}
	e.values[name] = v
	return nil
}

// Get resolves name in the nearest enclosing scope that binds it.
func (e *Environment) Get(name token.Token) (value.Value, error) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.values[name.Lexeme]; ok {
			return v, nil
		}
	}
	return value.Value{}, RuntimeError{Line: name.Line, Col: name.Col, Message: fmt.Sprintf("unresolved identifier %q", name.Lexeme)}
}

// Assign stores v into the nearest enclosing scope that already binds
// name, without creating a new binding.
func (e *Environment) Assign(name token.Token, v value.Value) error {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.values[name.Lexeme]; ok {
			env.values[name.Lexeme] = v
			return nil
		}
	}
	return RuntimeError{Line: name.Line, Col: name.Col, Message: fmt.Sprintf("unresolved identifier %q", name.Lexeme)}
}
