// Package main is the minic command-line front end. The module root's
// entry points — Compile and NewVM — are what the cmd_*.go files call;
// they are kept here, alongside main, so that surface lives in one small
// file instead of scattered across the CLI plumbing. Being in package
// main, they are not importable from other packages.
package main

import (
	"minic/compiler"
	"minic/isa"
	"minic/parser"
	"minic/vm"
)

// Compile lexes, parses, and generates code for source in one step,
// surfacing the first error encountered at whichever stage it occurs:
// a lexer error, a parser.SyntaxError, or a compiler.SemanticError /
// compiler.DeveloperError.
func Compile(source string) ([]isa.Instruction, error) {
	prog, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	return compiler.Generate(prog)
}

// NewVM constructs a VM ready to step or run to completion over code.
func NewVM(code []isa.Instruction) *vm.VM {
	return vm.New(code)
}
