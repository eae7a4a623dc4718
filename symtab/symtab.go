// Package symtab implements the compiler's lexical scope stack.
//
// It generalizes the teacher's ASTCompiler.locals/scopeDepth fields
// (compiler/ast_compiler.go in the teacher) into a standalone, independently
// testable component per spec §4.3's rationale: because every local is
// pushed onto the VM's unified stack in declaration order, a name's symbol
// table record index IS its runtime stack slot. No separate allocation
// pass is ever needed — define() order and load/store operands stay in
// lockstep by construction.
package symtab

import "fmt"

type record struct {
	name  string
	depth int
}

// Table is an ordered list of (name, depth) records plus the current
// scope depth.
type Table struct {
	records []record
	depth   int
}

func New() *Table {
	return &Table{}
}

// EnterScope increments the current depth.
func (t *Table) EnterScope() {
	t.depth++
}

// ExitScope pops every record belonging to the current depth and returns
// how many were removed, so the code generator can emit a matching pop_n.
func (t *Table) ExitScope() int {
	count := 0
	for len(t.records) > 0 && t.records[len(t.records)-1].depth == t.depth {
		t.records = t.records[:len(t.records)-1]
		count++
	}
	t.depth--
	return count
}

// Define appends a new record for name at the current depth. It fails if
// name already exists at this exact depth (shadowing an outer scope's
// name of the same identifier is fine; redeclaring within the same scope
// is not).
func (t *Table) Define(name string) (slot int, err error) {
	for i := len(t.records) - 1; i >= 0; i-- {
		if t.records[i].depth != t.depth {
			break
		}
		if t.records[i].name == name {
			return 0, fmt.Errorf("redefinition of %q in the same scope", name)
		}
	}
	t.records = append(t.records, record{name: name, depth: t.depth})
	return len(t.records) - 1, nil
}

// Resolve returns the absolute slot index of the innermost record matching
// name, or false if no scope currently visible declares it.
func (t *Table) Resolve(name string) (slot int, ok bool) {
	for i := len(t.records) - 1; i >= 0; i-- {
		if t.records[i].name == name {
			return i, true
		}
	}
	return 0, false
}

// Depth reports the current scope depth (0 at the top level).
func (t *Table) Depth() int {
	return t.depth
}
