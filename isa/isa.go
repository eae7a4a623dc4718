// Package isa defines the instruction set architecture that is the stable
// contract between the compiler front-end and the VM back-end: the
// opcode enumeration and the in-memory instruction record.
//
// Unlike the teacher's byte-packed encoding (opcode + big-endian operand
// bytes), instructions here are plain structs — the spec defines the ISA
// as "a linear sequence where each entry is (opcode, operand?)" with no
// on-disk format, so there is nothing to gain from byte-packing and it
// would only obscure the operand's real type (a full value for Push, an
// address for jumps, an element kind for AllocArr).
package isa

import (
	"fmt"

	"minic/value"
)

type Opcode int

const (
	Reserve Opcode = iota
	Push
	Pop
	PopN
	Dup
	Swap
	Add
	Sub
	Mul
	Div
	Mod
	Negate
	Not
	Print
	Load
	Store
	Eq
	Neq
	Lt
	Gt
	Lte
	Gte
	Jump
	JumpIfFalse
	JumpIfFalsePeek
	JumpIfTruePeek
	AllocArr
	LoadIndex
	StoreIndex
)

var names = [...]string{
	Reserve:         "reserve",
	Push:            "push",
	Pop:             "pop",
	PopN:            "pop_n",
	Dup:             "dup",
	Swap:            "swap",
	Add:             "add",
	Sub:             "sub",
	Mul:             "mul",
	Div:             "div",
	Mod:             "mod",
	Negate:          "negate",
	Not:             "not",
	Print:           "print",
	Load:            "load",
	Store:           "store",
	Eq:              "eq",
	Neq:             "neq",
	Lt:              "lt",
	Gt:              "gt",
	Lte:             "lte",
	Gte:             "gte",
	Jump:            "jump",
	JumpIfFalse:     "jump_if_false",
	JumpIfFalsePeek: "jump_if_false_peek",
	JumpIfTruePeek:  "jump_if_true_peek",
	AllocArr:        "alloc_arr",
	LoadIndex:       "load_idx",
	StoreIndex:      "store_idx",
}

func (op Opcode) String() string {
	if int(op) >= 0 && int(op) < len(names) && names[op] != "" {
		return names[op]
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// Instruction is one opcode plus its operand, if any. The meaning of
// Operand depends on Op:
//
//	Push            -> value.Value   (the literal to push)
//	Load, Store     -> int           (slot index, bp-relative)
//	Jump and kin     -> int           (absolute instruction index)
//	PopN, Reserve   -> int           (count)
//	AllocArr        -> value.Kind    (element kind, for zero-fill)
//	everything else -> nil
type Instruction struct {
	Op      Opcode
	Operand any
}

func Simple(op Opcode) Instruction                 { return Instruction{Op: op} }
func WithInt(op Opcode, n int) Instruction          { return Instruction{Op: op, Operand: n} }
func WithValue(v value.Value) Instruction           { return Instruction{Op: Push, Operand: v} }
func WithKind(op Opcode, k value.Kind) Instruction  { return Instruction{Op: op, Operand: k} }

// Int returns the Operand as an int, panicking if the instruction does not
// carry one. Used by the VM, which trusts bytecode produced by this
// package's own compiler.
func (i Instruction) Int() int {
	n, ok := i.Operand.(int)
	if !ok {
		panic(fmt.Sprintf("isa: instruction %s has no int operand", i.Op))
	}
	return n
}

func (i Instruction) Value() value.Value {
	v, ok := i.Operand.(value.Value)
	if !ok {
		panic(fmt.Sprintf("isa: instruction %s has no value operand", i.Op))
	}
	return v
}

func (i Instruction) ElemKind() value.Kind {
	k, ok := i.Operand.(value.Kind)
	if !ok {
		panic(fmt.Sprintf("isa: instruction %s has no kind operand", i.Op))
	}
	return k
}

// String renders an instruction for disassembly, e.g. "load 2" or "push 5".
func (i Instruction) String() string {
	if i.Operand == nil {
		return i.Op.String()
	}
	return fmt.Sprintf("%s %v", i.Op, i.Operand)
}

// Disassemble renders a full instruction sequence, one instruction per
// line, prefixed with its index — the address jumps and backpatching
// refer to.
func Disassemble(code []Instruction) string {
	out := ""
	for addr, instr := range code {
		out += fmt.Sprintf("%4d  %s\n", addr, instr)
	}
	return out
}
