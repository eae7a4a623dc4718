// Package trace defines the contract between the VM's stepper and an
// observer that wants to watch execution one instruction at a time —
// a debugger UI, a REPL's -trace flag, a test harness recording a
// golden run. It intentionally carries no rendering logic of its own:
// Step is a plain record and Sink is the one method a host implements.
package trace

import (
	"minic/isa"
	"minic/value"
)

// Step is a snapshot taken immediately before one instruction executes.
type Step struct {
	IP          int
	Instruction isa.Instruction
	Top         value.Value
	HasTop      bool
}

// Sink receives one Step per instruction. Implementations are free to
// print, collect, or filter; Emit must not retain Step's Instruction
// across calls if the underlying code slice could be reused, though in
// practice code is immutable for the lifetime of a VM.
type Sink interface {
	Emit(Step)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(Step)

func (f SinkFunc) Emit(s Step) { f(s) }

// Stepper is the subset of *vm.VM that Run needs, named here rather than
// imported from vm to keep this package free of a dependency on the
// package it is observing.
type Stepper interface {
	Step() (done bool, result value.Value, hasResult bool, err error)
	IP() int
	Top() (value.Value, bool)
	Instruction() (isa.Instruction, bool)
}

// Run drives vm to completion, calling sink.Emit once before each
// instruction executes, and returns the same (result, hasResult, err)
// RunToEnd would have.
func Run(vm Stepper, sink Sink) (value.Value, bool, error) {
	for {
		instr, ok := vm.Instruction()
		if ok && sink != nil {
			top, hasTop := vm.Top()
			sink.Emit(Step{IP: vm.IP(), Instruction: instr, Top: top, HasTop: hasTop})
		}
		done, result, hasResult, err := vm.Step()
		if err != nil {
			return value.Value{}, false, err
		}
		if done {
			return result, hasResult, nil
		}
	}
}
