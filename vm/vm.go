package vm

import (
	"fmt"
	"io"
	"os"

	"minic/isa"
	"minic/value"
)

// VM is a stack-based virtual machine over a fixed instruction sequence.
// It generalizes the teacher's VM (a single-shot Run loop over byte-packed
// bytecode) into a restartable, one-instruction-at-a-time stepper: Step
// advances exactly one instruction and returns, so a host can drive
// execution for visualization without unwinding any Go call stack. bp is
// always 0 in the core — there are no function frames — but is kept as
// a field since every load/store/pop_n computes relative to it, per the
// ISA's contract.
type VM struct {
	code     []isa.Instruction
	ip       int
	stack    Stack
	bp       int
	heap     *Heap
	guardian Guardian
	out      io.Writer
	halted   bool
}

// New binds a VM to code. Output defaults to os.Stdout, matching the
// spec's fallback for hosts that supply no sink.
func New(code []isa.Instruction) *VM {
	return &VM{
		code: code,
		heap: NewHeap(),
		out:  os.Stdout,
	}
}

// SetOutput redirects print's observational side effect.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

func (vm *VM) IP() int { return vm.ip }

// Top returns the current top-of-stack value, if any — the same
// "result so far" a trace observer wants after every step, not only at
// completion.
func (vm *VM) Top() (value.Value, bool) { return vm.result() }

// Instruction returns the instruction at ip, the one Step is about to
// execute, or the zero Instruction with ok=false once the program has
// run off the end of code.
func (vm *VM) Instruction() (isa.Instruction, bool) {
	if vm.ip < 0 || vm.ip >= len(vm.code) {
		return isa.Instruction{}, false
	}
	return vm.code[vm.ip], true
}

// Step executes exactly one instruction. done reports whether execution
// has halted (normal completion, never a second instruction after that);
// result is the program's result value once done, computed as the top of
// stack if sp > bp, otherwise the zero Value with ok=false.
func (vm *VM) Step() (done bool, result value.Value, hasResult bool, err error) {
	if vm.halted {
		r, ok := vm.result()
		return true, r, ok, nil
	}
	if vm.ip >= len(vm.code) {
		vm.halted = true
		r, ok := vm.result()
		return true, r, ok, nil
	}

	instr := vm.code[vm.ip]
	next := vm.ip + 1

	if err := vm.exec(instr, &next); err != nil {
		vm.halted = true
		return true, value.Value{}, false, withIP(err, vm.ip)
	}

	vm.ip = next
	if vm.ip >= len(vm.code) {
		vm.halted = true
		r, ok := vm.result()
		return true, r, ok, nil
	}
	return false, value.Value{}, false, nil
}

// RunToEnd drives Step until completion, returning the final result.
func (vm *VM) RunToEnd() (value.Value, bool, error) {
	for {
		done, result, hasResult, err := vm.Step()
		if err != nil {
			return value.Value{}, false, err
		}
		if done {
			return result, hasResult, nil
		}
	}
}

func (vm *VM) result() (value.Value, bool) {
	if vm.stack.Len() > vm.bp {
		v, _ := vm.stack.Peek()
		return v, true
	}
	return value.Value{}, false
}

// exec performs the effect of a single instruction, advancing next for
// jumps (leaving it untouched lets the caller's default ip+1 stand).
func (vm *VM) exec(instr isa.Instruction, next *int) error {
	switch instr.Op {
	case isa.Reserve:
		return vm.stack.Reserve(instr.Int())

	case isa.Push:
		return vm.stack.Push(instr.Value())

	case isa.Pop:
		_, err := vm.stack.Pop()
		return err

	case isa.PopN:
		return vm.stack.PopN(instr.Int())

	case isa.Dup:
		return vm.stack.Dup()

	case isa.Swap:
		return vm.stack.Swap()

	case isa.Add, isa.Sub, isa.Mul, isa.Div, isa.Mod:
		return vm.execArith(instr.Op)

	case isa.Negate:
		v, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		if err := vm.guardian.CheckNumeric(v); err != nil {
			return err
		}
		if v.Kind == value.Double {
			return vm.stack.Push(value.NewDouble(-v.F))
		}
		return vm.stack.Push(value.NewInt(-v.I))

	case isa.Not:
		v, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		if err := vm.guardian.CheckBoolean(v); err != nil {
			return err
		}
		return vm.stack.Push(value.NewBool(!v.B))

	case isa.Print:
		v, err := vm.stack.Peek()
		if err != nil {
			return err
		}
		fmt.Fprintln(vm.out, v.String())
		return nil

	case isa.Load:
		v, err := vm.stack.Load(vm.bp + instr.Int())
		if err != nil {
			return err
		}
		return vm.stack.Push(v)

	case isa.Store:
		v, err := vm.stack.Peek()
		if err != nil {
			return err
		}
		return vm.stack.Store(vm.bp+instr.Int(), v)

	case isa.Eq, isa.Neq:
		r, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		l, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		if err := vm.guardian.CheckInitialized(l); err != nil {
			return err
		}
		if err := vm.guardian.CheckInitialized(r); err != nil {
			return err
		}
		eq := l.Equal(r)
		if instr.Op == isa.Neq {
			eq = !eq
		}
		return vm.stack.Push(value.NewBool(eq))

	case isa.Lt, isa.Gt, isa.Lte, isa.Gte:
		return vm.execRelational(instr.Op)

	case isa.Jump:
		*next = instr.Int()
		return nil

	case isa.JumpIfFalse:
		v, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		if err := vm.guardian.CheckBoolean(v); err != nil {
			return err
		}
		if !v.B {
			*next = instr.Int()
		}
		return nil

	case isa.JumpIfFalsePeek:
		v, err := vm.stack.Peek()
		if err != nil {
			return err
		}
		if err := vm.guardian.CheckBoolean(v); err != nil {
			return err
		}
		if !v.B {
			*next = instr.Int()
		}
		return nil

	case isa.JumpIfTruePeek:
		v, err := vm.stack.Peek()
		if err != nil {
			return err
		}
		if err := vm.guardian.CheckBoolean(v); err != nil {
			return err
		}
		if v.B {
			*next = instr.Int()
		}
		return nil

	case isa.AllocArr:
		sizeV, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		if err := vm.guardian.CheckInitialized(sizeV); err != nil {
			return err
		}
		if sizeV.Kind != value.Int {
			return RuntimeErr("array size must be integer")
		}
		addr, err := vm.heap.Alloc(int(sizeV.I), value.Zero(instr.ElemKind()))
		if err != nil {
			return err
		}
		return vm.stack.Push(value.NewPointer(addr))

	case isa.LoadIndex:
		idxV, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		ptrV, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		if err := vm.guardian.CheckPointer(ptrV); err != nil {
			return err
		}
		if err := vm.guardian.CheckInitialized(idxV); err != nil {
			return err
		}
		if idxV.Kind != value.Int {
			return RuntimeErr("array index must be integer")
		}
		v, err := vm.heap.Load(ptrV.Addr, int(idxV.I))
		if err != nil {
			return err
		}
		return vm.stack.Push(v)

	case isa.StoreIndex:
		v, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		idxV, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		ptrV, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		if err := vm.guardian.CheckPointer(ptrV); err != nil {
			return err
		}
		if err := vm.guardian.CheckInitialized(idxV); err != nil {
			return err
		}
		if idxV.Kind != value.Int {
			return RuntimeErr("array index must be integer")
		}
		if err := vm.heap.Store(ptrV.Addr, int(idxV.I), v); err != nil {
			return err
		}
		return vm.stack.Push(v)

	default:
		return RuntimeErr("unknown opcode %s", instr.Op)
	}
}

func (vm *VM) execArith(op isa.Opcode) error {
	r, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	l, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	if err := vm.guardian.CheckNumeric(l); err != nil {
		return err
	}
	if err := vm.guardian.CheckNumeric(r); err != nil {
		return err
	}

	// Mixed-type arithmetic: for add/sub/mul/div any double operand
	// contaminates the result to double; mod with a double operand is a
	// runtime error. Two ints stay integral, with div truncating toward
	// zero and mod taking the dividend's sign.
	if l.Kind == value.Double || r.Kind == value.Double {
		lf, rf := l.AsFloat(), r.AsFloat()
		switch op {
		case isa.Add:
			return vm.stack.Push(value.NewDouble(lf + rf))
		case isa.Sub:
			return vm.stack.Push(value.NewDouble(lf - rf))
		case isa.Mul:
			return vm.stack.Push(value.NewDouble(lf * rf))
		case isa.Div:
			if rf == 0 {
				return RuntimeErr("division by zero")
			}
			return vm.stack.Push(value.NewDouble(lf / rf))
		case isa.Mod:
			return RuntimeErr("modulo requires integer operands")
		}
	}

	li, ri := l.I, r.I
	switch op {
	case isa.Add:
		return vm.stack.Push(value.NewInt(li + ri))
	case isa.Sub:
		return vm.stack.Push(value.NewInt(li - ri))
	case isa.Mul:
		return vm.stack.Push(value.NewInt(li * ri))
	case isa.Div:
		if ri == 0 {
			return RuntimeErr("division by zero")
		}
		return vm.stack.Push(value.NewInt(li / ri)) // Go / truncates toward zero
	case isa.Mod:
		if ri == 0 {
			return RuntimeErr("modulo by zero")
		}
		return vm.stack.Push(value.NewInt(li % ri)) // Go % takes the dividend's sign
	}
	return RuntimeErr("unreachable arithmetic opcode %s", op)
}

func (vm *VM) execRelational(op isa.Opcode) error {
	r, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	l, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	if err := vm.guardian.CheckNumeric(l); err != nil {
		return err
	}
	if err := vm.guardian.CheckNumeric(r); err != nil {
		return err
	}
	lf, rf := l.AsFloat(), r.AsFloat()
	var result bool
	switch op {
	case isa.Lt:
		result = lf < rf
	case isa.Gt:
		result = lf > rf
	case isa.Lte:
		result = lf <= rf
	case isa.Gte:
		result = lf >= rf
	}
	return vm.stack.Push(value.NewBool(result))
}
