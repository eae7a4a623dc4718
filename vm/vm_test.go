package vm

import (
	"bytes"
	"testing"

	"minic/isa"
	"minic/value"
)

func run(t *testing.T, code []isa.Instruction) (value.Value, bool, error) {
	t.Helper()
	machine := New(code)
	var buf bytes.Buffer
	machine.SetOutput(&buf)
	return machine.RunToEnd()
}

func TestArithmeticIntegerSemantics(t *testing.T) {
	// (-7) / 2 and (-7) % 2: truncate toward zero, mod keeps dividend sign.
	code := []isa.Instruction{
		isa.WithValue(value.NewInt(-7)),
		isa.WithValue(value.NewInt(2)),
		isa.Simple(isa.Div),
	}
	got, ok, err := run(t, code)
	if err != nil || !ok {
		t.Fatalf("run: %v, ok=%v", err, ok)
	}
	if got.I != -3 {
		t.Errorf("-7/2 = %d, want -3", got.I)
	}

	code = []isa.Instruction{
		isa.WithValue(value.NewInt(-7)),
		isa.WithValue(value.NewInt(2)),
		isa.Simple(isa.Mod),
	}
	got, _, err = run(t, code)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.I != -1 {
		t.Errorf("-7%%2 = %d, want -1", got.I)
	}
}

func TestMixedTypeArithmeticContaminatesToDouble(t *testing.T) {
	code := []isa.Instruction{
		isa.WithValue(value.NewInt(1)),
		isa.WithValue(value.NewDouble(2.5)),
		isa.Simple(isa.Add),
	}
	got, _, err := run(t, code)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.Kind != value.Double || got.F != 3.5 {
		t.Errorf("got %v, want double 3.5", got)
	}
}

func TestDivisionByZero(t *testing.T) {
	code := []isa.Instruction{
		isa.WithValue(value.NewInt(1)),
		isa.WithValue(value.NewInt(0)),
		isa.Simple(isa.Div),
	}
	_, _, err := run(t, code)
	if err == nil {
		t.Fatal("expected division by zero error")
	}
}

func TestUninitializedReadErrors(t *testing.T) {
	// int a; int b = a + 1;
	code := []isa.Instruction{
		isa.WithValue(value.Uninit()),
		isa.WithValue(value.NewInt(1)),
		isa.Simple(isa.Add),
	}
	_, _, err := run(t, code)
	if err == nil {
		t.Fatal("expected use-of-uninitialized error")
	}
}

func TestUninitializedStoreAndLoadDoNotError(t *testing.T) {
	// reserve a slot, store uninitialized, load it back: no error until
	// an arithmetic/comparison/condition operator touches it.
	code := []isa.Instruction{
		isa.WithInt(isa.Reserve, 1), // slot 0
		isa.WithValue(value.Uninit()),
		isa.WithInt(isa.Store, 0),
		isa.Simple(isa.Pop),
		isa.WithInt(isa.Load, 0),
		isa.Simple(isa.Pop),
	}
	_, _, err := run(t, code)
	if err != nil {
		t.Fatalf("store/load of uninitialized should not error: %v", err)
	}
}

func TestBooleanStrictness(t *testing.T) {
	// jump_if_false on a non-bool must fail, not coerce.
	code := []isa.Instruction{
		isa.WithValue(value.NewInt(1)),
		isa.WithInt(isa.JumpIfFalse, 99),
	}
	_, _, err := run(t, code)
	if err == nil {
		t.Fatal("expected boolean-required error")
	}
}

func TestShortCircuitAndSkipsRightSideEffect(t *testing.T) {
	// false && (1/0 > 0): must not raise, result false.
	// jump_if_false_peek jumps straight past the right side, leaving the
	// left (false) value on the stack as the result, without evaluating
	// the division.
	var code []isa.Instruction
	code = append(code, isa.WithValue(value.NewBool(false)))
	skip := len(code)
	code = append(code, isa.Simple(isa.JumpIfFalsePeek)) // patched below
	code = append(code, isa.Simple(isa.Pop))
	code = append(code, isa.WithValue(value.NewInt(1)))
	code = append(code, isa.WithValue(value.NewInt(0)))
	code = append(code, isa.Simple(isa.Div))
	code = append(code, isa.WithValue(value.NewInt(0)))
	code = append(code, isa.Simple(isa.Gt))
	code[skip] = isa.WithInt(isa.JumpIfFalsePeek, len(code))

	got, ok, err := run(t, code)
	if err != nil {
		t.Fatalf("short-circuit should not raise: %v", err)
	}
	if !ok || got.Kind != value.Bool || got.B != false {
		t.Errorf("got %v, want false", got)
	}
}

func TestPostfixUpdateYieldsPreValue(t *testing.T) {
	// int i=5; int j = i++ + i; j; -> 11
	code := []isa.Instruction{
		isa.WithValue(value.NewInt(5)), // slot 0: i
		// i++ (postfix): load, dup, push 1, add, store, pop
		isa.WithInt(isa.Load, 0),
		isa.Simple(isa.Dup),
		isa.WithValue(value.NewInt(1)),
		isa.Simple(isa.Add),
		isa.WithInt(isa.Store, 0),
		isa.Simple(isa.Pop),
		// + i
		isa.WithInt(isa.Load, 0),
		isa.Simple(isa.Add),
	}
	got, _, err := run(t, code)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.I != 11 {
		t.Errorf("got %d, want 11", got.I)
	}
}

func TestArrayOutOfBoundsRaisesBeforeMutation(t *testing.T) {
	code := []isa.Instruction{
		isa.WithValue(value.NewInt(3)),
		isa.WithKind(isa.AllocArr, value.Int), // slot 0: arr[3], pointer left in place
		isa.WithInt(isa.Load, 0),
		isa.WithValue(value.NewInt(3)),
		isa.WithValue(value.NewInt(10)),
		isa.Simple(isa.StoreIndex),
	}
	_, _, err := run(t, code)
	if err == nil {
		t.Fatal("expected out-of-bounds error")
	}
}

func TestLoop_SumZeroToFour(t *testing.T) {
	// int i=0, s=0; while (i<5) { s = s+i; i = i+1; } s;
	// slots: i=0, s=1
	var code []isa.Instruction
	code = append(code,
		isa.WithValue(value.NewInt(0)), // i
		isa.WithValue(value.NewInt(0)), // s
	)
	loopStart := len(code)
	code = append(code,
		isa.WithInt(isa.Load, 0),
		isa.WithValue(value.NewInt(5)),
		isa.Simple(isa.Lt),
	)
	exitJump := len(code)
	code = append(code, isa.Simple(isa.JumpIfFalse)) // patched
	// s = s + i
	code = append(code,
		isa.WithInt(isa.Load, 1),
		isa.WithInt(isa.Load, 0),
		isa.Simple(isa.Add),
		isa.WithInt(isa.Store, 1),
		isa.Simple(isa.Pop),
		// i = i + 1
		isa.WithInt(isa.Load, 0),
		isa.WithValue(value.NewInt(1)),
		isa.Simple(isa.Add),
		isa.WithInt(isa.Store, 0),
		isa.Simple(isa.Pop),
		isa.WithInt(isa.Jump, loopStart),
	)
	code[exitJump] = isa.WithInt(isa.JumpIfFalse, len(code))
	code = append(code, isa.WithInt(isa.Load, 1))

	got, ok, err := run(t, code)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ok || got.I != 10 {
		t.Errorf("got %v, want int 10", got)
	}
}

func TestStepIsOneInstructionAtATime(t *testing.T) {
	code := []isa.Instruction{
		isa.WithValue(value.NewInt(1)),
		isa.WithValue(value.NewInt(2)),
		isa.Simple(isa.Add),
	}
	machine := New(code)
	steps := 0
	for {
		done, _, _, err := machine.Step()
		if err != nil {
			t.Fatalf("step %d: %v", steps, err)
		}
		steps++
		if done {
			break
		}
		if steps > len(code)+1 {
			t.Fatal("stepper did not terminate")
		}
	}
	if steps != len(code) {
		t.Errorf("took %d steps, want %d", steps, len(code))
	}
}

func TestStackOverflow(t *testing.T) {
	code := make([]isa.Instruction, Capacity+1)
	for i := range code {
		code[i] = isa.WithValue(value.NewInt(1))
	}
	_, _, err := run(t, code)
	if err == nil {
		t.Fatal("expected stack overflow error")
	}
}

func TestPrintWritesToConfiguredSink(t *testing.T) {
	code := []isa.Instruction{
		isa.WithValue(value.NewInt(42)),
		isa.Simple(isa.Print),
	}
	machine := New(code)
	var buf bytes.Buffer
	machine.SetOutput(&buf)
	if _, _, err := machine.RunToEnd(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if buf.String() != "42\n" {
		t.Errorf("output = %q, want %q", buf.String(), "42\n")
	}
}
