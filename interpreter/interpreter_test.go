package interpreter_test

import (
	"testing"

	"minic/compiler"
	"minic/interpreter"
	"minic/parser"
	"minic/value"
	"minic/vm"
)

func run(t *testing.T, src string) (value.Value, bool, error) {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse(%q): %v", src, err)
	}
	return interpreter.Eval(prog)
}

func TestWhileLoopSum(t *testing.T) {
	got, ok, err := run(t, "int i=0, s=0; while (i<5) { s = s+i; i = i+1; } s;")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ok || got.I != 10 {
		t.Errorf("got %v, want int 10", got)
	}
}

func TestForLoopBreak(t *testing.T) {
	got, ok, err := run(t, "int s=0; for (int i=0; i<10; i++) { if (i==5) break; s = s+i; } s;")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ok || got.I != 10 {
		t.Errorf("got %v, want int 10", got)
	}
}

func TestForLoopContinue(t *testing.T) {
	got, ok, err := run(t, "int s=0; for (int i=0; i<5; i++) { if (i%2==0) continue; s = s+i; } s;")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ok || got.I != 4 {
		t.Errorf("got %v, want int 4 (1+3)", got)
	}
}

func TestArrayInitAndCompoundAssign(t *testing.T) {
	src := `int arr[5] = {10, 20};
arr[2] = arr[0] + arr[1];
arr[2]++;
int sum=0;
for (int i=0;i<5;i++) sum += arr[i];
sum;`
	got, ok, err := run(t, src)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ok || got.I != 61 {
		t.Errorf("got %v, want int 61", got)
	}
}

func TestShortCircuitNoRuntimeError(t *testing.T) {
	got, ok, err := run(t, "bool a = false && (1/0 > 0); a;")
	if err != nil {
		t.Fatalf("run should not raise: %v", err)
	}
	if !ok || got.Kind != value.Bool || got.B != false {
		t.Errorf("got %v, want bool false", got)
	}
}

func TestPostfixUpdateInExpression(t *testing.T) {
	got, ok, err := run(t, "int i=5; int j = i++ + i; j;")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ok || got.I != 11 {
		t.Errorf("got %v, want int 11", got)
	}
}

func TestUninitializedReadIsRuntimeError(t *testing.T) {
	_, _, err := run(t, "int a; int b = a + 1;")
	if err == nil {
		t.Fatal("expected runtime error for use of uninitialized value")
	}
}

func TestOutOfBoundsIndexIsRuntimeError(t *testing.T) {
	_, _, err := run(t, "int arr[3]; arr[3] = 10;")
	if err == nil {
		t.Fatal("expected out-of-bounds runtime error")
	}
}

func TestShadowingAcrossBlockScopes(t *testing.T) {
	src := `int x = 1;
{ int x = 2; }
x;`
	got, ok, err := run(t, src)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ok || got.I != 1 {
		t.Errorf("got %v, want int 1 (outer x unaffected by shadowing block)", got)
	}
}

func TestPostfixSubscriptUpdateYieldsPreValue(t *testing.T) {
	got, ok, err := run(t, "int arr[1] = {5}; int j = arr[0]++ + arr[0]; j;")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ok || got.I != 11 {
		t.Errorf("got %v, want int 11 (5 + 6)", got)
	}
}

func TestPrefixSubscriptUpdateYieldsNewValue(t *testing.T) {
	got, ok, err := run(t, "int arr[1] = {5}; int j = ++arr[0]; j;")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ok || got.I != 6 {
		t.Errorf("got %v, want int 6", got)
	}
}

func TestIntegerDivisionAndModuloSign(t *testing.T) {
	got, _, err := run(t, "(-7) / 2;")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.I != -3 {
		t.Errorf("(-7)/2 = %d, want -3 (truncate toward zero)", got.I)
	}

	got, _, err = run(t, "(-7) % 2;")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.I != -1 {
		t.Errorf("(-7)%%2 = %d, want -1 (sign of dividend)", got.I)
	}
}

func TestConditionRequiresStrictBoolean(t *testing.T) {
	_, _, err := run(t, "if (1) { }")
	if err == nil {
		t.Fatal("expected runtime error: condition requires strict bool, not numeric coercion")
	}
}

func TestMixedTypeArithmeticContaminatesToDouble(t *testing.T) {
	got, _, err := run(t, "1 + 2.5;")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.Kind != value.Double || got.F != 3.5 {
		t.Errorf("got %v, want double 3.5", got)
	}
}

func TestAgreesWithCompiledPathOnASample(t *testing.T) {
	// A cross-check style case: the tree-walker and the compiled VM
	// should reach the same answer on any well-formed program.
	src := "int x=2; int y=3; (x*y + 1) - 1;"
	got, ok, err := run(t, src)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ok || got.I != 6 {
		t.Errorf("got %v, want int 6", got)
	}

	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	code, err := compiler.Generate(prog)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	compiled, cok, err := vm.New(code).RunToEnd()
	if err != nil {
		t.Fatalf("vm run: %v", err)
	}
	if cok != ok || !compiled.Equal(got) {
		t.Errorf("compiled path got %v, interpreter got %v", compiled, got)
	}
}
