package symtab

import "testing"

func TestDefineAndResolve(t *testing.T) {
	tab := New()
	slot, err := tab.Define("x")
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if slot != 0 {
		t.Errorf("slot = %d, want 0", slot)
	}
	if got, ok := tab.Resolve("x"); !ok || got != 0 {
		t.Errorf("Resolve(x) = %d, %v", got, ok)
	}
	if _, ok := tab.Resolve("y"); ok {
		t.Error("Resolve(y) should fail")
	}
}

func TestRedefinitionSameScopeFails(t *testing.T) {
	tab := New()
	if _, err := tab.Define("x"); err != nil {
		t.Fatalf("Define: %v", err)
	}
	if _, err := tab.Define("x"); err == nil {
		t.Error("expected redefinition error")
	}
}

func TestShadowingAcrossScopes(t *testing.T) {
	tab := New()
	outer, _ := tab.Define("x")

	tab.EnterScope()
	inner, _ := tab.Define("x")
	if inner == outer {
		t.Fatal("inner slot should differ from outer slot")
	}
	if got, _ := tab.Resolve("x"); got != inner {
		t.Errorf("inner scope should resolve to inner slot, got %d", got)
	}

	popped := tab.ExitScope()
	if popped != 1 {
		t.Errorf("ExitScope() popped %d, want 1", popped)
	}
	if got, ok := tab.Resolve("x"); !ok || got != outer {
		t.Errorf("after exiting scope, x should resolve to outer slot %d, got %d, ok=%v", outer, got, ok)
	}
}

func TestExitScopeReturnsCountOfPoppedLocals(t *testing.T) {
	tab := New()
	tab.EnterScope()
	tab.Define("a")
	tab.Define("b")
	tab.Define("c")
	if n := tab.ExitScope(); n != 3 {
		t.Errorf("ExitScope() = %d, want 3", n)
	}
}
