// Package value implements the VM's tagged runtime value: the one type
// that flows through the unified stack, the heap, and every opcode.
package value

import "fmt"

// Kind tags which alternative of the runtime value union is populated.
type Kind int

const (
	Int Kind = iota
	Double
	Bool
	Pointer
	Uninitialized
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Double:
		return "double"
	case Bool:
		return "bool"
	case Pointer:
		return "pointer"
	case Uninitialized:
		return "uninitialized"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// PointerKind identifies what a Pointer value addresses. The core only
// ever allocates arrays, but the tag is kept distinct from Kind so a
// future heap object type would not require renumbering Kind.
type PointerKind int

const (
	ArrayPointer PointerKind = iota
)

// Value is a tagged union over the runtime value alternatives: a 64-bit
// signed integer, an IEEE-754 double, a boolean, a heap pointer (address +
// kind), or the uninitialized sentinel. Exactly one of I, F, B, Addr is
// meaningful, selected by Kind.
type Value struct {
	Kind Kind
	I    int64
	F    float64
	B    bool
	Addr int
	PKnd PointerKind
}

func NewInt(i int64) Value       { return Value{Kind: Int, I: i} }
func NewDouble(f float64) Value  { return Value{Kind: Double, F: f} }
func NewBool(b bool) Value       { return Value{Kind: Bool, B: b} }
func NewPointer(addr int) Value  { return Value{Kind: Pointer, Addr: addr, PKnd: ArrayPointer} }
func Uninit() Value              { return Value{Kind: Uninitialized} }

// Zero returns the zero value of a given element kind, used to fill a
// freshly allocated array: 0 for int, 0.0 for double, false for bool.
func Zero(k Kind) Value {
	switch k {
	case Int:
		return NewInt(0)
	case Double:
		return NewDouble(0)
	case Bool:
		return NewBool(false)
	default:
		return Uninit()
	}
}

func (v Value) IsNumeric() bool {
	return v.Kind == Int || v.Kind == Double
}

// AsFloat returns v's numeric value widened to float64. Only meaningful
// when v.IsNumeric().
func (v Value) AsFloat() float64 {
	if v.Kind == Double {
		return v.F
	}
	return float64(v.I)
}

// Equal implements same-tag value equality (spec §4.5 eq/neq): values of
// differing Kind are never equal.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case Int:
		return v.I == other.I
	case Double:
		return v.F == other.F
	case Bool:
		return v.B == other.B
	case Pointer:
		return v.Addr == other.Addr && v.PKnd == other.PKnd
	case Uninitialized:
		return true
	default:
		return false
	}
}

// String renders v in the human form print uses: pointers as
// "Pointer(address=N)", everything else by its scalar textual form.
func (v Value) String() string {
	switch v.Kind {
	case Int:
		return fmt.Sprintf("%d", v.I)
	case Double:
		return fmt.Sprintf("%g", v.F)
	case Bool:
		return fmt.Sprintf("%t", v.B)
	case Pointer:
		return fmt.Sprintf("Pointer(address=%d)", v.Addr)
	case Uninitialized:
		return "<uninitialized>"
	default:
		return "<invalid>"
	}
}
