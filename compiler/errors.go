package compiler

import "fmt"

// SemanticError is a compile-time failure the code generator detects
// that the parser cannot: redefinition at the same scope depth, an
// unresolved identifier, break/continue outside any loop, or an
// initializer list too large for its declared array.
type SemanticError struct {
	Line, Col int
	Message   string
}

func (e SemanticError) Error() string {
	return fmt.Sprintf("💥 SemanticError at line %d, col %d: %s", e.Line, e.Col, e.Message)
}

// DeveloperError marks an invariant the generator itself should never
// violate (e.g. patching a jump address that was never emitted). Seeing
// one means a bug in the generator, not in the source program.
type DeveloperError struct {
	Message string
}

func (e DeveloperError) Error() string {
	return fmt.Sprintf("🤖 DeveloperError: %s", e.Message)
}
