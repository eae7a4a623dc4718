package parser

import "fmt"

// SyntaxError is a located parse failure: an unexpected token, a missing
// terminator, an invalid assignment target, or any other grammar
// violation. Message names the offending lexeme or "end of file".
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("💥 syntax error at line %d, col %d: %s", e.Line, e.Column, e.Message)
}
