package codec

import (
	"errors"
	"fmt"
)

// Sentinel errors for codec failures. Callers match with errors.Is.
var (
	// ErrParse indicates text that is not a syntactically valid literal.
	ErrParse = errors.New("parse error")

	// ErrExecution indicates a literal that parsed but could not be built
	// into a value (duplicate mapping key, number out of range).
	ErrExecution = errors.New("execution error")

	// ErrRecursion indicates nesting beyond MaxDepth or a cyclic graph.
	ErrRecursion = errors.New("recursion limit exceeded")

	// ErrUnsupportedValue indicates a Go value outside the serializable
	// graph (function, channel, struct, non-finite float).
	ErrUnsupportedValue = errors.New("unsupported value")
)

// ParseError describes a syntax failure with its byte offset in the input.
type ParseError struct {
	Offset  int
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
}

// Unwrap returns ErrParse so errors.Is(err, ErrParse) matches.
func (e *ParseError) Unwrap() error {
	return ErrParse
}

// ExecutionError describes a failure while building a parsed literal into a
// value. It is kept distinct from ParseError for diagnostics: the text was
// well formed but named an impossible construction.
type ExecutionError struct {
	Offset  int
	Message string
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error at offset %d: %s", e.Offset, e.Message)
}

// Unwrap returns ErrExecution so errors.Is(err, ErrExecution) matches.
func (e *ExecutionError) Unwrap() error {
	return ErrExecution
}
