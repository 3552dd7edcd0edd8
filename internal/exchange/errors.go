package exchange

import (
	"errors"
	"fmt"

	"github.com/dshills/prefkit/internal/codec"
	"github.com/dshills/prefkit/internal/transport"
)

// Import validation failures, in the order the gates run. Callers match
// with errors.Is.
var (
	// ErrInvalidEnvelope indicates a payload that decoded and parsed but
	// is not an envelope mapping, or whose settings entry is not a
	// mapping.
	ErrInvalidEnvelope = errors.New("invalid envelope")

	// ErrIdentityMismatch indicates a payload exported by a different
	// owner.
	ErrIdentityMismatch = errors.New("identity mismatch")

	// ErrOwnerVersionMismatch indicates a payload exported by a different
	// version of the same owner.
	ErrOwnerVersionMismatch = errors.New("owner version mismatch")

	// ErrEngineVersionMismatch indicates a payload produced under a
	// different envelope format version.
	ErrEngineVersionMismatch = errors.New("engine version mismatch")
)

// ValidationError reports which import gate rejected a payload and what it
// expected. Unwrap yields the matching sentinel.
type ValidationError struct {
	Stage string
	Want  string
	Got   string
	kind  error
}

func newValidationError(kind error, stage, want, got string) *ValidationError {
	return &ValidationError{Stage: stage, Want: want, Got: got, kind: kind}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: want %q, got %q", e.kind, e.Want, e.Got)
}

// Unwrap returns the sentinel for the failed gate.
func (e *ValidationError) Unwrap() error {
	return e.kind
}

// FailureKind maps an Export or Import error to its stable kind string so
// hosts can look up their own user-facing messages. Returns "" for nil and
// "Unknown" for errors outside the pipeline's vocabulary.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, transport.ErrDecode):
		return "DecodeError"
	case errors.Is(err, codec.ErrRecursion):
		return "RecursionError"
	case errors.Is(err, codec.ErrParse):
		return "ParseError"
	case errors.Is(err, codec.ErrExecution):
		return "ExecutionError"
	case errors.Is(err, ErrInvalidEnvelope):
		return "InvalidEnvelope"
	case errors.Is(err, ErrIdentityMismatch):
		return "IdentityMismatch"
	case errors.Is(err, ErrOwnerVersionMismatch):
		return "OwnerVersionMismatch"
	case errors.Is(err, ErrEngineVersionMismatch):
		return "EngineVersionMismatch"
	default:
		return "Unknown"
	}
}
