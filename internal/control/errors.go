package control

import (
	"errors"
	"fmt"
)

// ErrControlNotFound is returned by the typed accessors when a control
// resolves to nil and no descriptor supplies a default.
var ErrControlNotFound = errors.New("control not found")

// TypeError reports a resolved value whose type does not match the
// accessor used to read it.
type TypeError struct {
	PanelKey   string
	ControlKey string
	Expected   string
	Actual     string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("control %s/%s: expected %s, got %s",
		e.PanelKey, e.ControlKey, e.Expected, e.Actual)
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
