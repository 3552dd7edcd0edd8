// Package registry maintains the static control tree: every known control
// with its panel, type, default, persistence flag, and validation rules.
//
// Descriptors are authored once at configuration time and never mutated
// afterward. The registry provides lookup and authoring-time validation;
// value resolution lives in the control package.
package registry

import (
	"fmt"
	"regexp"
)

// ControlDescriptor defines a single control attached to a panel.
type ControlDescriptor struct {
	// PanelKey names the panel the control belongs to.
	PanelKey string

	// ControlKey names the control. Unique within its panel.
	ControlKey string

	// Type is the control's value type.
	Type ControlType

	// Default is returned by resolution when no store holds a value.
	Default any

	// Description is human-readable documentation.
	Description string

	// Persistent controls whether writes reach the backing store. A
	// non-persistent control lives only for the session.
	Persistent bool

	// Scope declares where the control's value conceptually lives.
	Scope ControlScope

	// Enum lists allowed values for enum-like controls.
	Enum []any

	// Minimum for numeric controls (nil means no minimum).
	Minimum *float64

	// Maximum for numeric controls (nil means no maximum).
	Maximum *float64

	// Pattern for string validation (regex).
	Pattern string

	// OnValueChange runs after a persistent write with the old and new
	// values. May be nil.
	OnValueChange func(old, new any)

	// compiledPattern is the compiled regex pattern (lazily initialized).
	compiledPattern *regexp.Regexp
}

// Validate checks if a value is valid for this control. It is an
// authoring-time tool; runtime Set never validates or fails.
func (d *ControlDescriptor) Validate(value any) error {
	if err := d.validateType(value); err != nil {
		return err
	}

	if len(d.Enum) > 0 {
		if !containsValue(d.Enum, value) {
			return fmt.Errorf("value must be one of: %v", d.Enum)
		}
	}

	if d.Type == TypeNumber {
		if err := d.validateRange(value); err != nil {
			return err
		}
	}

	if d.Type == TypeString && d.Pattern != "" {
		if err := d.validatePattern(value); err != nil {
			return err
		}
	}

	return nil
}

func (d *ControlDescriptor) validateType(value any) error {
	switch d.Type {
	case TypeBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case TypeNumber:
		switch value.(type) {
		case float32, float64, int, int64:
			// Valid
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case TypeMapping:
		switch value.(type) {
		case map[string]any, map[any]any, []any:
			// Valid
		default:
			return fmt.Errorf("expected mapping, got %T", value)
		}
	}
	return nil
}

func (d *ControlDescriptor) validateRange(value any) error {
	var f float64
	switch v := value.(type) {
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case float32:
		f = float64(v)
	case float64:
		f = v
	default:
		return nil // Non-numeric, skip range check
	}

	if d.Minimum != nil && f < *d.Minimum {
		return fmt.Errorf("value %v is less than minimum %v", value, *d.Minimum)
	}
	if d.Maximum != nil && f > *d.Maximum {
		return fmt.Errorf("value %v is greater than maximum %v", value, *d.Maximum)
	}
	return nil
}

func (d *ControlDescriptor) validatePattern(value any) error {
	str, ok := value.(string)
	if !ok {
		return nil
	}

	if d.compiledPattern == nil {
		var err error
		d.compiledPattern, err = regexp.Compile(d.Pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	}

	if !d.compiledPattern.MatchString(str) {
		return fmt.Errorf("value does not match pattern %s", d.Pattern)
	}
	return nil
}

// ControlType represents the value type of a control.
type ControlType uint8

const (
	// TypeBool represents a boolean toggle.
	TypeBool ControlType = iota
	// TypeNumber represents a numeric value.
	TypeNumber
	// TypeString represents a string value.
	TypeString
	// TypeMapping represents a nested mapping or array value.
	TypeMapping
)

// String returns the string representation of the type.
func (t ControlType) String() string {
	switch t {
	case TypeBool:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// ParseControlType converts a type name to a ControlType. Names match the
// String forms.
func ParseControlType(s string) (ControlType, error) {
	switch s {
	case "boolean":
		return TypeBool, nil
	case "number":
		return TypeNumber, nil
	case "string":
		return TypeString, nil
	case "mapping":
		return TypeMapping, nil
	default:
		return 0, fmt.Errorf("unknown control type %q", s)
	}
}

// ControlScope declares where a control's value lives.
type ControlScope uint8

const (
	// ScopeGlobal places the value in the shared global store.
	ScopeGlobal ControlScope = iota
	// ScopePerEntity places the value in the entity-scoped store.
	ScopePerEntity
	// ScopeSession keeps the value in memory for the session only.
	ScopeSession
)

// String returns a string representation of the scope.
func (s ControlScope) String() string {
	switch s {
	case ScopeGlobal:
		return "global"
	case ScopePerEntity:
		return "perEntity"
	case ScopeSession:
		return "session"
	default:
		return "unknown"
	}
}

// ParseControlScope converts a scope name to a ControlScope. Names match
// the String forms.
func ParseControlScope(s string) (ControlScope, error) {
	switch s {
	case "global":
		return ScopeGlobal, nil
	case "perEntity":
		return ScopePerEntity, nil
	case "session":
		return ScopeSession, nil
	default:
		return 0, fmt.Errorf("unknown control scope %q", s)
	}
}

// containsValue checks if a slice contains a value.
func containsValue(slice []any, value any) bool {
	for _, v := range slice {
		if v == value {
			return true
		}
	}
	return false
}

// MinValue creates a pointer to a float64 for use as Minimum.
func MinValue(v float64) *float64 {
	return &v
}

// MaxValue creates a pointer to a float64 for use as Maximum.
func MaxValue(v float64) *float64 {
	return &v
}
