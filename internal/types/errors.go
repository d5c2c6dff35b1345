package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for blockkeeper operations.
var (
	// ErrUnknownBlockType indicates a block type absent from the schema configuration.
	ErrUnknownBlockType = errors.New("unknown block type")

	// ErrMissingRequiredField indicates a required field is absent from a payload.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrUnknownField indicates a payload key with no matching rule.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidEnumValue indicates a value outside a canBeOnly set.
	ErrInvalidEnumValue = errors.New("value not allowed")

	// ErrInvalidType indicates a value whose primitive type differs from the rule.
	ErrInvalidType = errors.New("invalid type")

	// ErrUnhandledType indicates a rule declaring a type the engine does not know.
	ErrUnhandledType = errors.New("unhandled rule type")

	// ErrConfig indicates a malformed rule shape or markup grammar declaration.
	ErrConfig = errors.New("invalid schema configuration")

	// ErrMalformedDocument indicates an editor document without the expected envelope.
	ErrMalformedDocument = errors.New("malformed editor document")

	// ErrPayloadTooDeep indicates a decoded payload exceeds MaxNodeDepth.
	ErrPayloadTooDeep = errors.New("payload exceeds maximum nesting depth")
)

// FieldError reports a structural violation at a specific payload location.
// Err is one of the field-level sentinels; errors.Is matches against it.
type FieldError struct {
	Err      error
	Path     []Key  // from the block root to the offending key, inclusive
	Value    Node   // offending value (enum and type failures)
	Expected string // declared rule type (type failures)
}

// Key returns the innermost key of the failing location.
func (e *FieldError) Key() Key {
	if len(e.Path) == 0 {
		return Key{}
	}
	return e.Path[len(e.Path)-1]
}

func (e *FieldError) Error() string {
	field := FormatPath(e.Path)
	switch e.Err {
	case ErrInvalidEnumValue:
		return fmt.Sprintf("field %q: value %s not allowed by canBeOnly", field, e.Value)
	case ErrInvalidType:
		return fmt.Sprintf("field %q: expected %s, got %s", field, e.Expected, e.Value.Kind())
	case ErrUnhandledType:
		return fmt.Sprintf("field %q: unhandled rule type %q", field, e.Expected)
	default:
		return fmt.Sprintf("%v: %q", e.Err, field)
	}
}

// Unwrap exposes the sentinel for errors.Is.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// ConfigErrorf wraps ErrConfig with a formatted reason.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// DocumentErrorf wraps ErrMalformedDocument with a formatted reason.
func DocumentErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedDocument, fmt.Sprintf(format, args...))
}
