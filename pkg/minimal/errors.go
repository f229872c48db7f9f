package minimal

import "errors"

var (
	// ErrUnsupported is returned for data objects that are neither a
	// pointer to a struct nor a pointer to a map[string]any.
	ErrUnsupported = errors.New("minstate: unsupported data object")

	// ErrUnknownField is returned when a struct has no field with the
	// requested name or tag.
	ErrUnknownField = errors.New("minstate: unknown field")

	// ErrFieldType is returned when a value cannot be assigned to a field.
	ErrFieldType = errors.New("minstate: value not assignable to field")
)
