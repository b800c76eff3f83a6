package alexa

import "errors"

var (
	// ErrMissingRequiredField is returned by a strict Render when a field the
	// gateway requires still carries its placeholder value.
	ErrMissingRequiredField = errors.New("alexa: missing required field")

	// ErrConflictingConfiguration is returned when a capability option only
	// makes sense together with another option that was not supplied.
	ErrConflictingConfiguration = errors.New("alexa: conflicting configuration")
)
