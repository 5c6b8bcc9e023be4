package engine

import "errors"

var (
	// ErrNotFound is returned when a referenced evaluator or candidate slot does not belong to the session.
	ErrNotFound = errors.New("engine: not found")
	// ErrSessionLocked is returned when a mutation is attempted while a slot is proposed or the facility has replied.
	ErrSessionLocked = errors.New("engine: session locked")
	// ErrNotReady is returned when the confirmation summary is requested before a facility reply exists.
	ErrNotReady = errors.New("engine: session not confirmed")
	// ErrAlreadyExists is returned when a one-shot record such as the facility reply is submitted twice.
	ErrAlreadyExists = errors.New("engine: already exists")
	// ErrConsensusNotReached is returned when a slot is proposed without unanimous approval.
	ErrConsensusNotReached = errors.New("engine: consensus not reached")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Add records a field level validation error.
func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// Merge copies entries from another validation error into the receiver.
func (v *ValidationError) Merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.Add(field, msg)
	}
}
