package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrValidation      = errors.New("validation error")
	ErrInternalisation = errors.New("internalisation error")
	ErrLLMResponse     = errors.New("llm response error")
	ErrTagger          = errors.New("tagger error")
	ErrLexiconMissing  = errors.New("pronunciation lexicon missing")
	ErrAudioRepository = errors.New("audio repository error")
	ErrAlignment       = errors.New("alignment error")
	ErrInternal        = errors.New("internal error")
)

// InternaliseError describes malformed marked-up input with a position hint.
type InternaliseError struct {
	Line    int // 1-based line within the input
	Offset  int // 0-based rune offset within the line
	Message string
}

func (e *InternaliseError) Error() string {
	return fmt.Sprintf("internalise: line %d, offset %d: %s", e.Line, e.Offset, e.Message)
}

func (e *InternaliseError) Unwrap() error { return ErrInternalisation }

// NewInternaliseError creates an InternaliseError at the given position.
func NewInternaliseError(line, offset int, format string, args ...any) *InternaliseError {
	return &InternaliseError{Line: line, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s — %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}
