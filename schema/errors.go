package schema

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	ErrInvalidInput  = errors.New("schema: invalid input")
	ErrInvalidSchema = errors.New("schema: invalid schema definition")
)

// FieldError reports input that violates a schema rule. Error returns the
// bare message ("name is required") so it can be shown to end users as is.
type FieldError struct {
	Collection string
	// Path is the dotted path of the offending field.
	Path    string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

// DefinitionError reports a malformed schema declaration. It indicates a
// programming mistake, never bad input.
type DefinitionError struct {
	Path    string
	Message string
}

func (e *DefinitionError) Error() string { return e.Message }

func (e *DefinitionError) Unwrap() error { return ErrInvalidSchema }

func definitionErrorf(path, format string, args ...any) *DefinitionError {
	return &DefinitionError{Path: path, Message: fmt.Sprintf(format, args...)}
}
