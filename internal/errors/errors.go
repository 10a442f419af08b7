package errors

import "fmt"

// ErrorCode classifies a domain error.
type ErrorCode string

const (
	ErrValidation ErrorCode = "VALIDATION" // 400: bad or missing input, recoverable at the form boundary
	ErrNotFound   ErrorCode = "NOT_FOUND"  // 404: stale reference to a missing record
	ErrStorage    ErrorCode = "STORAGE"    // 500: persistence failure, no partial write happened
)

// Error is a structured error with code, HTTP status, and details.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidation creates a 400 error for invalid or missing input.
func NewValidation(msg string) *Error {
	return &Error{
		Code:    ErrValidation,
		Status:  400,
		Message: msg,
	}
}

// NewValidationf creates a 400 error with a formatted message.
func NewValidationf(format string, args ...any) *Error {
	return NewValidation(fmt.Sprintf(format, args...))
}

// NewNotFound creates a 404 error for a missing record.
func NewNotFound(kind, identifier string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewStorage wraps a persistence failure. The dataset is left in its
// pre-operation state whenever this is returned.
func NewStorage(err error) *Error {
	msg := "storage error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrStorage,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	return false
}
