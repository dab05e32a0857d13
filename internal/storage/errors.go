package storage

import (
	"fmt"

	errors "github.com/Laisky/errors/v2"
)

// ErrorCode identifies a machine-stable storage error code.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalidID    ErrorCode = "INVALID_ID"
	ErrCodeNotConverted ErrorCode = "NOT_CONVERTED"
)

// Error captures a typed storage error with retryability metadata.
type Error struct {
	Code      ErrorCode
	Message   string
	Retryable bool
}

// Error returns the error message.
func (e *Error) Error() string {
	if e == nil {
		return "storage error: <nil>"
	}
	if e.Message == "" {
		return fmt.Sprintf("storage error: %s", e.Code)
	}
	return e.Message
}

// NewError constructs a typed storage error.
func NewError(code ErrorCode, message string, retryable bool) *Error {
	return &Error{Code: code, Message: message, Retryable: retryable}
}

// AsError extracts a typed storage error from the error chain.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// IsCode reports whether the error chain contains the given code.
func IsCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	if typed, ok := AsError(err); ok {
		return typed.Code == code
	}
	return false
}
