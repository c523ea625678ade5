// Package apperr defines the closed error taxonomy raised by the entry
// log and mapped into the response envelope at the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable error code from the closed taxonomy.
type Code string

const (
	CodeNotFound         Code = "NOT_FOUND"
	CodeInvalidOperation Code = "INVALID_OPERATION"
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeStorage          Code = "STORAGE_ERROR"
	CodeStorageTimeout   Code = "STORAGE_TIMEOUT"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeInternal         Code = "INTERNAL_ERROR"
)

// Error carries a taxonomy code, a human-readable message, and an
// optional underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap returns an Error wrapping err with the given code and message.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func NotFound(message string) *Error         { return New(CodeNotFound, message) }
func InvalidOperation(message string) *Error { return New(CodeInvalidOperation, message) }
func Validation(message string) *Error       { return New(CodeValidation, message) }

// CodeOf returns the taxonomy code of err, or CodeInternal when err does
// not carry one.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the message of err, or err.Error() when it does not
// carry a taxonomy code.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool { return CodeOf(err) == code }
