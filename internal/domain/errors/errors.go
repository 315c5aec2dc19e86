// Package errors holds the account error taxonomy. Every account operation fails
// with exactly one of the predefined kinds below, optionally wrapped with context.
package errors

import (
	"net/http"

	"github.com/pkg/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails returns a copy carrying detailed error information.
// The copy still matches the original with errors.Is.
func (e *BaseError) WithDetails(details string) error {
	return &detailedError{BaseError: e, details: details}
}

type detailedError struct {
	*BaseError
	details string
}

func (e *detailedError) Details() string { return e.details }

func (e *detailedError) Unwrap() error { return e.BaseError }

// Predefined error kinds
var (
	ErrInvalidInput = NewBaseError(
		http.StatusBadRequest,
		"INVALID_INPUT",
		"Invalid input",
		"",
	)

	ErrDuplicateAccount = NewBaseError(
		http.StatusConflict,
		"DUPLICATE_ACCOUNT",
		"An account with that email already exists",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"No matching account was found",
		"",
	)

	ErrMissingToken = NewBaseError(
		http.StatusBadRequest,
		"MISSING_TOKEN",
		"A token is required",
		"",
	)

	ErrUserNotVerified = NewBaseError(
		http.StatusForbidden,
		"USER_NOT_VERIFIED",
		"Please verify your email before logging in",
		"",
	)

	ErrInvalidLogin = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_LOGIN",
		"Invalid email or password",
		"",
	)

	ErrInvalidToken = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_TOKEN",
		"Invalid or expired session token",
		"",
	)

	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"Internal server error",
		"",
	)
)

// kinds lists every predefined kind, used by KindOf.
var kinds = []*BaseError{
	ErrInvalidInput,
	ErrDuplicateAccount,
	ErrNotFound,
	ErrMissingToken,
	ErrUserNotVerified,
	ErrInvalidLogin,
	ErrInvalidToken,
	ErrInternalError,
}

// KindOf returns the predefined kind err belongs to, or nil when err carries none.
func KindOf(err error) *BaseError {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return nil
}

// Internal re-signals a lower-level failure as ErrInternalError, keeping the
// cause reachable through errors.Unwrap. Errors that already carry a kind are
// returned wrapped with the message only.
func Internal(err error, message string) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != nil {
		return errors.WithMessage(err, message)
	}

	return &internalError{cause: errors.WithStack(err), message: message}
}

type internalError struct {
	cause   error
	message string
}

func (e *internalError) Error() string {
	return e.message + ": " + e.cause.Error()
}

func (e *internalError) Unwrap() []error {
	return []error{ErrInternalError, e.cause}
}

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// Unwrap exposes both the internal kind and the driver error.
func (e *DatabaseExecuteError) Unwrap() []error {
	return []error{ErrInternalError, e.err}
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "Database execution failed"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}
