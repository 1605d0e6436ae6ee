package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies a failure for the request boundary. Codes are
// strings so they serialize directly into the error envelope.
type ErrorCode string

const (
	// CodeNotFound indicates a referenced entity does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeValidation indicates a business rule or input shape violation.
	CodeValidation ErrorCode = "VALIDATION_ERROR"

	// CodeConflict indicates a uniqueness violation.
	CodeConflict ErrorCode = "CONFLICT"

	// CodeUnauthorized indicates a missing or wrong API key.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeInternal indicates an unexpected storage or infrastructure failure.
	CodeInternal ErrorCode = "INTERNAL_ERROR"
)

// AppError carries a classified failure from the services to the handlers.
type AppError struct {
	Code    ErrorCode
	Message string
	Details interface{}
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps err unless it is already classified.
func Internal(message string, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return &AppError{Code: CodeInternal, Message: message, Err: err}
}

// CodeOf returns the code of the first AppError in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err classifies as code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps an error code onto a transport status.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
