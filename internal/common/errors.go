package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// BadRequest builds a 400 AppError for caller supplied input problems.
func BadRequest(message string, details any) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: message, HTTPStatus: http.StatusBadRequest, Details: details}
}

// Internal builds a 500 AppError wrapping err.
func Internal(message string, err error) *AppError {
	return &AppError{Code: "INTERNAL", Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// Status returns the HTTP status for err, defaulting to 500.
func Status(err error) int {
	var target *AppError
	if errors.As(err, &target) && target.HTTPStatus != 0 {
		return target.HTTPStatus
	}
	return http.StatusInternalServerError
}
