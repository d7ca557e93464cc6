package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage is used when a Redis key does not exist.
	RedisNotFoundMessage = "record not found"
	// LLMErrorMessage describes completion API failures (network, auth, rate limit).
	LLMErrorMessage = "completion request failed"
	// SQLErrorMessage describes failures while executing a synthesized query.
	SQLErrorMessage = "query execution failed"
	// ToolErrorMessage describes failures of outbound tool calls.
	ToolErrorMessage = "tool call failed"
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// NotFound reports a missing resource.
func NotFound(message string) *AppError {
	return New(nil, http.StatusNotFound, message)
}

// BadRequest reports invalid caller input.
func BadRequest(err error, message string) *AppError {
	return New(err, http.StatusBadRequest, message)
}

// WrapLLM wraps a completion API error.
func WrapLLM(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, LLMErrorMessage)
}

// WrapSQL wraps a query execution error.
func WrapSQL(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusUnprocessableEntity, SQLErrorMessage)
}

// WrapTool wraps an outbound tool error.
func WrapTool(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, ToolErrorMessage)
}

// StatusOf returns the HTTP status carried by err, or 500 when err is not an AppError.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the safe message carried by err.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return SystemErrorMessage
}
