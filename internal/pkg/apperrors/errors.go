package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrAuthFailed       ErrorType = "AUTH_FAILED"
	ErrNotFound         ErrorType = "NOT_FOUND"
	ErrInvalidContent   ErrorType = "INVALID_CONTENT"
	ErrNotAcceptable    ErrorType = "NOT_ACCEPTABLE"
	ErrMethodNotAllowed ErrorType = "METHOD_NOT_ALLOWED"
	ErrRateLimited      ErrorType = "RATE_LIMITED"
	ErrReadOnly         ErrorType = "READ_ONLY"
	ErrForbidden        ErrorType = "FORBIDDEN"
	ErrUpstream         ErrorType = "UPSTREAM_ERROR"
	ErrInternal         ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewAuthFailed(msg string) *AppError {
	return New(ErrAuthFailed, msg, nil)
}

func NewNotFound(msg string) *AppError {
	return New(ErrNotFound, msg, nil)
}

func NewInvalidContent(msg string) *AppError {
	return New(ErrInvalidContent, msg, nil)
}

func NewNotAcceptable(msg string) *AppError {
	return New(ErrNotAcceptable, msg, nil)
}

func NewUpstream(cause error) *AppError {
	return New(ErrUpstream, "upstream unavailable", cause)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// StatusOf returns the HTTP status carried by err, or 500 for foreign errors.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return Wrap(err).HTTPStatus
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidContent:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrNotAcceptable:
		return http.StatusNotAcceptable
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrReadOnly:
		return http.StatusServiceUnavailable
	case ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrAuthFailed:
		return "Send a valid Authorization header."
	case ErrNotAcceptable:
		return "Send a JSON body with Content-Type: application/json."
	case ErrInvalidContent:
		return "Check the required fields for this resource."
	case ErrRateLimited:
		return "Retry the request later."
	case ErrReadOnly:
		return "Wait for maintenance to finish."
	default:
		return ""
	}
}
