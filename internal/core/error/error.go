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
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// StoreErrorMessage describes domain store (SQL) failures.
	StoreErrorMessage = "domain store operation failed"
	// StoreNotFoundMessage describes a lookup that matched no rows.
	StoreNotFoundMessage = "no results found"
)

var (
	// ErrEmptyQuery is returned when an inbound query carries no text.
	ErrEmptyQuery = errors.New("query text is empty")
	// ErrUnknownService is returned when a service name is not one of the known domain services.
	ErrUnknownService = errors.New("unknown service")
	// ErrNoServices marks a routing decision that resolved no domain service.
	ErrNoServices = errors.New("no services identified for query")
	// ErrLowConfidence marks a routing decision below the confidence floor.
	ErrLowConfidence = errors.New("intent confidence below floor")
	// ErrAllServicesFailed marks a run in which every service call failed.
	ErrAllServicesFailed = errors.New("all service calls failed")
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

// BadRequest wraps err as a 400 with the error text as the safe message.
func BadRequest(err error) *AppError {
	return New(err, http.StatusBadRequest, err.Error())
}

// Is reports whether the target matches the underlying error.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// StatusOf maps any error to the HTTP status a handler should answer with.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	switch {
	case errors.Is(err, ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnknownService):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// MessageOf returns the safe message for err, never leaking internal detail
// for errors that are not AppErrors.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if errors.Is(err, ErrEmptyQuery) {
		return ErrEmptyQuery.Error()
	}
	return SystemErrorMessage
}
