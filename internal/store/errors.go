package store

import (
	"errors"
	"net/http"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrUserSuspended          = errors.New("user account is suspended")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrNotYetAccessible       = errors.New("savings not yet accessible")
	ErrValidation             = errors.New("validation failed")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrDuplicate              = errors.New("duplicate record")
	ErrSavingsNotEmpty        = errors.New("savings account is not empty")
	ErrBalanceMismatch        = errors.New("balance mismatch")
	ErrTooLarge               = errors.New("request too large")
)

// IsRetryable reports whether the operation may succeed if attempted again
// against fresh state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError reports whether err was caused by the request rather than the system.
func IsClientError(err error) bool {
	code := StatusCode(err)
	return code >= 400 && code < 500
}

// StatusCode maps the error taxonomy onto an HTTP status class.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrUserSuspended):
		return http.StatusForbidden
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrNotYetAccessible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrValidation), errors.Is(err, ErrSavingsNotEmpty):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConcurrentModification), errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}
