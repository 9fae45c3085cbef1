package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation   = fmt.Errorf("invalid payload")
	ErrUnauthorized = fmt.Errorf("operation not permitted")
	ErrNotFound     = fmt.Errorf("message not found")
	ErrWorkerPanic  = fmt.Errorf("worker panic")
	ErrSinkFull     = fmt.Errorf("connection buffer full")
)

// Wire error codes returned in rejection events and REST bodies.
const (
	CodeValidation   = "VALIDATION"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeInternal     = "INTERNAL"
)

// Code maps an error to its wire code. Unknown errors are internal:
// a store failure aborts the operation without partial mutation and is
// never surfaced as a client mistake.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}

// HTTPStatus maps an error to the REST surface status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
