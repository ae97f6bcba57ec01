package internal

import (
	"context"
	"errors"
	"net/http"
)

type ErrorKind string

const (
	KindNetwork         ErrorKind = "network"
	KindUnresolvedInput ErrorKind = "unresolved_input"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindValidation      ErrorKind = "validation"
	KindNotFound        ErrorKind = "not_found"
	KindSuperseded      ErrorKind = "superseded"
	KindInternal        ErrorKind = "internal"
)

// AppError is the error shape every handler renders. Message is safe to show
// to the user.
type AppError struct {
	Code    int       `json:"code"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.cause }

// WithCause returns a copy of e that wraps cause.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.cause = cause
	return &cp
}

func NewAppError(status int, msg string) *AppError {
	return &AppError{Code: status, Kind: kindForStatus(status), Message: msg}
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindSuperseded
	case http.StatusUnprocessableEntity:
		return KindUnresolvedInput
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindNetwork
	default:
		return KindInternal
	}
}

func NetworkError(cause error) *AppError {
	return &AppError{
		Code:    http.StatusBadGateway,
		Kind:    KindNetwork,
		Message: "Could not reach the EatBalance service, check your connection and try again",
		cause:   cause,
	}
}

func UnresolvedInputError(msg string) *AppError {
	if msg == "" {
		msg = "We could not understand your data. Please write it again more clearly"
	}
	return &AppError{Code: http.StatusUnprocessableEntity, Kind: KindUnresolvedInput, Message: msg}
}

func UnauthorizedError(msg string) *AppError {
	if msg == "" {
		msg = "Unauthorized"
	}
	return &AppError{Code: http.StatusUnauthorized, Kind: KindUnauthorized, Message: msg}
}

func ValidationError(msg string, cause error) *AppError {
	if msg == "" {
		msg = "The request could not be processed"
	}
	return &AppError{Code: http.StatusBadRequest, Kind: KindValidation, Message: msg, cause: cause}
}

func NotFoundError(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Kind: KindNotFound, Message: msg}
}

func SupersededError() *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Kind:    KindSuperseded,
		Message: "A newer request replaced this one",
	}
}

func InternalError(cause error) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Kind: KindInternal, Message: "Internal error", cause: cause}
}

// AsAppError maps any error onto the taxonomy. Canceled contexts mean a newer
// request took over.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.Canceled) {
		return SupersededError()
	}
	return InternalError(err)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
