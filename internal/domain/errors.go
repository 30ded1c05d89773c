package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// AsAppError returns the first *AppError in err's chain, if any.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// Error codes.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeValidation    = "VALIDATION_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeBadLogin      = "INVALID_CREDENTIALS"
	CodeInvalidAction = "INVALID_ACTION"
	CodeInvalidState  = "INVALID_STATE"
	CodeTicketClosed  = "TICKET_CLOSED"
	CodeAccountLocked = "ACCOUNT_LOCKED"
	CodeRateLimited   = "RATE_LIMITED"
	CodeInternal      = "INTERNAL_ERROR"
)

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id), Status: http.StatusNotFound}
}

// ErrConflict is rendered as 400: duplicate registrations are a client input problem.
func ErrConflict(msg string) *AppError {
	return &AppError{Code: CodeConflict, Message: msg, Status: http.StatusBadRequest}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: CodeValidation, Message: msg, Status: http.StatusBadRequest}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: msg, Status: http.StatusUnauthorized}
}

// ErrInvalidCredentials is deliberately identical for unknown emails and wrong passwords.
func ErrInvalidCredentials() *AppError {
	return &AppError{Code: CodeBadLogin, Message: "invalid credentials", Status: http.StatusBadRequest}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: CodeForbidden, Message: msg, Status: http.StatusForbidden}
}

func ErrInvalidAction(msg string) *AppError {
	return &AppError{Code: CodeInvalidAction, Message: msg, Status: http.StatusBadRequest}
}

func ErrInvalidState(msg string) *AppError {
	return &AppError{Code: CodeInvalidState, Message: msg, Status: http.StatusBadRequest}
}

func ErrTicketClosed() *AppError {
	return &AppError{Code: CodeTicketClosed, Message: "ticket is closed and no longer accepts replies", Status: http.StatusBadRequest}
}

func ErrAccountLocked(msg string) *AppError {
	return &AppError{Code: CodeAccountLocked, Message: msg, Status: http.StatusTooManyRequests}
}

func ErrRateLimited(msg string) *AppError {
	return &AppError{Code: CodeRateLimited, Message: msg, Status: http.StatusTooManyRequests}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: msg, Status: http.StatusInternalServerError, Cause: cause}
}
