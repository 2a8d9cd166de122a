package services

import (
	"errors"
	"net/http"
)

// Error is a service failure with a stable machine-readable code.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrNotFound               = &Error{Code: "NOT_FOUND", Message: "not found", Status: http.StatusNotFound}
	ErrInvalidValue           = &Error{Code: "INVALID_VALUE", Message: "value must be a positive integer", Status: http.StatusBadRequest}
	ErrInsufficientBalance    = &Error{Code: "INSUFFICIENT_BALANCE", Message: "insufficient balance", Status: http.StatusBadRequest}
	ErrSelfTransfer           = &Error{Code: "SELF_TRANSFER", Message: "cannot send dundies to yourself", Status: http.StatusBadRequest}
	ErrInvalidOrdering        = &Error{Code: "INVALID_ORDERING", Message: "invalid order_by", Status: http.StatusBadRequest}
	ErrConflictRetryExhausted = &Error{Code: "CONFLICT_RETRY_EXHAUSTED", Message: "transaction conflicted too many times, try again", Status: http.StatusConflict}
	ErrStorageFailure         = &Error{Code: "STORAGE_FAILURE", Message: "storage failure", Status: http.StatusInternalServerError}
	ErrUsernameTaken          = &Error{Code: "USERNAME_TAKEN", Message: "username already exists", Status: http.StatusConflict}
	ErrForbidden              = &Error{Code: "FORBIDDEN", Message: "forbidden", Status: http.StatusForbidden}
	ErrInvalidCredentials     = &Error{Code: "INVALID_CREDENTIALS", Message: "invalid credentials", Status: http.StatusUnauthorized}
	ErrUnauthorized           = &Error{Code: "UNAUTHORIZED", Message: "invalid or expired token", Status: http.StatusUnauthorized}
)

// ErrorCode returns the code of the first *Error in err's chain, or
// INTERNAL_ERROR when there is none.
func ErrorCode(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return "INTERNAL_ERROR"
}

// HTTPStatus maps err to the status code a handler should answer with.
func HTTPStatus(err error) int {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Status
	}
	return http.StatusInternalServerError
}
