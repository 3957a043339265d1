package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeInvalid           ErrorCode = "INVALID"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidCredential ErrorCode = "INVALID_CREDENTIAL"
	ErrCodeInternal          ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrUserNotFound     = NewError(ErrCodeNotFound, "user not found")
	ErrTaskNotFound     = NewError(ErrCodeNotFound, "task not found")
	ErrUnauthenticated  = NewError(ErrCodeUnauthorized, "authentication required")
	ErrAccessDenied     = NewError(ErrCodeForbidden, "access denied")
	ErrInvalidPayload   = NewError(ErrCodeInvalid, "invalid payload")
	ErrUsernameTaken    = NewError(ErrCodeConflict, "username is already taken")
	ErrEmailTaken       = NewError(ErrCodeConflict, "email is already in use")
	ErrBadCredentials   = NewError(ErrCodeUnauthorized, "invalid username or password")
	ErrWrongPassword    = NewError(ErrCodeInvalidCredential, "current password is incorrect")
	ErrAccountDisabled  = NewError(ErrCodeUnauthorized, "account is disabled")
	ErrUnknownRole      = NewError(ErrCodeInvalid, "unknown role")
	ErrPasswordTooShort = NewError(ErrCodeInvalid, "new password must be at least 6 characters")
	ErrTitleRequired    = NewError(ErrCodeInvalid, "task title is required")
	ErrUnknownPriority  = NewError(ErrCodeInvalid, "unknown priority")
	ErrPriorityRequired = NewError(ErrCodeInvalid, "priority is required")
	ErrUserHasNoRoles   = NewError(ErrCodeInvalid, "user must have at least one role")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// Deny builds an access denied error naming the refused operation.
func Deny(operation string) *Error {
	return &Error{Code: ErrCodeForbidden, Message: "access denied: " + operation}
}
