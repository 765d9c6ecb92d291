package identity

import (
	"errors"
	"fmt"
)

// Code is a provider error code, stable across releases and shown to clients.
type Code string

const (
	CodeUserNotFound        Code = "auth/user-not-found"
	CodeWrongPassword       Code = "auth/wrong-password"
	CodeEmailInUse          Code = "auth/email-already-in-use"
	CodeInvalidEmail        Code = "auth/invalid-email"
	CodeWeakPassword        Code = "auth/weak-password"
	CodeTooManyRequests     Code = "auth/too-many-requests"
	CodeRequiresRecentLogin Code = "auth/requires-recent-login"
	CodeInvalidContinueURI  Code = "auth/invalid-continue-uri"
	CodePopupClosed         Code = "auth/popup-closed-by-user"
	CodeOperationNotAllowed Code = "auth/operation-not-allowed"
	CodeInvalidActionCode   Code = "auth/invalid-action-code"
	CodeTokenExpired        Code = "auth/user-token-expired"
	CodeInternal            Code = "auth/internal-error"
)

type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so errors.Is(err, ErrWrongPassword) works on wrapped values.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

var (
	ErrUserNotFound        = &Error{Code: CodeUserNotFound}
	ErrWrongPassword       = &Error{Code: CodeWrongPassword}
	ErrEmailInUse          = &Error{Code: CodeEmailInUse}
	ErrInvalidEmail        = &Error{Code: CodeInvalidEmail}
	ErrWeakPassword        = &Error{Code: CodeWeakPassword}
	ErrTooManyRequests     = &Error{Code: CodeTooManyRequests}
	ErrRequiresRecentLogin = &Error{Code: CodeRequiresRecentLogin}
	ErrInvalidContinueURI  = &Error{Code: CodeInvalidContinueURI}
	ErrPopupClosed         = &Error{Code: CodePopupClosed}
	ErrOperationNotAllowed = &Error{Code: CodeOperationNotAllowed}
	ErrInvalidActionCode   = &Error{Code: CodeInvalidActionCode}
	ErrTokenExpired        = &Error{Code: CodeTokenExpired}
)

func internal(err error) error { return &Error{Code: CodeInternal, Err: err} }

// CodeOf returns the provider code carried by err, or "" for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
