// Package apperr defines the typed errors that services return and the
// HTTP boundary translates into responses.
//
// Every error a service returns is either an *Error (carrying a Kind and a
// client-facing code) or an unexpected error, which the boundary treats as
// KindInternal.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies an error for the response boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicate
	KindNotFound
	KindUnauthenticated
	KindForbidden
	KindConfig
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindConfig:
		return "config"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to its response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindDuplicate:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error codes sent to clients in the "errorCode" field.
const (
	CodeAccessUnauthorized   = "ACCESS_UNAUTHORIZED"
	CodeAuthUnauthorized     = "AUTH_UNAUTHORIZED_ACCESS"
	CodeAuthInvalidToken     = "AUTH_INVALID_TOKEN"
	CodeEmailAlreadyExists   = "AUTH_EMAIL_ALREADY_EXISTS"
	CodeUserNotFound         = "AUTH_USER_NOT_FOUND"
	CodeResourceNotFound     = "RESOURCE_NOT_FOUND"
	CodeResourceConflict     = "RESOURCE_CONFLICT"
	CodeValidation           = "VALIDATION_ERROR"
	CodeConfiguration        = "CONFIGURATION_ERROR"
	CodeInternalServer       = "INTERNAL_SERVER_ERROR"
	CodeOwnerCannotBeRemoved = "OWNER_CANNOT_BE_REMOVED"
	CodeTooManyRequests      = "TOO_MANY_REQUESTS"
)

// ForbiddenMessage is the uniform message for authorization failures. It is
// identical for "not a member" and "missing permission" so responses do not
// reveal which check failed.
const ForbiddenMessage = "You do not have the necessary permissions to perform this action"

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the typed application error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Code != "" {
		b.WriteString(" [" + e.Code + "]")
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a KindValidation error with optional field details.
func Validation(msg string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: msg, Fields: fields}
}

// Duplicate builds a KindDuplicate error with the given client code.
func Duplicate(code, msg string) *Error {
	return &Error{Kind: KindDuplicate, Code: code, Message: msg}
}

// NotFound builds a KindNotFound error.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeResourceNotFound, Message: msg}
}

// Unauthenticated builds a KindUnauthenticated error.
func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Code: CodeAuthUnauthorized, Message: msg}
}

// Forbidden builds the uniform authorization error.
func Forbidden() *Error {
	return &Error{Kind: KindForbidden, Code: CodeAccessUnauthorized, Message: ForbiddenMessage}
}

// Config builds a KindConfig error for missing seed data or broken references.
func Config(msg string, err error) *Error {
	return &Error{Kind: KindConfig, Code: CodeConfiguration, Message: msg, Err: err}
}

// RateLimited builds a KindRateLimited error.
func RateLimited(msg string) *Error {
	return &Error{Kind: KindRateLimited, Code: CodeTooManyRequests, Message: msg}
}

// Internal wraps an unexpected error.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternalServer, Message: msg, Err: err}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
