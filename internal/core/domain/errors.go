package domain

import (
	"errors"
	"fmt"
)

// Kind classifies auth failures. The set is closed; transport layers map each
// kind to a status code and never inspect error text.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindDuplicateEmail
	KindInvalidCredentials
	KindUnauthenticated
	KindForbidden
	KindTokenExpired
	KindTokenMalformed
	KindConnection
	KindTooManyAttempts
)

var kindNames = [...]string{
	KindUnknown:            "Unknown",
	KindValidation:         "ValidationError",
	KindDuplicateEmail:     "DuplicateEmail",
	KindInvalidCredentials: "InvalidCredentials",
	KindUnauthenticated:    "Unauthenticated",
	KindForbidden:          "Forbidden",
	KindTokenExpired:       "TokenExpired",
	KindTokenMalformed:     "TokenMalformed",
	KindConnection:         "ConnectionError",
	KindTooManyAttempts:    "TooManyAttempts",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// Error is a typed auth failure. Two Errors are equal under errors.Is when
// their kinds match, so callers compare against the sentinels below.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}
	ErrDuplicateEmail     = &Error{Kind: KindDuplicateEmail, Message: "email already registered"}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated, Message: "authentication required"}
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "access forbidden"}
	ErrTokenExpired       = &Error{Kind: KindTokenExpired, Message: "session expired, please log in again"}
	ErrTokenMalformed     = &Error{Kind: KindTokenMalformed, Message: "invalid token"}
	ErrConnection         = &Error{Kind: KindConnection, Message: "backing store unavailable"}
	ErrShuttingDown       = &Error{Kind: KindConnection, Message: "backing store shutting down"}
	ErrTooManyAttempts    = &Error{Kind: KindTooManyAttempts, Message: "account is locked, please try again later"}
)

// ErrUserNotFound is returned by repositories. Services translate it into an
// auth kind before it reaches a caller.
var ErrUserNotFound = errors.New("user not found")

// Validation returns a ValidationError carrying a caller-facing message.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ConnectionFailure wraps a backing store failure as a ConnectionError.
func ConnectionFailure(err error) *Error {
	return &Error{Kind: KindConnection, Message: ErrConnection.Message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
