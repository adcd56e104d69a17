package storage

import (
	"errors"
	"fmt"
)

// Kind classifies backend failures so callers never match on message text.
type Kind string

const (
	KindDuplicate    Kind = "duplicate"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindInvalid      Kind = "invalid"
	KindUnavailable  Kind = "unavailable"
	KindInternal     Kind = "internal"
)

// Error is the structured error returned by every backend.
// Message is safe to show to the user; Err carries the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the text shown verbatim by auth screens.
func (e *Error) UserMessage() string { return e.Message }

// NewError builds an Error of the given kind.
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when none.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func IsDuplicate(err error) bool    { return KindOf(err) == KindDuplicate }
func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }
func IsInvalid(err error) bool      { return KindOf(err) == KindInvalid }
func IsUnavailable(err error) bool  { return KindOf(err) == KindUnavailable }

// Common messages shared by every backend.
const (
	MsgInvalidCredentials  = "Invalid login credentials"
	MsgUserExists          = "User already registered"
	MsgInvalidRefreshToken = "Invalid Refresh Token"
	MsgSessionMissing      = "Auth session missing!"
	MsgInvalidJWT          = "invalid JWT"
	MsgPasswordTooShort    = "Password should be at least 6 characters."
	MsgInvalidEmail        = "Unable to validate email address: invalid format"
	MsgRowLevelSecurity    = "new row violates row-level security policy"
	MsgHabitNotFound       = "habit not found"
	MsgHabitArchived       = "habit is archived"
	MsgHabitNameTaken      = "duplicate key value violates unique constraint on habit name"
	MsgQuantityPositive    = "quantity must be greater than zero"
	MsgInvalidTimezone     = "invalid timezone"
)
