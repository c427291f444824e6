package library

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrLoginRequired      = errors.New("login required")
	ErrForbidden          = errors.New("not allowed for this user")
	ErrInvalidTransition  = errors.New("invalid report status transition")
	ErrInFlight           = errors.New("an identical action is already in progress")
	ErrDetached           = errors.New("workflow closed before the result arrived")
	ErrRatingUnset        = errors.New("no star selected")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrImageTooLarge      = errors.New("image too large for the server")
	ErrNotLoaded          = errors.New("book not loaded yet")
	ErrOverlayBusy        = errors.New("another dialog is open")
	ErrOverlayClosed      = errors.New("dialog not open")
	ErrBookUnavailable    = errors.New("book is currently lent")
	ErrUnknownItem        = errors.New("not in the loaded list")
)

// ValidationError reports a form field that failed a check before any
// network call was made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// CredentialsError keeps the server's explanation of a failed login.
type CredentialsError struct {
	Message string
}

func (e *CredentialsError) Error() string {
	if e.Message == "" {
		return ErrInvalidCredentials.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidCredentials, e.Message)
}

func (e *CredentialsError) Unwrap() error { return ErrInvalidCredentials }
