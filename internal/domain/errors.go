package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")

	ErrInvalidOrExpiredCode    = errors.New("invalid or expired code")
	ErrInvalidToken            = errors.New("invalid identity token")
	ErrMethodConflict          = errors.New("registered with a different method")
	ErrWrongMethod             = errors.New("wrong sign-in method")
	ErrAlreadyRegistered       = errors.New("already registered")
	ErrNotRegistered           = errors.New("not registered")
	ErrDuplicateID             = errors.New("external id already in use")
	ErrIdentifierExhausted     = errors.New("could not allocate a unique external id")
	ErrProviderAccountCreation = errors.New("provider account creation failed")
	ErrCompensationFailed      = errors.New("compensation failed")
	ErrDelivery                = errors.New("notification delivery failed")

	// Infrastructure failures. Retry policy belongs to the caller.
	ErrStore    = errors.New("record store unavailable")
	ErrProvider = errors.New("identity provider unavailable")
)

// MethodConflictError is returned when an identity already exists for an email
// under another registration method.
type MethodConflictError struct {
	Existing string
}

func (e *MethodConflictError) Error() string {
	return fmt.Sprintf("user already registered with %s; sign in with %s instead", e.Existing, e.Existing)
}

func (e *MethodConflictError) Is(target error) bool { return target == ErrMethodConflict }

// WrongMethodError is returned by sign-in when the stored registration method
// differs from the one the caller used.
type WrongMethodError struct {
	Registered string
}

func (e *WrongMethodError) Error() string {
	return fmt.Sprintf("user registered with %s", e.Registered)
}

func (e *WrongMethodError) Is(target error) bool { return target == ErrWrongMethod }

// CompensationFailedError means a forward step failed and undoing an earlier
// step failed too. The record store and the identity provider are now out of
// sync for ExternalID and need reconciliation.
type CompensationFailedError struct {
	AttemptID       string
	ExternalID      string
	Email           string
	FailedStep      string
	Cause           error
	CompensationErr error
}

func (e *CompensationFailedError) Error() string {
	return fmt.Sprintf("compensation failed for external id %s after step %q failed (%v): %v",
		e.ExternalID, e.FailedStep, e.Cause, e.CompensationErr)
}

func (e *CompensationFailedError) Is(target error) bool { return target == ErrCompensationFailed }

func (e *CompensationFailedError) Unwrap() []error {
	return []error{e.Cause, e.CompensationErr}
}
