package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a message arrives while the session is still
	// handling the previous one.
	ErrBusy = errors.New("session is busy")
	// ErrCredentials marks model failures fixable only with another API key.
	ErrCredentials = errors.New("model credentials rejected")
	// ErrModelUnavailable marks any other model failure.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrSessionNotFound is returned by Manager for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
)

// CredentialError wraps the provider error behind a credential failure.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s: %v", ErrCredentials, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

func (e *CredentialError) Is(target error) bool { return target == ErrCredentials }
