package authkit

import (
	"errors"
	"fmt"
)

// ErrNoRefreshToken is returned when a refresh is attempted without a
// persisted refresh token. The only sane follow-up is a logout.
var ErrNoRefreshToken = errors.New("authkit: no refresh token available")

// ErrNoSession is returned by operations that need an active session.
var ErrNoSession = errors.New("authkit: no active session")

// CredentialError reports rejected login credentials. The message is safe to
// show to the user.
type CredentialError struct {
	Message string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("authkit: invalid credentials: %s", e.Message)
}

// RefreshExpiredError reports a refresh token the server no longer accepts.
// The session is unrecoverable without re-authentication.
type RefreshExpiredError struct {
	Message string
}

func (e *RefreshExpiredError) Error() string {
	return fmt.Sprintf("authkit: refresh token rejected: %s", e.Message)
}

// NetworkError reports that no usable response was received at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("authkit: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError reports request fields the server (or the client-side
// validator) rejected.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("authkit: validation failed: %s", e.Message)
}

// IsCredentialError reports whether err is a rejected-credentials failure.
func IsCredentialError(err error) bool {
	var ce *CredentialError
	return errors.As(err, &ce)
}

// IsRefreshExpired reports whether err means the refresh token is dead.
func IsRefreshExpired(err error) bool {
	var re *RefreshExpiredError
	return errors.As(err, &re)
}

// IsNetworkError reports whether err is a transport-level failure.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// UserMessage extracts a human-readable message from any error of the tagged
// set, falling back to a generic one.
func UserMessage(err error) string {
	var ce *CredentialError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) && ve.Message != "" {
		return ve.Message
	}
	var re *RefreshExpiredError
	if errors.As(err, &re) {
		return "Your session has expired. Please sign in again."
	}
	if IsNetworkError(err) {
		return "Could not reach the server. Please try again."
	}
	if err != nil {
		return "Something went wrong. Please try again."
	}
	return ""
}
