package authkit

import "context"

// Store is the persisted record of the current session, shared across every
// client instance of the same user profile (browser tabs, processes).
// Implementations: store/ (memory, file), store/redistore/ (redis).
//
// The Manager is the only writer. Readers must treat the returned session as
// read-only.
type Store interface {
	// Read returns the current session, or nil when none is persisted.
	Read() (*Session, error)

	// Write atomically replaces the persisted session. Implementations must
	// reject sessions for which Valid() is false.
	Write(s *Session) error

	// Clear removes the persisted session. Clearing an empty store is a no-op.
	Clear() error

	// Subscribe registers a listener invoked on every change with the new
	// session (nil after Clear). In-process changes fire synchronously;
	// changes made by other instances are observed asynchronously. The
	// returned function removes the listener.
	Subscribe(fn func(*Session)) (unsubscribe func())
}

// API is the remote authentication collaborator. Implementations: rest/
// (HTTP), fake/ (testing). All methods convert remote failures into the
// tagged error set of this package before returning.
type API interface {
	// Login exchanges credentials for a token pair and profile.
	Login(ctx context.Context, email, password string) (*Credentials, error)

	// Register creates a new account. The account starts unverified.
	Register(ctx context.Context, req RegisterRequest) error

	// Refresh exchanges a refresh token for a new token pair.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)

	// VerifyEmail confirms an email address using the token from the
	// verification mail.
	VerifyEmail(ctx context.Context, token string) error

	// ResendVerification sends a fresh verification mail.
	ResendVerification(ctx context.Context, email string) error

	// ForgotPassword starts the password reset flow.
	ForgotPassword(ctx context.Context, email string) error

	// ResetPassword completes the password reset flow.
	ResetPassword(ctx context.Context, token, newPassword string) error
}
