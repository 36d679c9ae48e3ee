package authkit

import "time"

// Role is one of the closed set of platform roles. Role checks on the client
// are UX gating only; the server re-validates every authorization decision.
type Role string

const (
	RoleTourist Role = "tourist"
	RoleGuide   Role = "guide"
	RoleAdmin   Role = "admin"
)

// Profile is the user identity carried inside a Session.
type Profile struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Role          Role   `json:"role"`
	EmailVerified bool   `json:"isEmailVerified"`
}

// Session is the authenticated identity and credential set currently active.
// A Session is all-or-nothing: either every field is populated or no session
// exists at all. Partial sessions are never persisted.
type Session struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Profile      Profile   `json:"profile"`
}

// Valid reports whether the session is complete enough to persist.
func (s *Session) Valid() bool {
	return s != nil &&
		s.AccessToken != "" &&
		s.RefreshToken != "" &&
		!s.ExpiresAt.IsZero() &&
		s.Profile.ID != ""
}

// Clone returns a copy so callers can hold snapshots without racing against
// the manager's in-place merges.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Credentials is what the login endpoint returns: the token pair plus the
// profile the server resolved for those credentials.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	Profile      Profile
}

// TokenPair is what the refresh endpoint returns. RefreshToken may be empty
// when the server does not rotate refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// LoginResult is returned by Manager.Login on success.
type LoginResult struct {
	// RequiresVerification is true when the account exists but its email
	// address has not been confirmed yet.
	RequiresVerification bool
	Role                 Role
	Profile              Profile
}

// RegisterRequest carries the fields of the registration form.
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=64"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Role            Role   `json:"role" validate:"required,oneof=tourist guide admin"`
}
