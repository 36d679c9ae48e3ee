// Package fake provides an in-memory implementation of the authkit.API
// contract for tests: no network, no real auth server.
//
// The fake mints genuine HS256-signed JWTs so the token codec and the refresh
// scheduler behave exactly as they would against the real API. Refresh tokens
// are single-use and rotate on every refresh, which lets tests reproduce the
// cross-instance refresh race.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	authkit "github.com/voyagio/authkit-go"
)

var signKey = []byte("fake-auth-api-signing-key")

// MintToken signs an access token for the profile with the given expiry.
// Exported so tests can build sessions in arbitrary expiry states.
func MintToken(p authkit.Profile, expiresAt time.Time) string {
	claims := jwt.MapClaims{
		"sub":   p.ID,
		"email": p.Email,
		"role":  string(p.Role),
		"exp":   expiresAt.Unix(),
		"iat":   time.Now().Unix(),
		"jti":   uuid.NewString(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(signKey)
	if err != nil {
		panic("fake: signing token: " + err.Error())
	}
	return signed
}

type account struct {
	profile  authkit.Profile
	password string
}

// API is an in-memory auth backend.
type API struct {
	mu            sync.Mutex
	accounts      map[string]*account // email → account
	refreshTokens map[string]string   // refresh token → email (single use)
	verifyTokens  map[string]string   // verification token → email
	resetTokens   map[string]string   // reset token → email
	tokenTTL      time.Duration

	failRefresh error
	offline     bool

	refreshCalls int
}

// compile-time check
var _ authkit.API = (*API)(nil)

// Option seeds the fake.
type Option func(*API)

// WithAccount adds an account the fake will authenticate.
func WithAccount(p authkit.Profile, password string) Option {
	return func(a *API) {
		a.accounts[p.Email] = &account{profile: p, password: password}
	}
}

// WithTokenTTL sets the lifetime of minted access tokens. Default: 1 hour.
func WithTokenTTL(d time.Duration) Option {
	return func(a *API) { a.tokenTTL = d }
}

// WithVerificationToken seeds a pending email-verification token.
func WithVerificationToken(token, email string) Option {
	return func(a *API) { a.verifyTokens[token] = email }
}

// WithResetToken seeds a pending password-reset token.
func WithResetToken(token, email string) Option {
	return func(a *API) { a.resetTokens[token] = email }
}

// New creates an empty fake API.
func New(opts ...Option) *API {
	a := &API{
		accounts:      make(map[string]*account),
		refreshTokens: make(map[string]string),
		verifyTokens:  make(map[string]string),
		resetTokens:   make(map[string]string),
		tokenTTL:      1 * time.Hour,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// SetOffline makes every call fail with a NetworkError.
func (a *API) SetOffline(offline bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.offline = offline
}

// FailNextRefresh makes the next refresh call fail with the given error.
func (a *API) FailNextRefresh(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failRefresh = err
}

// RefreshCalls reports how many refresh requests reached the fake.
func (a *API) RefreshCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshCalls
}

// RotateRefreshToken invalidates the given token and issues a replacement for
// the same account, simulating another instance having refreshed first.
func (a *API) RotateRefreshToken(old string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	email, ok := a.refreshTokens[old]
	if !ok {
		return "", false
	}
	delete(a.refreshTokens, old)
	next := uuid.NewString()
	a.refreshTokens[next] = email
	return next, true
}

// Login authenticates an account and mints a token pair.
func (a *API) Login(ctx context.Context, email, password string) (*authkit.Credentials, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.offline {
		return nil, &authkit.NetworkError{Err: context.DeadlineExceeded}
	}

	acct, ok := a.accounts[email]
	if !ok || acct.password != password {
		return nil, &authkit.CredentialError{Message: "Invalid email or password."}
	}

	refresh := uuid.NewString()
	a.refreshTokens[refresh] = email

	return &authkit.Credentials{
		AccessToken:  MintToken(acct.profile, time.Now().Add(a.tokenTTL)),
		RefreshToken: refresh,
		ExpiresIn:    int(a.tokenTTL.Seconds()),
		Profile:      acct.profile,
	}, nil
}

// Register adds an account; duplicate emails are rejected.
func (a *API) Register(ctx context.Context, req authkit.RegisterRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.offline {
		return &authkit.NetworkError{Err: context.DeadlineExceeded}
	}
	if _, exists := a.accounts[req.Email]; exists {
		return &authkit.ValidationError{Message: "An account with this email already exists."}
	}

	a.accounts[req.Email] = &account{
		profile: authkit.Profile{
			ID:       uuid.NewString(),
			Username: req.Username,
			Email:    req.Email,
			Role:     req.Role,
		},
		password: req.Password,
	}
	return nil
}

// Refresh rotates a single-use refresh token. A token that was already
// consumed fails with RefreshExpiredError, exactly like the real API.
func (a *API) Refresh(ctx context.Context, refreshToken string) (*authkit.TokenPair, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.refreshCalls++

	if a.offline {
		return nil, &authkit.NetworkError{Err: context.DeadlineExceeded}
	}
	if a.failRefresh != nil {
		err := a.failRefresh
		a.failRefresh = nil
		return nil, err
	}

	email, ok := a.refreshTokens[refreshToken]
	if !ok {
		return nil, &authkit.RefreshExpiredError{Message: "refresh token expired or invalid"}
	}
	acct := a.accounts[email]

	delete(a.refreshTokens, refreshToken)
	next := uuid.NewString()
	a.refreshTokens[next] = email

	return &authkit.TokenPair{
		AccessToken:  MintToken(acct.profile, time.Now().Add(a.tokenTTL)),
		RefreshToken: next,
		ExpiresIn:    int(a.tokenTTL.Seconds()),
	}, nil
}

// VerifyEmail consumes a verification token and marks the account verified.
func (a *API) VerifyEmail(ctx context.Context, token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.offline {
		return &authkit.NetworkError{Err: context.DeadlineExceeded}
	}

	email, ok := a.verifyTokens[token]
	if !ok {
		return &authkit.ValidationError{Message: "Unknown verification token."}
	}
	delete(a.verifyTokens, token)
	if acct, ok := a.accounts[email]; ok {
		acct.profile.EmailVerified = true
	}
	return nil
}

// ResendVerification issues a fresh verification token for the account.
func (a *API) ResendVerification(ctx context.Context, email string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.offline {
		return &authkit.NetworkError{Err: context.DeadlineExceeded}
	}
	if _, ok := a.accounts[email]; !ok {
		return &authkit.ValidationError{Message: "Unknown email address."}
	}
	a.verifyTokens[uuid.NewString()] = email
	return nil
}

// ForgotPassword issues a reset token for the account.
func (a *API) ForgotPassword(ctx context.Context, email string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.offline {
		return &authkit.NetworkError{Err: context.DeadlineExceeded}
	}
	if _, ok := a.accounts[email]; !ok {
		return &authkit.ValidationError{Message: "Unknown email address."}
	}
	a.resetTokens[uuid.NewString()] = email
	return nil
}

// ResetPassword consumes a reset token and replaces the account password.
func (a *API) ResetPassword(ctx context.Context, token, newPassword string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.offline {
		return &authkit.NetworkError{Err: context.DeadlineExceeded}
	}

	email, ok := a.resetTokens[token]
	if !ok {
		return &authkit.ValidationError{Message: "Reset token expired or invalid."}
	}
	delete(a.resetTokens, token)
	if acct, ok := a.accounts[email]; ok {
		acct.password = newPassword
	}
	return nil
}
