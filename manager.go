// Package authkit manages the session and credential lifecycle for clients of
// the Voyagio tourism-booking API: acquiring a session at login, persisting
// it in a store shared by every instance (browser tabs, processes),
// refreshing the access token ahead of expiry, and tearing everything down on
// logout, in any instance.
//
// The Manager is the only writer of the Store. Route guards and other readers
// derive their decisions from session snapshots through the gate functions.
//
//	st, _ := store.NewFile(path)
//	m, _ := authkit.New(st, rest.NewClient(baseURL), authkit.WithLogger(logger))
//	if err := m.Start(ctx); err != nil { ... }
//	res, err := m.Login(ctx, email, password)
package authkit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/voyagio/authkit-go/token"
)

// Recorder observes auth lifecycle outcomes. Implementations: metrics/
// (prometheus). When none is injected the manager records nothing.
type Recorder interface {
	// LoginAttempt records a login and, on failure, a coarse reason label.
	LoginAttempt(success bool, reason string)

	// RefreshCompleted records a refresh outcome: "success", "adopted"
	// (another instance already rotated the token) or "failed".
	RefreshCompleted(result string)

	// LogoutCompleted records a logout.
	LogoutCompleted()
}

// Auditor records auth transitions for an audit trail. Implementations:
// audit/.
type Auditor interface {
	Record(action, result, details string)
}

// Manager orchestrates login, logout, registration, email verification,
// password reset and token refresh. All methods are safe for concurrent use.
type Manager struct {
	store     Store
	api       API
	logger    *slog.Logger
	metrics   Recorder
	auditor   Auditor
	scheduler *RefreshScheduler
	skew      time.Duration

	sf singleflight.Group

	subMu   sync.Mutex
	subs    map[int]func(*Session)
	subNext int

	storeUnsub func()
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithRecorder sets a lifecycle metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.metrics = r }
}

// WithAuditor sets an audit trail sink.
func WithAuditor(a Auditor) Option {
	return func(m *Manager) { m.auditor = a }
}

// WithRefreshSkew sets how long before expiry the proactive refresh runs.
// Default: 5 minutes.
func WithRefreshSkew(d time.Duration) Option {
	return func(m *Manager) { m.skew = d }
}

// New creates a Manager bound to a session store and a remote auth API.
func New(store Store, api API, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("authkit: store is required")
	}
	if api == nil {
		return nil, fmt.Errorf("authkit: api is required")
	}

	m := &Manager{
		store:  store,
		api:    api,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		skew:   DefaultRefreshSkew,
		subs:   make(map[int]func(*Session)),
	}
	for _, o := range opts {
		o(m)
	}
	m.scheduler = NewRefreshScheduler(WithSkew(m.skew), WithSchedulerLogger(m.logger))

	// The store subscription is the single code path through which session
	// changes, own or made by another instance, reach the scheduler and the
	// subscribers, so it is installed for the manager's whole lifetime.
	m.storeUnsub = m.store.Subscribe(m.onStoreChange)
	return m, nil
}

// Start reconciles the manager with whatever the store already holds. A
// persisted session whose expiry has already passed is refreshed before
// Start returns, so the UI never observes an authenticated-but-stale state.
func (m *Manager) Start(ctx context.Context) error {
	s, err := m.store.Read()
	if err != nil {
		return fmt.Errorf("authkit: reading persisted session: %w", err)
	}
	if s == nil {
		return nil
	}

	if !IsAuthenticated(s, time.Now()) {
		if err := m.refresh(ctx); err != nil {
			// refresh already cleared the session; starting anonymous is the
			// correct outcome, not a startup failure.
			m.logger.Info("startup refresh failed, starting anonymous", "error", err)
		}
		return nil
	}

	m.scheduler.Arm(s.ExpiresAt, m.refresh)
	return nil
}

// Close cancels the pending refresh timer and detaches from the store. It
// does not log out: the persisted session stays for the next start.
func (m *Manager) Close() error {
	m.scheduler.Cancel()
	if m.storeUnsub != nil {
		m.storeUnsub()
		m.storeUnsub = nil
	}
	return nil
}

// onStoreChange is the single code path through which session changes, own
// or made by another instance, reach the scheduler and the subscribers.
func (m *Manager) onStoreChange(s *Session) {
	if s == nil {
		m.scheduler.Cancel()
	} else {
		m.scheduler.Arm(s.ExpiresAt, m.refresh)
	}

	m.subMu.Lock()
	fns := make([]func(*Session), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(s.Clone())
	}
}

// Subscribe registers a listener for session transitions (nil on logout).
// The returned function removes it.
func (m *Manager) Subscribe(fn func(*Session)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.subNext
	m.subNext++
	m.subs[id] = fn
	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, id)
	}
}

// RefreshDue reports the deadline of the pending proactive refresh, if one
// is armed. Intended for UI surfaces like "session expires soon" banners.
func (m *Manager) RefreshDue() (time.Time, bool) {
	return m.scheduler.Due()
}

// Current returns a snapshot of the active session, or nil.
func (m *Manager) Current() *Session {
	s, err := m.store.Read()
	if err != nil {
		m.logger.Warn("reading session", "error", err)
		return nil
	}
	return s
}

// Login exchanges credentials for a session, persists it and arms the
// refresh timer. Failures surface as the tagged error set with user-facing
// messages; there is no automatic retry, that is the user's call.
func (m *Manager) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	creds, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.record(func(r Recorder) { r.LoginAttempt(false, failureReason(err)) })
		m.auditEvent("login", "failure", email)
		return nil, err
	}

	// Expiry comes from the token's own exp claim, not from expiresIn
	// arithmetic on the client clock: issuance time and decode time would
	// give two different bases.
	claims, err := token.Decode(creds.AccessToken)
	if err != nil {
		m.record(func(r Recorder) { r.LoginAttempt(false, "bad_token") })
		return nil, fmt.Errorf("authkit: decoding access token: %w", err)
	}

	session := &Session{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    claims.ExpiresAt,
		Profile:      creds.Profile,
	}
	if err := m.store.Write(session); err != nil {
		return nil, fmt.Errorf("authkit: persisting session: %w", err)
	}

	m.record(func(r Recorder) { r.LoginAttempt(true, "") })
	m.auditEvent("login", "success", creds.Profile.Email)
	m.logger.Info("logged in", "user", creds.Profile.ID, "role", creds.Profile.Role)

	return &LoginResult{
		RequiresVerification: !creds.Profile.EmailVerified,
		Role:                 creds.Profile.Role,
		Profile:              creds.Profile,
	}, nil
}

// Logout cancels the refresh timer and clears the store, which propagates to
// every other instance. Logging out without an active session is a no-op.
func (m *Manager) Logout(ctx context.Context) error {
	m.scheduler.Cancel()
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("authkit: clearing session: %w", err)
	}
	m.record(func(r Recorder) { r.LogoutCompleted() })
	m.auditEvent("logout", "success", "")
	return nil
}

// Invalidate is the 401 fallback: a transport that receives an unauthorized
// reply after another instance logged out calls this to drop the local
// session without a round-trip.
func (m *Manager) Invalidate(ctx context.Context) {
	if s := m.Current(); s == nil {
		return
	}
	m.logger.Info("session invalidated by unauthorized reply")
	_ = m.Logout(ctx)
}

// refresh exchanges the persisted refresh token for a new token pair. Near
// simultaneous triggers (the timer plus an explicit startup reconcile, or two
// subscribers) collapse into one in-flight call via singleflight. Refresh
// failures are never retried silently: a dead refresh token means the session
// is unrecoverable, so the manager logs out.
func (m *Manager) refresh(ctx context.Context) error {
	_, err, _ := m.sf.Do("refresh", func() (interface{}, error) {
		return nil, m.doRefresh(ctx)
	})
	return err
}

func (m *Manager) doRefresh(ctx context.Context) error {
	current, err := m.store.Read()
	if err != nil {
		return fmt.Errorf("authkit: reading session for refresh: %w", err)
	}
	if current == nil || current.RefreshToken == "" {
		// A timer that fires after logout observes a cleared store and exits
		// here instead of acting on stale closure state.
		m.scheduler.Cancel()
		return ErrNoRefreshToken
	}

	pair, err := m.api.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if IsRefreshExpired(err) && m.adoptRotatedSession(current) {
			m.record(func(r Recorder) { r.RefreshCompleted("adopted") })
			return nil
		}
		m.record(func(r Recorder) { r.RefreshCompleted("failed") })
		m.auditEvent("refresh", "failure", "")
		m.logger.Warn("refresh failed, logging out", "error", err)
		_ = m.Logout(ctx)
		return err
	}

	claims, err := token.Decode(pair.AccessToken)
	if err != nil {
		m.record(func(r Recorder) { r.RefreshCompleted("failed") })
		_ = m.Logout(ctx)
		return fmt.Errorf("authkit: decoding refreshed access token: %w", err)
	}

	next := current.Clone()
	next.AccessToken = pair.AccessToken
	next.ExpiresAt = claims.ExpiresAt
	if pair.RefreshToken != "" {
		next.RefreshToken = pair.RefreshToken
	}
	if err := m.store.Write(next); err != nil {
		return fmt.Errorf("authkit: persisting refreshed session: %w", err)
	}

	m.record(func(r Recorder) { r.RefreshCompleted("success") })
	m.auditEvent("refresh", "success", "")
	return nil
}

// adoptRotatedSession handles the refresh-token-reuse race: when the server
// rejects our refresh token, another instance may have already rotated it. A
// re-read of the shared store distinguishes "session dead" from "someone beat
// us to it" — in the latter case we adopt their session instead of logging
// everyone out.
func (m *Manager) adoptRotatedSession(stale *Session) bool {
	again, err := m.store.Read()
	if err != nil || again == nil {
		return false
	}
	if again.AccessToken == stale.AccessToken || !IsAuthenticated(again, time.Now()) {
		return false
	}
	m.logger.Info("refresh raced another instance, adopting its session")
	m.scheduler.Arm(again.ExpiresAt, m.refresh)
	return true
}

// Register creates a new account. The account starts unverified; the session
// state does not change.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) error {
	if err := m.api.Register(ctx, req); err != nil {
		m.auditEvent("register", "failure", req.Email)
		return err
	}
	m.auditEvent("register", "success", req.Email)
	return nil
}

// VerifyEmail confirms the email address behind the verification token. On
// success the persisted profile flag flips in place; tokens and expiry stay
// untouched, no refresh round-trip.
func (m *Manager) VerifyEmail(ctx context.Context, verificationToken string) error {
	if err := m.api.VerifyEmail(ctx, verificationToken); err != nil {
		m.auditEvent("verify_email", "failure", "")
		return err
	}

	if s := m.Current(); s != nil && !s.Profile.EmailVerified {
		next := s.Clone()
		next.Profile.EmailVerified = true
		if err := m.store.Write(next); err != nil {
			return fmt.Errorf("authkit: persisting verified profile: %w", err)
		}
	}
	m.auditEvent("verify_email", "success", "")
	return nil
}

// ResendVerification sends a fresh verification mail.
func (m *Manager) ResendVerification(ctx context.Context, email string) error {
	return m.api.ResendVerification(ctx, email)
}

// ForgotPassword starts the password reset flow.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	return m.api.ForgotPassword(ctx, email)
}

// ResetPassword completes the password reset flow.
func (m *Manager) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if err := m.api.ResetPassword(ctx, resetToken, newPassword); err != nil {
		m.auditEvent("reset_password", "failure", "")
		return err
	}
	m.auditEvent("reset_password", "success", "")
	return nil
}

// UpdateProfile merges display fields into the persisted profile. Role and
// verification state only change through their own server flows.
func (m *Manager) UpdateProfile(p Profile) error {
	s := m.Current()
	if s == nil {
		return ErrNoSession
	}

	next := s.Clone()
	if p.Username != "" {
		next.Profile.Username = p.Username
	}
	if p.Email != "" {
		next.Profile.Email = p.Email
	}
	if err := m.store.Write(next); err != nil {
		return fmt.Errorf("authkit: persisting profile update: %w", err)
	}
	return nil
}

func (m *Manager) record(fn func(Recorder)) {
	if m.metrics != nil {
		fn(m.metrics)
	}
}

func (m *Manager) auditEvent(action, result, details string) {
	if m.auditor != nil {
		m.auditor.Record(action, result, details)
	}
}

func failureReason(err error) string {
	switch {
	case IsCredentialError(err):
		return "credentials"
	case IsNetworkError(err):
		return "network"
	default:
		return "other"
	}
}
