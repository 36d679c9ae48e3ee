// Package rest implements the authkit.API contract against the Voyagio auth
// REST endpoints.
//
// All remote failures are converted at this boundary into the tagged error
// set of the root package: rejected login credentials become CredentialError,
// a rejected refresh token becomes RefreshExpiredError, 4xx validation
// replies become ValidationError and transport failures become NetworkError.
// Nothing duck-typed leaks past this package.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	authkit "github.com/voyagio/authkit-go"
)

// DefaultTimeout bounds every request unless a custom http.Client is set.
const DefaultTimeout = 10 * time.Second

// Client talks to the remote auth API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	validate   *validator.Validate
}

// compile-time check
var _ authkit.API = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithLogger sets a structured logger for request outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a client for the auth API at baseURL (the API origin,
// e.g. "https://api.voyagio.example").
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		validate:   newValidator(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// newValidator reports field errors under their JSON names so messages line
// up with what the form submitted.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Wire shapes.

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken   string `json:"accessToken"`
	RefreshToken  string `json:"refreshToken"`
	ExpiresIn     int    `json:"expiresIn"`
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"isEmailVerified"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Login exchanges credentials for a token pair and profile.
func (c *Client) Login(ctx context.Context, email, password string) (*authkit.Credentials, error) {
	if err := c.check(loginRequest{Email: email, Password: password}); err != nil {
		return nil, err
	}

	var resp loginResponse
	r, err := c.post(ctx, "/auth/login", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	if r.status == http.StatusUnauthorized {
		msg := r.message()
		if msg == "" {
			msg = "Invalid email or password."
		}
		return nil, &authkit.CredentialError{Message: msg}
	}
	if r.status != http.StatusOK {
		return nil, c.statusError("login", r)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, fmt.Errorf("authkit/rest: login reply missing tokens")
	}

	return &authkit.Credentials{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		Profile: authkit.Profile{
			ID:            resp.ID,
			Username:      resp.Username,
			Email:         resp.Email,
			Role:          authkit.Role(resp.Role),
			EmailVerified: resp.EmailVerified,
		},
	}, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, req authkit.RegisterRequest) error {
	if err := c.check(req); err != nil {
		return err
	}

	r, err := c.post(ctx, "/auth/register", req, nil)
	if err != nil {
		return err
	}
	if r.status != http.StatusCreated && r.status != http.StatusOK {
		return c.statusError("register", r)
	}
	return nil
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*authkit.TokenPair, error) {
	if refreshToken == "" {
		return nil, authkit.ErrNoRefreshToken
	}

	var resp refreshResponse
	r, err := c.post(ctx, "/auth/refresh-token", refreshRequest{RefreshToken: refreshToken}, &resp)
	if err != nil {
		return nil, err
	}
	if r.status == http.StatusUnauthorized {
		return nil, &authkit.RefreshExpiredError{Message: "refresh token expired or invalid"}
	}
	if r.status != http.StatusOK {
		return nil, c.statusError("refresh", r)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("authkit/rest: refresh reply missing access token")
	}

	return &authkit.TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}

// VerifyEmail confirms an email address using the mailed token.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return &authkit.ValidationError{Message: "verification token is required"}
	}

	r, err := c.get(ctx, "/auth/verify-email/"+url.PathEscape(token))
	if err != nil {
		return err
	}
	if r.status != http.StatusOK {
		return c.statusError("verify email", r)
	}
	return nil
}

// ResendVerification sends a fresh verification mail.
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	if err := c.check(emailRequest{Email: email}); err != nil {
		return err
	}

	r, err := c.post(ctx, "/auth/resend-verification", emailRequest{Email: email}, nil)
	if err != nil {
		return err
	}
	if r.status != http.StatusOK {
		return c.statusError("resend verification", r)
	}
	return nil
}

// ForgotPassword starts the password reset flow.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	if err := c.check(emailRequest{Email: email}); err != nil {
		return err
	}

	r, err := c.post(ctx, "/auth/forgot-password", emailRequest{Email: email}, nil)
	if err != nil {
		return err
	}
	if r.status != http.StatusOK {
		return c.statusError("forgot password", r)
	}
	return nil
}

// ResetPassword completes the password reset flow.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := c.check(resetRequest{Token: token, NewPassword: newPassword}); err != nil {
		return err
	}

	r, err := c.post(ctx, "/auth/reset-password", resetRequest{Token: token, NewPassword: newPassword}, nil)
	if err != nil {
		return err
	}
	if r.status != http.StatusOK {
		return c.statusError("reset password", r)
	}
	return nil
}

// check validates a request payload locally so obviously broken input never
// costs a round-trip.
func (c *Client) check(payload any) error {
	err := c.validate.Struct(payload)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("authkit/rest: validate: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &authkit.ValidationError{
		Message: "Please correct the highlighted fields.",
		Fields:  fields,
	}
}

// reply is an HTTP response reduced to what the error mapping needs.
type reply struct {
	status int
	body   []byte
}

// message extracts the server's {"message": ...} field, if any.
func (r reply) message() string {
	var er errorResponse
	if err := json.Unmarshal(r.body, &er); err != nil {
		return ""
	}
	return er.Message
}

func (r reply) decode(out any) error {
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("authkit/rest: decode reply: %w", err)
	}
	return nil
}

// post sends a JSON body and decodes a 200 reply into out when non-nil.
func (c *Client) post(ctx context.Context, path string, body, out any) (reply, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return reply{}, fmt.Errorf("authkit/rest: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return reply{}, fmt.Errorf("authkit/rest: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string) (reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return reply{}, fmt.Errorf("authkit/rest: create request: %w", err)
	}
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) (reply, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("auth request failed", "path", req.URL.Path, "error", err)
		return reply{}, &authkit.NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return reply{}, &authkit.NetworkError{Err: err}
	}

	c.logger.Debug("auth request",
		"path", req.URL.Path, "status", resp.StatusCode, "duration", time.Since(start))

	r := reply{status: resp.StatusCode, body: raw}
	if out != nil && r.status == http.StatusOK {
		if err := r.decode(out); err != nil {
			return r, err
		}
	}
	return r, nil
}

func (c *Client) statusError(op string, r reply) error {
	msg := r.message()
	switch r.status {
	case http.StatusBadRequest, http.StatusNotFound:
		if msg == "" {
			msg = "The request was rejected by the server."
		}
		return &authkit.ValidationError{Message: msg}
	default:
		return fmt.Errorf("authkit/rest: %s returned status %d: %s", op, r.status, msg)
	}
}
