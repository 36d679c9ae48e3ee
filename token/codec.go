// Package token decodes the unverified claims of an access token.
//
// Decoding is a local parse used for scheduling and UI gating only; no
// signature verification happens here. Any security decision based on token
// contents must be re-validated server-side.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields extracted from a token payload.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	Email     string
	Role      string
}

// DecodeError reports a token that could not be parsed. It is returned (never
// panicked) for any malformed input, including attacker-controlled strings.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authkit/token: decode failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authkit/token: decode failed: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses the claims of a three-segment base64url token without
// verifying its signature. A missing exp claim is an error: every scheduling
// decision depends on it.
func Decode(tokenString string) (*Claims, error) {
	parser := jwt.NewParser()

	parsed, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, &DecodeError{Reason: "malformed token", Err: err}
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, &DecodeError{Reason: "unexpected claims payload"}
	}

	exp, ok := mapClaims["exp"].(float64)
	if !ok {
		return nil, &DecodeError{Reason: "missing exp claim"}
	}

	c := &Claims{ExpiresAt: time.Unix(int64(exp), 0)}
	if v, ok := mapClaims["sub"].(string); ok {
		c.Subject = v
	}
	if v, ok := mapClaims["email"].(string); ok {
		c.Email = v
	}
	if v, ok := mapClaims["role"].(string); ok {
		c.Role = v
	}
	return c, nil
}
