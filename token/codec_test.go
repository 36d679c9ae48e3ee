package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

func TestDecode_Success(t *testing.T) {
	exp := time.Now().Add(1 * time.Hour).Truncate(time.Second)
	signed := mintToken(t, jwt.MapClaims{
		"sub":   "user-42",
		"exp":   exp.Unix(),
		"email": "mina@example.com",
		"role":  "guide",
	})

	claims, err := Decode(signed)

	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "user-42")
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt, exp)
	}
	if claims.Email != "mina@example.com" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.Role != "guide" {
		t.Errorf("Role = %q, want guide", claims.Role)
	}
}

func TestDecode_ExpiredTokenStillDecodes(t *testing.T) {
	// An expired token is still a valid parse; expiry decisions belong to
	// the caller.
	exp := time.Now().Add(-1 * time.Hour).Truncate(time.Second)
	signed := mintToken(t, jwt.MapClaims{"sub": "user-1", "exp": exp.Unix()})

	claims, err := Decode(signed)

	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt, exp)
	}
}

func TestDecode_NotAJWT(t *testing.T) {
	_, err := Decode("not-a-jwt")

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}
}

func TestDecode_WrongSegmentCount(t *testing.T) {
	_, err := Decode("one.two")

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}
}

func TestDecode_InvalidBase64Payload(t *testing.T) {
	_, err := Decode("eyJhbGciOiJIUzI1NiJ9.!!!not-base64!!!.sig")

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}
}

func TestDecode_MissingExpClaim(t *testing.T) {
	signed := mintToken(t, jwt.MapClaims{"sub": "user-7"})

	_, err := Decode(signed)

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}
	if de.Reason != "missing exp claim" {
		t.Errorf("Reason = %q, want %q", de.Reason, "missing exp claim")
	}
}

func TestDecode_EmptyString(t *testing.T) {
	if _, err := Decode(""); err == nil {
		t.Fatal("expected error for empty token")
	}
}
