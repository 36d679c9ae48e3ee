package authkit

import (
	"testing"
	"time"
)

func gateSession(role Role, verified bool, expiresIn time.Duration) *Session {
	return &Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(expiresIn),
		Profile: Profile{
			ID:            "user-1",
			Username:      "mina",
			Email:         "mina@example.com",
			Role:          role,
			EmailVerified: verified,
		},
	}
}

func TestIsAuthenticated_ValidSession(t *testing.T) {
	s := gateSession(RoleTourist, true, time.Hour)
	if !IsAuthenticated(s, time.Now()) {
		t.Error("fresh session should be authenticated")
	}
}

func TestIsAuthenticated_NilSession(t *testing.T) {
	if IsAuthenticated(nil, time.Now()) {
		t.Error("nil session should not be authenticated")
	}
}

func TestIsAuthenticated_ExpiredSession(t *testing.T) {
	s := gateSession(RoleTourist, true, -time.Minute)
	if IsAuthenticated(s, time.Now()) {
		t.Error("expired session should not be authenticated")
	}
}

func TestIsAuthenticated_PartialSession(t *testing.T) {
	s := &Session{AccessToken: "access", ExpiresAt: time.Now().Add(time.Hour)}
	if IsAuthenticated(s, time.Now()) {
		t.Error("partial session should not be authenticated")
	}
}

func TestIsEmailVerified(t *testing.T) {
	if IsEmailVerified(nil) {
		t.Error("nil session should not be verified")
	}
	if IsEmailVerified(gateSession(RoleTourist, false, time.Hour)) {
		t.Error("unverified session should report false")
	}
	if !IsEmailVerified(gateSession(RoleTourist, true, time.Hour)) {
		t.Error("verified session should report true")
	}
}

func TestHasRole_ExactMatch(t *testing.T) {
	s := gateSession(RoleGuide, true, time.Hour)

	if !HasRole(s, RoleGuide) {
		t.Error("guide should satisfy a guide check")
	}
	if HasRole(s, RoleTourist) {
		t.Error("guide should not satisfy a tourist check")
	}
}

func TestHasRole_AnyOfList(t *testing.T) {
	s := gateSession(RoleTourist, true, time.Hour)

	if !HasRole(s, RoleGuide, RoleTourist) {
		t.Error("tourist should satisfy [guide, tourist]")
	}
	if HasRole(s, RoleGuide, RoleAdmin) {
		t.Error("tourist should not satisfy [guide, admin]")
	}
}

// Admin passes every role check. This is the classic source of authorization
// bugs, so it gets its own test.
func TestHasRole_AdminSuperuserRule(t *testing.T) {
	s := gateSession(RoleAdmin, true, time.Hour)

	if !HasRole(s, RoleGuide) {
		t.Error("admin should satisfy a guide check")
	}
	if !HasRole(s, RoleTourist) {
		t.Error("admin should satisfy a tourist check")
	}
	if !HasRole(s) {
		t.Error("admin should satisfy an empty role check")
	}
}

func TestHasRole_NilSession(t *testing.T) {
	if HasRole(nil, RoleTourist) {
		t.Error("nil session should not satisfy any role check")
	}
}
