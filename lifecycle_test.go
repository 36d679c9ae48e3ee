package authkit_test

import (
	"context"
	"testing"
	"time"

	authkit "github.com/voyagio/authkit-go"
	"github.com/voyagio/authkit-go/fake"
	"github.com/voyagio/authkit-go/store"
)

// Walks the whole account lifecycle through one manager: register, first
// login, email verification, password reset, and final logout.
func TestAccountLifecycle(t *testing.T) {
	api := fake.New(
		fake.WithVerificationToken("verify-1", "omar@example.com"),
		fake.WithResetToken("reset-1", "omar@example.com"),
	)
	m := newManager(t, store.NewMemory(), api)
	ctx := context.Background()

	err := m.Register(ctx, authkit.RegisterRequest{
		Username:        "omar",
		Email:           "omar@example.com",
		Password:        "first-password-1",
		ConfirmPassword: "first-password-1",
		Role:            authkit.RoleGuide,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if m.Current() != nil {
		t.Fatal("registration must not create a session")
	}

	res, err := m.Login(ctx, "omar@example.com", "first-password-1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.RequiresVerification {
		t.Error("fresh account should require verification")
	}
	if res.Role != authkit.RoleGuide {
		t.Errorf("Role = %q", res.Role)
	}

	if err := m.VerifyEmail(ctx, "verify-1"); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if !authkit.IsEmailVerified(m.Current()) {
		t.Error("session should be verified after VerifyEmail")
	}

	// Password reset happens logged out, like a user on a new device.
	if err := m.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := m.ForgotPassword(ctx, "omar@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if err := m.ResetPassword(ctx, "reset-1", "second-password-2"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	if _, err := m.Login(ctx, "omar@example.com", "first-password-1"); !authkit.IsCredentialError(err) {
		t.Errorf("old password should be rejected, got %v", err)
	}
	if _, err := m.Login(ctx, "omar@example.com", "second-password-2"); err != nil {
		t.Fatalf("login with reset password: %v", err)
	}

	s := m.Current()
	if !authkit.IsAuthenticated(s, time.Now()) {
		t.Fatal("should be authenticated after the final login")
	}
	if !authkit.HasRole(s, authkit.RoleGuide) {
		t.Error("guide role should be preserved across the lifecycle")
	}
}
