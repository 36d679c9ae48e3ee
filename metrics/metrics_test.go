package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDisabledIsNoop(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(false, reg)

	// Must not panic on nil collectors.
	m.LoginAttempt(true, "")
	m.LoginAttempt(false, "invalid_credentials")
	m.RefreshCompleted("success")
	m.LogoutCompleted()

	if n := testutil.CollectAndCount(reg); n != 0 {
		t.Errorf("disabled metrics registered %d series, want 0", n)
	}
}

func TestLoginAttempt(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(true, reg)

	m.LoginAttempt(true, "")
	m.LoginAttempt(false, "invalid_credentials")
	m.LoginAttempt(false, "invalid_credentials")
	m.LoginAttempt(false, "network")

	if got := testutil.ToFloat64(m.loginsTotal); got != 1 {
		t.Errorf("logins_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.loginFailuresTotal.WithLabelValues("invalid_credentials")); got != 2 {
		t.Errorf("login_failures_total{invalid_credentials} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.loginFailuresTotal.WithLabelValues("network")); got != 1 {
		t.Errorf("login_failures_total{network} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.sessionActive); got != 1 {
		t.Errorf("session_active = %v, want 1 after a successful login", got)
	}
}

func TestRefreshAndLogoutDriveSessionGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(true, reg)

	m.LoginAttempt(true, "")
	m.RefreshCompleted("success")
	m.RefreshCompleted("adopted")

	if got := testutil.ToFloat64(m.sessionActive); got != 1 {
		t.Fatalf("session_active = %v after successful refreshes, want 1", got)
	}

	m.RefreshCompleted("failed")
	if got := testutil.ToFloat64(m.sessionActive); got != 0 {
		t.Errorf("session_active = %v after failed refresh, want 0", got)
	}

	m.LoginAttempt(true, "")
	m.LogoutCompleted()
	if got := testutil.ToFloat64(m.sessionActive); got != 0 {
		t.Errorf("session_active = %v after logout, want 0", got)
	}
	if got := testutil.ToFloat64(m.logoutsTotal); got != 1 {
		t.Errorf("logouts_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.refreshesTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("refreshes_total{success} = %v, want 1", got)
	}
}
