package authkit

import "time"

// Gate functions derive UI gating decisions from a session snapshot. They are
// pure: no I/O, no caching. Consumers recompute them on every store change
// so the gate never drifts from the actual session state. None of these are a
// security boundary; the server enforces authorization on every call.

// IsAuthenticated reports whether the session is present and its access token
// has not expired by its decoded claim.
func IsAuthenticated(s *Session, now time.Time) bool {
	return s.Valid() && s.ExpiresAt.After(now)
}

// IsEmailVerified reports whether the session's email address is confirmed.
func IsEmailVerified(s *Session) bool {
	return s != nil && s.Profile.EmailVerified
}

// HasRole reports whether the session's role matches any of the given roles.
// Admin satisfies every check regardless of the requested role.
func HasRole(s *Session, roles ...Role) bool {
	if s == nil {
		return false
	}
	if s.Profile.Role == RoleAdmin {
		return true
	}
	for _, r := range roles {
		if s.Profile.Role == r {
			return true
		}
	}
	return false
}
