// Package ginmw provides Gin route guards backed by a running
// authkit.Manager. The guards gate rendering the same way the manager's
// gate functions do: every decision is computed from the current session
// snapshot, so a cross-instance logout takes effect on the next request.
//
// These guards are a UX boundary, not a security one. The backing service
// still authorizes every call it receives.
package ginmw

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	authkit "github.com/voyagio/authkit-go"
)

// Context keys for storing session data in gin.Context.
const (
	KeyProfile = "authkit_profile"
	KeyRole    = "authkit_role"
)

// RequireSession returns middleware that rejects requests while no
// authenticated session exists. On success it stores the profile in both
// the gin context and the request context.
func RequireSession(m *authkit.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := m.Current()
		if !authkit.IsAuthenticated(s, time.Now()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		stash(c, s)
		c.Next()
	}
}

// RequireVerified returns middleware that additionally demands a confirmed
// email address. Unverified sessions get 403 with a hint the UI can act on.
func RequireVerified(m *authkit.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := m.Current()
		if !authkit.IsAuthenticated(s, time.Now()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		if !authkit.IsEmailVerified(s) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":                 "email not verified",
				"requires_verification": true,
			})
			return
		}

		stash(c, s)
		c.Next()
	}
}

// RequireRole returns middleware that demands one of the given roles.
// Admin passes every role check.
func RequireRole(m *authkit.Manager, roles ...authkit.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := m.Current()
		if !authkit.IsAuthenticated(s, time.Now()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		if !authkit.HasRole(s, roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}

		stash(c, s)
		c.Next()
	}
}

// GetProfile returns the authenticated profile from the Gin context.
func GetProfile(c *gin.Context) (authkit.Profile, bool) {
	v, ok := c.Get(KeyProfile)
	if !ok {
		return authkit.Profile{}, false
	}
	p, ok := v.(authkit.Profile)
	return p, ok
}

// GetRole returns the session role from the Gin context.
func GetRole(c *gin.Context) authkit.Role {
	v, _ := c.Get(KeyRole)
	r, _ := v.(authkit.Role)
	return r
}

func stash(c *gin.Context, s *authkit.Session) {
	c.Set(KeyProfile, s.Profile)
	c.Set(KeyRole, s.Profile.Role)

	ctx := authkit.WithProfile(c.Request.Context(), s.Profile)
	ctx = authkit.WithRole(ctx, s.Profile.Role)
	c.Request = c.Request.WithContext(ctx)
}
