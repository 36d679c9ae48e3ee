package authkit

import "context"

type ctxKey string

const (
	ctxKeyProfile ctxKey = "authkit_profile"
	ctxKeyRole    ctxKey = "authkit_role"
)

// WithProfile stores the authenticated profile in the context.
func WithProfile(ctx context.Context, p Profile) context.Context {
	return context.WithValue(ctx, ctxKeyProfile, p)
}

// ProfileFromContext extracts the authenticated profile from the context.
func ProfileFromContext(ctx context.Context) (Profile, bool) {
	p, ok := ctx.Value(ctxKeyProfile).(Profile)
	return p, ok
}

// WithRole stores the session role in the context.
func WithRole(ctx context.Context, r Role) context.Context {
	return context.WithValue(ctx, ctxKeyRole, r)
}

// RoleFromContext extracts the session role from the context.
func RoleFromContext(ctx context.Context) Role {
	r, _ := ctx.Value(ctxKeyRole).(Role)
	return r
}
