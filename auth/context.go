package auth

import "context"

// contextKey keeps auth context values out of collision range.
type contextKey int

const userKey contextKey = iota

// WithUser returns a new context with the given user attached.
func WithUser(ctx context.Context, user *AuthenticatedUser) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the authenticated user from the context.
func UserFromContext(ctx context.Context) (*AuthenticatedUser, bool) {
	user, ok := ctx.Value(userKey).(*AuthenticatedUser)
	return user, ok
}
