package exchange

import "context"

type userKey struct{}

// WithUser returns a context carrying the authenticated exchange user.
// The transport layer is expected to set it before the handler runs.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom extracts the authenticated user set by WithUser.
func UserFrom(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(userKey{}).(string)
	return user, ok && user != ""
}
