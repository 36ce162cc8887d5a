// Package auth resolves who the current caller is.
package auth

import "context"

// User is the identity service's view of a signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Identity resolves the current user. A nil user with a nil error means
// nobody is signed in.
type Identity interface {
	CurrentUser(ctx context.Context) (*User, error)
}

type contextKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFrom returns the user attached to ctx, if any.
func UserFrom(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(contextKey{}).(*User)
	return u, ok && u != nil
}

// ContextIdentity reads the user the auth middleware attached to the request.
type ContextIdentity struct{}

func (ContextIdentity) CurrentUser(ctx context.Context) (*User, error) {
	u, _ := UserFrom(ctx)
	return u, nil
}
