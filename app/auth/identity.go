package auth

import "context"

// Identity describes the caller of a request. The blog has a single kind of
// authenticated user, the admin, so Authenticated doubles as "is admin".
type Identity struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"-"`
}

// Anonymous is the identity of every caller without a valid session.
func Anonymous() Identity {
	return Identity{}
}

func (i Identity) IsAdmin() bool {
	return i.Authenticated
}

type contextKey struct{}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// FromContext returns the identity stored in ctx, or Anonymous.
func FromContext(ctx context.Context) Identity {
	if identity, ok := ctx.Value(contextKey{}).(Identity); ok {
		return identity
	}
	return Anonymous()
}
