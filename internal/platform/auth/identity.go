package auth

import (
	"context"
	"strings"
)

type contextKey string

const identityContextKey contextKey = "github.com/nutriform/api/internal/platform/auth/identity"

// Identity captures the authenticated principal extracted from a verified
// Firebase ID token. A request without an Identity is a guest.
type Identity struct {
	UID   string
	Email string
	Name  string
}

// Valid reports whether the identity carries a usable subject.
func (i *Identity) Valid() bool {
	return i != nil && strings.TrimSpace(i.UID) != ""
}

// WithIdentity stores the identity on the request context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity when one was attached.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
