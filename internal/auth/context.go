// ABOUTME: Authentication context for tracking identity through request handlers
// ABOUTME: Provides WithAuth/FromContext for propagating the verified identity via context

package auth

import (
	"context"
)

// authContextKey is the key type for storing the identity in context.Context.
type authContextKey struct{}

// WithAuth returns a new context with the verified identity attached.
func WithAuth(ctx context.Context, identity *VerifiedIdentity) context.Context {
	return context.WithValue(ctx, authContextKey{}, identity)
}

// FromContext retrieves the verified identity, returning nil if not present.
func FromContext(ctx context.Context) *VerifiedIdentity {
	identity, _ := ctx.Value(authContextKey{}).(*VerifiedIdentity)
	return identity
}

// MustFromContext retrieves the verified identity, panicking if not present.
func MustFromContext(ctx context.Context) *VerifiedIdentity {
	identity := FromContext(ctx)
	if identity == nil {
		panic("auth: identity not found in context")
	}
	return identity
}
