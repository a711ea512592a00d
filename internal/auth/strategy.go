// ABOUTME: Pluggable request verification shared by the basic and bearer strategies
// ABOUTME: VerifiedIdentity is the hash-free identity handed to flows and handlers

package auth

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/2389/shelf-gateway/internal/store"
)

// Strategy verifies the actor behind a request.
type Strategy interface {
	Name() string
	Verify(r *http.Request) (*VerifiedIdentity, error)
}

// IdentityLookup is the subset of the identity store the strategies need.
type IdentityLookup interface {
	GetIdentityByEmail(ctx context.Context, email string) (*store.Identity, error)
}

// VerifiedIdentity is an identity that passed a strategy. It has no password
// hash field, so nothing downstream can leak one.
type VerifiedIdentity struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	IsAdmin   bool

	// Set by the bearer strategy from the presented token.
	Scopes        []string
	TokenIssuedAt time.Time
}

// HasScope reports whether the identity's token granted scope.
func (v *VerifiedIdentity) HasScope(scope string) bool {
	return slices.Contains(v.Scopes, scope)
}

// NewVerifiedIdentity copies the public fields of a stored identity.
func NewVerifiedIdentity(identity *store.Identity) *VerifiedIdentity {
	return &VerifiedIdentity{
		ID:        identity.ID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Email:     identity.Email,
		IsAdmin:   identity.IsAdmin,
	}
}
