// ABOUTME: Basic strategy verifying email and password from the Authorization header
// ABOUTME: Looks up the identity by email and checks the password via the hasher

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/2389/shelf-gateway/internal/store"
)

// BasicStrategy authenticates requests carrying HTTP basic credentials.
type BasicStrategy struct {
	identities IdentityLookup
	hasher     PasswordHasher
}

func NewBasicStrategy(identities IdentityLookup, hasher PasswordHasher) *BasicStrategy {
	return &BasicStrategy{
		identities: identities,
		hasher:     hasher,
	}
}

func (s *BasicStrategy) Name() string { return "basic" }

// Verify reads the basic credentials from r and authenticates them.
func (s *BasicStrategy) Verify(r *http.Request) (*VerifiedIdentity, error) {
	email, password, ok := r.BasicAuth()
	if !ok {
		return nil, Unauthorized("missing basic credentials")
	}
	return s.Authenticate(r.Context(), email, password)
}

// Authenticate checks email and password against the identity store.
func (s *BasicStrategy) Authenticate(ctx context.Context, email, password string) (*VerifiedIdentity, error) {
	identity, err := s.identities.GetIdentityByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, Unauthorized("identity not found")
	}
	if err != nil {
		return nil, fmt.Errorf("looking up identity: %w", err)
	}

	ok, err := s.hasher.Verify(password, identity.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return nil, Unauthorized("bad credentials")
	}

	return NewVerifiedIdentity(identity), nil
}
