// ABOUTME: Bearer strategy verifying signed tokens from the Authorization header
// ABOUTME: Re-resolves the identity by email and keeps the scopes frozen in the token

package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/2389/shelf-gateway/internal/store"
)

// BearerStrategy authenticates requests carrying a token minted by TokenIssuer.
type BearerStrategy struct {
	issuer     *TokenIssuer
	identities IdentityLookup
}

func NewBearerStrategy(issuer *TokenIssuer, identities IdentityLookup) *BearerStrategy {
	return &BearerStrategy{
		issuer:     issuer,
		identities: identities,
	}
}

func (s *BearerStrategy) Name() string { return "bearer" }

func (s *BearerStrategy) Verify(r *http.Request) (*VerifiedIdentity, error) {
	token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
	if errMsg != "" {
		return nil, Unauthorized(errMsg)
	}

	claims, err := s.issuer.Parse(token)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, &Error{Kind: KindUnauthorized, Reason: "token expired", Err: err}
		}
		return nil, &Error{Kind: KindUnauthorized, Reason: "invalid token", Err: err}
	}

	// Claims may be stale; the stored identity is authoritative for everything but scopes.
	identity, err := s.identities.GetIdentityByEmail(r.Context(), claims.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, Unauthorized("identity not found")
	}
	if err != nil {
		return nil, fmt.Errorf("looking up identity: %w", err)
	}
	if identity.ID != claims.Subject {
		return nil, Unauthorized("identity not found")
	}

	verified := NewVerifiedIdentity(identity)
	verified.Scopes = claims.Scopes
	if claims.IssuedAt != nil {
		verified.TokenIssuedAt = claims.IssuedAt.Time
	}
	return verified, nil
}
