// ABOUTME: Orchestrates sign-in, sign-up, sign-provider and verify-token
// ABOUTME: Cross-checks the api key token and mints tokens through the issuer

package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/shelf-gateway/internal/auth"
	"github.com/2389/shelf-gateway/internal/store"
)

// APIKeyLookup is the read side of the api key store.
type APIKeyLookup interface {
	GetAPIKey(ctx context.Context, token string) (*store.APIKey, error)
}

// Controller runs the four auth flows.
type Controller struct {
	identities store.IdentityStore
	apiKeys    APIKeyLookup
	hasher     auth.PasswordHasher
	issuer     *auth.TokenIssuer
	logger     *slog.Logger
}

func NewController(identities store.IdentityStore, apiKeys APIKeyLookup, hasher auth.PasswordHasher, issuer *auth.TokenIssuer, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		identities: identities,
		apiKeys:    apiKeys,
		hasher:     hasher,
		issuer:     issuer,
		logger:     logger.With("component", "authflow"),
	}
}

// SignIn mints a token for an actor already verified by the basic strategy.
func (c *Controller) SignIn(ctx context.Context, actor *auth.VerifiedIdentity, req SignInRequest) (*Result, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, auth.Unauthorized("not authenticated")
	}

	key, err := c.resolveAPIKey(ctx, req.APIKeyToken)
	if err != nil {
		return nil, err
	}

	return c.mint(actor, key.Scopes, true, MessageSignIn)
}

// SignUp registers a new non-admin identity and mints its first token.
// The identity is kept even when the api key check fails afterwards.
func (c *Controller) SignUp(ctx context.Context, req AccountRequest) (*Result, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	_, err := c.identities.GetIdentityByEmail(ctx, req.Email)
	if err == nil {
		return nil, auth.Unauthorized("email already exists")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	hash, err := c.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	identity := &store.Identity{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		IsAdmin:      false,
	}
	if err := c.identities.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, auth.Unauthorized("email already exists")
		}
		return nil, fmt.Errorf("creating identity: %w", err)
	}
	c.logger.Info("identity created", "identity_id", identity.ID)

	key, err := c.resolveAPIKey(ctx, req.APIKeyToken)
	if err != nil {
		c.logger.Warn("identity created without token", "identity_id", identity.ID, "reason", err)
		return nil, err
	}

	return c.mint(auth.NewVerifiedIdentity(identity), key.Scopes, true, MessageSignUp)
}

// SignProvider gets or creates the identity for req.Email and mints a token
// without the admin claim. The store serializes concurrent creates.
func (c *Controller) SignProvider(ctx context.Context, req AccountRequest) (*Result, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	hash, err := c.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	stored, created, err := c.identities.GetOrCreateIdentity(ctx, &store.Identity{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, fmt.Errorf("provisioning identity: %w", err)
	}
	if created {
		c.logger.Info("identity created by provider", "identity_id", stored.ID)
	}

	key, err := c.resolveAPIKey(ctx, req.APIKeyToken)
	if err != nil {
		return nil, err
	}

	return c.mint(auth.NewVerifiedIdentity(stored), key.Scopes, false, MessageSignProvider)
}

// VerifyToken refreshes a token for an actor verified by the bearer strategy.
// The presented scopes are carried over without consulting the api key store.
func (c *Controller) VerifyToken(ctx context.Context, actor *auth.VerifiedIdentity) (*Result, error) {
	if actor == nil {
		return nil, auth.Unauthorized("not authenticated")
	}

	token, err := c.issuer.Reissue(actor)
	if err != nil {
		return nil, err
	}
	return &Result{
		Token:   token,
		User:    newUserView(actor, true),
		Message: MessageVerifyToken,
	}, nil
}

func (c *Controller) resolveAPIKey(ctx context.Context, token string) (*store.APIKey, error) {
	key, err := c.apiKeys.GetAPIKey(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, auth.Unauthorized("invalid api key token")
	}
	if err != nil {
		return nil, fmt.Errorf("looking up api key: %w", err)
	}
	return key, nil
}

func (c *Controller) mint(identity *auth.VerifiedIdentity, scopes []string, includeAdmin bool, message string) (*Result, error) {
	token, err := c.issuer.Issue(identity, scopes, includeAdmin)
	if err != nil {
		return nil, err
	}
	return &Result{
		Token:   token,
		User:    newUserView(identity, includeAdmin),
		Message: message,
	}, nil
}
