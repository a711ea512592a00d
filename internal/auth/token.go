// ABOUTME: Token issuance and verification with HS256 signed JWTs
// ABOUTME: Every token lives exactly TokenLifetime; callers cannot change it

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenLifetime is the fixed validity window of every issued token.
const TokenLifetime = 15 * time.Minute

// MinSecretLength is the minimum HS256 secret size in bytes.
const MinSecretLength = 32

// Token errors
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token expired")
	ErrMissingClaim   = errors.New("missing required claim")
	ErrSecretTooShort = fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
)

// TokenIssuer signs and parses tokens with a shared secret.
type TokenIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenIssuer validates the secret and returns an issuer. issuer may be empty,
// in which case the iss claim is neither set nor checked.
func NewTokenIssuer(secret []byte, issuer string) (*TokenIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	return &TokenIssuer{
		secret: secret,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// Issue mints a token for subject carrying scopes. The admin flag is only
// encoded when includeAdmin is set.
func (i *TokenIssuer) Issue(subject *VerifiedIdentity, scopes []string, includeAdmin bool) (string, error) {
	return i.sign(subject, scopes, includeAdmin, i.now())
}

// Reissue mints a replacement for a token that was just verified. It keeps
// the presented scopes and always expires strictly later than the presented token.
func (i *TokenIssuer) Reissue(actor *VerifiedIdentity) (string, error) {
	issuedAt := i.now().Truncate(time.Second)
	// iat has second granularity; two tokens in the same second would share exp
	if !actor.TokenIssuedAt.IsZero() && !issuedAt.After(actor.TokenIssuedAt) {
		issuedAt = actor.TokenIssuedAt.Add(time.Second)
	}
	return i.sign(actor, actor.Scopes, true, issuedAt)
}

func (i *TokenIssuer) sign(subject *VerifiedIdentity, scopes []string, includeAdmin bool, issuedAt time.Time) (string, error) {
	if scopes == nil {
		scopes = []string{}
	}

	claims := Claims{
		FirstName: subject.FirstName,
		LastName:  subject.LastName,
		Email:     subject.Email,
		Scopes:    scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.ID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(TokenLifetime)),
			ID:        uuid.NewString(),
		},
	}
	if includeAdmin {
		isAdmin := subject.IsAdmin
		claims.IsAdmin = &isAdmin
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature and expiry and returns the decoded claims.
func (i *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: email", ErrMissingClaim)
	}
	return claims, nil
}
