// Package auth provides credential verification and token issuance for shelf-gateway.
//
// # Strategies
//
// Requests are verified by a Strategy selected per route:
//
//   - basic: email and password from the Authorization: Basic header, checked
//     against the identity store through a PasswordHasher (bcrypt).
//
//   - bearer: a token from the Authorization: Bearer header. The signature and
//     expiry are checked, then the identity is re-read by the token's email so
//     deleted or changed accounts stop authenticating. Scopes come from the token.
//
// Both produce a VerifiedIdentity, which has no password hash field.
//
// # Tokens
//
// TokenIssuer signs HS256 JWTs with a shared secret of at least 32 bytes:
//
//	issuer, err := NewTokenIssuer(secret, "shelf-gateway")
//	token, err := issuer.Issue(identity, apiKey.Scopes, true)
//	claims, err := issuer.Parse(token)
//
// Every token expires TokenLifetime (15 minutes) after issue. Reissue refreshes
// a verified bearer identity and always expires later than the presented token.
//
// # HTTP
//
// Authenticate(strategy, logger) wraps a handler with a strategy and stores the
// identity in the request context (FromContext). RequireScopes and RequireAdmin
// gate routes that are already authenticated. Failures are classified by Kind
// and rendered by WriteError as {"error": reason, "statusCode": N}.
package auth
