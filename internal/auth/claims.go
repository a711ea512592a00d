// ABOUTME: Signed token payload carrying identity fields and api key scopes
// ABOUTME: isAdmin is a pointer so flows can omit it from the encoded claims

package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of every issued token.
type Claims struct {
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	IsAdmin   *bool    `json:"isAdmin,omitempty"`
	Scopes    []string `json:"scopes"`
	jwt.RegisteredClaims
}

// HasScope reports whether the claims grant scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}
