// ABOUTME: Generation of api key tokens handed out by the provisioning tools
// ABOUTME: Tokens are random, URL safe and carry a recognizable prefix

package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// APIKeyPrefix marks generated api key tokens so they are easy to spot in config and logs.
const APIKeyPrefix = "shk_"

// NewAPIKeyToken returns a fresh api key token with 192 bits of randomness.
func NewAPIKeyToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating api key token: %w", err)
	}
	return APIKeyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}
