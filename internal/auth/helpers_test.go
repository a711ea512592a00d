// ABOUTME: Shared fixtures for auth tests
// ABOUTME: Fast bcrypt hasher, fixed-clock issuer and a seeded MockStore

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/shelf-gateway/internal/store"
)

// testSecret is a 32-byte secret that meets MinSecretLength requirement.
var testSecret = []byte("shelf-gateway-test-secret-32byte")

func newTestHasher() *BcryptHasher {
	return NewBcryptHasher(bcrypt.MinCost)
}

// testClock is a settable clock for the issuer.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestIssuer(t *testing.T) (*TokenIssuer, *testClock) {
	t.Helper()
	issuer, err := NewTokenIssuer(testSecret, "shelf-test")
	require.NoError(t, err)

	clock := &testClock{now: time.Now().Truncate(time.Second)}
	issuer.now = clock.Now
	return issuer, clock
}

func seedIdentity(t *testing.T, s *store.MockStore, email, password string, isAdmin bool) *store.Identity {
	t.Helper()
	hash, err := newTestHasher().Hash(password)
	require.NoError(t, err)

	identity := &store.Identity{
		FirstName:    "Ana",
		LastName:     "Lopez",
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
	}
	require.NoError(t, s.CreateIdentity(context.Background(), identity))
	return identity
}
