// ABOUTME: Tests for the admin CLI commands against the in-memory store
// ABOUTME: Checks key provisioning, revocation and admin promotion output

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/shelf-gateway/internal/store"
)

func newTestStores() (stores, *store.MockStore) {
	s := store.NewMockStore()
	return stores{identities: s, apiKeys: s}, s
}

func TestKeysCreateListRevoke(t *testing.T) {
	ctx := context.Background()
	st, mock := newTestStores()
	var out bytes.Buffer

	require.NoError(t, dispatch(ctx, &out, st, "keys", []string{"create", "--scopes", "read:books,create:books", "--description", "ci"}))
	assert.Contains(t, out.String(), "Created api key")

	keys, err := mock.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, []string{"read:books", "create:books"}, keys[0].Scopes)
	assert.Contains(t, out.String(), keys[0].Token)

	out.Reset()
	require.NoError(t, dispatch(ctx, &out, st, "keys", []string{"list"}))
	assert.Contains(t, out.String(), "read:books,create:books")
	assert.NotContains(t, out.String(), keys[0].Token, "listing masks tokens")

	out.Reset()
	require.NoError(t, dispatch(ctx, &out, st, "keys", []string{"revoke", keys[0].Token}))
	_, err = mock.GetAPIKey(ctx, keys[0].Token)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = dispatch(ctx, &out, st, "keys", []string{"revoke", keys[0].Token})
	assert.ErrorContains(t, err, "no api key")
}

func TestKeysCreate_RequiresScopes(t *testing.T) {
	st, _ := newTestStores()
	err := dispatch(context.Background(), &bytes.Buffer{}, st, "keys", []string{"create"})
	assert.ErrorContains(t, err, "usage")
}

func TestUsersPromoteDemote(t *testing.T) {
	ctx := context.Background()
	st, mock := newTestStores()
	require.NoError(t, mock.CreateIdentity(ctx, &store.Identity{FirstName: "Ana", LastName: "Lopez", Email: "a@x.com", PasswordHash: "$2a$04$x"}))

	var out bytes.Buffer
	require.NoError(t, dispatch(ctx, &out, st, "users", []string{"promote", "a@x.com"}))
	identity, err := mock.GetIdentityByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, identity.IsAdmin)

	out.Reset()
	require.NoError(t, dispatch(ctx, &out, st, "users", nil))
	assert.Contains(t, out.String(), "a@x.com")
	assert.Contains(t, out.String(), "yes")
	assert.NotContains(t, out.String(), "$2a$")

	require.NoError(t, dispatch(ctx, &out, st, "users", []string{"demote", "a@x.com"}))
	identity, err = mock.GetIdentityByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, identity.IsAdmin)

	err = dispatch(ctx, &out, st, "users", []string{"promote", "nobody@x.com"})
	assert.ErrorContains(t, err, "no identity")
}

func TestDispatch_Unknown(t *testing.T) {
	st, _ := newTestStores()
	err := dispatch(context.Background(), &bytes.Buffer{}, st, "frobnicate", nil)
	assert.ErrorContains(t, err, "unknown command")

	err = dispatch(context.Background(), &bytes.Buffer{}, st, "keys", []string{"rotate"})
	assert.True(t, strings.Contains(err.Error(), "unknown keys subcommand"))
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", maskToken("short"))
	assert.Equal(t, "shk_abcd…yz", maskToken("shk_abcdefghijklmnopqrstuvwxyz"))
}
