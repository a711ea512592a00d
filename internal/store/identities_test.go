// ABOUTME: Tests for identity persistence in the SQLite store
// ABOUTME: Covers create, duplicate email, case-sensitive lookup and concurrent get-or-create

package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdentity(email string) *Identity {
	return &Identity{
		FirstName:    "Ana",
		LastName:     "Lopez",
		Email:        email,
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplaceho",
	}
}

func TestIdentityStore_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	identity := newIdentity("a@x.com")
	require.NoError(t, store.CreateIdentity(ctx, identity))
	require.NotEmpty(t, identity.ID, "store should assign an ID")

	byID, err := store.GetIdentity(ctx, identity.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)
	assert.Equal(t, "Ana", byID.FirstName)
	assert.False(t, byID.IsAdmin)
	assert.Equal(t, identity.PasswordHash, byID.PasswordHash)

	byEmail, err := store.GetIdentityByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, byEmail.ID)
}

func TestIdentityStore_CreateDuplicateEmail(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateIdentity(ctx, newIdentity("a@x.com")))

	err := store.CreateIdentity(ctx, newIdentity("a@x.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	identities, err := store.ListIdentities(ctx)
	require.NoError(t, err)
	assert.Len(t, identities, 1)
}

func TestIdentityStore_EmailIsCaseSensitive(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateIdentity(ctx, newIdentity("a@x.com")))

	_, err := store.GetIdentityByEmail(ctx, "A@X.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIdentityStore_GetNotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetIdentity(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetIdentityByEmail(ctx, "missing@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIdentityStore_GetOrCreate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, created, err := store.GetOrCreateIdentity(ctx, newIdentity("p@x.com"))
	require.NoError(t, err)
	assert.True(t, created)

	again := newIdentity("p@x.com")
	again.FirstName = "Someone Else"
	second, created, err := store.GetOrCreateIdentity(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ana", second.FirstName, "existing row must not be overwritten")
}

func TestIdentityStore_GetOrCreate_Concurrent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	const callers = 8
	ids := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stored, _, err := store.GetOrCreateIdentity(ctx, newIdentity("race@x.com"))
			errs[i] = err
			if err == nil {
				ids[i] = stored.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i], "all callers should observe the same identity")
	}

	identities, err := store.ListIdentities(ctx)
	require.NoError(t, err)
	assert.Len(t, identities, 1)
}

func TestIdentityStore_SetAdmin(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateIdentity(ctx, newIdentity("a@x.com")))
	require.NoError(t, store.SetIdentityAdmin(ctx, "a@x.com", true))

	identity, err := store.GetIdentityByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, identity.IsAdmin)

	err = store.SetIdentityAdmin(ctx, "nobody@x.com", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIdentityStore_Update(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	identity := newIdentity("a@x.com")
	require.NoError(t, store.CreateIdentity(ctx, identity))
	other := newIdentity("b@x.com")
	require.NoError(t, store.CreateIdentity(ctx, other))

	identity.FirstName = "Anabel"
	identity.Email = "anabel@x.com"
	identity.IsAdmin = true
	require.NoError(t, store.UpdateIdentity(ctx, identity))

	got, err := store.GetIdentity(ctx, identity.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anabel", got.FirstName)
	assert.Equal(t, "anabel@x.com", got.Email)
	assert.True(t, got.IsAdmin)

	_, err = store.GetIdentityByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrNotFound)

	identity.Email = "b@x.com"
	assert.ErrorIs(t, store.UpdateIdentity(ctx, identity), ErrDuplicateEmail)

	assert.ErrorIs(t, store.UpdateIdentity(ctx, &Identity{ID: "missing", Email: "c@x.com"}), ErrNotFound)
}

func TestIdentityStore_DeleteCascadesShelf(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	identity := newIdentity("a@x.com")
	require.NoError(t, store.CreateIdentity(ctx, identity))
	book := &Book{Title: "Dune", Author: "Herbert"}
	require.NoError(t, store.CreateBook(ctx, book))
	require.NoError(t, store.CreateUserBook(ctx, &UserBook{UserID: identity.ID, BookID: book.ID}))

	require.NoError(t, store.DeleteIdentity(ctx, identity.ID))

	_, err := store.GetIdentity(ctx, identity.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	shelf, err := store.ListUserBooks(ctx, identity.ID)
	require.NoError(t, err)
	assert.Empty(t, shelf)

	assert.ErrorIs(t, store.DeleteIdentity(ctx, identity.ID), ErrNotFound)
}
