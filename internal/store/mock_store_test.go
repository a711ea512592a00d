// ABOUTME: Unit tests for MockStore to ensure behavior matches SQLiteStore
// ABOUTME: Focuses on duplicate detection, copy semantics and concurrent get-or-create

package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_CreateIdentity_Duplicate(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	require.NoError(t, store.CreateIdentity(ctx, newIdentity("a@x.com")))
	err := store.CreateIdentity(ctx, newIdentity("a@x.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, 1, store.IdentityCreates())
}

func TestMockStore_ReturnsCopies(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	require.NoError(t, store.CreateAPIKey(ctx, &APIKey{Token: "K1", Scopes: []string{"read"}}))

	key, err := store.GetAPIKey(ctx, "K1")
	require.NoError(t, err)
	key.Scopes[0] = "admin"

	again, err := store.GetAPIKey(ctx, "K1")
	require.NoError(t, err)
	assert.Equal(t, []string{"read"}, again.Scopes, "mutating a returned key must not affect the store")
}

func TestMockStore_GetOrCreate_Concurrent(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	const callers = 16
	ids := make(chan string, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, _, err := store.GetOrCreateIdentity(ctx, newIdentity("race@x.com"))
			if err == nil {
				ids <- stored.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	var first string
	count := 0
	for id := range ids {
		if first == "" {
			first = id
		}
		assert.Equal(t, first, id)
		count++
	}
	assert.Equal(t, callers, count)
	assert.Equal(t, 1, store.IdentityCreates())
}

func TestMockStore_ListBooksByTag(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	require.NoError(t, store.CreateBook(ctx, &Book{Title: "A", Author: "a", Tags: []string{"scifi"}}))
	require.NoError(t, store.CreateBook(ctx, &Book{Title: "B", Author: "b", Tags: []string{"fantasy"}}))

	books, err := store.ListBooks(ctx, []string{"fantasy"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "B", books[0].Title)
}

func TestMockStore_UpdateAndDeleteIdentity(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	identity := newIdentity("a@x.com")
	require.NoError(t, store.CreateIdentity(ctx, identity))
	require.NoError(t, store.CreateIdentity(ctx, newIdentity("b@x.com")))

	identity.Email = "b@x.com"
	assert.ErrorIs(t, store.UpdateIdentity(ctx, identity), ErrDuplicateEmail)

	identity.Email = "c@x.com"
	require.NoError(t, store.UpdateIdentity(ctx, identity))
	_, err := store.GetIdentityByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := store.GetIdentityByEmail(ctx, "c@x.com")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, got.ID)

	book := &Book{Title: "Dune", Author: "Herbert"}
	require.NoError(t, store.CreateBook(ctx, book))
	require.NoError(t, store.CreateUserBook(ctx, &UserBook{UserID: identity.ID, BookID: book.ID}))

	require.NoError(t, store.DeleteIdentity(ctx, identity.ID))
	shelf, err := store.ListUserBooks(ctx, identity.ID)
	require.NoError(t, err)
	assert.Empty(t, shelf)
	assert.ErrorIs(t, store.DeleteIdentity(ctx, identity.ID), ErrNotFound)
}
