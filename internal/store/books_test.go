// ABOUTME: Tests for book catalog persistence in the SQLite store
// ABOUTME: Covers CRUD and any-tag filtering

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookStore_CRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	book := &Book{Title: "Dune", Author: "Frank Herbert", Year: 1965, Tags: []string{"scifi"}}
	require.NoError(t, store.CreateBook(ctx, book))
	require.NotEmpty(t, book.ID)

	got, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, 1965, got.Year)
	assert.Equal(t, []string{"scifi"}, got.Tags)

	got.Title = "Dune Messiah"
	got.Tags = []string{"scifi", "sequel"}
	require.NoError(t, store.UpdateBook(ctx, got))

	updated, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, []string{"scifi", "sequel"}, updated.Tags)

	require.NoError(t, store.DeleteBook(ctx, book.ID))
	_, err = store.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookStore_UpdateAndDeleteMissing(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.UpdateBook(ctx, &Book{ID: "missing", Title: "x", Author: "y"}), ErrNotFound)
	assert.ErrorIs(t, store.DeleteBook(ctx, "missing"), ErrNotFound)
}

func TestBookStore_ListByTags(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	books := []*Book{
		{Title: "A", Author: "a", Tags: []string{"scifi"}, CreatedAt: base},
		{Title: "B", Author: "b", Tags: []string{"fantasy"}, CreatedAt: base.Add(time.Second)},
		{Title: "C", Author: "c", Tags: []string{"scifi", "classic"}, CreatedAt: base.Add(2 * time.Second)},
		{Title: "D", Author: "d", CreatedAt: base.Add(3 * time.Second)},
	}
	for _, b := range books {
		require.NoError(t, store.CreateBook(ctx, b))
	}

	all, err := store.ListBooks(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "A", all[0].Title)

	scifi, err := store.ListBooks(ctx, []string{"scifi"})
	require.NoError(t, err)
	require.Len(t, scifi, 2)
	assert.Equal(t, "A", scifi[0].Title)
	assert.Equal(t, "C", scifi[1].Title)

	either, err := store.ListBooks(ctx, []string{"fantasy", "classic"})
	require.NoError(t, err)
	assert.Len(t, either, 2)

	none, err := store.ListBooks(ctx, []string{"horror"})
	require.NoError(t, err)
	assert.Empty(t, none)
}
