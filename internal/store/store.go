// ABOUTME: Store interfaces and data types for shelf-gateway persistence
// ABOUTME: Defines Identity, APIKey and Book plus the store contracts the auth core consumes

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when creating an identity whose email is already registered
var ErrDuplicateEmail = errors.New("email already exists")

// ErrDuplicateAPIKey is returned when provisioning an api key token that already exists
var ErrDuplicateAPIKey = errors.New("api key already exists")

// Identity is a registered account. PasswordHash never leaves the auth strategies.
type Identity struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string // unique, case-sensitive as stored
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// APIKey is a provisioning secret whose scopes are copied into issued tokens.
type APIKey struct {
	Token       string
	Scopes      []string // ordered, duplicates removed on write
	Description string
	CreatedAt   time.Time
}

// Book is a catalog entry served by the resource API.
type Book struct {
	ID        string
	Title     string
	Author    string
	Year      int
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserBook links an identity to a book on their shelf.
type UserBook struct {
	ID        string
	UserID    string
	BookID    string
	CreatedAt time.Time
}

// IdentityStore is the credential store used by the auth strategies and flows.
type IdentityStore interface {
	GetIdentity(ctx context.Context, id string) (*Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*Identity, error)

	// CreateIdentity inserts a new identity, returning ErrDuplicateEmail if the email is taken.
	// An empty ID is assigned by the store.
	CreateIdentity(ctx context.Context, identity *Identity) error

	// GetOrCreateIdentity atomically returns the identity registered under identity.Email,
	// inserting identity if none exists. Concurrent calls for the same email observe the
	// same stored row. created reports whether this call performed the insert.
	GetOrCreateIdentity(ctx context.Context, identity *Identity) (stored *Identity, created bool, err error)

	ListIdentities(ctx context.Context) ([]*Identity, error)
	SetIdentityAdmin(ctx context.Context, email string, isAdmin bool) error

	// UpdateIdentity overwrites the mutable fields of the identity with identity.ID.
	// Returns ErrNotFound or ErrDuplicateEmail.
	UpdateIdentity(ctx context.Context, identity *Identity) error

	// DeleteIdentity removes an identity and its shelf.
	DeleteIdentity(ctx context.Context, id string) error
}

// APIKeyStore holds pre-provisioned api keys. The auth core only reads from it.
type APIKeyStore interface {
	GetAPIKey(ctx context.Context, token string) (*APIKey, error)
	CreateAPIKey(ctx context.Context, key *APIKey) error
	ListAPIKeys(ctx context.Context) ([]*APIKey, error)
	DeleteAPIKey(ctx context.Context, token string) error
}

// BookStore persists the book catalog.
type BookStore interface {
	// ListBooks returns all books, or only those carrying at least one of tags when non-empty.
	ListBooks(ctx context.Context, tags []string) ([]*Book, error)
	GetBook(ctx context.Context, id string) (*Book, error)
	CreateBook(ctx context.Context, book *Book) error
	UpdateBook(ctx context.Context, book *Book) error
	DeleteBook(ctx context.Context, id string) error
}

// UserBookStore persists per-user shelves.
type UserBookStore interface {
	ListUserBooks(ctx context.Context, userID string) ([]*UserBook, error)

	// CreateUserBook returns ErrNotFound when the user or book does not exist.
	CreateUserBook(ctx context.Context, userBook *UserBook) error
	DeleteUserBook(ctx context.Context, id string) error
}

// Store is the full persistence surface of the gateway.
type Store interface {
	IdentityStore
	APIKeyStore
	BookStore
	UserBookStore

	// Ping reports whether the backing database is reachable
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}

// normalizeScopes drops empty and repeated scopes while keeping first-seen order.
func normalizeScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	seen := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
