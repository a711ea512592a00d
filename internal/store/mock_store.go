// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu         sync.RWMutex
	identities map[string]*Identity // keyed by ID
	byEmail    map[string]string    // keyed by email -> identity ID
	apiKeys    map[string]*APIKey   // keyed by token
	books      map[string]*Book     // keyed by ID
	userBooks  map[string]*UserBook // keyed by ID

	// creates counts successful identity inserts, for asserting at-most-once creation
	creates int
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		identities: make(map[string]*Identity),
		byEmail:    make(map[string]string),
		apiKeys:    make(map[string]*APIKey),
		books:      make(map[string]*Book),
		userBooks:  make(map[string]*UserBook),
	}
}

// IdentityCreates returns how many identities have been inserted.
func (m *MockStore) IdentityCreates() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creates
}

// CreateIdentity stores a new identity.
func (m *MockStore) CreateIdentity(ctx context.Context, identity *Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[identity.Email]; exists {
		return ErrDuplicateEmail
	}
	prepareIdentity(identity)
	m.insertIdentityLocked(identity)
	return nil
}

// GetOrCreateIdentity returns the identity for identity.Email, inserting it if absent.
func (m *MockStore) GetOrCreateIdentity(ctx context.Context, identity *Identity) (*Identity, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, exists := m.byEmail[identity.Email]; exists {
		stored := *m.identities[id]
		return &stored, false, nil
	}

	candidate := *identity
	prepareIdentity(&candidate)
	m.insertIdentityLocked(&candidate)

	stored := candidate
	return &stored, true, nil
}

func (m *MockStore) insertIdentityLocked(identity *Identity) {
	// Make a copy to avoid external modification
	i := *identity
	m.identities[i.ID] = &i
	m.byEmail[i.Email] = i.ID
	m.creates++
}

// GetIdentity retrieves an identity by ID.
func (m *MockStore) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.identities[id]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy
	result := *i
	return &result, nil
}

// GetIdentityByEmail retrieves an identity by email.
func (m *MockStore) GetIdentityByEmail(ctx context.Context, email string) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}

	result := *m.identities[id]
	return &result, nil
}

// ListIdentities returns all identities ordered by creation time.
func (m *MockStore) ListIdentities(ctx context.Context) ([]*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Identity, 0, len(m.identities))
	for _, i := range m.identities {
		c := *i
		result = append(result, &c)
	}
	sort.Slice(result, func(a, b int) bool {
		if result[a].CreatedAt.Equal(result[b].CreatedAt) {
			return result[a].ID < result[b].ID
		}
		return result[a].CreatedAt.Before(result[b].CreatedAt)
	})
	return result, nil
}

// SetIdentityAdmin updates the admin flag for email.
func (m *MockStore) SetIdentityAdmin(ctx context.Context, email string, isAdmin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return ErrNotFound
	}
	m.identities[id].IsAdmin = isAdmin
	m.identities[id].UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateIdentity replaces the mutable fields of an existing identity.
func (m *MockStore) UpdateIdentity(ctx context.Context, identity *Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.identities[identity.ID]
	if !ok {
		return ErrNotFound
	}
	if owner, taken := m.byEmail[identity.Email]; taken && owner != identity.ID {
		return ErrDuplicateEmail
	}

	identity.CreatedAt = current.CreatedAt
	identity.UpdatedAt = time.Now().UTC()
	delete(m.byEmail, current.Email)

	i := *identity
	m.identities[i.ID] = &i
	m.byEmail[i.Email] = i.ID
	return nil
}

// DeleteIdentity removes an identity and its shelf entries.
func (m *MockStore) DeleteIdentity(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.identities[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byEmail, current.Email)
	delete(m.identities, id)

	for ubID, ub := range m.userBooks {
		if ub.UserID == id {
			delete(m.userBooks, ubID)
		}
	}
	return nil
}

// CreateAPIKey stores a new api key.
func (m *MockStore) CreateAPIKey(ctx context.Context, key *APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.apiKeys[key.Token]; exists {
		return ErrDuplicateAPIKey
	}
	key.Scopes = normalizeScopes(key.Scopes)
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}

	k := *key
	k.Scopes = append([]string(nil), key.Scopes...)
	m.apiKeys[k.Token] = &k
	return nil
}

// GetAPIKey retrieves an api key by token.
func (m *MockStore) GetAPIKey(ctx context.Context, token string) (*APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k, ok := m.apiKeys[token]
	if !ok {
		return nil, ErrNotFound
	}

	result := *k
	result.Scopes = append([]string(nil), k.Scopes...)
	return &result, nil
}

// ListAPIKeys returns all api keys ordered by creation time.
func (m *MockStore) ListAPIKeys(ctx context.Context) ([]*APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*APIKey, 0, len(m.apiKeys))
	for _, k := range m.apiKeys {
		c := *k
		c.Scopes = append([]string(nil), k.Scopes...)
		result = append(result, &c)
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].CreatedAt.Before(result[b].CreatedAt)
	})
	return result, nil
}

// DeleteAPIKey removes an api key.
func (m *MockStore) DeleteAPIKey(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.apiKeys[token]; !ok {
		return ErrNotFound
	}
	delete(m.apiKeys, token)
	return nil
}

// CreateBook stores a new book.
func (m *MockStore) CreateBook(ctx context.Context, book *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if book.ID == "" {
		book.ID = uuid.New().String()
	}
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now().UTC()
	}
	book.UpdatedAt = book.CreatedAt
	if book.Tags == nil {
		book.Tags = []string{}
	}

	m.books[book.ID] = copyBook(book)
	return nil
}

// GetBook retrieves a book by ID.
func (m *MockStore) GetBook(ctx context.Context, id string) (*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyBook(b), nil
}

// ListBooks returns books carrying any of tags (all books when tags is empty).
func (m *MockStore) ListBooks(ctx context.Context, tags []string) ([]*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*Book{}
	for _, b := range m.books {
		if len(tags) > 0 && !hasAnyTag(b.Tags, tags) {
			continue
		}
		result = append(result, copyBook(b))
	}
	sort.Slice(result, func(a, b int) bool {
		if result[a].CreatedAt.Equal(result[b].CreatedAt) {
			return result[a].ID < result[b].ID
		}
		return result[a].CreatedAt.Before(result[b].CreatedAt)
	})
	return result, nil
}

// UpdateBook replaces an existing book.
func (m *MockStore) UpdateBook(ctx context.Context, book *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.books[book.ID]; !ok {
		return ErrNotFound
	}
	book.UpdatedAt = time.Now().UTC()
	m.books[book.ID] = copyBook(book)
	return nil
}

// DeleteBook removes a book.
func (m *MockStore) DeleteBook(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.books[id]; !ok {
		return ErrNotFound
	}
	delete(m.books, id)
	for ubID, ub := range m.userBooks {
		if ub.BookID == id {
			delete(m.userBooks, ubID)
		}
	}
	return nil
}

// ListUserBooks returns the shelf of userID, oldest first.
func (m *MockStore) ListUserBooks(ctx context.Context, userID string) ([]*UserBook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*UserBook{}
	for _, ub := range m.userBooks {
		if ub.UserID == userID {
			c := *ub
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(a, b int) bool {
		if result[a].CreatedAt.Equal(result[b].CreatedAt) {
			return result[a].ID < result[b].ID
		}
		return result[a].CreatedAt.Before(result[b].CreatedAt)
	})
	return result, nil
}

// CreateUserBook adds a book to a user's shelf.
func (m *MockStore) CreateUserBook(ctx context.Context, userBook *UserBook) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.identities[userBook.UserID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.books[userBook.BookID]; !ok {
		return ErrNotFound
	}
	if userBook.ID == "" {
		userBook.ID = uuid.New().String()
	}
	if userBook.CreatedAt.IsZero() {
		userBook.CreatedAt = time.Now().UTC()
	}

	c := *userBook
	m.userBooks[c.ID] = &c
	return nil
}

// DeleteUserBook removes a shelf entry.
func (m *MockStore) DeleteUserBook(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.userBooks[id]; !ok {
		return ErrNotFound
	}
	delete(m.userBooks, id)
	return nil
}

// Ping always succeeds.
func (m *MockStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}

func copyBook(b *Book) *Book {
	c := *b
	c.Tags = append([]string{}, b.Tags...)
	return &c
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
