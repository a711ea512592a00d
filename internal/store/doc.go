// Package store provides persistent storage for the gateway using SQLite.
//
// # Architecture
//
// The store package exposes narrow interfaces that consumers depend on:
//
//   - IdentityStore: registered accounts, lookup by id or email, get-or-create
//   - APIKeyStore: pre-provisioned api keys and their scope sets
//   - BookStore: the book catalog served by the resource API
//
// SQLiteStore implements all of them in a single struct. RedisAPIKeyStore is an
// alternative APIKeyStore for deployments that provision keys in Redis.
//
// # Get-or-create
//
// GetOrCreateIdentity is the only place where concurrent writers for the same
// email meet. SQLite resolves it with a UNIQUE(email) column and
//
//	INSERT ... ON CONFLICT(email) DO NOTHING
//
// followed by a read by email, so racing callers all observe one row.
//
// # SQLite Configuration
//
// Pragmas are applied per connection through the DSN:
//
//	busy_timeout(5000), foreign_keys(1), journal_mode(WAL)
//
// Use NewSQLiteStore(":memory:") for a throwaway database pinned to one connection.
//
// # Errors
//
//   - ErrNotFound: requested entity does not exist
//   - ErrDuplicateEmail: email already registered
//   - ErrDuplicateAPIKey: api key token already provisioned
//
// # Testing
//
// Use NewMockStore() for unit tests of code that consumes the store interfaces.
package store
