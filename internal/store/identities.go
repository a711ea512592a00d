// ABOUTME: Identity persistence for the SQLite store
// ABOUTME: Includes the single-statement get-or-create used by provider sign-in

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const identityColumns = `id, first_name, last_name, email, password_hash, is_admin, created_at, updated_at`

// CreateIdentity inserts a new identity.
// Returns ErrDuplicateEmail if the email is already registered.
func (s *SQLiteStore) CreateIdentity(ctx context.Context, identity *Identity) error {
	prepareIdentity(identity)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (`+identityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		identity.ID,
		identity.FirstName,
		identity.LastName,
		identity.Email,
		identity.PasswordHash,
		identity.IsAdmin,
		formatTime(identity.CreatedAt),
		formatTime(identity.UpdatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting identity: %w", err)
	}

	s.logger.Debug("created identity", "id", identity.ID)
	return nil
}

// GetOrCreateIdentity inserts identity unless its email is already registered, then reads
// the stored row back by email. The UNIQUE(email) constraint makes the insert the only
// point of mutual exclusion: racing callers all read the same row.
func (s *SQLiteStore) GetOrCreateIdentity(ctx context.Context, identity *Identity) (*Identity, bool, error) {
	candidate := *identity
	prepareIdentity(&candidate)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (`+identityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO NOTHING
	`,
		candidate.ID,
		candidate.FirstName,
		candidate.LastName,
		candidate.Email,
		candidate.PasswordHash,
		candidate.IsAdmin,
		formatTime(candidate.CreatedAt),
		formatTime(candidate.UpdatedAt),
	)
	if err != nil {
		return nil, false, fmt.Errorf("upserting identity: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("reading upsert result: %w", err)
	}

	stored, err := s.GetIdentityByEmail(ctx, candidate.Email)
	if err != nil {
		return nil, false, err
	}

	if affected == 1 {
		s.logger.Debug("created identity via get-or-create", "id", stored.ID)
	}
	return stored, affected == 1, nil
}

// GetIdentity retrieves an identity by ID.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = ?`, id)
	return scanIdentity(row)
}

// GetIdentityByEmail retrieves an identity by its exact email.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetIdentityByEmail(ctx context.Context, email string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = ?`, email)
	return scanIdentity(row)
}

// ListIdentities returns all identities ordered by creation time.
func (s *SQLiteStore) ListIdentities(ctx context.Context) ([]*Identity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying identities: %w", err)
	}
	defer rows.Close()

	var identities []*Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating identities: %w", err)
	}

	return identities, nil
}

// SetIdentityAdmin updates the admin flag of the identity registered under email.
func (s *SQLiteStore) SetIdentityAdmin(ctx context.Context, email string, isAdmin bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE identities SET is_admin = ?, updated_at = ? WHERE email = ?
	`, isAdmin, formatTime(time.Now()), email)
	if err != nil {
		return fmt.Errorf("updating identity: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading update result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateIdentity rewrites names, email, password hash and admin flag by ID.
func (s *SQLiteStore) UpdateIdentity(ctx context.Context, identity *Identity) error {
	identity.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE identities
		SET first_name = ?, last_name = ?, email = ?, password_hash = ?, is_admin = ?, updated_at = ?
		WHERE id = ?
	`,
		identity.FirstName,
		identity.LastName,
		identity.Email,
		identity.PasswordHash,
		identity.IsAdmin,
		formatTime(identity.UpdatedAt),
		identity.ID,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("updating identity: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading update result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteIdentity removes an identity. Shelf entries go with it via ON DELETE CASCADE.
func (s *SQLiteStore) DeleteIdentity(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting identity: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted identity", "id", id)
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*Identity, error) {
	var identity Identity
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&identity.ID,
		&identity.FirstName,
		&identity.LastName,
		&identity.Email,
		&identity.PasswordHash,
		&identity.IsAdmin,
		&createdAtStr,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning identity: %w", err)
	}

	if identity.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	if identity.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return nil, err
	}

	return &identity, nil
}

// prepareIdentity fills in store-assigned fields.
func prepareIdentity(identity *Identity) {
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = now
	}
	if identity.UpdatedAt.IsZero() {
		identity.UpdatedAt = identity.CreatedAt
	}
}
