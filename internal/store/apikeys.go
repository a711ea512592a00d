// ABOUTME: API key persistence for the SQLite store
// ABOUTME: Scopes are kept as an ordered JSON array

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CreateAPIKey provisions a new api key.
// Returns ErrDuplicateAPIKey if the token is already in use.
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, key *APIKey) error {
	key.Scopes = normalizeScopes(key.Scopes)
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}

	scopesJSON, err := json.Marshal(key.Scopes)
	if err != nil {
		return fmt.Errorf("encoding scopes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO api_keys (token, scopes_json, description, created_at)
		VALUES (?, ?, ?, ?)
	`, key.Token, string(scopesJSON), key.Description, formatTime(key.CreatedAt))
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateAPIKey
		}
		return fmt.Errorf("inserting api key: %w", err)
	}

	s.logger.Debug("created api key", "scopes", key.Scopes)
	return nil
}

// GetAPIKey looks up an api key by its token.
// Returns ErrNotFound if no such key is provisioned.
func (s *SQLiteStore) GetAPIKey(ctx context.Context, token string) (*APIKey, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, scopes_json, description, created_at
		FROM api_keys
		WHERE token = ?
	`, token)
	return scanAPIKey(row)
}

// ListAPIKeys returns all provisioned keys, oldest first.
func (s *SQLiteStore) ListAPIKeys(ctx context.Context) ([]*APIKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, scopes_json, description, created_at
		FROM api_keys
		ORDER BY created_at, token
	`)
	if err != nil {
		return nil, fmt.Errorf("querying api keys: %w", err)
	}
	defer rows.Close()

	var keys []*APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating api keys: %w", err)
	}

	return keys, nil
}

// DeleteAPIKey removes an api key. Tokens already minted with its scopes stay valid.
func (s *SQLiteStore) DeleteAPIKey(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("deleting api key: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAPIKey(row rowScanner) (*APIKey, error) {
	var key APIKey
	var scopesJSON, createdAtStr string

	err := row.Scan(&key.Token, &scopesJSON, &key.Description, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning api key: %w", err)
	}

	if err := json.Unmarshal([]byte(scopesJSON), &key.Scopes); err != nil {
		return nil, fmt.Errorf("decoding scopes: %w", err)
	}
	if key.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}

	return &key, nil
}
