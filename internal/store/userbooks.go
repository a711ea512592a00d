// ABOUTME: Per-user shelf persistence for the SQLite store
// ABOUTME: Foreign keys tie entries to identities and books and cascade on delete

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ListUserBooks returns the shelf of userID, oldest first.
func (s *SQLiteStore) ListUserBooks(ctx context.Context, userID string) ([]*UserBook, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, book_id, created_at
		FROM user_books
		WHERE user_id = ?
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user books: %w", err)
	}
	defer rows.Close()

	result := []*UserBook{}
	for rows.Next() {
		var ub UserBook
		var createdAtStr string
		if err := rows.Scan(&ub.ID, &ub.UserID, &ub.BookID, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning user book: %w", err)
		}
		if ub.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
			return nil, err
		}
		result = append(result, &ub)
	}
	return result, rows.Err()
}

// CreateUserBook adds a book to a user's shelf.
// Returns ErrNotFound if the user or the book does not exist.
func (s *SQLiteStore) CreateUserBook(ctx context.Context, userBook *UserBook) error {
	if userBook.ID == "" {
		userBook.ID = uuid.New().String()
	}
	if userBook.CreatedAt.IsZero() {
		userBook.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_books (id, user_id, book_id, created_at)
		VALUES (?, ?, ?, ?)
	`, userBook.ID, userBook.UserID, userBook.BookID, formatTime(userBook.CreatedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("inserting user book: %w", err)
	}
	return nil
}

// DeleteUserBook removes a shelf entry by ID.
func (s *SQLiteStore) DeleteUserBook(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user book: %w", err)
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
