// ABOUTME: Book catalog persistence for the SQLite store
// ABOUTME: Tag filtering matches any requested tag via json_each

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const bookColumns = `id, title, author, year, tags_json, created_at, updated_at`

// CreateBook inserts a book, assigning an ID when empty.
func (s *SQLiteStore) CreateBook(ctx context.Context, book *Book) error {
	if book.ID == "" {
		book.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt
	if book.Tags == nil {
		book.Tags = []string{}
	}

	tagsJSON, err := json.Marshal(book.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, book.ID, book.Title, book.Author, book.Year, string(tagsJSON),
		formatTime(book.CreatedAt), formatTime(book.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting book: %w", err)
	}

	s.logger.Debug("created book", "id", book.ID)
	return nil
}

// GetBook retrieves a book by ID.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetBook(ctx context.Context, id string) (*Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	return scanBook(row)
}

// ListBooks returns books ordered by creation, filtered to those carrying any of tags.
func (s *SQLiteStore) ListBooks(ctx context.Context, tags []string) ([]*Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books`
	args := make([]any, 0, len(tags))

	if len(tags) > 0 {
		placeholders := make([]string, len(tags))
		for i, tag := range tags {
			placeholders[i] = "?"
			args = append(args, tag)
		}
		query += ` WHERE EXISTS (
			SELECT 1 FROM json_each(books.tags_json)
			WHERE json_each.value IN (` + strings.Join(placeholders, ", ") + `)
		)`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying books: %w", err)
	}
	defer rows.Close()

	books := []*Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating books: %w", err)
	}

	return books, nil
}

// UpdateBook replaces the mutable fields of an existing book.
func (s *SQLiteStore) UpdateBook(ctx context.Context, book *Book) error {
	book.UpdatedAt = time.Now().UTC()
	if book.Tags == nil {
		book.Tags = []string{}
	}

	tagsJSON, err := json.Marshal(book.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET title = ?, author = ?, year = ?, tags_json = ?, updated_at = ?
		WHERE id = ?
	`, book.Title, book.Author, book.Year, string(tagsJSON), formatTime(book.UpdatedAt), book.ID)
	if err != nil {
		return fmt.Errorf("updating book: %w", err)
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

// DeleteBook removes a book by ID.
func (s *SQLiteStore) DeleteBook(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting book: %w", err)
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

func scanBook(row rowScanner) (*Book, error) {
	var book Book
	var tagsJSON, createdAtStr, updatedAtStr string

	err := row.Scan(&book.ID, &book.Title, &book.Author, &book.Year, &tagsJSON, &createdAtStr, &updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning book: %w", err)
	}

	if err := json.Unmarshal([]byte(tagsJSON), &book.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if book.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	if book.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return nil, err
	}

	return &book, nil
}
