// ABOUTME: Book catalog handlers behind the read/create/update/delete:books scopes
// ABOUTME: Payloads are validated with ozzo-validation before reaching the store

package gateway

import (
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/2389/shelf-gateway/internal/auth"
	"github.com/2389/shelf-gateway/internal/store"
)

// BookPayload is the JSON body of create and update.
type BookPayload struct {
	Title  string   `json:"title"`
	Author string   `json:"author"`
	Year   int      `json:"year"`
	Tags   []string `json:"tags"`
}

func (p BookPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Author, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Year, validation.Min(0), validation.Max(3000)),
		validation.Field(&p.Tags, validation.By(validTags)),
	)
}

func validTags(value interface{}) error {
	tags, _ := value.([]string)
	for _, tag := range tags {
		if tag == "" || len(tag) > 50 {
			return errors.New("each tag must be 1 to 50 characters")
		}
	}
	return nil
}

// BookView is the JSON shape of a book.
type BookView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Year      int       `json:"year,omitempty"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newBookView(b *store.Book) BookView {
	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}
	return BookView{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Year:      b.Year,
		Tags:      tags,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func decodeBookPayload(w http.ResponseWriter, r *http.Request) (*BookPayload, error) {
	var p BookPayload
	if err := decodeJSON(w, r, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, &auth.Error{Kind: auth.KindBadRequest, Reason: err.Error(), Err: err}
	}
	return &p, nil
}

func (g *Gateway) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := g.store.ListBooks(r.Context(), r.URL.Query()["tags"])
	if err != nil {
		g.writeError(w, err)
		return
	}

	views := make([]BookView, 0, len(books))
	for _, b := range books {
		views = append(views, newBookView(b))
	}
	writeData(w, http.StatusOK, views, "books listed")
}

func (g *Gateway) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := g.store.GetBook(r.Context(), r.PathValue("bookId"))
	if err != nil {
		g.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, newBookView(book), "book retrieved")
}

func (g *Gateway) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	p, err := decodeBookPayload(w, r)
	if err != nil {
		g.writeError(w, err)
		return
	}

	book := &store.Book{Title: p.Title, Author: p.Author, Year: p.Year, Tags: p.Tags}
	if err := g.store.CreateBook(r.Context(), book); err != nil {
		g.writeError(w, err)
		return
	}
	g.logger.Info("book created", "book_id", book.ID, "by", auth.MustFromContext(r.Context()).ID)
	writeData(w, http.StatusCreated, newBookView(book), "book created")
}

func (g *Gateway) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	p, err := decodeBookPayload(w, r)
	if err != nil {
		g.writeError(w, err)
		return
	}

	book, err := g.store.GetBook(r.Context(), r.PathValue("bookId"))
	if err != nil {
		g.writeError(w, err)
		return
	}
	book.Title, book.Author, book.Year, book.Tags = p.Title, p.Author, p.Year, p.Tags

	if err := g.store.UpdateBook(r.Context(), book); err != nil {
		g.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, newBookView(book), "book updated")
}

func (g *Gateway) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("bookId")
	if err := g.store.DeleteBook(r.Context(), id); err != nil {
		g.writeError(w, err)
		return
	}
	g.logger.Info("book deleted", "book_id", id, "by", auth.MustFromContext(r.Context()).ID)
	writeData(w, http.StatusOK, nil, "book deleted")
}
