// ABOUTME: Per-user shelf handlers behind the user-books scopes
// ABOUTME: Non-admin callers can only see and change their own shelf

package gateway

import (
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/2389/shelf-gateway/internal/auth"
	"github.com/2389/shelf-gateway/internal/store"
)

// UserBookPayload is the JSON body of POST /api/user-books. UserID defaults to the caller.
type UserBookPayload struct {
	UserID string `json:"userId"`
	BookID string `json:"bookId"`
}

func (p UserBookPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.BookID, validation.Required),
	)
}

// UserBookView is the JSON shape of a shelf entry.
type UserBookView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	BookID    string    `json:"bookId"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserBookView(ub *store.UserBook) UserBookView {
	return UserBookView{ID: ub.ID, UserID: ub.UserID, BookID: ub.BookID, CreatedAt: ub.CreatedAt}
}

// shelfOwner resolves the user whose shelf is addressed. Empty means the caller.
func shelfOwner(actor *auth.VerifiedIdentity, requested string) (string, error) {
	if requested == "" || requested == actor.ID {
		return actor.ID, nil
	}
	if !actor.IsAdmin {
		return "", auth.Forbidden("cannot access another user's books")
	}
	return requested, nil
}

func (g *Gateway) handleListUserBooks(w http.ResponseWriter, r *http.Request) {
	owner, err := shelfOwner(auth.MustFromContext(r.Context()), r.URL.Query().Get("userId"))
	if err != nil {
		g.writeError(w, err)
		return
	}

	entries, err := g.store.ListUserBooks(r.Context(), owner)
	if err != nil {
		g.writeError(w, err)
		return
	}

	views := make([]UserBookView, 0, len(entries))
	for _, ub := range entries {
		views = append(views, newUserBookView(ub))
	}
	writeData(w, http.StatusOK, views, "user books listed")
}

func (g *Gateway) handleCreateUserBook(w http.ResponseWriter, r *http.Request) {
	var p UserBookPayload
	if err := decodeJSON(w, r, &p); err != nil {
		g.writeError(w, err)
		return
	}
	if err := p.Validate(); err != nil {
		g.writeError(w, &auth.Error{Kind: auth.KindBadRequest, Reason: err.Error(), Err: err})
		return
	}

	owner, err := shelfOwner(auth.MustFromContext(r.Context()), p.UserID)
	if err != nil {
		g.writeError(w, err)
		return
	}

	entry := &store.UserBook{UserID: owner, BookID: p.BookID}
	if err := g.store.CreateUserBook(r.Context(), entry); err != nil {
		g.writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, newUserBookView(entry), "user book created")
}

func (g *Gateway) handleDeleteUserBook(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustFromContext(r.Context())
	id := r.PathValue("userBookId")

	if !actor.IsAdmin {
		owned, err := g.ownsUserBook(r, actor.ID, id)
		if err != nil {
			g.writeError(w, err)
			return
		}
		if !owned {
			g.writeError(w, store.ErrNotFound)
			return
		}
	}

	if err := g.store.DeleteUserBook(r.Context(), id); err != nil {
		g.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, nil, "user book deleted")
}

func (g *Gateway) ownsUserBook(r *http.Request, userID, id string) (bool, error) {
	entries, err := g.store.ListUserBooks(r.Context(), userID)
	if err != nil {
		return false, err
	}
	for _, ub := range entries {
		if ub.ID == id {
			return true, nil
		}
	}
	return false, nil
}
