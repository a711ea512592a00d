// ABOUTME: User management behind the read/create/update/delete:users scopes
// ABOUTME: Views are built field by field so password hashes never serialize

package gateway

import (
	"errors"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/2389/shelf-gateway/internal/auth"
	"github.com/2389/shelf-gateway/internal/store"
)

// CreateUserPayload is the body of POST /api/users.
type CreateUserPayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	IsAdmin   bool   `json:"isAdmin"`
}

func (p CreateUserPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FirstName, validation.Required, validation.Length(3, 100)),
		validation.Field(&p.LastName, validation.Required, validation.Length(3, 100)),
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(4, 0)),
	)
}

// UpdateUserPayload is the body of PUT /api/users/{userId}. Absent fields are left unchanged.
type UpdateUserPayload struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	IsAdmin   *bool   `json:"isAdmin"`
}

func (p UpdateUserPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FirstName, validation.By(notBlank), validation.Length(3, 100)),
		validation.Field(&p.LastName, validation.By(notBlank), validation.Length(3, 100)),
		validation.Field(&p.Email, validation.By(notBlank), is.Email),
		validation.Field(&p.Password, validation.By(notBlank), validation.Length(4, 0)),
	)
}

// notBlank rejects a field that is present but empty.
func notBlank(value interface{}) error {
	if s, ok := value.(*string); ok && s != nil && strings.TrimSpace(*s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

// apply copies the present fields onto identity, hashing a new password.
func (p UpdateUserPayload) apply(identity *store.Identity, hasher auth.PasswordHasher) error {
	if p.FirstName != nil {
		identity.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		identity.LastName = *p.LastName
	}
	if p.Email != nil {
		identity.Email = *p.Email
	}
	if p.IsAdmin != nil {
		identity.IsAdmin = *p.IsAdmin
	}
	if p.Password != nil {
		hash, err := hasher.Hash(*p.Password)
		if err != nil {
			return err
		}
		identity.PasswordHash = hash
	}
	return nil
}

// UserView is the directory projection of an identity.
type UserView struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserView(identity *store.Identity) UserView {
	return UserView{
		ID:        identity.ID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Email:     identity.Email,
		IsAdmin:   identity.IsAdmin,
		CreatedAt: identity.CreatedAt,
	}
}

func (g *Gateway) handleListUsers(w http.ResponseWriter, r *http.Request) {
	identities, err := g.store.ListIdentities(r.Context())
	if err != nil {
		g.writeError(w, err)
		return
	}

	views := make([]UserView, 0, len(identities))
	for _, identity := range identities {
		views = append(views, newUserView(identity))
	}
	writeData(w, http.StatusOK, views, "users listed")
}

func (g *Gateway) handleGetUser(w http.ResponseWriter, r *http.Request) {
	identity, err := g.store.GetIdentity(r.Context(), r.PathValue("userId"))
	if err != nil {
		g.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, newUserView(identity), "user retrieved")
}

// requireAdminToGrant stops non-admin callers from handing out the admin flag.
func requireAdminToGrant(r *http.Request, grants bool) error {
	if grants && !auth.MustFromContext(r.Context()).IsAdmin {
		return auth.Forbidden("only admins can grant admin")
	}
	return nil
}

func (g *Gateway) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var p CreateUserPayload
	if err := decodeJSON(w, r, &p); err != nil {
		g.writeError(w, err)
		return
	}
	if err := p.Validate(); err != nil {
		g.writeError(w, &auth.Error{Kind: auth.KindBadRequest, Reason: err.Error(), Err: err})
		return
	}
	if err := requireAdminToGrant(r, p.IsAdmin); err != nil {
		g.writeError(w, err)
		return
	}

	hash, err := g.hasher.Hash(p.Password)
	if err != nil {
		g.writeError(w, err)
		return
	}

	identity := &store.Identity{
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Email:        p.Email,
		PasswordHash: hash,
		IsAdmin:      p.IsAdmin,
	}
	if err := g.store.CreateIdentity(r.Context(), identity); err != nil {
		g.writeError(w, err)
		return
	}
	g.logger.Info("user created", "identity_id", identity.ID, "by", auth.MustFromContext(r.Context()).ID)
	writeData(w, http.StatusCreated, newUserView(identity), "user created")
}

func (g *Gateway) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var p UpdateUserPayload
	if err := decodeJSON(w, r, &p); err != nil {
		g.writeError(w, err)
		return
	}
	if err := p.Validate(); err != nil {
		g.writeError(w, &auth.Error{Kind: auth.KindBadRequest, Reason: err.Error(), Err: err})
		return
	}
	if err := requireAdminToGrant(r, p.IsAdmin != nil); err != nil {
		g.writeError(w, err)
		return
	}

	identity, err := g.store.GetIdentity(r.Context(), r.PathValue("userId"))
	if err != nil {
		g.writeError(w, err)
		return
	}
	if err := p.apply(identity, g.hasher); err != nil {
		g.writeError(w, err)
		return
	}
	if err := g.store.UpdateIdentity(r.Context(), identity); err != nil {
		g.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, newUserView(identity), "user updated")
}

func (g *Gateway) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("userId")
	if err := g.store.DeleteIdentity(r.Context(), id); err != nil {
		g.writeError(w, err)
		return
	}
	g.logger.Info("user deleted", "identity_id", id, "by", auth.MustFromContext(r.Context()).ID)
	writeData(w, http.StatusOK, nil, "user deleted")
}
