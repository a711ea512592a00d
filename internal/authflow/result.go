// ABOUTME: Outward response shape of every auth flow
// ABOUTME: Built only from VerifiedIdentity so no password hash can appear

package authflow

import "github.com/2389/shelf-gateway/internal/auth"

// Messages returned with each flow's result
const (
	MessageSignIn       = "token issued"
	MessageSignUp       = "user created"
	MessageSignProvider = "token updated"
	MessageVerifyToken  = "token verified"
)

// UserView is the public projection of an identity.
type UserView struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	IsAdmin   *bool  `json:"isAdmin,omitempty"`
}

// Result is returned by every flow.
type Result struct {
	Token   string   `json:"token"`
	User    UserView `json:"user"`
	Message string   `json:"message"`
}

func newUserView(identity *auth.VerifiedIdentity, includeAdmin bool) UserView {
	view := UserView{
		ID:        identity.ID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Email:     identity.Email,
	}
	if includeAdmin {
		isAdmin := identity.IsAdmin
		view.IsAdmin = &isAdmin
	}
	return view
}
