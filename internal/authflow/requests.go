// ABOUTME: Request payloads accepted by the auth flows and their validation rules
// ABOUTME: Validation failures surface as BadRequest before any store access

package authflow

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/2389/shelf-gateway/internal/auth"
)

// SignInRequest is the JSON body of sign-in. Credentials travel in the basic auth header.
type SignInRequest struct {
	APIKeyToken string `json:"apiKeyToken"`
}

func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.APIKeyToken, validation.Required),
	)
}

// AccountRequest is the JSON body of sign-up and sign-provider.
type AccountRequest struct {
	APIKeyToken string `json:"apiKeyToken"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

func (r AccountRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.APIKeyToken, validation.Required),
		validation.Field(&r.FirstName, validation.Required, validation.Length(3, 100)),
		validation.Field(&r.LastName, validation.Required, validation.Length(3, 100)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(4, 0)),
	)
}

// Validate runs v.Validate and classifies a failure as BadRequest.
func Validate(v validation.Validatable) error {
	if err := v.Validate(); err != nil {
		return &auth.Error{Kind: auth.KindBadRequest, Reason: err.Error(), Err: err}
	}
	return nil
}
