// ABOUTME: HTTP handlers for sign-in, sign-up, sign-provider and verify-token
// ABOUTME: Each flow has one fixed success status; failures go through the auth error taxonomy

package gateway

import (
	"context"
	"net/http"

	"github.com/2389/shelf-gateway/internal/auth"
	"github.com/2389/shelf-gateway/internal/authflow"
)

type signInKey struct{}

// decodeSignIn parses and validates the sign-in body before credentials are checked.
func (g *Gateway) decodeSignIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req authflow.SignInRequest
		if err := decodeJSON(w, r, &req); err != nil {
			g.writeError(w, err)
			return
		}
		if err := authflow.Validate(req); err != nil {
			g.writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), signInKey{}, req)))
	})
}

func (g *Gateway) handleSignIn(w http.ResponseWriter, r *http.Request) {
	req, _ := r.Context().Value(signInKey{}).(authflow.SignInRequest)

	result, err := g.controller.SignIn(r.Context(), auth.FromContext(r.Context()), req)
	if err != nil {
		g.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (g *Gateway) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req authflow.AccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		g.writeError(w, err)
		return
	}

	result, err := g.controller.SignUp(r.Context(), req)
	if err != nil {
		g.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (g *Gateway) handleSignProvider(w http.ResponseWriter, r *http.Request) {
	var req authflow.AccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		g.writeError(w, err)
		return
	}

	result, err := g.controller.SignProvider(r.Context(), req)
	if err != nil {
		g.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleVerifyToken answers 201 for a refresh, matching the status clients already expect.
func (g *Gateway) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	result, err := g.controller.VerifyToken(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		g.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
