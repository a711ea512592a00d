// ABOUTME: HTTP route table for the auth flows, resource API and health checks
// ABOUTME: Protected resources sit behind the bearer strategy and a per-route scope gate

package gateway

import (
	"net/http"

	"github.com/2389/shelf-gateway/internal/auth"
)

// Scopes granted through api keys and checked by the resource routes
const (
	ScopeReadBooks   = "read:books"
	ScopeCreateBooks = "create:books"
	ScopeUpdateBooks = "update:books"
	ScopeDeleteBooks = "delete:books"
	ScopeReadUsers   = "read:users"
	ScopeCreateUsers = "create:users"
	ScopeUpdateUsers = "update:users"
	ScopeDeleteUsers = "delete:users"

	ScopeReadUserBooks   = "read:user-books"
	ScopeCreateUserBooks = "create:user-books"
	ScopeDeleteUserBooks = "delete:user-books"
)

// authPrefixes are the mount points of the auth flows. /auth is kept as an alias.
var authPrefixes = []string{"/api/auth", "/auth"}

// Handler returns the gateway's HTTP handler.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /health/ready", g.handleReady)

	basic := auth.Authenticate(g.basic, g.logger)
	bearer := auth.Authenticate(g.bearer, g.logger)

	for _, prefix := range authPrefixes {
		// body first so a missing apiKeyToken is a 400 regardless of credentials
		mux.Handle("POST "+prefix+"/sign-in", g.decodeSignIn(basic(http.HandlerFunc(g.handleSignIn))))
		mux.HandleFunc("POST "+prefix+"/sign-up", g.handleSignUp)
		mux.HandleFunc("POST "+prefix+"/sign-provider", g.handleSignProvider)
		mux.Handle("POST "+prefix+"/verify-token", bearer(http.HandlerFunc(g.handleVerifyToken)))
	}

	scoped := func(h http.HandlerFunc, scopes ...string) http.Handler {
		return bearer(auth.RequireScopes(scopes...)(h))
	}

	mux.Handle("GET /api/books", scoped(g.handleListBooks, ScopeReadBooks))
	mux.Handle("GET /api/books/{bookId}", scoped(g.handleGetBook, ScopeReadBooks))
	mux.Handle("POST /api/books", scoped(g.handleCreateBook, ScopeCreateBooks))
	mux.Handle("PUT /api/books/{bookId}", scoped(g.handleUpdateBook, ScopeUpdateBooks))
	mux.Handle("DELETE /api/books/{bookId}", scoped(g.handleDeleteBook, ScopeDeleteBooks))

	mux.Handle("GET /api/users", scoped(g.handleListUsers, ScopeReadUsers))
	mux.Handle("GET /api/users/{userId}", scoped(g.handleGetUser, ScopeReadUsers))
	mux.Handle("POST /api/users", scoped(g.handleCreateUser, ScopeCreateUsers))
	mux.Handle("PUT /api/users/{userId}", scoped(g.handleUpdateUser, ScopeUpdateUsers))
	mux.Handle("DELETE /api/users/{userId}", scoped(g.handleDeleteUser, ScopeDeleteUsers))

	mux.Handle("GET /api/user-books", scoped(g.handleListUserBooks, ScopeReadUserBooks))
	mux.Handle("POST /api/user-books", scoped(g.handleCreateUserBook, ScopeCreateUserBooks))
	mux.Handle("DELETE /api/user-books/{userBookId}", scoped(g.handleDeleteUserBook, ScopeDeleteUserBooks))

	return mux
}
