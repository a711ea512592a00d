// Package gateway runs the shelf-gateway HTTP server.
//
// # Overview
//
// The gateway owns the store, the api key backend, the auth strategies and
// the flow controller, and exposes them over a single net/http ServeMux.
// It listens on server.http_addr, or on the tailnet through tsnet when
// tailscale.enabled is set.
//
// # Auth API
//
// Mounted under /api/auth (and /auth):
//
//   - POST sign-in       - basic credentials + {apiKeyToken}, 200
//   - POST sign-up       - new account, 201
//   - POST sign-provider - get-or-create account, 200
//   - POST verify-token  - bearer token refresh, 201
//
// # Resource API
//
// Every resource route requires a bearer token carrying the route's scope:
//
//   - GET /api/books, GET /api/books/{bookId}       - read:books
//   - POST /api/books                               - create:books
//   - PUT /api/books/{bookId}                       - update:books
//   - DELETE /api/books/{bookId}                    - delete:books
//   - GET /api/users, GET /api/users/{userId}       - read:users
//   - POST /api/users                               - create:users
//   - PUT /api/users/{userId}                       - update:users
//   - DELETE /api/users/{userId}                    - delete:users
//   - GET /api/user-books                           - read:user-books
//   - POST /api/user-books                          - create:user-books
//   - DELETE /api/user-books/{userBookId}           - delete:user-books
//
// Only admin callers may set isAdmin through the user routes.
//
// Successful resource responses use a {data, message} envelope. Errors use
// {error, statusCode}.
//
// # Health
//
//   - GET /health - liveness
//   - GET /health/ready - store and api key backend ping
package gateway
