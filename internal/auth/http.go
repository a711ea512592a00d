// ABOUTME: HTTP middleware running a Strategy and gating routes on scopes or admin
// ABOUTME: Failures are written as JSON {"error", "statusCode"} bodies

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode"`
}

// WriteError renders err as a JSON error response. Unclassified errors become a
// generic 500 and are logged; their text never reaches the client.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := KindOf(err)
	status := kind.Status()

	reason := "internal server error"
	if kind == KindInternal {
		if logger != nil {
			logger.Error("request failed", "error", err)
		}
	} else {
		var ae *Error
		if errors.As(err, &ae) && ae.Reason != "" {
			reason = ae.Reason
		} else {
			reason = strings.ToLower(http.StatusText(status))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: reason, StatusCode: status})
}

// extractBearerToken extracts a bearer token from the Authorization header.
// The scheme is matched case-insensitively.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header format"
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// Authenticate runs strategy on every request and attaches the verified
// identity to the request context. Rejected requests never reach next.
func Authenticate(strategy Strategy, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := strategy.Verify(r)
			if err != nil {
				if KindOf(err) != KindInternal && logger != nil {
					logger.Warn("authentication rejected",
						"strategy", strategy.Name(),
						"path", r.URL.Path,
						"reason", err.Error(),
					)
				}
				WriteError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), identity)))
		})
	}
}

// RequireScopes rejects requests whose token does not grant every scope.
// Must be used after Authenticate with the bearer strategy.
func RequireScopes(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := FromContext(r.Context())
			if identity == nil {
				WriteError(w, nil, Unauthorized("not authenticated"))
				return
			}
			for _, scope := range scopes {
				if !identity.HasScope(scope) {
					WriteError(w, nil, Forbidden("insufficient scope"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects requests from non-admin identities.
// Must be used after Authenticate.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := FromContext(r.Context())
			if identity == nil {
				WriteError(w, nil, Unauthorized("not authenticated"))
				return
			}
			if !identity.IsAdmin {
				WriteError(w, nil, Forbidden("admin required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
