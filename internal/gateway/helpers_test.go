// ABOUTME: Shared fixtures for gateway handler tests
// ABOUTME: Builds a gateway over MockStore and drives it through httptest

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/shelf-gateway/internal/auth"
	"github.com/2389/shelf-gateway/internal/config"
	"github.com/2389/shelf-gateway/internal/store"
)

const testSecret = "gateway-test-secret-0123456789ab"

// testConfig creates a minimal config with an available HTTP port.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find available HTTP port: %v", err)
	}
	httpAddr := ln.Addr().String()
	ln.Close()

	return &config.Config{
		Server: config.ServerConfig{
			HTTPAddr:          httpAddr,
			ShutdownTimeout:   5 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		},
		Database: config.DatabaseConfig{Path: ":memory:"},
		Auth: config.AuthConfig{
			JWTSecret:  testSecret,
			Issuer:     "shelf-test",
			BcryptCost: bcrypt.MinCost,
		},
		APIKeys: config.APIKeysConfig{Backend: config.APIKeyBackendSQLite},
	}
}

// testLogger creates a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	gw      *Gateway
	store   *store.MockStore
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := store.NewMockStore()
	gw, err := NewWithStores(testConfig(t), s, s, testLogger())
	require.NoError(t, err)

	require.NoError(t, s.CreateAPIKey(context.Background(), &store.APIKey{Token: "K1", Scopes: []string{"read"}}))
	return &testEnv{gw: gw, store: s, handler: gw.Handler()}
}

type requestOption func(*http.Request)

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withBasic(email, password string) requestOption {
	return func(r *http.Request) { r.SetBasicAuth(email, password) }
}

// do sends body as JSON (raw when it is a string) and returns the recorded response.
func (e *testEnv) do(t *testing.T, method, path string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func account(apiKey, email string) map[string]string {
	return map[string]string{
		"apiKeyToken": apiKey,
		"firstName":   "Ana",
		"lastName":    "Lopez",
		"email":       email,
		"password":    "pass1",
	}
}

// authResponse mirrors authflow.Result with isAdmin kept optional.
type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID        string `json:"id"`
		FirstName string `json:"firstName"`
		Email     string `json:"email"`
		IsAdmin   *bool  `json:"isAdmin"`
	} `json:"user"`
	Message string `json:"message"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

// signUpWithScopes provisions an api key granting scopes and signs up email with it.
func (e *testEnv) signUpWithScopes(t *testing.T, email string, scopes ...string) authResponse {
	t.Helper()
	key := "key-" + email
	require.NoError(t, e.store.CreateAPIKey(context.Background(), &store.APIKey{Token: key, Scopes: scopes}))

	rec := e.do(t, http.MethodPost, "/api/auth/sign-up", account(key, email))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authResponse](t, rec)
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, reason string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[auth.ErrorBody](t, rec)
	require.Equal(t, status, body.StatusCode)
	if reason != "" {
		require.Equal(t, reason, body.Error)
	}
}
