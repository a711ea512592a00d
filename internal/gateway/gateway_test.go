// ABOUTME: Tests for Gateway construction, lifecycle and health endpoints
// ABOUTME: Runs the real HTTP server on a free local port

package gateway

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/shelf-gateway/internal/config"
	"github.com/2389/shelf-gateway/internal/store"
)

func TestGatewayNew(t *testing.T) {
	cfg := testConfig(t)

	gw, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer gw.Shutdown(context.Background())

	if gw.config != cfg {
		t.Error("gateway config mismatch")
	}
	if gw.store == nil {
		t.Error("store should not be nil")
	}
	if gw.apiKeys == nil {
		t.Error("api key store should not be nil")
	}
}

func TestGatewayNew_ShortSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "short"

	_, err := NewWithStores(cfg, store.NewMockStore(), nil, testLogger())
	require.Error(t, err)
}

func TestGatewayNew_RedisUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.APIKeys = config.APIKeysConfig{
		Backend: config.APIKeyBackendRedis,
		Redis:   config.RedisConfig{Addr: "127.0.0.1:1"},
	}

	_, err := New(cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestGatewayRunAndShutdown(t *testing.T) {
	cfg := testConfig(t)

	gw, err := New(cfg, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- gw.Run(ctx)
	}()

	// Give it time to start
	time.Sleep(100 * time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("gateway did not shutdown in time")
	}
}

func TestHealthEndpoint(t *testing.T) {
	cfg := testConfig(t)

	gw, err := New(cfg, testLogger())
	require.NoError(t, err)

	go func() {
		_ = gw.Run(t.Context())
	}()

	// Wait for server to start
	time.Sleep(100 * time.Millisecond)

	for _, path := range []string{"/health", "/health/ready"} {
		resp, err := http.Get("http://" + cfg.Server.HTTPAddr + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

// unreachableStore fails its ping to exercise readiness.
type unreachableStore struct {
	*store.MockStore
}

func (unreachableStore) Ping(ctx context.Context) error {
	return errors.New("database is locked")
}

func TestReadyEndpoint_StoreDown(t *testing.T) {
	s := unreachableStore{store.NewMockStore()}
	gw, err := NewWithStores(testConfig(t), s, s, testLogger())
	require.NoError(t, err)

	env := &testEnv{gw: gw, store: s.MockStore, handler: gw.Handler()}
	rec := env.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "store unavailable", rec.Body.String())
}

func TestResolveTailscaleStateDir(t *testing.T) {
	dir, err := resolveTailscaleStateDir("/var/lib/shelf/ts")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/shelf/ts", dir)

	t.Setenv("HOME", "/home/shelf")
	dir, err = resolveTailscaleStateDir("")
	require.NoError(t, err)
	assert.Equal(t, "/home/shelf/.local/share/shelf-gateway/tailscale", dir)
}

func TestResolveTailscaleAuthKey(t *testing.T) {
	t.Setenv("TS_AUTHKEY", "")
	_, err := resolveTailscaleAuthKey("")
	require.Error(t, err)

	key, err := resolveTailscaleAuthKey("tskey-config")
	require.NoError(t, err)
	assert.Equal(t, "tskey-config", key)

	t.Setenv("TS_AUTHKEY", "tskey-env")
	key, err = resolveTailscaleAuthKey("")
	require.NoError(t, err)
	assert.Equal(t, "tskey-env", key)
}
