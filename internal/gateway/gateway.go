// ABOUTME: Gateway orchestrator that owns the HTTP server, stores and auth wiring
// ABOUTME: Manages TCP or tailnet listeners, graceful shutdown and health endpoints

package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/shelf-gateway/internal/auth"
	"github.com/2389/shelf-gateway/internal/authflow"
	"github.com/2389/shelf-gateway/internal/config"
	"github.com/2389/shelf-gateway/internal/store"
)

// Gateway serves the auth and resource API over HTTP.
type Gateway struct {
	config      *config.Config
	store       store.Store
	apiKeys     store.APIKeyStore
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	controller *authflow.Controller
	hasher     auth.PasswordHasher
	basic      *auth.BasicStrategy
	bearer     *auth.BearerStrategy

	// closeAPIKeys releases a separate api key backend, nil when keys live in the main store
	closeAPIKeys func() error
}

// initStore opens the SQLite store at cfg.Database.Path.
func initStore(cfg *config.Config) (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}
	return s, nil
}

// initAPIKeys returns the api key store selected by api_keys.backend.
func initAPIKeys(ctx context.Context, cfg *config.Config, s store.Store) (store.APIKeyStore, func() error, error) {
	if cfg.APIKeys.Backend != config.APIKeyBackendRedis {
		return s, nil, nil
	}
	rs, err := store.OpenRedisAPIKeyStore(ctx, store.RedisOptions{
		Addr:      cfg.APIKeys.Redis.Addr,
		Password:  cfg.APIKeys.Redis.Password,
		DB:        cfg.APIKeys.Redis.DB,
		KeyPrefix: cfg.APIKeys.Redis.KeyPrefix,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening redis api key store: %w", err)
	}
	return rs, rs.Close, nil
}

// OpenStores opens the SQLite store and the api key backend selected by cfg.
// closeAPIKeys is nil when api keys live in the SQLite store.
func OpenStores(ctx context.Context, cfg *config.Config) (s *store.SQLiteStore, apiKeys store.APIKeyStore, closeAPIKeys func() error, err error) {
	s, err = initStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	apiKeys, closeAPIKeys, err = initAPIKeys(ctx, cfg, s)
	if err != nil {
		_ = s.Close()
		return nil, nil, nil, err
	}
	return s, apiKeys, closeAPIKeys, nil
}

// New creates a Gateway backed by the stores named in cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, apiKeys, closeAPIKeys, err := OpenStores(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	gw, err := NewWithStores(cfg, s, apiKeys, logger)
	if err != nil {
		_ = s.Close()
		if closeAPIKeys != nil {
			_ = closeAPIKeys()
		}
		return nil, err
	}
	gw.closeAPIKeys = closeAPIKeys
	return gw, nil
}

// NewWithStores creates a Gateway over already opened stores. apiKeys may be the same value as s.
// The gateway takes ownership of s and closes it on Shutdown.
func NewWithStores(cfg *config.Config, s store.Store, apiKeys store.APIKeyStore, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if apiKeys == nil {
		apiKeys = s
	}

	issuer, err := auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer)
	if err != nil {
		return nil, fmt.Errorf("creating token issuer: %w", err)
	}
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)

	gw := &Gateway{
		config:     cfg,
		store:      s,
		apiKeys:    apiKeys,
		logger:     logger.With("component", "gateway"),
		controller: authflow.NewController(s, apiKeys, hasher, issuer, logger),
		hasher:     hasher,
		basic:      auth.NewBasicStrategy(s, hasher),
		bearer:     auth.NewBearerStrategy(issuer, s),
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	return gw, nil
}

// setupTCPListener creates the standard TCP listener for HTTP.
func (g *Gateway) setupTCPListener() (net.Listener, error) {
	g.logger.Info("starting gateway", "http_addr", g.config.Server.HTTPAddr)

	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// setupListener creates the listener based on configuration (Tailscale or TCP).
func (g *Gateway) setupListener(ctx context.Context) (net.Listener, error) {
	if g.config.Tailscale.Enabled {
		if g.config.Server.HTTPAddr != "" {
			g.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", g.config.Server.HTTPAddr)
		}
		return g.setupTailscaleListener(ctx)
	}
	return g.setupTCPListener()
}

// startServer serves HTTP in a goroutine, returning its error channel.
func (g *Gateway) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()
	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		return err
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := g.setupListener(ctx)
	if err != nil {
		return err
	}

	errCh := g.startServer(ln)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown uses a fresh context since the run context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	timeout := g.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return g.Shutdown(ctx)
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "shelf-gateway", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

// setupTailscaleListener joins the tailnet and listens on :80, or :443 for HTTPS and Funnel.
func (g *Gateway) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := g.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	g.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	g.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := g.tsnetServer.Up(ctx)
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	g.logTailscaleStatus(tsCfg.Hostname, status)

	mode := tailnetModeFor(tsCfg)
	var getCert certificateFunc
	if mode == tailnetHTTPS {
		lc, err := g.tsnetServer.LocalClient()
		if err != nil {
			_ = g.tsnetServer.Close()
			return nil, fmt.Errorf("getting tailscale local client: %w", err)
		}
		getCert = lc.GetCertificate
	}

	g.logger.Info("listening on tailnet", "mode", mode.String(), "port", mode.port())
	ln, err := listenTailnet(g.tsnetServer, mode, getCert)
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, err
	}
	return ln, nil
}

func (g *Gateway) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		g.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	g.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// tailnetMode is how the gateway is exposed on the tailnet.
type tailnetMode int

const (
	tailnetHTTP tailnetMode = iota
	tailnetHTTPS
	tailnetFunnel
)

func (m tailnetMode) String() string {
	switch m {
	case tailnetHTTPS:
		return "https"
	case tailnetFunnel:
		return "funnel"
	default:
		return "http"
	}
}

func (m tailnetMode) port() string {
	if m == tailnetHTTP {
		return ":80"
	}
	return ":443"
}

// tailnetModeFor picks the exposure mode. Funnel implies HTTPS and wins over it.
func tailnetModeFor(cfg config.TailscaleConfig) tailnetMode {
	switch {
	case cfg.Funnel:
		return tailnetFunnel
	case cfg.HTTPS:
		return tailnetHTTPS
	default:
		return tailnetHTTP
	}
}

type certificateFunc func(*tls.ClientHelloInfo) (*tls.Certificate, error)

// tailnetNode is the part of tsnet.Server the listener needs.
type tailnetNode interface {
	Listen(network, addr string) (net.Listener, error)
	ListenFunnel(network, addr string, opts ...tsnet.FunnelOption) (net.Listener, error)
}

// listenTailnet opens the listener for mode. HTTPS terminates TLS here with
// getCert; Funnel traffic arrives already terminated by tailscaled.
func listenTailnet(node tailnetNode, mode tailnetMode, getCert certificateFunc) (net.Listener, error) {
	if mode == tailnetFunnel {
		ln, err := node.ListenFunnel("tcp", mode.port())
		if err != nil {
			return nil, fmt.Errorf("listening on tailscale funnel: %w", err)
		}
		return ln, nil
	}

	if mode == tailnetHTTPS && getCert == nil {
		return nil, errors.New("tailscale https needs a certificate source")
	}

	ln, err := node.Listen("tcp", mode.port())
	if err != nil {
		return nil, fmt.Errorf("listening on tailscale %s port: %w", mode, err)
	}
	if mode == tailnetHTTPS {
		return tls.NewListener(ln, &tls.Config{
			GetCertificate: getCert,
			MinVersion:     tls.VersionTLS12,
		}), nil
	}
	return ln, nil
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops the HTTP server and releases the stores.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	if g.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", g.tsnetServer.Close())
	}
	if g.closeAPIKeys != nil {
		errs = appendCloseError(errs, "api key store close", g.closeAPIKeys())
	}
	errs = appendCloseError(errs, "store close", g.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}
