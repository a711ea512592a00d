// Package config handles configuration loading for shelf-gateway.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. The format is chosen by file extension (.toml is TOML, anything
// else is YAML). Missing optional values get defaults, then the result is validated.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from SHELF_CONFIG environment variable
//  2. ./config.yaml (current directory)
//  3. ~/.config/shelf/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${SHELF_JWT_SECRET}"
//
// SHELF_DB_PATH, when set, overrides database.path.
//
// # Example
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  shutdown_timeout: "10s"
//
//	database:
//	  path: "./data/shelf.db"
//
//	auth:
//	  jwt_secret: "${SHELF_JWT_SECRET}"   # at least 32 bytes
//	  issuer: "shelf-gateway"
//
//	api_keys:
//	  backend: "redis"                    # or "sqlite" (default)
//	  redis:
//	    addr: "127.0.0.1:6379"
//
//	logging:
//	  level: "info"                       # debug, info, warn, error
//	  format: "text"                      # text or json
//
// # Tailscale
//
// With tailscale.enabled the gateway listens on the tailnet via tsnet instead of
// server.http_addr. tailscale.https serves TLS with the tailnet certificate and
// tailscale.funnel exposes the gateway publicly.
package config
