// ABOUTME: First-run setup commands: init writes a config, bootstrap provisions keys
// ABOUTME: The api key token is printed once and never stored in plaintext elsewhere

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/shelf-gateway/internal/auth"
	"github.com/2389/shelf-gateway/internal/authflow"
	"github.com/2389/shelf-gateway/internal/config"
	"github.com/2389/shelf-gateway/internal/gateway"
	"github.com/2389/shelf-gateway/internal/store"
)

// configOptions are the answers collected by init and bootstrap.
type configOptions struct {
	HTTPAddr   string
	DBPath     string
	JWTSecret  string
	Tailscale  bool
	TSHostname string
	TSAuthKey  string
	TSFunnel   bool
	LogLevel   string
	LogFormat  string
}

func newJWTSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// renderConfig produces a YAML config that config.Parse accepts.
func renderConfig(opts configOptions, generatedBy string) string {
	var cfg strings.Builder
	cfg.WriteString("# shelf-gateway configuration\n")
	cfg.WriteString("# Generated by shelf-gateway " + generatedBy + "\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", opts.HTTPAddr))
	cfg.WriteString("  shutdown_timeout: \"10s\"\n\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n\n", opts.DBPath))

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  jwt_secret: %q\n", opts.JWTSecret))
	cfg.WriteString("  issuer: \"shelf-gateway\"\n\n")

	cfg.WriteString("api_keys:\n")
	cfg.WriteString("  backend: \"sqlite\"\n\n")

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", opts.Tailscale))
	if opts.Tailscale {
		cfg.WriteString(fmt.Sprintf("  hostname: %q\n", opts.TSHostname))
		if opts.TSAuthKey != "" {
			cfg.WriteString(fmt.Sprintf("  auth_key: %q\n", opts.TSAuthKey))
		}
		cfg.WriteString(fmt.Sprintf("  funnel: %t\n", opts.TSFunnel))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", opts.LogLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", opts.LogFormat))
	return cfg.String()
}

func writeConfigFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// 0600: the file holds the signing secret
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func runInit(in io.Reader) error {
	reader := bufio.NewReader(in)

	fmt.Println("shelf-gateway configuration setup")
	fmt.Println("=================================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", config.DefaultPath())

	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, "File exists. Overwrite?", "no")) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	secret, err := newJWTSecret()
	if err != nil {
		return err
	}
	opts := configOptions{JWTSecret: secret}

	fmt.Println("\n--- Server Configuration ---")
	opts.HTTPAddr = prompt(reader, "HTTP address", "localhost:8080")

	fmt.Println("\n--- Database Configuration ---")
	opts.DBPath = prompt(reader, "SQLite database path", filepath.Join(getDataPath(), "shelf.db"))

	fmt.Println("\n--- Tailscale Configuration ---")
	opts.Tailscale = yes(prompt(reader, "Enable Tailscale?", "no"))
	if opts.Tailscale {
		opts.TSHostname = prompt(reader, "Tailscale hostname", "shelf-gateway")
		opts.TSAuthKey = prompt(reader, "Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		opts.TSFunnel = yes(prompt(reader, "Enable Funnel (public HTTPS)?", "no"))
	}

	fmt.Println("\n--- Logging Configuration ---")
	opts.LogLevel = prompt(reader, "Log level (debug/info/warn/error)", "info")
	opts.LogFormat = prompt(reader, "Log format (text/json)", "text")

	content := renderConfig(opts, "init")
	if _, err := config.Parse(content, "yaml"); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}
	if err := writeConfigFile(outputFile, content); err != nil {
		return err
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nNext steps:")
	fmt.Println("  shelf-gateway bootstrap --scopes read:books")
	fmt.Println("  shelf-gateway serve")
	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

func yes(answer string) bool {
	a := strings.ToLower(answer)
	return a == "yes" || a == "y"
}

// bootstrapArgs are the flags of the bootstrap command.
type bootstrapArgs struct {
	Scopes        []string
	Description   string
	AdminEmail    string
	AdminPassword string
	AdminFirst    string
	AdminLast     string
}

func parseBootstrapArgs(args []string) (*bootstrapArgs, error) {
	fs := flag.NewFlagSet("bootstrap", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var scopes string
	out := &bootstrapArgs{}
	fs.StringVar(&scopes, "scopes", "", "comma separated scopes granted by the api key")
	fs.StringVar(&out.Description, "description", "bootstrap key", "api key description")
	fs.StringVar(&out.AdminEmail, "admin-email", "", "create (or promote) an admin identity")
	fs.StringVar(&out.AdminPassword, "admin-password", "", "password for a new admin identity")
	fs.StringVar(&out.AdminFirst, "admin-first-name", "Shelf", "admin first name")
	fs.StringVar(&out.AdminLast, "admin-last-name", "Admin", "admin last name")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	for _, s := range strings.Split(scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out.Scopes = append(out.Scopes, s)
		}
	}
	if len(out.Scopes) == 0 {
		return nil, errors.New("--scopes is required")
	}
	if out.AdminEmail != "" && out.AdminPassword == "" {
		return nil, errors.New("--admin-password is required with --admin-email")
	}
	return out, nil
}

// runBootstrap performs first-time setup:
// 1. Creates a config file with a random JWT secret (if none exists)
// 2. Provisions an api key with the requested scopes
// 3. Optionally creates or promotes an admin identity
func runBootstrap(ctx context.Context, args []string) error {
	opts, err := parseBootstrapArgs(args)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	configPath := config.DefaultPath()
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		secret, err := newJWTSecret()
		if err != nil {
			return err
		}
		content := renderConfig(configOptions{
			HTTPAddr:  "localhost:8080",
			DBPath:    filepath.Join(getDataPath(), "shelf.db"),
			JWTSecret: secret,
			LogLevel:  "info",
			LogFormat: "text",
		}, "bootstrap")
		if err := writeConfigFile(configPath, content); err != nil {
			return err
		}
		green.Printf("  ✓ Created config: %s\n", configPath)
	} else {
		cyan.Printf("  Using existing config: %s\n", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, apiKeys, closeAPIKeys, err := gateway.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	if closeAPIKeys != nil {
		defer closeAPIKeys()
	}
	green.Printf("  ✓ Database: %s\n", cfg.Database.Path)

	token, err := provisionAPIKey(ctx, apiKeys, opts.Scopes, opts.Description)
	if err != nil {
		return err
	}
	green.Printf("  ✓ Created api key (%s backend)\n", cfg.APIKeys.Backend)

	if opts.AdminEmail != "" {
		created, err := ensureAdmin(ctx, s, auth.NewBcryptHasher(cfg.Auth.BcryptCost), opts, token)
		if err != nil {
			return err
		}
		if created {
			green.Printf("  ✓ Created admin: %s\n", opts.AdminEmail)
		} else {
			green.Printf("  ✓ Promoted existing identity to admin: %s\n", opts.AdminEmail)
		}
	}

	fmt.Println()
	green.Println("  Bootstrap complete!")
	fmt.Println()
	cyan.Println("  API Key")
	cyan.Println("  -------")
	fmt.Printf("  Token:  %s\n", token)
	fmt.Printf("  Scopes: %s\n", strings.Join(opts.Scopes, ", "))
	fmt.Println()
	yellow.Println("  The token is shown only once. Clients send it as apiKeyToken.")
	fmt.Println("    shelf-gateway serve    # start the gateway")
	fmt.Println()
	return nil
}

func provisionAPIKey(ctx context.Context, keys store.APIKeyStore, scopes []string, description string) (string, error) {
	token, err := auth.NewAPIKeyToken()
	if err != nil {
		return "", err
	}
	if err := keys.CreateAPIKey(ctx, &store.APIKey{Token: token, Scopes: scopes, Description: description}); err != nil {
		return "", fmt.Errorf("creating api key: %w", err)
	}
	return token, nil
}

// ensureAdmin creates the admin identity, or promotes it when the email is already registered.
func ensureAdmin(ctx context.Context, identities store.IdentityStore, hasher auth.PasswordHasher, opts *bootstrapArgs, apiKeyToken string) (bool, error) {
	req := authflow.AccountRequest{
		APIKeyToken: apiKeyToken,
		FirstName:   opts.AdminFirst,
		LastName:    opts.AdminLast,
		Email:       opts.AdminEmail,
		Password:    opts.AdminPassword,
	}
	if err := req.Validate(); err != nil {
		return false, fmt.Errorf("invalid admin: %w", err)
	}

	hash, err := hasher.Hash(opts.AdminPassword)
	if err != nil {
		return false, err
	}

	err = identities.CreateIdentity(ctx, &store.Identity{
		FirstName:    opts.AdminFirst,
		LastName:     opts.AdminLast,
		Email:        opts.AdminEmail,
		PasswordHash: hash,
		IsAdmin:      true,
	})
	if errors.Is(err, store.ErrDuplicateEmail) {
		if err := identities.SetIdentityAdmin(ctx, opts.AdminEmail, true); err != nil {
			return false, fmt.Errorf("promoting admin: %w", err)
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("creating admin: %w", err)
	}
	return true, nil
}
