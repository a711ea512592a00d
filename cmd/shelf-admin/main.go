// ABOUTME: Admin CLI for shelf-gateway api keys and identities
// ABOUTME: Operates directly on the configured stores; run it next to the gateway

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/shelf-gateway/internal/auth"
	"github.com/2389/shelf-gateway/internal/config"
	"github.com/2389/shelf-gateway/internal/gateway"
	"github.com/2389/shelf-gateway/internal/store"
)

const banner = `
      _          _  __               _           _
  ___| |__   ___| |/ _|       __ _  __| |_ __ ___ (_)_ __
 / __| '_ \ / _ \ | |_ _____ / _' |/ _' | '_ ' _ \| | '_ \
 \__ \ | | |  __/ |  _|_____| (_| | (_| | | | | | | | | | |
 |___/_| |_|\___|_|_|        \__,_|\__,_|_| |_| |_|_|_| |_|
`

// stores is what every command operates on.
type stores struct {
	identities store.IdentityStore
	apiKeys    store.APIKeyStore
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	err := withStores(func(s stores) error {
		return dispatch(context.Background(), os.Stdout, s, cmd, args)
	})
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: shelf-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  keys list                           List api keys")
	fmt.Println("  keys create --scopes a,b [--description d]")
	fmt.Println("                                      Provision an api key")
	fmt.Println("  keys revoke <token>                 Delete an api key")
	fmt.Println("  users list                          List identities")
	fmt.Println("  users promote <email>               Grant admin")
	fmt.Println("  users demote <email>                Revoke admin")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  SHELF_CONFIG       Config file path (default: ./config.yaml or ~/.config/shelf/gateway.yaml)")
	fmt.Println("  SHELF_DB_PATH      Overrides database.path")
	fmt.Println()
}

func withStores(fn func(stores) error) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, apiKeys, closeAPIKeys, err := gateway.OpenStores(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	if closeAPIKeys != nil {
		defer closeAPIKeys()
	}

	return fn(stores{identities: s, apiKeys: apiKeys})
}

func dispatch(ctx context.Context, out io.Writer, s stores, cmd string, args []string) error {
	switch cmd {
	case "keys":
		return cmdKeys(ctx, out, s.apiKeys, args)
	case "users":
		return cmdUsers(ctx, out, s.identities, args)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// cmdKeys handles api key subcommands
func cmdKeys(ctx context.Context, out io.Writer, keys store.APIKeyStore, args []string) error {
	if len(args) == 0 {
		return cmdKeysList(ctx, out, keys)
	}

	subcmd := args[0]
	switch subcmd {
	case "list":
		return cmdKeysList(ctx, out, keys)
	case "create":
		return cmdKeysCreate(ctx, out, keys, args[1:])
	case "revoke":
		return cmdKeysRevoke(ctx, out, keys, args[1:])
	default:
		return fmt.Errorf("unknown keys subcommand: %s (use list, create, revoke)", subcmd)
	}
}

func cmdKeysList(ctx context.Context, out io.Writer, keys store.APIKeyStore) error {
	list, err := keys.ListAPIKeys(ctx)
	if err != nil {
		return fmt.Errorf("listing api keys: %w", err)
	}

	cyan := color.New(color.FgCyan)
	fmt.Fprintln(out)
	cyan.Fprintln(out, "  API Keys")
	cyan.Fprintln(out, "  --------")

	if len(list) == 0 {
		fmt.Fprintln(out, "  (no api keys)")
		fmt.Fprintln(out)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  TOKEN\tSCOPES\tDESCRIPTION\tCREATED")
	fmt.Fprintln(w, "  -----\t------\t-----------\t-------")
	for _, k := range list {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n",
			maskToken(k.Token), strings.Join(k.Scopes, ","), truncate(k.Description, 32), k.CreatedAt.Format("Jan 02 15:04"))
	}
	w.Flush()
	fmt.Fprintln(out)
	return nil
}

func cmdKeysCreate(ctx context.Context, out io.Writer, keys store.APIKeyStore, args []string) error {
	var scopes, description string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--scopes", "-s":
			if i+1 < len(args) {
				scopes = args[i+1]
				i++
			}
		case "--description", "-d":
			if i+1 < len(args) {
				description = args[i+1]
				i++
			}
		}
	}

	var scopeList []string
	for _, s := range strings.Split(scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopeList = append(scopeList, s)
		}
	}
	if len(scopeList) == 0 {
		return errors.New("usage: keys create --scopes <a,b> [--description <text>]")
	}

	token, err := auth.NewAPIKeyToken()
	if err != nil {
		return err
	}
	key := &store.APIKey{Token: token, Scopes: scopeList, Description: description, CreatedAt: time.Now().UTC()}
	if err := keys.CreateAPIKey(ctx, key); err != nil {
		return fmt.Errorf("creating api key: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Fprintf(out, "✓ Created api key\n")
	fmt.Fprintf(out, "  Token:   %s\n", token)
	fmt.Fprintf(out, "  Scopes:  %s\n", strings.Join(key.Scopes, ", "))
	color.New(color.FgYellow).Fprintln(out, "  The token is shown only once.")
	return nil
}

func cmdKeysRevoke(ctx context.Context, out io.Writer, keys store.APIKeyStore, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: keys revoke <token>")
	}
	if err := keys.DeleteAPIKey(ctx, args[0]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no api key %s", maskToken(args[0]))
		}
		return fmt.Errorf("revoking api key: %w", err)
	}

	color.New(color.FgGreen).Fprintf(out, "✓ Revoked api key: %s\n", maskToken(args[0]))
	return nil
}

// cmdUsers handles identity subcommands
func cmdUsers(ctx context.Context, out io.Writer, identities store.IdentityStore, args []string) error {
	if len(args) == 0 {
		return cmdUsersList(ctx, out, identities)
	}

	subcmd := args[0]
	switch subcmd {
	case "list":
		return cmdUsersList(ctx, out, identities)
	case "promote":
		return cmdUsersSetAdmin(ctx, out, identities, args[1:], true)
	case "demote":
		return cmdUsersSetAdmin(ctx, out, identities, args[1:], false)
	default:
		return fmt.Errorf("unknown users subcommand: %s (use list, promote, demote)", subcmd)
	}
}

func cmdUsersList(ctx context.Context, out io.Writer, identities store.IdentityStore) error {
	list, err := identities.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("listing identities: %w", err)
	}

	cyan := color.New(color.FgCyan)
	fmt.Fprintln(out)
	cyan.Fprintln(out, "  Identities")
	cyan.Fprintln(out, "  ----------")

	if len(list) == 0 {
		fmt.Fprintln(out, "  (no identities)")
		fmt.Fprintln(out)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tEMAIL\tNAME\tADMIN\tCREATED")
	fmt.Fprintln(w, "  --\t-----\t----\t-----\t-------")
	for _, i := range list {
		admin := ""
		if i.IsAdmin {
			admin = "yes"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			truncate(i.ID, 12), i.Email, truncate(i.FirstName+" "+i.LastName, 24), admin, i.CreatedAt.Format("Jan 02 15:04"))
	}
	w.Flush()
	fmt.Fprintln(out)
	return nil
}

func cmdUsersSetAdmin(ctx context.Context, out io.Writer, identities store.IdentityStore, args []string, isAdmin bool) error {
	verb := "promote"
	if !isAdmin {
		verb = "demote"
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: users %s <email>", verb)
	}

	email := args[0]
	if err := identities.SetIdentityAdmin(ctx, email, isAdmin); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no identity with email %s", email)
		}
		return fmt.Errorf("updating identity: %w", err)
	}

	color.New(color.FgGreen).Fprintf(out, "✓ %sd %s\n", strings.ToUpper(verb[:1])+verb[1:], email)
	return nil
}

// maskToken keeps enough of a token to recognize it in listings.
func maskToken(token string) string {
	if len(token) <= 10 {
		return "****"
	}
	return token[:8] + "…" + token[len(token)-2:]
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
