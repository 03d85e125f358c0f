// Command token mints a bearer token for the studio API, signed with the
// configured JWT secret.
//
// Usage:
//
//	GENSTUDIO_AUTH_JWT_SECRET=... go run ./cmd/token -subject studio-ui
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/phrazzld/genstudio/internal/config"
	"github.com/phrazzld/genstudio/internal/service/auth"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "token: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("subject", "studio-ui", "subject the token is issued to")
	lifetime := fs.Duration("lifetime", 0, "token lifetime; 0 uses auth.token_lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadAuth()
	if err != nil {
		return err
	}
	if *lifetime > 0 {
		cfg.TokenLifetime = *lifetime
	}

	tokens, err := auth.NewTokenService(*cfg)
	if err != nil {
		return err
	}

	token, err := tokens.GenerateToken(context.Background(), *subject)
	if err != nil {
		return err
	}

	claims, err := tokens.ValidateToken(context.Background(), token)
	if err != nil {
		return fmt.Errorf("minted token does not validate: %w", err)
	}

	_, err = fmt.Fprintf(out, "%s\n# subject=%s expires=%s\n",
		token, claims.Subject, claims.ExpiresAt.UTC().Format(time.RFC3339))
	return err
}
