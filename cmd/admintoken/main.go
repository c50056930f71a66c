// Command admintoken mints an admin bearer token for the AirWatch Pro API.
//
// The signing key is read from ADMIN_JWT_SIGNING_KEY (a .env file is
// honoured). Usage:
//
//	admintoken -sub ops@airwatch.pro -ttl 30m
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/airwatchpro/airwatch/internal/auth"
)

func main() {
	subject := flag.String("sub", "", "token subject, usually the operator's email (required)")
	ttl := flag.Duration("ttl", auth.DefaultTokenExpiry, "token lifetime")
	flag.Parse()

	if err := run(*subject, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "admintoken:", err)
		os.Exit(1)
	}
}

func run(subject string, ttl time.Duration) error {
	if subject == "" {
		return errors.New("-sub is required")
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		SigningKey: os.Getenv("ADMIN_JWT_SIGNING_KEY"),
		Expiry:     ttl,
	})
	if err != nil {
		return err
	}

	token, expiresAt, err := tokens.IssueAdminToken(subject)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println(token)
	return nil
}
