// Command mint-token issues a signed access token for a backend account, so
// services that produce notifications can call POST /v1/notifications.
//
//	mint-token -subject grades-service
//	mint-token -subject ops-1 -role admin
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/edutok-api/internal/config"
	"github.com/edutok-api/internal/domain"
	jwtinfra "github.com/edutok-api/internal/infrastructure/jwt"
	"github.com/edutok-api/internal/pathstore"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if err := run(config.Load(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "mint-token:", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("mint-token", flag.ContinueOnError)
	subject := fs.String("subject", "", "account id written to the user_id claim")
	role := fs.String("role", domain.RoleService, "role claim: service or admin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !pathstore.ValidKey(*subject) {
		return fmt.Errorf("invalid -subject %q", *subject)
	}
	if *role != domain.RoleService && *role != domain.RoleAdmin {
		return errors.New("only service and admin tokens can be minted here")
	}

	p, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return err
	}
	tok, err := p.Sign(*subject, *role, "")
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}
