package main

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/circuitscribe/internal/auth"
	"github.com/felixgeelhaar/circuitscribe/internal/config"
)

// cmdToken issues a bearer token for a learner using the configured secret
func cmdToken(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: scribe token <learner> [ttl]")
	}
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("no auth secret configured (set SCRIBE_AUTH_SECRET or auth_secret in secrets.yaml)")
	}

	ttl := cfg.Auth.TokenTTL
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("parse ttl: %w", err)
		}
		ttl = d
	}

	token, err := auth.NewJWT([]byte(cfg.Auth.Secret), cfg.Auth.Issuer).Issue(args[0], ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
