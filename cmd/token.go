package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/kilianp07/worklog/api/middleware"
)

func newTokenCmd(o *rootOptions) *cobra.Command {
	var (
		actor int64
		ttl   time.Duration
	)
	c := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an actor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			if !cfg.Auth.Enabled() {
				return errors.New("auth.jwt_secret is not configured")
			}
			if actor <= 0 {
				return errors.New("--actor must be positive")
			}
			now := time.Now()
			claims := jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(now)}
			if ttl > 0 {
				claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
			}
			tok, err := middleware.IssueToken(cfg.Auth.JWTSecret, cfg.Auth.Issuer, actor, claims)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	c.Flags().Int64Var(&actor, "actor", 0, "user id placed in the sub claim")
	c.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for none")
	return c
}
